package eval

import (
	"fmt"
	"strings"
)

// Handle addresses a frame in an Arena.
type Handle int

const (
	// NoFrame is the parent of the global frame.
	NoFrame Handle = -1
	// Global is the frame top-level declarations live in.
	Global Handle = 0
)

type frame struct {
	parent   Handle
	values   map[string]Value
	retained bool // a value may refer to the frame
	active   bool // a running scope owns the frame
	live     bool
}

// Arena owns every environment frame of one interpreter.
// Frames are pushed for blocks and calls and released when the scope exits.
// A frame a closure retained outlives its scope until Sweep finds nothing refers to it;
// freed slots are reused.
type Arena struct {
	frames []frame
	free   []Handle
}

func NewArena() *Arena {
	a := &Arena{}
	a.frames = append(a.frames, frame{parent: NoFrame, values: make(map[string]Value), retained: true, active: true, live: true})
	return a
}

func (a *Arena) alloc(parent Handle, retained, active bool) Handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		f := &a.frames[h]
		f.parent = parent
		f.retained = retained
		f.active = active
		f.live = true
		return h
	}
	a.frames = append(a.frames, frame{parent: parent, values: make(map[string]Value), retained: retained, active: active, live: true})
	return Handle(len(a.frames) - 1)
}

// Push opens a frame for a scope. The scope must Release it when it exits.
func (a *Arena) Push(parent Handle) Handle {
	return a.alloc(parent, false, true)
}

// Capture allocates a frame owned by a value rather than a scope, such as the
// `this` frame of a bound method. Only Sweep frees it.
func (a *Arena) Capture(parent Handle) Handle {
	h := a.alloc(parent, false, false)
	a.Retain(h)
	return h
}

// Release ends the scope that owns h. The frame is freed at once unless it was retained.
func (a *Arena) Release(h Handle) {
	f := &a.frames[h]
	if !f.live {
		return
	}
	f.active = false
	if !f.retained {
		a.reclaim(h)
	}
}

func (a *Arena) reclaim(h Handle) {
	f := &a.frames[h]
	clear(f.values)
	f.retained = false
	f.active = false
	f.live = false
	a.free = append(a.free, h)
}

// Retain marks h and its ancestors as referenced by a value, so releasing
// their scopes no longer frees them.
func (a *Arena) Retain(h Handle) {
	for h != NoFrame && !a.frames[h].retained {
		a.frames[h].retained = true
		h = a.frames[h].parent
	}
}

func (a *Arena) Parent(h Handle) Handle {
	return a.frames[h].parent
}

func (a *Arena) Define(h Handle, name string, v Value) {
	a.frames[h].values[name] = v
}

func (a *Arena) ancestor(h Handle, depth int) Handle {
	for range depth {
		h = a.frames[h].parent
	}
	return h
}

// GetAt reads name from the frame depth levels above h.
func (a *Arena) GetAt(h Handle, depth int, name string) (Value, bool) {
	v, ok := a.frames[a.ancestor(h, depth)].values[name]
	return v, ok
}

func (a *Arena) AssignAt(h Handle, depth int, name string, v Value) bool {
	values := a.frames[a.ancestor(h, depth)].values
	if _, ok := values[name]; !ok {
		return false
	}
	values[name] = v
	return true
}

// Get searches h and its ancestors.
func (a *Arena) Get(h Handle, name string) (Value, bool) {
	for ; h != NoFrame; h = a.frames[h].parent {
		if v, ok := a.frames[h].values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign updates the nearest frame from h outward that defines name.
func (a *Arena) Assign(h Handle, name string, v Value) bool {
	for ; h != NoFrame; h = a.frames[h].parent {
		if _, ok := a.frames[h].values[name]; ok {
			a.frames[h].values[name] = v
			return true
		}
	}
	return false
}

// Names lists the names defined directly in h.
func (a *Arena) Names(h Handle) []string {
	names := make([]string, 0, len(a.frames[h].values))
	for name := range a.frames[h].values {
		names = append(names, name)
	}
	return names
}

// Live counts frames currently in use.
func (a *Arena) Live() int {
	return len(a.frames) - len(a.free)
}

// Allocated counts frame slots, live or free.
func (a *Arena) Allocated() int {
	return len(a.frames)
}

// Roots calls visit with every frame a running scope owns.
func (a *Arena) Roots(visit func(Handle)) {
	for h := range a.frames {
		if f := &a.frames[h]; f.live && f.active {
			visit(Handle(h))
		}
	}
}

// Values calls visit with every value defined directly in h.
func (a *Arena) Values(h Handle, visit func(Value)) {
	for _, v := range a.frames[h].values {
		visit(v)
	}
}

// Sweep frees every frame that no scope owns and marked does not report.
// It returns the number of frames freed.
func (a *Arena) Sweep(marked func(Handle) bool) int {
	freed := 0
	for h := range a.frames {
		f := &a.frames[h]
		if !f.live || f.active || marked(Handle(h)) {
			continue
		}
		a.reclaim(Handle(h))
		freed++
	}
	return freed
}

func (a *Arena) String() string {
	var b strings.Builder
	for h, f := range a.frames {
		if !f.live {
			continue
		}
		fmt.Fprintf(&b, "%d -> %d {", h, f.parent)
		for name, v := range f.values {
			fmt.Fprintf(&b, " %s:%s", name, Stringify(v))
		}
		b.WriteString(" }\n")
	}
	return b.String()
}
