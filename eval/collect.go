package eval

// minCollect is the live frame count below which no collection runs.
const minCollect = 256

// pin keeps vs reachable during a collection until unpin(base) is called.
// Evaluators pin intermediate values that live only in Go variables while
// further script code runs.
func (in *Interpreter) pin(vs ...Value) (base int) {
	base = len(in.pinned)
	in.pinned = append(in.pinned, vs...)
	return base
}

func (in *Interpreter) unpin(base int) {
	clear(in.pinned[base:])
	in.pinned = in.pinned[:base]
}

// maybeCollect runs a collection once the arena has doubled since the last one.
func (in *Interpreter) maybeCollect() {
	if in.arena.Live() < in.collectAt {
		return
	}
	in.collect()
	in.collectAt = max(2*in.arena.Live(), minCollect)
}

// collect frees the retained frames that neither a running scope nor a pinned
// value can reach, and reports how many it freed.
func (in *Interpreter) collect() int {
	m := &marker{arena: in.arena, frames: make([]bool, in.arena.Allocated()), seen: make(map[any]struct{})}
	in.arena.Roots(m.frame)
	for _, v := range in.pinned {
		m.value(v)
	}
	return in.arena.Sweep(func(h Handle) bool { return m.frames[h] })
}

type marker struct {
	arena  *Arena
	frames []bool
	seen   map[any]struct{}
}

// frame marks h, its ancestors and everything their values refer to.
func (m *marker) frame(h Handle) {
	for ; h != NoFrame && !m.frames[h]; h = m.arena.Parent(h) {
		m.frames[h] = true
		m.arena.Values(h, m.value)
	}
}

func (m *marker) value(v Value) {
	switch v := v.(type) {
	case *Function:
		if !m.first(v) {
			return
		}
		m.frame(v.closure)
		if v.this != nil {
			m.value(v.this)
		}
	case *Class:
		if !m.first(v) {
			return
		}
		m.frame(v.closure)
		if v.Superclass != nil {
			m.value(v.Superclass)
		}
		if v.Constructor != nil {
			m.value(v.Constructor)
		}
		for _, method := range v.Methods {
			m.value(method)
		}
	case *Instance:
		if !m.first(v) {
			return
		}
		m.value(v.class)
		for _, field := range v.fields {
			m.value(field)
		}
	case *Array:
		if !m.first(v) {
			return
		}
		for _, elem := range v.Elements {
			m.value(elem)
		}
	}
}

// first reports whether v is seen for the first time.
func (m *marker) first(v Value) bool {
	if _, ok := m.seen[v]; ok {
		return false
	}
	m.seen[v] = struct{}{}
	return true
}
