package eval

import (
	"testing"

	"github.com/takoeight0821/ember/ast"
)

func TestDispatchTablesComplete(t *testing.T) {
	t.Parallel()

	for k := range ast.NumExprKinds {
		if exprTable[k] == nil {
			t.Errorf("no evaluator for expression kind %d", k)
		}
	}
	for k := range ast.NumStmtKinds {
		if stmtTable[k] == nil {
			t.Errorf("no executor for statement kind %d", k)
		}
	}
}

func TestArenaRetainMarksAncestors(t *testing.T) {
	t.Parallel()

	a := NewArena()
	outer := a.Push(Global)
	inner := a.Push(outer)
	a.Retain(inner)
	a.Release(inner)
	a.Release(outer)

	if got := a.Live(); got != 3 {
		t.Errorf("Live() = %d, want 3", got)
	}

	scratch := a.Push(Global)
	a.Define(scratch, "x", Number(1))
	a.Release(scratch)
	if got := a.Live(); got != 3 {
		t.Errorf("Live() after release = %d, want 3", got)
	}
	if reused := a.Push(Global); reused != scratch {
		t.Errorf("Push() = %d, want reused handle %d", reused, scratch)
	} else if _, ok := a.GetAt(reused, 0, "x"); ok {
		t.Errorf("reused frame still holds x")
	}
}

func TestSweepFreesUnmarkedFrames(t *testing.T) {
	t.Parallel()

	a := NewArena()
	kept := a.Capture(Global)
	a.Capture(Global)
	scope := a.Push(Global)

	if freed := a.Sweep(func(h Handle) bool { return h == kept }); freed != 1 {
		t.Errorf("Sweep() = %d, want 1", freed)
	}
	if got := a.Live(); got != 3 {
		t.Errorf("Live() = %d, want 3", got)
	}
	a.Release(scope)
	if got := a.Live(); got != 2 {
		t.Errorf("Live() after release = %d, want 2", got)
	}
}

func TestCollectKeepsPinnedValues(t *testing.T) {
	t.Parallel()

	in := NewInterpreter()
	h := in.arena.Push(Global)
	in.arena.Define(h, "x", Number(1))
	in.arena.Retain(h)
	fn := &Function{Name: "f", Params: nil, Body: nil, closure: h, this: nil}
	in.arena.Release(h)

	base := in.pin(NewArray(fn))
	if freed := in.collect(); freed != 0 {
		t.Errorf("collect() with a pinned closure freed %d frames", freed)
	}
	in.unpin(base)
	if freed := in.collect(); freed != 1 {
		t.Errorf("collect() = %d, want 1", freed)
	}
}
