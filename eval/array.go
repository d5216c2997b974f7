package eval

import (
	"strings"

	"github.com/takoeight0821/ember/ast"
)

// maxRange bounds the length of an array built by `a..b`.
const maxRange = 1 << 24

func init() {
	exprTable[ast.ArrayExpr] = evalArray
	exprTable[ast.IndexExpr] = evalIndex
	exprTable[ast.IndexSetExpr] = evalIndexSet
	exprTable[ast.RangeExpr] = evalRange
	exprTable[ast.ComprehensionExpr] = evalComprehension
	stmtTable[ast.ForEachStmt] = execForEach
}

// Array is a fixed-length sequence of values. Arrays are shared by reference.
type Array struct {
	Elements []Value
}

func NewArray(elems ...Value) *Array {
	return &Array{Elements: elems}
}

func (a *Array) String() string {
	var b strings.Builder
	a.format(&b, make(map[*Array]bool))
	return b.String()
}

func (a *Array) format(b *strings.Builder, open map[*Array]bool) {
	if open[a] {
		b.WriteString("[...]")
		return
	}
	open[a] = true
	defer delete(open, a)

	b.WriteByte('[')
	for i, v := range a.Elements {
		if i > 0 {
			b.WriteString(", ")
		}
		if inner, ok := v.(*Array); ok {
			inner.format(b, open)
		} else {
			b.WriteString(Stringify(v))
		}
	}
	b.WriteByte(']')
}

func (*Array) TypeName() string { return "array" }

func (a *Array) Len() int {
	return len(a.Elements)
}

var _ Value = &Array{}

func evalArray(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Array)
	defer in.unpin(in.pin())

	elems := make([]Value, 0, len(e.Elements))
	for _, elem := range e.Elements {
		v, err := in.eval(elem)
		if err != nil {
			return nil, err
		}
		in.pin(v)
		elems = append(elems, v)
	}
	return NewArray(elems...), nil
}

// element checks that obj is an array and idx one of its indexes.
func element(where ast.Node, obj, idx Value) (*Array, int, error) {
	arr, ok := obj.(*Array)
	if !ok {
		return nil, 0, runtimeErrorf(where, "Only arrays can be indexed, got %s", TypeName(obj))
	}
	n, ok := idx.(Number)
	if !ok {
		return nil, 0, runtimeErrorf(where, "Array index must be a number, got %s (%s)", Stringify(idx), TypeName(idx))
	}
	i := int(toInt32(n))
	if i < 0 || i >= len(arr.Elements) {
		return nil, 0, runtimeErrorf(where, "Array index %d out of bounds for length %d", i, len(arr.Elements))
	}
	return arr, i, nil
}

func evalIndex(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Index)
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	defer in.unpin(in.pin(obj))
	idx, err := in.eval(e.Index)
	if err != nil {
		return nil, err
	}

	arr, i, err := element(e, obj, idx)
	if err != nil {
		return nil, err
	}
	return arr.Elements[i], nil
}

func evalIndexSet(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.IndexSet)
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	defer in.unpin(in.pin(obj))
	idx, err := in.eval(e.Index)
	if err != nil {
		return nil, err
	}
	arr, i, err := element(e, obj, idx)
	if err != nil {
		return nil, err
	}

	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}
	arr.Elements[i] = v
	return v, nil
}

// evalRange builds the array of integers from left to right inclusive.
// The array is empty when right is below left.
func evalRange(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Range)
	left, err := in.eval(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErrorf(e, "Operands of '..' must be numbers, got %s (%s) and %s (%s)",
			Stringify(left), TypeName(left), Stringify(right), TypeName(right))
	}

	lo, hi := int64(toInt32(ln)), int64(toInt32(rn))
	n := max(hi-lo+1, 0)
	if n > maxRange {
		return nil, runtimeErrorf(e, "Range %d..%d is too long", lo, hi)
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = Number(lo + int64(i))
	}
	return NewArray(elems...), nil
}

// iterable returns the elements a foreach loop or comprehension walks over.
// The slice is copied so the body may store into the array.
func iterable(where ast.Node, v Value) ([]Value, error) {
	arr, ok := v.(*Array)
	if !ok {
		return nil, runtimeErrorf(where, "Only arrays can be iterated, got %s", TypeName(v))
	}
	elems := make([]Value, len(arr.Elements))
	copy(elems, arr.Elements)
	return elems, nil
}

// evalComprehension evaluates the element once per item of the collection, each in a
// fresh frame holding the selector. Items failing the condition contribute the else
// value, or nothing when there is none.
func evalComprehension(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Comprehension)
	coll, err := in.eval(e.Collection)
	if err != nil {
		return nil, err
	}
	defer in.unpin(in.pin(coll))
	items, err := iterable(e.Collection, coll)
	if err != nil {
		return nil, err
	}
	in.pin(items...)

	result := NewArray()
	in.pin(result)
	for _, item := range items {
		if err := in.interrupted(e); err != nil {
			return nil, err
		}
		in.maybeCollect()

		v, keep, err := in.comprehend(e, item)
		if err != nil {
			return nil, err
		}
		if keep {
			result.Elements = append(result.Elements, v)
		}
	}
	return result, nil
}

func (in *Interpreter) comprehend(e *ast.Comprehension, item Value) (Value, bool, error) {
	h := in.arena.Push(in.env)
	defer in.arena.Release(h)
	in.arena.Define(h, e.Selector.Lexeme, item)

	prev := in.env
	in.env = h
	defer func() { in.env = prev }()

	if e.Condition != nil {
		ok, err := in.truthy(e.Condition)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			if e.Else == nil {
				return nil, false, nil
			}
			v, err := in.eval(e.Else)
			return v, err == nil, err
		}
	}
	v, err := in.eval(e.Element)
	return v, err == nil, err
}

// execForEach runs the body once per element, binding the selector in a fresh frame
// each time so closures capture that element.
func execForEach(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.ForEach)
	coll, err := in.eval(s.Collection)
	if err != nil {
		return normal, err
	}
	defer in.unpin(in.pin(coll))
	items, err := iterable(s.Collection, coll)
	if err != nil {
		return normal, err
	}
	in.pin(items...)

	for _, item := range items {
		next, flow, err := in.iterateWith(s, item)
		if !next {
			return flow, err
		}
	}
	return normal, nil
}

func (in *Interpreter) iterateWith(s *ast.ForEach, item Value) (bool, ControlFlow, error) {
	h := in.arena.Push(in.env)
	defer in.arena.Release(h)
	in.arena.Define(h, s.Selector.Lexeme, item)

	prev := in.env
	in.env = h
	defer func() { in.env = prev }()

	return in.iterate(s.Body)
}
