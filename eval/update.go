package eval

import (
	"strings"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

func init() {
	exprTable[ast.IncrementExpr] = evalIncrement
	exprTable[ast.CompoundAssignExpr] = evalCompoundAssign
}

// place is a variable, field or array element read and then written back by
// `++`, `--` and compound assignment.
type place struct {
	load  func() (Value, error)
	store func(Value) error
}

// place evaluates the object and index parts of target once. The values it
// evaluates stay pinned until the caller unpins.
func (in *Interpreter) place(target ast.Expr) (place, error) {
	switch t := target.(type) {
	case *ast.Variable:
		return place{
			load:  func() (Value, error) { return in.lookup(t, t.Name) },
			store: func(v Value) error { return in.assign(t, t.Name, v) },
		}, nil
	case *ast.Get:
		obj, err := in.eval(t.Object)
		if err != nil {
			return place{}, err
		}
		inst, ok := obj.(*Instance)
		if !ok {
			return place{}, runtimeErrorf(t, "Only instances have fields, got %s", TypeName(obj))
		}
		in.pin(inst)
		name := t.Name.Lexeme
		return place{
			load: func() (Value, error) {
				v, ok := inst.fields[name]
				if !ok {
					return nil, runtimeErrorf(t, "Undefined field '%s'", name)
				}
				return v, in.checkVisible(t, t.Object, inst, name)
			},
			store: func(v Value) error { return in.setField(t, t.Object, inst, name, v) },
		}, nil
	case *ast.Index:
		obj, err := in.eval(t.Object)
		if err != nil {
			return place{}, err
		}
		in.pin(obj)
		idx, err := in.eval(t.Index)
		if err != nil {
			return place{}, err
		}
		arr, i, err := element(t, obj, idx)
		if err != nil {
			return place{}, err
		}
		return place{
			load:  func() (Value, error) { return arr.Elements[i], nil },
			store: func(v Value) error { arr.Elements[i] = v; return nil },
		}, nil
	default:
		return place{}, runtimeErrorf(target, "Invalid assignment target")
	}
}

// evalIncrement adds or subtracts one. The prefix form yields the new value, the
// postfix form the old one.
func evalIncrement(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Increment)
	defer in.unpin(in.pin())
	p, err := in.place(e.Target)
	if err != nil {
		return nil, err
	}

	old, err := p.load()
	if err != nil {
		return nil, err
	}
	n, ok := old.(Number)
	if !ok {
		return nil, runtimeErrorf(e, "Operand of '%s' must be a number, got %s (%s)", e.Op.Lexeme, Stringify(old), TypeName(old))
	}
	updated := n + 1
	if e.Op.Kind == token.MINUSMINUS {
		updated = n - 1
	}
	if err := p.store(updated); err != nil {
		return nil, err
	}
	if e.Prefix {
		return updated, nil
	}
	return old, nil
}

// evalCompoundAssign applies the operator of `x op= v` to the current value of x and v,
// and stores the result.
func evalCompoundAssign(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.CompoundAssign)
	defer in.unpin(in.pin())
	p, err := in.place(e.Target)
	if err != nil {
		return nil, err
	}

	old, err := p.load()
	if err != nil {
		return nil, err
	}
	in.pin(old)
	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}

	kind, ok := token.CompoundOperators[e.Op.Kind]
	if !ok {
		return nil, runtimeErrorf(e, "Unsupported assignment operator '%s'", e.Op.Lexeme)
	}
	op := token.Token{Kind: kind, Lexeme: strings.TrimSuffix(e.Op.Lexeme, "="), Literal: nil, Line: e.Op.Line, Column: e.Op.Column}

	var result Value
	//exhaustive:ignore
	switch kind {
	case token.AMPERSAND, token.PIPE, token.CARET, token.SHIFTLEFT, token.SHIFTRIGHT, token.LOGICALSHIFTRIGHT:
		result, err = bitwiseOp(e, op, old, v)
	default:
		result, err = binaryOp(e, op, old, v)
	}
	if err != nil {
		return nil, err
	}
	if err := p.store(result); err != nil {
		return nil, err
	}
	return result, nil
}
