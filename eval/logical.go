package eval

import (
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

func init() {
	exprTable[ast.LogicalExpr] = evalLogical
}

func evalLogical(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Logical)
	left, err := in.eval(e.Left)
	if err != nil {
		return nil, err
	}

	//exhaustive:ignore
	switch e.Op.Kind {
	case token.OR:
		if Truthy(left) {
			return Bool(true), nil
		}
	case token.AND:
		if !Truthy(left) {
			return Bool(false), nil
		}
	default:
		return nil, runtimeErrorf(e, "Unsupported logical operator '%s'", e.Op.Lexeme)
	}

	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}
	return Bool(Truthy(right)), nil
}
