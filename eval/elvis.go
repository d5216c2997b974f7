package eval

import "github.com/takoeight0821/ember/ast"

func init() {
	exprTable[ast.ElvisExpr] = evalElvis
}

// evalElvis yields the condition when it is truthy and only then skips the right side.
func evalElvis(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Elvis)
	cond, err := in.eval(e.Condition)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return cond, nil
	}
	return in.eval(e.Right)
}
