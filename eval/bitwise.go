package eval

import (
	"math"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

func init() {
	exprTable[ast.BitwiseExpr] = evalBitwise
}

// toInt32 truncates toward zero and saturates at the int32 bounds. NaN is zero.
func toInt32(n Number) int32 {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	default:
		return int32(f)
	}
}

func evalBitwise(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Bitwise)
	left, err := in.eval(e.Left)
	if err != nil {
		return nil, err
	}
	defer in.unpin(in.pin(left))
	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}
	return bitwiseOp(e, e.Op, left, right)
}

// bitwiseOp applies a bitwise or shift operator to the 32-bit integer values of its operands.
func bitwiseOp(where ast.Node, op token.Token, left, right Value) (Value, error) {
	ln, lok := left.(Number)
	rn, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErrorf(where, "Operands of '%s' must be numbers, got %s (%s) and %s (%s)",
			op.Lexeme, Stringify(left), TypeName(left), Stringify(right), TypeName(right))
	}
	l, r := toInt32(ln), toInt32(rn)
	shift := uint32(r) & 31

	//exhaustive:ignore
	switch op.Kind {
	case token.AMPERSAND:
		return Number(l & r), nil
	case token.PIPE:
		return Number(l | r), nil
	case token.CARET:
		return Number(l ^ r), nil
	case token.SHIFTLEFT:
		return Number(l << shift), nil
	case token.SHIFTRIGHT:
		return Number(l >> shift), nil
	case token.LOGICALSHIFTRIGHT:
		return Number(uint32(l) >> shift), nil
	default:
		return nil, runtimeErrorf(where, "Unsupported bitwise operator '%s'", op.Lexeme)
	}
}

func bitNot(where *ast.Unary, v Value) (Value, error) {
	n, ok := v.(Number)
	if !ok {
		return nil, runtimeErrorf(where, "Operand of '~' must be a number, got %s (%s)", Stringify(v), TypeName(v))
	}
	return Number(^toInt32(n)), nil
}
