package ast

import (
	"log"

	"github.com/takoeight0821/ember/token"
)

// Builder constructs nodes that do not come from source text.
// Customizers use it to rewrite programs between phases.
type Builder struct{}

func (b Builder) Variable(name string) *Variable {
	return &Variable{Name: token.Synthetic(token.IDENT, name, nil)}
}

func (b Builder) Literal(value any) *Literal {
	//exhaustive:ignore
	switch v := value.(type) {
	case nil:
		return &Literal{Token: token.Synthetic(token.NULL, "null", nil)}
	case bool:
		if v {
			return &Literal{Token: token.Synthetic(token.TRUE, "true", nil), Value: true}
		}
		return &Literal{Token: token.Synthetic(token.FALSE, "false", nil), Value: false}
	case float64:
		return &Literal{Token: token.Synthetic(token.NUMBER, "", v), Value: v}
	case string:
		return &Literal{Token: token.Synthetic(token.STRING, "", v), Value: v}
	default:
		log.Panicf("invalid literal %v", value)
		return nil
	}
}

func (b Builder) Call(callee Expr, args ...Expr) *Call {
	return &Call{Callee: callee, Paren: token.Synthetic(token.RIGHTPAREN, ")", nil), Args: args}
}

func (b Builder) Return(value Expr) *Return {
	return &Return{Keyword: token.Synthetic(token.RETURN, "return", nil), Value: value}
}

func (b Builder) Module(name string) *Module {
	return &Module{Name: token.Synthetic(token.IDENT, name, nil)}
}

// Test wraps body into a test statement. A trailing *Return in body becomes the test's return.
func (b Builder) Test(name string, body []Stmt) *Test {
	t := &Test{Name: token.Synthetic(token.STRING, name, name)}
	if n := len(body); n > 0 {
		if ret, ok := body[n-1].(*Return); ok {
			t.Return = ret
			body = body[:n-1]
		}
	}
	t.Body = body
	return t
}
