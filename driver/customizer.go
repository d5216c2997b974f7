package driver

import (
	"fmt"
	"slices"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/utils"
)

// Customizer rewrites the ScriptContext before the passes of its phase run.
type Customizer interface {
	Phase() utils.Phase
	Customize(sc *ScriptContext) error
}

// CustomizerFunc adapts a function to a Customizer.
type CustomizerFunc struct {
	On   utils.Phase
	Func func(sc *ScriptContext) error
}

func (c CustomizerFunc) Phase() utils.Phase { return c.On }

func (c CustomizerFunc) Customize(sc *ScriptContext) error {
	return c.Func(sc)
}

// ValidationTest names the test statement ExpressionCustomizer wraps an expression in.
const ValidationTest = "$__validation__$"

// ExpressionCustomizer turns a script made of a single expression into a validation test
// returning that expression. Every registered native module is imported first, so the
// expression may call their functions without declaring them.
type ExpressionCustomizer struct{}

func (ExpressionCustomizer) Phase() utils.Phase { return utils.Resolving }

func (ExpressionCustomizer) Customize(sc *ScriptContext) error {
	if len(sc.Statements) != 1 {
		return fmt.Errorf("expected a single expression, got %d statements", len(sc.Statements))
	}
	stmt, ok := sc.Statements[0].(*ast.Expression)
	if !ok {
		return fmt.Errorf("expected a single expression, got %v", sc.Statements[0])
	}

	var b ast.Builder
	names := make([]string, 0, len(sc.Modules))
	for name := range sc.Modules {
		names = append(names, name)
	}
	slices.Sort(names)

	stmts := make([]ast.Stmt, 0, len(names)+1)
	for _, name := range names {
		stmts = append(stmts, b.Module(name))
	}
	stmts = append(stmts, b.Test(ValidationTest, []ast.Stmt{b.Return(stmt.Expr)}))
	sc.Statements = stmts
	return nil
}

var (
	_ Customizer = CustomizerFunc{}
	_ Customizer = ExpressionCustomizer{}
)
