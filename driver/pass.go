package driver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/eval"
	"github.com/takoeight0821/ember/lexer"
	"github.com/takoeight0821/ember/nameresolve"
	"github.com/takoeight0821/ember/parser"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

// ScriptContext carries one script through the pipeline.
// Each pass reads the artifacts of the previous ones and fills in its own.
type ScriptContext struct {
	ID      uuid.UUID
	Context context.Context
	Source  string

	Tokens     []token.Token
	Statements []ast.Stmt
	Bindings   *nameresolve.Bindings

	// Modules are the native modules available to the script.
	Modules eval.Catalog
	// Globals are names the resolver accepts without a declaration, mapped to whether they are final.
	Globals     map[string]bool
	Interpreter *eval.Interpreter
	Result      eval.Value
}

func newScriptContext(ctx context.Context, source string) *ScriptContext {
	return &ScriptContext{
		ID:          uuid.New(),
		Context:     ctx,
		Source:      source,
		Tokens:      nil,
		Statements:  nil,
		Bindings:    nil,
		Modules:     nil,
		Globals:     make(map[string]bool),
		Interpreter: nil,
		Result:      nil,
	}
}

// Results reports the outcome of the test statements the script ran.
func (sc *ScriptContext) Results() map[string]bool {
	if sc.Interpreter == nil {
		return nil
	}
	return sc.Interpreter.Results()
}

// Pass is one step of the pipeline.
type Pass interface {
	Phase() utils.Phase
	Run(sc *ScriptContext) error
}

type lexPass struct{}

func (lexPass) Phase() utils.Phase { return utils.Lexing }

func (lexPass) Run(sc *ScriptContext) error {
	tokens, err := lexer.Lex(sc.Source)
	if err != nil {
		return err
	}
	sc.Tokens = tokens
	return nil
}

type parsePass struct{}

func (parsePass) Phase() utils.Phase { return utils.Parsing }

func (parsePass) Run(sc *ScriptContext) error {
	stmts, err := parser.NewParser(sc.Tokens).Parse()
	if err != nil {
		return err
	}
	sc.Statements = stmts
	return nil
}

type resolvePass struct {
	topLevelReturn bool
}

func (resolvePass) Phase() utils.Phase { return utils.Resolving }

func (p resolvePass) Run(sc *ScriptContext) error {
	opts := []nameresolve.Option{
		nameresolve.WithTopLevelReturn(p.topLevelReturn),
		nameresolve.WithModules(sc.Modules),
	}
	for name, final := range sc.Globals {
		opts = append(opts, nameresolve.WithGlobal(name, final))
	}

	r := nameresolve.NewResolver(opts...)
	bindings, err := r.Resolve(sc.Statements)
	if err != nil {
		return err
	}
	sc.Bindings = bindings
	sc.Globals = r.Globals()
	return nil
}

type interpretPass struct {
	newInterpreter func() *eval.Interpreter
}

func (interpretPass) Phase() utils.Phase { return utils.Interpreting }

func (p interpretPass) Run(sc *ScriptContext) error {
	if sc.Interpreter == nil {
		sc.Interpreter = p.newInterpreter()
	}
	v, err := sc.Interpreter.Interpret(sc.Context, sc.Statements, sc.Bindings)
	if err != nil {
		return err
	}
	sc.Result = v
	return nil
}

// PassFunc adapts a function to a host-defined pass.
type PassFunc struct {
	Name utils.Phase
	Func func(sc *ScriptContext) error
}

func (p PassFunc) Phase() utils.Phase { return p.Name }

func (p PassFunc) Run(sc *ScriptContext) error {
	if p.Func == nil {
		return fmt.Errorf("pass %s has no function", p.Name)
	}
	return p.Func(sc)
}

var (
	_ Pass = lexPass{}
	_ Pass = parsePass{}
	_ Pass = resolvePass{}
	_ Pass = interpretPass{}
	_ Pass = PassFunc{}
)
