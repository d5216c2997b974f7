package eval

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/nameresolve"
	"github.com/takoeight0821/ember/token"
)

// DefaultMaxCallDepth bounds nested calls unless WithMaxCallDepth says otherwise.
const DefaultMaxCallDepth = 512

type (
	exprEvaluator func(in *Interpreter, expr ast.Expr) (Value, error)
	stmtExecutor  func(in *Interpreter, stmt ast.Stmt) (ControlFlow, error)
)

// Evaluators by node kind. Each file registers its own entries in init.
var (
	exprTable [ast.NumExprKinds]exprEvaluator
	stmtTable [ast.NumStmtKinds]stmtExecutor
)

// Interpreter evaluates resolved programs.
// It is not safe for concurrent use; the global frame persists across calls to Interpret.
type Interpreter struct {
	arena    *Arena
	env      Handle
	bindings *nameresolve.Bindings
	modules  Catalog
	results  map[string]bool
	out      io.Writer
	maxDepth int
	depth    int
	ctx      context.Context

	pinned    []Value
	collectAt int
}

type Option func(*Interpreter)

// WithOutput redirects print statements.
func WithOutput(w io.Writer) Option {
	return func(in *Interpreter) { in.out = w }
}

func WithMaxCallDepth(depth int) Option {
	return func(in *Interpreter) { in.maxDepth = depth }
}

// WithNativeModules makes modules available to `module` and `native fun` statements.
func WithNativeModules(modules ...*NativeModule) Option {
	return func(in *Interpreter) {
		for _, m := range modules {
			in.modules[m.Name()] = m
		}
	}
}

func NewInterpreter(opts ...Option) *Interpreter {
	in := &Interpreter{
		arena:     NewArena(),
		env:       Global,
		bindings:  nameresolve.NewBindings(),
		modules:   make(Catalog),
		results:   make(map[string]bool),
		out:       os.Stdout,
		maxDepth:  DefaultMaxCallDepth,
		depth:     0,
		ctx:       context.Background(),
		pinned:    nil,
		collectAt: minCollect,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Interpret runs program in the global frame.
// The result is the value of a top-level return, otherwise that of the last expression or
// test statement executed, otherwise null.
// Bindings accumulate across calls, so functions defined by an earlier program keep
// finding their locals.
// Frames nothing can reach any more are freed before Interpret returns; those of the
// returned value survive until the next call.
func (in *Interpreter) Interpret(ctx context.Context, program []ast.Stmt, bindings *nameresolve.Bindings) (Value, error) {
	in.ctx = ctx
	in.bindings.Merge(bindings)
	in.env = Global
	in.depth = 0
	in.unpin(0)

	v, err := in.run(program)
	base := in.pin(v)
	in.collect()
	in.unpin(base)
	return v, err
}

func (in *Interpreter) run(program []ast.Stmt) (Value, error) {
	var result Value
	for _, stmt := range program {
		flow, err := in.exec(stmt)
		if err != nil {
			return nil, err
		}
		switch flow.Kind {
		case FlowReturn:
			return flow.Value, nil
		case FlowNormal:
			if k := stmt.Kind(); k == ast.ExpressionStmt || k == ast.TestStmt {
				result = flow.Value
			}
		case FlowBreak, FlowContinue:
			log.Panicf("%s escaped to top level: %v", flow.Kind, stmt)
		}
	}
	return result, nil
}

// SetGlobal defines name in the global frame.
func (in *Interpreter) SetGlobal(name string, v Value) {
	in.arena.Define(Global, name, v)
}

func (in *Interpreter) Global(name string) (Value, bool) {
	return in.arena.GetAt(Global, 0, name)
}

// Globals lists the names defined in the global frame.
func (in *Interpreter) Globals() []string {
	return in.arena.Names(Global)
}

// Results reports the outcome of every test statement run so far.
func (in *Interpreter) Results() map[string]bool {
	results := make(map[string]bool, len(in.results))
	for name, ok := range in.results {
		results[name] = ok
	}
	return results
}

func (in *Interpreter) Arena() *Arena {
	return in.arena
}

func (in *Interpreter) Modules() Catalog {
	return in.modules
}

func (in *Interpreter) eval(expr ast.Expr) (Value, error) {
	return exprTable[expr.Kind()](in, expr)
}

func (in *Interpreter) exec(stmt ast.Stmt) (ControlFlow, error) {
	return stmtTable[stmt.Kind()](in, stmt)
}

func (in *Interpreter) execAll(stmts []ast.Stmt) (ControlFlow, error) {
	for _, stmt := range stmts {
		flow, err := in.exec(stmt)
		if err != nil || flow.Kind != FlowNormal {
			return flow, err
		}
	}
	return normal, nil
}

// executeIn runs stmts with h as the current frame. The caller owns h.
func (in *Interpreter) executeIn(stmts []ast.Stmt, h Handle) (ControlFlow, error) {
	prev := in.env
	in.env = h
	defer func() { in.env = prev }()

	return in.execAll(stmts)
}

func (in *Interpreter) interrupted(where ast.Node) error {
	if err := in.ctx.Err(); err != nil {
		rerr := runtimeErrorf(where, "execution canceled: %v", err)
		rerr.Err = err
		return rerr
	}
	return nil
}

func (in *Interpreter) call(where ast.Node, callee Value, args []Value) (Value, error) {
	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErrorf(where, "Can only call functions and classes, got %s", TypeName(callee))
	}
	if arity := fn.Arity(); arity >= 0 && arity != len(args) {
		return nil, runtimeErrorf(where, "Expected %d argument(s) but got %d", arity, len(args))
	}
	if err := in.interrupted(where); err != nil {
		return nil, err
	}
	if in.depth >= in.maxDepth {
		return nil, runtimeErrorf(where, "Maximum call depth %d exceeded", in.maxDepth)
	}

	in.maybeCollect()

	in.depth++
	defer func() { in.depth-- }()

	return fn.Call(in, where, args)
}

// lookup reads a variable through the depth recorded by the resolver, or from the
// global frame when there is none.
func (in *Interpreter) lookup(expr ast.Expr, name token.Token) (Value, error) {
	if depth, ok := in.bindings.Depth(expr); ok {
		if v, ok := in.arena.GetAt(in.env, depth, name.Lexeme); ok {
			return v, nil
		}
	} else if v, ok := in.arena.GetAt(Global, 0, name.Lexeme); ok {
		return v, nil
	}
	return nil, runtimeErrorf(expr, "Undefined variable '%s'", name.Lexeme)
}

// assign stores v in the variable name refers to at expr.
func (in *Interpreter) assign(expr ast.Expr, name token.Token, v Value) error {
	if depth, ok := in.bindings.Depth(expr); ok {
		if in.arena.AssignAt(in.env, depth, name.Lexeme, v) {
			return nil
		}
	} else if in.arena.AssignAt(Global, 0, name.Lexeme, v) {
		return nil
	}
	return runtimeErrorf(expr, "Undefined variable '%s'", name.Lexeme)
}

func (in *Interpreter) String() string {
	return fmt.Sprintf("env %d\n%s", in.env, in.arena)
}
