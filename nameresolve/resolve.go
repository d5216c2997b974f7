package nameresolve

import (
	"errors"
	"fmt"
	"log"
	"maps"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

// ModuleCatalog reports the functions a registered native module exports.
type ModuleCatalog interface {
	ModuleFunctions(module string) ([]string, bool)
}

// Bindings records, for every local Variable, Assign, This and Super node,
// how many frames the interpreter walks outward to find the binding.
// Nodes without an entry are globals.
type Bindings struct {
	depths map[ast.Expr]int
}

func NewBindings() *Bindings {
	return &Bindings{depths: make(map[ast.Expr]int)}
}

func (b *Bindings) Depth(expr ast.Expr) (int, bool) {
	if b == nil {
		return 0, false
	}
	d, ok := b.depths[expr]
	return d, ok
}

func (b *Bindings) Len() int {
	return len(b.depths)
}

// Merge copies the depths recorded in other into b.
func (b *Bindings) Merge(other *Bindings) {
	if other == nil {
		return
	}
	maps.Copy(b.depths, other.depths)
}

func (b *Bindings) record(expr ast.Expr, depth int) {
	b.depths[expr] = depth
}

type functionType int

const (
	fnNone functionType = iota
	fnFunction
	fnMethod
	fnInitializer
	fnTest
)

type classType int

const (
	classNone classType = iota
	classPlain
	classSub
)

type Resolver struct {
	env      *env
	globals  map[string]bool // name -> final
	declared map[string]bool // top-level names declared by this unit
	bindings *Bindings

	fn       functionType
	cls      classType
	loops    int
	switches int

	topLevelReturn bool
	modules        ModuleCatalog
	err            error
}

type Option func(*Resolver)

// WithTopLevelReturn controls whether `return` may appear outside any function.
// It is allowed by default: a script body behaves as an implicit function.
func WithTopLevelReturn(allow bool) Option {
	return func(r *Resolver) { r.topLevelReturn = allow }
}

// WithGlobal makes a host-provided or previously defined global known to the resolver.
func WithGlobal(name string, final bool) Option {
	return func(r *Resolver) { r.globals[name] = final }
}

func WithModules(catalog ModuleCatalog) Option {
	return func(r *Resolver) { r.modules = catalog }
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		env:            nil,
		globals:        make(map[string]bool),
		declared:       make(map[string]bool),
		bindings:       NewBindings(),
		fn:             fnNone,
		cls:            classNone,
		topLevelReturn: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type env struct {
	parent *env
	table  map[string]*entry
}

type entry struct {
	defined bool
	final   bool
}

func newEnv(parent *env) *env {
	return &env{
		parent: parent,
		table:  make(map[string]*entry),
	}
}

// Error is a static error found before execution.
type Error struct {
	Where   token.Token
	Node    ast.Node
	Message string
}

func (e *Error) Error() string {
	return e.Diagnostic().Error()
}

func (e *Error) Diagnostic() utils.Diagnostic {
	return utils.DiagnosticAt(utils.Resolving, e.Where, e.Node, e.Message)
}

func (r *Resolver) errorf(where token.Token, node ast.Node, format string, args ...any) {
	r.err = errors.Join(r.err, &Error{Where: where, Node: node, Message: fmt.Sprintf(format, args...)})
}

// Resolve runs Init and Run.
func (r *Resolver) Resolve(program []ast.Stmt) (*Bindings, error) {
	if err := r.Init(program); err != nil {
		return nil, err
	}
	return r.Run(program)
}

// Init registers top-level declarations so that they may be referenced before they appear.
func (r *Resolver) Init(program []ast.Stmt) error {
	r.err = nil
	for _, stmt := range program {
		r.registerTopLevel(stmt)
	}
	return r.err
}

// Run resolves every name in program.
func (r *Resolver) Run(program []ast.Stmt) (*Bindings, error) {
	for _, stmt := range program {
		r.stmt(stmt)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.bindings, nil
}

// Globals returns every global the resolved unit may define, mapped to whether it is final.
func (r *Resolver) Globals() map[string]bool {
	globals := make(map[string]bool, len(r.globals))
	for name, final := range r.globals {
		globals[name] = final
	}
	return globals
}

func (r *Resolver) declareGlobal(name token.Token, node ast.Node, final bool) {
	if r.declared[name.Lexeme] {
		r.errorf(name, node, "'%s' is already declared in this scope", name.Lexeme)
		return
	}
	r.declared[name.Lexeme] = true
	r.globals[name.Lexeme] = final
}

func (r *Resolver) registerTopLevel(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Var:
		r.declareGlobal(s.Name, s, s.Final)
	case *ast.FunDecl:
		r.declareGlobal(s.Name, s, false)
	case *ast.Class:
		r.declareGlobal(s.Name, s, false)
	case *ast.Native:
		r.declareGlobal(s.Name, s, false)
	case *ast.Module:
		for _, fn := range r.moduleFunctions(s) {
			if _, ok := r.globals[fn]; !ok {
				r.globals[fn] = false
			}
		}
	}
}

func (r *Resolver) moduleFunctions(m *ast.Module) []string {
	if r.modules == nil {
		return nil
	}
	fns, _ := r.modules.ModuleFunctions(m.Name.Lexeme)
	return fns
}

func (r *Resolver) beginScope() {
	r.env = newEnv(r.env)
}

func (r *Resolver) endScope() {
	r.env = r.env.parent
}

// declare adds name to the innermost scope without making it readable yet.
// At top level the name was already registered by Init.
func (r *Resolver) declare(name token.Token, node ast.Node, final bool) {
	if r.env == nil {
		return
	}
	if _, ok := r.env.table[name.Lexeme]; ok {
		r.errorf(name, node, "'%s' is already declared in this scope", name.Lexeme)
	}
	r.env.table[name.Lexeme] = &entry{defined: false, final: final}
}

func (r *Resolver) define(name token.Token) {
	if r.env == nil {
		return
	}
	r.env.table[name.Lexeme].defined = true
}

// defineSynthetic declares an implicit binding such as `this` or `super`.
func (r *Resolver) defineSynthetic(name string) {
	r.env.table[name] = &entry{defined: true, final: true}
}

// lookup finds the innermost local binding of name.
func (r *Resolver) lookup(name string) (*entry, int, bool) {
	depth := 0
	for e := r.env; e != nil; e = e.parent {
		if ent, ok := e.table[name]; ok {
			return ent, depth, true
		}
		depth++
	}
	return nil, 0, false
}

func (r *Resolver) resolveLocal(expr ast.Expr, name token.Token) (*entry, bool) {
	ent, depth, ok := r.lookup(name.Lexeme)
	if ok {
		r.bindings.record(expr, depth)
		return ent, true
	}
	if _, ok := r.globals[name.Lexeme]; !ok {
		r.errorf(name, expr, "undefined variable '%s'", name.Lexeme)
	}
	return nil, false
}

func (r *Resolver) stmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.stmt(stmt)
	}
}

func (r *Resolver) stmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Expression:
		r.expr(s.Expr)
	case *ast.Print:
		r.expr(s.Expr)
	case *ast.Var:
		r.declare(s.Name, s, s.Final)
		if s.Init != nil {
			r.expr(s.Init)
		}
		r.define(s.Name)
	case *ast.Block:
		r.beginScope()
		r.stmts(s.Statements)
		r.endScope()
	case *ast.If:
		r.expr(s.Condition)
		r.stmt(s.Then)
		if s.Else != nil {
			r.stmt(s.Else)
		}
	case *ast.While:
		r.expr(s.Condition)
		r.loop(s.Body)
	case *ast.DoWhile:
		r.loop(s.Body)
		r.expr(s.Condition)
	case *ast.For:
		r.beginScope()
		r.stmt(s.Init)
		r.expr(s.Condition)
		r.expr(s.Increment)
		r.loop(s.Body)
		r.endScope()
	case *ast.Repeat:
		r.expr(s.Count)
		r.loop(s.Body)
	case *ast.ForEach:
		r.expr(s.Collection)
		r.beginScope()
		r.declare(s.Selector, s, false)
		r.define(s.Selector)
		r.loop(s.Body)
		r.endScope()
	case *ast.Switch:
		r.expr(s.Value)
		r.switches++
		for _, c := range s.Cases {
			r.caseBody(c)
		}
		if s.Default != nil {
			r.caseBody(s.Default)
		}
		r.switches--
	case *ast.Break:
		if r.loops == 0 && r.switches == 0 {
			r.errorf(s.Keyword, s, "'break' outside of a loop or switch")
		}
	case *ast.Continue:
		if r.loops == 0 {
			r.errorf(s.Keyword, s, "'continue' outside of a loop")
		}
	case *ast.FunDecl:
		r.declare(s.Name, s, false)
		r.define(s.Name)
		r.resolveFunction(s.Params, s.Body, fnFunction)
	case *ast.Class:
		r.classDecl(s)
	case *ast.Extension:
		r.extension(s)
	case *ast.Return:
		if r.fn == fnNone && !r.topLevelReturn {
			r.errorf(s.Keyword, s, "can't return from top-level code")
		}
		if s.Value != nil {
			r.expr(s.Value)
		}
	case *ast.Module:
		if r.modules == nil {
			r.errorf(s.Name, s, "module '%s' is not registered", s.Name.Lexeme)
			return
		}
		fns, ok := r.modules.ModuleFunctions(s.Name.Lexeme)
		if !ok {
			r.errorf(s.Name, s, "module '%s' is not registered", s.Name.Lexeme)
			return
		}
		if r.env != nil {
			for _, fn := range fns {
				r.env.table[fn] = &entry{defined: true, final: false}
			}
		}
	case *ast.Native:
		r.declare(s.Name, s, false)
		r.define(s.Name)
	case *ast.Test:
		// a test body is not part of an enclosing loop or switch
		enclosing, loops, switches := r.fn, r.loops, r.switches
		r.fn, r.loops, r.switches = fnTest, 0, 0
		r.beginScope()
		r.stmts(s.Body)
		if s.Return != nil {
			r.stmt(s.Return)
		}
		r.endScope()
		r.fn, r.loops, r.switches = enclosing, loops, switches
	case *ast.Field:
		log.Panicf("field outside of a class: %v", s)
	default:
		log.Panicf("unexpected statement: %v", s)
	}
}

// caseBody resolves one switch arm in its own scope.
func (r *Resolver) caseBody(c *ast.Case) {
	r.beginScope()
	r.stmts(c.Body)
	r.endScope()
}

func (r *Resolver) loop(body *ast.Block) {
	r.loops++
	r.stmt(body)
	r.loops--
}

// resolveFunction resolves params and body in one scope, matching the single call frame.
func (r *Resolver) resolveFunction(params []token.Token, body []ast.Stmt, kind functionType) {
	enclosingFunction, enclosingLoops, enclosingSwitches := r.fn, r.loops, r.switches
	r.fn, r.loops, r.switches = kind, 0, 0

	r.beginScope()
	for _, param := range params {
		r.declare(param, nil, false)
		r.define(param)
	}
	r.stmts(body)
	r.endScope()

	r.fn, r.loops, r.switches = enclosingFunction, enclosingLoops, enclosingSwitches
}

func (r *Resolver) classDecl(c *ast.Class) {
	enclosing := r.cls
	r.cls = classPlain

	r.declare(c.Name, c, false)
	r.define(c.Name)

	if c.Superclass != nil {
		if c.Superclass.Name.Lexeme == c.Name.Lexeme {
			r.errorf(c.Superclass.Name, c.Superclass, "a class can't extend itself")
		} else {
			r.expr(c.Superclass)
		}
		r.cls = classSub
		r.beginScope()
		r.defineSynthetic("super")
	}

	// the frame a bound method or a field initializer runs in
	r.beginScope()
	r.defineSynthetic("this")

	seen := make(map[string]bool)
	for _, field := range c.Fields {
		if seen[field.Name.Lexeme] {
			r.errorf(field.Name, field, "'%s' is already declared in class %s", field.Name.Lexeme, c.Name.Lexeme)
		}
		seen[field.Name.Lexeme] = true
		if field.Init != nil {
			enclosingFunction := r.fn
			r.fn = fnMethod
			r.expr(field.Init)
			r.fn = enclosingFunction
		}
	}
	if c.Constructor != nil {
		r.resolveFunction(c.Constructor.Params, c.Constructor.Body, fnInitializer)
	}
	for _, m := range c.Methods {
		if seen[m.Name.Lexeme] {
			r.errorf(m.Name, m, "'%s' is already declared in class %s", m.Name.Lexeme, c.Name.Lexeme)
		}
		seen[m.Name.Lexeme] = true
		r.resolveFunction(m.Params, m.Body, fnMethod)
	}

	r.endScope()
	if c.Superclass != nil {
		r.endScope()
	}

	r.cls = enclosing
}

// extension resolves a method added to a class outside its declaration.
// The method sees the scope it is written in, with `this` bound; `super` is not available.
func (r *Resolver) extension(e *ast.Extension) {
	r.expr(e.Class)

	enclosing := r.cls
	r.cls = classPlain
	r.beginScope()
	r.defineSynthetic("this")
	r.resolveFunction(e.Method.Params, e.Method.Body, fnMethod)
	r.endScope()
	r.cls = enclosing
}

// checkAssignable reports an assignment to a final variable.
func (r *Resolver) checkAssignable(name token.Token, node ast.Node) {
	if ent, _, ok := r.lookup(name.Lexeme); ok {
		if ent.final {
			r.errorf(name, node, "can't assign to final variable '%s'", name.Lexeme)
		}
	} else if r.globals[name.Lexeme] {
		r.errorf(name, node, "can't assign to final variable '%s'", name.Lexeme)
	}
}

// target resolves the operand of ++, -- or a compound assignment.
func (r *Resolver) target(target ast.Expr, node ast.Node) {
	r.expr(target)
	if v, ok := target.(*ast.Variable); ok {
		r.checkAssignable(v.Name, node)
	}
}

func (r *Resolver) expr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Literal:
	case *ast.Variable:
		if ent, _, ok := r.lookup(e.Name.Lexeme); ok && !ent.defined {
			r.errorf(e.Name, e, "can't read local variable '%s' in its own initializer", e.Name.Lexeme)
		}
		r.resolveLocal(e, e.Name)
	case *ast.This:
		if r.cls == classNone {
			r.errorf(e.Keyword, e, "can't use 'this' outside of a class")
			return
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Super:
		switch r.cls {
		case classNone:
			r.errorf(e.Keyword, e, "can't use 'super' outside of a class")
			return
		case classPlain:
			r.errorf(e.Keyword, e, "can't use 'super' in a class with no superclass")
			return
		case classSub:
		}
		r.resolveLocal(e, e.Keyword)
	case *ast.Unary:
		r.expr(e.Right)
	case *ast.Binary:
		r.expr(e.Left)
		r.expr(e.Right)
	case *ast.Bitwise:
		r.expr(e.Left)
		r.expr(e.Right)
	case *ast.Logical:
		r.expr(e.Left)
		r.expr(e.Right)
	case *ast.Elvis:
		r.expr(e.Condition)
		r.expr(e.Right)
	case *ast.Ternary:
		r.expr(e.Condition)
		r.expr(e.Then)
		r.expr(e.Else)
	case *ast.Assign:
		r.expr(e.Value)
		r.resolveLocal(e, e.Name)
		r.checkAssignable(e.Name, e)
	case *ast.CompoundAssign:
		r.expr(e.Value)
		r.target(e.Target, e)
	case *ast.Increment:
		r.target(e.Target, e)
	case *ast.Call:
		r.expr(e.Callee)
		for _, arg := range e.Args {
			r.expr(arg)
		}
	case *ast.Get:
		r.expr(e.Object)
	case *ast.Set:
		r.expr(e.Value)
		r.expr(e.Object)
	case *ast.Grouping:
		r.expr(e.Expr)
	case *ast.Function:
		r.resolveFunction(e.Params, e.Body, fnFunction)
	case *ast.Array:
		for _, elem := range e.Elements {
			r.expr(elem)
		}
	case *ast.Index:
		r.expr(e.Object)
		r.expr(e.Index)
	case *ast.IndexSet:
		r.expr(e.Object)
		r.expr(e.Index)
		r.expr(e.Value)
	case *ast.Range:
		r.expr(e.Left)
		r.expr(e.Right)
	case *ast.Comprehension:
		r.expr(e.Collection)
		r.beginScope()
		r.declare(e.Selector, e, false)
		r.define(e.Selector)
		r.expr(e.Element)
		if e.Condition != nil {
			r.expr(e.Condition)
		}
		if e.Else != nil {
			r.expr(e.Else)
		}
		r.endScope()
	default:
		log.Panicf("unexpected expression: %v", e)
	}
}
