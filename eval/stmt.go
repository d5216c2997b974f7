package eval

import (
	"fmt"
	"slices"

	"github.com/takoeight0821/ember/ast"
)

func init() {
	stmtTable[ast.ExpressionStmt] = execExpression
	stmtTable[ast.PrintStmt] = execPrint
	stmtTable[ast.VarStmt] = execVar
	stmtTable[ast.FieldStmt] = execField
	stmtTable[ast.BlockStmt] = execBlock
	stmtTable[ast.IfStmt] = execIf
	stmtTable[ast.WhileStmt] = execWhile
	stmtTable[ast.DoWhileStmt] = execDoWhile
	stmtTable[ast.ForStmt] = execFor
	stmtTable[ast.RepeatStmt] = execRepeat
	stmtTable[ast.BreakStmt] = execBreak
	stmtTable[ast.ContinueStmt] = execContinue
	stmtTable[ast.FunctionStmt] = execFunDecl
	stmtTable[ast.ClassStmt] = execClass
	stmtTable[ast.ReturnStmt] = execReturn
	stmtTable[ast.ModuleStmt] = execModule
	stmtTable[ast.NativeStmt] = execNative
	stmtTable[ast.TestStmt] = execTest
	stmtTable[ast.SwitchStmt] = execSwitch
	stmtTable[ast.ExtensionStmt] = execExtension
}

func execExpression(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	v, err := in.eval(stmt.(*ast.Expression).Expr)
	if err != nil {
		return normal, err
	}
	return ControlFlow{Kind: FlowNormal, Value: v}, nil
}

func execPrint(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Print)
	v, err := in.eval(s.Expr)
	if err != nil {
		return normal, err
	}
	if _, err := fmt.Fprintln(in.out, Stringify(v)); err != nil {
		return normal, &RuntimeError{Where: s.Keyword, Node: s, Message: "print failed", Err: err}
	}
	return normal, nil
}

func execVar(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Var)
	var v Value
	if s.Init != nil {
		var err error
		v, err = in.eval(s.Init)
		if err != nil {
			return normal, err
		}
	}
	in.arena.Define(in.env, s.Name.Lexeme, v)
	return normal, nil
}

// Fields are evaluated by Class.Call, never as statements.
func execField(_ *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	return normal, runtimeErrorf(stmt, "field declaration outside of a class")
}

func execBlock(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	h := in.arena.Push(in.env)
	defer in.arena.Release(h)
	return in.executeIn(stmt.(*ast.Block).Statements, h)
}

func execIf(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.If)
	cond, err := in.eval(s.Condition)
	if err != nil {
		return normal, err
	}
	if Truthy(cond) {
		return in.exec(s.Then)
	}
	if s.Else != nil {
		return in.exec(s.Else)
	}
	return normal, nil
}

// iterate runs one loop body and reports whether the loop should go on.
// A return or an error ends the loop and is handed back to the caller.
func (in *Interpreter) iterate(body *ast.Block) (bool, ControlFlow, error) {
	if err := in.interrupted(body); err != nil {
		return false, normal, err
	}
	in.maybeCollect()
	flow, err := in.exec(body)
	if err != nil {
		return false, normal, err
	}

	switch flow.Kind {
	case FlowBreak:
		return false, normal, nil
	case FlowReturn:
		return false, flow, nil
	case FlowNormal, FlowContinue:
	}
	return true, normal, nil
}

func (in *Interpreter) truthy(expr ast.Expr) (bool, error) {
	v, err := in.eval(expr)
	if err != nil {
		return false, err
	}
	return Truthy(v), nil
}

func execWhile(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.While)
	for {
		ok, err := in.truthy(s.Condition)
		if err != nil || !ok {
			return normal, err
		}
		next, flow, err := in.iterate(s.Body)
		if !next {
			return flow, err
		}
	}
}

func execDoWhile(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.DoWhile)
	for {
		next, flow, err := in.iterate(s.Body)
		if !next {
			return flow, err
		}
		ok, err := in.truthy(s.Condition)
		if err != nil || !ok {
			return normal, err
		}
	}
}

func execFor(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.For)
	h := in.arena.Push(in.env)
	defer in.arena.Release(h)

	prev := in.env
	in.env = h
	defer func() { in.env = prev }()

	if _, err := in.exec(s.Init); err != nil {
		return normal, err
	}
	for {
		ok, err := in.truthy(s.Condition)
		if err != nil || !ok {
			return normal, err
		}
		next, flow, err := in.iterate(s.Body)
		if !next {
			return flow, err
		}
		if _, err := in.eval(s.Increment); err != nil {
			return normal, err
		}
	}
}

func execRepeat(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Repeat)
	v, err := in.eval(s.Count)
	if err != nil {
		return normal, err
	}
	count, ok := v.(Number)
	if !ok {
		return normal, runtimeErrorf(s.Count, "Repeat count must be a number, got %s (%s)", Stringify(v), TypeName(v))
	}

	for i := int64(0); i < int64(count); i++ {
		next, flow, err := in.iterate(s.Body)
		if !next {
			return flow, err
		}
	}
	return normal, nil
}

// execSwitch runs the first case whose literal equals the value, or the default case.
// A break ends the switch.
func execSwitch(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Switch)
	v, err := in.eval(s.Value)
	if err != nil {
		return normal, err
	}

	arm := s.Default
	for _, c := range s.Cases {
		if Equal(v, FromGo(c.Value.Value)) {
			arm = c
			break
		}
	}
	if arm == nil {
		return normal, nil
	}

	h := in.arena.Push(in.env)
	defer in.arena.Release(h)
	flow, err := in.executeIn(arm.Body, h)
	if err != nil {
		return normal, err
	}
	if flow.Kind == FlowBreak {
		return normal, nil
	}
	return flow, nil
}

func execBreak(*Interpreter, ast.Stmt) (ControlFlow, error) {
	return ControlFlow{Kind: FlowBreak, Value: nil}, nil
}

func execContinue(*Interpreter, ast.Stmt) (ControlFlow, error) {
	return ControlFlow{Kind: FlowContinue, Value: nil}, nil
}

func execFunDecl(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.FunDecl)
	in.arena.Retain(in.env)
	fn := &Function{Name: s.Name.Lexeme, Params: s.Params, Body: s.Body, closure: in.env, this: nil}
	in.arena.Define(in.env, s.Name.Lexeme, fn)
	return normal, nil
}

func execClass(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Class)

	var superclass *Class
	if s.Superclass != nil {
		v, err := in.eval(s.Superclass)
		if err != nil {
			return normal, err
		}
		c, ok := v.(*Class)
		if !ok {
			return normal, runtimeErrorf(s.Superclass, "Superclass must be a class, got %s", TypeName(v))
		}
		superclass = c
	}

	in.arena.Define(in.env, s.Name.Lexeme, nil)

	closure := in.env
	if superclass != nil {
		closure = in.arena.Capture(in.env)
		in.arena.Define(closure, "super", superclass)
	} else {
		in.arena.Retain(closure)
	}

	class := &Class{
		Name:        s.Name.Lexeme,
		Superclass:  superclass,
		Fields:      s.Fields,
		Constructor: nil,
		Methods:     make(map[string]*Function, len(s.Methods)),
		closure:     closure,
	}
	if s.Constructor != nil {
		class.Constructor = &Function{Name: s.Name.Lexeme, Params: s.Constructor.Params, Body: s.Constructor.Body, closure: closure, this: nil}
	}
	for _, m := range s.Methods {
		class.Methods[m.Name.Lexeme] = &Function{Name: m.Name.Lexeme, Params: m.Params, Body: m.Body, closure: closure, this: nil}
	}

	in.arena.Define(in.env, s.Name.Lexeme, class)
	return normal, nil
}

// execExtension adds a method to an existing class. Every instance, existing or future,
// sees it. A class can't be extended with a method it declares itself.
func execExtension(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Extension)
	v, err := in.eval(s.Class)
	if err != nil {
		return normal, err
	}
	class, ok := v.(*Class)
	if !ok {
		return normal, runtimeErrorf(s.Class, "Only classes can be extended, got %s", TypeName(v))
	}

	name := s.Method.Name.Lexeme
	if _, ok := class.Methods[name]; ok {
		return normal, runtimeErrorf(s.Method, "Class %s already has a method '%s'", class.Name, name)
	}
	in.arena.Retain(in.env)
	class.Methods[name] = &Function{Name: name, Params: s.Method.Params, Body: s.Method.Body, closure: in.env, this: nil}
	return normal, nil
}

func execReturn(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Return)
	var v Value
	if s.Value != nil {
		var err error
		v, err = in.eval(s.Value)
		if err != nil {
			return normal, err
		}
	}
	return ControlFlow{Kind: FlowReturn, Value: v}, nil
}

// execModule defines every function of a registered module in the current frame.
func execModule(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Module)
	module, ok := in.modules[s.Name.Lexeme]
	if !ok {
		return normal, runtimeErrorf(s, "Module '%s' is not registered", s.Name.Lexeme)
	}
	for name, entry := range module.functions {
		in.arena.Define(in.env, name, &NativeFunction{Module: module.name, Name: name, params: len(entry.params), entry: entry})
	}
	return normal, nil
}

func execNative(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Native)
	fn := &NativeFunction{Module: s.Module.Lexeme, Name: s.Name.Lexeme, params: len(s.Params), entry: nil}
	in.arena.Define(in.env, s.Name.Lexeme, fn)
	return normal, nil
}

// execTest runs the body in its own frame and records whether it returned a truthy value.
func execTest(in *Interpreter, stmt ast.Stmt) (ControlFlow, error) {
	s := stmt.(*ast.Test)
	body := s.Body
	if s.Return != nil {
		body = append(slices.Clip(body), s.Return)
	}

	h := in.arena.Push(in.env)
	defer in.arena.Release(h)
	flow, err := in.executeIn(body, h)
	if err != nil {
		return normal, err
	}

	var v Value
	if flow.Kind == FlowReturn {
		v = flow.Value
	}
	in.results[testName(s)] = Truthy(v)
	return ControlFlow{Kind: FlowNormal, Value: v}, nil
}

func testName(s *ast.Test) string {
	if name, ok := s.Name.Literal.(string); ok {
		return name
	}
	return s.Name.Lexeme
}
