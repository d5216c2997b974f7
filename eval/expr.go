package eval

import (
	"math"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

func init() {
	exprTable[ast.LiteralExpr] = evalLiteral
	exprTable[ast.VariableExpr] = evalVariable
	exprTable[ast.ThisExpr] = evalThis
	exprTable[ast.SuperExpr] = evalSuper
	exprTable[ast.UnaryExpr] = evalUnary
	exprTable[ast.BinaryExpr] = evalBinary
	exprTable[ast.TernaryExpr] = evalTernary
	exprTable[ast.AssignExpr] = evalAssign
	exprTable[ast.CallExpr] = evalCall
	exprTable[ast.GetExpr] = evalGet
	exprTable[ast.SetExpr] = evalSet
	exprTable[ast.GroupingExpr] = evalGrouping
	exprTable[ast.FunctionExpr] = evalFunction
}

func evalLiteral(_ *Interpreter, expr ast.Expr) (Value, error) {
	return FromGo(expr.(*ast.Literal).Value), nil
}

func evalVariable(in *Interpreter, expr ast.Expr) (Value, error) {
	return in.lookup(expr, expr.(*ast.Variable).Name)
}

func evalThis(in *Interpreter, expr ast.Expr) (Value, error) {
	return in.lookup(expr, expr.(*ast.This).Keyword)
}

func evalSuper(in *Interpreter, expr ast.Expr) (Value, error) {
	v, _, err := in.superMethod(expr.(*ast.Super), true)
	return v, err
}

func evalUnary(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Unary)
	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}

	//exhaustive:ignore
	switch e.Op.Kind {
	case token.BANG:
		return Bool(!Truthy(right)), nil
	case token.MINUS:
		n, ok := right.(Number)
		if !ok {
			return nil, runtimeErrorf(e, "Operand of '-' must be a number, got %s (%s)", Stringify(right), TypeName(right))
		}
		return -n, nil
	case token.TILDE:
		return bitNot(e, right)
	default:
		return nil, runtimeErrorf(e, "Unsupported unary operator '%s'", e.Op.Lexeme)
	}
}

func evalBinary(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Binary)
	left, err := in.eval(e.Left)
	if err != nil {
		return nil, err
	}
	defer in.unpin(in.pin(left))
	right, err := in.eval(e.Right)
	if err != nil {
		return nil, err
	}
	return binaryOp(e, e.Op, left, right)
}

// binaryOp applies an arithmetic, comparison or equality operator.
func binaryOp(where ast.Node, op token.Token, left, right Value) (Value, error) {
	//exhaustive:ignore
	switch op.Kind {
	case token.EQUALEQUAL:
		return Bool(Equal(left, right)), nil
	case token.BANGEQUAL:
		return Bool(!Equal(left, right)), nil
	case token.PLUS:
		l, lok := left.(Number)
		r, rok := right.(Number)
		if lok && rok {
			return l + r, nil
		}
		_, lstr := left.(String)
		_, rstr := right.(String)
		if lstr || rstr {
			return String(Stringify(left) + Stringify(right)), nil
		}
		return nil, runtimeErrorf(where, "Operands of '+' must be two numbers or include a string, got %s (%s) and %s (%s)",
			Stringify(left), TypeName(left), Stringify(right), TypeName(right))
	}

	l, lok := left.(Number)
	r, rok := right.(Number)
	if !lok || !rok {
		return nil, runtimeErrorf(where, "Operands of '%s' must be numbers, got %s (%s) and %s (%s)",
			op.Lexeme, Stringify(left), TypeName(left), Stringify(right), TypeName(right))
	}

	//exhaustive:ignore
	switch op.Kind {
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		if r == 0 {
			return nil, runtimeErrorf(where, "Division by zero")
		}
		return l / r, nil
	case token.PERCENT:
		if r == 0 {
			return nil, runtimeErrorf(where, "Division by zero")
		}
		return Number(math.Mod(float64(l), float64(r))), nil
	case token.GREATER:
		return Bool(l > r), nil
	case token.GREATEREQUAL:
		return Bool(l >= r), nil
	case token.LESS:
		return Bool(l < r), nil
	case token.LESSEQUAL:
		return Bool(l <= r), nil
	default:
		return nil, runtimeErrorf(where, "Unsupported binary operator '%s'", op.Lexeme)
	}
}

func evalTernary(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Ternary)
	cond, err := in.eval(e.Condition)
	if err != nil {
		return nil, err
	}
	if Truthy(cond) {
		return in.eval(e.Then)
	}
	return in.eval(e.Else)
}

func evalAssign(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Assign)
	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}
	if err := in.assign(e, e.Name, v); err != nil {
		return nil, err
	}
	return v, nil
}

func evalCall(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Call)
	callee, transient, err := in.callee(e.Callee)
	if err != nil {
		return nil, err
	}
	if transient {
		defer in.arena.Release(callee.(*Function).closure)
	}
	defer in.unpin(in.pin(callee))

	args := make([]Value, 0, len(e.Args))
	for _, arg := range e.Args {
		v, err := in.eval(arg)
		if err != nil {
			return nil, err
		}
		in.pin(v)
		args = append(args, v)
	}

	return in.call(e, callee, args)
}

// callee evaluates the callee of a call expression.
// A method called directly, as in `obj.m()` or `super.m()`, is bound to a frame the
// caller releases once the call returns.
func (in *Interpreter) callee(expr ast.Expr) (Value, bool, error) {
	//exhaustive:ignore
	switch expr.Kind() {
	case ast.GetExpr:
		e := expr.(*ast.Get)
		obj, err := in.eval(e.Object)
		if err != nil {
			return nil, false, err
		}
		return in.property(e, obj, false)
	case ast.SuperExpr:
		return in.superMethod(expr.(*ast.Super), false)
	default:
		v, err := in.eval(expr)
		return v, false, err
	}
}

func evalGet(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Get)
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	v, _, err := in.property(e, obj, true)
	return v, err
}

// property reads a field or binds a method of obj. The second result reports whether
// the returned method is bound to an unretained frame.
func (in *Interpreter) property(e *ast.Get, obj Value, retain bool) (Value, bool, error) {
	if arr, ok := obj.(*Array); ok && e.Name.Lexeme == "length" {
		return Number(arr.Len()), false, nil
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, false, runtimeErrorf(e, "Only instances have properties, got %s", TypeName(obj))
	}

	name := e.Name.Lexeme
	if v, ok := inst.fields[name]; ok {
		if err := in.checkVisible(e, e.Object, inst, name); err != nil {
			return nil, false, err
		}
		return v, false, nil
	}
	if m, ok := inst.class.FindMethod(name); ok {
		return m.bind(in, inst, retain), !retain, nil
	}
	return nil, false, runtimeErrorf(e, "Undefined property '%s'", name)
}

// checkVisible rejects access to a private field through anything but `this`.
func (in *Interpreter) checkVisible(where ast.Node, object ast.Expr, inst *Instance, name string) error {
	field, ok := inst.class.field(name)
	if !ok || !field.Private() || object.Kind() == ast.ThisExpr {
		return nil
	}
	return runtimeErrorf(where, "Cannot access private field '%s' of %s", name, inst.class.Name)
}

func evalSet(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Set)
	obj, err := in.eval(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, runtimeErrorf(e, "Only instances have fields, got %s", TypeName(obj))
	}
	defer in.unpin(in.pin(inst))
	v, err := in.eval(e.Value)
	if err != nil {
		return nil, err
	}
	if err := in.setField(e, e.Object, inst, e.Name.Lexeme, v); err != nil {
		return nil, err
	}
	return v, nil
}

// setField stores v in a field of inst, honoring private and final fields.
func (in *Interpreter) setField(where ast.Node, object ast.Expr, inst *Instance, name string, v Value) error {
	if err := in.checkVisible(where, object, inst, name); err != nil {
		return err
	}
	if field, ok := inst.class.field(name); ok && field.Final && inst.constructed {
		return runtimeErrorf(where, "Cannot assign to final field '%s'", name)
	}
	inst.fields[name] = v
	return nil
}

func (in *Interpreter) superMethod(e *ast.Super, retain bool) (Value, bool, error) {
	depth, ok := in.bindings.Depth(e)
	if !ok {
		return nil, false, runtimeErrorf(e, "Undefined variable 'super'")
	}
	sv, _ := in.arena.GetAt(in.env, depth, "super")
	tv, _ := in.arena.GetAt(in.env, depth-1, "this")
	super, ok := sv.(*Class)
	if !ok {
		return nil, false, runtimeErrorf(e, "Superclass must be a class, got %s", TypeName(sv))
	}
	inst, ok := tv.(*Instance)
	if !ok {
		return nil, false, runtimeErrorf(e, "'this' is not bound to an instance")
	}

	m, ok := super.FindMethod(e.Method.Lexeme)
	if !ok {
		return nil, false, runtimeErrorf(e, "Undefined property '%s'", e.Method.Lexeme)
	}
	return m.bind(in, inst, retain), !retain, nil
}

func evalGrouping(in *Interpreter, expr ast.Expr) (Value, error) {
	return in.eval(expr.(*ast.Grouping).Expr)
}

func evalFunction(in *Interpreter, expr ast.Expr) (Value, error) {
	e := expr.(*ast.Function)
	in.arena.Retain(in.env)
	return &Function{Name: "", Params: e.Params, Body: e.Body, closure: in.env, this: nil}, nil
}
