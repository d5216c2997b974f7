package eval

import (
	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

type Callable interface {
	Value
	// Arity is the exact number of arguments, or -1 if the callee checks them itself.
	Arity() int
	Call(in *Interpreter, where ast.Node, args []Value) (Value, error)
}

// Function is a script function or method together with the frame it closes over.
type Function struct {
	Name    string
	Params  []token.Token
	Body    []ast.Stmt
	closure Handle
	this    *Instance
}

func (f *Function) String() string {
	if f.Name == "" {
		return "<fn>"
	}
	return "<fn " + f.Name + ">"
}

func (*Function) TypeName() string { return "function" }

func (f *Function) Arity() int {
	return len(f.Params)
}

// Bound reports the instance a method was bound to, or nil.
func (f *Function) Bound() *Instance {
	return f.this
}

// bind layers a frame holding `this` over the method's closure.
// The declaration is shared with the unbound method. Unless retain is set, the
// caller owns the frame and must release it.
func (f *Function) bind(in *Interpreter, inst *Instance, retain bool) *Function {
	var h Handle
	if retain {
		h = in.arena.Capture(f.closure)
	} else {
		h = in.arena.Push(f.closure)
	}
	in.arena.Define(h, "this", inst)
	return &Function{Name: f.Name, Params: f.Params, Body: f.Body, closure: h, this: inst}
}

func (f *Function) Call(in *Interpreter, _ ast.Node, args []Value) (Value, error) {
	h := in.arena.Push(f.closure)
	defer in.arena.Release(h)
	for i, param := range f.Params {
		in.arena.Define(h, param.Lexeme, args[i])
	}

	flow, err := in.executeIn(f.Body, h)
	if err != nil {
		return nil, err
	}
	if flow.Kind == FlowReturn {
		return flow.Value, nil
	}
	return nil, nil
}

var (
	_ Value    = &Function{}
	_ Callable = &Function{}
)

type Class struct {
	Name        string
	Superclass  *Class
	Fields      []*ast.Field
	Constructor *Function
	Methods     map[string]*Function
	// frame field initializers are evaluated under; the `super` frame for subclasses
	closure Handle
}

func (c *Class) String() string {
	return "<class " + c.Name + ">"
}

func (*Class) TypeName() string { return "class" }

// FindMethod looks name up in c and its superclasses.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for k := c; k != nil; k = k.Superclass {
		if m, ok := k.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

func (c *Class) constructor() *Function {
	for k := c; k != nil; k = k.Superclass {
		if k.Constructor != nil {
			return k.Constructor
		}
	}
	return nil
}

func (c *Class) field(name string) (*ast.Field, bool) {
	for k := c; k != nil; k = k.Superclass {
		for _, f := range k.Fields {
			if f.Name.Lexeme == name {
				return f, true
			}
		}
	}
	return nil, false
}

func (c *Class) Arity() int {
	if ctor := c.constructor(); ctor != nil {
		return ctor.Arity()
	}
	return 0
}

// Call constructs an instance: field initializers run first, superclass fields before
// subclass fields, then the constructor. The instance is the result whatever the
// constructor returns.
func (c *Class) Call(in *Interpreter, where ast.Node, args []Value) (Value, error) {
	inst := &Instance{class: c, fields: make(map[string]Value)}

	if err := c.initFields(in, inst); err != nil {
		return nil, err
	}

	if ctor := c.constructor(); ctor != nil {
		bound := ctor.bind(in, inst, false)
		_, err := bound.Call(in, where, args)
		in.arena.Release(bound.closure)
		if err != nil {
			return nil, err
		}
	}

	inst.constructed = true
	return inst, nil
}

func (c *Class) initFields(in *Interpreter, inst *Instance) error {
	if c.Superclass != nil {
		if err := c.Superclass.initFields(in, inst); err != nil {
			return err
		}
	}
	if len(c.Fields) == 0 {
		return nil
	}

	h := in.arena.Push(c.closure)
	in.arena.Define(h, "this", inst)
	defer in.arena.Release(h)

	prev := in.env
	in.env = h
	defer func() { in.env = prev }()

	for _, field := range c.Fields {
		var v Value
		if field.Init != nil {
			var err error
			v, err = in.eval(field.Init)
			if err != nil {
				return err
			}
		}
		inst.fields[field.Name.Lexeme] = v
	}
	return nil
}

var (
	_ Value    = &Class{}
	_ Callable = &Class{}
)

type Instance struct {
	class       *Class
	fields      map[string]Value
	constructed bool
}

func (i *Instance) String() string {
	return "<" + i.class.Name + " instance>"
}

func (i *Instance) TypeName() string { return i.class.Name }

func (i *Instance) Class() *Class {
	return i.class
}

// Field reads a field directly, bypassing visibility.
func (i *Instance) Field(name string) (Value, bool) {
	v, ok := i.fields[name]
	return v, ok
}

var _ Value = &Instance{}
