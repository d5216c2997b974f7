package eval

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"unicode"
	"unicode/utf8"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
)

var (
	valueType = reflect.TypeFor[Value]()
	errorType = reflect.TypeFor[error]()
)

// nativeEntry is one catalogued host function. Reflection over its signature happens
// once, when the module is built.
type nativeEntry struct {
	name         string
	fn           reflect.Value
	params       []reflect.Type
	variadic     bool
	returnsValue bool
	returnsError bool
}

func newNativeEntry(name string, fn reflect.Value) (*nativeEntry, error) {
	if kind, ok := token.Keywords[name]; ok {
		return nil, fmt.Errorf("%s is the keyword %s and can't be called from scripts", name, kind)
	}
	if !isIdentifier(name) {
		return nil, fmt.Errorf("%q is not a valid identifier", name)
	}
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is %s, not a function", name, fn.Kind())
	}
	t := fn.Type()
	e := &nativeEntry{name: name, fn: fn, variadic: t.IsVariadic()}
	for i := range t.NumIn() {
		e.params = append(e.params, t.In(i))
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			e.returnsError = true
		} else {
			e.returnsValue = true
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("%s: second result must be error, got %s", name, t.Out(1))
		}
		e.returnsValue = true
		e.returnsError = true
	default:
		return nil, fmt.Errorf("%s: too many results", name)
	}
	return e, nil
}

// accepts reports whether the entry can be called with n arguments.
func (e *nativeEntry) accepts(n int) bool {
	if e.variadic {
		return n >= len(e.params)-1
	}
	return n == len(e.params)
}

func (e *nativeEntry) arity() int {
	if e.variadic {
		return -1
	}
	return len(e.params)
}

func (e *nativeEntry) paramType(i int) reflect.Type {
	if e.variadic && i >= len(e.params)-1 {
		return e.params[len(e.params)-1].Elem()
	}
	return e.params[i]
}

// invoke converts args, calls the host function and wraps its result.
// Conversion failures and host panics become a NativeExecutionError; an error
// returned by the host function is passed back as hostErr.
func (e *nativeEntry) invoke(args []Value) (result Value, hostErr error, err error) {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		v, convErr := toReflect(arg, e.paramType(i))
		if convErr != nil {
			return nil, nil, fmt.Errorf("argument %d: %w", i+1, convErr)
		}
		in[i] = v
	}

	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", rerr)
			} else {
				err = fmt.Errorf("panic: %v", r)
			}
		}
	}()

	out := e.fn.Call(in)
	if e.returnsError {
		if errv := out[len(out)-1]; !errv.IsNil() {
			return nil, errv.Interface().(error), nil
		}
	}
	if e.returnsValue {
		return FromGo(out[0].Interface()), nil, nil
	}
	return nil, nil, nil
}

func toReflect(v Value, t reflect.Type) (reflect.Value, error) {
	if t == valueType {
		if v == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(v), nil
	}

	if v == nil {
		//exhaustive:ignore
		switch t.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		default:
			return reflect.Value{}, fmt.Errorf("cannot use null as %s", t)
		}
	}

	//exhaustive:ignore
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		if n, ok := v.(Number); ok {
			return reflect.ValueOf(float64(n)).Convert(t), nil
		}
	case reflect.String:
		if s, ok := v.(String); ok {
			return reflect.ValueOf(string(s)).Convert(t), nil
		}
	case reflect.Bool:
		if b, ok := v.(Bool); ok {
			return reflect.ValueOf(bool(b)).Convert(t), nil
		}
	case reflect.Interface:
		g := ToGo(v)
		if g == nil {
			return reflect.Zero(t), nil
		}
		if rv := reflect.ValueOf(g); rv.Type().AssignableTo(t) {
			return rv, nil
		}
	}

	if ext, ok := v.(External); ok && ext.V != nil {
		if rv := reflect.ValueOf(ext.V); rv.Type().AssignableTo(t) {
			return rv, nil
		}
	}
	if rv := reflect.ValueOf(v); rv.Type().AssignableTo(t) {
		return rv, nil
	}

	return reflect.Value{}, fmt.Errorf("cannot use %s (%s) as %s", Stringify(v), TypeName(v), t)
}

// NativeModule is a named catalogue of host functions scripts can import.
type NativeModule struct {
	name      string
	functions map[string]*nativeEntry
}

// NewNativeModule builds a module from named Go functions.
func NewNativeModule(name string, functions map[string]any) (*NativeModule, error) {
	if name == "" {
		return nil, errors.New("native module needs a name")
	}
	m := &NativeModule{name: name, functions: make(map[string]*nativeEntry, len(functions))}
	for fname, fn := range functions {
		entry, err := newNativeEntry(fname, reflect.ValueOf(fn))
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", name, err)
		}
		m.functions[fname] = entry
	}
	return m, nil
}

// NativeModuleOf builds a module from the exported methods of receiver.
// Method names are exposed with a lower-case first letter.
func NativeModuleOf(name string, receiver any) (*NativeModule, error) {
	if name == "" {
		return nil, errors.New("native module needs a name")
	}
	v := reflect.ValueOf(receiver)
	if !v.IsValid() {
		return nil, fmt.Errorf("module %s: nil receiver", name)
	}
	t := v.Type()
	if t.NumMethod() == 0 {
		return nil, fmt.Errorf("module %s: %s has no exported methods", name, t)
	}

	m := &NativeModule{name: name, functions: make(map[string]*nativeEntry, t.NumMethod())}
	for i := range t.NumMethod() {
		fname := lowerFirst(t.Method(i).Name)
		entry, err := newNativeEntry(fname, v.Method(i))
		if err != nil {
			return nil, fmt.Errorf("module %s: %w", name, err)
		}
		m.functions[fname] = entry
	}
	return m, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToLower(r)) + s[size:]
}

func (m *NativeModule) Name() string {
	return m.name
}

// Functions lists the script names of the module's functions in order.
func (m *NativeModule) Functions() []string {
	names := make([]string, 0, len(m.functions))
	for name := range m.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (m *NativeModule) lookup(name string, arity int) (*nativeEntry, bool) {
	e, ok := m.functions[name]
	if !ok || !e.accepts(arity) {
		return nil, false
	}
	return e, true
}

// Catalog is the set of native modules available to a script, keyed by name.
type Catalog map[string]*NativeModule

func (c Catalog) ModuleFunctions(module string) ([]string, bool) {
	m, ok := c[module]
	if !ok {
		return nil, false
	}
	return m.Functions(), true
}

// NativeFunction is a host function visible to scripts.
// Functions imported with `module X;` carry their catalogue entry; those declared with
// `native fun X.f();` resolve it on every call.
type NativeFunction struct {
	Module string
	Name   string
	params int // declared parameter count for `native fun`
	entry  *nativeEntry
}

func (n *NativeFunction) String() string {
	return "<native fn " + n.Module + "." + n.Name + ">"
}

func (*NativeFunction) TypeName() string { return "function" }

func (n *NativeFunction) Arity() int {
	if n.entry != nil {
		return n.entry.arity()
	}
	return n.params
}

func (n *NativeFunction) Call(in *Interpreter, where ast.Node, args []Value) (Value, error) {
	entry := n.entry
	if entry == nil {
		module, ok := in.modules[n.Module]
		if !ok {
			return nil, runtimeErrorf(where, "Module '%s' is not registered", n.Module)
		}
		entry, ok = module.lookup(n.Name, len(args))
		if !ok {
			return nil, runtimeErrorf(where, "Function '%s' is not supported by module '%s'", n.Name, n.Module)
		}
	} else if !entry.accepts(len(args)) {
		return nil, runtimeErrorf(where, "Expected at least %d argument(s) but got %d", len(entry.params)-1, len(args))
	}

	v, hostErr, err := entry.invoke(args)
	if err != nil {
		return nil, &NativeExecutionError{Where: where.Base(), Module: n.Module, Function: n.Name, Err: err}
	}
	if hostErr != nil {
		rerr := runtimeErrorf(where, "%s.%s: %v", n.Module, n.Name, hostErr)
		rerr.Err = hostErr
		return nil, rerr
	}
	return v, nil
}

var (
	_ Value    = &NativeFunction{}
	_ Callable = &NativeFunction{}
)
