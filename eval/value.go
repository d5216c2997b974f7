package eval

import (
	"fmt"
	"reflect"
	"strconv"
)

// Value is a runtime value. A nil Value is null.
type Value interface {
	fmt.Stringer
	TypeName() string
}

type Number float64

func (n Number) String() string {
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func (Number) TypeName() string { return "number" }

var _ Value = Number(0)

type String string

func (s String) String() string {
	return string(s)
}

func (String) TypeName() string { return "string" }

var _ Value = String("")

type Bool bool

func (b Bool) String() string {
	return strconv.FormatBool(bool(b))
}

func (Bool) TypeName() string { return "boolean" }

var _ Value = Bool(false)

// External carries an arbitrary host value through scripts.
type External struct {
	V any
}

func (e External) String() string {
	return fmt.Sprint(e.V)
}

func (e External) TypeName() string {
	return fmt.Sprintf("external(%T)", e.V)
}

var _ Value = External{}

// Stringify renders v the way print does.
func Stringify(v Value) string {
	if v == nil {
		return "null"
	}
	return v.String()
}

// TypeName is v.TypeName() with null handled.
func TypeName(v Value) string {
	if v == nil {
		return "null"
	}
	return v.TypeName()
}

// Truthy: null is false, booleans are themselves, numbers are true unless zero, everything else is true.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case nil:
		return false
	case Bool:
		return bool(v)
	case Number:
		return v != 0
	default:
		return true
	}
}

// Equal compares numbers, strings and booleans by value, external values deeply,
// and everything else by identity.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case External:
		y, ok := b.(External)
		return ok && reflect.DeepEqual(x.V, y.V)
	default:
		if _, ok := b.(External); ok {
			return false
		}
		return a == b
	}
}

// FromGo wraps a host value.
func FromGo(v any) Value {
	switch v := v.(type) {
	case nil:
		return nil
	case Value:
		return v
	case float64:
		return Number(v)
	case int:
		return Number(v)
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case []any:
		elems := make([]Value, len(v))
		for i, e := range v {
			elems[i] = FromGo(e)
		}
		return NewArray(elems...)
	}

	rv := reflect.ValueOf(v)
	//exhaustive:ignore
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Number(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	default:
		return External{V: v}
	}
}

// ToGo unwraps a script value into its natural host representation.
func ToGo(v Value) any {
	switch v := v.(type) {
	case nil:
		return nil
	case Number:
		return float64(v)
	case String:
		return string(v)
	case Bool:
		return bool(v)
	case External:
		return v.V
	case *Array:
		elems := make([]any, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = ToGo(e)
		}
		return elems
	default:
		return v
	}
}
