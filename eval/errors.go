package eval

import (
	"fmt"

	"github.com/takoeight0821/ember/ast"
	"github.com/takoeight0821/ember/token"
	"github.com/takoeight0821/ember/utils"
)

// RuntimeError aborts the current execution.
type RuntimeError struct {
	Where   token.Token
	Node    ast.Node
	Message string
	Err     error
}

func (e *RuntimeError) Error() string {
	return e.Diagnostic().Error()
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func (e *RuntimeError) Diagnostic() utils.Diagnostic {
	return utils.DiagnosticAt(utils.Interpreting, e.Where, e.Node, e.Message)
}

func runtimeErrorf(node ast.Node, format string, args ...any) *RuntimeError {
	return &RuntimeError{Where: node.Base(), Node: node, Message: fmt.Sprintf(format, args...)}
}

// NativeExecutionError reports a failure inside the native bridge: an argument that
// could not be converted for the host function, or a panic raised by host code.
type NativeExecutionError struct {
	Where    token.Token
	Module   string
	Function string
	Err      error
}

func (e *NativeExecutionError) Error() string {
	return e.Diagnostic().Error()
}

func (e *NativeExecutionError) Unwrap() error {
	return e.Err
}

func (e *NativeExecutionError) Diagnostic() utils.Diagnostic {
	msg := fmt.Sprintf("native function %s.%s failed: %v", e.Module, e.Function, e.Err)
	return utils.DiagnosticAt(utils.Interpreting, e.Where, nil, msg)
}

type FlowKind int

const (
	FlowNormal FlowKind = iota
	FlowReturn
	FlowBreak
	FlowContinue
)

func (k FlowKind) String() string {
	switch k {
	case FlowNormal:
		return "normal"
	case FlowReturn:
		return "return"
	case FlowBreak:
		return "break"
	case FlowContinue:
		return "continue"
	default:
		return fmt.Sprintf("FlowKind(%d)", int(k))
	}
}

// ControlFlow is how a statement completed.
// Value is the returned value for FlowReturn, and the statement's own value for
// expression and test statements completing normally.
type ControlFlow struct {
	Kind  FlowKind
	Value Value
}

var normal = ControlFlow{Kind: FlowNormal, Value: nil}
