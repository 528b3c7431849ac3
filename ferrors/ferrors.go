// Package ferrors provides the one-error-kind-per-boundary taxonomy shared
// across the engine, following the teacher's ToolRegistryError /
// ConversationError shape: a component-tagged struct with a wrapped cause.
package ferrors

import "fmt"

// Kind names one of the error boundaries the core distinguishes.
type Kind string

const (
	KindConfigMissing    Kind = "config_missing"
	KindToolNotFound     Kind = "tool_not_found"
	KindToolExecFailed   Kind = "tool_execution_failed"
	KindModelFailure     Kind = "model_failure"
	KindMaxIterations    Kind = "max_iterations"
	KindInvalidWorkflow  Kind = "invalid_workflow"
	KindParseError       Kind = "parse_error"
	KindCancelled        Kind = "cancelled"
	KindCircularWorkflow Kind = "circular_dependency"
)

// Error is the engine's standard error shape: a component/operation pair,
// a human message, and an optional wrapped cause.
type Error struct {
	Kind      Kind
	Component string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Component, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Component, e.Operation, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is enables errors.Is(err, ferrors.New(kind, ...)) style matching on Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// New constructs an *Error for the given boundary.
func New(kind Kind, component, operation, message string, err error) *Error {
	return &Error{Kind: kind, Component: component, Operation: operation, Message: message, Err: err}
}

// MaxIterations reports the turn-loop / ReAct agent exhausting its bound.
func MaxIterations(component string, limit int) *Error {
	return New(KindMaxIterations, component, "run", fmt.Sprintf("reached max iterations (%d)", limit), nil)
}

// ToolNotFound reports a dispatch against an unregistered tool name.
func ToolNotFound(name string) *Error {
	return New(KindToolNotFound, "ToolRegistry", "GetTool", fmt.Sprintf("tool %s not found", name), nil)
}
