// Package vm - error handling with stack traces.
package vm

import (
	"fmt"
	"strings"
)

// StackFrame captures one call frame's position at the moment a
// RuntimeError was raised, innermost call last.
type StackFrame struct {
	Name       string // function or method name ("script" at top level)
	SourceLine int    // source line the frame's IP was on
}

// RuntimeError is everything pkg/vm returns for a runtime (as opposed
// to compile-time) failure: a message plus the call stack at the point
// of failure, the way a Lox implementation reports an uncaught error to
// its user.
type RuntimeError struct {
	Message    string
	StackTrace []StackFrame
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for i := len(e.StackTrace) - 1; i >= 0; i-- {
		frame := e.StackTrace[i]
		b.WriteString(fmt.Sprintf("\n[line %d] in %s", frame.SourceLine, frame.Name))
	}
	return b.String()
}

func newRuntimeError(message string, stack []StackFrame) *RuntimeError {
	return &RuntimeError{Message: message, StackTrace: stack}
}
