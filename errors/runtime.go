package errors

import (
	"fmt"
	"strings"
)

// RuntimeError is an error raised while evaluating lowered code, either for
// `quadc run` or while folding a constant.
type RuntimeError struct {
	Code    ErrorCode
	Message string
	Offset  int    // instruction offset of the failing op
	Op      string // name of the failing op
	Stack   []StackFrame
	Err     error
}

// NewRuntimeError creates a RuntimeError with a formatted message.
func NewRuntimeError(code ErrorCode, offset int, opName string, stack []StackFrame, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Offset:  offset,
		Op:      opName,
		Stack:   stack,
	}
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("runtime error: %s", e.Message)
	}
	return fmt.Sprintf("runtime error: %s (op %d: %s)", e.Message, e.Offset, e.Op)
}

// Unwrap returns the underlying cause, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// WithCause sets the underlying cause.
func (e *RuntimeError) WithCause(cause error) *RuntimeError {
	e.Err = cause
	return e
}

// FriendlyErrorMessage returns the message followed by the stack trace.
func (e *RuntimeError) FriendlyErrorMessage() string {
	var b strings.Builder
	b.WriteString(e.Error())
	b.WriteString("\n")
	if len(e.Stack) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatStackTrace(e.Stack))
	}
	return b.String()
}

// ToFormatted converts to the FormattedError type for display.
func (e *RuntimeError) ToFormatted() *FormattedError {
	fe := &FormattedError{
		Code:    e.Code,
		Kind:    "runtime error",
		Message: e.Message,
		Stack:   e.Stack,
	}
	if e.Op != "" {
		fe.Note = fmt.Sprintf("while executing %s at op %d", e.Op, e.Offset)
	}
	return fe
}
