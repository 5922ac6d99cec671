package eval

import (
	"errors"
	"fmt"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
)

// RuntimeError is the only error EvalModule and RunTests return. Receiver
// and Method are set for failed method dispatch.
type RuntimeError struct {
	Code     diag.Code
	Message  string
	Span     ast.Span
	Receiver string
	Method   string
	// Err is the host error behind an IO failure, if any.
	Err error
}

func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if !e.Span.IsZero() {
		msg = e.Span.String() + ": " + msg
	}
	return msg
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Diagnostic converts the error so it can be rendered alongside checker
// output.
func (e *RuntimeError) Diagnostic() diag.Diagnostic {
	d := diag.NewError(e.Code, e.Span, "%s", e.Message)
	if e.Receiver != "" {
		d = d.WithNote("receiver: " + e.Receiver)
	}
	return d
}

func fault(code diag.Code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func faultAt(span ast.Span, code diag.Code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: span}
}

// ioFault wraps a host error from a capability.
func ioFault(span ast.Span, op string, err error) *RuntimeError {
	return &RuntimeError{Code: diag.IOFailure, Message: fmt.Sprintf("%s: %v", op, err), Span: span, Err: err}
}

// locate fills in the span of a runtime error raised without one, such as
// from a builtin.
func locate(err error, span ast.Span) error {
	var rt *RuntimeError
	if errors.As(err, &rt) && rt.Span.IsZero() {
		rt.Span = span
	}
	return err
}

// asRuntimeError converts anything escaping evaluation into a RuntimeError.
func asRuntimeError(err error) *RuntimeError {
	if err == nil {
		return nil
	}
	var rt *RuntimeError
	if errors.As(err, &rt) {
		return rt
	}
	var sig *Signal
	if errors.As(err, &sig) {
		return escaped(sig)
	}
	return &RuntimeError{Code: diag.Internal, Message: err.Error(), Err: err}
}
