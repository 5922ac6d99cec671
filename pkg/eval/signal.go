package eval

import (
	"errors"

	"github.com/vito/warden/pkg/ast"
	"github.com/vito/warden/pkg/diag"
	"github.com/vito/warden/pkg/value"
)

type SignalKind int

const (
	SignalError SignalKind = iota
	SignalReturn
	SignalBreak
	SignalContinue
	// SignalEarlyReturn is raised by `?` on None or Err.
	SignalEarlyReturn
)

func (k SignalKind) String() string {
	switch k {
	case SignalReturn:
		return "return"
	case SignalBreak:
		return "break"
	case SignalContinue:
		return "continue"
	case SignalEarlyReturn:
		return "early return"
	default:
		return "error"
	}
}

// Signal carries non-local control flow through the error channel.
// Loops and calls classify it and either consume it or pass it on.
type Signal struct {
	Kind  SignalKind
	Value value.Value
	Err   *RuntimeError
	Span  ast.Span
}

func (s *Signal) Error() string {
	if s.Err != nil {
		return s.Err.Error()
	}
	return s.Kind.String() + " outside of its construct"
}

// classify turns an evaluation error into a Signal. Runtime errors become
// SignalError.
func classify(err error) *Signal {
	var sig *Signal
	if errors.As(err, &sig) {
		return sig
	}
	return &Signal{Kind: SignalError, Err: asRuntimeError(err)}
}

// escaped reports a control signal that left the construct it belongs to.
func escaped(sig *Signal) *RuntimeError {
	switch sig.Kind {
	case SignalError:
		return sig.Err
	case SignalReturn, SignalEarlyReturn:
		return faultAt(sig.Span, diag.EscapedControl, "%s outside of a function", sig.Kind)
	}
	return faultAt(sig.Span, diag.EscapedControl, "%s outside of a loop", sig.Kind)
}

// callBoundary strips return signals at the end of a function body and
// turns stray loop signals into errors.
func callBoundary(v value.Value, err error) (value.Value, error) {
	if err == nil {
		return v, nil
	}
	sig := classify(err)
	switch sig.Kind {
	case SignalReturn, SignalEarlyReturn:
		return sig.Value, nil
	case SignalError:
		return nil, sig.Err
	}
	return nil, escaped(sig)
}
