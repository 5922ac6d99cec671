package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vito/warden/pkg/ast"
)

type Severity int

const (
	Error Severity = iota
	Warning
	Note
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "note"
	}
}

// Edit replaces the bytes covered by Span with Replacement.
type Edit struct {
	Span        ast.Span
	Replacement string
}

// Suggestion is a fix the user may apply.
type Suggestion struct {
	Message string
	Edits   []Edit
}

// Diagnostic is a single checker or runtime finding.
type Diagnostic struct {
	Code        Code
	Severity    Severity
	Message     string
	Span        ast.Span
	Notes       []string
	Suggestions []Suggestion
}

func (d Diagnostic) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%s] %s: %s", d.Severity, d.Code, d.Span, d.Message)
	for _, note := range d.Notes {
		b.WriteString("\n  note: " + note)
	}
	for _, s := range d.Suggestions {
		b.WriteString("\n  help: " + s.Message)
		for _, e := range s.Edits {
			for _, line := range strings.Split(e.Replacement, "\n") {
				b.WriteString("\n    " + line)
			}
		}
	}
	return b.String()
}

// NewError builds an error diagnostic.
func NewError(code Code, span ast.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: Error, Span: span, Message: fmt.Sprintf(format, args...)}
}

// NewWarning builds a warning diagnostic.
func NewWarning(code Code, span ast.Span, format string, args ...any) Diagnostic {
	return Diagnostic{Code: code, Severity: Warning, Span: span, Message: fmt.Sprintf(format, args...)}
}

func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(append([]string(nil), d.Notes...), note)
	return d
}

func (d Diagnostic) WithSuggestion(msg string, edits ...Edit) Diagnostic {
	d.Suggestions = append(append([]Suggestion(nil), d.Suggestions...), Suggestion{Message: msg, Edits: edits})
	return d
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	Push(Diagnostic)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Diagnostic)

func (f SinkFunc) Push(d Diagnostic) { f(d) }

// Bag collects diagnostics in the order they were pushed. A Bag holding
// errors is itself returned as an error.
type Bag struct {
	Diagnostics []Diagnostic
}

var _ Sink = (*Bag)(nil)

func (b *Bag) Push(d Diagnostic) {
	b.Diagnostics = append(b.Diagnostics, d)
}

func (b *Bag) Len() int { return len(b.Diagnostics) }

func (b *Bag) HasErrors() bool {
	for _, d := range b.Diagnostics {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic {
	return b.filter(Error)
}

// Warnings returns only the warning-severity diagnostics.
func (b *Bag) Warnings() []Diagnostic {
	return b.filter(Warning)
}

func (b *Bag) filter(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// WithCode returns the diagnostics carrying code.
func (b *Bag) WithCode(code Code) []Diagnostic {
	var out []Diagnostic
	for _, d := range b.Diagnostics {
		if d.Code == code {
			out = append(out, d)
		}
	}
	return out
}

// Sort orders diagnostics by file, position, then code. The sort is stable
// so diagnostics at the same location keep their push order.
func (b *Bag) Sort() {
	sort.SliceStable(b.Diagnostics, func(i, j int) bool {
		a, c := b.Diagnostics[i].Span, b.Diagnostics[j].Span
		if a.File != c.File {
			return a.File < c.File
		}
		if a.Line != c.Line {
			return a.Line < c.Line
		}
		if a.Column != c.Column {
			return a.Column < c.Column
		}
		return b.Diagnostics[i].Code < b.Diagnostics[j].Code
	})
}

func (b *Bag) Error() string {
	errs := b.Errors()
	switch len(errs) {
	case 0:
		return "no errors"
	case 1:
		return errs[0].String()
	}
	var s strings.Builder
	fmt.Fprintf(&s, "%d errors:", len(errs))
	for _, d := range errs {
		s.WriteString("\n" + d.String())
	}
	return s.String()
}
