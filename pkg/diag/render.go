package diag

import (
	"fmt"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
)

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	noteStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	gutterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// Renderer formats diagnostics with source excerpts. Source text is looked
// up through Sources first and then read from disk.
type Renderer struct {
	Plain   bool
	Sources map[string]string
	// Context is the number of lines shown around the primary line.
	Context int
}

func (r *Renderer) style(s lipgloss.Style, text string) string {
	if r.Plain {
		return text
	}
	return s.Render(text)
}

func (r *Renderer) source(file string) (string, bool) {
	if src, ok := r.Sources[file]; ok {
		return src, true
	}
	if file == "" {
		return "", false
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", false
	}
	if r.Sources == nil {
		r.Sources = map[string]string{}
	}
	r.Sources[file] = string(data)
	return r.Sources[file], true
}

func (r *Renderer) severityStyle(sev Severity) lipgloss.Style {
	switch sev {
	case Error:
		return errorStyle
	case Warning:
		return warningStyle
	}
	return noteStyle
}

// RenderAll renders every diagnostic, separated by blank lines.
func (r *Renderer) RenderAll(ds []Diagnostic) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = r.Render(d)
	}
	return strings.Join(parts, "\n")
}

// Render formats a single diagnostic.
func (r *Renderer) Render(d Diagnostic) string {
	var out strings.Builder

	header := fmt.Sprintf("%s[%s]", d.Severity, d.Code)
	out.WriteString(r.style(r.severityStyle(d.Severity), header))
	out.WriteString(r.style(boldStyle, ": "+d.Message))
	out.WriteString("\n")

	gutter := 3
	pipe := func(rest string) {
		out.WriteString(r.style(gutterStyle, strings.Repeat(" ", gutter)+" |"))
		out.WriteString(rest)
		out.WriteString("\n")
	}

	if !d.Span.IsZero() {
		out.WriteString(r.style(gutterStyle, fmt.Sprintf("%s--> %s", strings.Repeat(" ", gutter-1), d.Span)))
		out.WriteString("\n")
	}

	if src, ok := r.source(d.Span.File); ok && d.Span.Line > 0 {
		lines := strings.Split(src, "\n")
		if d.Span.Line <= len(lines) {
			pipe("")
			start := max(1, d.Span.Line-r.Context)
			end := min(len(lines), d.Span.Line+r.Context)
			for i := start; i <= end; i++ {
				num := fmt.Sprintf("%*d |", gutter, i)
				out.WriteString(r.style(gutterStyle, num))
				if lines[i-1] != "" {
					out.WriteString(" " + lines[i-1])
				}
				out.WriteString("\n")
				if i == d.Span.Line {
					width := max(1, d.Span.End-d.Span.Start)
					if rest := len(lines[i-1]) - (d.Span.Column - 1); rest > 0 && width > rest {
						width = rest
					}
					marker := strings.Repeat(" ", max(0, d.Span.Column-1)) + strings.Repeat("^", width)
					pipe(" " + r.style(r.severityStyle(d.Severity), marker))
				}
			}
			pipe("")
		}
	}

	for _, note := range d.Notes {
		out.WriteString(strings.Repeat(" ", gutter) + " = ")
		out.WriteString(r.style(noteStyle, "note") + ": " + note + "\n")
	}
	for _, s := range d.Suggestions {
		out.WriteString(strings.Repeat(" ", gutter) + " = ")
		out.WriteString(r.style(helpStyle, "help") + ": " + s.Message + "\n")
		for _, e := range s.Edits {
			for _, line := range strings.Split(e.Replacement, "\n") {
				out.WriteString(strings.Repeat(" ", gutter+5) + r.style(helpStyle, line) + "\n")
			}
		}
	}
	return out.String()
}
