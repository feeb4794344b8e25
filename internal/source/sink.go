package source

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Sink is the append-only diagnostic accumulator for one compilation.
// Diagnostics within one module must stay in source order and, across
// modules, stay stable under the module-topological order; Sink preserves
// insertion order and callers are responsible for inserting in that order
// (internal/module does the per-module merge).
type Sink struct {
	diags            []Diagnostic
	maxDiagnostics    int
	warningsAsErrors bool
	truncated        bool
}

// NewSink builds a Sink honoring the compile.Options max-diagnostics and
// warnings-as-errors gate settings.
func NewSink(maxDiagnostics int, warningsAsErrors bool) *Sink {
	return &Sink{maxDiagnostics: maxDiagnostics, warningsAsErrors: warningsAsErrors}
}

// Add appends one diagnostic, promoting Warning to Error when
// warnings-as-errors is set. The promotion happens per-diagnostic here,
// but it is equivalent to a single gate-time promotion since nothing
// inspects severity before the gate runs.
func (s *Sink) Add(d Diagnostic) {
	if s.warningsAsErrors && d.Severity == Warning {
		d.Severity = Error
	}

	if s.maxDiagnostics > 0 && s.ErrorCount() >= s.maxDiagnostics {
		if !s.truncated {
			s.truncated = true
			s.diags = append(s.diags, New(Note, NoteDiagnosticsTruncated, Span{},
				fmt.Sprintf("diagnostic output truncated at %d errors", s.maxDiagnostics)))
		}
		return
	}

	s.diags = append(s.diags, d)
}

// HasErrors reports whether any Error or Internal severity diagnostic has
// been recorded; this is the gate checked before IL generation runs.
func (s *Sink) HasErrors() bool {
	return lo.SomeBy(s.diags, func(d Diagnostic) bool {
		return d.Severity == Error || d.Severity == Internal
	})
}

// ErrorCount returns the number of Error/Internal diagnostics recorded.
func (s *Sink) ErrorCount() int {
	return lo.CountBy(s.diags, func(d Diagnostic) bool {
		return d.Severity == Error || d.Severity == Internal
	})
}

// All returns every diagnostic recorded so far, in insertion order.
func (s *Sink) All() []Diagnostic {
	out := make([]Diagnostic, len(s.diags))
	copy(out, s.diags)
	return out
}

// SortStable orders diagnostics by (file, offset) while preserving
// insertion order for ties, used only for human-facing rendering — the
// canonical append order is still what a byte-identical diagnostic stream
// is checked against.
func SortStable(diags []Diagnostic) []Diagnostic {
	out := make([]Diagnostic, len(diags))
	copy(out, diags)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Primary.File != out[j].Primary.File {
			return out[i].Primary.File < out[j].Primary.File
		}
		return out[i].Primary.Offset < out[j].Primary.Offset
	})
	return out
}

// Render formats one diagnostic as a multi-line, human-readable message
// with a caret-annotated source excerpt: code, primary span with context,
// and remedy when present.
func Render(m *Map, d Diagnostic) string {
	var b strings.Builder
	pos := m.Position(d.Primary)
	fmt.Fprintf(&b, "%s: %s[%s]: %s\n", pos, d.Severity, d.Code, d.Message)

	if f := m.File(d.Primary.File); f != nil && pos.Line > 0 {
		line := f.LineText(pos.Line)
		fmt.Fprintf(&b, "  %s\n", line)
		col := pos.Column
		if col < 1 {
			col = 1
		}
		caretLen := d.Primary.Length
		if caretLen < 1 {
			caretLen = 1
		}
		fmt.Fprintf(&b, "  %s%s\n", strings.Repeat(" ", col-1), strings.Repeat("^", caretLen))
	}

	for _, r := range d.Related {
		rp := m.Position(r.Span)
		fmt.Fprintf(&b, "  note: %s: %s\n", rp, r.Message)
	}
	if d.Remedy != "" {
		fmt.Fprintf(&b, "  help: %s\n", d.Remedy)
	}
	return b.String()
}
