package compiler

import "fmt"

// Severity grades how far a feature is from being supported.
type Severity string

const (
	SeverityUnsupported Severity = "unsupported"
	SeverityPartial     Severity = "partial"
	SeverityDeprecated  Severity = "deprecated"
)

// Warning reports a feature the output does not fully honor. Warnings never
// stop a transpile.
type Warning struct {
	Severity Severity `json:"severity"`
	Feature  string   `json:"feature"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s: %s", w.Line, w.Severity, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Severity, w.Message)
}

// Diagnostics collects warnings for a single run and keeps at most one
// warning per feature name. The zero value is ready to use.
type Diagnostics struct {
	seen     map[string]bool
	warnings []Warning
}

// NewDiagnostics returns an empty collector.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// Warn records a warning unless one was already recorded for feature. It
// reports whether the warning was added.
func (d *Diagnostics) Warn(sev Severity, feature string, line int, format string, args ...any) bool {
	if d.seen == nil {
		d.seen = make(map[string]bool)
	}
	if d.seen[feature] {
		return false
	}
	d.seen[feature] = true
	d.warnings = append(d.warnings, Warning{
		Severity: sev,
		Feature:  feature,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	})
	return true
}

// Warnings returns a copy of the recorded warnings in the order they were added.
func (d *Diagnostics) Warnings() []Warning {
	out := make([]Warning, len(d.warnings))
	copy(out, d.warnings)
	return out
}

// Reset drops every recorded warning.
func (d *Diagnostics) Reset() {
	d.seen = nil
	d.warnings = nil
}
