package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnosticsDeduplicatesByFeature(t *testing.T) {
	var d Diagnostics
	assert.True(t, d.Warn(SeverityUnsupported, "line.new", 3, "%s is not supported", "line.new"))
	assert.False(t, d.Warn(SeverityUnsupported, "line.new", 9, "again"))
	assert.True(t, d.Warn(SeverityPartial, "fill", 4, "fill"))

	w := d.Warnings()
	assert.Len(t, w, 2)
	assert.Equal(t, Warning{Severity: SeverityUnsupported, Feature: "line.new", Message: "line.new is not supported", Line: 3}, w[0])
	assert.Equal(t, "line 3: unsupported: line.new is not supported", w[0].String())

	// callers get a copy
	w[0].Message = "changed"
	assert.Equal(t, "line.new is not supported", d.Warnings()[0].Message)

	d.Reset()
	assert.Empty(t, d.Warnings())
	assert.True(t, d.Warn(SeverityUnsupported, "line.new", 1, "back"))
}

func TestWarningStringWithoutLine(t *testing.T) {
	w := Warning{Severity: SeverityDeprecated, Feature: "study", Message: "use indicator()"}
	assert.Equal(t, "deprecated: use indicator()", w.String())
}

func TestMapRegistry(t *testing.T) {
	base := MapRegistry{"nz": {Target: "_nz"}, "ta.sma": {Target: "_ta.sma"}}
	override := MapRegistry{"nz": {Target: "custom_nz"}, "ta.ema": {Target: "_ta.ema"}}

	merged := base.Merge(override)
	assert.Equal(t, []string{"nz", "ta.ema", "ta.sma"}, merged.Names())

	m, ok := merged.Lookup("nz")
	assert.True(t, ok)
	assert.Equal(t, "custom_nz", m.Target)

	// Merge leaves its inputs untouched
	m, _ = base.Lookup("nz")
	assert.Equal(t, "_nz", m.Target)
	_, ok = base.Lookup("ta.ema")
	assert.False(t, ok)
}
