package e2e_tests

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinejs/pkg/compiler"
	"pinejs/pkg/mappings"
)

func transpileFile(t *testing.T, name string) compiler.TranspileResult {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	res := compiler.Transpile(string(src), compiler.WithRegistry(mappings.Default()))
	require.True(t, res.Success, res.Error)
	return res
}

func features(warnings []compiler.Warning) []string {
	out := make([]string, len(warnings))
	for i, w := range warnings {
		out[i] = w.Feature
	}
	return out
}

func TestRSI(t *testing.T) {
	res := transpileFile(t, "rsi.pine")
	meta := res.Metadata

	assert.Equal(t, "Relative Strength Index", meta.Name)
	assert.Equal(t, "RSI", meta.ShortName)
	assert.False(t, meta.Overlay)
	assert.Equal(t, 5, meta.Version)
	require.Len(t, meta.Inputs, 2)
	assert.Equal(t, "integer", meta.Inputs[0].Type)
	assert.Equal(t, "source", meta.Inputs[1].Type)
	require.Len(t, meta.Plots, 3)
	assert.Equal(t, "#7E57C2", meta.Plots[0].Color)
	assert.Equal(t, "hline", meta.Plots[1].Kind)
	assert.Empty(t, res.Warnings)

	out := res.Output
	assert.True(t, strings.HasPrefix(out, "\"use strict\";\n// Generated by pinejs from Pine Script v5: \"Relative Strength Index\"\n"))
	assert.Contains(t, out, "const close = ctx.close;")
	assert.Contains(t, out, "let length = ctx.input(0, 14);")
	assert.Contains(t, out, "let src = ctx.input(1, close);")
	assert.Contains(t, out, `let up = _ta.rma(_wrapSeries(ctx, "ta.rma@5:6", Math.max(_ta.change(_wrapSeries(ctx, "ta.change@5:22", src), ctx), 0)), length, ctx);`)
	assert.Contains(t, out, "ctx.plot(0, rsi);")
	assert.NotContains(t, out, "hline(")
	assert.NotContains(t, out, "indicator(")
}

func TestBands(t *testing.T) {
	res := transpileFile(t, "bands.pine")
	meta := res.Metadata

	assert.True(t, meta.Overlay)
	require.Len(t, meta.Inputs, 2)
	require.NotNil(t, meta.Inputs[1].Step)
	assert.Equal(t, 0.1, *meta.Inputs[1].Step)
	require.Len(t, meta.Plots, 3)
	assert.Equal(t, []string{"#2196F3", "#4CAF50", "#FF5252"},
		[]string{meta.Plots[0].Color, meta.Plots[1].Color, meta.Plots[2].Color})
	assert.True(t, meta.HistoricalRefs["src"])
	assert.Empty(t, res.Warnings)

	out := res.Output
	assert.Contains(t, out, "function average(src, n) {")
	assert.Contains(t, out, "sum += _getHistorical_src(i);")
	assert.Contains(t, out, "for (let i = 0, _loop1_dir = i <= (n - 1) ? 1 : -1; _loop1_dir > 0 ? i <= (n - 1) : i >= (n - 1); i += _loop1_dir) {")
	assert.Contains(t, out, "return sum / n;")
	assert.NotContains(t, out, "unusedHelper")
	assert.Contains(t, out, "let basis = average(close, length);")
	assert.Contains(t, out, "let [upper, lower] = ")
	assert.Contains(t, out, `const _var_touches = ctx.newSeries("var:touches");`)
	assert.Contains(t, out, "_var_touches.set(_var_touches.get(1) || null);")
	assert.Contains(t, out, "let touches = (_var_touches.get(0) ?? [0])[0];")
	assert.Contains(t, out, "_var_touches.set([touches]);")
	assert.Contains(t, out, "let trend = (() => {")
	assert.Contains(t, out, "ctx.plot(2, lower);")
	assert.Equal(t, 1, strings.Count(out, "throw new Error(\"Loop limit exceeded"))
}

func TestLegacyScript(t *testing.T) {
	res := transpileFile(t, "legacy.pine")

	assert.Equal(t, "Legacy Cross", res.Metadata.Name)
	assert.Equal(t, 4, res.Metadata.Version)
	assert.Equal(t, []string{"@version", "study", "sma", "line.new"}, features(res.Warnings))
	assert.Equal(t, compiler.SeverityUnsupported, res.Warnings[3].Severity)

	out := res.Output
	assert.Contains(t, out, "const bar_index = ctx.barIndex;")
	assert.Contains(t, out, "let fast = sma(close, 9);")
	assert.Equal(t, 2, strings.Count(out, "line.new("))
}

func TestStreak(t *testing.T) {
	res := transpileFile(t, "streak.pine")
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Metadata.Plots, 1)
	assert.Equal(t, "Streak", res.Metadata.Plots[0].Title)

	out := res.Output
	assert.NotContains(t, out, ":=")
	assert.Contains(t, out, "let streak = (_var_streak.get(0) ?? [0])[0];")
	assert.Equal(t, 2, strings.Count(out, "_var_streak.set([streak]);"))

	assert.Contains(t, out, "function clampTo(v, hi) {")
	assert.Contains(t, out, "return Math.min(v, hi);")
	assert.Contains(t, out, "let capped = clampTo(streak, 10);")

	// the peak cell carries forward on bars where the branch is skipped
	cell := strings.Index(out, `const _var_peak = ctx.newSeries("var:peak");`)
	branch := strings.Index(out, "if (ctx.isLast) {")
	require.True(t, cell >= 0 && branch >= 0, out)
	assert.Less(t, cell, branch)
	assert.Contains(t, out, "let peak = (_var_peak.get(0) ?? [NaN])[0];")
	assert.Contains(t, out, "peak = Math.max(_rt.nz(peak, 0), capped);")
}

// Every sample is valid and transpiles the same way twice.
func TestSamplesAreDeterministic(t *testing.T) {
	entries, err := os.ReadDir("testdata")
	require.NoError(t, err)
	for _, e := range entries {
		t.Run(e.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("testdata", e.Name()))
			require.NoError(t, err)
			assert.True(t, compiler.Validate(string(src)).Valid)

			first := compiler.Transpile(string(src), compiler.WithRegistry(mappings.Default()))
			second := compiler.Transpile(string(src), compiler.WithRegistry(mappings.Default()))
			assert.Equal(t, first.Output, second.Output)
			assert.Equal(t, first.Warnings, second.Warnings)
			assert.Equal(t, first.Metadata.Plots, second.Metadata.Plots)
		})
	}
}
