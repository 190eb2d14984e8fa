package compiler

import (
	"errors"
	"fmt"
)

// Options configures a Transpile or Validate run.
type Options struct {
	Registry     FunctionRegistry
	Limits       Limits
	LoopLimit    int
	FunctionName string
	// Prune drops user functions that are never called or exported.
	Prune bool
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns the settings Transpile starts from.
func DefaultOptions() Options {
	return Options{
		Registry:     MapRegistry{},
		Limits:       DefaultLimits(),
		LoopLimit:    DefaultLoopLimit,
		FunctionName: "main",
		Prune:        true,
	}
}

func WithRegistry(r FunctionRegistry) Option {
	return func(o *Options) { o.Registry = r }
}

func WithLimits(l Limits) Option {
	return func(o *Options) { o.Limits = l }
}

func WithLoopLimit(n int) Option {
	return func(o *Options) { o.LoopLimit = n }
}

// WithFunctionName sets the name of the generated entry function.
func WithFunctionName(name string) Option {
	return func(o *Options) { o.FunctionName = name }
}

func WithPruning(on bool) Option {
	return func(o *Options) { o.Prune = on }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TranspileResult is the outcome of Transpile. On failure Output is empty and
// Error describes the first problem; ErrorLine is zero when no position is
// known.
type TranspileResult struct {
	Success     bool      `json:"success"`
	Output      string    `json:"output,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorLine   int       `json:"errorLine,omitempty"`
	ErrorColumn int       `json:"errorColumn,omitempty"`
	Metadata    *Metadata `json:"metadata,omitempty"`
	Warnings    []Warning `json:"warnings"`
}

// Transpile compiles source to JavaScript. It never panics: every failure,
// including a compiler bug, is reported through the result.
func Transpile(source string, opts ...Option) (res TranspileResult) {
	o := buildOptions(opts)
	diag := NewDiagnostics()

	defer func() {
		if r := recover(); r != nil {
			res = failure(&InternalError{Message: fmt.Sprint(r)})
			res.Warnings = diag.Warnings()
		}
	}()

	if !validFunctionName(o.FunctionName) {
		return failure(fmt.Errorf("invalid function name %q", o.FunctionName))
	}

	source = NormalizeSource(source)
	tokens, err := LexWithLimit(source, o.Limits.MaxTokens)
	if err != nil {
		return failure(fmt.Errorf("lex: %w", err))
	}
	prog, perrs := ParseWithLimits(tokens, o.Limits)
	if len(perrs) > 0 {
		res = failure(fmt.Errorf("parse: %w", perrs[0]))
		if n := len(perrs); n > 1 {
			res.Error = fmt.Sprintf("%s (and %d more errors)", res.Error, n-1)
		}
		return res
	}

	version, hasVersion := DetectVersion(source)
	if hasVersion && version < 5 {
		diag.Warn(SeverityDeprecated, "@version", 1,
			"version %d scripts are deprecated; some builtins may not map", version)
	}

	if o.Prune {
		prog = PruneUnusedFunctions(prog)
	}
	meta := Visit(prog, diag)
	meta.Version = version

	out, err := Generate(prog, meta, o, diag)
	if err != nil {
		res = failure(fmt.Errorf("generate: %w", err))
		res.Metadata = meta
		res.Warnings = diag.Warnings()
		return res
	}
	meta.Warnings = diag.Warnings()

	return TranspileResult{
		Success:  true,
		Output:   out,
		Metadata: meta,
		Warnings: meta.Warnings,
	}
}

// failure converts an error from any stage into a result, keeping the
// position of typed errors.
func failure(err error) TranspileResult {
	res := TranspileResult{Error: err.Error()}
	var lexErr *LexError
	var parseErr ParseError
	var internal *InternalError
	switch {
	case errors.As(err, &lexErr):
		res.ErrorLine, res.ErrorColumn = lexErr.Line, lexErr.Column
	case errors.As(err, &parseErr):
		res.ErrorLine, res.ErrorColumn = parseErr.Line, parseErr.Column
	case errors.As(err, &internal):
		res.ErrorLine, res.ErrorColumn = internal.Line, internal.Column
	}
	return res
}

// validFunctionName accepts identifiers that need no sanitizing. "main" is
// reserved only against script names.
func validFunctionName(name string) bool {
	if name == "" || name != "main" && sanitizeIdent(name) != name {
		return false
	}
	for i, r := range name {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	return true
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool         `json:"valid"`
	Reason string       `json:"reason,omitempty"`
	Errors []ParseError `json:"errors,omitempty"`
}

// Validate runs the lexer and parser only. Oversized input is rejected
// before any parsing.
func Validate(source string, opts ...Option) ValidationResult {
	o := buildOptions(opts)
	tokens, err := LexWithLimit(source, o.Limits.MaxTokens)
	if err != nil {
		var lexErr *LexError
		res := ValidationResult{Reason: err.Error()}
		if errors.As(err, &lexErr) {
			res.Errors = []ParseError{{Message: lexErr.Message, Line: lexErr.Line, Column: lexErr.Column}}
		}
		return res
	}
	_, perrs := ParseWithLimits(tokens, o.Limits)
	if len(perrs) > 0 {
		return ValidationResult{Reason: perrs[0].Error(), Errors: perrs}
	}
	return ValidationResult{Valid: true}
}
