// Package compiler translates Pine Script indicator sources into JavaScript
// for a per-bar host runtime.
//
// Pipeline: source → NormalizeSource → Lex → Parse → Visit (metadata) →
// Generate → JavaScript text. Transpile and Validate wrap the pipeline and
// never panic.
package compiler
