package compiler

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// safePrefix is prepended to source names that would collide with the
// JavaScript runtime or with names the generator owns.
const safePrefix = "_pine_"

// reservedNames cannot be used as variable or parameter names in the output.
var reservedNames = map[string]bool{
	// keywords and strict-mode reserved words
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true,
	"do": true, "else": true, "enum": true, "export": true, "extends": true,
	"false": true, "finally": true, "for": true, "function": true, "if": true,
	"import": true, "in": true, "instanceof": true, "new": true, "null": true,
	"return": true, "super": true, "switch": true, "this": true, "throw": true,
	"true": true, "try": true, "typeof": true, "var": true, "void": true,
	"while": true, "with": true, "yield": true, "let": true, "static": true,
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "await": true, "async": true,

	// globals a script must not shadow or reach
	"arguments": true, "eval": true, "undefined": true, "NaN": true,
	"Infinity": true, "constructor": true, "prototype": true,
	"__proto__": true, "Function": true, "Object": true, "Array": true,
	"Number": true, "String": true, "Boolean": true, "Symbol": true,
	"Math": true, "JSON": true, "Date": true, "Error": true, "Reflect": true,
	"Proxy": true, "Promise": true, "globalThis": true, "window": true,
	"self": true, "document": true, "process": true, "require": true,
	"module": true, "exports": true, "setTimeout": true, "setInterval": true,
	"fetch": true, "isNaN": true, "isFinite": true,

	// runtime ABI
	"ctx": true, "main": true,
}

// generatedPrefixes are reserved for generator-emitted helpers.
var generatedPrefixes = []string{
	"_series_", "_getHistorical_", "_var_", "_loop", "_switch", "_wrapSeries",
	"_import", "_ta", "_rt", "_pine_",
}

// dangerousMembers would reach object internals through member access.
var dangerousMembers = map[string]bool{
	"constructor":      true,
	"prototype":        true,
	"__proto__":        true,
	"__defineGetter__": true,
	"__defineSetter__": true,
	"__lookupGetter__": true,
	"__lookupSetter__": true,
}

// sanitizeIdent maps a source identifier to the name used in the output.
// The mapping is a pure function of the name, so declarations and uses
// always agree.
func sanitizeIdent(name string) string {
	if reservedNames[name] {
		return safePrefix + name
	}
	for _, p := range generatedPrefixes {
		if strings.HasPrefix(name, p) {
			return safePrefix + name
		}
	}
	return name
}

// sanitizeMember maps a member or object key name.
func sanitizeMember(name string) string {
	if dangerousMembers[name] {
		return safePrefix + name
	}
	return name
}

// jsString renders s as a double-quoted JavaScript string literal. JSON
// string syntax is a subset of JavaScript's; encoding/json also escapes <,
// > and & and the U+2028/U+2029 line terminators.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// strings always marshal; keep the output well-formed regardless
		return `""`
	}
	return string(b)
}

// jsNumber renders a numeric literal in canonical form. Leading zeros would
// read as legacy octal, which strict mode rejects.
func jsNumber(lit string) string {
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
