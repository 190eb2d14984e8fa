package compiler

import (
	"strconv"
	"strings"

	"github.com/dlclark/regexp2"
)

// versionPragma matches the digits of a //@version=N pragma that starts a
// line. The lookbehind keeps the digits as the whole match.
var versionPragma = regexp2.MustCompile(`(?<=^[ \t]*//[ \t]*@version[ \t]*=[ \t]*)\d+`, regexp2.Multiline)

// NormalizeSource converts CRLF and lone CR line endings to LF and drops a
// leading byte-order mark.
func NormalizeSource(src string) string {
	src = strings.TrimPrefix(src, "\ufeff")
	if !strings.ContainsRune(src, '\r') {
		return src
	}
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.ReplaceAll(src, "\r", "\n")
}

// DetectVersion returns the language version declared by the first
// //@version pragma in src.
func DetectVersion(src string) (int, bool) {
	m, err := versionPragma.FindStringMatch(src)
	if err != nil || m == nil {
		return 0, false
	}
	v, err := strconv.Atoi(m.String())
	if err != nil {
		return 0, false
	}
	return v, true
}
