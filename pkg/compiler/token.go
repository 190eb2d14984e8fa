package compiler

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // variable / function name
	NUMBER     // integer or decimal literal, optional exponent
	STRING     // string literal, Lexeme holds the decoded value
	BOOLEAN    // true / false
	COLOR      // #RRGGBB or #RRGGBBAA
	NA         // na

	KEYWORD  // if, for, switch, ...
	OPERATOR // arithmetic, comparison, assignment, and/or/not, ?, =>

	// Punctuation
	LPAREN   // (
	RPAREN   // )
	LBRACKET // [
	RBRACKET // ]
	LBRACE   // {
	RBRACE   // }
	COMMA    // ,
	DOT      // .
	COLON    // :

	// Layout
	NEWLINE // end of a logical line
	INDENT  // block opened by deeper indentation
	DEDENT  // block closed by shallower indentation
)

// tokenNames is indexed by TokenType.
var tokenNames = [...]string{
	EOF:        "EOF",
	IDENTIFIER: "IDENTIFIER",
	NUMBER:     "NUMBER",
	STRING:     "STRING",
	BOOLEAN:    "BOOLEAN",
	COLOR:      "COLOR",
	NA:         "NA",
	KEYWORD:    "KEYWORD",
	OPERATOR:   "OPERATOR",
	LPAREN:     "LPAREN",
	RPAREN:     "RPAREN",
	LBRACKET:   "LBRACKET",
	RBRACKET:   "RBRACKET",
	LBRACE:     "LBRACE",
	RBRACE:     "RBRACE",
	COMMA:      "COMMA",
	DOT:        "DOT",
	COLON:      "COLON",
	NEWLINE:    "NEWLINE",
	INDENT:     "INDENT",
	DEDENT:     "DEDENT",
}

func (tt TokenType) String() string {
	if int(tt) >= 0 && int(tt) < len(tokenNames) {
		return tokenNames[tt]
	}
	return fmt.Sprintf("TokenType(%d)", int(tt))
}

// keywords maps source text to KEYWORD tokens.
var keywords = map[string]bool{
	"if":       true,
	"else":     true,
	"for":      true,
	"to":       true,
	"by":       true,
	"in":       true,
	"while":    true,
	"var":      true,
	"varip":    true,
	"return":   true,
	"break":    true,
	"continue": true,
	"switch":   true,
	"type":     true,
	"import":   true,
	"export":   true,
	"method":   true,
	"as":       true,
}

// wordOperators are spelled like identifiers but lexed as OPERATOR.
var wordOperators = map[string]bool{
	"and": true,
	"or":  true,
	"not": true,
}

// operators is ordered longest first so that matching by prefix never
// splits ":=" into ":" and "=".
var operators = []string{
	":=", "==", "!=", ">=", "<=", "=>", "+=", "-=", "*=", "/=", "%=",
	"=", "+", "-", "*", "/", "%", ">", "<", "?",
}

// Token is a single lexical unit produced by the Lexer.
type Token struct {
	Type   TokenType
	Lexeme string // source text, or the decoded value for STRING
	Line   int    // 1-based source line
	Column int    // 1-based column of the first rune
	Start  int    // rune offset of the first rune
	End    int    // rune offset one past the last rune
}

func (t Token) String() string {
	return fmt.Sprintf("%-10s %-14q  %d:%d", t.Type, t.Lexeme, t.Line, t.Column)
}

// Is reports whether t has the given type and lexeme.
func (t Token) Is(tt TokenType, lexeme string) bool {
	return t.Type == tt && t.Lexeme == lexeme
}

// IsKeyword reports whether t is the keyword kw.
func (t Token) IsKeyword(kw string) bool { return t.Is(KEYWORD, kw) }

// IsOp reports whether t is the operator op.
func (t Token) IsOp(op string) bool { return t.Is(OPERATOR, op) }
