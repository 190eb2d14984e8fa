package compiler

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type lexed struct {
	Type   TokenType
	Lexeme string
}

// stripPositions keeps only type and lexeme so tables stay readable.
func stripPositions(tokens []Token) []lexed {
	out := make([]lexed, len(tokens))
	for i, t := range tokens {
		lexeme := t.Lexeme
		if t.Type == NEWLINE {
			lexeme = ""
		}
		out[i] = lexed{t.Type, lexeme}
	}
	return out
}

func TestLex(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []lexed
	}{
		{
			name:     "Empty",
			input:    "",
			expected: []lexed{{EOF, ""}},
		},
		{
			name:  "Declaration",
			input: "x = 1 + 2",
			expected: []lexed{
				{IDENTIFIER, "x"},
				{OPERATOR, "="},
				{NUMBER, "1"},
				{OPERATOR, "+"},
				{NUMBER, "2"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Word Operators And Literals",
			input: "not true and na or #FF0000",
			expected: []lexed{
				{OPERATOR, "not"},
				{BOOLEAN, "true"},
				{OPERATOR, "and"},
				{NA, "na"},
				{OPERATOR, "or"},
				{COLOR, "#FF0000"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Multi Character Operators",
			input: ":= => >= += a.b",
			expected: []lexed{
				{OPERATOR, ":="},
				{OPERATOR, "=>"},
				{OPERATOR, ">="},
				{OPERATOR, "+="},
				{IDENTIFIER, "a"},
				{DOT, "."},
				{IDENTIFIER, "b"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Numbers",
			input: "1.5 .5 2e3 1e-2 14",
			expected: []lexed{
				{NUMBER, "1.5"},
				{NUMBER, ".5"},
				{NUMBER, "2e3"},
				{NUMBER, "1e-2"},
				{NUMBER, "14"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Keywords",
			input: "for i = 0 to 10 by 2",
			expected: []lexed{
				{KEYWORD, "for"},
				{IDENTIFIER, "i"},
				{OPERATOR, "="},
				{NUMBER, "0"},
				{KEYWORD, "to"},
				{NUMBER, "10"},
				{KEYWORD, "by"},
				{NUMBER, "2"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Indentation",
			input: "if a\n    b\nc\n",
			expected: []lexed{
				{KEYWORD, "if"},
				{IDENTIFIER, "a"},
				{NEWLINE, ""},
				{INDENT, ""},
				{IDENTIFIER, "b"},
				{NEWLINE, ""},
				{DEDENT, ""},
				{IDENTIFIER, "c"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Dedent At End Of Input",
			input: "f() =>\n    1",
			expected: []lexed{
				{IDENTIFIER, "f"},
				{LPAREN, "("},
				{RPAREN, ")"},
				{OPERATOR, "=>"},
				{NEWLINE, ""},
				{INDENT, ""},
				{NUMBER, "1"},
				{NEWLINE, ""},
				{DEDENT, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Newlines Inside Parentheses",
			input: "f(a,\n  b)\n",
			expected: []lexed{
				{IDENTIFIER, "f"},
				{LPAREN, "("},
				{IDENTIFIER, "a"},
				{COMMA, ","},
				{IDENTIFIER, "b"},
				{RPAREN, ")"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Comments",
			input: "x // trailing\n/* block\nspanning */ y",
			expected: []lexed{
				{IDENTIFIER, "x"},
				{NEWLINE, ""},
				{IDENTIFIER, "y"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
		{
			name:  "Blank And Comment Lines Keep Indentation",
			input: "if a\n    b\n\n// note\n    c\n",
			expected: []lexed{
				{KEYWORD, "if"},
				{IDENTIFIER, "a"},
				{NEWLINE, ""},
				{INDENT, ""},
				{IDENTIFIER, "b"},
				{NEWLINE, ""},
				{IDENTIFIER, "c"},
				{NEWLINE, ""},
				{DEDENT, ""},
				{EOF, ""},
			},
		},
		{
			name:  "CRLF",
			input: "a\r\nb",
			expected: []lexed{
				{IDENTIFIER, "a"},
				{NEWLINE, ""},
				{IDENTIFIER, "b"},
				{NEWLINE, ""},
				{EOF, ""},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex() error = %v", err)
			}
			got := stripPositions(tokens)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Lex() =\n%v\nwant\n%v", got, tt.expected)
			}
		})
	}
}

func TestLexStrings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`"hello"`, "hello"},
		{`'single'`, "single"},
		{`"bad\"; drop --"`, `bad"; drop --`},
		{`"tab\there"`, "tab\there"},
		{`"line\nbreak"`, "line\nbreak"},
		{`"A\x42"`, "AB"},
		{`'it\'s'`, "it's"},
	}
	for _, tt := range tests {
		tokens, err := Lex(tt.input)
		if err != nil {
			t.Errorf("Lex(%s) error = %v", tt.input, err)
			continue
		}
		if tokens[0].Type != STRING || tokens[0].Lexeme != tt.expected {
			t.Errorf("Lex(%s) = %v %q, want STRING %q", tt.input, tokens[0].Type, tokens[0].Lexeme, tt.expected)
		}
	}
}

func TestLexPositions(t *testing.T) {
	tokens, err := Lex("x = 1\n  \ny := x[1]")
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	expected := []struct {
		lexeme    string
		line, col int
	}{
		{"x", 1, 1},
		{"=", 1, 3},
		{"1", 1, 5},
		{"y", 3, 1},
		{":=", 3, 3},
		{"x", 3, 6},
		{"[", 3, 7},
	}
	i := 0
	for _, tok := range tokens {
		if tok.Type == NEWLINE || i >= len(expected) {
			continue
		}
		want := expected[i]
		if tok.Lexeme != want.lexeme || tok.Line != want.line || tok.Column != want.col {
			t.Errorf("token %d = %q at %d:%d, want %q at %d:%d",
				i, tok.Lexeme, tok.Line, tok.Column, want.lexeme, want.line, want.col)
		}
		i++
	}
}

func TestLexErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		line    int
		column  int
		message string
	}{
		{"Unterminated String", `x = "abc`, 1, 5, "unterminated string literal"},
		{"String Across Newline", "x = 'abc\ny = 1", 1, 5, "unterminated string literal"},
		{"Unterminated Block Comment", "a\n  /* abc", 2, 3, "unterminated block comment"},
		{"Unexpected Character", "x = 1 @ 2", 1, 7, "unexpected character '@'"},
		{"Bad Dedent", "if a\n    b\n  c\n", 3, 3, "unindent does not match any outer indentation level"},
		{"Bare Hash", "x = #", 1, 5, "unexpected character '#'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Lex(tt.input)
			if err == nil {
				t.Fatalf("Expected an error, got nil")
			}
			var lexErr *LexError
			if !errors.As(err, &lexErr) {
				t.Fatalf("Expected *LexError, got %T", err)
			}
			if lexErr.Line != tt.line || lexErr.Column != tt.column {
				t.Errorf("Position = %d:%d, want %d:%d", lexErr.Line, lexErr.Column, tt.line, tt.column)
			}
			if lexErr.Message != tt.message {
				t.Errorf("Message = %q, want %q", lexErr.Message, tt.message)
			}
		})
	}
}

func TestLexTokenLimit(t *testing.T) {
	_, err := LexWithLimit("a b c d e f", 3)
	if !errors.Is(err, ErrTooManyTokens) {
		t.Fatalf("Expected ErrTooManyTokens, got %v", err)
	}

	if _, err := LexWithLimit("a b", 10); err != nil {
		t.Errorf("Unexpected error under the limit: %v", err)
	}
}

// Every INDENT is matched by a later DEDENT and the depth never goes negative.
func TestLexIndentBalance(t *testing.T) {
	sources := []string{
		"a",
		"if a\n    b",
		"if a\n    if b\n        c\n    d\ne",
		"f(x) =>\n    y = x\n    switch y\n        1 => 2\n        => 3\n",
		"if a\n\tb\n\t\tc\n",
		"while true\n    x := 1\n\n\n",
	}
	for _, src := range sources {
		tokens, err := Lex(src)
		if err != nil {
			t.Errorf("Lex(%q) error = %v", src, err)
			continue
		}
		depth := 0
		for _, tok := range tokens {
			switch tok.Type {
			case INDENT:
				depth++
			case DEDENT:
				depth--
			}
			if depth < 0 {
				t.Errorf("Lex(%q): depth went negative", src)
				break
			}
		}
		if depth != 0 {
			t.Errorf("Lex(%q): %d unmatched INDENT tokens", src, depth)
		}
		if last := tokens[len(tokens)-1]; last.Type != EOF {
			t.Errorf("Lex(%q): last token is %v, want EOF", src, last.Type)
		}
	}
}

func TestLexLargeInput(t *testing.T) {
	src := strings.Repeat("x = x + 1\n", 1000)
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	// six tokens per line plus EOF
	if len(tokens) != 6001 {
		t.Errorf("Expected 6001 tokens, got %d", len(tokens))
	}
}
