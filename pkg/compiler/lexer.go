package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTooManyTokens is wrapped by the LexError returned when a source
// produces more tokens than the configured ceiling.
var ErrTooManyTokens = errors.New("token limit exceeded")

// LexError is a fatal lexical error. Lexing stops at the first one.
type LexError struct {
	Message string
	Line    int
	Column  int
	Err     error
}

func (e *LexError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

func (e *LexError) Unwrap() error { return e.Err }

// tabWidth is the number of spaces a tab counts for in indentation.
const tabWidth = 4

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // current 1-based column

	indents   []int // indentation stack, bottom is always 0
	nesting   int   // open ( and [ ; newlines inside them are insignificant
	tokens    []Token
	maxTokens int
}

func newLexer(src string, maxTokens int) *Lexer {
	return &Lexer{
		src:       []rune(src),
		line:      1,
		col:       1,
		indents:   []int{0},
		maxTokens: maxTokens,
	}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.src) }

func (l *Lexer) errorf(line, col int, format string, args ...any) *LexError {
	return &LexError{Message: fmt.Sprintf(format, args...), Line: line, Column: col}
}

// emit appends a token that spans from start to the current position.
func (l *Lexer) emit(tt TokenType, lexeme string, line, col, start int) {
	l.tokens = append(l.tokens, Token{
		Type:   tt,
		Lexeme: lexeme,
		Line:   line,
		Column: col,
		Start:  start,
		End:    l.pos,
	})
}

func (l *Lexer) lastType() TokenType {
	if len(l.tokens) == 0 {
		return EOF
	}
	return l.tokens[len(l.tokens)-1].Type
}

// emitNewline appends a NEWLINE unless the stream is empty or already ends
// with one; blank lines never produce empty statements.
func (l *Lexer) emitNewline(line, col int) {
	if len(l.tokens) == 0 || l.lastType() == NEWLINE {
		return
	}
	l.tokens = append(l.tokens, Token{Type: NEWLINE, Lexeme: "\n", Line: line, Column: col, Start: l.pos - 1, End: l.pos})
}

// skipInlineSpace discards spaces and tabs but never a newline.
func (l *Lexer) skipInlineSpace() {
	for !l.atEOF() && (l.peek() == ' ' || l.peek() == '\t') {
		l.advance()
	}
}

// skipLineComment discards everything up to, but not including, the newline.
// The opening "//" must still be at the current position.
func (l *Lexer) skipLineComment() {
	for !l.atEOF() && l.peek() != '\n' {
		l.advance()
	}
}

// skipBlockComment discards a possibly nested /* ... */ comment.
// The opening "/*" must still be at the current position.
func (l *Lexer) skipBlockComment() error {
	line, col := l.line, l.col
	depth := 0
	for !l.atEOF() {
		if l.peek() == '/' && l.peek2() == '*' {
			l.advance()
			l.advance()
			depth++
			continue
		}
		if l.peek() == '*' && l.peek2() == '/' {
			l.advance()
			l.advance()
			depth--
			if depth == 0 {
				return nil
			}
			continue
		}
		l.advance()
	}
	return l.errorf(line, col, "unterminated block comment")
}

// measureIndent consumes the leading whitespace of the current line and
// returns its width. The second result is false for lines whose indentation
// must not be evaluated: blank lines, comment-only lines, and end of input.
func (l *Lexer) measureIndent() (int, bool) {
	width := 0
scan:
	for !l.atEOF() {
		switch l.peek() {
		case ' ':
			width++
		case '\t':
			width += tabWidth
		default:
			break scan
		}
		l.advance()
	}
	if l.atEOF() || l.peek() == '\n' {
		return 0, false
	}
	if l.peek() == '/' && (l.peek2() == '/' || l.peek2() == '*') {
		return 0, false
	}
	return width, true
}

// handleIndent runs at the start of every physical line outside brackets and
// emits INDENT or DEDENT tokens when the indentation level changes.
func (l *Lexer) handleIndent() error {
	line := l.line
	width, ok := l.measureIndent()
	if !ok {
		return nil
	}
	col, start := l.col, l.pos

	top := l.indents[len(l.indents)-1]
	if width > top {
		l.indents = append(l.indents, width)
		l.tokens = append(l.tokens, Token{Type: INDENT, Line: line, Column: col, Start: start, End: start})
		return nil
	}
	for width < top {
		l.indents = l.indents[:len(l.indents)-1]
		l.tokens = append(l.tokens, Token{Type: DEDENT, Line: line, Column: col, Start: start, End: start})
		top = l.indents[len(l.indents)-1]
	}
	if width != top {
		return l.errorf(line, col, "unindent does not match any outer indentation level")
	}
	return nil
}

// scanIdent collects an identifier, keyword, word operator, or the literals
// true, false, and na. The first rune must still be at l.peek().
func (l *Lexer) scanIdent() {
	line, col, start := l.line, l.col, l.pos
	for !l.atEOF() && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	switch {
	case lexeme == "true" || lexeme == "false":
		tt = BOOLEAN
	case lexeme == "na":
		tt = NA
	case wordOperators[lexeme]:
		tt = OPERATOR
	case keywords[lexeme]:
		tt = KEYWORD
	}
	l.emit(tt, lexeme, line, col, start)
}

// scanNumber collects 12, 1.5, .5, 1., and exponent forms such as 2.5e-3.
func (l *Lexer) scanNumber() {
	line, col, start := l.line, l.col, l.pos
	for isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	if l.peek() == 'e' || l.peek() == 'E' {
		next := l.peek2()
		if isDigit(next) || ((next == '+' || next == '-') && l.pos+2 < len(l.src) && isDigit(l.src[l.pos+2])) {
			l.advance() // e
			if l.peek() == '+' || l.peek() == '-' {
				l.advance()
			}
			for isDigit(l.peek()) {
				l.advance()
			}
		}
	}
	l.emit(NUMBER, string(l.src[start:l.pos]), line, col, start)
}

// scanString collects a single- or double-quoted string and decodes its
// escape sequences. The opening quote must still be at l.peek().
func (l *Lexer) scanString() error {
	line, col, start := l.line, l.col, l.pos
	quote := l.advance()
	var sb strings.Builder

	for {
		if l.atEOF() {
			return l.errorf(line, col, "unterminated string literal")
		}
		r := l.peek()
		if r == quote {
			l.advance()
			break
		}
		if r == '\n' {
			return l.errorf(line, col, "unterminated string literal")
		}
		if r != '\\' {
			sb.WriteRune(l.advance())
			continue
		}

		l.advance() // backslash
		if l.atEOF() {
			return l.errorf(line, col, "unterminated string literal")
		}
		esc := l.advance()
		switch esc {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		case '0':
			sb.WriteByte(0)
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '\n':
			// escaped newline continues the literal on the next line
		case 'x':
			if v, ok := l.scanHex(2); ok {
				sb.WriteRune(v)
			} else {
				sb.WriteRune('x')
			}
		case 'u':
			if v, ok := l.scanHex(4); ok {
				sb.WriteRune(v)
			} else {
				sb.WriteRune('u')
			}
		default:
			// \\, \", \' and unknown escapes keep the escaped rune
			sb.WriteRune(esc)
		}
	}

	l.emit(STRING, sb.String(), line, col, start)
	return nil
}

// scanHex consumes exactly n hex digits and returns their value. Nothing is
// consumed when fewer than n digits follow.
func (l *Lexer) scanHex(n int) (rune, bool) {
	if l.pos+n > len(l.src) {
		return 0, false
	}
	var v rune
	for i := 0; i < n; i++ {
		d := hexValue(l.src[l.pos+i])
		if d < 0 {
			return 0, false
		}
		v = v*16 + rune(d)
	}
	for i := 0; i < n; i++ {
		l.advance()
	}
	return v, true
}

// scanColor collects #RGB, #RRGGBB, or #RRGGBBAA literals.
func (l *Lexer) scanColor() error {
	line, col, start := l.line, l.col, l.pos
	l.advance() // #
	for hexValue(l.peek()) >= 0 {
		l.advance()
	}
	if l.pos-start == 1 {
		return l.errorf(line, col, "unexpected character '#'")
	}
	l.emit(COLOR, string(l.src[start:l.pos]), line, col, start)
	return nil
}

// scanOperator matches the longest operator at the current position.
func (l *Lexer) scanOperator() bool {
	line, col, start := l.line, l.col, l.pos
	for _, op := range operators {
		if l.hasPrefix(op) {
			for range op {
				l.advance()
			}
			l.emit(OPERATOR, op, line, col, start)
			return true
		}
	}
	return false
}

func (l *Lexer) hasPrefix(s string) bool {
	i := l.pos
	for _, r := range s {
		if i >= len(l.src) || l.src[i] != r {
			return false
		}
		i++
	}
	return true
}

var punctuation = map[rune]TokenType{
	'(': LPAREN,
	')': RPAREN,
	'[': LBRACKET,
	']': RBRACKET,
	'{': LBRACE,
	'}': RBRACE,
	',': COMMA,
	'.': DOT,
	':': COLON,
}

// next scans one token, comment, or newline.
func (l *Lexer) next() error {
	ch := l.peek()
	switch {
	case ch == '\n':
		line, col := l.line, l.col
		l.advance()
		if l.nesting > 0 {
			return nil
		}
		l.emitNewline(line, col)
		return l.handleIndent()

	case ch == '/' && l.peek2() == '/':
		l.skipLineComment()
		return nil

	case ch == '/' && l.peek2() == '*':
		return l.skipBlockComment()

	case isIdentStart(ch):
		l.scanIdent()
		return nil

	case isDigit(ch) || (ch == '.' && isDigit(l.peek2())):
		l.scanNumber()
		return nil

	case ch == '"' || ch == '\'':
		return l.scanString()

	case ch == '#':
		return l.scanColor()
	}

	if l.scanOperator() {
		return nil
	}

	if tt, ok := punctuation[ch]; ok {
		line, col, start := l.line, l.col, l.pos
		l.advance()
		switch tt {
		case LPAREN, LBRACKET:
			l.nesting++
		case RPAREN, RBRACKET:
			if l.nesting > 0 {
				l.nesting--
			}
		}
		l.emit(tt, string(ch), line, col, start)
		return nil
	}
	return l.errorf(l.line, l.col, "unexpected character %q", ch)
}

func (l *Lexer) run() error {
	if err := l.handleIndent(); err != nil {
		return err
	}
	for {
		l.skipInlineSpace()
		if l.atEOF() {
			break
		}
		if err := l.next(); err != nil {
			return err
		}
		if l.maxTokens > 0 && len(l.tokens) > l.maxTokens {
			return &LexError{
				Message: fmt.Sprintf("source exceeds the limit of %d tokens", l.maxTokens),
				Line:    l.line,
				Column:  l.col,
				Err:     ErrTooManyTokens,
			}
		}
	}

	l.emitNewline(l.line, l.col)
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.tokens = append(l.tokens, Token{Type: DEDENT, Line: l.line, Column: l.col, Start: l.pos, End: l.pos})
	}
	l.tokens = append(l.tokens, Token{Type: EOF, Line: l.line, Column: l.col, Start: l.pos, End: l.pos})
	return nil
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a *LexError on the first malformed token.
func Lex(src string) ([]Token, error) {
	return LexWithLimit(src, 0)
}

// LexWithLimit is Lex with a ceiling on the number of tokens; zero means
// unlimited. Exceeding the ceiling stops scanning immediately.
func LexWithLimit(src string, maxTokens int) ([]Token, error) {
	l := newLexer(NormalizeSource(src), maxTokens)
	if err := l.run(); err != nil {
		return l.tokens, err
	}
	return l.tokens, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '_'
}

func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }

func hexValue(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return int(r - '0')
	case r >= 'a' && r <= 'f':
		return int(r-'a') + 10
	case r >= 'A' && r <= 'F':
		return int(r-'A') + 10
	}
	return -1
}
