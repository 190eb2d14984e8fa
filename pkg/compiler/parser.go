package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program    = (statement NEWLINE)* EOF
//	statement  = ifStmt | whileStmt | forStmt | switch | typeDecl | import
//	           | export | "method" funcDecl | funcDecl | varDecl | simple
//	           | "return" [expression] | "break" | "continue"
//	varDecl    = ["var" | "varip"] [type] IDENTIFIER "=" expression
//	           | "[" IDENTIFIER ("," IDENTIFIER)* "]" "=" expression
//	funcDecl   = IDENTIFIER "(" params ")" "=>" (simple | block)
//	simple     = expression [("=" | ":=" | "+=" | "-=" | "*=" | "/=" | "%=") expression]
//	block      = NEWLINE INDENT (statement NEWLINE)* DEDENT
//	expression = or ["?" expression ":" expression]
//	or         = and ("or" and)*
//	and        = equality ("and" equality)*
//	equality   = relational (("==" | "!=") relational)*
//	relational = additive ((">" | "<" | ">=" | "<=") additive)*
//	additive   = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = unary (("*" | "/" | "%") unary)*
//	unary      = ("not" | "-" | "+") unary | postfix
//	postfix    = primary ("(" args ")" | "<" types ">" "(" args ")" | "." IDENTIFIER | "[" expression "]")*
//	primary    = NUMBER | STRING | BOOLEAN | NA | COLOR | IDENTIFIER
//	           | "(" expression ")" | "[" expressions "]" | switch | if
type Parser struct {
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
	errors   []ParseError
}

// Default resource ceilings.
const (
	DefaultMaxTokens = 100000
	DefaultMaxDepth  = 200
	DefaultLoopLimit = 10000
)

// maxErrors stops error collection on hopelessly malformed input.
const maxErrors = 50

// Limits caps the work a single parse may do. Zero fields mean unlimited.
type Limits struct {
	MaxTokens int
	MaxDepth  int
}

// DefaultLimits returns the ceilings used by Parse and Transpile.
func DefaultLimits() Limits {
	return Limits{MaxTokens: DefaultMaxTokens, MaxDepth: DefaultMaxDepth}
}

// ParseError is a recoverable syntax error. Token holds the offending text.
type ParseError struct {
	Message string
	Line    int
	Column  int
	Token   string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Line, e.Column, e.Message)
}

// Parse builds a Program from tokens using DefaultLimits.
func Parse(tokens []Token) (*Program, []ParseError) {
	return ParseWithLimits(tokens, DefaultLimits())
}

// ParseWithLimits builds a Program from tokens. Syntax errors do not stop the
// parse: the returned Program holds every statement that parsed cleanly.
func ParseWithLimits(tokens []Token, limits Limits) (*Program, []ParseError) {
	prog := &Program{}
	if limits.MaxTokens > 0 && len(tokens) > limits.MaxTokens {
		return prog, []ParseError{{
			Message: fmt.Sprintf("token limit exceeded: %d tokens (limit %d)", len(tokens), limits.MaxTokens),
			Line:    1,
			Column:  1,
		}}
	}
	p := &Parser{tokens: tokens, maxDepth: limits.MaxDepth}
	prog.Stmts = p.parseProgram()
	return prog, p.errors
}

func (p *Parser) parseProgram() []Stmt {
	var stmts []Stmt
	for p.peek().Type != EOF {
		switch p.peek().Type {
		case NEWLINE, INDENT, DEDENT:
			p.advance()
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			p.record(err)
			if len(p.errors) >= maxErrors {
				break
			}
			p.synchronize()
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts
}

func (p *Parser) record(err error) {
	var pe ParseError
	if errors.As(err, &pe) {
		p.errors = append(p.errors, pe)
		return
	}
	tok := p.peek()
	p.errors = append(p.errors, ParseError{Message: err.Error(), Line: tok.Line, Column: tok.Column, Token: tokenText(tok)})
}

// synchronize skips at least one token, then stops after a NEWLINE or before
// a token that can start a statement or closes a bracket.
func (p *Parser) synchronize() {
	p.advance()
	for p.peek().Type != EOF {
		if p.pos > 0 && p.tokens[p.pos-1].Type == NEWLINE {
			return
		}
		tok := p.peek()
		switch tok.Type {
		case RPAREN, RBRACKET, RBRACE:
			return
		case KEYWORD:
			if statementKeywords[tok.Lexeme] {
				return
			}
		}
		p.advance()
	}
}

var statementKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "var": true, "varip": true,
	"return": true, "break": true, "continue": true, "switch": true,
	"type": true, "import": true, "export": true, "method": true,
}

//  Token helpers

func (p *Parser) peek() Token { return p.peekAt(0) }

func (p *Parser) peekNext() Token { return p.peekAt(1) }

func (p *Parser) peekAt(offset int) Token {
	if p.pos+offset >= len(p.tokens) {
		if len(p.tokens) > 0 {
			last := p.tokens[len(p.tokens)-1]
			return Token{Type: EOF, Line: last.Line, Column: last.Column}
		}
		return Token{Type: EOF, Line: 1, Column: 1}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) prevType() TokenType {
	if p.pos == 0 {
		return EOF
	}
	return p.tokens[p.pos-1].Type
}

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	return ParseError{
		Message: fmt.Sprintf(format, args...),
		Line:    tok.Line,
		Column:  tok.Column,
		Token:   tokenText(tok),
	}
}

func tokenText(tok Token) string {
	switch tok.Type {
	case EOF:
		return "end of input"
	case NEWLINE:
		return "newline"
	case INDENT:
		return "indent"
	case DEDENT:
		return "dedent"
	}
	return tok.Lexeme
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.peek()
	if tok.Type != tt {
		return tok, p.errorf(tok, "expected %s, got %q", tt, tokenText(tok))
	}
	return p.advance(), nil
}

func (p *Parser) expectOp(op string) (Token, error) {
	tok := p.peek()
	if !tok.IsOp(op) {
		return tok, p.errorf(tok, "expected %q, got %q", op, tokenText(tok))
	}
	return p.advance(), nil
}

func (p *Parser) expectKeyword(kw string) (Token, error) {
	tok := p.peek()
	if !tok.IsKeyword(kw) {
		return tok, p.errorf(tok, "expected %q, got %q", kw, tokenText(tok))
	}
	return p.advance(), nil
}

func (p *Parser) atLineEnd() bool {
	switch p.peek().Type {
	case NEWLINE, EOF, DEDENT:
		return true
	}
	return false
}

// endStatement consumes the NEWLINE that terminates a statement. Statements
// that closed an indented block have already consumed their terminator.
func (p *Parser) endStatement() error {
	if p.prevType() == DEDENT {
		return nil
	}
	switch p.peek().Type {
	case NEWLINE:
		p.advance()
		return nil
	case EOF, DEDENT:
		return nil
	}
	tok := p.peek()
	return p.errorf(tok, "unexpected %q after statement", tokenText(tok))
}

func (p *Parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		p.depth--
		tok := p.peek()
		return p.errorf(tok, "maximum recursion depth of %d exceeded", p.maxDepth)
	}
	return nil
}

func (p *Parser) leave() { p.depth-- }

// attempt runs fn from the current position and rewinds when it fails, so
// callers can try one reading of the input before falling back to another.
func attempt[T any](p *Parser, fn func() (T, error)) (T, bool) {
	mark, depth := p.pos, p.depth
	v, err := fn()
	if err != nil {
		p.pos, p.depth = mark, depth
		var zero T
		return zero, false
	}
	return v, true
}

//  Statements

func (p *Parser) parseStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Type {
	case KEYWORD:
		return p.parseKeywordStatement()
	case LBRACKET:
		if head, ok := attempt(p, p.parseTupleHead); ok {
			return p.finishVarDecl(head)
		}
	case IDENTIFIER:
		if head, ok := attempt(p, p.parseFuncHead); ok {
			return p.finishFuncDecl(head)
		}
		if head, ok := attempt(p, func() (declHead, error) { return p.parseDeclHead(2) }); ok {
			return p.finishVarDecl(head)
		}
	}
	stmt, err := p.parseSimpleStatement()
	if err != nil {
		return nil, err
	}
	return stmt, p.endStatement()
}

func (p *Parser) parseKeywordStatement() (Stmt, error) {
	tok := p.peek()
	switch tok.Lexeme {
	case "if":
		cond, then, els, err := p.parseIfParts()
		if err != nil {
			return nil, err
		}
		return &IfStmt{Pos: posOf(tok), Cond: cond, Then: then, Else: els}, p.endStatement()

	case "while":
		p.advance()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &WhileStmt{Pos: posOf(tok), Cond: cond, Body: body}, p.endStatement()

	case "for":
		return p.parseFor()

	case "switch":
		disc, cases, err := p.parseSwitchParts()
		if err != nil {
			return nil, err
		}
		return &SwitchStmt{Pos: posOf(tok), Discriminant: disc, Cases: cases}, p.endStatement()

	case "return":
		p.advance()
		ret := &ReturnStmt{Pos: posOf(tok)}
		if !p.atLineEnd() {
			v, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return ret, p.endStatement()

	case "break":
		p.advance()
		return &BreakStmt{Pos: posOf(tok)}, p.endStatement()

	case "continue":
		p.advance()
		return &ContinueStmt{Pos: posOf(tok)}, p.endStatement()

	case "var", "varip":
		p.advance()
		head, err := p.parseDeclHead(1)
		if err != nil {
			return nil, err
		}
		head.qualifier = tok.Lexeme
		head.pos = posOf(tok)
		return p.finishVarDecl(head)

	case "type":
		return p.parseTypeDecl()

	case "import":
		return p.parseImport()

	case "export":
		p.advance()
		inner, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		switch inner.(type) {
		case *FuncDecl, *TypeDecl, *VarDecl:
		default:
			return nil, p.errorf(tok, "export must precede a function, type, or variable declaration")
		}
		return &ExportStmt{Pos: posOf(tok), Decl: inner}, nil

	case "method":
		p.advance()
		head, err := p.parseFuncHead()
		if err != nil {
			return nil, err
		}
		head.pos = posOf(tok)
		fn, err := p.finishFuncDecl(head)
		if err != nil {
			return nil, err
		}
		fn.(*FuncDecl).IsMethod = true
		return fn, nil
	}
	return nil, p.errorf(tok, "unexpected keyword %q", tok.Lexeme)
}

// parseSimpleStatement parses an expression and, when an assignment operator
// follows, the declaration or reassignment it forms.
func (p *Parser) parseSimpleStatement() (Stmt, error) {
	start := p.peek()
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	opTok := p.peek()
	if opTok.Type != OPERATOR {
		return &ExprStmt{Pos: posOf(start), Expr: expr}, nil
	}

	switch opTok.Lexeme {
	case "=":
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		switch target := expr.(type) {
		case *Ident:
			return &VarDecl{Pos: posOf(start), Name: target.Name, Value: value}, nil
		case *MemberExpr:
			return &Assignment{Pos: posOf(start), Target: target, Op: "=", Value: value}, nil
		}
		return nil, p.errorf(start, "cannot assign to %s", expr)

	case ":=", "+=", "-=", "*=", "/=", "%=":
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		switch expr.(type) {
		case *Ident, *MemberExpr:
			return &Assignment{Pos: posOf(start), Target: expr, Op: opTok.Lexeme, Value: value}, nil
		}
		return nil, p.errorf(start, "cannot assign to %s", expr)
	}
	return &ExprStmt{Pos: posOf(start), Expr: expr}, nil
}

// parseBlock parses NEWLINE INDENT statements DEDENT.
func (p *Parser) parseBlock() ([]Stmt, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	if _, err := p.expect(NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(INDENT); err != nil {
		return nil, err
	}
	var stmts []Stmt
	for {
		switch p.peek().Type {
		case NEWLINE:
			p.advance()
			continue
		case DEDENT:
			p.advance()
			return stmts, nil
		case EOF:
			return stmts, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
}

// parseBody parses either an indented block or a single simple statement on
// the current line, as used after "=>".
func (p *Parser) parseBody() ([]Stmt, error) {
	if p.peek().Type == NEWLINE {
		return p.parseBlock()
	}
	stmt, err := p.parseSimpleStatement()
	if err != nil {
		return nil, err
	}
	return []Stmt{stmt}, nil
}

// declHead is the part of a declaration before its value.
type declHead struct {
	pos       Pos
	qualifier string
	typ       string
	names     []string
	tuple     bool
}

// parseDeclHead parses "[type] name =" where the type may be several words
// ("series float", "array<int>", "float[]"). minWords is 2 when a type is
// required to tell the declaration apart from an expression statement.
func (p *Parser) parseDeclHead(minWords int) (declHead, error) {
	start := p.peek()
	words, err := p.parseTypedName()
	if err != nil {
		return declHead{}, err
	}
	if len(words) < minWords {
		return declHead{}, p.errorf(start, "expected a typed declaration")
	}
	if _, err := p.expectOp("="); err != nil {
		return declHead{}, err
	}
	return declHead{
		pos:   posOf(start),
		typ:   strings.Join(words[:len(words)-1], " "),
		names: words[len(words)-1:],
	}, nil
}

// parseTypedName reads a run of type words ending in a plain name. Every word
// but the last may carry a generic or array suffix.
func (p *Parser) parseTypedName() ([]string, error) {
	var words []string
	for {
		tok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		word := tok.Lexeme
		for p.peek().Type == DOT && p.peekNext().Type == IDENTIFIER {
			p.advance()
			word += "." + p.advance().Lexeme
		}
		if p.peek().IsOp("<") {
			args, err := p.parseTypeArgs()
			if err != nil {
				return nil, err
			}
			word += "<" + strings.Join(args, ", ") + ">"
		}
		if p.peek().Type == LBRACKET && p.peekNext().Type == RBRACKET {
			p.advance()
			p.advance()
			word += "[]"
		}
		words = append(words, word)
		if p.peek().Type != IDENTIFIER {
			break
		}
	}
	last := words[len(words)-1]
	if strings.ContainsAny(last, ".<[") {
		return nil, p.errorf(p.peek(), "expected a name after type %s", last)
	}
	return words, nil
}

func (p *Parser) parseTupleHead() (declHead, error) {
	start, err := p.expect(LBRACKET)
	if err != nil {
		return declHead{}, err
	}
	var names []string
	for {
		tok, err := p.expect(IDENTIFIER)
		if err != nil {
			return declHead{}, err
		}
		names = append(names, tok.Lexeme)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RBRACKET); err != nil {
		return declHead{}, err
	}
	if _, err := p.expectOp("="); err != nil {
		return declHead{}, err
	}
	return declHead{pos: posOf(start), names: names, tuple: true}, nil
}

func (p *Parser) finishVarDecl(head declHead) (Stmt, error) {
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	decl := &VarDecl{Pos: head.pos, Qualifier: head.qualifier, Type: head.typ, Value: value}
	if head.tuple {
		decl.Names = head.names
	} else {
		decl.Name = head.names[0]
	}
	return decl, p.endStatement()
}

// funcHead is the signature of a function declaration up to and including "=>".
type funcHead struct {
	pos    Pos
	name   string
	params []Param
}

func (p *Parser) parseFuncHead() (funcHead, error) {
	nameTok, err := p.expect(IDENTIFIER)
	if err != nil {
		return funcHead{}, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return funcHead{}, err
	}
	var params []Param
	for p.peek().Type != RPAREN {
		words, err := p.parseTypedName()
		if err != nil {
			return funcHead{}, err
		}
		param := Param{Name: words[len(words)-1], Type: strings.Join(words[:len(words)-1], " ")}
		if p.peek().IsOp("=") {
			p.advance()
			// defaults are accepted but not carried into the AST
			if _, err := p.parseExpression(); err != nil {
				return funcHead{}, err
			}
		}
		params = append(params, param)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return funcHead{}, err
	}
	if _, err := p.expectOp("=>"); err != nil {
		return funcHead{}, err
	}
	return funcHead{pos: posOf(nameTok), name: nameTok.Lexeme, params: params}, nil
}

func (p *Parser) finishFuncDecl(head funcHead) (Stmt, error) {
	body, err := p.parseBody()
	if err != nil {
		return nil, err
	}
	return &FuncDecl{Pos: head.pos, Name: head.name, Params: head.params, Body: body}, p.endStatement()
}

// parseIfParts parses "if cond block [else (if ... | block)]" and is shared by
// the statement and expression forms.
func (p *Parser) parseIfParts() (Expr, []Stmt, []Stmt, error) {
	if _, err := p.expectKeyword("if"); err != nil {
		return nil, nil, nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, nil, nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, nil, nil, err
	}
	if !p.peek().IsKeyword("else") {
		return cond, then, nil, nil
	}
	p.advance()

	if p.peek().IsKeyword("if") {
		tok := p.peek()
		c, t, e, err := p.parseIfParts()
		if err != nil {
			return nil, nil, nil, err
		}
		return cond, then, []Stmt{&IfStmt{Pos: posOf(tok), Cond: c, Then: t, Else: e}}, nil
	}
	els, err := p.parseBlock()
	if err != nil {
		return nil, nil, nil, err
	}
	return cond, then, els, nil
}

// parseSwitchParts parses a switch header and its indented case list.
func (p *Parser) parseSwitchParts() (Expr, []SwitchCase, error) {
	if _, err := p.expectKeyword("switch"); err != nil {
		return nil, nil, err
	}
	var disc Expr
	if p.peek().Type != NEWLINE {
		d, err := p.parseExpression()
		if err != nil {
			return nil, nil, err
		}
		disc = d
	}
	if err := p.enter(); err != nil {
		return nil, nil, err
	}
	defer p.leave()

	if _, err := p.expect(NEWLINE); err != nil {
		return nil, nil, err
	}
	if _, err := p.expect(INDENT); err != nil {
		return nil, nil, err
	}
	var cases []SwitchCase
	for {
		switch p.peek().Type {
		case NEWLINE:
			p.advance()
			continue
		case DEDENT:
			p.advance()
			return disc, cases, nil
		case EOF:
			return disc, cases, nil
		}

		var c SwitchCase
		if !p.peek().IsOp("=>") {
			test, err := p.parseExpression()
			if err != nil {
				return nil, nil, err
			}
			c.Test = test
		}
		if _, err := p.expectOp("=>"); err != nil {
			return nil, nil, err
		}
		body, err := p.parseBody()
		if err != nil {
			return nil, nil, err
		}
		c.Body = body
		if err := p.endStatement(); err != nil {
			return nil, nil, err
		}
		cases = append(cases, c)
	}
}

// parseFor handles the counting form and both for-in forms.
func (p *Parser) parseFor() (Stmt, error) {
	forTok := p.advance()

	if p.peek().Type == LBRACKET {
		p.advance()
		idx, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(COMMA); err != nil {
			return nil, err
		}
		item, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return p.finishForIn(forTok, idx.Lexeme, item.Lexeme)
	}

	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if p.peek().IsKeyword("in") {
		return p.finishForIn(forTok, "", name.Lexeme)
	}

	if _, err := p.expectOp("="); err != nil {
		return nil, err
	}
	from, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("to"); err != nil {
		return nil, err
	}
	to, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var step Expr
	if p.peek().IsKeyword("by") {
		p.advance()
		if step, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	pos := posOf(name)
	loopVar := func() *Ident { return &Ident{Pos: pos, Name: name.Lexeme} }
	descending := isNegativeLiteral(step) || (step == nil && literalGreater(from, to))

	stmt := &ForStmt{
		Pos:  posOf(forTok),
		Var:  name.Lexeme,
		Init: &VarDecl{Pos: pos, Name: name.Lexeme, Value: from},
		Body: body,

		Bidirectional: step == nil && !bothLiteral(from, to),
	}
	testOp := "<="
	if descending {
		testOp = ">="
	}
	stmt.Test = &BinaryExpr{Pos: pos, Op: testOp, Left: loopVar(), Right: to}
	switch {
	case step != nil:
		stmt.Update = &Assignment{Pos: pos, Target: loopVar(), Op: "+=", Value: step}
	case descending:
		stmt.Update = &Assignment{Pos: pos, Target: loopVar(), Op: "-=", Value: &NumberLit{Pos: pos, Value: "1"}}
	default:
		stmt.Update = &Assignment{Pos: pos, Target: loopVar(), Op: "+=", Value: &NumberLit{Pos: pos, Value: "1"}}
	}
	return stmt, p.endStatement()
}

func (p *Parser) finishForIn(forTok Token, index, item string) (Stmt, error) {
	if _, err := p.expectKeyword("in"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ForInStmt{Pos: posOf(forTok), Index: index, Item: item, Iterable: iter, Body: body}, p.endStatement()
}

func isNegativeLiteral(e Expr) bool {
	u, ok := e.(*UnaryExpr)
	if !ok || u.Op != "-" {
		return false
	}
	_, ok = u.Operand.(*NumberLit)
	return ok
}

func bothLiteral(a, b Expr) bool {
	_, ok1 := literalValue(a)
	_, ok2 := literalValue(b)
	return ok1 && ok2
}

func literalGreater(a, b Expr) bool {
	x, ok1 := literalValue(a)
	y, ok2 := literalValue(b)
	return ok1 && ok2 && x > y
}

func literalValue(e Expr) (float64, bool) {
	switch v := e.(type) {
	case *NumberLit:
		f, err := strconv.ParseFloat(v.Value, 64)
		return f, err == nil
	case *UnaryExpr:
		if v.Op == "-" {
			f, ok := literalValue(v.Operand)
			return -f, ok
		}
	}
	return 0, false
}

func (p *Parser) parseTypeDecl() (Stmt, error) {
	typeTok := p.advance()
	name, err := p.expect(IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(NEWLINE); err != nil {
		return nil, err
	}
	if _, err := p.expect(INDENT); err != nil {
		return nil, err
	}
	decl := &TypeDecl{Pos: posOf(typeTok), Name: name.Lexeme}
	for {
		switch p.peek().Type {
		case NEWLINE:
			p.advance()
			continue
		case DEDENT:
			p.advance()
			return decl, p.endStatement()
		case EOF:
			return decl, nil
		}
		// "varip" fields behave like plain fields
		if p.peek().IsKeyword("varip") {
			p.advance()
		}
		words, err := p.parseTypedName()
		if err != nil {
			return nil, err
		}
		field := TypeField{Name: words[len(words)-1], Type: strings.Join(words[:len(words)-1], " ")}
		if p.peek().IsOp("=") {
			p.advance()
			if field.Default, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if err := p.endStatement(); err != nil {
			return nil, err
		}
		decl.Fields = append(decl.Fields, field)
	}
}

// parseImport accepts a quoted path or a bare user/library/version path.
func (p *Parser) parseImport() (Stmt, error) {
	importTok := p.advance()
	stmt := &ImportStmt{Pos: posOf(importTok)}

	if p.peek().Type == STRING {
		stmt.Path = p.advance().Lexeme
	} else {
		var sb strings.Builder
		for !p.atLineEnd() && !p.peek().IsKeyword("as") {
			tok := p.advance()
			switch {
			case tok.Type == IDENTIFIER, tok.Type == NUMBER, tok.IsOp("/"):
				sb.WriteString(tok.Lexeme)
			default:
				return nil, p.errorf(tok, "unexpected %q in import path", tokenText(tok))
			}
		}
		stmt.Path = sb.String()
	}
	if stmt.Path == "" {
		return nil, p.errorf(p.peek(), "expected import path")
	}

	if p.peek().IsKeyword("as") {
		p.advance()
		alias, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		stmt.Alias = alias.Lexeme
	} else {
		stmt.Alias = defaultImportAlias(stmt.Path)
	}
	return stmt, p.endStatement()
}

// defaultImportAlias picks the last path segment that is not a version number.
func defaultImportAlias(path string) string {
	segs := strings.Split(path, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if segs[i] == "" {
			continue
		}
		if _, err := strconv.Atoi(segs[i]); err != nil {
			return segs[i]
		}
	}
	return "lib"
}

//  Expressions

// parseExpression is the entry point for expression parsing and the point
// where nesting depth is checked.
func (p *Parser) parseExpression() (Expr, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()
	return p.parseTernary()
}

func (p *Parser) parseTernary() (Expr, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.peek().IsOp("?") {
		return cond, nil
	}
	q := p.advance()
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	els, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &TernaryExpr{Pos: posOf(q), Cond: cond, Then: then, Else: els}, nil
}

// parseBinary parses one left-associative precedence level.
func (p *Parser) parseBinary(next func() (Expr, error), ops ...string) (Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.Type != OPERATOR || !containsString(ops, tok.Lexeme) {
			return left, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Pos: posOf(tok), Op: tok.Lexeme, Left: left, Right: right}
	}
}

// parseOr handles "or"
func (p *Parser) parseOr() (Expr, error) { return p.parseBinary(p.parseAnd, "or") }

// parseAnd handles "and"
func (p *Parser) parseAnd() (Expr, error) { return p.parseBinary(p.parseEquality, "and") }

// parseEquality handles == and !=
func (p *Parser) parseEquality() (Expr, error) {
	return p.parseBinary(p.parseRelational, "==", "!=")
}

// parseRelational handles > < >= <=
func (p *Parser) parseRelational() (Expr, error) {
	return p.parseBinary(p.parseAdditive, ">", "<", ">=", "<=")
}

// parseAdditive handles + and -
func (p *Parser) parseAdditive() (Expr, error) {
	return p.parseBinary(p.parseMultiplicative, "+", "-")
}

// parseMultiplicative handles * / %
func (p *Parser) parseMultiplicative() (Expr, error) {
	return p.parseBinary(p.parseUnary, "*", "/", "%")
}

// parseUnary handles not, - and +
func (p *Parser) parseUnary() (Expr, error) {
	tok := p.peek()
	if tok.IsOp("not") || tok.IsOp("-") || tok.IsOp("+") {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Pos: posOf(tok), Op: tok.Lexeme, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix handles call, generic call, member access and indexing.
func (p *Parser) parsePostfix() (Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		switch {
		case tok.Type == LPAREN:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Pos: expr.Position(), Callee: expr, Args: args}

		case tok.IsOp("<") && isCallee(expr):
			typeArgs, ok := attempt(p, p.parseGenericCallHead)
			if !ok {
				return expr, nil
			}
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			expr = &CallExpr{Pos: expr.Position(), Callee: expr, Args: args, TypeArgs: typeArgs}

		case tok.Type == DOT:
			p.advance()
			name := p.peek()
			if name.Type != IDENTIFIER && name.Type != KEYWORD {
				return nil, p.errorf(name, "expected member name after '.', got %q", tokenText(name))
			}
			p.advance()
			expr = &MemberExpr{Pos: expr.Position(), Object: expr, Property: name.Lexeme}

		case tok.Type == LBRACKET:
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RBRACKET); err != nil {
				return nil, err
			}
			expr = &IndexExpr{Pos: expr.Position(), Object: expr, Index: index}

		default:
			return expr, nil
		}
	}
}

func isCallee(e Expr) bool {
	switch e.(type) {
	case *Ident, *MemberExpr:
		return true
	}
	return false
}

// parseGenericCallHead parses "<types>" and succeeds only when "(" follows,
// which tells f<int>(x) apart from a < b.
func (p *Parser) parseGenericCallHead() ([]string, error) {
	args, err := p.parseTypeArgs()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != LPAREN {
		return nil, p.errorf(p.peek(), "expected '(' after type arguments")
	}
	return args, nil
}

// parseTypeArgs parses "<" type ("," type)* ">".
func (p *Parser) parseTypeArgs() ([]string, error) {
	if _, err := p.expectOp("<"); err != nil {
		return nil, err
	}
	var args []string
	for {
		tok, err := p.expect(IDENTIFIER)
		if err != nil {
			return nil, err
		}
		name := tok.Lexeme
		for p.peek().Type == DOT && p.peekNext().Type == IDENTIFIER {
			p.advance()
			name += "." + p.advance().Lexeme
		}
		if p.peek().IsOp("<") {
			inner, err := p.parseTypeArgs()
			if err != nil {
				return nil, err
			}
			name += "<" + strings.Join(inner, ", ") + ">"
		}
		args = append(args, name)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expectOp(">"); err != nil {
		return nil, err
	}
	return args, nil
}

// parseArgs parses "(" [arg ("," arg)*] ")" where arg is expression or
// name "=" expression.
func (p *Parser) parseArgs() ([]Arg, error) {
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	var args []Arg
	for p.peek().Type != RPAREN {
		var arg Arg
		if t := p.peek(); (t.Type == IDENTIFIER || t.Type == KEYWORD) && p.peekNext().IsOp("=") {
			arg.Name = p.advance().Lexeme
			p.advance()
		}
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		arg.Value = v
		args = append(args, arg)
		if p.peek().Type != COMMA {
			break
		}
		p.advance()
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return args, nil
}

// parsePrimary handles literals, identifiers, grouping, arrays, and the
// switch and if expressions.
func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.peek()
	pos := posOf(tok)
	switch tok.Type {
	case NUMBER:
		p.advance()
		return &NumberLit{Pos: pos, Value: tok.Lexeme}, nil
	case STRING:
		p.advance()
		return &StringLit{Pos: pos, Value: tok.Lexeme}, nil
	case BOOLEAN:
		p.advance()
		return &BoolLit{Pos: pos, Value: tok.Lexeme == "true"}, nil
	case COLOR:
		p.advance()
		return &ColorLit{Pos: pos, Value: tok.Lexeme}, nil
	case NA:
		p.advance()
		// na(x) is the availability test, not the literal
		if p.peek().Type == LPAREN {
			return &Ident{Pos: pos, Name: "na"}, nil
		}
		return &NaLit{Pos: pos}, nil
	case IDENTIFIER:
		p.advance()
		return &Ident{Pos: pos, Name: tok.Lexeme}, nil

	case LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil

	case LBRACKET:
		p.advance()
		arr := &ArrayLit{Pos: pos}
		for p.peek().Type != RBRACKET {
			e, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, e)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
		if _, err := p.expect(RBRACKET); err != nil {
			return nil, err
		}
		return arr, nil

	case KEYWORD:
		switch tok.Lexeme {
		case "switch":
			disc, cases, err := p.parseSwitchParts()
			if err != nil {
				return nil, err
			}
			return &SwitchExpr{Pos: pos, Discriminant: disc, Cases: cases}, nil
		case "if":
			cond, then, els, err := p.parseIfParts()
			if err != nil {
				return nil, err
			}
			return &IfExpr{Pos: pos, Cond: cond, Then: then, Else: els}, nil
		}
	}
	return nil, p.errorf(tok, "unexpected %q", tokenText(tok))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
