package compiler

import (
	"fmt"
	"strings"
)

// InternalError reports an AST shape the generator has no rule for. It is
// always a compiler bug, never a problem with the script.
type InternalError struct {
	Message string
	Line    int
	Column  int
}

func (e *InternalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("internal compiler error at line %d, column %d: %s", e.Line, e.Column, e.Message)
	}
	return "internal compiler error: " + e.Message
}

func internalErrorf(n Node, format string, args ...any) *InternalError {
	e := &InternalError{Message: fmt.Sprintf(format, args...)}
	if n != nil && !isNilNode(n) {
		pos := n.Position()
		e.Line, e.Column = pos.Line, pos.Column
	}
	return e
}

// exprRenderer is what the statement generator needs from the expression
// generator.
type exprRenderer interface {
	renderExpr(e Expr) (string, error)
	// renderBare omits the outer parentheses of operator expressions, for
	// positions that are already delimited (conditions, loop headers).
	renderBare(e Expr) (string, error)
	isSilentCall(e Expr) bool
}

// blockRenderer is what the expression generator needs from the statement
// generator: a switch or if expression rendered as an immediately invoked
// closure.
type blockRenderer interface {
	renderValueBlock(e Expr) (string, error)
}

// sourceExprs are the prologue initializers of the built-in price series.
var sourceExprs = map[string]string{
	"open":      "ctx.open",
	"high":      "ctx.high",
	"low":       "ctx.low",
	"close":     "ctx.close",
	"volume":    "ctx.volume",
	"time":      "ctx.time",
	"bar_index": "ctx.barIndex",
	"hl2":       "(ctx.high + ctx.low) / 2",
	"hlc3":      "(ctx.high + ctx.low + ctx.close) / 3",
	"ohlc4":     "(ctx.open + ctx.high + ctx.low + ctx.close) / 4",
	"hlcc4":     "(ctx.high + ctx.low + ctx.close + ctx.close) / 4",
}

// stmtGen owns the output buffer and the indentation level.
type stmtGen struct {
	out    *strings.Builder
	indent int

	expr      exprRenderer
	syms      *SymbolTable
	meta      *Metadata
	diag      *Diagnostics
	loopLimit int

	loops      int
	switches   int
	seriesKeys map[string]int
	cells      map[*VarDecl]string
}

func newStmtGen(expr exprRenderer, syms *SymbolTable, meta *Metadata, diag *Diagnostics, loopLimit int) *stmtGen {
	return &stmtGen{
		out:        &strings.Builder{},
		expr:       expr,
		syms:       syms,
		meta:       meta,
		diag:       diag,
		loopLimit:  loopLimit,
		seriesKeys: make(map[string]int),
		cells:      make(map[*VarDecl]string),
	}
}

func (g *stmtGen) line(format string, args ...any) {
	g.out.WriteString(strings.Repeat("  ", g.indent))
	fmt.Fprintf(g.out, format+"\n", args...)
}

// Generate renders prog as a JavaScript entry function named opts.FunctionName.
// meta must come from Visit on the same program; warnings raised while
// generating are added to diag.
func Generate(prog *Program, meta *Metadata, opts Options, diag *Diagnostics) (string, error) {
	if diag == nil {
		diag = NewDiagnostics()
	}
	if meta == nil {
		meta = Visit(prog, diag)
	}
	registry := opts.Registry
	if registry == nil {
		registry = MapRegistry{}
	}
	loopLimit := opts.LoopLimit
	if loopLimit <= 0 {
		loopLimit = DefaultLoopLimit
	}
	name := opts.FunctionName
	if name == "" {
		name = "main"
	}

	syms := NewSymbolTable()
	for _, s := range prog.Stmts {
		declareGlobal(syms, s)
	}

	// the expression generator is built first; the statement generator
	// closes the loop
	eg := newExprGen(syms, meta, diag, registry)
	sg := newStmtGen(eg, syms, meta, diag, loopLimit)
	eg.block = sg

	if err := sg.program(prog, name); err != nil {
		return "", err
	}
	return sg.out.String(), nil
}

func declareGlobal(syms *SymbolTable, s Stmt) {
	switch n := s.(type) {
	case *FuncDecl:
		syms.DefineFunc(n)
	case *TypeDecl:
		syms.DefineType(n)
	case *ExportStmt:
		declareGlobal(syms, n.Decl)
	}
}

func (g *stmtGen) program(prog *Program, name string) error {
	g.line(`"use strict";`)
	version := "Pine Script"
	if g.meta.Version > 0 {
		version = fmt.Sprintf("Pine Script v%d", g.meta.Version)
	}
	if g.meta.Name != "" {
		g.line("// Generated by pinejs from %s: %s", version, jsString(g.meta.Name))
	} else {
		g.line("// Generated by pinejs from %s", version)
	}
	g.line("function %s(ctx) {", name)
	g.indent++
	g.prologue(prog)
	for _, s := range prog.Stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	g.indent--
	g.line("}")
	return nil
}

// prologue binds the price series the script reads and the series bindings
// of indexed names that the script never declares.
func (g *stmtGen) prologue(prog *Program) {
	topLevel := make(map[string]bool)
	for _, s := range prog.Stmts {
		if e, ok := s.(*ExportStmt); ok {
			s = e.Decl
		}
		if d, ok := s.(*VarDecl); ok {
			for _, n := range d.Declared() {
				topLevel[n] = true
			}
		}
	}
	declared := declaredNames(prog)

	for _, src := range g.meta.Sources() {
		if topLevel[src] {
			continue
		}
		sym, _ := g.syms.Define(src, SymVar)
		g.line("const %s = %s;", sym.JSName, sourceExprs[src])
		g.afterDeclare(sym)
	}
	for _, ref := range sortedKeys(g.meta.HistoricalRefs) {
		if declared[ref] || priceSources[ref] {
			continue
		}
		sym, _ := g.syms.Define(ref, SymVar)
		g.afterDeclare(sym)
	}
	g.persistentCells(prog)
}

// persistentCells hoists one cell per var/varip declaration so that every
// bar carries the previous value forward, whether or not the declaration
// runs on that bar. Cells hold the value boxed in a one-element array; an
// unboxed cell means the initializer has not run yet.
func (g *stmtGen) persistentCells(prog *Program) {
	names := make(map[string]int)
	Inspect(prog, func(n Node) bool {
		d, ok := n.(*VarDecl)
		if !ok || d.Qualifier == "" || len(d.Names) > 0 {
			return true
		}
		js := sanitizeIdent(d.Name)
		names[js]++
		cell := "_var_" + js
		if count := names[js]; count > 1 {
			cell = fmt.Sprintf("%s$%d", cell, count)
		}
		g.cells[d] = cell
		g.line("const %s = ctx.newSeries(%s);", cell, jsString(g.seriesKey(d.Qualifier+":"+d.Name)))
		g.line("%s.set(%s.get(1) || null);", cell, cell)
		return true
	})
}

// declaredNames collects every name the program binds anywhere.
func declaredNames(prog *Program) map[string]bool {
	names := make(map[string]bool)
	Inspect(prog, func(n Node) bool {
		switch d := n.(type) {
		case *VarDecl:
			for _, name := range d.Declared() {
				names[name] = true
			}
		case *FuncDecl:
			for _, p := range d.Params {
				names[p.Name] = true
			}
		case *ForStmt:
			names[d.Var] = true
		case *ForInStmt:
			names[d.Item] = true
			if d.Index != "" {
				names[d.Index] = true
			}
		case *ImportStmt:
			names[d.Alias] = true
		}
		return true
	})
	return names
}

// seriesBinding emits the history cell and accessor of an indexed name.
func (g *stmtGen) seriesBinding(sym *Symbol) {
	js := sym.JSName
	g.line("const _series_%s = ctx.newSeries(%s);", js, jsString(g.seriesKey(sym.Name)))
	g.line("_series_%s.set(%s);", js, js)
	g.line("function _getHistorical_%s(offset) { return offset === 0 ? %s : _series_%s.get(offset); }", js, js, js)
	sym.Series = true
}

// seriesKey gives every binding of the same name a distinct host key.
func (g *stmtGen) seriesKey(name string) string {
	g.seriesKeys[name]++
	if n := g.seriesKeys[name]; n > 1 {
		return fmt.Sprintf("%s#%d", name, n)
	}
	return name
}

// afterDeclare runs after a name is first bound in a scope.
func (g *stmtGen) afterDeclare(sym *Symbol) {
	if g.meta.HistoricalRefs[sym.Name] && !sym.Series {
		g.seriesBinding(sym)
	}
}

// afterAssign keeps persistent and series cells in step with the variable.
func (g *stmtGen) afterAssign(sym *Symbol) {
	if sym.Kind == SymPersistent && sym.Cell != "" {
		g.line("%s.set([%s]);", sym.Cell, sym.JSName)
	}
	if sym.Series {
		g.line("_series_%s.set(%s);", sym.JSName, sym.JSName)
	}
}

func (g *stmtGen) genStmt(s Stmt) error {
	switch n := s.(type) {
	case *VarDecl:
		return g.varDecl(n)
	case *Assignment:
		return g.assignment(n)
	case *FuncDecl:
		return g.funcDecl(n)
	case *IfStmt:
		return g.ifStmt(n, false)
	case *WhileStmt:
		return g.whileStmt(n)
	case *ForStmt:
		return g.forStmt(n)
	case *ForInStmt:
		return g.forInStmt(n)
	case *ReturnStmt:
		if n.Value == nil {
			g.line("return;")
			return nil
		}
		v, err := g.expr.renderBare(n.Value)
		if err != nil {
			return err
		}
		g.line("return %s;", v)
	case *BreakStmt:
		g.line("break;")
	case *ContinueStmt:
		g.line("continue;")
	case *SwitchStmt:
		return g.switchStmt(n, false)
	case *TypeDecl:
		return g.typeDecl(n)
	case *ImportStmt:
		sym, _ := g.syms.Define(n.Alias, SymImport)
		g.line("const %s = _import(ctx, %s);", sym.JSName, jsString(n.Path))
		g.diag.Warn(SeverityPartial, "import", n.Line, "library %s must be provided by the host runtime", n.Path)
	case *ExportStmt:
		return g.genStmt(n.Decl)
	case *ExprStmt:
		if g.expr.isSilentCall(n.Expr) {
			return nil
		}
		v, err := g.expr.renderBare(n.Expr)
		if err != nil {
			return err
		}
		g.line("%s;", v)
	default:
		return internalErrorf(s, "no generation rule for statement %T", s)
	}
	return nil
}

func (g *stmtGen) varDecl(d *VarDecl) error {
	value, err := g.expr.renderExpr(d.Value)
	if err != nil {
		return err
	}
	if len(d.Names) > 0 {
		return g.tupleDecl(d, value)
	}
	if d.Qualifier != "" {
		return g.persistentDecl(d, value)
	}

	sym, exists := g.syms.Define(d.Name, SymVar)
	if exists {
		g.line("%s = %s;", sym.JSName, value)
		g.afterAssign(sym)
		return nil
	}
	g.line("let %s = %s;", sym.JSName, value)
	g.afterDeclare(sym)
	return nil
}

func (g *stmtGen) tupleDecl(d *VarDecl, value string) error {
	syms := make([]*Symbol, len(d.Names))
	existed := make([]bool, len(d.Names))
	var fresh, targets []string
	for i, name := range d.Names {
		syms[i], existed[i] = g.syms.Define(name, SymVar)
		targets = append(targets, syms[i].JSName)
		if !existed[i] {
			fresh = append(fresh, syms[i].JSName)
		}
	}
	if len(fresh) < len(targets) {
		if len(fresh) > 0 {
			g.line("let %s;", strings.Join(fresh, ", "))
		}
		g.line("[%s] = %s;", strings.Join(targets, ", "), value)
	} else {
		g.line("let [%s] = %s;", strings.Join(targets, ", "), value)
	}
	for i, sym := range syms {
		if existed[i] {
			g.afterAssign(sym)
		} else {
			g.afterDeclare(sym)
		}
	}
	return nil
}

// persistentDecl lowers var/varip: the initializer runs the first time the
// declaration executes and afterwards the carried value is reused.
func (g *stmtGen) persistentDecl(d *VarDecl, value string) error {
	sym, exists := g.syms.Define(d.Name, SymPersistent)
	if exists {
		g.line("%s = %s;", sym.JSName, value)
		g.afterAssign(sym)
		return nil
	}
	cell, ok := g.cells[d]
	if !ok {
		return internalErrorf(d, "no persistent cell for %s", d.Name)
	}
	sym.Cell = cell
	g.line("let %s = (%s.get(0) ?? [%s])[0];", sym.JSName, cell, value)
	g.line("%s.set([%s]);", cell, sym.JSName)
	g.afterDeclare(sym)
	return nil
}

func (g *stmtGen) assignment(a *Assignment) error {
	value, err := g.expr.renderExpr(a.Value)
	if err != nil {
		return err
	}
	op := a.Op
	if op == ":=" {
		op = "="
	}
	switch t := a.Target.(type) {
	case *Ident:
		sym, ok := g.syms.Lookup(t.Name)
		name := sanitizeIdent(t.Name)
		if ok {
			name = sym.JSName
		}
		g.line("%s %s %s;", name, op, value)
		if ok {
			g.afterAssign(sym)
		}
	case *MemberExpr:
		target, err := g.expr.renderExpr(t)
		if err != nil {
			return err
		}
		g.line("%s %s %s;", target, op, value)
	default:
		return internalErrorf(a, "no generation rule for assignment to %T", a.Target)
	}
	return nil
}

func (g *stmtGen) funcDecl(fn *FuncDecl) error {
	name := sanitizeIdent(fn.Name)
	g.syms.EnterScope()
	params := make([]*Symbol, len(fn.Params))
	names := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i], _ = g.syms.Define(p.Name, SymParam)
		names[i] = params[i].JSName
	}

	g.line("function %s(%s) {", name, strings.Join(names, ", "))
	g.indent++
	for _, sym := range params {
		g.afterDeclare(sym)
	}
	err := g.body(fn.Body, true)
	g.indent--
	g.syms.ExitScope()
	if err != nil {
		return err
	}
	g.line("}")

	if fn.IsMethod && len(fn.Params) > 0 {
		if t, ok := g.syms.GetType(baseTypeName(fn.Params[0].Type)); ok {
			g.line("%s.prototype.%s = function (...args) { return %s(this, ...args); };",
				sanitizeIdent(t.Name), sanitizeMember(fn.Name), name)
		}
	}
	return nil
}

// baseTypeName drops qualifiers such as "series" from a declared type.
func baseTypeName(typ string) string {
	if i := strings.LastIndexByte(typ, ' '); i >= 0 {
		return typ[i+1:]
	}
	return typ
}

// body emits stmts; with tail set the last statement yields the block's value.
func (g *stmtGen) body(stmts []Stmt, tail bool) error {
	for i, s := range stmts {
		if tail && i == len(stmts)-1 {
			return g.returnLast(s)
		}
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// block emits stmts one level deeper in a fresh scope.
func (g *stmtGen) block(stmts []Stmt, tail bool) error {
	g.syms.EnterScope()
	g.indent++
	err := g.body(stmts, tail)
	g.indent--
	g.syms.ExitScope()
	return err
}

// returnLast is the implicit-return rewrite: the trailing expression of a
// block becomes its return value, recursively through if and switch.
func (g *stmtGen) returnLast(s Stmt) error {
	switch n := s.(type) {
	case *ExprStmt:
		if g.expr.isSilentCall(n.Expr) {
			return g.genStmt(n)
		}
		v, err := g.expr.renderBare(n.Expr)
		if err != nil {
			return err
		}
		g.line("return %s;", v)
		return nil
	case *IfStmt:
		return g.ifStmt(n, true)
	case *SwitchStmt:
		return g.switchStmt(n, true)
	case *VarDecl:
		if err := g.genStmt(n); err != nil {
			return err
		}
		names := make([]string, 0, len(n.Declared()))
		for _, name := range n.Declared() {
			names = append(names, g.jsName(name))
		}
		if len(n.Names) > 0 {
			g.line("return [%s];", strings.Join(names, ", "))
		} else {
			g.line("return %s;", names[0])
		}
		return nil
	case *Assignment:
		if err := g.genStmt(n); err != nil {
			return err
		}
		if id, ok := n.Target.(*Ident); ok {
			g.line("return %s;", g.jsName(id.Name))
		}
		return nil
	}
	return g.genStmt(s)
}

func (g *stmtGen) jsName(name string) string {
	if sym, ok := g.syms.Lookup(name); ok {
		return sym.JSName
	}
	return sanitizeIdent(name)
}

func (g *stmtGen) ifStmt(n *IfStmt, tail bool) error {
	cond, err := g.expr.renderBare(n.Cond)
	if err != nil {
		return err
	}
	g.line("if (%s) {", cond)
	if err := g.block(n.Then, tail); err != nil {
		return err
	}
	els := n.Else
	for len(els) == 1 {
		elseIf, ok := els[0].(*IfStmt)
		if !ok {
			break
		}
		cond, err := g.expr.renderBare(elseIf.Cond)
		if err != nil {
			return err
		}
		g.line("} else if (%s) {", cond)
		if err := g.block(elseIf.Then, tail); err != nil {
			return err
		}
		els = elseIf.Else
	}
	if len(els) > 0 {
		g.line("} else {")
		if err := g.block(els, tail); err != nil {
			return err
		}
	}
	g.line("}")
	return nil
}

// newLoop declares the hidden iteration counter of a loop and returns its name.
func (g *stmtGen) newLoop() string {
	g.loops++
	name := fmt.Sprintf("_loop%d", g.loops)
	g.line("let %s = 0;", name)
	return name
}

// guard is the first statement of every loop body.
func (g *stmtGen) guard(counter string) {
	g.line("if (++%s > %d) throw new Error(%s);", counter, g.loopLimit,
		jsString(fmt.Sprintf("Loop limit exceeded: more than %d iterations", g.loopLimit)))
}

func (g *stmtGen) whileStmt(n *WhileStmt) error {
	cond, err := g.expr.renderBare(n.Cond)
	if err != nil {
		return err
	}
	counter := g.newLoop()
	g.line("while (%s) {", cond)
	g.indent++
	g.guard(counter)
	g.syms.EnterScope()
	err = g.body(n.Body, false)
	g.syms.ExitScope()
	g.indent--
	if err != nil {
		return err
	}
	g.line("}")
	return nil
}

func (g *stmtGen) forStmt(n *ForStmt) error {
	if n.Init == nil || n.Update == nil {
		return internalErrorf(n, "counting loop without init or update")
	}
	from, err := g.expr.renderExpr(n.Init.Value)
	if err != nil {
		return err
	}
	test, ok := n.Test.(*BinaryExpr)
	if !ok {
		return internalErrorf(n, "counting loop test is %T", n.Test)
	}
	to, err := g.expr.renderExpr(test.Right)
	if err != nil {
		return err
	}
	step, err := g.expr.renderExpr(n.Update.Value)
	if err != nil {
		return err
	}

	counter := g.newLoop()
	g.syms.EnterScope()
	defer g.syms.ExitScope()
	sym, _ := g.syms.Define(n.Var, SymLoopVar)
	i := sym.JSName

	if n.Bidirectional {
		dir := counter + "_dir"
		g.line("for (let %s = %s, %s = %s <= %s ? 1 : -1; %s > 0 ? %s <= %s : %s >= %s; %s += %s) {",
			i, from, dir, i, to, dir, i, to, i, to, i, dir)
	} else {
		g.line("for (let %s = %s; %s %s %s; %s %s %s) {", i, from, i, test.Op, to, i, n.Update.Op, step)
	}
	g.indent++
	g.guard(counter)
	g.afterDeclare(sym)
	err = g.body(n.Body, false)
	g.indent--
	if err != nil {
		return err
	}
	g.line("}")
	return nil
}

func (g *stmtGen) forInStmt(n *ForInStmt) error {
	iter, err := g.expr.renderExpr(n.Iterable)
	if err != nil {
		return err
	}
	counter := g.newLoop()
	g.syms.EnterScope()
	defer g.syms.ExitScope()

	item, _ := g.syms.Define(n.Item, SymLoopVar)
	bound := []*Symbol{item}
	if n.Index != "" {
		idx, _ := g.syms.Define(n.Index, SymLoopVar)
		bound = []*Symbol{idx, item}
		g.line("for (const [%s, %s] of (%s).entries()) {", idx.JSName, item.JSName, iter)
	} else {
		g.line("for (const %s of %s) {", item.JSName, iter)
	}
	g.indent++
	g.guard(counter)
	for _, sym := range bound {
		g.afterDeclare(sym)
	}
	err = g.body(n.Body, false)
	g.indent--
	if err != nil {
		return err
	}
	g.line("}")
	return nil
}

// switchStmt lowers a switch to a native switch when it has a discriminant,
// else to an if/else chain. A native switch would capture break and continue
// meant for an enclosing loop, so those cases use the chain too.
func (g *stmtGen) switchStmt(n *SwitchStmt, tail bool) error {
	if n.Discriminant != nil && !hasLoopJump(n.Cases) {
		return g.nativeSwitch(n, tail)
	}

	var subject string
	if n.Discriminant != nil {
		disc, err := g.expr.renderExpr(n.Discriminant)
		if err != nil {
			return err
		}
		g.switches++
		subject = fmt.Sprintf("_switch%d", g.switches)
		g.line("const %s = %s;", subject, disc)
	}

	var fallback *SwitchCase
	first := true
	for i := range n.Cases {
		c := &n.Cases[i]
		if c.Test == nil {
			fallback = c
			continue
		}
		cond, err := g.expr.renderBare(c.Test)
		if err != nil {
			return err
		}
		if subject != "" {
			test, err := g.expr.renderExpr(c.Test)
			if err != nil {
				return err
			}
			cond = fmt.Sprintf("%s === %s", subject, test)
		}
		if first {
			g.line("if (%s) {", cond)
			first = false
		} else {
			g.line("} else if (%s) {", cond)
		}
		if err := g.block(c.Body, tail); err != nil {
			return err
		}
	}

	switch {
	case fallback != nil && first:
		g.line("{")
		if err := g.block(fallback.Body, tail); err != nil {
			return err
		}
		g.line("}")
	case fallback != nil:
		g.line("} else {")
		if err := g.block(fallback.Body, tail); err != nil {
			return err
		}
		g.line("}")
	case !first:
		g.line("}")
	}
	return nil
}

func (g *stmtGen) nativeSwitch(n *SwitchStmt, tail bool) error {
	disc, err := g.expr.renderBare(n.Discriminant)
	if err != nil {
		return err
	}
	g.line("switch (%s) {", disc)
	g.indent++
	for _, c := range n.Cases {
		if c.Test == nil {
			g.line("default: {")
		} else {
			test, err := g.expr.renderBare(c.Test)
			if err != nil {
				return err
			}
			g.line("case %s: {", test)
		}
		if err := g.block(c.Body, tail); err != nil {
			return err
		}
		g.indent++
		g.line("break;")
		g.indent--
		g.line("}")
	}
	g.indent--
	g.line("}")
	return nil
}

// hasLoopJump reports whether a case body breaks or continues an enclosing
// loop. Jumps inside nested loops belong to those loops.
func hasLoopJump(cases []SwitchCase) bool {
	found := false
	for _, c := range cases {
		for _, s := range c.Body {
			Inspect(s, func(n Node) bool {
				switch n.(type) {
				case *BreakStmt, *ContinueStmt:
					found = true
				case *WhileStmt, *ForStmt, *ForInStmt, *FuncDecl, *SwitchExpr, *IfExpr:
					return false
				}
				return !found
			})
		}
	}
	return found
}

func hasDefault(cases []SwitchCase) bool {
	for _, c := range cases {
		if c.Test == nil {
			return true
		}
	}
	return false
}

// hasElse reports whether every path through an if/else-if chain ends in
// an else block.
func hasElse(els []Stmt) bool {
	for len(els) == 1 {
		elseIf, ok := els[0].(*IfStmt)
		if !ok {
			break
		}
		els = elseIf.Else
	}
	return len(els) > 0
}

func (g *stmtGen) typeDecl(t *TypeDecl) error {
	name := sanitizeIdent(t.Name)
	params := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		def := "NaN"
		if f.Default != nil {
			v, err := g.expr.renderExpr(f.Default)
			if err != nil {
				return err
			}
			def = v
		}
		params[i] = fmt.Sprintf("%s = %s", sanitizeIdent(f.Name), def)
	}

	g.line("class %s {", name)
	g.indent++
	g.line("constructor(%s) {", strings.Join(params, ", "))
	g.indent++
	for _, f := range t.Fields {
		g.line("this.%s = %s;", sanitizeMember(f.Name), sanitizeIdent(f.Name))
	}
	g.indent--
	g.line("}")
	g.line("static new(...args) {")
	g.indent++
	g.line("return new %s(...args);", name)
	g.indent--
	g.line("}")
	g.indent--
	g.line("}")
	return nil
}

// renderValueBlock renders a switch or if expression as an immediately
// invoked arrow function whose body returns the value of the taken branch.
func (g *stmtGen) renderValueBlock(e Expr) (string, error) {
	saved, savedIndent := g.out, g.indent
	g.out = &strings.Builder{}
	g.indent = savedIndent + 1
	g.syms.EnterScope()
	defer func() {
		g.syms.ExitScope()
		g.out, g.indent = saved, savedIndent
	}()

	var exhaustive bool
	switch n := e.(type) {
	case *SwitchExpr:
		if err := g.switchStmt(&SwitchStmt{Pos: n.Pos, Discriminant: n.Discriminant, Cases: n.Cases}, true); err != nil {
			return "", err
		}
		exhaustive = hasDefault(n.Cases)
	case *IfExpr:
		if err := g.ifStmt(&IfStmt{Pos: n.Pos, Cond: n.Cond, Then: n.Then, Else: n.Else}, true); err != nil {
			return "", err
		}
		exhaustive = hasElse(n.Else)
	default:
		return "", internalErrorf(e, "no value block rule for %T", e)
	}
	if !exhaustive {
		g.line("return NaN;")
	}
	return "(() => {\n" + g.out.String() + strings.Repeat("  ", savedIndent) + "})()", nil
}
