package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// binaryOps translates source operators that differ in JavaScript.
var binaryOps = map[string]string{
	"and": "&&",
	"or":  "||",
	"==":  "===",
	"!=":  "!==",
}

var unaryOps = map[string]string{
	"not": "!",
	"-":   "-",
	"+":   "+",
}

// builtinNamespaces hold library functions. A call into one of them that
// the registry cannot resolve is reported.
var builtinNamespaces = map[string]bool{
	"ta": true, "math": true, "str": true, "array": true, "matrix": true,
	"map": true, "color": true, "request": true, "strategy": true,
	"timeframe": true, "syminfo": true, "barstate": true, "input": true,
	"chart": true, "line": true, "label": true, "box": true, "table": true,
	"polyline": true, "linefill": true, "ticker": true, "runtime": true,
	"log": true,
}

// constantNamespaces hold enumeration constants such as plot.style_line.
// They compile to their own name as a string.
var constantNamespaces = map[string]bool{
	"plot": true, "shape": true, "location": true, "size": true, "hline": true,
	"display": true, "extend": true, "xloc": true, "yloc": true,
	"position": true, "text": true, "font": true, "order": true,
	"currency": true, "scale": true, "format": true, "barmerge": true,
	"dayofweek": true, "alert": true, "adjustment": true, "session": true,
	"settlement_as_close": true, "backadjustment": true,
}

// exprGen renders expressions to JavaScript source text.
type exprGen struct {
	block    blockRenderer
	syms     *SymbolTable
	meta     *Metadata
	diag     *Diagnostics
	registry FunctionRegistry
}

func newExprGen(syms *SymbolTable, meta *Metadata, diag *Diagnostics, registry FunctionRegistry) *exprGen {
	return &exprGen{syms: syms, meta: meta, diag: diag, registry: registry}
}

func (x *exprGen) renderExpr(e Expr) (string, error) { return x.render(e, false) }

func (x *exprGen) renderBare(e Expr) (string, error) { return x.render(e, true) }

func (x *exprGen) render(e Expr, bare bool) (string, error) {
	wrap := func(s string) string {
		if bare {
			return s
		}
		return "(" + s + ")"
	}

	switch n := e.(type) {
	case *NumberLit:
		return jsNumber(n.Value), nil
	case *StringLit:
		return jsString(n.Value), nil
	case *BoolLit:
		if n.Value {
			return "true", nil
		}
		return "false", nil
	case *NaLit:
		return "NaN", nil
	case *ColorLit:
		return jsString(normalizeHex(n.Value)), nil
	case *Ident:
		return x.ident(n), nil
	case *MemberExpr:
		return x.member(n)
	case *IndexExpr:
		return x.index(n)
	case *CallExpr:
		return x.call(n)

	case *BinaryExpr:
		left, err := x.renderExpr(n.Left)
		if err != nil {
			return "", err
		}
		right, err := x.renderExpr(n.Right)
		if err != nil {
			return "", err
		}
		op, ok := binaryOps[n.Op]
		if !ok {
			op = n.Op
		}
		return wrap(left + " " + op + " " + right), nil

	case *UnaryExpr:
		operand, err := x.renderExpr(n.Operand)
		if err != nil {
			return "", err
		}
		op, ok := unaryOps[n.Op]
		if !ok {
			return "", internalErrorf(n, "unknown unary operator %q", n.Op)
		}
		return wrap(op + operand), nil

	case *TernaryExpr:
		cond, err := x.renderExpr(n.Cond)
		if err != nil {
			return "", err
		}
		then, err := x.renderExpr(n.Then)
		if err != nil {
			return "", err
		}
		els, err := x.renderExpr(n.Else)
		if err != nil {
			return "", err
		}
		return wrap(cond + " ? " + then + " : " + els), nil

	case *ArrayLit:
		elems, err := x.renderList(n.Elements)
		if err != nil {
			return "", err
		}
		return "[" + strings.Join(elems, ", ") + "]", nil

	case *SwitchExpr, *IfExpr:
		return x.block.renderValueBlock(n)
	}
	if e == nil {
		return "", internalErrorf(nil, "missing expression")
	}
	return "", internalErrorf(e, "no generation rule for expression %T", e)
}

func (x *exprGen) renderList(list []Expr) ([]string, error) {
	out := make([]string, len(list))
	for i, e := range list {
		s, err := x.renderBare(e)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (x *exprGen) ident(n *Ident) string {
	if sym, ok := x.syms.Lookup(n.Name); ok {
		return sym.JSName
	}
	if n.Name == "na" {
		return "NaN"
	}
	if !priceSources[n.Name] {
		if m, ok := x.registry.Lookup(n.Name); ok {
			return m.Target
		}
	}
	return sanitizeIdent(n.Name)
}

// isUserValue reports whether the root of a member path is a script variable
// rather than a builtin namespace.
func (x *exprGen) isUserValue(e Expr) bool {
	for {
		switch v := e.(type) {
		case *Ident:
			if _, ok := x.syms.Lookup(v.Name); ok {
				return true
			}
			_, isType := x.syms.GetType(v.Name)
			return isType
		case *MemberExpr:
			e = v.Object
		default:
			return true
		}
	}
}

func (x *exprGen) member(n *MemberExpr) (string, error) {
	if !x.isUserValue(n) {
		name := calleeName(n)
		if strings.HasPrefix(name, "color.") {
			if hex, ok := NamedColor(name); ok {
				return jsString(hex), nil
			}
		}
		if m, ok := x.registry.Lookup(name); ok {
			return m.Target, nil
		}
		if ns, _, _ := strings.Cut(name, "."); constantNamespaces[ns] {
			return jsString(name), nil
		}
	}
	obj, err := x.renderExpr(n.Object)
	if err != nil {
		return "", err
	}
	return obj + "." + sanitizeMember(n.Property), nil
}

// index lowers history access. Indexed names have a series binding; any
// other expression is wrapped at its call site.
func (x *exprGen) index(n *IndexExpr) (string, error) {
	offset, err := x.renderBare(n.Index)
	if err != nil {
		return "", err
	}
	if id, ok := n.Object.(*Ident); ok {
		js := sanitizeIdent(id.Name)
		if sym, ok := x.syms.Lookup(id.Name); ok {
			js = sym.JSName
		}
		return fmt.Sprintf("_getHistorical_%s(%s)", js, offset), nil
	}
	obj, err := x.renderBare(n.Object)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("_wrapSeries(ctx, %s, %s)(%s)", jsString(siteKey("series", n.Pos)), obj, offset), nil
}

// siteKey names a call site for the host's per-site state.
func siteKey(name string, pos Pos) string {
	return fmt.Sprintf("%s@%d:%d", name, pos.Line, pos.Column)
}

// isSilentCall reports calls that only carry metadata and emit nothing as
// statements.
func (x *exprGen) isSilentCall(e Expr) bool {
	c, ok := e.(*CallExpr)
	if !ok {
		return false
	}
	name := calleeName(c.Callee)
	if _, user := x.syms.GetFunc(name); user {
		return false
	}
	return declarationCalls[name] || name == "hline"
}

func (x *exprGen) call(c *CallExpr) (string, error) {
	name := calleeName(c.Callee)

	if fn, ok := x.syms.GetFunc(name); ok {
		return x.userCall(sanitizeIdent(fn.Name), paramNames(fn.Params), c)
	}
	if m, ok := c.Callee.(*MemberExpr); ok {
		if fn, ok := x.syms.GetMethod(m.Property); ok && len(fn.Params) > 0 && x.isUserValue(m.Object) {
			// Only user types get the prototype shim; builtin receivers
			// become the first argument of a plain call.
			if _, ok := x.syms.GetType(baseTypeName(fn.Params[0].Type)); !ok {
				recv, err := x.renderBare(m.Object)
				if err != nil {
					return "", err
				}
				return x.userCall(sanitizeIdent(fn.Name), paramNames(fn.Params), c, recv)
			}
			obj, err := x.renderExpr(m.Object)
			if err != nil {
				return "", err
			}
			return x.userCall(obj+"."+sanitizeMember(m.Property), paramNames(fn.Params[1:]), c)
		}
		if m.Property == "new" {
			if t, ok := x.syms.GetType(calleeName(m.Object)); ok {
				fields := make([]string, len(t.Fields))
				for i, f := range t.Fields {
					fields[i] = f.Name
				}
				return x.userCall(sanitizeIdent(t.Name)+".new", fields, c)
			}
		}
	}

	switch {
	case declarationCalls[name], name == "hline":
		return "undefined", nil
	case name == "input" || inputTypes[name] != "":
		if id, ok := x.meta.InputID(c); ok {
			def := "undefined"
			if d := c.Arg("defval", 0); d != nil {
				v, err := x.renderBare(d)
				if err != nil {
					return "", err
				}
				def = v
			}
			return fmt.Sprintf("ctx.input(%d, %s)", id, def), nil
		}
	case plotKinds[name]:
		if id, ok := x.meta.PlotID(c); ok {
			value := "NaN"
			if s := c.Arg("series", 0); s != nil {
				v, err := x.renderBare(s)
				if err != nil {
					return "", err
				}
				value = v
			}
			return fmt.Sprintf("ctx.plot(%d, %s)", id, value), nil
		}
	}

	if name != "" {
		if m, ok := x.registry.Lookup(name); ok {
			return x.mappedCall(name, m, c)
		}
		if ns, _, ok := strings.Cut(name, "."); ok && builtinNamespaces[ns] {
			if s := x.suggest(name); s != "" {
				x.diag.Warn(SeverityUnsupported, name, c.Line, "%s is not supported; did you mean %s?", name, s)
			} else {
				x.diag.Warn(SeverityUnsupported, name, c.Line, "%s is not supported and will be passed through", name)
			}
		}
	}

	callee, err := x.renderExpr(c.Callee)
	if err != nil {
		return "", err
	}
	args, err := x.args(c.Args)
	if err != nil {
		return "", err
	}
	return callee + "(" + strings.Join(args, ", ") + ")", nil
}

func paramNames(params []Param) []string {
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name
	}
	return names
}

// userCall places named arguments at their parameter positions. Gaps are
// filled with undefined so that JavaScript defaults apply.
// userCall renders a call to a user function. Leading values fill the first
// parameter slots before the call's own arguments.
func (x *exprGen) userCall(callee string, params []string, c *CallExpr, leading ...string) (string, error) {
	slots := append([]string(nil), leading...)
	var extra []Arg
	for _, a := range c.Args {
		if a.Name != "" {
			continue
		}
		v, err := x.renderBare(a.Value)
		if err != nil {
			return "", err
		}
		slots = append(slots, v)
	}
	for _, a := range c.Args {
		if a.Name == "" {
			continue
		}
		i := indexOf(params, a.Name)
		if i < 0 {
			extra = append(extra, a)
			continue
		}
		v, err := x.renderBare(a.Value)
		if err != nil {
			return "", err
		}
		for len(slots) <= i {
			slots = append(slots, "undefined")
		}
		slots[i] = v
	}
	if len(extra) > 0 {
		obj, err := x.objectLiteral(extra)
		if err != nil {
			return "", err
		}
		slots = append(slots, obj)
	}
	return callee + "(" + strings.Join(slots, ", ") + ")", nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// mappedCall rewrites a registry hit.
func (x *exprGen) mappedCall(name string, m FunctionMapping, c *CallExpr) (string, error) {
	var positional, named []Arg
	for _, a := range c.Args {
		if a.Name == "" {
			positional = append(positional, a)
		} else {
			named = append(named, a)
		}
	}
	if m.Arity > 0 && len(positional) > m.Arity {
		x.diag.Warn(SeverityPartial, name, c.Line, "%s takes at most %d arguments, got %d; extra arguments may be ignored",
			name, m.Arity, len(positional))
	}

	args, err := x.args(positional)
	if err != nil {
		return "", err
	}
	if m.NeedsSeriesWrap && len(args) > 0 {
		args[0] = fmt.Sprintf("_wrapSeries(ctx, %s, %s)", jsString(siteKey(name, c.Pos)), args[0])
	}
	if len(named) > 0 {
		obj, err := x.objectLiteral(named)
		if err != nil {
			return "", err
		}
		args = append(args, obj)
	}
	if m.AppendsContext {
		args = append(args, "ctx")
	}
	return m.Target + "(" + strings.Join(args, ", ") + ")", nil
}

// args renders positional arguments in order and collects named ones into a
// trailing options object.
func (x *exprGen) args(list []Arg) ([]string, error) {
	var out []string
	var named []Arg
	for _, a := range list {
		if a.Name != "" {
			named = append(named, a)
			continue
		}
		v, err := x.renderBare(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if len(named) > 0 {
		obj, err := x.objectLiteral(named)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

func (x *exprGen) objectLiteral(named []Arg) (string, error) {
	parts := make([]string, len(named))
	for i, a := range named {
		v, err := x.renderBare(a.Value)
		if err != nil {
			return "", err
		}
		parts[i] = sanitizeMember(a.Name) + ": " + v
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// suggest finds the registered name closest to an unknown one.
func (x *exprGen) suggest(name string) string {
	lister, ok := x.registry.(nameLister)
	if !ok {
		return ""
	}
	names := lister.Names()
	if ranks := fuzzy.RankFindFold(name, names); len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}

	ns, _, _ := strings.Cut(name, ".")
	best, bestDist := "", 4
	for _, candidate := range names {
		if !strings.HasPrefix(candidate, ns+".") {
			continue
		}
		if d := fuzzy.LevenshteinDistance(name, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}
