package compiler

import (
	"fmt"
	"strings"
)

// Pos is the source location of the token that starts a node.
type Pos struct {
	Line   int
	Column int
}

// Position returns p; embedding Pos gives every node a Position method.
func (p Pos) Position() Pos { return p }

func posOf(tok Token) Pos { return Pos{Line: tok.Line, Column: tok.Column} }

// Node is implemented by every AST node.
type Node interface {
	Position() Pos
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
type Expr interface {
	Node
	exprNode()
}

// NumberLit is a numeric literal kept in its source spelling.
//
//	len = 14
//	      ^^  NumberLit{Value: "14"}
type NumberLit struct {
	Pos
	Value string
}

func (*NumberLit) exprNode()        {}
func (n *NumberLit) String() string { return n.Value }

// IsInteger reports whether the literal has no fraction or exponent.
func (n *NumberLit) IsInteger() bool { return !strings.ContainsAny(n.Value, ".eE") }

// StringLit holds the decoded value of a string literal.
type StringLit struct {
	Pos
	Value string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Value) }

// BoolLit is true or false.
type BoolLit struct {
	Pos
	Value bool
}

func (*BoolLit) exprNode()        {}
func (b *BoolLit) String() string { return fmt.Sprintf("%t", b.Value) }

// NaLit is the "not available" value na.
type NaLit struct {
	Pos
}

func (*NaLit) exprNode()      {}
func (*NaLit) String() string { return "na" }

// ColorLit is a #RRGGBB[AA] literal.
type ColorLit struct {
	Pos
	Value string
}

func (*ColorLit) exprNode()        {}
func (c *ColorLit) String() string { return c.Value }

// Ident is a read of a named variable, function, or namespace.
type Ident struct {
	Pos
	Name string
}

func (*Ident) exprNode()        {}
func (i *Ident) String() string { return i.Name }

// MemberExpr represents Object.Property.
//
//	ta.sma
//	^^ ^^^
//	|  Property
//	Object
type MemberExpr struct {
	Pos
	Object   Expr
	Property string
}

func (*MemberExpr) exprNode()        {}
func (m *MemberExpr) String() string { return fmt.Sprintf("%s.%s", m.Object, m.Property) }

// IndexExpr represents Object[Index], a read of a value Index bars ago.
type IndexExpr struct {
	Pos
	Object Expr
	Index  Expr
}

func (*IndexExpr) exprNode()        {}
func (e *IndexExpr) String() string { return fmt.Sprintf("%s[%s]", e.Object, e.Index) }

// Arg is one call argument; Name is empty for positional arguments.
type Arg struct {
	Name  string
	Value Expr
}

func (a Arg) String() string {
	if a.Name == "" {
		return a.Value.String()
	}
	return fmt.Sprintf("%s=%s", a.Name, a.Value)
}

// CallExpr represents Callee<TypeArgs>(Args).
type CallExpr struct {
	Pos
	Callee   Expr
	Args     []Arg
	TypeArgs []string
}

func (*CallExpr) exprNode() {}
func (c *CallExpr) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	generic := ""
	if len(c.TypeArgs) > 0 {
		generic = "<" + strings.Join(c.TypeArgs, ", ") + ">"
	}
	return fmt.Sprintf("%s%s(%s)", c.Callee, generic, strings.Join(parts, ", "))
}

// Positional returns the argument at position i, ignoring named arguments.
func (c *CallExpr) Positional(i int) Expr {
	n := 0
	for _, a := range c.Args {
		if a.Name != "" {
			continue
		}
		if n == i {
			return a.Value
		}
		n++
	}
	return nil
}

// Named returns the value of the named argument, if present.
func (c *CallExpr) Named(name string) Expr {
	for _, a := range c.Args {
		if a.Name == name {
			return a.Value
		}
	}
	return nil
}

// Arg resolves an argument that may be passed by name or at position i.
// The named form always wins.
func (c *CallExpr) Arg(name string, i int) Expr {
	if v := c.Named(name); v != nil {
		return v
	}
	if i < 0 {
		return nil
	}
	return c.Positional(i)
}

// BinaryExpr represents Left Op Right. Op keeps the source spelling
// ("and", "==", "+", ...).
type BinaryExpr struct {
	Pos
	Op    string
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// UnaryExpr represents Op Operand for not, - and +.
type UnaryExpr struct {
	Pos
	Op      string
	Operand Expr
}

func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string {
	if u.Op == "not" {
		return fmt.Sprintf("(not %s)", u.Operand)
	}
	return fmt.Sprintf("(%s%s)", u.Op, u.Operand)
}

// TernaryExpr represents Cond ? Then : Else.
type TernaryExpr struct {
	Pos
	Cond Expr
	Then Expr
	Else Expr
}

func (*TernaryExpr) exprNode() {}
func (t *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

// ArrayLit represents [a, b, ...]; used for tuples.
type ArrayLit struct {
	Pos
	Elements []Expr
}

func (*ArrayLit) exprNode() {}
func (a *ArrayLit) String() string {
	parts := make([]string, len(a.Elements))
	for i, e := range a.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// SwitchCase is one "test => consequent" arm. A nil Test is the default arm.
type SwitchCase struct {
	Test Expr
	Body []Stmt
}

func (c SwitchCase) String() string {
	test := "default"
	if c.Test != nil {
		test = c.Test.String()
	}
	return fmt.Sprintf("%s => %s", test, stmtList(c.Body))
}

// SwitchExpr is a switch used where a value is expected.
type SwitchExpr struct {
	Pos
	Discriminant Expr // nil for the condition-only form
	Cases        []SwitchCase
}

func (*SwitchExpr) exprNode() {}
func (s *SwitchExpr) String() string {
	return fmt.Sprintf("SwitchExpr(%s)", switchString(s.Discriminant, s.Cases))
}

// IfExpr is an if/else used where a value is expected.
type IfExpr struct {
	Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfExpr) exprNode() {}
func (i *IfExpr) String() string {
	return fmt.Sprintf("IfExpr(%s then %s else %s)", i.Cond, stmtList(i.Then), stmtList(i.Else))
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of the AST.
type Program struct {
	Stmts []Stmt
}

func (*Program) Position() Pos    { return Pos{Line: 1, Column: 1} }
func (p *Program) String() string { return stmtList(p.Stmts) }

// VarDecl declares one variable, or several when destructuring a tuple.
//
//	var float acc = 0.0
//	^^^ ^^^^^ ^^^   ^^^
//	|   |     Name  Value
//	|   Type
//	Qualifier
type VarDecl struct {
	Pos
	Name      string
	Names     []string // tuple destructuring: [a, b] = f()
	Qualifier string   // "", "var", or "varip"
	Type      string
	Value     Expr
}

func (*VarDecl) stmtNode() {}
func (d *VarDecl) String() string {
	target := d.Name
	if len(d.Names) > 0 {
		target = "[" + strings.Join(d.Names, ", ") + "]"
	}
	prefix := ""
	if d.Qualifier != "" {
		prefix += d.Qualifier + " "
	}
	if d.Type != "" {
		prefix += d.Type + " "
	}
	return fmt.Sprintf("VarDecl(%s%s = %s)", prefix, target, d.Value)
}

// Declared returns every name the declaration binds.
func (d *VarDecl) Declared() []string {
	if len(d.Names) > 0 {
		return d.Names
	}
	return []string{d.Name}
}

// Assignment represents Target Op Value with Op one of := += -= *= /= %=,
// or = when Target is a member path.
type Assignment struct {
	Pos
	Target Expr
	Op     string
	Value  Expr
}

func (*Assignment) stmtNode() {}
func (a *Assignment) String() string {
	return fmt.Sprintf("Assignment(%s %s %s)", a.Target, a.Op, a.Value)
}

// Param is a function parameter. Default values are parsed and discarded.
type Param struct {
	Name string
	Type string
}

// FuncDecl represents name(params) => body. Single-line functions have a
// body of one ExprStmt.
type FuncDecl struct {
	Pos
	Name     string
	Params   []Param
	Body     []Stmt
	IsMethod bool
}

func (*FuncDecl) stmtNode() {}
func (f *FuncDecl) String() string {
	names := make([]string, len(f.Params))
	for i, p := range f.Params {
		names[i] = p.Name
	}
	kind := "FuncDecl"
	if f.IsMethod {
		kind = "MethodDecl"
	}
	return fmt.Sprintf("%s(%s(%s) => %s)", kind, f.Name, strings.Join(names, ", "), stmtList(f.Body))
}

// IfStmt represents if/else. An else-if chain nests an IfStmt as the only
// statement of Else.
type IfStmt struct {
	Pos
	Cond Expr
	Then []Stmt
	Else []Stmt
}

func (*IfStmt) stmtNode() {}
func (i *IfStmt) String() string {
	if len(i.Else) > 0 {
		return fmt.Sprintf("IfStmt(if %s then %s else %s)", i.Cond, stmtList(i.Then), stmtList(i.Else))
	}
	return fmt.Sprintf("IfStmt(if %s then %s)", i.Cond, stmtList(i.Then))
}

// WhileStmt represents while cond body.
type WhileStmt struct {
	Pos
	Cond Expr
	Body []Stmt
}

func (*WhileStmt) stmtNode() {}
func (w *WhileStmt) String() string {
	return fmt.Sprintf("WhileStmt(while %s do %s)", w.Cond, stmtList(w.Body))
}

// ForStmt is the counting loop "for i = a to b by s", desugared into a
// C-style init/test/update triple.
type ForStmt struct {
	Pos
	Var    string
	Init   *VarDecl
	Test   Expr
	Update *Assignment
	Body   []Stmt

	// Bidirectional loops have no step and a bound that is only known at
	// run time; they count down when the start exceeds the end.
	Bidirectional bool
}

func (*ForStmt) stmtNode() {}
func (f *ForStmt) String() string {
	return fmt.Sprintf("ForStmt(init=%s, test=%s, update=%s, body=%s)", f.Init, f.Test, f.Update, stmtList(f.Body))
}

// ForInStmt represents "for x in e" and "for [i, x] in e".
type ForInStmt struct {
	Pos
	Index    string // empty unless the [i, x] form is used
	Item     string
	Iterable Expr
	Body     []Stmt
}

func (*ForInStmt) stmtNode() {}
func (f *ForInStmt) String() string {
	binder := f.Item
	if f.Index != "" {
		binder = fmt.Sprintf("[%s, %s]", f.Index, f.Item)
	}
	return fmt.Sprintf("ForInStmt(%s in %s do %s)", binder, f.Iterable, stmtList(f.Body))
}

// ReturnStmt represents return [value].
type ReturnStmt struct {
	Pos
	Value Expr
}

func (*ReturnStmt) stmtNode() {}
func (r *ReturnStmt) String() string {
	return fmt.Sprintf("ReturnStmt(%s)", r.Value)
}

// BreakStmt represents break.
type BreakStmt struct {
	Pos
}

func (*BreakStmt) stmtNode()      {}
func (*BreakStmt) String() string { return "BreakStmt" }

// ContinueStmt represents continue.
type ContinueStmt struct {
	Pos
}

func (*ContinueStmt) stmtNode()      {}
func (*ContinueStmt) String() string { return "ContinueStmt" }

// SwitchStmt is a switch used for its effects.
type SwitchStmt struct {
	Pos
	Discriminant Expr
	Cases        []SwitchCase
}

func (*SwitchStmt) stmtNode() {}
func (s *SwitchStmt) String() string {
	return fmt.Sprintf("SwitchStmt(%s)", switchString(s.Discriminant, s.Cases))
}

// TypeField is one field of a user-defined type.
type TypeField struct {
	Name    string
	Type    string
	Default Expr
}

// TypeDecl represents a user-defined type with named fields.
type TypeDecl struct {
	Pos
	Name   string
	Fields []TypeField
}

func (*TypeDecl) stmtNode() {}
func (t *TypeDecl) String() string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return fmt.Sprintf("TypeDecl(%s{%s})", t.Name, strings.Join(names, ", "))
}

// ImportStmt represents import path [as alias].
type ImportStmt struct {
	Pos
	Path  string
	Alias string
}

func (*ImportStmt) stmtNode() {}
func (i *ImportStmt) String() string {
	return fmt.Sprintf("ImportStmt(%q as %s)", i.Path, i.Alias)
}

// ExportStmt wraps an exported declaration.
type ExportStmt struct {
	Pos
	Decl Stmt
}

func (*ExportStmt) stmtNode()        {}
func (e *ExportStmt) String() string { return fmt.Sprintf("ExportStmt(%s)", e.Decl) }

// ExprStmt represents an expression evaluated for its effects or, as the
// last statement of a block, for its value.
type ExprStmt struct {
	Pos
	Expr Expr
}

func (*ExprStmt) stmtNode()        {}
func (e *ExprStmt) String() string { return fmt.Sprintf("ExprStmt(%s)", e.Expr) }

func stmtList(stmts []Stmt) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.String()
	}
	return "[" + strings.Join(parts, "; ") + "]"
}

func switchString(disc Expr, cases []SwitchCase) string {
	parts := make([]string, len(cases))
	for i, c := range cases {
		parts[i] = c.String()
	}
	if disc == nil {
		return strings.Join(parts, " | ")
	}
	return fmt.Sprintf("%s: %s", disc, strings.Join(parts, " | "))
}

// Inspect traverses the tree rooted at node in depth-first order, calling f
// for each node before its children. Children are skipped when f returns
// false. Nil nodes are never passed to f.
func Inspect(node Node, f func(Node) bool) {
	if isNilNode(node) || !f(node) {
		return
	}
	switch n := node.(type) {
	case *Program:
		inspectStmts(n.Stmts, f)
	case *MemberExpr:
		Inspect(n.Object, f)
	case *IndexExpr:
		Inspect(n.Object, f)
		Inspect(n.Index, f)
	case *CallExpr:
		Inspect(n.Callee, f)
		for _, a := range n.Args {
			Inspect(a.Value, f)
		}
	case *BinaryExpr:
		Inspect(n.Left, f)
		Inspect(n.Right, f)
	case *UnaryExpr:
		Inspect(n.Operand, f)
	case *TernaryExpr:
		Inspect(n.Cond, f)
		Inspect(n.Then, f)
		Inspect(n.Else, f)
	case *ArrayLit:
		for _, e := range n.Elements {
			Inspect(e, f)
		}
	case *SwitchExpr:
		inspectSwitch(n.Discriminant, n.Cases, f)
	case *IfExpr:
		Inspect(n.Cond, f)
		inspectStmts(n.Then, f)
		inspectStmts(n.Else, f)
	case *VarDecl:
		Inspect(n.Value, f)
	case *Assignment:
		Inspect(n.Target, f)
		Inspect(n.Value, f)
	case *FuncDecl:
		inspectStmts(n.Body, f)
	case *IfStmt:
		Inspect(n.Cond, f)
		inspectStmts(n.Then, f)
		inspectStmts(n.Else, f)
	case *WhileStmt:
		Inspect(n.Cond, f)
		inspectStmts(n.Body, f)
	case *ForStmt:
		Inspect(n.Init, f)
		Inspect(n.Test, f)
		Inspect(n.Update, f)
		inspectStmts(n.Body, f)
	case *ForInStmt:
		Inspect(n.Iterable, f)
		inspectStmts(n.Body, f)
	case *ReturnStmt:
		Inspect(n.Value, f)
	case *SwitchStmt:
		inspectSwitch(n.Discriminant, n.Cases, f)
	case *TypeDecl:
		for _, fld := range n.Fields {
			Inspect(fld.Default, f)
		}
	case *ExportStmt:
		Inspect(n.Decl, f)
	case *ExprStmt:
		Inspect(n.Expr, f)
	}
}

func inspectStmts(stmts []Stmt, f func(Node) bool) {
	for _, s := range stmts {
		Inspect(s, f)
	}
}

func inspectSwitch(disc Expr, cases []SwitchCase, f func(Node) bool) {
	Inspect(disc, f)
	for _, c := range cases {
		Inspect(c.Test, f)
		inspectStmts(c.Body, f)
	}
}

// isNilNode catches both a nil interface and a typed nil pointer stored in
// an interface (for example a nil *VarDecl passed as Node).
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *VarDecl:
		return v == nil
	case *Assignment:
		return v == nil
	}
	return false
}
