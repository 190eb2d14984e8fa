package compiler

import (
	"reflect"
	"strings"
	"testing"
)

func parseSource(t *testing.T, src string) *Program {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, errs := Parse(tokens)
	if len(errs) > 0 {
		t.Fatalf("Parse failed: %v", errs)
	}
	return prog
}

func stmtStrings(prog *Program) []string {
	out := make([]string, len(prog.Stmts))
	for i, s := range prog.Stmts {
		out[i] = s.String()
	}
	return out
}

// TestParse verifies that Parse produces the correct AST for valid inputs.
func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "Variable Declaration",
			input:    "x = 1 + 2",
			expected: []string{"VarDecl(x = (1 + 2))"},
		},
		{
			name:     "Typed Declaration",
			input:    "float y = 1.5",
			expected: []string{"VarDecl(float y = 1.5)"},
		},
		{
			name:     "Persistent Declaration",
			input:    "var int count = 0\nvarip total = na",
			expected: []string{"VarDecl(var int count = 0)", "VarDecl(varip total = na)"},
		},
		{
			name:     "Reassignment",
			input:    "x := x + 1\ny += 2",
			expected: []string{"Assignment(x := (x + 1))", "Assignment(y += 2)"},
		},
		{
			name:     "Field Assignment",
			input:    "p.x = 2",
			expected: []string{"Assignment(p.x = 2)"},
		},
		{
			name:     "Tuple Declaration",
			input:    "[m, s] = f(x)",
			expected: []string{"VarDecl([m, s] = f(x))"},
		},
		{
			name:     "Named Arguments",
			input:    `plot(close, title="C")`,
			expected: []string{`ExprStmt(plot(close, title="C"))`},
		},
		{
			name:     "Ternary",
			input:    "y = a ? b : c",
			expected: []string{"VarDecl(y = (a ? b : c))"},
		},
		{
			name:     "Logical Precedence",
			input:    "z = not a and b or c",
			expected: []string{"VarDecl(z = (((not a) and b) or c))"},
		},
		{
			name:     "Arithmetic Precedence",
			input:    "z = a + b * c - d",
			expected: []string{"VarDecl(z = ((a + (b * c)) - d))"},
		},
		{
			name:     "Unary And History",
			input:    "w = -x[1] * 2",
			expected: []string{"VarDecl(w = ((-x[1]) * 2))"},
		},
		{
			name:     "Namespaced Call",
			input:    "v = ta.sma(close, 14)",
			expected: []string{"VarDecl(v = ta.sma(close, 14))"},
		},
		{
			name:     "Generic Call",
			input:    "a = array.new<float>(10)",
			expected: []string{"VarDecl(a = array.new<float>(10))"},
		},
		{
			name:     "Less Than Is Not A Generic",
			input:    "b = x < y",
			expected: []string{"VarDecl(b = (x < y))"},
		},
		{
			name:     "Availability Test",
			input:    "b = na(x)",
			expected: []string{"VarDecl(b = na(x))"},
		},
		{
			name:     "Arguments Across Lines",
			input:    "plot(a,\n     b)",
			expected: []string{"ExprStmt(plot(a, b))"},
		},
		{
			name:     "Single Line Function",
			input:    "f(a, b) => a + b",
			expected: []string{"FuncDecl(f(a, b) => [ExprStmt((a + b))])"},
		},
		{
			name:     "Block Function",
			input:    "f(x) =>\n    y = x * 2\n    y",
			expected: []string{"FuncDecl(f(x) => [VarDecl(y = (x * 2)); ExprStmt(y)])"},
		},
		{
			name:     "Typed Parameters With Defaults",
			input:    "f(float x, int n = 2) => x * n",
			expected: []string{"FuncDecl(f(x, n) => [ExprStmt((x * n))])"},
		},
		{
			name:  "If Else Chain",
			input: "if a\n    x := 1\nelse if b\n    x := 2\nelse\n    x := 3",
			expected: []string{
				"IfStmt(if a then [Assignment(x := 1)] else [IfStmt(if b then [Assignment(x := 2)] else [Assignment(x := 3)])])",
			},
		},
		{
			name:  "Counting Loop",
			input: "for i = 0 to 10 by 2\n    plot(i)",
			expected: []string{
				"ForStmt(init=VarDecl(i = 0), test=(i <= 10), update=Assignment(i += 2), body=[ExprStmt(plot(i))])",
			},
		},
		{
			name:  "Descending Loop",
			input: "for i = 10 to 0\n    x := i",
			expected: []string{
				"ForStmt(init=VarDecl(i = 10), test=(i >= 0), update=Assignment(i -= 1), body=[Assignment(x := i)])",
			},
		},
		{
			name:     "For In",
			input:    "for v in arr\n    s += v",
			expected: []string{"ForInStmt(v in arr do [Assignment(s += v)])"},
		},
		{
			name:     "For In With Index",
			input:    "for [i, v] in arr\n    s += v",
			expected: []string{"ForInStmt([i, v] in arr do [Assignment(s += v)])"},
		},
		{
			name:     "While",
			input:    "while i < 10\n    i += 1\n    if i == 5\n        break",
			expected: []string{"WhileStmt(while (i < 10) do [Assignment(i += 1); IfStmt(if (i == 5) then [BreakStmt])])"},
		},
		{
			name:     "Switch Statement",
			input:    "switch t\n    \"a\" => 1\n    => 2",
			expected: []string{`SwitchStmt(t: "a" => [ExprStmt(1)] | default => [ExprStmt(2)])`},
		},
		{
			name:     "Switch Expression",
			input:    "r = switch\n    a > b => 1\n    => 0\nplot(r)",
			expected: []string{"VarDecl(r = SwitchExpr((a > b) => [ExprStmt(1)] | default => [ExprStmt(0)]))", "ExprStmt(plot(r))"},
		},
		{
			name:     "If Expression",
			input:    "c = if a\n    1\nelse\n    2",
			expected: []string{"VarDecl(c = IfExpr(a then [ExprStmt(1)] else [ExprStmt(2)]))"},
		},
		{
			name:     "Type Declaration",
			input:    "type Point\n    float x = 0\n    float y",
			expected: []string{"TypeDecl(Point{x, y})"},
		},
		{
			name:     "Method",
			input:    "method area(Point p) =>\n    p.x * p.y",
			expected: []string{"MethodDecl(area(p) => [ExprStmt((p.x * p.y))])"},
		},
		{
			name:     "Import With Alias",
			input:    "import user/lib/1 as m",
			expected: []string{`ImportStmt("user/lib/1" as m)`},
		},
		{
			name:     "Import Default Alias",
			input:    "import user/ta_lib/2",
			expected: []string{`ImportStmt("user/ta_lib/2" as ta_lib)`},
		},
		{
			name:     "Export",
			input:    "export f(x) => x",
			expected: []string{"ExportStmt(FuncDecl(f(x) => [ExprStmt(x)]))"},
		},
		{
			name:     "Return",
			input:    "f(x) =>\n    if x > 0\n        return x\n    0",
			expected: []string{"FuncDecl(f(x) => [IfStmt(if (x > 0) then [ReturnStmt(x)]); ExprStmt(0)])"},
		},
		{
			name:     "Color Call",
			input:    "c = color.new(color.red, 50)",
			expected: []string{"VarDecl(c = color.new(color.red, 50))"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog := parseSource(t, tt.input)
			got := stmtStrings(prog)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Parse() =\n%v\nwant\n%v", strings.Join(got, "\n"), strings.Join(tt.expected, "\n"))
			}
		})
	}
}

func TestParseDeclarationNode(t *testing.T) {
	prog := parseSource(t, "x = 1 + 2")
	decl, ok := prog.Stmts[0].(*VarDecl)
	if !ok {
		t.Fatalf("Expected *VarDecl, got %T", prog.Stmts[0])
	}
	if decl.Name != "x" {
		t.Errorf("Name = %q, want x", decl.Name)
	}
	bin, ok := decl.Value.(*BinaryExpr)
	if !ok || bin.Op != "+" {
		t.Fatalf("Expected addition, got %v", decl.Value)
	}
	left, lok := bin.Left.(*NumberLit)
	right, rok := bin.Right.(*NumberLit)
	if !lok || !rok || left.Value != "1" || right.Value != "2" {
		t.Errorf("Operands = %v, %v; want 1, 2", bin.Left, bin.Right)
	}
	if decl.Line != 1 || decl.Column != 1 {
		t.Errorf("Position = %d:%d, want 1:1", decl.Line, decl.Column)
	}
}

func TestParseErrorRecovery(t *testing.T) {
	tokens, err := Lex("x = \ny = 2\nz = )\nw = 3")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, errs := Parse(tokens)
	if len(errs) != 2 {
		t.Fatalf("Expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0].Line != 1 || errs[1].Line != 3 {
		t.Errorf("Error lines = %d, %d; want 1, 3", errs[0].Line, errs[1].Line)
	}
	expected := []string{"VarDecl(y = 2)", "VarDecl(w = 3)"}
	if got := stmtStrings(prog); !reflect.DeepEqual(got, expected) {
		t.Errorf("Recovered statements = %v, want %v", got, expected)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{"Assign To Literal", "1 = 2", "cannot assign to 1"},
		{"Assign To History", "x[1] := 2", "cannot assign to x[1]"},
		{"Missing Block", "if a b", "expected NEWLINE"},
		{"Unclosed Call", "plot(a", "expected RPAREN"},
		{"Export Expression", "export 1 + 2", "export must precede"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Lex(tt.input)
			if err != nil {
				t.Fatalf("Lex failed: %v", err)
			}
			_, errs := Parse(tokens)
			if len(errs) == 0 {
				t.Fatalf("Expected a parse error")
			}
			if !strings.Contains(errs[0].Message, tt.message) {
				t.Errorf("Error = %q, want it to contain %q", errs[0].Message, tt.message)
			}
		})
	}
}

func TestParseRecursionDepth(t *testing.T) {
	inputs := []string{
		"x = " + strings.Repeat("(", 300) + "1" + strings.Repeat(")", 300),
		"x = " + strings.Repeat("-", 500) + "1",
		"x = " + strings.Repeat("f(", 300) + "1" + strings.Repeat(")", 300),
	}
	for _, src := range inputs {
		tokens, err := Lex(src)
		if err != nil {
			t.Fatalf("Lex failed: %v", err)
		}
		_, errs := Parse(tokens)
		found := false
		for _, e := range errs {
			if strings.Contains(e.Message, "recursion depth") {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a recursion depth error, got %v", errs)
		}
	}
}

func TestParseErrorCap(t *testing.T) {
	tokens, err := Lex(strings.Repeat(")\n", 100))
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	_, errs := Parse(tokens)
	if len(errs) != maxErrors {
		t.Errorf("Expected %d errors, got %d", maxErrors, len(errs))
	}
}

func TestParseTokenLimit(t *testing.T) {
	tokens, err := Lex("a = 1\nb = 2\nc = 3")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	prog, errs := ParseWithLimits(tokens, Limits{MaxTokens: 5})
	if len(errs) != 1 || !strings.Contains(errs[0].Message, "token limit exceeded") {
		t.Fatalf("Expected a token limit error, got %v", errs)
	}
	if len(prog.Stmts) != 0 {
		t.Errorf("Expected no statements, got %d", len(prog.Stmts))
	}
}

func TestParseForDirection(t *testing.T) {
	tests := []struct {
		input         string
		bidirectional bool
	}{
		{"for i = 0 to 10\n    x = i", false},
		{"for i = 10 to 0\n    x = i", false},
		{"for i = 0 to n\n    x = i", true},
		{"for i = a to b\n    x = i", true},
		{"for i = 0 to n by 2\n    x = i", false},
	}
	for _, tt := range tests {
		prog := parseSource(t, tt.input)
		loop, ok := prog.Stmts[0].(*ForStmt)
		if !ok {
			t.Fatalf("%q: expected *ForStmt, got %T", tt.input, prog.Stmts[0])
		}
		if loop.Bidirectional != tt.bidirectional {
			t.Errorf("%q: Bidirectional = %v, want %v", tt.input, loop.Bidirectional, tt.bidirectional)
		}
	}
}

func TestInspect(t *testing.T) {
	prog := parseSource(t, "x = a + b[1]\nf(y) => y * c")
	var names []string
	Inspect(prog, func(n Node) bool {
		if id, ok := n.(*Ident); ok {
			names = append(names, id.Name)
		}
		return true
	})
	expected := []string{"a", "b", "y", "c"}
	if !reflect.DeepEqual(names, expected) {
		t.Errorf("Inspect visited %v, want %v", names, expected)
	}
}
