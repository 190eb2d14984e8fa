package compiler

import (
	"fmt"
	"sort"
	"strings"
)

type SymbolKind int

const (
	SymVar SymbolKind = iota
	SymPersistent
	SymParam
	SymLoopVar
	SymImport
)

var symbolKindNames = [...]string{
	SymVar:        "var",
	SymPersistent: "persistent",
	SymParam:      "param",
	SymLoopVar:    "loop",
	SymImport:     "import",
}

func (k SymbolKind) String() string { return symbolKindNames[k] }

// Symbol is a name bound in one lexical scope of the generated code.
type Symbol struct {
	Name   string
	JSName string
	Kind   SymbolKind
	Series bool   // a series binding follows the declaration in this scope
	Cell   string // persistent cell of a var/varip declaration
}

// SymbolTable tracks lexical scopes while generating code, plus the
// program-wide user functions and types.
type SymbolTable struct {
	// Stack of scopes; index 0 is the body of the generated entry function.
	scopes []map[string]*Symbol

	funcs map[string]*FuncDecl
	types map[string]*TypeDecl
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		scopes: []map[string]*Symbol{make(map[string]*Symbol)},
		funcs:  make(map[string]*FuncDecl),
		types:  make(map[string]*TypeDecl),
	}
}

func (s *SymbolTable) EnterScope() {
	s.scopes = append(s.scopes, make(map[string]*Symbol))
}

func (s *SymbolTable) ExitScope() {
	if len(s.scopes) > 1 {
		s.scopes = s.scopes[:len(s.scopes)-1]
	}
}

// Depth is the number of scopes above the entry function body.
func (s *SymbolTable) Depth() int { return len(s.scopes) - 1 }

// Define binds name in the CURRENT scope. If name is already bound there the
// existing symbol is returned with true.
func (s *SymbolTable) Define(name string, kind SymbolKind) (*Symbol, bool) {
	current := s.scopes[len(s.scopes)-1]
	if sym, ok := current[name]; ok {
		return sym, true
	}
	sym := &Symbol{Name: name, JSName: sanitizeIdent(name), Kind: kind}
	current[name] = sym
	return sym, false
}

// Lookup returns the innermost symbol for name.
func (s *SymbolTable) Lookup(name string) (*Symbol, bool) {
	for i := len(s.scopes) - 1; i >= 0; i-- {
		if sym, ok := s.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

func (s *SymbolTable) DefineFunc(fn *FuncDecl) { s.funcs[fn.Name] = fn }

func (s *SymbolTable) GetFunc(name string) (*FuncDecl, bool) {
	fn, ok := s.funcs[name]
	return fn, ok
}

// GetMethod returns a method declaration by name.
func (s *SymbolTable) GetMethod(name string) (*FuncDecl, bool) {
	fn, ok := s.funcs[name]
	if !ok || !fn.IsMethod {
		return nil, false
	}
	return fn, true
}

func (s *SymbolTable) DefineType(t *TypeDecl) { s.types[t.Name] = t }

func (s *SymbolTable) GetType(name string) (*TypeDecl, bool) {
	t, ok := s.types[name]
	return t, ok
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	var sb strings.Builder
	for i, scope := range s.scopes {
		fmt.Fprintf(&sb, "Scope %d:\n", i)
		names := make([]string, 0, len(scope))
		for name := range scope {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := scope[name]
			fmt.Fprintf(&sb, "  %-20s  %s (%s, series: %t)\n", name, sym.JSName, sym.Kind, sym.Series)
		}
	}
	if len(s.funcs) > 0 {
		sb.WriteString("Functions:\n")
		names := make([]string, 0, len(s.funcs))
		for name := range s.funcs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  %s/%d\n", name, len(s.funcs[name].Params))
		}
	}
	if len(s.types) > 0 {
		sb.WriteString("Types:\n")
		names := make([]string, 0, len(s.types))
		for name := range s.types {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&sb, "  type %s (%d fields)\n", name, len(s.types[name].Fields))
		}
	}
	return sb.String()
}
