package compiler

// PruneUnusedFunctions removes top-level function declarations that are
// never called from live code and are not exported. The input program is
// not modified.
func PruneUnusedFunctions(prog *Program) *Program {
	// 1. Map all function declarations by name
	funcs := make(map[string]*FuncDecl)
	for _, s := range prog.Stmts {
		if f, ok := s.(*FuncDecl); ok {
			funcs[f.Name] = f
		}
	}

	reachable := make(map[string]bool)
	var worklist []string

	addReachable := func(name string) {
		if !reachable[name] {
			reachable[name] = true
			worklist = append(worklist, name)
		}
	}

	// 2. Roots: every statement that is not itself a function declaration,
	// and exported functions.
	for _, s := range prog.Stmts {
		if _, ok := s.(*FuncDecl); ok {
			continue
		}
		for call := range findCalls(s) {
			addReachable(call)
		}
	}

	// 3. Traverse the worklist to find all transitively reachable functions
	for len(worklist) > 0 {
		curr := worklist[0]
		worklist = worklist[1:]

		fDecl, exists := funcs[curr]
		if !exists {
			// a builtin or an undefined name
			continue
		}
		for call := range findCalls(fDecl) {
			addReachable(call)
		}
	}

	// 4. Rebuild the program, dropping unreachable functions
	out := &Program{Stmts: make([]Stmt, 0, len(prog.Stmts))}
	for _, s := range prog.Stmts {
		if f, ok := s.(*FuncDecl); ok && !reachable[f.Name] {
			continue
		}
		out.Stmts = append(out.Stmts, s)
	}
	return out
}

// findCalls collects the names a subtree may call. Method calls such as
// x.update() contribute both the dotted name and the bare method name.
func findCalls(n Node) map[string]bool {
	calls := make(map[string]bool)
	Inspect(n, func(n Node) bool {
		c, ok := n.(*CallExpr)
		if !ok {
			return true
		}
		switch callee := c.Callee.(type) {
		case *Ident:
			calls[callee.Name] = true
		case *MemberExpr:
			calls[callee.Property] = true
			if name := calleeName(callee); name != "" {
				calls[name] = true
			}
		}
		return true
	})
	return calls
}
