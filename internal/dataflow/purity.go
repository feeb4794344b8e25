package dataflow

import (
	"github.com/blendsdk/blend65/internal/ast"
)

// MarkPurity runs a fixpoint over the call graph, classifying each
// function MetaIsPure when its body writes no global/mapped storage,
// performs no hardware intrinsic (poke/pokew/volatile_write/sei/cli/...),
// and calls only other functions already classified pure. Recursive
// functions settle to impure unless proven otherwise on a later
// iteration, which a fixpoint naturally handles.
func MarkPurity(mod *ast.Module, cg *CallGraph) {
	pure := make(map[string]bool, len(cg.fns))
	writesGlobal := make(map[string]bool, len(cg.fns))

	for name, fn := range cg.fns {
		writesGlobal[name] = bodyWritesOutsideLocals(fn)
	}

	// Seed: a function with no global writes and no impure callees is
	// tentatively pure; iterate until no function's classification
	// changes (a standard monotone fixpoint — at most len(fns) passes
	// are ever needed since purity can only flip pure->impure, never
	// back, within one run).
	for name := range cg.fns {
		pure[name] = !writesGlobal[name]
	}
	changed := true
	for changed {
		changed = false
		for name := range cg.fns {
			if !pure[name] {
				continue
			}
			for callee := range cg.edges[name] {
				if _, known := cg.fns[callee]; known && !pure[callee] {
					pure[name] = false
					changed = true
					break
				}
				if _, known := cg.fns[callee]; !known && isKnownImpureIntrinsic(callee) {
					pure[name] = false
					changed = true
					break
				}
			}
		}
	}

	for name, fn := range cg.fns {
		fn.Metadata().Set(ast.MetaIsPure, pure[name])
	}
}

// bodyWritesOutsideLocals reports whether fn assigns to any identifier
// that is not one of its own parameters or `let`-declared locals — the
// cheap proxy for "writes a global or @map location" this package can
// compute without re-running full symbol resolution (the resolver's
// Symbol.Storage would give an exact answer; this stays local to avoid
// threading a ModuleTable through every call site in this package, and
// over-approximates conservatively toward impure on ambiguous names).
func bodyWritesOutsideLocals(fn *ast.Function) bool {
	local := make(map[string]bool)
	for _, p := range fn.Params {
		local[p.Name] = true
	}
	found := false
	var walkBlock func(b *ast.Block)
	var walkStmt func(s ast.Stmt)
	walkBlock = func(b *ast.Block) {
		for _, s := range b.Stmts {
			walkStmt(s)
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Block:
			walkBlock(n)
		case *ast.VarDeclStmt:
			local[n.Decl.Name] = true
		case *ast.Assign:
			if ident, ok := n.LHS.(*ast.Identifier); ok {
				if !local[ident.Name] {
					found = true
				}
			} else {
				// Index/Member targets are never locals in this grammar.
				found = true
			}
		case *ast.If:
			walkBlock(n.Then)
			if n.Else != nil {
				walkStmt(n.Else)
			}
		case *ast.While:
			walkBlock(n.Body)
		case *ast.DoWhile:
			walkBlock(n.Body)
		case *ast.For:
			local[n.Var] = true
			walkBlock(n.Body)
		case *ast.Switch:
			for _, c := range n.Cases {
				for _, cs := range c.Body {
					walkStmt(cs)
				}
			}
		}
	}
	walkBlock(fn.Body)
	return found
}

func isKnownImpureIntrinsic(name string) bool {
	switch name {
	case "poke", "pokew", "volatile_write", "sei", "cli", "brk", "pha", "pla", "php", "plp", "barrier":
		return true
	default:
		return false
	}
}
