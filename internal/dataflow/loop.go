package dataflow

import (
	"github.com/blendsdk/blend65/internal/ast"
)

// LoopAnalysis marks the common 6502-relevant loop hints: a `for` loop's
// induction variable as MetaIsLoopCounter (a strong signal it belongs in
// a 6502 index register, for the register allocator), and expressions
// inside a loop body that reference none of the loop's own locals as
// MetaIsLoopInvariant (a hoisting candidate for the optimizer).
func LoopAnalysis(mod *ast.Module) {
	walkFunctions(mod, func(fn *ast.Function) {
		walkLoopsBlock(fn.Body)
	})
}

func walkLoopsBlock(b *ast.Block) {
	for _, s := range b.Stmts {
		walkLoopsStmt(s)
	}
}

func walkLoopsStmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		walkLoopsBlock(n)
	case *ast.If:
		walkLoopsBlock(n.Then)
		if n.Else != nil {
			walkLoopsStmt(n.Else)
		}
	case *ast.While:
		varying := map[string]bool{}
		collectAssignedNames(n.Body, varying)
		markInvariantExprs(n.Body, varying)
		walkLoopsBlock(n.Body)
	case *ast.DoWhile:
		varying := map[string]bool{}
		collectAssignedNames(n.Body, varying)
		markInvariantExprs(n.Body, varying)
		walkLoopsBlock(n.Body)
	case *ast.For:
		n.Metadata().Set(ast.MetaIsLoopCounter, true)
		varying := map[string]bool{n.Var: true}
		collectAssignedNames(n.Body, varying)
		markInvariantExprs(n.Body, varying)
		walkLoopsBlock(n.Body)
	case *ast.Switch:
		for _, c := range n.Cases {
			for _, cs := range c.Body {
				walkLoopsStmt(cs)
			}
		}
	}
}

// collectAssignedNames adds every name assigned anywhere in b to out, so
// markInvariantExprs knows which identifiers vary within the loop.
func collectAssignedNames(b *ast.Block, out map[string]bool) {
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case *ast.Block:
			collectAssignedNames(n, out)
		case *ast.VarDeclStmt:
			out[n.Decl.Name] = true
		case *ast.Assign:
			if ident, ok := n.LHS.(*ast.Identifier); ok {
				out[ident.Name] = true
			}
		case *ast.If:
			collectAssignedNames(n.Then, out)
			if eb, ok := n.Else.(*ast.Block); ok {
				collectAssignedNames(eb, out)
			}
		case *ast.While:
			collectAssignedNames(n.Body, out)
		case *ast.DoWhile:
			collectAssignedNames(n.Body, out)
		case *ast.For:
			out[n.Var] = true
			collectAssignedNames(n.Body, out)
		case *ast.Switch:
			for _, c := range n.Cases {
				collectAssignedNames(&ast.Block{Stmts: c.Body}, out)
			}
		}
	}
}

// markInvariantExprs flags every expression statement's top-level
// expression (and variable initializers) that references no name in
// varying as MetaIsLoopInvariant.
func markInvariantExprs(b *ast.Block, varying map[string]bool) {
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case *ast.ExprStmt:
			if !referencesAny(n.X, varying) {
				n.X.Metadata().Set(ast.MetaIsLoopInvariant, true)
			}
		case *ast.VarDeclStmt:
			if n.Decl.Init != nil && !referencesAny(n.Decl.Init, varying) {
				n.Decl.Init.Metadata().Set(ast.MetaIsLoopInvariant, true)
			}
		}
	}
}

func referencesAny(e ast.Expr, names map[string]bool) bool {
	found := false
	var walk func(e ast.Expr)
	walk = func(e ast.Expr) {
		if found || e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.Identifier:
			if names[n.Name] {
				found = true
			}
		case *ast.Call:
			walk(n.Callee)
			for _, a := range n.Args {
				walk(a)
			}
		case *ast.Index:
			walk(n.Base)
			walk(n.Index)
		case *ast.Member:
			walk(n.Base)
		case *ast.Unary:
			walk(n.X)
		case *ast.Binary:
			walk(n.LHS)
			walk(n.RHS)
		case *ast.Ternary:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		case *ast.ArrayLiteral:
			for _, el := range n.Elems {
				walk(el)
			}
		case *ast.AddressOf:
			walk(n.Operand)
		}
	}
	walk(e)
	return found
}
