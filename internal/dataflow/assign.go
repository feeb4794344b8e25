package dataflow

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
)

// assignState is a definite-assignment set: the names of local variables
// guaranteed to hold a value on every path reaching the current program
// point. It is plain value semantics (copy-on-branch, intersect-on-join)
// rather than a CFG dataflow fixpoint, because Blend65's structured
// control flow (no goto) means a single recursive walk computing
// per-branch sets and intersecting at merge points is exact — no
// back-edges to iterate to a fixpoint over, unlike liveness.
type assignState map[string]bool

func (s assignState) clone() assignState {
	out := make(assignState, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

// intersect returns the set of names present in every one of the given
// states — what's definitely assigned after an if/else or switch is only
// what every arm guarantees.
func intersect(states ...assignState) assignState {
	if len(states) == 0 {
		return assignState{}
	}
	out := states[0].clone()
	for _, s := range states[1:] {
		for k := range out {
			if !s[k] {
				delete(out, k)
			}
		}
	}
	return out
}

// DefiniteAssignment reports E_USE_BEFORE_ASSIGN for every read of a
// local variable declared without an initializer before any path
// guarantees it has been written.
func DefiniteAssignment(mod *ast.Module, sink *source.Sink) {
	walkFunctions(mod, func(fn *ast.Function) {
		initial := assignState{}
		for _, p := range fn.Params {
			initial[p.Name] = true
		}
		a := &assignChecker{sink: sink, locals: make(map[string]bool)}
		a.collectLocals(fn.Body)
		a.block(fn.Body, initial)
	})
}

type assignChecker struct {
	sink   *source.Sink
	locals map[string]bool // names declared via `let` anywhere in this function
}

func (a *assignChecker) collectLocals(b *ast.Block) {
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case *ast.VarDeclStmt:
			a.locals[n.Decl.Name] = true
		case *ast.Block:
			a.collectLocals(n)
		case *ast.If:
			a.collectLocals(n.Then)
			if eb, ok := n.Else.(*ast.Block); ok {
				a.collectLocals(eb)
			} else if ei, ok := n.Else.(*ast.If); ok {
				a.collectLocals(&ast.Block{Stmts: []ast.Stmt{ei}})
			}
		case *ast.While:
			a.collectLocals(n.Body)
		case *ast.DoWhile:
			a.collectLocals(n.Body)
		case *ast.For:
			a.locals[n.Var] = true
			a.collectLocals(n.Body)
		case *ast.Switch:
			for _, c := range n.Cases {
				a.collectLocals(&ast.Block{Stmts: c.Body})
			}
		}
	}
}

// block walks stmts in order, threading the assigned-set through, and
// returns the set definitely assigned after the whole list runs.
func (a *assignChecker) block(b *ast.Block, in assignState) assignState {
	cur := in
	for _, s := range b.Stmts {
		cur = a.stmt(s, cur)
	}
	return cur
}

func (a *assignChecker) stmt(s ast.Stmt, in assignState) assignState {
	switch n := s.(type) {
	case *ast.Block:
		return a.block(n, in)
	case *ast.VarDeclStmt:
		if n.Decl.Init != nil {
			a.expr(n.Decl.Init, in)
			out := in.clone()
			out[n.Decl.Name] = true
			return out
		}
		return in
	case *ast.ConstDeclStmt:
		if n.Decl.Init != nil {
			a.expr(n.Decl.Init, in)
		}
		return in
	case *ast.ExprStmt:
		a.expr(n.X, in)
		return in
	case *ast.Assign:
		a.expr(n.RHS, in)
		if n.Op != ast.AssignPlain {
			a.expr(n.LHS, in) // compound assign also reads LHS
		}
		out := in
		if ident, ok := n.LHS.(*ast.Identifier); ok {
			out = in.clone()
			out[ident.Name] = true
		} else {
			a.expr(n.LHS, in)
		}
		return out
	case *ast.If:
		a.expr(n.Cond, in)
		thenOut := a.block(n.Then, in.clone())
		if n.Else != nil {
			elseOut := a.stmtAsBlockOut(n.Else, in.clone())
			return intersect(thenOut, elseOut)
		}
		return in // no guarantee without an else arm
	case *ast.While:
		a.expr(n.Cond, in)
		a.block(n.Body, in.clone()) // body may not execute; don't propagate its assignments
		return in
	case *ast.DoWhile:
		// A do-while body always runs at least once.
		out := a.block(n.Body, in.clone())
		a.expr(n.Cond, out)
		return out
	case *ast.For:
		a.expr(n.From, in)
		a.expr(n.Limit, in)
		if n.Step != nil {
			a.expr(n.Step, in)
		}
		bodyIn := in.clone()
		bodyIn[n.Var] = true
		a.block(n.Body, bodyIn) // may run zero times
		return in
	case *ast.Switch:
		a.expr(n.Subject, in)
		hasDefault := false
		var arms []assignState
		for _, c := range n.Cases {
			for _, v := range c.Values {
				a.expr(v, in)
			}
			if len(c.Values) == 0 {
				hasDefault = true
			}
			arms = append(arms, a.block(&ast.Block{Stmts: c.Body}, in.clone()))
		}
		if !hasDefault || len(arms) == 0 {
			return in
		}
		return intersect(arms...)
	case *ast.Return:
		if n.Value != nil {
			a.expr(n.Value, in)
		}
		return in
	default:
		return in
	}
}

func (a *assignChecker) stmtAsBlockOut(s ast.Stmt, in assignState) assignState {
	if b, ok := s.(*ast.Block); ok {
		return a.block(b, in)
	}
	return a.stmt(s, in)
}

func (a *assignChecker) expr(e ast.Expr, in assignState) {
	switch n := e.(type) {
	case *ast.Identifier:
		if a.locals[n.Name] && !in[n.Name] {
			a.sink.Add(source.New(source.Error, source.ErrUseBeforeAssign, n.Span(),
				fmt.Sprintf("%q is used before being assigned a value", n.Name)))
		}
	case *ast.Call:
		a.expr(n.Callee, in)
		for _, arg := range n.Args {
			a.expr(arg, in)
		}
	case *ast.Index:
		a.expr(n.Base, in)
		a.expr(n.Index, in)
	case *ast.Member:
		a.expr(n.Base, in)
	case *ast.Unary:
		a.expr(n.X, in)
	case *ast.Binary:
		a.expr(n.LHS, in)
		a.expr(n.RHS, in)
	case *ast.Ternary:
		a.expr(n.Cond, in)
		a.expr(n.Then, in)
		a.expr(n.Else, in)
	case *ast.ArrayLiteral:
		for _, el := range n.Elems {
			a.expr(el, in)
		}
	case *ast.AddressOf:
		// Taking the address of an unassigned local is itself a read for
		// this analysis's purposes — @x is treated like a use.
		a.expr(n.Operand, in)
	}
}
