package dataflow

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
)

// CallGraph maps a function name to the set of function names its body
// calls directly. Built module-local; cross-module calls are resolved by
// name only (the module coordinator has already linked imports so the
// identifier is in scope), and recursion-cycle detection only needs the
// name graph, not the resolved symbol.
type CallGraph struct {
	edges map[string]map[string]bool
	fns   map[string]*ast.Function
}

// BuildCallGraph walks every function body in mod and records its direct
// callees by name.
func BuildCallGraph(mod *ast.Module) *CallGraph {
	cg := &CallGraph{edges: make(map[string]map[string]bool), fns: make(map[string]*ast.Function)}
	walkFunctions(mod, func(fn *ast.Function) {
		cg.fns[fn.Name] = fn
		callees := make(map[string]bool)
		collectCalls(fn.Body, callees)
		cg.edges[fn.Name] = callees
	})
	return cg
}

func collectCalls(b *ast.Block, out map[string]bool) {
	for _, s := range b.Stmts {
		collectCallsStmt(s, out)
	}
}

func collectCallsStmt(s ast.Stmt, out map[string]bool) {
	switch n := s.(type) {
	case *ast.Block:
		collectCalls(n, out)
	case *ast.VarDeclStmt:
		if n.Decl.Init != nil {
			collectCallsExpr(n.Decl.Init, out)
		}
	case *ast.ConstDeclStmt:
		if n.Decl.Init != nil {
			collectCallsExpr(n.Decl.Init, out)
		}
	case *ast.ExprStmt:
		collectCallsExpr(n.X, out)
	case *ast.Assign:
		collectCallsExpr(n.LHS, out)
		collectCallsExpr(n.RHS, out)
	case *ast.If:
		collectCallsExpr(n.Cond, out)
		collectCalls(n.Then, out)
		if n.Else != nil {
			collectCallsStmt(n.Else, out)
		}
	case *ast.While:
		collectCallsExpr(n.Cond, out)
		collectCalls(n.Body, out)
	case *ast.DoWhile:
		collectCalls(n.Body, out)
		collectCallsExpr(n.Cond, out)
	case *ast.For:
		collectCallsExpr(n.From, out)
		collectCallsExpr(n.Limit, out)
		if n.Step != nil {
			collectCallsExpr(n.Step, out)
		}
		collectCalls(n.Body, out)
	case *ast.Switch:
		collectCallsExpr(n.Subject, out)
		for _, c := range n.Cases {
			for _, v := range c.Values {
				collectCallsExpr(v, out)
			}
			for _, cs := range c.Body {
				collectCallsStmt(cs, out)
			}
		}
	case *ast.Return:
		if n.Value != nil {
			collectCallsExpr(n.Value, out)
		}
	}
}

func collectCallsExpr(e ast.Expr, out map[string]bool) {
	switch n := e.(type) {
	case *ast.Call:
		if ident, ok := n.Callee.(*ast.Identifier); ok {
			out[ident.Name] = true
		}
		collectCallsExpr(n.Callee, out)
		for _, a := range n.Args {
			collectCallsExpr(a, out)
		}
	case *ast.Index:
		collectCallsExpr(n.Base, out)
		collectCallsExpr(n.Index, out)
	case *ast.Member:
		collectCallsExpr(n.Base, out)
	case *ast.Unary:
		collectCallsExpr(n.X, out)
	case *ast.Binary:
		collectCallsExpr(n.LHS, out)
		collectCallsExpr(n.RHS, out)
	case *ast.Ternary:
		collectCallsExpr(n.Cond, out)
		collectCallsExpr(n.Then, out)
		collectCallsExpr(n.Else, out)
	case *ast.ArrayLiteral:
		for _, el := range n.Elems {
			collectCallsExpr(el, out)
		}
	case *ast.AddressOf:
		collectCallsExpr(n.Operand, out)
	}
}

// ReportRecursion emits W_RECURSIVE_CALL_CYCLE for every function
// reachable from itself through the call graph. Recursion is allowed but
// flagged, not rejected, since the register allocator cannot statically
// bound a recursive function's stack depth on a 6502 the way it can for
// straight-line call trees.
func (cg *CallGraph) ReportRecursion(sink *source.Sink) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(cg.fns))
	reported := make(map[string]bool)

	var visit func(name string, stack []string)
	visit = func(name string, stack []string) {
		if color[name] == black {
			return
		}
		if color[name] == gray {
			if !reported[name] {
				reported[name] = true
				fn := cg.fns[name]
				var span source.Span
				if fn != nil {
					span = fn.Span()
				}
				sink.Add(source.New(source.Warning, source.WarnRecursiveCycle, span,
					fmt.Sprintf("%q is part of a recursive call cycle", name)))
			}
			return
		}
		color[name] = gray
		stack = append(stack, name)
		for callee := range cg.edges[name] {
			if _, ok := cg.fns[callee]; ok {
				visit(callee, stack)
			}
		}
		color[name] = black
	}

	for name := range cg.fns {
		if color[name] == white {
			visit(name, nil)
		}
	}
}

