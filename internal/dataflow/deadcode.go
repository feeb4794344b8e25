package dataflow

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/cfg"
	"github.com/blendsdk/blend65/internal/source"
)

// DeadCode reports W_DEAD_CODE for every statement in a block the CFG
// marked unreachable from its function's entry, and stamps
// MetaIsUnreachable on each such statement so the IL builder can skip
// lowering it entirely rather than emit IL that never runs.
func DeadCode(mod *ast.Module, graphs FunctionGraphs, sink *source.Sink) {
	walkFunctions(mod, func(fn *ast.Function) {
		g, ok := graphs[fn.Name]
		if !ok {
			return
		}
		for _, b := range g.Blocks {
			if b.Reachable {
				continue
			}
			for _, s := range b.Stmts {
				s.Metadata().Set(ast.MetaIsUnreachable, true)
				sink.Add(source.New(source.Warning, source.WarnDeadCode, s.Span(), "unreachable statement"))
			}
		}
	})
}

// walkFunctions calls f for every function declaration in mod that has a
// body, unwrapping Export wrappers.
func walkFunctions(mod *ast.Module, f func(fn *ast.Function)) {
	for _, d := range mod.Decls {
		fn := unwrapFunction(d)
		if fn != nil && fn.Body != nil {
			f(fn)
		}
	}
}

func unwrapFunction(d ast.Decl) *ast.Function {
	switch n := d.(type) {
	case *ast.Function:
		return n
	case *ast.Export:
		return unwrapFunction(n.Inner)
	default:
		return nil
	}
}
