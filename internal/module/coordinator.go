package module

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/cfg"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/typecheck"
	"github.com/blendsdk/blend65/internal/types"
)

// Program is the result of resolving and type-checking every module in a
// compilation, in dependency order, with cross-module imports linked.
type Program struct {
	Order   []*ast.Module
	Tables  map[string]*symbols.ModuleTable
	CFGs    map[string]map[string]*cfg.Graph // module name -> function name -> graph
	Types   *types.Table                     // shared across every module; the IL builder onward resolves TypeIDs against this
	Planner *symbols.MemoryPlanner           // shared arena; the register allocator draws its own cells from this same instance
}

// Resolve runs the full merge-phase pipeline:
//  1. build the import graph and compute a cycle-checked compile order;
//  2. run the two-pass resolver independently over each module, in that
//     order, against one shared type table and memory planner;
//  3. link every module's imports against the rest of the program's
//     export tables (the actual cross-module "merge");
//  4. run the type checker over each module now that every name,
//     including imported ones, resolves;
//  5. build a CFG per function body, for the dataflow suite and IL
//     builder to consume.
//
// Each module resolves against its own global scope independently until
// step 3 — passes operate on module-local structures until that merge
// phase, which is why steps 2 and 4 could run one module at a time
// without shared mutable state beyond the type table and memory planner,
// both of which are append-only/arena-based specifically to make that
// safe.
func Resolve(modules []*ast.Module, zeroPageBudget int, sink *source.Sink) *Program {
	g := NewGraph(modules)
	order := g.CompileOrder(sink)
	if sink.HasErrors() {
		return &Program{Order: order}
	}

	tt := types.NewTable()
	planner := symbols.NewMemoryPlanner(zeroPageBudget)
	resolver := symbols.NewResolver(tt, planner, sink)

	tables := make(map[string]*symbols.ModuleTable, len(order))
	for _, mod := range order {
		tables[mod.Name] = resolver.ResolveModule(mod)
	}

	symbols.LinkImports(tables, sink)

	checker := typecheck.New(tt, sink)
	for _, mod := range order {
		checker.CheckModule(mod, tables[mod.Name].Global)
	}

	graphs := make(map[string]map[string]*cfg.Graph, len(order))
	for _, mod := range order {
		fnGraphs := make(map[string]*cfg.Graph)
		for _, d := range mod.Decls {
			fn := functionOf(d)
			if fn != nil && fn.Body != nil {
				fnGraphs[fn.Name] = cfg.Build(fn.Body)
			}
		}
		graphs[mod.Name] = fnGraphs
	}

	return &Program{Order: order, Tables: tables, CFGs: graphs, Types: tt, Planner: planner}
}

func functionOf(d ast.Decl) *ast.Function {
	switch n := d.(type) {
	case *ast.Function:
		return n
	case *ast.Export:
		return functionOf(n.Inner)
	default:
		return nil
	}
}
