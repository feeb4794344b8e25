// Package module builds the cross-module import graph, detects cycles,
// computes a topological compile order, and runs the merge-phase
// semantics: every module resolves its own declarations independently,
// then imports are linked across the whole program only once every
// module's export table exists.
//
// The graph shape mirrors ajroetker-goat/arch.go's flat registry
// (`parsers map[string]ArchParser`) generalized from a lookup table into
// a dependency DAG with explicit DFS-coloring cycle detection, the way
// main.go's multi-file `TranslateUnit` loop is generalized here into an
// ordered multi-module compile.
package module

import (
	"fmt"
	"sort"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
)

// Graph is the import dependency DAG across every module in a program.
type Graph struct {
	modules map[string]*ast.Module
	edges   map[string][]string // module name -> names it imports from
}

// NewGraph builds a Graph from a program's parsed modules, deriving edges
// from each module's top-level Import declarations. Only bare Import decls
// are checked; the grammar never wraps an import in Export.
func NewGraph(modules []*ast.Module) *Graph {
	g := &Graph{modules: make(map[string]*ast.Module), edges: make(map[string][]string)}
	for _, m := range modules {
		g.modules[m.Name] = m
	}
	for _, m := range modules {
		seen := make(map[string]bool)
		var deps []string
		for _, d := range m.Decls {
			imp, ok := d.(*ast.Import)
			if !ok {
				continue
			}
			if !seen[imp.Module] {
				seen[imp.Module] = true
				deps = append(deps, imp.Module)
			}
		}
		sort.Strings(deps) // deterministic edge order
		g.edges[m.Name] = deps
	}
	return g
}

// color states for the cycle-detection DFS.
const (
	white = 0
	gray  = 1
	black = 2
)

// CompileOrder returns modules in a valid topological order (dependencies
// before dependents), or reports E_CYCLIC_IMPORT and returns a partial,
// best-effort order if the graph has a cycle.
func (g *Graph) CompileOrder(sink *source.Sink) []*ast.Module {
	color := make(map[string]int, len(g.modules))
	var order []*ast.Module
	var stack []string

	names := make([]string, 0, len(g.modules))
	for n := range g.modules {
		names = append(names, n)
	}
	sort.Strings(names) // deterministic iteration start

	var visit func(name string)
	visit = func(name string) {
		if color[name] == black {
			return
		}
		if color[name] == gray {
			g.reportCycle(sink, stack, name)
			return
		}
		color[name] = gray
		stack = append(stack, name)
		for _, dep := range g.edges[name] {
			if _, ok := g.modules[dep]; ok {
				visit(dep)
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		if mod, ok := g.modules[name]; ok {
			order = append(order, mod)
		}
	}

	for _, name := range names {
		if color[name] == white {
			visit(name)
		}
	}
	return order
}

// reportCycle builds an E_CYCLIC_IMPORT diagnostic naming the cycle found
// on the current DFS stack, anchored at the module that closes the loop.
func (g *Graph) reportCycle(sink *source.Sink, stack []string, closing string) {
	start := 0
	for i, n := range stack {
		if n == closing {
			start = i
			break
		}
	}
	cycle := append(append([]string{}, stack[start:]...), closing)

	mod := g.modules[closing]
	var span source.Span
	if mod != nil {
		span = mod.Span()
	}
	sink.Add(source.New(source.Error, source.ErrCyclicImport, span,
		fmt.Sprintf("cyclic import: %s", formatCycle(cycle))))
}

func formatCycle(cycle []string) string {
	out := ""
	for i, n := range cycle {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// HasCycle reports whether the graph contains at least one import cycle.
func (g *Graph) HasCycle() bool {
	sink := source.NewSink(0, false)
	g.CompileOrder(sink)
	return sink.HasErrors()
}
