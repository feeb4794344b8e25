// Package dataflow runs the analysis suite over a resolved, type-checked,
// CFG-built module: definite assignment, unused declarations, dead code,
// constant-propagation hints, purity, call graph and recursion detection,
// loop analysis, and 6502-specific hardware checks. It has no
// live-variable analysis.
// Each analysis annotates ast.Metadata in place for IL generation,
// optimization, register allocation and code generation to read back, and
// reports its own diagnostics where one applies.
//
// The pass-per-file, shared-orchestrator shape follows
// ajroetker-goat/main.go's TranslateUnit: one function drives a fixed
// sequence of named steps over a unit of input, each step free to inspect
// what earlier steps produced.
package dataflow

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/cfg"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/target"
)

// FunctionGraphs maps function name to its built CFG, the shape
// internal/module's coordinator already produces per module.
type FunctionGraphs map[string]*cfg.Graph

// Analyze runs every analysis over one module. hw is nil when the caller
// has not selected a target yet (e.g. a syntax-only check); hardware
// checks are skipped in that case.
func Analyze(mod *ast.Module, mt *symbols.ModuleTable, graphs FunctionGraphs, hw *target.Descriptor, sink *source.Sink) {
	UnusedDeclarations(mt, sink)
	DeadCode(mod, graphs, sink)
	DefiniteAssignment(mod, sink)
	cg := BuildCallGraph(mod)
	cg.ReportRecursion(sink)
	MarkPurity(mod, cg)
	ConstantFold(mod)
	LoopAnalysis(mod)
	if hw != nil {
		HardwareChecks(mod, mt, hw, sink)
	}
}
