// Package compiler is the top-level orchestrator: it exposes one
// `Compile(inputs, options) -> {outputs, diagnostics}` entry point. It
// owns no language semantics of its own — every real pass lives in
// internal/lexer through internal/asm — and exists only to run them in
// order, gate the pipeline once a user-program error appears, and shape
// their combined result into what a caller (cmd/blend65, or a future
// embedder) expects back.
//
// The single entry-point-over-a-fixed-stage-sequence shape follows
// internal/dataflow's own Analyze, which in turn is grounded on
// ajroetker-goat/main.go's TranslateUnit: one function drives a fixed
// list of named steps over a unit of input.
package compiler

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/asm"
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/codegen"
	"github.com/blendsdk/blend65/internal/dataflow"
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/iloptimizer"
	"github.com/blendsdk/blend65/internal/lexer"
	"github.com/blendsdk/blend65/internal/module"
	"github.com/blendsdk/blend65/internal/parser"
	"github.com/blendsdk/blend65/internal/regalloc"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/target"
)

// Optimization mirrors the CLI's `--opt` option: off, basic, or full.
type Optimization string

const (
	OptOff   Optimization = "off"
	OptBasic Optimization = "basic"
	OptFull  Optimization = "full"
)

// Emit selects Compile's output shape: per-module assembly text, or one
// linked binary image.
type Emit string

const (
	EmitAsm    Emit = "asm"
	EmitBinary Emit = "binary"
)

// Options controls one Compile call: target, optimization, emit, the
// reserved allow-illegal-opcodes flag (always false in this version —
// no behavior is defined yet for true), max-diagnostics (0 = unlimited),
// warnings-as-errors, and a zero-page budget override.
type Options struct {
	Target              string
	Optimization        Optimization
	Emit                Emit
	AllowIllegalOpcodes bool
	MaxDiagnostics      int
	WarningsAsErrors    bool
	ZeroPageBudget      int // 0 means "use the target's own default"
}

// Input is one source file handed to Compile, already read off disk (or
// wherever the caller got it from — Compile itself does no I/O; that is
// cmd/blend65's job).
type Input struct {
	Name string
	Text string
}

// Output is one artifact Compile produced: a module's assembly text when
// Options.Emit is EmitAsm, or the one linked binary image when it is
// EmitBinary.
type Output struct {
	ModuleName  string
	Assembly    string
	Binary      []byte
	LoadAddress int
}

// Result is Compile's `{outputs, diagnostics}` pair. Map is carried
// alongside so a caller can run source.Render over Diagnostics itself
// (Render needs the file text a Span points into).
type Result struct {
	Outputs     []Output
	Diagnostics []source.Diagnostic
	Map         *source.Map
}

func optimizerLevel(o Optimization) iloptimizer.Level {
	switch o {
	case OptBasic:
		return iloptimizer.Basic
	case OptFull:
		return iloptimizer.Full
	default:
		return iloptimizer.Off
	}
}

// Compile runs lexing through assembly over inputs, in order, with this
// failure policy throughout:
//   - a lexer halts its own file on an unrecoverable error but other files
//     still get lexed and parsed (the lexer/parser pair already implement
//     this; Compile just runs one pair per file);
//   - parser, resolver and type errors all accumulate into one Sink
//     rather than stopping the compilation early;
//   - dataflow diagnostics accumulate the same way;
//   - once any Error or Internal diagnostic is present, code generation
//     never runs (the gate below) — there is no partial codegen output,
//     only diagnostics;
//   - an internal-compiler-error (a violated invariant, not a user
//     mistake) is reported at Internal severity and also stops the
//     pipeline, wherever it's caught.
func Compile(inputs []Input, opts Options) *Result {
	sink := source.NewSink(opts.MaxDiagnostics, opts.WarningsAsErrors)
	srcMap := source.NewMap()

	desc, err := target.Get(opts.Target)
	if err != nil {
		sink.Add(source.New(source.Error, source.ErrInvalidOption, source.Span{}, err.Error()))
		return &Result{Diagnostics: sink.All(), Map: srcMap}
	}

	zeroPageBudget := desc.ZeroPageBudget
	if opts.ZeroPageBudget > 0 {
		zeroPageBudget = opts.ZeroPageBudget
	}

	modules := parseAll(inputs, srcMap, sink)

	prog := module.Resolve(modules, zeroPageBudget, sink)
	if sink.HasErrors() {
		return &Result{Diagnostics: sink.All(), Map: srcMap}
	}

	for _, mod := range prog.Order {
		graphs := dataflow.FunctionGraphs(prog.CFGs[mod.Name])
		dataflow.Analyze(mod, prog.Tables[mod.Name], graphs, desc, sink)
	}

	// Gate: any error-severity diagnostic present after dataflow analysis
	// and code generation never runs.
	if sink.HasErrors() {
		return &Result{Diagnostics: sink.All(), Map: srcMap}
	}

	outputs, err := generate(prog, desc, opts)
	if err != nil {
		sink.Add(source.New(source.Internal, source.ErrInternalInvariant, source.Span{}, err.Error()))
		return &Result{Diagnostics: sink.All(), Map: srcMap}
	}

	return &Result{Outputs: outputs, Diagnostics: sink.All(), Map: srcMap}
}

// parseAll lexes and parses every input into a Module, in the order given.
// Each file gets its own Lexer/Parser pair reporting into the same sink,
// so one file's halted lex never stops the rest from being parsed.
func parseAll(inputs []Input, srcMap *source.Map, sink *source.Sink) []*ast.Module {
	modules := make([]*ast.Module, 0, len(inputs))
	for _, in := range inputs {
		fileID := srcMap.AddFile(in.Name, in.Text)
		lex := lexer.New(lexer.FileText{ID: fileID, Text: in.Text}, sink)
		p := parser.New(lex, sink, fileID)
		modules = append(modules, p.ParseFile())
	}
	return modules
}

// generate runs IL lowering through assembly over a resolved, type-checked,
// dataflow-clean Program. Every module is lowered to IL first, before any
// module is allocated or generated: ParamNames (codegen's cross-module
// call support) needs every function's parameter list up front, and the
// code generator itself needs every module's Plan available by the time
// it generates a call whose callee lives in a different module — this
// ordering is what keeps that cross-module case correct instead of
// leaving it as a gap for a later stage to patch.
func generate(prog *module.Program, desc *target.Descriptor, opts Options) ([]Output, error) {
	ilPrograms := make([]*il.Program, 0, len(prog.Order))
	for _, mod := range prog.Order {
		ilPrograms = append(ilPrograms, il.Lower(mod, prog.Tables[mod.Name], prog.Types))
	}

	level := optimizerLevel(opts.Optimization)
	for _, p := range ilPrograms {
		iloptimizer.Optimize(p, level)
	}

	allParams := codegen.ParamNames(ilPrograms)

	plans := make([]*regalloc.Plan, 0, len(ilPrograms))
	for _, p := range ilPrograms {
		plans = append(plans, regalloc.Allocate(p, prog.Planner, prog.Types, desc))
	}
	merged := &regalloc.Plan{Functions: map[string]*regalloc.FunctionPlan{}}
	for _, plan := range plans {
		for name, fp := range plan.Functions {
			merged.Functions[name] = fp
		}
	}
	units := make([]*codegen.Unit, 0, len(ilPrograms))
	for _, p := range ilPrograms {
		units = append(units, codegen.Generate(p, merged, prog.Types, desc, allParams))
	}

	if err := regalloc.Validate(plans); err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}

	externalLabels := globalAddresses(prog, desc)

	if opts.Emit == EmitBinary {
		img, err := asm.Assemble(units, desc, externalLabels)
		if err != nil {
			return nil, fmt.Errorf("compiler: %w", err)
		}
		return []Output{{ModuleName: "program", Binary: img.Code, LoadAddress: img.LoadAddress}}, nil
	}

	outputs := make([]Output, 0, len(units))
	for _, u := range units {
		outputs = append(outputs, Output{ModuleName: u.ModuleName, Assembly: u.String(), LoadAddress: desc.LoadAddress})
	}
	return outputs, nil
}

// globalAddresses turns every @zp/@ram/@data/@map variable the resolver
// placed in prog.Planner's arenas into the real address the assembler
// needs: the code generator never resolves a global's address itself
// (OpLoadGlobal/OpStoreGlobal/OpAddressOfGlobal all carry the bare symbol
// name, the same "emit symbolic, let the next stage resolve" split its own
// jump tables use between code generation and assembly), so this is the
// one place that combines an arena's relative offset with its
// target-specific real base:
//   - zero page: desc.ZeroPageStart + offset, the same arithmetic
//     codegen's own zpAddr applies to a register spill's zero-page cell;
//   - RAM: desc.RAMStart + offset, mirroring codegen's operandAddr for a
//     LocRAM register spill, so a spilled register and an @ram global can
//     never collide — both are ultimately offsets into the same arena;
//   - @map: the arena already stores the symbol's real, caller-fixed
//     address (Arena.Reserve, not Allocate), so it passes through as-is;
//   - @data (ROM-able initialized constants): the code generator has no
//     separate data-segment emission path yet (see internal/asm's
//     DESIGN.md entry), so @data variables are placed in the RAM arena's
//     address space for now, the same way @ram ones are; this is a known
//     simplification, not a silent drop, since nothing in this compilation
//     can yet read from a separate data segment either.
func globalAddresses(prog *module.Program, desc *target.Descriptor) map[string]int {
	out := map[string]int{}
	for _, r := range prog.Planner.ZeroPage.Used() {
		out[r.Owner] = desc.ZeroPageStart + r.Start
	}
	for _, r := range prog.Planner.RAM.Used() {
		out[r.Owner] = desc.RAMStart + r.Start
	}
	for _, r := range prog.Planner.Data.Used() {
		out[r.Owner] = desc.RAMStart + r.Start
	}
	for _, r := range prog.Planner.Mapped.Used() {
		out[r.Owner] = r.Start
	}
	return out
}
