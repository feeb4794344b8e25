// Package iloptimizer implements the classical peephole/dataflow passes
// applied to the IL builder's output: constant folding and propagation,
// dead-code elimination, copy propagation, common subexpression
// elimination within a basic block, and strength reduction for
// multiply-by-power-of-two. Every pass treats an instruction marked
// Volatile, or any op with hardware side effects (poke/pokew/intrinsic/
// barrier/volatile read-write), as opaque: never removed, reordered
// across a barrier, or folded into another instruction.
//
// The pass-over-a-fixed-instruction-set shape is grounded on
// chriskillpack-bbcdisasm/opcodes.go's isOpcodeDocumented-style
// predicate filtering: there, a fixed table decides which opcodes survive
// a disassembly pass; here the same "keep if predicate, drop otherwise"
// shape decides which instructions survive an optimization pass.
package iloptimizer

import "github.com/blendsdk/blend65/internal/il"

// Level selects how aggressively Optimize rewrites a program, mirroring
// the CLI's `optimization ∈ {off, basic, full}` option.
type Level int

const (
	Off Level = iota
	Basic
	Full
)

// Optimize rewrites p in place and also returns it, for chaining.
// Off leaves every function untouched, satisfying the requirement that
// turning optimization off must reproduce the IL builder's own output
// byte-for-byte.
func Optimize(p *il.Program, level Level) *il.Program {
	if level == Off {
		return p
	}
	for _, fn := range p.Functions {
		optimizeFunction(fn, level)
	}
	return p
}

func optimizeFunction(fn *il.Function, level Level) {
	for _, b := range fn.Blocks {
		foldAndPropagate(b, level)
	}
	removeUnreachableBlocks(fn)
	eliminateDeadCode(fn)
}

// isVolatile reports whether instr must never be removed, reordered
// across a barrier, or merged with another instruction. Calls are
// treated the same way even when not explicitly marked: their
// side effects (on globals, on @map state reachable through them) are
// opaque to this package.
func isVolatile(instr il.Instr) bool {
	if instr.Volatile {
		return true
	}
	switch instr.Op {
	case il.OpCall, il.OpCallVoid, il.OpIntrinsic, il.OpBarrier:
		return true
	default:
		return false
	}
}
