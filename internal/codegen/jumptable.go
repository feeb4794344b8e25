package codegen

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/il"
)

// jumpTable lowers a TermJumpTable without self-modifying code and without
// JMP (ind,X) (a 65C02 addressing mode, unavailable on the classic 6502
// this generator otherwise targets uniformly — see opcodes.go). Instead it
// uses the standard 6502 computed-jump idiom: a table of
// (target-address-minus-one) words indexed by the dispatch value, pushed
// onto the stack high-byte-then-low-byte, followed by RTS — RTS pops an
// address and resumes execution one byte past it, so pushing
// target-1 lands exactly on target. This never writes to the table itself
// at runtime, so the dispatch never becomes self-modifying code.
func (g *generator) jumpTable(b *il.Block) {
	t := b.Term
	tableLabel := fmt.Sprintf("%s_jt%d", g.fn.Name, b.ID)

	g.loadValue(t.Value)
	g.emitOp("SEC", None, "", "")
	g.emitOp("SBC", Immediate, fmt.Sprintf("#$%02X", byte(t.Low)), "")

	// Out-of-range dispatch values fall through to Default.
	g.emitOp("CMP", Immediate, fmt.Sprintf("#$%02X", byte(len(t.Targets))), "")
	g.emitOp("BCS", Relative, g.blockLabel(t.Default), "")

	// Index into the parallel lo/hi byte tables directly: each holds one
	// byte per case, so X is the dispatch value itself, not value*2.
	g.emitOp("TAX", None, "", "")
	g.emitOp("LDA", AbsoluteX, tableLabel+"_hi,X", "")
	g.emitOp("PHA", None, "", "")
	g.emitOp("LDA", AbsoluteX, tableLabel+"_lo,X", "")
	g.emitOp("PHA", None, "", "")
	g.emitOp("RTS", None, "", "")

	// The table itself: each entry is target-1, split into two parallel
	// byte tables (tableLabel+"_lo"/"_hi") so AbsoluteX can index either
	// half directly without a *2 stride the 6502 has no addressing mode for.
	g.emitDispatchTable(tableLabel, t.Targets)
}

// emitDispatchTable appends the two parallel low/high byte tables
// jumpTable indexes into. Each target's real address isn't known until the
// assembler resolves labels, so the code generator emits symbolic
// expressions (lo/hi of label-minus-one) for the assembler to finish — the
// same "emit symbolic, let the next stage resolve" split the whole pipeline
// already uses between text generation and two-pass label resolution.
func (g *generator) emitDispatchTable(tableLabel string, targets []*il.Block) {
	lo := make([]string, len(targets))
	hi := make([]string, len(targets))
	for i, tgt := range targets {
		label := g.blockLabel(tgt)
		lo[i] = fmt.Sprintf("<(%s-1)", label)
		hi[i] = fmt.Sprintf(">(%s-1)", label)
	}
	g.emit(Line{Labels: []string{tableLabel + "_lo"}, Instruction: ".byte " + join(lo)})
	g.emit(Line{Labels: []string{tableLabel + "_hi"}, Instruction: ".byte " + join(hi)})
}

func join(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}
