package dataflow

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/target"
)

// HardwareChecks runs the target-specific dataflow checks: SID
// voice/control conflicts and a VIC-II badline cycle estimate. Both are
// inert when hw's corresponding base address is 0 (the VIC-20/X16
// descriptors have no SID, and the X16 has no VIC-II at all).
//
// Each hardware analyzer is a pure function of (Module, Metadata) to
// (Diagnostics, Metadata); Blend65 currently has one such analyzer (this
// function) and dispatches on hw fields rather than a second registry,
// since every target shares the same check shapes and only differs in
// which base addresses are nonzero.
func HardwareChecks(mod *ast.Module, mt *symbols.ModuleTable, hw *target.Descriptor, sink *source.Sink) {
	if hw == nil {
		return
	}
	if hw.SIDBase != 0 {
		checkSidConflicts(mod, mt, hw, sink)
	}
	if hw.VICBase != 0 && hw.BadlineCycleBudget > 0 {
		checkBadlineRisk(mod, hw, sink)
	}
}

// sidWrite records one function's write to a SID register.
type sidWrite struct {
	fn     string
	voice  int // -1 for the shared filter/volume block
	field  string
	span   source.Span
	isCtrl bool
}

// checkSidConflicts finds every poke/pokew call with a constant-foldable
// address inside the SID range and reports a conflict when two different
// functions both write the same register: an error for control registers
// (waveform, gate), a warning for frequency/envelope registers.
func checkSidConflicts(mod *ast.Module, mt *symbols.ModuleTable, hw *target.Descriptor, sink *source.Sink) {
	var writes []sidWrite
	walkFunctions(mod, func(fn *ast.Function) {
		collectPokes(fn.Body, func(addr int, span source.Span) {
			offset := addr - hw.SIDBase
			if offset < 0 || offset > sidFilterVolumeOffsetBound {
				return
			}
			voice, field, isCtrl, ok := classifySidOffset(offset)
			if !ok {
				return
			}
			writes = append(writes, sidWrite{fn: fn.Name, voice: voice, field: field, span: span, isCtrl: isCtrl})
		})
	})

	byReg := map[string][]sidWrite{}
	for _, w := range writes {
		key := fmt.Sprintf("%d:%s", w.voice, w.field)
		byReg[key] = append(byReg[key], w)
	}
	for _, group := range byReg {
		fns := map[string]bool{}
		for _, w := range group {
			fns[w.fn] = true
		}
		if len(fns) < 2 {
			continue
		}
		w := group[0]
		sev := source.Warning
		code := source.WarnSidVoiceConflict
		msg := fmt.Sprintf("multiple functions write SID voice %d %s register", w.voice, w.field)
		if w.isCtrl {
			sev = source.Error
			code = source.ErrSidControlConflict
			msg = fmt.Sprintf("multiple functions write SID voice %d control register", w.voice)
		}
		var related []source.Span
		for _, w2 := range group[1:] {
			related = append(related, w2.span)
		}
		d := source.New(sev, code, w.span, msg)
		for _, r := range related {
			d = d.WithRelated(r, "also written here")
		}
		sink.Add(d)
	}
}

const sidFilterVolumeOffsetBound = target.SidFilterVolumeOffset

// classifySidOffset maps a SID-relative byte offset to (voice index,
// field name, isControl). Returns ok=false for offsets not covered here
// (reserved/unused SID bytes).
func classifySidOffset(offset int) (voice int, field string, isCtrl bool, ok bool) {
	for i, v := range target.SidVoiceOffsets {
		switch offset {
		case v.FreqLo, v.FreqHi:
			return i, "frequency", false, true
		case v.PulseLo, v.PulseHi:
			return i, "pulse-width", false, true
		case v.Control:
			return i, "waveform/gate", true, true
		case v.AttackDecay, v.SustainRelease:
			return i, "envelope", false, true
		}
	}
	if offset == target.SidFilterVolumeOffset {
		return -1, "filter/volume", true, true
	}
	return 0, "", false, false
}

// collectPokes walks b for poke/pokew calls whose first argument is a
// literal or constant-folded address, invoking report(addr, span) for
// each.
func collectPokes(b *ast.Block, report func(addr int, span source.Span)) {
	var walkBlock func(b *ast.Block)
	var walkStmt func(s ast.Stmt)
	var walkExpr func(e ast.Expr)

	walkBlock = func(b *ast.Block) {
		for _, s := range b.Stmts {
			walkStmt(s)
		}
	}
	walkStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case *ast.Block:
			walkBlock(n)
		case *ast.ExprStmt:
			walkExpr(n.X)
		case *ast.VarDeclStmt:
			if n.Decl.Init != nil {
				walkExpr(n.Decl.Init)
			}
		case *ast.Assign:
			walkExpr(n.LHS)
			walkExpr(n.RHS)
		case *ast.If:
			walkBlock(n.Then)
			if n.Else != nil {
				walkStmt(n.Else)
			}
		case *ast.While:
			walkBlock(n.Body)
		case *ast.DoWhile:
			walkBlock(n.Body)
		case *ast.For:
			walkBlock(n.Body)
		case *ast.Switch:
			for _, c := range n.Cases {
				for _, cs := range c.Body {
					walkStmt(cs)
				}
			}
		case *ast.Return:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		}
	}
	walkExpr = func(e ast.Expr) {
		switch n := e.(type) {
		case *ast.Call:
			if ident, ok := n.Callee.(*ast.Identifier); ok && (ident.Name == "poke" || ident.Name == "pokew") && len(n.Args) > 0 {
				if addr, ok := foldExpr(n.Args[0]); ok {
					report(int(addr), n.Span())
				}
			}
			for _, a := range n.Args {
				walkExpr(a)
			}
		case *ast.Index:
			walkExpr(n.Base)
			walkExpr(n.Index)
		case *ast.Member:
			walkExpr(n.Base)
		case *ast.Unary:
			walkExpr(n.X)
		case *ast.Binary:
			walkExpr(n.LHS)
			walkExpr(n.RHS)
		case *ast.Ternary:
			walkExpr(n.Cond)
			walkExpr(n.Then)
			walkExpr(n.Else)
		case *ast.ArrayLiteral:
			for _, el := range n.Elems {
				walkExpr(el)
			}
		case *ast.AddressOf:
			walkExpr(n.Operand)
		}
	}
	walkBlock(b)
}

// checkBadlineRisk estimates each function's instruction-count cycle cost
// with a flat per-statement heuristic (a true cycle-accurate count needs
// the code generator's chosen opcodes, not available this early) and
// flags functions whose estimate already exceeds the target's badline
// budget, tagging them MetaIsHotPath so the register allocator
// prioritizes zero-page placement for their locals.
func checkBadlineRisk(mod *ast.Module, hw *target.Descriptor, sink *source.Sink) {
	walkFunctions(mod, func(fn *ast.Function) {
		cycles := estimateCycles(fn.Body)
		if cycles > hw.BadlineCycleBudget {
			fn.Metadata().Set(ast.MetaIsHotPath, true)
			fn.Metadata().Set(ast.MetaEstimatedCycles, cycles)
			sink.Add(source.New(source.Warning, source.WarnBadlineOverrun, fn.Span(),
				fmt.Sprintf("%q is estimated at %d cycles, over the %d-cycle badline budget", fn.Name, cycles, hw.BadlineCycleBudget)))
		} else {
			fn.Metadata().Set(ast.MetaEstimatedCycles, cycles)
		}
	})
}

// estimateCycles is a coarse per-statement cost model: straight-line
// statements cost 4 cycles (a typical load/store/compare average on the
// 6502), calls cost 12 (JSR/RTS plus a few operations), and loop bodies
// are weighted by a fixed iteration guess of 8 since the true bound is
// not known until the IL builder has folded the loop's range.
func estimateCycles(b *ast.Block) int {
	const (
		baseStmtCycles = 4
		callCycles     = 12
		loopFactor     = 8
	)
	total := 0
	for _, s := range b.Stmts {
		switch n := s.(type) {
		case *ast.Block:
			total += estimateCycles(n)
		case *ast.If:
			total += baseStmtCycles + estimateCycles(n.Then)
			if eb, ok := n.Else.(*ast.Block); ok {
				total += estimateCycles(eb)
			}
		case *ast.While:
			total += loopFactor * (baseStmtCycles + estimateCycles(n.Body))
		case *ast.DoWhile:
			total += loopFactor * (baseStmtCycles + estimateCycles(n.Body))
		case *ast.For:
			total += loopFactor * (baseStmtCycles + estimateCycles(n.Body))
		case *ast.Switch:
			for _, c := range n.Cases {
				total += estimateCycles(&ast.Block{Stmts: c.Body})
			}
		case *ast.ExprStmt:
			if containsCall(n.X) {
				total += callCycles
			} else {
				total += baseStmtCycles
			}
		default:
			total += baseStmtCycles
		}
	}
	return total
}

func containsCall(e ast.Expr) bool {
	_, ok := e.(*ast.Call)
	return ok
}
