package iloptimizer

import "github.com/blendsdk/blend65/internal/il"

// removeUnreachableBlocks drops every block not reachable from fn.Entry
// by walking Term successors, preserving Blocks[0] == Entry and relative
// order of what remains.
func removeUnreachableBlocks(fn *il.Function) {
	reachable := map[*il.Block]bool{}
	var walk func(b *il.Block)
	walk = func(b *il.Block) {
		if b == nil || reachable[b] {
			return
		}
		reachable[b] = true
		switch b.Term.Kind {
		case il.TermJump:
			walk(b.Term.Target)
		case il.TermBranch:
			walk(b.Term.Target)
			walk(b.Term.TargetFalse)
		case il.TermJumpTable:
			for _, t := range b.Term.Targets {
				walk(t)
			}
			walk(b.Term.Default)
		}
	}
	walk(fn.Entry)

	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
}

// eliminateDeadCode removes non-volatile, Dst-producing instructions
// whose result is never read, across every block in fn. A register
// counts as read if it appears as an operand of any surviving
// instruction or any block's terminator.
func eliminateDeadCode(fn *il.Function) {
	for {
		live := map[il.Reg]bool{}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				markLive(instr.A, live)
				markLive(instr.B, live)
				for _, a := range instr.Args {
					markLive(a, live)
				}
			}
			markLive(b.Term.Value, live)
			markLive(b.Term.Cond, live)
		}

		changed := false
		for _, b := range fn.Blocks {
			out := b.Instrs[:0]
			for _, instr := range b.Instrs {
				if isEffectOnly(instr.Op) || isVolatile(instr) {
					out = append(out, instr)
					continue
				}
				if !live[instr.Dst] {
					changed = true
					continue
				}
				out = append(out, instr)
			}
			b.Instrs = out
		}
		if !changed {
			return
		}
	}
}

func markLive(v il.Value, live map[il.Reg]bool) {
	if v.Kind == il.ValReg {
		live[v.Reg] = true
	}
}

// isEffectOnly reports whether op writes through a name/address rather
// than to a Dst register, so its Dst field (left at its zero value by
// the builder) must never be read as "produces register 0".
func isEffectOnly(op il.OpKind) bool {
	switch op {
	case il.OpStoreLocal, il.OpStoreGlobal, il.OpIndexStore,
		il.OpPoke, il.OpPokeW, il.OpVolatileWrite, il.OpIntrinsic, il.OpBarrier,
		il.OpCallVoid:
		return true
	default:
		return false
	}
}
