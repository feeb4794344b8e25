package codegen

import "github.com/blendsdk/blend65/internal/il"

// term emits b's control-flow exit.
func (g *generator) term(b *il.Block) {
	switch b.Term.Kind {
	case il.TermReturn:
		g.loadValue(b.Term.Value)
		g.emitOp("RTS", None, "", "")

	case il.TermReturnVoid:
		g.emitOp("RTS", None, "", "")

	case il.TermJump:
		g.jumpTo(b.Term.Target)

	case il.TermBranch:
		g.loadValue(b.Term.Cond)
		g.emitOp("CMP", Immediate, "#$00", "")
		g.emitOp("BEQ", Relative, g.blockLabel(b.Term.TargetFalse), "")
		g.jumpTo(b.Term.Target)

	case il.TermJumpTable:
		g.jumpTable(b)

	case il.TermUnreachable:
		// Dead per dataflow/optimizer analysis — emit nothing; no predecessor ever
		// reaches this point, so leaving no instruction here is correct, not
		// an omission.
	}
}

// jumpTo emits an unconditional branch to target.
func (g *generator) jumpTo(target *il.Block) {
	g.emitOp("JMP", Absolute, g.blockLabel(target), "")
}
