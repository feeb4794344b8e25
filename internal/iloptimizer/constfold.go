package iloptimizer

import "github.com/blendsdk/blend65/internal/il"

// foldAndPropagate runs one linear scan over a block's instructions,
// performing constant folding/propagation, store-to-load copy
// propagation, common subexpression elimination, and strength reduction
// together — each later instruction's operands are resolved against
// everything already folded or propagated earlier in the same block, so
// a single pass captures chains like `x = 2 + 3; y = x * 4;` folding all
// the way down to one immediate.
//
// All of this is local-value-numbering within one basic block; nothing
// here reasons across a branch, matching the dataflow suite's CFG
// boundaries rather than attempting a global analysis it doesn't provide.
func foldAndPropagate(b *il.Block, level Level) {
	regValue := map[il.Reg]il.Value{} // reg -> known-equivalent Value (const or prior reg)
	localValue := map[string]il.Value{}
	type exprKey struct {
		op    il.OpKind
		bin   il.BinOp
		un    il.UnOp
		a, b  il.Value
		typID int
	}
	exprCache := map[exprKey]il.Value{}

	out := b.Instrs[:0]
	for _, instr := range b.Instrs {
		if isVolatile(instr) {
			instr.A = resolve(instr.A, regValue)
			instr.B = resolve(instr.B, regValue)
			for i := range instr.Args {
				instr.Args[i] = resolve(instr.Args[i], regValue)
			}
			out = append(out, instr)
			invalidateAliasable(localValue, instr)
			continue
		}

		instr.A = resolve(instr.A, regValue)
		instr.B = resolve(instr.B, regValue)
		for i := range instr.Args {
			instr.Args[i] = resolve(instr.Args[i], regValue)
		}

		switch instr.Op {
		case il.OpStoreLocal:
			localValue[instr.Name] = instr.A
			out = append(out, instr)
			continue

		case il.OpLoadLocal:
			// Constant propagation (forwarding a known immediate) runs at
			// every optimization level, alongside folding; forwarding a
			// *copy* of another register
			// — true copy propagation — is the more aggressive rewrite
			// reserved for Full.
			if v, ok := localValue[instr.Name]; ok {
				if v.Kind == il.ValImm || level >= Full {
					regValue[instr.Dst] = v
					continue
				}
			}
			out = append(out, instr)
			continue

		case il.OpUnary:
			if instr.A.Kind == il.ValImm {
				if v, ok := foldUnary(instr.UnOp, instr.A.Imm); ok {
					regValue[instr.Dst] = il.ImmValue(v)
					continue
				}
			}

		case il.OpBinary:
			if level >= Full {
				if reduced, ok := strengthReduce(instr); ok {
					instr = reduced
				}
			}
			if instr.A.Kind == il.ValImm && instr.B.Kind == il.ValImm {
				if v, ok := foldBinary(instr.BinOp, instr.A.Imm, instr.B.Imm); ok {
					regValue[instr.Dst] = il.ImmValue(v)
					continue
				}
			}
			if level >= Full {
				key := exprKey{op: instr.Op, bin: instr.BinOp, a: instr.A, b: instr.B, typID: int(instr.Type)}
				if v, ok := exprCache[key]; ok {
					regValue[instr.Dst] = v
					continue
				}
				exprCache[key] = il.RegValue(instr.Dst)
			}

		case il.OpCast:
			if instr.A.Kind == il.ValImm {
				regValue[instr.Dst] = il.ImmValue(instr.A.Imm)
				continue
			}
		}

		out = append(out, instr)
	}
	b.Instrs = out

	b.Term.Value = resolve(b.Term.Value, regValue)
	b.Term.Cond = resolve(b.Term.Cond, regValue)
}

func resolve(v il.Value, regValue map[il.Reg]il.Value) il.Value {
	if v.Kind != il.ValReg {
		return v
	}
	if rv, ok := regValue[v.Reg]; ok {
		return rv
	}
	return v
}

// invalidateAliasable drops any cached local value that a call or other
// opaque instruction could have overwritten through a pointer. Since
// this IL only takes addresses of named locals/globals explicitly
// (OpAddressOfLocal), a conservative call-site invalidation of every
// local is correct and simple; a sharper analysis would track which
// locals ever had their address taken.
func invalidateAliasable(localValue map[string]il.Value, instr il.Instr) {
	if instr.Op == il.OpCall || instr.Op == il.OpCallVoid {
		for k := range localValue {
			delete(localValue, k)
		}
	}
}

func foldUnary(op il.UnOp, x int64) (int64, bool) {
	switch op {
	case il.Neg:
		return -x, true
	case il.Not:
		if x == 0 {
			return 1, true
		}
		return 0, true
	case il.BitNot:
		return ^x, true
	default:
		return 0, false
	}
}

func foldBinary(op il.BinOp, l, r int64) (int64, bool) {
	switch op {
	case il.Add:
		return l + r, true
	case il.Sub:
		return l - r, true
	case il.Mul:
		return l * r, true
	case il.Div:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case il.Mod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case il.Shl:
		return l << uint(r), true
	case il.Shr:
		return l >> uint(r), true
	case il.BitAnd:
		return l & r, true
	case il.BitOr:
		return l | r, true
	case il.BitXor:
		return l ^ r, true
	case il.Eq:
		return boolInt(l == r), true
	case il.Ne:
		return boolInt(l != r), true
	case il.Lt:
		return boolInt(l < r), true
	case il.Le:
		return boolInt(l <= r), true
	case il.Gt:
		return boolInt(l > r), true
	case il.Ge:
		return boolInt(l >= r), true
	default:
		return 0, false
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// strengthReduce rewrites a multiply by a power-of-two immediate into a
// shift. Only the right operand is checked since the
// builder never emits a constant on the left of a non-commutative
// rewrite target; a constant-left multiply still folds via the plain
// constant-folding case above once propagation reaches it.
func strengthReduce(instr il.Instr) (il.Instr, bool) {
	if instr.BinOp != il.Mul || instr.B.Kind != il.ValImm {
		return instr, false
	}
	shift, ok := log2PowerOfTwo(instr.B.Imm)
	if !ok {
		return instr, false
	}
	instr.BinOp = il.Shl
	instr.B = il.ImmValue(shift)
	return instr, true
}

func log2PowerOfTwo(n int64) (int64, bool) {
	if n <= 0 {
		return 0, false
	}
	shift := int64(0)
	for n > 1 {
		if n%2 != 0 {
			return 0, false
		}
		n /= 2
		shift++
	}
	return shift, true
}
