package il

import (
	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/types"
)

// expr lowers an expression to a Value, emitting whatever instructions
// are needed into b.cur along the way. Literals fold to an immediate
// Value directly rather than through an OpConst instruction — the
// optimizer would fold that trivially anyway, but skipping it here keeps
// straight-line arithmetic on constants from cluttering every block with
// throwaway const ops.
func (b *builder) expr(e ast.Expr) Value {
	switch n := e.(type) {
	case *ast.Literal:
		return b.literal(n)
	case *ast.Identifier:
		return b.identifier(n)
	case *ast.Call:
		return b.call(n)
	case *ast.Index:
		return b.index(n)
	case *ast.Member:
		return b.member(n)
	case *ast.Unary:
		return b.unary(n)
	case *ast.Binary:
		return b.binary(n)
	case *ast.Ternary:
		return b.ternary(n)
	case *ast.ArrayLiteral:
		return b.arrayLiteral(n)
	case *ast.AddressOf:
		return b.addressOf(n)
	default:
		return ImmValue(0)
	}
}

func (b *builder) literal(n *ast.Literal) Value {
	switch n.Kind {
	case ast.LitBool:
		if n.Bool {
			return ImmValue(1)
		}
		return ImmValue(0)
	case ast.LitString:
		// A bare string literal has no register-sized value; it only
		// appears where the type checker already required it to decay to
		// an address (e.g. initializing a @data byte array). Lowering
		// that decay is the caller's job (array-literal / variable
		// initializer), not this node's.
		return ImmValue(0)
	default:
		return ImmValue(int64(n.Int))
	}
}

func (b *builder) identifier(n *ast.Identifier) Value {
	if b.locals[n.Name] {
		dst := b.newReg()
		b.emit(Instr{Op: OpLoadLocal, Dst: dst, Name: n.Name, Type: exprType(n)})
		return RegValue(dst)
	}
	if v, ok := b.consts[n.Name]; ok {
		return ImmValue(v)
	}
	dst := b.newReg()
	b.emit(Instr{Op: OpLoadGlobal, Dst: dst, Name: n.Name, Type: exprType(n), Volatile: b.isVolatileGlobal(n.Name)})
	return RegValue(dst)
}

// call lowers byte()/word() casts, fixed-signature intrinsics, and
// ordinary function calls. CALL vs CALL_VOID is decided strictly from
// the callee symbol's resolved return type, never from the call's
// syntactic position.
func (b *builder) call(n *ast.Call) Value {
	if ident, ok := n.Callee.(*ast.Identifier); ok {
		switch ident.Name {
		case "byte", "word":
			return b.cast(n)
		}
		if _, isIntrinsic := intrinsicArity[ident.Name]; isIntrinsic {
			return b.intrinsic(n, ident.Name)
		}
		return b.functionCall(n, ident.Name)
	}
	// Callback value call: the callee is itself an expression (e.g. a
	// parameter of a callback type), not a bare name.
	return b.functionCall(n, "")
}

func (b *builder) cast(n *ast.Call) Value {
	v := b.expr(n.Args[0])
	dst := b.newReg()
	b.emit(Instr{Op: OpCast, Dst: dst, A: v, Type: exprType(n)})
	return RegValue(dst)
}

func (b *builder) intrinsic(n *ast.Call, name string) Value {
	switch name {
	case "peek":
		addr := b.expr(n.Args[0])
		dst := b.newReg()
		b.emit(Instr{Op: OpPeek, Dst: dst, A: addr, Type: exprType(n)})
		return RegValue(dst)
	case "peekw":
		addr := b.expr(n.Args[0])
		dst := b.newReg()
		b.emit(Instr{Op: OpPeekW, Dst: dst, A: addr, Type: exprType(n)})
		return RegValue(dst)
	case "poke":
		addr := b.expr(n.Args[0])
		val := b.expr(n.Args[1])
		b.emit(Instr{Op: OpPoke, A: addr, B: val, Volatile: true})
		return Value{}
	case "pokew":
		addr := b.expr(n.Args[0])
		val := b.expr(n.Args[1])
		b.emit(Instr{Op: OpPokeW, A: addr, B: val, Volatile: true})
		return Value{}
	case "volatile_read":
		addr := b.expr(n.Args[0])
		dst := b.newReg()
		b.emit(Instr{Op: OpVolatileRead, Dst: dst, A: addr, Type: exprType(n), Volatile: true})
		return RegValue(dst)
	case "volatile_write":
		addr := b.expr(n.Args[0])
		val := b.expr(n.Args[1])
		b.emit(Instr{Op: OpVolatileWrite, A: addr, B: val, Volatile: true})
		return Value{}
	default: // sei/cli/nop/brk/pha/pla/php/plp/barrier
		op := OpIntrinsic
		if name == "barrier" {
			op = OpBarrier
		}
		b.emit(Instr{Op: op, Intrinsic: name, Volatile: true})
		return Value{}
	}
}

func (b *builder) functionCall(n *ast.Call, calleeName string) Value {
	args := make([]Value, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, b.expr(a))
	}

	retType := b.tt.Void()
	if calleeName != "" {
		if sym, ok := b.mt.Global.Lookup(calleeName); ok {
			if ty := b.tt.Get(b.tt.Resolve(sym.TypeID)); ty != nil && ty.Kind == types.KindFunction {
				retType = ty.Return
			}
		}
	} else {
		// Callback value: the call expression's own resolved type (set
		// by the type checker from the callback-typed callee) is the
		// return type.
		retType = exprType(n)
	}

	if retType == b.tt.Void() {
		b.emit(Instr{Op: OpCallVoid, Callee: calleeName, Args: args})
		return Value{}
	}
	dst := b.newReg()
	b.emit(Instr{Op: OpCall, Dst: dst, Callee: calleeName, Args: args, Type: retType})
	return RegValue(dst)
}

func (b *builder) index(n *ast.Index) Value {
	base := b.expr(n.Base)
	idx := b.expr(n.Index)
	dst := b.newReg()
	b.emit(Instr{Op: OpIndexLoad, Dst: dst, A: base, B: idx, Type: exprType(n)})
	return RegValue(dst)
}

// member lowers `Enum.Member` to its ordinal immediate and `@map`
// struct-field access to a load of the dotted "Group.Field" global.
func (b *builder) member(n *ast.Member) Value {
	ident, ok := n.Base.(*ast.Identifier)
	if !ok {
		return ImmValue(0)
	}
	key := ident.Name + "." + n.Name
	if v, ok := b.consts[key]; ok {
		return ImmValue(v)
	}
	dst := b.newReg()
	b.emit(Instr{Op: OpLoadGlobal, Dst: dst, Name: key, Type: exprType(n), Volatile: true})
	return RegValue(dst)
}

func (b *builder) unary(n *ast.Unary) Value {
	x := b.expr(n.X)
	var op UnOp
	switch n.Op {
	case ast.UnaryNeg:
		op = Neg
	case ast.UnaryNot:
		op = Not
	case ast.UnaryBitNot:
		op = BitNot
	default:
		return x
	}
	dst := b.newReg()
	b.emit(Instr{Op: OpUnary, Dst: dst, A: x, UnOp: op, Type: exprType(n)})
	return RegValue(dst)
}

// binary lowers arithmetic/comparison operators directly, but && and ||
// short-circuit: the right operand must not execute (and its side
// effects must not happen) unless the left operand's value requires it.
func (b *builder) binary(n *ast.Binary) Value {
	switch n.Op {
	case ast.BinAnd:
		return b.shortCircuit(n, false)
	case ast.BinOr:
		return b.shortCircuit(n, true)
	}

	lhs := b.expr(n.LHS)
	rhs := b.expr(n.RHS)
	dst := b.newReg()
	b.emit(Instr{Op: OpBinary, Dst: dst, A: lhs, B: rhs, BinOp: binOpTable[n.Op], Type: exprType(n)})
	return RegValue(dst)
}

// shortCircuit lowers `a || b` / `a && b` by materializing the result
// into a temp local: evaluate a; if its truthiness already decides the
// result, store it and skip b; otherwise evaluate b and store that.
// orMode selects || (shortcuts on a truthy left) vs && (shortcuts on a
// falsy left).
func (b *builder) shortCircuit(n *ast.Binary, orMode bool) Value {
	lhs := b.expr(n.LHS)
	tmp := b.newTemp()
	b.emit(Instr{Op: OpStoreLocal, Name: tmp, A: lhs})

	rhsBlk := b.newBlock("sc_rhs")
	joinBlk := b.newBlock("sc_join")

	lhsReg := b.newReg()
	b.emit(Instr{Op: OpLoadLocal, Dst: lhsReg, Name: tmp})
	if orMode {
		b.cur.Term = Term{Kind: TermBranch, Cond: RegValue(lhsReg), Target: joinBlk, TargetFalse: rhsBlk}
	} else {
		b.cur.Term = Term{Kind: TermBranch, Cond: RegValue(lhsReg), Target: rhsBlk, TargetFalse: joinBlk}
	}

	b.cur = rhsBlk
	rhs := b.expr(n.RHS)
	b.emit(Instr{Op: OpStoreLocal, Name: tmp, A: rhs})
	b.cur.Term = Term{Kind: TermJump, Target: joinBlk}

	b.cur = joinBlk
	dst := b.newReg()
	b.emit(Instr{Op: OpLoadLocal, Dst: dst, Name: tmp})
	return RegValue(dst)
}

func (b *builder) ternary(n *ast.Ternary) Value {
	cond := b.expr(n.Cond)
	tmp := b.newTemp()

	thenBlk := b.newBlock("tern_then")
	elseBlk := b.newBlock("tern_else")
	joinBlk := b.newBlock("tern_join")
	b.cur.Term = Term{Kind: TermBranch, Cond: cond, Target: thenBlk, TargetFalse: elseBlk}

	b.cur = thenBlk
	thenV := b.expr(n.Then)
	b.emit(Instr{Op: OpStoreLocal, Name: tmp, A: thenV})
	b.cur.Term = Term{Kind: TermJump, Target: joinBlk}

	b.cur = elseBlk
	elseV := b.expr(n.Else)
	b.emit(Instr{Op: OpStoreLocal, Name: tmp, A: elseV})
	b.cur.Term = Term{Kind: TermJump, Target: joinBlk}

	b.cur = joinBlk
	dst := b.newReg()
	b.emit(Instr{Op: OpLoadLocal, Dst: dst, Name: tmp})
	return RegValue(dst)
}

func (b *builder) arrayLiteral(n *ast.ArrayLiteral) Value {
	// Array literals only appear as initializers for a @data/@ram array
	// variable; the storing statement handles laying the elements out, so
	// here we just hand back the element values for it to consume via
	// Args.
	dst := b.newReg()
	args := make([]Value, 0, len(n.Elems))
	for _, el := range n.Elems {
		args = append(args, b.expr(el))
	}
	b.emit(Instr{Op: OpConst, Dst: dst, Args: args, Type: exprType(n)})
	return RegValue(dst)
}

func (b *builder) addressOf(n *ast.AddressOf) Value {
	dst := b.newReg()
	switch operand := n.Operand.(type) {
	case *ast.Identifier:
		if b.locals[operand.Name] {
			b.emit(Instr{Op: OpAddressOfLocal, Dst: dst, Name: operand.Name, Type: exprType(n)})
		} else {
			b.emit(Instr{Op: OpAddressOfGlobal, Dst: dst, Name: operand.Name, Type: exprType(n)})
		}
	case *ast.Member:
		if ident, ok := operand.Base.(*ast.Identifier); ok {
			b.emit(Instr{Op: OpAddressOfGlobal, Dst: dst, Name: ident.Name + "." + operand.Name, Type: exprType(n)})
		}
	case *ast.Index:
		base := b.expr(operand.Base)
		idx := b.expr(operand.Index)
		addr := b.newReg()
		b.emit(Instr{Op: OpBinary, Dst: addr, A: base, B: idx, BinOp: Add, Type: exprType(n)})
		return RegValue(addr)
	}
	return RegValue(dst)
}

// exprType pulls the resolved type the type checker stamped on e,
// defaulting to Void if somehow absent (only possible for a node the
// type checker never visited, which would itself be a defect upstream).
func exprType(e ast.Expr) types.ID {
	if rt := e.ExprType(); rt != nil {
		return types.ID(rt.TypeID)
	}
	return 0
}
