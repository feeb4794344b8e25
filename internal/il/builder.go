package il

import (
	"fmt"

	"github.com/blendsdk/blend65/internal/ast"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/types"
)

// intrinsicArity mirrors internal/typecheck/expr.go's intrinsicArgCount —
// duplicated rather than imported, the same call typecheck's own
// resolveTypeName makes: this package needs only the name set, not
// typecheck's Checker state, and importing it would create a needless
// dependency the pipeline's stage order never requires in the other
// direction.
var intrinsicArity = map[string]int{
	"peek": 1, "poke": 2, "peekw": 1, "pokew": 2,
	"sei": 0, "cli": 0, "nop": 0, "brk": 0,
	"pha": 0, "pla": 0, "php": 0, "plp": 0,
	"barrier": 0, "volatile_read": 1, "volatile_write": 2,
}

var binOpTable = map[ast.BinaryOp]BinOp{
	ast.BinAdd: Add, ast.BinSub: Sub, ast.BinMul: Mul, ast.BinDiv: Div, ast.BinMod: Mod,
	ast.BinShl: Shl, ast.BinShr: Shr,
	ast.BinBitAnd: BitAnd, ast.BinBitOr: BitOr, ast.BinBitXor: BitXor,
	ast.BinEq: Eq, ast.BinNe: Ne, ast.BinLt: Lt, ast.BinLe: Le, ast.BinGt: Gt, ast.BinGe: Ge,
}

// Lower builds an il.Program from a resolved, type-checked module. mt and
// tt are the module's symbol table and the shared type table produced by
// internal/module's coordinator.
func Lower(mod *ast.Module, mt *symbols.ModuleTable, tt *types.Table) *Program {
	p := &Program{ModuleName: mod.Name}

	consts := moduleConstValues(mod)

	for _, d := range mod.Decls {
		fn := unwrapFunction(d)
		if fn == nil || fn.Body == nil {
			continue
		}
		b := newBuilder(mt, tt, consts)
		p.Functions = append(p.Functions, b.build(fn))
	}
	return p
}

func unwrapFunction(d ast.Decl) *ast.Function {
	switch n := d.(type) {
	case *ast.Function:
		return n
	case *ast.Export:
		return unwrapFunction(n.Inner)
	default:
		return nil
	}
}

// moduleConstValues folds every top-level `const` and enum member to its
// compile-time integer value, in declaration order so a later const's
// initializer can reference an earlier one. Const initializers are
// evaluated at compile time and folded into the IL as immediate values.
func moduleConstValues(mod *ast.Module) map[string]int64 {
	out := map[string]int64{}
	var visit func(d ast.Decl)
	visit = func(d ast.Decl) {
		switch n := d.(type) {
		case *ast.Export:
			visit(n.Inner)
		case *ast.Const:
			if v, ok := foldConstExpr(n.Init, out); ok {
				out[n.Name] = v
			}
		case *ast.Enum:
			for i, m := range n.Members {
				out[n.Name+"."+m.Name] = int64(i)
			}
		}
	}
	for _, d := range mod.Decls {
		visit(d)
	}
	return out
}

// foldConstExpr folds a literal/const-reference/arithmetic expression tree
// to an int64, looking up already-folded names in known.
func foldConstExpr(e ast.Expr, known map[string]int64) (int64, bool) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.Kind {
		case ast.LitInt:
			return int64(n.Int), true
		case ast.LitBool:
			if n.Bool {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case *ast.Identifier:
		v, ok := known[n.Name]
		return v, ok
	case *ast.Member:
		if ident, ok := n.Base.(*ast.Identifier); ok {
			v, ok := known[ident.Name+"."+n.Name]
			return v, ok
		}
		return 0, false
	case *ast.Unary:
		v, ok := foldConstExpr(n.X, known)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case ast.UnaryNeg:
			return -v, true
		case ast.UnaryBitNot:
			return ^v, true
		case ast.UnaryNot:
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case *ast.Binary:
		l, lok := foldConstExpr(n.LHS, known)
		r, rok := foldConstExpr(n.RHS, known)
		if !lok || !rok {
			return 0, false
		}
		return foldConstBinary(n.Op, l, r)
	default:
		return 0, false
	}
}

func foldConstBinary(op ast.BinaryOp, l, r int64) (int64, bool) {
	switch op {
	case ast.BinAdd:
		return l + r, true
	case ast.BinSub:
		return l - r, true
	case ast.BinMul:
		return l * r, true
	case ast.BinDiv:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case ast.BinMod:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case ast.BinShl:
		return l << uint(r), true
	case ast.BinShr:
		return l >> uint(r), true
	case ast.BinBitAnd:
		return l & r, true
	case ast.BinBitOr:
		return l | r, true
	case ast.BinBitXor:
		return l ^ r, true
	default:
		return 0, false
	}
}

// loopFrame tracks break/continue targets for the innermost enclosing
// loop or switch — control statements nest the way C's do.
type loopFrame struct {
	breakTarget    *Block
	continueTarget *Block
	isSwitch       bool
}

// builder lowers one function at a time; no state survives across calls
// to build except the counters, which restart per function since
// registers and temp names are function-local.
type builder struct {
	mt     *symbols.ModuleTable
	tt     *types.Table
	consts map[string]int64 // module-level, read-only

	fn          *Function
	cur         *Block
	nextReg     Reg
	nextBlockID int
	nextTemp    int

	locals map[string]bool // param/let/for names declared in the current function
	frames []loopFrame
}

func newBuilder(mt *symbols.ModuleTable, tt *types.Table, consts map[string]int64) *builder {
	return &builder{mt: mt, tt: tt, consts: consts, locals: map[string]bool{}}
}

func (b *builder) build(fn *ast.Function) *Function {
	retType := b.tt.Void()
	if fn.ReturnType != nil {
		retType = b.resolveReturnType(fn)
	}
	b.fn = &Function{Name: fn.Name, Return: retType, IsCallback: fn.IsCallback}
	for _, p := range fn.Params {
		b.fn.ParamNames = append(b.fn.ParamNames, p.Name)
		b.locals[p.Name] = true
	}
	collectLocalNames(fn.Body, b.locals)

	entry := b.newBlock("entry")
	b.fn.Entry = entry
	b.cur = entry

	b.lowerBlock(fn.Body)

	if b.cur != nil {
		if retType == b.tt.Void() {
			b.cur.Term = Term{Kind: TermReturnVoid}
		} else {
			// A well-typed program guarantees every path returns; falling
			// off the end here means the type checker either missed a case
			// or the input was accepted leniently. Either way, this is not
			// a user-facing diagnostic at this stage — mark it unreachable
			// rather than crash the lowering pass.
			b.cur.Term = Term{Kind: TermUnreachable}
		}
	}

	b.fn.NumRegs = int(b.nextReg)
	return b.fn
}

// resolveReturnType re-derives the function's declared return type from
// its already-resolved symbol rather than re-walking the TypeExpr, so it
// stays in exact agreement with what the resolver and type checker recorded.
func (b *builder) resolveReturnType(fn *ast.Function) types.ID {
	if sym, ok := b.mt.Global.LookupLocal(fn.Name); ok {
		if ty := b.tt.Get(sym.TypeID); ty != nil && ty.Kind == types.KindFunction {
			return ty.Return
		}
	}
	return b.tt.Void()
}

func collectLocalNames(blk *ast.Block, out map[string]bool) {
	for _, s := range blk.Stmts {
		switch n := s.(type) {
		case *ast.Block:
			collectLocalNames(n, out)
		case *ast.VarDeclStmt:
			out[n.Decl.Name] = true
		case *ast.ConstDeclStmt:
			out[n.Decl.Name] = true
		case *ast.If:
			collectLocalNames(n.Then, out)
			if eb, ok := n.Else.(*ast.Block); ok {
				collectLocalNames(eb, out)
			} else if ei, ok := n.Else.(*ast.If); ok {
				collectLocalNames(&ast.Block{Stmts: []ast.Stmt{ei}}, out)
			}
		case *ast.While:
			collectLocalNames(n.Body, out)
		case *ast.DoWhile:
			collectLocalNames(n.Body, out)
		case *ast.For:
			out[n.Var] = true
			collectLocalNames(n.Body, out)
		case *ast.Switch:
			for _, c := range n.Cases {
				collectLocalNames(&ast.Block{Stmts: c.Body}, out)
			}
		}
	}
}

func (b *builder) newBlock(label string) *Block {
	blk := &Block{ID: b.nextBlockID, Label: fmt.Sprintf("%s_%d", label, b.nextBlockID)}
	b.nextBlockID++
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

func (b *builder) newReg() Reg {
	r := b.nextReg
	b.nextReg++
	return r
}

func (b *builder) newTemp() string {
	b.nextTemp++
	name := fmt.Sprintf("%%t%d", b.nextTemp)
	b.locals[name] = true
	return name
}

func (b *builder) emit(i Instr) {
	b.cur.Instrs = append(b.cur.Instrs, i)
}

func (b *builder) pushFrame(f loopFrame) { b.frames = append(b.frames, f) }
func (b *builder) popFrame()             { b.frames = b.frames[:len(b.frames)-1] }

func (b *builder) breakTarget() *Block {
	if len(b.frames) == 0 {
		return nil
	}
	return b.frames[len(b.frames)-1].breakTarget
}

func (b *builder) continueTarget() *Block {
	for i := len(b.frames) - 1; i >= 0; i-- {
		if !b.frames[i].isSwitch {
			return b.frames[i].continueTarget
		}
	}
	return nil
}

// lowerBlock lowers every statement of blk into b.cur, creating further
// blocks as control flow requires. It leaves b.cur nil when the block
// definitely terminates (return/break/continue), signalling callers not
// to append a fallthrough jump.
func (b *builder) lowerBlock(blk *ast.Block) {
	for _, s := range blk.Stmts {
		if b.cur == nil {
			return // unreachable tail after a terminating statement
		}
		b.stmt(s)
	}
}

func (b *builder) stmt(s ast.Stmt) {
	switch n := s.(type) {
	case *ast.Block:
		b.lowerBlock(n)
	case *ast.VarDeclStmt:
		if n.Decl.Init != nil {
			v := b.expr(n.Decl.Init)
			b.emit(Instr{Op: OpStoreLocal, Dst: NoReg, Name: n.Decl.Name, A: v})
		}
	case *ast.ConstDeclStmt:
		if v, ok := foldConstExpr(n.Decl.Init, b.consts); ok {
			b.consts[n.Decl.Name] = v
		}
	case *ast.ExprStmt:
		b.expr(n.X)
	case *ast.Assign:
		b.assign(n)
	case *ast.If:
		b.ifStmt(n)
	case *ast.While:
		b.whileStmt(n)
	case *ast.DoWhile:
		b.doWhileStmt(n)
	case *ast.For:
		b.forStmt(n)
	case *ast.Switch:
		b.switchStmt(n)
	case *ast.Return:
		var v Value
		if n.Value != nil {
			v = b.expr(n.Value)
			b.cur.Term = Term{Kind: TermReturn, Value: v}
		} else {
			b.cur.Term = Term{Kind: TermReturnVoid}
		}
		b.cur = nil
	case *ast.Break:
		if t := b.breakTarget(); t != nil {
			b.cur.Term = Term{Kind: TermJump, Target: t}
		}
		b.cur = nil
	case *ast.Continue:
		if t := b.continueTarget(); t != nil {
			b.cur.Term = Term{Kind: TermJump, Target: t}
		}
		b.cur = nil
	}
}

func (b *builder) assign(n *ast.Assign) {
	rhs := b.expr(n.RHS)
	if n.Op != ast.AssignPlain {
		cur := b.expr(n.LHS)
		op := compoundOp(n.Op)
		dst := b.newReg()
		b.emit(Instr{Op: OpBinary, Dst: dst, A: cur, B: rhs, BinOp: op})
		rhs = RegValue(dst)
	}
	b.store(n.LHS, rhs)
}

func compoundOp(op ast.AssignOp) BinOp {
	switch op {
	case ast.AssignAdd:
		return Add
	case ast.AssignSub:
		return Sub
	case ast.AssignMul:
		return Mul
	case ast.AssignDiv:
		return Div
	default:
		return Add
	}
}

// store writes v to the storage location lhs denotes: a local slot, a
// global/@map symbol, an array element, or a @map field.
func (b *builder) store(lhs ast.Expr, v Value) {
	switch n := lhs.(type) {
	case *ast.Identifier:
		if b.locals[n.Name] {
			b.emit(Instr{Op: OpStoreLocal, Name: n.Name, A: v})
			return
		}
		b.emit(Instr{Op: OpStoreGlobal, Name: n.Name, A: v, Volatile: b.isVolatileGlobal(n.Name)})
	case *ast.Index:
		base := b.expr(n.Base)
		idx := b.expr(n.Index)
		b.emit(Instr{Op: OpIndexStore, A: base, B: idx, Args: []Value{v}})
	case *ast.Member:
		if ident, ok := n.Base.(*ast.Identifier); ok {
			field := ident.Name + "." + n.Name
			b.emit(Instr{Op: OpStoreGlobal, Name: field, A: v, Volatile: true})
		}
	}
}

func (b *builder) isVolatileGlobal(name string) bool {
	sym, ok := b.mt.Global.LookupLocal(name)
	if !ok {
		sym, ok = b.mt.Global.Lookup(name)
	}
	return ok && sym.Storage == symbols.StorageMap
}

func (b *builder) ifStmt(n *ast.If) {
	cond := b.expr(n.Cond)
	thenBlk := b.newBlock("if_then")
	var elseBlk *Block
	joinBlk := b.newBlock("if_join")

	falseTarget := joinBlk
	if n.Else != nil {
		elseBlk = b.newBlock("if_else")
		falseTarget = elseBlk
	}
	b.cur.Term = Term{Kind: TermBranch, Cond: cond, Target: thenBlk, TargetFalse: falseTarget}

	b.cur = thenBlk
	b.lowerBlock(n.Then)
	if b.cur != nil {
		b.cur.Term = Term{Kind: TermJump, Target: joinBlk}
	}

	if n.Else != nil {
		b.cur = elseBlk
		b.stmt(n.Else)
		if b.cur != nil {
			b.cur.Term = Term{Kind: TermJump, Target: joinBlk}
		}
	}

	b.cur = joinBlk
}

func (b *builder) whileStmt(n *ast.While) {
	headerBlk := b.newBlock("while_header")
	bodyBlk := b.newBlock("while_body")
	afterBlk := b.newBlock("while_after")

	b.cur.Term = Term{Kind: TermJump, Target: headerBlk}
	b.cur = headerBlk
	cond := b.expr(n.Cond)
	headerBlk.Term = Term{Kind: TermBranch, Cond: cond, Target: bodyBlk, TargetFalse: afterBlk}

	b.pushFrame(loopFrame{breakTarget: afterBlk, continueTarget: headerBlk})
	b.cur = bodyBlk
	b.lowerBlock(n.Body)
	if b.cur != nil {
		b.cur.Term = Term{Kind: TermJump, Target: headerBlk}
	}
	b.popFrame()

	b.cur = afterBlk
}

func (b *builder) doWhileStmt(n *ast.DoWhile) {
	bodyBlk := b.newBlock("do_body")
	condBlk := b.newBlock("do_cond")
	afterBlk := b.newBlock("do_after")

	b.cur.Term = Term{Kind: TermJump, Target: bodyBlk}

	b.pushFrame(loopFrame{breakTarget: afterBlk, continueTarget: condBlk})
	b.cur = bodyBlk
	b.lowerBlock(n.Body)
	if b.cur != nil {
		b.cur.Term = Term{Kind: TermJump, Target: condBlk}
	}
	b.popFrame()

	b.cur = condBlk
	cond := b.expr(n.Cond)
	condBlk.Term = Term{Kind: TermBranch, Cond: cond, Target: bodyBlk, TargetFalse: afterBlk}

	b.cur = afterBlk
}

// forStmt desugars `for i = A to|downto B step S` as
// "i=A; while (i<=B) { body; i+=S; }", with downto reversing the
// comparison and the step's sign.
func (b *builder) forStmt(n *ast.For) {
	if b.fn.LoopCounters == nil {
		b.fn.LoopCounters = map[string]bool{}
	}
	b.fn.LoopCounters[n.Var] = true

	from := b.expr(n.From)
	b.emit(Instr{Op: OpStoreLocal, Name: n.Var, A: from})

	headerBlk := b.newBlock("for_header")
	bodyBlk := b.newBlock("for_body")
	afterBlk := b.newBlock("for_after")

	b.cur.Term = Term{Kind: TermJump, Target: headerBlk}
	b.cur = headerBlk
	iReg := b.newReg()
	b.emit(Instr{Op: OpLoadLocal, Dst: iReg, Name: n.Var})
	limit := b.expr(n.Limit)
	cmpOp := Le
	if n.Dir == ast.ForDownto {
		cmpOp = Ge
	}
	condReg := b.newReg()
	b.emit(Instr{Op: OpBinary, Dst: condReg, A: RegValue(iReg), B: limit, BinOp: cmpOp})
	headerBlk.Term = Term{Kind: TermBranch, Cond: RegValue(condReg), Target: bodyBlk, TargetFalse: afterBlk}

	b.pushFrame(loopFrame{breakTarget: afterBlk, continueTarget: headerBlk})
	b.cur = bodyBlk
	b.lowerBlock(n.Body)
	if b.cur != nil {
		step := ImmValue(1)
		if n.Step != nil {
			step = b.expr(n.Step)
		}
		cur := b.newReg()
		b.emit(Instr{Op: OpLoadLocal, Dst: cur, Name: n.Var})
		stepOp := Add
		if n.Dir == ast.ForDownto {
			stepOp = Sub
		}
		next := b.newReg()
		b.emit(Instr{Op: OpBinary, Dst: next, A: RegValue(cur), B: step, BinOp: stepOp})
		b.emit(Instr{Op: OpStoreLocal, Name: n.Var, A: RegValue(next)})
		b.cur.Term = Term{Kind: TermJump, Target: headerBlk}
	}
	b.popFrame()

	b.cur = afterBlk
}

// switchStmt lowers to a dense jump table when every case value folds to
// a compile-time constant and the values form a compact range; otherwise
// to a compare-and-branch chain. `default` is the fallthrough target when
// present, otherwise the join block.
func (b *builder) switchStmt(n *ast.Switch) {
	subject := b.expr(n.Subject)
	tmp := b.newTemp()
	b.emit(Instr{Op: OpStoreLocal, Name: tmp, A: subject})

	joinBlk := b.newBlock("switch_join")

	var entries []switchEntry
	var defaultClause *ast.CaseClause
	clauseBlocks := map[*ast.CaseClause]*Block{}
	allConst := true
	for _, c := range n.Cases {
		blk := b.newBlock("switch_case")
		clauseBlocks[c] = blk
		if len(c.Values) == 0 {
			defaultClause = c
			continue
		}
		for _, v := range c.Values {
			fv, ok := foldConstExpr(v, b.consts)
			if !ok {
				allConst = false
				continue
			}
			entries = append(entries, switchEntry{fv, blk})
		}
	}

	defaultBlk := joinBlk
	if defaultClause != nil {
		defaultBlk = clauseBlocks[defaultClause]
	}

	if allConst && isCompactRange(entries) {
		low := entries[0].val
		high := entries[0].val
		for _, e := range entries {
			if e.val < low {
				low = e.val
			}
			if e.val > high {
				high = e.val
			}
		}
		targets := make([]*Block, high-low+1)
		for i := range targets {
			targets[i] = defaultBlk
		}
		for _, e := range entries {
			targets[e.val-low] = e.block
		}
		subjReg := b.newReg()
		b.emit(Instr{Op: OpLoadLocal, Dst: subjReg, Name: tmp})
		b.cur.Term = Term{Kind: TermJumpTable, Value: RegValue(subjReg), Low: int(low), Targets: targets, Default: defaultBlk}
	} else {
		chainCur := b.cur
		for _, e := range entries {
			subjReg := b.newReg()
			chainCur.Instrs = append(chainCur.Instrs, Instr{Op: OpLoadLocal, Dst: subjReg, Name: tmp})
			cmpReg := b.newReg()
			chainCur.Instrs = append(chainCur.Instrs, Instr{Op: OpBinary, Dst: cmpReg, A: RegValue(subjReg), B: ImmValue(e.val), BinOp: Eq})
			nextBlk := b.newBlock("switch_test")
			chainCur.Term = Term{Kind: TermBranch, Cond: RegValue(cmpReg), Target: e.block, TargetFalse: nextBlk}
			chainCur = nextBlk
		}
		chainCur.Term = Term{Kind: TermJump, Target: defaultBlk}
	}

	for _, c := range n.Cases {
		b.cur = clauseBlocks[c]
		b.lowerBlock(&ast.Block{Stmts: c.Body})
		if b.cur != nil {
			b.cur.Term = Term{Kind: TermJump, Target: joinBlk}
		}
	}

	b.cur = joinBlk
}

// switchEntry pairs a folded case value with the block it dispatches to.
type switchEntry struct {
	val   int64
	block *Block
}

// isCompactRange reports whether entries' values, deduplicated, form a
// contiguous run no larger than 256 (a zero-page-sized jump table is the
// practical ceiling on a 6502; beyond that the chain form is cheaper).
func isCompactRange(entries []switchEntry) bool {
	if len(entries) == 0 {
		return false
	}
	seen := map[int64]bool{}
	low, high := entries[0].val, entries[0].val
	for _, e := range entries {
		seen[e.val] = true
		if e.val < low {
			low = e.val
		}
		if e.val > high {
			high = e.val
		}
	}
	span := high - low + 1
	return span == int64(len(seen)) && span <= 256
}
