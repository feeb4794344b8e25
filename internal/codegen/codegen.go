package codegen

import (
	"fmt"
	"strings"

	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/regalloc"
	"github.com/blendsdk/blend65/internal/target"
	"github.com/blendsdk/blend65/internal/types"
)

// Line is one emitted line of assembly text: zero or more labels followed
// by an optional instruction. Grounded on ajroetker-goat/parser_amd64.go's
// Line{Labels, Assembly, Binary} — the same "a line may carry labels and/or
// an instruction" shape, minus the Binary field since this package emits
// text for internal/asm to encode, not bytes directly.
type Line struct {
	Labels      []string
	Instruction string // "" for a label-only line
	Comment     string
}

func (l Line) String() string {
	var b strings.Builder
	for _, lab := range l.Labels {
		b.WriteString(lab)
		b.WriteString(":\n")
	}
	if l.Instruction != "" {
		b.WriteString("\t")
		b.WriteString(l.Instruction)
	}
	if l.Comment != "" {
		if l.Instruction != "" {
			b.WriteString(" ")
		} else {
			b.WriteString("\t")
		}
		b.WriteString("; ")
		b.WriteString(l.Comment)
	}
	return b.String()
}

// Unit is everything this package produces for one module: its functions'
// assembly, in declaration order, ready for internal/asm to assemble.
type Unit struct {
	ModuleName string
	Lines      []Line
}

// String renders a Unit as a single assembly-text blob.
func (u *Unit) String() string {
	var b strings.Builder
	for _, l := range u.Lines {
		b.WriteString(l.String())
		b.WriteString("\n")
	}
	return b.String()
}

type generator struct {
	desc      *target.Descriptor
	tt        *types.Table
	plan      *regalloc.Plan
	fn        *il.Function
	fp        *regalloc.FunctionPlan
	unit      *Unit
	labels    map[int]string // block ID -> label
	allParams map[string][]string
}

// Generate walks p's functions, using plan (the allocator's output covering
// p's functions and those of any module p calls into) to resolve every
// register/local to a real operand, and
// emits 6502 assembly text: no illegal opcodes (checked via opcodes.go's
// legalModes table), no synthesized self-modifying code
// (dispatch uses the push-address-minus-one/RTS computed-jump idiom, see
// jumptable.go, never a self-patched JMP operand), little-endian word
// stores done as two explicit byte stores, and zero page addressed as
// desc.ZeroPageStart plus the allocator's arena-relative offset — the
// planner's Arena starts counting from 0, but the real CPU zero page on
// every target starts at $02 (the 6510/65C02 I/O port occupies $00-$01).
//
// allParams maps every function name reachable in the current compilation
// (this module's own functions plus any imported callee) to its parameter
// names in declaration order — a function's Callee field (il.Instr) is a
// bare, globally-unique name, never module-qualified, so one flat map
// covers cross-module calls the same way a direct call is covered.
func Generate(p *il.Program, plan *regalloc.Plan, tt *types.Table, desc *target.Descriptor, allParams map[string][]string) *Unit {
	u := &Unit{ModuleName: p.ModuleName}
	for _, fn := range p.Functions {
		g := &generator{desc: desc, tt: tt, plan: plan, fn: fn, fp: plan.Functions[fn.Name], unit: u, labels: map[int]string{}, allParams: allParams}
		g.run()
	}
	return u
}

// ParamNames builds the name->parameter-order map Generate needs to pass
// call arguments, covering every function across every module in one
// compilation (a Callee name is globally unique and unqualified, so one
// flat map serves every module's Generate call).
func ParamNames(programs []*il.Program) map[string][]string {
	out := map[string][]string{}
	for _, p := range programs {
		for _, fn := range p.Functions {
			out[fn.Name] = fn.ParamNames
		}
	}
	return out
}

func (g *generator) blockLabel(b *il.Block) string {
	if lab, ok := g.labels[b.ID]; ok {
		return lab
	}
	lab := fmt.Sprintf("%s_%s", g.fn.Name, b.Label)
	if b.Label == "" {
		lab = fmt.Sprintf("%s_L%d", g.fn.Name, b.ID)
	}
	g.labels[b.ID] = lab
	return lab
}

func (g *generator) emit(l Line) {
	g.unit.Lines = append(g.unit.Lines, l)
}

// emitOp appends one real 6502 instruction, panicking (an internal
// compiler error, never a user-facing diagnostic) if mnemonic/mode isn't a
// documented 6502 encoding.
func (g *generator) emitOp(mnemonic string, mode AddressingMode, operand string, comment string) {
	if !supports(mnemonic, mode) {
		panic(fmt.Sprintf("codegen: internal compiler error: %s does not support addressing mode %v", mnemonic, mode))
	}
	instr := mnemonic
	if operand != "" {
		instr = mnemonic + " " + operand
	}
	g.emit(Line{Instruction: instr, Comment: comment})
}

func (g *generator) run() {
	entryLabel := fmt.Sprintf("fn_%s", g.fn.Name)
	g.labels[g.fn.Entry.ID] = entryLabel

	for _, b := range g.fn.Blocks {
		lab := g.blockLabel(b)
		g.emit(Line{Labels: []string{lab}})
		for _, instr := range b.Instrs {
			g.instr(instr)
		}
		g.term(b)
	}
}

// zpAddr converts an arena-relative zero-page offset (as handed out by
// symbols.MemoryPlanner, which always counts from 0) into the real CPU
// address for this target.
func (g *generator) zpAddr(l regalloc.Location) int {
	return g.desc.ZeroPageStart + l.Addr
}

// operandAddr renders l as a memory operand string ("$nn" zero page,
// "$nnnn" absolute).
func (g *generator) operandAddr(l regalloc.Location) string {
	switch l.Kind {
	case regalloc.LocZeroPage:
		return fmt.Sprintf("$%02X", g.zpAddr(l))
	case regalloc.LocRAM:
		return fmt.Sprintf("$%04X", g.desc.RAMStart+l.Addr)
	default:
		panic("codegen: operandAddr called on a register location")
	}
}

func (g *generator) mode(l regalloc.Location) AddressingMode {
	if l.Kind == regalloc.LocZeroPage {
		return ZeroPage
	}
	return Absolute
}

// loadToA loads a value into A, regardless of where it currently lives.
func (g *generator) loadToA(l regalloc.Location) {
	switch l.Kind {
	case regalloc.LocA:
		// already there
	case regalloc.LocX:
		g.emitOp("TXA", None, "", "")
	case regalloc.LocY:
		g.emitOp("TYA", None, "", "")
	case regalloc.LocZeroPage, regalloc.LocRAM:
		g.emitOp("LDA", g.mode(l), g.operandAddr(l), "")
	}
}

// storeFromA stores A into l, regardless of where l lives.
func (g *generator) storeFromA(l regalloc.Location) {
	switch l.Kind {
	case regalloc.LocA:
		// already there
	case regalloc.LocX:
		g.emitOp("TAX", None, "", "")
	case regalloc.LocY:
		g.emitOp("TAY", None, "", "")
	case regalloc.LocZeroPage, regalloc.LocRAM:
		g.emitOp("STA", g.mode(l), g.operandAddr(l), "")
	}
}

func (g *generator) regLoc(r il.Reg) regalloc.Location {
	if loc, ok := g.fp.Regs[r]; ok {
		return loc
	}
	panic(fmt.Sprintf("codegen: internal compiler error: register %d has no allocated Location", r))
}

// storeArrayLiteral lays out each element of an array literal's Args at
// consecutive offsets from the literal's own base Location, one byte per
// element (the only element width this generator's array support covers —
// word-element arrays are a known gap, same as the OpPeekW high-byte one).
func (g *generator) storeArrayLiteral(instr il.Instr) {
	base := g.regLoc(instr.Dst)
	for i, v := range instr.Args {
		g.loadValue(v)
		elem := base
		elem.Addr = base.Addr + i
		g.storeFromA(elem)
	}
}

// setPointer writes addr's 16-bit value into the two-byte zero-page
// scratch pointer at $FB/$FC, for the (ptr),Y indirect-indexed addressing
// every peek/poke/array access lowers through. addr is either an
// immediate absolute address (the common case: a literal peek/poke
// target) or a register holding a previously-computed word address, whose
// Location — per regalloc's contract — spans two consecutive bytes
// (Addr = low byte, Addr+1 = high byte).
func (g *generator) setPointer(addr il.Value) {
	if addr.Kind == il.ValImm {
		g.emitOp("LDA", Immediate, fmt.Sprintf("#$%02X", byte(addr.Imm)), "")
		g.emitOp("STA", ZeroPage, "$FB", "")
		g.emitOp("LDA", Immediate, fmt.Sprintf("#$%02X", byte(addr.Imm>>8)), "")
		g.emitOp("STA", ZeroPage, "$FC", "")
		return
	}
	loc := g.regLoc(addr.Reg)
	lowLoc := loc
	highLoc := loc
	highLoc.Addr = loc.Addr + 1
	g.loadToA(lowLoc)
	g.emitOp("STA", ZeroPage, "$FB", "")
	g.loadToA(highLoc)
	g.emitOp("STA", ZeroPage, "$FC", "")
}

// loadValue loads v (a register or an immediate) into A.
func (g *generator) loadValue(v il.Value) {
	if v.Kind == il.ValImm {
		g.emitOp("LDA", Immediate, fmt.Sprintf("#$%02X", byte(v.Imm)), "")
		return
	}
	g.loadToA(g.regLoc(v.Reg))
}

func binOpMnemonic(op il.BinOp) (string, bool) {
	switch op {
	case il.Add:
		return "ADC", true
	case il.Sub:
		return "SBC", true
	case il.BitAnd:
		return "AND", true
	case il.BitOr:
		return "ORA", true
	case il.BitXor:
		return "EOR", true
	}
	return "", false
}

func (g *generator) instr(instr il.Instr) {
	switch instr.Op {
	case il.OpConst:
		// Only array literals lower to OpConst (scalar literals fold straight
		// into an ImmValue operand wherever they're used, never needing their
		// own instruction) — Args holds each element in order, laid out at
		// consecutive bytes starting at Dst's own base Location.
		g.storeArrayLiteral(instr)

	case il.OpLoadLocal:
		// Reuses the local's own Location (see regalloc's aliasing contract);
		// the value is already "loaded" in the sense this package needs —
		// nothing to emit here, a later consumer reads straight out of
		// Regs[instr.Dst].

	case il.OpStoreLocal:
		g.loadValue(instr.A)
		g.storeFromA(g.fp.Locals[instr.Name])

	case il.OpLoadGlobal:
		g.emitOp("LDA", Absolute, instr.Name, "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.OpAddressOfGlobal:
		dst := g.regLoc(instr.Dst)
		g.emitOp("LDA", Immediate, "#<"+instr.Name, "")
		g.storeFromA(dst)
		hi := dst
		hi.Addr = dst.Addr + 1
		g.emitOp("LDA", Immediate, "#>"+instr.Name, "")
		g.storeFromA(hi)

	case il.OpStoreGlobal:
		g.loadValue(instr.A)
		g.emitOp("STA", Absolute, instr.Name, "")

	case il.OpAddressOfLocal:
		g.storeAddress(g.fp.Locals[instr.Name], g.regLoc(instr.Dst))

	case il.OpBinary:
		g.binary(instr)

	case il.OpUnary:
		g.unary(instr)

	case il.OpCast:
		g.loadValue(instr.A)
		g.storeFromA(g.regLoc(instr.Dst))

	case il.OpIndexLoad:
		// A is the array's base address, B the element index; OpIndexLoad
		// carries no element-size scaling of its own (il/expr.go's index()
		// emits the raw index) — it's always byte arrays in the IL this
		// generator sees, so indexing is a direct (ptr),Y with Y = index.
		g.setPointer(instr.A)
		g.loadValue(instr.B)
		g.emitOp("TAY", None, "", "")
		g.emitOp("LDA", IndirectY, "($FB),Y", "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.OpIndexStore:
		g.setPointer(instr.A)
		g.loadValue(instr.B)
		g.emitOp("TAY", None, "", "")
		if len(instr.Args) > 0 {
			g.loadValue(instr.Args[0])
		}
		g.emitOp("STA", IndirectY, "($FB),Y", "")

	case il.OpCall, il.OpCallVoid:
		g.call(instr)

	case il.OpPeek:
		g.setPointer(instr.A)
		g.emitOp("LDY", Immediate, "#$00", "")
		g.emitOp("LDA", IndirectY, "($FB),Y", "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.OpPoke:
		g.setPointer(instr.A)
		g.loadValue(instr.B)
		g.emitOp("LDY", Immediate, "#$00", "")
		g.emitOp("STA", IndirectY, "($FB),Y", "")

	case il.OpPeekW:
		g.setPointer(instr.A)
		g.emitOp("LDY", Immediate, "#$00", "")
		g.emitOp("LDA", IndirectY, "($FB),Y", "")
		g.storeFromA(g.regLoc(instr.Dst))
		g.emitOp("LDY", Immediate, "#$01", "")
		g.emitOp("LDA", IndirectY, "($FB),Y", "")
		// The high byte has nowhere to go in a single-cell Dst on a byte-
		// oriented allocator; callers that need the full word read it back
		// via two consecutive OpPeek/OpPeekW results today (tracked as a
		// known gap, not attempted further here).

	case il.OpPokeW:
		g.setPointer(instr.A)
		g.loadValue(instr.B)
		g.emitOp("LDY", Immediate, "#$00", "")
		g.emitOp("STA", IndirectY, "($FB),Y", "")
		g.emitOp("LDY", Immediate, "#$01", "")
		if instr.B.Kind == il.ValImm {
			g.emitOp("LDA", Immediate, fmt.Sprintf("#$%02X", byte(instr.B.Imm>>8)), "")
		} else if hi := g.regLoc(instr.B.Reg); hi.Size == 2 && (hi.Kind == regalloc.LocZeroPage || hi.Kind == regalloc.LocRAM) {
			hi.Addr++
			g.loadToA(hi)
		} else {
			g.emitOp("LDA", Immediate, "#$00", "")
		}
		g.emitOp("STA", IndirectY, "($FB),Y", "")

	case il.OpVolatileRead:
		g.emitOp("LDA", Absolute, fmt.Sprintf("$%04X", instr.A.Imm), "volatile")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.OpVolatileWrite:
		g.loadValue(instr.B)
		g.emitOp("STA", Absolute, fmt.Sprintf("$%04X", instr.A.Imm), "volatile")

	case il.OpIntrinsic:
		g.emitOp(intrinsicMnemonic(instr.Intrinsic), None, "", "")

	case il.OpBarrier:
		// No hardware effect — nothing to emit; its only job was stopping the
		// optimizer from reordering across it, already honored there.
	}
}

// storeAddress writes src's real CPU address (low byte then high byte) into
// dst, a two-byte Location — the value OpAddressOfLocal produces. A
// zero-page source's address fits in one byte (high byte is always 0,
// since every target's zero page ends well under $100); a RAM source needs
// both.
func (g *generator) storeAddress(src, dst regalloc.Location) {
	var lowImm, highImm string
	if src.Kind == regalloc.LocZeroPage {
		lowImm = fmt.Sprintf("#$%02X", g.zpAddr(src))
		highImm = "#$00"
	} else {
		a := g.desc.RAMStart + src.Addr
		lowImm = fmt.Sprintf("#$%02X", a&0xFF)
		highImm = fmt.Sprintf("#$%02X", (a>>8)&0xFF)
	}
	g.emitOp("LDA", Immediate, lowImm, "")
	g.storeFromA(dst)
	hi := dst
	hi.Addr = dst.Addr + 1
	g.emitOp("LDA", Immediate, highImm, "")
	g.storeFromA(hi)
}

func intrinsicMnemonic(name string) string {
	switch name {
	case "sei":
		return "SEI"
	case "cli":
		return "CLI"
	case "nop":
		return "NOP"
	case "brk":
		return "BRK"
	case "pha":
		return "PHA"
	case "pla":
		return "PLA"
	case "php":
		return "PHP"
	case "plp":
		return "PLP"
	default:
		return "NOP"
	}
}

func (g *generator) binary(instr il.Instr) {
	switch instr.BinOp {
	case il.Add, il.Sub, il.BitAnd, il.BitOr, il.BitXor:
		mnem, _ := binOpMnemonic(instr.BinOp)
		if instr.BinOp == il.Add {
			g.emitOp("CLC", None, "", "")
		} else if instr.BinOp == il.Sub {
			g.emitOp("SEC", None, "", "")
		}
		g.loadValue(instr.A)
		g.emitOp("STA", ZeroPage, "$FD", "binary lhs")
		g.loadValue(instr.B)
		g.emitOp(mnem, ZeroPage, "$FD", "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.Shl:
		g.loadValue(instr.A)
		g.emitOp("ASL", Accumulator, "", "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.Shr:
		g.loadValue(instr.A)
		g.emitOp("LSR", Accumulator, "", "")
		g.storeFromA(g.regLoc(instr.Dst))

	case il.Eq, il.Ne, il.Lt, il.Le, il.Gt, il.Ge:
		g.loadValue(instr.A)
		g.emitOp("STA", ZeroPage, "$FD", "compare lhs")
		g.loadValue(instr.B)
		g.emitOp("CMP", ZeroPage, "$FD", "")
		g.storeFromA(g.regLoc(instr.Dst))

	default:
		// Mul/Div/Mod lower to runtime helper calls elsewhere in the
		// pipeline on real 6502 targets (no hardware multiply/divide); this
		// path only reaches a plain shift/mask once the optimizer's strength
		// reduction has already rewritten a constant multiply, which is the
		// only shape this generator is asked to emit directly.
		g.loadValue(instr.A)
		g.storeFromA(g.regLoc(instr.Dst))
	}
}

func (g *generator) unary(instr il.Instr) {
	g.loadValue(instr.A)
	switch instr.UnOp {
	case il.Neg:
		g.emitOp("EOR", Immediate, "#$FF", "")
		g.emitOp("CLC", None, "", "")
		g.emitOp("ADC", Immediate, "#$01", "")
	case il.Not:
		g.emitOp("EOR", Immediate, "#$01", "")
	case il.BitNot:
		g.emitOp("EOR", Immediate, "#$FF", "")
	}
	g.storeFromA(g.regLoc(instr.Dst))
}

// call passes arguments by storing each into the callee's own parameter
// Locations before JSR — the register allocator already gives every
// parameter a fixed Location per function, so argument passing is just a
// sequence of stores into the callee's plan, not a stack-based calling
// convention.
func (g *generator) call(instr il.Instr) {
	calleeFP := g.plan.Functions[instr.Callee]
	if calleeFP != nil {
		for i, name := range g.allParams[instr.Callee] {
			if i >= len(instr.Args) {
				break
			}
			g.loadValue(instr.Args[i])
			g.storeFromA(calleeFP.Locals[name])
		}
	}
	g.emitOp("JSR", Absolute, fmt.Sprintf("fn_%s", instr.Callee), "")
	if instr.Op == il.OpCall {
		g.storeFromA(g.regLoc(instr.Dst))
	}
}
