// Package il implements Blend65's intermediate language: a virtual-
// register, basic-block IR lowered from a type-checked, CFG-annotated
// function. internal/iloptimizer rewrites it in place; internal/regalloc
// assigns each Reg a real location; internal/codegen walks it to emit
// 6502 assembly.
//
// The op-as-tagged-struct-field, kind-as-enum shape mirrors
// chriskillpack-bbcdisasm/opcodes.go's Opcode{Value, Name, Length,
// AddrMode} — one flat struct carrying every op's fields, dispatched on a
// Kind constant, rather than a Go interface hierarchy.
package il

import "github.com/blendsdk/blend65/internal/types"

// Reg is a virtual register id, unique within one Function. Register 0 is
// never reserved for anything special — the register allocator decides
// which registers end up in A/X/Y vs memory.
type Reg int

// NoReg marks the absence of a destination register (a void-valued op).
const NoReg Reg = -1

// OpKind tags an Instr.
type OpKind int

const (
	OpConst          OpKind = iota // Dst = array literal whose elements are Args
	OpLoadLocal                    // Dst = local slot named Name (param or `let`)
	OpStoreLocal                   // local slot Name = A
	OpLoadGlobal                   // Dst = global/@map symbol Name
	OpStoreGlobal                  // global/@map symbol Name = A
	OpAddressOfLocal                // Dst = address of local slot Name
	OpAddressOfGlobal               // Dst = address of global/@map symbol Name
	OpBinary                       // Dst = A BinOp B
	OpUnary                        // Dst = UnOp A
	OpCast                         // Dst = A narrowed/widened to Type
	OpIndexLoad                    // Dst = A[B]      (A is the array's base address value)
	OpIndexStore                   // A[B] = Args[0]
	OpCall                         // Dst = Callee(Args...)   — non-void return
	OpCallVoid                     //       Callee(Args...)   — void return
	OpPeek                         // Dst = peek(A)
	OpPeekW                        // Dst = peekw(A)
	OpPoke                         // poke(A, B)
	OpPokeW                        // pokew(A, B)
	OpVolatileRead                 // Dst = volatile_read(A)
	OpVolatileWrite                // volatile_write(A, B)
	OpIntrinsic                    // bare-effect intrinsic: sei/cli/nop/brk/pha/pla/php/plp/barrier
	OpBarrier                      // optimization barrier only, no hardware effect
)

func (k OpKind) String() string {
	switch k {
	case OpConst:
		return "const"
	case OpLoadLocal:
		return "load_local"
	case OpStoreLocal:
		return "store_local"
	case OpLoadGlobal:
		return "load_global"
	case OpStoreGlobal:
		return "store_global"
	case OpAddressOfLocal:
		return "addr_local"
	case OpAddressOfGlobal:
		return "addr_global"
	case OpBinary:
		return "binary"
	case OpUnary:
		return "unary"
	case OpCast:
		return "cast"
	case OpIndexLoad:
		return "index_load"
	case OpIndexStore:
		return "index_store"
	case OpCall:
		return "call"
	case OpCallVoid:
		return "call_void"
	case OpPeek:
		return "peek"
	case OpPeekW:
		return "peekw"
	case OpPoke:
		return "poke"
	case OpPokeW:
		return "pokew"
	case OpVolatileRead:
		return "volatile_read"
	case OpVolatileWrite:
		return "volatile_write"
	case OpIntrinsic:
		return "intrinsic"
	case OpBarrier:
		return "barrier"
	default:
		return "unknown"
	}
}

// BinOp enumerates IL binary operators — a closed set independent of
// ast.BinaryOp so the optimizer and code generator never need to import
// internal/ast.
type BinOp int

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Mod
	Shl
	Shr
	BitAnd
	BitOr
	BitXor
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
)

// UnOp enumerates IL unary operators.
type UnOp int

const (
	Neg UnOp = iota
	Not
	BitNot
)

// Instr is one IL instruction. Only the fields relevant to Op are
// meaningful; the rest are zero. Dst carries no meaning for effect-only
// ops (stores, poke, intrinsics, CallVoid); the builder leaves it at its
// zero value for most of them, so consumers go by Op, not by Dst.
type Instr struct {
	Op  OpKind
	Dst Reg

	A, B   Value // primary operands, meaning depends on Op
	BinOp  BinOp
	UnOp   UnOp
	Name   string  // local/global/map symbol name, for *Local/*Global ops
	Callee string  // function name, for Call/CallVoid
	Args   []Value // call arguments, in order
	Type   types.ID // result type: needed by the register allocator to size the destination, and by OpCast for the target width

	// Volatile marks an op that must never be removed, reordered across a
	// barrier, or coalesced by the optimizer — @map accesses never get
	// removed, reordered across barrier(), or merged.
	Volatile bool

	// Intrinsic names the bare-effect op this Instr lowers
	// (sei/cli/nop/brk/pha/pla/php/plp/barrier), valid only when
	// Op == OpIntrinsic or OpBarrier.
	Intrinsic string
}

// ValueKind tags a Value's meaning.
type ValueKind int

const (
	ValReg ValueKind = iota
	ValImm
)

// Value is an IL operand: either a previously-produced register or a
// compile-time immediate. There is no separate "global" value kind —
// reading a global is always an explicit OpLoadGlobal producing a Reg
// first, so every operand downstream of it is uniformly a register.
type Value struct {
	Kind ValueKind
	Reg  Reg
	Imm  int64
}

// ImmValue builds an immediate Value.
func ImmValue(v int64) Value { return Value{Kind: ValImm, Imm: v} }

// RegValue builds a register Value.
func RegValue(r Reg) Value { return Value{Kind: ValReg, Reg: r} }

// TermKind tags a Block's terminator.
type TermKind int

const (
	TermReturn     TermKind = iota // return Value (NoReg Value.Reg when void — see TermReturnVoid)
	TermReturnVoid                 // bare `return;`
	TermJump                       // unconditional branch to Target
	TermBranch                     // if Cond != 0 goto Target else goto TargetFalse
	TermJumpTable                  // dispatch on Value - Low through a dense table of Targets; Default otherwise
	TermUnreachable                 // control never reaches here (dead code)
)

// Term is a Block's control-flow exit. Exactly one Block in a Function
// lacks a meaningful successor set beyond what Term encodes.
type Term struct {
	Kind TermKind

	Value Value // TermReturn value / TermJumpTable dispatch value
	Cond  Value // TermBranch condition

	Target      *Block // TermJump, TermBranch (true target)
	TargetFalse *Block // TermBranch (false target)

	Low     int      // TermJumpTable: subject value of Targets[0]
	Targets []*Block // TermJumpTable: dense, one per consecutive subject value from Low
	Default *Block    // TermJumpTable: target when the subject falls outside [Low, Low+len(Targets))
}

// Block is one basic block: a straight-line instruction sequence ending
// in exactly one Term.
type Block struct {
	ID     int
	Label  string
	Instrs []Instr
	Term   Term
}

// Function is one lowered function body.
type Function struct {
	Name       string
	ParamNames []string
	ParamTypes []types.ID
	Return     types.ID
	IsCallback bool

	Entry  *Block
	Blocks []*Block // in emission order; Entry is always Blocks[0]

	NumRegs int // total virtual registers allocated, for the register allocator to size its tables

	// LoopCounters names every local slot that serves as a `for` loop's
	// induction variable — these prefer X or Y for indexed addressing. The
	// register allocator reads this back as an allocation hint; it has no
	// effect on lowering itself.
	LoopCounters map[string]bool
}

// Program is every function lowered from one module, in declaration order.
type Program struct {
	ModuleName string
	Functions  []*Function
}
