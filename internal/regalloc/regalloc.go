// Package regalloc assigns each IL virtual register and named local slot
// to A, X, Y, a zero-page byte, or an absolute RAM byte.
//
// The flat Location{Kind, Addr, Size}-plus-lookup-map shape mirrors
// chriskillpack-bbcdisasm/opcodes.go's Opcode{Value, Name, Length,
// AddrMode} table: one small struct describing "where", looked up by
// key, rather than an interface hierarchy of location types.
//
// This allocator does not coalesce or reuse storage across distinct
// registers — every il.Reg and every named local gets its own cell for
// the whole function. The placement policy is hint-driven (X/Y for for-loop
// counters, A for the single most-referenced local, zero page for every
// other local and register, RAM once zero page is full; short-lived
// temporaries never go to A/X/Y, and a parameter gets A only when it is
// that most-referenced local), not
// a general graph-coloring allocator with live-range splitting; given
// this IL's non-SSA, named-local-slot model, a single static cell per
// name/register is the simplest policy that is trivially safe (two
// registers with disjoint cells can never interfere) and matches the
// scale the rest of the toolchain operates at. A smarter allocator that
// reuses a cell once a register's last use has passed is future work,
// not attempted here.
package regalloc

import (
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/source"
	"github.com/blendsdk/blend65/internal/symbols"
	"github.com/blendsdk/blend65/internal/target"
	"github.com/blendsdk/blend65/internal/types"
)

// LocKind tags where a value lives.
type LocKind int

const (
	LocA LocKind = iota
	LocX
	LocY
	LocZeroPage
	LocRAM
)

func (k LocKind) String() string {
	switch k {
	case LocA:
		return "A"
	case LocX:
		return "X"
	case LocY:
		return "Y"
	case LocZeroPage:
		return "zp"
	case LocRAM:
		return "ram"
	default:
		return "?"
	}
}

// Location is where the code generator finds one value: a CPU register,
// or a byte address in zero page / general RAM.
type Location struct {
	Kind LocKind
	Addr int // meaningful only for LocZeroPage/LocRAM
	Size int // 1 for byte-sized values, 2 for word-sized
}

// FunctionPlan is the allocation result for one function: every named
// local slot's location (params and `let`/`for`-counter locals alike,
// keyed by name since that's how OpLoadLocal/OpStoreLocal address them)
// plus every pure virtual register's location (results of OpBinary,
// OpCall, OpPeek, and so on that are never named).
type FunctionPlan struct {
	Name   string
	Locals map[string]Location
	Regs   map[il.Reg]Location
}

// Plan is the allocation result for every function in one module's
// lowered program.
type Plan struct {
	ModuleName string
	Functions  map[string]*FunctionPlan
}

// Allocate assigns a Location to every local and register in p. planner
// is the single MemoryPlanner instance shared by every module in the
// compilation (the same one the resolver used to place @zp/@ram/@data
// globals) — drawing zero-page and RAM cells from that one shared arena
// is what makes the cross-module merge's non-overlap property automatic:
// two modules' allocators can never hand out the same byte because
// they're drawing from the same Arena.nextAlloc cursor, not independent
// copies. An overlap is therefore structurally impossible rather than
// merely checked for; Arena.Allocate only ever appends, it never
// re-validates a caller-supplied address the way Arena.Reserve does for
// @map's fixed addresses.
func Allocate(p *il.Program, planner *symbols.MemoryPlanner, tt *types.Table, _ *target.Descriptor) *Plan {
	plan := &Plan{ModuleName: p.ModuleName, Functions: map[string]*FunctionPlan{}}
	for _, fn := range p.Functions {
		plan.Functions[fn.Name] = allocateFunction(fn, planner, tt)
	}
	return plan
}

func allocateFunction(fn *il.Function, planner *symbols.MemoryPlanner, tt *types.Table) *FunctionPlan {
	fp := &FunctionPlan{Name: fn.Name, Locals: map[string]Location{}, Regs: map[il.Reg]Location{}}

	usage := collectLocalUsage(fn)
	paramTypes := map[string]types.ID{}
	for i, name := range fn.ParamNames {
		if i < len(fn.ParamTypes) {
			paramTypes[name] = fn.ParamTypes[i]
		}
	}

	xAssigned, yAssigned := false, false
	bestA, bestACount := "", 0

	for _, name := range usage.order {
		u := usage.byName[name]
		if u.addressTaken {
			continue // must be addressable memory, handled in the memory pass below
		}
		if fn.LoopCounters[name] {
			if !xAssigned {
				fp.Locals[name] = Location{Kind: LocX, Size: 1}
				xAssigned = true
				continue
			}
			if !yAssigned {
				fp.Locals[name] = Location{Kind: LocY, Size: 1}
				yAssigned = true
				continue
			}
		}
		if u.count > bestACount {
			bestA, bestACount = name, u.count
		}
	}
	if bestA != "" && bestACount >= 2 {
		if _, already := fp.Locals[bestA]; !already {
			fp.Locals[bestA] = Location{Kind: LocA, Size: sizeOfLocal(tt, bestA, paramTypes, usage)}
		}
	}

	for _, name := range usage.order {
		if _, already := fp.Locals[name]; already {
			continue
		}
		size := sizeOfLocal(tt, name, paramTypes, usage)
		fp.Locals[name] = placeInMemory(planner, name, size)
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr.Op == il.OpStoreLocal {
				continue // no Dst
			}
			if instr.Op == il.OpLoadLocal {
				// The loaded register carries exactly the local's own value,
				// so it reuses the local's Location rather than claiming a
				// second cell — the code generator reads a load's Dst
				// straight out of Locals[instr.Name] via this same entry.
				if loc, ok := fp.Locals[instr.Name]; ok {
					fp.Regs[instr.Dst] = loc
				}
				continue
			}
			if !producesReg(instr.Op) {
				continue
			}
			if _, already := fp.Regs[instr.Dst]; already {
				continue
			}
			size := sizeOfType(tt, instr.Type)
			fp.Regs[instr.Dst] = placeInMemory(planner, fn.Name, size)
		}
	}

	return fp
}

// producesReg reports whether instr.Dst holds a meaningful register this
// allocator must place. Effect-only ops (stores, pokes, intrinsics,
// CallVoid) leave Dst at its zero value and must never be treated as
// producing a register — the same Dst-zero-value pitfall the optimizer's
// dead-code pass had to guard against.
func producesReg(op il.OpKind) bool {
	switch op {
	case il.OpStoreGlobal, il.OpIndexStore, il.OpPoke, il.OpPokeW,
		il.OpVolatileWrite, il.OpIntrinsic, il.OpBarrier, il.OpCallVoid:
		return false
	default:
		return true
	}
}

// placeInMemory draws a cell from the zero-page arena first, falling
// back to the unbounded RAM arena once zero page is exhausted.
func placeInMemory(planner *symbols.MemoryPlanner, owner string, size int) Location {
	if r, err := planner.ZeroPage.Allocate(owner, size, source.Span{}); err == nil {
		return Location{Kind: LocZeroPage, Addr: r.Start, Size: size}
	}
	r, _ := planner.RAM.Allocate(owner, size, source.Span{})
	return Location{Kind: LocRAM, Addr: r.Start, Size: size}
}

func sizeOfType(tt *types.Table, id types.ID) int {
	ty := tt.Get(id)
	if ty == nil {
		return 1
	}
	switch ty.Kind {
	case types.KindWord, types.KindAddress:
		return 2
	case types.KindArray:
		return ty.Size * sizeOfType(tt, ty.Elem)
	case types.KindAlias:
		return sizeOfType(tt, ty.Target)
	default:
		return 1
	}
}

func sizeOfLocal(tt *types.Table, name string, paramTypes map[string]types.ID, usage localUsage) int {
	if id, ok := paramTypes[name]; ok {
		return sizeOfType(tt, id)
	}
	if u, ok := usage.byName[name]; ok && u.typeKnown {
		return sizeOfType(tt, u.typ)
	}
	return 1
}
