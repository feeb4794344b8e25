// Package target describes the hardware profile Blend65 compiles against
// (one of c64, vic20, x16) and registers each target's hardware-specific
// dataflow checks.
//
// The registry mirrors ajroetker-goat/arch.go's RegisterParser/GetParser
// shape: a flat map keyed by id, populated by each target's init(), with
// Register/Get/List accessors — the same flat-map shape internal/symbols
// uses for its per-module export table.
package target

import "fmt"

// MemRegion names a reserved hardware address range, used by hardware
// checks to classify a `@map` address's register group (SID conflicts,
// VIC-II timing).
type MemRegion struct {
	Name  string
	Start int
	End   int // inclusive
}

func (r MemRegion) Contains(addr int) bool {
	return addr >= r.Start && addr <= r.End
}

// Descriptor is one compilation target's hardware profile: its zero-page
// arena bounds, load address, and the memory-mapped regions its hardware
// checks care about.
type Descriptor struct {
	ID   string
	Name string

	// Zero-page arena (C64: $02-$8F, excluding the KERNAL workspace).
	// ZeroPageStart/End are inclusive; ZeroPageBudget is the byte count
	// available to the allocator after any target defaults — overridable
	// per-compile via the `zero-page-budget` option.
	ZeroPageStart  int
	ZeroPageEnd    int
	ZeroPageBudget int

	// LoadAddress is where the assembler places the first byte of the code
	// segment.
	LoadAddress int

	// RAMStart is where the general-purpose RAM arena's byte 0 really
	// lives: symbols.MemoryPlanner.RAM counts free cells from 0, the same
	// way the zero-page arena does, and this is the offset the orchestrator
	// and the register allocator's spills both add to get a real address
	// (mirroring zpAddr's ZeroPageStart+offset pattern for zero page). A
	// true linker would place RAM after the assembled code's own end, but
	// that address isn't known until assembly has already run; this
	// compiler picks a fixed, conservative offset per target instead, well
	// clear of any program this compiler is realistically asked to build.
	RAMStart int

	// SIDBase/VICBase are 0 on targets with no such chip (VIC-20 has no
	// SID; the X16 has a VERA instead of a VIC-II, so both are 0 there —
	// HardwareChecks skips SID/VIC-II-specific diagnostics when the
	// relevant base is 0).
	SIDBase int
	VICBase int

	// BadlineCycleBudget is the worst-case CPU cycles a function called
	// from a raster-sensitive context may spend before a badline stall
	// becomes a risk. 0 disables the check.
	BadlineCycleBudget int
}

var descriptors = map[string]*Descriptor{}

// Register adds a target descriptor under d.ID, overwriting any existing
// entry of the same id.
func Register(d *Descriptor) {
	descriptors[d.ID] = d
}

// Get returns the descriptor for id.
func Get(id string) (*Descriptor, error) {
	if d, ok := descriptors[id]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("target: unknown target %q (available: %v)", id, List())
}

// List returns every registered target id, in registration order; targets
// are registered via init() in a fixed file order (c64, vic20, x16) so this
// is already deterministic.
func List() []string {
	out := make([]string, 0, len(descriptors))
	for _, id := range order {
		if _, ok := descriptors[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// order records registration order for List's determinism; append-only,
// one entry per target file's init().
var order []string

func registerOrdered(d *Descriptor) {
	Register(d)
	order = append(order, d.ID)
}
