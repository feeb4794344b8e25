package symbols

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/blendsdk/blend65/internal/source"
)

// Region is a [Start, Start+Length) half-open byte range in one of the
// four memory arenas a module's declarations draw from.
type Region struct {
	Start  int
	Length int
	Owner  string // symbol name, for overlap diagnostics
	Span   source.Span
}

func (r Region) End() int { return r.Start + r.Length }

func (r Region) overlaps(o Region) bool {
	return r.Start < o.End() && o.Start < r.End()
}

// Arena tracks one memory region's reservations: zero page, the
// general-purpose RAM arena, the data (initialized constant) arena, or the
// flat address space @map declarations reserve fixed addresses in.
//
// Reservations are append-only and re-checked pairwise on insert — the
// corpus has no precedent for an interval tree, and module-local arenas
// stay small enough (a few hundred entries at most) that O(n) overlap
// checking is the right tradeoff over introducing a new data structure.
type Arena struct {
	Name      string
	Budget    int // 0 = unbounded (RAM/data arenas are not budget-limited)
	reserved  []Region
	nextAlloc int
}

// NewArena creates an arena with an optional fixed budget (zero page uses
// one; RAM/data arenas pass 0).
func NewArena(name string, budget int) *Arena {
	return &Arena{Name: name, Budget: budget}
}

// Reserve places a region at a specific address (used by @map forms, which
// fix their own address); Allocate is the free-cursor counterpart.
//
// Returns the conflicting region, if any, as (conflict, ok).
func (a *Arena) Reserve(r Region) (Region, bool) {
	for _, existing := range a.reserved {
		if existing.overlaps(r) {
			return existing, false
		}
	}
	a.reserved = append(a.reserved, r)
	if r.End() > a.nextAlloc {
		a.nextAlloc = r.End()
	}
	return Region{}, true
}

// Allocate reserves `length` contiguous bytes starting from the arena's
// free cursor, the way @zp/@ram/@data variables without an explicit
// address get placed: in declaration order.
func (a *Arena) Allocate(owner string, length int, span source.Span) (Region, error) {
	start := a.nextAlloc
	if a.Budget > 0 && start+length > a.Budget {
		return Region{}, fmt.Errorf("arena %s: %d bytes requested, only %d remain of a %d-byte budget",
			a.Name, length, a.Budget-start, a.Budget)
	}
	r := Region{Start: start, Length: length, Owner: owner, Span: span}
	a.reserved = append(a.reserved, r)
	a.nextAlloc = r.End()
	return r, nil
}

// Free returns the number of bytes left in a budgeted arena, or -1 when
// the arena is unbounded.
func (a *Arena) Free() int {
	if a.Budget <= 0 {
		return -1
	}
	return a.Budget - a.nextAlloc
}

// Used returns every reserved region, sorted by start address — used by the
// compiler to turn each global's placement into a real address.
func (a *Arena) Used() []Region {
	out := append([]Region{}, a.reserved...)
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// MemoryPlanner owns the four arenas one compilation shares across all of
// its modules: zero page
// (budgeted by the target descriptor), general RAM, initialized data, and
// the flat @map address space shared across all modules (hardware
// registers and absolute placements are global, not per-module).
type MemoryPlanner struct {
	ZeroPage *Arena
	RAM      *Arena
	Data     *Arena
	Mapped   *Arena // global: @map reservations from every module share one space
}

// NewMemoryPlanner creates a planner with the target's zero-page budget.
// RAM, Data, and Mapped are unbounded; no pass applies a ceiling to them.
func NewMemoryPlanner(zeroPageBudget int) *MemoryPlanner {
	return &MemoryPlanner{
		ZeroPage: NewArena("zero-page", zeroPageBudget),
		RAM:      NewArena("ram", 0),
		Data:     NewArena("data", 0),
		Mapped:   NewArena("mapped", 0),
	}
}

// PlaceVariable allocates or reserves storage for one variable/const
// declaration according to its storage class, returning the region it was
// placed in plus any E_MAP_OVERLAP / E_ZERO_PAGE_OVERFLOW diagnostic.
func (p *MemoryPlanner) PlaceVariable(name string, storage Storage, sizeBytes int, fixedAddr int, hasFixed bool, span source.Span) (Region, *source.Diagnostic) {
	arena := p.arenaFor(storage)
	if arena == nil {
		return Region{}, nil // StorageNone/StorageStack/StorageRegister are not memory-planner concerns
	}

	if hasFixed {
		conflict, ok := arena.Reserve(Region{Start: fixedAddr, Length: sizeBytes, Owner: name, Span: span})
		if !ok {
			d := source.New(source.Error, source.ErrMapOverlap, span,
				fmt.Sprintf("%q at $%04X overlaps %q", name, fixedAddr, conflict.Owner)).
				WithRelated(conflict.Span, fmt.Sprintf("%q reserved here", conflict.Owner))
			return Region{}, &d
		}
		return Region{Start: fixedAddr, Length: sizeBytes, Owner: name, Span: span}, nil
	}

	r, err := arena.Allocate(name, sizeBytes, span)
	if err != nil {
		d := source.New(source.Error, source.ErrZeroPageOverflow, span, err.Error())
		return Region{}, &d
	}
	return r, nil
}

func (p *MemoryPlanner) arenaFor(storage Storage) *Arena {
	switch storage {
	case StorageZP:
		return p.ZeroPage
	case StorageRAM:
		return p.RAM
	case StorageData:
		return p.Data
	case StorageMap:
		return p.Mapped
	default:
		return nil
	}
}

// FreeZeroPageRanges returns the gaps left in the zero-page arena after
// every reservation, expressed as (start, length) pairs. The register
// allocator does not use it; it takes its cells through ZeroPage.Allocate.
func (p *MemoryPlanner) FreeZeroPageRanges() []Region {
	used := p.ZeroPage.Used()
	var free []Region
	cursor := 0
	for _, r := range used {
		if r.Start > cursor {
			free = append(free, Region{Start: cursor, Length: r.Start - cursor})
		}
		cursor = lo.Max([]int{cursor, r.End()})
	}
	if p.ZeroPage.Budget > cursor {
		free = append(free, Region{Start: cursor, Length: p.ZeroPage.Budget - cursor})
	}
	return free
}
