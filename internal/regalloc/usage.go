package regalloc

import (
	"github.com/blendsdk/blend65/internal/il"
	"github.com/blendsdk/blend65/internal/types"
)

// localUsageEntry tracks how one named local slot is used across a
// function: how many times it's loaded/stored, whether its address
// escapes (OpAddressOfLocal — such a local can never live in a CPU
// register, only in addressable memory), and its resolved type for
// sizing.
type localUsageEntry struct {
	count        int
	addressTaken bool
	typeKnown    bool
	typ          types.ID
}

// localUsage is the result of one pass over a function's instructions.
type localUsage struct {
	order  []string // first-use order, for deterministic iteration
	byName map[string]localUsageEntry
}

// collectLocalUsage gathers every named local's usage stats in fn,
// covering parameters (whose type is already known from the function
// signature) and every let/for-counter local touched via
// Load/Store/AddressOfLocal.
func collectLocalUsage(fn *il.Function) localUsage {
	u := localUsage{byName: map[string]localUsageEntry{}}
	entry := func(name string) localUsageEntry {
		if e, ok := u.byName[name]; ok {
			return e
		}
		u.order = append(u.order, name)
		return localUsageEntry{}
	}

	for i, name := range fn.ParamNames {
		e := entry(name)
		if i < len(fn.ParamTypes) {
			e.typeKnown = true
			e.typ = fn.ParamTypes[i]
		}
		u.byName[name] = e
	}

	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			switch instr.Op {
			case il.OpLoadLocal:
				e := entry(instr.Name)
				e.count++
				e.typeKnown = true
				e.typ = instr.Type
				u.byName[instr.Name] = e
			case il.OpStoreLocal:
				e := entry(instr.Name)
				e.count++
				u.byName[instr.Name] = e
			case il.OpAddressOfLocal:
				e := entry(instr.Name)
				e.addressTaken = true
				e.count++
				u.byName[instr.Name] = e
			}
		}
	}
	return u
}
