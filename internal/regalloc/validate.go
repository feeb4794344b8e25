package regalloc

import (
	"fmt"

	"github.com/samber/lo"
)

// Validate cross-checks every zero-page address handed out across all of
// a compilation's module Plans and reports the first overlap found, as an
// *internal* compiler bug rather than a user-facing diagnostic — sharing
// one MemoryPlanner instance across Allocate calls already makes such an
// overlap structurally impossible, so this exists as a defensive
// assertion catching a future regression in that sharing, not as the
// primary mechanism preventing conflicts.
func Validate(plans []*Plan) error {
	type owned struct {
		plan string
		fn   string
		name string
		addr int
	}
	var all []owned
	for _, p := range plans {
		for fnName, fp := range p.Functions {
			aliased := map[Location]bool{}
			for name, loc := range fp.Locals {
				if loc.Kind == LocZeroPage {
					all = append(all, owned{p.ModuleName, fnName, name, loc.Addr})
					aliased[loc] = true
				}
			}
			// A LoadLocal register shares its local's cell; it is not a
			// second claim on that address.
			for reg, loc := range fp.Regs {
				if loc.Kind == LocZeroPage && !aliased[loc] {
					all = append(all, owned{p.ModuleName, fnName, fmt.Sprintf("reg%d", reg), loc.Addr})
				}
			}
		}
	}

	addrs := lo.Map(all, func(o owned, _ int) int { return o.addr })
	uniqAddrs := lo.Uniq(addrs)
	if len(uniqAddrs) == len(addrs) {
		return nil
	}

	// A duplicate exists: lo.Uniq dropped at least one address, so its
	// output is a strict subset of the input under lo.Intersect.
	dupes := lo.Intersect(addrs, uniqAddrs)
	seen := map[int]owned{}
	for _, o := range all {
		if !lo.Contains(dupes, o.addr) {
			continue
		}
		if prior, ok := seen[o.addr]; ok {
			return &OverlapError{First: prior.plan + "." + prior.fn + "." + prior.name,
				Second: o.plan + "." + o.fn + "." + o.name, Addr: o.addr}
		}
		seen[o.addr] = o
	}
	return nil
}

// OverlapError is the internal-compiler-bug diagnostic for an invariant
// violation after type-checking, distinct from any user-facing
// diagnostic code.
type OverlapError struct {
	First, Second string
	Addr          int
}

func (e *OverlapError) Error() string {
	return "internal compiler error: zero-page address reused by both " + e.First + " and " + e.Second
}
