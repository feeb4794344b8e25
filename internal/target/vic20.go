package target

// VIC-20: the 6561 VIC chip shares SID's "one sound chip" role via its own
// tone/noise registers, but has no true SID, so SIDBase is 0 and voice
// conflict checks are skipped. Exact zero-page budget for non-C64 targets
// is otherwise under-specified, so it stays a per-target setting here.
func init() {
	registerOrdered(&Descriptor{
		ID:                 "vic20",
		Name:               "Commodore VIC-20",
		ZeroPageStart:      0x02,
		ZeroPageEnd:        0x8F,
		ZeroPageBudget:     0x8F - 0x02 + 1,
		LoadAddress:        0x1001,
		RAMStart:           0x1E00, // unexpanded VIC-20's RAM is tiny; this clears a small program's own range
		SIDBase:            0,
		VICBase:            0x9000,
		BadlineCycleBudget: 0, // the 6561 VIC has no badline stall model
	})
}
