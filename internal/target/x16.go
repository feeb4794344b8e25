package target

// Commander X16: a modern 65C02-based machine with a VERA video chip
// instead of a VIC-II and no SID (audio goes through VERA's PSG/PCM), so
// both hardware-specific checks are inert here; the badline/SID checks
// are scoped to the C64 only, and the X16 descriptor exists so the
// zero-page planner and codegen still have a target to compile against.
func init() {
	registerOrdered(&Descriptor{
		ID:                 "x16",
		Name:               "Commander X16",
		ZeroPageStart:      0x02,
		ZeroPageEnd:        0x7F,
		ZeroPageBudget:     0x7F - 0x02 + 1,
		LoadAddress:        0x0801,
		RAMStart:           0xA000, // banked RAM window, clear of the $0801-range program
		SIDBase:            0,
		VICBase:            0,
		BadlineCycleBudget: 0,
	})
}
