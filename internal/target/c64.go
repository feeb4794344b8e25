package target

// C64 memory map: zero-page usable range excludes the 6510 port at
// $00-$01 and the KERNAL/BASIC workspace above $8F, SID is at $D400,
// VIC-II at $D000.
func init() {
	registerOrdered(&Descriptor{
		ID:             "c64",
		Name:           "Commodore 64",
		ZeroPageStart:  0x02,
		ZeroPageEnd:    0x8F,
		ZeroPageBudget: 0x8F - 0x02 + 1,
		LoadAddress:    0x0801,
		RAMStart:       0xC000, // free RAM under the KERNAL ROM, clear of any BASIC-range program
		SIDBase:        0xD400,
		VICBase:        0xD000,
		// A badline steals ~40 of a scanline's 63 available cycles; a
		// raster-sensitive routine has the remainder to do useful work.
		BadlineCycleBudget: 23,
	})
}

// SidVoiceOffsets holds the SID register offsets relative to SIDBase, seven
// registers per voice; SidFilterVolumeOffset is the shared filter/volume
// block.
var SidVoiceOffsets = [3]struct {
	FreqLo, FreqHi     int
	PulseLo, PulseHi   int
	Control            int
	AttackDecay        int
	SustainRelease     int
}{
	{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
	{0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D},
	{0x0E, 0x0F, 0x10, 0x11, 0x12, 0x13, 0x14},
}

const SidFilterVolumeOffset = 0x18 // $D418: filter mode/volume

// VIC-II register offsets relative to VICBase that control raster timing
// and thus feed the badline-overrun heuristic.
const (
	vicRasterOffset = 0x12 // $D012
	vicCtrl1Offset  = 0x11 // $D011: RST8 bit + badline-relevant mode bits
)
