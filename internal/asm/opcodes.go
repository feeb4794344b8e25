// Package asm performs two-pass label resolution over the generator's
// emitted Lines, producing a final 6502 byte image (segments: zero-page,
// code, data, BSS).
//
// encoding's byte values are taken directly from
// chriskillpack-bbcdisasm/opcodes.go's OpCodes table, which decodes a
// byte stream into these same (value, name, length, mode) tuples; this
// table runs it in reverse, encoding a (mnemonic, mode) pair back into
// its documented opcode byte. The undocumented opcodes that table itself
// flags (ANC, SRE, SLO) are left out: illegal opcodes are never emitted,
// and the code generator's own legalModes table already only ever asks
// this package to encode mnemonics from the documented set.
package asm

import "github.com/blendsdk/blend65/internal/codegen"

// encoding is one (opcode byte, instruction length in bytes) pair for a
// documented mnemonic/addressing-mode combination.
type encoding struct {
	Value  byte
	Length int
}

var opcodeTable = map[string]map[codegen.AddressingMode]encoding{
	"ADC": {codegen.Immediate: {0x69, 2}, codegen.ZeroPage: {0x65, 2}, codegen.ZeroPageX: {0x75, 2}, codegen.Absolute: {0x6D, 3}, codegen.AbsoluteX: {0x7D, 3}, codegen.AbsoluteY: {0x79, 3}, codegen.IndirectX: {0x61, 2}, codegen.IndirectY: {0x71, 2}},
	"AND": {codegen.Immediate: {0x29, 2}, codegen.ZeroPage: {0x25, 2}, codegen.ZeroPageX: {0x35, 2}, codegen.Absolute: {0x2D, 3}, codegen.AbsoluteX: {0x3D, 3}, codegen.AbsoluteY: {0x39, 3}, codegen.IndirectX: {0x21, 2}, codegen.IndirectY: {0x31, 2}},
	"ASL": {codegen.Accumulator: {0x0A, 1}, codegen.ZeroPage: {0x06, 2}, codegen.ZeroPageX: {0x16, 2}, codegen.Absolute: {0x0E, 3}, codegen.AbsoluteX: {0x1E, 3}},
	"BIT": {codegen.ZeroPage: {0x24, 2}, codegen.Absolute: {0x2C, 3}},

	"BPL": {codegen.Relative: {0x10, 2}}, "BMI": {codegen.Relative: {0x30, 2}},
	"BVC": {codegen.Relative: {0x50, 2}}, "BVS": {codegen.Relative: {0x70, 2}},
	"BCC": {codegen.Relative: {0x90, 2}}, "BCS": {codegen.Relative: {0xB0, 2}},
	"BNE": {codegen.Relative: {0xD0, 2}}, "BEQ": {codegen.Relative: {0xF0, 2}},

	"BRK": {codegen.None: {0x00, 1}},

	"CMP": {codegen.Immediate: {0xC9, 2}, codegen.ZeroPage: {0xC5, 2}, codegen.ZeroPageX: {0xD5, 2}, codegen.Absolute: {0xCD, 3}, codegen.AbsoluteX: {0xDD, 3}, codegen.AbsoluteY: {0xD9, 3}, codegen.IndirectX: {0xC1, 2}, codegen.IndirectY: {0xD1, 2}},
	"CPX": {codegen.Immediate: {0xE0, 2}, codegen.ZeroPage: {0xE4, 2}, codegen.Absolute: {0xEC, 3}},
	"CPY": {codegen.Immediate: {0xC0, 2}, codegen.ZeroPage: {0xC4, 2}, codegen.Absolute: {0xCC, 3}},

	"DEC": {codegen.ZeroPage: {0xC6, 2}, codegen.ZeroPageX: {0xD6, 2}, codegen.Absolute: {0xCE, 3}, codegen.AbsoluteX: {0xDE, 3}},
	"EOR": {codegen.Immediate: {0x49, 2}, codegen.ZeroPage: {0x45, 2}, codegen.ZeroPageX: {0x55, 2}, codegen.Absolute: {0x4D, 3}, codegen.AbsoluteX: {0x5D, 3}, codegen.AbsoluteY: {0x59, 3}, codegen.IndirectX: {0x41, 2}, codegen.IndirectY: {0x51, 2}},

	"CLC": {codegen.None: {0x18, 1}}, "SEC": {codegen.None: {0x38, 1}},
	"CLI": {codegen.None: {0x58, 1}}, "SEI": {codegen.None: {0x78, 1}},
	"CLV": {codegen.None: {0xB8, 1}}, "CLD": {codegen.None: {0xD8, 1}}, "SED": {codegen.None: {0xF8, 1}},

	"INC": {codegen.ZeroPage: {0xE6, 2}, codegen.ZeroPageX: {0xF6, 2}, codegen.Absolute: {0xEE, 3}, codegen.AbsoluteX: {0xFE, 3}},

	"JMP": {codegen.Absolute: {0x4C, 3}, codegen.Indirect: {0x6C, 3}},
	"JSR": {codegen.Absolute: {0x20, 3}},

	"LDA": {codegen.Immediate: {0xA9, 2}, codegen.ZeroPage: {0xA5, 2}, codegen.ZeroPageX: {0xB5, 2}, codegen.Absolute: {0xAD, 3}, codegen.AbsoluteX: {0xBD, 3}, codegen.AbsoluteY: {0xB9, 3}, codegen.IndirectX: {0xA1, 2}, codegen.IndirectY: {0xB1, 2}},
	"LDX": {codegen.Immediate: {0xA2, 2}, codegen.ZeroPage: {0xA6, 2}, codegen.ZeroPageY: {0xB6, 2}, codegen.Absolute: {0xAE, 3}, codegen.AbsoluteY: {0xBE, 3}},
	"LDY": {codegen.Immediate: {0xA0, 2}, codegen.ZeroPage: {0xA4, 2}, codegen.ZeroPageX: {0xB4, 2}, codegen.Absolute: {0xAC, 3}, codegen.AbsoluteX: {0xBC, 3}},

	"LSR": {codegen.Accumulator: {0x4A, 1}, codegen.ZeroPage: {0x46, 2}, codegen.ZeroPageX: {0x56, 2}, codegen.Absolute: {0x4E, 3}, codegen.AbsoluteX: {0x5E, 3}},
	"NOP": {codegen.None: {0xEA, 1}},
	"ORA": {codegen.Immediate: {0x09, 2}, codegen.ZeroPage: {0x05, 2}, codegen.ZeroPageX: {0x15, 2}, codegen.Absolute: {0x0D, 3}, codegen.AbsoluteX: {0x1D, 3}, codegen.AbsoluteY: {0x19, 3}, codegen.IndirectX: {0x01, 2}, codegen.IndirectY: {0x11, 2}},

	"TAX": {codegen.None: {0xAA, 1}}, "TXA": {codegen.None: {0x8A, 1}},
	"DEX": {codegen.None: {0xCA, 1}}, "INX": {codegen.None: {0xE8, 1}},
	"TAY": {codegen.None: {0xA8, 1}}, "TYA": {codegen.None: {0x98, 1}},
	"DEY": {codegen.None: {0x88, 1}}, "INY": {codegen.None: {0xC8, 1}},

	"ROL": {codegen.Accumulator: {0x2A, 1}, codegen.ZeroPage: {0x26, 2}, codegen.ZeroPageX: {0x36, 2}, codegen.Absolute: {0x2E, 3}, codegen.AbsoluteX: {0x3E, 3}},
	"ROR": {codegen.Accumulator: {0x6A, 1}, codegen.ZeroPage: {0x66, 2}, codegen.ZeroPageX: {0x76, 2}, codegen.Absolute: {0x6E, 3}, codegen.AbsoluteX: {0x7E, 3}},

	"RTI": {codegen.None: {0x40, 1}},
	"RTS": {codegen.None: {0x60, 1}},

	"SBC": {codegen.Immediate: {0xE9, 2}, codegen.ZeroPage: {0xE5, 2}, codegen.ZeroPageX: {0xF5, 2}, codegen.Absolute: {0xED, 3}, codegen.AbsoluteX: {0xFD, 3}, codegen.AbsoluteY: {0xF9, 3}, codegen.IndirectX: {0xE1, 2}, codegen.IndirectY: {0xF1, 2}},

	"STA": {codegen.ZeroPage: {0x85, 2}, codegen.ZeroPageX: {0x95, 2}, codegen.Absolute: {0x8D, 3}, codegen.AbsoluteX: {0x9D, 3}, codegen.AbsoluteY: {0x99, 3}, codegen.IndirectX: {0x81, 2}, codegen.IndirectY: {0x91, 2}},
	"STX": {codegen.ZeroPage: {0x86, 2}, codegen.ZeroPageY: {0x96, 2}, codegen.Absolute: {0x8E, 3}},
	"STY": {codegen.ZeroPage: {0x84, 2}, codegen.ZeroPageX: {0x94, 2}, codegen.Absolute: {0x8C, 3}},

	"TXS": {codegen.None: {0x9A, 1}}, "TSX": {codegen.None: {0xBA, 1}},
	"PHA": {codegen.None: {0x48, 1}}, "PLA": {codegen.None: {0x68, 1}},
	"PHP": {codegen.None: {0x08, 1}}, "PLP": {codegen.None: {0x28, 1}},
}

func lookup(mnemonic string, mode codegen.AddressingMode) (encoding, bool) {
	byMode, ok := opcodeTable[mnemonic]
	if !ok {
		return encoding{}, false
	}
	enc, ok := byMode[mode]
	return enc, ok
}
