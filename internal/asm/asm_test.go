package asm

import (
	"testing"

	"github.com/blendsdk/blend65/internal/codegen"
	"github.com/blendsdk/blend65/internal/target"
)

func c64(t *testing.T) *target.Descriptor {
	t.Helper()
	d, err := target.Get("c64")
	if err != nil {
		t.Fatalf("target: %v", err)
	}
	return d
}

func TestAssembleSimpleLoadStoreReturn(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Labels: []string{"fn_main"}},
		{Instruction: "LDA #$05"},
		{Instruction: "STA $10"},
		{Instruction: "RTS"},
	}}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{0xA9, 0x05, 0x85, 0x10, 0x60}
	if len(img.Code) != len(want) {
		t.Fatalf("got %d bytes, want %d: % X", len(img.Code), len(want), img.Code)
	}
	for i := range want {
		if img.Code[i] != want[i] {
			t.Fatalf("byte %d: got %#02x want %#02x (% X)", i, img.Code[i], want[i], img.Code)
		}
	}
	if img.Labels["fn_main"] != desc.LoadAddress {
		t.Fatalf("fn_main label: got %#04x want %#04x", img.Labels["fn_main"], desc.LoadAddress)
	}
}

func TestAssembleAbsoluteJumpResolvesForwardLabel(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Instruction: "JMP target"},
		{Instruction: "NOP"},
		{Labels: []string{"target"}},
		{Instruction: "RTS"},
	}}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if img.Code[0] != 0x4C {
		t.Fatalf("expected JMP absolute opcode 0x4C, got %#02x", img.Code[0])
	}
	gotTarget := int(img.Code[1]) | int(img.Code[2])<<8
	wantTarget := desc.LoadAddress + 3 + 1 // past JMP (3 bytes) then NOP (1 byte)
	if gotTarget != wantTarget {
		t.Fatalf("JMP operand: got %#04x want %#04x", gotTarget, wantTarget)
	}
	if img.Labels["target"] != wantTarget {
		t.Fatalf("label target: got %#04x want %#04x", img.Labels["target"], wantTarget)
	}
}

func TestAssembleIndirectIndexedPoke(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Instruction: "LDA #$00"},
		{Instruction: "STA ($FB),Y"},
	}}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := []byte{0xA9, 0x00, 0x91, 0xFB}
	if len(img.Code) != len(want) || img.Code[2] != 0x91 || img.Code[3] != 0xFB {
		t.Fatalf("got % X, want % X", img.Code, want)
	}
}

func TestAssembleByteDirectiveResolvesLabelLowHighBytes(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Instruction: "JMP skip"},
		{Labels: []string{"entry"}, Instruction: "RTS"},
		{Labels: []string{"skip"}},
		{Labels: []string{"jt_lo"}, Instruction: ".byte <(entry-1)"},
		{Labels: []string{"jt_hi"}, Instruction: ".byte >(entry-1)"},
	}}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	entryAddr := img.Labels["entry"]
	wantLo := byte((entryAddr - 1) & 0xFF)
	wantHi := byte(((entryAddr - 1) >> 8) & 0xFF)
	loAddr := img.Labels["jt_lo"]
	hiAddr := img.Labels["jt_hi"]
	gotLo := img.Code[loAddr-desc.LoadAddress]
	gotHi := img.Code[hiAddr-desc.LoadAddress]
	if gotLo != wantLo {
		t.Fatalf("lo byte: got %#02x want %#02x", gotLo, wantLo)
	}
	if gotHi != wantHi {
		t.Fatalf("hi byte: got %#02x want %#02x", gotHi, wantHi)
	}
}

func TestAssemblePromotesOutOfRangeBranchToTrampolineJmp(t *testing.T) {
	lines := []codegen.Line{
		{Instruction: "BEQ far"},
	}
	for i := 0; i < 200; i++ {
		lines = append(lines, codegen.Line{Instruction: "NOP"})
	}
	lines = append(lines, codegen.Line{Labels: []string{"far"}, Instruction: "RTS"})
	u := &codegen.Unit{Lines: lines}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, nil)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if img.Code[0] != 0xF0 { // BEQ opcode
		t.Fatalf("expected BEQ opcode 0xF0, got %#02x", img.Code[0])
	}
	trampDelta := int8(img.Code[1])
	if trampDelta < -128 || trampDelta > 127 {
		t.Fatalf("branch delta itself must be in range, got %d", trampDelta)
	}
	trampAddr := desc.LoadAddress + 2 + int(trampDelta)
	jmpOpcode := img.Code[trampAddr-desc.LoadAddress]
	if jmpOpcode != 0x4C {
		t.Fatalf("expected trampoline to hold a JMP (0x4C), got %#02x at the branch's target", jmpOpcode)
	}
	farAddr := img.Labels["far"]
	gotTarget := int(img.Code[trampAddr-desc.LoadAddress+1]) | int(img.Code[trampAddr-desc.LoadAddress+2])<<8
	if gotTarget != farAddr {
		t.Fatalf("trampoline JMP target: got %#04x want %#04x", gotTarget, farAddr)
	}
}

func TestAssembleUndefinedLabelErrors(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Instruction: "JMP nowhere"},
	}}
	desc := c64(t)
	if _, err := Assemble([]*codegen.Unit{u}, desc, nil); err == nil {
		t.Fatalf("expected an error for an undefined label")
	}
}

func TestAssembleExternalLabelFeedsGlobalAddress(t *testing.T) {
	u := &codegen.Unit{Lines: []codegen.Line{
		{Instruction: "LDA counter"},
		{Instruction: "RTS"},
	}}
	desc := c64(t)
	img, err := Assemble([]*codegen.Unit{u}, desc, map[string]int{"counter": 0xD020})
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if img.Code[0] != 0xAD {
		t.Fatalf("expected LDA absolute opcode 0xAD, got %#02x", img.Code[0])
	}
	gotAddr := int(img.Code[1]) | int(img.Code[2])<<8
	if gotAddr != 0xD020 {
		t.Fatalf("LDA operand: got %#04x want $D020", gotAddr)
	}
}

func TestParseOperandRecognizesEveryShapeCodegenEmits(t *testing.T) {
	cases := []struct {
		mnemonic, text string
		wantMode       codegen.AddressingMode
	}{
		{"LDA", "#$05", codegen.Immediate},
		{"LDA", "#<main", codegen.Immediate},
		{"LDA", "#>main", codegen.Immediate},
		{"STA", "$FB", codegen.ZeroPage},
		{"LDA", "$0400", codegen.Absolute},
		{"LDA", "($FB),Y", codegen.IndirectY},
		{"LDA", "jt_hi,X", codegen.AbsoluteX},
		{"JMP", "fn_main", codegen.Absolute},
		{"BEQ", "fn_main_L3", codegen.Relative},
		{"ASL", "", codegen.Accumulator},
		{"RTS", "", codegen.None},
	}
	for _, c := range cases {
		op, err := parseOperand(c.mnemonic, c.text)
		if err != nil {
			t.Fatalf("parseOperand(%q, %q): %v", c.mnemonic, c.text, err)
		}
		if op.mode != c.wantMode {
			t.Fatalf("parseOperand(%q, %q): got mode %v want %v", c.mnemonic, c.text, op.mode, c.wantMode)
		}
	}
}
