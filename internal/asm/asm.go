package asm

import (
	"fmt"
	"strings"

	"github.com/blendsdk/blend65/internal/codegen"
	"github.com/blendsdk/blend65/internal/target"
)

// Segment identifies which region of the memory map a byte belongs to.
// Only Code is populated by this package today: the code generator only
// ever emits executable instructions, branch/jump-table labels and inline
// ".byte" dispatch data — all of it destined for the code segment.
// ZeroPage, Data and BSS are carried for the orchestrator, which places
// global variable storage (zero-page and RAM arenas already assigned by
// symbols.MemoryPlanner) into the other three.
type Segment int

const (
	SegmentZeroPage Segment = iota
	SegmentCode
	SegmentData
	SegmentBSS
)

// Image is the final encoded output of one Assemble call: a contiguous
// code-segment byte stream plus every label's resolved absolute address
// (useful for diagnostics and for a future linker step across units).
type Image struct {
	LoadAddress int
	Code        []byte
	Labels      map[string]int
}

// asmLine is codegen.Line after its Instruction text has been split into a
// bare mnemonic and an operand string, the working unit this package's
// two passes operate on. A line with no Mnemonic is label-only (no bytes).
type asmLine struct {
	labels      []string
	mnemonic    string
	operandText string
	byteItems   []byteItem // populated when mnemonic == ".byte"
	origIndex   int        // index into the pre-promotion line list; -1 for a synthesized trampoline
}

// maxPromotionPasses bounds the branch-promotion fixpoint: each pass can
// only grow the code (never shrink it), and a trampoline's own branch is
// always in range by construction, so convergence is expected well within
// a handful of iterations for any realistic function size.
const maxPromotionPasses = 16

// Assemble runs two passes over units, in order, laying every unit's code
// back-to-back starting at desc.LoadAddress: a sizing pass that resolves
// every label to a tentative address and promotes any relative branch
// whose target falls outside the signed 8-bit window to a
// branch-to-trampoline/JMP pair (the branch itself stays a 2-byte
// instruction, aimed at an adjacent trampoline label that is always in
// range; the trampoline's own 3-byte JMP reaches the real, far target),
// followed by a single encode pass once sizes have stopped changing.
//
// externalLabels seeds the label table with addresses this package cannot
// derive on its own — global variables placed by symbols.MemoryPlanner,
// and any function whose body isn't part of units (a cross-module call
// target assembled in a separate Image). A name present in both units and
// externalLabels is a compiler-internal error: no two definitions may
// claim the same label.
func Assemble(units []*codegen.Unit, desc *target.Descriptor, externalLabels map[string]int) (*Image, error) {
	var origLines []asmLine
	for _, u := range units {
		for _, l := range u.Lines {
			mnem, operand := splitInstruction(l.Instruction)
			al := asmLine{labels: l.Labels, mnemonic: mnem, operandText: operand, origIndex: len(origLines)}
			if mnem == ".byte" {
				items, err := parseByteList(operand)
				if err != nil {
					return nil, err
				}
				al.byteItems = items
			}
			origLines = append(origLines, al)
		}
	}

	promoted := map[int]bool{}
	var branchAddrs map[int]int
	var working []asmLine
	var labelAddrs map[string]int

	for pass := 0; ; pass++ {
		if pass >= maxPromotionPasses {
			return nil, fmt.Errorf("asm: branch promotion did not converge after %d passes", maxPromotionPasses)
		}
		working = expand(origLines, promoted)
		labelsByPos, bAddrs, err := layout(working, desc.LoadAddress)
		if err != nil {
			return nil, err
		}
		branchAddrs = bAddrs
		labelAddrs, err = namedLabelAddrs(working, labelsByPos)
		if err != nil {
			return nil, err
		}

		changed := false
		for idx, line := range origLines {
			if !branchMnemonics[line.mnemonic] || promoted[idx] {
				continue
			}
			targetAddr, ok := resolveNamedLabel(labelAddrs, externalLabels, line.operandText)
			if !ok {
				return nil, fmt.Errorf("asm: undefined label %q", line.operandText)
			}
			delta := targetAddr - (branchAddrs[idx] + 2)
			if delta < -128 || delta > 127 {
				promoted[idx] = true
				changed = true
			}
		}
		if !changed {
			break
		}
	}

	for name, addr := range externalLabels {
		if _, dup := labelAddrs[name]; dup {
			return nil, fmt.Errorf("asm: internal compiler error: label %q defined both in code and externally", name)
		}
		labelAddrs[name] = addr
	}

	code, err := encode(working, labelAddrs, desc.LoadAddress)
	if err != nil {
		return nil, err
	}
	return &Image{LoadAddress: desc.LoadAddress, Code: code, Labels: labelAddrs}, nil
}

func splitInstruction(instr string) (mnemonic, operand string) {
	instr = strings.TrimSpace(instr)
	if instr == "" {
		return "", ""
	}
	sp := strings.IndexByte(instr, ' ')
	if sp < 0 {
		return instr, ""
	}
	return instr[:sp], strings.TrimSpace(instr[sp+1:])
}

// expand materializes origLines into the working line list, splicing in a
// branch-to-trampoline/JMP pair for every promoted branch.
func expand(origLines []asmLine, promoted map[int]bool) []asmLine {
	out := make([]asmLine, 0, len(origLines))
	for idx, line := range origLines {
		if promoted[idx] {
			tramp := fmt.Sprintf("__trampoline%d", idx)
			out = append(out, asmLine{labels: line.labels, mnemonic: line.mnemonic, operandText: tramp, origIndex: idx})
			out = append(out, asmLine{labels: []string{tramp}, mnemonic: "JMP", operandText: line.operandText, origIndex: -1})
			continue
		}
		out = append(out, line)
	}
	return out
}

// layout walks working once, assigning every label (keyed by its position
// in working, since two working entries never share an origIndex) a
// tentative address, and records each branch instruction's own address by
// origIndex for the promotion-range check.
func layout(working []asmLine, loadAddr int) (labelsByPos map[int]int, branchAddrs map[int]int, err error) {
	labelsByPos = map[int]int{}
	branchAddrs = map[int]int{}
	addr := loadAddr
	for i, line := range working {
		labelsByPos[i] = addr
		if branchMnemonics[line.mnemonic] && line.origIndex >= 0 {
			branchAddrs[line.origIndex] = addr
		}
		n, err := lineLength(line)
		if err != nil {
			return nil, nil, err
		}
		addr += n
	}
	return labelsByPos, branchAddrs, nil
}

func lineLength(line asmLine) (int, error) {
	if line.mnemonic == "" {
		return 0, nil
	}
	if line.mnemonic == ".byte" {
		return len(line.byteItems), nil
	}
	op, err := parseOperand(line.mnemonic, line.operandText)
	if err != nil {
		return 0, err
	}
	enc, ok := lookup(line.mnemonic, op.mode)
	if !ok {
		return 0, fmt.Errorf("asm: internal compiler error: %s does not support addressing mode %v", line.mnemonic, op.mode)
	}
	return enc.Length, nil
}

// namedLabelAddrs re-walks working, this time keeping only labels by name
// (what encode needs to resolve operand references) rather than by
// position.
func namedLabelAddrs(working []asmLine, labelsByPos map[int]int) (map[string]int, error) {
	out := map[string]int{}
	for i, line := range working {
		for _, name := range line.labels {
			if _, dup := out[name]; dup {
				return nil, fmt.Errorf("asm: internal compiler error: duplicate label %q", name)
			}
			out[name] = labelsByPos[i]
		}
	}
	return out, nil
}

// resolveNamedLabel looks a bare label name up first among this
// compilation's own labels, then in externalLabels.
func resolveNamedLabel(labelAddrs map[string]int, externalLabels map[string]int, name string) (int, bool) {
	if addr, ok := labelAddrs[name]; ok {
		return addr, true
	}
	if addr, ok := externalLabels[name]; ok {
		return addr, true
	}
	return 0, false
}

func encode(working []asmLine, labels map[string]int, loadAddr int) ([]byte, error) {
	var out []byte
	addr := loadAddr
	for _, line := range working {
		if line.mnemonic == "" {
			continue
		}
		if line.mnemonic == ".byte" {
			for _, item := range line.byteItems {
				b, err := resolveByteItem(item, labels)
				if err != nil {
					return nil, err
				}
				out = append(out, b)
			}
			addr += len(line.byteItems)
			continue
		}
		bs, err := encodeInstr(line, labels, addr)
		if err != nil {
			return nil, err
		}
		out = append(out, bs...)
		addr += len(bs)
	}
	return out, nil
}

func resolveByteItem(item byteItem, labels map[string]int) (byte, error) {
	if item.literal != nil {
		return byte(*item.literal), nil
	}
	ref := item.label
	addr, ok := labels[ref.name]
	if !ok {
		return 0, fmt.Errorf("asm: undefined label %q", ref.name)
	}
	addr += ref.offset
	if ref.lo {
		return byte(addr & 0xFF), nil
	}
	return byte((addr >> 8) & 0xFF), nil
}

func resolveLabelRef(ref *labelRef, labels map[string]int) (int, error) {
	addr, ok := labels[ref.name]
	if !ok {
		return 0, fmt.Errorf("asm: undefined label %q", ref.name)
	}
	return addr + ref.offset, nil
}

func encodeInstr(line asmLine, labels map[string]int, addr int) ([]byte, error) {
	op, err := parseOperand(line.mnemonic, line.operandText)
	if err != nil {
		return nil, err
	}
	enc, ok := lookup(line.mnemonic, op.mode)
	if !ok {
		return nil, fmt.Errorf("asm: internal compiler error: %s does not support addressing mode %v", line.mnemonic, op.mode)
	}

	switch op.mode {
	case codegen.None, codegen.Accumulator:
		return []byte{enc.Value}, nil

	case codegen.Immediate, codegen.ZeroPage, codegen.IndirectY:
		v, err := operandByte(op, labels)
		if err != nil {
			return nil, err
		}
		return []byte{enc.Value, v}, nil

	case codegen.Absolute, codegen.AbsoluteX, codegen.AbsoluteY:
		v, err := operandWord(op, labels)
		if err != nil {
			return nil, err
		}
		return []byte{enc.Value, byte(v & 0xFF), byte((v >> 8) & 0xFF)}, nil

	case codegen.Relative:
		target, err := resolveLabelRef(op.label, labels)
		if err != nil {
			return nil, err
		}
		delta := target - (addr + 2)
		if delta < -128 || delta > 127 {
			return nil, fmt.Errorf("asm: internal compiler error: branch to %q still out of range after promotion", op.label.name)
		}
		return []byte{enc.Value, byte(int8(delta))}, nil

	default:
		return nil, fmt.Errorf("asm: internal compiler error: unhandled addressing mode %v", op.mode)
	}
}

// operandByte resolves a one-byte operand: a literal (zero page address,
// indirect-indexed pointer, immediate literal) or a label narrowed to one
// byte via "#<"/"#>" — full-word labels never reach here, only ZeroPage,
// IndirectY and Immediate do.
func operandByte(op operand, labels map[string]int) (byte, error) {
	if op.label == nil {
		return byte(op.literal), nil
	}
	target, err := resolveLabelRef(op.label, labels)
	if err != nil {
		return 0, err
	}
	if op.label.lo {
		return byte(target & 0xFF), nil
	}
	if op.label.hi {
		return byte((target >> 8) & 0xFF), nil
	}
	return 0, fmt.Errorf("asm: internal compiler error: immediate label reference %q has no byte selector", op.label.name)
}

// operandWord resolves a two-byte Absolute/AbsoluteX/AbsoluteY operand.
func operandWord(op operand, labels map[string]int) (int, error) {
	if op.label == nil {
		return op.literal, nil
	}
	return resolveLabelRef(op.label, labels)
}
