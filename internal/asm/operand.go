package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/blendsdk/blend65/internal/codegen"
)

// labelRef is a reference to a label's resolved address, optionally offset
// (jumptable.go's "-1" in "<(label-1)") and optionally narrowed to one byte
// of the 16-bit address ("<" low, ">" high, "" full word).
type labelRef struct {
	name   string
	offset int
	lo, hi bool
}

// operand is the decoded shape of one instruction's operand text, as
// emitted by internal/codegen. codegen.Line never records which
// AddressingMode produced its operand text (emitOp folds mnemonic+operand
// into one string and discards the mode once it's validated), so this
// package re-derives it from operand syntax — the same "operand shape
// implies addressing mode" job a standalone 6502 assembler's parser always
// does.
type operand struct {
	mode    codegen.AddressingMode
	literal int  // resolved value for Immediate/ZeroPage/Absolute literals
	label   *labelRef
}

var branchMnemonics = map[string]bool{
	"BPL": true, "BMI": true, "BVC": true, "BVS": true,
	"BCC": true, "BCS": true, "BNE": true, "BEQ": true,
}

// shiftMnemonics take an empty operand to mean "Accumulator", the one
// addressing mode besides None that a bare mnemonic with no operand text
// can mean — codegen.go's emitOp("ASL", Accumulator, "", "") and its
// implied-register siblings (RTS, INX, ...) are otherwise indistinguishable
// from operand text alone.
var shiftMnemonics = map[string]bool{"ASL": true, "LSR": true, "ROL": true, "ROR": true}

// parseOperand decodes one instruction's operand text. mnemonic
// disambiguates a bare label operand: branch mnemonics use it as a
// Relative target, everything else (JMP/JSR/LDA/STA of a global) as an
// Absolute one.
func parseOperand(mnemonic, text string) (operand, error) {
	if text == "" {
		if shiftMnemonics[mnemonic] {
			return operand{mode: codegen.Accumulator}, nil
		}
		return operand{mode: codegen.None}, nil
	}

	switch {
	case strings.HasPrefix(text, "#$"):
		v, err := strconv.ParseInt(text[2:], 16, 16)
		if err != nil {
			return operand{}, fmt.Errorf("asm: bad immediate literal %q: %w", text, err)
		}
		return operand{mode: codegen.Immediate, literal: int(v)}, nil

	case strings.HasPrefix(text, "#<") || strings.HasPrefix(text, "#>"):
		ref, err := parseLabelExpr(text[1:], text[1] == '<')
		if err != nil {
			return operand{}, err
		}
		return operand{mode: codegen.Immediate, label: ref}, nil

	case strings.HasPrefix(text, "(") && strings.HasSuffix(text, "),Y"):
		inner := text[1 : len(text)-3]
		v, err := strconv.ParseInt(strings.TrimPrefix(inner, "$"), 16, 16)
		if err != nil {
			return operand{}, fmt.Errorf("asm: bad indirect-indexed pointer %q: %w", text, err)
		}
		return operand{mode: codegen.IndirectY, literal: int(v)}, nil

	case strings.HasPrefix(text, "$"):
		hexDigits := text[1:]
		v, err := strconv.ParseInt(hexDigits, 16, 32)
		if err != nil {
			return operand{}, fmt.Errorf("asm: bad hex literal %q: %w", text, err)
		}
		if len(hexDigits) <= 2 {
			return operand{mode: codegen.ZeroPage, literal: int(v)}, nil
		}
		return operand{mode: codegen.Absolute, literal: int(v)}, nil

	case strings.HasSuffix(text, ",X"):
		name := strings.TrimSuffix(text, ",X")
		return operand{mode: codegen.AbsoluteX, label: &labelRef{name: name}}, nil

	case strings.HasSuffix(text, ",Y"):
		name := strings.TrimSuffix(text, ",Y")
		return operand{mode: codegen.AbsoluteY, label: &labelRef{name: name}}, nil

	default:
		mode := codegen.Absolute
		if branchMnemonics[mnemonic] {
			mode = codegen.Relative
		}
		return operand{mode: mode, label: &labelRef{name: text}}, nil
	}
}

// parseLabelExpr parses "<IDENT", ">IDENT", "<(IDENT-1)" and ">(IDENT-1)" —
// the only label-expression shapes codegen ever emits (plain address-of in
// OpAddressOfGlobal, and the jump-table's target-minus-one dispatch
// entries).
func parseLabelExpr(text string, lo bool) (*labelRef, error) {
	body := text[1:]
	offset := 0
	if strings.HasPrefix(body, "(") && strings.HasSuffix(body, ")") {
		body = body[1 : len(body)-1]
		if idx := strings.IndexAny(body, "+-"); idx >= 0 {
			n, err := strconv.Atoi(strings.TrimPrefix(body[idx:], "+"))
			if err != nil {
				return nil, fmt.Errorf("asm: bad label expression offset in %q: %w", text, err)
			}
			offset = n
			body = body[:idx]
		}
	}
	if body == "" {
		return nil, fmt.Errorf("asm: empty label in expression %q", text)
	}
	return &labelRef{name: body, offset: offset, lo: lo, hi: !lo}, nil
}

// byteItem is one entry of a ".byte" directive list.
type byteItem struct {
	literal *int
	label   *labelRef
}

// parseByteList decodes a ".byte a, b, c" directive's operand text.
// codegen only ever emits label expressions here (jumptable.go's
// "<(label-1)"/">(label-1)" pairs), but a plain numeric literal is accepted
// too since it's the obvious, conventional extension of the directive.
func parseByteList(text string) ([]byteItem, error) {
	parts := strings.Split(text, ",")
	items := make([]byteItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "<") || strings.HasPrefix(p, ">") {
			ref, err := parseLabelExpr(p, p[0] == '<')
			if err != nil {
				return nil, err
			}
			items = append(items, byteItem{label: ref})
			continue
		}
		var v int64
		var err error
		if strings.HasPrefix(p, "$") {
			v, err = strconv.ParseInt(p[1:], 16, 16)
		} else {
			v, err = strconv.ParseInt(p, 0, 16)
		}
		if err != nil {
			return nil, fmt.Errorf("asm: bad .byte item %q: %w", p, err)
		}
		n := int(v)
		items = append(items, byteItem{literal: &n})
	}
	return items, nil
}
