// Package assemble translates a raw "#wasm:" block's captured lines
// (spec §4.9 "Each line is an instruction in wasm text form with
// local-name references ($a). A minimal assembler translates these to
// binary opcodes; the validator catches stack-discipline errors") into
// WASM instruction bytes. It deliberately does no stack-depth or
// block-nesting validation of its own — per spec, that is the wasm
// validator's job post-emission (pkg/wasm/validate), not the
// assembler's; a mnemonic typo or a bad immediate is the only thing
// caught here.
//
// Grounded on go-corset's pkg/asm line-oriented mnemonic+operand
// parsing shape (pkg/asm/parser.go), retargeted from Corset's
// micro-instruction set to WAT mnemonics resolved through
// pkg/wasm/opcode's table.
package assemble

import (
	"math"
	"strconv"
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

// Locals resolves a "$name" local reference to its wasm local index.
type Locals interface {
	Index(name string) (uint32, bool)
}

// MapLocals is the common case: a plain name-to-index table.
type MapLocals map[string]uint32

func (m MapLocals) Index(name string) (uint32, bool) {
	idx, ok := m[name]
	return idx, ok
}

type asm struct {
	locals Locals
	diags  *diag.Set
	file   source.FileID
	out    []byte
}

// Assemble lowers lines to instruction bytes, in file order. Each
// blank line or ";;"-prefixed comment line is skipped; every other line
// is one instruction. Diagnostics for unrecognized mnemonics or
// malformed operands are appended to diags with CodeUnsupportedConstr,
// and assembly continues past the bad line so a #wasm: block reports
// every error it contains in one pass rather than just the first.
func Assemble(lines []ast.RawLine, locals Locals, diags *diag.Set, file source.FileID) []byte {
	a := &asm{locals: locals, diags: diags, file: file}

	for _, ln := range lines {
		a.line(ln)
	}

	return a.out
}

func (a *asm) line(ln ast.RawLine) {
	text := strings.TrimSpace(ln.Text)
	if text == "" || strings.HasPrefix(text, ";;") {
		return
	}

	if i := strings.Index(text, ";;"); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return
	}

	mnemonic, operands := fields[0], fields[1:]
	sp := source.Span{File: a.file, Start: ln.Indent, End: ln.Indent + len(ln.Text)}

	switch mnemonic {
	case "block", "loop", "if":
		a.structural(mnemonic, operands, sp)
		return
	case "else":
		a.out = append(a.out, byte(opcode.OpElse))
		return
	case "end":
		a.out = append(a.out, byte(opcode.OpEnd))
		return
	}

	info, ok := opcode.Lookup(mnemonic)
	if !ok {
		a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "unrecognized raw wasm instruction %q", mnemonic))
		return
	}

	a.out = append(a.out, byte(info.Op))

	switch info.Imm {
	case opcode.ImmNone:
		// nothing further

	case opcode.ImmU32:
		idx, ok := a.operandIndex(operands, sp)
		if !ok {
			return
		}

		a.u32(idx)

	case opcode.ImmI32:
		v, ok := a.operandInt(operands, sp)
		if !ok {
			return
		}

		a.s32(int32(v))

	case opcode.ImmF32:
		v, ok := a.operandFloat(operands, sp)
		if !ok {
			return
		}

		a.f32(float32(v))

	case opcode.ImmMemarg:
		align, offset := a.memarg(info.Op, operands)
		a.u32(align)
		a.u32(offset)
	}
}

// structural emits block/loop/if with an optional result-type operand
// ("i32", "f32", or none for an empty block type).
func (a *asm) structural(mnemonic string, operands []string, sp source.Span) {
	switch mnemonic {
	case "block":
		a.out = append(a.out, byte(opcode.OpBlock))
	case "loop":
		a.out = append(a.out, byte(opcode.OpLoop))
	case "if":
		a.out = append(a.out, byte(opcode.OpIf))
	}

	if len(operands) == 0 {
		a.out = append(a.out, opcode.BlockTypeEmpty)
		return
	}

	switch operands[0] {
	case "i32":
		a.out = append(a.out, byte(opcode.ValI32))
	case "f32":
		a.out = append(a.out, byte(opcode.ValF32))
	default:
		a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "unrecognized block result type %q", operands[0]))
		a.out = append(a.out, opcode.BlockTypeEmpty)
	}
}

// operandIndex resolves a local.get/set/tee, global.get/set, call, br,
// or br_if operand: either "$name" through locals, or a bare integer
// (a direct function/label/global index).
func (a *asm) operandIndex(operands []string, sp source.Span) (uint32, bool) {
	if len(operands) != 1 {
		a.diags.Add(diag.New(diag.CodeUnsupportedConstr, sp, "expected exactly one operand"))
		return 0, false
	}

	operand := operands[0]

	if strings.HasPrefix(operand, "$") {
		idx, ok := a.locals.Index(operand[1:])
		if !ok {
			a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "unknown local %q", operand))
			return 0, false
		}

		return idx, true
	}

	n, err := strconv.ParseUint(operand, 10, 32)
	if err != nil {
		a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "expected an index or $local, got %q", operand))
		return 0, false
	}

	return uint32(n), true
}

func (a *asm) operandInt(operands []string, sp source.Span) (int64, bool) {
	if len(operands) != 1 {
		a.diags.Add(diag.New(diag.CodeUnsupportedConstr, sp, "expected exactly one integer operand"))
		return 0, false
	}

	n, err := strconv.ParseInt(operands[0], 10, 32)
	if err != nil {
		a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "expected an integer literal, got %q", operands[0]))
		return 0, false
	}

	return n, true
}

func (a *asm) operandFloat(operands []string, sp source.Span) (float64, bool) {
	if len(operands) != 1 {
		a.diags.Add(diag.New(diag.CodeUnsupportedConstr, sp, "expected exactly one float operand"))
		return 0, false
	}

	v, err := strconv.ParseFloat(operands[0], 32)
	if err != nil {
		a.diags.Add(diag.Newf(diag.CodeUnsupportedConstr, sp, "expected a float literal, got %q", operands[0]))
		return 0, false
	}

	return v, true
}

// memarg parses optional "align=N" "offset=N" tokens, defaulting align
// to the instruction's natural alignment and offset to zero when
// omitted (the common case for raw lines touching freshly laid-out
// struct/tuple fields).
func (a *asm) memarg(op opcode.Op, operands []string) (align, offset uint32) {
	align = opcode.MemargNaturalAlign(op)

	for _, operand := range operands {
		if v, ok := strings.CutPrefix(operand, "align="); ok {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				align = uint32(n)
			}
		} else if v, ok := strings.CutPrefix(operand, "offset="); ok {
			if n, err := strconv.ParseUint(v, 10, 32); err == nil {
				offset = uint32(n)
			}
		}
	}

	return align, offset
}

func (a *asm) u32(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7

		if v != 0 {
			b |= 0x80
		}

		a.out = append(a.out, b)

		if v == 0 {
			return
		}
	}
}

func (a *asm) s32(v int32) {
	more := true

	for more {
		b := byte(v & 0x7f)
		v >>= 7

		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			more = false
		} else {
			b |= 0x80
		}

		a.out = append(a.out, b)
	}
}

func (a *asm) f32(v float32) {
	bits := math.Float32bits(v)
	a.out = append(a.out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
}
