// Package module builds a WASM binary module section by section and
// encodes it to a byte slice (spec §4.9's function/memory/data/export
// layout). It is a trimmed descendant of wippyai-wasm-runtime's
// wasm.Module/Encode: that package's Module also carries GC proposal
// types (struct/array type defs, recursive type groups, exception tags)
// this compiler never produces, so only the sections NEPL codegen
// actually fills — type, import, function, memory, global, export,
// code, data — survive here.
package module

import (
	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

const (
	magic   uint32 = 0x6D736100
	version uint32 = 0x01
)

// FuncType is one entry in the type section.
type FuncType struct {
	Params  []opcode.ValType
	Results []opcode.ValType
}

// ImportDesc describes one imported item. Only function and memory
// imports are ever produced (spec §4.9: alloc/dealloc/realloc are the
// only mandatory imports; NEPL has no notion of an imported table,
// global, or tag).
type ImportDesc struct {
	Kind    byte // opcode.KindFunc or opcode.KindMemory
	TypeIdx uint32
	Memory  Limits
}

// Import is one imported function or memory.
type Import struct {
	Module string
	Name   string
	Desc   ImportDesc
}

// Limits is a memory's size range, in WASM pages.
type Limits struct {
	Min uint32
	Max uint32
	HasMax bool
}

// Global is one module-level global. pkg/wasm emits a single one: the
// immutable __data_end, marking the end of the string pool.
type Global struct {
	Type    opcode.ValType
	Mutable bool
	Init    []byte // a single const+end expression
}

// Export is one exported function, memory, or global.
type Export struct {
	Name string
	Kind byte // opcode.KindFunc, opcode.KindMemory, or opcode.KindGlobal
	Idx  uint32
}

// LocalEntry groups consecutive function locals sharing a type, the
// compact form the code section requires.
type LocalEntry struct {
	Count uint32
	Type  opcode.ValType
}

// FuncBody is one function's locals and instruction bytes, not including
// the leading body-size varuint (Encode computes that).
type FuncBody struct {
	Locals []LocalEntry
	Code   []byte // must end with opcode.OpEnd
}

// DataSegment is one active data segment (the string-literal pool is
// one segment at a fixed offset, spec §4.9 "string pool").
type DataSegment struct {
	MemIdx uint32
	Offset []byte // a single const+end expression
	Init   []byte
}

// Module is the in-memory module under construction; Build adds to it,
// Encode serializes it once complete.
type Module struct {
	Types    []FuncType
	Imports  []Import
	Funcs    []uint32 // type indices, one per non-imported function, in order
	Memories []Limits
	Globals  []Global
	Exports  []Export
	Code     []FuncBody // aligned with Funcs
	Data     []DataSegment
}

// Encode serializes m to a validator-ready WASM binary (spec invariant
// (v): "Wasm output, if produced, is accepted by a conformant
// validator").
func (m *Module) Encode() []byte {
	w := newWriter()
	w.u32le(magic)
	w.u32le(version)

	if len(m.Types) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Types)))

		for _, ft := range m.Types {
			sec.b(opcode.FuncTypeMarker)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}

		writeSection(w, opcode.SectionType, sec.bytes())
	}

	if len(m.Imports) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Imports)))

		for _, imp := range m.Imports {
			sec.name(imp.Module)
			sec.name(imp.Name)
			sec.b(imp.Desc.Kind)

			switch imp.Desc.Kind {
			case opcode.KindFunc:
				sec.u32(imp.Desc.TypeIdx)
			case opcode.KindMemory:
				writeLimits(sec, imp.Desc.Memory)
			}
		}

		writeSection(w, opcode.SectionImport, sec.bytes())
	}

	if len(m.Funcs) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Funcs)))

		for _, idx := range m.Funcs {
			sec.u32(idx)
		}

		writeSection(w, opcode.SectionFunc, sec.bytes())
	}

	if len(m.Memories) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Memories)))

		for _, lim := range m.Memories {
			writeLimits(sec, lim)
		}

		writeSection(w, opcode.SectionMemory, sec.bytes())
	}

	if len(m.Globals) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Globals)))

		for _, g := range m.Globals {
			sec.b(byte(g.Type))

			if g.Mutable {
				sec.b(1)
			} else {
				sec.b(0)
			}

			sec.raw(g.Init)
		}

		writeSection(w, opcode.SectionGlobal, sec.bytes())
	}

	if len(m.Exports) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Exports)))

		for _, e := range m.Exports {
			sec.name(e.Name)
			sec.b(e.Kind)
			sec.u32(e.Idx)
		}

		writeSection(w, opcode.SectionExport, sec.bytes())
	}

	if len(m.Code) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Code)))

		for _, body := range m.Code {
			fb := newWriter()
			fb.u32(uint32(len(body.Locals)))

			for _, le := range body.Locals {
				fb.u32(le.Count)
				fb.b(byte(le.Type))
			}

			fb.raw(body.Code)

			sec.u32(uint32(fb.len()))
			sec.raw(fb.bytes())
		}

		writeSection(w, opcode.SectionCode, sec.bytes())
	}

	if len(m.Data) > 0 {
		sec := newWriter()
		sec.u32(uint32(len(m.Data)))

		for _, d := range m.Data {
			sec.u32(d.MemIdx) // flags: always active, memory index 0
			sec.raw(d.Offset)
			sec.u32(uint32(len(d.Init)))
			sec.raw(d.Init)
		}

		writeSection(w, opcode.SectionData, sec.bytes())
	}

	return w.bytes()
}

func writeValTypes(w *writer, ts []opcode.ValType) {
	w.u32(uint32(len(ts)))

	for _, t := range ts {
		w.b(byte(t))
	}
}

func writeLimits(w *writer, lim Limits) {
	if lim.HasMax {
		w.b(opcode.LimitsHasMax)
		w.u32(lim.Min)
		w.u32(lim.Max)
	} else {
		w.b(opcode.LimitsNoMax)
		w.u32(lim.Min)
	}
}

func writeSection(w *writer, id byte, data []byte) {
	w.b(id)
	w.u32(uint32(len(data)))
	w.raw(data)
}

// ConstExpr builds a single i32.const <v> / end initializer expression,
// the only shape globals and data offsets need here
// (spec §4.9 never requires a global- or import-relative offset).
func ConstExpr(v int32) []byte {
	w := newWriter()
	w.b(byte(opcode.OpI32Const))
	w.s32(v)
	w.b(byte(opcode.OpEnd))

	return w.bytes()
}
