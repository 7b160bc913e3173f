// Package wasm lowers a fully monomorphized hir.Module to a binary WASM
// module (spec §4.9). It consumes pkg/wasm/opcode's instruction table,
// pkg/wasm/module's section builder, pkg/wasm/assemble for raw #wasm:
// bodies, and pkg/wasm/validate for the post-emission validator pass.
//
// Every HIR type that carries a runtime value is represented by exactly
// one wasm value: F32 values are wasm f32, everything else (I32, U8,
// Bool, Str, Reference, and every struct/tuple/enum, spec §4.9 "laid out
// in linear memory and passed as a single pointer") is wasm i32. Unit
// and Never carry no runtime value at all — an expression of either type
// pushes nothing. Every stored field, in a struct, tuple, or enum
// payload, therefore occupies exactly 4 bytes, so a construction's byte
// layout is just its field count times 4; this sidesteps needing a
// struct/enum field-type registry at codegen time (spec §3's type arena
// does not carry one; see DESIGN.md).
package wasm

import (
	"context"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
	"github.com/neplg/neplg2/pkg/wasm/module"
	"github.com/neplg/neplg2/pkg/wasm/opcode"
	"github.com/neplg/neplg2/pkg/wasm/validate"
)

const wasmPageSize = 65536

// Compile lowers mod to a binary WASM module and returns the encoded
// bytes. Errors are reported to diags; a best-effort module is still
// encoded and validated so a single bad function does not suppress
// diagnostics from the rest of the module (spec §7's "report every
// diagnostic a single compile call can gather").
func Compile(mod *hir.Module, diags *diag.Set) []byte {
	g := &Gen{
		mod:     mod,
		arena:   mod.Types,
		diags:   diags,
		m:       &module.Module{},
		funcIdx: map[string]uint32{},
		sizeOf:  map[types.ID]int32{},
	}

	g.collectSizes()
	g.buildStringPool()
	g.addImport("env", "alloc", []opcode.ValType{opcode.ValI32}, []opcode.ValType{opcode.ValI32})
	g.addImport("env", "dealloc", []opcode.ValType{opcode.ValI32, opcode.ValI32}, nil)
	g.addImport("env", "realloc", []opcode.ValType{opcode.ValI32, opcode.ValI32, opcode.ValI32}, []opcode.ValType{opcode.ValI32})

	for _, ext := range mod.Externs {
		g.addExtern(ext)
	}

	funcSpans := map[int]funcSpan{}

	base := uint32(len(g.m.Imports))
	for i, fn := range mod.Funcs {
		g.funcIdx[fn.Name] = base + uint32(i)
	}

	for _, fn := range mod.Funcs {
		idx := g.funcIdx[fn.Name]
		funcSpans[int(idx)] = funcSpan{name: fn.Name, sp: fn.Sp}
		g.compileFunc(fn)
	}

	pages := uint32(len(g.m.Data)/wasmPageSize) + 1
	g.m.Memories = append(g.m.Memories, module.Limits{Min: pages})

	g.m.Globals = append(g.m.Globals, module.Global{
		Type: opcode.ValI32,
		Init: module.ConstExpr(int32(g.dataEnd())),
	})
	g.m.Exports = append(g.m.Exports, module.Export{Name: "__data_end", Kind: opcode.KindGlobal, Idx: 0})

	if idx, ok := g.funcIdx[mod.Entry]; ok {
		g.m.Exports = append(g.m.Exports, module.Export{Name: mod.Entry, Kind: opcode.KindFunc, Idx: idx})
	}

	g.m.Exports = append(g.m.Exports, module.Export{Name: "memory", Kind: opcode.KindMemory, Idx: 0})

	out := g.m.Encode()

	spans := func(funcIdx int) (string, source.Span, bool) {
		s, ok := funcSpans[funcIdx]
		return s.name, s.sp, ok
	}

	fallback := source.Span{}
	if len(mod.Funcs) > 0 {
		fallback = mod.Funcs[0].Sp
	}

	validate.Validate(context.Background(), out, spans, fallback, diags)

	return out
}

type funcSpan struct {
	name string
	sp   source.Span
}

// Gen holds the whole-module codegen state.
type Gen struct {
	mod   *hir.Module
	arena *types.Arena
	diags *diag.Set
	m     *module.Module

	funcIdx map[string]uint32 // hir.Func.Name / extern Local -> wasm func index
	sizeOf  map[types.ID]int32 // Named/Application/Tuple type -> byte size of its heap block

	strOffset []int32 // mod.Strings index -> byte offset into the string data segment
	stringsLen int32
}

func (g *Gen) dataEnd() int32 { return g.stringsLen }

// addImport registers one function import and returns its func index.
func (g *Gen) addImport(mod, name string, params, results []opcode.ValType) uint32 {
	typeIdx := uint32(len(g.m.Types))
	g.m.Types = append(g.m.Types, module.FuncType{Params: params, Results: results})

	idx := uint32(len(g.m.Imports))
	g.m.Imports = append(g.m.Imports, module.Import{
		Module: mod,
		Name:   name,
		Desc:   module.ImportDesc{Kind: opcode.KindFunc, TypeIdx: typeIdx},
	})
	g.funcIdx[name] = idx

	return idx
}

func (g *Gen) addExtern(ext *hir.Extern) {
	params, result := g.signature(ext.Sig)

	idx := g.addImport(ext.Module, ext.Name, params, result)
	g.funcIdx[ext.Local] = idx
}

// signature splits a types.Function id into wasm parameter/result value
// types, dropping any Unit/Never component (spec §4.9's void-typed
// values carry no wasm value at all).
func (g *Gen) signature(id types.ID) (params, results []opcode.ValType) {
	fn, ok := g.arena.Kind(id).(types.Function)
	if !ok {
		return nil, nil
	}

	for _, p := range fn.Params {
		if vt, ok := g.valType(p); ok {
			params = append(params, vt)
		}
	}

	if vt, ok := g.valType(fn.Result); ok {
		results = []opcode.ValType{vt}
	}

	return params, results
}

// valType reports the wasm value type a HIR type id is represented by,
// and whether it carries a runtime value at all (false for Unit/Never).
func (g *Gen) valType(id types.ID) (opcode.ValType, bool) {
	if p, ok := g.arena.Kind(id).(types.Primitive); ok {
		switch p {
		case types.Unit, types.Never:
			return 0, false
		case types.F32:
			return opcode.ValF32, true
		default: // I32, U8, Bool, Str
			return opcode.ValI32, true
		}
	}

	// Reference, Tuple, Named, Application, Boxed: all pointer- or
	// scalar-by-value i32 in this representation.
	return opcode.ValI32, true
}

// buildStringPool lays out mod.Strings as one data segment, each entry a
// 4-byte little-endian length followed by its UTF-8 bytes (spec §4.9
// "string-literal pool"), and records each literal's byte offset for
// LitExpr/Kind==LitStr to compile to a constant pointer.
func (g *Gen) buildStringPool() {
	var buf []byte

	g.strOffset = make([]int32, len(g.mod.Strings))

	for i, s := range g.mod.Strings {
		g.strOffset[i] = int32(len(buf))

		n := uint32(len(s))
		buf = append(buf, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
		buf = append(buf, s...)
	}

	g.stringsLen = int32(len(buf))

	if len(buf) > 0 {
		g.m.Data = append(g.m.Data, module.DataSegment{Offset: module.ConstExpr(0), Init: buf})
	}
}

// collectSizes walks every function body to compute each constructed
// struct/tuple/enum type's heap block size, so pkg/drop-inserted
// DropExpr nodes (which only carry a binding name, not a construction
// site) can look up a consistent dealloc size by static type. An enum's
// block size is the max over every variant ever constructed for it, so
// a single dealloc size is correct regardless of which variant a given
// value actually holds at runtime.
func (g *Gen) collectSizes() {
	for _, fn := range g.mod.Funcs {
		g.collectSizesIn(fn.Body)
	}
}

func (g *Gen) collectSizesIn(n hir.Node) {
	switch v := n.(type) {
	case nil:
		return

	case *hir.StructConstructExpr:
		g.growSize(v.Type(), int32(len(v.Fields))*4)
		for _, f := range v.Fields {
			g.collectSizesIn(f)
		}

	case *hir.TupleConstructExpr:
		g.growSize(v.Type(), int32(len(v.Elements))*4)
		for _, e := range v.Elements {
			g.collectSizesIn(e)
		}

	case *hir.EnumConstructExpr:
		g.growSize(v.Type(), 4+int32(len(v.Payload))*4)
		for _, p := range v.Payload {
			g.collectSizesIn(p)
		}

	case *hir.IfExpr:
		g.collectSizesIn(v.Cond)
		g.collectSizesIn(v.Then)
		g.collectSizesIn(v.Else)

	case *hir.WhileExpr:
		g.collectSizesIn(v.Cond)
		g.collectSizesIn(v.Body)

	case *hir.BlockExpr:
		for _, s := range v.Stmts {
			g.collectSizesIn(s)
		}

		g.collectSizesIn(v.Value)

		for _, d := range v.Drops {
			g.collectSizesIn(d)
		}

	case *hir.MatchExpr:
		g.collectSizesIn(v.Scrutinee)
		for _, a := range v.Arms {
			g.collectSizesIn(a.Body)
		}

	case *hir.LetExpr:
		g.collectSizesIn(v.Value)

	case *hir.SetExpr:
		g.collectSizesIn(v.Value)

	case *hir.DerefExpr:
		g.collectSizesIn(v.Ref)

	case *hir.CallExpr:
		for _, a := range v.Args {
			g.collectSizesIn(a)
		}
	}
}

func (g *Gen) growSize(id types.ID, size int32) {
	if cur, ok := g.sizeOf[id]; !ok || size > cur {
		g.sizeOf[id] = size
	}
}

// fnv1a32 assigns each enum variant's runtime tag: a stable hash of its
// bare name, rather than a densely assigned integer, since HIR's
// EnumConstructExpr/MatchArm carry the variant name as a plain string
// with no central dense-tag registry to consult (see DESIGN.md).
func fnv1a32(s string) int32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}

	return int32(h)
}
