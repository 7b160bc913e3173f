package wasm

import (
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

func newGen() (*Gen, *types.Arena) {
	arena := types.NewArena()
	return &Gen{
		mod:     &hir.Module{Types: arena},
		arena:   arena,
		diags:   &diag.Set{},
		funcIdx: map[string]uint32{},
		sizeOf:  map[types.ID]int32{},
	}, arena
}

func TestFnv1a32Deterministic(t *testing.T) {
	if fnv1a32("Some") != fnv1a32("Some") {
		t.Fatalf("hash of the same variant name must be stable across calls")
	}

	if fnv1a32("Some") == fnv1a32("None") {
		t.Fatalf("distinct variant names collided: %d", fnv1a32("Some"))
	}
}

func TestValTypeDropsUnitAndNever(t *testing.T) {
	g, arena := newGen()

	if _, ok := g.valType(arena.Primitive(types.Unit)); ok {
		t.Fatalf("Unit must carry no wasm value")
	}

	if _, ok := g.valType(arena.Primitive(types.Never)); ok {
		t.Fatalf("Never must carry no wasm value")
	}

	if vt, ok := g.valType(arena.Primitive(types.F32)); !ok || vt != opcode.ValF32 {
		t.Fatalf("F32 must lower to wasm f32, got %v, ok=%v", vt, ok)
	}

	for _, p := range []types.Primitive{types.I32, types.U8, types.Bool, types.Str} {
		if vt, ok := g.valType(arena.Primitive(p)); !ok || vt != opcode.ValI32 {
			t.Fatalf("%s must lower to wasm i32, got %v, ok=%v", p, vt, ok)
		}
	}
}

func TestValTypeStructuralTypesAreI32Pointers(t *testing.T) {
	g, arena := newGen()

	tup := arena.Intern(types.Tuple{Elements: []types.ID{arena.Primitive(types.I32), arena.Primitive(types.I32)}})
	if vt, ok := g.valType(tup); !ok || vt != opcode.ValI32 {
		t.Fatalf("tuple must lower to a single i32 pointer, got %v, ok=%v", vt, ok)
	}

	ref := arena.Intern(types.Reference{Inner: arena.Primitive(types.I32)})
	if vt, ok := g.valType(ref); !ok || vt != opcode.ValI32 {
		t.Fatalf("reference must lower to a single i32 pointer, got %v, ok=%v", vt, ok)
	}
}

func TestSignatureDropsVoidParamsAndResult(t *testing.T) {
	g, arena := newGen()

	fnTy := arena.Intern(types.Function{
		Params: []types.ID{arena.Primitive(types.I32), arena.Primitive(types.Unit), arena.Primitive(types.Bool)},
		Result: arena.Primitive(types.Unit),
	})

	params, results := g.signature(fnTy)
	if len(params) != 2 || params[0] != opcode.ValI32 || params[1] != opcode.ValI32 {
		t.Fatalf("expected the Unit parameter dropped, leaving two i32 params, got %v", params)
	}

	if len(results) != 0 {
		t.Fatalf("a Unit result must produce no wasm result, got %v", results)
	}
}

func TestBuildStringPoolLayout(t *testing.T) {
	g, _ := newGen()
	g.mod.Strings = []string{"hi", ""}

	g.buildStringPool()

	if len(g.strOffset) != 2 || g.strOffset[0] != 0 {
		t.Fatalf("expected first literal at offset 0, got %v", g.strOffset)
	}

	// "hi": 4-byte length prefix (2) + 2 bytes of payload = 6 bytes.
	if g.strOffset[1] != 6 {
		t.Fatalf("expected second literal at offset 6, got %d", g.strOffset[1])
	}

	if g.stringsLen != 10 {
		t.Fatalf("expected pool length 10 (6 + 4-byte empty-string header), got %d", g.stringsLen)
	}

	if len(g.m.Data) != 1 {
		t.Fatalf("expected exactly one data segment, got %d", len(g.m.Data))
	}
}

func TestBuildStringPoolEmpty(t *testing.T) {
	g, _ := newGen()

	g.buildStringPool()

	if len(g.m.Data) != 0 {
		t.Fatalf("an empty string pool must not emit a data segment, got %d", len(g.m.Data))
	}
}

func TestCollectSizesEnumTakesMaxOverVariants(t *testing.T) {
	g, arena := newGen()

	enumTy := arena.Intern(types.Named{Symbol: "Option"})

	g.collectSizesIn(&hir.EnumConstructExpr{
		Base:    hir.Base{Ty: enumTy},
		Variant: "None",
	})
	g.collectSizesIn(&hir.EnumConstructExpr{
		Base:    hir.Base{Ty: enumTy},
		Variant: "Some",
		Payload: []hir.Node{&hir.LitExpr{Base: hir.Base{Ty: arena.Primitive(types.I32)}, Kind: hir.LitI32, IntVal: 1}},
	})

	if got := g.sizeOf[enumTy]; got != 8 {
		t.Fatalf("expected the enum's block size to be the max variant size (4-byte tag + 1 payload word = 8), got %d", got)
	}
}

func TestGrowSizeKeepsLargest(t *testing.T) {
	g, arena := newGen()
	ty := arena.Primitive(types.I32)

	g.growSize(ty, 4)
	g.growSize(ty, 12)
	g.growSize(ty, 8)

	if g.sizeOf[ty] != 12 {
		t.Fatalf("growSize must keep the largest size seen, got %d", g.sizeOf[ty])
	}
}
