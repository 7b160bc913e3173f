package wasminsn

import (
	"testing"

	"github.com/neplg/neplg2/pkg/wasm/opcode"
)

func TestLookupKnownOperator(t *testing.T) {
	v, ok := Lookup("add")
	if !ok {
		t.Fatalf("expected \"add\" to be a known intrinsic")
	}

	if v.F32 != opcode.OpF32Add || v.U8 != opcode.OpI32Add || v.Signed != opcode.OpI32Add {
		t.Fatalf("unexpected variants for \"add\": %+v", v)
	}
}

func TestLookupUnsignedVsSignedDiffer(t *testing.T) {
	v, ok := Lookup("lt")
	if !ok {
		t.Fatalf("expected \"lt\" to be a known intrinsic")
	}

	if v.U8 == v.Signed {
		t.Fatalf("u8 and signed comparisons must use distinct opcodes, both got %v", v.U8)
	}
}

func TestLookupUnknownOperator(t *testing.T) {
	if _, ok := Lookup("frobnicate"); ok {
		t.Fatalf("expected an unknown operator to report ok=false")
	}
}
