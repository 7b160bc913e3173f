package hir

import (
	"testing"

	"github.com/neplg/neplg2/pkg/types"
)

func TestModule_InternStringDedups(t *testing.T) {
	m := &Module{}

	i1 := m.InternString("hello")
	i2 := m.InternString("world")
	i3 := m.InternString("hello")

	if i1 != i3 {
		t.Fatalf("expected repeated string to reuse index %d, got %d", i1, i3)
	}

	if i1 == i2 {
		t.Fatalf("expected distinct strings to get distinct indices")
	}

	if len(m.Strings) != 2 {
		t.Fatalf("expected 2 pooled strings, got %d", len(m.Strings))
	}
}

func TestNode_TypeAndSpanPromoted(t *testing.T) {
	a := types.NewArena()
	i32 := a.Primitive(types.I32)

	var n Node = &LitExpr{Base: Base{Ty: i32}, Kind: LitI32, IntVal: 1}

	if n.Type() != i32 {
		t.Fatalf("expected LitExpr.Type() to return the embedded Base.Ty")
	}

	call := &CallExpr{Base: Base{Ty: i32}, Kind: CallDirect, Callee: "id_i32", TypeArgs: []types.ID{i32}}
	if len(call.TypeArgs) != 1 || call.TypeArgs[0] != i32 {
		t.Fatalf("expected TypeArgs to carry the resolved generic instantiation")
	}
}
