package types

import "testing"

func TestArena_PrimitivesPreinterned(t *testing.T) {
	a := NewArena()

	i32a := a.Primitive(I32)
	i32b := a.Primitive(I32)

	if i32a != i32b {
		t.Fatalf("expected repeated I32 interning to return the same ID, got %v and %v", i32a, i32b)
	}

	if a.String(i32a) != "i32" {
		t.Fatalf("expected %q, got %q", "i32", a.String(i32a))
	}
}

func TestArena_StructuralInterning(t *testing.T) {
	a := NewArena()

	i32 := a.Primitive(I32)

	t1 := a.Intern(Tuple{Elements: []ID{i32, i32}})
	t2 := a.Intern(Tuple{Elements: []ID{i32, i32}})

	if t1 != t2 {
		t.Fatalf("expected two structurally equal tuples to collapse to one ID, got %v and %v", t1, t2)
	}

	t3 := a.Intern(Tuple{Elements: []ID{i32, a.Primitive(F32)}})
	if t3 == t1 {
		t.Fatalf("expected a differently-typed tuple to get a distinct ID")
	}
}

func TestArena_FreshVarsAreDistinct(t *testing.T) {
	a := NewArena()

	v1 := a.Fresh()
	v2 := a.Fresh()

	if v1 == v2 {
		t.Fatalf("expected two Fresh() calls to yield distinct IDs, got %v both", v1)
	}

	if !a.IsVar(v1) || !a.IsVar(v2) {
		t.Fatalf("expected fresh IDs to report IsVar")
	}
}

func TestArena_CopyClassification(t *testing.T) {
	a := NewArena()

	if !a.Copy(a.Primitive(I32)) {
		t.Fatalf("i32 must be Copy")
	}

	if a.Copy(a.Primitive(Str)) {
		t.Fatalf("str is heap-allocated and owned, not Copy")
	}

	ref := a.Intern(Reference{Inner: a.Primitive(Str), Mut: false})
	if !a.Copy(ref) {
		t.Fatalf("a reference itself must be Copy even when its referent is not")
	}

	named := a.Intern(Named{Symbol: "Point"})
	if a.Copy(named) {
		t.Fatalf("a user-defined struct type must not be Copy")
	}

	tup := a.Intern(Tuple{Elements: []ID{a.Primitive(I32), named}})
	if a.Copy(tup) {
		t.Fatalf("a tuple containing a non-Copy element must not be Copy")
	}
}

func TestEffect_Join(t *testing.T) {
	if Pure.Join(Pure) != Pure {
		t.Fatalf("pure join pure must stay pure")
	}

	if Pure.Join(Impure) != Impure {
		t.Fatalf("pure join impure must become impure")
	}
}

func TestFunction_ShapeIncludesEffect(t *testing.T) {
	a := NewArena()
	i32 := a.Primitive(I32)

	pureFn := a.Intern(Function{Params: []ID{i32}, Result: i32, Effect: Pure})
	impureFn := a.Intern(Function{Params: []ID{i32}, Result: i32, Effect: Impure})

	if pureFn == impureFn {
		t.Fatalf("a pure and an impure function with identical signatures must not collapse to one ID")
	}
}
