package mono

import (
	"strings"
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/typecheck"
	"github.com/neplg/neplg2/pkg/types"
)

func checkSource(t *testing.T, files map[string]string, entry, entryFn string) *hir.Module {
	t.Helper()

	ld := loader.New(func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}, "std", nil)

	res, _, diags := ld.Load(entry)
	if diags.HasErrors() {
		t.Fatalf("unexpected loader errors: %v", diags.Items())
	}

	r := resolver.New(diags)
	mods := r.Resolve(res)

	mod := typecheck.Check(diags, mods, res.EntryPath, entryFn, "wasm", "release")
	if diags.HasErrors() {
		t.Fatalf("unexpected typecheck errors: %v", diags.Items())
	}

	return mod
}

func findFunc(mod *hir.Module, substr string) *hir.Func {
	for _, fn := range mod.Funcs {
		if strings.Contains(fn.Name, substr) {
			return fn
		}
	}

	return nil
}

func TestSpecialize_GenericCalledAtTwoTypesEmitsTwoSpecializations(t *testing.T) {
	mod := checkSource(t, map[string]string{
		"main.nepl": "fn id <.T> <(.T)->.T> (x): x\n" +
			"fn main <()->i32> (): let a id 1; let b id true; a\n",
	}, "main.nepl", "main")

	Specialize(mod)

	count := 0
	for _, fn := range mod.Funcs {
		if strings.Contains(fn.Name, "__id") {
			count++
		}
	}

	if count != 2 {
		t.Fatalf("expected 2 specializations of id, got %d: %v", count, namesOf(mod.Funcs))
	}

	for _, fn := range mod.Funcs {
		if fn.TypeParams != nil && len(fn.TypeParams) != 0 {
			t.Fatalf("specialized function %q still has TypeParams", fn.Name)
		}

		if fn.Body != nil {
			assertNoVar(t, mod.Types, fn.Body)
		}
	}
}

func TestSpecialize_NonGenericFunctionKeepsItsName(t *testing.T) {
	mod := checkSource(t, map[string]string{
		"main.nepl": "fn square <(i32)->i32> (x): mul x x\n" +
			"fn main <()->i32> (): square 3\n",
	}, "main.nepl", "main")

	before := findFunc(mod, "square")
	if before == nil {
		t.Fatalf("expected a func named ...square before specialization, got %v", namesOf(mod.Funcs))
	}
	wantName := before.Name

	Specialize(mod)

	after := findFunc(mod, "square")
	if after == nil || after.Name != wantName {
		t.Fatalf("expected square to keep name %q, got %v", wantName, namesOf(mod.Funcs))
	}
}

func TestSpecialize_EntryIsReachable(t *testing.T) {
	mod := checkSource(t, map[string]string{
		"main.nepl": "fn main <()->i32> (): 1\n",
	}, "main.nepl", "main")

	entryBefore := mod.Entry

	Specialize(mod)

	found := false
	for _, fn := range mod.Funcs {
		if fn.Name == entryBefore {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected entry %q to survive specialization, got %v", entryBefore, namesOf(mod.Funcs))
	}
}

func namesOf(fns []*hir.Func) []string {
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = fn.Name
	}

	return names
}

func assertNoVar(t *testing.T, arena *types.Arena, n hir.Node) {
	t.Helper()

	if arena.IsVar(n.Type()) {
		t.Fatalf("specialized body still references a type variable at %v", n.Span())
	}

	switch v := n.(type) {
	case *hir.IfExpr:
		assertNoVar(t, arena, v.Cond)
		assertNoVar(t, arena, v.Then)
		if v.Else != nil {
			assertNoVar(t, arena, v.Else)
		}
	case *hir.BlockExpr:
		for _, st := range v.Stmts {
			assertNoVar(t, arena, st)
		}
		if v.Value != nil {
			assertNoVar(t, arena, v.Value)
		}
	case *hir.CallExpr:
		for _, a := range v.Args {
			assertNoVar(t, arena, a)
		}
	}
}
