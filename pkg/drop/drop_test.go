package drop

import (
	"testing"

	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/typecheck"
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

func dropNames(drops []hir.Node) []string {
	names := make([]string, len(drops))
	for i, d := range drops {
		names[i] = d.(*hir.DropExpr).Name
	}

	return names
}

func mainBody(t *testing.T, mod *hir.Module) *hir.BlockExpr {
	t.Helper()

	for _, fn := range mod.Funcs {
		if fn.Name == mod.Entry {
			b, ok := fn.Body.(*hir.BlockExpr)
			if !ok {
				t.Fatalf("expected entry function body to be a block, got %T", fn.Body)
			}

			return b
		}
	}

	t.Fatalf("entry function %q not found", mod.Entry)

	return nil
}

// TestInsert_DropOrderIsReverseOfDeclaration grounds spec §8 scenario
// 5: "let a …; let b …; let c …" ends with Drop(c), Drop(b), Drop(a).
func TestInsert_DropOrderIsReverseOfDeclaration(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let a Point 1 2; let b Point 3 4; let c Point 5 6; 0\n",
	}

	mod := checkSource(t, files, "main.nepl", "main")

	Insert(mod)

	b := mainBody(t, mod)

	got := dropNames(b.Drops)
	want := []string{"c", "b", "a"}

	if len(got) != len(want) {
		t.Fatalf("expected drops %v, got %v", want, got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected drops %v, got %v", want, got)
		}
	}
}

// TestInsert_MovedBindingIsNotDropped grounds spec §9's "Move+Drop
// together" note: a binding moved into another name within the same
// scope must not be dropped at its own origin.
func TestInsert_MovedBindingIsNotDropped(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let p Point 1 2; let q p; 0\n",
	}

	mod := checkSource(t, files, "main.nepl", "main")

	Insert(mod)

	b := mainBody(t, mod)
	got := dropNames(b.Drops)

	if len(got) != 1 || got[0] != "q" {
		t.Fatalf("expected only q to be dropped (p was moved), got %v", got)
	}
}

// TestInsert_IfBranchMoveIsConservativelyJoined checks that a binding
// moved on only one arm of an if is still treated as moved by the
// enclosing scope's drop decision, mirroring pkg/move's conservative
// join so the two passes never disagree about liveness.
func TestInsert_IfBranchMoveIsConservativelyJoined(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let p Point 1 2; if true let q p else let z 0; 0\n",
	}

	mod := checkSource(t, files, "main.nepl", "main")

	Insert(mod)

	b := mainBody(t, mod)
	got := dropNames(b.Drops)

	if len(got) != 0 {
		t.Fatalf("expected p's drop to be suppressed by the conservative join, got %v", got)
	}

	ifExpr, ok := b.Stmts[0].(*hir.IfExpr)
	if !ok {
		t.Fatalf("expected first statement to be the if, got %T", b.Stmts[0])
	}

	thenBlock, ok := ifExpr.Then.(*hir.BlockExpr)
	if !ok {
		t.Fatalf("expected the then-branch to be wrapped in a synthetic block, got %T", ifExpr.Then)
	}

	thenDrops := dropNames(thenBlock.Drops)
	if len(thenDrops) != 1 || thenDrops[0] != "q" {
		t.Fatalf("expected the then-branch to drop q, got %v", thenDrops)
	}
}

// TestInsert_MatchArmBindingIsDropped grounds spec §4.8's "match arm
// bodies are treated as scopes that drop the arm's payload binding (if
// any) on exit, wrapping non-block bodies in a synthetic block".
func TestInsert_MatchArmBindingIsDropped(t *testing.T) {
	files := map[string]string{
		"main.nepl": "enum Option<.T>:\n    None\n    Some .T\n" +
			"fn main <()->i32> (): match Some 1: Some v: v; None: 0\n",
	}

	mod := checkSource(t, files, "main.nepl", "main")

	Insert(mod)

	b := mainBody(t, mod)

	match, ok := b.Value.(*hir.MatchExpr)
	if !ok {
		t.Fatalf("expected tail to be the match, got %T", b.Value)
	}

	var someArm *hir.MatchArm
	for i := range match.Arms {
		if match.Arms[i].Binding == "v" {
			someArm = &match.Arms[i]
		}
	}

	if someArm == nil {
		t.Fatalf("expected an arm binding v, got %+v", match.Arms)
	}

	wrapped, ok := someArm.Body.(*hir.BlockExpr)
	if !ok {
		t.Fatalf("expected the arm body to be wrapped in a synthetic block, got %T", someArm.Body)
	}

	names := dropNames(wrapped.Drops)
	if len(names) != 1 || names[0] != "v" {
		t.Fatalf("expected the arm to drop its payload binding v, got %v", names)
	}
}

