package move

import (
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/typecheck"
)

func checkSource(t *testing.T, files map[string]string, entry, entryFn string) (*hir.Module, *diag.Set) {
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

	return mod, diags
}

func hasCode(diags *diag.Set, code diag.Code) bool {
	for _, d := range diags.Items() {
		if d.Code == code {
			return true
		}
	}

	return false
}

func TestCheck_SecondUseOfMovedStructIsDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let p Point 1 2; let q p; let r p; 0\n",
	}

	mod, _ := checkSource(t, files, "main.nepl", "main")

	diags := &diag.Set{}
	Check(diags, mod)

	if !hasCode(diags, diag.CodeUseOfMoved) {
		t.Fatalf("expected a use-of-moved diagnostic, got %v", diags.Items())
	}

	var found *diag.Diagnostic
	for _, d := range diags.Items() {
		if d.Code == diag.CodeUseOfMoved {
			dd := d
			found = &dd
		}
	}

	if found == nil || len(found.Secondary) == 0 {
		t.Fatalf("expected the use-of-moved diagnostic to carry a move-site secondary label, got %+v", found)
	}
}

func TestCheck_ReassigningMutableBindingResurrectsIt(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let mut p Point 1 2; let q p; set p Point 3 4; let s p; 0\n",
	}

	mod, _ := checkSource(t, files, "main.nepl", "main")

	diags := &diag.Set{}
	Check(diags, mod)

	if hasCode(diags, diag.CodeUseOfMoved) {
		t.Fatalf("expected set to resurrect the moved binding, got %v", diags.Items())
	}
}

func TestCheck_CopyTypeNeverMoves(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): let x 1; let y x; add x y\n",
	}

	mod, _ := checkSource(t, files, "main.nepl", "main")

	diags := &diag.Set{}
	Check(diags, mod)

	if hasCode(diags, diag.CodeUseOfMoved) {
		t.Fatalf("expected a Copy-typed (i32) binding to be usable any number of times, got %v", diags.Items())
	}
}

func TestCheck_MoveOnOneIfBranchIsMovedAfterJoin(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let p Point 1 2; if true let q p else let z 0; let r p; 0\n",
	}

	mod, _ := checkSource(t, files, "main.nepl", "main")

	diags := &diag.Set{}
	Check(diags, mod)

	if !hasCode(diags, diag.CodeUseOfMoved) {
		t.Fatalf("expected the conservative if-join to treat p as moved, got %v", diags.Items())
	}
}

func TestCheck_DerefOfOwnedReferenceIsMoveBehindRef(t *testing.T) {
	files := map[string]string{
		"main.nepl": "struct Point:\n    x i32\n    y i32\n" +
			"fn main <()->i32> (): let p Point 1 2; let r & p; let q *r; 0\n",
	}

	mod, _ := checkSource(t, files, "main.nepl", "main")

	diags := &diag.Set{}
	Check(diags, mod)

	if !hasCode(diags, diag.CodeMoveBehindRef) {
		t.Fatalf("expected a move-behind-reference diagnostic, got %v", diags.Items())
	}
}
