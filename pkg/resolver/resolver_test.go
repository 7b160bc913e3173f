package resolver

import (
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/loader"
)

func load(t *testing.T, files map[string]string, entry string) (*loader.Result, *diag.Set) {
	t.Helper()

	ld := loader.New(func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}, "std", nil)

	res, _, diags := ld.Load(entry)
	if diags.HasErrors() {
		t.Fatalf("unexpected loader errors: %v", diags.Items())
	}

	return res, diags
}

func TestResolver_LocalPubExported(t *testing.T) {
	files := map[string]string{
		"main.nepl": "pub fn greet <()->i32> (): 1\nfn helper <()->i32> (): 2\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]
	if _, ok := m.Exports["greet"]; !ok {
		t.Fatalf("expected 'greet' in export set, got %+v", m.Exports)
	}

	if _, ok := m.Exports["helper"]; ok {
		t.Fatalf("private 'helper' must not be exported")
	}

	if _, ok := m.Visible["helper"]; !ok {
		t.Fatalf("private 'helper' must still be visible locally")
	}
}

func TestResolver_OpenImportBringsExports(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"lib.nepl\" as *\nfn main <()->i32> (): add\n",
		"lib.nepl":  "pub fn add <()->i32> (): 1\nfn secret <()->i32> (): 2\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]

	b, ok := m.Visible["add"]
	if !ok || b.Ambiguous {
		t.Fatalf("expected unambiguous visible binding for 'add', got %+v ok=%v", b, ok)
	}

	if b.SourceModule != "lib.nepl" {
		t.Fatalf("expected add to resolve back to lib.nepl, got %q", b.SourceModule)
	}

	if _, ok := m.Visible["secret"]; ok {
		t.Fatalf("private 'secret' must not leak through an open import")
	}
}

func TestResolver_AmbiguousOpenImports(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"a.nepl\" as *\n#import \"b.nepl\" as *\nfn main <()->i32> (): f\n",
		"a.nepl":    "pub fn f <()->i32> (): 1\n",
		"b.nepl":    "pub fn f <()->i32> (): 2\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]

	b, ok := m.Visible["f"]
	if !ok || !b.Ambiguous {
		t.Fatalf("expected 'f' to be marked ambiguous, got %+v ok=%v", b, ok)
	}
}

func TestResolver_AliasQualifiedOnly(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"lib.nepl\" as lib\nfn main <()->i32> (): lib::add\n",
		"lib.nepl":  "pub fn add <()->i32> (): 1\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]

	if _, ok := m.Visible["add"]; ok {
		t.Fatalf("aliased import must not bring a bare 'add' into scope")
	}

	if _, ok := m.Visible["lib::add"]; !ok {
		t.Fatalf("expected qualified 'lib::add' to be visible, got %+v", m.Visible)
	}
}

func TestResolver_SelectiveShadowsOpen(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"a.nepl\" as *\n#import \"b.nepl\" as [f]\nfn main <()->i32> (): f\n",
		"a.nepl":    "pub fn f <()->i32> (): 1\n",
		"b.nepl":    "pub fn f <()->i32> (): 2\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]

	b, ok := m.Visible["f"]
	if !ok || b.Ambiguous || b.SourceModule != "b.nepl" {
		t.Fatalf("expected selective import of 'f' from b.nepl to win over the ambiguous open, got %+v", b)
	}
}

func TestResolver_PubImportReexportsTransitively(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"mid.nepl\" as *\nfn main <()->i32> (): add\n",
		"mid.nepl":  "pub #import \"lib.nepl\" as *\n",
		"lib.nepl":  "pub fn add <()->i32> (): 1\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	m := mods[res.EntryPath]

	b, ok := m.Visible["add"]
	if !ok {
		t.Fatalf("expected 'add' to be re-exported transitively through mid.nepl, got %+v", m.Visible)
	}

	if b.SourceModule != "lib.nepl" {
		t.Fatalf("expected re-export chain to resolve back to the original lib.nepl, got %q", b.SourceModule)
	}
}

func TestResolver_DuplicatePublicStructIsError(t *testing.T) {
	files := map[string]string{
		"main.nepl": "pub struct Point:\n    x i32\npub struct Point:\n    y i32\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	r.Resolve(res)

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeDuplicateDef {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a duplicate-definition diagnostic, got: %v", diags.Items())
	}
}

func TestResolver_OverloadedFuncNamesNotDuplicate(t *testing.T) {
	files := map[string]string{
		"main.nepl": "pub fn add <(i32,i32)->i32> (a,b): a\npub fn add <(f32,f32)->f32> (a,b): a\n",
	}

	res, _ := load(t, files, "main.nepl")

	diags := &diag.Set{}
	r := New(diags)
	mods := r.Resolve(res)

	if diags.HasErrors() {
		t.Fatalf("overloaded 'add' must not be flagged as a duplicate definition: %v", diags.Items())
	}

	if _, ok := mods[res.EntryPath].Exports["add"]; !ok {
		t.Fatalf("expected overloaded 'add' to still be exported")
	}
}
