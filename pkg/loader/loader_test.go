package loader

import (
	"testing"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
)

func providerFor(files map[string]string) Provider {
	return func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}
}

func TestLoader_SingleFile(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	res, _, diags := l.Load("main.nepl")

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if len(res.Entry.Root.Stmts) != 1 {
		t.Fatalf("expected 1 top-level statement, got %d", len(res.Entry.Root.Stmts))
	}
}

func TestLoader_IncludeInlines(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#include \"helper.nepl\"\nfn main <()->i32> (): helper\n",
		"helper.nepl": "fn helper <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	res, _, diags := l.Load("main.nepl")

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if len(res.Entry.Root.Stmts) != 2 {
		t.Fatalf("expected include to inline helper's fn plus main's fn, got %d stmts",
			len(res.Entry.Root.Stmts))
	}

	if _, ok := res.Entry.Root.Stmts[0].(*ast.FuncDef); !ok {
		t.Fatalf("expected inlined helper fn first, got %T", res.Entry.Root.Stmts[0])
	}
}

func TestLoader_ImportLoadedOnce(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"a.nepl\"\n#import \"b.nepl\"\nfn main <()->i32> (): 1\n",
		"a.nepl":    "#import \"shared.nepl\"\nfn a <()->i32> (): 1\n",
		"b.nepl":    "#import \"shared.nepl\"\nfn b <()->i32> (): 1\n",
		"shared.nepl": "fn shared <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	_, _, diags := l.Load("main.nepl")

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if len(l.imported) != 3 {
		t.Fatalf("expected exactly 3 distinct imported modules (a, b, shared), got %d: %v",
			len(l.imported), keysOf(l.imported))
	}

	if l.imported["shared.nepl"] == nil {
		t.Fatalf("shared.nepl should have loaded successfully exactly once")
	}
}

func TestLoader_CircularImportDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"a.nepl\"\nfn main <()->i32> (): 1\n",
		"a.nepl":    "#import \"b.nepl\"\nfn a <()->i32> (): 1\n",
		"b.nepl":    "#import \"a.nepl\"\nfn b <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	_, _, diags := l.Load("main.nepl")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeCircularImport {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a circular import diagnostic, got: %v", diags.Items())
	}
}

func TestLoader_MissingSourceDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"missing.nepl\"\nfn main <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	_, _, diags := l.Load("main.nepl")

	found := false

	for _, d := range diags.Items() {
		if d.Code == diag.CodeMissingSource {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a missing source diagnostic, got: %v", diags.Items())
	}
}

func TestLoader_StripsFileScopedDirectivesFromImports(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#import \"a.nepl\"\nfn main <()->i32> (): 1\n",
		"a.nepl":    "#entry main\n#target wasm\nfn a <()->i32> (): 1\n",
	}

	l := New(providerFor(files), "std", nil)
	_, _, diags := l.Load("main.nepl")

	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	a := l.imported["a.nepl"]
	if a == nil {
		t.Fatalf("expected a.nepl to load")
	}

	for _, d := range a.Directives {
		if d.Kind == ast.DirEntry || d.Kind == ast.DirTarget {
			t.Fatalf("expected file-scoped directive to be stripped from non-entry import, found %+v", d)
		}
	}
}

func keysOf(m map[string]*ast.Module) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out
}
