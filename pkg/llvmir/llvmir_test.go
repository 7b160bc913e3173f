package llvmir

import (
	"strings"
	"testing"

	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/resolver"
)

func emitSource(t *testing.T, files map[string]string, entry, entryFn, target, profile string) (string, *diag.Set) {
	t.Helper()

	diags := &diag.Set{}

	ld := loader.New(func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}, "std", nil)

	res, _, loadDiags := ld.Load(entry)
	diags.Merge(loadDiags)

	if diags.HasErrors() {
		return "", diags
	}

	mods := resolver.New(diags).Resolve(res)

	ir := Emit(diags, mods, res.EntryPath, entryFn, target, profile)

	return ir, diags
}

func TestEmit_RawTopLevelBlock(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#llvmir:\n" +
			"    ; a free-standing raw block\n" +
			"fn main <()->i32> (): 1\n",
	}

	ir, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if !strings.Contains(ir, "; a free-standing raw block") {
		t.Fatalf("expected the raw block's text verbatim in the output, got:\n%s", ir)
	}
}

func TestEmit_FuncFromRawLLVMIR(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> ():\n" +
			"    #llvmir:\n" +
			"        ret i32 42\n",
	}

	ir, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if !strings.Contains(ir, "define i32 @main() {") || !strings.Contains(ir, "ret i32 42") {
		t.Fatalf("expected a define wrapper around the raw body, got:\n%s", ir)
	}
}

func TestEmit_TinySubsetLiteralReturn(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): 7\n",
	}

	ir, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if !strings.Contains(ir, "define i32 @main() {\n  ret i32 7\n}") {
		t.Fatalf("expected a lowered literal-return function, got:\n%s", ir)
	}
}

func TestEmit_WiderBodySilentlySkipped(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn main <()->i32> (): add 1 2\n",
	}

	ir, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")

	found := false
	for _, d := range diags.Items() {
		if d.Code == diag.CodeUnsupportedConstr {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected the unsupported-construct diagnostic for empty output, got ir=%q diags=%v", ir, diags.Items())
	}
}

func TestEmit_ConflictingRawBodiesUnderSameTargetIsDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "fn f <()->i32> ():\n" +
			"    #llvmir:\n" +
			"        ret i32 1\n" +
			"fn f <()->i32> ():\n" +
			"    #wasm:\n" +
			"        i32.const 1\n" +
			"fn main <()->i32> (): f\n",
	}

	_, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")

	found := false
	for _, d := range diags.Items() {
		if d.Code == diag.CodeRawBodyConflict {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a raw-body-conflict diagnostic, got %v", diags.Items())
	}
}

func TestEmit_TargetGatingSkipsInactiveStatements(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#if[target=wasm]\n" +
			"fn only_wasm <()->i32> (): 1\n" +
			"#if[target=llvm]\n" +
			"fn only_llvm <()->i32> (): 2\n" +
			"fn main <()->i32> (): 0\n",
	}

	ir, diags := emitSource(t, files, "main.nepl", "main", "llvm", "release")
	if diags.HasErrors() {
		t.Fatalf("unexpected errors: %v", diags.Items())
	}

	if strings.Contains(ir, "@only_wasm") {
		t.Fatalf("a wasm-gated function must not appear in an llvm build, got:\n%s", ir)
	}

	if !strings.Contains(ir, "@only_llvm") {
		t.Fatalf("expected the llvm-gated function to appear, got:\n%s", ir)
	}
}
