package neplg2

import (
	"context"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/neplg/neplg2/pkg/diag"
)

// bumpHeap backs the env.alloc/dealloc/realloc imports every wasm
// artifact carries unconditionally (see DESIGN.md's pkg/wasm entry): a
// trivial bump allocator is all these end-to-end scenarios ever need,
// since none of them frees or grows a prior allocation.
type bumpHeap struct {
	next uint32
}

func (h *bumpHeap) alloc(ctx context.Context, mod api.Module, size uint32) uint32 {
	if h.next == 0 {
		g := mod.ExportedGlobal("__data_end")
		h.next = uint32(g.Get())
	}

	ptr := h.next

	mem := mod.Memory()
	if need := ptr + size; need > mem.Size() {
		pages := (need-mem.Size())/65536 + 1
		mem.Grow(pages)
	}

	h.next += size

	return ptr
}

func (h *bumpHeap) dealloc(context.Context, api.Module, uint32, uint32) {}

func (h *bumpHeap) realloc(ctx context.Context, mod api.Module, oldPtr, oldSize, newSize uint32) uint32 {
	return h.alloc(ctx, mod, newSize)
}

// runEntry instantiates a compiled wasm artifact, backing its env
// imports with a bump allocator, and calls the module's sole exported
// function (the #entry function; __data_end and memory are its only
// other exports) with no arguments.
func runEntry(t *testing.T, wasmBytes []byte) int32 {
	t.Helper()

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	h := &bumpHeap{}

	_, err := rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(h.alloc).Export("alloc").
		NewFunctionBuilder().WithFunc(h.dealloc).Export("dealloc").
		NewFunctionBuilder().WithFunc(h.realloc).Export("realloc").
		Instantiate(ctx)
	if err != nil {
		t.Fatalf("instantiating env host module: %v", err)
	}

	inst, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		t.Fatalf("instantiating compiled artifact: %v", err)
	}

	var entry api.Function
	for name, fn := range inst.ExportedFunctions() {
		if name == "memory" {
			continue
		}

		if f := inst.ExportedFunction(name); f != nil {
			entry = f
			_ = fn
			break
		}
	}

	if entry == nil {
		t.Fatalf("no exported entry function found")
	}

	results, err := entry.Call(ctx)
	if err != nil {
		t.Fatalf("calling entry: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	return int32(results[0])
}

func mustCompile(t *testing.T, files map[string]string, entry string, opts Options) *Artifact {
	t.Helper()

	provider := func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}

	art, _, diags := Compile(provider, entry, CompilationConfig{StdlibRoot: "std"}, opts)
	if diags.HasErrors() {
		t.Fatalf("unexpected diagnostics: %v", diags.Items())
	}

	return art
}

// TestCompile_ArithmeticRoundTrip grounds spec §8 scenario 1.
func TestCompile_ArithmeticRoundTrip(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#entry main\n" +
			"fn main <()->i32> (): add 1 2 |> add 3\n",
	}

	art := mustCompile(t, files, "main.nepl", Options{Target: "wasm", Profile: "release"})
	if art.Kind != ArtifactWasm {
		t.Fatalf("expected a wasm artifact, got kind %d", art.Kind)
	}

	if got := runEntry(t, art.Wasm); got != 6 {
		t.Fatalf("run main: got %d, want 6", got)
	}
}

// TestCompile_GenericIdentityReusedAtTwoTypes grounds spec §8 scenario 2.
func TestCompile_GenericIdentityReusedAtTwoTypes(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#entry main\n" +
			"fn id <.T> <(.T)->.T> (x): x\n" +
			"fn main <()->i32> (): if (id true) add (id 7) 1 else 0\n",
	}

	art := mustCompile(t, files, "main.nepl", Options{Target: "wasm", Profile: "release"})

	if got := runEntry(t, art.Wasm); got != 8 {
		t.Fatalf("run main: got %d, want 8", got)
	}
}

// TestCompile_SumTypeWithPayload grounds spec §8 scenario 3.
func TestCompile_SumTypeWithPayload(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#entry main\n" +
			"enum Option<.T>:\n" +
			"    None\n" +
			"    Some .T\n" +
			"fn is_some <.T> <(Option<.T>)->bool> (o): match o: Some v: true; None: false\n" +
			"fn main <()->i32> (): if (is_some (Some 1)) if (is_some (None<i32>)) 10 else 20 else 30\n",
	}

	art := mustCompile(t, files, "main.nepl", Options{Target: "wasm", Profile: "release"})

	if got := runEntry(t, art.Wasm); got != 20 {
		t.Fatalf("run main: got %d, want 20", got)
	}
}

// TestCompile_TargetGating grounds spec §8 scenario 6: a wasm build only
// sees the wasm-gated function, an llvm build only sees the
// llvm-gated one.
func TestCompile_TargetGating(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#entry main\n" +
			"#if[target=wasm]\n" +
			"fn f <()->i32> (): 1\n" +
			"#if[target=llvm]\n" +
			"fn f <()->i32> ():\n" +
			"    #llvmir:\n" +
			"        ret i32 2\n" +
			"fn main <()->i32> (): f\n",
	}

	wasmArt := mustCompile(t, files, "main.nepl", Options{Target: "wasm", Profile: "release"})
	if got := runEntry(t, wasmArt.Wasm); got != 1 {
		t.Fatalf("wasm build: got %d, want 1", got)
	}

	llvmArt := mustCompile(t, files, "main.nepl", Options{Target: "llvm", Profile: "release"})
	if llvmArt.Kind != ArtifactLLVMIR {
		t.Fatalf("expected an llvm-ir artifact, got kind %d", llvmArt.Kind)
	}

	if llvmArt.IR == "" {
		t.Fatalf("expected non-empty llvm-ir output")
	}
}

// TestResolveOptions_DuplicateTargetIsDiagnosed exercises the
// neplg2-level check pkg/typecheck and pkg/llvmir can't raise
// themselves: they never see a second #target directive, since
// pkg/loader only preserves #target directives from the entry file,
// but still pass through both of them if the entry file declares two.
func TestResolveOptions_DuplicateTargetIsDiagnosed(t *testing.T) {
	files := map[string]string{
		"main.nepl": "#entry main\n#target wasm\n#target wasi\nfn main <()->i32> (): 0\n",
	}

	provider := func(p string) (string, bool) {
		text, ok := files[p]
		return text, ok
	}

	_, _, diags := Compile(provider, "main.nepl", CompilationConfig{StdlibRoot: "std"}, Options{})

	found := false
	for _, d := range diags.Items() {
		if d.Code == diag.CodeMultipleTarget {
			found = true
		}
	}

	if !found {
		t.Fatalf("expected a multiple-target diagnostic, got %v", diags.Items())
	}
}
