// Package neplg2 is the compiler's public entry point (spec §6): it
// wires pkg/loader through pkg/resolver, pkg/typecheck, pkg/mono,
// pkg/move, pkg/drop and finally pkg/wasm or pkg/llvmir into the two
// calls a host actually needs, compile_source and compile_module,
// generalizing go-corset's pkg/corset/compiler.go
// (CompileSourceFiles/CompileSourceFile delegating to a Compiler
// builder) from Corset's single constraint-set pipeline to NEPL's
// load/resolve/check/specialize/move/drop/codegen chain.
package neplg2

import (
	"os"
	"path/filepath"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/loader"
	"github.com/neplg/neplg2/pkg/llvmir"
	"github.com/neplg/neplg2/pkg/mono"
	"github.com/neplg/neplg2/pkg/move"
	"github.com/neplg/neplg2/pkg/drop"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/typecheck"
	"github.com/neplg/neplg2/pkg/wasm"
)

// DefaultProfile is the host's debug-assertion flag (spec §6 "profile
// null resolves to the host's debug-assertion flag"), analogous to
// go-corset's ldflags-settable Version var: a release build of
// cmd/neplg2 overrides it via -ldflags, a plain `go build` keeps the
// debug default.
var DefaultProfile = "debug"

// Options mirrors spec §6's caller-supplied compile options. A zero
// value means "let the module/host decide": Target falls back to the
// module's own #target directive then "wasm"; Profile falls back to
// DefaultProfile.
type Options struct {
	Target  string // "" | "wasm" | "wasi" | "llvm"
	Profile string // "" | "debug" | "release" | ...
	Verbose bool
}

// CompilationConfig carries the loader-level knobs a single compile_*
// call needs but that aren't part of spec §6's Options surface:
// stdlib/package root resolution. Unlike go-corset's
// CompilationConfig this repo has no embedded stdlib source to gate
// behind a bool (Corset's Stdlib flag toggles a go:embed'd
// stdlib.lisp); NEPL's "std/" imports are just another registered
// root, so StdlibRoot alone covers it.
type CompilationConfig struct {
	StdlibRoot   string
	PackageRoots map[string]string
}

// ArtifactKind distinguishes CompileModule's two possible outputs
// (spec §4.10: the llvm-ir target never produces a wasm binary and
// vice versa).
type ArtifactKind int

const (
	ArtifactWasm ArtifactKind = iota
	ArtifactLLVMIR
)

// Artifact is one successful compile's output.
type Artifact struct {
	Kind ArtifactKind
	Wasm []byte // set when Kind == ArtifactWasm
	IR   string // set when Kind == ArtifactLLVMIR
}

// CompileModule runs the full pipeline over an already-loaded Result:
// resolve, typecheck (which also resolves target/profile/#entry),
// specialize, move-check, drop-insert, then codegen. loadDiags carries
// whatever pkg/loader already accumulated; it is merged into the
// returned set so a caller only ever inspects one diag.Set.
func CompileModule(res *loader.Result, loadDiags *diag.Set, opts Options) (*Artifact, *diag.Set) {
	diags := &diag.Set{}
	diags.Merge(loadDiags)

	if diags.HasErrors() {
		return nil, diags
	}

	target, profile, entryFuncName := resolveOptions(res.Entry, opts, diags)
	if diags.HasErrors() {
		return nil, diags
	}

	mods := resolver.New(diags).Resolve(res)
	if diags.HasErrors() {
		return nil, diags
	}

	if target == "llvm" {
		ir := llvmir.Emit(diags, mods, res.EntryPath, entryFuncName, target, profile)
		if diags.HasErrors() {
			return nil, diags
		}

		return &Artifact{Kind: ArtifactLLVMIR, IR: ir}, diags
	}

	hmod := typecheck.Check(diags, mods, res.EntryPath, entryFuncName, target, profile)
	if diags.HasErrors() {
		return nil, diags
	}

	hmod = mono.Specialize(hmod)

	move.Check(diags, hmod)
	if diags.HasErrors() {
		return nil, diags
	}

	drop.Insert(hmod)

	bin := wasm.Compile(hmod, diags)
	if diags.HasErrors() {
		return nil, diags
	}

	return &Artifact{Kind: ArtifactWasm, Wasm: bin}, diags
}

// CheckModule runs every pipeline stage through move-checking but stops
// short of drop insertion and codegen, for a host that only wants
// diagnostics (cmd/neplg2's "check" subcommand). The llvm target has no
// separate frontend of its own (pkg/llvmir branches off the AST
// directly), so under target=llvm this only resolves options and runs
// pkg/llvmir.Emit for its side effect of populating diags.
func CheckModule(res *loader.Result, loadDiags *diag.Set, opts Options) *diag.Set {
	diags := &diag.Set{}
	diags.Merge(loadDiags)

	if diags.HasErrors() {
		return diags
	}

	target, profile, entryFuncName := resolveOptions(res.Entry, opts, diags)
	if diags.HasErrors() {
		return diags
	}

	mods := resolver.New(diags).Resolve(res)
	if diags.HasErrors() {
		return diags
	}

	if target == "llvm" {
		llvmir.Emit(diags, mods, res.EntryPath, entryFuncName, target, profile)
		return diags
	}

	hmod := typecheck.Check(diags, mods, res.EntryPath, entryFuncName, target, profile)
	if diags.HasErrors() {
		return diags
	}

	hmod = mono.Specialize(hmod)
	move.Check(diags, hmod)

	return diags
}

// CheckFS runs CheckModule over files read from root on the native
// filesystem.
func CheckFS(root, entryPath string, cfg CompilationConfig, opts Options) (*source.Map, *diag.Set) {
	provider := func(p string) (string, bool) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return "", false
		}

		return string(data), true
	}

	ld := loader.New(provider, cfg.StdlibRoot, cfg.PackageRoots)
	res, srcMap, loadDiags := ld.Load(entryPath)

	return srcMap, CheckModule(res, loadDiags, opts)
}

// Compile loads entryPath through provider and runs CompileModule over
// the result (spec §6's "loader entry point accepting either a native
// filesystem provider or an injected path->text callback"). The
// returned source.Map lets a caller render diagnostics with file
// positions (pkg/source's Describe, or pkg/diag's ToLSPDiagnostic).
func Compile(provider loader.Provider, entryPath string, cfg CompilationConfig, opts Options) (*Artifact, *source.Map, *diag.Set) {
	ld := loader.New(provider, cfg.StdlibRoot, cfg.PackageRoots)
	res, srcMap, loadDiags := ld.Load(entryPath)

	art, diags := CompileModule(res, loadDiags, opts)

	return art, srcMap, diags
}

// CompileSource compiles a single in-memory file with no import graph
// of its own (spec §6's compile_source: "lexes and parses internally,
// then delegates to compile_module"). An #import/#include naming any
// path other than filePath fails with a missing-source diagnostic,
// since no other text is available to serve it.
func CompileSource(filePath, text string, opts Options) (*Artifact, *source.Map, *diag.Set) {
	provider := func(p string) (string, bool) {
		if p == filePath {
			return text, true
		}

		return "", false
	}

	return Compile(provider, filePath, CompilationConfig{}, opts)
}

// CompileFS compiles entryPath by reading files from root on the native
// filesystem, the convenience wiring cmd/neplg2 uses (spec §10: the
// core stays filesystem-agnostic, only this helper touches os).
func CompileFS(root, entryPath string, cfg CompilationConfig, opts Options) (*Artifact, *source.Map, *diag.Set) {
	provider := func(p string) (string, bool) {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			return "", false
		}

		return string(data), true
	}

	return Compile(provider, entryPath, cfg, opts)
}

// resolveOptions fills in target/profile/entryFuncName from entry's own
// directives wherever opts left them blank (spec §6): a duplicate
// #target directive is always an error, regardless of whether the two
// values agree, since spec §6 names it as a structural mistake rather
// than a value conflict.
func resolveOptions(entry *ast.Module, opts Options, diags *diag.Set) (target, profile, entryFuncName string) {
	var (
		targets   []ast.Directive
		entryName string
		haveEntry bool
	)

	for _, d := range entry.Directives {
		switch d.Kind {
		case ast.DirTarget:
			targets = append(targets, d)
		case ast.DirEntry:
			if !haveEntry {
				entryName = d.EntryName
				haveEntry = true
			}
		}
	}

	if len(targets) > 1 {
		d := targets[len(targets)-1]
		diags.Add(diag.New(diag.CodeMultipleTarget, d.Sp,
			"multiple #target directives in the entry module"))
	}

	target = opts.Target
	if target == "" {
		if len(targets) > 0 {
			target = targets[0].Target
		} else {
			target = "wasm"
		}
	}

	profile = opts.Profile
	if profile == "" {
		profile = DefaultProfile
	}

	entryFuncName = entryName
	if entryFuncName == "" {
		diags.Add(diag.Newf(diag.CodeUnknownName, source.Dummy(),
			"no #entry directive found"))
	}

	return target, profile, entryFuncName
}
