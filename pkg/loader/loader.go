// Package loader resolves a NEPL entry path plus its #import/#include
// graph into a merged module (spec §4.1). It never assumes a real
// filesystem: callers supply a Provider callback, generalizing
// go-corset's `ParseSourceFiles` (pkg/corset/compiler.go), which takes
// a flat slice of already-read file contents with no import system of
// its own, into NEPL's load-once-by-canonical-path `#import` versus
// always-inline `#include`, plus cycle detection via an active-load
// stack (spec §4.1, §9 "Cycles") — none of which Corset needed.
package loader

import (
	"path"
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/lexer"
	"github.com/neplg/neplg2/pkg/parser"
	"github.com/neplg/neplg2/pkg/source"
)

// Provider maps a logical source path to its text. It is the compiler
// core's sole I/O seam (spec §1, §10: "the core must never assume a
// filesystem"); a native CLI wraps os.ReadFile, a browser playground
// wraps an in-memory map, both external to this package.
type Provider func(logicalPath string) (text string, ok bool)

// Loader resolves #import/#include directives against a Provider and a
// set of named package roots.
type Loader struct {
	provider     Provider
	stdlibRoot   string
	packageRoots map[string]string

	sourceMap *source.Map
	diags     *diag.Set

	imported map[string]*ast.Module
	active   map[string]bool
}

// New constructs a Loader. stdlibRoot is prefixed onto any "std/..."
// path; packageRoots maps a registered package name (a path's first
// segment) to its own root (spec §4.1).
func New(provider Provider, stdlibRoot string, packageRoots map[string]string) *Loader {
	return &Loader{
		provider:     provider,
		stdlibRoot:   stdlibRoot,
		packageRoots: packageRoots,
		sourceMap:    source.NewMap(),
		diags:        &diag.Set{},
		imported:     make(map[string]*ast.Module),
		active:       make(map[string]bool),
	}
}

// Result is the loader's output. Entry is the entry file's own merged
// module (its #include targets inlined, its own #entry/#target/#indent
// directives preserved). Imported holds every transitively #import-ed
// module, keyed by canonical path and loaded at most once, for
// pkg/resolver to assemble a module graph.
type Result struct {
	EntryPath string
	Entry     *ast.Module
	Imported  map[string]*ast.Module
}

// Load resolves entryPath into a Result, the source map covering every
// file touched, and the diagnostics accumulated along the way (spec
// §4.1).
func (l *Loader) Load(entryPath string) (*Result, *source.Map, *diag.Set) {
	canon := l.canonicalize("", entryPath)
	mod := l.loadModule(canon, true)

	return &Result{EntryPath: canon, Entry: mod, Imported: l.imported}, l.sourceMap, l.diags
}

// canonicalize resolves p relative to fromCanon (the canonical path of
// the file doing the importing/including; "" for the entry path
// itself): a leading "std/" maps to the configured stdlib root, a
// registered first path segment maps to its package root, anything else
// resolves relative to fromCanon's directory (spec §4.1).
func (l *Loader) canonicalize(fromCanon, p string) string {
	if strings.HasPrefix(p, "std/") {
		return path.Join(l.stdlibRoot, strings.TrimPrefix(p, "std/"))
	}

	if i := strings.IndexByte(p, '/'); i > 0 {
		if root, ok := l.packageRoots[p[:i]]; ok {
			return path.Join(root, p[i+1:])
		}
	}

	if path.IsAbs(p) || fromCanon == "" {
		return path.Clean(p)
	}

	return path.Join(path.Dir(fromCanon), p)
}

// loadModule loads and parses one file, recursively resolving its
// #import/#include directives, and returns its own merged AST.
func (l *Loader) loadModule(canon string, isEntry bool) *ast.Module {
	if l.active[canon] {
		l.diags.Add(diag.Newf(diag.CodeCircularImport, source.Dummy(),
			"circular import/include of %q", canon))

		return nil
	}

	text, ok := l.provider(canon)
	if !ok {
		l.diags.Add(diag.Newf(diag.CodeMissingSource, source.Dummy(),
			"source not found: %q", canon))

		return nil
	}

	l.active[canon] = true
	defer delete(l.active, canon)

	file := l.sourceMap.Add(canon, text)

	toks, raws := lexer.New(file, l.diags).Tokenize()
	indentWidth := lexer.DetectIndentUnit(text)
	mod := parser.New(file, toks, raws, indentWidth, l.diags).ParseModule()

	if !isEntry {
		mod.Root.Stmts = stripFileScoped(mod.Root.Stmts)
	}

	mod.Root.Stmts = l.expand(canon, mod.Root.Stmts)
	mod.Directives = collectDirectives(mod.Root.Stmts)

	return mod
}

// expand walks stmts, inlining every #include target in place and
// resolving (load-once) every #import target into l.imported (spec
// §4.1: "Imports use a load-once set keyed by canonical path; includes
// inline the file each time seen but still participate in cycle
// detection").
func (l *Loader) expand(fromCanon string, stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))

	for _, st := range stmts {
		ds, ok := st.(*ast.DirectiveStmt)
		if !ok {
			out = append(out, st)
			continue
		}

		switch ds.Directive.Kind {
		case ast.DirInclude:
			target := l.canonicalize(fromCanon, ds.Directive.Path)

			if included := l.loadModule(target, false); included != nil {
				out = append(out, included.Root.Stmts...)
			}
		case ast.DirImport:
			target := l.canonicalize(fromCanon, ds.Directive.Path)

			if _, already := l.imported[target]; !already {
				l.imported[target] = nil // reserved: re-entry through this path is a cycle, not a re-load

				l.imported[target] = l.loadModule(target, false)
			} else if l.active[target] {
				l.diags.Add(diag.Newf(diag.CodeCircularImport, source.Dummy(),
					"circular import/include of %q", target))
			}

			// rewrite Path to the resolved canonical path so pkg/resolver
			// can key directly into Result.Imported without redoing
			// canonicalization rules.
			rewritten := ds.Directive
			rewritten.Path = target
			out = append(out, &ast.DirectiveStmt{Directive: rewritten})
		default:
			out = append(out, st)
		}
	}

	return out
}

// stripFileScoped drops #entry/#target/#indent directives from a
// non-entry file before it is merged: these only take effect when
// declared by the entry file itself (spec §4.1).
func stripFileScoped(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts))

	for _, st := range stmts {
		if ds, ok := st.(*ast.DirectiveStmt); ok {
			switch ds.Directive.Kind {
			case ast.DirEntry, ast.DirTarget, ast.DirIndent:
				continue
			}
		}

		out = append(out, st)
	}

	return out
}

func collectDirectives(stmts []ast.Stmt) []ast.Directive {
	var out []ast.Directive

	for _, st := range stmts {
		if ds, ok := st.(*ast.DirectiveStmt); ok {
			out = append(out, ds.Directive)
		}
	}

	return out
}
