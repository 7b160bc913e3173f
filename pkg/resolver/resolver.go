// Package resolver builds the multi-file module graph produced by
// pkg/loader into per-module export and visible-name tables (spec
// §4.4). No pack member implements an import/visibility DAG of its own
// (go-corset is single-namespace); the alias-kind switch below is
// grounded on dingo's import-alias handling in pkg/transform, adapted
// to NEPL's pub/private/open/selective/merge rules.
package resolver

import (
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/loader"
)

// NameKind classifies a local definition for duplicate-detection
// purposes: functions may share a name across overloads (spec §4.5),
// everything else may not (spec §4.4).
type NameKind int

const (
	KindFunc NameKind = iota
	KindType
	KindAlias
)

// LocalDef is one name a module defines at top level.
type LocalDef struct {
	Kind NameKind
	Vis  ast.Visibility
	Def  ast.Stmt // the defining statement, for diagnostics and later stages
}

// Binding is one resolved visible or exported name: the module and
// local name it ultimately traces back to, after following any chain
// of re-exports. Ambiguous marks a name reachable through two distinct
// open imports with no shadowing local or selective import to break the
// tie (spec §4.4 "each use of it yields a diagnostic" — the diagnostic
// itself is raised by pkg/typecheck at the use site; this table only
// records the condition).
type Binding struct {
	SourceModule string
	SourceName   string
	Ambiguous    bool
}

// Module is one resolved module: its locals, export set, and visible
// set.
type Module struct {
	Path    string
	AST     *ast.Module
	Locals  map[string]LocalDef
	Exports map[string]Binding
	Visible map[string]Binding
}

// Resolver computes Modules for an entire loader.Result.
type Resolver struct {
	diags    *diag.Set
	asts     map[string]*ast.Module
	resolved map[string]*Module
	visiting map[string]bool
}

// New constructs a Resolver that reports problems onto diags.
func New(diags *diag.Set) *Resolver {
	return &Resolver{
		diags:    diags,
		asts:     make(map[string]*ast.Module),
		resolved: make(map[string]*Module),
		visiting: make(map[string]bool),
	}
}

// Resolve builds a Module for res.EntryPath and every module it
// transitively imports, returning the full table keyed by canonical
// path.
func (r *Resolver) Resolve(res *loader.Result) map[string]*Module {
	r.asts[res.EntryPath] = res.Entry

	for path, mod := range res.Imported {
		r.asts[path] = mod
	}

	for path := range r.asts {
		r.resolveModule(path)
	}

	return r.resolved
}

func (r *Resolver) resolveModule(path string) *Module {
	if m, ok := r.resolved[path]; ok {
		return m
	}

	if r.visiting[path] {
		// The loader already rejects cyclic #import graphs before a
		// module reaches here; this guard only protects against
		// resolving the same in-flight module reentrantly.
		return nil
	}

	src, ok := r.asts[path]
	if !ok || src == nil {
		return nil
	}

	r.visiting[path] = true
	defer delete(r.visiting, path)

	m := &Module{Path: path, AST: src}
	m.Locals = r.collectLocals(src)

	for _, d := range src.Directives {
		if d.Kind == ast.DirImport {
			r.resolveModule(d.Path)
		}
	}

	m.Exports = r.computeExports(m)
	m.Visible = r.computeVisible(m)
	r.resolved[path] = m

	return m
}

// collectLocals walks a module's top-level statements (unwrapping any
// #if[target=]/#if[profile=] gate, since a gated definition is still
// visible by name — target selection happens in pkg/typecheck) and
// flags a duplicate pub definition of the same non-function name (spec
// §4.4).
func (r *Resolver) collectLocals(mod *ast.Module) map[string]LocalDef {
	locals := make(map[string]LocalDef)

	for _, st := range mod.Root.Stmts {
		if g, ok := st.(*ast.GatedStmt); ok {
			st = g.Inner
		}

		name, def, ok := localDefOf(st)
		if !ok {
			continue
		}

		if existing, present := locals[name]; present {
			bothFuncs := existing.Kind == KindFunc && def.Kind == KindFunc
			anyPublic := existing.Vis == ast.Public || def.Vis == ast.Public

			if !bothFuncs && anyPublic {
				r.diags.Add(diag.Newf(diag.CodeDuplicateDef, def.Def.Span(),
					"%q redefines a public name already defined in this module", name))
			}
		}

		locals[name] = def
	}

	return locals
}

func localDefOf(st ast.Stmt) (string, LocalDef, bool) {
	switch s := st.(type) {
	case *ast.FuncDef:
		return s.Name, LocalDef{Kind: KindFunc, Vis: s.Vis, Def: s}, true
	case *ast.FuncAlias:
		// s.Name is the newly declared alias; s.Alias is the existing
		// function it refers to ("fn alias = other_name").
		return s.Name, LocalDef{Kind: KindAlias, Vis: s.Vis, Def: s}, true
	case *ast.StructDef:
		return s.Name, LocalDef{Kind: KindType, Vis: s.Vis, Def: s}, true
	case *ast.EnumDef:
		return s.Name, LocalDef{Kind: KindType, Vis: s.Vis, Def: s}, true
	case *ast.TraitDef:
		return s.Name, LocalDef{Kind: KindType, Vis: s.Vis, Def: s}, true
	default:
		return "", LocalDef{}, false
	}
}

// computeExports is the module's export set: local pub names union
// re-exports contributed by "pub #import" directives (spec §4.4).
func (r *Resolver) computeExports(m *Module) map[string]Binding {
	exports := make(map[string]Binding)

	for name, def := range m.Locals {
		if def.Vis == ast.Public {
			exports[name] = Binding{SourceModule: m.Path, SourceName: name}
		}
	}

	for _, d := range m.AST.Directives {
		if d.Kind != ast.DirImport || d.Vis != ast.Public {
			continue
		}

		r.mergeImport(exports, d)
	}

	return exports
}

// computeVisible is the module's visible set: locals shadow everything;
// selective imports shadow opens; opens/merges contribute their bare
// names; alias imports only contribute "alias::name" qualified entries
// (spec §4.4).
func (r *Resolver) computeVisible(m *Module) map[string]Binding {
	visible := make(map[string]Binding)

	for _, d := range m.AST.Directives {
		if d.Kind != ast.DirImport {
			continue
		}

		switch d.ImportClause {
		case ast.ImportOpen, ast.ImportMerge:
			r.mergeImport(visible, d)
		case ast.ImportDefaultAlias, ast.ImportAlias:
			r.mergeQualifiedImport(visible, d)
		}
	}

	for _, d := range m.AST.Directives {
		if d.Kind == ast.DirImport && d.ImportClause == ast.ImportSelective {
			r.mergeSelectiveImport(visible, d)
		}
	}

	for name := range m.Locals {
		visible[name] = Binding{SourceModule: m.Path, SourceName: name}
	}

	return visible
}

// mergeImport merges every entry of the target module's export set
// into dst under its bare name, marking an existing differently-sourced
// entry ambiguous rather than silently overwriting it.
func (r *Resolver) mergeImport(dst map[string]Binding, d ast.Directive) {
	target := r.resolveModule(d.Path)
	if target == nil {
		return
	}

	for name, b := range target.Exports {
		if existing, ok := dst[name]; ok && existing.SourceModule != b.SourceModule {
			existing.Ambiguous = true
			dst[name] = existing

			continue
		}

		dst[name] = b
	}
}

func aliasFor(d ast.Directive) string {
	if d.ImportClause == ast.ImportAlias {
		return d.ImportAlias
	}

	p := d.Path
	if i := strings.LastIndexByte(p, '/'); i >= 0 {
		p = p[i+1:]
	}

	return p
}

func (r *Resolver) mergeQualifiedImport(dst map[string]Binding, d ast.Directive) {
	target := r.resolveModule(d.Path)
	if target == nil {
		return
	}

	alias := aliasFor(d)

	for name, b := range target.Exports {
		dst[alias+"::"+name] = b
	}
}

// mergeSelectiveImport handles "as [a, b as c, mod::*]": a plain name
// binds its alias directly, a "mod::*" entry makes visible every export
// whose qualified name begins with that prefix (spec §4.4, §6).
func (r *Resolver) mergeSelectiveImport(dst map[string]Binding, d ast.Directive) {
	target := r.resolveModule(d.Path)
	if target == nil {
		return
	}

	for _, sel := range d.Selective {
		if strings.HasSuffix(sel.Name, "::*") {
			prefix := strings.TrimSuffix(sel.Name, "*")

			for name, b := range target.Exports {
				if strings.HasPrefix(name, prefix) {
					dst[name] = b
				}
			}

			continue
		}

		b, ok := target.Exports[sel.Name]
		if !ok {
			r.diags.Add(diag.Newf(diag.CodeUnknownAlias, d.Sp,
				"%q is not exported by %q", sel.Name, d.Path))

			continue
		}

		dst[sel.Alias] = b
	}
}
