package ast

import "github.com/neplg/neplg2/pkg/source"

// DirectiveKind identifies which of spec §6's recognized directives a
// Directive represents.
type DirectiveKind int

const (
	DirEntry DirectiveKind = iota
	DirTarget
	DirIndent
	DirImport
	DirInclude
	DirUse
	DirExtern
	DirIfTarget
	DirIfProfile
	DirPrelude
	DirNoPrelude
)

// ImportClauseKind distinguishes the forms spec §4.4/§6 allow after
// "#import \"p\" as ...".
type ImportClauseKind int

const (
	ImportDefaultAlias ImportClauseKind = iota // no "as" clause: last path segment
	ImportAlias                                // as name
	ImportOpen                                 // as *
	ImportSelective                            // as [a, b as c, mod::*] (brackets; a brace form is not parsed)
	ImportMerge                                // as @merge
)

// SelectiveName is one entry of an "as [ ... ]" import clause.
type SelectiveName struct {
	Name  string // source name, or the whole "mod::*" text for a wildcard entry
	Alias string // local alias; equal to Name when no "as" was given
}

// Directive is one structured directive, parsed either at module scope
// or as a block-level statement (spec §4.3 "a later merge step unifies
// them").
type Directive struct {
	Kind DirectiveKind
	Sp   source.Span

	// Vis is only meaningful for an import directive: "pub #import ..."
	// re-exports through the module's export set (spec §4.4).
	Vis Visibility

	// #entry
	EntryName string

	// #target
	Target string // "wasm" | "wasi" | "llvm"

	// #indent
	IndentWidth int

	// #import / #include
	Path          string
	ImportClause  ImportClauseKind
	ImportAlias   string
	Selective     []SelectiveName

	// #use
	UseSymbol string

	// #extern
	ExternModule string
	ExternName   string
	ExternLocal  string
	ExternSig    *FuncTypeExpr

	// #if[target=...] / #if[profile=...]
	GateValue string // e.g. "wasm" or "release"

	// #prelude
	PreludePath string
}

func (d Directive) Span() source.Span { return d.Sp }

// DirectiveStmt wraps a Directive so it may also appear as an ordinary
// block-level statement (spec §4.3).
type DirectiveStmt struct {
	Directive Directive
}

func (d *DirectiveStmt) Span() source.Span { return d.Directive.Sp }
func (*DirectiveStmt) stmt()               {}

// GatedStmt wraps a statement guarded by an immediately preceding
// "#if[target=]" / "#if[profile=]" directive (spec §4.5, §8).
type GatedStmt struct {
	Gate DirectiveKind // DirIfTarget or DirIfProfile
	On   string        // the guarded value, e.g. "wasm"
	Inner Stmt
	Sp    source.Span
}

func (g *GatedStmt) Span() source.Span { return g.Sp }
func (*GatedStmt) stmt()                {}

// GateAllows reports whether g's guard is satisfied under the active
// target/profile (spec §8 "wasi target satisfies gates named either
// wasi or wasm; wasm target satisfies only wasm"). Shared by
// pkg/typecheck (checking a parsed body) and pkg/llvmir (which branches
// off the AST before typecheck ever runs), so the two backends never
// disagree on which statements a given target/profile sees.
func GateAllows(g *GatedStmt, target, profile string) bool {
	switch g.Gate {
	case DirIfTarget:
		return TargetSatisfies(target, g.On)
	case DirIfProfile:
		return g.On == profile
	default:
		return true
	}
}

// TargetSatisfies reports whether a "#if[target=gate]" guard is met by
// the active target: the wasi target is a superset of wasm (spec §8),
// so a gate written for wasm still applies under a wasi build.
func TargetSatisfies(active, gate string) bool {
	if active == gate {
		return true
	}

	return active == "wasi" && gate == "wasm"
}

// WalkTop yields every top-level statement of mod not excluded by an
// unsatisfied gate, unwrapped from its GatedStmt wrapper when present
// (spec §4.5 "skipped statements are not checked and their identifiers
// do not enter scope").
func WalkTop(mod *Module, target, profile string, fn func(Stmt)) {
	for _, st := range mod.Root.Stmts {
		if g, ok := st.(*GatedStmt); ok {
			if !GateAllows(g, target, profile) {
				continue
			}

			st = g.Inner
		}

		fn(st)
	}
}
