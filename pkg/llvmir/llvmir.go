// Package llvmir implements the secondary, restricted LLVM-IR backend
// (spec §4.10). Unlike pkg/wasm it branches directly off the AST and
// never enters pkg/typecheck/pkg/mono: it concatenates every raw
// "#llvmir:" block verbatim and lowers a narrow subset of ordinary
// parsed function bodies (no parameters, a unit-constant return, or a
// single i32-literal return) to trivial IR text of its own. Anything
// outside that subset is silently skipped, per spec §4.10's "otherwise
// non-lowerable parsed bodies are silently skipped" — this backend was
// never meant to be a general-purpose IR compiler, only an escape hatch
// for hosts that embed raw LLVM text directly.
package llvmir

import (
	"fmt"
	"sort"
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/source"
)

// Emit concatenates mods' raw #llvmir: content (top-level blocks and
// function-scoped raw bodies) plus the tiny lowerable parsed-function
// subset into one UTF-8 IR text artifact. entryPath/entryFuncName name
// the nominated entry (spec §6's #entry); target/profile are the
// already-resolved compile options gating which statements are visible
// (spec §4.5, §8). Modules are walked in a fixed path order so repeated
// calls over the same input are byte-identical.
func Emit(diags *diag.Set, mods map[string]*resolver.Module, entryPath, entryFuncName, target, profile string) string {
	paths := make([]string, 0, len(mods))
	for p := range mods {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	e := &emitter{diags: diags, target: target, profile: profile}

	for _, p := range paths {
		e.module(p, mods[p].AST, p == entryPath, entryFuncName)
	}

	if e.conflict {
		return ""
	}

	if e.out.Len() == 0 {
		diags.Add(diag.New(diag.CodeUnsupportedConstr, source.Dummy(),
			"llvm-ir target produced no output: no raw #llvmir: blocks or lowerable function bodies found"))

		return ""
	}

	return e.out.String()
}

type emitter struct {
	diags    *diag.Set
	target   string
	profile  string
	out      strings.Builder
	seen     map[string]ast.FuncBodyKind
	conflict bool
}

func (e *emitter) module(modPath string, mod *ast.Module, isEntry bool, entryFuncName string) {
	if e.seen == nil {
		e.seen = map[string]ast.FuncBodyKind{}
	}

	ast.WalkTop(mod, e.target, e.profile, func(st ast.Stmt) {
		switch s := st.(type) {
		case *ast.RawLLVMIRBlock:
			e.writeLines(s.Lines)
			e.out.WriteByte('\n')

		case *ast.FuncDef:
			if s.BodyKind == ast.BodyRawWasm || s.BodyKind == ast.BodyRawLLVMIR {
				e.checkConflict(modPath, s)
			}

			if isEntry && s.Name == entryFuncName && s.BodyKind == ast.BodyRawWasm {
				e.diags.Add(diag.Newf(diag.CodeRawBodyConflict, s.Sp,
					"%q is a raw-wasm-bodied function and cannot be the llvm-ir target's entry", s.Name))
				e.conflict = true

				return
			}

			switch s.BodyKind {
			case ast.BodyRawLLVMIR:
				e.funcFromRaw(s)

			case ast.BodyBlock:
				e.funcFromTinySubset(s)
			}
		}
	})
}

// checkConflict flags a function name declared with two differing raw
// bodies under the active target/profile (spec §4.10 "rejects modules
// ... with conflicting raw bodies for the same function").
func (e *emitter) checkConflict(modPath string, fn *ast.FuncDef) {
	key := modPath + "::" + fn.Name

	if prev, ok := e.seen[key]; ok && prev != fn.BodyKind {
		e.diags.Add(diag.Newf(diag.CodeRawBodyConflict, fn.Sp,
			"%q has conflicting raw bodies under the active target/profile", fn.Name))
		e.conflict = true

		return
	}

	e.seen[key] = fn.BodyKind
}

func (e *emitter) writeLines(lines []ast.RawLine) {
	for _, l := range lines {
		e.out.WriteString(strings.Repeat(" ", l.Indent))
		e.out.WriteString(l.Text)
		e.out.WriteByte('\n')
	}
}

// funcFromRaw wraps a function-scoped raw #llvmir: body in a `define`
// header built from the function's own declared signature: the raw
// lines are the body's instructions, not the wrapper (spec §4.2's raw
// bodies capture only the indented lines under the header, mirroring
// how #wasm:'s raw lines are just instructions, not a whole function).
func (e *emitter) funcFromRaw(fn *ast.FuncDef) {
	fmt.Fprintf(&e.out, "define %s @%s(%s) {\n", llvmType(fn.Result), fn.Name, paramList(fn.Params))
	e.writeLines(fn.RawLLVMIR)
	e.out.WriteString("}\n\n")
}

// funcFromTinySubset lowers a parsed function body if it falls inside
// spec §4.10's narrow literal-return subset: no parameters, and either
// an empty/unit-valued body or a single i32 literal as its sole
// statement. Anything wider (calls, branches, non-i32 literals,
// parameters) is silently skipped rather than diagnosed, per §4.10.
func (e *emitter) funcFromTinySubset(fn *ast.FuncDef) {
	if len(fn.Params) != 0 || fn.Body == nil {
		return
	}

	switch {
	case len(fn.Body.Stmts) == 0:
		fmt.Fprintf(&e.out, "define void @%s() {\n  ret void\n}\n\n", fn.Name)

	case len(fn.Body.Stmts) == 1:
		es, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
		if !ok || es.Semicolon || len(es.Items) != 1 {
			return
		}

		lit, ok := es.Items[0].(*ast.LiteralItem)
		if !ok || lit.Kind != ast.LitInt {
			return
		}

		fmt.Fprintf(&e.out, "define i32 @%s() {\n  ret i32 %s\n}\n\n", fn.Name, lit.Text)
	}
}

func paramList(params []ast.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %%%s", llvmType(p.Type), p.Name)
	}

	return strings.Join(parts, ", ")
}

// llvmType gives a best-effort LLVM type name for a surface TypeExpr,
// purely syntactically (this backend never enters pkg/types' arena).
// Anything beyond the primitives this front end actually produces an
// i32/unit-literal-return subset for falls back to an opaque pointer,
// since a raw-bodied function's own declared signature may name any
// type the user intends their hand-written IR to honor.
func llvmType(te ast.TypeExpr) string {
	nt, ok := te.(*ast.NamedTypeExpr)
	if !ok {
		return "ptr"
	}

	switch nt.Name {
	case "Unit", "unit":
		return "void"
	case "Bool", "bool":
		return "i1"
	case "U8", "u8":
		return "i8"
	case "I32", "i32":
		return "i32"
	case "F32", "f32":
		return "float"
	case "Str", "str":
		return "ptr"
	default:
		return "ptr"
	}
}
