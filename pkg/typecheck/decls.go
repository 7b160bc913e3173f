// Package typecheck implements spec §4.5's bidirectional, stack-oriented
// checker: it folds each module's flat prefix-expression lines into a
// typed hir.Module, resolving overloads, generics, pipes, and effects
// along the way.
//
// Grounded on go-corset's pkg/corset/compiler/typing.go and resolver.go
// (bottom-up expected-type threading, candidate filtering by arity then
// by argument/result type), adapted from Corset's single-purity
// constraint typing to NEPL's overload+generic+effect system.
package typecheck

import (
	"fmt"
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/resolver"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
)

// Checker holds the whole-program declaration index plus the shared
// type arena every module's signatures and bodies are resolved into
// (spec §5: a single compilation call owns all of its types).
type Checker struct {
	diags  *diag.Set
	arena  *types.Arena
	mods   map[string]*resolver.Module
	target string
	profile string

	funcs   map[string]map[string][]*ast.FuncDef
	aliases map[string]map[string]*ast.FuncAlias
	structs map[string]map[string]*ast.StructDef
	enums   map[string]map[string]*ast.EnumDef
	traits  map[string]map[string]*ast.TraitDef
	impls   map[string][]*ast.ImplDef
	externs map[string]map[string]ast.Directive

	// variants maps a qualified "EnumName::Variant" name (within one
	// module) to its declaring enum and variant index.
	variants map[string]map[string]variantRef

	// mangled caches each FuncDef's stable, declaration-time overload
	// name (spec §4.5 "internally renamed by a deterministic mangling
	// over argument/return types").
	mangled map[*ast.FuncDef]string

	out *hir.Module
}

type variantRef struct {
	enum  *ast.EnumDef
	index int
}

// Check resolves every module in mods into one flat hir.Module. entryPath
// names the module carrying the compilation's #entry function;
// entryFuncName is that function's declared (unmangled) name. target and
// profile are the already-resolved compile options (spec §6).
func Check(diags *diag.Set, mods map[string]*resolver.Module, entryPath, entryFuncName, target, profile string) *hir.Module {
	c := &Checker{
		diags:    diags,
		arena:    types.NewArena(),
		mods:     mods,
		target:   target,
		profile:  profile,
		funcs:    map[string]map[string][]*ast.FuncDef{},
		aliases:  map[string]map[string]*ast.FuncAlias{},
		structs:  map[string]map[string]*ast.StructDef{},
		enums:    map[string]map[string]*ast.EnumDef{},
		traits:   map[string]map[string]*ast.TraitDef{},
		impls:    map[string][]*ast.ImplDef{},
		externs:  map[string]map[string]ast.Directive{},
		variants: map[string]map[string]variantRef{},
		mangled:  map[*ast.FuncDef]string{},
	}

	c.out = &hir.Module{Types: c.arena, Entry: entryFuncName}

	for path, m := range mods {
		c.indexModule(path, m.AST)
	}

	c.mangleOverloads()
	c.checkExterns()
	c.checkFuncs()
	c.checkImpls()
	c.checkTraits()

	// Entry starts out holding the declared bare name; once overloads are
	// mangled it is rewritten to the matching hir.Func.Name so pkg/mono
	// and pkg/wasm can find the entry point without re-deriving module
	// paths from a bare name.
	if set, ok := c.funcs[entryPath][entryFuncName]; ok && len(set) > 0 {
		c.out.Entry = c.mangled[set[0]]
	} else if alias, ok := c.aliases[entryPath][entryFuncName]; ok {
		if set, ok := c.funcs[entryPath][alias.Alias]; ok && len(set) > 0 {
			c.out.Entry = c.mangled[set[0]]
		} else {
			c.diags.Add(diag.Newf(diag.CodeUnknownName, source.Span{},
				"#entry %q does not name a function in %q", entryFuncName, entryPath))
		}
	} else {
		c.diags.Add(diag.Newf(diag.CodeUnknownName, source.Span{},
			"#entry %q does not name a function in %q", entryFuncName, entryPath))
	}

	return c.out
}

// walkTop delegates to ast.WalkTop under this checker's active
// target/profile, shared with pkg/llvmir so both backends agree on
// which statements a given build sees (spec §4.5 "skipped statements
// are not checked and their identifiers do not enter scope").
func (c *Checker) walkTop(mod *ast.Module, fn func(ast.Stmt)) {
	ast.WalkTop(mod, c.target, c.profile, fn)
}

func (c *Checker) indexModule(path string, mod *ast.Module) {
	c.funcs[path] = map[string][]*ast.FuncDef{}
	c.aliases[path] = map[string]*ast.FuncAlias{}
	c.structs[path] = map[string]*ast.StructDef{}
	c.enums[path] = map[string]*ast.EnumDef{}
	c.traits[path] = map[string]*ast.TraitDef{}
	c.externs[path] = map[string]ast.Directive{}
	c.variants[path] = map[string]variantRef{}

	c.walkTop(mod, func(st ast.Stmt) {
		switch s := st.(type) {
		case *ast.FuncDef:
			c.funcs[path][s.Name] = append(c.funcs[path][s.Name], s)
		case *ast.FuncAlias:
			c.aliases[path][s.Name] = s
		case *ast.StructDef:
			c.structs[path][s.Name] = s
		case *ast.EnumDef:
			c.enums[path][s.Name] = s
			for i, v := range s.Variants {
				c.variants[path][s.Name+"::"+v.Name] = variantRef{enum: s, index: i}
			}
		case *ast.TraitDef:
			c.traits[path][s.Name] = s
		case *ast.ImplDef:
			c.impls[path] = append(c.impls[path], s)
		case *ast.DirectiveStmt:
			if s.Directive.Kind == ast.DirExtern {
				c.externs[path][s.Directive.ExternLocal] = s.Directive
			}
		}
	})
}

// resolveBinding routes a bare identifier used inside module from to its
// declaring module + local name, via that module's resolver.Module.Visible
// table (which already folds in locals, opens, selective imports, and
// pub-reexport chains — spec §4.4). ok is false for an unknown name;
// ambiguous is true when two open imports collide with nothing to break
// the tie.
func (c *Checker) resolveBinding(from, name string) (modPath, local string, ambiguous, ok bool) {
	m, present := c.mods[from]
	if !present {
		return "", "", false, false
	}

	b, present := m.Visible[name]
	if !present {
		return "", "", false, false
	}

	return b.SourceModule, b.SourceName, b.Ambiguous, true
}

// resolveType lowers a surface TypeExpr into the shared arena. env maps
// in-scope generic parameter names (without their leading '.') to the
// types.ID standing in for them — either a fixed marker (signature
// mangling) or a fresh inference variable (body/call checking).
func (c *Checker) resolveType(modPath string, te ast.TypeExpr, env map[string]types.ID) types.ID {
	switch t := te.(type) {
	case nil:
		return c.arena.Primitive(types.Unit)

	case *ast.NamedTypeExpr:
		if prim, ok := primitiveByName(t.Name); ok && len(t.Args) == 0 {
			return c.arena.Primitive(prim)
		}

		targetMod, targetName, _, ok := c.resolveBinding(modPath, t.Name)
		qualified := t.Name
		if ok {
			qualified = targetMod + "::" + targetName
		}

		if len(t.Args) == 0 {
			return c.arena.Intern(types.Named{Symbol: qualified})
		}

		args := make([]types.ID, len(t.Args))
		for i, a := range t.Args {
			args[i] = c.resolveType(modPath, a, env)
		}

		return c.arena.Intern(types.Application{Constructor: qualified, Args: args})

	case *ast.GenericParamTypeExpr:
		if id, ok := env[t.Name]; ok {
			return id
		}

		c.diags.Add(diag.Newf(diag.CodeGenericSyntax, t.Sp,
			"%q is not a declared generic parameter in this scope", t.Name))

		return c.arena.Primitive(types.Never)

	case *ast.RefTypeExpr:
		return c.arena.Intern(types.Reference{Inner: c.resolveType(modPath, t.Inner, env), Mut: t.Mut})

	case *ast.BoxedTypeExpr:
		return c.arena.Intern(types.Boxed{Inner: c.resolveType(modPath, t.Inner, env)})

	case *ast.TupleTypeExpr:
		elems := make([]types.ID, len(t.Elems))
		for i, e := range t.Elems {
			elems[i] = c.resolveType(modPath, e, env)
		}

		return c.arena.Intern(types.Tuple{Elements: elems})

	case *ast.FuncTypeExpr:
		inner := env
		if len(t.TypeParams) > 0 {
			inner = cloneEnv(env)
			for _, p := range t.TypeParams {
				inner[p] = c.arena.Fresh()
			}
		}

		params := make([]types.ID, len(t.Params))
		for i, p := range t.Params {
			params[i] = c.resolveType(modPath, p, inner)
		}

		return c.arena.Intern(types.Function{
			TypeParams: t.TypeParams,
			Params:     params,
			Result:     c.resolveType(modPath, t.Result, inner),
			Effect:     astEffect(t.Effect),
		})

	default:
		return c.arena.Primitive(types.Never)
	}
}

func cloneEnv(env map[string]types.ID) map[string]types.ID {
	out := make(map[string]types.ID, len(env)+1)
	for k, v := range env {
		out[k] = v
	}

	return out
}

func primitiveByName(name string) (types.Primitive, bool) {
	switch name {
	case "Unit", "unit":
		return types.Unit, true
	case "I32", "i32":
		return types.I32, true
	case "U8", "u8":
		return types.U8, true
	case "F32", "f32":
		return types.F32, true
	case "Bool", "bool":
		return types.Bool, true
	case "Never", "never":
		return types.Never, true
	case "Str", "str":
		return types.Str, true
	default:
		return "", false
	}
}

func astEffect(e ast.Effect) types.Effect {
	if e == ast.Impure {
		return types.Impure
	}

	return types.Pure
}

// mangleOverloads assigns every FuncDef its stable HIR name. A singleton
// overload set keeps its bare "module::name"; a genuinely overloaded set
// is suffixed with its declared parameter/result shape so distinct
// overloads never collide (spec §4.5 "internally renamed by a
// deterministic mangling"). Either name is then passed through sanitize,
// so "::" appears as "__" in the final name.
func (c *Checker) mangleOverloads() {
	for modPath, byName := range c.funcs {
		for name, set := range byName {
			base := modPath + "::" + name

			if len(set) == 1 {
				c.mangled[set[0]] = sanitize(base)
				continue
			}

			for _, fn := range set {
				env := map[string]types.ID{}
				for _, tp := range fn.TypeParams {
					env[tp] = c.arena.Intern(types.Label{Name: fn.Name + "." + tp})
				}

				parts := make([]string, len(fn.Params))
				for i, p := range fn.Params {
					parts[i] = c.arena.String(c.resolveType(modPath, p.Type, env))
				}

				result := c.arena.String(c.resolveType(modPath, fn.Result, env))
				mangled := fmt.Sprintf("%s$%s->%s", base, strings.Join(parts, ","), result)
				c.mangled[fn] = sanitize(mangled)
			}
		}
	}
}

func sanitize(s string) string {
	r := strings.NewReplacer(
		"::", "__", "<", "_", ">", "_", ",", "_", "(", "", ")", "",
		" ", "", "->", "_to_", "&", "ref", "*", "", "?", "v",
	)

	return r.Replace(s)
}
