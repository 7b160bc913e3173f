package typecheck

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
)

// unify binds free variables in declared against the concrete structure
// of actual, recording each binding in bindings. It never unifies two
// variables with each other: every generic parameter is eventually
// called with a concrete argument or an expected concrete result, per
// spec §4.5's "unified from arguments and the expected type".
func unify(arena *types.Arena, declared, actual types.ID, bindings map[types.ID]types.ID) bool {
	if arena.IsVar(declared) {
		if bound, ok := bindings[declared]; ok {
			return bound == actual
		}

		bindings[declared] = actual

		return true
	}

	if declared == actual {
		return true
	}

	switch d := arena.Kind(declared).(type) {
	case types.Tuple:
		a, ok := arena.Kind(actual).(types.Tuple)
		if !ok || len(a.Elements) != len(d.Elements) {
			return false
		}

		for i := range d.Elements {
			if !unify(arena, d.Elements[i], a.Elements[i], bindings) {
				return false
			}
		}

		return true

	case types.Application:
		a, ok := arena.Kind(actual).(types.Application)
		if !ok || a.Constructor != d.Constructor || len(a.Args) != len(d.Args) {
			return false
		}

		for i := range d.Args {
			if !unify(arena, d.Args[i], a.Args[i], bindings) {
				return false
			}
		}

		return true

	case types.Reference:
		a, ok := arena.Kind(actual).(types.Reference)
		if !ok || a.Mut != d.Mut {
			return false
		}

		return unify(arena, d.Inner, a.Inner, bindings)

	case types.Boxed:
		a, ok := arena.Kind(actual).(types.Boxed)
		if !ok {
			return false
		}

		return unify(arena, d.Inner, a.Inner, bindings)

	default:
		return false
	}
}

// substitute rebuilds id with every bound variable replaced, producing
// the concrete instantiation of a generic parameter/result type once
// its call-site bindings are known.
func substitute(arena *types.Arena, id types.ID, bindings map[types.ID]types.ID) types.ID {
	if bound, ok := bindings[id]; ok {
		return bound
	}

	switch k := arena.Kind(id).(type) {
	case types.Tuple:
		elems := make([]types.ID, len(k.Elements))
		for i, e := range k.Elements {
			elems[i] = substitute(arena, e, bindings)
		}

		return arena.Intern(types.Tuple{Elements: elems})

	case types.Application:
		args := make([]types.ID, len(k.Args))
		for i, a := range k.Args {
			args[i] = substitute(arena, a, bindings)
		}

		return arena.Intern(types.Application{Constructor: k.Constructor, Args: args})

	case types.Reference:
		return arena.Intern(types.Reference{Inner: substitute(arena, k.Inner, bindings), Mut: k.Mut})

	case types.Boxed:
		return arena.Intern(types.Boxed{Inner: substitute(arena, k.Inner, bindings)})

	default:
		return id
	}
}

// callCandidate is one surviving overload after argument-type filtering.
type callCandidate struct {
	fn       *ast.FuncDef
	result   types.ID
	typeArgs []types.ID // in fn.TypeParams order, after substitution
}

// resolveOverload implements spec §4.5's overload resolution: filter by
// arity (already done by the caller, which only gathers a set sharing
// sym's popped-argument count), then by whether the candidate's declared
// parameter types unify with the actual argument types, then — if more
// than one candidate remains — by the expected result type. >1 surviving
// candidate after both filters is reported ambiguous.
func (c *Checker) resolveOverload(modPath string, sym *ast.SymbolItem, set []*ast.FuncDef, args []hir.Node, expected types.ID) (*callCandidate, bool) {
	var survivors []*callCandidate

	for _, fn := range set {
		if len(fn.Params) != len(args) {
			continue
		}

		env, explicit := c.typeArgEnv(modPath, fn, sym)
		if !explicit {
			continue
		}

		bindings := map[types.ID]types.ID{}

		ok := true
		for i, p := range fn.Params {
			declared := c.resolveType(modPath, p.Type, env)
			if !unify(c.arena, declared, args[i].Type(), bindings) {
				ok = false
				break
			}
		}

		if !ok {
			continue
		}

		result := substitute(c.arena, c.resolveType(modPath, fn.Result, env), bindings)

		typeArgs := make([]types.ID, len(fn.TypeParams))
		for i, tp := range fn.TypeParams {
			if v, ok := bindings[env[tp]]; ok {
				typeArgs[i] = v
			} else {
				typeArgs[i] = env[tp]
			}
		}

		survivors = append(survivors, &callCandidate{fn: fn, result: result, typeArgs: typeArgs})
	}

	if len(survivors) > 1 && isConcrete(c.arena, expected) {
		var narrowed []*callCandidate

		for _, s := range survivors {
			if s.result == expected {
				narrowed = append(narrowed, s)
			}
		}

		if len(narrowed) >= 1 {
			survivors = narrowed
		}
	}

	if len(survivors) == 0 {
		c.diags.Add(diag.Newf(diag.CodeUnresolvedOverload, sym.Sp,
			"no overload of %q matches the given argument types", sym.Name))

		return nil, false
	}

	if len(survivors) > 1 {
		c.diags.Add(diag.Newf(diag.CodeUnresolvedOverload, sym.Sp,
			"call to %q is ambiguous among %d overloads", sym.Name, len(survivors)))

		return nil, false
	}

	return survivors[0], true
}

func isConcrete(arena *types.Arena, id types.ID) bool {
	return id != 0 && !arena.IsVar(id)
}

// typeArgEnv builds the generic-parameter environment for one call of
// fn: explicit type arguments (name<T,U>) bind positionally; otherwise
// every parameter gets a fresh variable for unify to solve. Reports
// false if explicit type arguments were given but their count doesn't
// match fn's arity.
func (c *Checker) typeArgEnv(modPath string, fn *ast.FuncDef, sym *ast.SymbolItem) (map[string]types.ID, bool) {
	env := map[string]types.ID{}

	if len(sym.TypeArgs) > 0 {
		if len(sym.TypeArgs) != len(fn.TypeParams) {
			return nil, false
		}

		for i, tp := range fn.TypeParams {
			env[tp] = c.resolveType(modPath, sym.TypeArgs[i], nil)
		}

		return env, true
	}

	for _, tp := range fn.TypeParams {
		env[tp] = c.arena.Fresh()
	}

	return env, true
}
