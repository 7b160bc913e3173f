// Package mono implements spec §4.6's monomorphizer: it walks the HIR
// worklist-style from the entry function and every non-generic function,
// emitting one concrete specialization per (generic function, type
// argument tuple) pair actually reached by a call, and one concrete
// method per (trait, method, concrete self type) pair reached by a
// trait-dispatched call. The result is a Module with no remaining type
// variable (spec §3 invariant (i)): every Func.TypeParams is empty and
// every CallExpr.TypeArgs is empty.
//
// The worklist is driven by recursion rather than an explicit queue:
// specializing a function walks its body immediately, and a nested
// generic call recurses into specializeCall before returning its
// rewritten Callee. A specialization is registered in the cache before
// its body is walked, so direct or mutual recursion at the same type
// arguments terminates rather than looping.
package mono

import (
	"strings"

	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
)

type specializer struct {
	arena *types.Arena

	// byName indexes every function pkg/typecheck emitted (generic or
	// not), keyed by its pre-monomorphization hir.Func.Name.
	byName map[string]*hir.Func

	// impls indexes each impl method by (trait, method name, concrete
	// ForType), for resolving a CallTrait node (spec §4.6 step 3).
	impls map[string]map[string]map[types.ID]*hir.Func

	cache map[string]*hir.Func
	out   []*hir.Func
}

// Specialize rewrites mod.Funcs in place into its fully monomorphized
// form and returns mod. Seeds are the entry function and every
// non-generic function; everything else is pulled in transitively by
// the calls those seeds make.
func Specialize(mod *hir.Module) *hir.Module {
	s := &specializer{
		arena:  mod.Types,
		byName: map[string]*hir.Func{},
		impls:  map[string]map[string]map[types.ID]*hir.Func{},
		cache:  map[string]*hir.Func{},
	}

	for _, fn := range mod.Funcs {
		s.byName[fn.Name] = fn
	}

	for _, impl := range mod.Impls {
		byMethod, ok := s.impls[impl.Trait]
		if !ok {
			byMethod = map[string]map[types.ID]*hir.Func{}
			s.impls[impl.Trait] = byMethod
		}

		for _, m := range impl.Methods {
			byType, ok := byMethod[m.Name]
			if !ok {
				byType = map[types.ID]*hir.Func{}
				byMethod[m.Name] = byType
			}

			byType[impl.ForType] = m
		}
	}

	if _, ok := s.byName[mod.Entry]; ok {
		s.specializeCall(mod.Entry, nil)
	}

	for _, fn := range mod.Funcs {
		if len(fn.TypeParams) == 0 {
			s.specializeCall(fn.Name, nil)
		}
	}

	mod.Funcs = s.out

	return mod
}

// specializeCall resolves baseName (a pre-monomorphization hir.Func.Name)
// instantiated at typeArgs to its specialization's final name, emitting
// the specialization on first request. A name specialize can't find in
// byName is an extern or intrinsic identifier that slipped through
// unchanged; it's returned as-is.
func (s *specializer) specializeCall(baseName string, typeArgs []types.ID) string {
	fn, ok := s.byName[baseName]
	if !ok {
		return baseName
	}

	name := mangle(s.arena, baseName, typeArgs)
	if _, ok := s.cache[name]; ok {
		return name
	}

	bindings := map[types.ID]types.ID{}
	for i, v := range fn.TypeVars {
		if i < len(typeArgs) {
			bindings[v] = typeArgs[i]
		}
	}

	params := make([]hir.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = hir.Param{Name: p.Name, Type: substType(s.arena, p.Type, bindings)}
	}

	spec := &hir.Func{
		Name:      name,
		Params:    params,
		Result:    substType(s.arena, fn.Result, bindings),
		Effect:    fn.Effect,
		Sp:        fn.Sp,
		RawWasm:   fn.RawWasm,
		RawLLVMIR: fn.RawLLVMIR,
	}

	// Registered before the body is walked so a recursive call back to
	// (baseName, typeArgs) resolves to this same name instead of
	// re-entering specializeCall.
	s.cache[name] = spec
	s.out = append(s.out, spec)

	spec.Body = s.specNode(fn.Body, bindings)

	return name
}

// resolveTraitCall finds the concrete impl method for a CallTrait node
// and specializes it (impls are not themselves generic over Self, so no
// type-argument bindings are threaded through here; spec §4.3). Returns
// "" if no impl satisfies (trait, method, selfTy) — the caller leaves
// the original CallTrait node untouched and lets pkg/wasm's later
// validation catch the dangling dispatch.
func (s *specializer) resolveTraitCall(trait, method string, selfTy types.ID) string {
	byType, ok := s.impls[trait]
	if !ok {
		return ""
	}

	fn, ok := byType[method][selfTy]
	if !ok {
		return ""
	}

	name := sanitize(trait + "_for_" + s.arena.String(selfTy) + "_" + method)
	if _, ok := s.cache[name]; ok {
		return name
	}

	params := make([]hir.Param, len(fn.Params))
	copy(params, fn.Params)

	spec := &hir.Func{
		Name:   name,
		Params: params,
		Result: fn.Result,
		Effect: fn.Effect,
		Sp:     fn.Sp,
	}

	s.cache[name] = spec
	s.out = append(s.out, spec)

	spec.Body = s.specNode(fn.Body, nil)

	return name
}

// specNode clones n with every type substituted via bindings, rewriting
// any nested CallExpr's callee to its specialization and enqueuing that
// specialization's own body for walking. nil in, nil out, so callers
// don't need to guard optional children (e.g. IfExpr.Else, BlockExpr.Value).
func (s *specializer) specNode(n hir.Node, bindings map[types.ID]types.ID) hir.Node {
	if n == nil {
		return nil
	}

	ty := substType(s.arena, n.Type(), bindings)

	switch v := n.(type) {
	case *hir.UnitExpr:
		return &hir.UnitExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}}

	case *hir.LitExpr:
		cp := *v
		cp.Ty = ty

		return &cp

	case *hir.VarExpr:
		cp := *v
		cp.Ty = ty

		return &cp

	case *hir.CallExpr:
		return s.specCall(v, ty, bindings)

	case *hir.IfExpr:
		return &hir.IfExpr{
			Base: hir.Base{Ty: ty, Sp: v.Sp},
			Cond: s.specNode(v.Cond, bindings),
			Then: s.specNode(v.Then, bindings),
			Else: s.specNode(v.Else, bindings),
		}

	case *hir.WhileExpr:
		return &hir.WhileExpr{
			Base: hir.Base{Ty: ty, Sp: v.Sp},
			Cond: s.specNode(v.Cond, bindings),
			Body: s.specNode(v.Body, bindings),
		}

	case *hir.BlockExpr:
		stmts := make([]hir.Node, len(v.Stmts))
		for i, st := range v.Stmts {
			stmts[i] = s.specNode(st, bindings)
		}

		return &hir.BlockExpr{
			Base:  hir.Base{Ty: ty, Sp: v.Sp},
			Stmts: stmts,
			Value: s.specNode(v.Value, bindings),
		}

	case *hir.MatchExpr:
		arms := make([]hir.MatchArm, len(v.Arms))
		for i, a := range v.Arms {
			arms[i] = hir.MatchArm{Tag: a.Tag, Binding: a.Binding, Body: s.specNode(a.Body, bindings)}
		}

		return &hir.MatchExpr{
			Base:      hir.Base{Ty: ty, Sp: v.Sp},
			Scrutinee: s.specNode(v.Scrutinee, bindings),
			Arms:      arms,
		}

	case *hir.EnumConstructExpr:
		payload := make([]hir.Node, len(v.Payload))
		for i, p := range v.Payload {
			payload[i] = s.specNode(p, bindings)
		}

		return &hir.EnumConstructExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Enum: v.Enum, Variant: v.Variant, Payload: payload}

	case *hir.StructConstructExpr:
		fields := make([]hir.Node, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = s.specNode(f, bindings)
		}

		return &hir.StructConstructExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Struct: v.Struct, Fields: fields}

	case *hir.TupleConstructExpr:
		elems := make([]hir.Node, len(v.Elements))
		for i, e := range v.Elements {
			elems[i] = s.specNode(e, bindings)
		}

		return &hir.TupleConstructExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Elements: elems}

	case *hir.LetExpr:
		return &hir.LetExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Name: v.Name, Mut: v.Mut, Value: s.specNode(v.Value, bindings)}

	case *hir.SetExpr:
		return &hir.SetExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Name: v.Name, Value: s.specNode(v.Value, bindings)}

	case *hir.AddrOfExpr:
		cp := *v
		cp.Ty = ty

		return &cp

	case *hir.DerefExpr:
		return &hir.DerefExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Ref: s.specNode(v.Ref, bindings)}

	case *hir.DropExpr:
		cp := *v
		cp.Ty = ty

		return &cp

	case *hir.FieldAccessExpr:
		return &hir.FieldAccessExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Struct: v.Struct, Object: s.specNode(v.Object, bindings), Index: v.Index}

	default:
		return n
	}
}

func (s *specializer) specCall(v *hir.CallExpr, ty types.ID, bindings map[types.ID]types.ID) hir.Node {
	args := make([]hir.Node, len(v.Args))
	for i, a := range v.Args {
		args[i] = s.specNode(a, bindings)
	}

	callee, kind, trait := v.Callee, v.Kind, v.Trait

	switch v.Kind {
	case hir.CallDirect:
		if len(v.TypeArgs) > 0 {
			concrete := make([]types.ID, len(v.TypeArgs))
			for i, t := range v.TypeArgs {
				concrete[i] = substType(s.arena, t, bindings)
			}

			callee = s.specializeCall(v.Callee, concrete)
		}

	case hir.CallTrait:
		if len(args) > 0 {
			if resolved := s.resolveTraitCall(v.Trait, v.Callee, args[0].Type()); resolved != "" {
				callee, kind, trait = resolved, hir.CallDirect, ""
			}
		}
	}

	return &hir.CallExpr{
		Base:     hir.Base{Ty: ty, Sp: v.Sp},
		Kind:     kind,
		Callee:   callee,
		Trait:    trait,
		Args:     args,
		CalleeFn: s.specNode(v.CalleeFn, bindings),
	}
}

// substType mirrors pkg/typecheck/overload.go's substitute: it rebuilds
// id with every bound variable in bindings replaced by its concrete
// type. Kept as an independent copy rather than exported from
// pkg/typecheck, since pkg/mono's substitution walks whole HIR bodies
// (not just a single signature) and gaining a cross-package dependency
// on typecheck's internals for ~30 lines wasn't worth it at this stage.
func substType(arena *types.Arena, id types.ID, bindings map[types.ID]types.ID) types.ID {
	if bound, ok := bindings[id]; ok {
		return bound
	}

	switch k := arena.Kind(id).(type) {
	case types.Tuple:
		elems := make([]types.ID, len(k.Elements))
		for i, e := range k.Elements {
			elems[i] = substType(arena, e, bindings)
		}

		return arena.Intern(types.Tuple{Elements: elems})

	case types.Application:
		args := make([]types.ID, len(k.Args))
		for i, a := range k.Args {
			args[i] = substType(arena, a, bindings)
		}

		return arena.Intern(types.Application{Constructor: k.Constructor, Args: args})

	case types.Reference:
		return arena.Intern(types.Reference{Inner: substType(arena, k.Inner, bindings), Mut: k.Mut})

	case types.Boxed:
		return arena.Intern(types.Boxed{Inner: substType(arena, k.Inner, bindings)})

	default:
		return id
	}
}

// mangle builds a specialization's name: the generic function's base
// name with each concrete type argument appended (spec §4.6 "a fresh
// specialization with a deterministically mangled name"). A non-generic
// function (typeArgs empty) keeps its base name unchanged.
func mangle(arena *types.Arena, baseName string, typeArgs []types.ID) string {
	if len(typeArgs) == 0 {
		return baseName
	}

	parts := make([]string, len(typeArgs))
	for i, id := range typeArgs {
		parts[i] = arena.String(id)
	}

	return sanitize(baseName + "_" + strings.Join(parts, "_"))
}

func sanitize(s string) string {
	r := strings.NewReplacer(
		"::", "__", "<", "_", ">", "_", ",", "_", "(", "", ")", "",
		" ", "", "->", "_to_", "&", "ref", "*", "", "?", "v",
	)

	return r.Replace(s)
}
