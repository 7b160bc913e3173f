package typecheck

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
)

// checkFuncs lowers every declared function into hir.Funcs. Modules
// and names are visited in map order, so the order of the resulting
// Funcs is not fixed. A raw wasm/llvm-ir body carries no HIR:
// its captured lines are copied onto the lowered hir.Func's own
// RawWasm/RawLLVMIR field instead, and Body is left nil (spec §4.3's
// raw-body functions bypass the expression checker entirely; only
// their declared signature is type-checked here).
func (c *Checker) checkFuncs() {
	for modPath, byName := range c.funcs {
		for _, set := range byName {
			for _, fn := range set {
				c.checkOneFunc(modPath, fn)
			}
		}
	}
}

func (c *Checker) checkOneFunc(modPath string, fn *ast.FuncDef) {
	env := map[string]types.ID{}
	typeVars := make([]types.ID, len(fn.TypeParams))

	for i, tp := range fn.TypeParams {
		v := c.arena.Fresh()
		env[tp] = v
		typeVars[i] = v
	}

	params := make([]hir.Param, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = hir.Param{Name: p.Name, Type: c.resolveType(modPath, p.Type, env)}
	}

	result := c.resolveType(modPath, fn.Result, env)
	declaredEffect := astEffect(fn.Effect)

	fc := &funcCtx{c: c, modPath: modPath, declaredEffect: declaredEffect, typeEnv: env}

	var body hir.Node

	switch fn.BodyKind {
	case ast.BodyBlock:
		top := newScope(nil)
		for i, p := range params {
			top.define(p.Name, p.Type, false)
		}

		body = c.checkBlock(fn.Body, top, result, fc)

		if fc.declaredEffect == types.Pure && fc.inferredEffect == types.Impure {
			c.diags.Add(diag.Newf(diag.CodeEffectViolation, fn.Sp,
				"%q is declared pure but calls an impure function", fn.Name))
		}

	case ast.BodyRawWasm, ast.BodyRawLLVMIR:
		// No HIR body to check; pkg/wasm reads fn.RawWasm straight off
		// the lowered hir.Func below (pkg/llvmir reads ast.FuncDef).
	}

	c.out.Funcs = append(c.out.Funcs, &hir.Func{
		Name:       c.mangled[fn],
		TypeParams: fn.TypeParams,
		TypeVars:   typeVars,
		Params:     params,
		Result:     result,
		Effect:     declaredEffect,
		Body:       body,
		Sp:         fn.Sp,
		RawWasm:    fn.RawWasm,
		RawLLVMIR:  fn.RawLLVMIR,
	})
}

// checkExterns lowers every #extern directive into an hir.Extern. An
// extern only reaches c.externs at all if indexModule's walkTop found
// its enclosing gate (if any) satisfied for the active target/profile,
// so no further target-compatibility check is needed here (spec §8:
// a WASI-only extern is simply absent from a wasm-target build's
// index, not rejected with a diagnostic).
func (c *Checker) checkExterns() {
	for modPath, byLocal := range c.externs {
		for _, d := range byLocal {
			sig := c.resolveType(modPath, d.ExternSig, nil)

			c.out.Externs = append(c.out.Externs, &hir.Extern{
				Module: d.ExternModule,
				Name:   d.ExternName,
				Local:  sanitize(modPath + "::" + d.ExternLocal),
				Sig:    sig,
				Sp:     d.Sp,
			})
		}
	}
}

// checkImpls lowers each "impl Trait for Type" block's methods into
// ordinary hir.Funcs scoped to the concrete ForType, and checks that
// every method the trait declares is implemented with a matching
// arity. Self is resolved directly to ForType's concrete type: impls
// are not themselves generic over Self, only over the trait's own
// type parameters (spec §4.3).
func (c *Checker) checkImpls() {
	for modPath, defs := range c.impls {
		for _, impl := range defs {
			c.checkOneImpl(modPath, impl)
		}
	}
}

func (c *Checker) checkOneImpl(modPath string, impl *ast.ImplDef) {
	forType := c.resolveType(modPath, impl.ForType, nil)

	traitMod, traitLocal := modPath, impl.Trait
	if tm, tn, _, ok := c.resolveBinding(modPath, impl.Trait); ok {
		traitMod, traitLocal = tm, tn
	}

	traitDef := c.traits[traitMod][traitLocal]

	methods := make([]*hir.Func, 0, len(impl.Methods))

	for _, fn := range impl.Methods {
		env := map[string]types.ID{"Self": forType}
		typeVars := make([]types.ID, len(fn.TypeParams))

		for i, tp := range fn.TypeParams {
			v := c.arena.Fresh()
			env[tp] = v
			typeVars[i] = v
		}

		params := make([]hir.Param, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = hir.Param{Name: p.Name, Type: c.resolveType(modPath, p.Type, env)}
		}

		result := c.resolveType(modPath, fn.Result, env)
		fc := &funcCtx{c: c, modPath: modPath, declaredEffect: astEffect(fn.Effect), typeEnv: env}

		top := newScope(nil)
		for _, p := range params {
			top.define(p.Name, p.Type, false)
		}

		var body hir.Node
		if fn.BodyKind == ast.BodyBlock {
			body = c.checkBlock(fn.Body, top, result, fc)
		}

		methods = append(methods, &hir.Func{
			// Bare method name: scoped by this Impl's (Trait, ForType),
			// not by the flat Funcs table, so no module/type mangling is
			// needed here. pkg/mono gives each monomorphized impl method
			// its final globally-unique name when flattening Impls into
			// the output function table.
			Name:       fn.Name,
			TypeParams: fn.TypeParams,
			TypeVars:   typeVars,
			Params:     params,
			Result:     result,
			Effect:     astEffect(fn.Effect),
			Body:       body,
			Sp:         fn.Sp,
			RawWasm:    fn.RawWasm,
			RawLLVMIR:  fn.RawLLVMIR,
		})
	}

	if traitDef != nil {
		for _, sig := range traitDef.Methods {
			if !hasMethod(impl.Methods, sig.Name) {
				c.diags.Add(diag.Newf(diag.CodeUnknownName, impl.Sp,
					"impl of %q for this type is missing method %q", impl.Trait, sig.Name))
			}
		}
	}

	c.out.Impls = append(c.out.Impls, &hir.Impl{
		Trait:   traitMod + "::" + traitLocal,
		ForType: forType,
		Methods: methods,
		Sp:      impl.Sp,
	})
}

func hasMethod(methods []*ast.FuncDef, name string) bool {
	for _, m := range methods {
		if m.Name == name {
			return true
		}
	}

	return false
}

// checkTraits records each trait's method table for pkg/mono's
// trait-dispatch rewrite (spec §4.6: a trait-dispatched call is
// resolved to a concrete impl by (trait, method, concrete Self type)).
func (c *Checker) checkTraits() {
	for modPath, byName := range c.traits {
		for _, t := range byName {
			methods := make([]hir.TraitMethod, len(t.Methods))

			for i, sig := range t.Methods {
				env := map[string]types.ID{}
				for _, tp := range t.TypeParams {
					env[tp] = c.arena.Fresh()
				}

				params := make([]types.ID, len(sig.Params))
				for j, p := range sig.Params {
					params[j] = c.resolveType(modPath, p, env)
				}

				methods[i] = hir.TraitMethod{
					Name:   sig.Name,
					Params: params,
					Result: c.resolveType(modPath, sig.Result, env),
					Effect: types.Pure,
				}
			}

			c.out.Traits = append(c.out.Traits, &hir.Trait{
				Name:       modPath + "::" + t.Name,
				TypeParams: t.TypeParams,
				Methods:    methods,
				Sp:         t.Sp,
			})
		}
	}
}
