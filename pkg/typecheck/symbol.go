package typecheck

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
)

// checkSymbol resolves one bare-identifier item: a local variable read
// (no pop), an enum-variant or struct constructor call, a user function
// call (possibly overloaded and/or generic), or a compiler intrinsic.
// pop(k) extracts k already-reduced values, in source left-to-right
// order, from the enclosing reduceStack's value stack.
func (c *Checker) checkSymbol(fc *funcCtx, s *scope, v *ast.SymbolItem, hint types.ID, pop func(int) []hir.Node) hir.Node {
	if info, ok := s.lookup(v.Name); ok {
		return &hir.VarExpr{Base: hir.Base{Ty: info.ty, Sp: v.Sp}, Name: v.Name}
	}

	if modPath, ref, ok := c.lookupVariant(fc.modPath, v.Name); ok {
		return c.checkEnumConstruct(fc, v, modPath, ref, pop)
	}

	// Extern declarations are directives, not resolver-indexed locals
	// (pkg/resolver's Visible table only tracks fn/struct/enum/trait/
	// alias definitions), so a bare extern name is only callable from
	// its own declaring module — the same simplification lookupVariant
	// makes for bare enum variants.
	if d, ok := c.externs[fc.modPath][v.Name]; ok {
		return c.checkExternCall(fc, v, fc.modPath, d, pop)
	}

	if targetMod, localName, ambiguous, ok := c.resolveBinding(fc.modPath, v.Name); ok {
		if ambiguous {
			c.diags.Add(diag.Newf(diag.CodeAmbiguousName, v.Sp, "%q is ambiguous between multiple open imports", v.Name))
		}

		if sd, ok := c.structs[targetMod][localName]; ok {
			return c.checkStructConstruct(fc, v, targetMod, sd, pop)
		}

		if set, ok := c.funcs[targetMod][localName]; ok {
			return c.checkCall(fc, v, targetMod, set, hint, pop)
		}

		if alias, ok := c.aliases[targetMod][localName]; ok {
			if set, ok := c.funcs[targetMod][alias.Alias]; ok {
				return c.checkCall(fc, v, targetMod, set, hint, pop)
			}
		}
	}

	if spec, ok := intrinsics[v.Name]; ok {
		args := pop(spec.arity)

		if spec.class == intrinsicBlock {
			// "block" is not a CallExpr: it wraps its one argument as a
			// nested one-statement block (SPEC_FULL §12's resolution of
			// the `if true block 1 else block 2` open question), reusing
			// hir.BlockExpr so pkg/drop/pkg/mono/pkg/wasm's existing
			// block-scope handling applies unchanged.
			return &hir.BlockExpr{Base: hir.Base{Ty: args[0].Type(), Sp: v.Sp}, Value: args[0]}
		}

		argTypes := make([]types.ID, len(args))
		for i, a := range args {
			argTypes[i] = a.Type()
		}

		result, ok := c.intrinsicResult(v.Name, argTypes)
		if !ok {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp, "intrinsic %q does not accept these argument types", v.Name))
			result = c.arena.Primitive(types.Never)
		}

		return &hir.CallExpr{Base: hir.Base{Ty: result, Sp: v.Sp}, Kind: hir.CallIntrinsic, Callee: v.Name, Args: args}
	}

	c.diags.Add(diag.Newf(diag.CodeUnknownName, v.Sp, "%q is not defined", v.Name))

	return errNode(c, v.Sp)
}

func (c *Checker) checkCall(fc *funcCtx, v *ast.SymbolItem, targetMod string, set []*ast.FuncDef, hint types.ID, pop func(int) []hir.Node) hir.Node {
	if len(set) == 0 {
		c.diags.Add(diag.Newf(diag.CodeUnknownName, v.Sp, "%q is not defined", v.Name))
		return errNode(c, v.Sp)
	}

	arity := len(set[0].Params)
	args := pop(arity)

	cand, ok := c.resolveOverload(targetMod, v, set, args, hint)
	if !ok {
		return errNode(c, v.Sp)
	}

	fc.noteCall(astEffect(cand.fn.Effect))

	return &hir.CallExpr{
		Base:     hir.Base{Ty: cand.result, Sp: v.Sp},
		Kind:     hir.CallDirect,
		Callee:   c.mangled[cand.fn],
		Args:     args,
		TypeArgs: cand.typeArgs,
	}
}

// checkExternCall type-checks a call to a host import. Its callee name
// mirrors mangleOverloads' "module::local" scheme (sanitized) so
// pkg/wasm can recognize the same identifier whether it names a
// monomorphized function or an extern.
func (c *Checker) checkExternCall(fc *funcCtx, v *ast.SymbolItem, modPath string, d ast.Directive, pop func(int) []hir.Node) hir.Node {
	sig, ok := c.arena.Kind(c.resolveType(modPath, d.ExternSig, nil)).(types.Function)
	if !ok {
		c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp, "%q has no callable signature", v.Name))
		return errNode(c, v.Sp)
	}

	args := pop(len(sig.Params))

	for i, want := range sig.Params {
		if i < len(args) && args[i].Type() != want && args[i].Type() != c.arena.Primitive(types.Never) {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
				"argument %d to %q has type %s, expected %s",
				i+1, v.Name, c.arena.String(args[i].Type()), c.arena.String(want)))
		}
	}

	fc.noteCall(types.Impure)

	return &hir.CallExpr{
		Base:   hir.Base{Ty: sig.Result, Sp: v.Sp},
		Kind:   hir.CallDirect,
		Callee: sanitize(modPath + "::" + d.ExternLocal),
		Args:   args,
	}
}

func (c *Checker) checkEnumConstruct(fc *funcCtx, v *ast.SymbolItem, modPath string, ref variantRef, pop func(int) []hir.Node) hir.Node {
	variant := ref.enum.Variants[ref.index]
	args := pop(len(variant.Payload))

	env := map[string]types.ID{}

	if len(v.TypeArgs) > 0 {
		if len(v.TypeArgs) != len(ref.enum.TypeParams) {
			c.diags.Add(diag.Newf(diag.CodeArityMismatch, v.Sp,
				"%q expects %d type argument(s)", v.Name, len(ref.enum.TypeParams)))
		} else {
			for i, tp := range ref.enum.TypeParams {
				env[tp] = c.resolveType(fc.modPath, v.TypeArgs[i], fc.typeEnv)
			}
		}
	} else {
		for _, tp := range ref.enum.TypeParams {
			env[tp] = c.arena.Fresh()
		}

		bindings := map[types.ID]types.ID{}

		for i, f := range variant.Payload {
			if i >= len(args) {
				break
			}

			unify(c.arena, c.resolveType(modPath, f.Type, env), args[i].Type(), bindings)
		}

		for tp, id := range env {
			if b, ok := bindings[id]; ok {
				env[tp] = b
			}
		}
	}

	typeArgs := make([]types.ID, len(ref.enum.TypeParams))
	for i, tp := range ref.enum.TypeParams {
		typeArgs[i] = env[tp]
	}

	qualified := modPath + "::" + ref.enum.Name

	resultTy := c.arena.Intern(types.Named{Symbol: qualified})
	if len(typeArgs) > 0 {
		resultTy = c.arena.Intern(types.Application{Constructor: qualified, Args: typeArgs})
	}

	return &hir.EnumConstructExpr{
		Base:    hir.Base{Ty: resultTy, Sp: v.Sp},
		Enum:    qualified,
		Variant: variant.Name,
		Payload: args,
	}
}

func (c *Checker) checkStructConstruct(fc *funcCtx, v *ast.SymbolItem, modPath string, sd *ast.StructDef, pop func(int) []hir.Node) hir.Node {
	args := pop(len(sd.Fields))

	env := map[string]types.ID{}

	if len(v.TypeArgs) > 0 && len(v.TypeArgs) == len(sd.TypeParams) {
		for i, tp := range sd.TypeParams {
			env[tp] = c.resolveType(fc.modPath, v.TypeArgs[i], fc.typeEnv)
		}
	} else {
		for _, tp := range sd.TypeParams {
			env[tp] = c.arena.Fresh()
		}

		bindings := map[types.ID]types.ID{}

		for i, f := range sd.Fields {
			if i >= len(args) {
				break
			}

			unify(c.arena, c.resolveType(modPath, f.Type, env), args[i].Type(), bindings)
		}

		for tp, id := range env {
			if b, ok := bindings[id]; ok {
				env[tp] = b
			}
		}
	}

	typeArgs := make([]types.ID, len(sd.TypeParams))
	for i, tp := range sd.TypeParams {
		typeArgs[i] = env[tp]
	}

	qualified := modPath + "::" + sd.Name

	resultTy := c.arena.Intern(types.Named{Symbol: qualified})
	if len(typeArgs) > 0 {
		resultTy = c.arena.Intern(types.Application{Constructor: qualified, Args: typeArgs})
	}

	return &hir.StructConstructExpr{Base: hir.Base{Ty: resultTy, Sp: v.Sp}, Struct: qualified, Fields: args}
}

// lookupVariant resolves a (possibly "Enum::Variant"-qualified) name to
// its declaring enum. An unqualified name is searched among the current
// module's own enums only — cross-module bare variant names require an
// explicit "alias::Enum::Variant" or local re-export, a deliberate
// simplification recorded in DESIGN.md.
func (c *Checker) lookupVariant(modPath, name string) (string, variantRef, bool) {
	if prefixMod, prefixLocal, variant, ok := splitVariantPath(name); ok {
		targetMod, localEnum, _, rok := c.resolveBinding(modPath, prefixLocal)
		if !rok {
			targetMod, localEnum = modPath, prefixLocal
		}

		_ = prefixMod

		if enumDef, ok := c.enums[targetMod][localEnum]; ok {
			for idx, vr := range enumDef.Variants {
				if vr.Name == variant {
					return targetMod, variantRef{enum: enumDef, index: idx}, true
				}
			}
		}

		return "", variantRef{}, false
	}

	for _, enumDef := range c.enums[modPath] {
		for idx, vr := range enumDef.Variants {
			if vr.Name == name {
				return modPath, variantRef{enum: enumDef, index: idx}, true
			}
		}
	}

	return "", variantRef{}, false
}

// splitVariantPath splits "Enum::Variant" into its two parts. Returns ok
// = false for a bare (unqualified) name.
func splitVariantPath(name string) (prefixMod, prefixLocal, variant string, ok bool) {
	idx := -1

	for i := len(name) - 2; i >= 0; i-- {
		if name[i] == ':' && name[i+1] == ':' {
			idx = i
			break
		}
	}

	if idx < 0 {
		return "", "", "", false
	}

	return "", name[:idx], name[idx+2:], true
}
