package typecheck

import (
	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/types"
)

// checkFieldSet lowers "StructName::field_set inst field v" (SPEC_FULL
// §12's struct field update sugar) into a struct reconstruction: the
// instance is bound once to a synthetic local, then a fresh
// StructConstructExpr copies every field across via FieldAccessExpr
// except the named one, which takes the new value instead.
func (c *Checker) checkFieldSet(fc *funcCtx, s *scope, v *ast.FieldSetItem) hir.Node {
	targetMod, localName, ambiguous, ok := c.resolveBinding(fc.modPath, v.Struct)
	if !ok {
		c.diags.Add(diag.Newf(diag.CodeUnknownName, v.Sp, "%q is not defined", v.Struct))
		return errNode(c, v.Sp)
	}

	if ambiguous {
		c.diags.Add(diag.Newf(diag.CodeAmbiguousName, v.Sp, "%q is ambiguous between multiple open imports", v.Struct))
	}

	sd, ok := c.structs[targetMod][localName]
	if !ok {
		c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp, "%q is not a struct", v.Struct))
		return errNode(c, v.Sp)
	}

	fieldIdx := -1
	for i, f := range sd.Fields {
		if f.Name == v.Field {
			fieldIdx = i
			break
		}
	}

	if fieldIdx < 0 {
		c.diags.Add(diag.Newf(diag.CodeUnknownName, v.Sp, "struct %q has no field %q", v.Struct, v.Field))
		return errNode(c, v.Sp)
	}

	inst := c.checkItems([]ast.Item{v.Instance}, 0, s, fc)

	qualified := targetMod + "::" + sd.Name

	env := map[string]types.ID{}

	switch k := c.arena.Kind(inst.Type()).(type) {
	case types.Named:
		if k.Symbol != qualified {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
				"field_set instance has type %s, expected %s", c.arena.String(inst.Type()), qualified))
		}
	case types.Application:
		if k.Constructor != qualified {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
				"field_set instance has type %s, expected %s", c.arena.String(inst.Type()), qualified))
		}

		for i, tp := range sd.TypeParams {
			if i < len(k.Args) {
				env[tp] = k.Args[i]
			}
		}
	default:
		if inst.Type() != c.arena.Primitive(types.Never) {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp, "field_set instance must be a struct value"))
		}
	}

	fieldTy := c.resolveType(targetMod, sd.Fields[fieldIdx].Type, env)

	val := c.checkItems([]ast.Item{v.Value}, fieldTy, s, fc)
	if val.Type() != fieldTy && val.Type() != c.arena.Primitive(types.Never) {
		c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
			"field %q of %q has type %s, found %s",
			v.Field, v.Struct, c.arena.String(fieldTy), c.arena.String(val.Type())))
	}

	tmp := fc.freshTemp("$field_set")

	fields := make([]hir.Node, len(sd.Fields))
	for i, f := range sd.Fields {
		if i == fieldIdx {
			fields[i] = val
			continue
		}

		ft := c.resolveType(targetMod, f.Type, env)
		fields[i] = &hir.FieldAccessExpr{
			Base:   hir.Base{Ty: ft, Sp: v.Sp},
			Struct: qualified,
			Object: &hir.VarExpr{Base: hir.Base{Ty: inst.Type(), Sp: v.Sp}, Name: tmp},
			Index:  i,
		}
	}

	construct := &hir.StructConstructExpr{Base: hir.Base{Ty: inst.Type(), Sp: v.Sp}, Struct: qualified, Fields: fields}

	return &hir.BlockExpr{
		Base:  hir.Base{Ty: inst.Type(), Sp: v.Sp},
		Stmts: []hir.Node{&hir.LetExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Unit), Sp: v.Sp}, Name: tmp, Value: inst}},
		Value: construct,
	}
}
