package typecheck

import (
	"strconv"
	"strings"

	"github.com/neplg/neplg2/pkg/ast"
	"github.com/neplg/neplg2/pkg/diag"
	"github.com/neplg/neplg2/pkg/hir"
	"github.com/neplg/neplg2/pkg/source"
	"github.com/neplg/neplg2/pkg/types"
)

// funcCtx is the per-function checking context: which module the body
// lives in, the generic-parameter environment it was instantiated with
// (fresh variables, shared between its own Params/Result and its body),
// and the running purity state used to enforce spec §4.5's "a pure
// function cannot call an impure function".
type funcCtx struct {
	c              *Checker
	modPath        string
	declaredEffect types.Effect
	inferredEffect types.Effect
	typeEnv        map[string]types.ID
	tempCount      int
}

func (fc *funcCtx) noteCall(effect types.Effect) {
	fc.inferredEffect = fc.inferredEffect.Join(effect)
}

// freshTemp names a synthetic local the checker itself introduces (e.g.
// field update sugar's one-time instance binding), never a surface
// identifier, so a numeric suffix is all that is needed to keep it
// unique within one function body.
func (fc *funcCtx) freshTemp(prefix string) string {
	fc.tempCount++

	return prefix + strconv.Itoa(fc.tempCount)
}

// scope is a lexical chain of local bindings (function parameters and
// `let`-introduced names).
type scope struct {
	parent *scope
	vars   map[string]*varInfo
}

type varInfo struct {
	ty  types.ID
	mut bool
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*varInfo{}}
}

func (s *scope) lookup(name string) (*varInfo, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}

	return nil, false
}

func (s *scope) define(name string, ty types.ID, mut bool) {
	s.vars[name] = &varInfo{ty: ty, mut: mut}
}

// checkBlock type-checks every statement of a block in its own child
// scope, per spec §4.5: a semicolon-terminated statement is checked
// against Unit, the block's tail statement (if not semicolon-terminated)
// against expected.
func (c *Checker) checkBlock(block *ast.Block, parent *scope, expected types.ID, fc *funcCtx) hir.Node {
	s := newScope(parent)

	var stmts []hir.Node

	var tail hir.Node

	for i, raw := range block.Stmts {
		st := raw
		if g, ok := st.(*ast.GatedStmt); ok {
			if !ast.GateAllows(g, c.target, c.profile) {
				continue
			}

			st = g.Inner
		}

		es, ok := st.(*ast.ExprStmt)
		if !ok {
			continue
		}

		isTail := i == len(block.Stmts)-1 && !es.Semicolon

		want := c.arena.Primitive(types.Unit)
		if isTail {
			want = expected
		}

		node := c.checkItems(es.Items, want, s, fc)

		if !isTail {
			stmts = append(stmts, node)
			continue
		}

		if isConcrete(c.arena, expected) && node.Type() != expected && node.Type() != c.arena.Primitive(types.Never) {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, node.Span(),
				"expected %s, found %s", c.arena.String(expected), c.arena.String(node.Type())))
		}

		tail = node
	}

	if tail == nil {
		tail = &hir.UnitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Unit), Sp: block.Sp}}
	}

	return &hir.BlockExpr{Base: hir.Base{Ty: tail.Type(), Sp: block.Sp}, Stmts: stmts, Value: tail}
}

// checkItems folds one flat prefix-expression line into a single HIR
// node (spec §4.5 "a well-formed statement leaves exactly one value on
// the stack"). Leading type annotations are peeled off first so their
// declared type can act as the expected-type hint for the rest of the
// line — the natural reading of "<T> expr" as a *preceding* constraint
// rather than a trailing one, since the stack machine itself evaluates
// right to left.
func (c *Checker) checkItems(items []ast.Item, expected types.ID, s *scope, fc *funcCtx) hir.Node {
	items = rewritePipes(items)

	var anns []ast.TypeExpr

	for len(items) > 0 {
		ta, ok := items[0].(*ast.TypeAnnotationItem)
		if !ok {
			break
		}

		anns = append(anns, ta.Type)
		items = items[1:]
	}

	hint := expected
	if len(anns) > 0 {
		hint = c.resolveType(fc.modPath, anns[len(anns)-1], fc.typeEnv)
	}

	node := c.reduceStack(items, hint, s, fc)

	for _, ann := range anns {
		want := c.resolveType(fc.modPath, ann, fc.typeEnv)
		if node.Type() != want && node.Type() != c.arena.Primitive(types.Never) {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, node.Span(),
				"annotated type %s does not match inferred type %s",
				c.arena.String(want), c.arena.String(node.Type())))
		}
	}

	return node
}

// rewritePipes desugars the first "x |> f args" found (spec §4.5,
// glossary): x becomes f's first argument. Chains resolve left to right
// by wrapping an already-rewritten left-hand side in a GroupItem before
// feeding it to the next pipe, so "x |> f |> g" becomes "g (f x)".
func rewritePipes(items []ast.Item) []ast.Item {
	idx := -1

	for i, it := range items {
		if _, ok := it.(*ast.PipeItem); ok {
			idx = i
			break
		}
	}

	if idx < 0 {
		return items
	}

	lhs := items[:idx]
	rest := items[idx+1:]

	var ann ast.Item

	if len(rest) > 0 {
		if ta, ok := rest[0].(*ast.TypeAnnotationItem); ok {
			ann = ta
			rest = rest[1:]
		}
	}

	if len(rest) == 0 {
		return items
	}

	callee := rest[0]
	args := rest[1:]

	var lhsItem ast.Item
	if len(lhs) == 1 {
		lhsItem = lhs[0]
	} else {
		sp := callee.Span()
		if len(lhs) > 0 {
			sp = lhs[0].Span().Merge(lhs[len(lhs)-1].Span())
		}

		lhsItem = &ast.GroupItem{Inner: append([]ast.Item(nil), lhs...), Sp: sp}
	}

	out := make([]ast.Item, 0, len(items))
	if ann != nil {
		out = append(out, ann)
	}

	out = append(out, callee, lhsItem)
	out = append(out, args...)

	return rewritePipes(out)
}

// reduceStack evaluates a flat item list right to left, mirroring
// spec §4.5's "a prefix line is simulated as a push-down computation".
// Scanning right-to-left naturally reconstructs each call's arguments in
// their original left-to-right source order, since an item always sits
// to the left of the values it consumes.
func (c *Checker) reduceStack(items []ast.Item, hint types.ID, s *scope, fc *funcCtx) hir.Node {
	var stack []hir.Node

	pop := func(k int) []hir.Node {
		n := len(stack)
		args := append([]hir.Node(nil), stack[n-k:]...)
		stack = stack[:n-k]

		for l, r := 0, len(args)-1; l < r; l, r = l+1, r-1 {
			args[l], args[r] = args[r], args[l]
		}

		return args
	}

	for i := len(items) - 1; i >= 0; i-- {
		h := types.ID(0)
		if i == 0 {
			h = hint
		}

		switch v := items[i].(type) {
		case *ast.LiteralItem:
			stack = append(stack, c.checkLiteral(v))

		case *ast.SymbolItem:
			stack = append(stack, c.checkSymbol(fc, s, v, h, pop))

		case *ast.LetItem:
			args := pop(1)
			stack = append(stack, c.checkLet(fc, s, v, args[0]))

		case *ast.SetItem:
			args := pop(1)
			stack = append(stack, c.checkSet(fc, s, v, args[0]))

		case *ast.TypeAnnotationItem:
			args := pop(1)
			want := c.resolveType(fc.modPath, v.Type, fc.typeEnv)

			if args[0].Type() != want && args[0].Type() != c.arena.Primitive(types.Never) {
				c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
					"annotated type %s does not match inferred type %s",
					c.arena.String(want), c.arena.String(args[0].Type())))
			}

			stack = append(stack, args[0])

		case *ast.AddrOfItem:
			args := pop(1)

			vr, ok := args[0].(*hir.VarExpr)
			if !ok {
				c.diags.Add(diag.New(diag.CodeTypeMismatch, v.Sp, "address-of target must be a bound name"))
				stack = append(stack, errNode(c, v.Sp))
				continue
			}

			refTy := c.arena.Intern(types.Reference{Inner: args[0].Type(), Mut: v.Mut})
			stack = append(stack, &hir.AddrOfExpr{Base: hir.Base{Ty: refTy, Sp: v.Sp}, Name: vr.Name, Mut: v.Mut})

		case *ast.DerefItem:
			args := pop(1)

			ref, ok := c.arena.Kind(args[0].Type()).(types.Reference)
			ty := c.arena.Primitive(types.Never)

			if ok {
				ty = ref.Inner
			} else {
				c.diags.Add(diag.New(diag.CodeTypeMismatch, v.Sp, "deref target is not a reference"))
			}

			stack = append(stack, &hir.DerefExpr{Base: hir.Base{Ty: ty, Sp: v.Sp}, Ref: args[0]})

		case *ast.IfItem:
			stack = append(stack, c.checkIf(fc, s, v, h))

		case *ast.WhileItem:
			stack = append(stack, c.checkWhile(fc, s, v))

		case *ast.BlockItem:
			stack = append(stack, c.checkBlock(v.Block, s, h, fc))

		case *ast.GroupItem:
			stack = append(stack, c.checkItems(v.Inner, h, s, fc))

		case *ast.MatchItem:
			stack = append(stack, c.checkMatch(fc, s, v, h))

		case *ast.TupleItem:
			stack = append(stack, c.checkTuple(fc, s, v))

		case *ast.FieldSetItem:
			stack = append(stack, c.checkFieldSet(fc, s, v))

		case *ast.PipeItem:
			c.diags.Add(diag.New(diag.CodeUnexpectedToken, v.Sp, "pipe has no callable right-hand side"))
			stack = append(stack, errNode(c, v.Sp))

		default:
			stack = append(stack, errNode(c, items[i].Span()))
		}
	}

	if len(stack) != 1 {
		sp := sourceSpanOf(items)
		c.diags.Add(diag.Newf(diag.CodeArityMismatch, sp,
			"a statement must leave exactly one value on the stack, found %d", len(stack)))

		if len(stack) == 0 {
			return errNode(c, sp)
		}
	}

	return stack[len(stack)-1]
}

func sourceSpanOf(items []ast.Item) source.Span {
	if len(items) == 0 {
		return source.Span{}
	}

	return items[0].Span()
}

func errNode(c *Checker, sp source.Span) hir.Node {
	return &hir.UnitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Never), Sp: sp}}
}

func (c *Checker) checkLiteral(v *ast.LiteralItem) hir.Node {
	switch v.Kind {
	case ast.LitInt:
		n, _ := strconv.ParseInt(v.Text, 10, 64)
		return &hir.LitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.I32), Sp: v.Sp}, Kind: hir.LitI32, IntVal: n}

	case ast.LitFloat:
		f, _ := strconv.ParseFloat(v.Text, 32)
		return &hir.LitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.F32), Sp: v.Sp}, Kind: hir.LitF32, F32Val: float32(f)}

	case ast.LitBool:
		return &hir.LitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Bool), Sp: v.Sp}, Kind: hir.LitBool, BoolVal: v.Text == "true"}

	case ast.LitString:
		return &hir.LitExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Str), Sp: v.Sp}, Kind: hir.LitStr, StrIdx: c.out.InternString(v.Text)}

	default:
		return errNode(c, v.Sp)
	}
}

func (c *Checker) checkLet(fc *funcCtx, s *scope, v *ast.LetItem, value hir.Node) hir.Node {
	ty := value.Type()
	if v.Annotation != nil {
		want := c.resolveType(fc.modPath, v.Annotation, fc.typeEnv)
		if want != ty && ty != c.arena.Primitive(types.Never) {
			c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
				"%q annotated as %s but bound to %s", v.Name, c.arena.String(want), c.arena.String(ty)))
		}

		ty = want
	}

	s.define(v.Name, ty, v.Mut)

	return &hir.LetExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Unit), Sp: v.Sp}, Name: v.Name, Mut: v.Mut, Value: value}
}

func (c *Checker) checkSet(fc *funcCtx, s *scope, v *ast.SetItem, value hir.Node) hir.Node {
	info, ok := s.lookup(v.Name)
	if !ok {
		c.diags.Add(diag.Newf(diag.CodeUnknownName, v.Sp, "%q is not in scope", v.Name))
		return errNode(c, v.Sp)
	}

	if !info.mut {
		c.diags.Add(diag.Newf(diag.CodeMutabilityViolated, v.Sp, "%q is not declared mutable", v.Name))
	}

	if info.ty != value.Type() && value.Type() != c.arena.Primitive(types.Never) {
		c.diags.Add(diag.Newf(diag.CodeMutabilityViolated, v.Sp,
			"cannot set %q (%s) to a value of type %s", v.Name, c.arena.String(info.ty), c.arena.String(value.Type())))
	}

	return &hir.SetExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Unit), Sp: v.Sp}, Name: v.Name, Value: value}
}

func (c *Checker) checkIf(fc *funcCtx, s *scope, v *ast.IfItem, hint types.ID) hir.Node {
	cond := c.checkItems(v.Cond, c.arena.Primitive(types.Bool), s, fc)
	if cond.Type() != c.arena.Primitive(types.Bool) {
		c.diags.Add(diag.New(diag.CodeTypeMismatch, cond.Span(), "if condition must be bool"))
	}

	branchExpected := hint

	var elseNode hir.Node

	if len(v.Else) == 0 {
		branchExpected = c.arena.Primitive(types.Unit)
		elseNode = &hir.UnitExpr{Base: hir.Base{Ty: branchExpected, Sp: v.Sp}}
	}

	then := c.checkItems(v.Then, branchExpected, s, fc)

	if len(v.Else) != 0 {
		elseNode = c.checkItems(v.Else, branchExpected, s, fc)
	}

	if then.Type() != elseNode.Type() && then.Type() != c.arena.Primitive(types.Never) && elseNode.Type() != c.arena.Primitive(types.Never) {
		c.diags.Add(diag.Newf(diag.CodeTypeMismatch, v.Sp,
			"if branches disagree: %s vs %s", c.arena.String(then.Type()), c.arena.String(elseNode.Type())))
	}

	return &hir.IfExpr{Base: hir.Base{Ty: then.Type(), Sp: v.Sp}, Cond: cond, Then: then, Else: elseNode}
}

func (c *Checker) checkWhile(fc *funcCtx, s *scope, v *ast.WhileItem) hir.Node {
	cond := c.checkItems(v.Cond, c.arena.Primitive(types.Bool), s, fc)
	if cond.Type() != c.arena.Primitive(types.Bool) {
		c.diags.Add(diag.New(diag.CodeTypeMismatch, cond.Span(), "while condition must be bool"))
	}

	body := c.checkBlock(v.Body, s, c.arena.Primitive(types.Unit), fc)

	return &hir.WhileExpr{Base: hir.Base{Ty: c.arena.Primitive(types.Unit), Sp: v.Sp}, Cond: cond, Body: body}
}

func (c *Checker) checkTuple(fc *funcCtx, s *scope, v *ast.TupleItem) hir.Node {
	if v.Legacy && (c.target == "wasm" || c.target == "wasi") && c.profile != "debug" {
		c.diags.Add(diag.New(diag.CodeTypeMismatch, v.Sp,
			"the legacy (a, b, c) tuple literal is not accepted under the wasm/wasi target outside the debug profile"))
	}

	elems := make([]hir.Node, len(v.Elements))
	ids := make([]types.ID, len(v.Elements))

	for i, grp := range v.Elements {
		elems[i] = c.checkItems(grp, 0, s, fc)
		ids[i] = elems[i].Type()
	}

	return &hir.TupleConstructExpr{Base: hir.Base{Ty: c.arena.Intern(types.Tuple{Elements: ids}), Sp: v.Sp}, Elements: elems}
}

// checkMatch checks the scrutinee and every arm body, then enforces
// spec §4.5's exhaustiveness rule: every variant of the scrutinee's enum
// must be covered, with no wildcard form in the core language.
func (c *Checker) checkMatch(fc *funcCtx, s *scope, v *ast.MatchItem, hint types.ID) hir.Node {
	scrutinee := c.checkItems(v.Scrutinee, 0, s, fc)

	enumSym, ok := c.arena.Kind(scrutinee.Type()).(types.Named)
	appSym, okApp := c.arena.Kind(scrutinee.Type()).(types.Application)

	var enumName string

	switch {
	case ok:
		enumName = enumSym.Symbol
	case okApp:
		enumName = appSym.Constructor
	default:
		c.diags.Add(diag.New(diag.CodeTypeMismatch, v.Sp, "match scrutinee is not an enum value"))
	}

	modPath, localEnum := splitQualified(enumName)
	enumDef := c.enums[modPath][localEnum]

	covered := map[string]bool{}
	arms := make([]hir.MatchArm, 0, len(v.Arms))

	for _, arm := range v.Arms {
		armScope := newScope(s)

		var payloadTy types.ID

		if enumDef != nil {
			for _, vr := range enumDef.Variants {
				if vr.Name == arm.Variant && len(vr.Payload) > 0 {
					payloadTy = c.resolveType(modPath, vr.Payload[0].Type, fc.typeEnv)
				}
			}
		}

		if arm.Binding != "" {
			armScope.define(arm.Binding, payloadTy, false)
		}

		body := c.checkBlock(arm.Body, armScope, hint, fc)
		arms = append(arms, hir.MatchArm{Tag: arm.Variant, Binding: arm.Binding, Body: body})
		covered[arm.Variant] = true
	}

	if enumDef != nil {
		for _, vr := range enumDef.Variants {
			if !covered[vr.Name] {
				c.diags.Add(diag.Newf(diag.CodeNonExhaustiveMatch, v.Sp,
					"match on %q does not cover variant %q", enumName, vr.Name))
			}
		}
	}

	resultTy := c.arena.Primitive(types.Unit)
	if len(arms) > 0 {
		resultTy = arms[0].Body.Type()
	}

	return &hir.MatchExpr{Base: hir.Base{Ty: resultTy, Sp: v.Sp}, Scrutinee: scrutinee, Arms: arms}
}

func splitQualified(name string) (modPath, local string) {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[:i], name[i+2:]
	}

	return "", name
}
