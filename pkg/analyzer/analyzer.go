// Package analyzer performs the semantic pass between parsing and
// evaluation: it resolves every type reference, annotates every expression
// with its types.Type, checks name/type/arity errors, and validates the
// contexts break/continue/return/quit may legally appear in.
//
// The dispatch shape (a big type switch per AST node family, walking the
// tree once) is grounded on the teacher's CodeGen.getType/genExpr/genStmt
// methods (pkg/compiler/codegen.go), adapted from "emit assembly" to
// "resolve and check a type", and reporting through a *diag.List instead
// of a single returned error so a source file with several mistakes is
// fully diagnosed in one pass.
package analyzer

import (
	"fmt"
	"strings"

	"teachlang/pkg/diag"
	"teachlang/pkg/lang"
	"teachlang/pkg/types"
)

type funcFrame struct {
	returnType types.Type
}

// Analyzer holds the state threaded through one analysis pass.
type Analyzer struct {
	syms  *types.Table
	errs  *diag.List
	loops int        // nesting depth of the innermost enclosing loop
	fn    *funcFrame // non-nil while walking a function body
}

// Analyze type-checks prog and returns the populated symbol table plus any
// diagnostics. A non-empty diag.List means the AST may be partially
// annotated (KindInvalid placeholders mark expressions whose type could
// not be determined) and must not be evaluated.
func Analyze(prog *lang.Program) (*types.Table, *diag.List) {
	a := &Analyzer{syms: types.NewTable(), errs: &diag.List{}}
	a.run(prog)
	return a.syms, a.errs
}

func (a *Analyzer) errorf(kind diag.Kind, line, col int, format string, args ...any) {
	a.errs.Addf("analyze", kind, line, col, fmt.Sprintf(format, args...))
}

func (a *Analyzer) run(prog *lang.Program) {
	if prog.Definitions != nil {
		a.registerStructures(prog.Definitions.Structures)
		a.registerFunctionSignatures(prog.Definitions.Functions)
		a.analyzeGlobals(prog.Definitions.Globals)
		a.analyzeFunctionBodies(prog.Definitions.Functions)
	}
	// The program body is analyzed as its own top-level scope, distinct
	// from a.fn (return is still illegal here), so that an if/while/repeat
	// block directly inside "program ... end program" can open a nested
	// block scope the same way a function body's blocks do.
	a.syms.EnterFunction()
	for _, s := range prog.Statements {
		a.analyzeStmt(s)
	}
	a.syms.ExitFunction()
}

// --- Type resolution -------------------------------------------------------

// resolveTypeExpr turns parsed type syntax into a types.Type, reporting a
// NameError for an unknown structure name.
func (a *Analyzer) resolveTypeExpr(te lang.TypeExpr, line, col int) types.Type {
	switch {
	case te.IsLink:
		under := a.resolveTypeExpr(*te.Underlying, line, col)
		return types.Link(under)
	case te.IsArray:
		under := a.resolveTypeExpr(*te.Underlying, line, col)
		return types.Array(under, len(te.Bounds))
	case te.Name == "number":
		return types.Number
	case te.Name == "text":
		return types.Text
	case te.Name == "nothing":
		return types.Nothing
	default:
		if _, ok := a.syms.Struct(te.Name); ok {
			return types.Structure(te.Name)
		}
		a.errorf(diag.Name, line, col, "unknown type %q", te.Name)
		return types.Invalid
	}
}

func (a *Analyzer) registerStructures(defs []*lang.StructureDef) {
	// One pass, in declaration order: a structure's bare name is registered
	// before its own fields are resolved, so a field may reference the
	// structure itself, but not one declared later in the same definitions
	// block, which is not yet in a.syms.
	for _, sd := range defs {
		def := &types.StructDef{Name: sd.Name, FieldTypes: map[string]types.Type{}, HasDefault: map[string]bool{}}
		if !a.syms.DefineStruct(def) {
			a.errorf(diag.Name, sd.Line, sd.Col, "structure %q already defined", sd.Name)
			continue
		}
		for _, f := range sd.Fields {
			ft := a.resolveTypeExpr(f.Type, sd.Line, sd.Col)
			def.FieldNames = append(def.FieldNames, f.Name)
			def.FieldTypes[f.Name] = ft
			if f.Default != nil {
				dt := a.analyzeExpr(f.Default)
				if dt.Valid() && !types.Equal(dt, ft) {
					l, c := f.Default.Pos()
					a.errorf(diag.TypeErr, l, c, "field %q default has type %s, expected %s", f.Name, dt, ft)
				}
				def.HasDefault[f.Name] = true
			}
		}
	}
}

func (a *Analyzer) registerFunctionSignatures(fns []*lang.FunctionDef) {
	for _, fn := range fns {
		if isBuiltin(fn.Name) {
			a.errorf(diag.Name, fn.Line, fn.Col, "%q is a built-in function and cannot be redefined", fn.Name)
			continue
		}
		sig := &types.FunctionSig{Name: fn.Name, ReturnType: types.Nothing}
		if fn.ReturnType != nil {
			sig.ReturnType = a.resolveTypeExpr(*fn.ReturnType, fn.Line, fn.Col)
		}
		seen := map[string]bool{}
		for _, p := range fn.Params {
			pk := strings.ToLower(p.Name)
			if seen[pk] {
				a.errorf(diag.Name, fn.Line, fn.Col, "duplicate parameter name %q in function %q", p.Name, fn.Name)
			}
			seen[pk] = true
			sig.ParamNames = append(sig.ParamNames, p.Name)
			sig.ParamTypes = append(sig.ParamTypes, a.resolveTypeExpr(p.Type, fn.Line, fn.Col))
			sig.Changeable = append(sig.Changeable, p.Changeable)
		}
		if !a.syms.DefineFunction(sig) {
			a.errorf(diag.Name, fn.Line, fn.Col, "function %q already defined", fn.Name)
		}
	}
}

func (a *Analyzer) analyzeGlobals(globals []*lang.VarDef) {
	for _, v := range globals {
		a.analyzeVarDef(v)
	}
}

func (a *Analyzer) analyzeFunctionBodies(fns []*lang.FunctionDef) {
	for _, fn := range fns {
		sig, ok := a.syms.Function(fn.Name)
		if !ok {
			continue // signature registration already reported the error
		}
		a.syms.EnterFunction()
		for i, name := range sig.ParamNames {
			a.syms.Define(name, sig.ParamTypes[i], sig.Changeable[i])
		}
		prevFn := a.fn
		a.fn = &funcFrame{returnType: sig.ReturnType}
		for _, s := range fn.Body {
			a.analyzeStmt(s)
		}
		a.fn = prevFn
		a.syms.ExitFunction()
	}
}

// --- Statements --------------------------------------------------------

func (a *Analyzer) analyzeBlock(body []lang.Stmt) {
	a.syms.EnterScope()
	for _, s := range body {
		a.analyzeStmt(s)
	}
	a.syms.ExitScope()
}

func (a *Analyzer) analyzeStmt(s lang.Stmt) {
	switch n := s.(type) {
	case *lang.VarDef:
		a.analyzeVarDef(n)
	case *lang.Assign:
		a.analyzeAssign(n)
	case *lang.LinkAssign:
		a.analyzeLinkAssign(n)
	case *lang.Unlink:
		a.analyzeUnlink(n)
	case *lang.While:
		a.analyzeCondition(n.Cond)
		a.loops++
		a.analyzeBlock(n.Body)
		a.loops--
	case *lang.If:
		a.analyzeIf(n)
	case *lang.RepeatForever:
		a.loops++
		a.analyzeBlock(n.Body)
		a.loops--
	case *lang.RepeatN:
		ct := a.analyzeExpr(n.Count)
		if ct.Valid() && !types.IsNumeric(ct) {
			l, c := n.Count.Pos()
			a.errorf(diag.TypeErr, l, c, "repeat count must be a number, got %s", ct)
		}
		a.loops++
		a.analyzeBlock(n.Body)
		a.loops--
	case *lang.RepeatForAll:
		a.analyzeRepeatForAll(n)
	case *lang.Break:
		if a.loops == 0 {
			a.errorf(diag.Syntax, n.Line, n.Col, "break outside a loop")
		}
	case *lang.Continue:
		if a.loops == 0 {
			a.errorf(diag.Syntax, n.Line, n.Col, "continue outside a loop")
		}
	case *lang.Return:
		a.analyzeReturn(n)
	case *lang.Quit:
		// legal anywhere, including at top level.
	case *lang.ExpressionStatement:
		a.analyzeExpressionStatement(n)
	default:
		a.errorf(diag.Fatal, 0, 0, "analyzer: unhandled statement %T", s)
	}
}

func (a *Analyzer) analyzeVarDef(n *lang.VarDef) {
	declared := a.resolveTypeExpr(n.Type, n.Line, n.Col)
	if n.Init != nil {
		initType := a.analyzeArrayOrStructLiteralContext(n.Init, declared)
		if initType.Valid() && declared.Valid() && !assignable(declared, initType) {
			l, c := n.Init.Pos()
			a.errorf(diag.TypeErr, l, c, "cannot initialize %q of type %s with %s", n.Name, declared, initType)
		}
	}
	if !a.syms.Define(n.Name, declared, false) {
		a.errorf(diag.Name, n.Line, n.Col, "%q already declared in this scope", n.Name)
	}
}

func (a *Analyzer) analyzeIf(n *lang.If) {
	a.analyzeCondition(n.Cond)
	a.analyzeBlock(n.Body)
	for _, ei := range n.ElseIfs {
		a.analyzeCondition(ei.Cond)
		a.analyzeBlock(ei.Body)
	}
	if n.Else != nil {
		a.analyzeBlock(n.Else)
	}
}

func (a *Analyzer) analyzeRepeatForAll(n *lang.RepeatForAll) {
	ct := a.analyzeExpr(n.Coll)
	elem := types.Invalid
	if ct.Valid() {
		if ct.Kind != types.KindArray {
			l, c := n.Coll.Pos()
			a.errorf(diag.TypeErr, l, c, "repeat for all requires an array, got %s", ct)
		} else {
			elem = *ct.Underlying
		}
	}
	a.syms.EnterScope()
	a.syms.Define(n.Var, elem, false)
	a.loops++
	for _, s := range n.Body {
		a.analyzeStmt(s)
	}
	a.loops--
	a.syms.ExitScope()
}

func (a *Analyzer) analyzeReturn(n *lang.Return) {
	if a.fn == nil {
		a.errorf(diag.Syntax, n.Line, n.Col, "return outside a function")
		if n.Value != nil {
			a.analyzeExpr(n.Value)
		}
		return
	}
	if n.Value == nil {
		if a.fn.returnType.Kind != types.KindNothing {
			a.errorf(diag.TypeErr, n.Line, n.Col, "function must return a value of type %s", a.fn.returnType)
		}
		return
	}
	vt := a.analyzeExpr(n.Value)
	if a.fn.returnType.Kind == types.KindNothing {
		a.errorf(diag.TypeErr, n.Line, n.Col, "function returning nothing cannot return a value")
		return
	}
	if vt.Valid() && !assignable(a.fn.returnType, vt) {
		a.errorf(diag.TypeErr, n.Line, n.Col, "returned %s, expected %s", vt, a.fn.returnType)
	}
}

func (a *Analyzer) analyzeExpressionStatement(n *lang.ExpressionStatement) {
	if _, ok := n.Expr.(*lang.CallExpr); !ok {
		l, c := n.Expr.Pos()
		a.errorf(diag.Syntax, l, c, "expression result is unused; only a call is valid as a statement")
	}
	a.analyzeExpr(n.Expr)
}

// analyzeCondition analyzes cond and reports a TypeError unless it is a
// comparison, "is linked"/"is not linked", or a logical combination of
// those (spec.md: "if/while conditions must reduce to a comparison or
// logical combination thereof; a bare number in a condition is rejected").
// Once inside an "and"/"or", operands are ordinary numbers evaluated for
// truthiness (0 is false, nonzero is true) rather than nested conditions —
// spec.md's short-circuit scenario uses a bare "0" as the left operand of
// "and" — so only the outermost shape is restricted here.
func (a *Analyzer) analyzeCondition(cond lang.Expr) {
	switch n := cond.(type) {
	case *lang.IsLinked:
		a.analyzeExpr(cond)
	case *lang.BinaryExpr:
		switch n.Op {
		case lang.OpOr, lang.OpAnd, lang.OpLt, lang.OpLe, lang.OpGt, lang.OpGe, lang.OpEq, lang.OpNe:
			a.analyzeExpr(cond)
		default:
			t := a.analyzeExpr(cond)
			l, c := cond.Pos()
			a.errorf(diag.TypeErr, l, c, "condition must be a comparison or logical expression, got %s", t)
		}
	default:
		t := a.analyzeExpr(cond)
		if t.Valid() {
			l, c := cond.Pos()
			a.errorf(diag.TypeErr, l, c, "condition must be a comparison or logical expression, got %s", t)
		}
	}
}

// --- Assignment / links --------------------------------------------------

func (a *Analyzer) analyzeAssign(n *lang.Assign) {
	tt := a.analyzeRef(n.Target, true)
	vt := a.analyzeArrayOrStructLiteralContext(n.Value, tt)
	if tt.Valid() && vt.Valid() && !assignable(tt, vt) {
		a.errorf(diag.TypeErr, n.Line, n.Col, "cannot assign %s to %s", vt, tt)
	}
}

func (a *Analyzer) analyzeLinkAssign(n *lang.LinkAssign) {
	tt := a.analyzeRef(n.Target, true)
	st := a.analyzeRef(n.Source, true)
	if tt.Valid() && tt.Kind != types.KindLink {
		l, c := n.Target.Pos()
		a.errorf(diag.TypeErr, l, c, "link target must have a link type, got %s", tt)
		return
	}
	if tt.Valid() && st.Valid() && !types.Equal(*tt.Underlying, st) {
		l, c := n.Source.Pos()
		a.errorf(diag.TypeErr, l, c, "cannot link to %s through link to %s", st, *tt.Underlying)
	}
}

func (a *Analyzer) analyzeUnlink(n *lang.Unlink) {
	tt := a.analyzeRef(n.Target, true)
	if tt.Valid() && tt.Kind != types.KindLink {
		a.errorf(diag.TypeErr, n.Line, n.Col, "unlink target must have a link type, got %s", tt)
	}
}

// assignable reports whether a value of type from may be stored into a
// variable of type to. It is Equal plus the single relaxation spec.md
// grants: text accepts a number operand only through the "+" concatenation
// operator, never through plain assignment, so this is presently just
// structural equality; the hook exists so a future assignment-time
// coercion has one place to live.
func assignable(to, from types.Type) bool {
	return types.Equal(to, from)
}

// --- Expressions -----------------------------------------------------------

// analyzeArrayOrStructLiteralContext analyzes e, first telling a brace
// literal what type is expected of it (an ArrayLit/StructLit standing alone
// carries no type information of its own — spec.md §4.4's "array literal
// must be used in a context with a known array type").
func (a *Analyzer) analyzeArrayOrStructLiteralContext(e lang.Expr, expected types.Type) types.Type {
	if lit, ok := e.(*lang.ArrayLit); ok {
		return a.analyzeBraceLiteral(lit, expected)
	}
	return a.analyzeExpr(e)
}

func (a *Analyzer) analyzeBraceLiteral(lit *lang.ArrayLit, expected types.Type) types.Type {
	if !expected.Valid() {
		a.errorf(diag.TypeErr, lit.Line, lit.Col, "cannot infer the type of this literal here")
		lit.SetType(types.Invalid)
		return types.Invalid
	}
	switch expected.Kind {
	case types.KindArray:
		elem := *expected.Underlying
		for _, el := range lit.Elements {
			et := a.analyzeArrayOrStructLiteralContext(el, elem)
			if et.Valid() && !assignable(elem, et) {
				l, c := el.Pos()
				a.errorf(diag.TypeErr, l, c, "array element has type %s, expected %s", et, elem)
			}
		}
		lit.SetType(expected)
		return expected
	case types.KindStructure:
		def, ok := a.syms.Struct(expected.Name)
		if !ok {
			lit.SetType(types.Invalid)
			return types.Invalid
		}
		if len(lit.Elements) != len(def.FieldNames) {
			a.errorf(diag.TypeErr, lit.Line, lit.Col, "structure %q has %d fields, literal has %d",
				expected.Name, len(def.FieldNames), len(lit.Elements))
		}
		for i, el := range lit.Elements {
			if i >= len(def.FieldNames) {
				a.analyzeExpr(el)
				continue
			}
			ft := def.FieldTypes[def.FieldNames[i]]
			et := a.analyzeArrayOrStructLiteralContext(el, ft)
			if et.Valid() && !assignable(ft, et) {
				l, c := el.Pos()
				a.errorf(diag.TypeErr, l, c, "field %q has type %s, expected %s", def.FieldNames[i], et, ft)
			}
		}
		lit.SetType(expected)
		return expected
	default:
		a.errorf(diag.TypeErr, lit.Line, lit.Col, "a brace literal cannot be used as %s", expected)
		lit.SetType(types.Invalid)
		return types.Invalid
	}
}

func (a *Analyzer) analyzeExpr(e lang.Expr) types.Type {
	t := a.dispatchExpr(e)
	e.SetType(t)
	return t
}

func (a *Analyzer) dispatchExpr(e lang.Expr) types.Type {
	switch n := e.(type) {
	case *lang.NumberLit:
		return types.Number
	case *lang.TextLit:
		return types.Text
	case *lang.ArrayLit:
		// Reached only when a brace literal appears with no surrounding
		// declared/assigned type to infer from.
		a.errorf(diag.TypeErr, n.Line, n.Col, "cannot infer the type of this literal here")
		return types.Invalid
	case *lang.Ref:
		return a.analyzeRef(n, false)
	case *lang.CallExpr:
		return a.analyzeCall(n)
	case *lang.BinaryExpr:
		return a.analyzeBinary(n)
	case *lang.UnaryExpr:
		return a.analyzeUnary(n)
	case *lang.IsLinked:
		tt := a.analyzeExpr(n.Target)
		if tt.Valid() && tt.Kind != types.KindLink {
			l, c := n.Target.Pos()
			a.errorf(diag.TypeErr, l, c, "%q is linked/is not linked requires a link, got %s", refName(n.Target), tt)
		}
		return types.Number // used only inside conditions; boolean-as-number is not otherwise exposed
	default:
		a.errorf(diag.Fatal, 0, 0, "analyzer: unhandled expression %T", e)
		return types.Invalid
	}
}

func refName(e lang.Expr) string {
	if r, ok := e.(*lang.Ref); ok {
		return r.Name
	}
	return "<expr>"
}

// analyzeRef resolves a Ref's base name and walks its accessor chain,
// producing the type of the final field/index step. When forAssign is
// true, name resolution failures are reported the same way but the caller
// is responsible for any l-value-specific checks (there are none beyond
// "the name exists": every Ref, including a nested field/index step, is a
// valid assignment target in this language).
func (a *Analyzer) analyzeRef(e lang.Expr, forAssign bool) types.Type {
	ref, ok := e.(*lang.Ref)
	if !ok {
		return a.analyzeExpr(e)
	}
	base, ok := a.syms.Lookup(ref.Name)
	if !ok {
		a.errorf(diag.Name, ref.Line, ref.Col, "undeclared name %q", ref.Name)
		ref.SetType(types.Invalid)
		return types.Invalid
	}
	cur := base
	for _, acc := range ref.Accessors {
		if !cur.Valid() {
			break
		}
		if acc.Field != "" {
			cur = a.stepField(cur, acc)
			continue
		}
		cur = a.stepIndex(cur, acc)
	}
	ref.SetType(cur)
	return cur
}

func (a *Analyzer) stepField(cur types.Type, acc lang.Accessor) types.Type {
	if cur.Kind != types.KindStructure {
		a.errorf(diag.TypeErr, acc.Line, acc.Col, "%s has no field %q", cur, acc.Field)
		return types.Invalid
	}
	def, ok := a.syms.Struct(cur.Name)
	if !ok {
		return types.Invalid
	}
	ft, ok := def.FieldTypes[acc.Field]
	if !ok {
		a.errorf(diag.Name, acc.Line, acc.Col, "structure %q has no field %q", cur.Name, acc.Field)
		return types.Invalid
	}
	return ft
}

func (a *Analyzer) stepIndex(cur types.Type, acc lang.Accessor) types.Type {
	for _, ix := range acc.Indices {
		it := a.analyzeExpr(ix)
		if it.Valid() && !types.IsNumeric(it) {
			l, c := ix.Pos()
			a.errorf(diag.TypeErr, l, c, "array index must be a number, got %s", it)
		}
	}
	if cur.Kind != types.KindArray {
		a.errorf(diag.TypeErr, acc.Line, acc.Col, "%s cannot be indexed", cur)
		return types.Invalid
	}
	if cur.Dims != 0 && len(acc.Indices) != cur.Dims {
		a.errorf(diag.Bounds, acc.Line, acc.Col, "array has %d dimensions, %d indices given", cur.Dims, len(acc.Indices))
	}
	return *cur.Underlying
}

func (a *Analyzer) analyzeBinary(n *lang.BinaryExpr) types.Type {
	lt := a.analyzeExpr(n.Left)
	rt := a.analyzeExpr(n.Right)
	if !lt.Valid() || !rt.Valid() {
		return types.Invalid
	}
	switch n.Op {
	case lang.OpOr, lang.OpAnd:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s requires numbers, got %s and %s", opName(n.Op), lt, rt)
		}
		return types.Number
	case lang.OpLt, lang.OpLe, lang.OpGt, lang.OpGe:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "ordering comparison requires numbers, got %s and %s", lt, rt)
		}
		return types.Number
	case lang.OpEq, lang.OpNe:
		if !types.Equal(lt, rt) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "cannot compare %s with %s", lt, rt)
		}
		return types.Number
	case lang.OpBitOr, lang.OpBitXor, lang.OpBitAnd, lang.OpBitSl, lang.OpBitSr, lang.OpMod:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s requires numbers, got %s and %s", opName(n.Op), lt, rt)
		}
		return types.Number
	case lang.OpAdd:
		return a.analyzeAdd(n, lt, rt)
	case lang.OpSub, lang.OpMul, lang.OpDiv, lang.OpPow:
		if !types.IsNumeric(lt) || !types.IsNumeric(rt) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s requires numbers, got %s and %s", opName(n.Op), lt, rt)
			return types.Invalid
		}
		return types.Number
	default:
		return types.Invalid
	}
}

// analyzeAdd implements the sole implicit-conversion relaxation spec.md
// grants: "+" between a number and text (in either order), or between two
// texts, concatenates as text; number + number still adds.
func (a *Analyzer) analyzeAdd(n *lang.BinaryExpr, lt, rt types.Type) types.Type {
	switch {
	case types.IsNumeric(lt) && types.IsNumeric(rt):
		return types.Number
	case types.IsTextLike(lt) && (types.IsTextLike(rt) || types.IsNumeric(rt)):
		return types.Text
	case types.IsNumeric(lt) && types.IsTextLike(rt):
		return types.Text
	default:
		a.errorf(diag.TypeErr, n.Line, n.Col, "+ requires numbers or text, got %s and %s", lt, rt)
		return types.Invalid
	}
}

func (a *Analyzer) analyzeUnary(n *lang.UnaryExpr) types.Type {
	ot := a.analyzeExpr(n.Operand)
	if !ot.Valid() {
		return types.Invalid
	}
	if !types.IsNumeric(ot) {
		a.errorf(diag.TypeErr, n.Line, n.Col, "unary operator requires a number, got %s", ot)
		return types.Invalid
	}
	return types.Number
}

func opName(op lang.BinOp) string {
	switch op {
	case lang.OpOr:
		return "or"
	case lang.OpAnd:
		return "and"
	case lang.OpMod:
		return "mod"
	case lang.OpBitOr:
		return "bit_or"
	case lang.OpBitXor:
		return "bit_xor"
	case lang.OpBitAnd:
		return "bit_and"
	case lang.OpBitSl:
		return "bit_sl"
	case lang.OpBitSr:
		return "bit_sr"
	case lang.OpSub:
		return "-"
	case lang.OpMul:
		return "*"
	case lang.OpDiv:
		return "/"
	case lang.OpPow:
		return "^"
	default:
		return "operator"
	}
}

// --- Calls -------------------------------------------------------------

func (a *Analyzer) analyzeCall(n *lang.CallExpr) types.Type {
	if isBuiltin(n.Callee) {
		return a.analyzeBuiltinCall(n)
	}
	sig, ok := a.syms.Function(n.Callee)
	if !ok {
		a.errorf(diag.Name, n.Line, n.Col, "undefined function %q", n.Callee)
		for _, arg := range n.Args {
			a.analyzeExpr(arg)
		}
		return types.Invalid
	}
	if len(n.Args) != len(sig.ParamTypes) {
		a.errorf(diag.TypeErr, n.Line, n.Col, "function %q expects %d arguments, got %d", n.Callee, len(sig.ParamTypes), len(n.Args))
	}
	for i, arg := range n.Args {
		if i >= len(sig.ParamTypes) {
			a.analyzeExpr(arg)
			continue
		}
		want := sig.ParamTypes[i]
		at := a.analyzeArrayOrStructLiteralContext(arg, want)
		if sig.Changeable[i] {
			if _, ok := arg.(*lang.Ref); !ok {
				l, c := arg.Pos()
				a.errorf(diag.TypeErr, l, c, "argument %d of %q is changeable and requires a variable, got an expression", i+1, n.Callee)
			}
		}
		if at.Valid() && !assignable(want, at) {
			l, c := arg.Pos()
			a.errorf(diag.TypeErr, l, c, "argument %d of %q has type %s, expected %s", i+1, n.Callee, at, want)
		}
	}
	return sig.ReturnType
}

func (a *Analyzer) analyzeBuiltinCall(n *lang.CallExpr) types.Type {
	argTypes := make([]types.Type, len(n.Args))
	for i, arg := range n.Args {
		argTypes[i] = a.analyzeExpr(arg)
	}
	wantArgs := func(want int) bool {
		if len(n.Args) != want {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s expects %d argument(s), got %d", n.Callee, want, len(n.Args))
			return false
		}
		return true
	}
	switch n.Callee {
	case "display", "display_line":
		if len(n.Args) == 0 {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s expects at least 1 argument, got 0", n.Callee)
		}
		for i, t := range argTypes {
			if t.Valid() && t.Kind != types.KindNumber && t.Kind != types.KindText {
				l, c := n.Args[i].Pos()
				a.errorf(diag.TypeErr, l, c, "%s argument must be a number or text, got %s", n.Callee, t)
			}
		}
		return types.Nothing
	case "input_number":
		wantArgs(0)
		return types.Number
	case "input_text":
		wantArgs(0)
		return types.Text
	case "length":
		if wantArgs(1) && argTypes[0].Valid() {
			if argTypes[0].Kind != types.KindArray && argTypes[0].Kind != types.KindText {
				a.errorf(diag.TypeErr, n.Line, n.Col, "length expects an array or text, got %s", argTypes[0])
			}
		}
		return types.Number
	case "dimensions":
		if wantArgs(1) && argTypes[0].Valid() && argTypes[0].Kind != types.KindArray {
			a.errorf(diag.TypeErr, n.Line, n.Col, "dimensions expects an array, got %s", argTypes[0])
		}
		return types.Array(types.Number, 1)
	case "lower_bound", "upper_bound":
		if wantArgs(1) && argTypes[0].Valid() && argTypes[0].Kind != types.KindArray {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s expects an array, got %s", n.Callee, argTypes[0])
		}
		return types.Number
	case "round", "floor", "ceil":
		if wantArgs(1) && argTypes[0].Valid() && !types.IsNumeric(argTypes[0]) {
			a.errorf(diag.TypeErr, n.Line, n.Col, "%s expects a number, got %s", n.Callee, argTypes[0])
		}
		return types.Number
	case "random_number":
		if len(n.Args) != 0 && len(n.Args) != 2 {
			a.errorf(diag.TypeErr, n.Line, n.Col, "random_number expects 0 or 2 arguments, got %d", len(n.Args))
		}
		for i, t := range argTypes {
			if t.Valid() && !types.IsNumeric(t) {
				l, c := n.Args[i].Pos()
				a.errorf(diag.TypeErr, l, c, "random_number argument must be a number, got %s", t)
			}
		}
		return types.Number
	default:
		a.errorf(diag.Fatal, n.Line, n.Col, "analyzer: unhandled builtin %q", n.Callee)
		return types.Invalid
	}
}
