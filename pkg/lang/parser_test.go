package lang

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	toks, lexErrs := Lex(src)
	require.True(t, lexErrs.Empty(), "lex errors: %v", lexErrs)
	prog, parseErrs := Parse(toks)
	require.True(t, parseErrs.Empty(), "parse errors: %v", parseErrs)
	return prog
}

func TestParseMinimalProgram(t *testing.T) {
	prog := mustParse(t, `
program
end program
`)
	require.Nil(t, prog.Definitions)
	require.Empty(t, prog.Statements)
}

func TestParseVarDefAndAssign(t *testing.T) {
	prog := mustParse(t, `
program
	x: number = 1
	x = x + 1
end program
`)
	require.Len(t, prog.Statements, 2)

	vd, ok := prog.Statements[0].(*VarDef)
	require.True(t, ok)
	require.Equal(t, "x", vd.Name)
	require.Equal(t, "number", vd.Type.Name)
	_, ok = vd.Init.(*NumberLit)
	require.True(t, ok)

	asn, ok := prog.Statements[1].(*Assign)
	require.True(t, ok)
	ref, ok := asn.Target.(*Ref)
	require.True(t, ok)
	require.Equal(t, "x", ref.Name)
	bin, ok := asn.Value.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpAdd, bin.Op)
}

func TestParseStructureAndFunctionDefinitions(t *testing.T) {
	prog := mustParse(t, `
definitions
	structure point
		x: number = 0
		y: number = 0
	end structure

	function distance(a: point, b: point) returns number
		return 0
	end function
end definitions
program
end program
`)
	require.NotNil(t, prog.Definitions)
	require.Len(t, prog.Definitions.Structures, 1)
	sd := prog.Definitions.Structures[0]
	require.Equal(t, "point", sd.Name)
	require.Len(t, sd.Fields, 2)
	require.Equal(t, "x", sd.Fields[0].Name)

	require.Len(t, prog.Definitions.Functions, 1)
	fn := prog.Definitions.Functions[0]
	require.Equal(t, "distance", fn.Name)
	require.Len(t, fn.Params, 2)
	require.False(t, fn.Params[0].Changeable)
	require.NotNil(t, fn.ReturnType)
	require.Equal(t, "number", fn.ReturnType.Name)
}

func TestParseChangeableParam(t *testing.T) {
	prog := mustParse(t, `
definitions
	function bump(n: changeable number)
		n = n + 1
	end function
end definitions
program
end program
`)
	fn := prog.Definitions.Functions[0]
	require.True(t, fn.Params[0].Changeable)
}

func TestParseIfElseIfElse(t *testing.T) {
	prog := mustParse(t, `
program
	if x < 1 then
		y = 1
	else if x < 2 then
		y = 2
	else
		y = 3
	end if
end program
`)
	ifs, ok := prog.Statements[0].(*If)
	require.True(t, ok)
	require.Len(t, ifs.Body, 1)
	require.Len(t, ifs.ElseIfs, 1)
	require.Len(t, ifs.Else, 1)
}

func TestParseWhile(t *testing.T) {
	prog := mustParse(t, `
program
	while x < 10
		x = x + 1
	end while
end program
`)
	w, ok := prog.Statements[0].(*While)
	require.True(t, ok)
	require.Len(t, w.Body, 1)
}

func TestParseRepeatForms(t *testing.T) {
	prog := mustParse(t, `
program
	repeat 3 times
		x = x + 1
	end repeat
	repeat for all v in items
		display(v)
	end repeat
	repeat
		break
	end repeat
end program
`)
	require.Len(t, prog.Statements, 3)

	rn, ok := prog.Statements[0].(*RepeatN)
	require.True(t, ok)
	_, ok = rn.Count.(*NumberLit)
	require.True(t, ok)

	rfa, ok := prog.Statements[1].(*RepeatForAll)
	require.True(t, ok)
	require.Equal(t, "v", rfa.Var)

	rf, ok := prog.Statements[2].(*RepeatForever)
	require.True(t, ok)
	require.Len(t, rf.Body, 1)
	_, ok = rf.Body[0].(*Break)
	require.True(t, ok)
}

func TestParseLinkAndUnlink(t *testing.T) {
	prog := mustParse(t, `
program
	link p to y
	unlink p
end program
`)
	la, ok := prog.Statements[0].(*LinkAssign)
	require.True(t, ok)
	require.Equal(t, "p", la.Target.(*Ref).Name)
	require.Equal(t, "y", la.Source.(*Ref).Name)

	ul, ok := prog.Statements[1].(*Unlink)
	require.True(t, ok)
	require.Equal(t, "p", ul.Target.(*Ref).Name)
}

func TestParseIsLinked(t *testing.T) {
	prog := mustParse(t, `
program
	if p is linked then
		x = 1
	end if
	if p is not linked then
		x = 2
	end if
end program
`)
	first := prog.Statements[0].(*If)
	il, ok := first.Cond.(*IsLinked)
	require.True(t, ok)
	require.False(t, il.Negate)

	second := prog.Statements[1].(*If)
	il2, ok := second.Cond.(*IsLinked)
	require.True(t, ok)
	require.True(t, il2.Negate)
}

func TestParseArrayTypeAndIndexing(t *testing.T) {
	prog := mustParse(t, `
program
	xs: array [1 to 10] of number
	xs[1] = 5
	m: array [0 to 2, 0 to 2] of number
	m[1, 1] = 9
end program
`)
	vd := prog.Statements[0].(*VarDef)
	require.True(t, vd.Type.IsArray)
	require.Len(t, vd.Type.Bounds, 1)
	require.Equal(t, "number", vd.Type.Underlying.Name)

	asn := prog.Statements[1].(*Assign)
	ref := asn.Target.(*Ref)
	require.Len(t, ref.Accessors, 1)
	require.Len(t, ref.Accessors[0].Indices, 1)

	vd2 := prog.Statements[2].(*VarDef)
	require.Len(t, vd2.Type.Bounds, 2)

	asn2 := prog.Statements[3].(*Assign)
	ref2 := asn2.Target.(*Ref)
	require.Len(t, ref2.Accessors[0].Indices, 2)
}

func TestParseFieldAccessChain(t *testing.T) {
	prog := mustParse(t, `
program
	a.b.c = 1
end program
`)
	asn := prog.Statements[0].(*Assign)
	ref := asn.Target.(*Ref)
	require.Equal(t, "a", ref.Name)
	require.Len(t, ref.Accessors, 2)
	require.Equal(t, "b", ref.Accessors[0].Field)
	require.Equal(t, "c", ref.Accessors[1].Field)
}

func TestParseCallExpressionStatement(t *testing.T) {
	prog := mustParse(t, `
program
	display_line("hi")
end program
`)
	es, ok := prog.Statements[0].(*ExpressionStatement)
	require.True(t, ok)
	call, ok := es.Expr.(*CallExpr)
	require.True(t, ok)
	require.Equal(t, "display_line", call.Callee)
	require.Len(t, call.Args, 1)
}

func TestParseOperatorPrecedence(t *testing.T) {
	// 1 + 2 * 3 ^ 2 should parse as 1 + (2 * (3 ^ 2))
	prog := mustParse(t, `
program
	x = 1 + 2 * 3 ^ 2
end program
`)
	asn := prog.Statements[0].(*Assign)
	add, ok := asn.Value.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpAdd, add.Op)
	_, ok = add.Left.(*NumberLit)
	require.True(t, ok)

	mul, ok := add.Right.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpMul, mul.Op)

	pow, ok := mul.Right.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpPow, pow.Op)
}

func TestParseLogicalAndComparisonPrecedence(t *testing.T) {
	// a < 1 and b > 2 or c = 3  should parse as (a<1 and b>2) or (c=3)
	prog := mustParse(t, `
program
	if a < 1 and b > 2 or c = 3 then
		x = 1
	end if
end program
`)
	ifs := prog.Statements[0].(*If)
	or, ok := ifs.Cond.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpOr, or.Op)

	and, ok := or.Left.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpAnd, and.Op)

	eq, ok := or.Right.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpEq, eq.Op)
}

func TestParseUnaryAndBitwise(t *testing.T) {
	prog := mustParse(t, `
program
	x = -1
	y = bit_not 1
	z = 1 bit_sl 2 bit_and 3
end program
`)
	x := prog.Statements[0].(*Assign)
	neg, ok := x.Value.(*UnaryExpr)
	require.True(t, ok)
	require.Equal(t, OpNeg, neg.Op)

	y := prog.Statements[1].(*Assign)
	bn, ok := y.Value.(*UnaryExpr)
	require.True(t, ok)
	require.Equal(t, OpBitNot, bn.Op)

	z := prog.Statements[2].(*Assign)
	bAnd, ok := z.Value.(*BinaryExpr)
	require.True(t, ok)
	require.Equal(t, OpBitAnd, bAnd.Op)
	_, ok = bAnd.Left.(*BinaryExpr)
	require.True(t, ok)
}

func TestParseArrayLiteral(t *testing.T) {
	prog := mustParse(t, `
program
	xs: array [1 to 3] of number = {1, 2, 3}
end program
`)
	vd := prog.Statements[0].(*VarDef)
	lit, ok := vd.Init.(*ArrayLit)
	require.True(t, ok)
	require.Len(t, lit.Elements, 3)
}

func TestParseReturnAndQuit(t *testing.T) {
	prog := mustParse(t, `
definitions
	function f() returns number
		return 1
	end function
end definitions
program
	quit
end program
`)
	fn := prog.Definitions.Functions[0]
	ret, ok := fn.Body[0].(*Return)
	require.True(t, ok)
	require.NotNil(t, ret.Value)

	_, ok = prog.Statements[0].(*Quit)
	require.True(t, ok)
}

func TestParseSyntaxErrorRecoveryReportsMultiple(t *testing.T) {
	toks, lexErrs := Lex(`
program
	x: number = )
	y: number = )
end program
`)
	require.True(t, lexErrs.Empty())
	_, errs := Parse(toks)
	require.False(t, errs.Empty())
	require.GreaterOrEqual(t, len(errs.Items()), 2)
}
