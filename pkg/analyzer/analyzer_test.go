package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"teachlang/pkg/lang"
	"teachlang/pkg/types"
)

func mustAnalyze(t *testing.T, src string) (*lang.Program, *types.Table) {
	t.Helper()
	toks, lexErrs := lang.Lex(src)
	require.True(t, lexErrs.Empty(), "lex errors: %v", lexErrs)
	prog, parseErrs := lang.Parse(toks)
	require.True(t, parseErrs.Empty(), "parse errors: %v", parseErrs)
	syms, errs := Analyze(prog)
	require.True(t, errs.Empty(), "analyze errors: %v", errs)
	return prog, syms
}

func analyzeErrs(t *testing.T, src string) []string {
	t.Helper()
	toks, lexErrs := lang.Lex(src)
	require.True(t, lexErrs.Empty())
	prog, parseErrs := lang.Parse(toks)
	require.True(t, parseErrs.Empty())
	_, errs := Analyze(prog)
	var msgs []string
	for _, d := range errs.Items() {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

func TestAnalyzeSimpleArithmeticIsTyped(t *testing.T) {
	prog, _ := mustAnalyze(t, `
program
	x: number = 1
	y: number = x + 2
end program
`)
	vd := prog.Statements[1].(*lang.VarDef)
	require.Equal(t, types.Number, vd.Init.ExprType())
}

func TestAnalyzeUndeclaredNameIsNameError(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x = y + 1
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeTypeMismatchOnAssign(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = "hi"
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeTextConcatenationRelaxation(t *testing.T) {
	prog, _ := mustAnalyze(t, `
program
	x: text = "n=" + 5
end program
`)
	vd := prog.Statements[0].(*lang.VarDef)
	require.Equal(t, types.Text, vd.Init.ExprType())
}

func TestAnalyzeArithmeticOnTextIsError(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: text = "a"
	y: number = x - 1
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeFunctionCallArityAndTypes(t *testing.T) {
	_, syms := mustAnalyze(t, `
definitions
	function add(a: number, b: number) returns number
		return a + b
	end function
end definitions
program
	x: number = add(1, 2)
end program
`)
	sig, ok := syms.Function("add")
	require.True(t, ok)
	require.Equal(t, types.Number, sig.ReturnType)
}

func TestAnalyzeFunctionCallArityMismatch(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	function add(a: number, b: number) returns number
		return a + b
	end function
end definitions
program
	x: number = add(1)
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeChangeableParamRequiresVariable(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	function bump(n: changeable number)
		n = n + 1
	end function
end definitions
program
	bump(1 + 2)
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeChangeableParamAcceptsVariable(t *testing.T) {
	analyzeErrsEmpty := func(src string) {
		msgs := analyzeErrs(t, src)
		require.Empty(t, msgs)
	}
	analyzeErrsEmpty(`
definitions
	function bump(n: changeable number)
		n = n + 1
	end function
end definitions
program
	v: number = 1
	bump(v)
end program
`)
}

func TestAnalyzeBreakContinueOutsideLoopIsError(t *testing.T) {
	require.NotEmpty(t, analyzeErrs(t, "program\n\tbreak\nend program\n"))
	require.NotEmpty(t, analyzeErrs(t, "program\n\tcontinue\nend program\n"))
}

func TestAnalyzeBreakContinueInsideLoopIsFine(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	while 1 < 2
		break
	end while
	repeat
		continue
		break
	end repeat
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeReturnOutsideFunctionIsError(t *testing.T) {
	require.NotEmpty(t, analyzeErrs(t, "program\n\treturn\nend program\n"))
}

func TestAnalyzeReturnTypeMismatch(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	function f() returns number
		return "oops"
	end function
end definitions
program
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeStructureLiteralAndFieldAccess(t *testing.T) {
	prog, _ := mustAnalyze(t, `
definitions
	structure point
		x: number = 0
		y: number = 0
	end structure
end definitions
program
	p: point = {1, 2}
	z: number = p.x
end program
`)
	pd := prog.Statements[0].(*lang.VarDef)
	require.Equal(t, types.Structure("point"), pd.Init.ExprType())
	zd := prog.Statements[1].(*lang.VarDef)
	require.Equal(t, types.Number, zd.Init.ExprType())
}

func TestAnalyzeStructureLiteralWrongFieldCount(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	structure point
		x: number = 0
		y: number = 0
	end structure
end definitions
program
	p: point = {1}
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeStructureCannotReferenceLaterStructure(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	structure node
		next: link to leaf
	end structure
	structure leaf
		v: number = 0
	end structure
end definitions
program
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeStructureCanReferenceEarlierStructure(t *testing.T) {
	prog, _ := mustAnalyze(t, `
definitions
	structure leaf
		v: number = 0
	end structure
	structure node
		next: link to leaf
	end structure
end definitions
program
	n: node
end program
`)
	require.NotNil(t, prog)
}

func TestAnalyzeIdentifiersCompareCaseInsensitively(t *testing.T) {
	prog, _ := mustAnalyze(t, `
program
	Count: number = 1
	z: number = count + COUNT
end program
`)
	zd := prog.Statements[1].(*lang.VarDef)
	require.Equal(t, types.Number, zd.Init.ExprType())
}

func TestAnalyzeArrayLiteralAndIndexing(t *testing.T) {
	prog, _ := mustAnalyze(t, `
program
	xs: array [1 to 3] of number = {1, 2, 3}
	y: number = xs[1]
end program
`)
	yd := prog.Statements[1].(*lang.VarDef)
	require.Equal(t, types.Number, yd.Init.ExprType())
}

func TestAnalyzeArrayIndexArityMismatch(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	m: array [0 to 2, 0 to 2] of number
	x: number = m[1]
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeLinkAndUnlinkTypeChecking(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	p: link to number
	link p to x
	unlink p
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeLinkPointeeTypeMismatch(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: text = "a"
	p: link to number
	link p to x
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeIsLinkedRequiresLink(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	if x is linked then
		x = 2
	end if
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeConditionMustBeBoolean(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	if x then
		x = 2
	end if
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeShortCircuitDoesNotRequireEvaluationOrder(t *testing.T) {
	// Type-checking still visits both operands regardless of short-circuit
	// semantics, which belong to the evaluator; a type error on either side
	// must still be reported.
	msgs := analyzeErrs(t, `
program
	x: text = "a"
	if 0 and x then
		x = "b"
	end if
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeShortCircuitOperandsAreNumbersNotNestedConditions(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	function sideeffect() returns number
		display("X")
		return 1
	end function
end definitions
program
	if 0 and sideeffect() = 1 then
		display("Y")
	end if
	display_line("done")
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeArithmeticConditionIsRejected(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	if x + 1 then
		x = 2
	end if
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeUnknownTypeNameIsNameError(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: bogus
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeDuplicateDeclarationInSameScope(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	x: number = 2
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeShadowingInNestedScopeIsAllowed(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	if 1 < 2 then
		x: number = 2
	end if
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeBuiltinCannotBeRedefined(t *testing.T) {
	msgs := analyzeErrs(t, `
definitions
	function display(x: number)
		return
	end function
end definitions
program
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeRepeatForAllElementType(t *testing.T) {
	prog, _ := mustAnalyze(t, `
program
	xs: array [1 to 3] of number = {1, 2, 3}
	repeat for all v in xs
		display(v)
	end repeat
end program
`)
	rfa := prog.Statements[1].(*lang.RepeatForAll)
	call := rfa.Body[0].(*lang.ExpressionStatement).Expr.(*lang.CallExpr)
	vRef := call.Args[0].(*lang.Ref)
	require.Equal(t, types.Number, vRef.ExprType())
}

func TestAnalyzeExpressionStatementMustBeCall(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = 1
	x + 1
end program
`)
	require.NotEmpty(t, msgs)
}

func TestAnalyzeBuiltinRoundFloorCeil(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	x: number = round(1.5)
	y: number = floor(1.5)
	z: number = ceil(1.5)
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeBuiltinLengthDimensionsBounds(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	xs: array [1 to 3] of number = {1, 2, 3}
	a: number = length(xs)
	b: array [1 to 1] of number = dimensions(xs)
	c: number = lower_bound(xs)
	d: number = upper_bound(xs)
end program
`)
	require.Empty(t, msgs)
}

func TestAnalyzeRandomNumberArityForms(t *testing.T) {
	msgs := analyzeErrs(t, `
program
	a: number = random_number()
	b: number = random_number(1, 10)
end program
`)
	require.Empty(t, msgs)
}
