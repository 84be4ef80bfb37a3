package interp

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strconv"

	"teachlang/pkg/diag"
	"teachlang/pkg/lang"
	"teachlang/pkg/types"
)

// Evaluator tree-walks an annotated AST against a Store and Frames, the
// runtime counterpart of pkg/analyzer.Analyzer: same one-type-switch-per-
// node-family dispatch shape, grounded on the teacher's codegen.go walk,
// but producing values instead of assembly and diagnostics instead of
// static type errors.
type Evaluator struct {
	store  *Store
	frames *Frames
	syms   *types.Table

	structDefs map[string]*lang.StructureDef
	funcDefs   map[string]*lang.FunctionDef

	out io.Writer
	in  *bufio.Reader
	rng *rand.Rand
}

// New builds an Evaluator ready to run prog. syms is the symbol table the
// semantic analyzer already populated; prog must have been fully analyzed
// (Analyze returned an empty diag.List) before Run is called.
func New(prog *lang.Program, syms *types.Table, out io.Writer, in io.Reader, seed uint64) *Evaluator {
	e := &Evaluator{
		store:      NewStore(),
		frames:     NewFrames(),
		syms:       syms,
		structDefs: make(map[string]*lang.StructureDef),
		funcDefs:   make(map[string]*lang.FunctionDef),
		out:        out,
		in:         bufio.NewReader(in),
		rng:        rand.New(rand.NewPCG(seed, seed)),
	}
	if prog.Definitions != nil {
		for _, sd := range prog.Definitions.Structures {
			e.structDefs[frameKey(sd.Name)] = sd
		}
		for _, fn := range prog.Definitions.Functions {
			e.funcDefs[frameKey(fn.Name)] = fn
		}
	}
	return e
}

// quitSignal rides the ordinary error-return channel: a "quit" statement
// unwinds every call and block on its way out exactly like a genuine
// failure would, and Run treats it as a clean, zero-status exit instead
// of reporting it.
type quitSignal struct{}

func (quitSignal) Error() string { return "quit" }

// ctrl is the closed set of non-local control outcomes a statement can
// produce, per spec.md §9's "control flow as signals" design note.
type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

// outcome is what executing a statement or block produces on top of a
// possible error: ctrlNone means "ran to completion", the others are
// absorbed by their matching construct (loops for Break/Continue,
// function calls for Return) and otherwise bubble further up.
type outcome struct {
	ctrl   ctrl
	ret    extracted
	hasRet bool
}

// rtValue is the result of evaluating an expression: a scalar carries its
// value directly; an Array or Structure carries the address of its header
// cell; a Link carries its pointee address (0 if unset) in Addr.
type rtValue struct {
	Kind types.Kind
	Num  float64
	Text string
	Addr int
}

func numBool(b bool) rtValue {
	if b {
		return rtValue{Kind: types.KindNumber, Num: 1}
	}
	return rtValue{Kind: types.KindNumber, Num: 0}
}

// extracted is a Go-native snapshot of a cell's value tree, used to carry
// a return value (or any value that must survive a Store.TruncateTo)
// across a scope boundary without holding addresses that are about to be
// reclaimed. Store.TruncateTo can only free a contiguous tail of the
// store, so a container value living inside the region about to be freed
// must be copied out to plain Go memory first and re-implanted afterward.
type extracted struct {
	kind       types.Kind
	num        float64
	text       string
	target     int
	elemType   types.Type
	bounds     [][2]int
	structName string
	children   []extracted
}

// Run executes prog to completion, writing display output to the
// Evaluator's out and reading input_number/input_text from its in. A nil
// return covers both ordinary completion and an executed "quit".
func (e *Evaluator) Run(prog *lang.Program) error {
	if prog.Definitions != nil {
		if err := e.execGlobals(prog.Definitions.Globals); err != nil {
			return unwrapQuit(err)
		}
	}
	e.frames.EnterCall(e.store.Mark())
	_, err := e.execStmts(prog.Statements)
	e.frames.ExitCall()
	return unwrapQuit(err)
}

func unwrapQuit(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(quitSignal); ok {
		return nil
	}
	return err
}

// --- Type resolution -------------------------------------------------------

// resolveType turns parsed type syntax into a types.Type. Unlike the
// analyzer's resolveTypeExpr, this never fails: analysis already rejected
// every unknown type name before the evaluator ever runs.
func (e *Evaluator) resolveType(te lang.TypeExpr) types.Type {
	switch {
	case te.IsLink:
		return types.Link(e.resolveType(*te.Underlying))
	case te.IsArray:
		return types.Array(e.resolveType(*te.Underlying), len(te.Bounds))
	case te.Name == "number":
		return types.Number
	case te.Name == "text":
		return types.Text
	case te.Name == "nothing":
		return types.Nothing
	default:
		return types.Structure(te.Name)
	}
}

func findFieldDecl(sd *lang.StructureDef, name string) *lang.FieldDecl {
	if sd == nil {
		return nil
	}
	for i := range sd.Fields {
		if sd.Fields[i].Name == name {
			return &sd.Fields[i]
		}
	}
	return nil
}

// --- Allocation: zero/default values and brace literals --------------------

// materialize allocates addr's shape from te (zero- or default-valued)
// and, if init is given, evaluates it into that shape. A brace literal in
// init is resolved against addr's own freshly-allocated shape rather than
// needing type information of its own, so array and structure literals
// share one code path (evalExprInto) with plain assignment.
func (e *Evaluator) materialize(addr int, te lang.TypeExpr, init lang.Expr) error {
	if err := e.zeroIntoTypeExpr(addr, te); err != nil {
		return err
	}
	if init == nil {
		return nil
	}
	return e.evalExprInto(init, addr)
}

func (e *Evaluator) zeroIntoTypeExpr(addr int, te lang.TypeExpr) error {
	switch {
	case te.IsLink:
		e.store.Get(addr).Kind = types.KindLink
		return nil
	case te.IsArray:
		bounds, err := e.evalBounds(te.Bounds)
		if err != nil {
			return err
		}
		return e.zeroArrayInto(addr, e.resolveType(*te.Underlying), *te.Underlying, bounds)
	case te.Name == "number", te.Name == "text", te.Name == "nothing":
		e.store.Get(addr).Kind = e.resolveType(te).Kind
		return nil
	default:
		return e.zeroStructInto(addr, te.Name)
	}
}

func (e *Evaluator) zeroArrayInto(addr int, elemT types.Type, elemTE lang.TypeExpr, bounds [][2]int) error {
	n := boundsLen(bounds)
	base := e.store.Alloc(n)
	for i := 0; i < n; i++ {
		if err := e.zeroIntoTypeExpr(base+i, elemTE); err != nil {
			return err
		}
	}
	h := e.store.Get(addr)
	h.Kind = types.KindArray
	h.ElemType = elemT
	h.Bounds = bounds
	h.Base = base
	return nil
}

func (e *Evaluator) zeroStructInto(addr int, name string) error {
	def, ok := e.syms.Struct(name)
	if !ok {
		return diag.New("run", diag.Fatal, 0, 0, fmt.Sprintf("unknown structure %q", name))
	}
	sd := e.structDefs[frameKey(name)]
	base := e.store.Alloc(len(def.FieldNames))
	for i, fname := range def.FieldNames {
		fd := findFieldDecl(sd, fname)
		if fd != nil && fd.Default != nil {
			if err := e.evalExprInto(fd.Default, base+i); err != nil {
				return err
			}
			continue
		}
		if err := e.zeroIntoTypeExpr(base+i, fd.Type); err != nil {
			return err
		}
	}
	h := e.store.Get(addr)
	h.Kind = types.KindStructure
	h.StructName = name
	h.Base = base
	return nil
}

// materializeArg allocates a by-value call argument's cell without
// consulting the parameter's declared type shape: a parameter position may
// declare an array with unspecified bounds (TypeExpr.Bounds empty), so the
// only reliable source of a by-value array/structure argument's concrete
// shape is the argument itself, not the callee's syntax.
func (e *Evaluator) materializeArg(addr int, te lang.TypeExpr, arg lang.Expr) error {
	lit, ok := arg.(*lang.ArrayLit)
	if !ok {
		v, err := e.evalExpr(arg)
		if err != nil {
			return err
		}
		e.storeValue(addr, v)
		return nil
	}
	return e.materializeLiteralArg(addr, te, lit)
}

// materializeLiteralArg builds a fresh array/structure directly from a
// brace-literal argument, inferring an array's bounds from the literal's
// own element count (1-based) since the callee's declared bounds may be
// unspecified.
func (e *Evaluator) materializeLiteralArg(addr int, te lang.TypeExpr, lit *lang.ArrayLit) error {
	if te.IsArray {
		bounds := [][2]int{{1, len(lit.Elements)}}
		base := e.store.Alloc(len(lit.Elements))
		for i, el := range lit.Elements {
			if err := e.materializeArg(base+i, *te.Underlying, el); err != nil {
				return err
			}
		}
		h := e.store.Get(addr)
		h.Kind = types.KindArray
		h.ElemType = e.resolveType(*te.Underlying)
		h.Bounds = bounds
		h.Base = base
		return nil
	}
	def, ok := e.syms.Struct(te.Name)
	if !ok {
		return diag.New("run", diag.Fatal, lit.Line, lit.Col, fmt.Sprintf("unknown structure %q", te.Name))
	}
	sd := e.structDefs[frameKey(te.Name)]
	base := e.store.Alloc(len(def.FieldNames))
	for i, fname := range def.FieldNames {
		fd := findFieldDecl(sd, fname)
		if err := e.materializeArg(base+i, fd.Type, lit.Elements[i]); err != nil {
			return err
		}
	}
	h := e.store.Get(addr)
	h.Kind = types.KindStructure
	h.StructName = te.Name
	h.Base = base
	return nil
}

// evalBounds evaluates a declared array's (lo, hi) bound expressions;
// a missing lo defaults to 1, per spec.md's glossary.
func (e *Evaluator) evalBounds(bes []lang.BoundExpr) ([][2]int, error) {
	bounds := make([][2]int, len(bes))
	for i, be := range bes {
		lo := 1
		if be.Lo != nil {
			v, err := e.evalExpr(be.Lo)
			if err != nil {
				return nil, err
			}
			lo = toInt(v.Num)
		}
		hv, err := e.evalExpr(be.Hi)
		if err != nil {
			return nil, err
		}
		bounds[i] = [2]int{lo, toInt(hv.Num)}
	}
	return bounds, nil
}

// evalExprInto evaluates expr and stores its value into target. A brace
// literal is resolved element-by-element against target's own already-
// allocated shape (its Bounds or structure's field list); any other
// expression is evaluated once and copied in with storeValue.
func (e *Evaluator) evalExprInto(expr lang.Expr, target int) error {
	lit, ok := expr.(*lang.ArrayLit)
	if !ok {
		v, err := e.evalExpr(expr)
		if err != nil {
			return err
		}
		e.storeValue(target, v)
		return nil
	}
	shape := *e.store.Get(target)
	switch shape.Kind {
	case types.KindArray:
		want := boundsLen(shape.Bounds)
		if len(lit.Elements) != want {
			return diag.New("run", diag.Bounds, lit.Line, lit.Col,
				fmt.Sprintf("array literal has %d elements, target needs %d", len(lit.Elements), want))
		}
		for i, el := range lit.Elements {
			if err := e.evalExprInto(el, shape.Base+i); err != nil {
				return err
			}
		}
		return nil
	case types.KindStructure:
		for i, el := range lit.Elements {
			if err := e.evalExprInto(el, shape.Base+i); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.New("run", diag.Fatal, lit.Line, lit.Col, "brace literal used against a non-container target")
	}
}

// storeValue writes an already-evaluated value into addr. Scalars copy
// directly; Array/Structure values are deep-copied via extract/implant,
// never aliased, matching spec.md's "assignment copies, links alias".
func (e *Evaluator) storeValue(addr int, v rtValue) {
	c := e.store.Get(addr)
	switch v.Kind {
	case types.KindNumber:
		c.Kind = types.KindNumber
		c.Num = v.Num
	case types.KindText:
		c.Kind = types.KindText
		c.Text = v.Text
	case types.KindNothing:
		c.Kind = types.KindNothing
	case types.KindLink:
		c.Kind = types.KindLink
		c.Target = v.Addr
	case types.KindArray, types.KindStructure:
		e.copyInto(addr, v.Addr)
	}
}

func (e *Evaluator) copyInto(dst, src int) {
	e.implant(dst, e.extract(src))
}

// extract snapshots the value rooted at addr into plain Go memory,
// recursively, so it can survive a Store.TruncateTo that would otherwise
// reclaim it.
func (e *Evaluator) extract(addr int) extracted {
	c := e.store.Get(addr)
	switch c.Kind {
	case types.KindNumber:
		return extracted{kind: c.Kind, num: c.Num}
	case types.KindText:
		return extracted{kind: c.Kind, text: c.Text}
	case types.KindLink:
		return extracted{kind: c.Kind, target: c.Target}
	case types.KindArray:
		n := boundsLen(c.Bounds)
		bounds := append([][2]int(nil), c.Bounds...)
		elemType, base := c.ElemType, c.Base
		children := make([]extracted, n)
		for i := 0; i < n; i++ {
			children[i] = e.extract(base + i)
		}
		return extracted{kind: c.Kind, elemType: elemType, bounds: bounds, children: children}
	case types.KindStructure:
		def, _ := e.syms.Struct(c.StructName)
		name, base := c.StructName, c.Base
		children := make([]extracted, len(def.FieldNames))
		for i := range children {
			children[i] = e.extract(base + i)
		}
		return extracted{kind: c.Kind, structName: name, children: children}
	default:
		return extracted{kind: types.KindNothing}
	}
}

// implant materializes an extracted snapshot into freshly allocated cells
// rooted at addr.
func (e *Evaluator) implant(addr int, ex extracted) {
	c := e.store.Get(addr)
	switch ex.kind {
	case types.KindNumber:
		c.Kind, c.Num = ex.kind, ex.num
	case types.KindText:
		c.Kind, c.Text = ex.kind, ex.text
	case types.KindLink:
		c.Kind, c.Target = ex.kind, ex.target
	case types.KindArray:
		base := e.store.Alloc(len(ex.children))
		for i, ch := range ex.children {
			e.implant(base+i, ch)
		}
		c = e.store.Get(addr)
		c.Kind, c.ElemType, c.Bounds, c.Base = ex.kind, ex.elemType, ex.bounds, base
	case types.KindStructure:
		base := e.store.Alloc(len(ex.children))
		for i, ch := range ex.children {
			e.implant(base+i, ch)
		}
		c = e.store.Get(addr)
		c.Kind, c.StructName, c.Base = ex.kind, ex.structName, base
	default:
		c.Kind = types.KindNothing
	}
}

func (e *Evaluator) readCell(addr int) rtValue {
	c := e.store.Get(addr)
	switch c.Kind {
	case types.KindNumber:
		return rtValue{Kind: types.KindNumber, Num: c.Num}
	case types.KindText:
		return rtValue{Kind: types.KindText, Text: c.Text}
	case types.KindLink:
		return rtValue{Kind: types.KindLink, Addr: c.Target}
	case types.KindArray, types.KindStructure:
		return rtValue{Kind: c.Kind, Addr: addr}
	default:
		return rtValue{Kind: types.KindNothing}
	}
}

// --- References ------------------------------------------------------------

func (e *Evaluator) evalRef(expr lang.Expr) (int, error) {
	ref, ok := expr.(*lang.Ref)
	if !ok {
		return 0, diag.New("run", diag.Fatal, 0, 0, "eval: expected a reference")
	}
	addr, ok := e.frames.Lookup(ref.Name)
	if !ok {
		return 0, diag.New("run", diag.Name, ref.Line, ref.Col, fmt.Sprintf("undeclared name %q", ref.Name))
	}
	for _, acc := range ref.Accessors {
		var err error
		if acc.Field != "" {
			addr, err = e.stepField(addr, acc)
		} else {
			addr, err = e.stepIndex(addr, acc)
		}
		if err != nil {
			return 0, err
		}
	}
	return addr, nil
}

func (e *Evaluator) stepField(addr int, acc lang.Accessor) (int, error) {
	c := e.store.Get(addr)
	def, ok := e.syms.Struct(c.StructName)
	if !ok {
		return 0, diag.New("run", diag.Fatal, acc.Line, acc.Col, "not a structure")
	}
	for i, fname := range def.FieldNames {
		if fname == acc.Field {
			return c.Base + i, nil
		}
	}
	return 0, diag.New("run", diag.Fatal, acc.Line, acc.Col, fmt.Sprintf("structure %q has no field %q", c.StructName, acc.Field))
}

func (e *Evaluator) stepIndex(addr int, acc lang.Accessor) (int, error) {
	c := e.store.Get(addr)
	indices := make([]int, len(acc.Indices))
	for i, ixExpr := range acc.Indices {
		v, err := e.evalExpr(ixExpr)
		if err != nil {
			return 0, err
		}
		indices[i] = toInt(v.Num)
	}
	for j, ix := range indices {
		if ix < c.Bounds[j][0] || ix > c.Bounds[j][1] {
			return 0, diag.New("run", diag.Bounds, acc.Line, acc.Col,
				fmt.Sprintf("index %d out of bounds [%d,%d]", ix, c.Bounds[j][0], c.Bounds[j][1]))
		}
	}
	return c.Base + linearOffset(indices, c.Bounds), nil
}

// --- Expressions -------------------------------------------------------

func (e *Evaluator) evalExpr(expr lang.Expr) (rtValue, error) {
	switch n := expr.(type) {
	case *lang.NumberLit:
		return rtValue{Kind: types.KindNumber, Num: n.Value}, nil
	case *lang.TextLit:
		return rtValue{Kind: types.KindText, Text: n.Value}, nil
	case *lang.Ref:
		addr, err := e.evalRef(n)
		if err != nil {
			return rtValue{}, err
		}
		return e.readCell(addr), nil
	case *lang.CallExpr:
		return e.evalCall(n)
	case *lang.BinaryExpr:
		return e.evalBinary(n)
	case *lang.UnaryExpr:
		return e.evalUnary(n)
	case *lang.IsLinked:
		addr, err := e.evalRef(n.Target)
		if err != nil {
			return rtValue{}, err
		}
		linked := e.store.Get(addr).Target != 0
		if n.Negate {
			linked = !linked
		}
		return numBool(linked), nil
	default:
		return rtValue{}, diag.New("run", diag.Fatal, 0, 0, fmt.Sprintf("eval: unhandled expression %T", expr))
	}
}

func (e *Evaluator) evalBinary(n *lang.BinaryExpr) (rtValue, error) {
	switch n.Op {
	case lang.OpAnd:
		l, err := e.evalExpr(n.Left)
		if err != nil {
			return rtValue{}, err
		}
		if l.Num == 0 {
			return numBool(false), nil
		}
		r, err := e.evalExpr(n.Right)
		if err != nil {
			return rtValue{}, err
		}
		return numBool(r.Num != 0), nil
	case lang.OpOr:
		l, err := e.evalExpr(n.Left)
		if err != nil {
			return rtValue{}, err
		}
		if l.Num != 0 {
			return numBool(true), nil
		}
		r, err := e.evalExpr(n.Right)
		if err != nil {
			return rtValue{}, err
		}
		return numBool(r.Num != 0), nil
	}

	l, err := e.evalExpr(n.Left)
	if err != nil {
		return rtValue{}, err
	}
	r, err := e.evalExpr(n.Right)
	if err != nil {
		return rtValue{}, err
	}
	switch n.Op {
	case lang.OpLt:
		return numBool(l.Num < r.Num), nil
	case lang.OpLe:
		return numBool(l.Num <= r.Num), nil
	case lang.OpGt:
		return numBool(l.Num > r.Num), nil
	case lang.OpGe:
		return numBool(l.Num >= r.Num), nil
	case lang.OpEq:
		return numBool(valuesEqual(l, r)), nil
	case lang.OpNe:
		return numBool(!valuesEqual(l, r)), nil
	case lang.OpBitOr:
		return rtValue{Kind: types.KindNumber, Num: float64(toInt64(l.Num) | toInt64(r.Num))}, nil
	case lang.OpBitXor:
		return rtValue{Kind: types.KindNumber, Num: float64(toInt64(l.Num) ^ toInt64(r.Num))}, nil
	case lang.OpBitAnd:
		return rtValue{Kind: types.KindNumber, Num: float64(toInt64(l.Num) & toInt64(r.Num))}, nil
	case lang.OpBitSl:
		return rtValue{Kind: types.KindNumber, Num: float64(toInt64(l.Num) << uint64(toInt64(r.Num)))}, nil
	case lang.OpBitSr:
		return rtValue{Kind: types.KindNumber, Num: float64(toInt64(l.Num) >> uint64(toInt64(r.Num)))}, nil
	case lang.OpMod:
		if r.Num == 0 {
			return rtValue{}, diag.New("run", diag.Arithmetic, n.Line, n.Col, "mod by zero")
		}
		return rtValue{Kind: types.KindNumber, Num: math.Mod(l.Num, r.Num)}, nil
	case lang.OpAdd:
		return e.evalAdd(l, r), nil
	case lang.OpSub:
		return rtValue{Kind: types.KindNumber, Num: l.Num - r.Num}, nil
	case lang.OpMul:
		return rtValue{Kind: types.KindNumber, Num: l.Num * r.Num}, nil
	case lang.OpDiv:
		if r.Num == 0 {
			return rtValue{}, diag.New("run", diag.Arithmetic, n.Line, n.Col, "division by zero")
		}
		return rtValue{Kind: types.KindNumber, Num: l.Num / r.Num}, nil
	case lang.OpPow:
		return rtValue{Kind: types.KindNumber, Num: math.Pow(l.Num, r.Num)}, nil
	default:
		return rtValue{}, diag.New("run", diag.Fatal, n.Line, n.Col, "eval: unhandled operator")
	}
}

// evalAdd implements the sole cross-type relaxation: text concatenation.
func (e *Evaluator) evalAdd(l, r rtValue) rtValue {
	if l.Kind == types.KindNumber && r.Kind == types.KindNumber {
		return rtValue{Kind: types.KindNumber, Num: l.Num + r.Num}
	}
	return rtValue{Kind: types.KindText, Text: formatValue(l) + formatValue(r)}
}

func valuesEqual(l, r rtValue) bool {
	switch l.Kind {
	case types.KindText:
		return l.Text == r.Text
	case types.KindNumber:
		return l.Num == r.Num
	default:
		return l.Addr == r.Addr
	}
}

func (e *Evaluator) evalUnary(n *lang.UnaryExpr) (rtValue, error) {
	v, err := e.evalExpr(n.Operand)
	if err != nil {
		return rtValue{}, err
	}
	switch n.Op {
	case lang.OpNeg:
		return rtValue{Kind: types.KindNumber, Num: -v.Num}, nil
	case lang.OpPos:
		return rtValue{Kind: types.KindNumber, Num: math.Abs(v.Num)}, nil
	case lang.OpBitNot:
		return rtValue{Kind: types.KindNumber, Num: float64(^toInt64(v.Num))}, nil
	default:
		return rtValue{}, diag.New("run", diag.Fatal, n.Line, n.Col, "eval: unhandled unary operator")
	}
}

func formatValue(v rtValue) string {
	if v.Kind == types.KindText {
		return v.Text
	}
	return formatNumber(v.Num)
}

// formatNumber implements spec.md §4.5's "number-to-text formatting":
// values within 1e-6 of an integer render as that integer; otherwise the
// shortest exact decimal representation is used, which already has no
// trailing zeros. A collapsed value of zero always prints as "0", never
// "-0": math.Round keeps the sign bit of a negative value that rounds to
// zero, and strconv.FormatFloat would otherwise surface it.
func formatNumber(n float64) string {
	if math.Abs(n-math.Round(n)) < 1e-6 {
		r := math.Round(n)
		if r == 0 {
			r = 0
		}
		return strconv.FormatFloat(r, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func toInt(f float64) int     { return int(f) }
func toInt64(f float64) int64 { return int64(f) }

// --- Calls -------------------------------------------------------------

func (e *Evaluator) evalCall(n *lang.CallExpr) (rtValue, error) {
	if isBuiltin(n.Callee) {
		return e.evalBuiltin(n)
	}
	fn := e.funcDefs[frameKey(n.Callee)]
	sig, _ := e.syms.Function(n.Callee)

	// resultSlot is reserved before argument evaluation begins so it
	// survives the TruncateTo below regardless of how much the call itself
	// allocates.
	resultSlot := e.store.Alloc(1)
	mark := e.store.Mark()
	argAddrs := make([]int, len(n.Args))
	for i, arg := range n.Args {
		if sig.Changeable[i] {
			addr, err := e.evalRef(arg)
			if err != nil {
				return rtValue{}, err
			}
			argAddrs[i] = addr
			continue
		}
		addr := e.store.Alloc(1)
		if err := e.materializeArg(addr, fn.Params[i].Type, arg); err != nil {
			return rtValue{}, err
		}
		argAddrs[i] = addr
	}

	ret, hasRet, err := e.callFunction(fn, sig, argAddrs)
	if err != nil {
		return rtValue{}, err
	}
	if tErr := e.store.TruncateTo(mark, n.Line, n.Col); tErr != nil {
		return rtValue{}, tErr
	}
	if !hasRet {
		return rtValue{Kind: types.KindNothing}, nil
	}
	e.implant(resultSlot, ret)
	return e.readCell(resultSlot), nil
}

// callFunction runs fn's body in a fresh, isolated call frame bound to
// argAddrs and returns its extracted return value, if any.
func (e *Evaluator) callFunction(fn *lang.FunctionDef, sig *types.FunctionSig, argAddrs []int) (extracted, bool, error) {
	e.frames.EnterCall(e.store.Mark())
	for i, name := range sig.ParamNames {
		e.frames.Define(name, argAddrs[i])
	}
	out, err := e.execStmts(fn.Body)
	e.frames.ExitCall()
	if err != nil {
		return extracted{}, false, err
	}
	if out.ctrl == ctrlReturn {
		return out.ret, out.hasRet, nil
	}
	return extracted{}, false, nil
}
