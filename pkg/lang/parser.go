package lang

import (
	"fmt"
	"strconv"

	"teachlang/pkg/diag"
)

// Parser is a recursive-descent parser with one-token lookahead (two where
// the grammar branches on IDENT COLON vs. a bare IDENT reference), grounded
// on the teacher's Parser{tokens, pos} shape (pkg/compiler/parser.go).
//
// Grammar sketch:
//
//	program     = definitions? "program" stmtList "end" "program"
//	definitions = "definitions" structureDef* varDef* functionDef* "end" "definitions"
//	structureDef = "structure" IDENT fieldDecl* "end" "structure"
//	functionDef = "function" IDENT "(" params? ")" ("returns" type)? stmtList "end" "function"
//	stmtList    = statement*
//	statement   = varDef | ifStmt | whileStmt | repeatStmt | assignOrCall
//	            | break | continue | return | quit | link | unlink
//	expression precedence (low to high): or; and; comparisons; bit_or;
//	  bit_xor; bit_and; bit_sl/bit_sr; add/sub; mul/div/mod; unary; pow; primary
type Parser struct {
	tokens []Token
	pos    int
	errs   *diag.List
}

// Parse tokenizes-then-parses is split: Parse takes an already-lexed token
// stream and returns the Program AST, plus any diagnostics gathered while
// recovering from syntax errors.
func Parse(tokens []Token) (*Program, *diag.List) {
	p := &Parser{tokens: tokens, errs: &diag.List{}}
	prog := p.parseProgram()
	return prog, p.errs
}

func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Kind: EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return Token{Kind: EOF}
	}
	return p.tokens[i]
}

func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(k Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) match(k Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes the current token if it matches k, else records a
// SyntaxError and returns the token anyway so the caller can keep going.
func (p *Parser) expect(k Kind) Token {
	tok := p.peek()
	if tok.Kind != k {
		p.errorf(tok, "expected %s, found %s %q", k, tok.Kind, tok.Lexeme)
		return tok
	}
	return p.advance()
}

func (p *Parser) errorf(tok Token, format string, args ...any) {
	p.errs.Addf("parse", diag.Syntax, tok.Line, tok.Col, fmt.Sprintf(format, args...))
}

// synchronize discards tokens until a plausible statement boundary, so
// parsing can continue and report further errors instead of stopping at
// the first mistake, per spec.md §4.2/§7.
func (p *Parser) synchronize() {
	for !p.check(EOF) {
		switch p.peek().Kind {
		case KwEnd, KwIf, KwWhile, KwRepeat, KwReturn, KwBreak, KwContinue,
			KwQuit, KwLink, KwUnlink, KwFunction, KwStructure:
			return
		}
		p.advance()
	}
}

// --- Program / definitions ------------------------------------------------

func (p *Parser) parseProgram() *Program {
	prog := &Program{}
	if p.check(KwDefinitions) {
		prog.Definitions = p.parseDefinitions()
	}
	p.expect(KwProgram)
	prog.Statements = p.parseStmtList(KwEnd)
	p.expect(KwEnd)
	p.expect(KwProgram)
	return prog
}

func (p *Parser) parseDefinitions() *Definitions {
	p.expect(KwDefinitions)
	defs := &Definitions{}
	for p.check(KwStructure) {
		defs.Structures = append(defs.Structures, p.parseStructureDef())
	}
	for p.check(IDENT) && p.peekAt(1).Kind == Colon {
		defs.Globals = append(defs.Globals, p.parseVarDef())
	}
	for p.check(KwFunction) {
		defs.Functions = append(defs.Functions, p.parseFunctionDef())
	}
	p.expect(KwEnd)
	p.expect(KwDefinitions)
	return defs
}

func (p *Parser) parseStructureDef() *StructureDef {
	tok := p.expect(KwStructure)
	name := p.expect(IDENT)
	def := &StructureDef{Name: name.Lexeme, Line: tok.Line, Col: tok.Col}
	for p.check(IDENT) {
		fname := p.advance()
		p.expect(Colon)
		ftype := p.parseTypeExpr()
		var deflt Expr
		if p.match(OpAssign) {
			deflt = p.parseExpression()
		}
		def.Fields = append(def.Fields, FieldDecl{Name: fname.Lexeme, Type: ftype, Default: deflt})
		p.match(Comma)
	}
	p.expect(KwEnd)
	p.expect(KwStructure)
	return def
}

func (p *Parser) parseFunctionDef() *FunctionDef {
	tok := p.expect(KwFunction)
	name := p.expect(IDENT)
	fn := &FunctionDef{Name: name.Lexeme, Line: tok.Line, Col: tok.Col}
	p.expect(LParen)
	for !p.check(RParen) && !p.check(EOF) {
		pname := p.expect(IDENT)
		p.expect(Colon)
		changeable := p.match(KwChangeable)
		ptype := p.parseTypeExpr()
		fn.Params = append(fn.Params, Param{Name: pname.Lexeme, Changeable: changeable, Type: ptype})
		if !p.match(Comma) {
			break
		}
	}
	p.expect(RParen)
	if p.match(KwReturns) {
		rt := p.parseTypeExpr()
		fn.ReturnType = &rt
	}
	fn.Body = p.parseStmtList(KwEnd)
	p.expect(KwEnd)
	p.expect(KwFunction)
	return fn
}

// parseTypeExpr parses "number", "text", "nothing", a structure name,
// "array [lo to hi, ...] of T" (bounds may be omitted in parameter
// position: "array of T"), or "link to T".
func (p *Parser) parseTypeExpr() TypeExpr {
	switch {
	case p.match(KwNumber):
		return TypeExpr{Name: "number"}
	case p.match(KwText):
		return TypeExpr{Name: "text"}
	case p.match(KwNothing):
		return TypeExpr{Name: "nothing"}
	case p.match(KwLink):
		p.expect(KwTo)
		under := p.parseTypeExpr()
		return TypeExpr{IsLink: true, Underlying: &under}
	case p.match(KwArray):
		te := TypeExpr{IsArray: true}
		if p.match(LBracket) {
			for {
				var b BoundExpr
				first := p.parseExpression()
				if p.match(KwTo) {
					b.Lo = first
					b.Hi = p.parseExpression()
				} else {
					b.Hi = first
				}
				te.Bounds = append(te.Bounds, b)
				if !p.match(Comma) {
					break
				}
			}
			p.expect(RBracket)
		}
		p.expect(KwOf)
		under := p.parseTypeExpr()
		te.Underlying = &under
		return te
	case p.check(IDENT):
		tok := p.advance()
		return TypeExpr{Name: tok.Lexeme}
	default:
		tok := p.peek()
		p.errorf(tok, "expected a type, found %s %q", tok.Kind, tok.Lexeme)
		p.advance()
		return TypeExpr{Name: "number"}
	}
}

// --- Statements ------------------------------------------------------------

// parseStmtList parses statements until it sees one of stops (typically
// KwEnd, plus KwElse for an if-body) or EOF, recovering from a bad
// statement by synchronizing and continuing.
func (p *Parser) parseStmtList(stops ...Kind) []Stmt {
	var stmts []Stmt
	for !p.atStop(stops) && !p.check(EOF) {
		before := p.pos
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == before {
			// parseStatement made no progress; force it to avoid looping.
			p.errorf(p.peek(), "unexpected token %s %q", p.peek().Kind, p.peek().Lexeme)
			p.advance()
			p.synchronize()
		}
	}
	return stmts
}

func (p *Parser) atStop(stops []Kind) bool {
	cur := p.peek().Kind
	for _, s := range stops {
		if cur == s {
			return true
		}
	}
	return false
}

func (p *Parser) parseStatement() Stmt {
	switch {
	case p.check(IDENT) && p.peekAt(1).Kind == Colon:
		return p.parseVarDef()
	case p.check(KwIf):
		return p.parseIf()
	case p.check(KwWhile):
		return p.parseWhile()
	case p.check(KwRepeat):
		return p.parseRepeat()
	case p.check(KwBreak):
		tok := p.advance()
		return &Break{Line: tok.Line, Col: tok.Col}
	case p.check(KwContinue):
		tok := p.advance()
		return &Continue{Line: tok.Line, Col: tok.Col}
	case p.check(KwReturn):
		tok := p.advance()
		r := &Return{Line: tok.Line, Col: tok.Col}
		if !p.startsBlockEnd() {
			r.Value = p.parseExpression()
		}
		return r
	case p.check(KwQuit):
		tok := p.advance()
		return &Quit{Line: tok.Line, Col: tok.Col}
	case p.check(KwLink):
		return p.parseLinkAssign()
	case p.check(KwUnlink):
		tok := p.advance()
		target := p.parseRef()
		return &Unlink{Target: target, Line: tok.Line, Col: tok.Col}
	default:
		return p.parseAssignOrExprStmt()
	}
}

// startsBlockEnd reports whether the current token plausibly ends a value
// position (used to decide whether a bare "return" has a following
// expression).
func (p *Parser) startsBlockEnd() bool {
	switch p.peek().Kind {
	case KwEnd, KwElse, EOF:
		return true
	}
	return false
}

func (p *Parser) parseVarDef() *VarDef {
	name := p.expect(IDENT)
	p.expect(Colon)
	ty := p.parseTypeExpr()
	v := &VarDef{Name: name.Lexeme, Type: ty, Line: name.Line, Col: name.Col}
	if p.match(OpAssign) {
		v.Init = p.parseExpression()
	}
	return v
}

func (p *Parser) parseIf() *If {
	tok := p.expect(KwIf)
	ifs := &If{Line: tok.Line, Col: tok.Col}
	ifs.Cond = p.parseCondition()
	p.expect(KwThen)
	ifs.Body = p.parseStmtList(KwEnd, KwElse)
	for p.check(KwElse) {
		p.advance()
		if p.check(KwIf) {
			p.advance()
			cond := p.parseCondition()
			p.expect(KwThen)
			body := p.parseStmtList(KwEnd, KwElse)
			ifs.ElseIfs = append(ifs.ElseIfs, ElseIf{Cond: cond, Body: body})
			continue
		}
		ifs.Else = p.parseStmtList(KwEnd)
		break
	}
	p.expect(KwEnd)
	p.expect(KwIf)
	return ifs
}

func (p *Parser) parseWhile() *While {
	tok := p.expect(KwWhile)
	w := &While{Line: tok.Line, Col: tok.Col}
	w.Cond = p.parseCondition()
	w.Body = p.parseStmtList(KwEnd)
	p.expect(KwEnd)
	p.expect(KwWhile)
	return w
}

// parseRepeat dispatches on the token following "repeat": a statement
// keyword means an infinite loop; a resolvable followed by "times" means a
// counted loop; "for all ID in RESOLVABLE" means array iteration.
func (p *Parser) parseRepeat() Stmt {
	tok := p.expect(KwRepeat)
	if p.check(KwFor) {
		p.advance()
		p.expect(KwAll)
		name := p.expect(IDENT)
		p.expect(KwIn)
		coll := p.parseExpression()
		body := p.parseStmtList(KwEnd)
		p.expect(KwEnd)
		p.expect(KwRepeat)
		return &RepeatForAll{Var: name.Lexeme, Coll: coll, Body: body, Line: tok.Line, Col: tok.Col}
	}
	if p.looksLikeCountedRepeat() {
		count := p.parseExpression()
		p.expect(KwTimes)
		body := p.parseStmtList(KwEnd)
		p.expect(KwEnd)
		p.expect(KwRepeat)
		return &RepeatN{Count: count, Body: body, Line: tok.Line, Col: tok.Col}
	}
	body := p.parseStmtList(KwEnd)
	p.expect(KwEnd)
	p.expect(KwRepeat)
	return &RepeatForever{Body: body, Line: tok.Line, Col: tok.Col}
}

// looksLikeCountedRepeat scans ahead without consuming tokens to decide
// whether "repeat" introduces a counted loop ("repeat EXPR times ...") or
// an infinite loop whose body happens to start with an expression-like
// statement. A bare repeat count and an assignment's target are built from
// the same tokens, so one token of lookahead cannot tell them apart; this
// walks forward (tracking bracket depth) to the first token that can only
// belong to one of the two forms.
func (p *Parser) looksLikeCountedRepeat() bool {
	depth := 0
	for i := p.pos; i < len(p.tokens); i++ {
		switch p.tokens[i].Kind {
		case LParen, LBracket, LBrace:
			depth++
		case RParen, RBracket, RBrace:
			depth--
		case KwTimes:
			if depth == 0 {
				return true
			}
		case OpAssign, Colon, KwEnd, KwIf, KwWhile, KwRepeat, KwBreak,
			KwContinue, KwReturn, KwQuit, KwLink, KwUnlink, EOF:
			if depth == 0 {
				return false
			}
		}
	}
	return false
}

func (p *Parser) parseLinkAssign() *LinkAssign {
	tok := p.expect(KwLink)
	target := p.parseRef()
	p.expect(KwTo)
	src := p.parseRef()
	return &LinkAssign{Target: target, Source: src, Line: tok.Line, Col: tok.Col}
}

// parseAssignOrExprStmt disambiguates "REF = EXPR" from a bare call used as
// a statement (e.g. "display_line(...)").
func (p *Parser) parseAssignOrExprStmt() Stmt {
	tok := p.peek()
	if p.check(IDENT) {
		expr := p.parseUnaryPrimaryChain()
		if p.match(OpAssign) {
			value := p.parseExpression()
			return &Assign{Target: expr, Value: value, Line: tok.Line, Col: tok.Col}
		}
		return &ExpressionStatement{Expr: expr}
	}
	expr := p.parseExpression()
	return &ExpressionStatement{Expr: expr}
}

// --- Expressions -----------------------------------------------------------

// parseCondition parses an expression restricted to comparison/logical
// combinations, per spec.md §4.2 ("comparisons and logical operators are
// confined to condition contexts"). The grammar itself is shared with
// parseExpression; the restriction that a bare value is rejected is
// enforced by the semantic analyzer (spec.md §4.4), since distinguishing
// "value" from "boolean" syntactically would require type information the
// parser does not have.
func (p *Parser) parseCondition() Expr {
	return p.parseExpression()
}

func (p *Parser) parseExpression() Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() Expr {
	left := p.parseAnd()
	for p.check(KwOr) {
		tok := p.advance()
		right := p.parseAnd()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAnd() Expr {
	left := p.parseComparison()
	for p.check(KwAnd) {
		tok := p.advance()
		right := p.parseComparison()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseComparison() Expr {
	left := p.parseBitOr()
	for {
		tok := p.peek()
		var op BinOp
		switch {
		case p.check(Less):
			op = OpLt
		case p.check(LessEq):
			op = OpLe
		case p.check(Greater):
			op = OpGt
		case p.check(GreaterEq):
			op = OpGe
		case p.check(OpAssign):
			op = OpEq
		case p.check(NotEq):
			op = OpNe
		case p.check(KwIs) && p.peekAt(1).Kind == KwLinked:
			p.advance()
			p.advance()
			left = &IsLinked{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Target: left}
			continue
		case p.check(KwIs) && p.peekAt(1).Kind == KwNot && p.peekAt(2).Kind == KwLinked:
			p.advance()
			p.advance()
			p.advance()
			left = &IsLinked{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Target: left, Negate: true}
			continue
		default:
			return left
		}
		p.advance()
		right := p.parseBitOr()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseBitOr() Expr {
	left := p.parseBitXor()
	for p.check(KwBitOr) {
		tok := p.advance()
		right := p.parseBitXor()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpBitOr, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitXor() Expr {
	left := p.parseBitAnd()
	for p.check(KwBitXor) {
		tok := p.advance()
		right := p.parseBitAnd()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpBitXor, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseBitAnd() Expr {
	left := p.parseShift()
	for p.check(KwBitAnd) {
		tok := p.advance()
		right := p.parseShift()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpBitAnd, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseShift() Expr {
	left := p.parseAdditive()
	for p.check(KwBitSl) || p.check(KwBitSr) {
		tok := p.advance()
		op := OpBitSl
		if tok.Kind == KwBitSr {
			op = OpBitSr
		}
		right := p.parseAdditive()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseAdditive() Expr {
	left := p.parseMultiplicative()
	for p.check(Plus) || p.check(Minus) {
		tok := p.advance()
		op := OpAdd
		if tok.Kind == Minus {
			op = OpSub
		}
		right := p.parseMultiplicative()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseMultiplicative() Expr {
	left := p.parseUnary()
	for p.check(Star) || p.check(Slash) || p.check(KwMod) {
		tok := p.advance()
		var op BinOp
		switch tok.Kind {
		case Star:
			op = OpMul
		case Slash:
			op = OpDiv
		default:
			op = OpMod
		}
		right := p.parseUnary()
		left = &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: op, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parseUnary() Expr {
	switch {
	case p.check(Minus):
		tok := p.advance()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpNeg, Operand: operand}
	case p.check(Plus):
		tok := p.advance()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpPos, Operand: operand}
	case p.check(KwBitNot):
		tok := p.advance()
		operand := p.parseUnary()
		return &UnaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpBitNot, Operand: operand}
	default:
		return p.parsePow()
	}
}

// parsePow is right-associative and binds tighter than unary on its right
// operand only through the recursive call, per spec.md's precedence table.
func (p *Parser) parsePow() Expr {
	left := p.parseUnaryPrimaryChain()
	if p.check(Caret) {
		tok := p.advance()
		right := p.parseUnary()
		return &BinaryExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Op: OpPow, Left: left, Right: right}
	}
	return left
}

// parseUnaryPrimaryChain parses a primary expression (which may itself be
// a Ref carrying field/index accessors, or a call).
func (p *Parser) parseUnaryPrimaryChain() Expr {
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch {
	case p.check(NUMBER):
		p.advance()
		v, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.errorf(tok, "invalid number literal %q", tok.Lexeme)
		}
		return &NumberLit{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Value: v}
	case p.check(TEXT):
		p.advance()
		return &TextLit{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Value: tok.Lexeme}
	case p.check(LParen):
		p.advance()
		e := p.parseExpression()
		p.expect(RParen)
		return e
	case p.check(LBrace):
		return p.parseBraceLiteral()
	case p.check(IDENT):
		return p.parseIdentLed()
	default:
		p.errorf(tok, "unexpected token %s %q", tok.Kind, tok.Lexeme)
		p.advance()
		return &NumberLit{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Value: 0}
	}
}

// parseIdentLed parses a call, or a Ref with a chain of field/index
// accessors.
func (p *Parser) parseIdentLed() Expr {
	tok := p.advance()
	if p.check(LParen) {
		p.advance()
		call := &CallExpr{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Callee: tok.Lexeme}
		for !p.check(RParen) && !p.check(EOF) {
			call.Args = append(call.Args, p.parseExpression())
			if !p.match(Comma) {
				break
			}
		}
		p.match(Comma) // tolerate a dangling comma before ')'
		p.expect(RParen)
		return call
	}
	ref := &Ref{exprBase: exprBase{Line: tok.Line, Col: tok.Col}, Name: tok.Lexeme}
	for {
		switch {
		case p.check(Dot):
			dtok := p.advance()
			field := p.expect(IDENT)
			ref.Accessors = append(ref.Accessors, Accessor{Field: field.Lexeme, Line: dtok.Line, Col: dtok.Col})
		case p.check(LBracket):
			btok := p.advance()
			var indices []Expr
			indices = append(indices, p.parseExpression())
			for p.match(Comma) {
				indices = append(indices, p.parseExpression())
			}
			p.expect(RBracket)
			ref.Accessors = append(ref.Accessors, Accessor{Indices: indices, Line: btok.Line, Col: btok.Col})
		default:
			return ref
		}
	}
}

// parseRef parses a bare reference (used by link/unlink targets, which are
// always l-values, never calls).
func (p *Parser) parseRef() Expr {
	if !p.check(IDENT) {
		tok := p.peek()
		p.errorf(tok, "expected a reference, found %s %q", tok.Kind, tok.Lexeme)
		p.advance()
		return &Ref{exprBase: exprBase{Line: tok.Line, Col: tok.Col}}
	}
	return p.parseIdentLed()
}

// parseBraceLiteral parses "{ expr, expr, ... }" for either an array or
// structure literal; the analyzer disambiguates using the context's
// expected type, per spec.md §4.4. A trailing comma is accepted silently.
func (p *Parser) parseBraceLiteral() Expr {
	tok := p.expect(LBrace)
	lit := &ArrayLit{exprBase: exprBase{Line: tok.Line, Col: tok.Col}}
	for !p.check(RBrace) && !p.check(EOF) {
		lit.Elements = append(lit.Elements, p.parseExpression())
		if !p.match(Comma) {
			break
		}
	}
	p.expect(RBrace)
	return lit
}
