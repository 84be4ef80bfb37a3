package interp

import (
	"fmt"

	"teachlang/pkg/diag"
	"teachlang/pkg/lang"
	"teachlang/pkg/types"
)

// execGlobals materializes every "definitions globals" binding into the
// persistent global frame before the program body runs.
func (e *Evaluator) execGlobals(globals []*lang.VarDef) error {
	for _, g := range globals {
		addr := e.store.Alloc(1)
		if err := e.materialize(addr, g.Type, g.Init); err != nil {
			return err
		}
		e.frames.DefineGlobal(g.Name, addr)
	}
	return nil
}

// execStmts runs body in the current scope, stopping at the first error or
// non-local control outcome.
func (e *Evaluator) execStmts(body []lang.Stmt) (outcome, error) {
	for _, s := range body {
		out, err := e.execStmt(s)
		if err != nil {
			return outcome{}, err
		}
		if out.ctrl != ctrlNone {
			return out, nil
		}
	}
	return outcome{}, nil
}

// execBlock runs body in a fresh nested scope within the current call,
// truncating the store back to the scope's mark on every exit path.
func (e *Evaluator) execBlock(body []lang.Stmt) (outcome, error) {
	e.frames.Push(e.store.Mark())
	out, err := e.execStmts(body)
	popped := e.frames.Pop()
	if err != nil {
		return outcome{}, err
	}
	if tErr := e.store.TruncateTo(popped.mark, 0, 0); tErr != nil {
		return outcome{}, tErr
	}
	return out, nil
}

func (e *Evaluator) execStmt(s lang.Stmt) (outcome, error) {
	switch n := s.(type) {
	case *lang.VarDef:
		return outcome{}, e.evalVarDefLocal(n)
	case *lang.Assign:
		return outcome{}, e.evalAssign(n)
	case *lang.LinkAssign:
		return outcome{}, e.evalLinkAssign(n)
	case *lang.Unlink:
		return outcome{}, e.evalUnlink(n)
	case *lang.While:
		return e.execWhile(n)
	case *lang.If:
		return e.execIf(n)
	case *lang.RepeatForever:
		return e.execRepeatForever(n)
	case *lang.RepeatN:
		return e.execRepeatN(n)
	case *lang.RepeatForAll:
		return e.execRepeatForAll(n)
	case *lang.Break:
		return outcome{ctrl: ctrlBreak}, nil
	case *lang.Continue:
		return outcome{ctrl: ctrlContinue}, nil
	case *lang.Return:
		return e.execReturn(n)
	case *lang.Quit:
		return outcome{}, quitSignal{}
	case *lang.ExpressionStatement:
		_, err := e.evalExpr(n.Expr)
		return outcome{}, err
	default:
		return outcome{}, diag.New("run", diag.Fatal, 0, 0, fmt.Sprintf("eval: unhandled statement %T", s))
	}
}

func (e *Evaluator) evalVarDefLocal(n *lang.VarDef) error {
	addr := e.store.Alloc(1)
	if err := e.materialize(addr, n.Type, n.Init); err != nil {
		return err
	}
	e.frames.Define(n.Name, addr)
	return nil
}

func (e *Evaluator) evalAssign(n *lang.Assign) error {
	addr, err := e.evalRef(n.Target)
	if err != nil {
		return err
	}
	return e.evalExprInto(n.Value, addr)
}

// evalLinkAssign rebinds a link variable's target, dropping the refcount on
// whatever it previously pointed at (if anything) and adding one on the new
// target, per spec.md's link/unlink refcounting rule.
func (e *Evaluator) evalLinkAssign(n *lang.LinkAssign) error {
	tAddr, err := e.evalRef(n.Target)
	if err != nil {
		return err
	}
	sAddr, err := e.evalRef(n.Source)
	if err != nil {
		return err
	}
	target := e.store.Get(tAddr)
	if target.Target != 0 {
		e.store.RemoveLinkRef(target.Target)
	}
	target.Kind = types.KindLink
	target.Target = sAddr
	e.store.AddLinkRef(sAddr)
	return nil
}

func (e *Evaluator) evalUnlink(n *lang.Unlink) error {
	addr, err := e.evalRef(n.Target)
	if err != nil {
		return err
	}
	c := e.store.Get(addr)
	if c.Target != 0 {
		e.store.RemoveLinkRef(c.Target)
	}
	c.Target = 0
	return nil
}

func (e *Evaluator) execWhile(n *lang.While) (outcome, error) {
	for {
		cv, err := e.evalExpr(n.Cond)
		if err != nil {
			return outcome{}, err
		}
		if cv.Num == 0 {
			return outcome{}, nil
		}
		out, err := e.execBlock(n.Body)
		if err != nil {
			return outcome{}, err
		}
		switch out.ctrl {
		case ctrlBreak:
			return outcome{}, nil
		case ctrlReturn:
			return out, nil
		}
	}
}

func (e *Evaluator) execIf(n *lang.If) (outcome, error) {
	cv, err := e.evalExpr(n.Cond)
	if err != nil {
		return outcome{}, err
	}
	if cv.Num != 0 {
		return e.execBlock(n.Body)
	}
	for _, ei := range n.ElseIfs {
		cv, err := e.evalExpr(ei.Cond)
		if err != nil {
			return outcome{}, err
		}
		if cv.Num != 0 {
			return e.execBlock(ei.Body)
		}
	}
	if n.Else != nil {
		return e.execBlock(n.Else)
	}
	return outcome{}, nil
}

func (e *Evaluator) execRepeatForever(n *lang.RepeatForever) (outcome, error) {
	for {
		out, err := e.execBlock(n.Body)
		if err != nil {
			return outcome{}, err
		}
		switch out.ctrl {
		case ctrlBreak:
			return outcome{}, nil
		case ctrlReturn:
			return out, nil
		}
	}
}

func (e *Evaluator) execRepeatN(n *lang.RepeatN) (outcome, error) {
	cv, err := e.evalExpr(n.Count)
	if err != nil {
		return outcome{}, err
	}
	count := toInt(cv.Num)
	for i := 0; i < count; i++ {
		out, err := e.execBlock(n.Body)
		if err != nil {
			return outcome{}, err
		}
		switch out.ctrl {
		case ctrlBreak:
			return outcome{}, nil
		case ctrlReturn:
			return out, nil
		}
	}
	return outcome{}, nil
}

// execRepeatForAll binds Var directly to each element's address in turn
// (spec.md: "bind the loop variable to each element's address, ascending
// linear order"), so mutating it inside the body mutates the collection.
func (e *Evaluator) execRepeatForAll(n *lang.RepeatForAll) (outcome, error) {
	cv, err := e.evalExpr(n.Coll)
	if err != nil {
		return outcome{}, err
	}
	c := *e.store.Get(cv.Addr)
	count := boundsLen(c.Bounds)
	for i := 0; i < count; i++ {
		e.frames.Push(e.store.Mark())
		e.frames.Define(n.Var, c.Base+i)
		out, err := e.execStmts(n.Body)
		popped := e.frames.Pop()
		if err != nil {
			return outcome{}, err
		}
		if tErr := e.store.TruncateTo(popped.mark, n.Line, n.Col); tErr != nil {
			return outcome{}, tErr
		}
		switch out.ctrl {
		case ctrlBreak:
			return outcome{}, nil
		case ctrlReturn:
			return out, nil
		}
	}
	return outcome{}, nil
}

func (e *Evaluator) execReturn(n *lang.Return) (outcome, error) {
	if n.Value == nil {
		return outcome{ctrl: ctrlReturn}, nil
	}
	v, err := e.evalExpr(n.Value)
	if err != nil {
		return outcome{}, err
	}
	var ex extracted
	switch v.Kind {
	case types.KindArray, types.KindStructure:
		ex = e.extract(v.Addr)
	default:
		ex = extracted{kind: v.Kind, num: v.Num, text: v.Text, target: v.Addr}
	}
	return outcome{ctrl: ctrlReturn, ret: ex, hasRet: true}, nil
}
