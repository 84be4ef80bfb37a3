package interp

import "strings"

// frameKey normalizes a name for use as a frame lookup key, mirroring
// pkg/types.Table's own case folding: spec.md's identifiers preserve case
// in the lexeme but compare case-insensitively, and the evaluator resolves
// the same names the analyzer already accepted.
func frameKey(name string) string {
	return strings.ToLower(name)
}

// Frame is one block scope: a name-to-address binding plus the store mark
// recorded on entry, so leaving the scope knows exactly which cells it
// owns and can hand them to Store.TruncateTo.
type Frame struct {
	vars map[string]int
	mark int
}

func newFrame(mark int) *Frame {
	return &Frame{vars: make(map[string]int), mark: mark}
}

// call is the block-scope stack belonging to one active function call (or
// the top-level program body, which is itself treated as a call with no
// return type). Isolating each call's scopes this way mirrors pkg/types.
// Table's EnterFunction/EnterScope split: a function's body cannot see an
// unrelated caller's locals, only its own scopes and the global frame.
type call struct {
	scopes []*Frame
}

// Frames is the runtime counterpart to pkg/types.Table's scope stack,
// grounded on the same shape (teacher's SymbolTable, pkg/compiler/
// symtable.go) but resolving names to cell addresses instead of types,
// since the analyzer already checked every name and this stage only
// needs to find where its value lives.
type Frames struct {
	global *Frame
	calls  []*call
}

// NewFrames builds the frame stack with an empty global frame.
func NewFrames() *Frames {
	return &Frames{global: newFrame(0)}
}

// EnterCall opens a fresh, isolated scope stack for a function call (or
// the top-level program body).
func (f *Frames) EnterCall(mark int) {
	f.calls = append(f.calls, &call{scopes: []*Frame{newFrame(mark)}})
}

// ExitCall closes the current call's outermost scope and returns it.
func (f *Frames) ExitCall() *Frame {
	n := len(f.calls)
	c := f.calls[n-1]
	f.calls = f.calls[:n-1]
	return c.scopes[0]
}

// Push opens a nested block scope (if/while/repeat body) within the
// current call.
func (f *Frames) Push(mark int) {
	c := f.calls[len(f.calls)-1]
	c.scopes = append(c.scopes, newFrame(mark))
}

// Pop closes the innermost block scope of the current call and returns it
// so the caller can truncate the store back to its mark.
func (f *Frames) Pop() *Frame {
	c := f.calls[len(f.calls)-1]
	n := len(c.scopes)
	fr := c.scopes[n-1]
	c.scopes = c.scopes[:n-1]
	return fr
}

// Define binds name to addr in the innermost open scope of the current
// call.
func (f *Frames) Define(name string, addr int) {
	c := f.calls[len(f.calls)-1]
	c.scopes[len(c.scopes)-1].vars[frameKey(name)] = addr
}

// DefineGlobal binds name to addr directly in the global frame, used for
// "definitions globals" bindings that must outlive every call.
func (f *Frames) DefineGlobal(name string, addr int) {
	f.global.vars[frameKey(name)] = addr
}

// Lookup resolves name innermost-first within the current call, falling
// back to the global frame.
func (f *Frames) Lookup(name string) (int, bool) {
	k := frameKey(name)
	c := f.calls[len(f.calls)-1]
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if addr, ok := c.scopes[i].vars[k]; ok {
			return addr, true
		}
	}
	addr, ok := f.global.vars[k]
	return addr, ok
}
