package types

import (
	"fmt"
	"strings"
)

// key normalizes a name for use as a map lookup key, per spec.md's
// "identifiers preserve case in the lexeme but compare case-insensitively"
// rule. Stored Name/FieldNames/ParamNames fields keep the lexeme's original
// case; only the comparison key is folded.
func key(name string) string {
	return strings.ToLower(name)
}

// FunctionSig describes a declared function's parameter and return types,
// used by the analyzer to check call arity, argument types, and the
// changeable/l-value requirement on reference parameters.
type FunctionSig struct {
	Name       string
	ParamNames []string
	ParamTypes []Type
	Changeable []bool
	ReturnType Type // Nothing if the function has no "returns" clause
}

// StructDef describes a declared structure's fields in declaration order,
// each with an optional default-value type already resolved.
type StructDef struct {
	Name       string
	FieldNames []string
	FieldTypes map[string]Type
	HasDefault map[string]bool
}

// symbol is one name binding in a scope: its type, and whether it names a
// changeable parameter.
type symbol struct {
	typ        Type
	changeable bool
}

// Table tracks declared structures, functions, and the active stack of
// variable scopes during semantic analysis. It mirrors the teacher's
// SymbolTable (pkg/compiler/symtable.go: globals map, locals []map[string]
// Symbol, EnterScope/ExitScope), but scopes hold resolved Type values
// instead of stack offsets, since layout is the evaluator's concern
// (pkg/interp), not the analyzer's.
type Table struct {
	structs   map[string]*StructDef
	functions map[string]*FunctionSig
	globals   map[string]symbol
	scopes    []map[string]symbol // function-local scope stack; nil outside a function
}

// NewTable builds an empty table.
func NewTable() *Table {
	return &Table{
		structs:   make(map[string]*StructDef),
		functions: make(map[string]*FunctionSig),
		globals:   make(map[string]symbol),
	}
}

// DefineStruct registers a structure definition. It returns false if the
// name is already taken.
func (t *Table) DefineStruct(def *StructDef) bool {
	if _, exists := t.structs[key(def.Name)]; exists {
		return false
	}
	t.structs[key(def.Name)] = def
	return true
}

// Struct looks up a structure definition by name.
func (t *Table) Struct(name string) (*StructDef, bool) {
	d, ok := t.structs[key(name)]
	return d, ok
}

// DefineFunction registers a function signature. It returns false if the
// name is already taken.
func (t *Table) DefineFunction(sig *FunctionSig) bool {
	if _, exists := t.functions[key(sig.Name)]; exists {
		return false
	}
	t.functions[key(sig.Name)] = sig
	return true
}

// Function looks up a function signature by name.
func (t *Table) Function(name string) (*FunctionSig, bool) {
	f, ok := t.functions[key(name)]
	return f, ok
}

// EnterFunction pushes the single top-level scope of a function body,
// mirroring the teacher's EnterFunction resetting the local-offset stack.
func (t *Table) EnterFunction() {
	t.scopes = []map[string]symbol{make(map[string]symbol)}
}

// ExitFunction discards all local scopes, returning to global-only lookup.
func (t *Table) ExitFunction() {
	t.scopes = nil
}

// EnterScope pushes a nested block scope (if/while/repeat bodies), so that
// a variable declared inside one no longer resolves once the block ends.
func (t *Table) EnterScope() {
	if len(t.scopes) == 0 {
		panic("EnterScope called outside a function")
	}
	t.scopes = append(t.scopes, make(map[string]symbol))
}

// ExitScope pops the innermost block scope.
func (t *Table) ExitScope() {
	if len(t.scopes) > 0 {
		t.scopes = t.scopes[:len(t.scopes)-1]
	}
}

// InFunction reports whether analysis is currently inside a function body.
func (t *Table) InFunction() bool {
	return len(t.scopes) > 0
}

// Define binds name to typ in the innermost scope (a local scope if inside
// a function, else the global scope). It returns false if name is already
// bound in that same scope, per spec.md's "no shadowing within one scope"
// rule.
func (t *Table) Define(name string, typ Type, changeable bool) bool {
	sym := symbol{typ: typ, changeable: changeable}
	k := key(name)
	if len(t.scopes) > 0 {
		cur := t.scopes[len(t.scopes)-1]
		if _, exists := cur[k]; exists {
			return false
		}
		cur[k] = sym
		return true
	}
	if _, exists := t.globals[k]; exists {
		return false
	}
	t.globals[k] = sym
	return true
}

// Lookup searches local scopes innermost-first, then globals.
func (t *Table) Lookup(name string) (Type, bool) {
	k := key(name)
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][k]; ok {
			return sym.typ, true
		}
	}
	if sym, ok := t.globals[k]; ok {
		return sym.typ, true
	}
	return Invalid, false
}

func (t *Table) String() string {
	return fmt.Sprintf("Table{globals: %d, structs: %d, functions: %d}",
		len(t.globals), len(t.structs), len(t.functions))
}
