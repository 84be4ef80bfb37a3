// Package diag collects and formats the interpreter's diagnostics.
//
// Every stage of the pipeline (lexer, parser, analyzer, evaluator) reports
// failures through this package instead of a bare error string, so that a
// diagnostic always carries the (line, column, kind) triple the language
// specification requires and so that the lexer/parser/analyzer stages can
// keep scanning after the first mistake and report a batch.
package diag

import (
	"fmt"
	"strings"
)

// Kind is the closed taxonomy of interpreter errors.
type Kind string

const (
	Lexical    Kind = "LexicalError"
	Syntax     Kind = "SyntaxError"
	Name       Kind = "NameError"
	TypeErr    Kind = "TypeError"
	Bounds     Kind = "BoundsError"
	Arithmetic Kind = "ArithmeticError"
	Link       Kind = "LinkError"
	Fatal      Kind = "FatalError"
)

// Diagnostic is a single reported problem, always positioned at a source
// line and column.
type Diagnostic struct {
	Stage   string // "lex", "parse", "analyze", "run"
	Kind    Kind
	Line    int
	Col     int
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.Stage, d.Line, d.Col, d.Kind, d.Message)
}

// New builds a Diagnostic.
func New(stage string, kind Kind, line, col int, message string) *Diagnostic {
	return &Diagnostic{Stage: stage, Kind: kind, Line: line, Col: col, Message: message}
}

// List accumulates diagnostics across a batch-reporting stage (lexing,
// parsing, semantic analysis). It implements error so a stage can return a
// non-empty List as the pipeline's failure value.
type List struct {
	items []*Diagnostic
}

// Add appends a diagnostic to the list.
func (l *List) Add(d *Diagnostic) {
	l.items = append(l.items, d)
}

// Addf is a convenience wrapper around Add/New.
func (l *List) Addf(stage string, kind Kind, line, col int, message string) {
	l.Add(New(stage, kind, line, col, message))
}

// Empty reports whether no diagnostics were collected.
func (l *List) Empty() bool {
	return l == nil || len(l.items) == 0
}

// Items returns the collected diagnostics in report order.
func (l *List) Items() []*Diagnostic {
	if l == nil {
		return nil
	}
	return l.items
}

func (l *List) Error() string {
	lines := make([]string, 0, len(l.items))
	for _, d := range l.items {
		lines = append(lines, d.Error())
	}
	return strings.Join(lines, "\n")
}

// AsError returns l as an error if it holds any diagnostics, else nil. This
// mirrors errors.Join's "nil if empty" convention for a homegrown batch
// type, matching stdlib idiom without a general-purpose multierror library.
func (l *List) AsError() error {
	if l.Empty() {
		return nil
	}
	return l
}
