// Package interp executes an annotated AST against a flat, cell-addressed
// memory store. A cell holds either a scalar value (Number, Text, Link
// target) or a container header (Array, Structure) whose children live in
// their own contiguously allocated cell range, referenced by the header's
// Base field. Every value a variable, field, or array element can hold
// occupies exactly one cell slot, so a variable name always binds to a
// single address regardless of the value's shape.
package interp

import (
	"teachlang/pkg/diag"
	"teachlang/pkg/types"
)

// Cell is one slot in the store.
type Cell struct {
	Kind types.Kind

	Num  float64 // KindNumber
	Text string  // KindText

	Target int // KindLink: pointee address, 0 means unset

	Base       int         // KindArray/KindStructure: base address of children
	ElemType   types.Type  // KindArray: element type
	Bounds     [][2]int    // KindArray: per-dimension (lo, hi), outermost first
	StructName string      // KindStructure: registered structure name
}

// Store is the runtime's growable cell vector, generalizing the teacher's
// fixed-size Memory array (pkg/cpu/cpu.go) to a slice that grows via
// append, since the Language has no fixed address space (SPEC_FULL.md
// §3, "Memory Cells"). Address 0 is reserved and never allocated to a
// variable, matching original_source's env.memory[0] = INVALID sentinel;
// a zero-valued Link.Target therefore reads as "unset" rather than
// aliasing a real cell.
type Store struct {
	cells []Cell
	// linkRefs counts, per target address, how many live links point at
	// it (original_source's Environment.linked_values). Consulted on scope
	// teardown so a cell that is still linked-to is not silently reclaimed.
	linkRefs map[int]int
}

// NewStore builds a store with its sentinel cell 0 already allocated.
func NewStore() *Store {
	s := &Store{cells: make([]Cell, 1), linkRefs: make(map[int]int)}
	s.cells[0] = Cell{Kind: types.KindInvalid}
	return s
}

// Alloc appends n freshly zeroed cells and returns the address of the
// first one.
func (s *Store) Alloc(n int) int {
	base := len(s.cells)
	s.cells = append(s.cells, make([]Cell, n)...)
	return base
}

// Get returns a pointer to the cell at addr for in-place reads/writes.
func (s *Store) Get(addr int) *Cell {
	return &s.cells[addr]
}

// Mark returns the current high-water mark of the store, to be paired with
// a later TruncateTo call at scope exit.
func (s *Store) Mark() int {
	return len(s.cells)
}

// TruncateTo reclaims every cell from mark to the current end, mirroring
// original_source's Environment.dealloc but by truncation instead of a
// free-list, per spec.md §9's "cells-by-index ... makes scope teardown
// O(scope size) by truncation". It refuses to truncate a cell that is
// still the target of a live link, reporting a LinkError instead of
// silently invalidating the link.
func (s *Store) TruncateTo(mark int, line, col int) *diag.Diagnostic {
	for addr := mark; addr < len(s.cells); addr++ {
		if s.linkRefs[addr] > 0 {
			return diag.New("run", diag.Link, line, col, "scope ended while a link still points into it")
		}
	}
	s.cells = s.cells[:mark]
	return nil
}

// AddLinkRef records a new live link pointing at target.
func (s *Store) AddLinkRef(target int) {
	if target != 0 {
		s.linkRefs[target]++
	}
}

// RemoveLinkRef drops one live link pointing at target.
func (s *Store) RemoveLinkRef(target int) {
	if target == 0 {
		return
	}
	s.linkRefs[target]--
	if s.linkRefs[target] <= 0 {
		delete(s.linkRefs, target)
	}
}

// AllocScalar allocates one zero-valued scalar cell for t (Number, Text,
// Nothing, or Link) and returns its address.
func (s *Store) AllocScalar(t types.Type) int {
	addr := s.Alloc(1)
	s.cells[addr] = Cell{Kind: t.Kind}
	return addr
}

// boundsLen returns the total element count of a multi-dimensional bounds
// list.
func boundsLen(bounds [][2]int) int {
	n := 1
	for _, b := range bounds {
		n *= b[1] - b[0] + 1
	}
	return n
}

// linearOffset implements spec.md §3.5's index-translation formula: index
// (i1,...,ik) against bounds [(lo1,hi1),...,(lok,hik)] maps to
// sum_j (ij-loj) * product_{m>j} (him-lom+1).
func linearOffset(indices []int, bounds [][2]int) int {
	offset := 0
	for j, ix := range indices {
		stride := 1
		for m := j + 1; m < len(bounds); m++ {
			stride *= bounds[m][1] - bounds[m][0] + 1
		}
		offset += (ix - bounds[j][0]) * stride
	}
	return offset
}
