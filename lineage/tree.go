package lineage

import "fmt"

// Tree is an arena of Cells plus the indices of its root cells (cells
// with no parent in the arena). Cells reference each other by index into
// Cells, never by pointer.
type Tree struct {
	Cells []*Cell
	Roots []int
}

// NewTree returns an empty Tree.
func NewTree() *Tree {
	return &Tree{}
}

// AddCell appends c to the arena and returns its index.
func (t *Tree) AddCell(c *Cell) int {
	idx := len(t.Cells)
	t.Cells = append(t.Cells, c)
	return idx
}

// BuildGenealogy links every cell in t.Cells to its parent and daughters
// by matching ParentID against ID. A cell whose parent ID matches no
// other cell's ID is treated as a root. When a third daughter would be
// assigned to a cell that already has two, the third cell is left
// unlinked (ParentIdx stays -1, so it becomes its own root) and an
// "already has two daughters" warning string is appended to the
// returned slice, rather than silently dropping the cell's data.
func (t *Tree) BuildGenealogy() []string {
	var warnings []string
	byID := make(map[string]int, len(t.Cells))
	for i, c := range t.Cells {
		byID[c.ID] = i
	}
	for k, c := range t.Cells {
		if c.ParentID == "" {
			continue
		}
		j, ok := byID[c.ParentID]
		if !ok || j == k {
			continue
		}
		parent := t.Cells[j]
		c.ParentIdx = j
		switch {
		case parent.Daughter1 < 0:
			parent.Daughter1 = k
		case parent.Daughter2 < 0:
			parent.Daughter2 = k
		default:
			c.ParentIdx = -1
			warnings = append(warnings, fmt.Sprintf(
				"lineage: cell %q already has two daughters, dropping %q as a third", parent.ID, c.ID))
		}
	}
	t.Roots = t.Roots[:0]
	for i, c := range t.Cells {
		if c.IsRoot() {
			t.Roots = append(t.Roots, i)
		}
	}
	return warnings
}

// Walk calls visit for every cell reachable from the roots in pre-order
// (a cell before either of its daughters), the traversal order
// likelihood.Likelihood and smoother.Run's forward pass both rely on.
func (t *Tree) Walk(visit func(idx int)) {
	var rec func(idx int)
	rec = func(idx int) {
		visit(idx)
		for _, d := range t.Cells[idx].Daughters() {
			rec(d)
		}
	}
	for _, r := range t.Roots {
		rec(r)
	}
}

// WalkPostOrder calls visit for every cell reachable from the roots in
// post-order (both of a cell's daughters before the cell itself), the
// order smoother.Run's backward pass needs so a cell's daughters are
// always fully smoothed before it combines their messages.
func (t *Tree) WalkPostOrder(visit func(idx int)) {
	var rec func(idx int)
	rec = func(idx int) {
		for _, d := range t.Cells[idx].Daughters() {
			rec(d)
		}
		visit(idx)
	}
	for _, r := range t.Roots {
		rec(r)
	}
}
