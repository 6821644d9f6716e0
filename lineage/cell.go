// Package lineage represents a branching cell genealogy as an
// arena-indexed tree: cells hold integer indices into a shared slice
// rather than raw pointers, so a Tree can be cloned or shared across
// concurrent evaluations (estimate.Scan) without aliasing hazards.
package lineage

// Cell is one cell's observation record and genealogy links.
// ParentIdx/Daughter1/Daughter2 are indices into the owning Tree.Cells,
// or -1 when absent. Times, X and G are the observation times and the
// paired (log-length, FP amount) measurements, in chronological order.
type Cell struct {
	ID       string
	ParentID string

	ParentIdx int
	Daughter1 int
	Daughter2 int

	Times []float64
	X     []float64
	G     []float64
}

// NewCell returns a Cell with no genealogy links yet resolved.
func NewCell(id, parentID string) *Cell {
	return &Cell{
		ID:        id,
		ParentID:  parentID,
		ParentIdx: -1,
		Daughter1: -1,
		Daughter2: -1,
	}
}

// IsRoot reports whether c has no parent in the tree.
func (c *Cell) IsRoot() bool { return c.ParentIdx < 0 }

// IsLeaf reports whether c has no daughters in the tree.
func (c *Cell) IsLeaf() bool { return c.Daughter1 < 0 && c.Daughter2 < 0 }

// Daughters returns the indices of c's daughters, in the order they were
// assigned (at most two).
func (c *Cell) Daughters() []int {
	var d []int
	if c.Daughter1 >= 0 {
		d = append(d, c.Daughter1)
	}
	if c.Daughter2 >= 0 {
		d = append(d, c.Daughter2)
	}
	return d
}

// NumObs returns the number of (time, x, g) observations recorded for c.
func (c *Cell) NumObs() int { return len(c.Times) }
