package lineage

import "github.com/aphros-lab/gfp-gaussian/gaussmarkov"

// FilterStatus tracks one cell's progress through a single likelihood
// evaluation: Unvisited -> PriorSet -> (Observed)* -> FilterDone.
type FilterStatus int

const (
	Unvisited FilterStatus = iota
	PriorSet
	Observed
	FilterDone
)

// Eval holds the mutable, per-evaluation state of a Likelihood/Smoother
// pass, kept parallel to (not embedded in) Tree so that repeated
// evaluations during optimisation reuse one Tree and only reset Eval.
type Eval struct {
	Status FilterStatus

	// Prior is the belief entering the cell: the root initialization, or
	// the division-transformed message from the parent's last Posterior.
	Prior gaussmarkov.State

	// Pred[i]/Post[i] are the predicted (pre-update) and filtered
	// (post-update) states at the i-th observation.
	Pred []gaussmarkov.State
	Post []gaussmarkov.State

	// Backward[i] is the backward-only message at the i-th observation:
	// the Gaussian summarizing every observation strictly after i, so
	// that Smooth[i] is the product of Post[i] and Backward[i]. Filled in
	// by smoother.Run (nil until then).
	Backward []gaussmarkov.State

	// Smooth[i] is the RTS-smoothed state at the i-th observation,
	// filled in by smoother.Run (nil until then).
	Smooth []gaussmarkov.State

	// Combined is the cell's smoothed belief immediately after division
	// (or, for a root, after initialization): Smooth[0] propagated one
	// further backward step, combined with whatever information its own
	// daughters contributed. This is the message smoother.Run passes up
	// to the parent cell.
	Combined gaussmarkov.State

	// LL is this cell's own log-likelihood contribution (summed over its
	// observations); Status becomes FilterDone once it is set.
	LL float64
}

// NewEval allocates one Eval per cell in tree, all Unvisited.
func NewEval(tree *Tree) []*Eval {
	out := make([]*Eval, len(tree.Cells))
	for i, c := range tree.Cells {
		out[i] = &Eval{
			Pred: make([]gaussmarkov.State, c.NumObs()),
			Post: make([]gaussmarkov.State, c.NumObs()),
		}
	}
	return out
}

// Reset restores an Eval slice to its initial Unvisited state without
// reallocating the per-cell slices, so a tree can be re-evaluated many
// times during optimisation at low cost.
func Reset(evals []*Eval) {
	for _, e := range evals {
		e.Status = Unvisited
		e.LL = 0
		e.Backward = nil
		e.Smooth = nil
		for i := range e.Pred {
			e.Pred[i] = gaussmarkov.State{}
			e.Post[i] = gaussmarkov.State{}
		}
	}
}
