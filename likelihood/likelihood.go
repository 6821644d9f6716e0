package likelihood

import (
	"math"

	"github.com/aphros-lab/gfp-gaussian/gaussmarkov"
	"github.com/aphros-lab/gfp-gaussian/kalman"
	"github.com/aphros-lab/gfp-gaussian/lineage"
)

// Likelihood runs kalman.FilterCell over every cell in tree in pre-order
// (root before daughters, so a daughter's division transform always sees
// its mother's finished posterior) and returns the sum of the per-cell
// log-likelihood contributions.
//
// evals must have been allocated with lineage.NewEval(tree) (or reset
// with lineage.Reset) for this tree; Likelihood mutates it in place so a
// caller (e.g. smoother.Run) can reuse the filled-in Pred/Post states
// without recomputing the forward pass.
func Likelihood(tree *lineage.Tree, evals []*lineage.Eval, theta Theta) float64 {
	total := 0.0
	tree.Walk(func(idx int) {
		cell := tree.Cells[idx]
		var parentPost gaussmarkov.State
		if !cell.IsRoot() {
			parentEval := evals[cell.ParentIdx]
			if n := len(parentEval.Post); n > 0 {
				parentPost = parentEval.Post[n-1]
			} else {
				// A parent with no observations of its own contributes its
				// prior directly: the division transform still needs a
				// concrete (mean, cov) to act on.
				parentPost = parentEval.Prior
			}
		}
		kalman.FilterCell(tree, evals, idx, theta, parentPost)
		total += evals[idx].LL
	})
	if math.IsNaN(total) {
		return math.Inf(-1)
	}
	return total
}
