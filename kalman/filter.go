// Package kalman implements the per-cell forward Kalman recursion: the
// division transform at a cell's birth, then a predict/update step per
// observation, extended from a single chain of samples to one cell's
// observation sequence embedded in a branching lineage.
package kalman

import (
	"math"

	"github.com/aphros-lab/gfp-gaussian/gaussmarkov"
	"github.com/aphros-lab/gfp-gaussian/internal/linalg"
	"github.com/aphros-lab/gfp-gaussian/lineage"
	"gonum.org/v1/gonum/mat"
)

const log2Pi = 1.8378770664093453

// FilterCell runs the forward recursion for a single cell: it sets
// eval.Prior (root initial condition, or the division-transformed message
// from the parent's last posterior), then predicts and updates against
// every observation in turn, accumulating eval.LL. parentPost is the
// parent cell's final posterior State; it is ignored for root cells.
// The first observation is measured directly against the prior (no
// elapsed-time propagation precedes it); every later observation is
// preceded by a Propagate call over the elapsed time since the previous
// one.
func FilterCell(tree *lineage.Tree, evals []*lineage.Eval, idx int, theta gaussmarkov.Theta, parentPost gaussmarkov.State) {
	cell := tree.Cells[idx]
	eval := evals[idx]

	var prior gaussmarkov.State
	if cell.IsRoot() {
		// The root's (x, g) prior variances are the observation variances
		// VarX, VarG; there is no separate prior-variance parameter for them.
		prior = gaussmarkov.State{
			Mean: mat.NewVecDense(4, []float64{theta.MeanX0, theta.MeanG0, theta.MeanLambda, theta.MeanQ}),
			Cov:  linalg.Diag(theta.VarX, theta.VarG, theta.VarLambda, theta.VarQ),
		}
	} else {
		prior = DivisionTransform(parentPost, theta.VarDx, theta.VarDg)
	}
	eval.Prior = prior
	eval.Status = lineage.PriorSet

	prev := prior
	var prevTime float64
	ll := 0.0

	for i, t := range cell.Times {
		var dt float64
		if i > 0 {
			dt = t - prevTime
		}
		pred := gaussmarkov.Propagate(prev, dt, theta)
		eval.Pred[i] = pred

		innovLL, post, ok := update(pred, cell.X[i], cell.G[i], theta.VarX, theta.VarG)
		eval.Post[i] = post
		if !ok {
			ll = math.Inf(-1)
			eval.Status = lineage.Observed
			prev = post
			prevTime = t
			continue
		}
		ll += innovLL
		prev = post
		prevTime = t
		eval.Status = lineage.Observed
	}

	eval.LL = ll
	eval.Status = lineage.FilterDone
}

// DivisionTransform maps a mother's posterior State at division onto the
// daughter's prior State: the cell splits in half, so x (log-length)
// drops by log 2 and the expected FP amount halves, while lambda and q
// carry over unchanged. Linear transform F=diag(1,0.5,1,1), offset
// f=(-log 2,0,0,0), added noise D=diag(varDx,varDg,0,0).
func DivisionTransform(mother gaussmarkov.State, varDx, varDg float64) gaussmarkov.State {
	out := gaussmarkov.NewState()
	out.Mean.SetVec(0, mother.Mean.AtVec(0)-math.Ln2)
	out.Mean.SetVec(1, 0.5*mother.Mean.AtVec(1))
	out.Mean.SetVec(2, mother.Mean.AtVec(2))
	out.Mean.SetVec(3, mother.Mean.AtVec(3))

	var f mat.Dense
	f.CloneFrom(mother.Cov)
	// F*Cov*F^T where F=diag(1,0.5,1,1): row/col 1 scaled by 0.5 each.
	for i := 0; i < 4; i++ {
		f.Set(1, i, f.At(1, i)*0.5)
	}
	for i := 0; i < 4; i++ {
		f.Set(i, 1, f.At(i, 1)*0.5)
	}
	f.Set(0, 0, f.At(0, 0)+varDx)
	f.Set(1, 1, f.At(1, 1)+varDg)
	out.Cov.Copy(&f)
	return out
}

// update performs one Kalman measurement update against the observed
// (x, g) pair, with diagonal observation noise diag(varX, varG) on the
// first two state components. It returns the log-likelihood contribution
// of this observation, the posterior State, and false if the innovation
// covariance is singular (the caller treats this as -Inf rather than
// panicking).
func update(pred gaussmarkov.State, x, g, varX, varG float64) (float64, gaussmarkov.State, bool) {
	xgt := mat.NewVecDense(2, []float64{
		x - pred.Mean.AtVec(0),
		g - pred.Mean.AtVec(1),
	})

	s := mat.NewSymDense(2, nil)
	s.SetSym(0, 0, pred.Cov.At(0, 0)+varX)
	s.SetSym(0, 1, pred.Cov.At(0, 1))
	s.SetSym(1, 1, pred.Cov.At(1, 1)+varG)

	var chol mat.Cholesky
	if ok := chol.Factorize(s); !ok {
		return 0, pred, false
	}

	var si mat.SymDense
	if err := chol.InverseTo(&si); err != nil {
		return 0, pred, false
	}

	var siXgt mat.VecDense
	siXgt.MulVec(&si, xgt)
	quad := mat.Dot(xgt, &siXgt)

	logDet := chol.LogDet()
	ll := -0.5*quad - 0.5*logDet - 2*log2Pi

	// K = Cov[0:2, 0:4] (the first two rows of the 4x4 covariance).
	k := pred.Cov.Slice(0, 2, 0, 4)

	var kTSi mat.Dense
	kTSi.Mul(k.T(), &si)

	var dMean mat.VecDense
	dMean.MulVec(&kTSi, xgt)

	var postMean mat.VecDense
	postMean.AddVec(pred.Mean, &dMean)

	var kTSiK mat.Dense
	kTSiK.Mul(&kTSi, k)

	var postCov mat.Dense
	postCov.Sub(pred.Cov, &kTSiK)

	post := gaussmarkov.State{Mean: &postMean, Cov: &postCov}
	return ll, post, true
}
