// Package smoother runs the forward/backward (Rauch-Tung-Striebel) pass
// over a cell tree: the forward half delegates to likelihood.Likelihood
// so forward states are computed identically once; the backward half
// runs a per-chain RTS recursion extended from a single chain to a
// branching lineage, combining daughters' messages at each mitosis
// before inverting the division transform back onto the parent.
//
// Propagate is a nonlinear function of the prior (mean, covariance)
// pair, so the backward gain step linearizes it at each operating point
// (its Jacobian w.r.t. the prior mean, via central finite differences)
// rather than reusing a fixed transition matrix the way a linear state-
// space model would: an Extended RTS smoother in the usual EKF/EKS
// sense.
package smoother

import (
	"math"

	"github.com/aphros-lab/gfp-gaussian/gaussmarkov"
	"github.com/aphros-lab/gfp-gaussian/likelihood"
	"github.com/aphros-lab/gfp-gaussian/lineage"
	"gonum.org/v1/gonum/mat"
)

// jacobianStep is the finite-difference step used to linearize
// gaussmarkov.Propagate's mean map around an operating point.
const jacobianStep = 1e-5

// backwardSeedScale sets the diffuse variance reported for a backward
// message that carries no information (zero precision, e.g. at a leaf's
// terminal observation): this many times the largest forward variance at
// that observation.
const backwardSeedScale = 1e6

// Run computes the forward pass (via likelihood.Likelihood) and then the
// backward smoothing pass over tree, returning the per-cell Eval slice
// (with Backward, Smooth and Combined filled in) and the tree's total
// log-likelihood.
func Run(tree *lineage.Tree, theta likelihood.Theta) ([]*lineage.Eval, float64) {
	evals := lineage.NewEval(tree)
	total := likelihood.Likelihood(tree, evals, theta)

	tree.WalkPostOrder(func(idx int) {
		smoothCell(tree, evals, idx, theta)
	})

	return evals, total
}

func smoothCell(tree *lineage.Tree, evals []*lineage.Eval, idx int, theta likelihood.Theta) {
	cell := tree.Cells[idx]
	eval := evals[idx]
	n := cell.NumObs()

	var baseMean *mat.VecDense
	var baseCov *mat.Dense
	if n == 0 {
		baseMean, baseCov = eval.Prior.Mean, eval.Prior.Cov
	} else {
		baseMean, baseCov = eval.Post[n-1].Mean, eval.Post[n-1].Cov
	}

	sMean := mat.VecDenseCopyOf(baseMean)
	sCov := denseCopy(baseCov)
	for _, d := range cell.Daughters() {
		dm, dc := daughterCorrection(evals[d], baseMean, baseCov)
		sMean.AddVec(sMean, dm)
		sCov.Add(sCov, dc)
	}

	if n == 0 {
		eval.Combined = gaussmarkov.State{Mean: sMean, Cov: sCov}
		return
	}

	eval.Smooth = make([]gaussmarkov.State, n)
	eval.Smooth[n-1] = gaussmarkov.State{Mean: sMean, Cov: sCov}

	for i := n - 2; i >= 0; i-- {
		dt := cell.Times[i+1] - cell.Times[i]
		a := jacobianMean(eval.Post[i], dt, theta)
		eval.Smooth[i] = rtsStep(eval.Post[i], eval.Pred[i+1], eval.Smooth[i+1], a)
	}

	// The first observation is measured against the prior directly, with
	// no elapsed-time propagation (kalman.FilterCell's i==0 case), so the
	// Jacobian linearizing that step uses dt=0 too.
	a0 := jacobianMean(eval.Prior, 0, theta)
	eval.Combined = rtsStep(eval.Prior, eval.Pred[0], eval.Smooth[0], a0)

	eval.Backward = make([]gaussmarkov.State, n)
	for i := 0; i < n; i++ {
		eval.Backward[i] = backwardMessage(eval.Post[i], eval.Smooth[i])
	}
}

// backwardMessage recovers the backward-only Gaussian at one observation
// from the filtered and smoothed beliefs there, by information-form
// subtraction: the smoothed belief is the product of the forward belief
// and the backward message, so precision_b = precision_s - precision_f
// and eta_b = precision_s*mean_s - precision_f*mean_f. Where that
// precision difference is singular or ill-conditioned (no future
// information, e.g. a leaf's terminal observation), the message is the
// diffuse seed centered on the filtered mean instead.
func backwardMessage(filt, smooth gaussmarkov.State) gaussmarkov.State {
	var pf, ps mat.Dense
	if pf.Inverse(filt.Cov) != nil || ps.Inverse(smooth.Cov) != nil {
		return diffuseSeed(filt)
	}

	var lb mat.Dense
	lb.Sub(&ps, &pf)
	var cb mat.Dense
	if cb.Inverse(&lb) != nil {
		return diffuseSeed(filt)
	}

	var etaS, etaF, eta mat.VecDense
	etaS.MulVec(&ps, smooth.Mean)
	etaF.MulVec(&pf, filt.Mean)
	eta.SubVec(&etaS, &etaF)

	var mb mat.VecDense
	mb.MulVec(&cb, &eta)

	for i := 0; i < 4; i++ {
		m, v := mb.AtVec(i), cb.At(i, i)
		if math.IsNaN(m) || math.IsInf(m, 0) || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return diffuseSeed(filt)
		}
	}
	return gaussmarkov.State{Mean: &mb, Cov: &cb}
}

// diffuseSeed is the zero-precision backward message in moment form: the
// filtered mean with backwardSeedScale times the largest forward
// variance on every diagonal entry.
func diffuseSeed(filt gaussmarkov.State) gaussmarkov.State {
	maxVar := 0.0
	for i := 0; i < 4; i++ {
		if v := filt.Cov.At(i, i); v > maxVar {
			maxVar = v
		}
	}
	if maxVar == 0 {
		maxVar = 1
	}
	out := gaussmarkov.NewState()
	for i := 0; i < 4; i++ {
		out.Mean.SetVec(i, filt.Mean.AtVec(i))
		out.Cov.Set(i, i, backwardSeedScale*maxVar)
	}
	return out
}

// daughterCorrection computes the additive information correction that
// daughter d's smoothed subtree contributes to its mother's (baseMean,
// baseCov) belief at the point of division: one RTS backward step
// through the (linear) division transform (kalman.DivisionTransform),
// expressed relative to the mother's own forward posterior so that two
// daughters' corrections can simply be summed.
func daughterCorrection(daughter *lineage.Eval, motherMean *mat.VecDense, motherCov *mat.Dense) (*mat.VecDense, *mat.Dense) {
	pMean, pCov := daughter.Prior.Mean, daughter.Prior.Cov // F*motherMean+f, D+F*motherCov*F^T

	var fMotherCov mat.Dense
	fMotherCov.CloneFrom(motherCov)
	for j := 0; j < 4; j++ {
		fMotherCov.Set(1, j, fMotherCov.At(1, j)*0.5)
	}

	var g mat.Dense
	if err := g.Solve(pCov, &fMotherCov); err != nil {
		return mat.NewVecDense(4, nil), mat.NewDense(4, 4, nil)
	}

	var dMean mat.VecDense
	dMean.SubVec(daughter.Combined.Mean, pMean)
	var corrMean mat.VecDense
	corrMean.MulVec(g.T(), &dMean)

	var dCov mat.Dense
	dCov.Sub(daughter.Combined.Cov, pCov)
	var tmp mat.Dense
	tmp.Mul(g.T(), &dCov)
	var corrCov mat.Dense
	corrCov.Mul(&tmp, &g)

	return &corrMean, &corrCov
}

// rtsStep performs one Rauch-Tung-Striebel backward step: filtered
// (mean, cov) = filt, predicted state one step ahead = pred, the
// already-smoothed state at that next step = next, and a is the
// Jacobian of the mean transition between filt and pred.
func rtsStep(filt, pred, next gaussmarkov.State, a *mat.Dense) gaussmarkov.State {
	var g mat.Dense
	var aP mat.Dense
	aP.Mul(a, filt.Cov)
	if err := g.Solve(pred.Cov, &aP); err != nil {
		return filt
	}

	var dMean mat.VecDense
	dMean.SubVec(next.Mean, pred.Mean)
	var corrMean mat.VecDense
	corrMean.MulVec(g.T(), &dMean)
	var sMean mat.VecDense
	sMean.AddVec(filt.Mean, &corrMean)

	var dCov mat.Dense
	dCov.Sub(next.Cov, pred.Cov)
	var tmp mat.Dense
	tmp.Mul(g.T(), &dCov)
	var corrCov mat.Dense
	corrCov.Mul(&tmp, &g)
	var sCov mat.Dense
	sCov.Add(filt.Cov, &corrCov)

	return gaussmarkov.State{Mean: &sMean, Cov: &sCov}
}

// jacobianMean approximates d(Propagate(s, dt, theta).Mean)/d(s.Mean) by
// central finite differences, holding s.Cov fixed at the operating
// point.
func jacobianMean(s gaussmarkov.State, dt float64, theta likelihood.Theta) *mat.Dense {
	j := mat.NewDense(4, 4, nil)
	for col := 0; col < 4; col++ {
		plus := gaussmarkov.State{Mean: mat.VecDenseCopyOf(s.Mean), Cov: s.Cov}
		minus := gaussmarkov.State{Mean: mat.VecDenseCopyOf(s.Mean), Cov: s.Cov}
		h := jacobianStep
		plus.Mean.SetVec(col, plus.Mean.AtVec(col)+h)
		minus.Mean.SetVec(col, minus.Mean.AtVec(col)-h)

		outPlus := gaussmarkov.Propagate(plus, dt, theta)
		outMinus := gaussmarkov.Propagate(minus, dt, theta)
		for row := 0; row < 4; row++ {
			j.Set(row, col, (outPlus.Mean.AtVec(row)-outMinus.Mean.AtVec(row))/(2*h))
		}
	}
	return j
}

func denseCopy(m *mat.Dense) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	out.Copy(m)
	return out
}
