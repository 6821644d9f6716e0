package smoother

import (
	"math"
	"testing"

	"github.com/aphros-lab/gfp-gaussian/gaussmarkov"
	"github.com/aphros-lab/gfp-gaussian/likelihood"
	"github.com/aphros-lab/gfp-gaussian/lineage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func exampleTheta() likelihood.Theta {
	return likelihood.Theta{
		MeanLambda: 1.0, GammaLambda: 0.3, VarLambda: 0.05,
		MeanQ: 2.0, GammaQ: 0.4, VarQ: 0.02,
		Beta: 0.2,
		VarX: 0.1, VarG: 0.5,
		VarDx: 0.01, VarDg: 0.01,
		MeanX0: 0.5, MeanG0: 1.0,
	}
}

func buildLineage(t *testing.T) *lineage.Tree {
	t.Helper()
	tree := lineage.NewTree()
	mIdx := tree.AddCell(lineage.NewCell("m", ""))
	tree.Cells[mIdx].Times = []float64{0, 1, 2}
	tree.Cells[mIdx].X = []float64{0.5, 0.6, 0.65}
	tree.Cells[mIdx].G = []float64{1.0, 1.1, 1.15}

	d1 := tree.AddCell(lineage.NewCell("d1", "m"))
	tree.Cells[d1].Times = []float64{3, 4}
	tree.Cells[d1].X = []float64{0.3, 0.4}
	tree.Cells[d1].G = []float64{0.5, 0.55}

	d2 := tree.AddCell(lineage.NewCell("d2", "m"))
	tree.Cells[d2].Times = []float64{3}
	tree.Cells[d2].X = []float64{0.35}
	tree.Cells[d2].G = []float64{0.52}

	tree.BuildGenealogy()
	return tree
}

func TestRunProducesFiniteLogLikelihoodAndSmoothedStates(t *testing.T) {
	tree := buildLineage(t)
	theta := exampleTheta()

	evals, ll := Run(tree, theta)
	require.False(t, math.IsNaN(ll), "log-likelihood should not be NaN")

	for idx, cell := range tree.Cells {
		require.Len(t, evals[idx].Smooth, cell.NumObs())
		require.Len(t, evals[idx].Backward, cell.NumObs())
		for i := range evals[idx].Smooth {
			assert.NotNil(t, evals[idx].Smooth[i].Mean)
			assert.NotNil(t, evals[idx].Smooth[i].Cov)
			assert.NotNil(t, evals[idx].Backward[i].Mean)
			assert.NotNil(t, evals[idx].Backward[i].Cov)
		}
	}
}

// The backward message at a leaf's terminal observation summarizes no
// future observations: it must be the diffuse seed, orders of magnitude
// wider than the forward belief there.
func TestBackwardMessageAtLeafTerminalObservationIsDiffuse(t *testing.T) {
	tree := buildLineage(t)
	theta := exampleTheta()

	evals, _ := Run(tree, theta)

	for idx, cell := range tree.Cells {
		if !cell.IsLeaf() {
			continue
		}
		last := cell.NumObs() - 1
		back := evals[idx].Backward[last]
		filt := evals[idx].Post[last]
		for d := 0; d < 4; d++ {
			assert.Greater(t, back.Cov.At(d, d), 1e3*filt.Cov.At(d, d),
				"cell %s dim %d: terminal backward variance should dwarf the forward variance", cell.ID, d)
		}
	}
}

// Away from the boundary the backward message must recombine with the
// forward belief into the smoothed one: product of the two Gaussians,
// checked here on the variances (the precisions add). Restricted to
// interior cells, where enough future observations exist for the
// backward precision to be full rank.
func TestBackwardTimesForwardRecoversSmoothedPrecision(t *testing.T) {
	tree := buildLineage(t)
	theta := exampleTheta()

	evals, _ := Run(tree, theta)

	for idx, cell := range tree.Cells {
		if cell.IsLeaf() {
			continue
		}
		eval := evals[idx]
		for i := 0; i < cell.NumObs()-1; i++ {
			var pf, pb, ps mat.Dense
			require.NoError(t, pf.Inverse(eval.Post[i].Cov))
			require.NoError(t, pb.Inverse(eval.Backward[i].Cov))
			require.NoError(t, ps.Inverse(eval.Smooth[i].Cov))
			for d := 0; d < 4; d++ {
				sum := pf.At(d, d) + pb.At(d, d)
				assert.InDelta(t, ps.At(d, d), sum, 1e-6*math.Abs(ps.At(d, d))+1e-9,
					"cell %s obs %d dim %d: forward and backward precisions should add to the smoothed precision", cell.ID, i, d)
			}
		}
	}
}

// property 5: smoothed covariance should not exceed forward (filtered)
// covariance in the Loewner order, i.e. forward - smoothed is PSD. We
// check this via the weaker, always-implied diagonal condition (each
// smoothed variance <= corresponding filtered variance), which is
// necessary for PSD-ness and simple to assert without an eigensolver.
func TestSmoothedVarianceDoesNotExceedFiltered(t *testing.T) {
	tree := buildLineage(t)
	theta := exampleTheta()

	evals, _ := Run(tree, theta)

	for idx, cell := range tree.Cells {
		eval := evals[idx]
		for i := 0; i < cell.NumObs(); i++ {
			for d := 0; d < 4; d++ {
				filtered := eval.Post[i].Cov.At(d, d)
				smoothed := eval.Smooth[i].Cov.At(d, d)
				assert.LessOrEqual(t, smoothed, filtered+1e-6,
					"cell %s obs %d dim %d: smoothed variance should not exceed filtered variance", cell.ID, i, d)
			}
		}
	}
}

func TestDaughterCorrectionIsZeroForCellWithNoDaughters(t *testing.T) {
	// With no daughters the sum of corrections is empty, so the smoothed
	// belief at the last observation is exactly the forward posterior
	// there; Combined is still filled in.
	tree := lineage.NewTree()
	idx := tree.AddCell(lineage.NewCell("leaf", ""))
	tree.Cells[idx].Times = []float64{0, 1}
	tree.Cells[idx].X = []float64{0.1, 0.2}
	tree.Cells[idx].G = []float64{0.3, 0.4}
	tree.BuildGenealogy()

	theta := exampleTheta()
	evals, _ := Run(tree, theta)

	last := tree.Cells[idx].NumObs() - 1
	post, smooth := evals[idx].Post[last], evals[idx].Smooth[last]
	for d := 0; d < 4; d++ {
		assert.Equal(t, post.Mean.AtVec(d), smooth.Mean.AtVec(d))
		for e := 0; e < 4; e++ {
			assert.Equal(t, post.Cov.At(d, e), smooth.Cov.At(d, e))
		}
	}

	combined := evals[idx].Combined
	assert.NotNil(t, combined.Mean)
	assert.NotNil(t, combined.Cov)
}

func TestRtsStepReturnsFiltIfGainSolveFails(t *testing.T) {
	filt := zeroState()
	pred := zeroState() // singular pred.Cov: Solve should fail
	next := zeroState()
	a := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		a.Set(i, i, 1)
	}

	out := rtsStep(filt, pred, next, a)
	assert.Equal(t, filt.Mean.AtVec(0), out.Mean.AtVec(0))
}

func zeroState() gaussmarkov.State {
	return gaussmarkov.State{Mean: mat.NewVecDense(4, nil), Cov: mat.NewDense(4, 4, nil)}
}
