// Package estimate adapts the likelihood surface to gonum's
// derivative-free optimizer: Maximize fits the free parameters of a
// cell tree, Scan profiles one parameter over a grid using a worker
// pool.
package estimate

import (
	"fmt"
	"math"

	"github.com/aphros-lab/gfp-gaussian/lineage"
	"github.com/aphros-lab/gfp-gaussian/likelihood"
	"gonum.org/v1/gonum/optimize"
)

// Result is the outcome of a Maximize call.
type Result struct {
	Theta           likelihood.Theta
	LogLikelihood   float64
	Iterations      int
	FuncEvaluations int
}

// Maximize fits the free parameters of specs by maximizing the tree's
// total log-likelihood with gonum/optimize's NelderMead. Box bounds are
// enforced here, not inside likelihood.Likelihood: an out-of-bounds free
// vector short-circuits to +Inf (we minimize -loglikelihood) before the
// tree is ever evaluated.
func Maximize(tree *lineage.Tree, specs [likelihood.NumParams]likelihood.ParamSpec, relTol float64) (Result, error) {
	freeIdx := likelihood.Free(specs)
	if len(freeIdx) == 0 {
		return Result{}, fmt.Errorf("estimate: Maximize: no free parameters")
	}

	x0 := make([]float64, len(freeIdx))
	initStep := make([]float64, len(freeIdx))
	for i, idx := range freeIdx {
		x0[i] = specs[idx].Value
		initStep[i] = specs[idx].Step
	}

	objective := negLogLikelihood(tree, specs, freeIdx)

	problem := optimize.Problem{Func: objective}
	method := &optimize.NelderMead{}
	method.InitialVertices, method.InitialValues = initialSimplex(objective, x0, initStep)

	settings := &optimize.Settings{
		FuncEvaluations: 20000,
		Converger: &optimize.FunctionConverge{
			Relative:   relTol,
			Iterations: 50,
		},
	}

	res, err := optimize.Minimize(problem, x0, settings, method)
	if err != nil && res == nil {
		return Result{}, fmt.Errorf("estimate: Maximize: %w", err)
	}

	theta, expErr := likelihood.Expand(res.X, specs)
	if expErr != nil {
		return Result{}, fmt.Errorf("estimate: Maximize: %w", expErr)
	}

	return Result{
		Theta:           theta,
		LogLikelihood:   -res.F,
		Iterations:      res.Stats.MajorIterations,
		FuncEvaluations: res.Stats.FuncEvaluations,
	}, nil
}

// initialSimplex seeds NelderMead with the parameter file's per-parameter
// initial steps: vertex 0 is the starting point, vertex i+1 offsets the
// i-th free parameter by its own step. NelderMead requires the objective
// value at each vertex alongside it.
func initialSimplex(objective func([]float64) float64, x0, step []float64) ([][]float64, []float64) {
	n := len(x0)
	vertices := make([][]float64, n+1)
	values := make([]float64, n+1)
	for i := range vertices {
		v := make([]float64, n)
		copy(v, x0)
		if i > 0 {
			v[i-1] += step[i-1]
		}
		vertices[i] = v
		values[i] = objective(v)
	}
	return vertices, values
}

// negLogLikelihood builds the objective gonum/optimize minimizes: the
// negative total log-likelihood of tree under the Theta obtained by
// expanding x into the free slots of specs, with a hard +Inf penalty
// outside [Lower, Upper] for each free parameter.
func negLogLikelihood(tree *lineage.Tree, specs [likelihood.NumParams]likelihood.ParamSpec, freeIdx []int) func([]float64) float64 {
	// NelderMead calls this closure serially thousands of times; reusing
	// one Eval buffer across calls avoids reallocating every cell's
	// Pred/Post slices on every evaluation.
	evals := lineage.NewEval(tree)
	return func(x []float64) float64 {
		for i, idx := range freeIdx {
			if x[i] < specs[idx].Lower || x[i] > specs[idx].Upper {
				return math.Inf(1)
			}
		}
		theta, err := likelihood.Expand(x, specs)
		if err != nil {
			return math.Inf(1)
		}
		lineage.Reset(evals)
		ll := likelihood.Likelihood(tree, evals, theta)
		if math.IsNaN(ll) {
			return math.Inf(1)
		}
		return -ll
	}
}
