package estimate

import (
	"math"
	"sync"

	"github.com/aphros-lab/gfp-gaussian/lineage"
	"github.com/aphros-lab/gfp-gaussian/likelihood"
)

// ScanPoint is one evaluated grid point of a 1D profile scan.
type ScanPoint struct {
	Value         float64
	LogLikelihood float64
}

// Scan evaluates the tree's total log-likelihood over paramIdx's
// [Lower, Upper] range at Step increments, holding every other
// parameter at its specs Value. Grid points are independent
// evaluations, so they are dispatched across workers goroutines reading
// from a shared channel of indices and writing into a pre-sized result
// slice.
func Scan(tree *lineage.Tree, specs [likelihood.NumParams]likelihood.ParamSpec, paramIdx, workers int) []ScanPoint {
	spec := specs[paramIdx]
	if spec.Step <= 0 {
		return nil
	}
	n := int((spec.Upper-spec.Lower)/spec.Step) + 1
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = 1
	}

	points := make([]ScanPoint, n)
	jobs := make(chan int, n)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker owns one Eval buffer for the lifetime of the
			// goroutine; lineage.Reset clears it between grid points
			// without reallocating the per-cell Pred/Post slices.
			evals := lineage.NewEval(tree)
			for i := range jobs {
				local := specs
				local[paramIdx].Value = spec.Lower + float64(i)*spec.Step
				local[paramIdx].Fixed = true

				theta, err := likelihood.Expand(nil, fixEverything(local))
				if err != nil {
					points[i] = ScanPoint{Value: local[paramIdx].Value, LogLikelihood: math.NaN()}
					continue
				}
				lineage.Reset(evals)
				ll := likelihood.Likelihood(tree, evals, theta)
				points[i] = ScanPoint{Value: local[paramIdx].Value, LogLikelihood: ll}
			}
		}()
	}

	for i := 0; i < n; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return points
}

// fixEverything returns a copy of specs with every entry marked fixed at
// its current Value, so likelihood.Expand(nil, ...) reduces to reading
// off the grid point under evaluation with no free parameters to supply.
func fixEverything(specs [likelihood.NumParams]likelihood.ParamSpec) [likelihood.NumParams]likelihood.ParamSpec {
	for i := range specs {
		specs[i].Fixed = true
	}
	return specs
}
