// Package likelihood computes the total log-likelihood of a cell tree
// under a parameter vector, by summing kalman.FilterCell's per-cell
// contributions over a pre-order traversal (mother before daughters).
package likelihood

import "github.com/aphros-lab/gfp-gaussian/gaussmarkov"

// Theta is the canonical 13-scalar parameter vector, defined in
// gaussmarkov and re-exported here so callers can spell it
// likelihood.Theta.
type Theta = gaussmarkov.Theta

// ParamSpec describes one parameter's fixed/free role; see gaussmarkov.ParamSpec.
type ParamSpec = gaussmarkov.ParamSpec

// NumParams is the length of the canonical Theta vector.
const NumParams = gaussmarkov.NumParams

// ParamNames is the canonical parameter name order.
var ParamNames = gaussmarkov.ParamNames

// Canonical indices into the Theta vector, matching ParamNames' order.
const (
	IdxMeanLambda  = gaussmarkov.IdxMeanLambda
	IdxGammaLambda = gaussmarkov.IdxGammaLambda
	IdxVarLambda   = gaussmarkov.IdxVarLambda
	IdxMeanQ       = gaussmarkov.IdxMeanQ
	IdxGammaQ      = gaussmarkov.IdxGammaQ
	IdxVarQ        = gaussmarkov.IdxVarQ
	IdxBeta        = gaussmarkov.IdxBeta
	IdxVarX        = gaussmarkov.IdxVarX
	IdxVarG        = gaussmarkov.IdxVarG
	IdxVarDx       = gaussmarkov.IdxVarDx
	IdxVarDg       = gaussmarkov.IdxVarDg
	IdxMeanX0      = gaussmarkov.IdxMeanX0
	IdxMeanG0      = gaussmarkov.IdxMeanG0
)

// Expand builds a full Theta from a free-parameter vector and a set of
// ParamSpecs, see gaussmarkov.Expand.
func Expand(free []float64, specs [NumParams]ParamSpec) (Theta, error) {
	return gaussmarkov.Expand(free, specs)
}

// Free reports the indices of specs' non-fixed entries.
func Free(specs [NumParams]ParamSpec) []int {
	return gaussmarkov.Free(specs)
}
