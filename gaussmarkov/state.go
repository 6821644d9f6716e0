// Package gaussmarkov implements the closed-form Gauss-Markov propagator
// for the coupled (log-length x, FP amount g, elongation rate lambda, FP
// production rate q) latent state, and the thirteen-parameter theta that
// drives it.
package gaussmarkov

import "gonum.org/v1/gonum/mat"

// State is a Gaussian belief over the 4-vector (x, g, lambda, q): a mean
// and a symmetric 4x4 covariance, built on *mat.VecDense/*mat.Dense so
// every downstream package (kalman, smoother) shares one matrix
// representation.
type State struct {
	Mean *mat.VecDense
	Cov  *mat.Dense
}

// NewState allocates a zeroed 4-dimensional State.
func NewState() State {
	return State{
		Mean: mat.NewVecDense(4, nil),
		Cov:  mat.NewDense(4, 4, nil),
	}
}

const (
	idxX = iota
	idxG
	idxL
	idxQ
)
