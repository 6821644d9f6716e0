// Package linalg provides the small fixed-size matrix helpers shared by
// the kalman and smoother packages.
package linalg

import "gonum.org/v1/gonum/mat"

// Diag returns a diagonal matrix with the given entries, used to build a
// cell's root prior covariance from its four independent variances.
func Diag(d ...float64) *mat.Dense {
	out := mat.NewDense(len(d), len(d), nil)
	for i, v := range d {
		out.Set(i, i, v)
	}
	return out
}
