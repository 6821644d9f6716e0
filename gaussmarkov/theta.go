package gaussmarkov

import "fmt"

// Theta holds the thirteen scalar parameters of the generation model, in
// the canonical order used throughout the optimiser, the scan and the
// parameter file: eleven dynamics parameters (mean_lambda, gamma_lambda,
// var_lambda, mean_q, gamma_q, var_q, beta, var_x, var_g, var_dx,
// var_dg) that the parameter file sets, followed by the root (x, g)
// prior means, which the caller supplies directly instead.
type Theta struct {
	MeanLambda  float64
	GammaLambda float64
	VarLambda   float64

	MeanQ  float64
	GammaQ float64
	VarQ   float64

	Beta float64

	VarX float64
	VarG float64

	VarDx float64
	VarDg float64

	MeanX0 float64
	MeanG0 float64
}

// NumParams is the length of the canonical Theta vector.
const NumParams = 13

// Canonical indices into the Theta vector, matching ParamNames' order.
const (
	IdxMeanLambda = iota
	IdxGammaLambda
	IdxVarLambda
	IdxMeanQ
	IdxGammaQ
	IdxVarQ
	IdxBeta
	IdxVarX
	IdxVarG
	IdxVarDx
	IdxVarDg
	IdxMeanX0
	IdxMeanG0
)

// Vector returns the canonical 13-element representation of theta.
func (t Theta) Vector() [NumParams]float64 {
	return [NumParams]float64{
		t.MeanLambda, t.GammaLambda, t.VarLambda,
		t.MeanQ, t.GammaQ, t.VarQ,
		t.Beta,
		t.VarX, t.VarG,
		t.VarDx, t.VarDg,
		t.MeanX0, t.MeanG0,
	}
}

// FromVector builds a Theta from its canonical 13-element representation.
func FromVector(v [NumParams]float64) Theta {
	return Theta{
		MeanLambda: v[0], GammaLambda: v[1], VarLambda: v[2],
		MeanQ: v[3], GammaQ: v[4], VarQ: v[5],
		Beta: v[6],
		VarX: v[7], VarG: v[8],
		VarDx: v[9], VarDg: v[10],
		MeanX0: v[11], MeanG0: v[12],
	}
}

// ParamSpec describes one canonical parameter's role in an optimisation
// or scan: whether it is held fixed at Value or free to vary within
// [Lower, Upper] with the given initial Step.
type ParamSpec struct {
	Name  string
	Fixed bool
	Value float64
	Step  float64
	Lower float64
	Upper float64
}

// ParamNames is the canonical parameter name order.
var ParamNames = [NumParams]string{
	"mean_lambda", "gamma_lambda", "var_lambda",
	"mean_q", "gamma_q", "var_q",
	"beta",
	"var_x", "var_g",
	"var_dx", "var_dg",
	"mean_x", "mean_g",
}

// Free reports the indices, in canonical order, of the non-fixed entries
// of specs.
func Free(specs [NumParams]ParamSpec) []int {
	var idx []int
	for i, s := range specs {
		if !s.Fixed {
			idx = append(idx, i)
		}
	}
	return idx
}

// Expand builds a full Theta by taking the fixed entries of specs at
// their Value and overwriting the free entries, in canonical order, with
// the values in free. len(free) must equal len(Free(specs)).
func Expand(free []float64, specs [NumParams]ParamSpec) (Theta, error) {
	idx := Free(specs)
	if len(free) != len(idx) {
		return Theta{}, fmt.Errorf("gaussmarkov: Expand: got %d free values, want %d", len(free), len(idx))
	}
	var v [NumParams]float64
	for i, s := range specs {
		v[i] = s.Value
	}
	for k, i := range idx {
		v[i] = free[k]
	}
	return FromVector(v), nil
}
