package ingest

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aphros-lab/gfp-gaussian/likelihood"
)

// dynamicParamKeys lists the 11 recognized keys in a parameter bounds
// file. mean_x0 and mean_g0 are deliberately absent: the root prior
// means are derived from the data's first observations (the CLI averages
// them over all root cells), not read from this file.
var dynamicParamKeys = map[string]int{
	"mean_lambda":  likelihood.IdxMeanLambda,
	"gamma_lambda": likelihood.IdxGammaLambda,
	"var_lambda":   likelihood.IdxVarLambda,
	"mean_q":       likelihood.IdxMeanQ,
	"gamma_q":      likelihood.IdxGammaQ,
	"var_q":        likelihood.IdxVarQ,
	"beta":         likelihood.IdxBeta,
	"var_x":        likelihood.IdxVarX,
	"var_g":        likelihood.IdxVarG,
	"var_dx":       likelihood.IdxVarDx,
	"var_dg":       likelihood.IdxVarDg,
}

// LoadParameters parses a parameter bounds file in the "key = value[,
// step, lower, upper]" format, with "#" starting a comment to end of
// line. A key with only a value is treated as fixed (ParamSpec.Fixed =
// true); a key with all four fields is free with the given step and
// bounds. mean_x0/mean_g0, like any key the file does not mention, are
// left as a ParamSpec with only Name set (callers set mean_x0/mean_g0
// from the data).
func LoadParameters(path string) ([likelihood.NumParams]likelihood.ParamSpec, error) {
	var specs [likelihood.NumParams]likelihood.ParamSpec
	for i := range specs {
		specs[i].Name = likelihood.ParamNames[i]
	}

	f, err := os.Open(path)
	if err != nil {
		return specs, fmt.Errorf("ingest: LoadParameters: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return specs, fmt.Errorf("ingest: LoadParameters: line %d: missing '='", lineNo)
		}
		key := strings.TrimSpace(line[:eq])
		rest := strings.Split(line[eq+1:], ",")
		for i := range rest {
			rest[i] = strings.TrimSpace(rest[i])
		}

		idx, ok := dynamicParamKeys[key]
		if !ok {
			return specs, fmt.Errorf("ingest: LoadParameters: line %d: unrecognized key %q", lineNo, key)
		}

		vals := make([]float64, len(rest))
		for i, s := range rest {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return specs, fmt.Errorf("ingest: LoadParameters: line %d: %w", lineNo, err)
			}
			vals[i] = v
		}

		spec := likelihood.ParamSpec{Name: likelihood.ParamNames[idx]}
		switch len(vals) {
		case 1:
			spec.Fixed = true
			spec.Value = vals[0]
		case 4:
			spec.Fixed = false
			spec.Value = vals[0]
			spec.Step = vals[1]
			spec.Lower = vals[2]
			spec.Upper = vals[3]
		default:
			return specs, fmt.Errorf("ingest: LoadParameters: line %d: key %q needs 1 or 4 values, got %d", lineNo, key, len(vals))
		}
		specs[idx] = spec
	}
	if err := scanner.Err(); err != nil {
		return specs, fmt.Errorf("ingest: LoadParameters: %w", err)
	}

	return specs, nil
}
