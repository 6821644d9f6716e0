package main

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aphros-lab/gfp-gaussian/estimate"
	"github.com/aphros-lab/gfp-gaussian/gaussmarkov"
	"github.com/aphros-lab/gfp-gaussian/ingest"
	"github.com/aphros-lab/gfp-gaussian/lineage"
	"github.com/aphros-lab/gfp-gaussian/smoother"
	"github.com/spf13/cobra"
)

// sharedFlags are the -i/-b/-c/-l/-o flags common to every subcommand.
type sharedFlags struct {
	infile     string
	bounds     string
	csvConfig  string
	printLevel int
	outdir     string
}

func addSharedFlags(cmd *cobra.Command, f *sharedFlags) {
	cmd.Flags().StringVarP(&f.infile, "infile", "i", "", "input/data file (required)")
	cmd.Flags().StringVarP(&f.bounds, "parameter_bounds", "b", "", "file defining the type, step, bounds of the parameters (required)")
	cmd.Flags().StringVarP(&f.csvConfig, "csv_config", "c", "", "file that sets the columns used from the input file")
	cmd.Flags().IntVarP(&f.printLevel, "print_level", "l", 0, "print level >= 0")
	cmd.Flags().StringVarP(&f.outdir, "outdir", "o", ".", "output directory")
	cmd.MarkFlagRequired("infile")
	cmd.MarkFlagRequired("parameter_bounds")
}

func (f *sharedFlags) load() (*lineage.Tree, [gaussmarkov.NumParams]gaussmarkov.ParamSpec, error) {
	cfg := ingest.DefaultColumnConfig()
	if f.csvConfig != "" {
		var err error
		cfg, err = ingest.LoadColumnConfig(f.csvConfig)
		if err != nil {
			return nil, [gaussmarkov.NumParams]gaussmarkov.ParamSpec{}, err
		}
	}

	tree, warnings, err := ingest.LoadCells(f.infile, cfg)
	if err != nil {
		return nil, [gaussmarkov.NumParams]gaussmarkov.ParamSpec{}, err
	}
	for _, w := range warnings {
		log.Print(w)
	}

	specs, err := ingest.LoadParameters(f.bounds)
	if err != nil {
		return nil, specs, err
	}
	setRootMeans(tree, &specs)
	return tree, specs, nil
}

// setRootMeans fills in mean_x0/mean_g0 as the average of every root
// cell's first (x, g) observation, since the parameter bounds file never
// carries them (ingest.LoadParameters only recognizes the 11 dynamic
// keys). They are always held fixed: the data determines them, not the
// optimizer.
func setRootMeans(tree *lineage.Tree, specs *[gaussmarkov.NumParams]gaussmarkov.ParamSpec) {
	if len(tree.Roots) == 0 {
		return
	}
	var sumX, sumG float64
	for _, r := range tree.Roots {
		cell := tree.Cells[r]
		sumX += cell.X[0]
		sumG += cell.G[0]
	}
	n := float64(len(tree.Roots))
	specs[gaussmarkov.IdxMeanX0] = gaussmarkov.ParamSpec{
		Name: gaussmarkov.ParamNames[gaussmarkov.IdxMeanX0], Fixed: true, Value: sumX / n,
	}
	specs[gaussmarkov.IdxMeanG0] = gaussmarkov.ParamSpec{
		Name: gaussmarkov.ParamNames[gaussmarkov.IdxMeanG0], Fixed: true, Value: sumG / n,
	}
}

func maximizeCmd() *cobra.Command {
	var f sharedFlags
	var relTol float64

	cmd := &cobra.Command{
		Use:   "maximize",
		Short: "Fit the free parameters by maximizing the total log-likelihood",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, specs, err := f.load()
			if err != nil {
				return err
			}
			fmt.Println("-> Minimizaton")

			result, err := estimate.Maximize(tree, specs, relTol)
			if err != nil {
				return err
			}

			outfile := filepath.Join(f.outdir, "loglikelihood.tsv")
			fmt.Println("Outfile:", outfile)
			return writeMaximizeResult(outfile, result)
		},
	}
	addSharedFlags(cmd, &f)
	cmd.Flags().Float64VarP(&relTol, "rel_tol", "r", 1e-2, "relative tolerance of maximization")
	return cmd
}

func scanCmd() *cobra.Command {
	var f sharedFlags
	var workers int

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Profile the log-likelihood over a 1D grid for every free parameter",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, specs, err := f.load()
			if err != nil {
				return err
			}
			fmt.Println("-> 1d Scan")

			for i, spec := range specs {
				if spec.Fixed {
					continue
				}
				points := estimate.Scan(tree, specs, i, workers)
				outfile := filepath.Join(f.outdir, fmt.Sprintf("loglikelihood_%s.tsv", spec.Name))
				fmt.Println("Outfile:", outfile)
				if err := writeScanPoints(outfile, spec.Name, points); err != nil {
					return err
				}
			}
			return nil
		},
	}
	addSharedFlags(cmd, &f)
	cmd.Flags().IntVarP(&workers, "workers", "w", 4, "number of concurrent scan workers")
	return cmd
}

func predictCmd() *cobra.Command {
	var f sharedFlags

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run the forward/backward smoother and write per-observation predictions",
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, specs, err := f.load()
			if err != nil {
				return err
			}
			fmt.Println("-> prediction")

			theta, err := gaussmarkov.Expand(nil, allFixed(specs))
			if err != nil {
				return err
			}
			evals, ll := smoother.Run(tree, theta)
			fmt.Println("log-likelihood:", ll)

			outfile := filepath.Join(f.outdir, "prediction.tsv")
			fmt.Println("Outfile:", outfile)
			return writePredictions(outfile, tree, evals)
		},
	}
	addSharedFlags(cmd, &f)
	return cmd
}

// allFixed treats every entry of specs as already resolved to its Value,
// with nothing left free to re-minimize.
func allFixed(specs [gaussmarkov.NumParams]gaussmarkov.ParamSpec) [gaussmarkov.NumParams]gaussmarkov.ParamSpec {
	for i := range specs {
		specs[i].Fixed = true
	}
	return specs
}

func writeMaximizeResult(path string, result estimate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	defer w.Flush()

	v := result.Theta.Vector()
	header := append(append([]string{}, gaussmarkov.ParamNames[:]...), "loglikelihood", "iterations", "func_evaluations")
	if err := w.Write(header); err != nil {
		return err
	}
	row := make([]string, 0, len(header))
	for _, x := range v {
		row = append(row, strconv.FormatFloat(x, 'g', -1, 64))
	}
	row = append(row,
		strconv.FormatFloat(result.LogLikelihood, 'g', -1, 64),
		strconv.Itoa(result.Iterations),
		strconv.Itoa(result.FuncEvaluations),
	)
	return w.Write(row)
}

func writeScanPoints(path, paramName string, points []estimate.ScanPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	defer w.Flush()

	if err := w.Write([]string{paramName, "loglikelihood"}); err != nil {
		return err
	}
	for _, p := range points {
		if err := w.Write([]string{
			strconv.FormatFloat(p.Value, 'g', -1, 64),
			strconv.FormatFloat(p.LogLikelihood, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	return nil
}

func writePredictions(path string, tree *lineage.Tree, evals []*lineage.Eval) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	defer w.Flush()

	dims := []string{"x", "g", "lambda", "q"}
	header := []string{"cell", "time", "x", "g"}
	for _, suffix := range []string{"f", "b", "s"} {
		for _, d := range dims {
			header = append(header, "mean_"+d+"_"+suffix, "var_"+d+"_"+suffix)
		}
	}
	if err := w.Write(header); err != nil {
		return err
	}

	ff := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for idx, cell := range tree.Cells {
		eval := evals[idx]
		for i, t := range cell.Times {
			row := []string{cell.ID, ff(t), ff(cell.X[i]), ff(cell.G[i])}
			for _, states := range [][]gaussmarkov.State{eval.Post, eval.Backward, eval.Smooth} {
				for d := 0; d < 4; d++ {
					if states != nil {
						row = append(row, ff(states[i].Mean.AtVec(d)), ff(states[i].Cov.At(d, d)))
					} else {
						row = append(row, "", "")
					}
				}
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}
	return nil
}
