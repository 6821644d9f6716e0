// Command gfpgaussian fits the Ornstein-Uhlenbeck fluorescent-protein/
// length model to a lineage of MOMA-style cell measurements, exposing
// maximize/scan/predict as Cobra subcommands.
package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(0)
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gfpgaussian",
		Short:         "Fit an Ornstein-Uhlenbeck model of fluorescent-protein and length dynamics over a cell lineage",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(maximizeCmd())
	root.AddCommand(scanCmd())
	root.AddCommand(predictCmd())

	return root
}
