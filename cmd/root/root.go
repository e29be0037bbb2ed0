package root

import (
	"github.com/spf13/cobra"

	"github.com/nlarith/nlsat/cmd/dimacs"
	"github.com/nlarith/nlsat/cmd/nra"
	"github.com/nlarith/nlsat/cmd/sudoku"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nlsat",
		Short: "nlsat is a satisfiability solver for nonlinear real arithmetic",
		Long: `A satisfiability solver for quantifier-free nonlinear arithmetic
over the reals, with optional integer variables and a plain Boolean
clause interface.`,
	}

	// add sub-commands
	rootCmd.AddCommand(nra.NewNraCommand())
	rootCmd.AddCommand(dimacs.NewDimacsCommand())
	rootCmd.AddCommand(sudoku.NewSudokuCommand())

	return rootCmd
}
