package dimacs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlarith/nlsat/pkg/nlsat"
)

func NewDimacsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dimacs <path>",
		Short: "Solves a sat problem given in dimacs format",
		Long: `Solves a sat problem given in dimacs format. For instance:
c
c this is a comment
c header: p cnf <number of variable> <number of clauses>
p cnf 2 2
c clauses end in zero, negative means 'not'
c 0 (zero) is not a valid literal
1 2 0
1 -2 0
c cnf: (1 or 2) and (1 or not 2)
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return solve(cmd.Context(), args[0])
		},
	}
}

func solve(ctx context.Context, path string) error {
	// open dimacs file
	dimacsFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening dimacs file (%s): %w", path, err)
	}
	defer dimacsFile.Close()

	dimacs, err := NewDimacs(dimacsFile)
	if err != nil {
		return fmt.Errorf("error parsing dimacs file (%s): %w", path, err)
	}

	s, err := nlsat.New()
	if err != nil {
		return err
	}
	vars := make([]nlsat.BoolVar, dimacs.NumVariables()+1)
	for i := 1; i <= dimacs.NumVariables(); i++ {
		vars[i] = s.MkBoolVar()
	}
	for _, clause := range dimacs.Clauses() {
		lits := make([]nlsat.Lit, 0, len(clause))
		for _, lit := range clause {
			v := lit
			if v < 0 {
				v = -v
			}
			lits = append(lits, nlsat.MkLit(vars[v], lit < 0))
		}
		s.AddClause(lits...)
	}

	r, err := s.Check(ctx)
	if err != nil {
		return err
	}
	switch r {
	case nlsat.Sat:
		fmt.Println("solution found:")
		for i := 1; i <= dimacs.NumVariables(); i++ {
			fmt.Printf("%d = %t\n", i, s.BoolValue(vars[i]) == nlsat.LTrue)
		}
	case nlsat.Unsat:
		fmt.Println("no solution found: constraints are unsatisfiable")
	default:
		fmt.Println("no answer: search gave up")
	}

	return nil
}
