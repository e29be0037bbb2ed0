package nra

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nlarith/nlsat/pkg/nlsat"
)

func NewNraCommand() *cobra.Command {
	var maxConflicts uint64
	cmd := &cobra.Command{
		Use:   "nra <path>",
		Short: "Solves a system of polynomial constraints over the reals",
		Long: `Solves a system of polynomial constraints over the reals. For instance:
# declarations are optional, undeclared variables are real
int n
x^2 + y^2 < 1
x*y = 0
2*n - 1 >= x
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("error opening constraint file (%s): %w", args[0], err)
			}
			defer f.Close()

			opts := []nlsat.Option{}
			if maxConflicts > 0 {
				opts = append(opts, nlsat.WithMaxConflicts(maxConflicts))
			}
			s, err := nlsat.New(opts...)
			if err != nil {
				return err
			}
			problem, err := NewProblem(s, f)
			if err != nil {
				return fmt.Errorf("error parsing constraint file (%s): %w", args[0], err)
			}

			r, err := s.Check(cmd.Context())
			if err != nil {
				return err
			}
			switch r {
			case nlsat.Sat:
				fmt.Println("sat")
				for _, name := range problem.Names() {
					fmt.Printf("%s = %s\n", name, s.Value(problem.Var(name)))
				}
			case nlsat.Unsat:
				fmt.Println("unsat")
			default:
				fmt.Println("unknown")
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&maxConflicts, "max-conflicts", 0, "give up after this many conflicts (0 means never)")
	return cmd
}
