package sudoku

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nlarith/nlsat/pkg/nlsat"
)

func NewSudokuCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sudoku",
		Short: "Returns a solved sudoku board",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := nlsat.New()
			if err != nil {
				return err
			}
			board := NewSudoku(s)

			r, err := s.Check(cmd.Context())
			if err != nil {
				return err
			}
			if r != nlsat.Sat {
				fmt.Println("no solution found")
				return nil
			}

			for row := 0; row < 9; row++ {
				for col := 0; col < 9; col++ {
					n := board.NumberAt(s, row, col)
					if n == 0 {
						fmt.Printf(" ")
					} else {
						fmt.Printf("%d", n)
					}
					if col != 8 {
						fmt.Printf(" ")
					}
				}
				fmt.Printf("\n")
			}
			return nil
		},
	}
}
