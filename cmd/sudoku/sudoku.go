package sudoku

import (
	"math/rand"
	"time"

	"github.com/nlarith/nlsat/pkg/nlsat"
)

// Sudoku encodes a 9x9 board as one Boolean variable per
// (row, col, number) triple.
type Sudoku struct {
	vars [9][9][9]nlsat.BoolVar
}

// NewSudoku allocates the board variables and asserts the sudoku rules
// on the given solver.
// adapted from: https://github.com/go-air/gini/blob/871d828a26852598db2b88f436549634ba9533ff/sudoku_test.go#L10
func NewSudoku(s *nlsat.Solver) *Sudoku {
	b := &Sudoku{}
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			for n := 0; n < 9; n++ {
				b.vars[row][col][n] = s.MkBoolVar()
			}
		}
	}

	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))

	// every position on the board has a number
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			lits := make([]nlsat.Lit, 9)
			for n := 0; n < 9; n++ {
				lits[n] = nlsat.MkLit(b.vars[row][col][n], false)
			}
			// randomize order to create new sudoku boards every run
			rnd.Shuffle(len(lits), func(i, j int) { lits[i], lits[j] = lits[j], lits[i] })
			s.AddClause(lits...)
		}
	}

	conflict := func(a, b nlsat.BoolVar) {
		s.AddClause(nlsat.MkLit(a, true), nlsat.MkLit(b, true))
	}

	// every row has unique numbers
	for n := 0; n < 9; n++ {
		for row := 0; row < 9; row++ {
			for colA := 0; colA < 9; colA++ {
				for colB := colA + 1; colB < 9; colB++ {
					conflict(b.vars[row][colA][n], b.vars[row][colB][n])
				}
			}
		}
	}

	// every column has unique numbers
	for n := 0; n < 9; n++ {
		for col := 0; col < 9; col++ {
			for rowA := 0; rowA < 9; rowA++ {
				for rowB := rowA + 1; rowB < 9; rowB++ {
					conflict(b.vars[rowA][col][n], b.vars[rowB][col][n])
				}
			}
		}
	}

	// every box on the board rooted at x, y has unique numbers
	box := func(x, y int) {
		offs := []struct{ x, y int }{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}, {2, 0}, {2, 1}, {2, 2}}
		for n := 0; n < 9; n++ {
			for i, offA := range offs {
				for j := i + 1; j < len(offs); j++ {
					offB := offs[j]
					conflict(b.vars[x+offA.x][y+offA.y][n], b.vars[x+offB.x][y+offB.y][n])
				}
			}
		}
	}
	for x := 0; x < 9; x += 3 {
		for y := 0; y < 9; y += 3 {
			box(x, y)
		}
	}

	return b
}

// NumberAt reads the solved number for a cell back out of the model,
// or 0 if the cell has none.
func (b *Sudoku) NumberAt(s *nlsat.Solver, row, col int) int {
	for n := 0; n < 9; n++ {
		if s.BoolValue(b.vars[row][col][n]) == nlsat.LTrue {
			return n + 1
		}
	}
	return 0
}
