package nlsat

import (
	"fmt"
	"sort"

	"github.com/nlarith/nlsat/pkg/algebraic"
	"github.com/nlarith/nlsat/pkg/poly"
)

// Explainer turns an infeasible literal conjunction into a valid lemma.
// Given core literals whose conjunction has no solution for the stage
// variable under the current lower-stage assignment, Explain returns
// extra literals E such that the clause E or not(core) holds for all real
// values. The extra literals must be false under the current assignment.
type Explainer interface {
	Explain(s *Solver, core []Lit) ([]Lit, error)
}

// CellExplainer is the default oracle. It excludes the current cell of
// the lower-stage assignment: for every assigned variable occurring in
// the core it emits the negation of a defining constraint, an equality
// for rational witnesses and an indexed-root equality for algebraic
// ones. The resulting clause says "either some core literal fails, or
// the lower variables differ from their current values", which is valid
// because the core has no solution precisely at those values.
type CellExplainer struct{}

func (CellExplainer) Explain(s *Solver, core []Lit) ([]Lit, error) {
	vars := s.coreVars(core)
	var out []Lit
	for _, y := range vars {
		w := s.assignment[y]
		if w == nil {
			continue
		}
		if w.IsRational() {
			p := s.pm.Sub(s.pm.VarPoly(y), s.pm.Const(w.Rat()))
			l := s.MkIneqLiteral(AtomEQ, []*poly.Poly{p}, []bool{false})
			out = append(out, l.Neg())
			continue
		}
		dp, index, err := s.definingRoot(y, w)
		if err != nil {
			return nil, err
		}
		b := s.MkRootAtom(AtomRootEQ, y, index, dp)
		out = append(out, MkLit(b, true))
	}
	return out, nil
}

// coreVars collects the assigned arithmetic variables occurring in the
// core atoms, in ascending order.
func (s *Solver) coreVars(core []Lit) []poly.Var {
	seen := map[poly.Var]bool{}
	var vars []poly.Var
	add := func(v poly.Var) {
		if !seen[v] && s.assignment[v] != nil {
			seen[v] = true
			vars = append(vars, v)
		}
	}
	for _, l := range core {
		switch a := s.atoms[l.Var()].(type) {
		case *IneqAtom:
			for i := 0; i < a.NumFactors(); i++ {
				for _, v := range s.pm.Vars(a.Factor(i)) {
					add(v)
				}
			}
		case *RootAtom:
			add(a.x)
			for _, v := range s.pm.Vars(a.p) {
				add(v)
			}
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i] < vars[j] })
	return vars
}

// definingRoot expresses the irrational witness w of y as an indexed root
// of its defining polynomial, lifted into the solver's polynomial
// manager.
func (s *Solver) definingRoot(y poly.Var, w *algebraic.Num) (*poly.Poly, int, error) {
	d := w.DefiningPoly()
	dp := s.pm.Zero()
	for i, c := range d {
		if c.Sign() == 0 {
			continue
		}
		dp = s.pm.Add(dp, s.pm.MulConst(c, s.pm.Pow(s.pm.VarPoly(y), uint32(i))))
	}
	roots := algebraic.IsolateRoots(d)
	for i, r := range roots {
		if r.Cmp(w) == 0 {
			return dp, i + 1, nil
		}
	}
	return nil, 0, fmt.Errorf("nlsat: witness of %s is not a root of its defining polynomial", s.VarName(y))
}
