package nlsat

import (
	"sort"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/poly"
)

// Root atoms are indexed against a fixed variable order, so clauses
// containing them block reordering.

func (s *Solver) clauseHasRootAtom(c *clause) bool {
	for _, l := range c.lits {
		if _, ok := s.atoms[l.Var()].(*RootAtom); ok {
			return true
		}
	}
	return false
}

func (s *Solver) canReorder() bool {
	for _, c := range s.clauses {
		if s.clauseHasRootAtom(c) {
			return false
		}
	}
	for _, c := range s.learned {
		if s.clauseHasRootAtom(c) {
			return false
		}
	}
	return true
}

// removeLearnedRoots purges lemmas with root atoms; their root indices
// would be ill-formed under a new variable order.
func (s *Solver) removeLearnedRoots() {
	j := 0
	for _, c := range s.learned {
		if s.clauseHasRootAtom(c) {
			s.delClause(c)
			continue
		}
		s.learned[j] = c
		j++
	}
	s.learned = s.learned[:j]
}

// applyReorder installs a new variable order: a random one when
// shuffling is enabled, the degree heuristic when reordering is, nothing
// otherwise.
func (s *Solver) applyReorder() {
	s.reordered = false
	if !s.canReorder() {
		return
	}
	switch {
	case s.shuffleVars:
		s.shuffleVarOrder()
		s.reordered = true
	case s.doReorder:
		s.heuristicReorder()
		s.reordered = true
	}
}

// heuristicReorder orders variables by maximal degree, then number of
// occurrences, breaking ties randomly. High degree variables end up
// last, so they are assigned late, when most constraints are univariate.
func (s *Solver) heuristicReorder() {
	num := s.NumVars()
	maxDegree := make([]uint32, num)
	numOccs := make([]int, num)
	count := func(cs []*clause) {
		for _, c := range cs {
			for _, l := range c.lits {
				a, ok := s.atoms[l.Var()].(*IneqAtom)
				if !ok {
					continue
				}
				for i := 0; i < a.NumFactors(); i++ {
					f := a.Factor(i)
					for _, x := range s.pm.Vars(f) {
						numOccs[x]++
						if d := s.pm.Degree(f, x); d > maxDegree[x] {
							maxDegree[x] = d
						}
					}
				}
			}
		}
	}
	count(s.clauses)
	count(s.learned)

	shuffle := s.randomPerm()
	order := make([]poly.Var, num)
	for x := range order {
		order[x] = poly.Var(x)
	}
	// High degree first: those variables become the last stages.
	sort.SliceStable(order, func(i, j int) bool {
		x, y := order[i], order[j]
		if maxDegree[x] != maxDegree[y] {
			return maxDegree[x] > maxDegree[y]
		}
		if numOccs[x] != numOccs[y] {
			return numOccs[x] > numOccs[y]
		}
		return shuffle[x] < shuffle[y]
	})
	perm := make([]poly.Var, num)
	for i, x := range order {
		perm[x] = poly.Var(i)
	}
	s.reorderVars(perm)
}

func (s *Solver) shuffleVarOrder() {
	s.reorderVars(s.randomPerm())
}

func (s *Solver) randomPerm() []poly.Var {
	num := s.NumVars()
	p := make([]poly.Var, num)
	for x := range p {
		p[x] = poly.Var(x)
	}
	s.rnd.Shuffle(num, func(i, j int) { p[i], p[j] = p[j], p[i] })
	return p
}

func (s *Solver) ensurePerm() {
	if s.perm != nil {
		return
	}
	num := s.NumVars()
	s.perm = make([]poly.Var, num)
	s.invPerm = make([]poly.Var, num)
	for x := range s.perm {
		s.perm[x] = poly.Var(x)
		s.invPerm[x] = poly.Var(x)
	}
}

// reorderVars renames every variable x to p[x]: atoms are rebuilt over
// the renamed polynomials, per-variable state is permuted and arithmetic
// clauses re-watched under their new maximal variable.
func (s *Solver) reorderVars(p []poly.Var) {
	s.removeLearnedRoots()
	s.undoUntilStage(-1)
	num := s.NumVars()
	s.ensurePerm()

	for x := range s.watches {
		s.watches[x] = nil
	}

	permute := func(dst, src []poly.Var) {
		for ext := 0; ext < num; ext++ {
			dst[ext] = p[src[ext]]
		}
	}
	newInvPerm := make([]poly.Var, num)
	permute(newInvPerm, s.invPerm)
	for ext := 0; ext < num; ext++ {
		s.perm[newInvPerm[ext]] = poly.Var(ext)
	}
	s.invPerm = newInvPerm

	isInt := make([]bool, num)
	names := make([]string, num)
	for x := 0; x < num; x++ {
		isInt[p[x]] = s.isInt[x]
		names[p[x]] = s.varNames[x]
		s.infeasible[x] = intervals.Empty()
		s.var2eq[x] = nil
		s.assignment[x] = nil
	}
	s.isInt = isInt
	s.varNames = names

	// Rebuild the polynomial cache around the renamed polynomials.
	s.pm.ResetCache()
	s.ineqTable = map[string]*IneqAtom{}
	s.rootTable = map[string]*RootAtom{}
	for _, a := range s.atoms {
		ia, ok := a.(*IneqAtom)
		if !ok {
			continue
		}
		max := poly.NullVar
		for i, f := range ia.factors {
			ia.factors[i] = s.pm.Rename(f, p)
			if v := s.pm.MaxVar(ia.factors[i]); v > max {
				max = v
			}
		}
		ia.max = max
		s.ineqTable[ia.key()] = ia
	}

	rewatch := func(cs []*clause) {
		for _, c := range cs {
			// The intern-time literal order keys on maximal variables,
			// which the renaming just changed.
			sort.SliceStable(c.lits, func(i, j int) bool { return s.litLess(c.lits[i], c.lits[j]) })
			if s.maxArithVar(c) >= 0 {
				s.watches[s.maxArithVar(c)] = append(s.watches[s.maxArithVar(c)], c)
			}
		}
	}
	rewatch(s.clauses)
	rewatch(s.learned)
}

// restoreOrder undoes the current renaming.
func (s *Solver) restoreOrder() {
	if s.perm == nil {
		return
	}
	p := append([]poly.Var(nil), s.perm...)
	s.reorderVars(p)
	s.perm = nil
	s.invPerm = nil
	s.reordered = false
}
