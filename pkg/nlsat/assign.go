package nlsat

import (
	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/poly"
)

// assignedValue returns the value the search assigned to l, LUndef if the
// Boolean variable is unassigned.
func (s *Solver) assignedValue(l Lit) LBool {
	v := s.bvalues[l.Var()]
	if l.Sign() {
		return v.Neg()
	}
	return v
}

// value returns the truth value of l in the current partial
// interpretation: the assigned value if any, otherwise the evaluation of
// the atom when its maximal variable already has a witness.
func (s *Solver) value(l Lit) (LBool, error) {
	if v := s.assignedValue(l); v != LUndef {
		return v, nil
	}
	a := s.atoms[l.Var()]
	if a == nil {
		return LUndef, nil
	}
	if s.assignment[a.MaxVar()] == nil {
		return LUndef, nil
	}
	v, err := s.evalAtom(a, l.Sign())
	if err != nil {
		return LUndef, err
	}
	return toLBool(v), nil
}

func (s *Solver) newLevel() {
	s.scopeLvl++
	s.saveNewLevelTrail()
}

func (s *Solver) newStage() {
	s.stats.Stages++
	s.saveNewStageTrail()
	s.xk++
}

func (s *Solver) setLiteralToTrue(l Lit, j justification) {
	if j.kind == jstDecision {
		s.stats.Decisions++
	} else {
		s.stats.Propagations++
	}
	b := l.Var()
	s.bvalues[b] = toLBool(!l.Sign())
	s.levels[b] = s.scopeLvl
	s.justs[b] = j
	s.saveAssignTrail(b)
	s.updtEq(b, j)
}

func (s *Solver) decideLiteral(l Lit) {
	s.newLevel()
	s.tracer.Decision(l)
	s.setLiteralToTrue(l, justification{kind: jstDecision})
}

// rPropagate assigns l to true because the conjunction of l's negation
// with the justifications of set has no feasible value for the stage
// variable.
func (s *Solver) rPropagate(l Lit, set *intervals.Set, includeL bool) {
	var core []Lit
	for _, jl := range set.Lits() {
		core = append(core, Lit(jl))
	}
	if includeL {
		core = append(core, l.Neg())
	}
	s.setLiteralToTrue(l, justification{kind: jstLazy, lazy: &lazyJst{lits: core}})
}

// updtInfeasible unions set into the infeasible region of the stage
// variable, logging the old set on the trail.
func (s *Solver) updtInfeasible(set *intervals.Set) {
	old := s.infeasible[s.xk]
	s.saveInfeasibleTrail(old)
	s.infeasible[s.xk] = old.Union(set)
}

// updtEq tracks, per stage variable, the lowest-degree equality atom that
// currently defines it. Only unconditional equalities qualify: single odd
// factor, assigned true, not depending on assumptions.
func (s *Solver) updtEq(b BoolVar, j justification) {
	if !s.simplifyCores {
		return
	}
	if s.bvalues[b] != LTrue {
		return
	}
	a, ok := s.atoms[b].(*IneqAtom)
	if !ok || a.kind != AtomEQ || a.NumFactors() > 1 || a.IsEven(0) {
		return
	}
	switch j.kind {
	case jstClause:
		if len(j.cls.asms) > 0 {
			return
		}
	case jstLazy:
		if len(j.lazy.lits) > 0 || len(j.lazy.clauses) > 0 {
			return
		}
	}
	x := s.xk
	if x < 0 || a.MaxVar() != poly.Var(x) {
		return
	}
	if cur := s.var2eq[x]; cur != nil && cur.maxDegree(s.pm) <= a.maxDegree(s.pm) {
		return
	}
	s.saveUpdtEqTrail(s.var2eq[x])
	s.var2eq[x] = a
}

// isSatisfied reports whether some literal of c is true.
func (s *Solver) isSatisfied(c *clause) (bool, error) {
	for _, l := range c.lits {
		v, err := s.value(l)
		if err != nil {
			return false, err
		}
		if v == LTrue {
			return true, nil
		}
	}
	return false, nil
}

// isInconsistent reports whether every literal of lits is false.
func (s *Solver) isInconsistent(lits []Lit) (bool, error) {
	for _, l := range lits {
		v, err := s.value(l)
		if err != nil {
			return false, err
		}
		if v != LFalse {
			return false, nil
		}
	}
	return true, nil
}
