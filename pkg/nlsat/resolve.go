package nlsat

import (
	"go.uber.org/zap"
)

// Conflict resolution invariant: a marked literal is either in the lemma
// being built or still on the trail above the resolution point.

func (s *Solver) isMarked(b BoolVar) bool { return s.marks[b] }

func (s *Solver) mark(b BoolVar) { s.marks[b] = true }

func (s *Solver) resetMark(b BoolVar) { s.marks[b] = false }

func (s *Solver) resetMarks() {
	for _, l := range s.lemma {
		s.resetMark(l.Var())
	}
}

func (s *Solver) clearAllMarks() {
	if s.numMarks > 0 {
		s.numMarks = 0
		for i := range s.marks {
			s.marks[i] = false
		}
	}
}

// processAntecedent folds one antecedent literal into the current lemma.
// Literals assigned at the current level and stage bump the mark counter
// and are resolved away later; everything else lands in the lemma.
func (s *Solver) processAntecedent(antecedent Lit) {
	b := antecedent.Var()
	if s.assignedValue(antecedent) == LUndef {
		// Unassigned, but false in the arithmetic interpretation: a
		// literal from a previous stage.
		if !s.isMarked(b) {
			s.mark(b)
			s.lemma = append(s.lemma, antecedent)
		}
		return
	}
	if s.isMarked(b) {
		return
	}
	s.mark(b)
	if s.levels[b] == s.scopeLvl && s.atomStage(b) == s.xk {
		s.numMarks++
	} else {
		s.lemma = append(s.lemma, antecedent)
	}
}

// atomStage returns the stage of b's atom, -1 for pure Boolean variables.
func (s *Solver) atomStage(b BoolVar) int32 {
	if a := s.atoms[b]; a != nil {
		return int32(a.MaxVar())
	}
	return -1
}

func (s *Solver) resolveLits(b BoolVar, lits []Lit) {
	for _, l := range lits {
		if l.Var() != b {
			s.processAntecedent(l)
		}
	}
}

func (s *Solver) resolveClauseWith(b BoolVar, c *clause) {
	c.active = true
	s.resolveLits(b, c.lits)
	s.lemmaAsms = mergeAsms(c.asms, s.lemmaAsms)
}

// resolveLazyJustification expands a lazy justification into a valid
// clause via the explain oracle and resolves the lemma against it.
func (s *Solver) resolveLazyJustification(b BoolVar, j *lazyJst) error {
	extra, err := s.explainer.Explain(s, j.lits)
	if err != nil {
		return err
	}
	s.lazyClause = s.lazyClause[:0]
	s.lazyClause = append(s.lazyClause, extra...)
	for _, l := range j.lits {
		s.lazyClause = append(s.lazyClause, l.Neg())
	}
	if s.checkLemmas {
		s.checkLemma(s.lazyClause, true)
		// Keep the valid clause alive so its atoms survive until the
		// end of the check.
		s.cid++
		vc := &clause{id: s.cid, lits: append([]Lit(nil), s.lazyClause...)}
		for _, l := range vc.lits {
			s.incLitRef(l)
		}
		s.valids = append(s.valids, vc)
	}
	s.resolveLits(b, s.lazyClause)
	for _, c := range j.clauses {
		s.lemmaAsms = mergeAsms(c.asms, s.lemmaAsms)
	}
	return nil
}

// onlyLiteralsFromPreviousStages reports whether no lemma literal belongs
// to the current stage.
func (s *Solver) onlyLiteralsFromPreviousStages(lits []Lit) bool {
	for _, l := range lits {
		if s.atomStage(l.Var()) == s.xk {
			return false
		}
	}
	return true
}

// maxScopeLvl returns the maximum decision level among the assigned
// literals of the lemma.
func (s *Solver) maxScopeLvl(lits []Lit) uint32 {
	var max uint32
	for _, l := range lits {
		if s.assignedValue(l) == LFalse {
			if lvl := s.levels[l.Var()]; lvl > max {
				max = lvl
			}
		}
	}
	return max
}

// removeLiteralsFromLvl drops current-stage literals assigned at lvl from
// the lemma, re-queueing them as marks to resolve after backtracking.
func (s *Solver) removeLiteralsFromLvl(lvl uint32) {
	j := 0
	for _, l := range s.lemma {
		b := l.Var()
		if s.assignedValue(l) == LFalse && s.levels[b] == lvl && s.atomStage(b) == s.xk {
			s.numMarks++
			continue
		}
		s.lemma[j] = l
		j++
	}
	s.lemma = s.lemma[:j]
}

func (s *Solver) isBoolLemma(lits []Lit) bool {
	for _, l := range lits {
		if s.atoms[l.Var()] != nil {
			return false
		}
	}
	return true
}

// maxVarOfLemma returns the maximal stage among the lemma literals, -1
// for a pure Boolean lemma.
func (s *Solver) maxVarOfLemma(lits []Lit) int32 {
	return s.maxArithVarOfLits(lits)
}

// findNewLevelArithLemma returns the backtrack level for an arithmetic
// lemma with a decision literal: the maximal level among the first
// len-1 literals of the current stage, or one level up when none is
// found.
func (s *Solver) findNewLevelArithLemma(lits []Lit) uint32 {
	var newLvl uint32
	found := false
	for _, l := range lits[:len(lits)-1] {
		if s.atomStage(l.Var()) == s.xk {
			if lvl := s.levels[l.Var()]; !found || lvl > newLvl {
				found = true
				newLvl = lvl
			}
		}
	}
	if !found {
		newLvl = s.scopeLvl - 1
	}
	return newLvl
}

func (s *Solver) lemmaIsClause(c *clause) bool {
	if len(s.lemma) != len(c.lits) {
		return false
	}
	for i, l := range s.lemma {
		if l != c.lits[i] {
			return false
		}
	}
	return true
}

// resolve processes a conflicting clause. It returns false when the
// empty lemma is derived, i.e. the problem is unsatisfiable.
func (s *Solver) resolve(conflict *clause) (bool, error) {
	conflictClause := conflict
	s.lemmaAsms = nil
	for {
		s.stats.Conflicts++
		s.tracer.Conflict(conflictClause.lits)
		s.numMarks = 0
		s.lemma = s.lemma[:0]
		s.lemmaAsms = nil
		s.resolveClauseWith(NullBoolVar, conflictClause)

		top := len(s.trail)
		foundDecision := false
		for {
			foundDecision = false
			for s.numMarks > 0 {
				if err := s.checkpoint(); err != nil {
					s.clearAllMarks()
					return false, err
				}
				t := s.trail[top-1]
				if t.kind == trailBVarAssignment && s.isMarked(t.b) {
					b := t.b
					s.numMarks--
					s.resetMark(b)
					j := s.justs[b]
					switch j.kind {
					case jstClause:
						s.resolveClauseWith(b, j.cls)
					case jstLazy:
						if err := s.resolveLazyJustification(b, j.lazy); err != nil {
							s.clearAllMarks()
							return false, err
						}
					case jstDecision:
						foundDecision = true
						s.lemma = append(s.lemma, MkLit(b, s.bvalues[b] == LTrue))
					}
				}
				top--
			}

			// The lemma now implies the conflict after backtracking.
			if foundDecision {
				break
			}
			if s.onlyLiteralsFromPreviousStages(s.lemma) {
				break
			}
			// The conflict does not depend on the current decision and
			// is still inside the current stage: hop to the maximal
			// level mentioned by the lemma and keep resolving there.
			maxLvl := s.maxScopeLvl(s.lemma)
			s.removeLiteralsFromLvl(maxLvl)
			s.undoUntilLevel(maxLvl)
			top = len(s.trail)
		}

		if len(s.lemma) == 0 {
			s.clearAllMarks()
			return false, nil
		}
		s.resetMarks()
		s.tracer.Lemma(s.lemma)

		// Either the lemma only mentions previous stages (backjump to
		// the stage of its maximal variable), or its last literal flips
		// a decision at the current stage (backjump inside the stage).
		var newCls *clause
		if !foundDecision {
			newMaxVar := s.maxVarOfLemma(s.lemma)
			s.undoUntilStage(newMaxVar)
			s.tracer.Backjump(s.scopeLvl, s.xk)
			newCls = s.mkClause(s.lemma, true, s.lemmaAsms)
		} else {
			if s.isBoolLemma(s.lemma) {
				maxB := s.lemma[len(s.lemma)-1].Var()
				s.undoUntilUnassigned(maxB)
			} else {
				s.undoUntilLevel(s.findNewLevelArithLemma(s.lemma))
			}
			s.tracer.Backjump(s.scopeLvl, s.xk)
			if s.lemmaIsClause(conflictClause) {
				ok, err := s.processClause(conflictClause, true)
				if err != nil {
					return false, err
				}
				if !ok {
					s.logger.Warn("conflict clause still unsatisfied after backjump",
						zap.Uint32("clause", conflictClause.id))
				}
				return true, nil
			}
			newCls = s.mkClause(s.lemma, true, s.lemmaAsms)
		}

		ok, err := s.processClause(newCls, true)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		// The fresh lemma is conflicting as well; restart resolution
		// from it.
		conflictClause = newCls
	}
}
