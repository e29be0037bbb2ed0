package nlsat

import (
	"github.com/nlarith/nlsat/internal/intervals"
)

type trailKind uint8

const (
	trailBVarAssignment trailKind = iota
	trailInfeasibleUpdt
	trailNewLevel
	trailNewStage
	trailUpdtEq
)

// trailEntry records one reversible state change. The trail is the single
// source of truth for backtracking: undoing entries in reverse order
// restores any earlier solver state exactly.
type trailEntry struct {
	kind   trailKind
	b      BoolVar
	oldSet *intervals.Set
	oldEq  *IneqAtom
}

func (s *Solver) saveAssignTrail(b BoolVar) {
	s.trail = append(s.trail, trailEntry{kind: trailBVarAssignment, b: b})
}

func (s *Solver) saveInfeasibleTrail(old *intervals.Set) {
	s.trail = append(s.trail, trailEntry{kind: trailInfeasibleUpdt, oldSet: old})
}

func (s *Solver) saveUpdtEqTrail(old *IneqAtom) {
	s.trail = append(s.trail, trailEntry{kind: trailUpdtEq, oldEq: old})
}

func (s *Solver) saveNewStageTrail() {
	s.trail = append(s.trail, trailEntry{kind: trailNewStage})
}

func (s *Solver) saveNewLevelTrail() {
	s.trail = append(s.trail, trailEntry{kind: trailNewLevel})
}

func (s *Solver) unassignBoolVar(b BoolVar) {
	s.bvalues[b] = LUndef
	s.levels[b] = 0
	s.justs[b] = justification{}
	if s.atoms[b] == nil && (s.bk == NullBoolVar || b < s.bk) {
		s.bk = b
	}
}

func (s *Solver) undoInfeasibleUpdt(old *intervals.Set) {
	if s.xk >= 0 {
		s.infeasible[s.xk] = old
	}
}

func (s *Solver) undoNewStage() {
	if s.xk == 0 {
		s.xk = -1
	} else if s.xk > 0 {
		s.xk--
		s.assignment[s.xk] = nil
	}
}

func (s *Solver) undoNewLevel() {
	s.scopeLvl--
}

func (s *Solver) undoUpdtEq(old *IneqAtom) {
	if s.xk >= 0 {
		s.var2eq[s.xk] = old
	}
}

func (s *Solver) undoOne() {
	t := s.trail[len(s.trail)-1]
	s.trail = s.trail[:len(s.trail)-1]
	switch t.kind {
	case trailBVarAssignment:
		s.unassignBoolVar(t.b)
	case trailInfeasibleUpdt:
		s.undoInfeasibleUpdt(t.oldSet)
	case trailNewStage:
		s.undoNewStage()
	case trailNewLevel:
		s.undoNewLevel()
	case trailUpdtEq:
		s.undoUpdtEq(t.oldEq)
	}
}

func (s *Solver) undoUntilSize(old int) {
	for len(s.trail) > old {
		s.undoOne()
	}
}

// undoUntilStage unwinds the trail until the stage variable is target
// (-1 unwinds past the first stage).
func (s *Solver) undoUntilStage(target int32) {
	for s.xk != target && len(s.trail) > 0 {
		s.undoOne()
	}
}

func (s *Solver) undoUntilLevel(target uint32) {
	for s.scopeLvl > target && len(s.trail) > 0 {
		s.undoOne()
	}
}

func (s *Solver) undoUntilUnassigned(b BoolVar) {
	for s.bvalues[b] != LUndef && len(s.trail) > 0 {
		s.undoOne()
	}
}

func (s *Solver) undoUntilEmpty() {
	for len(s.trail) > 0 {
		s.undoOne()
	}
}
