package nlsat

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/poly"
)

// checkpoint propagates cancellation of the context passed to Check.
func (s *Solver) checkpoint() error {
	if s.ctx != nil && s.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrCanceled, context.Cause(s.ctx))
	}
	return nil
}

// processBooleanClause handles a clause of pure Boolean literals: it
// propagates a unit clause, decides the first undefined literal
// otherwise. Returns false when every literal is false.
func (s *Solver) processBooleanClause(c *clause) (bool, error) {
	numUndef := 0
	firstUndef := -1
	for i, l := range c.lits {
		v, err := s.value(l)
		if err != nil {
			return false, err
		}
		if v == LFalse {
			continue
		}
		numUndef++
		if firstUndef < 0 {
			firstUndef = i
		}
	}
	if numUndef == 0 {
		return false, nil
	}
	if numUndef == 1 {
		s.setLiteralToTrue(c.lits[firstUndef], justification{kind: jstClause, cls: c})
	} else {
		s.decideLiteral(c.lits[firstUndef])
	}
	return true, nil
}

// processArithClause tries to satisfy a clause whose maximal variable is
// the stage variable. Literals whose infeasible region covers or is
// covered by the accumulated region are propagated; otherwise the first
// open literal is decided and its infeasible region recorded. When
// satisfyLearned is false, lemmas may be left unsatisfied depending on
// the laziness level. Returns false when the clause cannot be satisfied.
func (s *Solver) processArithClause(c *clause, satisfyLearned bool) (bool, error) {
	if !satisfyLearned && s.lazy >= 2 && c.learned {
		return true, nil
	}
	numUndef := 0
	firstUndef := -1
	var firstUndefSet *intervals.Set
	xkSet := s.infeasible[s.xk]
	for i, l := range c.lits {
		if err := s.checkpoint(); err != nil {
			return false, err
		}
		v, err := s.value(l)
		if err != nil {
			return false, err
		}
		if v == LFalse {
			continue
		}
		if v == LTrue {
			// Tautological clause.
			return true, nil
		}
		a := s.atoms[l.Var()]
		currSet, err := s.infeasibleIntervals(a, l.Sign())
		if err != nil {
			return false, err
		}
		if currSet.IsEmpty() {
			s.rPropagate(l, nil, true)
			return true, nil
		}
		if currSet.IsFull() {
			s.rPropagate(l.Neg(), nil, true)
			continue
		}
		if currSet.Subset(xkSet) {
			s.rPropagate(l, xkSet, true)
			return true, nil
		}
		if union := currSet.Union(xkSet); union.IsFull() {
			s.rPropagate(l.Neg(), union, false)
			continue
		}
		numUndef++
		if firstUndef < 0 {
			firstUndef = i
			firstUndefSet = currSet
		}
	}
	if numUndef == 0 {
		return false, nil
	}
	switch {
	case numUndef == 1:
		s.setLiteralToTrue(c.lits[firstUndef], justification{kind: jstClause, cls: c})
		s.updtInfeasible(firstUndefSet)
	case satisfyLearned || !c.learned || s.lazy == 0:
		s.decideLiteral(c.lits[firstUndef])
		s.updtInfeasible(firstUndefSet)
	default:
		// Lemma left open; it is revisited if it joins a conflict.
	}
	return true, nil
}

func (s *Solver) processClause(c *clause, satisfyLearned bool) (bool, error) {
	sat, err := s.isSatisfied(c)
	if err != nil || sat {
		return sat, err
	}
	if s.xk < 0 {
		return s.processBooleanClause(c)
	}
	return s.processArithClause(c, satisfyLearned)
}

// processClauses tries to satisfy every clause of the watch list,
// returning the first violated clause.
func (s *Solver) processClauses(cs []*clause) (*clause, error) {
	for _, c := range cs {
		ok, err := s.processClause(c, false)
		if err != nil {
			return nil, err
		}
		if !ok {
			return c, nil
		}
	}
	return nil, nil
}

// peekNextBoolVar advances bk to the first unassigned pure Boolean
// variable, NullBoolVar when none remains.
func (s *Solver) peekNextBoolVar() {
	for int(s.bk) < len(s.atoms) {
		b := s.bk
		if !s.dead[b] && s.atoms[b] == nil && s.bvalues[b] == LUndef {
			return
		}
		s.bk++
	}
	s.bk = NullBoolVar
}

// selectWitness assigns the stage variable a value outside its
// infeasible region.
func (s *Solver) selectWitness() {
	var rnd = s.rnd
	if !s.randomizeWitness {
		rnd = nil
	}
	w, ok := s.infeasible[s.xk].PickInComplement(s.isInt[s.xk], rnd)
	if !ok {
		panic("nlsat: no feasible value for stage variable")
	}
	if !w.IsRational() {
		s.stats.IrrationalWitnesses++
	}
	s.tracer.Witness(int(s.xk), w.String())
	s.assignment[s.xk] = w
}

func (s *Solver) foundModel() bool {
	return s.bk == NullBoolVar && int(s.xk) >= s.NumVars()
}

// search assigns Boolean variables first, then one arithmetic variable
// per stage, resolving conflicts as they appear. It returns Sat when
// every variable got a value, Unsat when the empty lemma was derived and
// Unknown when the conflict budget is exhausted.
func (s *Solver) search() (Result, error) {
	s.bk = 0
	s.xk = -1
	for {
		if s.shouldReorder() {
			s.restartReorder()
		}
		if s.shouldGc() {
			s.undoToBase()
			s.gc()
		}
		if s.xk < 0 {
			s.peekNextBoolVar()
			if s.bk == NullBoolVar {
				s.newStage()
			}
		} else {
			s.newStage()
		}
		if s.foundModel() {
			return Sat, nil
		}
		for {
			if err := s.checkpoint(); err != nil {
				return Unknown, err
			}
			var conflict *clause
			var err error
			if s.xk < 0 {
				conflict, err = s.processClauses(s.bwatches[s.bk])
			} else {
				conflict, err = s.processClauses(s.watches[s.xk])
			}
			if err != nil {
				return Unknown, err
			}
			if conflict == nil {
				break
			}
			resolved, err := s.resolve(conflict)
			if err != nil {
				return Unknown, err
			}
			if !resolved {
				return Unsat, nil
			}
			if s.stats.Conflicts >= s.maxConflicts {
				return Unknown, nil
			}
			s.log()
		}
		if s.xk < 0 {
			if s.bvalues[s.bk] == LUndef {
				s.decideLiteral(MkLit(s.bk, true))
				s.bk++
			}
		} else {
			s.selectWitness()
		}
	}
}

// gc drops inactive learned clauses once they outnumber the input
// clauses four to one, keeping at most one deletion per input clause.
func (s *Solver) gc() {
	if len(s.learned) <= 4*len(s.clauses) {
		return
	}
	j := 0
	for i, c := range s.learned {
		if i-j < len(s.clauses) && c.size() > 1 && !c.active {
			s.detachClause(c)
			for _, l := range c.lits {
				s.decLitRef(l)
			}
			continue
		}
		c.active = false
		s.learned[j] = c
		j++
	}
	s.learned = s.learned[:j]
}

func (s *Solver) shouldGc() bool {
	return len(s.learned) > 10*len(s.clauses)
}

func (s *Solver) undoToBase() {
	s.initSearch()
	s.bk = 0
	s.xk = -1
}

func (s *Solver) shouldReorder() bool {
	return s.doReorder && s.stats.Conflicts > 0 && s.stats.Conflicts%s.restartThreshold == 0
}

// restartReorder restarts the search with a fresh variable order.
func (s *Solver) restartReorder() {
	s.undoToBase()
	s.stats.Restarts++
	s.stats.Conflicts++
	if s.reordered {
		s.restoreOrder()
	}
	s.applyReorder()
}

// searchCheck runs the search and, for integer variables that received a
// fractional value, learns branch and bound lemmas, restarting until a
// model respects all integrality constraints.
func (s *Solver) searchCheck() (Result, error) {
	s.stats.Conflicts = 0
	s.stats.Restarts = 0
	s.nextLog = 0
	for {
		r, err := s.search()
		if err != nil || r != Sat {
			return r, err
		}
		s.stats.Restarts++

		type branch struct {
			x  poly.Var
			lo *big.Int
		}
		var bounds []branch
		if s.branchAndBound {
			for x := 0; x < s.NumVars(); x++ {
				v := s.assignment[x]
				if s.isInt[x] && v != nil && !v.IsInt() {
					bounds = append(bounds, branch{poly.Var(x), v.Floor()})
				}
			}
		}
		if len(bounds) == 0 {
			return Sat, nil
		}

		s.initSearch()
		s.gc()
		if s.stats.Restarts%10 == 0 {
			if s.reordered {
				s.restoreOrder()
			}
			s.applyReorder()
		}
		s.logger.Debug("branch and bound",
			zap.Int("branches", len(bounds)),
			zap.Uint64("conflicts", s.stats.Conflicts),
			zap.Int("learned", len(s.learned)))
		for _, b := range bounds {
			lo := new(big.Rat).SetInt(b.lo)
			hi := new(big.Rat).SetInt(new(big.Int).Add(b.lo, big.NewInt(1)))
			// x <= lo or x >= lo+1
			pLo := s.pm.Sub(s.pm.VarPoly(b.x), s.pm.Const(lo))
			pHi := s.pm.Sub(s.pm.VarPoly(b.x), s.pm.Const(hi))
			lits := []Lit{
				s.MkIneqLiteral(AtomGT, []*poly.Poly{pLo}, []bool{false}).Neg(),
				s.MkIneqLiteral(AtomLT, []*poly.Poly{pHi}, []bool{false}).Neg(),
			}
			s.mkClause(lits, true, nil)
		}
	}
}

// initSearch rewinds the solver to its base state.
func (s *Solver) initSearch() {
	s.undoUntilEmpty()
	for s.scopeLvl > 0 {
		s.undoNewLevel()
	}
	s.xk = -1
	for i := range s.bvalues {
		s.bvalues[i] = LUndef
	}
	for i := range s.assignment {
		s.assignment[i] = nil
	}
}

// Check decides satisfiability of the asserted clauses. On Sat the model
// is available through Value and BoolValue. The context cancels long
// runs; ErrUnsupportedAlgebra is returned when a sign condition exceeds
// the decision procedures of the algebraic backend.
func (s *Solver) Check(ctx context.Context) (Result, error) {
	s.ctx = ctx
	defer func() { s.ctx = nil }()
	s.initSearch()
	s.applyReorder()
	s.sortWatchedClauses()
	r, err := s.searchCheck()
	if s.reordered {
		s.restoreOrder()
	}
	return r, err
}

// CheckAssuming decides satisfiability under the given assumption
// literals. On Unsat the subset of assumptions used in the refutation is
// available through UnsatCore. Clauses derived from the assumptions are
// removed afterwards, so the solver can be reused with different
// assumptions.
func (s *Solver) CheckAssuming(ctx context.Context, assumptions ...Lit) (Result, error) {
	r, err := s.checkAssuming(ctx, assumptions)
	if err == nil && r == Unsat && s.minimizeCores && len(s.core) > 1 {
		core := append([]Lit(nil), s.core...)
		for i := 0; i < len(core) && len(core) > 1; {
			trial := make([]Lit, 0, len(core)-1)
			trial = append(trial, core[:i]...)
			trial = append(trial, core[i+1:]...)
			tr, terr := s.checkAssuming(ctx, trial)
			if terr == nil && tr == Unsat {
				core = append(core[:0], s.core...)
			} else {
				i++
			}
		}
		s.core = core
	}
	return r, err
}

func (s *Solver) checkAssuming(ctx context.Context, assumptions []Lit) (Result, error) {
	for _, l := range assumptions {
		s.addAssumptionClause(l)
	}
	r, err := s.Check(ctx)
	s.core = nil
	if r == Unsat {
		for _, l := range s.lemmaAsms {
			for _, a := range assumptions {
				if l == a {
					s.core = append(s.core, l)
					break
				}
			}
		}
	}
	s.initSearch()
	s.clauses = s.collectAssumed(assumptions, s.clauses)
	s.learned = s.collectAssumed(assumptions, s.learned)
	for _, c := range s.valids {
		for _, l := range c.lits {
			s.decLitRef(l)
		}
	}
	s.valids = nil
	if s.checkLemmas {
		for _, c := range s.learned {
			s.checkLemma(c.lits, false)
		}
	}
	return r, err
}

// collectAssumed removes the clauses depending on any of the assumption
// literals.
func (s *Solver) collectAssumed(assumptions []Lit, list []*clause) []*clause {
	j := 0
	for _, c := range list {
		if clauseUsesAssumptions(c, assumptions) {
			s.delClause(c)
			continue
		}
		list[j] = c
		j++
	}
	return list[:j]
}

func clauseUsesAssumptions(c *clause, assumptions []Lit) bool {
	for _, a := range c.asms {
		for _, l := range assumptions {
			if a == l {
				return true
			}
		}
	}
	return false
}
