package nlsat

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/nlarith/nlsat/pkg/poly"
)

// mkIneqAtomCore canonicalizes the factors and interns the atom: every
// factor is sign-normalized so its leading coefficient is positive (a
// flip of an odd-power factor mirrors the kind), single-factor atoms are
// scaled to primitive integer coefficients, and structurally equal atoms
// share one Boolean variable.
func (s *Solver) mkIneqAtomCore(k AtomKind, ps []*poly.Poly, even []bool, simplify bool) *IneqAtom {
	sign := 1
	max := poly.NullVar
	factors := make([]*poly.Poly, len(ps))
	for i, p := range ps {
		q, flipped := s.pm.FlipSignIfLeadNeg(p)
		if flipped && !even[i] {
			sign = -sign
		}
		if v := s.pm.MaxVar(q); v > max {
			max = v
		}
		if len(ps) == 1 && simplify {
			q = s.pm.Primitive(q)
		}
		factors[i] = q
	}
	if sign < 0 {
		k = k.flip()
	}
	a := &IneqAtom{kind: k, max: max, factors: factors, even: append([]bool(nil), even...)}
	if old, ok := s.ineqTable[a.key()]; ok {
		return old
	}
	a.bvar = s.newBoolVarCore()
	s.atoms[a.bvar] = a
	if s.ineqTable == nil {
		s.ineqTable = map[string]*IneqAtom{}
	}
	s.ineqTable[a.key()] = a
	return a
}

// MkIneqAtom interns the atom "prod ps[i]^{1 or 2} k 0" and returns its
// Boolean variable. k must be AtomEQ, AtomLT or AtomGT; even[i] records
// whether factor i occurs with even multiplicity.
func (s *Solver) MkIneqAtom(k AtomKind, ps []*poly.Poly, even []bool) BoolVar {
	return s.mkIneqAtomCore(k, ps, even, true).bvar
}

// MkIneqLiteral is MkIneqAtom plus constant folding: a constraint over
// constant polynomials collapses to LitTrue or LitFalse.
func (s *Solver) MkIneqLiteral(k AtomKind, ps []*poly.Poly, even []bool) Lit {
	cnst := big.NewRat(1, 1)
	isConst := true
	for i, p := range ps {
		if !s.pm.IsConst(p) {
			isConst = false
			continue
		}
		c := s.pm.ConstVal(p)
		if c.Sign() == 0 {
			cnst.SetInt64(0)
			isConst = true
			break
		}
		if even[i] && c.Sign() < 0 {
			c.Neg(c)
		}
		cnst.Mul(cnst, c)
	}
	if isConst {
		sg := cnst.Sign()
		if (sg > 0 && k == AtomGT) || (sg < 0 && k == AtomLT) || (sg == 0 && k == AtomEQ) {
			return LitTrue
		}
		return LitFalse
	}
	return MkLit(s.MkIneqAtom(k, ps, even), false)
}

// MkRootAtom interns the atom "x ~ root_index(p)", where p is viewed as a
// univariate polynomial in its maximal variable x. index counts real
// roots from one in ascending order.
func (s *Solver) MkRootAtom(k AtomKind, x poly.Var, index int, p *poly.Poly) BoolVar {
	if index < 1 {
		panic(fmt.Sprintf("nlsat: root index %d out of range", index))
	}
	q, _ := s.pm.FlipSignIfLeadNeg(p)
	a := &RootAtom{kind: k, x: x, index: index, p: q}
	if old, ok := s.rootTable[a.key()]; ok {
		return old.bvar
	}
	a.bvar = s.newBoolVarCore()
	s.atoms[a.bvar] = a
	if s.rootTable == nil {
		s.rootTable = map[string]*RootAtom{}
	}
	s.rootTable[a.key()] = a
	return a.bvar
}

func (s *Solver) incLitRef(l Lit) {
	switch a := s.atoms[l.Var()].(type) {
	case *IneqAtom:
		a.refs++
	case *RootAtom:
		a.refs++
	}
}

func (s *Solver) decLitRef(l Lit) {
	switch a := s.atoms[l.Var()].(type) {
	case *IneqAtom:
		a.refs--
		if a.refs == 0 {
			delete(s.ineqTable, a.key())
			s.killBoolVar(a.bvar)
		}
	case *RootAtom:
		a.refs--
		if a.refs == 0 {
			delete(s.rootTable, a.key())
			s.killBoolVar(a.bvar)
		}
	}
}

func (s *Solver) killBoolVar(b BoolVar) {
	s.atoms[b] = nil
	s.dead[b] = true
	s.bvalues[b] = LUndef
}

// mkClause interns literals, sorts them with the processing order
// comparator and attaches the clause to the watch list of its maximal
// variable.
func (s *Solver) mkClause(lits []Lit, learned bool, asms []Lit) *clause {
	if len(lits) == 0 {
		lits = []Lit{LitFalse}
	}
	s.cid++
	c := &clause{id: s.cid, lits: append([]Lit(nil), lits...), learned: learned, asms: asms}
	for _, l := range c.lits {
		s.incLitRef(l)
	}
	sort.SliceStable(c.lits, func(i, j int) bool { return s.litLess(c.lits[i], c.lits[j]) })
	if learned {
		if s.checkLemmas {
			s.checkLemma(c.lits, false)
		}
		s.learned = append(s.learned, c)
	} else {
		s.clauses = append(s.clauses, c)
	}
	s.attachClause(c)
	return c
}

// AddClause asserts the disjunction of lits.
func (s *Solver) AddClause(lits ...Lit) {
	s.mkClause(lits, false, nil)
}

// MkClause asserts the disjunction of lits tagged with assumption
// literals; asms may be nil. Clauses with assumptions participate in
// unsat core extraction and are removed by CheckAssuming afterwards.
func (s *Solver) MkClause(lits []Lit, asms []Lit) {
	sorted := append([]Lit(nil), asms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	s.mkClause(lits, false, sorted)
}

// addAssumptionClause asserts a unit clause tagged with its own literal
// as an assumption, so unsat cores can refer back to it.
func (s *Solver) addAssumptionClause(l Lit) {
	s.mkClause([]Lit{l}, false, []Lit{l})
}

// litLess orders literals for clause processing: Boolean literals first,
// then by maximal variable, then by degree, inequalities before
// equalities.
func (s *Solver) litLess(l1, l2 Lit) bool {
	a1 := s.atoms[l1.Var()]
	a2 := s.atoms[l2.Var()]
	if a1 == nil && a2 == nil {
		return l1 < l2
	}
	if a1 == nil {
		return true
	}
	if a2 == nil {
		return false
	}
	x1, x2 := a1.MaxVar(), a2.MaxVar()
	if x1 != x2 {
		return x1 < x2
	}
	d1, d2 := a1.maxDegree(s.pm), a2.maxDegree(s.pm)
	if d1 != d2 {
		return d1 < d2
	}
	e1 := isEqAtom(a1)
	e2 := isEqAtom(a2)
	if e1 != e2 {
		return !e1
	}
	return l1 < l2
}

func isEqAtom(a Atom) bool {
	ia, ok := a.(*IneqAtom)
	return ok && ia.IsEq()
}

func (s *Solver) attachClause(c *clause) {
	if x := s.maxArithVar(c); x >= 0 {
		s.watches[x] = append(s.watches[x], c)
	} else {
		b := s.maxBoolVar(c)
		s.bwatches[b] = append(s.bwatches[b], c)
	}
}

func (s *Solver) detachClause(c *clause) {
	var list *[]*clause
	if x := s.maxArithVar(c); x >= 0 {
		list = &s.watches[x]
	} else {
		list = &s.bwatches[s.maxBoolVar(c)]
	}
	for i, w := range *list {
		if w == c {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

func (s *Solver) delClause(c *clause) {
	s.detachClause(c)
	for _, l := range c.lits {
		s.decLitRef(l)
	}
}

func (s *Solver) delClauseFrom(c *clause, list []*clause) []*clause {
	for i, w := range list {
		if w == c {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	s.delClause(c)
	return list
}

// sortWatchedClauses orders every watch list so cheap clauses (low
// degree, short) are processed first.
func (s *Solver) sortWatchedClauses() {
	byCost := func(cs []*clause) {
		sort.SliceStable(cs, func(i, j int) bool {
			di := s.clauseDegree(cs[i])
			dj := s.clauseDegree(cs[j])
			if di != dj {
				return di < dj
			}
			return cs[i].size() < cs[j].size()
		})
	}
	for x := range s.watches {
		byCost(s.watches[x])
	}
	for b := range s.bwatches {
		byCost(s.bwatches[b])
	}
}

func (s *Solver) clauseDegree(c *clause) uint32 {
	var d uint32
	for _, l := range c.lits {
		if a := s.atoms[l.Var()]; a != nil {
			if ad := a.maxDegree(s.pm); ad > d {
				d = ad
			}
		}
	}
	return d
}
