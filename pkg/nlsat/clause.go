package nlsat

// clause is a disjunction of literals. Learned clauses are lemmas derived
// by conflict resolution; the active flag protects recently used lemmas
// from garbage collection. asms carries the assumption literals this
// clause (transitively) depends on, for unsat core extraction.
type clause struct {
	id      uint32
	lits    []Lit
	learned bool
	active  bool
	asms    []Lit
}

func (c *clause) size() int { return len(c.lits) }

// maxArithVar returns the greatest arithmetic variable mentioned by the
// clause, or poly.NullVar for a pure Boolean clause.
func (s *Solver) maxArithVarOfLits(lits []Lit) int32 {
	max := int32(-1)
	for _, l := range lits {
		if a := s.atoms[l.Var()]; a != nil {
			if v := int32(a.MaxVar()); v > max {
				max = v
			}
		}
	}
	return max
}

func (s *Solver) maxArithVar(c *clause) int32 { return s.maxArithVarOfLits(c.lits) }

// maxBoolVar returns the greatest Boolean variable of a pure Boolean
// clause.
func (s *Solver) maxBoolVar(c *clause) BoolVar {
	max := NullBoolVar
	for _, l := range c.lits {
		if l.Var() > max {
			max = l.Var()
		}
	}
	return max
}

// mergeAsms joins two sorted assumption sets.
func mergeAsms(a, b []Lit) []Lit {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]Lit, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		default:
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
