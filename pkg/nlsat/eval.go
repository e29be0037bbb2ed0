package nlsat

import (
	"math/big"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/algebraic"
	"github.com/nlarith/nlsat/pkg/poly"
)

// maxSignRefinements bounds the interval refinement loop used when a
// polynomial is evaluated at a point with several irrational coordinates.
// If the sign is still undecided after this many halvings the value is
// (almost certainly) an exact zero we cannot certify, and the evaluator
// gives up with ErrUnsupportedAlgebra.
const maxSignRefinements = 64

// substRationals replaces every variable whose current witness is
// rational by that value.
func (s *Solver) substRationals(p *poly.Poly) *poly.Poly {
	return s.pm.SubstRational(p, func(v poly.Var) (*big.Rat, bool) {
		if n := s.assignment[v]; n != nil && n.IsRational() {
			return n.Rat(), true
		}
		return nil, false
	})
}

// uniPoly converts a residual polynomial whose only variable is x into a
// univariate polynomial. All other variables must have been substituted.
func (s *Solver) uniPoly(res *poly.Poly, x poly.Var) algebraic.UniPoly {
	coeffs := s.pm.Univariate(res, x)
	u := make(algebraic.UniPoly, len(coeffs))
	for i, c := range coeffs {
		u[i] = s.pm.ConstVal(c)
	}
	return u.Norm()
}

// signOfResidual computes the sign of a polynomial whose remaining
// variables all carry irrational witnesses.
func (s *Solver) signOfResidual(res *poly.Poly) (int, error) {
	vars := s.pm.Vars(res)
	switch len(vars) {
	case 0:
		return s.pm.ConstVal(res).Sign(), nil
	case 1:
		x := vars[0]
		return algebraic.SignAtPoly(s.uniPoly(res, x), s.assignment[x]), nil
	default:
		return s.refineSign(res, nil, nil)
	}
}

// signOfPoly computes the sign of p under the current assignment. Every
// variable of p must be assigned.
func (s *Solver) signOfPoly(p *poly.Poly) (int, error) {
	return s.signOfResidual(s.substRationals(p))
}

// signOfPolyAt computes the sign of p with the current assignment
// extended by x = v.
func (s *Solver) signOfPolyAt(p *poly.Poly, x poly.Var, v *algebraic.Num) (int, error) {
	res := s.substRationals(p)
	if v.IsRational() {
		r := v.Rat()
		res = s.pm.SubstRational(res, func(w poly.Var) (*big.Rat, bool) {
			if w == x {
				return r, true
			}
			return nil, false
		})
		return s.signOfResidual(res)
	}
	extra := s.varsExcept(res, x)
	if len(extra) == 0 {
		if s.pm.Degree(res, x) == 0 {
			return s.pm.ConstVal(res).Sign(), nil
		}
		return algebraic.SignAtPoly(s.uniPoly(res, x), v), nil
	}
	return s.refineSign(res, &x, v)
}

func (s *Solver) varsExcept(p *poly.Poly, x poly.Var) []poly.Var {
	var out []poly.Var
	for _, v := range s.pm.Vars(p) {
		if v != x {
			out = append(out, v)
		}
	}
	return out
}

// refineSign brackets p over the isolating intervals of the irrational
// witnesses and narrows them until the bracket excludes zero. extraVar
// (optional) is evaluated at extraVal instead of the assignment.
func (s *Solver) refineSign(p *poly.Poly, extraVar *poly.Var, extraVal *algebraic.Num) (int, error) {
	width := big.NewRat(1, 2)
	for i := 0; i < maxSignRefinements; i++ {
		lohi := func(v poly.Var) (*big.Rat, *big.Rat) {
			n := s.assignment[v]
			if extraVar != nil && v == *extraVar {
				n = extraVal
			}
			return n.Approx(width)
		}
		lo, hi := s.pm.EvalBounds(p, lohi)
		if lo.Sign() > 0 {
			return 1, nil
		}
		if hi.Sign() < 0 {
			return -1, nil
		}
		width.Quo(width, big.NewRat(16, 1))
	}
	return 0, ErrUnsupportedAlgebra
}

// ineqHolds reports whether an inequality kind is satisfied by the given
// product sign.
func ineqHolds(k AtomKind, sign int) bool {
	switch k {
	case AtomEQ:
		return sign == 0
	case AtomLT:
		return sign < 0
	default:
		return sign > 0
	}
}

// rootHolds reports whether a root kind is satisfied given the comparison
// of the variable value with the root.
func rootHolds(k AtomKind, cmp int) bool {
	switch k {
	case AtomRootEQ:
		return cmp == 0
	case AtomRootLT:
		return cmp < 0
	case AtomRootGT:
		return cmp > 0
	case AtomRootLE:
		return cmp <= 0
	default:
		return cmp >= 0
	}
}

// evalAtom evaluates an atom under the current assignment; neg applies
// the literal sign. The maximal variable of the atom must be assigned.
func (s *Solver) evalAtom(a Atom, neg bool) (bool, error) {
	switch at := a.(type) {
	case *IneqAtom:
		sign := 1
		for i := 0; i < at.NumFactors(); i++ {
			sg, err := s.signOfPoly(at.Factor(i))
			if err != nil {
				return false, err
			}
			if sg == 0 {
				sign = 0
				break
			}
			if !at.IsEven(i) && sg < 0 {
				sign = -sign
			}
		}
		return ineqHolds(at.kind, sign) != neg, nil
	case *RootAtom:
		u, err := s.uniAtLower(at.p, at.x)
		if err != nil {
			return false, err
		}
		roots := algebraic.IsolateRoots(u)
		if at.index > len(roots) {
			// fewer roots than the index: the atom is false
			return neg, nil
		}
		c := s.assignment[at.x].Cmp(roots[at.index-1])
		return rootHolds(at.kind, c) != neg, nil
	}
	return false, nil
}

// uniAtLower substitutes the witnesses of all variables of p below x and
// requires the result to be univariate in x; irrational lower witnesses
// under a root atom are not supported.
func (s *Solver) uniAtLower(p *poly.Poly, x poly.Var) (algebraic.UniPoly, error) {
	res := s.substRationals(p)
	if len(s.varsExcept(res, x)) > 0 {
		return nil, ErrUnsupportedAlgebra
	}
	return s.uniPoly(res, x), nil
}

// productSignAt computes the sign of an inequality atom's product at
// x = v under the current lower-stage assignment.
func (s *Solver) productSignAt(a *IneqAtom, x poly.Var, v *algebraic.Num) (int, error) {
	sign := 1
	for i := 0; i < a.NumFactors(); i++ {
		sg, err := s.signOfPolyAt(a.Factor(i), x, v)
		if err != nil {
			return 0, err
		}
		if sg == 0 {
			return 0, nil
		}
		if !a.IsEven(i) && sg < 0 {
			sign = -sign
		}
	}
	return sign, nil
}

// infeasibleIntervals returns the set of stage-variable values for which
// the literal (a, neg) evaluates to false, with the literal itself as the
// justification of every interval.
func (s *Solver) infeasibleIntervals(a Atom, neg bool) (*intervals.Set, error) {
	switch at := a.(type) {
	case *IneqAtom:
		return s.infeasibleIneq(at, neg)
	case *RootAtom:
		return s.infeasibleRoot(at, neg)
	}
	return intervals.Empty(), nil
}

func (s *Solver) infeasibleIneq(a *IneqAtom, neg bool) (*intervals.Set, error) {
	lit := intervals.Lit(MkLit(a.bvar, neg))
	x := a.max

	// Boundary candidates: all points where some factor can vanish.
	var boundary []*algebraic.Num
	identicallyZero := false
	for i := 0; i < a.NumFactors(); i++ {
		res := s.substRationals(a.Factor(i))
		if s.pm.IsZero(res) {
			identicallyZero = true
			break
		}
		if s.pm.Degree(res, x) == 0 {
			continue
		}
		extra := s.varsExcept(res, x)
		switch len(extra) {
		case 0:
			boundary = append(boundary, algebraic.IsolateRoots(s.uniPoly(res, x))...)
		case 1:
			cands, err := s.bivariateCandidates(res, extra[0], x)
			if err != nil {
				return nil, err
			}
			boundary = append(boundary, cands...)
		default:
			return nil, ErrUnsupportedAlgebra
		}
	}
	if identicallyZero {
		if ineqHolds(a.kind, 0) != neg {
			return intervals.Empty(), nil
		}
		return intervals.Full([]intervals.Lit{lit}), nil
	}
	boundary = sortDedupNums(boundary)

	// Product signs on the open regions between boundary points; exact,
	// since the samples are rational.
	n := len(boundary)
	regionSigns := make([]int, n+1)
	for i := 0; i <= n; i++ {
		sample := sampleBetween(boundary, i)
		sg, err := s.productSignAt(a, x, sample)
		if err != nil {
			return nil, err
		}
		regionSigns[i] = sg
	}
	// Signs at the boundary points. A sign change between neighbouring
	// regions certifies a zero without any further computation.
	pointSigns := make([]int, n)
	for i, b := range boundary {
		if regionSigns[i] != regionSigns[i+1] {
			pointSigns[i] = 0
			continue
		}
		sg, err := s.productSignAt(a, x, b)
		if err != nil {
			return nil, err
		}
		pointSigns[i] = sg
	}

	// Assemble the infeasible pieces.
	var ivls []intervals.Interval
	falseAt := func(sign int) bool { return ineqHolds(a.kind, sign) == neg }
	for i := 0; i <= n; i++ {
		if falseAt(regionSigns[i]) {
			iv := intervals.Interval{LoOpen: true, HiOpen: true, Lits: []intervals.Lit{lit}}
			if i > 0 {
				iv.Lo = boundary[i-1]
			}
			if i < n {
				iv.Hi = boundary[i]
			}
			ivls = append(ivls, iv)
		}
		if i < n && falseAt(pointSigns[i]) {
			ivls = append(ivls, intervals.Interval{Lo: boundary[i], Hi: boundary[i], Lits: []intervals.Lit{lit}})
		}
	}
	return intervals.FromIntervals(ivls...), nil
}

// bivariateCandidates returns a superset of the roots in x of res under
// y = (current irrational witness of y), obtained by eliminating y with a
// resultant against the witness's defining polynomial.
func (s *Solver) bivariateCandidates(res *poly.Poly, y, x poly.Var) ([]*algebraic.Num, error) {
	w := s.assignment[y]
	if w == nil || w.IsRational() {
		return nil, ErrUnsupportedAlgebra
	}
	d := w.DefiningPoly()
	da := make([]algebraic.UniPoly, len(d))
	for i, c := range d {
		if c.Sign() != 0 {
			da[i] = algebraic.UniPoly{new(big.Rat).Set(c)}
		}
	}
	coeffs := s.pm.Univariate(res, y)
	ba := make([]algebraic.UniPoly, len(coeffs))
	for i, c := range coeffs {
		if len(s.varsExcept(c, x)) > 0 {
			return nil, ErrUnsupportedAlgebra
		}
		ba[i] = s.uniPoly(c, x)
	}
	r := algebraic.Resultant(da, ba)
	if r.IsZero() {
		return nil, ErrUnsupportedAlgebra
	}
	return algebraic.IsolateRoots(r), nil
}

func (s *Solver) infeasibleRoot(a *RootAtom, neg bool) (*intervals.Set, error) {
	lit := intervals.Lit(MkLit(a.bvar, neg))
	u, err := s.uniAtLower(a.p, a.x)
	if err != nil {
		return nil, err
	}
	roots := algebraic.IsolateRoots(u)
	if a.index > len(roots) {
		// The atom is false everywhere.
		if neg {
			return intervals.Empty(), nil
		}
		return intervals.Full([]intervals.Lit{lit}), nil
	}
	r := roots[a.index-1]
	ls := []intervals.Lit{lit}
	below := intervals.Interval{Hi: r, HiOpen: true, Lits: ls}       // (-oo, r)
	belowEq := intervals.Interval{Hi: r, Lits: ls}                   // (-oo, r]
	point := intervals.Interval{Lo: r, Hi: r, Lits: ls}              // {r}
	above := intervals.Interval{Lo: r, LoOpen: true, Lits: ls}       // (r, +oo)
	aboveEq := intervals.Interval{Lo: r, Lits: ls}                   // [r, +oo)

	// Infeasible region: where the literal is false.
	var ivls []intervals.Interval
	switch a.kind {
	case AtomRootEQ:
		if neg {
			ivls = []intervals.Interval{point}
		} else {
			ivls = []intervals.Interval{below, above}
		}
	case AtomRootLT:
		if neg {
			ivls = []intervals.Interval{below}
		} else {
			ivls = []intervals.Interval{aboveEq}
		}
	case AtomRootGT:
		if neg {
			ivls = []intervals.Interval{above}
		} else {
			ivls = []intervals.Interval{belowEq}
		}
	case AtomRootLE:
		if neg {
			ivls = []intervals.Interval{belowEq}
		} else {
			ivls = []intervals.Interval{above}
		}
	default: // AtomRootGE
		if neg {
			ivls = []intervals.Interval{aboveEq}
		} else {
			ivls = []intervals.Interval{below}
		}
	}
	return intervals.FromIntervals(ivls...), nil
}

func sortDedupNums(ns []*algebraic.Num) []*algebraic.Num {
	if len(ns) <= 1 {
		return ns
	}
	// Insertion sort with exact comparisons; boundary lists are short.
	for i := 1; i < len(ns); i++ {
		for j := i; j > 0 && ns[j].Cmp(ns[j-1]) < 0; j-- {
			ns[j], ns[j-1] = ns[j-1], ns[j]
		}
	}
	out := ns[:1]
	for _, n := range ns[1:] {
		if n.Cmp(out[len(out)-1]) != 0 {
			out = append(out, n)
		}
	}
	return out
}

// sampleBetween returns a rational point inside region i of the partition
// induced by the sorted boundary points.
func sampleBetween(boundary []*algebraic.Num, i int) *algebraic.Num {
	n := len(boundary)
	switch {
	case n == 0:
		return algebraic.FromInt64(0)
	case i == 0:
		f := boundary[0].Floor()
		f.Sub(f, big.NewInt(1))
		return algebraic.FromRat(new(big.Rat).SetInt(f))
	case i == n:
		f := boundary[n-1].Floor()
		f.Add(f, big.NewInt(1))
		return algebraic.FromRat(new(big.Rat).SetInt(f))
	default:
		return algebraic.FromRat(algebraic.RatBetween(boundary[i-1], boundary[i]))
	}
}
