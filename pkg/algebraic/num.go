package algebraic

import (
	"fmt"
	"math/big"
)

// Num is an exact real algebraic number. A Num is either rational (rat
// non-nil) or the unique root of a square-free polynomial p inside the
// open isolating interval (lo, hi), with p(lo) != 0 and p(hi) != 0.
// Refinement shrinks the interval in place; the value never changes, so
// Nums may be shared freely.
type Num struct {
	rat *big.Rat
	p   UniPoly
	lo  *big.Rat
	hi  *big.Rat
}

// FromRat builds a rational Num.
func FromRat(r *big.Rat) *Num { return &Num{rat: new(big.Rat).Set(r)} }

// FromInt64 builds an integer Num.
func FromInt64(n int64) *Num { return &Num{rat: new(big.Rat).SetInt64(n)} }

// IsRational reports whether a is known to be rational. A root Num whose
// value happens to be rational may still report false until refinement
// lands on it.
func (a *Num) IsRational() bool { return a.rat != nil }

// Rat returns the rational value of a; only valid when IsRational.
func (a *Num) Rat() *big.Rat { return new(big.Rat).Set(a.rat) }

// DefiningPoly returns the square-free defining polynomial of a root Num,
// or nil for a rational one.
func (a *Num) DefiningPoly() UniPoly { return a.p }

// Interval returns the current isolating interval of a root Num.
func (a *Num) Interval() (lo, hi *big.Rat) {
	return new(big.Rat).Set(a.lo), new(big.Rat).Set(a.hi)
}

// Refine halves the isolating interval of a. If the midpoint is the root,
// a collapses to a rational. Rational Nums are left untouched.
func (a *Num) Refine() {
	if a.rat != nil {
		return
	}
	mid := new(big.Rat).Add(a.lo, a.hi)
	mid.Quo(mid, big.NewRat(2, 1))
	s := a.p.SignAt(mid)
	if s == 0 {
		a.rat = mid
		a.p, a.lo, a.hi = nil, nil, nil
		return
	}
	if s == a.p.SignAt(a.lo) {
		a.lo = mid
	} else {
		a.hi = mid
	}
}

// RefineToWidth refines a until its isolating interval is narrower than w.
func (a *Num) RefineToWidth(w *big.Rat) {
	for a.rat == nil {
		width := new(big.Rat).Sub(a.hi, a.lo)
		if width.Cmp(w) < 0 {
			return
		}
		a.Refine()
	}
}

// Approx returns rational bounds lo <= a <= hi with hi-lo < w.
func (a *Num) Approx(w *big.Rat) (lo, hi *big.Rat) {
	if a.rat != nil {
		return new(big.Rat).Set(a.rat), new(big.Rat).Set(a.rat)
	}
	a.RefineToWidth(w)
	if a.rat != nil {
		return new(big.Rat).Set(a.rat), new(big.Rat).Set(a.rat)
	}
	return new(big.Rat).Set(a.lo), new(big.Rat).Set(a.hi)
}

// Sign returns the sign of a.
func (a *Num) Sign() int {
	if a.rat != nil {
		return a.rat.Sign()
	}
	for {
		if a.lo.Sign() >= 0 {
			return 1
		}
		if a.hi.Sign() <= 0 {
			return -1
		}
		// Zero straddles the interval; since p(0) != 0 would let us
		// narrow past it, test directly.
		if a.p.SignAt(new(big.Rat)) == 0 {
			a.rat = new(big.Rat)
			a.p, a.lo, a.hi = nil, nil, nil
			return 0
		}
		a.Refine()
	}
}

// CmpRat compares a with the rational r.
func (a *Num) CmpRat(r *big.Rat) int {
	if a.rat != nil {
		return a.rat.Cmp(r)
	}
	for {
		if a.lo.Cmp(r) >= 0 {
			return 1
		}
		if a.hi.Cmp(r) <= 0 {
			return -1
		}
		if a.p.SignAt(r) == 0 {
			// r is the unique root in the interval.
			return 0
		}
		a.Refine()
		if a.rat != nil {
			return a.rat.Cmp(r)
		}
	}
}

// Cmp compares two algebraic numbers exactly.
func (a *Num) Cmp(b *Num) int {
	if b.rat != nil {
		return a.CmpRat(b.rat)
	}
	if a.rat != nil {
		return -b.CmpRat(a.rat)
	}
	// Both are roots. Decide equality via the gcd of the defining
	// polynomials: a == b iff the gcd has a root in the intersection of
	// both isolating intervals. The gcd divides both defining
	// polynomials, so it cannot vanish at any of the four endpoints.
	g := a.p.GCD(b.p)
	if g.Deg() >= 1 {
		lo := maxRat(a.lo, b.lo)
		hi := minRat(a.hi, b.hi)
		if lo.Cmp(hi) < 0 && countRootsHalfOpen(sturmChain(g), lo, hi) > 0 {
			return 0
		}
	}
	// Distinct values; refine until the intervals separate.
	for {
		if a.hi.Cmp(b.lo) <= 0 {
			return -1
		}
		if b.hi.Cmp(a.lo) <= 0 {
			return 1
		}
		a.Refine()
		b.Refine()
		if a.rat != nil {
			return -b.CmpRat(a.rat)
		}
		if b.rat != nil {
			return a.CmpRat(b.rat)
		}
	}
}

// SignAtPoly returns the exact sign of q evaluated at a.
func SignAtPoly(q UniPoly, a *Num) int {
	if q.IsZero() {
		return 0
	}
	if a.rat != nil {
		return q.SignAt(a.rat)
	}
	// q(a) == 0 iff gcd(q, a.p) vanishes at a. The gcd divides a.p, so
	// the interval endpoints are safe for Sturm counting.
	g := q.GCD(a.p)
	if g.Deg() >= 1 && countRootsHalfOpen(sturmChain(g), a.lo, a.hi) > 0 {
		return 0
	}
	// q(a) != 0: refine until q has no root inside the interval, then q
	// keeps a constant sign there.
	sf := q.SquareFree()
	chain := sturmChain(sf)
	for {
		if sf.SignAt(a.lo) != 0 && sf.SignAt(a.hi) != 0 &&
			countRootsHalfOpen(chain, a.lo, a.hi) == 0 {
			mid := new(big.Rat).Add(a.lo, a.hi)
			mid.Quo(mid, big.NewRat(2, 1))
			return q.SignAt(mid)
		}
		a.Refine()
		if a.rat != nil {
			return q.SignAt(a.rat)
		}
	}
}

// Floor returns the greatest integer <= a.
func (a *Num) Floor() *big.Int {
	if a.rat != nil {
		return new(big.Int).Div(a.rat.Num(), a.rat.Denom())
	}
	for {
		fl := ratFloor(a.lo)
		// Smallest integer strictly above lo. If it is not inside the
		// interval, the whole interval shares lo's floor.
		n := new(big.Rat).SetInt(new(big.Int).Add(fl, big.NewInt(1)))
		if n.Cmp(a.hi) >= 0 {
			return fl
		}
		// Split at the integer itself rather than the midpoint: the root
		// may sit exactly on n, and bisection midpoints never land on it.
		s := a.p.SignAt(n)
		if s == 0 {
			a.rat = n
			a.p, a.lo, a.hi = nil, nil, nil
			return new(big.Int).Add(fl, big.NewInt(1))
		}
		if s == a.p.SignAt(a.lo) {
			a.lo = n
		} else {
			a.hi = n
		}
	}
}

// IsInt reports whether a is an integer.
func (a *Num) IsInt() bool {
	if a.rat != nil {
		return a.rat.IsInt()
	}
	fl := a.Floor()
	return a.CmpRat(new(big.Rat).SetInt(fl)) == 0
}

func ratFloor(r *big.Rat) *big.Int {
	return new(big.Int).Div(r.Num(), r.Denom())
}

func maxRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

func minRat(a, b *big.Rat) *big.Rat {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders rationals exactly and roots as root(poly, (lo, hi)).
func (a *Num) String() string {
	if a.rat != nil {
		if a.rat.IsInt() {
			return a.rat.Num().String()
		}
		return a.rat.String()
	}
	return fmt.Sprintf("root(deg %d, (%s, %s))", a.p.Deg(), a.lo.RatString(), a.hi.RatString())
}

// RatBetween returns a rational strictly between a and b, where a < b.
func RatBetween(a, b *Num) *big.Rat {
	w := big.NewRat(1, 2)
	for {
		_, ha := a.Approx(w)
		lb, _ := b.Approx(w)
		if ha.Cmp(lb) < 0 {
			mid := new(big.Rat).Add(ha, lb)
			return mid.Quo(mid, big.NewRat(2, 1))
		}
		if a.IsRational() && b.IsRational() {
			mid := new(big.Rat).Add(a.Rat(), b.Rat())
			return mid.Quo(mid, big.NewRat(2, 1))
		}
		w.Quo(w, big.NewRat(4, 1))
	}
}

// IsolateRoots returns all distinct real roots of u in ascending order.
func IsolateRoots(u UniPoly) []*Num {
	sf := u.SquareFree()
	if sf.Deg() < 1 {
		return nil
	}
	if sf.Deg() == 1 {
		r := new(big.Rat).Quo(new(big.Rat).Neg(sf[0]), sf[1])
		return []*Num{FromRat(r)}
	}
	b := sf.RootBound()
	lo := new(big.Rat).Neg(b)
	hi := new(big.Rat).Set(b)
	chain := sturmChain(sf)
	var out []*Num
	var rec func(lo, hi *big.Rat)
	rec = func(lo, hi *big.Rat) {
		n := countRootsHalfOpen(chain, lo, hi)
		if n == 0 {
			return
		}
		if n == 1 {
			out = append(out, &Num{
				p:  sf,
				lo: new(big.Rat).Set(lo),
				hi: new(big.Rat).Set(hi),
			})
			return
		}
		mid := nonRootBetween(sf, lo, hi)
		rec(lo, mid)
		rec(mid, hi)
	}
	rec(lo, hi)
	return out
}

// nonRootBetween finds a point strictly between lo and hi that is not a
// root of u.
func nonRootBetween(u UniPoly, lo, hi *big.Rat) *big.Rat {
	mid := new(big.Rat).Add(lo, hi)
	mid.Quo(mid, big.NewRat(2, 1))
	for u.SignAt(mid) == 0 {
		mid = new(big.Rat).Add(mid, hi)
		mid.Quo(mid, big.NewRat(2, 1))
	}
	return mid
}
