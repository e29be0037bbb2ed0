// Package algebraic implements the algebraic number manager used by the
// nlsat solver. Numbers are either exact rationals or real roots of
// rational univariate polynomials, represented by a square-free defining
// polynomial together with an isolating interval that can be refined on
// demand. All comparisons and sign computations are exact.
package algebraic

import (
	"math/big"
)

// UniPoly is a dense univariate polynomial over the rationals, coefficients
// in ascending degree order with a non-zero leading coefficient (the zero
// polynomial is the empty slice).
type UniPoly []*big.Rat

func trim(u UniPoly) UniPoly {
	for len(u) > 0 && u[len(u)-1].Sign() == 0 {
		u = u[:len(u)-1]
	}
	return u
}

// Norm drops leading zero coefficients; callers that assemble a UniPoly
// coefficient by coefficient must normalize it before use.
func (u UniPoly) Norm() UniPoly { return trim(u) }

// Deg returns the degree of u, or -1 for the zero polynomial.
func (u UniPoly) Deg() int { return len(u) - 1 }

func (u UniPoly) IsZero() bool { return len(u) == 0 }

// UniFromInt64 builds a polynomial from int64 coefficients in ascending
// degree order.
func UniFromInt64(coeffs ...int64) UniPoly {
	u := make(UniPoly, len(coeffs))
	for i, c := range coeffs {
		u[i] = new(big.Rat).SetInt64(c)
	}
	return trim(u)
}

func (u UniPoly) clone() UniPoly {
	v := make(UniPoly, len(u))
	for i, c := range u {
		v[i] = new(big.Rat).Set(c)
	}
	return v
}

// Add returns u + v.
func (u UniPoly) Add(v UniPoly) UniPoly {
	n := len(u)
	if len(v) > n {
		n = len(v)
	}
	out := make(UniPoly, n)
	for i := range out {
		out[i] = new(big.Rat)
		if i < len(u) {
			out[i].Add(out[i], u[i])
		}
		if i < len(v) {
			out[i].Add(out[i], v[i])
		}
	}
	return trim(out)
}

// Sub returns u - v.
func (u UniPoly) Sub(v UniPoly) UniPoly {
	return u.Add(v.Neg())
}

// Neg returns -u.
func (u UniPoly) Neg() UniPoly {
	out := make(UniPoly, len(u))
	for i, c := range u {
		out[i] = new(big.Rat).Neg(c)
	}
	return out
}

// Mul returns u * v.
func (u UniPoly) Mul(v UniPoly) UniPoly {
	if u.IsZero() || v.IsZero() {
		return nil
	}
	out := make(UniPoly, len(u)+len(v)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	for i, a := range u {
		for j, b := range v {
			out[i+j].Add(out[i+j], new(big.Rat).Mul(a, b))
		}
	}
	return trim(out)
}

// Scale returns c * u.
func (u UniPoly) Scale(c *big.Rat) UniPoly {
	if c.Sign() == 0 {
		return nil
	}
	out := make(UniPoly, len(u))
	for i, a := range u {
		out[i] = new(big.Rat).Mul(a, c)
	}
	return out
}

// Derivative returns du/dx.
func (u UniPoly) Derivative() UniPoly {
	if len(u) <= 1 {
		return nil
	}
	out := make(UniPoly, len(u)-1)
	for i := 1; i < len(u); i++ {
		out[i-1] = new(big.Rat).Mul(u[i], new(big.Rat).SetInt64(int64(i)))
	}
	return trim(out)
}

// Eval evaluates u at the rational point r (Horner).
func (u UniPoly) Eval(r *big.Rat) *big.Rat {
	v := new(big.Rat)
	for i := len(u) - 1; i >= 0; i-- {
		v.Mul(v, r)
		v.Add(v, u[i])
	}
	return v
}

// SignAt returns the sign of u at the rational point r.
func (u UniPoly) SignAt(r *big.Rat) int { return u.Eval(r).Sign() }

// DivMod returns quotient and remainder of u / v over the rationals.
func (u UniPoly) DivMod(v UniPoly) (q, r UniPoly) {
	if v.IsZero() {
		panic("algebraic: division by zero polynomial")
	}
	r = u.clone()
	if u.Deg() < v.Deg() {
		return nil, r
	}
	q = make(UniPoly, u.Deg()-v.Deg()+1)
	for i := range q {
		q[i] = new(big.Rat)
	}
	lead := v[len(v)-1]
	for r.Deg() >= v.Deg() {
		d := r.Deg() - v.Deg()
		c := new(big.Rat).Quo(r[len(r)-1], lead)
		q[d].Set(c)
		for i, vc := range v {
			r[d+i].Sub(r[d+i], new(big.Rat).Mul(c, vc))
		}
		r = trim(r)
	}
	return trim(q), r
}

// GCD returns the monic greatest common divisor of u and v.
func (u UniPoly) GCD(v UniPoly) UniPoly {
	a, b := u.clone(), v.clone()
	for !b.IsZero() {
		_, r := a.DivMod(b)
		a, b = b, r
	}
	if a.IsZero() {
		return nil
	}
	return a.monic()
}

func (u UniPoly) monic() UniPoly {
	if u.IsZero() {
		return nil
	}
	inv := new(big.Rat).Inv(u[len(u)-1])
	return u.Scale(inv)
}

// SquareFree returns the square-free part u / gcd(u, u').
func (u UniPoly) SquareFree() UniPoly {
	if u.Deg() <= 1 {
		return u
	}
	g := u.GCD(u.Derivative())
	if g.Deg() <= 0 {
		return u
	}
	q, _ := u.DivMod(g)
	return q
}

// sturmChain builds the Sturm sequence of u.
func sturmChain(u UniPoly) []UniPoly {
	chain := []UniPoly{u, u.Derivative()}
	for {
		last := chain[len(chain)-1]
		if last.IsZero() {
			return chain[:len(chain)-1]
		}
		_, r := chain[len(chain)-2].DivMod(last)
		if r.IsZero() {
			return chain
		}
		chain = append(chain, r.Neg())
	}
}

func signVariationsAt(chain []UniPoly, r *big.Rat) int {
	vars, prev := 0, 0
	for _, p := range chain {
		s := p.SignAt(r)
		if s == 0 {
			continue
		}
		if prev != 0 && s != prev {
			vars++
		}
		prev = s
	}
	return vars
}

// countRootsHalfOpen counts distinct real roots of the (square-free) chain
// head in the half-open interval (lo, hi].
func countRootsHalfOpen(chain []UniPoly, lo, hi *big.Rat) int {
	return signVariationsAt(chain, lo) - signVariationsAt(chain, hi)
}

// RootBound returns B such that all real roots of u lie in (-B, B)
// (Cauchy bound).
func (u UniPoly) RootBound() *big.Rat {
	if u.Deg() < 1 {
		return big.NewRat(1, 1)
	}
	lead := new(big.Rat).Abs(u[len(u)-1])
	max := new(big.Rat)
	for _, c := range u[:len(u)-1] {
		a := new(big.Rat).Abs(c)
		if a.Cmp(max) > 0 {
			max.Set(a)
		}
	}
	b := new(big.Rat).Quo(max, lead)
	return b.Add(b, big.NewRat(2, 1))
}
