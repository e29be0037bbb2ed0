package poly

import "math/big"

// Eval evaluates p with every variable supplied by vals. The caller must
// provide a value for every variable of p.
func (m *Manager) Eval(p *Poly, vals func(Var) *big.Rat) *big.Rat {
	sum := new(big.Rat)
	for _, t := range p.terms {
		v := new(big.Rat).Set(t.coef)
		for _, vp := range t.mono {
			x := vals(vp.Var)
			for i := uint32(0); i < vp.Pow; i++ {
				v.Mul(v, x)
			}
		}
		sum.Add(sum, v)
	}
	return sum
}

// EvalBounds evaluates p over rational intervals: lohi supplies a lower
// and upper bound for each variable, and the result brackets every value
// p can take when each variable stays within its bounds.
func (m *Manager) EvalBounds(p *Poly, lohi func(Var) (*big.Rat, *big.Rat)) (*big.Rat, *big.Rat) {
	sumLo, sumHi := new(big.Rat), new(big.Rat)
	for _, t := range p.terms {
		lo, hi := new(big.Rat).Set(t.coef), new(big.Rat).Set(t.coef)
		for _, vp := range t.mono {
			vlo, vhi := lohi(vp.Var)
			plo, phi := powBounds(vlo, vhi, vp.Pow)
			lo, hi = mulBounds(lo, hi, plo, phi)
		}
		sumLo.Add(sumLo, lo)
		sumHi.Add(sumHi, hi)
	}
	return sumLo, sumHi
}

func mulBounds(alo, ahi, blo, bhi *big.Rat) (*big.Rat, *big.Rat) {
	c := []*big.Rat{
		new(big.Rat).Mul(alo, blo),
		new(big.Rat).Mul(alo, bhi),
		new(big.Rat).Mul(ahi, blo),
		new(big.Rat).Mul(ahi, bhi),
	}
	lo, hi := c[0], c[0]
	for _, v := range c[1:] {
		if v.Cmp(lo) < 0 {
			lo = v
		}
		if v.Cmp(hi) > 0 {
			hi = v
		}
	}
	return lo, hi
}

func powBounds(lo, hi *big.Rat, n uint32) (*big.Rat, *big.Rat) {
	rlo, rhi := big.NewRat(1, 1), big.NewRat(1, 1)
	for i := uint32(0); i < n; i++ {
		rlo, rhi = mulBounds(rlo, rhi, lo, hi)
	}
	return rlo, rhi
}

// SubstRational replaces every variable for which vals reports a value by
// that rational constant, returning the residual polynomial over the
// remaining variables.
func (m *Manager) SubstRational(p *Poly, vals func(Var) (*big.Rat, bool)) *Poly {
	ts := make([]term, 0, len(p.terms))
	for _, t := range p.terms {
		c := new(big.Rat).Set(t.coef)
		var mono []VarPow
		for _, vp := range t.mono {
			if v, ok := vals(vp.Var); ok {
				for i := uint32(0); i < vp.Pow; i++ {
					c.Mul(c, v)
				}
			} else {
				mono = append(mono, vp)
			}
		}
		ts = append(ts, term{coef: c, mono: mono})
	}
	return m.build(ts)
}

// Univariate decomposes p as a polynomial in x: it returns coefficients
// cs such that p = sum cs[i] * x^i, where every cs[i] does not mention x.
func (m *Manager) Univariate(p *Poly, x Var) []*Poly {
	deg := m.Degree(p, x)
	buckets := make([][]term, deg+1)
	for _, t := range p.terms {
		var pow uint32
		mono := make([]VarPow, 0, len(t.mono))
		for _, vp := range t.mono {
			if vp.Var == x {
				pow = vp.Pow
				continue
			}
			mono = append(mono, vp)
		}
		buckets[pow] = append(buckets[pow], term{coef: t.coef, mono: mono})
	}
	cs := make([]*Poly, deg+1)
	for i, b := range buckets {
		if b == nil {
			cs[i] = m.zero
		} else {
			cs[i] = m.build(b)
		}
	}
	return cs
}

// Rename applies a variable permutation: every occurrence of variable x is
// replaced by perm[x]. Used by the solver's reordering pass.
func (m *Manager) Rename(p *Poly, perm []Var) *Poly {
	ts := make([]term, len(p.terms))
	for i, t := range p.terms {
		mono := make([]VarPow, len(t.mono))
		for j, vp := range t.mono {
			mono[j] = VarPow{perm[vp.Var], vp.Pow}
		}
		sortMono(mono)
		ts[i] = term{coef: t.coef, mono: mono}
	}
	return m.build(ts)
}

func sortMono(mono []VarPow) {
	for i := 1; i < len(mono); i++ {
		for j := i; j > 0 && mono[j].Var < mono[j-1].Var; j-- {
			mono[j], mono[j-1] = mono[j-1], mono[j]
		}
	}
}
