package poly

import "math/big"

// Add returns p + q.
func (m *Manager) Add(p, q *Poly) *Poly {
	ts := make([]term, 0, len(p.terms)+len(q.terms))
	ts = append(ts, p.terms...)
	ts = append(ts, q.terms...)
	return m.build(ts)
}

// Sub returns p - q.
func (m *Manager) Sub(p, q *Poly) *Poly {
	return m.Add(p, m.Neg(q))
}

// Neg returns -p.
func (m *Manager) Neg(p *Poly) *Poly {
	ts := make([]term, len(p.terms))
	for i, t := range p.terms {
		ts[i] = term{coef: new(big.Rat).Neg(t.coef), mono: t.mono}
	}
	return m.build(ts)
}

// MulConst returns c * p.
func (m *Manager) MulConst(c *big.Rat, p *Poly) *Poly {
	if c.Sign() == 0 {
		return m.zero
	}
	ts := make([]term, len(p.terms))
	for i, t := range p.terms {
		ts[i] = term{coef: new(big.Rat).Mul(c, t.coef), mono: t.mono}
	}
	return m.build(ts)
}

// Mul returns p * q.
func (m *Manager) Mul(p, q *Poly) *Poly {
	if len(p.terms) == 0 || len(q.terms) == 0 {
		return m.zero
	}
	ts := make([]term, 0, len(p.terms)*len(q.terms))
	for _, tp := range p.terms {
		for _, tq := range q.terms {
			ts = append(ts, term{
				coef: new(big.Rat).Mul(tp.coef, tq.coef),
				mono: monoMul(tp.mono, tq.mono),
			})
		}
	}
	return m.build(ts)
}

// Pow returns p^n for n >= 0.
func (m *Manager) Pow(p *Poly, n uint32) *Poly {
	r := m.Int(1)
	for i := uint32(0); i < n; i++ {
		r = m.Mul(r, p)
	}
	return r
}

// Derivative returns d(p)/dx.
func (m *Manager) Derivative(p *Poly, x Var) *Poly {
	var ts []term
	for _, t := range p.terms {
		for i, vp := range t.mono {
			if vp.Var != x {
				continue
			}
			c := new(big.Rat).Mul(t.coef, new(big.Rat).SetInt64(int64(vp.Pow)))
			mono := make([]VarPow, 0, len(t.mono))
			for j, w := range t.mono {
				if j == i {
					if w.Pow > 1 {
						mono = append(mono, VarPow{x, w.Pow - 1})
					}
					continue
				}
				mono = append(mono, w)
			}
			ts = append(ts, term{coef: c, mono: mono})
		}
	}
	if ts == nil {
		return m.zero
	}
	return m.build(ts)
}

func monoMul(a, b []VarPow) []VarPow {
	out := make([]VarPow, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Var == b[j].Var:
			out = append(out, VarPow{a[i].Var, a[i].Pow + b[j].Pow})
			i++
			j++
		case a[i].Var < b[j].Var:
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
