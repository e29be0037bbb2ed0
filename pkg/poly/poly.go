// Package poly implements the polynomial manager used by the nlsat solver:
// sparse multivariate polynomials with exact rational coefficients, a
// hash-consing cache so that structurally equal polynomials share one
// object, and the handful of operations the search engine needs
// (arithmetic, derivatives, substitution, variable renaming).
package poly

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Var identifies an arithmetic variable. Variables are created by the
// Manager and numbered densely from zero.
type Var int32

// NullVar marks the absence of a variable, e.g. the maximal variable of a
// constant polynomial.
const NullVar Var = -1

// VarPow is a single variable raised to a positive power.
type VarPow struct {
	Var Var
	Pow uint32
}

// term is a coefficient times a monomial. The monomial is sorted by
// ascending variable and contains no zero powers.
type term struct {
	coef *big.Rat
	mono []VarPow
}

// Poly is an immutable sparse polynomial. Terms are kept in a canonical
// order (total degree descending, then lexicographic by variable), so two
// polynomials are equal iff their key strings are equal. Polynomials
// returned by Manager.Unique are shared: pointer equality implies
// structural equality for them.
type Poly struct {
	terms  []term
	maxVar Var
	key    string
}

// Manager creates variables and polynomials and owns the uniqueness cache.
type Manager struct {
	numVars int
	cache   map[string]*Poly
	zero    *Poly
}

func NewManager() *Manager {
	m := &Manager{cache: map[string]*Poly{}}
	m.zero = m.Unique(&Poly{})
	return m
}

// MkVar allocates a fresh variable.
func (m *Manager) MkVar() Var {
	x := Var(m.numVars)
	m.numVars++
	return x
}

func (m *Manager) NumVars() int { return m.numVars }

// Zero returns the zero polynomial.
func (m *Manager) Zero() *Poly { return m.zero }

// Const returns the constant polynomial c.
func (m *Manager) Const(c *big.Rat) *Poly {
	if c.Sign() == 0 {
		return m.zero
	}
	return m.build([]term{{coef: new(big.Rat).Set(c), mono: nil}})
}

// Int returns the constant polynomial n.
func (m *Manager) Int(n int64) *Poly {
	return m.Const(new(big.Rat).SetInt64(n))
}

// VarPoly returns the polynomial consisting of the single variable x.
func (m *Manager) VarPoly(x Var) *Poly {
	return m.build([]term{{coef: big.NewRat(1, 1), mono: []VarPow{{x, 1}}}})
}

// Linear returns sum(coeffs[i]*vars[i]) + k.
func (m *Manager) Linear(coeffs []*big.Rat, vars []Var, k *big.Rat) *Poly {
	p := m.Const(k)
	for i, x := range vars {
		p = m.Add(p, m.MulConst(coeffs[i], m.VarPoly(x)))
	}
	return p
}

// Unique interns p in the manager cache: structurally equal polynomials
// map to the same pointer. Atoms store only interned polynomials.
func (m *Manager) Unique(p *Poly) *Poly {
	if q, ok := m.cache[p.key]; ok {
		return q
	}
	m.cache[p.key] = p
	return p
}

// ResetCache drops the uniqueness cache. Called during variable
// reordering, after which all live polynomials are re-interned.
func (m *Manager) ResetCache() {
	m.cache = map[string]*Poly{}
	m.cache[m.zero.key] = m.zero
}

// build normalizes terms (sorts, merges, drops zeros) and computes the
// cached key and maximal variable.
func (m *Manager) build(ts []term) *Poly {
	sort.Slice(ts, func(i, j int) bool { return monoLess(ts[j].mono, ts[i].mono) })
	out := ts[:0]
	for _, t := range ts {
		if len(out) > 0 && monoEqual(out[len(out)-1].mono, t.mono) {
			out[len(out)-1].coef.Add(out[len(out)-1].coef, t.coef)
			continue
		}
		out = append(out, term{coef: new(big.Rat).Set(t.coef), mono: t.mono})
	}
	ts = out[:0]
	for _, t := range out {
		if t.coef.Sign() != 0 {
			ts = append(ts, t)
		}
	}
	p := &Poly{terms: ts, maxVar: NullVar}
	for _, t := range ts {
		for _, vp := range t.mono {
			if vp.Var > p.maxVar {
				p.maxVar = vp.Var
			}
		}
	}
	p.key = p.computeKey()
	return m.Unique(p)
}

func (p *Poly) computeKey() string {
	var sb strings.Builder
	for _, t := range p.terms {
		sb.WriteString(t.coef.RatString())
		for _, vp := range t.mono {
			fmt.Fprintf(&sb, "*x%d^%d", vp.Var, vp.Pow)
		}
		sb.WriteByte('|')
	}
	return sb.String()
}

// monoLess orders monomials by total degree, then lexicographically by
// variable and power. The order is total and deterministic; nothing in the
// solver depends on which total order is used.
func monoLess(a, b []VarPow) bool {
	da, db := uint32(0), uint32(0)
	for _, vp := range a {
		da += vp.Pow
	}
	for _, vp := range b {
		db += vp.Pow
	}
	if da != db {
		return da < db
	}
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i].Var != b[i].Var {
			return a[i].Var > b[i].Var
		}
		if a[i].Pow != b[i].Pow {
			return a[i].Pow < b[i].Pow
		}
	}
	return len(a) < len(b)
}

func monoEqual(a, b []VarPow) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// MaxVar returns the greatest variable occurring in p, or NullVar if p is
// constant.
func (m *Manager) MaxVar(p *Poly) Var { return p.maxVar }

// IsConst reports whether p has no variables.
func (m *Manager) IsConst(p *Poly) bool { return p.maxVar == NullVar }

// IsZero reports whether p is the zero polynomial.
func (m *Manager) IsZero(p *Poly) bool { return len(p.terms) == 0 }

// ConstVal returns the value of a constant polynomial.
func (m *Manager) ConstVal(p *Poly) *big.Rat {
	if len(p.terms) == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p.terms[0].coef)
}

// Degree returns the degree of p in x.
func (m *Manager) Degree(p *Poly, x Var) uint32 {
	var d uint32
	for _, t := range p.terms {
		for _, vp := range t.mono {
			if vp.Var == x && vp.Pow > d {
				d = vp.Pow
			}
		}
	}
	return d
}

// TotalDegree returns the total degree of p.
func (m *Manager) TotalDegree(p *Poly) uint32 {
	var d uint32
	for _, t := range p.terms {
		var td uint32
		for _, vp := range t.mono {
			td += vp.Pow
		}
		if td > d {
			d = td
		}
	}
	return d
}

// Vars appends the distinct variables of p in ascending order.
func (m *Manager) Vars(p *Poly) []Var {
	seen := map[Var]bool{}
	var vs []Var
	for _, t := range p.terms {
		for _, vp := range t.mono {
			if !seen[vp.Var] {
				seen[vp.Var] = true
				vs = append(vs, vp.Var)
			}
		}
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

// LeadCoef returns the coefficient of the leading term under the canonical
// monomial order.
func (m *Manager) LeadCoef(p *Poly) *big.Rat {
	if len(p.terms) == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).Set(p.terms[0].coef)
}

// FlipSignIfLeadNeg returns p unchanged if its leading coefficient is
// non-negative, and -p plus a flip indication otherwise. Used by atom
// canonicalization: flipping the sign of a factor flips the comparison of
// odd-power factors.
func (m *Manager) FlipSignIfLeadNeg(p *Poly) (*Poly, bool) {
	if len(p.terms) == 0 || p.terms[0].coef.Sign() >= 0 {
		return p, false
	}
	return m.Neg(p), true
}

// Primitive scales p by a positive rational so that its coefficients
// become coprime integers. The scaling factor is positive, so the sign of
// p is preserved everywhere and the roots are unchanged.
func (m *Manager) Primitive(p *Poly) *Poly {
	if len(p.terms) == 0 {
		return p
	}
	lcm := new(big.Int).Set(p.terms[0].coef.Denom())
	for _, t := range p.terms[1:] {
		g := new(big.Int).GCD(nil, nil, lcm, t.coef.Denom())
		lcm.Div(new(big.Int).Mul(lcm, t.coef.Denom()), g)
	}
	gcd := new(big.Int)
	for _, t := range p.terms {
		n := new(big.Int).Mul(t.coef.Num(), new(big.Int).Div(lcm, t.coef.Denom()))
		n.Abs(n)
		if gcd.Sign() == 0 {
			gcd.Set(n)
		} else {
			gcd.GCD(nil, nil, gcd, n)
		}
	}
	if gcd.Sign() == 0 {
		return p
	}
	scale := new(big.Rat).SetFrac(lcm, gcd)
	return m.MulConst(scale, p)
}

// String renders p with default variable names x0, x1, ...
func (m *Manager) String(p *Poly) string {
	return m.Format(p, func(x Var) string { return fmt.Sprintf("x%d", x) })
}

// Format renders p using the given variable naming.
func (m *Manager) Format(p *Poly, name func(Var) string) string {
	if len(p.terms) == 0 {
		return "0"
	}
	var sb strings.Builder
	for i, t := range p.terms {
		c := t.coef
		if i > 0 {
			if c.Sign() >= 0 {
				sb.WriteString(" + ")
			} else {
				sb.WriteString(" - ")
				c = new(big.Rat).Neg(c)
			}
		}
		one := c.Cmp(big.NewRat(1, 1)) == 0
		if !one || len(t.mono) == 0 {
			sb.WriteString(c.RatString())
			if len(t.mono) > 0 {
				sb.WriteString("*")
			}
		}
		for j, vp := range t.mono {
			if j > 0 {
				sb.WriteString("*")
			}
			sb.WriteString(name(vp.Var))
			if vp.Pow > 1 {
				fmt.Fprintf(&sb, "^%d", vp.Pow)
			}
		}
	}
	return sb.String()
}
