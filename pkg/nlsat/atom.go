package nlsat

import (
	"fmt"
	"strings"

	"github.com/nlarith/nlsat/pkg/poly"
)

// AtomKind distinguishes the constraint shapes the solver knows about.
// Inequality atoms compare a product of polynomial factors with zero;
// root atoms compare a variable with an indexed root of a polynomial.
type AtomKind uint8

const (
	AtomEQ AtomKind = iota
	AtomLT
	AtomGT
	AtomRootEQ
	AtomRootLT
	AtomRootGT
	AtomRootLE
	AtomRootGE
)

func (k AtomKind) String() string {
	switch k {
	case AtomEQ:
		return "="
	case AtomLT:
		return "<"
	case AtomGT:
		return ">"
	case AtomRootEQ:
		return "=root"
	case AtomRootLT:
		return "<root"
	case AtomRootGT:
		return ">root"
	case AtomRootLE:
		return "<=root"
	default:
		return ">=root"
	}
}

// flip mirrors the kind across zero: used when the sign of a factor with
// odd multiplicity is flipped during canonicalization.
func (k AtomKind) flip() AtomKind {
	switch k {
	case AtomLT:
		return AtomGT
	case AtomGT:
		return AtomLT
	default:
		return k
	}
}

// Atom is an interned constraint attached to a Boolean variable.
type Atom interface {
	Kind() AtomKind
	BVar() BoolVar
	MaxVar() poly.Var
	key() string
	maxDegree(m *poly.Manager) uint32
}

// IneqAtom constrains the sign of a product of distinct factors, each
// raised to an odd or even power (only parity matters for the sign).
type IneqAtom struct {
	kind    AtomKind
	bvar    BoolVar
	max     poly.Var
	factors []*poly.Poly
	even    []bool
	refs    int
}

func (a *IneqAtom) Kind() AtomKind          { return a.kind }
func (a *IneqAtom) BVar() BoolVar           { return a.bvar }
func (a *IneqAtom) MaxVar() poly.Var        { return a.max }
func (a *IneqAtom) NumFactors() int         { return len(a.factors) }
func (a *IneqAtom) Factor(i int) *poly.Poly { return a.factors[i] }
func (a *IneqAtom) IsEven(i int) bool       { return a.even[i] }

// IsEq reports whether the atom is an equality.
func (a *IneqAtom) IsEq() bool { return a.kind == AtomEQ }

func (a *IneqAtom) key() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "i%d", a.kind)
	for i, f := range a.factors {
		e := 'o'
		if a.even[i] {
			e = 'e'
		}
		fmt.Fprintf(&sb, ";%c%p", e, f)
	}
	return sb.String()
}

func (a *IneqAtom) maxDegree(m *poly.Manager) uint32 {
	var d uint32
	for _, f := range a.factors {
		if fd := m.Degree(f, a.max); fd > d {
			d = fd
		}
	}
	return d
}

// RootAtom constrains a variable against the index-th real root (counted
// from one, in ascending order) of a polynomial whose maximal variable is
// the constrained variable itself.
type RootAtom struct {
	kind  AtomKind
	bvar  BoolVar
	x     poly.Var
	index int
	p     *poly.Poly
	refs  int
}

func (a *RootAtom) Kind() AtomKind   { return a.kind }
func (a *RootAtom) BVar() BoolVar    { return a.bvar }
func (a *RootAtom) MaxVar() poly.Var { return a.x }
func (a *RootAtom) X() poly.Var      { return a.x }
func (a *RootAtom) Index() int       { return a.index }
func (a *RootAtom) Poly() *poly.Poly { return a.p }

func (a *RootAtom) key() string {
	return fmt.Sprintf("r%d;%d;%d;%p", a.kind, a.x, a.index, a.p)
}

func (a *RootAtom) maxDegree(m *poly.Manager) uint32 {
	return m.Degree(a.p, a.x)
}
