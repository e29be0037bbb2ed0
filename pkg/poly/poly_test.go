package poly_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlarith/nlsat/pkg/poly"
)

func TestManagerInterning(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	// x*y + 1 built twice must intern to the same pointer.
	a := m.Add(m.Mul(m.VarPoly(x), m.VarPoly(y)), m.Int(1))
	b := m.Add(m.Int(1), m.Mul(m.VarPoly(y), m.VarPoly(x)))
	assert.Same(t, a, b)

	// x + y and y + x likewise.
	assert.Same(t, m.Add(m.VarPoly(x), m.VarPoly(y)), m.Add(m.VarPoly(y), m.VarPoly(x)))
}

func TestArithmetic(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()

	// (x + 1)(x - 1) = x^2 - 1
	p := m.Mul(m.Add(m.VarPoly(x), m.Int(1)), m.Sub(m.VarPoly(x), m.Int(1)))
	q := m.Sub(m.Pow(m.VarPoly(x), 2), m.Int(1))
	assert.Same(t, p, q)

	assert.True(t, m.IsZero(m.Sub(p, p)))
	assert.Equal(t, uint32(2), m.Degree(p, x))
	assert.Equal(t, uint32(2), m.TotalDegree(p))
}

func TestMaxVarAndVars(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()
	z := m.MkVar()

	p := m.Add(m.Mul(m.VarPoly(x), m.VarPoly(z)), m.VarPoly(y))
	assert.Equal(t, z, m.MaxVar(p))
	assert.ElementsMatch(t, []poly.Var{x, y, z}, m.Vars(p))

	assert.Equal(t, poly.NullVar, m.MaxVar(m.Int(5)))
	assert.True(t, m.IsConst(m.Int(5)))
}

func TestDerivative(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	// d/dx (x^2 y + 3x) = 2xy + 3
	p := m.Add(m.Mul(m.Pow(m.VarPoly(x), 2), m.VarPoly(y)), m.MulConst(big.NewRat(3, 1), m.VarPoly(x)))
	d := m.Derivative(p, x)
	want := m.Add(m.MulConst(big.NewRat(2, 1), m.Mul(m.VarPoly(x), m.VarPoly(y))), m.Int(3))
	assert.Same(t, want, d)
}

func TestEval(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	p := m.Add(m.Mul(m.VarPoly(x), m.VarPoly(y)), m.Int(-6))
	vals := map[poly.Var]*big.Rat{x: big.NewRat(2, 1), y: big.NewRat(3, 1)}
	v := m.Eval(p, func(v poly.Var) *big.Rat { return vals[v] })
	assert.Equal(t, 0, v.Sign())
}

func TestSubstRational(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	// Substituting y=2 in x*y + y - 1 gives 2x + 1.
	p := m.Add(m.Add(m.Mul(m.VarPoly(x), m.VarPoly(y)), m.VarPoly(y)), m.Int(-1))
	r := m.SubstRational(p, func(v poly.Var) (*big.Rat, bool) {
		if v == y {
			return big.NewRat(2, 1), true
		}
		return nil, false
	})
	want := m.Add(m.MulConst(big.NewRat(2, 1), m.VarPoly(x)), m.Int(1))
	assert.Same(t, want, r)
}

func TestUnivariate(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	// y^2 x + 3y - 1 viewed in y: coeffs [-1, 3, x]
	p := m.Add(m.Add(m.Mul(m.Pow(m.VarPoly(y), 2), m.VarPoly(x)), m.MulConst(big.NewRat(3, 1), m.VarPoly(y))), m.Int(-1))
	coeffs := m.Univariate(p, y)
	require.Len(t, coeffs, 3)
	assert.Same(t, m.Int(-1), coeffs[0])
	assert.Same(t, m.Int(3), coeffs[1])
	assert.Same(t, m.VarPoly(x), coeffs[2])
}

func TestPrimitiveAndSign(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()

	// -4x + 6 normalizes to 2x - 3 with a sign flip.
	p := m.Add(m.MulConst(big.NewRat(-4, 1), m.VarPoly(x)), m.Int(6))
	q, flipped := m.FlipSignIfLeadNeg(p)
	assert.True(t, flipped)
	prim := m.Primitive(q)
	want := m.Add(m.MulConst(big.NewRat(2, 1), m.VarPoly(x)), m.Int(-3))
	assert.Same(t, want, prim)
}

func TestRename(t *testing.T) {
	m := poly.NewManager()
	x := m.MkVar()
	y := m.MkVar()

	p := m.Add(m.Pow(m.VarPoly(x), 2), m.VarPoly(y))
	// Swap x and y.
	r := m.Rename(p, []poly.Var{y, x})
	want := m.Add(m.Pow(m.VarPoly(y), 2), m.VarPoly(x))
	assert.Same(t, want, r)
}
