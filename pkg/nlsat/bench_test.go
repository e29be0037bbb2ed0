package nlsat

import (
	"context"
	"testing"

	"github.com/nlarith/nlsat/pkg/poly"
)

// benchInstance asserts a chain of coupled quadratic constraints:
// x_0 > 0, and for each i > 0, x_i^2 < x_{i-1} and x_i > 0. The
// instance is satisfiable and forces one stage per variable.
func benchInstance(b *testing.B, n int) *Solver {
	s, err := New()
	if err != nil {
		b.Fatalf("failed to initialize solver: %s", err)
	}
	pm := s.PolyManager()
	vars := make([]poly.Var, n)
	for i := range vars {
		vars[i] = s.MkVar(false)
	}
	pos := func(p *poly.Poly) Lit {
		return s.MkIneqLiteral(AtomGT, []*poly.Poly{p}, []bool{false})
	}
	s.AddClause(pos(pm.VarPoly(vars[0])))
	for i := 1; i < n; i++ {
		sq := pm.Mul(pm.VarPoly(vars[i]), pm.VarPoly(vars[i]))
		s.AddClause(s.MkIneqLiteral(AtomLT, []*poly.Poly{pm.Sub(sq, pm.VarPoly(vars[i-1]))}, []bool{false}))
		s.AddClause(pos(pm.VarPoly(vars[i])))
	}
	return s
}

func BenchmarkCheckChain(b *testing.B) {
	for i := 0; i < b.N; i++ {
		s := benchInstance(b, 8)
		r, err := s.Check(context.Background())
		if err != nil {
			b.Fatalf("check failed: %s", err)
		}
		if r != Sat {
			b.Fatalf("unexpected result: %v", r)
		}
	}
}

func BenchmarkMkIneqLiteral(b *testing.B) {
	s, err := New()
	if err != nil {
		b.Fatalf("failed to initialize solver: %s", err)
	}
	pm := s.PolyManager()
	x := s.MkVar(false)
	p := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s.MkIneqLiteral(AtomGT, []*poly.Poly{p}, []bool{false})
	}
}
