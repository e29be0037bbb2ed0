package nlsat

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nlarith/nlsat/pkg/poly"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func observedSolver(t *testing.T, opts ...Option) (*Solver, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.WarnLevel)
	s := newTestSolver(t, append(opts, WithLogger(zap.New(core)))...)
	return s, logs
}

func TestCheckLemmaFlagsUnsound(t *testing.T) {
	s, logs := observedSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()

	// x^2 >= 0 holds everywhere; its check must stay silent.
	valid := s.MkIneqLiteral(AtomLT, []*poly.Poly{pm.VarPoly(x)}, []bool{true}).Neg()
	s.checkLemma([]Lit{valid}, true)
	assert.Empty(t, logs.FilterMessage("unsound lemma").All())

	// x > 1 does not hold everywhere.
	s.checkLemma([]Lit{ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(1)))}, true)
	assert.Len(t, logs.FilterMessage("unsound lemma").All(), 1)
}

func TestCheckLemmaConsequence(t *testing.T) {
	s, logs := observedSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	s.AddClause(ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(2))))

	// x > 1 follows from the input clause x > 2.
	s.checkLemma([]Lit{ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(1)))}, false)
	assert.Empty(t, logs.FilterMessage("unsound lemma").All())

	// x < 0 does not.
	s.checkLemma([]Lit{ineq(s, AtomLT, pm.VarPoly(x))}, false)
	assert.Len(t, logs.FilterMessage("unsound lemma").All(), 1)
}

func TestCheckLemmasDuringSearch(t *testing.T) {
	s, logs := observedSolver(t, WithCheckLemmas(true))
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	choice := pm.Mul(pm.Sub(pm.VarPoly(x), pm.Int(1)), pm.Sub(pm.VarPoly(x), pm.Int(2)))
	s.AddClause(ineq(s, AtomEQ, choice))
	s.AddClause(ineq(s, AtomEQ, pm.Mul(pm.VarPoly(x), pm.VarPoly(y))))
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(y)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unsat, r)
	require.Positive(t, s.Stats().Conflicts)
	assert.Empty(t, logs.FilterMessage("unsound lemma").All())
	assert.Empty(t, logs.FilterMessage("lemma check inconclusive").All())
}

func TestKnownSolutionLemmaCheck(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solution")
	require.NoError(t, os.WriteFile(path, []byte("# reference model\nx 3/2\n"), 0o600))

	s, logs := observedSolver(t, WithKnownSolutionFile(path))
	x := s.MkVar(false)
	s.SetVarName(x, "x")
	pm := s.PolyManager()

	// x > 1 holds at x = 3/2.
	s.checkLemma([]Lit{ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(1)))}, true)
	assert.Empty(t, logs.FilterMessage("lemma violated by known solution").All())

	// x > 2 does not.
	s.checkLemma([]Lit{ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(2)))}, true)
	assert.Len(t, logs.FilterMessage("lemma violated by known solution").All(), 1)
}

func TestLazyModes(t *testing.T) {
	for lazy := 0; lazy <= 2; lazy++ {
		s := newTestSolver(t, WithLazy(lazy))
		x := s.MkVar(false)
		y := s.MkVar(false)
		pm := s.PolyManager()
		choice := pm.Mul(pm.Sub(pm.VarPoly(x), pm.Int(1)), pm.Sub(pm.VarPoly(x), pm.Int(2)))
		s.AddClause(ineq(s, AtomEQ, choice))
		s.AddClause(ineq(s, AtomEQ, pm.Mul(pm.VarPoly(x), pm.VarPoly(y))))
		s.AddClause(ineq(s, AtomGT, pm.VarPoly(y)))

		r, err := s.Check(context.Background())
		require.NoError(t, err)
		assert.Equal(t, Unsat, r, "lazy %d", lazy)

		s2 := newTestSolver(t, WithLazy(lazy))
		z := s2.MkVar(false)
		pm2 := s2.PolyManager()
		sq := pm2.Sub(pm2.Mul(pm2.VarPoly(z), pm2.VarPoly(z)), pm2.Int(2))
		s2.AddClause(ineq(s2, AtomEQ, sq))
		s2.AddClause(ineq(s2, AtomGT, pm2.VarPoly(z)))

		r, err = s2.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, Sat, r, "lazy %d", lazy)
		assert.False(t, s2.Value(z).IsRational())
	}
}

func TestLoggingTracerEvents(t *testing.T) {
	var buf bytes.Buffer
	s := newTestSolver(t, WithTracer(LoggingTracer{Writer: &buf}))
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	choice := pm.Mul(pm.Sub(pm.VarPoly(x), pm.Int(1)), pm.Sub(pm.VarPoly(x), pm.Int(2)))
	s.AddClause(ineq(s, AtomEQ, choice))
	s.AddClause(ineq(s, AtomEQ, pm.Mul(pm.VarPoly(x), pm.VarPoly(y))))
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(y)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unsat, r)

	out := buf.String()
	assert.Contains(t, out, "witness")
	assert.Contains(t, out, "conflict")
	assert.Contains(t, out, "lemma")
}
