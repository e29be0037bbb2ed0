package nlsat

import (
	"context"
	"math/big"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/algebraic"
	"github.com/nlarith/nlsat/pkg/poly"
)

func newTestSolver(t *testing.T, opts ...Option) *Solver {
	t.Helper()
	s, err := New(opts...)
	require.NoError(t, err)
	return s
}

// ineq builds the literal "p k 0" for a single odd factor.
func ineq(s *Solver, k AtomKind, p *poly.Poly) Lit {
	return s.MkIneqLiteral(k, []*poly.Poly{p}, []bool{false})
}

func TestLinearSat(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	assert.Positive(t, s.Value(x).Sign())
}

func TestContradictionUnsat(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))
	s.AddClause(ineq(s, AtomLT, pm.VarPoly(x)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, r)
}

func TestIrrationalWitness(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	// x^2 - 2 = 0 and x > 0 pins x to sqrt(2).
	sq := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
	s.AddClause(ineq(s, AtomEQ, sq))
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	v := s.Value(x)
	require.NotNil(t, v)
	assert.False(t, v.IsRational())
	assert.Positive(t, v.CmpRat(big.NewRat(7, 5)))
	assert.Negative(t, v.CmpRat(big.NewRat(3, 2)))
}

func TestRootAtomPinsWitness(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	sq := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
	// x = root_1(x^2 - 2), the smaller root -sqrt(2).
	b := s.MkRootAtom(AtomRootEQ, x, 1, sq)
	s.AddClause(MkLit(b, false))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	v := s.Value(x)
	assert.False(t, v.IsRational())
	assert.Negative(t, v.Sign())
}

func TestTwoStageConflict(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	// (x-1)(x-2) = 0, x*y = 0, y > 0: both roots of the first
	// constraint force y = 0, so the instance is unsatisfiable. The
	// conflicts happen at the y stage and must backtrack into the x
	// stage until its feasible points are exhausted.
	choice := pm.Mul(pm.Sub(pm.VarPoly(x), pm.Int(1)), pm.Sub(pm.VarPoly(x), pm.Int(2)))
	s.AddClause(ineq(s, AtomEQ, choice))
	s.AddClause(ineq(s, AtomEQ, pm.Mul(pm.VarPoly(x), pm.VarPoly(y))))
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(y)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, r)
}

func TestTwoStageSat(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	// x^2 + y^2 < 1
	sum := pm.Add(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Mul(pm.VarPoly(y), pm.VarPoly(y)))
	s.AddClause(ineq(s, AtomLT, pm.Sub(sum, pm.Int(1))))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	for _, v := range []*algebraic.Num{s.Value(x), s.Value(y)} {
		lo, hi := v.Approx(big.NewRat(1, 1000))
		assert.True(t, lo.Cmp(big.NewRat(-1, 1)) > 0 && hi.Cmp(big.NewRat(1, 1)) < 0)
	}
}

func TestIntegerGapUnsat(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(true)
	pm := s.PolyManager()
	// x^2 = 2 has no integer solution; both algebraic candidates are
	// cut off by branch and bound lemmas.
	sq := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
	s.AddClause(ineq(s, AtomEQ, sq))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, r)
}

func TestIntegerOpenUnitIntervalUnsat(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(true)
	pm := s.PolyManager()
	// 0 < x < 1 admits no integer.
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))
	s.AddClause(ineq(s, AtomLT, pm.Sub(pm.VarPoly(x), pm.Int(1))))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, r)
}

func TestIntegerWitnessPreferred(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(true)
	pm := s.PolyManager()
	// 1/2 < x < 5/2
	s.AddClause(ineq(s, AtomGT, pm.Sub(pm.MulConst(big.NewRat(2, 1), pm.VarPoly(x)), pm.Int(1))))
	s.AddClause(ineq(s, AtomLT, pm.Sub(pm.MulConst(big.NewRat(2, 1), pm.VarPoly(x)), pm.Int(5))))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	v := s.Value(x)
	assert.True(t, v.IsRational())
	assert.True(t, v.IsInt())
}

func TestPureBoolean(t *testing.T) {
	s := newTestSolver(t)
	b1 := s.MkBoolVar()
	b2 := s.MkBoolVar()
	s.AddClause(MkLit(b1, false), MkLit(b2, false))
	s.AddClause(MkLit(b1, true))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	assert.Equal(t, LFalse, s.BoolValue(b1))
	assert.Equal(t, LTrue, s.BoolValue(b2))

	s.AddClause(MkLit(b2, true))
	r, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Unsat, r)
}

func TestMixedBooleanArith(t *testing.T) {
	s := newTestSolver(t)
	b := s.MkBoolVar()
	x := s.MkVar(false)
	pm := s.PolyManager()
	gt := ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(2)))
	lt := ineq(s, AtomLT, pm.VarPoly(x))
	// b -> x > 2, !b -> x < 0, and b.
	s.AddClause(MkLit(b, true), gt)
	s.AddClause(MkLit(b, false), lt)
	s.AddClause(MkLit(b, false))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	assert.Equal(t, LTrue, s.BoolValue(b))
	assert.Positive(t, s.Value(x).CmpRat(big.NewRat(2, 1)))
}

func TestUnsatCore(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	a1 := ineq(s, AtomGT, pm.VarPoly(x))
	a2 := ineq(s, AtomLT, pm.VarPoly(x))
	a3 := ineq(s, AtomGT, pm.VarPoly(y))

	r, err := s.CheckAssuming(context.Background(), a1, a2, a3)
	require.NoError(t, err)
	require.Equal(t, Unsat, r)
	core := s.UnsatCore()
	assert.ElementsMatch(t, []Lit{a1, a2}, core)

	// The assumption clauses are gone; the remaining problem is sat.
	r, err = s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, r)
}

func TestMinimizedCore(t *testing.T) {
	s := newTestSolver(t, WithMinimizeCores(true))
	x := s.MkVar(false)
	pm := s.PolyManager()
	a1 := ineq(s, AtomGT, pm.VarPoly(x))
	a2 := ineq(s, AtomLT, pm.VarPoly(x))
	a3 := ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(1)))

	// a2 contradicts both a1 and a3; the minimized core keeps a2 and
	// one of the others.
	r, err := s.CheckAssuming(context.Background(), a1, a2, a3)
	require.NoError(t, err)
	require.Equal(t, Unsat, r)
	core := s.UnsatCore()
	assert.Len(t, core, 2)
	assert.Contains(t, core, a2)
}

func TestCheckCanceled(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	s.AddClause(ineq(s, AtomGT, s.PolyManager().VarPoly(x)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Check(ctx)
	assert.ErrorIs(t, err, ErrCanceled)

	// The solver stays usable after cancellation.
	r, err := s.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sat, r)
}

func TestAtomInterning(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	p := pm.Sub(pm.VarPoly(x), pm.Int(1))
	l1 := ineq(s, AtomGT, p)
	l2 := ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.Int(1)))
	assert.Equal(t, l1, l2)

	// Sign normalization folds 1-x < 0 onto x-1 > 0.
	l3 := ineq(s, AtomLT, pm.Sub(pm.Int(1), pm.VarPoly(x)))
	assert.Equal(t, l1, l3)
}

func TestConstantFolding(t *testing.T) {
	s := newTestSolver(t)
	pm := s.PolyManager()
	assert.Equal(t, LitTrue, ineq(s, AtomGT, pm.Int(3)))
	assert.Equal(t, LitFalse, ineq(s, AtomLT, pm.Int(3)))
	assert.Equal(t, LitTrue, ineq(s, AtomEQ, pm.Int(0)))
}

func TestLiteralOrdering(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	y := s.MkVar(false)
	b := s.MkBoolVar()
	pm := s.PolyManager()
	ly := ineq(s, AtomGT, pm.Mul(pm.VarPoly(y), pm.VarPoly(y)))
	lx := ineq(s, AtomGT, pm.VarPoly(x))
	lb := MkLit(b, false)
	s.AddClause(ly, lx, lb)

	c := s.clauses[len(s.clauses)-1]
	// Boolean first, then by maximal variable.
	assert.Equal(t, []Lit{lb, lx, ly}, c.lits)
}

// witnessHookTracer runs a callback on every witness selection; the
// callback fires mid-search, with the solver in a consistent state.
type witnessHookTracer struct {
	DefaultTracer
	onWitness func()
}

func (t witnessHookTracer) Witness(int, string) { t.onWitness() }

func TestTrailReversibility(t *testing.T) {
	type snapshot struct {
		Trail      int
		Bvalues    []LBool
		Levels     []uint32
		ScopeLvl   uint32
		Xk         int32
		Bk         BoolVar
		Infeasible []*intervals.Set
		Assignment []*algebraic.Num
		Var2eq     []*IneqAtom
	}
	var s *Solver
	take := func() snapshot {
		return snapshot{
			Trail:      len(s.trail),
			Bvalues:    append([]LBool(nil), s.bvalues...),
			Levels:     append([]uint32(nil), s.levels...),
			ScopeLvl:   s.scopeLvl,
			Xk:         s.xk,
			Bk:         s.bk,
			Infeasible: append([]*intervals.Set(nil), s.infeasible...),
			Assignment: append([]*algebraic.Num(nil), s.assignment...),
			Var2eq:     append([]*IneqAtom(nil), s.var2eq...),
		}
	}
	// Undo restores earlier pointers, so identity comparison is exact.
	opts := cmp.Options{
		cmp.Comparer(func(a, b *intervals.Set) bool { return a == b }),
		cmp.Comparer(func(a, b *algebraic.Num) bool { return a == b }),
		cmp.Comparer(func(a, b *IneqAtom) bool { return a == b }),
	}

	var mid *snapshot
	tr := witnessHookTracer{onWitness: func() {
		if mid == nil {
			snap := take()
			mid = &snap
		}
	}}
	var err error
	s, err = New(WithTracer(tr))
	require.NoError(t, err)
	x := s.MkVar(false)
	y := s.MkVar(false)
	b := s.MkBoolVar()
	pm := s.PolyManager()
	// Propagation-only instance: the trail grows monotonically, so any
	// mid-search state is reachable again by unwinding to its size.
	s.AddClause(MkLit(b, false))
	s.AddClause(MkLit(b, true), ineq(s, AtomGT, pm.VarPoly(x)))
	s.AddClause(ineq(s, AtomLT, pm.Sub(pm.VarPoly(y), pm.VarPoly(x))))
	base := take()

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	require.NotNil(t, mid)
	require.Greater(t, len(s.trail), mid.Trail)

	s.undoUntilSize(mid.Trail)
	if diff := cmp.Diff(*mid, take(), opts); diff != "" {
		t.Errorf("state not restored at mid-trail point (-want +got):\n%s", diff)
	}

	s.undoUntilEmpty()
	if diff := cmp.Diff(base, take(), opts); diff != "" {
		t.Errorf("state not restored at base (-want +got):\n%s", diff)
	}
}

func TestReorderRoundTrip(t *testing.T) {
	s := newTestSolver(t, WithReorder(true))
	x := s.MkVar(false)
	y := s.MkVar(false)
	pm := s.PolyManager()
	// y has higher degree, so the heuristic moves it to a later stage
	// internally; models must come back in the original order.
	s.AddClause(ineq(s, AtomGT, pm.Sub(pm.Mul(pm.VarPoly(y), pm.VarPoly(y)), pm.VarPoly(x))))
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Sat, r)
	vx, vy := s.Value(x), s.Value(y)
	require.NotNil(t, vx)
	require.NotNil(t, vy)
	assert.Positive(t, vx.Sign())
}

func TestShuffledVarsStillSound(t *testing.T) {
	for seed := int64(0); seed < 4; seed++ {
		s := newTestSolver(t, WithShuffleVars(true), WithRandomSeed(seed))
		x := s.MkVar(false)
		y := s.MkVar(false)
		pm := s.PolyManager()
		s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))
		s.AddClause(ineq(s, AtomLT, pm.VarPoly(y)))
		s.AddClause(ineq(s, AtomGT, pm.Sub(pm.VarPoly(x), pm.VarPoly(y))))

		r, err := s.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, Sat, r)
		assert.Positive(t, s.Value(x).Sign())
		assert.Negative(t, s.Value(y).Sign())
	}
}

func TestClauseOrderAfterReorder(t *testing.T) {
	for seed := int64(0); seed < 4; seed++ {
		s := newTestSolver(t, WithShuffleVars(true), WithRandomSeed(seed))
		x := s.MkVar(false)
		y := s.MkVar(false)
		b := s.MkBoolVar()
		pm := s.PolyManager()
		s.AddClause(MkLit(b, true), ineq(s, AtomGT, pm.Sub(pm.Mul(pm.VarPoly(y), pm.VarPoly(y)), pm.VarPoly(x))))
		s.AddClause(MkLit(b, false), ineq(s, AtomGT, pm.VarPoly(x)))
		s.AddClause(ineq(s, AtomLT, pm.Sub(pm.VarPoly(x), pm.VarPoly(y))))

		r, err := s.Check(context.Background())
		require.NoError(t, err)
		require.Equal(t, Sat, r)
		// Renaming the variables reorders literals inside each clause;
		// after restoring the original numbering the intern-time order
		// must hold again.
		for _, cs := range [][]*clause{s.clauses, s.learned} {
			for _, c := range cs {
				for i := 1; i < len(c.lits); i++ {
					assert.False(t, s.litLess(c.lits[i], c.lits[i-1]),
						"seed %d: clause literals out of order", seed)
				}
			}
		}
	}
}

func TestStatsCounters(t *testing.T) {
	s := newTestSolver(t)
	x := s.MkVar(false)
	pm := s.PolyManager()
	s.AddClause(ineq(s, AtomGT, pm.VarPoly(x)))
	s.AddClause(ineq(s, AtomLT, pm.VarPoly(x)))

	r, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, Unsat, r)
	assert.Positive(t, s.Stats().Conflicts)
	assert.Positive(t, s.Stats().Stages)
}
