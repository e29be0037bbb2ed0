package intervals_test

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/algebraic"
)

func num(n int64) *algebraic.Num { return algebraic.FromInt64(n) }

func TestEmptyAndFull(t *testing.T) {
	assert.True(t, intervals.Empty().IsEmpty())
	assert.False(t, intervals.Empty().IsFull())

	full := intervals.Full([]intervals.Lit{3})
	assert.True(t, full.IsFull())
	assert.Equal(t, []intervals.Lit{3}, full.Lits())

	_, ok := full.PickInComplement(false, nil)
	assert.False(t, ok)
}

func TestUnionKeepsJustifications(t *testing.T) {
	// (-oo, 0] from lit 2, [0, +oo) from lit 4: union is full, both
	// justifications survive.
	a := intervals.FromIntervals(intervals.Interval{Hi: num(0), Lits: []intervals.Lit{2}})
	b := intervals.FromIntervals(intervals.Interval{Lo: num(0), Lits: []intervals.Lit{4}})
	u := a.Union(b)
	assert.True(t, u.IsFull())
	assert.ElementsMatch(t, []intervals.Lit{2, 4}, u.Lits())
}

func TestUnionLeavesGap(t *testing.T) {
	// (-oo, 0) and (0, +oo) leave the single point 0 uncovered.
	a := intervals.FromIntervals(intervals.Interval{Hi: num(0), HiOpen: true, Lits: []intervals.Lit{2}})
	b := intervals.FromIntervals(intervals.Interval{Lo: num(0), LoOpen: true, Lits: []intervals.Lit{4}})
	u := a.Union(b)
	assert.False(t, u.IsFull())

	w, ok := u.PickInComplement(false, nil)
	require.True(t, ok)
	assert.Equal(t, 0, w.Sign())
}

func TestUnionTrimsContainedInterval(t *testing.T) {
	big := intervals.FromIntervals(intervals.Interval{Lo: num(-10), Hi: num(10), Lits: []intervals.Lit{6}})
	small := intervals.FromIntervals(intervals.Interval{Lo: num(-1), Hi: num(1), Lits: []intervals.Lit{8}})
	u := big.Union(small)
	require.Len(t, u.Intervals(), 1)
	assert.Equal(t, []intervals.Lit{6}, u.Lits())
}

func TestSubset(t *testing.T) {
	inner := intervals.FromIntervals(intervals.Interval{Lo: num(1), Hi: num(2)})
	outer := intervals.FromIntervals(intervals.Interval{Lo: num(0), Hi: num(3)})
	assert.True(t, inner.Subset(outer))
	assert.False(t, outer.Subset(inner))
	assert.True(t, intervals.Empty().Subset(inner))
	assert.False(t, inner.Subset(intervals.Empty()))

	// Coverage split across two adjacent intervals.
	split := intervals.FromIntervals(
		intervals.Interval{Lo: num(0), Hi: num(1), HiOpen: true},
		intervals.Interval{Lo: num(1), Hi: num(3)},
	)
	assert.True(t, inner.Subset(split))
}

func TestPickPrefersZeroThenInteger(t *testing.T) {
	s := intervals.FromIntervals(intervals.Interval{Lo: num(1), Hi: num(5)})
	w, ok := s.PickInComplement(false, nil)
	require.True(t, ok)
	assert.Equal(t, 0, w.Sign())

	// Complement of (-oo, 3) is [3, +oo): integer 4 fits.
	s = intervals.FromIntervals(intervals.Interval{Hi: num(3), HiOpen: true})
	w, ok = s.PickInComplement(true, nil)
	require.True(t, ok)
	assert.True(t, w.IsInt())
	assert.True(t, w.CmpRat(big.NewRat(3, 1)) >= 0)
}

func TestPickPointGapBetweenIrrationalBounds(t *testing.T) {
	// Exclude (-oo, sqrt2) and (sqrt2, +oo): only sqrt2 remains.
	roots := algebraic.IsolateRoots(algebraic.UniFromInt64(-2, 0, 1))
	require.Len(t, roots, 2)
	sqrt2 := roots[1]

	s := intervals.FromIntervals(
		intervals.Interval{Hi: sqrt2, HiOpen: true},
		intervals.Interval{Lo: sqrt2, LoOpen: true},
	)
	w, ok := s.PickInComplement(false, nil)
	require.True(t, ok)
	assert.Equal(t, 0, w.Cmp(sqrt2))
}

func TestPickRandomized(t *testing.T) {
	s := intervals.FromIntervals(intervals.Interval{Lo: num(-1), Hi: num(1)})
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		w, ok := s.PickInComplement(false, rnd)
		require.True(t, ok)
		assert.NotEqual(t, 0, w.Sign())
	}
}
