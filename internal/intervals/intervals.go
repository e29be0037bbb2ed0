// Package intervals implements sets of real intervals with algebraic
// number endpoints. The solver records, per arithmetic variable, the set
// of values already proven infeasible; each interval carries the literals
// that justify excluding it, and witnesses are picked from the complement.
package intervals

import (
	"math/big"
	"math/rand"
	"strings"

	"github.com/nlarith/nlsat/pkg/algebraic"
)

// Lit is an encoded literal, as used by the solver core. Intervals carry
// literal codes only; decoding is the caller's concern.
type Lit = uint32

// Interval is a connected region of the real line. A nil Lo means
// negative infinity and a nil Hi positive infinity; the Open flags are
// meaningless for infinite bounds. Lits justifies the exclusion of every
// point in the interval.
type Interval struct {
	Lo, Hi         *algebraic.Num
	LoOpen, HiOpen bool
	Lits           []Lit
}

// Set is an ordered list of pairwise disjoint intervals. Adjacent
// intervals with different justifications are kept separate.
type Set struct {
	ivls []Interval
}

// Empty is the empty set.
func Empty() *Set { return &Set{} }

// Full returns the set covering the whole real line, justified by lits.
func Full(lits []Lit) *Set {
	return &Set{ivls: []Interval{{Lits: lits}}}
}

// FromIntervals builds a set from the given intervals, dropping empty
// ones and normalizing order and overlap.
func FromIntervals(ivls ...Interval) *Set {
	s := &Set{}
	for _, iv := range ivls {
		if emptyInterval(iv) {
			continue
		}
		s = s.Union(&Set{ivls: []Interval{iv}})
	}
	return s
}

func emptyInterval(iv Interval) bool {
	if iv.Lo == nil || iv.Hi == nil {
		return false
	}
	c := iv.Lo.Cmp(iv.Hi)
	if c > 0 {
		return true
	}
	return c == 0 && (iv.LoOpen || iv.HiOpen)
}

// IsEmpty reports whether the set contains no points.
func (s *Set) IsEmpty() bool { return s == nil || len(s.ivls) == 0 }

// IsFull reports whether the set covers the whole real line.
func (s *Set) IsFull() bool {
	if s.IsEmpty() {
		return false
	}
	if s.ivls[0].Lo != nil || s.ivls[len(s.ivls)-1].Hi != nil {
		return false
	}
	for i := 1; i < len(s.ivls); i++ {
		prev, cur := s.ivls[i-1], s.ivls[i]
		if gapBetween(prev.Hi, prev.HiOpen, cur.Lo, cur.LoOpen) {
			return false
		}
	}
	return true
}

// Intervals exposes the underlying intervals in ascending order.
func (s *Set) Intervals() []Interval {
	if s == nil {
		return nil
	}
	return s.ivls
}

// Lits returns the union of all justification literals, deduplicated,
// in first-seen order.
func (s *Set) Lits() []Lit {
	if s.IsEmpty() {
		return nil
	}
	seen := make(map[Lit]struct{})
	var out []Lit
	for _, iv := range s.ivls {
		for _, l := range iv.Lits {
			if _, ok := seen[l]; ok {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	return out
}

// gapBetween reports whether points exist strictly between an upper
// bound (hi, hiOpen) and a following lower bound (lo, loOpen).
func gapBetween(hi *algebraic.Num, hiOpen bool, lo *algebraic.Num, loOpen bool) bool {
	if hi == nil || lo == nil {
		return false
	}
	c := hi.Cmp(lo)
	if c < 0 {
		return true
	}
	return c == 0 && hiOpen && loOpen
}

// cmpLower orders lower bounds; nil sorts first, closed before open.
func cmpLower(a *algebraic.Num, aOpen bool, b *algebraic.Num, bOpen bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if c := a.Cmp(b); c != 0 {
		return c
	}
	switch {
	case aOpen == bOpen:
		return 0
	case bOpen:
		return -1
	default:
		return 1
	}
}

// cmpUpper orders upper bounds; nil sorts last, open before closed.
func cmpUpper(a *algebraic.Num, aOpen bool, b *algebraic.Num, bOpen bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if c := a.Cmp(b); c != 0 {
		return c
	}
	switch {
	case aOpen == bOpen:
		return 0
	case aOpen:
		return -1
	default:
		return 1
	}
}

// Union merges two sets. Overlapping regions keep the justification of
// whichever interval covered them first; later intervals are trimmed,
// never merged, so every point stays attached to literals that exclude
// it.
func (s *Set) Union(t *Set) *Set {
	if s.IsEmpty() {
		return t
	}
	if t.IsEmpty() {
		return s
	}
	merged := make([]Interval, 0, len(s.ivls)+len(t.ivls))
	i, j := 0, 0
	for i < len(s.ivls) || j < len(t.ivls) {
		var next Interval
		switch {
		case i >= len(s.ivls):
			next, j = t.ivls[j], j+1
		case j >= len(t.ivls):
			next, i = s.ivls[i], i+1
		case cmpLower(s.ivls[i].Lo, s.ivls[i].LoOpen, t.ivls[j].Lo, t.ivls[j].LoOpen) <= 0:
			next, i = s.ivls[i], i+1
		default:
			next, j = t.ivls[j], j+1
		}
		if len(merged) == 0 {
			merged = append(merged, next)
			continue
		}
		last := &merged[len(merged)-1]
		if gapBetween(last.Hi, last.HiOpen, next.Lo, next.LoOpen) {
			merged = append(merged, next)
			continue
		}
		if cmpUpper(next.Hi, next.HiOpen, last.Hi, last.HiOpen) <= 0 {
			// Entirely covered already.
			continue
		}
		// Overlap or adjacency: keep next's justification only for the
		// uncovered tail.
		next.Lo, next.LoOpen = last.Hi, !last.HiOpen
		merged = append(merged, next)
	}
	return &Set{ivls: merged}
}

// Subset reports whether every point of s belongs to t.
func (s *Set) Subset(t *Set) bool {
	if s.IsEmpty() {
		return true
	}
	if t.IsEmpty() {
		return false
	}
	j := 0
	for _, iv := range s.ivls {
		// Advance past t intervals ending before iv starts.
		for j < len(t.ivls) && upperBelowLower(t.ivls[j].Hi, t.ivls[j].HiOpen, iv.Lo, iv.LoOpen) {
			j++
		}
		if j >= len(t.ivls) {
			return false
		}
		// iv's start must be inside t.ivls[j].
		if cmpLower(t.ivls[j].Lo, t.ivls[j].LoOpen, iv.Lo, iv.LoOpen) > 0 {
			return false
		}
		// Walk contiguous t intervals until iv's end is covered.
		k := j
		for cmpUpper(t.ivls[k].Hi, t.ivls[k].HiOpen, iv.Hi, iv.HiOpen) < 0 {
			if k+1 >= len(t.ivls) ||
				gapBetween(t.ivls[k].Hi, t.ivls[k].HiOpen, t.ivls[k+1].Lo, t.ivls[k+1].LoOpen) {
				return false
			}
			k++
		}
	}
	return true
}

// upperBelowLower reports whether an upper bound lies strictly below a
// lower bound, i.e. the two regions cannot intersect.
func upperBelowLower(hi *algebraic.Num, hiOpen bool, lo *algebraic.Num, loOpen bool) bool {
	if hi == nil || lo == nil {
		return false
	}
	c := hi.Cmp(lo)
	if c < 0 {
		return true
	}
	return c == 0 && (hiOpen || loOpen)
}

// region is a connected component of the complement. Nil bounds are
// infinite; the Incl flags say whether the finite endpoint itself
// belongs to the region.
type region struct {
	lo, hi         *algebraic.Num
	loIncl, hiIncl bool
}

func (s *Set) complement() []region {
	if s.IsEmpty() {
		return []region{{}}
	}
	var out []region
	first := s.ivls[0]
	if first.Lo != nil {
		out = append(out, region{hi: first.Lo, hiIncl: first.LoOpen})
	}
	for i := 1; i < len(s.ivls); i++ {
		prev, cur := s.ivls[i-1], s.ivls[i]
		r := region{
			lo: prev.Hi, loIncl: prev.HiOpen,
			hi: cur.Lo, hiIncl: cur.LoOpen,
		}
		if regionEmpty(r) {
			continue
		}
		out = append(out, r)
	}
	last := s.ivls[len(s.ivls)-1]
	if last.Hi != nil {
		out = append(out, region{lo: last.Hi, loIncl: last.HiOpen})
	}
	return out
}

func regionEmpty(r region) bool {
	if r.lo == nil || r.hi == nil {
		return false
	}
	c := r.lo.Cmp(r.hi)
	if c > 0 {
		return true
	}
	return c == 0 && !(r.loIncl && r.hiIncl)
}

// PickInComplement chooses a value outside the set. When preferInt is
// set, an integer is returned whenever some integer lies in the
// complement. A non-nil rnd randomizes the choice among complement
// regions. Returns false iff the set is full.
func (s *Set) PickInComplement(preferInt bool, rnd *rand.Rand) (*algebraic.Num, bool) {
	regions := s.complement()
	if len(regions) == 0 {
		return nil, false
	}
	if preferInt {
		for _, r := range regions {
			if n, ok := intInRegion(r); ok {
				return n, true
			}
		}
	}
	order := make([]int, len(regions))
	for i := range order {
		order[i] = i
	}
	if rnd != nil {
		rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	} else {
		// Deterministic preference: a region containing zero first.
		for i, r := range regions {
			if regionContainsZero(r) {
				order[0], order[i] = order[i], order[0]
				break
			}
		}
	}
	return pickInRegion(regions[order[0]]), true
}

func regionContainsZero(r region) bool {
	if r.lo != nil {
		c := r.lo.Sign()
		if c > 0 || (c == 0 && !r.loIncl) {
			return false
		}
	}
	if r.hi != nil {
		c := r.hi.Sign()
		if c < 0 || (c == 0 && !r.hiIncl) {
			return false
		}
	}
	return true
}

// intInRegion finds an integer inside r when one exists.
func intInRegion(r region) (*algebraic.Num, bool) {
	switch {
	case r.lo == nil && r.hi == nil:
		return algebraic.FromInt64(0), true
	case r.lo == nil:
		n := new(big.Int).Sub(r.hi.Floor(), big.NewInt(1))
		return algebraic.FromRat(new(big.Rat).SetInt(n)), true
	case r.hi == nil:
		n := new(big.Int).Add(r.lo.Floor(), big.NewInt(1))
		return algebraic.FromRat(new(big.Rat).SetInt(n)), true
	}
	n := new(big.Int).Add(r.lo.Floor(), big.NewInt(1))
	nr := new(big.Rat).SetInt(n)
	if c := r.hi.CmpRat(nr); c > 0 || (c == 0 && r.hiIncl) {
		return algebraic.FromRat(nr), true
	}
	// The region may still contain an included integer endpoint.
	if r.loIncl && r.lo.IsInt() {
		return r.lo, true
	}
	if r.hiIncl && r.hi.IsInt() {
		return r.hi, true
	}
	return nil, false
}

// pickInRegion returns some value in the non-empty region r, preferring
// zero, then integers, then rationals, falling back to an algebraic
// endpoint for point regions.
func pickInRegion(r region) *algebraic.Num {
	if regionContainsZero(r) {
		return algebraic.FromInt64(0)
	}
	if n, ok := intInRegion(r); ok {
		return n
	}
	// Both bounds finite, no integer between them.
	if r.lo.Cmp(r.hi) == 0 {
		return r.lo
	}
	return algebraic.FromRat(algebraic.RatBetween(r.lo, r.hi))
}

// String renders the set for tracing.
func (s *Set) String() string {
	if s.IsEmpty() {
		return "{}"
	}
	var b strings.Builder
	for i, iv := range s.ivls {
		if i > 0 {
			b.WriteString(" u ")
		}
		if iv.LoOpen || iv.Lo == nil {
			b.WriteByte('(')
		} else {
			b.WriteByte('[')
		}
		if iv.Lo == nil {
			b.WriteString("-oo")
		} else {
			b.WriteString(iv.Lo.String())
		}
		b.WriteString(", ")
		if iv.Hi == nil {
			b.WriteString("+oo")
		} else {
			b.WriteString(iv.Hi.String())
		}
		if iv.HiOpen || iv.Hi == nil {
			b.WriteByte(')')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}
