package e2e

import (
	"context"
	"math/big"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nlarith/nlsat/pkg/nlsat"
	"github.com/nlarith/nlsat/pkg/poly"
)

// lt builds the literal "p < 0" over a single factor.
func lt(s *nlsat.Solver, p *poly.Poly) nlsat.Lit {
	return s.MkIneqLiteral(nlsat.AtomLT, []*poly.Poly{p}, []bool{false})
}

func gt(s *nlsat.Solver, p *poly.Poly) nlsat.Lit {
	return s.MkIneqLiteral(nlsat.AtomGT, []*poly.Poly{p}, []bool{false})
}

func eq(s *nlsat.Solver, p *poly.Poly) nlsat.Lit {
	return s.MkIneqLiteral(nlsat.AtomEQ, []*poly.Poly{p}, []bool{false})
}

var _ = Describe("Nonlinear arithmetic solving", func() {
	var (
		s   *nlsat.Solver
		pm  *poly.Manager
		ctx context.Context
	)

	BeforeEach(func() {
		var err error
		s, err = nlsat.New()
		Expect(err).NotTo(HaveOccurred())
		pm = s.PolyManager()
		ctx = context.Background()
	})

	When("constraints describe the open unit disk", func() {
		It("finds a point inside it", func() {
			x := s.MkVar(false)
			y := s.MkVar(false)
			disk := pm.Sub(
				pm.Add(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Mul(pm.VarPoly(y), pm.VarPoly(y))),
				pm.Int(1))
			s.AddClause(lt(s, disk))

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Sat))

			one := big.NewRat(1, 1)
			for _, v := range []poly.Var{x, y} {
				lo, hi := s.Value(v).Approx(big.NewRat(1, 1<<20))
				Expect(lo.Cmp(new(big.Rat).Neg(one))).To(BeNumerically(">", 0))
				Expect(hi.Cmp(one)).To(BeNumerically("<", 0))
			}
		})
	})

	When("the feasible region degenerates to an algebraic point", func() {
		It("produces the irrational witness", func() {
			x := s.MkVar(false)
			sq := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
			s.AddClause(eq(s, sq))
			s.AddClause(gt(s, pm.VarPoly(x)))

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Sat))

			v := s.Value(x)
			Expect(v.IsRational()).To(BeFalse())
			Expect(v.CmpRat(big.NewRat(141421, 100000))).To(BeNumerically(">", 0))
			Expect(v.CmpRat(big.NewRat(141422, 100000))).To(BeNumerically("<", 0))
			Expect(s.Stats().IrrationalWitnesses).To(BeNumerically(">", 0))
		})
	})

	When("every real choice leads to a conflict at a later stage", func() {
		It("backtracks across stages and reports unsat", func() {
			x := s.MkVar(false)
			y := s.MkVar(false)
			choice := pm.Mul(
				pm.Sub(pm.VarPoly(x), pm.Int(1)),
				pm.Sub(pm.VarPoly(x), pm.Int(2)))
			s.AddClause(eq(s, choice))
			s.AddClause(eq(s, pm.Mul(pm.VarPoly(x), pm.VarPoly(y))))
			s.AddClause(gt(s, pm.VarPoly(y)))

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Unsat))
			Expect(s.Stats().Conflicts).To(BeNumerically(">", 0))
		})
	})

	When("an integer variable is constrained to an irrational value", func() {
		It("cuts off both candidates and reports unsat", func() {
			x := s.MkVar(true)
			sq := pm.Sub(pm.Mul(pm.VarPoly(x), pm.VarPoly(x)), pm.Int(2))
			s.AddClause(eq(s, sq))

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Unsat))
		})
	})

	When("assumptions contradict each other", func() {
		It("reports the contradicting subset as the core", func() {
			x := s.MkVar(false)
			y := s.MkVar(false)
			a1 := gt(s, pm.VarPoly(x))
			a2 := lt(s, pm.VarPoly(x))
			a3 := gt(s, pm.VarPoly(y))

			r, err := s.CheckAssuming(ctx, a1, a2, a3)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Unsat))
			Expect(s.UnsatCore()).To(ConsistOf(a1, a2))

			By("leaving the solver reusable after the assumption check")
			r, err = s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Sat))
		})
	})

	When("Boolean structure gates the arithmetic constraints", func() {
		It("assigns the Boolean skeleton consistently with the theory", func() {
			b := s.MkBoolVar()
			x := s.MkVar(false)
			above := gt(s, pm.Sub(pm.VarPoly(x), pm.Int(10)))
			below := lt(s, pm.VarPoly(x))
			s.AddClause(nlsat.MkLit(b, true), above)
			s.AddClause(nlsat.MkLit(b, false), below)

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Sat))

			switch s.BoolValue(b) {
			case nlsat.LTrue:
				Expect(s.Value(x).CmpRat(big.NewRat(10, 1))).To(BeNumerically(">", 0))
			case nlsat.LFalse:
				Expect(s.Value(x).Sign()).To(BeNumerically("<", 0))
			default:
				Fail("gating variable left unassigned")
			}
		})
	})

	When("the check context is canceled", func() {
		It("surfaces the cancellation and stays usable", func() {
			x := s.MkVar(false)
			s.AddClause(gt(s, pm.VarPoly(x)))

			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Check(canceled)
			Expect(err).To(MatchError(nlsat.ErrCanceled))

			r, err := s.Check(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(r).To(Equal(nlsat.Sat))
		})
	})
})
