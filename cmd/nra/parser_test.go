package nra_test

import (
	"context"
	"math/big"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nlarith/nlsat/cmd/nra"
	"github.com/nlarith/nlsat/pkg/nlsat"
)

func TestNra(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Nra Suite")
}

var _ = Describe("Problem parsing", func() {
	var s *nlsat.Solver

	BeforeEach(func() {
		var err error
		s, err = nlsat.New()
		Expect(err).NotTo(HaveOccurred())
	})

	It("should fail on a line without a relation", func() {
		_, err := nra.NewProblem(s, strings.NewReader("x + 1\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should fail on a duplicate declaration", func() {
		_, err := nra.NewProblem(s, strings.NewReader("real x\nint x\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should fail on unbalanced parentheses", func() {
		_, err := nra.NewProblem(s, strings.NewReader("(x + 1 > 0\n"))
		Expect(err).To(HaveOccurred())
	})

	It("should ignore comments and blank lines", func() {
		_, err := nra.NewProblem(s, strings.NewReader("# a comment\n\nx > 0\n"))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should solve a parsed system", func() {
		input := `
# circle with a slice removed
x^2 + y^2 < 1
x*y = 0
x >= 1/2
`
		p, err := nra.NewProblem(s, strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Names()).To(Equal([]string{"x", "y"}))

		r, err := s.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(nlsat.Sat))

		x := s.Value(p.Var("x"))
		y := s.Value(p.Var("y"))
		Expect(x.CmpRat(big.NewRat(1, 2))).To(BeNumerically(">=", 0))
		Expect(x.CmpRat(big.NewRat(1, 1))).To(BeNumerically("<", 0))
		Expect(y.Sign()).To(BeZero())
	})

	It("should respect integer declarations", func() {
		input := `
int n
3*n > 4
3*n < 7
`
		p, err := nra.NewProblem(s, strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())

		r, err := s.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(nlsat.Sat))
		Expect(s.Value(p.Var("n")).CmpRat(big.NewRat(2, 1))).To(BeZero())
	})

	It("should report unsat systems", func() {
		input := "x^2 < 0\n"
		_, err := nra.NewProblem(s, strings.NewReader(input))
		Expect(err).NotTo(HaveOccurred())

		r, err := s.Check(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(r).To(Equal(nlsat.Unsat))
	})
})
