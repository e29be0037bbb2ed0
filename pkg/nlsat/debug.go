package nlsat

import (
	"bufio"
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/algebraic"
	"github.com/nlarith/nlsat/pkg/poly"
)

// checkLemma re-derives a lemma independently and reports unsound ones
// through the logger. A valid lemma must hold for all real values; a
// consequence lemma must be implied by the input clauses. When a known
// solution file is configured the lemma is instead evaluated against
// that assignment.
func (s *Solver) checkLemma(lits []Lit, isValid bool) {
	if s.knownSolution != "" {
		s.checkLemmaKnownSolution(lits)
		return
	}
	checker := s.newChecker()
	tr := make([]BoolVar, len(s.atoms))
	for b := 1; b < len(s.atoms); b++ {
		switch a := s.atoms[b].(type) {
		case nil:
			tr[b] = checker.MkBoolVar()
		case *IneqAtom:
			ps := make([]*poly.Poly, a.NumFactors())
			even := make([]bool, a.NumFactors())
			for i := range ps {
				ps[i] = a.Factor(i)
				even[i] = a.IsEven(i)
			}
			tr[b] = checker.MkIneqAtom(a.kind, ps, even)
		case *RootAtom:
			if a.x >= s.pm.MaxVar(a.p) {
				tr[b] = checker.MkRootAtom(a.kind, a.x, a.index, a.p)
			}
		}
	}
	if !isValid {
		for _, c := range s.clauses {
			if len(c.asms) > 0 {
				continue
			}
			cl := make([]Lit, len(c.lits))
			for i, l := range c.lits {
				cl[i] = MkLit(tr[l.Var()], l.Sign())
			}
			checker.AddClause(cl...)
		}
	}
	for _, l := range lits {
		checker.AddClause(MkLit(tr[l.Var()], !l.Sign()))
	}
	r, err := checker.Check(context.Background())
	switch {
	case err != nil:
		s.logger.Warn("lemma check inconclusive",
			zap.String("lemma", s.litsString(lits)), zap.Error(err))
	case r == Sat:
		s.logger.Error("unsound lemma",
			zap.String("lemma", s.litsString(lits)), zap.Bool("valid", isValid))
	}
}

// newChecker builds an independent solver over the same polynomial
// manager and variables, with lemma checking off.
func (s *Solver) newChecker() *Solver {
	c, err := New(WithLogger(s.logger))
	if err != nil {
		panic(err)
	}
	c.pm = s.pm
	for x := 0; x < s.NumVars(); x++ {
		c.isInt = append(c.isInt, s.isInt[x])
		c.varNames = append(c.varNames, s.varNames[x])
		c.assignment = append(c.assignment, nil)
		c.infeasible = append(c.infeasible, intervals.Empty())
		c.var2eq = append(c.var2eq, nil)
		c.watches = append(c.watches, nil)
	}
	return c
}

// checkLemmaKnownSolution evaluates the lemma against the assignment
// from the known solution file: at least one literal must hold. Lemmas
// with pure Boolean literals are ignored.
func (s *Solver) checkLemmaKnownSolution(lits []Lit) {
	vals, err := parseKnownSolution(s.knownSolution)
	if err != nil {
		s.logger.Warn("cannot read known solution", zap.Error(err))
		return
	}
	saved := s.assignment
	s.assignment = make([]*algebraic.Num, s.NumVars())
	defer func() { s.assignment = saved }()
	for x := 0; x < s.NumVars(); x++ {
		if v, ok := vals[s.VarName(poly.Var(x))]; ok {
			s.assignment[x] = algebraic.FromRat(v)
		}
	}
	for _, l := range lits {
		a := s.atoms[l.Var()]
		if a == nil {
			return
		}
		if s.assignment[a.MaxVar()] == nil {
			s.logger.Warn("known solution leaves lemma variable unassigned",
				zap.String("var", s.VarName(a.MaxVar())))
			return
		}
		holds, err := s.evalAtom(a, l.Sign())
		if err != nil {
			s.logger.Warn("lemma check inconclusive", zap.Error(err))
			return
		}
		if holds {
			return
		}
	}
	s.logger.Error("lemma violated by known solution",
		zap.String("lemma", s.litsString(lits)))
}

// parseKnownSolution reads "name value" lines; value is an integer or a
// p/q fraction.
func parseKnownSolution(path string) (map[string]*big.Rat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vals := map[string]*big.Rat{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("nlsat: malformed solution line %q", line)
		}
		r, ok := new(big.Rat).SetString(fields[1])
		if !ok {
			return nil, fmt.Errorf("nlsat: malformed value %q", fields[1])
		}
		vals[fields[0]] = r
	}
	return vals, sc.Err()
}

// litsString renders a clause for diagnostics.
func (s *Solver) litsString(lits []Lit) string {
	var sb strings.Builder
	for i, l := range lits {
		if i > 0 {
			sb.WriteString(" or ")
		}
		sb.WriteString(s.LitString(l))
	}
	return sb.String()
}

// LitString renders a literal using the variable display names.
func (s *Solver) LitString(l Lit) string {
	var sb strings.Builder
	if l.Sign() {
		sb.WriteString("!")
	}
	name := func(x poly.Var) string { return s.VarName(x) }
	switch a := s.atoms[l.Var()].(type) {
	case *IneqAtom:
		for i := 0; i < a.NumFactors(); i++ {
			if i > 0 {
				sb.WriteString("*")
			}
			fmt.Fprintf(&sb, "(%s)", s.pm.Format(a.Factor(i), name))
			if a.IsEven(i) {
				sb.WriteString("^2")
			}
		}
		fmt.Fprintf(&sb, " %s 0", a.kind)
	case *RootAtom:
		fmt.Fprintf(&sb, "%s %s root[%d](%s)", s.VarName(a.x), a.kind, a.index,
			s.pm.Format(a.p, name))
	default:
		fmt.Fprintf(&sb, "b%d", l.Var())
	}
	return sb.String()
}
