package nra

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strings"
	"unicode"

	"github.com/nlarith/nlsat/pkg/nlsat"
	"github.com/nlarith/nlsat/pkg/poly"
)

// Problem is a conjunction of polynomial constraints parsed from a
// textual description. Each input line is either a comment (starting
// with #), a variable declaration ("int x" or "real y"), or a
// constraint of the form <expr> <rel> <expr> with rel one of
// <, <=, >, >=, =, !=. Variables used without a declaration are real.
type Problem struct {
	solver *nlsat.Solver
	pm     *poly.Manager
	vars   map[string]poly.Var
	names  []string
}

// NewProblem parses the constraint stream and asserts every constraint
// on the given solver.
func NewProblem(s *nlsat.Solver, r io.Reader) (*Problem, error) {
	p := &Problem{
		solver: s,
		pm:     s.PolyManager(),
		vars:   map[string]poly.Var{},
	}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading constraints: %w", err)
	}
	return p, nil
}

// Names returns the declared variable names in declaration order.
func (p *Problem) Names() []string { return p.names }

// Var returns the solver variable for a name.
func (p *Problem) Var(name string) poly.Var { return p.vars[name] }

func (p *Problem) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 2 && (fields[0] == "int" || fields[0] == "real") {
		return p.declare(fields[1], fields[0] == "int")
	}
	return p.parseConstraint(line)
}

func (p *Problem) declare(name string, isInt bool) error {
	if !validName(name) {
		return fmt.Errorf("invalid variable name %q", name)
	}
	if _, ok := p.vars[name]; ok {
		return fmt.Errorf("variable %q already declared", name)
	}
	x := p.solver.MkVar(isInt)
	p.solver.SetVarName(x, name)
	p.vars[name] = x
	p.names = append(p.names, name)
	return nil
}

func (p *Problem) lookup(name string) (poly.Var, error) {
	if x, ok := p.vars[name]; ok {
		return x, nil
	}
	if err := p.declare(name, false); err != nil {
		return 0, err
	}
	return p.vars[name], nil
}

func validName(name string) bool {
	for i, r := range name {
		if unicode.IsLetter(r) || r == '_' || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return len(name) > 0
}

func (p *Problem) parseConstraint(line string) error {
	rel, pos := findRelation(line)
	if rel == "" {
		return fmt.Errorf("no relation operator in %q", line)
	}
	lhs, err := p.parseExpr(line[:pos])
	if err != nil {
		return err
	}
	rhs, err := p.parseExpr(line[pos+len(rel):])
	if err != nil {
		return err
	}
	diff := p.pm.Sub(lhs, rhs)

	var lit nlsat.Lit
	switch rel {
	case "<":
		lit = p.solver.MkIneqLiteral(nlsat.AtomLT, []*poly.Poly{diff}, []bool{false})
	case ">":
		lit = p.solver.MkIneqLiteral(nlsat.AtomGT, []*poly.Poly{diff}, []bool{false})
	case "=", "==":
		lit = p.solver.MkIneqLiteral(nlsat.AtomEQ, []*poly.Poly{diff}, []bool{false})
	case "<=":
		lit = p.solver.MkIneqLiteral(nlsat.AtomGT, []*poly.Poly{diff}, []bool{false}).Neg()
	case ">=":
		lit = p.solver.MkIneqLiteral(nlsat.AtomLT, []*poly.Poly{diff}, []bool{false}).Neg()
	case "!=":
		lit = p.solver.MkIneqLiteral(nlsat.AtomEQ, []*poly.Poly{diff}, []bool{false}).Neg()
	default:
		return fmt.Errorf("unsupported relation %q", rel)
	}
	p.solver.AddClause(lit)
	return nil
}

// findRelation locates the relation operator outside any parentheses,
// preferring two-character operators.
func findRelation(line string) (string, int) {
	depth := 0
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
		case '<', '>', '=', '!':
			if depth != 0 {
				continue
			}
			if i+1 < len(line) && line[i+1] == '=' {
				return line[i : i+2], i
			}
			if line[i] == '!' {
				return "", 0
			}
			return line[i : i+1], i
		}
	}
	return "", 0
}

// expression parsing

type exprParser struct {
	p     *Problem
	input string
	pos   int
}

func (p *Problem) parseExpr(s string) (*poly.Poly, error) {
	ep := &exprParser{p: p, input: s}
	e, err := ep.sum()
	if err != nil {
		return nil, err
	}
	ep.skipSpace()
	if ep.pos != len(ep.input) {
		return nil, fmt.Errorf("unexpected %q in expression %q", ep.input[ep.pos:], s)
	}
	return e, nil
}

func (e *exprParser) skipSpace() {
	for e.pos < len(e.input) && e.input[e.pos] == ' ' {
		e.pos++
	}
}

func (e *exprParser) peek() byte {
	e.skipSpace()
	if e.pos >= len(e.input) {
		return 0
	}
	return e.input[e.pos]
}

func (e *exprParser) sum() (*poly.Poly, error) {
	acc, err := e.product()
	if err != nil {
		return nil, err
	}
	for {
		switch e.peek() {
		case '+':
			e.pos++
			q, err := e.product()
			if err != nil {
				return nil, err
			}
			acc = e.p.pm.Add(acc, q)
		case '-':
			e.pos++
			q, err := e.product()
			if err != nil {
				return nil, err
			}
			acc = e.p.pm.Sub(acc, q)
		default:
			return acc, nil
		}
	}
}

func (e *exprParser) product() (*poly.Poly, error) {
	acc, err := e.power()
	if err != nil {
		return nil, err
	}
	for e.peek() == '*' {
		e.pos++
		q, err := e.power()
		if err != nil {
			return nil, err
		}
		acc = e.p.pm.Mul(acc, q)
	}
	return acc, nil
}

func (e *exprParser) power() (*poly.Poly, error) {
	base, err := e.atom()
	if err != nil {
		return nil, err
	}
	if e.peek() != '^' {
		return base, nil
	}
	e.pos++
	e.skipSpace()
	start := e.pos
	for e.pos < len(e.input) && e.input[e.pos] >= '0' && e.input[e.pos] <= '9' {
		e.pos++
	}
	if start == e.pos {
		return nil, fmt.Errorf("exponent must be a natural number")
	}
	n := 0
	for _, c := range e.input[start:e.pos] {
		n = n*10 + int(c-'0')
	}
	acc := e.p.pm.Int(1)
	for i := 0; i < n; i++ {
		acc = e.p.pm.Mul(acc, base)
	}
	return acc, nil
}

func (e *exprParser) atom() (*poly.Poly, error) {
	c := e.peek()
	switch {
	case c == '(':
		e.pos++
		inner, err := e.sum()
		if err != nil {
			return nil, err
		}
		if e.peek() != ')' {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		e.pos++
		return inner, nil
	case c == '-':
		e.pos++
		inner, err := e.atom()
		if err != nil {
			return nil, err
		}
		return e.p.pm.MulConst(big.NewRat(-1, 1), inner), nil
	case c >= '0' && c <= '9':
		start := e.pos
		for e.pos < len(e.input) && (e.input[e.pos] >= '0' && e.input[e.pos] <= '9' || e.input[e.pos] == '/') {
			e.pos++
		}
		r, ok := new(big.Rat).SetString(e.input[start:e.pos])
		if !ok {
			return nil, fmt.Errorf("invalid number %q", e.input[start:e.pos])
		}
		return e.p.pm.Const(r), nil
	case unicode.IsLetter(rune(c)) || c == '_':
		start := e.pos
		for e.pos < len(e.input) {
			r := rune(e.input[e.pos])
			if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
				break
			}
			e.pos++
		}
		x, err := e.p.lookup(e.input[start:e.pos])
		if err != nil {
			return nil, err
		}
		return e.p.pm.VarPoly(x), nil
	case c == 0:
		return nil, fmt.Errorf("unexpected end of expression")
	default:
		return nil, fmt.Errorf("unexpected character %q", string(c))
	}
}
