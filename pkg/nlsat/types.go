// Package nlsat implements a model-constructing satisfiability solver for
// quantifier-free nonlinear real arithmetic. Problems are Boolean
// combinations of polynomial constraints; the solver interleaves Boolean
// search with the incremental construction of a real (possibly algebraic)
// assignment, learning clauses from both kinds of conflicts.
package nlsat

import "errors"

// BoolVar identifies a Boolean variable. Variable 0 is reserved and fixed
// to true.
type BoolVar int32

// NullBoolVar marks the absence of a Boolean variable.
const NullBoolVar BoolVar = -1

// Lit is a literal: a Boolean variable with a sign. Even codes are
// positive occurrences, odd codes negated ones.
type Lit uint32

// MkLit builds a literal from a variable and a sign.
func MkLit(b BoolVar, neg bool) Lit {
	l := Lit(b) << 1
	if neg {
		l |= 1
	}
	return l
}

// Var returns the literal's Boolean variable.
func (l Lit) Var() BoolVar { return BoolVar(l >> 1) }

// Sign reports whether the literal is negated.
func (l Lit) Sign() bool { return l&1 == 1 }

// Neg returns the complement literal.
func (l Lit) Neg() Lit { return l ^ 1 }

// LitTrue is the literal fixed to true, LitFalse its complement.
const (
	LitTrue  Lit = 0
	LitFalse Lit = 1
)

// LBool is a three-valued truth value.
type LBool int8

const (
	LFalse LBool = -1
	LUndef LBool = 0
	LTrue  LBool = 1
)

func (v LBool) Neg() LBool { return -v }

func (v LBool) String() string {
	switch v {
	case LTrue:
		return "true"
	case LFalse:
		return "false"
	default:
		return "undef"
	}
}

func toLBool(b bool) LBool {
	if b {
		return LTrue
	}
	return LFalse
}

// Result is the outcome of a Check call.
type Result int8

const (
	Unsat   Result = -1
	Unknown Result = 0
	Sat     Result = 1
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// ErrUnsupportedAlgebra is returned when a sign condition cannot be
// decided exactly, e.g. a polynomial that may vanish at a point with two
// or more irrational coordinates. The solver returns this error rather
// than guessing.
var ErrUnsupportedAlgebra = errors.New("cannot decide sign over the current algebraic assignment")

// ErrCanceled is returned when the context passed to Check is canceled
// before the search finishes.
var ErrCanceled = errors.New("check canceled")
