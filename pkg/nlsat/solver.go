package nlsat

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/nlarith/nlsat/internal/intervals"
	"github.com/nlarith/nlsat/pkg/algebraic"
	"github.com/nlarith/nlsat/pkg/poly"
)

// Solver is a nonlinear arithmetic satisfiability solver. It is not safe
// for concurrent use.
type Solver struct {
	logger *zap.Logger
	tracer Tracer
	pm     *poly.Manager
	rnd    *rand.Rand

	// options
	maxConflicts     uint64
	lazy             int
	simplifyCores    bool
	minimizeCores    bool
	doReorder        bool
	shuffleVars      bool
	randomizeWitness bool
	branchAndBound   bool
	checkLemmas      bool
	knownSolution    string
	explainer        Explainer
	seed             int64

	// arithmetic variables
	isInt    []bool
	varNames []string

	// Boolean variables and atoms
	atoms     []Atom
	dead      []bool
	bvalues   []LBool
	levels    []uint32
	justs     []justification
	bwatches  [][]*clause
	ineqTable map[string]*IneqAtom
	rootTable map[string]*RootAtom

	// per arithmetic variable state
	assignment []*algebraic.Num
	infeasible []*intervals.Set
	var2eq     []*IneqAtom
	watches    [][]*clause

	clauses []*clause
	learned []*clause
	valids  []*clause

	trail    []trailEntry
	scopeLvl uint32
	bk       BoolVar // next pure Boolean variable to branch on
	xk       int32   // current stage variable, -1 before the first stage

	// conflict resolution scratch
	marks      []bool
	numMarks   int
	lemma      []Lit
	lazyClause []Lit
	lemmaAsms  []Lit

	core             []Lit // last unsat core
	stats            Stats
	ctx              context.Context
	nextLog          uint64
	restartThreshold uint64
	reordered        bool
	perm             []poly.Var // internal variable -> external position
	invPerm          []poly.Var // external position -> internal variable
	cid              uint32
}

type jstKind uint8

const (
	jstNull jstKind = iota
	jstDecision
	jstClause
	jstLazy
)

type justification struct {
	kind jstKind
	cls  *clause
	lazy *lazyJst
}

// lazyJst records that the conjunction of lits is infeasible for the
// stage variable under the lower-stage assignment in effect when the
// propagation happened. The full explanation is only computed if the
// justification is pulled into conflict resolution.
type lazyJst struct {
	lits    []Lit
	clauses []*clause
}

// New builds a solver. The zero configuration follows the defaults slice;
// options may override any of it.
func New(options ...Option) (*Solver, error) {
	s := &Solver{
		pm:               poly.NewManager(),
		maxConflicts:     ^uint64(0),
		simplifyCores:    true,
		branchAndBound:   true,
		restartThreshold: 10000,
		xk:               -1,
	}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	s.rnd = rand.New(rand.NewSource(s.seed))
	// Boolean variable 0 is fixed to true by a unit clause.
	s.newBoolVarCore()
	s.mkClause([]Lit{LitTrue}, false, nil)
	return s, nil
}

// Option configures a Solver at construction time.
type Option func(s *Solver) error

var defaults = []Option{
	func(s *Solver) error {
		if s.logger == nil {
			s.logger = zap.NewNop()
		}
		return nil
	},
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = DefaultTracer{}
		}
		return nil
	},
	func(s *Solver) error {
		if s.explainer == nil {
			s.explainer = CellExplainer{}
		}
		return nil
	},
}

// WithLogger sets the structured logger used for progress and lemma
// diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) error {
		s.logger = l
		return nil
	}
}

// WithTracer installs a search tracer.
func WithTracer(t Tracer) Option {
	return func(s *Solver) error {
		s.tracer = t
		return nil
	}
}

// WithExplainer replaces the conflict explanation oracle.
func WithExplainer(e Explainer) Option {
	return func(s *Solver) error {
		s.explainer = e
		return nil
	}
}

// WithMaxConflicts bounds the search; Check returns Unknown once the
// bound is reached.
func WithMaxConflicts(n uint64) Option {
	return func(s *Solver) error {
		s.maxConflicts = n
		return nil
	}
}

// WithLazy controls how eagerly lemmas are satisfied during the search:
// 0 satisfies all clauses, 1 delays learned clauses, 2 ignores them
// unless they participate in a conflict.
func WithLazy(level int) Option {
	return func(s *Solver) error {
		s.lazy = level
		return nil
	}
}

// WithSimplifyCores toggles tracking of defining equalities per variable.
func WithSimplifyCores(b bool) Option {
	return func(s *Solver) error {
		s.simplifyCores = b
		return nil
	}
}

// WithMinimizeCores shrinks the unsat core returned by CheckAssuming by
// re-checking with individual assumptions removed.
func WithMinimizeCores(b bool) Option {
	return func(s *Solver) error {
		s.minimizeCores = b
		return nil
	}
}

// WithReorder enables the degree-based variable reordering heuristic,
// applied at the start of Check and periodically on restarts.
func WithReorder(b bool) Option {
	return func(s *Solver) error {
		s.doReorder = b
		return nil
	}
}

// WithShuffleVars randomly permutes the variable order instead of using
// the reorder heuristic.
func WithShuffleVars(b bool) Option {
	return func(s *Solver) error {
		s.shuffleVars = b
		return nil
	}
}

// WithRandomSeed seeds witness selection and shuffling.
func WithRandomSeed(seed int64) Option {
	return func(s *Solver) error {
		s.seed = seed
		return nil
	}
}

// WithRandomizeWitness randomizes the choice among feasible regions when
// selecting a witness value.
func WithRandomizeWitness(b bool) Option {
	return func(s *Solver) error {
		s.randomizeWitness = b
		return nil
	}
}

// WithBranchAndBound toggles integer branch and bound.
func WithBranchAndBound(b bool) Option {
	return func(s *Solver) error {
		s.branchAndBound = b
		return nil
	}
}

// WithCheckLemmas re-derives every lemma with a fresh solver instance and
// reports unsound ones through the logger. Very expensive; debugging only.
func WithCheckLemmas(b bool) Option {
	return func(s *Solver) error {
		s.checkLemmas = b
		return nil
	}
}

// WithKnownSolutionFile points at a "name value" file holding a known
// satisfying assignment; every lemma is checked against it. Debugging
// only.
func WithKnownSolutionFile(path string) Option {
	return func(s *Solver) error {
		s.knownSolution = path
		return nil
	}
}

// PolyManager exposes the polynomial manager used to build constraints
// for this solver.
func (s *Solver) PolyManager() *poly.Manager { return s.pm }

// MkVar allocates a new arithmetic variable. Integer variables are
// subject to branch and bound.
func (s *Solver) MkVar(isInt bool) poly.Var {
	x := s.pm.MkVar()
	s.isInt = append(s.isInt, isInt)
	s.varNames = append(s.varNames, "")
	s.assignment = append(s.assignment, nil)
	s.infeasible = append(s.infeasible, intervals.Empty())
	s.var2eq = append(s.var2eq, nil)
	s.watches = append(s.watches, nil)
	return x
}

// SetVarName attaches a display name to x, used in traces and the known
// solution file.
func (s *Solver) SetVarName(x poly.Var, name string) {
	s.varNames[x] = name
}

// VarName returns the display name of x.
func (s *Solver) VarName(x poly.Var) string {
	if n := s.varNames[x]; n != "" {
		return n
	}
	return fmt.Sprintf("x%d", x)
}

func (s *Solver) newBoolVarCore() BoolVar {
	b := BoolVar(len(s.atoms))
	s.atoms = append(s.atoms, nil)
	s.dead = append(s.dead, false)
	s.bvalues = append(s.bvalues, LUndef)
	s.levels = append(s.levels, 0)
	s.justs = append(s.justs, justification{})
	s.bwatches = append(s.bwatches, nil)
	s.marks = append(s.marks, false)
	return b
}

// MkBoolVar allocates a fresh pure Boolean variable.
func (s *Solver) MkBoolVar() BoolVar {
	return s.newBoolVarCore()
}

// NumVars returns the number of arithmetic variables.
func (s *Solver) NumVars() int { return len(s.isInt) }

// IsInt reports whether x is an integer variable.
func (s *Solver) IsInt(x poly.Var) bool { return s.isInt[x] }

// Value returns the model value of x after a Sat result.
func (s *Solver) Value(x poly.Var) *algebraic.Num { return s.assignment[x] }

// BoolValue returns the model value of b after a Sat result.
func (s *Solver) BoolValue(b BoolVar) LBool { return s.bvalues[b] }

// UnsatCore returns the subset of the assumption literals of the last
// CheckAssuming call that was used to derive unsatisfiability.
func (s *Solver) UnsatCore() []Lit { return s.core }
