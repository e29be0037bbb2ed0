package nlsat

import (
	"fmt"
	"io"
)

// Tracer observes the search. Implementations must be cheap when idle;
// the solver calls them on every decision and conflict.
type Tracer interface {
	Decision(l Lit)
	Witness(x int, value string)
	Conflict(lits []Lit)
	Lemma(lits []Lit)
	Backjump(level uint32, stage int32)
}

// DefaultTracer ignores all events.
type DefaultTracer struct{}

func (DefaultTracer) Decision(Lit)           {}
func (DefaultTracer) Witness(int, string)    {}
func (DefaultTracer) Conflict([]Lit)         {}
func (DefaultTracer) Lemma([]Lit)            {}
func (DefaultTracer) Backjump(uint32, int32) {}

// LoggingTracer writes a line per event, mostly useful in tests and when
// reproducing solver runs.
type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Decision(l Lit) {
	fmt.Fprintf(t.Writer, "decide %d\n", l)
}

func (t LoggingTracer) Witness(x int, value string) {
	fmt.Fprintf(t.Writer, "witness x%d = %s\n", x, value)
}

func (t LoggingTracer) Conflict(lits []Lit) {
	fmt.Fprintf(t.Writer, "conflict %v\n", lits)
}

func (t LoggingTracer) Lemma(lits []Lit) {
	fmt.Fprintf(t.Writer, "lemma %v\n", lits)
}

func (t LoggingTracer) Backjump(level uint32, stage int32) {
	fmt.Fprintf(t.Writer, "backjump level=%d stage=%d\n", level, stage)
}
