package nlsat

import "go.uber.org/zap"

// Stats counts search events since the last Check call.
type Stats struct {
	Conflicts           uint64
	Propagations        uint64
	Decisions           uint64
	Stages              uint64
	Restarts            uint64
	IrrationalWitnesses uint64
}

// Stats returns a snapshot of the search counters.
func (s *Solver) Stats() Stats { return s.stats }

// log emits a progress line every 100 conflicts.
func (s *Solver) log() {
	if s.stats.Conflicts != 1 && s.stats.Conflicts < s.nextLog {
		return
	}
	s.nextLog += 100
	s.logger.Debug("search progress",
		zap.Uint64("conflicts", s.stats.Conflicts),
		zap.Uint64("decisions", s.stats.Decisions),
		zap.Uint64("propagations", s.stats.Propagations),
		zap.Int("clauses", len(s.clauses)),
		zap.Int("learned", len(s.learned)))
}
