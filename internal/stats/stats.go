// Package stats keeps the running manipulation statistics of the gate.
package stats

import (
	"sync/atomic"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

// Snapshot is a consistent view of the counters.
// TotalEvaluated always equals RealFixes + TricksDetected + NoOps.
type Snapshot struct {
	TotalEvaluated int64                  `json:"total_evaluated"`
	RealFixes      int64                  `json:"real_fixes"`
	TricksDetected int64                  `json:"tricks_detected"`
	TrickBreakdown map[ir.TrickKind]int64 `json:"trick_breakdown"`
	NoOps          int64                  `json:"no_ops"`
	EvalErrors     int64                  `json:"eval_errors"` // subset of NoOps
	SuccessRate    float64                `json:"success_rate"`
}

// counters is never mutated once published.
type counters struct {
	total, real, tricks, noops, evalErrors int64
	byTrick                                [7]int64
}

// Stats is safe for concurrent use. Writers copy the current counters,
// apply their change and swap the copy in with compare-and-swap.
type Stats struct {
	p atomic.Pointer[counters]
}

func New() *Stats {
	s := &Stats{}
	s.p.Store(&counters{})
	return s
}

// Record counts one verdict. Verdicts that failed evaluation are counted as
// no-ops and as evaluation errors.
func (s *Stats) Record(v ir.TrickVerdict) {
	s.update(func(c *counters) {
		c.total++
		switch {
		case v.EvalError != "":
			c.noops++
			c.evalErrors++
		case v.HasTrick():
			c.tricks++
			if i := v.Trick.Index(); i >= 0 {
				c.byTrick[i]++
			}
		case v.IsRealFix:
			c.real++
		default:
			c.noops++
		}
	})
}

func (s *Stats) update(fn func(*counters)) {
	for {
		cur := s.p.Load()
		next := *cur
		fn(&next)
		if s.p.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// Reset zeroes every counter.
func (s *Stats) Reset() { s.p.Store(&counters{}) }

func (s *Stats) Snapshot() Snapshot {
	c := s.p.Load()
	snap := Snapshot{
		TotalEvaluated: c.total,
		RealFixes:      c.real,
		TricksDetected: c.tricks,
		TrickBreakdown: make(map[ir.TrickKind]int64, len(ir.TrickKinds)),
		NoOps:          c.noops,
		EvalErrors:     c.evalErrors,
	}
	for i, k := range ir.TrickKinds {
		snap.TrickBreakdown[k] = c.byTrick[i]
	}
	if c.total > 0 {
		snap.SuccessRate = float64(c.real) / float64(c.total)
	}
	return snap
}
