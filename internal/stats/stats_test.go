package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

func TestSnapshot_Empty(t *testing.T) {
	snap := New().Snapshot()
	assert.Zero(t, snap.TotalEvaluated)
	assert.Zero(t, snap.SuccessRate)
	assert.Len(t, snap.TrickBreakdown, len(ir.TrickKinds))
}

func TestRecord_Buckets(t *testing.T) {
	s := New()
	s.Record(ir.TrickVerdict{IsRealFix: true})
	s.Record(ir.TrickVerdict{Trick: ir.TrickWhitelist})
	s.Record(ir.TrickVerdict{Trick: ir.TrickWhitelist})
	s.Record(ir.TrickVerdict{Trick: ir.TrickHardcodedResult})
	s.Record(ir.TrickVerdict{})
	s.Record(ir.TrickVerdict{EvalError: "panic: boom", Decision: ir.DecisionBlocked})

	snap := s.Snapshot()
	assert.Equal(t, int64(6), snap.TotalEvaluated)
	assert.Equal(t, int64(1), snap.RealFixes)
	assert.Equal(t, int64(3), snap.TricksDetected)
	assert.Equal(t, int64(2), snap.NoOps)
	assert.Equal(t, int64(1), snap.EvalErrors)
	assert.Equal(t, int64(2), snap.TrickBreakdown[ir.TrickWhitelist])
	assert.Equal(t, int64(1), snap.TrickBreakdown[ir.TrickHardcodedResult])
	assert.InDelta(t, 1.0/6.0, snap.SuccessRate, 1e-9)

	s.Reset()
	assert.Zero(t, s.Snapshot().TotalEvaluated)
}

func TestRecord_Concurrent(t *testing.T) {
	s := New()
	const workers, each = 16, 250
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				switch (w + i) % 3 {
				case 0:
					s.Record(ir.TrickVerdict{IsRealFix: true})
				case 1:
					s.Record(ir.TrickVerdict{Trick: ir.TrickKinds[i%len(ir.TrickKinds)]})
				default:
					s.Record(ir.TrickVerdict{})
				}
				snap := s.Snapshot()
				assert.Equal(t, snap.TotalEvaluated, snap.RealFixes+snap.TricksDetected+snap.NoOps)
			}
		}(w)
	}
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, int64(workers*each), snap.TotalEvaluated)
	var tricks int64
	for _, n := range snap.TrickBreakdown {
		tricks += n
	}
	assert.Equal(t, snap.TricksDetected, tricks)
}
