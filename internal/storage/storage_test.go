package storage

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/stats"
)

func sampleReport(id string, at time.Time) ir.Report {
	return ir.Report{
		ID:     id,
		Target: "settings.py",
		Score:  0.9,
		Findings: []ir.Finding{
			{ID: "REALITY-HARDCODED-SECRET-0000beef", Detector: "reality", Path: "settings.py", LineStart: 1, LineEnd: 1,
				RuleID: "REALITY-HARDCODED-SECRET", Severity: ir.SeverityHigh, Message: "secret", Confidence: 0.9},
			{ID: "PRECISION-LAZY-MARKER-0000cafe", Detector: "precision", Path: "settings.py", LineStart: 3, LineEnd: 3,
				RuleID: "PRECISION-LAZY-MARKER", Severity: ir.SeverityLow, Message: "todo", Confidence: 0.7},
		},
		SeverityBreakdown: map[ir.Severity]int{ir.SeverityHigh: 1, ir.SeverityLow: 1},
		RulesVersion:      "builtin-2",
		CreatedAt:         at,
	}
}

func openDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "rc.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.CreateSchema())
	return db
}

func TestDB_Reports(t *testing.T) {
	db := openDB(t)
	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r1 := sampleReport("r-1", t0)
	r2 := sampleReport("r-2", t0.Add(time.Minute))
	require.NoError(t, db.SaveReport(&r1))
	require.NoError(t, db.SaveReport(&r2))
	require.NoError(t, db.SaveReport(&r2)) // upsert

	rows, err := db.ListReports(10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "r-2", rows[0].ID)
	assert.Equal(t, 2, rows[0].Findings)
	assert.True(t, rows[1].CreatedAt.Equal(t0))

	got, err := db.LoadReport("r-1")
	require.NoError(t, err)
	assert.Equal(t, r1.Findings, got.Findings)

	_, err = db.LoadReport("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	high, err := db.ListFindings("r-1", ir.SeverityHigh)
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "REALITY-HARDCODED-SECRET", high[0].RuleID)

	all, err := db.ListFindings("r-1", ir.SeverityLow)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	ok, err := db.HasReport("r-2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDB_VerdictCounts(t *testing.T) {
	db := openDB(t)
	now := time.Now().UTC()
	for _, v := range []ir.TrickVerdict{
		{ProposalID: "a", Decision: ir.DecisionBlocked, Trick: ir.TrickWhitelist, EvaluatedAt: now},
		{ProposalID: "b", Decision: ir.DecisionBlocked, Trick: ir.TrickWhitelist, EvaluatedAt: now},
		{ProposalID: "c", Decision: ir.DecisionApproved, IsRealFix: true, TokenDelta: 5, EvaluatedAt: now},
		{ProposalID: "d", Decision: ir.DecisionRejected, EvaluatedAt: now},
	} {
		require.NoError(t, db.AppendVerdict(v))
	}
	vc, err := db.VerdictCounts()
	require.NoError(t, err)
	assert.Equal(t, int64(4), vc.Total)
	assert.Equal(t, int64(2), vc.ByDecision[ir.DecisionBlocked])
	assert.Equal(t, int64(2), vc.ByTrick[ir.TrickWhitelist])
	assert.Len(t, vc.ByTrick, 1)
}

func TestLedger_ReplayRebuildsStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger", "events.jsonl")
	l, err := OpenLedger(path)
	require.NoError(t, err)

	live := stats.New()
	verdicts := []ir.TrickVerdict{
		{ProposalID: "1", Path: "a.py", Decision: ir.DecisionApproved, IsRealFix: true},
		{ProposalID: "2", Path: "a.py", Decision: ir.DecisionBlocked, Trick: ir.TrickProjectedResults},
		{ProposalID: "3", Path: "b.py", Decision: ir.DecisionRejected},
		{ProposalID: "4", Path: "b.py", Decision: ir.DecisionBlocked, EvalError: "panic: x"},
	}
	var wg sync.WaitGroup
	for _, v := range verdicts {
		live.Record(v)
		wg.Add(1)
		go func(v ir.TrickVerdict) {
			defer wg.Done()
			assert.NoError(t, l.AppendVerdict(v))
		}(v)
	}
	wg.Wait()
	require.NoError(t, l.AppendReport(sampleReport("r-1", time.Now().UTC())))
	require.NoError(t, l.Close())

	replayed := stats.New()
	n, err := ReplayStats(path, replayed)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, live.Snapshot(), replayed.Snapshot())
}

func TestLedger_TornFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	l, err := OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.AppendVerdict(ir.TrickVerdict{ProposalID: "1", Decision: ir.DecisionApproved, IsRealFix: true}))
	require.NoError(t, l.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"timestamp":"2026-01-01T00:00:00Z","kind":"verd`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	st := stats.New()
	n, err := ReplayStats(path, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, int64(1), st.Snapshot().RealFixes)
}

func TestLedger_ReopenAfterTornWriteKeepsReplaying(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	l, err := OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.AppendVerdict(ir.TrickVerdict{ProposalID: "a", Decision: ir.DecisionApproved, IsRealFix: true}))
	require.NoError(t, l.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"timestamp":"2026-`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	n, err := ReplayStats(path, stats.New())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	l, err = OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.AppendVerdict(ir.TrickVerdict{ProposalID: "b", Decision: ir.DecisionBlocked, Trick: ir.TrickWhitelist}))
	require.NoError(t, l.Close())

	st := stats.New()
	n, err = ReplayStats(path, st)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	snap := st.Snapshot()
	assert.Equal(t, int64(2), snap.TotalEvaluated)
	assert.Equal(t, int64(1), snap.TricksDetected)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), `{"timestamp":"2026-{`)
}

func TestLedger_ReopenTerminatesCompleteFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	line := `{"timestamp":"2026-01-01T00:00:00Z","path":"a.py","kind":"verdict","verdict":{"proposal_id":"a","is_real_fix":true,"decision":"APPROVED","reason":"","token_delta":3,"evaluated_at":"2026-01-01T00:00:00Z"}}`
	require.NoError(t, os.WriteFile(path, []byte(line), 0o644))

	l, err := OpenLedger(path)
	require.NoError(t, err)
	require.NoError(t, l.AppendVerdict(ir.TrickVerdict{ProposalID: "b", Decision: ir.DecisionRejected}))
	require.NoError(t, l.Close())

	st := stats.New()
	n, err := ReplayStats(path, st)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(1), st.Snapshot().RealFixes)
}

func TestLedger_CorruptMiddleLineIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{bad\n{\"kind\":\"verdict\"}\n"), 0o644))
	_, err := Replay(path, func(Entry) error { return nil })
	assert.Error(t, err)

	n, err := Replay(filepath.Join(t.TempDir(), "absent.jsonl"), func(Entry) error { return nil })
	assert.NoError(t, err)
	assert.Zero(t, n)
}
