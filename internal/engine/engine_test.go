package engine

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/shared"
	"github.com/Bharath-kolekar/cogone-sub001/internal/storage"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) shared.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := shared.DefaultConfig()
	cfg.Storage.Ledger = filepath.Join(dir, "ledger.jsonl")
	cfg.Storage.DSN = filepath.Join(dir, "rc.db")
	return cfg
}

func TestEngine_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	e, err := Open(cfg, quiet)
	require.NoError(t, err)
	ctx := context.Background()

	rep, err := e.ScanFile(ctx, `SECRET_KEY = "abc123"`+"\n", "settings.py", ir.ContextProduction)
	require.NoError(t, err)
	require.Len(t, rep.Findings, 1)
	assert.Less(t, rep.Score, 1.0)

	for _, p := range []ir.ChangeProposal{
		{Path: "calc.py", OldCode: "return 0.0  # placeholder", NewCode: "\"\"\"REAL IMPLEMENTATION\"\"\"\nreturn 0.0"},
		{Path: "ci.py", OldCode: "check_all(files)", NewCode: `check_all(files, exclude=["x.py"])`},
		{Path: "calc.py", OldCode: "return 0.0", NewCode: "return compute_average(samples)"},
	} {
		_, err := e.EvaluateChange(ctx, p)
		require.NoError(t, err)
	}
	snap := e.ManipulationReport()
	assert.Equal(t, int64(3), snap.TotalEvaluated)
	assert.Equal(t, int64(1), snap.RealFixes)
	assert.Equal(t, int64(2), snap.TricksDetected)

	rows, err := e.ListReports(10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, rep.ID, rows[0].ID)

	got, err := e.LoadReport(rep.ID)
	require.NoError(t, err)
	assert.Equal(t, rep.Findings, got.Findings)

	high, err := e.ListFindings(rep.ID, ir.SeverityHigh)
	require.NoError(t, err)
	assert.Len(t, high, 1)

	vc, err := e.VerdictCounts()
	require.NoError(t, err)
	assert.Equal(t, int64(3), vc.Total)
	assert.Equal(t, int64(1), vc.ByDecision[ir.DecisionApproved])

	require.NoError(t, e.Close())

	// statistics survive a restart through the ledger
	e2, err := Open(cfg, quiet)
	require.NoError(t, err)
	defer e2.Close()
	assert.Equal(t, snap, e2.ManipulationReport())
}

func TestEngine_ScanChange(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.DSN = ""
	e, err := Open(cfg, quiet)
	require.NoError(t, err)
	defer e.Close()

	old := "def score(xs):\n    return sum(xs) / len(xs)\n"
	neu := "def score(xs):\n    return 1.0\n"
	rep, err := e.ScanChange(context.Background(), old, neu, "score.py", ir.ContextProduction)
	require.NoError(t, err)
	var rules []string
	for _, f := range rep.Findings {
		rules = append(rules, f.RuleID)
	}
	assert.Contains(t, rules, "MANIP-HARDCODED-RESULT")

	_, err = e.ListReports(1, 0)
	assert.ErrorIs(t, err, storage.ErrNoDatabase)
}

func TestEngine_SettingsAndPacks(t *testing.T) {
	dir := t.TempDir()
	pack := filepath.Join(dir, "team.yaml")
	require.NoError(t, os.WriteFile(pack, []byte(`version: team-1
rules:
  - id: TEAM-PRINT-DEBUG
    concern: precision
    kind: debug_print
    summary: debug print left in code
    message: Remove the debug print.
    severity: MEDIUM
    match:
      regex: '\bprint\(\s*"DEBUG'
`), 0o644))

	cfg := testConfig(t)
	cfg.Storage.DSN = ""
	cfg.Rules.Packs = []string{pack}
	cfg.Rules.Disabled = []string{"PRECISION-LAZY-MARKER"}
	e, err := Open(cfg, quiet)
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, "builtin-2+team-1", e.Rules().Version())
	rep, err := e.ScanFile(context.Background(), "print(\"DEBUG x\")  # TODO remove\n", "x.py", "")
	require.NoError(t, err)
	require.Len(t, rep.Findings, 1)
	assert.Equal(t, "TEAM-PRINT-DEBUG", rep.Findings[0].RuleID)
}

func TestEngine_WatchRulesStopsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	pack := filepath.Join(dir, "team.yaml")
	require.NoError(t, os.WriteFile(pack, []byte("version: v1\nrules: []\n"), 0o644))
	cfg := testConfig(t)
	cfg.Storage.DSN = ""
	cfg.Rules.Packs = []string{pack}

	e, err := Open(cfg, quiet)
	require.NoError(t, err)
	e.WatchRules(context.Background())
	e.WatchRules(context.Background()) // second call is a no-op

	v2 := []byte(`version: v2
rules:
  - id: TEAM-X
    concern: trick
    kind: whitelist_trick
    summary: x
    message: x
    severity: LOW
    match:
      regex: 'xyzzy'
`)
	// rewrite until the watcher, which starts asynchronously, picks it up
	require.Eventually(t, func() bool {
		if e.Rules().Version() == "builtin-2+v2" {
			return true
		}
		_ = os.WriteFile(pack, v2, 0o644)
		return false
	}, 10*time.Second, 500*time.Millisecond)
	_, ok := e.Rules().Get("TEAM-X")
	assert.True(t, ok)
	require.NoError(t, e.Close())
}

func TestOpen_BadPackIsConfigurationError(t *testing.T) {
	pack := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(pack, []byte("version: v1\nrules:\n  - id: X\n"), 0o644))
	cfg := testConfig(t)
	cfg.Rules.Packs = []string{pack}
	_, err := Open(cfg, quiet)
	var ce *ir.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}
