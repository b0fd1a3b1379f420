package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

func finding(rule string, line int, sev ir.Severity, snippet string) ir.Finding {
	return ir.Finding{RuleID: rule, Path: "a.py", LineStart: line, LineEnd: line, Severity: sev, Message: rule, Snippet: snippet}
}

func TestDiff(t *testing.T) {
	base := &ir.Report{ID: "base", Score: 0.6, Findings: []ir.Finding{
		finding("REALITY-HARDCODED-SECRET", 1, ir.SeverityHigh, `KEY = "abc123"`),
		finding("PRECISION-LAZY-MARKER", 4, ir.SeverityLow, "# TODO"),
		finding("TRICK-WHITELIST-CONFIG", 9, ir.SeverityMedium, "ignore_rules: [E1]"),
	}}
	head := &ir.Report{ID: "head", Score: 0.8, Findings: []ir.Finding{
		finding("PRECISION-LAZY-MARKER", 6, ir.SeverityLow, "# TODO"),
		finding("TRICK-WHITELIST-CONFIG", 9, ir.SeverityMedium, "ignore_rules: [E1]"),
		finding("PRECISION-SILENT-CATCH", 12, ir.SeverityHigh, "except: pass"),
	}}

	d := Diff(base, head)
	assert.Equal(t, DiffSummary{NewCount: 1, RemovedCount: 1, ChangedCount: 1}, d.Summary)
	assert.Equal(t, "PRECISION-SILENT-CATCH", d.New[0].RuleID)
	assert.Equal(t, "REALITY-HARDCODED-SECRET", d.Removed[0].RuleID)
	assert.Equal(t, []string{"line_start"}, d.Changed[0].Changed)
	assert.InDelta(t, 0.2, d.ScoreDelta, 1e-9)

	same := Diff(base, base)
	assert.Equal(t, DiffSummary{}, same.Summary)
	assert.NotNil(t, same.New)
}

func TestWriters(t *testing.T) {
	dir := t.TempDir()
	rep := &ir.Report{
		ID: "r-1", Target: "<script>.py", Score: 0.5,
		Findings:          []ir.Finding{finding("REALITY-HARDCODED-SECRET", 1, ir.SeverityHigh, `KEY = "<x>"`)},
		SeverityBreakdown: map[ir.Severity]int{ir.SeverityHigh: 1},
		Results:           []ir.DetectorResult{{DetectorID: "reality", Score: 0.5}, {DetectorID: "manipulation", NotApplicable: true}},
	}

	p, err := WriteJSON(dir, rep)
	require.NoError(t, err)
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	var back ir.Report
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, rep.Findings, back.Findings)

	p, err = WriteHTML(dir, rep)
	require.NoError(t, err)
	b, err = os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "&lt;script&gt;.py")
	assert.NotContains(t, string(b), "<script>")
	assert.Contains(t, string(b), "HIGH=1")

	var buf bytes.Buffer
	RenderHTML(&buf, &ir.Report{ID: "f", Target: "x.py", Failed: true, Error: "not a text file"})
	assert.Contains(t, buf.String(), "Scan failed: not a text file")

	p, err = WriteDiffJSON(dir, rep, rep)
	require.NoError(t, err)
	assert.FileExists(t, p)
}
