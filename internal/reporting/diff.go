package reporting

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

type DiffPayload struct {
	BaseID     string        `json:"base_id"`
	HeadID     string        `json:"head_id"`
	BaseScore  float64       `json:"base_score"`
	HeadScore  float64       `json:"head_score"`
	ScoreDelta float64       `json:"score_delta"`
	Summary    DiffSummary   `json:"summary"`
	New        []DiffFinding `json:"new"`
	Removed    []DiffFinding `json:"removed"`
	Changed    []DiffChanged `json:"changed"`
}

type DiffSummary struct {
	NewCount     int `json:"new"`
	RemovedCount int `json:"removed"`
	ChangedCount int `json:"changed"`
}

type DiffFinding struct {
	RuleID    string      `json:"rule_id"`
	Path      string      `json:"path"`
	LineStart int         `json:"line_start"`
	Severity  ir.Severity `json:"severity,omitempty"`
	Message   string      `json:"message,omitempty"`
	Snippet   string      `json:"snippet,omitempty"`
}

type DiffChanged struct {
	Key     string      `json:"key"`
	Base    DiffFinding `json:"base"`
	Head    DiffFinding `json:"head"`
	Changed []string    `json:"fields_changed"`
}

// Diff compares the findings of two reports. Findings are matched by rule,
// path and snippet so a finding that only moved lines counts as changed.
func Diff(base, head *ir.Report) DiffPayload {
	bm := map[string]ir.Finding{}
	hm := map[string]ir.Finding{}
	for _, f := range base.Findings {
		bm[keyOf(f)] = f
	}
	for _, f := range head.Findings {
		hm[keyOf(f)] = f
	}

	added := []DiffFinding{}
	removed := []DiffFinding{}
	changed := []DiffChanged{}

	// additions & changes
	for k, hf := range hm {
		bf, ok := bm[k]
		if !ok {
			added = append(added, asDiff(hf))
			continue
		}
		var fields []string
		if bf.Severity != hf.Severity {
			fields = append(fields, "severity")
		}
		if strings.TrimSpace(bf.Message) != strings.TrimSpace(hf.Message) {
			fields = append(fields, "message")
		}
		if bf.LineStart != hf.LineStart {
			fields = append(fields, "line_start")
		}
		if len(fields) > 0 {
			changed = append(changed, DiffChanged{Key: k, Base: asDiff(bf), Head: asDiff(hf), Changed: fields})
		}
	}
	// removals
	for k, bf := range bm {
		if _, ok := hm[k]; !ok {
			removed = append(removed, asDiff(bf))
		}
	}

	sortDiff(added)
	sortDiff(removed)
	sort.Slice(changed, func(i, j int) bool { return changed[i].Key < changed[j].Key })

	return DiffPayload{
		BaseID: base.ID, HeadID: head.ID,
		BaseScore: base.Score, HeadScore: head.Score,
		ScoreDelta: head.Score - base.Score,
		Summary: DiffSummary{
			NewCount:     len(added),
			RemovedCount: len(removed),
			ChangedCount: len(changed),
		},
		New:     added,
		Removed: removed,
		Changed: changed,
	}
}

// WriteDiffJSON writes the diff to <outDir>/diff_<base>__<head>.json.
func WriteDiffJSON(outDir string, base, head *ir.Report) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, "diff_"+base.ID+"__"+head.ID+".json")
	b, err := json.MarshalIndent(Diff(base, head), "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, b, 0o644)
}

func keyOf(f ir.Finding) string {
	sb := strings.Builder{}
	sb.WriteString(norm(f.RuleID))
	sb.WriteByte('|')
	sb.WriteString(f.Path)
	sb.WriteByte('|')
	// the snippet is the logical identity; lines shift between revisions
	sb.WriteString(strings.Join(strings.Fields(f.Snippet), " "))
	return sb.String()
}

func asDiff(f ir.Finding) DiffFinding {
	return DiffFinding{
		RuleID:    f.RuleID,
		Path:      f.Path,
		LineStart: f.LineStart,
		Severity:  f.Severity,
		Message:   f.Message,
		Snippet:   f.Snippet,
	}
}

func sortDiff(fs []DiffFinding) {
	sort.Slice(fs, func(i, j int) bool {
		if fs[i].RuleID != fs[j].RuleID {
			return fs[i].RuleID < fs[j].RuleID
		}
		if fs[i].Path != fs[j].Path {
			return fs[i].Path < fs[j].Path
		}
		return fs[i].LineStart < fs[j].LineStart
	})
}

func norm(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
