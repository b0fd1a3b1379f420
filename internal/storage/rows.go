package storage

import (
	"time"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

// ReportRow is a lightweight listing row for /reports.
type ReportRow struct {
	ID           string        `json:"id"`
	CreatedAt    time.Time     `json:"created_at"`
	Target       string        `json:"target"`
	ContextTag   ir.ContextTag `json:"context_tag,omitempty"`
	Score        float64       `json:"score"`
	RulesVersion string        `json:"rules_version,omitempty"`
	Failed       bool          `json:"failed,omitempty"`
	Findings     int           `json:"findings"`
}

// VerdictCounts aggregates stored verdicts.
type VerdictCounts struct {
	Total      int64                  `json:"total"`
	ByDecision map[ir.Decision]int64  `json:"by_decision"`
	ByTrick    map[ir.TrickKind]int64 `json:"by_trick"`
}
