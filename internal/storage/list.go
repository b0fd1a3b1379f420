package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)


// ListReports returns a lightweight list of reports with finding counts.
func (db *DB) ListReports(limit, offset int) ([]ReportRow, error) {
	const q = `
		SELECT r.id, r.created_at, r.target, r.context_tag, r.score, r.rules_version, r.failed,
		       (SELECT COUNT(1) FROM findings f WHERE f.report_id = r.id) AS findings
		  FROM reports r
		 ORDER BY r.created_at DESC, r.id DESC
		 LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var rr ReportRow
		var createdAt, tag string
		if err := rows.Scan(&rr.ID, &createdAt, &rr.Target, &tag, &rr.Score, &rr.RulesVersion, &rr.Failed, &rr.Findings); err != nil {
			return nil, err
		}
		rr.ContextTag = ir.ContextTag(tag)
		// RFC3339Nano first, RFC3339 as fallback
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rr.CreatedAt = t
		} else if t2, err2 := time.Parse(time.RFC3339, createdAt); err2 == nil {
			rr.CreatedAt = t2
		}
		out = append(out, rr)
	}
	return out, rows.Err()
}

// ListFindings returns findings for a report at or above a minimum severity.
func (db *DB) ListFindings(reportID string, minSeverity ir.Severity) ([]ir.Finding, error) {
	const q = `
		SELECT id, detector, path, line_start, line_end, rule_id, severity, message, snippet, confidence
		  FROM findings
		 WHERE report_id = ?
		   AND (CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END)
		       >= (CASE ? WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END)
		 ORDER BY
		       (CASE severity WHEN 'CRITICAL' THEN 4 WHEN 'HIGH' THEN 3 WHEN 'MEDIUM' THEN 2 ELSE 1 END) DESC,
		       path, line_start, rule_id, id`
	rows, err := db.conn.Query(q, reportID, string(minSeverity))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ir.Finding
	for rows.Next() {
		var f ir.Finding
		var sev string
		if err := rows.Scan(&f.ID, &f.Detector, &f.Path, &f.LineStart, &f.LineEnd, &f.RuleID, &sev, &f.Message, &f.Snippet, &f.Confidence); err != nil {
			return nil, err
		}
		f.Severity = ir.Severity(sev)
		out = append(out, f)
	}
	return out, rows.Err()
}

// VerdictCounts tallies stored verdicts by decision and by trick.
func (db *DB) VerdictCounts() (VerdictCounts, error) {
	vc := VerdictCounts{ByDecision: map[ir.Decision]int64{}, ByTrick: map[ir.TrickKind]int64{}}
	rows, err := db.conn.Query(`SELECT decision, COALESCE(trick, ''), COUNT(1) FROM verdicts GROUP BY decision, trick`)
	if err != nil {
		return vc, err
	}
	defer rows.Close()
	for rows.Next() {
		var decision, trick string
		var n int64
		if err := rows.Scan(&decision, &trick, &n); err != nil {
			return vc, err
		}
		vc.Total += n
		vc.ByDecision[ir.Decision(decision)] += n
		if trick != "" {
			vc.ByTrick[ir.TrickKind(trick)] += n
		}
	}
	return vc, rows.Err()
}

func (db *DB) HasReport(id string) (bool, error) {
	const q = `SELECT 1 FROM reports WHERE id = ? LIMIT 1`
	var one int
	err := db.conn.QueryRow(q, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}
