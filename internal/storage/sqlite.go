package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // CGO-free SQLite driver

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrNoDatabase is returned by callers that run without a mirror.
	ErrNoDatabase = errors.New("no database configured")
)

// DB mirrors reports, findings and verdicts into SQLite for audit queries.
type DB struct {
	conn *sql.DB
}

// OpenSQLite opens (and creates if missing) a SQLite DB at path.
func OpenSQLite(path string) (*DB, error) {
	// Pragmas via DSN keep it portable with the modernc driver.
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	c, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{conn: c}, nil
}

func (db *DB) Close() error { return db.conn.Close() }

// CreateSchema ensures tables exist.
func (db *DB) CreateSchema() error {
	_, err := db.conn.Exec(`
CREATE TABLE IF NOT EXISTS reports (
  id            TEXT PRIMARY KEY,
  created_at    TEXT,          -- RFC3339Nano
  target        TEXT,
  context_tag   TEXT,
  score         REAL,
  rules_version TEXT,
  failed        INTEGER NOT NULL DEFAULT 0,
  report_json   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
  id          TEXT,
  report_id   TEXT NOT NULL,
  detector    TEXT,
  path        TEXT,
  line_start  INTEGER,
  line_end    INTEGER,
  rule_id     TEXT,
  severity    TEXT,
  message     TEXT,
  snippet     TEXT,
  confidence  REAL,
  PRIMARY KEY (id, report_id),
  FOREIGN KEY(report_id) REFERENCES reports(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_findings_report ON findings(report_id);
CREATE INDEX IF NOT EXISTS idx_findings_rule ON findings(rule_id);

CREATE TABLE IF NOT EXISTS verdicts (
  proposal_id  TEXT PRIMARY KEY,
  evaluated_at TEXT,
  path         TEXT,
  decision     TEXT NOT NULL,
  trick        TEXT,
  is_real_fix  INTEGER NOT NULL,
  token_delta  INTEGER,
  eval_error   TEXT,
  verdict_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verdicts_trick ON verdicts(trick);
`)
	return err
}

// SaveReport upserts a report and (re)writes its findings.
func (db *DB) SaveReport(rep *ir.Report) error {
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	ts := rep.CreatedAt.UTC().Format(time.RFC3339Nano)

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT INTO reports (id, created_at, target, context_tag, score, rules_version, failed, report_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET created_at=excluded.created_at, target=excluded.target,
           context_tag=excluded.context_tag, score=excluded.score, rules_version=excluded.rules_version,
           failed=excluded.failed, report_json=excluded.report_json`,
		rep.ID, ts, rep.Target, string(rep.ContextTag), rep.Score, rep.RulesVersion, rep.Failed, string(b),
	); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM findings WHERE report_id = ?`, rep.ID); err != nil {
		return err
	}
	if len(rep.Findings) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO findings
			(id, report_id, detector, path, line_start, line_end, rule_id, severity, message, snippet, confidence)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id, report_id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, f := range rep.Findings {
			if _, err := stmt.Exec(
				f.ID,
				rep.ID,
				f.Detector,
				f.Path,
				f.LineStart,
				f.LineEnd,
				f.RuleID,
				string(f.Severity),
				f.Message,
				f.Snippet,
				f.Confidence,
			); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// LoadReport returns the full report (from stored JSON).
func (db *DB) LoadReport(id string) (ir.Report, error) {
	var s string
	row := db.conn.QueryRow(`SELECT report_json FROM reports WHERE id = ?`, id)
	if err := row.Scan(&s); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.Report{}, fmt.Errorf("report %s: %w", id, ErrNotFound)
		}
		return ir.Report{}, err
	}
	var rep ir.Report
	if err := json.Unmarshal([]byte(s), &rep); err != nil {
		return ir.Report{}, err
	}
	return rep, nil
}

// SaveVerdict upserts a gate verdict.
func (db *DB) SaveVerdict(v ir.TrickVerdict) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = db.conn.Exec(
		`INSERT INTO verdicts (proposal_id, evaluated_at, path, decision, trick, is_real_fix, token_delta, eval_error, verdict_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(proposal_id) DO UPDATE SET evaluated_at=excluded.evaluated_at, path=excluded.path,
           decision=excluded.decision, trick=excluded.trick, is_real_fix=excluded.is_real_fix,
           token_delta=excluded.token_delta, eval_error=excluded.eval_error, verdict_json=excluded.verdict_json`,
		v.ProposalID, v.EvaluatedAt.UTC().Format(time.RFC3339Nano), v.Path, string(v.Decision),
		string(v.Trick), v.IsRealFix, v.TokenDelta, v.EvalError, string(b),
	)
	return err
}

// AppendVerdict lets the DB act as a verdict sink next to the ledger.
func (db *DB) AppendVerdict(v ir.TrickVerdict) error { return db.SaveVerdict(v) }

// AppendReport mirrors a report; same shape as the ledger.
func (db *DB) AppendReport(rep ir.Report) error { return db.SaveReport(&rep) }
