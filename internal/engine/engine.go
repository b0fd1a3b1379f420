// Package engine wires the pattern library, detectors, gate, statistics and
// persistence behind the four public operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Bharath-kolekar/cogone-sub001/internal/detectors"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/policy"
	"github.com/Bharath-kolekar/cogone-sub001/internal/rulesdsl"
	"github.com/Bharath-kolekar/cogone-sub001/internal/scan"
	"github.com/Bharath-kolekar/cogone-sub001/internal/shared"
	"github.com/Bharath-kolekar/cogone-sub001/internal/stats"
	"github.com/Bharath-kolekar/cogone-sub001/internal/storage"
)

type reportSink interface {
	AppendReport(ir.Report) error
}

type Engine struct {
	cfg     shared.Config
	log     *slog.Logger
	rules   *patterns.Holder
	scanner *scan.Orchestrator
	gate    *policy.Enforcer
	stats   *stats.Stats

	ledger  *storage.Ledger
	db      *storage.DB
	reports []reportSink

	mu       sync.Mutex
	watching context.CancelFunc
	wg       sync.WaitGroup
}

// BuildLibrary loads the compiled-in rules followed by every pack, in order.
func BuildLibrary(packs []string) (*patterns.Library, error) {
	lib := patterns.Builtin()
	for _, p := range packs {
		next, err := rulesdsl.Load(p, lib)
		if err != nil {
			return nil, err
		}
		lib = next
	}
	return lib, nil
}

// Open builds an engine from cfg. Statistics are rebuilt from the ledger
// before it is reopened for appending.
func Open(cfg shared.Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	lib, err := BuildLibrary(cfg.Rules.Packs)
	if err != nil {
		return nil, err
	}
	holder := patterns.NewHolder(lib).WithSettings(patterns.Settings{
		SeverityThreshold: cfg.Threshold(),
		Disabled:          cfg.Rules.Disabled,
	})

	e := &Engine{cfg: cfg, log: log, rules: holder, stats: stats.New()}
	var sinks []policy.Sink
	if cfg.Storage.Ledger != "" {
		n, err := storage.ReplayStats(cfg.Storage.Ledger, e.stats)
		if err != nil {
			return nil, fmt.Errorf("replay ledger: %w", err)
		}
		if e.ledger, err = storage.OpenLedger(cfg.Storage.Ledger); err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		sinks = append(sinks, e.ledger)
		e.reports = append(e.reports, e.ledger)
		log.Info("ledger replayed", "path", cfg.Storage.Ledger, "entries", n)
	}
	if cfg.Storage.DSN != "" {
		db, err := storage.OpenSQLite(cfg.Storage.DSN)
		if err == nil {
			err = db.CreateSchema()
			if err != nil {
				_ = db.Close()
			}
		}
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("open database: %w", err)
		}
		e.db = db
		sinks = append(sinks, db)
		e.reports = append(e.reports, db)
	}

	e.scanner = scan.New(holder, scan.Options{
		Detectors:       cfg.Scan.Detectors,
		Workers:         cfg.Scan.Workers,
		FileWorkers:     cfg.Scan.FileWorkers,
		DetectorTimeout: cfg.Scan.DetectorTimeout,
		MaxFileBytes:    cfg.Scan.MaxFileBytes,
	}, log)
	e.gate = policy.New(holder, e.stats, policy.Options{
		MinTokenDelta:    cfg.Policy.MinTokenDelta,
		MaxProposalBytes: cfg.Policy.MaxProposalBytes,
	}, log, sinks...)

	log.Info("engine ready",
		"rules_version", lib.Version(),
		"rules", holder.Load().Len(),
		"detectors", e.scanner.Detectors(),
	)
	return e, nil
}

// WatchRules reloads the library whenever a configured pack changes. It
// returns immediately; Close stops the watchers.
func (e *Engine) WatchRules(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.watching != nil || len(e.cfg.Rules.Packs) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.watching = cancel
	build := func() (*patterns.Library, error) { return BuildLibrary(e.cfg.Rules.Packs) }
	for _, p := range e.cfg.Rules.Packs {
		w := &rulesdsl.Watcher{Path: p, Holder: e.rules, Logger: e.log, Build: build}
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := w.Run(ctx); err != nil {
				e.log.Error("rules watcher stopped", "path", w.Path, "err", err)
			}
		}()
	}
}

func (e *Engine) ScanFile(ctx context.Context, content, path string, tag ir.ContextTag) (ir.Report, error) {
	rep, err := e.scanner.ScanFile(ctx, content, path, tag)
	if err != nil {
		return ir.Report{}, err
	}
	e.record(rep)
	return rep, nil
}

// ScanChange scans content with baseline as its previous version, which
// brings the manipulation detector into the composite.
func (e *Engine) ScanChange(ctx context.Context, baseline, content, path string, tag ir.ContextTag) (ir.Report, error) {
	rep, err := e.scanner.Scan(ctx, detectors.Input{Path: path, Content: content, ContextTag: tag, Baseline: &baseline})
	if err != nil {
		return ir.Report{}, err
	}
	e.record(rep)
	return rep, nil
}

func (e *Engine) ScanDirectory(ctx context.Context, paths []string, tag ir.ContextTag) ([]ir.Report, error) {
	reps, err := e.scanner.ScanDirectory(ctx, paths, tag)
	if err != nil {
		return nil, err
	}
	for _, r := range reps {
		e.record(r)
	}
	return reps, nil
}

func (e *Engine) EvaluateChange(ctx context.Context, prop ir.ChangeProposal) (ir.TrickVerdict, error) {
	return e.gate.Evaluate(ctx, prop)
}

// ManipulationReport returns the current gate statistics.
func (e *Engine) ManipulationReport() stats.Snapshot { return e.stats.Snapshot() }

func (e *Engine) Rules() *patterns.Library { return e.rules.Load() }

func (e *Engine) Detectors() []string { return e.scanner.Detectors() }

func (e *Engine) Config() shared.Config { return e.cfg }

func (e *Engine) record(rep ir.Report) {
	for _, s := range e.reports {
		if err := s.AppendReport(rep); err != nil {
			e.log.Warn("report sink failed", "report", rep.ID, "err", err)
		}
	}
}

func (e *Engine) ListReports(limit, offset int) ([]storage.ReportRow, error) {
	if e.db == nil {
		return nil, storage.ErrNoDatabase
	}
	return e.db.ListReports(limit, offset)
}

func (e *Engine) LoadReport(id string) (ir.Report, error) {
	if e.db == nil {
		return ir.Report{}, storage.ErrNoDatabase
	}
	return e.db.LoadReport(id)
}

func (e *Engine) ListFindings(reportID string, minSev ir.Severity) ([]ir.Finding, error) {
	if e.db == nil {
		return nil, storage.ErrNoDatabase
	}
	return e.db.ListFindings(reportID, minSev)
}

func (e *Engine) VerdictCounts() (storage.VerdictCounts, error) {
	if e.db == nil {
		return storage.VerdictCounts{}, storage.ErrNoDatabase
	}
	return e.db.VerdictCounts()
}

// Close stops rule watchers and closes the ledger and database.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.watching != nil {
		e.watching()
		e.watching = nil
	}
	e.mu.Unlock()
	e.wg.Wait()

	var errs []error
	if e.ledger != nil {
		errs = append(errs, e.ledger.Close())
	}
	if e.db != nil {
		errs = append(errs, e.db.Close())
	}
	return errors.Join(errs...)
}
