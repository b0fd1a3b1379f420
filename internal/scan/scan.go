// Package scan runs the enabled detectors over an artifact and folds their
// results into a Report.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Bharath-kolekar/cogone-sub001/internal/detectors"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

const DefaultDetectorTimeout = 10 * time.Second

type Options struct {
	// Detectors lists enabled detector ids. Empty enables every registered one.
	Detectors       []string
	Workers         int
	FileWorkers     int
	DetectorTimeout time.Duration
	MaxFileBytes    int64
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.FileWorkers <= 0 {
		o.FileWorkers = runtime.NumCPU()
	}
	if o.DetectorTimeout <= 0 {
		o.DetectorTimeout = DefaultDetectorTimeout
	}
	if o.MaxFileBytes <= 0 {
		o.MaxFileBytes = 1 << 20
	}
	return o
}

type Orchestrator struct {
	rules     *patterns.Holder
	detectors []detectors.Detector
	opts      Options
	log       *slog.Logger
}

// New builds the detectors named in opts. Unknown ids and failing factories
// are logged and skipped.
func New(rules *patterns.Holder, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	ids := opts.Detectors
	if len(ids) == 0 {
		ids = detectors.IDs()
	}
	var ds []detectors.Detector
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		d, err := detectors.New(id)
		if err != nil {
			log.Warn("detector skipped", "detector", id, "err", err)
			continue
		}
		ds = append(ds, d)
	}
	return NewWithDetectors(rules, ds, opts, log)
}

// NewWithDetectors uses the given detector instances as is.
func NewWithDetectors(rules *patterns.Holder, ds []detectors.Detector, opts Options, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{rules: rules, detectors: ds, opts: opts.withDefaults(), log: log}
}

// Detectors returns the ids of the active detectors.
func (o *Orchestrator) Detectors() []string {
	out := make([]string, 0, len(o.detectors))
	for _, d := range o.detectors {
		out = append(out, d.ID())
	}
	return out
}

// Rules returns the library the next scan will use.
func (o *Orchestrator) Rules() *patterns.Library { return o.rules.Load() }

func (o *Orchestrator) ScanFile(ctx context.Context, content, path string, tag ir.ContextTag) (ir.Report, error) {
	return o.Scan(ctx, detectors.Input{Path: path, Content: content, ContextTag: tag})
}

// Scan runs every detector once over in. Cancelling ctx discards the
// partial scan.
func (o *Orchestrator) Scan(ctx context.Context, in detectors.Input) (ir.Report, error) {
	if err := ctx.Err(); err != nil {
		return ir.Report{}, err
	}
	lib := o.rules.Load()
	in.Rules = lib
	if in.ContextTag == ir.ContextProduction {
		in.ContextTag = detectors.MarkerTag(source.Split(in.Content, source.Language(in.Path)))
	}

	results := make([]ir.DetectorResult, len(o.detectors))
	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, d := range o.detectors {
		g.Go(func() error {
			results[i] = o.runOne(ctx, d, in)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ir.Report{}, err
	}

	rep := ir.Report{
		ID:           uuid.NewString(),
		Target:       in.Path,
		ContextTag:   in.ContextTag,
		Results:      results,
		RulesVersion: lib.Version(),
		CreatedAt:    time.Now().UTC(),
	}
	var sum float64
	ok := 0
	for _, r := range results {
		rep.Suppressed = append(rep.Suppressed, r.Suppressed...)
		if !r.OK() {
			if !r.NotApplicable {
				o.log.Warn("detector failed", "detector", r.DetectorID, "path", in.Path, "err", r.Error)
			}
			continue
		}
		ok++
		sum += r.Score
		rep.Findings = append(rep.Findings, r.Findings...)
	}
	if ok == 0 {
		return ir.Report{}, fmt.Errorf("scan %s: %w", in.Path, ir.ErrNoDetectorsAvailable)
	}
	rep.Score = clamp(sum / float64(ok))
	ir.SortFindings(rep.Findings)
	if rep.Findings == nil {
		rep.Findings = []ir.Finding{}
	}
	rep.SeverityBreakdown = ir.Breakdown(rep.Findings)
	return rep, nil
}

// runOne bounds a detector by the per-detector timeout. A detector that
// overruns is recorded as failed; its goroutine exits once it notices ctx.
func (o *Orchestrator) runOne(ctx context.Context, d detectors.Detector, in detectors.Input) ir.DetectorResult {
	id := d.ID()
	dctx, cancel := context.WithTimeout(ctx, o.opts.DetectorTimeout)
	defer cancel()

	start := time.Now()
	done := make(chan ir.DetectorResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- failed(id, fmt.Errorf("panic: %v", r), time.Since(start))
			}
		}()
		done <- d.Scan(dctx, in)
	}()

	select {
	case res := <-done:
		if res.DetectorID == "" {
			res.DetectorID = id
		}
		if res.Err != nil {
			var de *ir.DetectorError
			if !errors.As(res.Err, &de) {
				return failed(id, res.Err, res.Elapsed)
			}
		}
		if !res.NotApplicable && res.Err == nil && res.Error == "" && (res.Score < 0 || res.Score > 1) {
			return failed(id, fmt.Errorf("score %v out of range", res.Score), res.Elapsed)
		}
		return res
	case <-dctx.Done():
		err := dctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", o.opts.DetectorTimeout, err)
		}
		return failed(id, err, time.Since(start))
	}
}

func failed(id string, err error, elapsed time.Duration) ir.DetectorResult {
	de := &ir.DetectorError{Detector: id, Err: err}
	return ir.DetectorResult{DetectorID: id, Elapsed: elapsed, Err: de, Error: de.Error()}
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
