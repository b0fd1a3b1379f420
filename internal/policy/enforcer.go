// Package policy gates change proposals: every proposal gets a verdict,
// and every verdict is counted.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Bharath-kolekar/cogone-sub001/internal/detectors"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/stats"
)

const DefaultMaxProposalBytes = 1 << 20

// Sink receives every counted verdict, typically the ledger.
type Sink interface {
	AppendVerdict(v ir.TrickVerdict) error
}

type Options struct {
	MinTokenDelta    int
	MaxProposalBytes int
}

type Enforcer struct {
	rules    *patterns.Holder
	gate     *detectors.Manipulation
	stats    *stats.Stats
	sinks    []Sink
	maxBytes int
	log      *slog.Logger
}

func New(rules *patterns.Holder, st *stats.Stats, opts Options, log *slog.Logger, sinks ...Sink) *Enforcer {
	if log == nil {
		log = slog.Default()
	}
	if st == nil {
		st = stats.New()
	}
	if opts.MaxProposalBytes <= 0 {
		opts.MaxProposalBytes = DefaultMaxProposalBytes
	}
	return &Enforcer{
		rules:    rules,
		gate:     detectors.NewManipulation(opts.MinTokenDelta),
		stats:    st,
		sinks:    sinks,
		maxBytes: opts.MaxProposalBytes,
		log:      log,
	}
}

func (e *Enforcer) Stats() *stats.Stats { return e.stats }

// Evaluate classifies a proposal. Invalid input returns a BLOCKED verdict
// with an *ir.InvalidChangeProposalError and is not counted. Any failure
// during evaluation fails closed: the verdict is BLOCKED and counted as an
// evaluation error.
func (e *Enforcer) Evaluate(ctx context.Context, prop ir.ChangeProposal) (ir.TrickVerdict, error) {
	if prop.ID == "" {
		prop.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if err := e.validate(prop); err != nil {
		return ir.TrickVerdict{
			ProposalID:  prop.ID,
			Path:        prop.Path,
			Decision:    ir.DecisionBlocked,
			Reason:      err.Error(),
			EvaluatedAt: now,
		}, err
	}

	v, err := e.classify(ctx, prop)
	v.ProposalID = prop.ID
	v.Path = prop.Path
	v.EvaluatedAt = now
	if err != nil {
		if ctx.Err() != nil {
			// cancelled by the caller, not an evaluation outcome
			return v, err
		}
		e.log.Error("evaluation failed, blocking", "proposal", prop.ID, "path", prop.Path, "err", err)
	}
	e.stats.Record(v)
	for _, s := range e.sinks {
		if serr := s.AppendVerdict(v); serr != nil {
			e.log.Warn("verdict sink failed", "proposal", prop.ID, "err", serr)
		}
	}
	e.log.Info("change evaluated",
		"proposal", prop.ID,
		"path", prop.Path,
		"decision", v.Decision,
		"trick", v.Trick,
		"token_delta", v.TokenDelta,
	)
	return v, nil
}

func (e *Enforcer) classify(ctx context.Context, prop ir.ChangeProposal) (v ir.TrickVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			v = failClosed(err)
		}
	}()
	c, err := e.gate.Classify(ctx, prop, e.rules.Load())
	if err != nil {
		return failClosed(err), err
	}
	v = ir.TrickVerdict{
		Trick:      c.Trick,
		IsRealFix:  c.RealFix,
		Reason:     c.Reason,
		Evidence:   c.Evidence,
		Findings:   c.Findings,
		TokenDelta: c.TokenDelta,
	}
	switch {
	case c.Trick != ir.TrickNone:
		v.Decision = ir.DecisionBlocked
		v.IsRealFix = false
	case c.RealFix:
		v.Decision = ir.DecisionApproved
	default:
		v.Decision = ir.DecisionRejected
	}
	return v, nil
}

func failClosed(err error) ir.TrickVerdict {
	return ir.TrickVerdict{
		Decision:  ir.DecisionBlocked,
		Reason:    "evaluation failed; change blocked",
		EvalError: err.Error(),
	}
}

func (e *Enforcer) validate(p ir.ChangeProposal) error {
	fields := []struct{ name, val string }{
		{"path", p.Path},
		{"old_code", p.OldCode},
		{"new_code", p.NewCode},
		{"description", p.Description},
	}
	size := 0
	for _, f := range fields {
		if !utf8.ValidString(f.val) {
			return &ir.InvalidChangeProposalError{Field: f.name, Reason: "not valid UTF-8"}
		}
		if strings.IndexByte(f.val, 0) >= 0 {
			return &ir.InvalidChangeProposalError{Field: f.name, Reason: "contains NUL bytes"}
		}
		size += len(f.val)
	}
	if size > e.maxBytes {
		return &ir.InvalidChangeProposalError{
			Field:  "proposal",
			Reason: fmt.Sprintf("%d bytes exceeds limit of %d", size, e.maxBytes),
		}
	}
	return nil
}
