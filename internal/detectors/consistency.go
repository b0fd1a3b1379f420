package detectors

import (
	"context"
	"regexp"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

func init() {
	Register(patterns.ConcernConsistency, func() (Detector, error) { return consistency{}, nil })
}

// consistency compares what a function says it does (name, docs) with
// what its body does.
type consistency struct{}

func (consistency) ID() string { return patterns.ConcernConsistency }

var (
	computeNameRe = regexp.MustCompile(`^_*(?i:calculate|calc|compute|count|sum|total|estimate|measure|aggregate|average|avg|score|rank|convert|transform|derive|hash|encrypt|decrypt|encode|decode|normalize|parse)(?:_|[A-Z]|$)`)
	validateDocRe = regexp.MustCompile(`(?i)\b(validat(?:es?|ion|ing)|verif(?:y|ies|ication)|checks?|ensures?|sanitiz(?:es?|ation)|guards?|rejects?|raises?|throws?)\b`)
	branchRe      = regexp.MustCompile(`\b(if|elif|else|switch|case|match|assert|raise|throw|try|except|catch|while|for|unless|panic)\b|\?[^:]+:|&&|\|\||\bor\b|\band\b|errors\.New|fmt\.Errorf`)
	delegateRe    = regexp.MustCompile(`(?i)(valid|verif|check|sanitiz|ensure|guard|schema)\w*\s*\(`)
)

func (consistency) Scan(ctx context.Context, in Input) ir.DetectorResult {
	return run(ctx, patterns.ConcernConsistency, in, func(p *pass) {
		p.regexRules()
		for _, f := range p.functions() {
			if p.cancelled() {
				return
			}
			if intentMismatch(f) {
				p.reportKind(patterns.KindIntentMismatch, f.Start, f.End, "",
					"Function "+f.Name+" is named for a computation but returns a constant.", 0.8)
			}
			if docMismatch(f) {
				p.reportKind(patterns.KindDocMismatch, f.Start, f.End, "",
					"Documentation of "+f.Name+" describes checks the body does not contain.", 0.6)
			}
		}
	})
}

func intentMismatch(f source.Function) bool {
	if !computeNameRe.MatchString(f.Name) {
		return false
	}
	stmts := f.Statements()
	if len(stmts) != 1 {
		return false
	}
	v, ok := source.ReturnValue(stmts[0])
	return ok && source.IsLiteral(v)
}

func docMismatch(f source.Function) bool {
	if f.Doc == "" || !validateDocRe.MatchString(f.Doc) {
		return false
	}
	stmts := f.Statements()
	if len(stmts) == 0 {
		return false // empty bodies belong to the stub check
	}
	for _, s := range stmts {
		if branchRe.MatchString(s) || delegateRe.MatchString(s) {
			return false
		}
	}
	return true
}
