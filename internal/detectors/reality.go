package detectors

import (
	"context"
	"regexp"
	"strings"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

func init() {
	Register(patterns.ConcernReality, func() (Detector, error) { return reality{}, nil })
}

// reality flags code that only pretends to work: stubs, canned success
// values, fake integrations and committed secrets.
type reality struct{}

func (reality) ID() string { return patterns.ConcernReality }

func (reality) Scan(ctx context.Context, in Input) ir.DetectorResult {
	return run(ctx, patterns.ConcernReality, in, func(p *pass) {
		p.regexRules()
		for _, f := range p.functions() {
			if p.cancelled() {
				return
			}
			switch {
			case isCommentOnlyStub(f):
				p.reportKind(patterns.KindCommentOnlyStub, f.Start, f.End, "", "", 0.85)
			case claimsIntegration(f) && !performsIO(f) && returnsCanned(f):
				p.reportKind(patterns.KindMockWithoutRealAPI, f.Start, f.End, "",
					"Function "+f.Name+" claims an external integration but returns canned data without calling any client.", 0.75)
			case alwaysSucceeds(f):
				p.reportKind(patterns.KindAlwaysTrueReturn, f.Start, f.End, "",
					"Function "+f.Name+" ignores its inputs and always reports success.", 0.8)
			}
		}
	})
}

// isCommentOnlyStub: no executable statement, but the body is not simply
// empty (it holds a comment, a docstring, pass or an ellipsis).
func isCommentOnlyStub(f source.Function) bool {
	if len(f.Statements()) > 0 {
		return false
	}
	for _, l := range f.Body {
		c := strings.TrimSpace(l.Code)
		if l.Comment != "" || c == "pass" || c == "..." {
			return true
		}
	}
	return f.Doc != "" && len(f.Body) > 0
}

var (
	integrationNameRe = regexp.MustCompile(`(?i)(api|service|remote|http|endpoint|server|client|gateway|webhook|upstream|backend)`)
	integrationVerbRe = regexp.MustCompile(`(?i)^(fetch|call|request|query|send|post|put|upload|download|sync|get|load|push|pull|invoke|notify)`)
	integrationDocRe  = regexp.MustCompile(`(?i)\b(calls?|fetch(es)?|quer(y|ies)|sends?|posts?|requests?|contacts?|hits?)\b.*\b(api|endpoint|service|server|gateway|backend|webhook)\b`)
	ioCallRe          = regexp.MustCompile(`(?i)\b(requests|httpx|aiohttp|urllib|urlopen|http|axios|fetch|client|session|conn|cursor|db|grpc|socket|net|sql|boto3|s3|redis|ws|stub)\s*[.(]|\.(Do|Get|Post|Query|Exec|Send|Dial|execute|request|send|query)\(`)
	mockWordRe        = regexp.MustCompile(`(?i)\b(mock|fake|dummy|stub|sample|canned|hardcoded|placeholder)\w*`)
)

func claimsIntegration(f source.Function) bool {
	name := f.Name
	if integrationVerbRe.MatchString(name) && integrationNameRe.MatchString(name) {
		return true
	}
	return integrationDocRe.MatchString(f.Doc)
}

func performsIO(f source.Function) bool {
	for _, s := range f.Statements() {
		if ioCallRe.MatchString(s) {
			return true
		}
	}
	return false
}

func returnsCanned(f source.Function) bool {
	for _, s := range f.Statements() {
		if v, ok := source.ReturnValue(s); ok && source.IsLiteral(v) {
			return true
		}
		if mockWordRe.MatchString(s) {
			return true
		}
	}
	return false
}

// alwaysSucceeds: the only statement returns a success constant while the
// function takes real parameters.
func alwaysSucceeds(f source.Function) bool {
	stmts := f.Statements()
	if len(stmts) != 1 {
		return false
	}
	v, ok := source.ReturnValue(stmts[0])
	if !ok || !source.IsSuccessLiteral(v) {
		return false
	}
	return len(realParams(f.Params)) > 0
}

// realParams drops receivers and framework plumbing from a parameter list.
func realParams(params string) []string {
	var out []string
	for _, p := range strings.Split(params, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.Fields(strings.TrimLeft(p, "*&."))
		if len(fields) == 0 {
			continue
		}
		name := strings.SplitN(strings.SplitN(fields[0], ":", 2)[0], "=", 2)[0]
		switch name {
		case "self", "cls", "ctx", "this", "_":
			continue
		}
		out = append(out, name)
	}
	return out
}
