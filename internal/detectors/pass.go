package detectors

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

const (
	confRegexCode    = 0.9
	confRegexComment = 0.7
	maxSnippet       = 200
)

var errNoRules = errors.New("no rule library in input")

// pass is the per-scan state shared by every check of one detector.
type pass struct {
	ctx     context.Context
	concern string
	in      Input
	lang    source.Lang
	lines   []source.Line
	tag     ir.ContextTag

	funcs     []source.Function
	funcsDone bool

	seen       map[string]bool
	findings   []ir.Finding
	suppressed []ir.Suppression
}

func newPass(ctx context.Context, concern string, in Input) *pass {
	lang := source.Language(in.Path)
	lines := source.Split(in.Content, lang)
	return &pass{
		ctx:     ctx,
		concern: concern,
		in:      in,
		lang:    lang,
		lines:   lines,
		tag:     effectiveTag(in.ContextTag, lines),
		seen:    map[string]bool{},
	}
}

func (p *pass) functions() []source.Function {
	if !p.funcsDone {
		p.funcs = source.Functions(p.lines, p.lang)
		p.funcsDone = true
	}
	return p.funcs
}

func (p *pass) cancelled() bool { return p.ctx.Err() != nil }

// rule returns the detector's rule of the given kind, if the active library
// still carries one.
func (p *pass) rule(kind patterns.Kind) (patterns.Rule, bool) {
	return p.in.Rules.ByKind(p.concern, kind)
}

// line returns the 1-based line n, or a zero Line when out of range.
func (p *pass) line(n int) source.Line {
	if n < 1 || n > len(p.lines) {
		return source.Line{}
	}
	return p.lines[n-1]
}

// report records a finding for r unless r is suppressed by the input's
// context tag, in which case the match is kept as a suppression.
func (p *pass) report(r patterns.Rule, start, end int, snippet, message string, confidence float64) {
	if end < start {
		end = start
	}
	if snippet == "" {
		snippet = p.line(start).Raw
	}
	snippet = trimSnippet(snippet)
	if message == "" {
		message = r.Message
	}
	f := ir.Finding{
		ID:         makeID(r.ID, p.in.Path, start, snippet),
		Detector:   p.concern,
		Path:       p.in.Path,
		LineStart:  start,
		LineEnd:    end,
		RuleID:     r.ID,
		Severity:   r.Severity,
		Message:    message,
		Snippet:    snippet,
		Confidence: confidence,
	}
	if p.seen[f.ID] {
		return
	}
	p.seen[f.ID] = true
	if !r.AppliesTo(p.tag) {
		p.suppressed = append(p.suppressed, ir.Suppression{Finding: f, Tag: p.tag})
		return
	}
	p.findings = append(p.findings, f)
}

func (p *pass) reportKind(kind patterns.Kind, start, end int, snippet, message string, confidence float64) {
	if r, ok := p.rule(kind); ok {
		p.report(r, start, end, snippet, message, confidence)
	}
}

// regexRules applies every regex rule of the concern line by line. Pack
// rules join their detector this way.
func (p *pass) regexRules() { p.regexRulesOn(nil) }

// regexRulesOn is regexRules restricted to the lines keep accepts. A nil
// keep accepts every line.
func (p *pass) regexRulesOn(keep func(line int) bool) {
	for _, r := range p.in.Rules.RulesFor(p.concern) {
		re := r.Regexp()
		if re == nil {
			continue
		}
		conf := confRegexCode
		if r.Match.Scope == patterns.ScopeComment {
			conf = confRegexComment
		}
		for _, l := range p.lines {
			if keep != nil && !keep(l.Num) {
				continue
			}
			var text string
			switch r.Match.Scope {
			case patterns.ScopeComment:
				text = l.Comment
			case patterns.ScopeAny:
				text = l.Raw
			default:
				text = l.Code
			}
			if text != "" && re.MatchString(text) {
				p.report(r, l.Num, l.Num, l.Raw, "", conf)
			}
		}
		if p.cancelled() {
			return
		}
	}
}

// trimSnippet caps s at maxSnippet bytes without splitting a rune.
func trimSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func makeID(ruleID, path string, line int, snippet string) string {
	data := fmt.Sprintf("%s|%s|%d|%s", ruleID, path, line, snippet)
	sum := crc32.ChecksumIEEE([]byte(data))
	return fmt.Sprintf("%s-%08x", ruleID, sum)
}

// Score is 1 - penalty/budget over the concern's rules, floored at 0. A
// concern without rules scores 1.
func Score(lib *patterns.Library, concern string, fs []ir.Finding) float64 {
	budget := lib.MaxPenalty(concern)
	if budget <= 0 {
		return 1
	}
	var penalty float64
	for _, f := range fs {
		if r, ok := lib.Get(f.RuleID); ok {
			penalty += r.Penalty()
		} else {
			penalty += float64(f.Severity.Points())
		}
	}
	return math.Max(0, 1-penalty/budget)
}

// run wraps a detector body with timing, panic capture and cancellation.
func run(ctx context.Context, concern string, in Input, body func(*pass)) (res ir.DetectorResult) {
	start := time.Now()
	fail := func(err error) ir.DetectorResult {
		de := &ir.DetectorError{Detector: concern, Err: err}
		return ir.DetectorResult{DetectorID: concern, Err: de, Error: de.Error()}
	}
	defer func() {
		if r := recover(); r != nil {
			res = fail(fmt.Errorf("panic: %v", r))
		}
		res.Elapsed = time.Since(start)
	}()

	if in.Rules == nil {
		return fail(errNoRules)
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	p := newPass(ctx, concern, in)
	body(p)
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	ir.SortFindings(p.findings)
	return ir.DetectorResult{
		DetectorID: concern,
		Findings:   p.findings,
		Suppressed: p.suppressed,
		Score:      Score(in.Rules, concern, p.findings),
	}
}
