package detectors

import (
	"context"
	"regexp"
	"strconv"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
)

func init() {
	Register(patterns.ConcernTrick, func() (Detector, error) { return trick{}, nil })
}

// trick looks at a single snapshot for signs that checks were silenced or
// results overstated. The diff-aware variant lives in manipulation.go.
type trick struct{}

func (trick) ID() string { return patterns.ConcernTrick }

var (
	whitelistKeyRe   = regexp.MustCompile(`(?i)(?:^|[\s"'{,])(whitelist(?:ed)?|allow_?list(?:ed)?|ignore_?(?:rules|checks|errors|warnings|codes)|ignored_?(?:rules|checks)|skip_?(?:checks|rules)|disabled?_?rules|suppress(?:ions|_rules)?|known_?failures|false_?positives|per-file-ignores)["']?\s*[:=]`)
	pathExcludeKeyRe = regexp.MustCompile(`(?i)(?:^|[\s"'{,])(exclude(?:_?(?:paths|dirs|files|patterns))?|excluded_?(?:paths|dirs|files)|ignore_?(?:paths|dirs|files|patterns)|skip_?(?:paths|dirs|files)|paths-ignore|extend-exclude|norecursedirs|omit|testPathIgnorePatterns|coveragePathIgnorePatterns)["']?\s*[:=]`)

	perfectRe = regexp.MustCompile(`(?i)\b(perfect(?:ly)?|flawless|complete(?:d|ly)?|fully|good enough|production[- ]ready|bulletproof|100% (?:done|complete|working))\b`)
	sub100Re  = regexp.MustCompile(`\b(\d{1,2}(?:\.\d+)?)\s*%`)
)

func (trick) Scan(ctx context.Context, in Input) ir.DetectorResult {
	return run(ctx, patterns.ConcernTrick, in, func(p *pass) {
		p.regexRules()
		if p.cancelled() {
			return
		}
		for _, l := range p.lines {
			switch {
			case pathExcludeKeyRe.MatchString(l.Code):
				p.reportKind(patterns.KindPathExclusionTrick, l.Num, l.Num, l.Raw, "", 0.7)
			case whitelistKeyRe.MatchString(l.Code):
				p.reportKind(patterns.KindWhitelistTrick, l.Num, l.Num, l.Raw, "", 0.7)
			}
			if fig, ok := PerfectWithSub100(l.Raw); ok {
				p.reportKind(patterns.KindStandardLowering, l.Num, l.Num, l.Raw,
					"Claims perfection or completion next to "+fig+"%.", 0.8)
			}
		}
	})
}

// PerfectWithSub100 reports whether text pairs a perfection or completion
// word with a percentage below 100, returning the figure.
func PerfectWithSub100(text string) (string, bool) {
	if !perfectRe.MatchString(text) {
		return "", false
	}
	for _, m := range sub100Re.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v < 100 {
			return m[1], true
		}
	}
	return "", false
}
