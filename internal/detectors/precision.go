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
	Register(patterns.ConcernPrecision, func() (Detector, error) { return precision{}, nil })
}

type precision struct{}

func (precision) ID() string { return patterns.ConcernPrecision }

var (
	pyExceptRe      = regexp.MustCompile(`^\s*except\b[^:]*:\s*(.*)$`)
	blockOpenRe     = regexp.MustCompile(`(?:\bcatch\s*(?:\([^)]*\))?|\bif\b[^{]*\berr\s*!=\s*nil|\brescue\b[^{]*)\s*\{\s*$`)
	emptyInlineRe   = regexp.MustCompile(`(?:\bcatch\s*(?:\([^)]*\))?|\bif\b[^{]*\berr\s*!=\s*nil)\s*\{\s*\}`)
	emptyPromiseRe  = regexp.MustCompile(`\.catch\(\s*(?:\([^)]*\)|\w+)?\s*=>\s*\{\s*\}\s*\)|\.catch\(\s*function\s*\([^)]*\)\s*\{\s*\}\s*\)`)
	discardErrRe    = regexp.MustCompile(`^\s*_\s*=\s*err\s*;?$`)
	silentStatement = map[string]bool{"pass": true, "...": true, "continue": true}
)

func (precision) Scan(ctx context.Context, in Input) ir.DetectorResult {
	return run(ctx, patterns.ConcernPrecision, in, func(p *pass) {
		p.regexRules()
		if p.cancelled() {
			return
		}
		silentCatches(p)
	})
}

func silentCatches(p *pass) {
	for i, l := range p.lines {
		code := source.MaskStrings(l.Code)
		switch {
		case emptyInlineRe.MatchString(code), emptyPromiseRe.MatchString(code), discardErrRe.MatchString(code):
			p.reportKind(patterns.KindSilentException, l.Num, l.Num, l.Raw, "", 0.9)
		case pyExceptRe.MatchString(code):
			m := pyExceptRe.FindStringSubmatch(code)
			if rest := strings.TrimSpace(m[1]); rest != "" {
				if silentStatement[rest] {
					p.reportKind(patterns.KindSilentException, l.Num, l.Num, l.Raw, "", 0.9)
				}
				continue
			}
			if end, ok := pythonSilentBlock(p.lines, i); ok {
				p.reportKind(patterns.KindSilentException, l.Num, end, l.Raw, "", 0.9)
			}
		case blockOpenRe.MatchString(code):
			if end, ok := emptyBraceBlock(p.lines, i); ok {
				p.reportKind(patterns.KindSilentException, l.Num, end, l.Raw, "", 0.85)
			}
		}
	}
}

// pythonSilentBlock reports whether the except block opened at line i
// contains only pass/ellipsis/continue.
func pythonSilentBlock(lines []source.Line, i int) (int, bool) {
	head := indent(lines[i].Raw)
	end := lines[i].Num
	saw := false
	for _, l := range lines[i+1:] {
		if l.Blank() {
			continue
		}
		if indent(l.Code) <= head {
			break
		}
		if !silentStatement[strings.TrimSpace(l.Code)] {
			return 0, false
		}
		saw = true
		end = l.Num
	}
	return end, saw
}

// emptyBraceBlock reports whether the block opened at the end of line i
// closes with nothing but blank or comment lines in between.
func emptyBraceBlock(lines []source.Line, i int) (int, bool) {
	for _, l := range lines[i+1:] {
		if l.Blank() {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(l.Code), "}") {
			return l.Num, true
		}
		return 0, false
	}
	return 0, false
}
