package detectors

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

func init() {
	Register(patterns.ConcernAssumption, func() (Detector, error) { return assumption{}, nil })
}

// assumption flags values from outside the process (environment, argv,
// request payloads, decoded JSON) that are used before anything checks
// they exist or have the expected shape.
type assumption struct{}

func (assumption) ID() string { return patterns.ConcernAssumption }

const externalSrc = `os\.environ\.get\(|os\.environ\[|os\.getenv\(|os\.Getenv\(|os\.Args\[|sys\.argv\[|` +
	`request\.(?:json|args|form|values|data|get_json\(\))|json\.loads?\(|yaml\.safe_load\(|` +
	`process\.env\.|process\.argv\[|req\.(?:body|query|params)|JSON\.parse\(`

var (
	externalAssignRe = regexp.MustCompile(`^\s*(?:const\s+|let\s+|var\s+)?([A-Za-z_$][\w$]*)\s*(?::=|=)\s*(?:` + externalSrc + `)`)
	defaultedRe      = regexp.MustCompile(`(?:get|getenv)\([^,)]+,\s*[^)]|\?\?|\|\||\bor\b`)
	guardRe          = regexp.MustCompile(`\b(?:if|elif|assert|while|switch|case|unless|guard|try|except|catch|isinstance|typeof)\b|\?\?|\|\||\bor\b|!= ?nil|== ?nil|\bis (?:not )?None\b|\blen\(`)

	externalSubscriptRe = regexp.MustCompile(`(os\.environ|sys\.argv|os\.Args|process\.argv|request\.(?:json|args|form|values)|req\.(?:body|query|params))\s*\[`)
)

func (assumption) Scan(ctx context.Context, in Input) ir.DetectorResult {
	return run(ctx, patterns.ConcernAssumption, in, func(p *pass) {
		p.regexRules()
		for _, block := range scopes(p) {
			if p.cancelled() {
				return
			}
			unguardedInputs(p, block)
			unguardedSubscripts(p, block)
		}
	})
}

// scopes returns each function body, plus the module-level lines outside
// any function.
func scopes(p *pass) [][]source.Line {
	var out [][]source.Line
	inFunc := map[int]bool{}
	for _, f := range p.functions() {
		out = append(out, f.Body)
		for n := f.Start; n <= f.End; n++ {
			inFunc[n] = true
		}
	}
	var top []source.Line
	for _, l := range p.lines {
		if !inFunc[l.Num] {
			top = append(top, l)
		}
	}
	return append(out, top)
}

func unguardedInputs(p *pass, block []source.Line) {
	for i, l := range block {
		m := externalAssignRe.FindStringSubmatch(l.Code)
		if m == nil || defaultedRe.MatchString(l.Code) || externalSubscriptRe.MatchString(l.Code) {
			continue
		}
		name := m[1]
		use := regexp.MustCompile(`(?:^|[^\w$.])` + regexp.QuoteMeta(name) + `(?:[^\w$]|$)`)
		for _, next := range block[i+1:] {
			code := source.MaskStrings(next.Code)
			if !use.MatchString(code) {
				continue
			}
			if guardRe.MatchString(code) {
				break
			}
			if reassigned(code, name) {
				break
			}
			p.reportKind(patterns.KindUnguardedExternalInput, next.Num, next.Num, next.Raw,
				"External value "+name+" (line "+strconv.Itoa(l.Num)+") is used without a preceding guard.", 0.7)
			break
		}
	}
}

func reassigned(code, name string) bool {
	code = strings.TrimSpace(code)
	return strings.HasPrefix(code, name+" =") || strings.HasPrefix(code, name+"=") || strings.HasPrefix(code, name+" :=")
}

func unguardedSubscripts(p *pass, block []source.Line) {
	for i, l := range block {
		m := externalSubscriptRe.FindStringSubmatch(l.Code)
		if m == nil || guardRe.MatchString(l.Code) {
			continue
		}
		if guardedBefore(block[:i], m[1], l) {
			continue
		}
		p.reportKind(patterns.KindUnguardedSubscript, l.Num, l.Num, l.Raw,
			m[1]+" is indexed directly without a membership or length check.", 0.75)
	}
}

// guardedBefore looks for a membership or length check of mapping, or an
// enclosing try block, earlier in the same scope.
func guardedBefore(prev []source.Line, mapping string, at source.Line) bool {
	q := regexp.QuoteMeta(mapping)
	check := regexp.MustCompile(`\bin\s+` + q + `\b|len\(\s*` + q + `\s*\)|` + q + `\.length|` + q + `\.(?:get|has|hasOwnProperty|includes)\(|\bin\s+` + q + `\s*\)`)
	atIndent := indent(at.Raw)
	for j := len(prev) - 1; j >= 0; j-- {
		code := prev[j].Code
		if check.MatchString(code) {
			return true
		}
		t := strings.TrimSpace(code)
		if (t == "try:" || strings.HasPrefix(t, "try {") || t == "try{") && indent(prev[j].Raw) < atIndent {
			return true
		}
	}
	return false
}

func indent(s string) int { return len(s) - len(strings.TrimLeft(s, " \t")) }
