package detectors

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

// DefaultMinTokenDelta is the logic change, in tokens, a proposal must
// exceed to count as a real fix.
const DefaultMinTokenDelta = 1

func init() {
	Register(patterns.ConcernManipulation, func() (Detector, error) {
		return NewManipulation(DefaultMinTokenDelta), nil
	})
}

// Manipulation compares a change against its baseline and classifies it
// as one of the catalogued tricks, a real fix, or a no-op.
type Manipulation struct {
	MinTokenDelta int
}

func NewManipulation(minTokenDelta int) *Manipulation {
	if minTokenDelta < 0 {
		minTokenDelta = DefaultMinTokenDelta
	}
	return &Manipulation{MinTokenDelta: minTokenDelta}
}

func (*Manipulation) ID() string { return patterns.ConcernManipulation }

// Classification is the outcome of the ordered trick gate.
type Classification struct {
	Trick      ir.TrickKind
	RealFix    bool
	Malformed  bool
	Reason     string
	TokenDelta int
	Evidence   map[string]any
	Findings   []ir.Finding
}

// Scan is not applicable without a baseline.
func (m *Manipulation) Scan(ctx context.Context, in Input) ir.DetectorResult {
	if in.Baseline == nil {
		return ir.DetectorResult{DetectorID: patterns.ConcernManipulation, Score: 1, NotApplicable: true}
	}
	prop := ir.ChangeProposal{OldCode: *in.Baseline, NewCode: in.Content, Path: in.Path}
	return run(ctx, patterns.ConcernManipulation, in, func(p *pass) {
		m.classify(p, prop)
		addedRules(p, prop)
	})
}

// Classify runs the gate over a change proposal. Detector failures,
// including panics, come back as an error.
func (m *Manipulation) Classify(ctx context.Context, prop ir.ChangeProposal, lib *patterns.Library) (Classification, error) {
	var c Classification
	in := Input{Path: prop.Path, Content: prop.NewCode, Rules: lib}
	res := run(ctx, patterns.ConcernManipulation, in, func(p *pass) {
		c = m.classify(p, prop)
		addedRules(p, prop)
	})
	if res.Err != nil {
		return Classification{}, res.Err
	}
	c.Findings = res.Findings
	return c, nil
}

var (
	suppressVocabRe = regexp.MustCompile(`(?i)\b(whitelist(?:ed|ing)?|allow_?list(?:ed)?|skip(?:ped|s|_\w+)?|ignore(?:d|s|_\w+)?|exclude(?:d|s|_\w+)?|suppress(?:ed|ions?|_\w+)?|noqa|nolint|nosec|xfail|eslint-disable[\w-]*|istanbul\s+ignore|pragma:\s*no\s*cover)\b|realitycheck:context=`)
	pathLiteralRe   = regexp.MustCompile(`["'][^"'\s]*(?:/|\\\\|\*)[^"'\s]*["']|["'][\w.-]+\.(?:py|pyi|js|jsx|ts|tsx|go|java|rb|rs|c|cc|cpp|h|cs|php|kt|swift)["']|\b(?:tests?|vendor|node_modules|legacy|generated|migrations|third_party)/`)
	thresholdRe     = regexp.MustCompile(`(?i)\b([\w.-]*(?:threshold|fail[_-]?under|coverage|min(?:imum)?[_-]?score|pass[_-]?rate|quality[_-]?gate)[\w.-]*)["']?\s*[:=]\s*(\d+(?:\.\d+)?)`)
	projectionRe    = regexp.MustCompile(`(?i)\b(expected to|projected|projection|should (?:reach|improve|increase|decrease|drop|be)|will (?:reach|improve|increase|reduce|drop|achieve)|estimated (?:to|at)|anticipated|on track to|forecast(?:ed)?)\b`)
	falsePositiveRe = regexp.MustCompile(`(?i)\bfalse[- ]positives?\b|\bnot a (?:real )?(?:bug|issue|problem)\b|\bthe (?:scanner|linter|detector) is wrong\b`)
	docClaimRe      = regexp.MustCompile(`(?i)\b(real|implement(?:s|ed|ation)?|fix(?:es|ed)?|complete[ds]?|correct(?:ly|ness)?|working|works|verified|validated|production[- ]ready|done|resolved)\b`)
	sentenceSplitRe = regexp.MustCompile(`[!?]+|\.(?:\s+|$)|\n`)
)

// gateHit locates the evidence for a gate rule. Line 0 means the hit came
// from the description rather than the code.
type gateHit struct {
	line    int
	text    string
	message string
}

func (m *Manipulation) classify(p *pass, prop ir.ChangeProposal) Classification {
	c := Classification{Evidence: map[string]any{}}

	if strings.TrimSpace(prop.NewCode) == "" {
		return c.malformed(p, prop, "new code is empty")
	}

	oldLogic, oldDocs := source.Strip(prop.OldCode, p.lang)
	newLogic, newDocs := source.Strip(prop.NewCode, p.lang)
	c.TokenDelta = source.TokenDelta(source.Tokens(oldLogic), source.Tokens(newLogic))
	added, removed := lineDiff(prop.OldCode, prop.NewCode)

	verifiable := prop.Evidence.HasVerifiableCheck()
	measured := prop.Evidence.HasMeasurement()
	c.Evidence["token_delta"] = c.TokenDelta
	c.Evidence["lines_added"] = len(added)
	c.Evidence["lines_removed"] = len(removed)
	c.Evidence["verifiable_check"] = verifiable
	c.Evidence["measurement"] = measured

	if oldLogic == newLogic && oldDocs != newDocs {
		if h, ok := cosmeticDocs(oldDocs, newDocs, added); ok {
			return c.trick(p, ir.TrickDocumentationOnly, h)
		}
	}

	if !source.Balanced(prop.NewCode, p.lang) {
		return c.malformed(p, prop, "new code has unbalanced delimiters")
	}

	if !verifiable {
		if h, narrows, ok := suppressionAdded(added, removed); ok {
			kind := ir.TrickWhitelist
			if narrows {
				kind = ir.TrickPathExclusion
			}
			return c.trick(p, kind, h)
		}
	}

	if h, ok := standardLowered(prop.Description, added, removed); ok {
		return c.trick(p, ir.TrickStandardLowering, h)
	}

	if !measured {
		if h, ok := claimIn(projectionRe, prop.Description, p, added,
			"Projected results are claimed without a measurement."); ok {
			return c.trick(p, ir.TrickProjectedResults, h)
		}
	}

	if !verifiable {
		if h, ok := claimIn(falsePositiveRe, prop.Description, p, added,
			"A finding is dismissed as a false positive without a verifiable check."); ok {
			return c.trick(p, ir.TrickFalsePositiveExcuse, h)
		}
	}

	if h, ok := hardcodedResult(prop.OldCode, prop.NewCode, p.lang); ok {
		return c.trick(p, ir.TrickHardcodedResult, h)
	}

	if c.TokenDelta > m.MinTokenDelta {
		c.RealFix = true
		c.Reason = fmt.Sprintf("logic changed by %d tokens", c.TokenDelta)
		return c
	}
	c.Reason = fmt.Sprintf("no meaningful logic change (%d tokens, need more than %d)", c.TokenDelta, m.MinTokenDelta)
	return c
}

// addedRules runs the concern's regex rules over inserted lines only, so an
// unchanged file never matches.
func addedRules(p *pass, prop ir.ChangeProposal) {
	added, _ := lineDiff(prop.OldCode, prop.NewCode)
	if len(added) == 0 {
		return
	}
	nums := make(map[int]bool, len(added))
	for _, a := range added {
		nums[a.Num] = true
	}
	p.regexRulesOn(func(n int) bool { return nums[n] })
}

func (c Classification) malformed(p *pass, prop ir.ChangeProposal, why string) Classification {
	c.Malformed = true
	c.TokenDelta = 0
	c.Reason = why + "; nothing to evaluate"
	c.Evidence["malformed"] = why
	p.reportKind(patterns.KindMalformedChange, 1, 1, firstNonBlank(prop.NewCode), "New code is malformed: "+why+".", 1)
	return c
}

func (c Classification) trick(p *pass, kind ir.TrickKind, h gateHit) Classification {
	c.Trick = kind
	c.Reason = h.message
	if h.line > 0 {
		c.Evidence["line"] = h.line
	}
	if h.text != "" {
		c.Evidence["matched"] = trimSnippet(h.text)
	}
	line := h.line
	if line == 0 {
		line = 1
	}
	p.reportKind(patterns.TrickRuleKind[kind], line, line, h.text, h.message, 0.9)
	return c
}

// cosmeticDocs decides whether a documentation-only change claims
// something. It does when documentation lines are added overall or when
// new text carries correctness wording. Removals and rewordings without
// such wording are plain no-ops.
func cosmeticDocs(oldDocs, newDocs string, added []diffLine) (gateHit, bool) {
	count := map[string]int{}
	for _, d := range splitDocs(oldDocs) {
		count[d]++
	}
	var fresh []string
	removed := 0
	for _, d := range splitDocs(newDocs) {
		if count[d] > 0 {
			count[d]--
			continue
		}
		fresh = append(fresh, d)
	}
	for _, n := range count {
		removed += n
	}

	h := gateHit{message: "Only documentation changed; the logic is identical."}
	if len(added) > 0 {
		h.line, h.text = added[0].Num, added[0].Text
	}
	for _, d := range fresh {
		if docClaimRe.MatchString(d) {
			h.message = "Only documentation changed, and it now claims correctness; the logic is identical."
			for _, a := range added {
				if strings.Contains(normalizeFields(a.Text), d) {
					h.line, h.text = a.Num, a.Text
					break
				}
			}
			return h, true
		}
	}
	return h, len(fresh) > removed
}

func splitDocs(docs string) []string {
	if docs == "" {
		return nil
	}
	return strings.Split(docs, "\n")
}

func normalizeFields(s string) string { return strings.Join(strings.Fields(s), " ") }

// suppressionAdded finds an inserted line carrying suppression vocabulary
// that was not simply moved. narrows is true when the line names paths.
func suppressionAdded(added, removed []diffLine) (gateHit, bool, bool) {
	moved := map[string]bool{}
	for _, r := range removed {
		moved[normalizeFields(r.Text)] = true
	}
	for _, a := range added {
		if !suppressVocabRe.MatchString(a.Text) || moved[normalizeFields(a.Text)] {
			continue
		}
		if pathLiteralRe.MatchString(a.Text) || pathExcludeKeyRe.MatchString(a.Text) {
			return gateHit{line: a.Num, text: a.Text, message: "Files or directories are excluded from checking without a verifiable check."}, true, true
		}
		return gateHit{line: a.Num, text: a.Text, message: "A skip/ignore/whitelist entry is added without a verifiable check."}, false, true
	}
	return gateHit{}, false, false
}

func standardLowered(desc string, added, removed []diffLine) (gateHit, bool) {
	for _, s := range sentences(desc) {
		if fig, ok := PerfectWithSub100(s); ok {
			return gateHit{text: s, message: "The description calls a " + fig + "% result perfect or complete."}, true
		}
	}
	for _, a := range added {
		if fig, ok := PerfectWithSub100(a.Text); ok {
			return gateHit{line: a.Num, text: a.Text, message: "The change calls a " + fig + "% result perfect or complete."}, true
		}
	}
	before := map[string]float64{}
	for _, r := range removed {
		for _, m := range thresholdRe.FindAllStringSubmatch(r.Text, -1) {
			if v, err := strconv.ParseFloat(m[2], 64); err == nil {
				before[strings.ToLower(m[1])] = v
			}
		}
	}
	for _, a := range added {
		for _, m := range thresholdRe.FindAllStringSubmatch(a.Text, -1) {
			v, err := strconv.ParseFloat(m[2], 64)
			old, ok := before[strings.ToLower(m[1])]
			if err == nil && ok && v < old {
				return gateHit{line: a.Num, text: a.Text,
					message: fmt.Sprintf("Threshold %s is lowered from %s to %s.", m[1], fmtNum(old), fmtNum(v))}, true
			}
		}
	}
	return gateHit{}, false
}

// claimIn looks for re in the description and in comments on inserted
// lines.
func claimIn(re *regexp.Regexp, desc string, p *pass, added []diffLine, message string) (gateHit, bool) {
	for _, s := range sentences(desc) {
		if re.MatchString(s) {
			return gateHit{text: s, message: message}, true
		}
	}
	for _, a := range added {
		if c := p.line(a.Num).Comment; c != "" && re.MatchString(c) {
			return gateHit{line: a.Num, text: a.Text, message: message}, true
		}
	}
	return gateHit{}, false
}

// hardcodedResult reports a function whose computed return was replaced by
// a literal one. Snippets without functions are compared as a whole.
func hardcodedResult(old, new string, lang source.Lang) (gateHit, bool) {
	oldFns := source.Functions(source.Split(old, lang), lang)
	newLines := source.Split(new, lang)
	newFns := source.Functions(newLines, lang)

	if len(oldFns) == 0 && len(newFns) == 0 {
		oldFns = []source.Function{{Body: source.Split(old, lang)}}
		newFns = []source.Function{{Body: newLines}}
	}
	byName := map[string]source.Function{}
	for _, f := range oldFns {
		byName[f.Name] = f
	}
	for _, nf := range newFns {
		of, ok := byName[nf.Name]
		if !ok {
			continue
		}
		oldComputed, oldLits := returnSets(of)
		newComputed, newLits := returnSets(nf)
		lost := false
		for expr := range oldComputed {
			if !newComputed[expr] {
				lost = true
				break
			}
		}
		if !lost {
			continue
		}
		for _, l := range nf.Body {
			v, ok := source.ReturnValue(strings.TrimSpace(l.Code))
			if ok && newLits[v] && !oldLits[v] {
				name := nf.Name
				if name == "" {
					name = "the snippet"
				}
				return gateHit{line: l.Num, text: l.Raw,
					message: "A computed result in " + name + " is replaced by the constant " + v + "."}, true
			}
		}
	}
	return gateHit{}, false
}

func returnSets(f source.Function) (computed, literal map[string]bool) {
	computed, literal = map[string]bool{}, map[string]bool{}
	for _, s := range f.Statements() {
		v, ok := source.ReturnValue(s)
		if !ok {
			continue
		}
		if source.IsLiteral(v) {
			literal[v] = true
		} else {
			computed[normalizeFields(v)] = true
		}
	}
	return computed, literal
}

func sentences(s string) []string {
	var out []string
	for _, part := range sentenceSplitRe.Split(s, -1) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func firstNonBlank(s string) string {
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

func fmtNum(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
