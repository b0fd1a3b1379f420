package ir

import (
	"strings"
	"time"
)

const Version = "1.0"

// Severity is the impact bucket of a rule or finding.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Points is the numeric weight of a severity used by detector scoring.
func (s Severity) Points() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1 // LOW or unknown → LOW
	}
}

// ParseSeverity accepts any casing; ok is false for unknown values.
func ParseSeverity(s string) (Severity, bool) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityLow:
		return SeverityLow, true
	case SeverityMedium:
		return SeverityMedium, true
	case SeverityHigh:
		return SeverityHigh, true
	case SeverityCritical:
		return SeverityCritical, true
	}
	return SeverityLow, false
}

// ContextTag marks scan input whose rule applicability differs from
// production source.
type ContextTag string

const (
	ContextProduction        ContextTag = ""
	ContextGeneratedTemplate ContextTag = "generated-template"
	ContextTestFixture       ContextTag = "test-fixture"
)

func (t ContextTag) Valid() bool {
	switch t {
	case ContextProduction, ContextGeneratedTemplate, ContextTestFixture:
		return true
	}
	return false
}

// TrickKind is one of the seven catalogued metric-gaming tricks.
type TrickKind string

const (
	TrickNone                TrickKind = ""
	TrickDocumentationOnly   TrickKind = "DOCUMENTATION_COSMETIC"
	TrickWhitelist           TrickKind = "WHITELIST_TRICK"
	TrickPathExclusion       TrickKind = "PATH_EXCLUSION_TRICK"
	TrickStandardLowering    TrickKind = "STANDARD_LOWERING"
	TrickProjectedResults    TrickKind = "PROJECTED_RESULTS"
	TrickFalsePositiveExcuse TrickKind = "FALSE_POSITIVE_EXCUSE"
	TrickHardcodedResult     TrickKind = "HARDCODED_RESULT"
)

// TrickKinds lists the known kinds in gate order.
var TrickKinds = []TrickKind{
	TrickDocumentationOnly,
	TrickWhitelist,
	TrickPathExclusion,
	TrickStandardLowering,
	TrickProjectedResults,
	TrickFalsePositiveExcuse,
	TrickHardcodedResult,
}

// Index returns the position of k in TrickKinds, or -1.
func (k TrickKind) Index() int {
	for i, kk := range TrickKinds {
		if kk == k {
			return i
		}
	}
	return -1
}

// Decision is the gate outcome for a change proposal.
type Decision string

const (
	DecisionApproved Decision = "APPROVED" // genuine fix
	DecisionBlocked  Decision = "BLOCKED"  // trick detected or evaluation failed
	DecisionRejected Decision = "REJECTED" // no meaningful logic delta
)

type Finding struct {
	ID         string   `json:"id"`
	Detector   string   `json:"detector"`
	Path       string   `json:"path"`
	LineStart  int      `json:"line_start"`
	LineEnd    int      `json:"line_end"`
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Snippet    string   `json:"snippet,omitempty"`
	Confidence float64  `json:"confidence"`
}

type DetectorResult struct {
	DetectorID string        `json:"detector_id"`
	Findings   []Finding     `json:"findings,omitempty"`
	Score      float64       `json:"score"`
	Elapsed    time.Duration `json:"elapsed_ns"`
	// NotApplicable results (e.g. a diff detector without a baseline) are
	// left out of the composite without counting as failures.
	NotApplicable bool          `json:"not_applicable,omitempty"`
	Suppressed    []Suppression `json:"suppressed,omitempty"`
	Error         string        `json:"error,omitempty"`
	Err           error         `json:"-"`
}

// OK reports whether the result participates in the composite score.
func (r DetectorResult) OK() bool { return r.Err == nil && r.Error == "" && !r.NotApplicable }

// Suppression records a match that a context tag made non-applicable.
type Suppression struct {
	Finding Finding    `json:"finding"`
	Tag     ContextTag `json:"tag"`
}

type Report struct {
	ID                string           `json:"id"`
	Target            string           `json:"target"`
	ContextTag        ContextTag       `json:"context_tag,omitempty"`
	Score             float64          `json:"score"`
	SeverityBreakdown map[Severity]int `json:"severity_breakdown"`
	Findings          []Finding        `json:"findings"`
	Results           []DetectorResult `json:"results"`
	Suppressed        []Suppression    `json:"suppressed,omitempty"`
	RulesVersion      string           `json:"rules_version,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	Failed            bool             `json:"failed,omitempty"`
	Error             string           `json:"error,omitempty"`
}

// Check is a reproducible verification attached to a change proposal.
type Check struct {
	Name      string `json:"name"`
	Reference string `json:"reference"` // command, CI run URL or artifact path
	Verified  bool   `json:"verified"`
}

// Measurement is an observed (not projected) metric value.
type Measurement struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Source string  `json:"source,omitempty"`
}

type Evidence struct {
	Checks       []Check       `json:"checks,omitempty"`
	Measurements []Measurement `json:"measurements,omitempty"`
}

// HasVerifiableCheck is true when at least one check names a reference and
// was verified.
func (e *Evidence) HasVerifiableCheck() bool {
	if e == nil {
		return false
	}
	for _, c := range e.Checks {
		if c.Verified && strings.TrimSpace(c.Name) != "" && strings.TrimSpace(c.Reference) != "" {
			return true
		}
	}
	return false
}

func (e *Evidence) HasMeasurement() bool {
	if e == nil {
		return false
	}
	for _, m := range e.Measurements {
		if strings.TrimSpace(m.Metric) != "" {
			return true
		}
	}
	return false
}

type ChangeProposal struct {
	ID          string    `json:"id,omitempty"`
	OldCode     string    `json:"old_code"`
	NewCode     string    `json:"new_code"`
	Path        string    `json:"path"`
	Description string    `json:"description,omitempty"`
	Evidence    *Evidence `json:"evidence,omitempty"`
}

type TrickVerdict struct {
	ProposalID  string         `json:"proposal_id"`
	Path        string         `json:"path,omitempty"`
	Trick       TrickKind      `json:"trick_detected,omitempty"`
	IsRealFix   bool           `json:"is_real_fix"`
	Decision    Decision       `json:"decision"`
	Reason      string         `json:"reason"`
	Evidence    map[string]any `json:"evidence,omitempty"`
	Findings    []Finding      `json:"findings,omitempty"`
	TokenDelta  int            `json:"token_delta"`
	EvalError   string         `json:"eval_error,omitempty"`
	EvaluatedAt time.Time      `json:"evaluated_at"`
}

// HasTrick reports whether a trick kind was detected.
func (v TrickVerdict) HasTrick() bool { return v.Trick != TrickNone }
