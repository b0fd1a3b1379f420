package patterns

import (
	"regexp"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

// Concerns name the detector that owns a rule.
const (
	ConcernReality      = "reality"
	ConcernAssumption   = "assumption"
	ConcernPrecision    = "precision"
	ConcernTrick        = "trick"
	ConcernManipulation = "manipulation"
	ConcernConsistency  = "consistency"
)

// Kind classifies what a rule detects.
type Kind string

const (
	KindHardcodedSecret        Kind = "hardcoded_secret"
	KindCommentOnlyStub        Kind = "comment_only_stub"
	KindAlwaysTrueReturn       Kind = "always_true_return"
	KindMockWithoutRealAPI     Kind = "mock_without_real_api"
	KindNotImplemented         Kind = "not_implemented"
	KindUnguardedExternalInput Kind = "unguarded_external_input"
	KindUnguardedSubscript     Kind = "unguarded_subscript"
	KindLazyMarker             Kind = "lazy_marker"
	KindSilentException        Kind = "silent_exception"
	KindGoalDrift              Kind = "goal_drift"
	KindWhitelistTrick         Kind = "whitelist_trick"
	KindPathExclusionTrick     Kind = "path_exclusion_trick"
	KindSuppressionPragma      Kind = "suppression_pragma"
	KindDocumentationCosmetic  Kind = "documentation_cosmetic"
	KindStandardLowering       Kind = "standard_lowering"
	KindUnverifiedProjection   Kind = "unverified_projection"
	KindFalsePositiveClaim     Kind = "false_positive_claim"
	KindHardcodedResult        Kind = "hardcoded_result"
	KindIntentMismatch         Kind = "intent_mismatch"
	KindDocMismatch            Kind = "doc_mismatch"
	KindMalformedChange        Kind = "malformed_change"
)

// Scope selects which part of a line a regex rule looks at.
type Scope string

const (
	ScopeCode    Scope = "code"
	ScopeComment Scope = "comment"
	ScopeAny     Scope = "any"
)

// Match is a rule's matcher: either a regex over one scope of
// each line, or structural (implemented by the owning detector).
type Match struct {
	Regex      string `json:"regex,omitempty" yaml:"regex"`
	Scope      Scope  `json:"scope,omitempty" yaml:"scope"`
	Structural bool   `json:"structural,omitempty" yaml:"structural"`

	re *regexp.Regexp
}

// Rule is one detectable pattern definition. Rules are values; the library
// never hands out pointers into its storage.
type Rule struct {
	ID         string          `json:"id"`
	Concern    string          `json:"concern"`
	Kind       Kind            `json:"kind"`
	Summary    string          `json:"summary"`
	Message    string          `json:"message"`
	Severity   ir.Severity     `json:"severity"`
	Weight     float64         `json:"weight"`
	Match      Match           `json:"match"`
	SuppressIn []ir.ContextTag `json:"suppress_in,omitempty"`
}

// Regexp returns the compiled regex, nil for structural rules.
func (r Rule) Regexp() *regexp.Regexp { return r.Match.re }

// Penalty is the rule's contribution to a detector's score per finding.
func (r Rule) Penalty() float64 { return float64(r.Severity.Points()) * r.Weight }

// AppliesTo reports whether the rule is active for input with the given tag.
func (r Rule) AppliesTo(tag ir.ContextTag) bool {
	for _, t := range r.SuppressIn {
		if t == tag {
			return false
		}
	}
	return true
}
