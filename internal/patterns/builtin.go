package patterns

import "github.com/Bharath-kolekar/cogone-sub001/internal/ir"

// BuiltinVersion identifies the compiled-in rule set.
const BuiltinVersion = "builtin-2"

var (
	tmpl    = []ir.ContextTag{ir.ContextGeneratedTemplate}
	fixture = []ir.ContextTag{ir.ContextTestFixture}
	both    = []ir.ContextTag{ir.ContextGeneratedTemplate, ir.ContextTestFixture}
)

func structural() Match { return Match{Structural: true} }

var builtinRules = []Rule{
	// reality
	{
		ID: "REALITY-HARDCODED-SECRET", Concern: ConcernReality, Kind: KindHardcodedSecret,
		Summary:  "Credential-like name assigned a literal value.",
		Message:  "Hardcoded secret literal; load it from the environment or a secret store.",
		Severity: ir.SeverityHigh, Weight: 3,
		Match: Match{
			Regex: `(?i)\b[\w.]*(?:secret|passw(?:or)?d|api[_-]?key|auth[_-]?token|access[_-]?token|token|private[_-]?key|access[_-]?key)\w*["']?\s*(?::=|=|:)\s*["'][^"'\s$<{][^"'\s]{3,}["']`,
			Scope: ScopeCode,
		},
		SuppressIn: both,
	},
	{
		ID: "REALITY-COMMENT-ONLY-STUB", Concern: ConcernReality, Kind: KindCommentOnlyStub,
		Summary:  "Function body holds only comments, docstrings or pass.",
		Message:  "Function has no executable body; it is a placeholder.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: tmpl,
	},
	{
		ID: "REALITY-ALWAYS-TRUE-RETURN", Concern: ConcernReality, Kind: KindAlwaysTrueReturn,
		Summary:  "Function unconditionally returns a constant success value.",
		Message:  "Function always reports success without doing any work.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "REALITY-MOCK-WITHOUT-API", Concern: ConcernReality, Kind: KindMockWithoutRealAPI,
		Summary:  "Function claims an external integration but performs no I/O.",
		Message:  "Integration is claimed but the body returns canned data without calling any client.",
		Severity: ir.SeverityHigh, Weight: 2, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "REALITY-NOT-IMPLEMENTED", Concern: ConcernReality, Kind: KindNotImplemented,
		Summary:  "Explicit not-implemented marker.",
		Message:  "Code path raises a not-implemented marker.",
		Severity: ir.SeverityHigh, Weight: 2,
		Match: Match{
			Regex: `\braise\s+NotImplementedError\b|\bpanic\(\s*"(?i:not implemented|unimplemented|todo)[^"]*"\s*\)|\bthrow\s+new\s+\w*Error\(\s*["'](?i:not implemented)[^"']*["']|\bunimplemented!\(|\btodo!\(`,
			Scope: ScopeCode,
		},
		SuppressIn: tmpl,
	},

	// assumption
	{
		ID: "ASSUME-UNGUARDED-EXTERNAL-INPUT", Concern: ConcernAssumption, Kind: KindUnguardedExternalInput,
		Summary:  "Externally sourced value used before any existence or type check.",
		Message:  "External value is used without a preceding guard in the same scope.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "ASSUME-UNGUARDED-SUBSCRIPT", Concern: ConcernAssumption, Kind: KindUnguardedSubscript,
		Summary:  "Direct subscript into an external mapping without a membership check.",
		Message:  "External mapping is indexed directly; a missing key fails at runtime.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: fixture,
	},

	// precision
	{
		ID: "PRECISION-LAZY-MARKER", Concern: ConcernPrecision, Kind: KindLazyMarker,
		Summary:  "TODO/FIXME/XXX/HACK marker.",
		Message:  "Unfinished-work marker left in the code.",
		Severity: ir.SeverityLow, Weight: 1,
		Match:    Match{Regex: `\b(TODO|FIXME|XXX|HACK)\b`, Scope: ScopeComment},
		SuppressIn: tmpl,
	},
	{
		ID: "PRECISION-SILENT-CATCH", Concern: ConcernPrecision, Kind: KindSilentException,
		Summary:  "Error caught and discarded.",
		Message:  "Error is swallowed without handling, logging or re-raising.",
		Severity: ir.SeverityHigh, Weight: 2, Match: structural(),
	},
	{
		ID: "PRECISION-GOAL-DRIFT", Concern: ConcernPrecision, Kind: KindGoalDrift,
		Summary:  "Imprecise goal language.",
		Message:  "Approximate wording suggests the requirement was relaxed.",
		Severity: ir.SeverityLow, Weight: 1,
		Match: Match{
			Regex: `(?i)\b(approximately|roughly|good enough|close enough|should be fine|more or less|ballpark|for now)\b`,
			Scope: ScopeComment,
		},
	},

	// trick (single snapshot)
	{
		ID: "TRICK-WHITELIST-CONFIG", Concern: ConcernTrick, Kind: KindWhitelistTrick,
		Summary:  "Suppression or whitelist entry in configuration or code.",
		Message:  "Entry suppresses checks instead of fixing what they report.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "TRICK-PATH-EXCLUSION", Concern: ConcernTrick, Kind: KindPathExclusionTrick,
		Summary:  "Files or directories excluded from scanning.",
		Message:  "Exclusion narrows the scanned scope.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "TRICK-SUPPRESSION-PRAGMA", Concern: ConcernTrick, Kind: KindSuppressionPragma,
		Summary:  "Inline linter or scanner suppression pragma.",
		Message:  "Inline pragma silences a check on this line.",
		Severity: ir.SeverityLow, Weight: 1,
		Match: Match{
			Regex: `(?i)\b(noqa|nolint|eslint-disable(?:-next-line|-line)?|pragma:\s*no\s*cover|istanbul\s+ignore|nosec)\b`,
			Scope: ScopeComment,
		},
		SuppressIn: fixture,
	},
	{
		ID: "TRICK-PERFECT-SUB100", Concern: ConcernTrick, Kind: KindStandardLowering,
		Summary:  "Perfection or completion claimed next to a sub-100% figure.",
		Message:  "Claims perfect/complete while citing a figure below 100%.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "TRICK-UNVERIFIED-PROJECTION", Concern: ConcernTrick, Kind: KindUnverifiedProjection,
		Summary:  "Forward-looking result claim.",
		Message:  "Projected result stated as if measured.",
		Severity: ir.SeverityMedium, Weight: 2,
		Match: Match{
			Regex: `(?i)\b(expected to (?:reach|achieve|improve|be)|projected|should reach|will reach|estimated to|anticipated to|on track to)\b`,
			Scope: ScopeAny,
		},
	},
	{
		ID: "TRICK-FALSE-POSITIVE-CLAIM", Concern: ConcernTrick, Kind: KindFalsePositiveClaim,
		Summary:  "Finding dismissed as a false positive in a comment.",
		Message:  "False-positive claim without linked evidence.",
		Severity: ir.SeverityMedium, Weight: 2,
		Match:    Match{Regex: `(?i)\bfalse[- ]positives?\b`, Scope: ScopeComment},
		SuppressIn: fixture,
	},

	// manipulation (diff-aware, drives the policy gate)
	{
		ID: "MANIP-DOCUMENTATION-COSMETIC", Concern: ConcernManipulation, Kind: KindDocumentationCosmetic,
		Summary:  "Only documentation changed.",
		Message:  "Documentation changed while the logic is identical.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "MANIP-WHITELIST", Concern: ConcernManipulation, Kind: KindWhitelistTrick,
		Summary:  "Suppression entry added without evidence.",
		Message:  "Change adds a skip/ignore/exclude/whitelist entry without a verifiable check.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "MANIP-PATH-EXCLUSION", Concern: ConcernManipulation, Kind: KindPathExclusionTrick,
		Summary:  "Scan scope narrowed by excluding files or directories.",
		Message:  "Change excludes files or directories from checking without a verifiable check.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "MANIP-STANDARD-LOWERING", Concern: ConcernManipulation, Kind: KindStandardLowering,
		Summary:  "Sub-100% figure presented as perfect or complete.",
		Message:  "Change lowers the standard by calling a partial result complete.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "MANIP-PROJECTED-RESULTS", Concern: ConcernManipulation, Kind: KindUnverifiedProjection,
		Summary:  "Projected result without measurement.",
		Message:  "Description relies on projected results with no attached measurement.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(),
	},
	{
		ID: "MANIP-FALSE-POSITIVE-EXCUSE", Concern: ConcernManipulation, Kind: KindFalsePositiveClaim,
		Summary:  "False-positive claim without evidence.",
		Message:  "Description dismisses a finding as a false positive without a verifiable check.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(),
	},
	{
		ID: "MANIP-HARDCODED-RESULT", Concern: ConcernManipulation, Kind: KindHardcodedResult,
		Summary:  "Computed return replaced by a constant.",
		Message:  "Change replaces a computed result with a literal.",
		Severity: ir.SeverityHigh, Weight: 3, Match: structural(),
	},
	{
		ID: "MANIP-MALFORMED-CHANGE", Concern: ConcernManipulation, Kind: KindMalformedChange,
		Summary:  "New code is empty or structurally malformed.",
		Message:  "New code is empty or has unbalanced delimiters; nothing to evaluate.",
		Severity: ir.SeverityLow, Weight: 1, Match: structural(),
	},

	// consistency
	{
		ID: "CONSIST-INTENT-MISMATCH", Concern: ConcernConsistency, Kind: KindIntentMismatch,
		Summary:  "Name promises computation, body returns a constant.",
		Message:  "Function name declares work the body does not perform.",
		Severity: ir.SeverityMedium, Weight: 2, Match: structural(), SuppressIn: fixture,
	},
	{
		ID: "CONSIST-DOC-MISMATCH", Concern: ConcernConsistency, Kind: KindDocMismatch,
		Summary:  "Docstring claims validation, body never branches.",
		Message:  "Documentation describes checks the body does not contain.",
		Severity: ir.SeverityLow, Weight: 1, Match: structural(),
	},
}

// Builtin returns a fresh, unfrozen library holding the compiled-in rules.
func Builtin() *Library {
	l := New(BuiltinVersion)
	for _, r := range builtinRules {
		l.MustRegister(r)
	}
	return l
}

// TrickRuleKind maps a trick to the manipulation rule kind that reports it.
var TrickRuleKind = map[ir.TrickKind]Kind{
	ir.TrickDocumentationOnly:   KindDocumentationCosmetic,
	ir.TrickWhitelist:           KindWhitelistTrick,
	ir.TrickPathExclusion:       KindPathExclusionTrick,
	ir.TrickStandardLowering:    KindStandardLowering,
	ir.TrickProjectedResults:    KindUnverifiedProjection,
	ir.TrickFalsePositiveExcuse: KindFalsePositiveClaim,
	ir.TrickHardcodedResult:     KindHardcodedResult,
}
