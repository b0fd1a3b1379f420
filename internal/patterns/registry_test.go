package patterns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

func TestBuiltin_LoadsAndFreezes(t *testing.T) {
	l := Builtin()
	require.Equal(t, len(builtinRules), l.Len())
	assert.Equal(t, BuiltinVersion, l.Version())

	for _, c := range []string{ConcernReality, ConcernAssumption, ConcernPrecision, ConcernTrick, ConcernManipulation, ConcernConsistency} {
		assert.NotEmpty(t, l.RulesFor(c), "concern %s has no rules", c)
		assert.Greater(t, l.MaxPenalty(c), 0.0)
	}

	NewHolder(l)
	assert.True(t, l.Frozen())
	err := l.Register(Rule{ID: "LATE", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: structural()})
	var ce *ir.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "LATE", ce.RuleID)
}

func TestBuiltin_EveryTrickHasManipulationRule(t *testing.T) {
	l := Builtin()
	for _, k := range ir.TrickKinds {
		kind, ok := TrickRuleKind[k]
		require.True(t, ok, "no rule kind for %s", k)
		_, ok = l.ByKind(ConcernManipulation, kind)
		assert.True(t, ok, "no manipulation rule for %s", k)
	}
}

func TestRegister_Rejects(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
	}{
		{"empty id", Rule{Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: structural()}},
		{"no concern", Rule{ID: "X1", Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: structural()}},
		{"bad severity", Rule{ID: "X2", Concern: ConcernReality, Kind: KindLazyMarker, Severity: "SEVERE", Match: structural()}},
		{"negative weight", Rule{ID: "X3", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Weight: -1, Match: structural()}},
		{"bad regex", Rule{ID: "X4", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: Match{Regex: "("}}},
		{"no regex", Rule{ID: "X5", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow}},
		{"structural with regex", Rule{ID: "X6", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: Match{Regex: "x", Structural: true}}},
		{"bad scope", Rule{ID: "X7", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: Match{Regex: "x", Scope: "strings"}}},
		{"bad tag", Rule{ID: "X8", Concern: ConcernReality, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: structural(), SuppressIn: []ir.ContextTag{"vendored"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := New("t").Register(tc.rule)
			var ce *ir.ConfigurationError
			assert.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestRegister_DuplicateIDIsCaseInsensitive(t *testing.T) {
	l := New("t")
	r := Rule{ID: "dup-1", Concern: ConcernPrecision, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: Match{Regex: `TODO`}}
	require.NoError(t, l.Register(r))
	r.ID = "DUP-1"
	err := l.Register(r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate rule id")
	assert.Equal(t, 1, l.Len())
}

func TestRegister_Defaults(t *testing.T) {
	l := New("t")
	require.NoError(t, l.Register(Rule{ID: "D1", Concern: ConcernPrecision, Kind: KindLazyMarker, Severity: "medium", Match: Match{Regex: `x`}}))
	r, ok := l.Get("d1")
	require.True(t, ok)
	assert.Equal(t, ir.SeverityMedium, r.Severity)
	assert.Equal(t, 1.0, r.Weight)
	assert.Equal(t, ScopeCode, r.Match.Scope)
	assert.NotNil(t, r.Regexp())
	assert.Equal(t, 2.0, r.Penalty())
}

func TestExtend_KeepsBaseUntouched(t *testing.T) {
	base := Builtin().Freeze()
	ext := base.Extend("pack-1")
	require.NoError(t, ext.Register(Rule{ID: "PACK-1", Concern: ConcernPrecision, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: Match{Regex: `WIP`, Scope: ScopeComment}}))

	_, inBase := base.Get("PACK-1")
	assert.False(t, inBase)
	_, inExt := ext.Get("PACK-1")
	assert.True(t, inExt)
	assert.Equal(t, base.Len()+1, ext.Len())

	// builtin ids stay reserved in the extension
	err := ext.Register(Rule{ID: "PRECISION-LAZY-MARKER", Concern: ConcernPrecision, Kind: KindLazyMarker, Severity: ir.SeverityLow, Match: structural()})
	assert.Error(t, err)
}

func TestRule_AppliesTo(t *testing.T) {
	r, ok := Builtin().Get("REALITY-HARDCODED-SECRET")
	require.True(t, ok)
	assert.True(t, r.AppliesTo(ir.ContextProduction))
	assert.False(t, r.AppliesTo(ir.ContextTestFixture))
	assert.False(t, r.AppliesTo(ir.ContextGeneratedTemplate))
}

func TestBuiltinRegexes(t *testing.T) {
	l := Builtin()
	cases := []struct {
		rule  string
		text  string
		match bool
	}{
		{"REALITY-HARDCODED-SECRET", `API_KEY = "sk-live-1234567890"`, true},
		{"REALITY-HARDCODED-SECRET", `password := "hunter22"`, true},
		{"REALITY-HARDCODED-SECRET", `api_key = os.environ["API_KEY"]`, false},
		{"REALITY-HARDCODED-SECRET", `token = ""`, false},
		{"REALITY-NOT-IMPLEMENTED", `raise NotImplementedError`, true},
		{"REALITY-NOT-IMPLEMENTED", `panic("not implemented")`, true},
		{"PRECISION-LAZY-MARKER", `TODO: wire the client`, true},
		{"PRECISION-LAZY-MARKER", `todos are tracked elsewhere`, false},
		{"TRICK-UNVERIFIED-PROJECTION", `coverage is expected to reach 95%`, true},
		{"TRICK-FALSE-POSITIVE-CLAIM", `this is a false positive`, true},
		{"TRICK-SUPPRESSION-PRAGMA", `noqa: E501`, true},
	}
	for _, tc := range cases {
		r, ok := l.Get(tc.rule)
		require.True(t, ok, tc.rule)
		assert.Equal(t, tc.match, r.Regexp().MatchString(tc.text), "%s on %q", tc.rule, tc.text)
	}
}

func TestSelect(t *testing.T) {
	base := Builtin().Freeze()
	sel := base.Select(Settings{SeverityThreshold: ir.SeverityHigh, Disabled: []string{"reality-hardcoded-secret"}})
	assert.Equal(t, base.Version(), sel.Version())
	_, ok := sel.Get("REALITY-HARDCODED-SECRET")
	assert.False(t, ok)
	for _, r := range sel.List() {
		if r.Concern == ConcernManipulation {
			continue
		}
		assert.GreaterOrEqual(t, r.Severity.Points(), ir.SeverityHigh.Points(), r.ID)
	}
	m, ok := sel.Get("MANIP-MALFORMED-CHANGE")
	require.True(t, ok, "gate rules survive the threshold")
	assert.Equal(t, ir.SeverityLow, m.Severity)
	_, ok = sel.Get("MANIP-PROJECTED-RESULTS")
	assert.True(t, ok)

	sel = base.Select(Settings{SeverityThreshold: ir.SeverityHigh, Disabled: []string{"MANIP-MALFORMED-CHANGE"}})
	_, ok = sel.Get("MANIP-MALFORMED-CHANGE")
	assert.False(t, ok, "disabling still applies")
	assert.Less(t, sel.Len(), base.Len())
	_, ok = base.Get("REALITY-HARDCODED-SECRET")
	assert.True(t, ok, "base untouched")

	h := NewHolder(Builtin()).WithSettings(Settings{Disabled: []string{"PRECISION-LAZY-MARKER"}})
	_, ok = h.Load().Get("PRECISION-LAZY-MARKER")
	assert.False(t, ok)
	h.Store(Builtin())
	_, ok = h.Load().Get("PRECISION-LAZY-MARKER")
	assert.False(t, ok, "reloads keep the settings")
	assert.True(t, h.Load().Frozen())
}
