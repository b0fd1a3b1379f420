package detectors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

func classify(t *testing.T, prop ir.ChangeProposal) Classification {
	t.Helper()
	if prop.Path == "" {
		prop.Path = "change.py"
	}
	c, err := NewManipulation(DefaultMinTokenDelta).Classify(context.Background(), prop, lib)
	require.NoError(t, err)
	return c
}

func verified() *ir.Evidence {
	return &ir.Evidence{Checks: []ir.Check{{Name: "unit", Reference: "go test ./...", Verified: true}}}
}

func TestClassify_Gate(t *testing.T) {
	cases := []struct {
		name  string
		prop  ir.ChangeProposal
		trick ir.TrickKind
		real  bool
	}{
		{
			name:  "docstring over placeholder",
			prop:  ir.ChangeProposal{OldCode: "return 0.0  # placeholder", NewCode: "\"\"\"REAL IMPLEMENTATION\"\"\"\nreturn 0.0"},
			trick: ir.TrickDocumentationOnly,
		},
		{
			name:  "exclude a file",
			prop:  ir.ChangeProposal{OldCode: "check_all(files)", NewCode: `check_all(files, exclude=["x.py"])`, Description: "improves score"},
			trick: ir.TrickPathExclusion,
		},
		{
			name: "computed result",
			prop: ir.ChangeProposal{OldCode: "return 0.0", NewCode: "return compute_average(samples)"},
			real: true,
		},
		{
			name:  "skip rules",
			prop:  ir.ChangeProposal{OldCode: "def check(x):\n    return lint(x)\n", NewCode: "def check(x):\n    return lint(x, skip_rules=True)\n"},
			trick: ir.TrickWhitelist,
		},
		{
			name: "skip rules with a verified check",
			prop: ir.ChangeProposal{OldCode: "def check(x):\n    return lint(x)\n", NewCode: "def check(x):\n    return lint(x, skip_rules=True)\n", Evidence: verified()},
			real: true,
		},
		{
			name:  "suppression marker",
			prop:  ir.ChangeProposal{OldCode: "x = 1\n", NewCode: "x = 2  # realitycheck:context=test-fixture\n"},
			trick: ir.TrickWhitelist,
		},
		{
			name:  "perfect at 92 percent",
			prop:  ir.ChangeProposal{OldCode: "x = 1", NewCode: "x = compute(y)", Description: "Coverage is now 92%, which is perfect."},
			trick: ir.TrickStandardLowering,
		},
		{
			name:  "threshold lowered",
			prop:  ir.ChangeProposal{Path: "setup.cfg", OldCode: "fail_under = 90\n", NewCode: "fail_under = 70\n"},
			trick: ir.TrickStandardLowering,
		},
		{
			name:  "projection",
			prop:  ir.ChangeProposal{OldCode: "return a+b", NewCode: "return a + b + c", Description: "This should improve accuracy by 20%"},
			trick: ir.TrickProjectedResults,
		},
		{
			name: "projection with measurement",
			prop: ir.ChangeProposal{OldCode: "return a+b", NewCode: "return a + b + c", Description: "This should improve accuracy by 20%",
				Evidence: &ir.Evidence{Measurements: []ir.Measurement{{Metric: "accuracy", Value: 0.93}}}},
			real: true,
		},
		{
			name:  "false positive excuse",
			prop:  ir.ChangeProposal{OldCode: "y = compute(a)", NewCode: "y = compute(a, b)", Description: "The scanner finding is a false positive"},
			trick: ir.TrickFalsePositiveExcuse,
		},
		{
			name:  "hardcoded result",
			prop:  ir.ChangeProposal{OldCode: "def get_score(xs):\n    return sum(xs) / len(xs)\n", NewCode: "def get_score(xs):\n    return 1.0\n"},
			trick: ir.TrickHardcodedResult,
		},
		{
			name: "no-op",
			prop: ir.ChangeProposal{OldCode: "x = 1\n", NewCode: "x  =  1\n"},
		},
		{
			name: "single token",
			prop: ir.ChangeProposal{OldCode: "return -x", NewCode: "return x"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := classify(t, tc.prop)
			assert.Equal(t, tc.trick, c.Trick, c.Reason)
			assert.Equal(t, tc.real, c.RealFix, c.Reason)
			assert.False(t, c.Malformed)
			if tc.trick != ir.TrickNone {
				require.Len(t, c.Findings, 1)
				assert.Equal(t, "manipulation", c.Findings[0].Detector)
			}
		})
	}
}

func TestClassify_Malformed(t *testing.T) {
	for name, code := range map[string]string{"empty": "  \n", "unbalanced": "f(x"} {
		t.Run(name, func(t *testing.T) {
			c := classify(t, ir.ChangeProposal{OldCode: "f(x)", NewCode: code})
			assert.True(t, c.Malformed)
			assert.False(t, c.RealFix)
			assert.Equal(t, ir.TrickNone, c.Trick)
			require.Len(t, c.Findings, 1)
			assert.Equal(t, "MANIP-MALFORMED-CHANGE", c.Findings[0].RuleID)
			assert.Equal(t, ir.SeverityLow, c.Findings[0].Severity)
		})
	}
}

func TestClassify_DiffNeutrality(t *testing.T) {
	samples := []string{
		"x = 1",
		"def f(x):\n    # TODO skip this\n    return x\n",
		`check_all(files, exclude=["x.py"])`,
		"func F() bool {\n\treturn true\n}\n",
		"coverage: 87% perfect",
		"",
		"((",
	}
	for _, s := range samples {
		c := classify(t, ir.ChangeProposal{OldCode: s, NewCode: s})
		assert.False(t, c.RealFix, "%q", s)
		assert.Equal(t, ir.TrickNone, c.Trick, "%q", s)
	}
}

func TestClassify_DocstringOnlyIsCosmetic(t *testing.T) {
	bodies := []string{
		"def f(x):\n    return x + 1\n",
		"total = sum(values)\n",
		"if ready:\n    launch()\n",
		"return compute(a, b\n", // unbalanced but unchanged
	}
	for _, b := range bodies {
		c := classify(t, ir.ChangeProposal{OldCode: b, NewCode: "\"\"\"Now fully documented.\"\"\"\n" + b})
		assert.Equal(t, ir.TrickDocumentationOnly, c.Trick, "%q", b)
		assert.False(t, c.RealFix)
	}
}

func TestClassify_CommentEditsWithoutClaimsAreNoOps(t *testing.T) {
	cases := map[string]ir.ChangeProposal{
		"todo removed": {OldCode: "x = load()  # TODO handle errors\n", NewCode: "x = load()\n"},
		"typo fixed":   {OldCode: "# compute the avrage\ny = mean(xs)\n", NewCode: "# compute the average\ny = mean(xs)\n"},
		"reworded":     {OldCode: "def f(x):\n    \"\"\"Double x.\"\"\"\n    return x * 2\n", NewCode: "def f(x):\n    \"\"\"Multiply x by two.\"\"\"\n    return x * 2\n"},
	}
	for name, prop := range cases {
		t.Run(name, func(t *testing.T) {
			c := classify(t, prop)
			assert.Equal(t, ir.TrickNone, c.Trick, c.Reason)
			assert.False(t, c.RealFix)
			assert.False(t, c.Malformed)
			assert.Empty(t, c.Findings)
		})
	}
}

func TestClassify_RewordedCommentClaimingCorrectness(t *testing.T) {
	c := classify(t, ir.ChangeProposal{OldCode: "return 0.0  # placeholder\n", NewCode: "return 0.0  # fully implemented\n"})
	assert.Equal(t, ir.TrickDocumentationOnly, c.Trick)
	require.Len(t, c.Findings, 1)
	assert.Equal(t, 1, c.Findings[0].LineStart)
}

func TestClassify_NilLibraryIsError(t *testing.T) {
	_, err := NewManipulation(1).Classify(context.Background(), ir.ChangeProposal{NewCode: "x"}, nil)
	assert.Error(t, err)
}

func TestLineDiff(t *testing.T) {
	added, removed := lineDiff("a\nb\nc\n", "a\nB\nc\nd\n")
	assert.Equal(t, []diffLine{{Num: 2, Text: "B"}, {Num: 4, Text: "d"}}, added)
	assert.Equal(t, []diffLine{{Num: 2, Text: "b"}}, removed)
}
