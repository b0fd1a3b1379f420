package rulesdsl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Bharath-kolekar/cogone-sub001/internal/detectors"
	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/patterns"
)

const validPack = `
version: "team-1"
rules:
  - id: TEAM-WIP-MARKER
    concern: precision
    kind: lazy_marker
    severity: low
    message: "WIP marker left in code."
    match:
      regex: '\bWIP\b'
      scope: comment
    suppress_in: [generated-template]
  - id: TEAM-EVAL
    concern: reality
    kind: not_implemented
    severity: HIGH
    weight: 2
    message: "eval of untrusted input."
    match:
      regex: '\beval\('
`

func TestParse_ValidPackExtendsBase(t *testing.T) {
	base := patterns.Builtin().Freeze()
	lib, err := Parse([]byte(validPack), base)
	require.NoError(t, err)

	assert.Equal(t, base.Len()+2, lib.Len())
	assert.Equal(t, patterns.BuiltinVersion+"+team-1", lib.Version())

	r, ok := lib.Get("TEAM-WIP-MARKER")
	require.True(t, ok)
	assert.Equal(t, ir.SeverityLow, r.Severity)
	assert.Equal(t, patterns.ScopeComment, r.Match.Scope)
	assert.False(t, r.AppliesTo(ir.ContextGeneratedTemplate))
	assert.True(t, r.Regexp().MatchString("WIP: later"))

	r, ok = lib.Get("TEAM-EVAL")
	require.True(t, ok)
	assert.Equal(t, patterns.ScopeCode, r.Match.Scope)

	_, ok = base.Get("TEAM-EVAL")
	assert.False(t, ok, "base must not change")
}

func TestParse_PackRuleFiresInEveryConcern(t *testing.T) {
	concerns := []string{
		patterns.ConcernReality, patterns.ConcernAssumption, patterns.ConcernPrecision,
		patterns.ConcernTrick, patterns.ConcernConsistency, patterns.ConcernManipulation,
	}
	for _, concern := range concerns {
		t.Run(concern, func(t *testing.T) {
			pack := `
version: "eval-1"
rules:
  - id: TEAM-EVAL
    concern: ` + concern + `
    kind: not_implemented
    severity: HIGH
    message: "eval of untrusted input."
    match:
      regex: '\beval\('
`
			lib, err := Parse([]byte(pack), patterns.Builtin().Freeze())
			require.NoError(t, err)

			d, err := detectors.New(concern)
			require.NoError(t, err)
			in := detectors.Input{Path: "load.py", Content: "x = eval(data)\n", Rules: lib}
			if concern == patterns.ConcernManipulation {
				old := "x = data\n"
				in.Baseline = &old
			}
			res := d.Scan(context.Background(), in)
			require.NoError(t, res.Err)

			var ids []string
			for _, f := range res.Findings {
				ids = append(ids, f.RuleID)
			}
			assert.Contains(t, ids, "TEAM-EVAL")
			assert.Less(t, res.Score, 1.0)
		})
	}
}

func TestParse_ManipulationPackRuleSkipsUnchangedLines(t *testing.T) {
	pack := `
version: "eval-1"
rules:
  - id: TEAM-EVAL
    concern: manipulation
    kind: not_implemented
    severity: HIGH
    message: "eval of untrusted input."
    match:
      regex: '\beval\('
`
	lib, err := Parse([]byte(pack), patterns.Builtin().Freeze())
	require.NoError(t, err)
	d, err := detectors.New(patterns.ConcernManipulation)
	require.NoError(t, err)

	old := "x = eval(data)\ny = 1\n"
	res := d.Scan(context.Background(), detectors.Input{Path: "load.py", Content: "x = eval(data)\ny = compute(x)\n", Baseline: &old, Rules: lib})
	require.NoError(t, res.Err)
	for _, f := range res.Findings {
		assert.NotEqual(t, "TEAM-EVAL", f.RuleID)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"not yaml":        "rules: [",
		"empty":           "",
		"missing version": "rules: []",
		"unknown concern": `
version: v
rules:
  - {id: A1, concern: style, kind: x, severity: LOW, message: m, match: {regex: x}}`,
		"unknown field": `
version: v
rules:
  - {id: A1, concern: reality, kind: x, severity: LOW, message: m, match: {regex: x}, eval: true}`,
		"bad severity": `
version: v
rules:
  - {id: A1, concern: reality, kind: x, severity: SEVERE, message: m, match: {regex: x}}`,
		"structural only": `
version: v
rules:
  - {id: A1, concern: reality, kind: x, severity: LOW, message: m, match: {scope: code}}`,
		"bad regex": `
version: v
rules:
  - {id: A1, concern: reality, kind: x, severity: LOW, message: m, match: {regex: "("}}`,
		"duplicate of builtin": `
version: v
rules:
  - {id: precision-lazy-marker, concern: precision, kind: lazy_marker, severity: LOW, message: m, match: {regex: x}}`,
		"duplicate in pack": `
version: v
rules:
  - {id: A1, concern: reality, kind: x, severity: LOW, message: m, match: {regex: x}}
  - {id: a1, concern: reality, kind: x, severity: LOW, message: m, match: {regex: y}}`,
	}
	base := patterns.Builtin().Freeze()
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(src), base)
			var ce *ir.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), patterns.Builtin())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestWatcher_ReloadsAndKeepsLibraryOnError(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validPack), 0o644))

	base := patterns.Builtin().Freeze()
	holder := patterns.NewHolder(base)
	reloads := make(chan error, 8)

	w := &Watcher{
		Path: path, Base: base, Holder: holder, Debounce: 100 * time.Millisecond,
		OnReload: func(_ *patterns.Library, err error) { reloads <- err },
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// give the watcher time to register before the first write
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(validPack), 0o644))
	select {
	case err := <-reloads:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write")
	}
	_, ok := holder.Load().Get("TEAM-EVAL")
	assert.True(t, ok)
	current := holder.Load()

	require.NoError(t, os.WriteFile(path, []byte("version: v\nrules: [{id: 1}]"), 0o644))
	select {
	case err := <-reloads:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after bad write")
	}
	assert.Same(t, current, holder.Load())

	cancel()
	require.NoError(t, <-done)
}
