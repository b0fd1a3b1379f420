package patterns

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
)

// Library is a versioned registry of rules. Once frozen it is read-only and
// safe for concurrent use.
type Library struct {
	version string
	rules   []Rule
	index   map[string]int // UPPER(ruleID) -> index
	frozen  bool
}

func New(version string) *Library {
	return &Library{version: version, index: map[string]int{}}
}

func normID(id string) string { return strings.ToUpper(strings.TrimSpace(id)) }

// Register validates and adds a rule. Duplicate ids and malformed match
// specs are configuration errors.
func (l *Library) Register(r Rule) error {
	if l.frozen {
		return &ir.ConfigurationError{RuleID: r.ID, Reason: "library is frozen"}
	}
	r.ID = strings.TrimSpace(r.ID)
	if r.ID == "" {
		return &ir.ConfigurationError{Reason: "rule id is required"}
	}
	if _, dup := l.index[normID(r.ID)]; dup {
		return &ir.ConfigurationError{RuleID: r.ID, Reason: "duplicate rule id"}
	}
	if r.Concern == "" || r.Kind == "" {
		return &ir.ConfigurationError{RuleID: r.ID, Reason: "concern and kind are required"}
	}
	sev, ok := ir.ParseSeverity(string(r.Severity))
	if !ok {
		return &ir.ConfigurationError{RuleID: r.ID, Reason: fmt.Sprintf("unknown severity %q", r.Severity)}
	}
	r.Severity = sev
	if r.Weight < 0 {
		return &ir.ConfigurationError{RuleID: r.ID, Reason: "weight must not be negative"}
	}
	if r.Weight == 0 {
		r.Weight = 1
	}
	for _, t := range r.SuppressIn {
		if t == ir.ContextProduction || !t.Valid() {
			return &ir.ConfigurationError{RuleID: r.ID, Reason: fmt.Sprintf("unknown context tag %q", t)}
		}
	}
	switch {
	case r.Match.Structural && r.Match.Regex != "":
		return &ir.ConfigurationError{RuleID: r.ID, Reason: "structural rules take no regex"}
	case !r.Match.Structural:
		if r.Match.Regex == "" {
			return &ir.ConfigurationError{RuleID: r.ID, Reason: "match.regex is required"}
		}
		re, err := regexp.Compile(r.Match.Regex)
		if err != nil {
			return &ir.ConfigurationError{RuleID: r.ID, Reason: "match.regex", Err: err}
		}
		r.Match.re = re
		switch r.Match.Scope {
		case "":
			r.Match.Scope = ScopeCode
		case ScopeCode, ScopeComment, ScopeAny:
		default:
			return &ir.ConfigurationError{RuleID: r.ID, Reason: fmt.Sprintf("unknown scope %q", r.Match.Scope)}
		}
	}
	r.SuppressIn = append([]ir.ContextTag(nil), r.SuppressIn...)
	l.rules = append(l.rules, r)
	l.index[normID(r.ID)] = len(l.rules) - 1
	return nil
}

// MustRegister panics on error; used for the compiled-in rule set.
func (l *Library) MustRegister(r Rule) {
	if err := l.Register(r); err != nil {
		panic(err)
	}
}

// Freeze makes the library read-only and returns it.
func (l *Library) Freeze() *Library {
	l.frozen = true
	return l
}

func (l *Library) Frozen() bool    { return l.frozen }
func (l *Library) Version() string { return l.version }
func (l *Library) Len() int        { return len(l.rules) }

// Get returns a rule by id (case-insensitive).
func (l *Library) Get(id string) (Rule, bool) {
	idx, ok := l.index[normID(id)]
	if !ok || idx < 0 || idx >= len(l.rules) {
		return Rule{}, false
	}
	return l.rules[idx], true
}

// List returns all rules sorted by id.
func (l *Library) List() []Rule {
	out := append([]Rule(nil), l.rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RulesFor returns the rules owned by a concern, sorted by id.
func (l *Library) RulesFor(concern string) []Rule {
	var out []Rule
	for _, r := range l.rules {
		if r.Concern == concern {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByKind returns the first rule of a concern with the given kind.
func (l *Library) ByKind(concern string, kind Kind) (Rule, bool) {
	for _, r := range l.RulesFor(concern) {
		if r.Kind == kind {
			return r, true
		}
	}
	return Rule{}, false
}

// MaxPenalty is the score budget of a concern: every rule firing once.
func (l *Library) MaxPenalty(concern string) float64 {
	var sum float64
	for _, r := range l.rules {
		if r.Concern == concern {
			sum += r.Penalty()
		}
	}
	return sum
}

// Extend returns an unfrozen copy carrying every rule of l under a new
// version, ready for more registrations.
func (l *Library) Extend(version string) *Library {
	n := New(version)
	n.rules = append(n.rules, l.rules...)
	for k, v := range l.index {
		n.index[k] = v
	}
	return n
}

// Holder publishes the active library. A reload swaps the whole library so
// a scan always sees one consistent version.
type Holder struct {
	p   atomic.Pointer[Library]
	sel *Settings
}

func NewHolder(l *Library) *Holder {
	h := &Holder{}
	h.Store(l)
	return h
}

// WithSettings makes every library stored from now on pass through
// Select(s), including the current one. Call it before sharing h.
func (h *Holder) WithSettings(s Settings) *Holder {
	h.sel = &s
	if cur := h.Load(); cur != nil {
		h.Store(cur)
	}
	return h
}

func (h *Holder) Load() *Library { return h.p.Load() }

// Store freezes l and makes it current.
func (h *Holder) Store(l *Library) {
	if h.sel != nil {
		l = l.Select(*h.sel)
	}
	h.p.Store(l.Freeze())
}
