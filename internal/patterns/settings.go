package patterns

import "github.com/Bharath-kolekar/cogone-sub001/internal/ir"

// Settings narrows which rules run.
type Settings struct {
	// SeverityThreshold drops rules below it. Empty keeps every rule.
	SeverityThreshold ir.Severity
	// Disabled holds rule ids; matching is case-insensitive.
	Disabled []string
}

func (s Settings) allows(r Rule, disabled map[string]bool) bool {
	if disabled[normID(r.ID)] {
		return false
	}
	if s.SeverityThreshold == "" || gateRule(r) {
		return true
	}
	return r.Severity.Points() >= s.SeverityThreshold.Points()
}

// Select returns a copy of l, under the same version, that keeps only the
// rules s allows.
func (l *Library) Select(s Settings) *Library {
	disabled := make(map[string]bool, len(s.Disabled))
	for _, id := range s.Disabled {
		disabled[normID(id)] = true
	}
	n := New(l.version)
	for _, r := range l.rules {
		if !s.allows(r, disabled) {
			continue
		}
		n.rules = append(n.rules, r)
		n.index[normID(r.ID)] = len(n.rules) - 1
	}
	return n
}

// gateRule reports whether r records an outcome of the change gate. Those
// rules ignore the severity threshold so every verdict keeps its finding.
func gateRule(r Rule) bool {
	return r.Concern == ConcernManipulation && r.Match.Structural
}
