package ir

import "sort"

// SortFindings orders findings by severity (highest first), then path,
// line and rule id. The sort is stable so equal findings keep their
// detector order.
func SortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i], fs[j]
		if pa, pb := a.Severity.Points(), b.Severity.Points(); pa != pb {
			return pa > pb
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.LineStart != b.LineStart {
			return a.LineStart < b.LineStart
		}
		return a.RuleID < b.RuleID
	})
}

// Breakdown counts findings per severity.
func Breakdown(fs []Finding) map[Severity]int {
	out := map[Severity]int{}
	for _, f := range fs {
		out[f.Severity]++
	}
	return out
}
