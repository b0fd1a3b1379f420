package detectors

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffLine is one inserted or deleted line. Num is the line number in the
// side it belongs to (new for inserts, old for deletes).
type diffLine struct {
	Num  int
	Text string
}

// lineDiff returns the lines inserted into and deleted from old to reach
// new, using a line-mode diff.
func lineDiff(old, new string) (added, removed []diffLine) {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0
	a, b, lineArray := dmp.DiffLinesToChars(old, new)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	oldNum, newNum := 1, 1
	for _, d := range diffs {
		lines := strings.SplitAfter(d.Text, "\n")
		if n := len(lines); n > 0 && lines[n-1] == "" {
			lines = lines[:n-1]
		}
		for _, l := range lines {
			text := strings.TrimRight(l, "\r\n")
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				oldNum++
				newNum++
			case diffmatchpatch.DiffInsert:
				added = append(added, diffLine{Num: newNum, Text: text})
				newNum++
			case diffmatchpatch.DiffDelete:
				removed = append(removed, diffLine{Num: oldNum, Text: text})
				oldNum++
			}
		}
	}
	return added, removed
}
