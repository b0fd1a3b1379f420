package detectors

import (
	"regexp"

	"github.com/Bharath-kolekar/cogone-sub001/internal/ir"
	"github.com/Bharath-kolekar/cogone-sub001/internal/source"
)

var contextMarkerRe = regexp.MustCompile(`realitycheck:context=([a-z-]+)`)

// effectiveTag returns the caller's tag, or the tag declared by a
// "realitycheck:context=<tag>" comment in the file. Unknown tags are
// ignored so a typo never widens suppression.
func effectiveTag(tag ir.ContextTag, lines []source.Line) ir.ContextTag {
	if tag != ir.ContextProduction {
		return tag
	}
	return MarkerTag(lines)
}

// MarkerTag returns the first valid context marker found in comments.
func MarkerTag(lines []source.Line) ir.ContextTag {
	for _, l := range lines {
		if l.Comment == "" {
			continue
		}
		m := contextMarkerRe.FindStringSubmatch(l.Comment)
		if m == nil {
			continue
		}
		if t := ir.ContextTag(m[1]); t != ir.ContextProduction && t.Valid() {
			return t
		}
	}
	return ir.ContextProduction
}
