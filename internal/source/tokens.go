package source

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(
	`[A-Za-z_$][A-Za-z0-9_$]*` +
		`|\d+(?:\.\d+)?(?:[eE][+-]?\d+)?` +
		`|"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|` + "`[^`]*`" +
		`|==|!=|<=|>=|:=|&&|\|\||->|=>|\*\*|<<|>>|\+\+|--` +
		`|[^\s\w]`)

// Tokens splits logic text into identifiers, numbers, literals and operators.
func Tokens(logic string) []string {
	return tokenRe.FindAllString(logic, -1)
}

// TokenDelta is the size of the multiset symmetric difference of a and b.
func TokenDelta(a, b []string) int {
	counts := make(map[string]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
	}
	delta := 0
	for _, n := range counts {
		if n < 0 {
			n = -n
		}
		delta += n
	}
	return delta
}

var stringLitRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'|` + "`[^`]*`")

// MaskStrings replaces string literal bodies so delimiters inside them are
// not counted as code.
func MaskStrings(code string) string {
	return stringLitRe.ReplaceAllStringFunc(code, func(s string) string {
		return s[:1] + strings.Repeat("_", len(s)-2) + s[len(s)-1:]
	})
}

// Balanced reports whether (), [] and {} pair up in the code portion of
// content.
func Balanced(content string, lang Lang) bool {
	var stack []byte
	pair := map[byte]byte{')': '(', ']': '[', '}': '{'}
	for _, l := range Split(content, lang) {
		code := MaskStrings(l.Code)
		for i := 0; i < len(code); i++ {
			switch c := code[i]; c {
			case '(', '[', '{':
				stack = append(stack, c)
			case ')', ']', '}':
				if len(stack) == 0 || stack[len(stack)-1] != pair[c] {
					return false
				}
				stack = stack[:len(stack)-1]
			}
		}
	}
	return len(stack) == 0
}

var literalRe = regexp.MustCompile(`^(?:True|False|None|true|false|nil|null|undefined` +
	`|-?\d+(?:\.\d+)?` +
	`|"[^"]*"|'[^']*'` +
	`|\{\s*\}|\[\s*\]|\(\s*\)` +
	`|\{\s*["']?\w+["']?\s*:\s*(?:True|true|False|false|["'][^"']*["']|-?\d+(?:\.\d+)?)\s*\})$`)

var returnRe = regexp.MustCompile(`^\s*return\s+(.+?)\s*;?\s*$`)

// ReturnValue extracts the returned expression of a return statement.
func ReturnValue(stmt string) (string, bool) {
	m := returnRe.FindStringSubmatch(stmt)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// IsLiteral reports whether expr is a bare constant (number, string, bool,
// nil-like value, empty container or single-key status map).
func IsLiteral(expr string) bool {
	return literalRe.MatchString(strings.TrimSpace(expr))
}

var successLiterals = map[string]bool{
	"True": true, "true": true, "1": true, "1.0": true, "100": true, "100.0": true,
	`"ok"`: true, `'ok'`: true, `"success"`: true, `'success'`: true,
	`"passed"`: true, `'passed'`: true, `"OK"`: true, `'OK'`: true,
}

var successMapRe = regexp.MustCompile(`(?i)^\{\s*["']?(status|success|ok|result|valid)["']?\s*:\s*(true|"(ok|success|passed)"|'(ok|success|passed)')\s*\}$`)

// IsSuccessLiteral reports whether expr is a constant that signals success.
func IsSuccessLiteral(expr string) bool {
	expr = strings.TrimSpace(expr)
	return successLiterals[expr] || successMapRe.MatchString(expr)
}
