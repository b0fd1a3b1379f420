// Package source splits source text into code and documentation without
// parsing it. Everything here is heuristic and language-agnostic enough to
// work on Python, Go, JavaScript/TypeScript and other C-like files.
package source

import (
	"path/filepath"
	"strings"
)

type Lang string

const (
	LangPython  Lang = "python"
	LangHash    Lang = "hash" // shell, ruby, yaml, toml...
	LangGo      Lang = "go"
	LangJS      Lang = "javascript"
	LangCLike   Lang = "clike"
	LangGeneric Lang = "generic"
)

var extLang = map[string]Lang{
	".py": LangPython, ".pyi": LangPython,
	".sh": LangHash, ".bash": LangHash, ".rb": LangHash, ".yaml": LangHash, ".yml": LangHash,
	".toml": LangHash, ".ini": LangHash, ".cfg": LangHash, ".conf": LangHash, ".pl": LangHash, ".r": LangHash,
	".go": LangGo,
	".js": LangJS, ".jsx": LangJS, ".mjs": LangJS, ".cjs": LangJS, ".ts": LangJS, ".tsx": LangJS,
	".c": LangCLike, ".h": LangCLike, ".cc": LangCLike, ".cpp": LangCLike, ".hpp": LangCLike,
	".java": LangCLike, ".cs": LangCLike, ".kt": LangCLike, ".swift": LangCLike, ".rs": LangCLike,
	".scala": LangCLike, ".php": LangCLike, ".dart": LangCLike,
}

// Language guesses the language family from the file extension.
func Language(path string) Lang {
	if l, ok := extLang[strings.ToLower(filepath.Ext(path))]; ok {
		return l
	}
	return LangGeneric
}

// Known reports whether path has an extension the scanner understands.
func Known(path string) bool {
	_, ok := extLang[strings.ToLower(filepath.Ext(path))]
	return ok
}

type syntax struct {
	hash     bool // # line comments
	slash    bool // // and /* */ comments
	triple   bool // """ / ''' strings, docstrings in statement position
	backtick bool // `raw` strings
}

func syntaxFor(l Lang) syntax {
	switch l {
	case LangPython:
		return syntax{hash: true, triple: true}
	case LangHash:
		return syntax{hash: true}
	case LangGo, LangJS:
		return syntax{slash: true, backtick: true}
	case LangCLike:
		return syntax{slash: true}
	default:
		return syntax{hash: true, slash: true, triple: true, backtick: true}
	}
}

// Line is one physical line with its executable and documentation parts.
type Line struct {
	Num     int    // 1-based
	Raw     string // original text
	Code    string // comments and docstrings removed, right-trimmed
	Comment string // comment or docstring text found on this line
}

// Blank reports whether the line carries no executable text.
func (l Line) Blank() bool { return strings.TrimSpace(l.Code) == "" }

const (
	stNormal = iota
	stString
	stLineComment
	stBlockComment
	stDocstring
)

// Split lexes content into lines. Strings keep their delimiters in Code;
// docstrings (triple-quoted strings opening a statement) count as comments.
func Split(content string, lang Lang) []Line {
	syn := syntaxFor(lang)
	raw := strings.Split(content, "\n")
	lines := make([]Line, 0, len(raw))

	var code, comment strings.Builder
	flush := func() {
		n := len(lines)
		lines = append(lines, Line{
			Num:     n + 1,
			Raw:     strings.TrimRight(raw[n], "\r"),
			Code:    strings.TrimRight(code.String(), " \t\r"),
			Comment: strings.TrimSpace(comment.String()),
		})
		code.Reset()
		comment.Reset()
	}

	st := stNormal
	quote := ""
	s := content
	for i := 0; i < len(s); {
		c := s[i]
		if c == '\n' {
			switch {
			case st == stLineComment:
				st = stNormal
			case st == stString && len(quote) == 1 && quote != "`":
				st = stNormal // unterminated single-line literal
			case st == stDocstring || st == stBlockComment:
				comment.WriteByte(' ')
			}
			flush()
			i++
			continue
		}
		switch st {
		case stNormal:
			rest := s[i:]
			switch {
			case syn.triple && (strings.HasPrefix(rest, `"""`) || strings.HasPrefix(rest, `'''`)):
				quote = rest[:3]
				i += 3
				if strings.TrimSpace(code.String()) == "" {
					st = stDocstring
				} else {
					st = stString
					code.WriteString(quote)
				}
			case syn.hash && c == '#':
				st = stLineComment
				i++
			case syn.slash && strings.HasPrefix(rest, "//"):
				st = stLineComment
				i += 2
			case syn.slash && strings.HasPrefix(rest, "/*"):
				st = stBlockComment
				i += 2
			case c == '"' || c == '\'' || (syn.backtick && c == '`'):
				st = stString
				quote = string(c)
				code.WriteByte(c)
				i++
			default:
				code.WriteByte(c)
				i++
			}
		case stString:
			if c == '\\' && quote != "`" && i+1 < len(s) && s[i+1] != '\n' {
				code.WriteString(s[i : i+2])
				i += 2
				continue
			}
			if strings.HasPrefix(s[i:], quote) {
				code.WriteString(quote)
				i += len(quote)
				st = stNormal
				continue
			}
			code.WriteByte(c)
			i++
		case stLineComment:
			comment.WriteByte(c)
			i++
		case stBlockComment:
			if strings.HasPrefix(s[i:], "*/") {
				st = stNormal
				i += 2
				continue
			}
			comment.WriteByte(c)
			i++
		case stDocstring:
			if strings.HasPrefix(s[i:], quote) {
				st = stNormal
				i += len(quote)
				continue
			}
			comment.WriteByte(c)
			i++
		}
	}
	flush()
	return lines
}

// Strip returns the whitespace-normalized logic of code (one statement line
// per output line, blank lines dropped) and its documentation text.
func Strip(content string, lang Lang) (logic, docs string) {
	var lb, db []string
	for _, l := range Split(content, lang) {
		if n := normalizeSpace(l.Code); n != "" {
			lb = append(lb, n)
		}
		if l.Comment != "" {
			db = append(db, normalizeSpace(l.Comment))
		}
	}
	return strings.Join(lb, "\n"), strings.Join(db, "\n")
}

func normalizeSpace(s string) string { return strings.Join(strings.Fields(s), " ") }

// LogicLines is Strip's logic split back into lines.
func LogicLines(content string, lang Lang) []string {
	logic, _ := Strip(content, lang)
	if logic == "" {
		return nil
	}
	return strings.Split(logic, "\n")
}
