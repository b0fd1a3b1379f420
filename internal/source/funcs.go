package source

import (
	"regexp"
	"strings"
)

// Function is a heuristically delimited function or method.
type Function struct {
	Name   string
	Params string
	Doc    string // docstring plus comments directly above or at the top of the body
	Start  int    // header line
	End    int    // last line of the body
	Body   []Line // interior lines; Code trimmed to the body portion
}

// Statements returns the executable body statements, ignoring `pass`,
// ellipsis and lone braces.
func (f Function) Statements() []string {
	var out []string
	for _, l := range f.Body {
		s := strings.TrimSpace(l.Code)
		switch s {
		case "", "pass", "...", "{", "}", ";", "};":
			continue
		}
		out = append(out, s)
	}
	return out
}

var (
	pyDefRe    = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z_]\w*)\s*\((.*)$`)
	pyInlineRe = regexp.MustCompile(`\)\s*(?:->\s*[^:]+)?:\s*(\S.*)$`)

	goFuncRe  = regexp.MustCompile(`^\s*func\s+(?:\([^)]*\)\s*)?([A-Za-z_]\w*)\s*(?:\[[^\]]*\])?\s*\(([^)]*)`)
	jsFuncRe  = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(([^)]*)`)
	jsArrowRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:function\s*\(([^)]*)|\(([^)]*)\)\s*(?::\s*[^=]+)?=>)`)
	methodRe  = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|final|async|override|virtual|abstract|synchronized|[\w<>\[\],.*&?]+)\s+)*([A-Za-z_$][\w$]*)\s*\(([^;]*)\)\s*(?::\s*[\w<>\[\]|,.? ]+)?\s*(?:throws\s+[\w., ]+)?\s*\{?\s*$`)
)

var notFuncNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true, "return": true,
	"function": true, "else": true, "do": true, "try": true, "with": true, "new": true,
	"sizeof": true, "elif": true, "except": true, "match": true,
}

// Functions extracts function blocks from lexed lines.
func Functions(lines []Line, lang Lang) []Function {
	var out []Function
	for i := 0; i < len(lines); i++ {
		code := lines[i].Code
		if lang == LangPython || lang == LangGeneric {
			if m := pyDefRe.FindStringSubmatch(code); m != nil {
				f, end := pythonFunction(lines, i, m)
				out = append(out, f)
				if lang == LangPython {
					i = end
				}
				continue
			}
		}
		if lang == LangPython || lang == LangHash {
			continue
		}
		name, params, ok := braceHeader(code, lang)
		if !ok {
			continue
		}
		if f, ok := braceFunction(lines, i, name, params); ok {
			out = append(out, f)
		}
	}
	return out
}

func braceHeader(code string, lang Lang) (name, params string, ok bool) {
	if m := goFuncRe.FindStringSubmatch(code); m != nil {
		return m[1], m[2], true
	}
	if lang == LangGo {
		return "", "", false
	}
	if m := jsFuncRe.FindStringSubmatch(code); m != nil {
		return m[1], m[2], true
	}
	if m := jsArrowRe.FindStringSubmatch(code); m != nil {
		return m[1], m[2] + m[3], true
	}
	if m := methodRe.FindStringSubmatch(code); m != nil && !notFuncNames[m[1]] {
		return m[1], m[2], true
	}
	return "", "", false
}

func indentOf(s string) int {
	n := 0
	for _, r := range s {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

func docAbove(lines []Line, i int) []string {
	var docs []string
	for j := i - 1; j >= 0; j-- {
		if !lines[j].Blank() || lines[j].Comment == "" {
			break
		}
		docs = append([]string{lines[j].Comment}, docs...)
	}
	return docs
}

func pythonFunction(lines []Line, i int, m []string) (Function, int) {
	f := Function{Name: m[2], Params: strings.TrimSuffix(strings.SplitN(m[3], ")", 2)[0], ","), Start: lines[i].Num}
	docs := docAbove(lines, i)
	defIndent := len(m[1])

	if im := pyInlineRe.FindStringSubmatch(lines[i].Code); im != nil {
		f.Body = []Line{{Num: lines[i].Num, Raw: lines[i].Raw, Code: im[1], Comment: lines[i].Comment}}
		f.End = lines[i].Num
		f.Doc = strings.Join(docs, "\n")
		return f, i
	}

	// Skip continuation lines of a multi-line signature.
	j := i
	for j < len(lines) && !strings.HasSuffix(strings.TrimSpace(lines[j].Code), ":") {
		j++
	}
	end := j
	topOfBody := true
	for k := j + 1; k < len(lines); k++ {
		l := lines[k]
		if l.Blank() {
			if topOfBody && l.Comment != "" {
				docs = append(docs, l.Comment)
			}
			continue
		}
		if indentOf(l.Code) <= defIndent {
			break
		}
		topOfBody = false
		end = k
	}
	for k := j + 1; k <= end && k < len(lines); k++ {
		f.Body = append(f.Body, lines[k])
	}
	f.End = f.Start
	if end < len(lines) {
		f.End = lines[end].Num
	}
	f.Doc = strings.Join(docs, "\n")
	return f, end
}

// braceFunction finds the body delimited by the first '{' at or after line i.
func braceFunction(lines []Line, i int, name, params string) (Function, bool) {
	f := Function{Name: name, Params: params, Start: lines[i].Num}
	docs := docAbove(lines, i)

	depth := 0
	opened := false
	topOfBody := true
	for k := i; k < len(lines) && k < i+400; k++ {
		code := MaskStrings(lines[k].Code)
		if !opened && k > i+3 {
			return Function{}, false // declaration without body
		}
		var seg strings.Builder
		closed := false
		for c := 0; c < len(code); c++ {
			switch code[c] {
			case '{':
				depth++
				if !opened {
					opened = true
					continue
				}
			case '}':
				depth--
				if opened && depth == 0 {
					closed = true
				}
			case ';':
				if !opened && strings.TrimSpace(seg.String()) == "" && k == i {
					return Function{}, false // prototype
				}
			}
			if closed {
				break
			}
			if opened {
				seg.WriteByte(lines[k].Code[c])
			}
		}
		if opened {
			body := strings.TrimSpace(seg.String())
			if body != "" || (k != i && !closed) {
				bl := lines[k]
				bl.Code = body
				f.Body = append(f.Body, bl)
				if body == "" && topOfBody && bl.Comment != "" {
					docs = append(docs, bl.Comment)
				} else if body != "" {
					topOfBody = false
				}
			}
		}
		if closed {
			f.End = lines[k].Num
			f.Doc = strings.Join(docs, "\n")
			return f, true
		}
	}
	return Function{}, false
}
