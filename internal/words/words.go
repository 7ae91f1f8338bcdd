// Package words holds Unicode-aware word helpers shared by the text stages.
//
// RE2's \b only understands ASCII word characters, so "né" or "ação" never
// match a \b-anchored pattern. Match sits the boundary check outside the regexp.
package words

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

func Fields(s string) []string { return strings.Fields(s) }

func Count(s string) int { return len(strings.Fields(s)) }

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// Pattern is a regexp whose matches only count when they start and end on a
// word boundary.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds a Pattern from a raw regexp expression.
func Compile(expr string, ignoreCase bool) (*Pattern, error) {
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re}, nil
}

func MustCompile(expr string, ignoreCase bool) *Pattern {
	p, err := Compile(expr, ignoreCase)
	if err != nil {
		panic(err)
	}
	return p
}

// Literal matches term as a whole word.
func Literal(term string, ignoreCase bool) *Pattern {
	return MustCompile(regexp.QuoteMeta(term), ignoreCase)
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

// ReplaceAll substitutes every whole-word match with repl. repl is literal.
func (p *Pattern) ReplaceAll(s, repl string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	last := 0
	pos := 0
	for pos <= len(s) {
		loc := p.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end == start {
			// empty match; step one rune
			_, w := utf8.DecodeRuneInString(s[start:])
			if w == 0 {
				break
			}
			pos = start + w
			continue
		}
		if boundaryBefore(s, start) && boundaryAfter(s, end) {
			b.WriteString(s[last:start])
			b.WriteString(repl)
			last = end
			pos = end
			continue
		}
		_, w := utf8.DecodeRuneInString(s[start:])
		pos = start + w
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

func (p *Pattern) MatchString(s string) bool {
	return p.ReplaceAll(s, "\x00") != s
}

var spaceRun = regexp.MustCompile(`[ \t]+`)

// CollapseSpaces folds runs of blanks into one space and trims the ends.
// Newlines are kept.
func CollapseSpaces(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
