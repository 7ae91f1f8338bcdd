package refine

import (
	"strings"
	"unicode"

	"scribe/internal/words"
)

// Orality drops each term when it stands between spaces. Line breaks are kept.
func Orality(text string, terms []string) string {
	if text == "" || len(terms) == 0 {
		return text
	}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		needle := " " + term + " "
		// "x tipo tipo y" needs a second pass since matches share a space
		for strings.Contains(text, needle) {
			text = strings.ReplaceAll(text, needle, " ")
		}
	}
	return words.CollapseSpaces(text)
}

// Repetition keeps at most max consecutive copies of a token. Runs do not
// continue across line breaks.
func Repetition(text string, max int) string {
	if text == "" || max <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		var out []string
		last, count := "", 0
		for _, w := range strings.Fields(line) {
			if w == last {
				count++
				if count > max {
					continue
				}
			} else {
				last, count = w, 1
			}
			out = append(out, w)
		}
		lines[i] = strings.Join(out, " ")
	}
	return strings.Join(lines, "\n")
}

type correction struct {
	pattern *words.Pattern
	repl    string
}

var lexicalTable = []correction{
	{words.Literal("iscos", true), "riscos"},
	{words.Literal("conis", true), "cones"},
	{words.Literal("cônis", true), "cones"},
	{words.MustCompile(`variedade\s+da\s+cnh`, true), "validade da cnh"},
}

// Lexical fixes a short list of known misrecognitions.
func Lexical(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, c := range lexicalTable {
		text = c.pattern.ReplaceAll(text, c.repl)
	}
	return text
}

// TailConfig drives HallucinationTail. A zero Window disables the cut.
// MinRepeats is accepted for config compatibility and not consulted.
type TailConfig struct {
	MinWords   int
	Window     int
	MinRepeats int
	Diversity  float64
}

// HallucinationTail drops the last Window tokens when they are too
// repetitive, which is how ASR models degrade over long silences.
func HallucinationTail(text string, cfg TailConfig) string {
	if text == "" || cfg.Window <= 0 {
		return text
	}
	spans := fieldSpans(text)
	if len(spans) < cfg.MinWords {
		return text
	}
	tailStart := max(len(spans)-cfg.Window, 0)
	tail := spans[tailStart:]

	unique := make(map[string]struct{}, len(tail))
	for _, sp := range tail {
		unique[text[sp[0]:sp[1]]] = struct{}{}
	}
	ratio := float64(len(unique)) / float64(max(len(tail), 1))
	if ratio >= cfg.Diversity {
		return text
	}
	return strings.TrimRight(text[:tail[0][0]], " \t\n")
}

// fieldSpans returns byte ranges of whitespace separated tokens.
func fieldSpans(s string) [][2]int {
	var spans [][2]int
	start := -1
	for i, r := range s {
		space := unicode.IsSpace(r)
		switch {
		case space && start >= 0:
			spans = append(spans, [2]int{start, i})
			start = -1
		case !space && start < 0:
			start = i
		}
	}
	if start >= 0 {
		spans = append(spans, [2]int{start, len(s)})
	}
	return spans
}
