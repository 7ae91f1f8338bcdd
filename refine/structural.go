package refine

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"scribe/internal/words"
)

// DefaultFillers are Portuguese discourse markers dropped by Structural.
// Entries are regular expressions matched as whole words, case-insensitively.
var DefaultFillers = []string{`né`, `tá`, `então`, `assim`, `aham`, `uhum`, `éé+`}

const (
	minSentenceRunes      = 20
	sentencesPerParagraph = 3
)

var (
	blankRun   = regexp.MustCompile(`[ \t]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

func compileFillers(fillers []string) []*words.Pattern {
	out := make([]*words.Pattern, 0, len(fillers))
	for _, f := range fillers {
		if p, err := words.Compile(f, true); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Structural removes fillers and regroups the text into short paragraphs.
func Structural(text string, fillers []*words.Pattern) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	for _, f := range fillers {
		text = f.ReplaceAll(text, "")
	}
	text = normalizeSpacing(text)

	sentences := mergeShort(splitSentences(text))
	return normalizeSpacing(paragraphs(sentences))
}

func normalizeSpacing(s string) string {
	s = blankRun.ReplaceAllString(s, " ")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// splitSentences breaks after '.', '!' or '?' when followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); {
		r, w := utf8.DecodeRuneInString(text[i:])
		i += w
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		j := i
		for j < len(text) {
			n, nw := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(n) {
				break
			}
			j += nw
		}
		if j == i {
			continue
		}
		if s := strings.TrimSpace(text[start:i]); s != "" {
			out = append(out, s)
		}
		start, i = j, j
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// mergeShort folds fragments into the sentence before them.
func mergeShort(sentences []string) []string {
	var merged []string
	for _, s := range sentences {
		if len(merged) > 0 && utf8.RuneCountInString(s) < minSentenceRunes {
			merged[len(merged)-1] += " " + s
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

func paragraphs(sentences []string) string {
	var paras []string
	for i := 0; i < len(sentences); i += sentencesPerParagraph {
		end := min(i+sentencesPerParagraph, len(sentences))
		paras = append(paras, strings.Join(sentences[i:end], " "))
	}
	return strings.Join(paras, "\n\n")
}
