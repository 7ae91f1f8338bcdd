// Package summary turns a refined transcript into meeting minutes or a short
// summary through a language model.
package summary

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/errs"
	"scribe/internal/words"
	"scribe/log"
)

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Replacer applies the user vocabulary table.
type Replacer interface {
	Apply(text string) string
}

// MinutesPrompt assembles the prompt in memory. It is never persisted.
func MinutesPrompt(preamble, label, transcript string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nSession context: ")
	b.WriteString(label)
	b.WriteString("\n\nMeeting transcript:\n\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n\nWrite the minutes following the instructions above.")
	return b.String()
}

func DailyPrompt(preamble, transcript string) string {
	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\nRefined transcript:\n\"\"\"\n")
	b.WriteString(transcript)
	b.WriteString("\n\"\"\"\n\nWrite a simple, objective summary in Markdown.")
	return b.String()
}

// GenerateMinutes checks the transcript before calling gen and rejects blank
// output.
func GenerateMinutes(ctx context.Context, gen Generator, transcript, preamble, label string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errs.E("generate minutes", errs.ErrEmptyTranscript)
	}
	return generate(ctx, gen, MinutesPrompt(preamble, label, transcript))
}

func GenerateDaily(ctx context.Context, gen Generator, transcript, preamble string) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", errs.E("generate daily summary", errs.ErrEmptyTranscript)
	}
	return generate(ctx, gen, DailyPrompt(preamble, transcript))
}

func generate(ctx context.Context, gen Generator, prompt string) (string, error) {
	out, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", errs.E("generate", err, errs.KindGeneration)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errs.E("generate", errs.ErrEmptyLLMResponse)
	}
	return out, nil
}

var fixedReplacements = []struct {
	pattern *words.Pattern
	repl    string
}{
	{words.Literal("Re-envolver", false), "Handover (transferência)"},
	{words.Literal("re-envolver", false), "handover (transferência)"},
	{words.Literal("submetos", false), "suprimentos"},
}

// Postprocess applies the vocabulary table and then the fixed corrections.
func Postprocess(text string, vocab Replacer) string {
	if vocab != nil {
		text = vocab.Apply(text)
	}
	for _, r := range fixedReplacements {
		text = r.pattern.ReplaceAll(text, r.repl)
	}
	return text
}

type Summarizer struct {
	Gen      Generator
	Vocab    Replacer
	Provider string // for logging only
}

// Summarize generates and post-processes a summary for meetingType.
func (s *Summarizer) Summarize(ctx context.Context, meetingType, transcript string) (string, MeetingType, error) {
	mt, err := Lookup(meetingType)
	if err != nil {
		return "", MeetingType{}, err
	}
	start := time.Now()

	var out string
	if mt.Daily {
		out, err = GenerateDaily(ctx, s.Gen, transcript, mt.Preamble())
	} else {
		out, err = GenerateMinutes(ctx, s.Gen, transcript, mt.Preamble(), mt.Name)
	}
	if err != nil {
		return "", mt, err
	}
	out = Postprocess(out, s.Vocab)
	log.Summary(mt.Name, s.Provider, len([]rune(out)), time.Since(start))
	return out, mt, nil
}

// BaseName derives the summary name from a transcript path.
func BaseName(transcriptPath string) string {
	base := filepath.Base(transcriptPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, ".raw")
	base = strings.ReplaceAll(strings.TrimSpace(base), " ", "_")
	if base == "" || base == "." {
		return "summary"
	}
	return base
}

var bom = []byte{0xEF, 0xBB, 0xBF}

// Write stores the summary as <dir>/<base>_<suffix>.md in UTF-8 with a BOM.
func Write(dir, base string, mt MeetingType, text string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("summaries dir: %w", err)
	}
	path := filepath.Join(dir, base+"_"+mt.Suffix+".md")
	data := append(append([]byte{}, bom...), text...)
	if !strings.HasSuffix(text, "\n") {
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}

// ReadTranscript reads a transcript file, dropping a leading BOM.
func ReadTranscript(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errs.E("read transcript", err, errs.KindInput)
	}
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
