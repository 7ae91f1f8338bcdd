// Package refine cleans raw ASR text with a fixed chain of deterministic
// stages. No stage calls out to a model.
package refine

import (
	"errors"
	"strings"
	"unicode/utf8"

	"scribe/config"
	"scribe/errs"
	"scribe/log"
)

// Replacer applies a user correction table.
type Replacer interface {
	Apply(text string) string
}

type Options struct {
	Fillers    []string // nil uses DefaultFillers
	Orality    []string
	MaxRepeats int // 0 disables repetition removal
	Tail       TailConfig
	Vocabulary Replacer
}

type StageMetric struct {
	Name     string `json:"name"`
	CharsIn  int    `json:"chars_in"`
	CharsOut int    `json:"chars_out"`
	Guarded  bool   `json:"guarded,omitempty"` // output was discarded for erasing the input
}

type stage struct {
	name string
	fn   func(string) string
}

type Pipeline struct {
	stages []stage
}

func New(opts Options) *Pipeline {
	fillers := opts.Fillers
	if fillers == nil {
		fillers = DefaultFillers
	}
	compiled := compileFillers(fillers)

	p := &Pipeline{}
	p.add("structural", func(s string) string { return Structural(s, compiled) })
	p.add("orality", func(s string) string { return Orality(s, opts.Orality) })
	p.add("repetition", func(s string) string { return Repetition(s, opts.MaxRepeats) })
	p.add("lexical", Lexical)
	p.add("hallucination", func(s string) string { return HallucinationTail(s, opts.Tail) })
	p.add("vocabulary", func(s string) string {
		if opts.Vocabulary == nil {
			return s
		}
		return opts.Vocabulary.Apply(s)
	})
	return p
}

// FromConfig maps the transcription section onto pipeline options.
func FromConfig(t config.Transcription, vocab Replacer) *Pipeline {
	opts := Options{
		Tail: TailConfig{
			MinWords:   t.Cleaning.MinWordsForChecks,
			Window:     t.Cleaning.MaxTailWindowWords,
			MinRepeats: t.Cleaning.MinRepeatsForTailCut,
			Diversity:  t.Cleaning.DiversityThreshold,
		},
		Vocabulary: vocab,
	}
	if t.Orality.Enabled {
		opts.Orality = t.Orality.Terms
	}
	if t.Repetition.Enabled {
		opts.MaxRepeats = t.Repetition.MaxConsecutive
	}
	return New(opts)
}

func (p *Pipeline) add(name string, fn func(string) string) {
	p.stages = append(p.stages, stage{name, fn})
}

// Apply runs every stage in order. A stage that turns non-blank text into
// blank text is skipped and reported as Guarded.
func (p *Pipeline) Apply(text string) (string, []StageMetric) {
	metrics := make([]StageMetric, 0, len(p.stages))
	for _, st := range p.stages {
		out := st.fn(text)
		m := StageMetric{
			Name:     st.name,
			CharsIn:  utf8.RuneCountInString(text),
			CharsOut: utf8.RuneCountInString(out),
		}
		if strings.TrimSpace(text) != "" && strings.TrimSpace(out) == "" {
			err := errs.E("refine "+st.name, errEmptied, errs.KindPipelineInvariant)
			log.Errorf("%v (%d chars kept)", err, m.CharsIn)
			m.Guarded = true
			m.CharsOut = m.CharsIn
			out = text
		}
		log.RefineStage(m.Name, m.CharsIn, m.CharsOut, m.Guarded)
		metrics = append(metrics, m)
		text = out
	}
	return text, metrics
}

// Text is Apply without the metrics.
func (p *Pipeline) Text(text string) string {
	out, _ := p.Apply(text)
	return out
}

var errEmptied = errors.New("stage emptied non-empty text")
