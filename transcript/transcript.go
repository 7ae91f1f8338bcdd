// Package transcript runs one audio file through transcription, refinement
// and quality scoring, and writes the resulting artifacts.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"scribe/config"
	"scribe/log"
	"scribe/quality"
	"scribe/refine"
	"scribe/transcriber"
)

const (
	ModeMic  = "mic"
	ModeFile = "file"
)

type Processor struct {
	Adapter    *transcriber.Adapter
	Pipeline   *refine.Pipeline
	Audit      *quality.AuditLog // nil skips the audit trail
	Thresholds quality.Thresholds
	Dir        string
}

// New wires a processor from configuration around engine.
func New(cfg config.Config, engine transcriber.Engine, vocab refine.Replacer) *Processor {
	t := cfg.Transcription
	return &Processor{
		Adapter: transcriber.NewAdapter(engine, transcriber.AdapterOptions{
			VADFilter: t.Whisper.VADFilter,
			Language:  t.Language,
			Retry: transcriber.RetryHeuristic{
				MinDuration:    t.Retry.MinDurationS,
				CharsPerSecond: t.Retry.CharsPerSecond,
				WordsPerSecond: t.Retry.WordsPerSecond,
			},
		}),
		Pipeline: refine.FromConfig(t, vocab),
		Audit:    quality.NewAuditLog(cfg.QualityLogBase()),
		Thresholds: quality.Thresholds{
			MinWords: cfg.Quality.MinWords,
			MinWPM:   cfg.Quality.MinWPM,
			MaxWPM:   cfg.Quality.MaxWPM,
		},
		Dir: cfg.TranscriptsDir(),
	}
}

type Output struct {
	Result   *transcriber.Result
	Raw      string
	Text     string
	Stages   []refine.StageMetric
	Report   quality.Report
	TextPath string
	RawPath  string
	JSONPath string
}

type artifact struct {
	Audio   string               `json:"audio"`
	Mode    string               `json:"mode"`
	Result  *transcriber.Result  `json:"result"`
	Refined string               `json:"refined_text"`
	Stages  []refine.StageMetric `json:"stages"`
	Quality quality.Report       `json:"quality"`
}

// Process transcribes audioPath and writes <stem>.txt, <stem>.raw.txt and
// <stem>.json into p.Dir.
func (p *Processor) Process(ctx context.Context, audioPath, mode string) (*Output, error) {
	res, err := p.Adapter.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	out := &Output{Result: res, Raw: res.Text}
	out.Text, out.Stages = p.Pipeline.Apply(res.Text)

	stem := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	if err := os.MkdirAll(p.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("transcripts dir: %w", err)
	}
	out.TextPath = filepath.Join(p.Dir, stem+".txt")
	out.RawPath = filepath.Join(p.Dir, stem+".raw.txt")
	out.JSONPath = filepath.Join(p.Dir, stem+".json")

	out.Report = quality.Assess(quality.Input{
		Text:       out.Text,
		Duration:   res.AudioDuration,
		Audio:      filepath.Base(audioPath),
		Transcript: filepath.Base(out.TextPath),
		Mode:       mode,
	}, p.Thresholds)

	if err := writeText(out.RawPath, out.Raw); err != nil {
		return nil, err
	}
	if err := writeText(out.TextPath, out.Text); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(artifact{
		Audio:   audioPath,
		Mode:    mode,
		Result:  res,
		Refined: out.Text,
		Stages:  out.Stages,
		Quality: out.Report,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out.JSONPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write transcript json: %w", err)
	}

	if p.Audit != nil {
		if err := p.Audit.Append(out.Report); err != nil {
			log.Warnf("quality log: %v", err)
		}
	}
	log.TranscriptionText(out.Text)
	return out, nil
}

func writeText(path, text string) error {
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}
