package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"scribe/encoder"
	"scribe/errs"
	"scribe/internal/words"
	"scribe/log"
)

// RetryHeuristic decides when VAD trimming probably ate real speech. The
// ratios were tuned on Portuguese meeting audio.
type RetryHeuristic struct {
	MinDuration    float64 // seconds of audio before the check applies
	CharsPerSecond float64
	WordsPerSecond float64
}

func DefaultRetry() RetryHeuristic {
	return RetryHeuristic{MinDuration: 30, CharsPerSecond: 5, WordsPerSecond: 0.6}
}

// ShouldRetry reports whether text is implausibly short for duration seconds.
func (h RetryHeuristic) ShouldRetry(text string, duration float64) bool {
	if duration <= h.MinDuration {
		return false
	}
	chars := len([]rune(strings.TrimSpace(text)))
	n := words.Count(text)
	return float64(chars) < duration*h.CharsPerSecond || float64(n) < duration*h.WordsPerSecond
}

type AdapterOptions struct {
	VADFilter bool
	Language  string
	Retry     RetryHeuristic
}

// Adapter runs an engine with VAD filtering and falls back to an unfiltered
// pass once when the filtered transcript looks truncated.
type Adapter struct {
	engine Engine
	opts   AdapterOptions
}

func NewAdapter(engine Engine, opts AdapterOptions) *Adapter {
	if opts.Retry == (RetryHeuristic{}) {
		opts.Retry = DefaultRetry()
	}
	return &Adapter{engine: engine, opts: opts}
}

func (a *Adapter) Engine() Engine { return a.engine }

func (a *Adapter) Transcribe(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, errs.E("transcribe", fmt.Errorf("%w: %s", errs.ErrAudioNotFound, path))
	}

	var audioDur *float64
	if d, ok, err := encoder.Duration(path); err != nil {
		log.Warnf("reading duration of %s: %v", path, err)
	} else if ok {
		audioDur = &d
	}

	res, err := a.run(ctx, path, a.opts.VADFilter)
	if err != nil {
		return nil, err
	}

	if a.opts.VADFilter && audioDur != nil && a.opts.Retry.ShouldRetry(res.Text, *audioDur) {
		log.Warnf("transcript looks truncated (%d chars for %.1fs), retrying without VAD", len(res.Text), *audioDur)
		retry, err := a.run(ctx, path, false)
		if err != nil {
			log.Warnf("retry without VAD failed, keeping filtered transcript: %v", err)
		} else {
			retry.RetriedWithoutVAD = true
			res = retry
		}
	}

	res.AudioDuration = audioDur
	a.logResult(res)
	return res, nil
}

func (a *Adapter) run(ctx context.Context, path string, vadFilter bool) (*Result, error) {
	start := time.Now()
	res, err := a.engine.Transcribe(ctx, path, Options{VADFilter: vadFilter, Language: a.opts.Language})
	if err != nil {
		if errs.KindOf(err) == errs.KindUnknown && !errors.Is(err, context.Canceled) {
			return nil, errs.E("transcribe "+a.engine.Name(), err, errs.KindTranscriptionBackend)
		}
		return nil, errs.E("transcribe "+a.engine.Name(), err)
	}
	res.Text = strings.TrimSpace(res.Text)
	if res.Text == "" && len(res.Segments) > 0 {
		res.Text = joinSegments(res.Segments)
	}
	if res.Language == "" {
		res.Language = a.opts.Language
	}
	res.Engine = a.engine.Name()
	res.VADFilter = vadFilter
	res.EngineDuration = time.Since(start).Seconds()
	return res, nil
}

func (a *Adapter) logResult(res *Result) {
	audioS := -1.0
	if res.AudioDuration != nil {
		audioS = *res.AudioDuration
	}
	log.TranscriptionDone(log.Transcription{
		Engine:    res.Engine,
		Language:  res.Language,
		VADFilter: res.VADFilter,
		Retried:   res.RetriedWithoutVAD,
		Chars:     len([]rune(res.Text)),
		Words:     words.Count(res.Text),
		Segments:  len(res.Segments),
		EngineS:   res.EngineDuration,
		AudioS:    audioS,
	})
}
