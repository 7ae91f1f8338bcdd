package recorder

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"scribe/encoder"
	"scribe/errs"
)

const (
	DefaultMinDuration = 1.0
	DefaultTargetPeak  = 0.9
	DefaultEpsilon     = 1e-5

	placeholderName = "recording"
	timeLayout      = "2006-01-02_15-04-05"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	disallowed    = regexp.MustCompile(`[^a-z0-9_-]`)
)

// SanitizeName lowercases name, turns whitespace runs into underscores and
// strips everything outside [a-z0-9_-].
func SanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = disallowed.ReplaceAllString(s, "")
	if s == "" {
		return placeholderName
	}
	return s
}

// FileName is the WAV name for a recording of base started at t.
func FileName(base string, t time.Time) string {
	return SanitizeName(base) + "_" + t.Format(timeLayout) + ".wav"
}

type FinalizeOptions struct {
	Dir        string
	BaseName   string
	SampleRate int
	Time       time.Time

	MinDuration float64 // seconds
	TargetPeak  float32
	Epsilon     float64
}

func (o *FinalizeOptions) defaults() {
	if o.SampleRate <= 0 {
		o.SampleRate = encoder.SampleRate
	}
	if o.MinDuration <= 0 {
		o.MinDuration = DefaultMinDuration
	}
	if o.TargetPeak <= 0 {
		o.TargetPeak = DefaultTargetPeak
	}
	if o.Epsilon <= 0 {
		o.Epsilon = DefaultEpsilon
	}
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
}

type Finalized struct {
	Path     string
	Duration float64 // seconds of captured audio
	Peak     float32 // before normalization
	Std      float64 // after normalization
	Samples  int
}

// Finalize validates a captured buffer and writes it as a WAV file. Nothing
// is written when validation fails. samples is not modified.
func Finalize(samples []float32, opts FinalizeOptions) (*Finalized, error) {
	opts.defaults()

	duration := float64(len(samples)) / float64(opts.SampleRate)
	if duration < opts.MinDuration {
		return nil, errs.E("finalize", fmt.Errorf("%w: %.2fs < %.2fs", errs.ErrTooShort, duration, opts.MinDuration))
	}

	normalized, peak := Normalize(samples, opts.TargetPeak)
	std := StdDev(normalized)
	if std < opts.Epsilon {
		return nil, errs.E("finalize", fmt.Errorf("%w: std %.2e", errs.ErrInvalidSignal, std))
	}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, errs.E("finalize", err, errs.KindResource)
		}
	}
	path := filepath.Join(opts.Dir, FileName(opts.BaseName, opts.Time))
	if err := encoder.WriteWAV(path, normalized, opts.SampleRate); err != nil {
		return nil, errs.E("finalize", err, errs.KindResource)
	}

	return &Finalized{
		Path:     path,
		Duration: duration,
		Peak:     peak,
		Std:      std,
		Samples:  len(samples),
	}, nil
}

// Normalize scales a copy of samples so the loudest one reaches target.
// A silent buffer is copied unchanged.
func Normalize(samples []float32, target float32) ([]float32, float32) {
	var peak float32
	for _, s := range samples {
		if a := float32(math.Abs(float64(s))); a > peak {
			peak = a
		}
	}
	out := make([]float32, len(samples))
	if peak == 0 {
		copy(out, samples)
		return out, 0
	}
	gain := target / peak
	for i, s := range samples {
		out[i] = s * gain
	}
	return out, peak
}

func StdDev(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	mean := sum / float64(len(samples))
	var sq float64
	for _, s := range samples {
		d := float64(s) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(samples)))
}

func rms(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sq float64
	for _, s := range samples {
		sq += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sq / float64(len(samples))))
}
