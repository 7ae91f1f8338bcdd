// Package quality scores a transcript by speaking rate and keeps an
// append-only audit trail of every score.
package quality

import (
	"math"
	"time"

	"github.com/google/uuid"

	"scribe/internal/words"
)

type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
)

const (
	ReasonBelowMinWords = "below_min_words"
	ReasonBelowMinWPM   = "below_min_wpm"
	ReasonAboveMaxWPM   = "above_max_wpm"
)

// Thresholds with a zero value disable their check.
type Thresholds struct {
	MinWords int
	MinWPM   float64
	MaxWPM   float64
}

type Input struct {
	Text       string
	Duration   *float64 // seconds, nil when unknown
	Audio      string
	Transcript string
	Mode       string
}

type Report struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Audio      string    `json:"audio"`
	Transcript string    `json:"transcript"`
	Duration   *float64  `json:"duration_s"`
	Words      int       `json:"word_count"`
	WPM        *float64  `json:"wpm"`
	Status     Status    `json:"status"`
	Reasons    []string  `json:"reasons"`
	Mode       string    `json:"mode"`
}

// WPM is undefined for a missing or non-positive duration.
func WPM(wordCount int, duration *float64) *float64 {
	if duration == nil || *duration <= 0 || math.IsNaN(*duration) || math.IsInf(*duration, 0) {
		return nil
	}
	v := float64(wordCount) / (*duration / 60)
	return &v
}

func Assess(in Input, th Thresholds) Report {
	n := words.Count(in.Text)
	r := Report{
		ID:         uuid.NewString(),
		Timestamp:  time.Now(),
		Audio:      in.Audio,
		Transcript: in.Transcript,
		Duration:   in.Duration,
		Words:      n,
		WPM:        WPM(n, in.Duration),
		Status:     StatusOK,
		Reasons:    []string{},
		Mode:       in.Mode,
	}

	if th.MinWords > 0 && n < th.MinWords {
		r.Reasons = append(r.Reasons, ReasonBelowMinWords)
	}
	if r.WPM != nil {
		if th.MinWPM > 0 && *r.WPM < th.MinWPM {
			r.Reasons = append(r.Reasons, ReasonBelowMinWPM)
		}
		if th.MaxWPM > 0 && *r.WPM > th.MaxWPM {
			r.Reasons = append(r.Reasons, ReasonAboveMaxWPM)
		}
	}
	if len(r.Reasons) > 0 {
		r.Status = StatusWarn
	}
	return r
}
