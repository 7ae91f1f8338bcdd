// Package transcriber turns audio files into structured transcripts through
// a pluggable speech recognition engine.
package transcriber

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

type Segment struct {
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Text         string  `json:"text"`
	NoSpeechProb float64 `json:"no_speech_prob,omitempty"`
	AvgLogProb   float64 `json:"avg_logprob,omitempty"`
}

// Result is produced once per audio file and never mutated afterwards.
type Result struct {
	Text              string    `json:"text"`
	Language          string    `json:"language"`
	Segments          []Segment `json:"segments"`
	EngineDuration    float64   `json:"engine_duration_s"`
	AudioDuration     *float64  `json:"audio_duration_s,omitempty"`
	Engine            string    `json:"engine"`
	VADFilter         bool      `json:"vad_filter"`
	RetriedWithoutVAD bool      `json:"retried_without_vad"`

	Metrics   *NetworkMetrics `json:"-"`
	RateLimit string          `json:"-"`
}

type Options struct {
	VADFilter bool
	Language  string // empty = auto-detect
}

type Engine interface {
	Name() string
	Transcribe(ctx context.Context, path string, opts Options) (*Result, error)
}

// Warmer is implemented by engines that can prepare for a request ahead of
// time, typically while a recording is still running.
type Warmer interface {
	Warm(ctx context.Context) error
}

// joinSegments builds the full text from segment texts when an engine
// does not return one.
func joinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

type EngineConfig struct {
	Name        string
	Whisper     WhisperConfig
	OpenAIModel string
	OpenAIKey   string
	GroqModel   string
	GroqKey     string
}

// New builds the engine named by cfg.Name. Remote engines read their key from
// the environment when none is given.
func New(cfg EngineConfig) (Engine, error) {
	switch cfg.Name {
	case "", "whisper", "local":
		return NewWhisper(cfg.Whisper), nil
	case "groq":
		key := cfg.GroqKey
		if key == "" {
			key = os.Getenv("GROQ_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("groq engine: set GROQ_API_KEY")
		}
		return NewGroq(key, cfg.GroqModel), nil
	case "openai":
		key := cfg.OpenAIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai engine: set OPENAI_API_KEY")
		}
		return NewOpenAI(key, cfg.OpenAIModel), nil
	}
	return nil, fmt.Errorf("unknown transcription engine %q (use whisper, groq or openai)", cfg.Name)
}
