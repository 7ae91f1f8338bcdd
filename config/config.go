package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const DefaultPath = "config.toml"

type Config struct {
	Paths         Paths         `toml:"paths"`
	Audio         Audio         `toml:"audio"`
	Transcription Transcription `toml:"transcription"`
	Quality       Quality       `toml:"quality"`
	Summary       Summary       `toml:"summary"`
}

type Paths struct {
	BaseOutput     string `toml:"base_output"`
	AudioDir       string `toml:"audio_dir"`
	TranscriptsDir string `toml:"transcripts_dir"`
	SummariesDir   string `toml:"summaries_dir"`
	VocabPath      string `toml:"vocab_path"`
	QualityLog     string `toml:"quality_log"`
}

type Audio struct {
	Device string `toml:"device"`
}

type Transcription struct {
	Engine     string     `toml:"engine"`
	Language   string     `toml:"language"`
	Whisper    Whisper    `toml:"whisper"`
	OpenAI     Remote     `toml:"openai"`
	Groq       Remote     `toml:"groq"`
	Retry      Retry      `toml:"retry"`
	Orality    Orality    `toml:"orality"`
	Repetition Repetition `toml:"repetition"`
	Cleaning   Cleaning   `toml:"cleaning"`
}

type Whisper struct {
	Model       string `toml:"model"`
	Device      string `toml:"device"`
	ComputeType string `toml:"compute_type"`
	BeamSize    int    `toml:"beam_size"`
	VADFilter   bool   `toml:"vad_filter"`
	Python      string `toml:"python"`
}

type Remote struct {
	Model string `toml:"model"`
}

type Retry struct {
	MinDurationS   float64 `toml:"min_duration_s"`
	CharsPerSecond float64 `toml:"chars_per_second"`
	WordsPerSecond float64 `toml:"words_per_second"`
}

type Orality struct {
	Enabled bool     `toml:"enabled"`
	Terms   []string `toml:"terms"`
}

type Repetition struct {
	Enabled        bool `toml:"enabled"`
	MaxConsecutive int  `toml:"max_consecutive"`
}

// Cleaning drives the hallucination tail cut. All zero disables it.
type Cleaning struct {
	MinWordsForChecks    int     `toml:"min_words_for_checks"`
	MaxTailWindowWords   int     `toml:"max_tail_window_words"`
	MinRepeatsForTailCut int     `toml:"min_repeats_for_tail_cut"`
	DiversityThreshold   float64 `toml:"diversity_threshold"`
}

type Quality struct {
	MinWPM   float64 `toml:"min_wpm"`
	MaxWPM   float64 `toml:"max_wpm"`
	MinWords int     `toml:"min_words"`
}

type Summary struct {
	Provider    string  `toml:"provider"`
	Model       string  `toml:"model"`
	BaseURL     string  `toml:"base_url"` // empty uses the provider default
	Temperature float32 `toml:"temperature"`
}

func Default() Config {
	return Config{
		Paths: Paths{
			BaseOutput:     "output",
			AudioDir:       "audio",
			TranscriptsDir: "transcripts",
			SummariesDir:   "summaries",
			VocabPath:      "vocab.csv",
			QualityLog:     "quality_log",
		},
		Transcription: Transcription{
			Engine:   "whisper",
			Language: "pt",
			Whisper: Whisper{
				Model:       "small",
				Device:      "cpu",
				ComputeType: "int8",
				BeamSize:    5,
				VADFilter:   true,
				Python:      "python3",
			},
			OpenAI: Remote{Model: "whisper-1"},
			Groq:   Remote{Model: "whisper-large-v3-turbo"},
			Retry: Retry{
				MinDurationS:   30,
				CharsPerSecond: 5,
				WordsPerSecond: 0.6,
			},
			Repetition: Repetition{Enabled: true, MaxConsecutive: 1},
		},
		Quality: Quality{MinWPM: 90, MaxWPM: 220, MinWords: 30},
		Summary: Summary{
			Provider:    "ollama",
			Temperature: 0.2,
		},
	}
}

// Load reads path on top of the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath
	}
	_, err := toml.DecodeFile(path, &cfg)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.fill()
	return cfg, nil
}

// fill restores defaults for keys present but left empty.
func (c *Config) fill() {
	d := Default()
	if c.Paths.BaseOutput == "" {
		c.Paths.BaseOutput = d.Paths.BaseOutput
	}
	if c.Paths.AudioDir == "" {
		c.Paths.AudioDir = d.Paths.AudioDir
	}
	if c.Paths.TranscriptsDir == "" {
		c.Paths.TranscriptsDir = d.Paths.TranscriptsDir
	}
	if c.Paths.SummariesDir == "" {
		c.Paths.SummariesDir = d.Paths.SummariesDir
	}
	if c.Paths.VocabPath == "" {
		c.Paths.VocabPath = d.Paths.VocabPath
	}
	if c.Paths.QualityLog == "" {
		c.Paths.QualityLog = d.Paths.QualityLog
	}
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = d.Transcription.Engine
	}
	if c.Transcription.Whisper.Model == "" {
		c.Transcription.Whisper.Model = d.Transcription.Whisper.Model
	}
	if c.Transcription.Whisper.BeamSize <= 0 {
		c.Transcription.Whisper.BeamSize = d.Transcription.Whisper.BeamSize
	}
	if c.Transcription.Whisper.Python == "" {
		c.Transcription.Whisper.Python = d.Transcription.Whisper.Python
	}
	if c.Transcription.Repetition.MaxConsecutive <= 0 {
		c.Transcription.Repetition.MaxConsecutive = 1
	}
	if c.Summary.Provider == "" {
		c.Summary.Provider = d.Summary.Provider
	}
}

func (c Config) AudioDir() string {
	return filepath.Join(c.Paths.BaseOutput, c.Paths.AudioDir)
}

func (c Config) TranscriptsDir() string {
	return filepath.Join(c.Paths.BaseOutput, c.Paths.TranscriptsDir)
}

func (c Config) SummariesDir() string {
	return filepath.Join(c.Paths.BaseOutput, c.Paths.SummariesDir)
}

// QualityLogBase is the audit log path without extension; .jsonl and .csv are appended.
func (c Config) QualityLogBase() string {
	return filepath.Join(c.Paths.BaseOutput, c.Paths.QualityLog)
}

// LoadEnv reads a .env file when present. Variables already set win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}
