package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.BaseOutput != "output" {
		t.Errorf("base_output = %q", cfg.Paths.BaseOutput)
	}
	if !cfg.Transcription.Whisper.VADFilter {
		t.Error("vad_filter should default to true")
	}
	if cfg.Quality.MinWPM != 90 || cfg.Quality.MaxWPM != 220 {
		t.Errorf("quality = %+v", cfg.Quality)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	doc := `
[paths]
base_output = "/data/out"
vocab_path = "/data/vocab.csv"

[transcription]
engine = "groq"

[transcription.whisper]
vad_filter = false

[transcription.orality]
enabled = true
terms = ["tipo", "sabe"]

[transcription.cleaning]
min_words_for_checks = 5
max_tail_window_words = 3
diversity_threshold = 0.5

[quality]
min_wpm = 80
max_wpm = 200
min_words = 10
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Paths.BaseOutput != "/data/out" || cfg.Paths.VocabPath != "/data/vocab.csv" {
		t.Errorf("paths = %+v", cfg.Paths)
	}
	if cfg.Paths.SummariesDir != "summaries" {
		t.Errorf("summaries_dir default lost: %q", cfg.Paths.SummariesDir)
	}
	if cfg.Transcription.Engine != "groq" {
		t.Errorf("engine = %q", cfg.Transcription.Engine)
	}
	if cfg.Transcription.Whisper.VADFilter {
		t.Error("vad_filter override ignored")
	}
	if cfg.Transcription.Whisper.Model != "small" {
		t.Errorf("whisper model = %q", cfg.Transcription.Whisper.Model)
	}
	if len(cfg.Transcription.Orality.Terms) != 2 {
		t.Errorf("orality terms = %v", cfg.Transcription.Orality.Terms)
	}
	if cfg.Transcription.Cleaning.MaxTailWindowWords != 3 {
		t.Errorf("cleaning = %+v", cfg.Transcription.Cleaning)
	}
	if cfg.Quality.MinWords != 10 {
		t.Errorf("min_words = %d", cfg.Quality.MinWords)
	}
	if got := cfg.SummariesDir(); got != filepath.Join("/data/out", "summaries") {
		t.Errorf("SummariesDir = %q", got)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("[paths\nbase_output = "), 0644)
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	os.WriteFile(path, []byte("SCRIBE_TEST_KEY=from-file\n"), 0644)
	t.Setenv("SCRIBE_TEST_KEY", "")
	os.Unsetenv("SCRIBE_TEST_KEY")

	if err := LoadEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("SCRIBE_TEST_KEY"); got != "from-file" {
		t.Errorf("SCRIBE_TEST_KEY = %q", got)
	}
	if err := LoadEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing .env should be ignored: %v", err)
	}
}
