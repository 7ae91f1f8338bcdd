package doctor

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scribe/audio"
	"scribe/config"
	"scribe/encoder"
	"scribe/transcriber"
)

func tone(seconds float64) []float32 {
	n := int(seconds * encoder.SampleRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = 0.3 * float32(math.Sin(2*math.Pi*220*float64(i)/encoder.SampleRate))
	}
	return out
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Paths.BaseOutput = dir
	cfg.Paths.VocabPath = filepath.Join(dir, "vocab.csv")
	cfg.Transcription.Engine = "groq" // skips the local runtime check
	return cfg
}

func TestRunAllPass(t *testing.T) {
	var out bytes.Buffer
	engine := transcriber.NewFake("olá mundo", nil)
	code := Run(context.Background(), testConfig(t), Options{
		Audio:     audio.NewFakeContext(tone(2), false),
		Engine:    engine,
		RecordFor: 10 * time.Millisecond,
		Out:       &out,
	})
	if code != 0 {
		t.Fatalf("exit %d\n%s", code, out.String())
	}
	for _, want := range []string{"[1/6]", "Using device: fake", "Transcribed text: olá mundo", "All checks passed!"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q\n%s", want, out.String())
		}
	}
	if len(engine.Calls()) != 1 {
		t.Errorf("engine called %d times, want 1", len(engine.Calls()))
	}
}

func TestRunFlatSignal(t *testing.T) {
	var out bytes.Buffer
	engine := transcriber.NewFake("unused", nil)
	code := Run(context.Background(), testConfig(t), Options{
		Audio:     audio.NewFakeContext(make([]float32, 2*encoder.SampleRate), false),
		Engine:    engine,
		RecordFor: 10 * time.Millisecond,
		Out:       &out,
	})
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(out.String(), "no signal variation") {
		t.Errorf("output missing signal failure\n%s", out.String())
	}
	if !strings.Contains(out.String(), "SKIP: no microphone sample") {
		t.Errorf("engine check should be skipped\n%s", out.String())
	}
	if len(engine.Calls()) != 0 {
		t.Error("engine should not run without a sample")
	}
}

func TestRunUnknownProvider(t *testing.T) {
	var out bytes.Buffer
	cfg := testConfig(t)
	cfg.Summary.Provider = "nope"
	code := Run(context.Background(), cfg, Options{
		Audio:     audio.NewFakeContext(tone(2), false),
		Engine:    transcriber.NewFake("x", nil),
		RecordFor: 10 * time.Millisecond,
		Out:       &out,
	})
	if code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(out.String(), "[5/6] Summary provider") {
		t.Errorf("missing summary header\n%s", out.String())
	}
}
