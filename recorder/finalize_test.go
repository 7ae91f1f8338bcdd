package recorder

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"scribe/encoder"
	"scribe/errs"
)

func tone(seconds float64, amp float32) []float32 {
	n := int(seconds * encoder.SampleRate)
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(2*math.Pi*220*float64(i)/encoder.SampleRate))
	}
	return out
}

func constant(seconds float64, v float32) []float32 {
	out := make([]float32, int(seconds*encoder.SampleRate))
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSanitizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Daily Standup", "daily_standup"},
		{"  Reunião   Semanal ", "reunio_semanal"},
		{"Sprint-42 / review!", "sprint-42__review"},
		{"a\tb\nc", "a_b_c"},
		{"", "recording"},
		{"!!!", "recording"},
		{"ÁÉÍ", "recording"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	ts := time.Date(2026, 1, 19, 9, 5, 7, 0, time.UTC)
	if got := FileName("Kickoff Cliente", ts); got != "kickoff_cliente_2026-01-19_09-05-07.wav" {
		t.Errorf("FileName = %q", got)
	}
}

func TestFinalizeWritesWAV(t *testing.T) {
	dir := t.TempDir()
	in := tone(2.5, 0.3)
	res, err := Finalize(in, FinalizeOptions{Dir: dir, BaseName: "test"})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if math.Abs(res.Duration-2.5) > 1e-9 {
		t.Errorf("Duration = %f", res.Duration)
	}
	if math.Abs(float64(res.Peak)-0.3) > 1e-3 {
		t.Errorf("Peak = %f, want ~0.3", res.Peak)
	}

	d, ok, err := encoder.Duration(res.Path)
	if err != nil || !ok {
		t.Fatalf("Duration(%s): ok=%v err=%v", res.Path, ok, err)
	}
	if math.Abs(d-2.5) > 0.01 {
		t.Errorf("decoded duration = %f, want 2.5", d)
	}

	out, _, err := encoder.ReadWAV(res.Path)
	if err != nil {
		t.Fatal(err)
	}
	var peak float32
	for _, s := range out {
		peak = max(peak, float32(math.Abs(float64(s))))
	}
	if math.Abs(float64(peak)-DefaultTargetPeak) > 0.01 {
		t.Errorf("written peak = %f, want %f", peak, DefaultTargetPeak)
	}
	if in[100] != tone(2.5, 0.3)[100] {
		t.Error("Finalize modified its input")
	}
}

func TestFinalizeTooShort(t *testing.T) {
	dir := t.TempDir()
	_, err := Finalize(tone(0.99, 0.5), FinalizeOptions{Dir: dir, BaseName: "short"})
	if !errors.Is(err, errs.ErrTooShort) {
		t.Fatalf("err = %v, want ErrTooShort", err)
	}
	if errs.KindOf(err) != errs.KindSignalQuality {
		t.Errorf("kind = %v", errs.KindOf(err))
	}
	assertEmptyDir(t, dir)
}

func TestFinalizeInvalidSignal(t *testing.T) {
	for name, buf := range map[string][]float32{
		"constant": constant(2, 0.25),
		"silent":   constant(2, 0),
	} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := Finalize(buf, FinalizeOptions{Dir: dir, BaseName: name})
			if !errors.Is(err, errs.ErrInvalidSignal) {
				t.Fatalf("err = %v, want ErrInvalidSignal", err)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestNormalizeSilentBuffer(t *testing.T) {
	out, peak := Normalize(make([]float32, 10), 0.9)
	if peak != 0 {
		t.Errorf("peak = %f", peak)
	}
	for _, s := range out {
		if s != 0 {
			t.Fatal("silent buffer changed by normalization")
		}
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float32{1, -1, 1, -1}); math.Abs(got-1) > 1e-9 {
		t.Errorf("StdDev = %f, want 1", got)
	}
	if got := StdDev(nil); got != 0 {
		t.Errorf("StdDev(nil) = %f", got)
	}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no files, found %s", filepath.Join(dir, entries[0].Name()))
	}
}
