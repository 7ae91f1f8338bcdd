// Package doctor checks that the machine can record, transcribe and
// summarize with the current configuration.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"scribe/audio"
	"scribe/clipboard"
	"scribe/config"
	"scribe/errs"
	"scribe/recorder"
	"scribe/summary"
	"scribe/transcriber"
	"scribe/vocab"
)

type Options struct {
	Clipboard bool // also round-trip the clipboard

	// Audio and Engine replace the real backends when set.
	Audio  audio.Context
	Engine transcriber.Engine

	RecordFor time.Duration // microphone sample length, default 3s
	Out       io.Writer     // default os.Stdout
}

type doctor struct {
	ctx  context.Context
	cfg  config.Config
	opts Options
	out  io.Writer

	step, steps int
	sample      string // WAV recorded by the microphone check
}

// Run executes the checks and returns an exit code (0=all pass, 1=any fail).
func Run(ctx context.Context, cfg config.Config, opts Options) int {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.RecordFor <= 0 {
		opts.RecordFor = 3 * time.Second
	}
	d := &doctor{ctx: ctx, cfg: cfg, opts: opts, out: opts.Out, steps: 6}
	if opts.Clipboard {
		d.steps++
	}

	fmt.Fprintln(d.out, "scribe doctor - system diagnostics")
	fmt.Fprintln(d.out, "==================================")

	tmp, err := os.MkdirTemp("", "scribe-doctor-")
	if err != nil {
		fmt.Fprintf(d.out, "cannot create temp dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(tmp)

	checks := []func() bool{
		d.checkOutput,
		d.checkVocab,
		func() bool { return d.checkMicrophone(tmp) },
		d.checkEngine,
		d.checkSummary,
		d.checkPython,
	}
	if opts.Clipboard {
		checks = append(checks, d.checkClipboard)
	}

	allPass := true
	for _, check := range checks {
		if ctx.Err() != nil {
			fmt.Fprintln(d.out, "\nInterrupted")
			return 1
		}
		if !check() {
			allPass = false
		}
	}

	fmt.Fprintln(d.out)
	if allPass {
		fmt.Fprintln(d.out, "All checks passed!")
		return 0
	}
	fmt.Fprintln(d.out, "Some checks failed. See details above.")
	return 1
}

func (d *doctor) header(title string) {
	d.step++
	fmt.Fprintln(d.out)
	fmt.Fprintf(d.out, "[%d/%d] %s\n", d.step, d.steps, title)
}

func (d *doctor) pass(format string, args ...any) bool {
	fmt.Fprintf(d.out, "  PASS: "+format+"\n", args...)
	return true
}

func (d *doctor) fail(format string, args ...any) bool {
	fmt.Fprintf(d.out, "  FAIL: "+format+"\n", args...)
	return false
}

func (d *doctor) skip(format string, args ...any) bool {
	fmt.Fprintf(d.out, "  SKIP: "+format+"\n", args...)
	return true
}

func (d *doctor) checkOutput() bool {
	d.header("Output directories")
	for _, dir := range []string{d.cfg.AudioDir(), d.cfg.TranscriptsDir(), d.cfg.SummariesDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return d.fail("%s: %v", dir, err)
		}
		f, err := os.CreateTemp(dir, ".doctor-*")
		if err != nil {
			return d.fail("%s is not writable: %v", dir, err)
		}
		f.Close()
		os.Remove(f.Name())
	}
	return d.pass("writable under %s", d.cfg.Paths.BaseOutput)
}

func (d *doctor) checkVocab() bool {
	d.header("Vocabulary")
	t, err := vocab.Load(d.cfg.Paths.VocabPath)
	if err != nil {
		return d.fail("%v", err)
	}
	if t.Len() == 0 {
		return d.pass("%s has no entries (vocabulary stage is a no-op)", d.cfg.Paths.VocabPath)
	}
	return d.pass("%d entries from %s", t.Len(), d.cfg.Paths.VocabPath)
}

func (d *doctor) checkMicrophone(dir string) bool {
	d.header("Microphone and signal")

	ctx := d.opts.Audio
	if ctx == nil {
		c, err := audio.NewContext()
		if err != nil {
			return d.fail("cannot connect to audio: %v", err)
		}
		defer c.Close()
		ctx = c
	}

	dev, err := audio.SelectInput(ctx, d.cfg.Audio.Device)
	if err != nil {
		return d.fail("%v", err)
	}
	if d.cfg.Audio.Device != "" && dev.Name != d.cfg.Audio.Device {
		fmt.Fprintf(d.out, "  Warning: configured device %q not found, using %q\n", d.cfg.Audio.Device, dev.Name)
	}
	fmt.Fprintf(d.out, "  Using device: %s\n", dev.Name)
	if audio.IsBluetooth(dev.Name) {
		fmt.Fprintln(d.out, "  Warning: bluetooth headsets record at reduced quality")
	}

	ctrl := recorder.New(ctx, recorder.Options{Dir: dir, Device: dev.Name})
	if err := ctrl.Start("doctor"); err != nil {
		return d.fail("%v", err)
	}
	fmt.Fprintf(d.out, "  Speak for %s...\n", d.opts.RecordFor)

	timer := time.NewTimer(d.opts.RecordFor)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.ctx.Done():
		ctrl.Abort()
		return d.fail("interrupted")
	}

	voice := ctrl.Snapshot().Voice
	res, err := ctrl.Stop()
	switch {
	case errors.Is(err, errs.ErrInvalidSignal):
		return d.fail("no signal variation; the microphone may be muted")
	case errors.Is(err, errs.ErrTooShort):
		return d.fail("captured too little audio: %v", err)
	case err != nil:
		return d.fail("%v", err)
	}
	d.sample = res.Path
	if !voice {
		fmt.Fprintln(d.out, "  Warning: no voice detected in the sample")
	}
	return d.pass("%.1fs captured, peak %.2f", res.Duration, res.Peak)
}

func (d *doctor) engine() (transcriber.Engine, error) {
	if d.opts.Engine != nil {
		return d.opts.Engine, nil
	}
	t := d.cfg.Transcription
	return transcriber.New(transcriber.EngineConfig{
		Name: t.Engine,
		Whisper: transcriber.WhisperConfig{
			Python:      t.Whisper.Python,
			Model:       t.Whisper.Model,
			Device:      t.Whisper.Device,
			ComputeType: t.Whisper.ComputeType,
			BeamSize:    t.Whisper.BeamSize,
		},
		OpenAIModel: t.OpenAI.Model,
		GroqModel:   t.Groq.Model,
	})
}

func (d *doctor) checkEngine() bool {
	d.header("Transcription engine")
	engine, err := d.engine()
	if err != nil {
		return d.fail("%v", err)
	}
	if c, ok := engine.(io.Closer); ok && d.opts.Engine == nil {
		defer c.Close()
	}
	fmt.Fprintf(d.out, "  Engine: %s (language %q)\n", engine.Name(), d.cfg.Transcription.Language)

	if d.sample == "" {
		return d.skip("no microphone sample to transcribe")
	}
	start := time.Now()
	res, err := engine.Transcribe(d.ctx, d.sample, transcriber.Options{
		VADFilter: d.cfg.Transcription.Whisper.VADFilter,
		Language:  d.cfg.Transcription.Language,
	})
	if err != nil {
		if errors.Is(err, errs.ErrAuth) {
			return d.fail("credentials rejected: %v", err)
		}
		return d.fail("%v", err)
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		text = "(no speech detected)"
	}
	fmt.Fprintf(d.out, "  Transcribed text: %s\n", text)
	return d.pass("transcribed in %s", time.Since(start).Round(time.Millisecond))
}

func (d *doctor) checkSummary() bool {
	d.header("Summary provider")
	if _, err := summary.NewGenerator(d.ctx, d.cfg.Summary); err != nil {
		return d.fail("%v", err)
	}
	return d.pass("%s with %s (%d meeting types)", d.cfg.Summary.Provider, summary.Model(d.cfg.Summary), len(summary.Names()))
}

func (d *doctor) checkPython() bool {
	d.header("Local whisper runtime")
	if d.cfg.Transcription.Engine != "whisper" && d.cfg.Transcription.Engine != "local" {
		return d.skip("engine %q does not need it", d.cfg.Transcription.Engine)
	}
	py := d.cfg.Transcription.Whisper.Python
	path, err := exec.LookPath(py)
	if err != nil {
		return d.fail("%s not found in PATH", py)
	}
	out, err := exec.CommandContext(d.ctx, path, "-c", "import faster_whisper").CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if i := strings.LastIndex(msg, "\n"); i >= 0 {
			msg = msg[i+1:]
		}
		fmt.Fprintln(d.out, "  Fix with: pip install faster-whisper")
		return d.fail("faster_whisper not importable: %s", msg)
	}
	return d.pass("%s", filepath.Clean(path))
}

func (d *doctor) checkClipboard() bool {
	d.header("Clipboard")
	previous, _ := clipboard.Read()

	probe := fmt.Sprintf("scribe-doctor-%d", time.Now().UnixNano())
	if err := clipboard.Copy(probe); err != nil {
		return d.fail("%v", err)
	}
	got, err := clipboard.Read()
	if err != nil {
		return d.fail("read back: %v", err)
	}
	if previous != "" {
		clipboard.Copy(previous)
	}
	if got != probe {
		return d.fail("read back %q, want %q", got, probe)
	}
	return d.pass("copy and read back")
}
