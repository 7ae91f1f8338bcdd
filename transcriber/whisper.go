package transcriber

import (
	"bufio"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"scribe/errs"
	"scribe/log"
)

//go:embed assets/faster_whisper_worker.py
var whisperWorker []byte

type WhisperConfig struct {
	Python      string
	Model       string
	Device      string
	ComputeType string
	BeamSize    int
}

// Whisper runs faster-whisper in one long-lived helper process. The model is
// loaded on the first request and reused until Close.
type Whisper struct {
	cfg WhisperConfig

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	script string
	dead   error
}

func NewWhisper(cfg WhisperConfig) *Whisper {
	if cfg.Python == "" {
		cfg.Python = "python3"
	}
	if cfg.Model == "" {
		cfg.Model = "small"
	}
	if cfg.Device == "" {
		cfg.Device = "cpu"
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = "int8"
	}
	if cfg.BeamSize <= 0 {
		cfg.BeamSize = 5
	}
	return &Whisper{cfg: cfg}
}

func (w *Whisper) Name() string { return "whisper" }

// Warm loads the model without transcribing anything.
func (w *Whisper) Warm(context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.load()
}

type whisperRequest struct {
	Path      string `json:"path"`
	VADFilter bool   `json:"vad_filter"`
	Language  string `json:"language,omitempty"`
	BeamSize  int    `json:"beam_size"`
}

type whisperReply struct {
	Ready    *bool     `json:"ready,omitempty"`
	Error    string    `json:"error,omitempty"`
	Text     string    `json:"text"`
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// load starts the helper and waits for the model. Caller holds w.mu.
func (w *Whisper) load() error {
	if w.cmd != nil {
		return nil
	}
	if w.dead != nil {
		return w.dead
	}

	script := filepath.Join(os.TempDir(), fmt.Sprintf("scribe_whisper_%d.py", os.Getpid()))
	if err := os.WriteFile(script, whisperWorker, 0o644); err != nil {
		return fmt.Errorf("write helper script: %w", err)
	}

	cmd := exec.Command(w.cfg.Python, "-u", script,
		"--model", w.cfg.Model,
		"--device", w.cfg.Device,
		"--compute-type", w.cfg.ComputeType)
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}

	log.Infof("loading faster-whisper: model=%s device=%s compute=%s", w.cfg.Model, w.cfg.Device, w.cfg.ComputeType)
	if err := cmd.Start(); err != nil {
		os.Remove(script)
		w.dead = fmt.Errorf("%w: starting %s: %v", errs.ErrModelLoad, w.cfg.Python, err)
		return w.dead
	}

	r := bufio.NewReaderSize(stdout, 1<<20)
	var hello whisperReply
	if err := readReply(r, &hello); err != nil || hello.Ready == nil || !*hello.Ready {
		msg := hello.Error
		if err != nil {
			msg = err.Error()
		}
		stdin.Close()
		cmd.Wait()
		os.Remove(script)
		w.dead = fmt.Errorf("%w: %s", errs.ErrModelLoad, msg)
		return w.dead
	}

	w.cmd, w.stdin, w.stdout, w.script = cmd, stdin, r, script
	return nil
}

func readReply(r *bufio.Reader, v *whisperReply) error {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("reading worker reply: %w", err)
	}
	if err := json.Unmarshal(line, v); err != nil {
		return fmt.Errorf("parsing worker reply: %w", err)
	}
	return nil
}

func (w *Whisper) Transcribe(ctx context.Context, path string, opts Options) (*Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.load(); err != nil {
		return nil, err
	}

	req, _ := json.Marshal(whisperRequest{
		Path:      path,
		VADFilter: opts.VADFilter,
		Language:  opts.Language,
		BeamSize:  w.cfg.BeamSize,
	})
	if _, err := w.stdin.Write(append(req, '\n')); err != nil {
		w.reset()
		return nil, fmt.Errorf("sending request to worker: %w", err)
	}

	type outcome struct {
		reply whisperReply
		err   error
	}
	ch := make(chan outcome, 1)
	r := w.stdout
	go func() {
		var rep whisperReply
		err := readReply(r, &rep)
		ch <- outcome{rep, err}
	}()

	select {
	case <-ctx.Done():
		// the reply is still in flight; the process cannot be reused
		w.reset()
		return nil, ctx.Err()
	case out := <-ch:
		if out.err != nil {
			w.reset()
			return nil, out.err
		}
		if out.reply.Error != "" {
			return nil, fmt.Errorf("faster-whisper: %s", out.reply.Error)
		}
		return &Result{
			Text:     strings.TrimSpace(out.reply.Text),
			Language: out.reply.Language,
			Segments: out.reply.Segments,
		}, nil
	}
}

// reset kills the helper. Caller holds w.mu.
func (w *Whisper) reset() {
	if w.cmd == nil {
		return
	}
	w.stdin.Close()
	w.cmd.Process.Kill()
	w.cmd.Wait()
	os.Remove(w.script)
	w.cmd, w.stdin, w.stdout = nil, nil, nil
}

// Close stops the helper process.
func (w *Whisper) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cmd == nil {
		return nil
	}
	w.stdin.Close()
	err := w.cmd.Wait()
	os.Remove(w.script)
	w.cmd, w.stdin, w.stdout = nil, nil, nil
	return err
}
