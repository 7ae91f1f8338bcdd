package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"scribe/beep"
	"scribe/clipboard"
	"scribe/config"
	"scribe/doctor"
	"scribe/errs"
	"scribe/log"
	"scribe/shutdown"
	"scribe/summary"
	"scribe/transcriber"
	"scribe/transcript"
	"scribe/vocab"
)

var version = "dev"

const usage = `usage: scribe [flags] <command> [args]

commands:
  record [name]                       record from the microphone, then transcribe
  transcribe <audio>                  transcribe an existing audio file
  summarize -type <meeting> <file>    write a Markdown summary of a transcript
  vocab list|add <src> <dst>|remove <src>
  devices                             list input devices
  doctor                              run environment diagnostics

flags:
`

// app carries what every command needs once flags and configuration are read.
type app struct {
	cfg   config.Config
	vocab *vocab.Table
	copy  bool
	beeps bool

	ctx    context.Context
	cancel context.CancelFunc

	closersMu sync.Mutex
	closers   []func()
	processed int
}

func (a *app) onClose(fn func()) {
	a.closersMu.Lock()
	a.closers = append(a.closers, fn)
	a.closersMu.Unlock()
}

var closeOnce sync.Once

func (a *app) close() {
	closeOnce.Do(func() {
		a.cancel()
		a.closersMu.Lock()
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		a.closersMu.Unlock()
		if a.processed > 0 {
			log.SessionEnd(a.processed)
		}
		log.Close()
	})
}

func main() {
	os.Exit(run())
}

func run() int {
	configFlag := flag.String("config", config.DefaultPath, "Path to config.toml")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	engineFlag := flag.String("engine", "", "Transcription engine: whisper, groq or openai (overrides config)")
	langFlag := flag.String("lang", "", "Language code for transcription (overrides config)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	copyFlag := flag.Bool("copy", false, "Copy the refined transcript to the clipboard")
	quietFlag := flag.Bool("quiet", false, "Disable audible cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	testFlag := flag.String("test", "", "Test mode: drive a recording of this WAV file from stdin commands")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *versionFlag {
		fmt.Printf("scribe %s\n", version)
		return 0
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		return 1
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: .env: %v\n", err)
	}
	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if *engineFlag != "" {
		cfg.Transcription.Engine = *engineFlag
	}
	if *langFlag != "" {
		cfg.Transcription.Language = *langFlag
	}
	if *deviceFlag != "" {
		cfg.Audio.Device = *deviceFlag
	}

	table, err := vocab.Load(cfg.Paths.VocabPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, cancel := shutdown.Context(context.Background())
	a := &app{
		cfg:    cfg,
		vocab:  table,
		copy:   *copyFlag,
		beeps:  !*quietFlag && *testFlag == "",
		ctx:    ctx,
		cancel: cancel,
	}
	defer a.close()

	if !a.beeps {
		beep.Disable()
	} else {
		go beep.Init()
	}

	if *testFlag != "" {
		return a.runTestMode(*testFlag)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	switch args[0] {
	case "record":
		return a.cmdRecord(args[1:], *setupFlag)
	case "transcribe":
		return a.cmdTranscribe(args[1:])
	case "summarize":
		return a.cmdSummarize(args[1:])
	case "vocab":
		return a.cmdVocab(args[1:])
	case "devices":
		return a.cmdDevices(*setupFlag)
	case "doctor":
		return doctor.Run(a.ctx, a.cfg, doctor.Options{Clipboard: a.copy})
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
	flag.Usage()
	return 2
}

func (a *app) newEngine() (transcriber.Engine, error) {
	t := a.cfg.Transcription
	engine, err := transcriber.New(transcriber.EngineConfig{
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
	if err != nil {
		return nil, err
	}
	if w, ok := engine.(*transcriber.Whisper); ok {
		a.onClose(func() { w.Close() })
	}
	return engine, nil
}

// process runs one audio file through the transcript processor and reports
// the outcome on stdout.
func (a *app) process(proc *transcript.Processor, audioPath, mode string) error {
	log.SessionStart(proc.Adapter.Engine().Name(), mode)
	out, err := proc.Process(a.ctx, audioPath, mode)
	if err != nil {
		return err
	}
	a.processed++

	fmt.Println(out.Text)
	fmt.Println()
	fmt.Printf("transcript: %s\n", out.TextPath)
	wpm := "-"
	if out.Report.WPM != nil {
		wpm = fmt.Sprintf("%.0f", *out.Report.WPM)
	}
	fmt.Printf("quality: %s (%d words, %s wpm)", out.Report.Status, out.Report.Words, wpm)
	if len(out.Report.Reasons) > 0 {
		fmt.Printf(" [%s]", strings.Join(out.Report.Reasons, ", "))
	}
	fmt.Println()
	if out.Result.RetriedWithoutVAD {
		fmt.Println("note: transcript looked truncated, retried without VAD")
	}

	if a.copy && out.Text != "" {
		if err := clipboard.Copy(out.Text); err != nil {
			log.Warnf("clipboard copy: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: clipboard: %v\n", err)
		} else {
			fmt.Println("copied to clipboard")
		}
	}
	return nil
}

// reportError prints err with a hint derived from its kind and returns the
// exit code for it.
func reportError(err error) int {
	log.Errorf("%v", err)
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "cancelled")
		return 130
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	switch errs.KindOf(err) {
	case errs.KindSignalQuality:
		fmt.Fprintln(os.Stderr, "hint: check that the microphone is not muted and record for longer")
	case errs.KindTranscriptionBackend:
		if errors.Is(err, errs.ErrAuth) {
			fmt.Fprintln(os.Stderr, "hint: check the API key for the selected engine")
		}
	case errs.KindInput:
		if errors.Is(err, errs.ErrUnknownMeetingType) {
			fmt.Fprintf(os.Stderr, "hint: known meeting types: %s\n", strings.Join(summary.Names(), ", "))
		}
	}
	return 1
}
