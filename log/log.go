package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
)

const envDir = "SCRIBE_LOG_PATH"

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: SCRIBE_LOG_PATH environment variable
	if envPath := os.Getenv(envDir); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return defaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	transcribePath := filepath.Join(dir, "transcribe_log.txt")
	transcribeFile, err = os.OpenFile(transcribePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func TranscriptionText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if transcribeFile == nil {
		return
	}
	flat := strings.Join(strings.Fields(text), " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, flat)
	transcribeFile.WriteString(line)
}

func SessionStart(engine, mode string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("engine", engine).
		Str("mode", mode).
		Msg("session_start")
}

func SessionEnd(count int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Int("count", count).
		Msg("session_end")
}

func RecordingState(from, to string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("from", from).
		Str("to", to).
		Msg("recording_state")
}

type Recording struct {
	Path      string
	Device    string
	DurationS float64
	RecordedS float64
	PausedS   float64
	Peak      float64
	Std       float64
	Overruns  int64
}

func RecordingFinalized(r Recording) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("path", r.Path).
		Str("device", r.Device).
		Float64("audio_s", r.DurationS).
		Float64("recorded_s", r.RecordedS).
		Float64("paused_s", r.PausedS).
		Float64("peak", r.Peak).
		Float64("std", r.Std).
		Int64("overruns", r.Overruns).
		Msg("recording_finalized")
}

type Transcription struct {
	Engine    string
	Language  string
	VADFilter bool
	Retried   bool
	Chars     int
	Words     int
	Segments  int
	EngineS   float64
	AudioS    float64 // negative when unknown
}

func TranscriptionDone(m Transcription) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("engine", m.Engine).
		Str("lang", m.Language).
		Bool("vad", m.VADFilter).
		Bool("retried", m.Retried).
		Int("chars", m.Chars).
		Int("words", m.Words).
		Int("segments", m.Segments).
		Float64("engine_s", m.EngineS)
	if m.AudioS >= 0 {
		ev = ev.Float64("audio_s", m.AudioS)
	}
	ev.Msg("transcription")
}

// Upload carries network timings of a remote engine request.
type Upload struct {
	Provider     string
	RawSizeKB    float64
	SentSizeKB   float64
	SpeechRatio  float64
	EncodeTimeMs float64
	DNSTimeMs    float64
	TLSTimeMs    float64
	TTFBMs       float64
	TotalTimeMs  float64
	ConnReused   bool
	TLSProto     string
}

func UploadMetrics(m Upload) {
	if !logReady {
		return
	}
	connStatus := "new"
	if m.ConnReused {
		connStatus = "reused"
	}
	ev := diagLog.Info().
		Str("provider", m.Provider).
		Str("conn", connStatus)
	if m.TLSProto != "" {
		ev = ev.Str("tls_proto", m.TLSProto)
	}
	ev.Float64("raw_kb", m.RawSizeKB).
		Float64("sent_kb", m.SentSizeKB).
		Float64("speech_ratio", m.SpeechRatio).
		Float64("encode_ms", m.EncodeTimeMs).
		Float64("dns_ms", m.DNSTimeMs).
		Float64("tls_ms", m.TLSTimeMs).
		Float64("ttfb_ms", m.TTFBMs).
		Float64("total_ms", m.TotalTimeMs).
		Msg("upload")
}

func RefineStage(stage string, charsIn, charsOut int, guarded bool) {
	if !logReady {
		return
	}
	ev := diagLog.Info()
	if guarded {
		ev = diagLog.Warn()
	}
	ev.Str("stage", stage).
		Int("chars_in", charsIn).
		Int("chars_out", charsOut).
		Bool("guarded", guarded).
		Msg("refine_stage")
}

func Quality(status string, wpm *float64, words int, reasons []string) {
	if !logReady {
		return
	}
	ev := diagLog.Info().
		Str("status", status).
		Int("words", words).
		Strs("reasons", reasons)
	if wpm != nil {
		ev = ev.Float64("wpm", *wpm)
	}
	ev.Msg("quality")
}

func Summary(meetingType, provider string, chars int, elapsed time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("meeting_type", meetingType).
		Str("provider", provider).
		Int("chars", chars).
		Float64("elapsed_s", elapsed.Seconds()).
		Msg("summary")
}
