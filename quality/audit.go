package quality

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"scribe/log"
)

var csvHeader = []string{
	"timestamp", "audio", "transcript", "duration_s",
	"word_count", "wpm", "status", "reasons", "mode", "id",
}

// AuditLog appends reports to <base>.jsonl and <base>.csv. Files are opened
// per write in append mode and never truncated.
type AuditLog struct {
	base string
	mu   sync.Mutex
}

func NewAuditLog(base string) *AuditLog {
	return &AuditLog{base: base}
}

func (a *AuditLog) JSONPath() string { return a.base + ".jsonl" }
func (a *AuditLog) CSVPath() string  { return a.base + ".csv" }

func (a *AuditLog) Append(r Report) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("quality log dir: %w", err)
		}
	}
	if err := a.appendJSON(r); err != nil {
		return err
	}
	if err := a.appendCSV(r); err != nil {
		return err
	}
	log.Quality(string(r.Status), r.WPM, r.Words, r.Reasons)
	return nil
}

func (a *AuditLog) appendJSON(r Report) error {
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(a.JSONPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("quality log: %w", err)
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

func (a *AuditLog) appendCSV(r Report) error {
	f, err := os.OpenFile(a.CSVPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("quality log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		w.Write(csvHeader)
	}
	w.Write([]string{
		r.Timestamp.Format(time.RFC3339),
		r.Audio,
		r.Transcript,
		formatOptional(r.Duration),
		strconv.Itoa(r.Words),
		formatOptional(r.WPM),
		string(r.Status),
		strings.Join(r.Reasons, "|"),
		r.Mode,
		r.ID,
	})
	w.Flush()
	return w.Error()
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
