package quality

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var defaults = Thresholds{MinWords: 30, MinWPM: 90, MaxWPM: 220}

func ptr(v float64) *float64 { return &v }

func text(n int) string { return strings.TrimSpace(strings.Repeat("palavra ", n)) }

func TestAssess(t *testing.T) {
	for _, tt := range []struct {
		name     string
		words    int
		duration *float64
		status   Status
		reasons  []string
		wpm      *float64
	}{
		{"normal pace", 150, ptr(60), StatusOK, nil, ptr(150)},
		{"too few words", 20, ptr(60), StatusWarn, []string{ReasonBelowMinWords, ReasonBelowMinWPM}, ptr(20)},
		{"too fast", 300, ptr(60), StatusWarn, []string{ReasonAboveMaxWPM}, ptr(300)},
		{"slow", 60, ptr(60), StatusWarn, []string{ReasonBelowMinWPM}, ptr(60)},
		{"unknown duration", 150, nil, StatusOK, nil, nil},
		{"zero duration", 150, ptr(0), StatusOK, nil, nil},
		{"unknown duration still counts words", 10, nil, StatusWarn, []string{ReasonBelowMinWords}, nil},
	} {
		t.Run(tt.name, func(t *testing.T) {
			r := Assess(Input{Text: text(tt.words), Duration: tt.duration}, defaults)
			if r.Words != tt.words {
				t.Errorf("Words = %d", r.Words)
			}
			if r.Status != tt.status {
				t.Errorf("Status = %s, want %s", r.Status, tt.status)
			}
			if strings.Join(r.Reasons, "|") != strings.Join(tt.reasons, "|") {
				t.Errorf("Reasons = %v, want %v", r.Reasons, tt.reasons)
			}
			switch {
			case tt.wpm == nil && r.WPM != nil:
				t.Errorf("WPM = %v, want undefined", *r.WPM)
			case tt.wpm != nil && (r.WPM == nil || *r.WPM != *tt.wpm):
				t.Errorf("WPM = %v, want %v", r.WPM, *tt.wpm)
			}
			if r.ID == "" || r.Timestamp.IsZero() {
				t.Error("missing id or timestamp")
			}
		})
	}
}

func TestAssessDisabledThresholds(t *testing.T) {
	r := Assess(Input{Text: "oi", Duration: ptr(1)}, Thresholds{})
	if r.Status != StatusOK {
		t.Errorf("Status = %s, reasons %v", r.Status, r.Reasons)
	}
}

func TestAuditLogAppends(t *testing.T) {
	base := filepath.Join(t.TempDir(), "out", "quality_log")
	a := NewAuditLog(base)

	first := Assess(Input{Text: text(150), Duration: ptr(60), Audio: "a.wav", Transcript: "a.txt", Mode: "mic"}, defaults)
	second := Assess(Input{Text: text(20), Audio: "b.mp3", Transcript: "b.txt", Mode: "file"}, defaults)
	for _, r := range []Report{first, second} {
		if err := a.Append(r); err != nil {
			t.Fatal(err)
		}
	}

	f, err := os.Open(a.JSONPath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []Report
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Report
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("bad json line %q: %v", sc.Text(), err)
		}
		lines = append(lines, r)
	}
	if len(lines) != 2 || lines[0].ID != first.ID || lines[1].WPM != nil {
		t.Errorf("jsonl = %+v", lines)
	}

	cf, err := os.Open(a.CSVPath())
	if err != nil {
		t.Fatal(err)
	}
	defer cf.Close()
	rows, err := csv.NewReader(cf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("csv rows = %d, want header + 2", len(rows))
	}
	wantHeader := "timestamp,audio,transcript,duration_s,word_count,wpm,status,reasons,mode,id"
	if got := strings.Join(rows[0], ","); got != wantHeader {
		t.Errorf("header = %s, want %s", got, wantHeader)
	}
	if rows[1][5] != "150.00" || rows[1][6] != "ok" || rows[1][8] != "mic" || rows[1][9] == "" {
		t.Errorf("row 1 = %v", rows[1])
	}
	if rows[2][3] != "" || rows[2][5] != "" || rows[2][7] != ReasonBelowMinWords {
		t.Errorf("row 2 = %v", rows[2])
	}

	// a new writer on the same files keeps history and does not repeat the header
	if err := NewAuditLog(base).Append(first); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(a.CSVPath())
	if n := strings.Count(string(data), "timestamp,audio"); n != 1 {
		t.Errorf("header written %d times", n)
	}
}
