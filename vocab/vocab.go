// Package vocab keeps the user's correction table: terms the recognizer gets
// wrong and what they should read as.
package vocab

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"scribe/internal/words"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

var header = []string{"source", "target"}

type Entry struct {
	Source string
	Target string
}

// Table is an ordered list of whole-word substitutions. Matching is case
// sensitive and entries apply in table order.
type Table struct {
	path string

	mu       sync.RWMutex
	entries  []Entry
	patterns []*words.Pattern
}

func New(entries ...Entry) *Table {
	t := &Table{}
	for _, e := range entries {
		t.add(e)
	}
	return t
}

// Load reads the table at path. A missing file is an empty table.
func Load(path string) (*Table, error) {
	t := &Table{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	if err := t.parse(data); err != nil {
		return nil, fmt.Errorf("vocabulary %s: %w", path, err)
	}
	return t, nil
}

func (t *Table) parse(data []byte) error {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) < 2 {
			continue
		}
		src, dst := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if src == "" || dst == "" || strings.EqualFold(src, header[0]) {
			continue
		}
		t.add(Entry{src, dst})
	}
}

// add replaces an existing entry for the same source in place.
func (t *Table) add(e Entry) {
	p := words.Literal(e.Source, false)
	for i := range t.entries {
		if t.entries[i].Source == e.Source {
			t.entries[i] = e
			t.patterns[i] = p
			return
		}
	}
	t.entries = append(t.entries, e)
	t.patterns = append(t.patterns, p)
}

func (t *Table) Add(source, target string) error {
	source, target = strings.TrimSpace(source), strings.TrimSpace(target)
	if source == "" || target == "" {
		return fmt.Errorf("vocabulary entry needs both source and target")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.add(Entry{source, target})
	return nil
}

// Remove reports whether source was present.
func (t *Table) Remove(source string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].Source == source {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			t.patterns = append(t.patterns[:i], t.patterns[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Table) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries...)
}

func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Apply substitutes every entry in order.
func (t *Table) Apply(text string) string {
	if t == nil || text == "" {
		return text
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, p := range t.patterns {
		text = p.ReplaceAll(text, t.entries[i].Target)
	}
	return text
}

// Save writes the table back to the path it was loaded from.
func (t *Table) Save() error {
	if t.path == "" {
		return fmt.Errorf("vocabulary has no file")
	}
	return t.SaveAs(t.path)
}

// SaveAs writes UTF-8 CSV with a byte-order mark and a source,target header.
func (t *Table) SaveAs(path string) error {
	t.mu.RLock()
	var buf bytes.Buffer
	buf.Write(bom)
	w := csv.NewWriter(&buf)
	w.Write(header)
	for _, e := range t.entries {
		w.Write([]string{e.Source, e.Target})
	}
	t.mu.RUnlock()
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
