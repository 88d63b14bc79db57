package dag

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ReflogEntry records one move of a ref.
type ReflogEntry struct {
	Time   time.Time `json:"ts"`
	Ref    string    `json:"ref"`
	Old    Hash      `json:"old,omitempty"`
	New    Hash      `json:"new"`
	Action string    `json:"action"`
}

// Reflog is an append-only JSONL journal of ref updates.
type Reflog struct {
	path string
}

// NewReflog opens the journal at path, creating its directory.
func NewReflog(path string) (*Reflog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create reflog dir: %w", err)
	}
	return &Reflog{path: path}, nil
}

// Append writes an entry to the journal.
func (l *Reflog) Append(e ReflogEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode reflog entry: %w", err)
	}
	if err := SafeAppend(l.path, append(data, '\n')); err != nil {
		return fmt.Errorf("write reflog entry: %w", err)
	}
	return nil
}

// Entries returns the journal entries for ref, newest first.
// An empty ref returns every entry.
func (l *Reflog) Entries(ref string) ([]ReflogEntry, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil // no journal yet
	}
	if err != nil {
		return nil, fmt.Errorf("open reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e ReflogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue // skip torn lines
		}
		if ref == "" || e.Ref == ref {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan reflog: %w", err)
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
