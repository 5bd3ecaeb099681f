// Package audit provides an append-only audit log for element mutations.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Operations recorded in the log.
const (
	OpSave      = "save"
	OpMove      = "move"
	OpStatus    = "status"
	OpPropagate = "propagate"
	OpRename    = "rename"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time      `json:"ts"`
	Operation string         `json:"op"`
	Kind      string         `json:"kind,omitempty"`
	ElementID int64          `json:"id,omitempty"`
	Locale    string         `json:"locale,omitempty"`
	UserID    int64          `json:"user,omitempty"`
	Changes   map[string]any `json:"changes,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Logger handles writing to the audit log.
type Logger struct {
	path    string
	enabled bool
	now     func() time.Time
	mu      sync.Mutex
}

// New creates an audit logger writing to path.
// If enabled is false or path is empty, the logger is a no-op.
func New(path string, enabled bool) *Logger {
	if !enabled || path == "" {
		return &Logger{enabled: false}
	}
	return &Logger{
		path:    path,
		enabled: true,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Disabled returns a no-op logger.
func Disabled() *Logger {
	return &Logger{}
}

// Log writes an entry to the audit log.
func (l *Logger) Log(entry Entry) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write audit entry: %w", err)
	}

	return nil
}

// LogSave logs an element save.
func (l *Logger) LogSave(kind string, id int64, locale string, user int64, isNew bool) error {
	return l.Log(Entry{
		Operation: OpSave,
		Kind:      kind,
		ElementID: id,
		Locale:    locale,
		UserID:    user,
		Extra:     map[string]any{"new": isNew},
	})
}

// LogMove logs a structure move.
func (l *Logger) LogMove(kind string, id, structureID int64, position string, target int64, user int64) error {
	return l.Log(Entry{
		Operation: OpMove,
		Kind:      kind,
		ElementID: id,
		UserID:    user,
		Extra: map[string]any{
			"structure": structureID,
			"position":  position,
			"target":    target,
		},
	})
}

// LogStatus logs a status change.
func (l *Logger) LogStatus(kind string, id int64, from, to string, user int64) error {
	return l.Log(Entry{
		Operation: OpStatus,
		Kind:      kind,
		ElementID: id,
		UserID:    user,
		Changes:   map[string]any{"status": map[string]any{"old": from, "new": to}},
	})
}

// LogPropagate logs relations copied to ancestors.
func (l *Logger) LogPropagate(kind string, id int64, ancestors []int64, inserted int) error {
	return l.Log(Entry{
		Operation: OpPropagate,
		Kind:      kind,
		ElementID: id,
		Extra: map[string]any{
			"ancestors": ancestors,
			"inserted":  inserted,
		},
	})
}

// LogRename logs an asset file rename.
func (l *Logger) LogRename(id int64, from, to string, user int64) error {
	return l.Log(Entry{
		Operation: OpRename,
		Kind:      "Asset",
		ElementID: id,
		UserID:    user,
		Changes:   map[string]any{"filename": map[string]any{"old": from, "new": to}},
	})
}

// Read reads all entries from the audit log.
func (l *Logger) Read() ([]Entry, error) {
	if l == nil || !l.enabled {
		return nil, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue // Skip malformed entries
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	return entries, nil
}

// ReadForElement reads entries for a specific element ID.
func (l *Logger) ReadForElement(id int64) ([]Entry, error) {
	all, err := l.Read()
	if err != nil {
		return nil, err
	}

	var filtered []Entry
	for _, entry := range all {
		if entry.ElementID == id {
			filtered = append(filtered, entry)
		}
	}

	return filtered, nil
}

// Enabled returns true if the audit logger is enabled.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}
