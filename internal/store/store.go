// Package store owns the assistant's persistent state: remembered facts,
// the last-capture pointer, and the append-only event history. All mutations
// serialize through a single Store and flush the whole document to disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// MaxEvents is the history retention cap; the oldest events are evicted
// once the log grows past it.
const MaxEvents = 500

// Event kinds.
const (
	EventChat       = "chat"
	EventRemember   = "remember"
	EventCapture    = "capture"
	EventCaptureSet = "capture_set"
)

// Fact is a remembered key/value pair.
type Fact struct {
	Value string `json:"value"`
	Time  string `json:"time"`
}

// Capture points at the most recently captured image artifact. The image
// bytes live in the filesystem; the path may be stale by the time it is read.
type Capture struct {
	Path string `json:"path"`
	Time string `json:"time"`
}

// Event is one history entry.
type Event struct {
	Time   string `json:"time"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

type memoryDoc struct {
	Facts       map[string]Fact `json:"facts"`
	LastCapture *Capture        `json:"last_capture"`
}

type historyDoc struct {
	Events []Event `json:"events"`
}

// Store guards the in-memory state and mirrors every mutation to two JSON
// files under the data directory.
type Store struct {
	mu          sync.Mutex
	memoryPath  string
	historyPath string
	memory      memoryDoc
	history     historyDoc
	now         func() time.Time
}

// Open loads (or creates) the state files under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	s := &Store{
		memoryPath:  filepath.Join(dir, "memory.json"),
		historyPath: filepath.Join(dir, "history.json"),
		memory:      memoryDoc{Facts: make(map[string]Fact)},
		now:         time.Now,
	}

	if err := loadOrInit(s.memoryPath, &s.memory); err != nil {
		return nil, err
	}
	if s.memory.Facts == nil {
		s.memory.Facts = make(map[string]Fact)
	}
	if err := loadOrInit(s.historyPath, &s.history); err != nil {
		return nil, err
	}

	return s, nil
}

// Remember stores value under the normalized key, overwriting any previous
// value, and records a remember event.
func (s *Store) Remember(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	value = strings.TrimSpace(value)
	s.memory.Facts[normalizeKey(key)] = Fact{
		Value: value,
		Time:  s.timestamp(),
	}
	if err := s.flushMemory(); err != nil {
		return err
	}
	return s.appendEvent(EventRemember, fmt.Sprintf("%s = %s", key, value))
}

// Recall looks up a fact by its normalized key.
func (s *Store) Recall(key string) (Fact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.memory.Facts[normalizeKey(key)]
	return f, ok
}

// SetLastCapture overwrites the last-capture pointer and records a
// capture_set event. The path must exist at call time; the store does not
// re-check it later.
func (s *Store) SetLastCapture(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.LastCapture = &Capture{Path: path, Time: s.timestamp()}
	if err := s.flushMemory(); err != nil {
		return err
	}
	return s.appendEvent(EventCaptureSet, path)
}

// LastCapture returns the most recent capture pointer, if any.
func (s *Store) LastCapture() (Capture, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memory.LastCapture == nil {
		return Capture{}, false
	}
	return *s.memory.LastCapture, true
}

// AddEvent appends one history event, evicting the oldest past MaxEvents.
func (s *Store) AddEvent(kind, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendEvent(kind, detail)
}

// Recent returns the last n events, oldest first.
func (s *Store) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := s.history.Events
	if n < len(ev) {
		ev = ev[len(ev)-n:]
	}
	out := make([]Event, len(ev))
	copy(out, ev)
	return out
}

func (s *Store) appendEvent(kind, detail string) error {
	s.history.Events = append(s.history.Events, Event{
		Time:   s.timestamp(),
		Type:   kind,
		Detail: detail,
	})
	if len(s.history.Events) > MaxEvents {
		s.history.Events = s.history.Events[len(s.history.Events)-MaxEvents:]
	}
	return writeDoc(s.historyPath, &s.history)
}

func (s *Store) flushMemory() error {
	return writeDoc(s.memoryPath, &s.memory)
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func loadOrInit(path string, doc any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return writeDoc(path, doc)
	}
	if err != nil {
		return fmt.Errorf("store: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("store: parse %s: %w", path, err)
	}
	return nil
}

func writeDoc(path string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", path, err)
	}
	return nil
}
