// Package drafts persists unsent console input to disk so prompts and
// training batches survive restarts and upstream outages.
package drafts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Draft kinds accepted by the store.
const (
	KindQuery = "query"
	KindTrain = "train"
)

// ErrEmptyName rejects drafts without a usable name.
var ErrEmptyName = errors.New("draft name required")

// Draft is one saved piece of console input.
type Draft struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store keeps drafts in memory and mirrors every change to a JSON file.
type Store struct {
	mu     sync.RWMutex
	path   string
	drafts map[string]Draft
}

// NewStore creates a store backed by the given file and loads existing
// drafts if present.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure data directory: %w", err)
	}

	s := &Store{path: path, drafts: make(map[string]Draft)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Put saves a draft under its name, replacing any previous version.
func (s *Store) Put(draft Draft) error {
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Name == "" {
		return ErrEmptyName
	}
	if draft.Kind == "" {
		draft.Kind = KindQuery
	}
	draft.UpdatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.drafts[draft.Name] = draft
	return s.persistLocked()
}

// Get returns the named draft if it exists.
func (s *Store) Get(name string) (Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[strings.TrimSpace(name)]
	return draft, ok
}

// Delete removes the named draft. It reports whether a draft was
// actually removed.
func (s *Store) Delete(name string) (bool, error) {
	name = strings.TrimSpace(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.drafts[name]; !ok {
		return false, nil
	}
	delete(s.drafts, name)
	return true, s.persistLocked()
}

// List returns all drafts, most recently updated first.
func (s *Store) List() []Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Draft, 0, len(s.drafts))
	for _, draft := range s.drafts {
		out = append(out, draft)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Name < out[j].Name
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read drafts: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []Draft
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse drafts: %w", err)
	}
	for _, draft := range entries {
		if draft.Name == "" {
			continue
		}
		s.drafts[draft.Name] = draft
	}
	return nil
}

func (s *Store) persistLocked() error {
	entries := make([]Draft, 0, len(s.drafts))
	for _, draft := range s.drafts {
		entries = append(entries, draft)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})

	bytes, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode drafts: %w", err)
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, time.Now().UnixNano())
	if err := os.WriteFile(tmpPath, bytes, 0o644); err != nil {
		return fmt.Errorf("write temp drafts: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace drafts file: %w", err)
	}
	return nil
}
