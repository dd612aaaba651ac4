package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/vli777/feedback-analyzer/internal/errs"
)

// CursorStore persists the highest processed seq per jobId. Every Update
// rewrites the whole file; this is the source's chosen trade-off and is
// acceptable at expected event rates.
type CursorStore struct {
	mu   sync.Mutex
	path string
}

// NewCursorStore returns a store backed by path.
func NewCursorStore(path string) *CursorStore {
	return &CursorStore{path: path}
}

func (s *CursorStore) readLocked() (map[string]int64, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating cursor store directory: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]int64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cursor store: %w", err)
	}
	if len(data) == 0 {
		return map[string]int64{}, nil
	}

	var cursors map[string]int64
	if err := json.Unmarshal(data, &cursors); err != nil {
		// A corrupt cursor file resets to empty rather than failing startup;
		// downstream dedup re-admits already-seen events safely.
		log.Printf("[CursorStore] corrupt cursor file %s, starting from empty cursor table: %v", s.path, err)
		return map[string]int64{}, nil
	}
	return cursors, nil
}

func (s *CursorStore) writeLocked(cursors map[string]int64) error {
	data, err := json.MarshalIndent(cursors, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding cursor store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing cursor store: %w", err)
	}
	return nil
}

// Get returns the last-processed seq for jobId, or 0 if unseen.
func (s *CursorStore) Get(jobID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursors, err := s.readLocked()
	if err != nil {
		return 0, &errs.StorageError{Op: "Get", Err: err}
	}
	return cursors[jobID], nil
}

// Update unconditionally sets the cursor for jobId. The caller is
// responsible for having already verified monotonicity.
func (s *CursorStore) Update(jobID string, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursors, err := s.readLocked()
	if err != nil {
		return &errs.StorageError{Op: "Update", Err: err}
	}
	cursors[jobID] = seq
	if err := s.writeLocked(cursors); err != nil {
		return &errs.StorageError{Op: "Update", Err: err}
	}
	return nil
}

// AllCursors returns a snapshot of the full job -> seq mapping.
func (s *CursorStore) AllCursors() (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cursors, err := s.readLocked()
	if err != nil {
		return nil, &errs.StorageError{Op: "AllCursors", Err: err}
	}
	out := make(map[string]int64, len(cursors))
	for k, v := range cursors {
		out[k] = v
	}
	return out, nil
}
