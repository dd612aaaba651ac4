// Package store implements the flat-file persistence layer: an
// append-only record log (C1) and a per-job cursor table (C2). Both use a
// single process-wide mutex and whole-file read-modify-write, matching the
// Python original's storage.py threading.Lock discipline.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vli777/feedback-analyzer/internal/errs"
	"github.com/vli777/feedback-analyzer/internal/models"
)

// RecordStore is an append-only log of FeedbackRecords backed by a single
// JSON file. All operations are serialized by mu; reads and writes are
// whole-file.
type RecordStore struct {
	mu   sync.Mutex
	path string
}

// NewRecordStore returns a store backed by path. The file and its parent
// directory are created lazily on first access, not at construction.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{path: path}
}

func (s *RecordStore) ensureLocked() ([]models.FeedbackRecord, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("creating record store directory: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		empty := []models.FeedbackRecord{}
		if err := s.writeLocked(empty); err != nil {
			return nil, err
		}
		return empty, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading record store: %w", err)
	}
	if len(data) == 0 {
		return []models.FeedbackRecord{}, nil
	}

	var records []models.FeedbackRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing record store: %w", err)
	}
	return records, nil
}

func (s *RecordStore) writeLocked(records []models.FeedbackRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record store: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("writing record store: %w", err)
	}
	return nil
}

// Append normalizes createdAt to UTC and appends one record via a single
// read-modify-write.
func (s *RecordStore) Append(record models.FeedbackRecord) error {
	return s.AppendMany([]models.FeedbackRecord{record})
}

// AppendMany appends a batch of records in a single read-modify-write.
func (s *RecordStore) AppendMany(records []models.FeedbackRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ensureLocked()
	if err != nil {
		return &errs.StorageError{Op: "AppendMany", Err: err}
	}

	for i := range records {
		records[i].CreatedAt = records[i].CreatedAt.UTC()
	}
	existing = append(existing, records...)

	if err := s.writeLocked(existing); err != nil {
		return &errs.StorageError{Op: "AppendMany", Err: err}
	}
	return nil
}

// ReadAll returns every record in write order.
func (s *RecordStore) ReadAll() ([]models.FeedbackRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.ensureLocked()
	if err != nil {
		return nil, &errs.StorageError{Op: "ReadAll", Err: err}
	}
	return records, nil
}
