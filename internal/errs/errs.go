// Package errs defines the small typed-error family used throughout the
// pipeline so callers can branch on failure kind with errors.As, mirroring
// the teacher's NodeUnavailableError/SporkRootNotFoundError style.
package errs

import "fmt"

// InputError marks a request rejected before any side effect.
type InputError struct {
	Op  string
	Msg string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error in %s: %s", e.Op, e.Msg)
}

// StorageError marks a record or cursor file I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ModelError marks a predictor failure: a raised error or malformed output.
type ModelError struct {
	Op  string
	Err error
}

func (e *ModelError) Error() string {
	return fmt.Sprintf("model error in %s: %v", e.Op, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

// TransportError marks an upstream channel disconnect or connect refusal.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error in %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// QueueFullError marks a dropped event on a saturated inbound queue.
type QueueFullError struct {
	JobID string
	Seq   int64
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("inbound queue full, dropped jobId=%s seq=%d", e.JobID, e.Seq)
}
