package store

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrIndexDegraded marks a failed text-index query. It never reaches
	// callers of the search API; the fallback scan answers instead.
	ErrIndexDegraded = errors.New("text index unavailable")
)

// StorageError is a failed transactional operation. Invariant names the
// violated constraint when one can be identified.
type StorageError struct {
	Op        string
	Invariant string
	Err       error
}

func (e *StorageError) Error() string {
	if e.Invariant != "" {
		return fmt.Sprintf("%s: %s violated: %v", e.Op, e.Invariant, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// wrapStorage converts a low-level database error into a StorageError,
// naming the violated invariant for constraint failures.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Invariant: invariantFor(err), Err: err}
}

func invariantFor(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: projects.name"):
		return "project name unique"
	case strings.Contains(msg, "UNIQUE constraint failed: keywords.project_id, keywords.text"):
		return "(project_id, text) unique"
	case strings.Contains(msg, "UNIQUE constraint failed: slides.file_id, slides.idx"):
		return "(file_id, index) unique"
	case strings.Contains(msg, "UNIQUE constraint failed: assemblies.project_id, assemblies.name"):
		return "(project_id, name) unique"
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return "uniqueness"
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return "foreign key"
	}
	return ""
}
