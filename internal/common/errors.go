// Package common defines shared constants and the error taxonomy used by the
// registry, index, blob store, engine and reconciler. Callers should use
// errors.Is to match kinds and errors.As to reach typed details.
package common

import (
	"errors"
	"fmt"
)

// Error kinds, matched with errors.Is. A store error caused by a missing blob
// matches both ErrStore and ErrNotFound.
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate")
	ErrParse       = errors.New("parse error")
	ErrStore       = errors.New("blob store error")
	ErrConsistency = errors.New("consistency error")
)

var (
	// not-found conditions
	ErrGameNotRegistered = fmt.Errorf("game not registered: %w", ErrNotFound)
	ErrSpecNotFound      = fmt.Errorf("save spec: %w", ErrNotFound)
	ErrEntryNotFound     = fmt.Errorf("savegame entry: %w", ErrNotFound)
	ErrIndexOutOfRange   = fmt.Errorf("save index out of range: %w", ErrNotFound)
	ErrBlobNotFound      = fmt.Errorf("blob: %w", ErrNotFound)

	// duplicates that signal invariant violations
	ErrDuplicateGame    = fmt.Errorf("game already registered: %w", ErrDuplicate)
	ErrDuplicateEntryID = fmt.Errorf("savegame id appears more than once: %w", ErrDuplicate)

	// drift that blocks automated repair
	ErrAmbiguousBlob     = fmt.Errorf("more than one blob with the same name: %w", ErrConsistency)
	ErrDuplicateBlobName = fmt.Errorf("savegame backed by duplicate blobs: %w", ErrConsistency)
	ErrAmbiguousIndex    = fmt.Errorf("more than one index blob: %w", ErrConsistency)
	ErrBlobReferenced    = fmt.Errorf("blob is referenced by the index: %w", ErrConsistency)
)

// StoreError wraps a failed blob store call. The operation that was running
// is aborted at that step; nothing is retried or rolled back.
type StoreError struct {
	Op     string
	Target string
	Err    error
}

func (e *StoreError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("blob store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("blob store %s %s: %v", e.Op, e.Target, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NewStoreError wraps err unless it is nil or already a StoreError.
func NewStoreError(op, target string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Target: target, Err: err}
}

// ParseError reports a malformed line in the registry file or the index blob.
type ParseError struct {
	Source string
	Line   int
	Msg    string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.Source, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Msg)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ConsistencyError reports a name that resolved to an unexpected number of
// blobs. It wraps one of the consistency sentinels so callers can tell the
// situations apart.
type ConsistencyError struct {
	Name  string
	Count int
	Err   error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %d blobs named %q", e.Err.Error(), e.Count, e.Name)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }
