package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrNoteNotFound      = errors.New("note not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrNoteTooLarge      = errors.New("note exceeds size limit")
	ErrReadFailed        = errors.New("note unreadable")
	ErrEmptyProgression  = errors.New("empty chord progression")
	ErrInvalidProse      = errors.New("invalid prose analysis")
	ErrUnknownPattern    = errors.New("unknown turn-taking pattern")
	ErrUnknownStrategy   = errors.New("unknown voicing strategy")
	ErrUnknownShape      = errors.New("unknown tension arc shape")
)

// StageError represents a failure in one step of composing a note
type StageError struct {
	Stage  string // "read", "analyze", "generate", "embellish", "process", "export"
	NodeID string
	Cause  error
}

func (e *StageError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.NodeID, e.Cause)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// IsRecoverable returns true if a fallback strategy exists
func (e *StageError) IsRecoverable() bool {
	return e.Stage == "generate" || e.Stage == "embellish"
}

// NewStageError creates a StageError
func NewStageError(stage, nodeID string, cause error) *StageError {
	return &StageError{
		Stage:  stage,
		NodeID: nodeID,
		Cause:  cause,
	}
}

// IsHostFailure reports whether err came from reading the vault rather than from generation
func IsHostFailure(err error) bool {
	return errors.Is(err, ErrNoteNotFound) ||
		errors.Is(err, ErrReadFailed) ||
		errors.Is(err, ErrNoteTooLarge) ||
		errors.Is(err, ErrUnsupportedFormat)
}
