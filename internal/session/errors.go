package session

import (
	"errors"
	"fmt"

	"github.com/pixora/pixora/backend-go/internal/plan"
)

var (
	ErrBusy          = errors.New("session busy")
	ErrNotReady      = errors.New("session not ready")
	ErrAlreadyBound  = errors.New("document already bound")
	ErrDisposed      = errors.New("session disposed")
	ErrNoActiveImage = errors.New("no image selected")
	ErrUnknownTool   = errors.New("unknown tool")
	ErrUnknownPreset = errors.New("unknown crop preset")
)

// AccessDeniedError is returned when the plan does not include a tool. The
// active tool is left unchanged.
type AccessDeniedError struct {
	Tool   plan.Tool
	Reason string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied to %s: %s", e.Tool, e.Reason)
}

// ResizeError reports that a resize was applied on screen but could not be
// persisted. The new size is kept.
type ResizeError struct {
	Width  int
	Height int
	Err    error
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("persist resize to %dx%d: %v", e.Width, e.Height, e.Err)
}

func (e *ResizeError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed background save. It is logged, never
// returned to callers.
type PersistenceError struct {
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("autosave project %s: %v", e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
