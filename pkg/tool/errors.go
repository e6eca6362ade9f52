package tool

import (
	"errors"

	"github.com/stellarlinkco/toolsdk/pkg/project"
)

var (
	ErrInvalidInput   = errors.New("invalid tool input")
	ErrOutsideProject = project.ErrOutsideProject
	ErrNotFound       = errors.New("not found")
	ErrTooManyItems   = errors.New("too many items")

	ErrToolNotFound         = errors.New("tool not found")
	ErrDuplicateTool        = errors.New("tool already registered")
	ErrFinalizationNotFound = errors.New("no pending finalization")
)

// ExecutionError is a tool failure with a human readable operation. Its
// message reads "Error <op>: <cause>".
type ExecutionError struct {
	Op  string
	Err error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return "Error " + e.Op
	}
	return "Error " + e.Op + ": " + e.Err.Error()
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Fail wraps err as an ExecutionError for op.
func Fail(op string, err error) error {
	return &ExecutionError{Op: op, Err: err}
}
