package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentifier marks a task or subtask without an id. It is
	// never sent to the store.
	ErrMissingIdentifier = errors.New("missing identifier")
	// ErrStoreUpdate marks an update the store rejected or failed.
	ErrStoreUpdate = errors.New("store update failed")
	// ErrNoComputedDueDate marks a tagged task for which no due date rule
	// produced a date.
	ErrNoComputedDueDate = errors.New("no computed due date")
)

// EntityError is a non-fatal failure attached to a single task or subtask.
// It matches both its Kind and its underlying cause with errors.Is.
type EntityError struct {
	TaskID string
	Title  string
	Kind   error
	Err    error
}

func (e *EntityError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %q (ID: %s): %v", e.Kind, e.Title, e.TaskID, e.Err)
	}
	return fmt.Sprintf("%v: %q (ID: %s)", e.Kind, e.Title, e.TaskID)
}

func (e *EntityError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ListError is a failure to load one task list. It aborts that list only.
type ListError struct {
	ListID string
	Title  string
	Err    error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("task list %q (ID: %s): %v", e.Title, e.ListID, e.Err)
}

func (e *ListError) Unwrap() error {
	return e.Err
}
