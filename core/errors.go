package core

import (
	"fmt"
	"strings"
)

// UnsupportedTaskError reports an unknown task name. It carries the list of
// valid task names so callers (and error messages shown to users) can point
// at what is actually available.
type UnsupportedTaskError struct {
	Task  string
	Valid []string
}

func (e *UnsupportedTaskError) Error() string {
	return fmt.Sprintf("task %q not supported. Available tasks: %s", e.Task, strings.Join(e.Valid, ", "))
}

// MissingFieldError reports a required template input that was absent from
// the fields map at render time.
type MissingFieldError struct {
	Task  string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("task %q: missing required input %q", e.Task, e.Field)
}

// NoRouteError reports a conditional composition whose routing function
// produced a key with no matching pipeline and no fallback.
type NoRouteError struct {
	Key string
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no pipeline for condition %q", e.Key)
}

// ModelInvocationError wraps an opaque failure from a model invoker. The
// core never inspects the invoker's transport; the cause is kept only for
// human-readable reporting and unwrap chains.
type ModelInvocationError struct {
	Provider string
	Cause    error
}

func (e *ModelInvocationError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("model invocation failed (%s): %v", e.Provider, e.Cause)
	}
	return fmt.Sprintf("model invocation failed: %v", e.Cause)
}

func (e *ModelInvocationError) Unwrap() error { return e.Cause }

// PersistenceError reports a missing or malformed memory file on load, or a
// write failure on save. Loading never silently falls back to empty state.
type PersistenceError struct {
	Path  string
	Cause error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("memory persistence failed for %s: %v", e.Path, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }
