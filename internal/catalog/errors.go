package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid profile")
	ErrPersist    = errors.New("catalog changes not persisted")
)

// ValidationError describes a rejected profile field. The catalog is left untouched.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// PersistError means the catalog file could not be written. The in-memory change that triggered
// the write has already been rolled back when a caller sees it.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("write catalog %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool { return target == ErrPersist }
