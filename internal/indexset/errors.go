package indexset

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an index set or index name does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateIndexSet is returned when an index set name is registered twice.
	ErrDuplicateIndexSet = errors.New("duplicate index set")
	// ErrDuplicateIndex is returned when an index name is added twice to one set.
	ErrDuplicateIndex = errors.New("duplicate index")
	// ErrForwardBranchReference is returned when a branch input names an index
	// that has not been added to the set yet.
	ErrForwardBranchReference = errors.New("forward branch reference")
	// ErrFrozen is returned when the registry is modified after the model was finalized.
	ErrFrozen = errors.New("index sets are frozen")
)

// IndexError reports a name that could not be resolved within an index set.
type IndexError struct {
	Set  string
	Name string
}

func (e *IndexError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("index set %q: %v", e.Set, ErrNotFound)
	}
	return fmt.Sprintf("index %q in index set %q: %v", e.Name, e.Set, ErrNotFound)
}

func (e *IndexError) Unwrap() error {
	return ErrNotFound
}
