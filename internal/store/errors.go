package store

import "fmt"

// ValidationError reports input rejected before any mutation happened.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// DuplicateError reports a name or id collision. Kind names what
// collided: "list", "field" or "place".
type DuplicateError struct {
	Kind string
	Name string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate %s: %s", e.Kind, e.Name)
}

// RangeError reports an index outside the collection bounds.
type RangeError struct {
	Index  int
	Length int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("index %d out of range [0,%d)", e.Index, e.Length)
}

// PersistenceError wraps a backend write failure. The in-memory state
// was rolled back before this is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
