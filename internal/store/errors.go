package store

import "errors"

var (
	// ErrNotFound reports that no row matched the lookup.
	ErrNotFound = errors.New("not found in index")

	// ErrConflict reports a write that would break the spend-once or
	// uniqueness guarantees, such as spending an already-spent output or
	// re-applying an indexed block.
	ErrConflict = errors.New("index write conflict")
)
