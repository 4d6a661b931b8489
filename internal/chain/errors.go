package chain

import "errors"

var (
	// ErrNotFound marks a block or transaction the remote does not know.
	ErrNotFound = errors.New("not found at source")

	// ErrUnavailable marks a transient transport failure. Callers may retry.
	ErrUnavailable = errors.New("source unavailable")

	// ErrBadData marks a response that could not be decoded. Retrying the
	// same call is unlikely to help until the remote changes.
	ErrBadData = errors.New("source returned undecodable data")
)
