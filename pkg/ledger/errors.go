package ledger

import "errors"

var (
	// ErrNilObject is returned by Record for a nil object.
	ErrNilObject = errors.New("ledger: object cannot be nil")

	// ErrNilPool is returned by Record for a nil pool.
	ErrNilPool = errors.New("ledger: pool cannot be nil")

	// ErrUnknownKey is returned by Return for a key that is not outstanding.
	ErrUnknownKey = errors.New("ledger: unknown key")
)
