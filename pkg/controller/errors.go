package controller

import "errors"

var (
	// ErrNotActive is returned when a controller is used outside an active
	// request, for example borrowing after teardown.
	ErrNotActive = errors.New("controller is not active")

	// ErrAlreadyActive is returned by Begin on a controller that is still
	// serving a request.
	ErrAlreadyActive = errors.New("controller is already active")

	// ErrLedgerNotEmpty is returned by Begin when objects from a previous
	// request are still recorded.
	ErrLedgerNotEmpty = errors.New("controller ledger is not empty")

	// ErrAborted is returned by Borrow and the output methods once the
	// request has been aborted.
	ErrAborted = errors.New("request aborted")

	// ErrNilContext is returned by Begin without a request Context.
	ErrNilContext = errors.New("request context cannot be nil")
)
