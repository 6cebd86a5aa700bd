package output

import "errors"

var (
	// ErrAlreadyWritten is returned when a response was already written.
	ErrAlreadyWritten = errors.New("response already written")

	// ErrNoRenderer is returned by OutputView when no ViewRenderer is set.
	ErrNoRenderer = errors.New("no view renderer configured")

	// ErrUnknownView is returned when a view name has no template.
	ErrUnknownView = errors.New("unknown view")

	// ErrViewUnsupported is returned by transports that cannot render views.
	ErrViewUnsupported = errors.New("views are not supported on this transport")

	// ErrInvalidCallback is returned for a JSONP callback that is not a
	// plain identifier.
	ErrInvalidCallback = errors.New("invalid JSONP callback")
)
