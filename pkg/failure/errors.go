package failure

import "fmt"

// Kind tags a failure with the category the classifier will assign to it.
type Kind int

const (
	// KindUnknown marks a failure with no more specific category.
	KindUnknown Kind = iota

	// KindValidation marks invalid caller input. Its message is safe to
	// show to the caller.
	KindValidation

	// KindPrivilege marks a caller that is not allowed to perform the
	// operation.
	KindPrivilege

	// KindInfra marks a transport or storage connectivity failure. Its
	// message is never shown to the caller.
	KindInfra

	// KindDomain marks a business rule failure carrying an application code.
	KindDomain
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnknown:
		return "unknown"
	case KindValidation:
		return "validation"
	case KindPrivilege:
		return "privilege"
	case KindInfra:
		return "infra"
	case KindDomain:
		return "domain"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a tagged failure raised during request execution.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface. The cause text is appended so that
// logging the failure preserves the whole chain.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// ErrorCode returns the code carried by the failure.
func (e *Error) ErrorCode() int {
	return e.Code
}

// WithCause returns a copy of e wrapping cause.
func (e *Error) WithCause(cause error) *Error {
	c := *e
	c.Cause = cause
	return &c
}

// Coder is implemented by errors that carry their own response code.
type Coder interface {
	ErrorCode() int
}

// Validation creates a validation failure.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Code: CodeParameterValidationFailed, Message: message}
}

// Validationf creates a validation failure with a formatted message.
func Validationf(format string, args ...any) *Error {
	return Validation(fmt.Sprintf(format, args...))
}

// Privilege creates a privilege failure.
func Privilege(message string) *Error {
	return &Error{Kind: KindPrivilege, Code: CodePrivilegeNotPass, Message: message}
}

// Infra creates an infrastructure failure wrapping cause.
func Infra(message string, cause error) *Error {
	return &Error{Kind: KindInfra, Code: CodeFatal, Message: message, Cause: cause}
}

// Domain creates a business rule failure with an application code.
func Domain(code int, message string) *Error {
	return &Error{Kind: KindDomain, Code: code, Message: message}
}

// Unknown creates an untagged failure with an explicit code.
func Unknown(code int, message string) *Error {
	return &Error{Kind: KindUnknown, Code: code, Message: message}
}
