package classify

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/gorilla/websocket"
	"github.com/mattn/go-sqlite3"

	"mercator-hq/lifecycle/pkg/failure"
)

// NetworkErrorMessage is the only message ever returned to a caller for an
// infrastructure failure.
const NetworkErrorMessage = "Network Error."

// Category is the client-visible failure category.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryValidation
	CategoryAuth
	CategoryInfra
	CategoryDomain
)

// String returns the uppercase category name used in logs and metrics.
func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "VALIDATION"
	case CategoryAuth:
		return "AUTH"
	case CategoryInfra:
		return "INFRA"
	case CategoryDomain:
		return "DOMAIN"
	default:
		return "UNKNOWN"
	}
}

// Severity is the log severity of a classified failure.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// String returns "warning" or "error".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Classified is the result of classifying one failure. It is produced and
// consumed within a single failure-handling pass.
type Classified struct {
	Category Category
	Code     int
	Message  string
	Severity Severity

	// Detail is the full text of the original failure, including every
	// wrapped cause. It is for logs only and must never reach a response.
	Detail string
}

// LogLine returns the text logged for the failure.
func (c Classified) LogLine() string {
	return fmt.Sprintf("%s with code %d", c.Detail, c.Code)
}

// Classify maps err to its classification. A nil error classifies as
// UNKNOWN with CodeFatal and an empty message.
func Classify(err error) Classified {
	if err == nil {
		return Classified{Category: CategoryUnknown, Code: failure.CodeFatal, Severity: SeverityError}
	}

	detail := err.Error()

	target := err
	if cause := errors.Unwrap(err); cause != nil && isTagged(cause) {
		target = cause
	}

	var tagged *failure.Error
	kind := failure.KindUnknown
	if errors.As(target, &tagged) {
		kind = tagged.Kind
	}
	if tagged == nil && IsTransport(target) {
		kind = failure.KindInfra
	}

	switch kind {
	case failure.KindValidation:
		return Classified{
			Category: CategoryValidation,
			Code:     failure.CodeParameterValidationFailed,
			Message:  tagged.Message,
			Severity: SeverityWarning,
			Detail:   detail,
		}
	case failure.KindPrivilege:
		return Classified{
			Category: CategoryAuth,
			Code:     failure.CodePrivilegeNotPass,
			Message:  tagged.Message,
			Severity: SeverityWarning,
			Detail:   detail,
		}
	case failure.KindInfra:
		return Classified{
			Category: CategoryInfra,
			Code:     failure.CodeFatal,
			Message:  NetworkErrorMessage,
			Severity: SeverityError,
			Detail:   detail,
		}
	case failure.KindDomain:
		return Classified{
			Category: CategoryDomain,
			Code:     tagged.Code,
			Message:  tagged.Message,
			Severity: SeverityError,
			Detail:   detail,
		}
	default:
		return Classified{
			Category: CategoryUnknown,
			Code:     codeOf(target),
			Message:  messageOf(target, tagged),
			Severity: SeverityError,
			Detail:   detail,
		}
	}
}

// isTagged reports whether err carries a classification of its own, either a
// failure kind or a recognised transport error. An untagged cause does not
// override the tag of the failure wrapping it.
func isTagged(err error) bool {
	var fe *failure.Error
	return errors.As(err, &fe) || IsTransport(err)
}

// codeOf returns the code carried by err, or CodeFatal.
func codeOf(err error) int {
	var coder failure.Coder
	if errors.As(err, &coder) && coder.ErrorCode() != 0 {
		return coder.ErrorCode()
	}
	return failure.CodeFatal
}

// messageOf returns the failure's own message. Tagged failures report their
// message without the cause text.
func messageOf(err error, tagged *failure.Error) string {
	if tagged != nil && tagged.Message != "" {
		return tagged.Message
	}
	return err.Error()
}

// IsTransport reports whether err is a transport or storage connectivity
// failure.
func IsTransport(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, websocket.ErrCloseSent) {
		return true
	}

	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
			return true
		}
	}

	return false
}
