package output

import (
	"regexp"
	"time"

	"github.com/goccy/go-json"
)

// Envelope is the body of every response.
type Envelope struct {
	Data       any     `json:"data"`
	Status     int     `json:"status"`
	Message    string  `json:"message"`
	ServerTime float64 `json:"serverTime"`
}

// NewEnvelope builds an envelope stamped with now.
func NewEnvelope(data any, message string, status int, now time.Time) Envelope {
	return Envelope{
		Data:       data,
		Status:     status,
		Message:    message,
		ServerTime: float64(now.UnixMicro()) / 1e6,
	}
}

// Marshal encodes the envelope.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

var callbackPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]{0,127}$`)

// ValidCallback reports whether name is safe to use as a JSONP callback.
func ValidCallback(name string) bool {
	return callbackPattern.MatchString(name)
}
