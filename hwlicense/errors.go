package hwlicense

import (
	"errors"
	"fmt"
	"time"

	"github.com/CloudNativeWorks/hwlicense/hwlicense/recordstore"
)

// Sentinel errors for license validation failures. All three are
// deterministic outcomes of the stored record; retrying does not help.
var (
	ErrLicenseNotFound  = errors.New("license not found")
	ErrHardwareMismatch = errors.New("license is bound to another machine")
	ErrLicenseExpired   = errors.New("license expired")
)

// Error codes carried in the server error envelope.
const (
	CodeNotFound      = "NOT_FOUND"
	CodeHWIDMismatch  = "HWID_MISMATCH"
	CodeExpired       = "EXPIRED"
	CodeBadRequest    = "BAD_REQUEST"
	CodeUnavailable   = "UNAVAILABLE"
	CodeInternalError = "INTERNAL"
)

// ExpiredError reports a trial key whose validity window has elapsed.
// It matches ErrLicenseExpired with errors.Is.
type ExpiredError struct {
	ExpirationDate time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("license expired on %s", recordstore.FormatDate(e.ExpirationDate))
}

func (e *ExpiredError) Is(target error) bool {
	return target == ErrLicenseExpired
}

// ServerError represents an error response from the license server.
// The server returns errors in the format:
// {"error": {"code": "...", "message": "...", "expiration_date": "..."}}.
type ServerError struct {
	StatusCode     int
	Code           string
	Message        string
	ExpirationDate string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: [%s] %s", e.StatusCode, e.Code, e.Message)
}

// mapServerError converts a ServerError to a well-known sentinel error if possible.
// The returned error wraps both the sentinel error and the original ServerError
// so callers can use errors.Is() for sentinel checks and errors.As() for details.
func mapServerError(se *ServerError) error {
	var sentinel error
	switch se.Code {
	case CodeNotFound:
		sentinel = ErrLicenseNotFound
	case CodeHWIDMismatch:
		sentinel = ErrHardwareMismatch
	case CodeExpired:
		if t, err := recordstore.ParseDate(se.ExpirationDate); err == nil {
			sentinel = &ExpiredError{ExpirationDate: t}
		} else {
			sentinel = ErrLicenseExpired
		}
	default:
		return se
	}
	return &mappedError{sentinel: sentinel, server: se}
}

// mappedError wraps a sentinel error with the original ServerError details.
type mappedError struct {
	sentinel error
	server   *ServerError
}

func (e *mappedError) Error() string {
	return e.sentinel.Error()
}

func (e *mappedError) As(target interface{}) bool {
	switch t := target.(type) {
	case **ServerError:
		*t = e.server
		return true
	case **ExpiredError:
		if ee, ok := e.sentinel.(*ExpiredError); ok {
			*t = ee
			return true
		}
	}
	return false
}

func (e *mappedError) Unwrap() error {
	return e.sentinel
}
