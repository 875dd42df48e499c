package subsonic

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Failure classes. Errors returned by the client internals are marked with
// exactly one of these so callers can tell them apart with errors.Is.
var (
	ErrNetwork      = errors.New("subsonic: network failure")
	ErrHTTPStatus   = errors.New("subsonic: unexpected HTTP status")
	ErrServerFailed = errors.New("subsonic: server reported failure")
	ErrDecode       = errors.New("subsonic: malformed response")
)

// FailureKind classifies a client error.
type FailureKind int

const (
	FailureNone         FailureKind = iota // No error
	FailureNetwork                         // Host unreachable, bad scheme, transport error
	FailureHTTPStatus                      // Non-2xx HTTP status
	FailureServerFailed                    // status=failed in the response envelope
	FailureDecode                          // Body is not JSON or lacks expected fields
	FailureUnknown                         // Anything else
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureNetwork:
		return "network"
	case FailureHTTPStatus:
		return "http_status"
	case FailureServerFailed:
		return "server_failed"
	case FailureDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Classify returns the failure class of err.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrNetwork):
		return FailureNetwork
	case errors.Is(err, ErrHTTPStatus):
		return FailureHTTPStatus
	case errors.Is(err, ErrServerFailed):
		return FailureServerFailed
	case errors.Is(err, ErrDecode):
		return FailureDecode
	default:
		return FailureUnknown
	}
}

// ServerError is the error object of a failed response envelope.
type ServerError struct {
	Code    int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("subsonic error %d: %s", e.Code, e.Message)
}

func networkError(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrNetwork)
}

func decodeError(err error, msg string) error {
	if err == nil {
		return errors.Mark(errors.New(msg), ErrDecode)
	}
	return errors.Mark(errors.Wrap(err, msg), ErrDecode)
}
