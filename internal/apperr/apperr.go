// Package apperr defines the closed set of failure kinds tokenoptimizer can
// report, and maps each kind to a process exit code.
//
// Callers branch on Kind, never on message text:
//
//	if apperr.Is(err, apperr.Timeout) {
//	    // safe to retry with a larger --timeout
//	}
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	Internal Kind = iota
	Usage
	InvalidAggressiveness
	InvalidTokenLimits
	InvalidTimeout
	EmptyInput
	NoInput
	FileReadError
	NoCredential
	ConfigCorrupt
	AuthRejected
	RateLimited
	Timeout
	ConnectionFailed
	ServerError
	MalformedResponse
	RequestRejected
	Canceled
)

// Exit codes. Validation kinds share ExitValidation; every remote kind has
// its own code so scripts can tell "bad key" from "service unavailable".
const (
	ExitOK                = 0
	ExitInternal          = 1
	ExitValidation        = 2
	ExitNoCredential      = 3
	ExitConfigCorrupt     = 4
	ExitAuthRejected      = 10
	ExitRateLimited       = 11
	ExitTimeout           = 12
	ExitConnectionFailed  = 13
	ExitServerError       = 14
	ExitMalformedResponse = 15
	ExitRequestRejected   = 16
	ExitCanceled          = 130
)

// String returns the kind name as used in log fields.
func (k Kind) String() string {
	switch k {
	case Usage:
		return "usage"
	case InvalidAggressiveness:
		return "invalid_aggressiveness"
	case InvalidTokenLimits:
		return "invalid_token_limits"
	case InvalidTimeout:
		return "invalid_timeout"
	case EmptyInput:
		return "empty_input"
	case NoInput:
		return "no_input"
	case FileReadError:
		return "file_read_error"
	case NoCredential:
		return "no_credential"
	case ConfigCorrupt:
		return "config_corrupt"
	case AuthRejected:
		return "auth_rejected"
	case RateLimited:
		return "rate_limited"
	case Timeout:
		return "timeout"
	case ConnectionFailed:
		return "connection_failed"
	case ServerError:
		return "server_error"
	case MalformedResponse:
		return "malformed_response"
	case RequestRejected:
		return "request_rejected"
	case Canceled:
		return "canceled"
	default:
		return "internal"
	}
}

// ExitCode returns the process exit code for the kind.
func (k Kind) ExitCode() int {
	switch k {
	case Usage, InvalidAggressiveness, InvalidTokenLimits, InvalidTimeout,
		EmptyInput, NoInput, FileReadError:
		return ExitValidation
	case NoCredential:
		return ExitNoCredential
	case ConfigCorrupt:
		return ExitConfigCorrupt
	case AuthRejected:
		return ExitAuthRejected
	case RateLimited:
		return ExitRateLimited
	case Timeout:
		return ExitTimeout
	case ConnectionFailed:
		return ExitConnectionFailed
	case ServerError:
		return ExitServerError
	case MalformedResponse:
		return ExitMalformedResponse
	case RequestRejected:
		return ExitRequestRejected
	case Canceled:
		return ExitCanceled
	default:
		return ExitInternal
	}
}

// IsValidation reports whether the kind is a local input failure that is
// detected before any network I/O.
func (k Kind) IsValidation() bool {
	return k.ExitCode() == ExitValidation
}

// Error is a classified failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	if e.Msg == "" {
		return e.Err.Error()
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind, prefixing it with a formatted message.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal
// for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ExitCode maps err to a process exit code. A nil error is ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return KindOf(err).ExitCode()
}
