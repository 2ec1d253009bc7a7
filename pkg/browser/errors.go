package browser

import (
	"errors"
	"fmt"
)

// Code identifies a class of orchestration failure. Codes are stable:
// they appear verbatim in API error payloads and map to HTTP statuses
// at the transport layer.
type Code string

const (
	// CodeNotFound means an operation referenced an unknown browser or session
	CodeNotFound Code = "NotFound"

	// CodeAlreadyExists means a profile identifier is already registered
	CodeAlreadyExists Code = "AlreadyExists"

	// CodeForbidden means the operation is not permitted (deleting the default browser)
	CodeForbidden Code = "Forbidden"

	// CodeResourceGone means the target was torn down while the operation was in flight
	CodeResourceGone Code = "ResourceGone"

	// CodeNavigationFailed means a navigation barrier was not reached
	CodeNavigationFailed Code = "NavigationFailed"

	// CodePageUnavailable means the page crashed or closed unexpectedly
	CodePageUnavailable Code = "PageUnavailable"

	// CodeInvalidParameter means the request carried malformed parameters
	CodeInvalidParameter Code = "InvalidParameter"

	// CodeIndexOutOfRange means an nth selector targeted beyond the match count
	CodeIndexOutOfRange Code = "IndexOutOfRange"
)

// Error is a coded orchestration error. It wraps an optional cause so
// callers can use errors.Is/errors.As through it.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// Error returns the human-readable message with its code tag.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a coded error with a formatted message.
func Errorf(code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapErr creates a coded error wrapping a cause.
func WrapErr(code Code, err error, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// CodeOf extracts the taxonomy code from an error chain. Uncoded errors
// report false.
func CodeOf(err error) (Code, bool) {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code, true
	}
	return "", false
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code Code) bool {
	got, ok := CodeOf(err)
	return ok && got == code
}
