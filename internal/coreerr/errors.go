// Package coreerr implements the error taxonomy shared by every core
// package: a small code enum plus a struct that carries a message, an
// optional detail string, and an optional wrapped cause.
package coreerr

import "fmt"

// Code is a stable identifier for a class of failure, matching §7 of the
// specification this module implements.
type Code string

const (
	InvalidFormat     Code = "INVALID_FORMAT"
	Truncated         Code = "TRUNCATED"
	UnsupportedVer    Code = "UNSUPPORTED_VERSION"
	IOError           Code = "IO_ERROR"
	AuthFailed        Code = "AUTH_FAILED"
	Timeout           Code = "TIMEOUT"
	Cancelled         Code = "CANCELLED"
	DeviceLost        Code = "DEVICE_LOST"
	ConnectionLost    Code = "CONNECTION_LOST"
	Protocol          Code = "PROTOCOL"
	TooManyRetries    Code = "TRANSFER_TOO_MANY_RETRIES"
	CRCMismatch       Code = "TRANSFER_CRC_MISMATCH"
	AbortedByPeer     Code = "TRANSFER_ABORTED_BY_PEER"
	TransferConnLost  Code = "TRANSFER_CONNECTION_LOST"
	ScriptCompile     Code = "SCRIPT_COMPILE"
	ScriptRuntime     Code = "SCRIPT_RUNTIME"
)

// Error is the house error type: a code, a human message, an optional
// subsystem-specific detail string, and the wrapped cause.
type Error struct {
	Code    Code
	Message string
	Detail  string
	Cause   error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Message, e.Detail, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with no detail or cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a detail string.
func Newf(code Code, message, detail string) *Error {
	return &Error{Code: code, Message: message, Detail: detail}
}

// Wrap wraps cause under the given code, preserving cause.Error() as the
// detail so callers can see the original failure.
func Wrap(code Code, message string, cause error) *Error {
	if cause == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, Detail: cause.Error(), Cause: cause}
}

// Is reports whether err is an *Error with the given code.
func Is(err error, code Code) bool {
	e, ok := err.(*Error)
	return ok && e.Code == code
}

// InvalidFormatf builds a Protocol §4.4 Error::InvalidFormat(detail).
func InvalidFormatf(detail string) *Error {
	return Newf(InvalidFormat, "invalid format", detail)
}

// UnsupportedVersionf builds an Error::UnsupportedVersion(v).
func UnsupportedVersionf(v int) *Error {
	return Newf(UnsupportedVer, "unsupported version", fmt.Sprintf("v%d", v))
}
