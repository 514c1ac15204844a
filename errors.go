package netcore

import (
	"errors"
	"fmt"
	"syscall"
)

// Error represents a structured netcore error with socket/engine context and
// errno mapping.
type Error struct {
	Op     string    // Operation that failed (e.g., "SEND", "ACCEPT", "ATTACH")
	Handle int32     // Socket handle (-1 if not applicable)
	Engine string    // Owning engine name (empty if not applicable)
	Code   ErrorCode // High-level error category
	Errno  syscall.Errno
	Msg    string
	Inner  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}

	if e.Handle >= 0 {
		parts = append(parts, fmt.Sprintf("handle=%d", e.Handle))
	}

	if e.Engine != "" {
		parts = append(parts, fmt.Sprintf("engine=%s", e.Engine))
	}

	if e.Errno != 0 {
		parts = append(parts, fmt.Sprintf("errno=%d", e.Errno))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("netcore: %s (%s)", msg, parts[0])
	}

	return fmt.Sprintf("netcore: %s", msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is reports whether target is another structured *Error with the same
// Code. Targets of any other type never match.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}

	if te, ok := target.(*Error); ok {
		return e.Code == te.Code
	}

	return false
}

// ErrorCode represents the socket-handle error categories from the
// engine/session contract.
type ErrorCode string

const (
	CodeOK                ErrorCode = "ok"
	CodeWouldBlock        ErrorCode = "would block"
	CodeInterrupted       ErrorCode = "interrupted"
	CodePending           ErrorCode = "pending"
	CodeConnectionDead    ErrorCode = "connection dead"
	CodeConnectionRefused ErrorCode = "connection refused"
	CodeConnectionReset   ErrorCode = "connection reset"
	CodeEOF               ErrorCode = "end of stream"
	CodeInvalid           ErrorCode = "invalid argument"
	CodeLimit             ErrorCode = "resource limit exceeded"
	CodeNotImplemented    ErrorCode = "not implemented"
	CodeCancelled         ErrorCode = "cancelled"
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Handle: -1,
		Code:   code,
		Msg:    msg,
	}
}

// NewErrorWithErrno creates a new structured error carrying the originating errno.
func NewErrorWithErrno(op string, code ErrorCode, errno syscall.Errno) *Error {
	return &Error{
		Op:     op,
		Handle: -1,
		Code:   code,
		Errno:  errno,
		Msg:    errno.Error(),
	}
}

// NewSocketError creates a socket-scoped error.
func NewSocketError(op string, handle int32, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Handle: handle,
		Code:   code,
		Msg:    msg,
	}
}

// NewEngineError creates an engine-scoped error.
func NewEngineError(op string, engine string, code ErrorCode, msg string) *Error {
	return &Error{
		Op:     op,
		Handle: -1,
		Engine: engine,
		Code:   code,
		Msg:    msg,
	}
}

// WrapError wraps an existing error with netcore context, preserving a
// structured error's fields and mapping raw syscall.Errno to a code.
func WrapError(op string, inner error) *Error {
	if inner == nil {
		return nil
	}

	if ne, ok := inner.(*Error); ok {
		return &Error{
			Op:     op,
			Handle: ne.Handle,
			Engine: ne.Engine,
			Code:   ne.Code,
			Errno:  ne.Errno,
			Msg:    ne.Msg,
			Inner:  ne.Inner,
		}
	}

	if errno, ok := inner.(syscall.Errno); ok {
		return &Error{
			Op:     op,
			Handle: -1,
			Code:   mapErrnoToCode(errno),
			Errno:  errno,
			Msg:    errno.Error(),
			Inner:  inner,
		}
	}

	return &Error{
		Op:     op,
		Handle: -1,
		Code:   CodeInvalid,
		Msg:    inner.Error(),
		Inner:  inner,
	}
}

// mapErrnoToCode maps a raw syscall errno to a socket-handle error code.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EAGAIN:
		return CodeWouldBlock
	case syscall.EINTR:
		return CodeInterrupted
	case syscall.ECONNREFUSED:
		return CodeConnectionRefused
	case syscall.ECONNRESET, syscall.EPIPE:
		return CodeConnectionReset
	case syscall.ENOTCONN, syscall.ESHUTDOWN, syscall.EHOSTUNREACH, syscall.ENETUNREACH:
		return CodeConnectionDead
	case syscall.EINVAL, syscall.E2BIG:
		return CodeInvalid
	case syscall.EMFILE, syscall.ENFILE, syscall.ENOBUFS, syscall.ENOMEM:
		return CodeLimit
	case syscall.ENOSYS, syscall.EOPNOTSUPP:
		return CodeNotImplemented
	case syscall.ECANCELED:
		return CodeCancelled
	default:
		return CodeConnectionDead
	}
}

// IsCode checks if an error matches a specific error code.
func IsCode(err error, code ErrorCode) bool {
	var ncErr *Error
	if errors.As(err, &ncErr) {
		return ncErr.Code == code
	}
	return false
}

// IsErrno checks if an error matches a specific errno.
func IsErrno(err error, errno syscall.Errno) bool {
	var ncErr *Error
	if errors.As(err, &ncErr) {
		return ncErr.Errno == errno
	}
	return false
}
