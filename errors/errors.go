// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	"errors"
	"fmt"
)

// GetErrCode returns the error code if the error is
// associated to recognizable error types
func GetErrCode(err error) ErrCode {
	var val *Error
	if errors.As(err, &val) {
		return val.code
	}
	return Unknown
}

// base error structure
type Error struct {
	code ErrCode
	msg  string
	err  error
}

// Error() prints out the error message string
func (e *Error) Error() string {
	return e.msg
}

// Unwrap allows errors.Is/errors.As to see through to a wrapped cause
func (e *Error) Unwrap() error {
	return e.err
}

// Is reports whether err carries the given error code
func Is(err error, code ErrCode) bool {
	return GetErrCode(err) == code
}

// Creates a new error msg without error code
func New(msg string) error {
	return &Error{
		msg: msg,
	}
}

// Wraps the error msg with recognized error codes
func Wrap(code ErrCode, msg string) error {
	return &Error{
		code: code,
		msg:  msg,
	}
}

// Wrapf formats msg per fmt.Sprintf and wraps it with recognized error codes
func Wrapf(code ErrCode, format string, args ...any) error {
	return &Error{
		code: code,
		msg:  fmt.Sprintf(format, args...),
	}
}

// WrapErr wraps an underlying error with a recognized error code, preserving
// it for errors.Is/errors.As/errors.Unwrap
func WrapErr(code ErrCode, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		code: code,
		msg:  err.Error(),
		err:  err,
	}
}

// IsNotFound returns true if err
// item isn't found in the space
func IsNotFound(err error) bool {
	return GetErrCode(err) == NotFound
}

// IsAlreadyExists returns true if err
// item already exists in the space
func IsAlreadyExists(err error) bool {
	return GetErrCode(err) == AlreadyExists
}

// IsInvalidArgument returns true if err
// item is invalid argument
func IsInvalidArgument(err error) bool {
	return GetErrCode(err) == InvalidArgument
}

// IsOverloaded returns true if err indicates no node could host the
// request under the active strategy, or retry budget was exhausted
func IsOverloaded(err error) bool {
	return GetErrCode(err) == Overloaded
}

// IsRateLimited returns true if err indicates admission was rejected
// by the rate limiter before the allocator was invoked
func IsRateLimited(err error) bool {
	return GetErrCode(err) == RateLimited
}

// IsInternal returns true if err represents an unexpected failure,
// typically store unreachability or a constraint violated unexpectedly
func IsInternal(err error) bool {
	return GetErrCode(err) == Internal
}
