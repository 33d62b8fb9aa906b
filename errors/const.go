// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

// ErrCode is type for multiple reconizable errors.
type ErrCode int

// error codes
const (
	// if error is unknown
	Unknown ErrCode = 0

	// if the item not found in the space
	NotFound ErrCode = 1

	// if the item already present in the space
	AlreadyExists ErrCode = 2

	// if the argument is not valid
	InvalidArgument ErrCode = 3

	// if no node can host the request under the active strategy,
	// or the bounded retry budget was exhausted
	Overloaded ErrCode = 4

	// if admission control rejected the request before it reached
	// the allocator
	RateLimited ErrCode = 5

	// if the store is unreachable or a constraint was violated
	// unexpectedly
	Internal ErrCode = 6
)
