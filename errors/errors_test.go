// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package errors

import (
	"errors"
	"fmt"
	"testing"
)

func Test_ErrorValidations(t *testing.T) {
	err := fmt.Errorf("%s", "test error from fmt")
	if GetErrCode(err) != Unknown {
		t.Errorf("expected error type unknown, got %v", GetErrCode(err))
	}

	err = New("test error from errors pkg")
	if GetErrCode(err) != Unknown {
		t.Errorf("expected error type unknown, got %v", GetErrCode(err))
	}

	err = Wrap(AlreadyExists, "test wrap error from errors pkg")
	if !IsAlreadyExists(err) {
		t.Errorf("expected error type Already exists")
	}

	err = Wrapf(NotFound, "%s", "test wrapf error from errors pkg")
	if !IsNotFound(err) {
		t.Errorf("expected error type Not Found")
	}

	err = Wrap(Overloaded, "no node can host the request")
	if !IsOverloaded(err) {
		t.Errorf("expected error type Overloaded")
	}

	err = Wrap(RateLimited, "admission rejected")
	if !IsRateLimited(err) {
		t.Errorf("expected error type RateLimited")
	}

	cause := fmt.Errorf("connection refused")
	err = WrapErr(Internal, cause)
	if !IsInternal(err) {
		t.Errorf("expected error type Internal")
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected wrapped error to unwrap to the original cause")
	}
}
