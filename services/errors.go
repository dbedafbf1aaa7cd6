// services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Code is a machine-checkable error kind surfaced to callers.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeOriginRequired      Code = "ORIGIN_REQUIRED"
	CodePairUnavailable     Code = "PAIR_UNAVAILABLE"
	CodeSwapCreationFailed  Code = "SWAP_CREATION_FAILED"
	CodeSwapLookupFailed    Code = "SWAP_LOOKUP_FAILED"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeNotFound            Code = "NOT_FOUND"
	CodeInvalidState        Code = "INVALID_STATE"
	CodeGiftExpired         Code = "GIFT_EXPIRED"
	CodeDuplicateID         Code = "DUPLICATE_ID"
	CodeInternal            Code = "INTERNAL"
)

// Error carries a Code, a human-readable message and an optional cause.
// Provider rejections keep the provider's message verbatim.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Code, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// GetCode extracts the Code from err, or CodeInternal when err is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries code.
func IsCode(err error, code Code) bool {
	return err != nil && GetCode(err) == code
}
