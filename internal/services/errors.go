package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a stable, machine-readable error code returned to callers.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidPasscode    Code = "INVALID_PASSCODE"
	CodeRoomFull           Code = "ROOM_FULL"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeStorageUnavailable Code = "STORAGE_UNAVAILABLE"
)

// HTTPStatus maps a code to its response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeInvalidPasscode:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRoomFull:
		return http.StatusForbidden
	case CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is the domain error surfaced to callers with a code and message.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks.
var (
	ErrValidation         = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrNotFound           = &Error{Code: CodeNotFound, Message: "room not found"}
	ErrInvalidPasscode    = &Error{Code: CodeInvalidPasscode, Message: "invalid passcode"}
	ErrRoomFull           = &Error{Code: CodeRoomFull, Message: "room is full"}
	ErrRateLimited        = &Error{Code: CodeRateLimited, Message: "too many requests"}
	ErrStorageUnavailable = &Error{Code: CodeStorageUnavailable, Message: "storage unavailable"}
)

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func storageError(op string, err error) *Error {
	return &Error{Code: CodeStorageUnavailable, Message: op, Err: err}
}

// CodeOf extracts the code of err, defaulting to STORAGE_UNAVAILABLE for
// errors that did not originate here.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeStorageUnavailable
}

// MessageOf returns the caller-facing message of err without wrapped causes.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
