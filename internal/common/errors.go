package common

import (
	"errors"
	"net/http"
)

// ErrInvalidPayload is wrapped by DecodeJSON failures.
var ErrInvalidPayload = errors.New("invalid payload")

// AppError carries the API error code and HTTP status for a failure.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status defaults to 400 so handlers can omit it for client errors.
func (e *AppError) Status() int {
	if e.HTTPStatus == 0 {
		return http.StatusBadRequest
	}
	return e.HTTPStatus
}

func (e *AppError) code() string {
	if e.Code == "" {
		return "BAD_REQUEST"
	}
	return e.Code
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}
