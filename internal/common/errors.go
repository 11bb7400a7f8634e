// Package common holds helpers shared by the runtime, services and HTTP layer.
package common

import (
	"fmt"
	"net/http"
)

// HttpError is an error the HTTP layer renders as a status code plus a
// machine readable code.
type HttpError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s %s", e.StatusCode, e.Code, e.Message)
}

var httpErrorCodes = map[int]string{
	http.StatusBadRequest:          "BAD_REQUEST",
	http.StatusUnauthorized:        "UNAUTHORIZED",
	http.StatusForbidden:           "FORBIDDEN",
	http.StatusNotFound:            "NOT_FOUND",
	http.StatusConflict:            "RESOURCE_CONFLICT",
	http.StatusTooManyRequests:     "TOO_MANY_REQUESTS",
	http.StatusInternalServerError: "INTERNAL_SERVER_ERROR",
}

// NewHTTPError builds an HttpError for status. An empty msg falls back to
// the status text.
func NewHTTPError(status int, msg string) *HttpError {
	if msg == "" {
		msg = http.StatusText(status)
	}
	code, ok := httpErrorCodes[status]
	if !ok {
		code = "ERROR"
	}
	return &HttpError{StatusCode: status, Code: code, Message: msg}
}

func HTTPErrorBadRequest(msg string) *HttpError {
	return NewHTTPError(http.StatusBadRequest, msg)
}

func HTTPErrorUnauthorized(msg string) *HttpError {
	return NewHTTPError(http.StatusUnauthorized, msg)
}

func HTTPErrorForbidden(msg string) *HttpError {
	return NewHTTPError(http.StatusForbidden, msg)
}

func HTTPErrorNotFound(msg string) *HttpError {
	return NewHTTPError(http.StatusNotFound, msg)
}

func HTTPErrorResourceConflict(msg string) *HttpError {
	return NewHTTPError(http.StatusConflict, msg)
}

func HTTPErrorTooManyRequests(msg string) *HttpError {
	return NewHTTPError(http.StatusTooManyRequests, msg)
}

func HTTPErrorInternalError(msg string) *HttpError {
	return NewHTTPError(http.StatusInternalServerError, msg)
}
