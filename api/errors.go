package api

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/errors/v5"
)

// Error is a non-2xx backend response.
type Error struct {
	StatusCode int
	Status     string

	// Body is the parsed JSON error payload, or the raw body string when the
	// payload is not JSON.
	Body any
}

func (e *Error) Error() string {
	return fmt.Sprintf("request failed: %s", e.Status)
}

func newError(statusCode int, status string, raw []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Status:     status,
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		e.Body = string(raw)
	} else {
		e.Body = body
	}

	return e
}

// StatusCode returns the HTTP status carried by err when it is (or wraps) an
// *Error.
func StatusCode(err error) (int, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}

	return 0, false
}
