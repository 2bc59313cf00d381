// Package errors defines the sentinel error taxonomy shared across the
// service and its mapping to HTTP status codes. A question with no answer is
// not an error; it is an ordinary 200 response.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels. Wrap them with fmt.Errorf("%w: ...") so call sites can classify
// failures with errors.Is.
var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrSourceUnavailable = errors.New("corpus source unavailable")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrTimeout           = errors.New("operation timed out")
	ErrInternal          = errors.New("internal error")
)

// statusTable is checked in order. ErrSourceUnavailable sits above
// ErrTimeout so a source failure that also carries a deadline error still
// maps to 500, the contract for failed refreshes.
var statusTable = []struct {
	sentinel error
	status   int
}{
	{ErrInvalidRequest, http.StatusBadRequest},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrSourceUnavailable, http.StatusInternalServerError},
	{ErrTimeout, http.StatusServiceUnavailable},
}

// AppError pairs a sentinel with a caller-facing message and an explicit
// status. The message is safe to put in a response body.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return e.Err.Error() + ": " + e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Invalid builds an ErrInvalidRequest AppError for malformed client input.
func Invalid(format string, args ...any) *AppError {
	return &AppError{
		Err:        ErrInvalidRequest,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: http.StatusBadRequest,
	}
}

// HTTPStatusCode resolves the response status for err: an AppError wins,
// then the first matching sentinel in the chain, then 500.
func HTTPStatusCode(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.StatusCode != 0 {
		return app.StatusCode
	}
	for _, row := range statusTable {
		if errors.Is(err, row.sentinel) {
			return row.status
		}
	}
	return http.StatusInternalServerError
}

// Message returns the caller-facing message carried by an AppError in err's
// chain, or "" when there is none and the caller should fall back to its own
// wording.
func Message(err error) string {
	var app *AppError
	if errors.As(err, &app) {
		return app.Message
	}
	return ""
}
