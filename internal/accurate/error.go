package accurate

import (
	"fmt"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

const maxErrorBody = 512

// HTTPError is a non-2xx response from Accurate.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, body)
}

// Retryable reports whether a later attempt may succeed.
func (e *HTTPError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsHTTPError checks if an error is an HTTP error from Accurate
func IsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if ierr.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if httpErr, ok := IsHTTPError(err); ok {
		return httpErr.StatusCode
	}
	return 0
}
