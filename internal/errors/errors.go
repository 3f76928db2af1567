package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Sentinels used with Mark. Callers test with errors.Is or the Is* helpers.
var (
	ErrAuthentication  = new(ErrCodeAuthentication, "authentication failed")
	ErrDegradedSession = new(ErrCodeDegradedSession, "db session refresh failed")
	ErrDataAccess      = new(ErrCodeDataAccess, "data access fault")
	ErrFieldParse      = new(ErrCodeFieldParse, "field parse fault")
	ErrDatabase        = new(ErrCodeDatabase, "database error")
	ErrValidation      = new(ErrCodeValidation, "validation error")
	ErrNotFound        = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyRunning  = new(ErrCodeAlreadyRunning, "run already in progress")
	ErrSystem          = new(ErrCodeSystemError, "system error")
)

// statusCodes is checked in order, so an error carrying several marks maps
// to the first one listed.
var statusCodes = []struct {
	mark   error
	status int
}{
	{ErrValidation, http.StatusBadRequest},
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyRunning, http.StatusConflict},
	{ErrAuthentication, http.StatusBadGateway},
	{ErrDegradedSession, http.StatusBadGateway},
	{ErrDataAccess, http.StatusBadGateway},
	{ErrDatabase, http.StatusInternalServerError},
	{ErrSystem, http.StatusInternalServerError},
}

const (
	ErrCodeAuthentication  = "authentication_error"
	ErrCodeDegradedSession = "degraded_session"
	ErrCodeDataAccess      = "data_access_fault"
	ErrCodeFieldParse      = "field_parse_fault"
	ErrCodeDatabase        = "database_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeNotFound        = "not_found"
	ErrCodeAlreadyRunning  = "already_running"
	ErrCodeSystemError     = "system_error"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

func new(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsAuthentication reports whether err is marked as an authentication failure.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// IsDataAccess reports whether err is marked as a list/detail fault.
func IsDataAccess(err error) bool {
	return errors.Is(err, ErrDataAccess)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// HTTPStatusFromErr maps a marked error to a response status. Accurate-side
// failures are upstream faults and map to 502.
func HTTPStatusFromErr(err error) int {
	for _, sc := range statusCodes {
		if errors.Is(err, sc.mark) {
			return sc.status
		}
	}
	return http.StatusInternalServerError
}

// Hints returns the hints attached anywhere in the chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}
