package askhuman

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx answer from the service, carrying the wire error
// envelope plus the HTTP status it arrived with.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any

	// RetryAfter is the server-requested pause before retrying, set on
	// rate-limited requests when a Retry-After header is present.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("askhuman: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("askhuman: %s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a request the server rejected as
// invalid.
func IsValidation(err error) bool {
	return hasStatus(err, http.StatusBadRequest)
}

// IsNotFound reports whether err means the question does not exist or has
// been removed after expiry.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsQuotaExceeded reports whether err means the agent has too many
// concurrent open questions.
func IsQuotaExceeded(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	return hasStatus(err, http.StatusTooManyRequests)
}

// IsServerError reports whether err is a 5xx failure.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}

func hasStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}
