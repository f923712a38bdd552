package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AuthenticationError means the API key for a service is missing or invalid.
// Not retryable until the key is corrected.
type AuthenticationError struct {
	Service string
	Message string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: authentication failed", e.Service)
	}
	return fmt.Sprintf("%s: authentication failed: %s", e.Service, e.Message)
}

// ValidationError means the input was malformed and must be corrected by the
// user before retrying.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// RateLimitError means the service is throttling requests. RetryAfter is the
// delay suggested by the service, or zero when none was given.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Service, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Service)
}

// ServiceError covers every other failure reported by an external service.
type ServiceError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: request failed with status %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: request failed: %s", e.Service, e.Message)
}

// FromStatus maps a non-2xx HTTP response from an external service onto the
// error taxonomy. retryAfter only applies to 429 responses.
func FromStatus(service string, statusCode int, body string, retryAfter time.Duration) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &AuthenticationError{Service: service, Message: body}
	case statusCode == http.StatusBadRequest || statusCode == http.StatusUnprocessableEntity:
		return &ValidationError{Message: body}
	case statusCode == http.StatusTooManyRequests:
		return &RateLimitError{Service: service, RetryAfter: retryAfter}
	default:
		return &ServiceError{Service: service, StatusCode: statusCode, Message: body}
	}
}

func IsAuthentication(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsRateLimit reports whether err is a rate limit error and returns the
// suggested retry delay, if any.
func IsRateLimit(err error) (time.Duration, bool) {
	var e *RateLimitError
	if errors.As(err, &e) {
		return e.RetryAfter, true
	}
	return 0, false
}

func IsService(err error) bool {
	var e *ServiceError
	return errors.As(err, &e)
}

// HTTPStatus returns the status code a front end should use when rendering
// err to a client.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsAuthentication(err):
		return http.StatusUnauthorized
	default:
		if _, ok := IsRateLimit(err); ok {
			return http.StatusTooManyRequests
		}
		return http.StatusBadGateway
	}
}
