package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors matched by *APIError through errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")
)

// APIError is a non-2xx response from the REST API.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	// RateLimitReset is when the primary rate limit window resets; zero when
	// the response did not carry it.
	RateLimitReset time.Time
	rateLimited    bool
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.rateLimited && !e.RateLimitReset.IsZero() {
		msg += fmt.Sprintf(" (resets %s)", e.RateLimitReset.Format(time.Kitchen))
	}
	return msg
}

// Is maps the status code onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.rateLimited
	case ErrNotFound:
		// Expired job logs answer 410.
		return e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden && !e.rateLimited
	}
	return false
}

// Describe renders err for humans, naming the failure class when known.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "GitHub rate limit exceeded: " + err.Error()
	case errors.Is(err, ErrUnauthorized):
		return "GitHub rejected the token (check token or GITHUB_TOKEN): " + err.Error()
	case errors.Is(err, ErrForbidden):
		return "token lacks permission: " + err.Error()
	case errors.Is(err, ErrNotFound):
		return "not found or no access: " + err.Error()
	default:
		return err.Error()
	}
}
