package proxy

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNoAPIKey is returned before any request when the client has no key.
var ErrNoAPIKey = errors.New("openrouter: no API key configured")

// StatusError is a non-2xx answer from the upstream API.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Status == http.StatusTooManyRequests {
		return fmt.Sprintf("rate limited (HTTP %d)", e.Status)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// IsRateLimit reports an HTTP 429.
func IsRateLimit(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusTooManyRequests
}

// IsAuth reports a rejected or missing credential.
func IsAuth(err error) bool {
	if errors.Is(err, ErrNoAPIKey) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden)
}

// IsQuota reports an exhausted credit balance.
func IsQuota(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusPaymentRequired
}

// IsUnknownModel reports a request naming a model the upstream does not serve.
func IsUnknownModel(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.Status == http.StatusNotFound {
		return true
	}
	body := strings.ToLower(se.Body)
	return se.Status == http.StatusBadRequest && strings.Contains(body, "model") &&
		(strings.Contains(body, "not a valid") || strings.Contains(body, "not found") || strings.Contains(body, "unknown"))
}
