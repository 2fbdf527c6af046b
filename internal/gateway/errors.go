package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Upstream failures are classified by status code so callers can decide
// between retrying and surfacing the failure.
var (
	ErrInvalidRequest = errors.New("gateway_invalid_request")
	ErrUnauthorized   = errors.New("gateway_unauthorized")
	ErrNotFound       = errors.New("gateway_not_found")
	ErrRateLimited    = errors.New("gateway_rate_limited")
	ErrUnavailable    = errors.New("gateway_unavailable")
)

func classifyStatus(status int, message string) error {
	if message == "" {
		message = http.StatusText(status)
	}
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, message)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, message)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, message)
	case status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrUnavailable, message)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, message)
	}
}
