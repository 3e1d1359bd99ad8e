package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed is wrapped by every HTTPError.
	ErrRequestFailed = errors.New("registry: request failed")

	// ErrDeviceNotFound is returned when the registry has no device for a serial.
	ErrDeviceNotFound = errors.New("registry: device not found")

	// ErrNoToken is returned when the token endpoint answers without an access token.
	ErrNoToken = errors.New("registry: no access token in response")
)

// HTTPError describes a non-2xx answer from the registry.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("registry: %s %s: status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("registry: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return ErrRequestFailed
}
