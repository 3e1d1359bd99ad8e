package tracking

import (
	"errors"
	"fmt"
)

var (
	// ErrGraphQL is wrapped by every error the board API reports in its body.
	ErrGraphQL = errors.New("tracking: graphql error")

	// ErrInvalidItemID is returned for item ids that are not numeric.
	ErrInvalidItemID = errors.New("tracking: invalid item id")

	// ErrEmptyFile is returned when attaching a zero-length file.
	ErrEmptyFile = errors.New("tracking: empty file")
)

// StatusError is a non-2xx HTTP answer from the board API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracking: %s: status %d: %s", e.Operation, e.StatusCode, e.Body)
}
