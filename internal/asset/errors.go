package asset

import (
	"errors"
	"strings"
)

// ErrInvalidPayload is the sentinel wrapped by every ValidationError.
var ErrInvalidPayload = errors.New("asset: invalid payload")

// ValidationError lists every problem found in an inbound envelope.
//
//	var verr *asset.ValidationError
//	if errors.As(err, &verr) {
//	    // reject with 400, nothing was touched
//	}
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrInvalidPayload.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}
