package luma

import (
	"errors"
	"fmt"
)

// ErrInvalidAPIKey wraps the verification failure returned when a newly
// supplied API key is rejected by the service.
var ErrInvalidAPIKey = errors.New("api key verification failed")

// HTTPError is any non-2xx response from the service, carrying the
// status code and raw body. Calls are never retried.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("received non-2xx status code: %d - %s", e.StatusCode, e.Body)
}

// MissingFieldError is a response payload lacking a field the record
// mapping requires.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}
