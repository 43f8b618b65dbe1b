package ghapi

import (
	"errors"
	"fmt"
)

// ErrAPI is matched by every [APIError].
var ErrAPI = errors.New("unable to request data from api")

// APIError is returned once every attempt against the API has failed.
// It unwraps to both [ErrAPI] and the last failure.
type APIError struct {
	URL string
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrAPI, e.URL, e.Err)
}

func (e *APIError) Unwrap() []error {
	return []error{ErrAPI, e.Err}
}
