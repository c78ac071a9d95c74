package api

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is a non-2xx response from the vendor API.
type HTTPError struct {
	Code int
	Body string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("api http error %d: %s", e.Code, e.Body)
	}
	return fmt.Sprintf("api http error %d", e.Code)
}

// SerializationError means the response body did not match the expected shape.
type SerializationError struct {
	Message string
	Err     error
}

func (e *SerializationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api serialization error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("api serialization error: %s", e.Message)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// GenericError is a network failure, timeout, or otherwise unclassified error.
type GenericError struct {
	Message string
	Err     error
}

func (e *GenericError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("api error: %s", e.Message)
}

func (e *GenericError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err is an HTTP 401 from the vendor API.
// A 401 means the session token expired or was revoked and a fresh login is
// needed.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.Code == http.StatusUnauthorized
}
