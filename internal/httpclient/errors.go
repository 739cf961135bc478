package httpclient

import (
	"errors"
	"fmt"
)

// ErrRetriesExhausted is matched by errors.Is on every *ExhaustedError.
var ErrRetriesExhausted = errors.New("retries exhausted")

// ClientRequestError is a terminal non-2xx response (4xx other than 429, or
// an unfollowed 1xx/3xx). It is returned after exactly one attempt.
type ClientRequestError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *ClientRequestError) Error() string {
	return fmt.Sprintf("%s %s: client error: status %d", e.Method, e.URL, e.StatusCode)
}

// ServerError is a retryable status response: 429 or any 5xx.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s %s: server error: status %d", e.Method, e.URL, e.StatusCode)
}

// TransportError is a failure below HTTP: connection refused or reset, DNS
// failure, timeout, or cancellation of the caller's context.
type TransportError struct {
	Method string
	URL    string
	Cause  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: transport error: %v", e.Method, e.URL, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// ResponseFormatError is a 2xx response whose body is not a JSON object.
type ResponseFormatError struct {
	Method string
	URL    string
	Cause  error
}

func (e *ResponseFormatError) Error() string {
	return fmt.Sprintf("%s %s: response is not a JSON object: %v", e.Method, e.URL, e.Cause)
}

func (e *ResponseFormatError) Unwrap() error { return e.Cause }

// ExhaustedError reports that every allowed attempt failed retryably. Last is
// the final *ServerError or *TransportError.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Is reports whether target is ErrRetriesExhausted.
func (e *ExhaustedError) Is(target error) bool { return target == ErrRetriesExhausted }
