package dataclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Classification is the caller-actionable category of a terminal
// failure. It is the only thing callers should branch on.
type Classification string

const (
	ClassNotFound   Classification = "NOT_FOUND"
	ClassNetwork    Classification = "NETWORK_ERROR"
	ClassValidation Classification = "VALIDATION_ERROR"
	ClassTimeout    Classification = "TIMEOUT"
	ClassUnknown    Classification = "UNKNOWN"
)

// Error is the single structured error every failed operation returns.
type Error struct {
	// Op is the client operation that failed, e.g. "GetStudyData".
	Op string

	Classification Classification

	// StatusCode is the HTTP status of the final response, or zero when
	// no response was received.
	StatusCode int

	Message string

	// Err is the underlying transport error, when any.
	Err error

	// retryable records whether the failure class admits another
	// attempt. Set during classification, consumed by the retry loop.
	retryable bool
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Op, e.Classification, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Classification, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a timeout.
func (e *Error) Timeout() bool { return e.Classification == ClassTimeout }

// classifyStatus maps a non-2xx HTTP status to a classification and a
// retry verdict. Server-side failures (429, 500, 502, 503, 504) are
// retried; everything in the 4xx family is terminal on first sight.
func classifyStatus(status int) (Classification, bool) {
	switch status {
	case http.StatusNotFound:
		return ClassNotFound, false
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusMethodNotAllowed:
		return ClassValidation, false
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ClassTimeout, true
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return ClassUnknown, true
	default:
		if status >= 500 {
			return ClassUnknown, true
		}
		return ClassUnknown, false
	}
}

// classifyTransport maps a failure that produced no HTTP response.
// Deadline-style failures are timeouts; everything else is a network
// error. Both are worth another attempt as long as the context lives.
func classifyTransport(err error) (Classification, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTimeout, true
	}
	if errors.Is(err, context.Canceled) {
		return ClassNetwork, false
	}
	return ClassNetwork, true
}
