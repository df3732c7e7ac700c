package errors

import (
	stdErrors "errors"
	"fmt"
)

// FetchFailedMessage is shown to the user whenever a catalog request fails.
const FetchFailedMessage = "An error occurred while fetching books. Please try again."

// FetchFailedError represents a failed catalog request: a transport error,
// a non-2xx response, or a body that could not be decoded.
type FetchFailedError struct {
	Message    string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *FetchFailedError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch failed (HTTP %d): %v", e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch failed (HTTP %d)", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch failed: %v", e.Err)
	}
	return "fetch failed"
}

func (e *FetchFailedError) Unwrap() error {
	return e.Err
}

// NewFetchFailedError wraps cause with the standard user-facing message.
func NewFetchFailedError(statusCode int, cause error) *FetchFailedError {
	return &FetchFailedError{
		Message:    FetchFailedMessage,
		StatusCode: statusCode,
		Err:        cause,
	}
}

// IsFetchFailed reports whether err is a FetchFailedError (even when wrapped).
func IsFetchFailed(err error) bool {
	var fetchErr *FetchFailedError
	return stdErrors.As(err, &fetchErr)
}

// UserMessage returns the message to show for err. Fetch failures get their
// generic message; anything else falls back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var fetchErr *FetchFailedError
	if stdErrors.As(err, &fetchErr) && fetchErr.Message != "" {
		return fetchErr.Message
	}
	return err.Error()
}
