package lansweeper

import (
	"fmt"
	"strings"
)

// APIError is returned when a call completed but the service reported an
// application-level error payload. These are never retried.
type APIError struct {
	// Messages contains the error messages from the GraphQL errors array.
	Messages []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("service rejected request: %s", strings.Join(e.Messages, "; "))
}

// TransportError is returned when a call could not complete: connection
// failures, timeouts, or non-2xx HTTP responses.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
