package engine

import (
	"errors"
	"fmt"

	"github.com/rshade/pricehound/internal/marketplace"
)

// ErrQuery is matched by every *QueryError.
var ErrQuery = errors.New("query error")

// QueryError reports a malformed query or a failure acknowledged by the
// remote search service. It is recoverable: the interactive loop reports it
// and keeps accepting queries.
type QueryError struct {
	Msg string
	Err error
}

func (e *QueryError) Error() string {
	return e.Msg
}

// Unwrap exposes ErrQuery and the underlying cause.
func (e *QueryError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrQuery}
	}
	return []error{ErrQuery, e.Err}
}

func newQueryError(format string, args ...any) *QueryError {
	return &QueryError{Msg: fmt.Sprintf(format, args...)}
}

// remoteFailure wraps a failure acknowledgement's message.
func remoteFailure(message string) *QueryError {
	return &QueryError{
		Msg: "ebay error - " + message,
		Err: marketplace.ErrRemoteFailure,
	}
}
