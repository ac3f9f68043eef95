package push

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// SendError classifies push delivery failures. EndpointGone marks the
// subscription as permanently invalid; Transient marks failures worth a
// retry on a later cycle.
type SendError struct {
	StatusCode   int
	Message      string
	EndpointGone bool
	Transient    bool
	Cause        error
}

func (e *SendError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, "push send error")

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *SendError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsEndpointGone reports whether the endpoint should be removed from the
// registry. Only an explicit provider classification counts.
func IsEndpointGone(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.EndpointGone
}

// IsTransient reports whether a delivery failure may succeed on a later cycle.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Transient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
