package recognition

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// TransportError is any failure talking to the recognition service: network,
// timeout, unexpected status or an undecodable body.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("recognition %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("recognition %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the call gave up waiting for the service.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsTransportError reports whether err came from the recognition transport.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
