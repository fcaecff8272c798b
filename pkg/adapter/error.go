package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// CallError wraps provider errors with status metadata.
type CallError struct {
	Status    int
	Temporary bool
	Err       error
}

func (e *CallError) Error() string {
	if e == nil {
		return "adapter call error"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("adapter call error (status=%d)", e.Status)
}

func (e *CallError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsTransient reports whether an error is safe to retry.
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
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var callErr *CallError
	if errors.As(err, &callErr) {
		if callErr.Temporary {
			return true
		}
		if callErr.Status == 429 || (callErr.Status >= 500 && callErr.Status <= 599) {
			return true
		}
	}
	return false
}
