// Package testutil provides polling utilities for testing asynchronous operations
// with consistent timeouts and error handling.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTickLimit is returned by TickUntil when the tick budget runs out.
var ErrTickLimit = errors.New("tick limit reached")

// Poll repeatedly checks a condition until it becomes true or timeout expires.
// Returns an error if timeout expires before condition becomes true.
func Poll(ctx context.Context, condition func() bool, timeout time.Duration, interval time.Duration) error {
	start := time.Now()
	for {
		if condition() {
			return nil
		}

		if time.Since(start) >= timeout {
			return fmt.Errorf("timeout waiting for condition (threshold: %v)", timeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// WaitForState waits until the state getter returns a value that satisfies
// the predicate function, or timeout expires.
//
// Example usage:
//
//	status, err := WaitForState(ctx, root.Status,
//		func(s tree.Status) bool { return s == tree.StatusFailure },
//		5*time.Second,
//		10*time.Millisecond)
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout time.Duration, interval time.Duration) (T, error) {
	start := time.Now()
	for {
		state := getter()

		if predicate(state) {
			return state, nil
		}

		if time.Since(start) >= timeout {
			var zero T
			return zero, fmt.Errorf("timeout waiting for target state (type %T, threshold: %v)", *new(T), timeout)
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// TickUntil calls tick until it reports done, returning the number of calls
// made. It stops early on the first error, and fails with ErrTickLimit after
// limit calls. Tree roots fit directly:
//
//	n, err := TickUntil(func() (bool, error) {
//		done, _, err := root.TickReEnter(false)
//		return done, err
//	}, 100)
func TickUntil(tick func() (bool, error), limit int) (int, error) {
	for i := 1; i <= limit; i++ {
		done, err := tick()
		if err != nil {
			return i, err
		}
		if done {
			return i, nil
		}
	}
	return limit, fmt.Errorf("%w after %d ticks", ErrTickLimit, limit)
}

// WithTimeoutContext creates a context that automatically cancels
// after the specified duration.
func WithTimeoutContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}
