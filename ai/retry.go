package ai

import (
	"context"
	"errors"
)

// ErrAttemptsExhausted is returned by Attempt when no attempt finished the work
var ErrAttemptsExhausted = errors.New("attempts exhausted")

// IsAttemptsExhausted reports whether err came from running out of attempts
func IsAttemptsExhausted(err error) bool {
	return errors.Is(err, ErrAttemptsExhausted)
}

// Attempt runs body at most maxAttempts times. Each attempt returns a value,
// whether the work is done, and an error that aborts immediately. The context
// is checked before every attempt. It returns the last value, the number of
// attempts made, and ErrAttemptsExhausted if no attempt reported done.
func Attempt[T any](ctx context.Context, maxAttempts int, body func(ctx context.Context, attempt int) (T, bool, error)) (T, int, error) {
	var last T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return last, attempt - 1, err
		}
		v, done, err := body(ctx, attempt)
		last = v
		if err != nil {
			return v, attempt, err
		}
		if done {
			return v, attempt, nil
		}
	}
	return last, maxAttempts, ErrAttemptsExhausted
}
