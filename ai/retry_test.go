package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttemptStopsWhenDone(t *testing.T) {
	calls := 0
	v, n, err := Attempt(context.Background(), 5, func(_ context.Context, attempt int) (int, bool, error) {
		calls++
		return attempt * 10, attempt == 2, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, calls)
}

func TestAttemptExhausts(t *testing.T) {
	v, n, err := Attempt(context.Background(), 3, func(_ context.Context, attempt int) (int, bool, error) {
		return attempt, false, nil
	})

	assert.True(t, IsAttemptsExhausted(err))
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, n)
}

func TestAttemptAbortsOnError(t *testing.T) {
	boom := errors.New("boom")
	_, n, err := Attempt(context.Background(), 3, func(_ context.Context, _ int) (int, bool, error) {
		return 0, false, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestAttemptChecksContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, n, err := Attempt(ctx, 3, func(_ context.Context, _ int) (int, bool, error) {
		calls++
		cancel()
		return 0, false, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, calls)
}
