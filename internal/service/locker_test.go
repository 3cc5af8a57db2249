package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YEJIN-DEV/yejingram-sub001/internal/service"
	apperrors "github.com/YEJIN-DEV/yejingram-sub001/pkg/errors"
)

func TestMemoryRoomLocker(t *testing.T) {
	l := service.NewMemoryRoomLocker()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "r1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "r1")
	assert.True(t, apperrors.Is(err, apperrors.ErrRoomBusy))

	other, err := l.Acquire(ctx, "r2")
	require.NoError(t, err)
	defer other()

	release()
	release()

	again, err := l.Acquire(ctx, "r1")
	require.NoError(t, err)
	again()
	assert.False(t, l.Busy("r1"))
	assert.True(t, l.Busy("r2"))
}
