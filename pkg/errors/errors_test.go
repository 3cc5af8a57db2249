package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesWrappedAppErrors(t *testing.T) {
	err := fmt.Errorf("call failed: %w", NewProviderParseError("SAFETY"))

	assert.True(t, Is(err, ErrProviderParse))
	assert.False(t, Is(err, ErrProviderHTTP))
	assert.False(t, Is(fmt.Errorf("plain"), ErrProviderParse))
}

func TestProviderHTTPErrorKeepsStatus(t *testing.T) {
	err := NewProviderHTTPError(http.StatusTooManyRequests, "")

	assert.Equal(t, "Too Many Requests", err.Message)
	status, ok := ProviderStatus(fmt.Errorf("wrap: %w", err))
	require.True(t, ok)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	appErr := FromError(fmt.Errorf("boom"))

	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.Equal(t, "INTERNAL_ERROR", appErr.Code)
	assert.Nil(t, FromError(nil))
}

func TestTokenLimitDetails(t *testing.T) {
	err := NewTokenLimitExceededError(1200, 1000)

	assert.Equal(t, CodeTokenLimitExceeded, GetErrorCode(err))
	assert.Equal(t, map[string]int{"tokens": 1200, "limit": 1000}, err.Details)
}
