package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(ErrCodeNotFound, "User not found")
	assert.Equal(t, "NOT_FOUND: User not found", err.Error())

	wrapped := Wrap(ErrCodeDatabase, "query failed", fmt.Errorf("connection reset"))
	assert.Contains(t, wrapped.Error(), "connection reset")
	assert.EqualError(t, wrapped.Unwrap(), "connection reset")
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(MiningAlreadyActive())
	require.True(t, ok)
	assert.Equal(t, ErrCodeMiningAlreadyActive, appErr.Code)

	// Wrapping with fmt keeps the code reachable.
	wrapped := fmt.Errorf("start failed: %w", MiningAlreadyActive())
	appErr, ok = AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMiningAlreadyActive, appErr.Code)

	_, ok = AsAppError(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInsufficientPoints, GetCode(InsufficientPoints(28, 5)))
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("plain error")))
}

func TestInsufficientPointsDetails(t *testing.T) {
	err := InsufficientPoints(28, 5)
	details, ok := err.Details.(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 28, details["required"])
	assert.Equal(t, 5, details["available"])
}
