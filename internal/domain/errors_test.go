package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorError(t *testing.T) {
	err := NewAPIError(ErrInvalidInput, "record text is empty", "", "req-1")
	assert.Equal(t, "INVALID_INPUT: record text is empty", err.Error())
	assert.False(t, err.Timestamp.IsZero())
	assert.Equal(t, "req-1", err.RequestID)
}

func TestValidationErrorError(t *testing.T) {
	err := NewValidationError("drug", "unsupported drug", "ASPIRIN")
	assert.Equal(t, "validation error for field 'drug': unsupported drug", err.Error())
	assert.Equal(t, "ASPIRIN", err.Value)
}
