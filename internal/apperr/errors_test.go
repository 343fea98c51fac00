package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("resolve: %w", TaskNotFound(42))

	assert.ErrorIs(t, err, ErrTaskNotFound)
	assert.NotErrorIs(t, err, ErrAgentNotFound)
	assert.Contains(t, err.Error(), "42")
}

func TestAs(t *testing.T) {
	cause := errors.New("bad token")
	e, ok := As(fmt.Errorf("wrapped: %w", InvalidIdentifier("task", cause)))
	assert.True(t, ok)
	assert.Equal(t, CodeInvalidIdentifier, e.Code)
	assert.ErrorIs(t, e, cause)

	_, ok = As(errors.New("disk full"))
	assert.False(t, ok)
}

func TestValidationFailedCarriesFields(t *testing.T) {
	e := ValidationFailed(map[string]string{"latitude": "is required"})
	assert.Equal(t, CodeValidationFailed, e.Code)
	assert.Equal(t, "is required", e.Fields["latitude"])
}
