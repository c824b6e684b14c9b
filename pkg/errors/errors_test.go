package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrCyclicDependency, "tasks 1, 2 form a cycle"))
	appErr := FromError(wrapped)
	assert.Equal(t, "CYCLIC_DEPENDENCY", appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.Status)
	assert.Equal(t, "tasks 1, 2 form a cycle", appErr.Message)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.EqualError(t, plain, "internal server error: boom")
	assert.Nil(t, FromError(nil))
}

func TestCloneDoesNotMutateOriginal(t *testing.T) {
	clone := Clone(ErrValidation, "start must be HH:MM")
	assert.Equal(t, "validation failed", ErrValidation.Message)
	assert.Equal(t, "start must be HH:MM", clone.Message)
	assert.Nil(t, Clone(nil, "x"))
	assert.Same(t, ErrNotFound, FromError(ErrNotFound))
}

func TestIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrNotFound, "plan not found")
	assert.True(t, errors.Is(fmt.Errorf("lookup: %w", clone), ErrNotFound))
	assert.False(t, errors.Is(clone, ErrForbidden))
	assert.False(t, errors.Is(errors.New("plain"), ErrNotFound))
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := ErrCyclicDependency.WithDetails(map[string]interface{}{"taskIds": []int{1, 2}})
	assert.Nil(t, ErrCyclicDependency.Details)
	assert.Equal(t, []int{1, 2}, detailed.Details["taskIds"])
	assert.Equal(t, ErrCyclicDependency.Code, detailed.Code)
	var nilErr *Error
	assert.Nil(t, nilErr.WithDetails(nil))
}
