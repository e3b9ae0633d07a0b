package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClonedSentinelsMatchByCode(t *testing.T) {
	conflict := WithDetails(ErrConflict, "appointment overlaps", map[string]string{"existing_id": "a1"})
	assert.True(t, errors.Is(conflict, ErrConflict))
	assert.False(t, errors.Is(conflict, ErrNotFound))
	assert.Equal(t, "conflict", ErrConflict.Message)
	assert.Nil(t, ErrConflict.Details)
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("loading: %w", Clone(ErrNotFound, "customer not found"))
	assert.Equal(t, http.StatusNotFound, FromError(wrapped).Status)

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, "internal server error: boom", plain.Error())
}

func TestInvalidAndStorage(t *testing.T) {
	bare := Invalid("bad input")
	assert.Nil(t, bare.Details)

	fields := Invalid("validation failed", FieldError{Field: "email", Message: "has already been taken"})
	assert.True(t, IsCode(fields, ErrValidation.Code))
	assert.Len(t, fields.Details, 1)

	cause := errors.New("connection refused")
	storage := Storage(cause, "failed to list customers")
	assert.Equal(t, http.StatusInternalServerError, storage.Status)
	assert.ErrorIs(t, storage, cause)
	assert.False(t, IsCode(cause, ErrStorage.Code))
}
