package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, ValidationError("bad").HTTPStatus())
	assert.Equal(t, http.StatusNotFound, NotFoundError("gone").HTTPStatus())
	assert.Equal(t, http.StatusConflict, ConflictError("taken").HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, InternalError("boom", nil).HTTPStatus())
}

func TestErrorMessageIncludesCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := InternalError("failed to load session", cause)

	assert.Contains(t, err.Error(), "failed to load session")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, cause)
}

func TestWithContext(t *testing.T) {
	err := NotFoundError("session not found").
		WithField("session_id", "SS1").
		WithContext("ward_id", "W1")

	resp := err.ToResponse()
	assert.Equal(t, "session not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, "SS1", resp.Context["session_id"])
	assert.Equal(t, "W1", resp.Context["ward_id"])
}

func TestAsStructuredError(t *testing.T) {
	structured := ConflictError("duplicate")
	assert.Same(t, structured, AsStructuredError(structured))

	wrapped := AsStructuredError(fmt.Errorf("plain failure"))
	require.NotNil(t, wrapped)
	assert.Equal(t, TypeInternal, wrapped.Type)

	assert.Nil(t, AsStructuredError(nil))
}
