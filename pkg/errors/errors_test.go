package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	stall := Clone(ErrAssignmentStall, "no teacher for SP")
	wrapped := fmt.Errorf("generate: %w", stall)
	assert.Same(t, stall, FromError(wrapped))

	plain := FromError(errors.New("disk full"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)
	assert.Equal(t, "internal server error: disk full", plain.Error())
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "run not found")
	assert.Equal(t, "run not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, ErrNotFound.Message, Clone(ErrNotFound, "").Message)
	assert.Nil(t, Clone(nil, "x"))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("tx aborted")
	err := Wrap(cause, ErrInternal.Code, ErrInternal.Status, "import failed")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "import failed: tx aborted", err.Error())
}
