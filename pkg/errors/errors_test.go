package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	plain := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, plain.Code)
	assert.Equal(t, http.StatusInternalServerError, plain.Status)

	cause := errors.New("no rooms")
	wrapped := Wrap(cause, ErrInfeasible.Code, ErrInfeasible.Status, "insufficient rooms")
	assert.Same(t, wrapped, FromError(fmt.Errorf("generate: %w", wrapped)))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "insufficient rooms: no rooms", wrapped.Error())
}

func TestCloneKeepsOriginal(t *testing.T) {
	clone := Clone(ErrNotFound, "proposal not found or expired")
	assert.Equal(t, "proposal not found or expired", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, ErrNotFound.Status, clone.Status)
	assert.Nil(t, Clone(nil, "x"))
}

func TestIsMatchesByCode(t *testing.T) {
	clone := Clone(ErrConflict, "cannot move timetable from ARCHIVED to APPROVED")
	assert.ErrorIs(t, clone, ErrConflict)
	assert.NotErrorIs(t, clone, ErrNotFound)
	assert.ErrorIs(t, fmt.Errorf("update: %w", clone), ErrConflict)
}

func TestWithDetails(t *testing.T) {
	details := map[string]int{"no_free_room": 12}
	withDetails := ErrInfeasible.WithDetails(details)
	require.NotNil(t, withDetails)
	assert.Equal(t, details, withDetails.Details)
	assert.Nil(t, ErrInfeasible.Details)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusOf(nil))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(ErrInfeasible))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
}
