package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInsufficientStock_Details(t *testing.T) {
	err := NewInsufficientStock("Acme", "X1", 8, 5)

	assert.Equal(t, CodeInsufficientStock, err.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, err.HTTPStatus)
	assert.Equal(t, int64(3), err.Details["shortage"])
	assert.Equal(t, int64(8), err.Details["requested"])
	assert.Equal(t, int64(5), err.Details["available"])
}

func TestPredicates_ThroughWrapping(t *testing.T) {
	base := NewDependencyUnavailable("decrease batch", errors.New("connection reset"))
	wrapped := fmt.Errorf("allocate: %w", base)

	assert.True(t, IsDependencyUnavailable(wrapped))
	assert.False(t, IsInconsistentState(wrapped))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(wrapped))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Contains(t, appErr.Error(), "connection reset")
}

func TestGetHTTPStatus_PlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(errors.New("boom")))
	assert.False(t, IsNotFound(errors.New("boom")))
}

func TestWithDetail(t *testing.T) {
	err := NewValidation("bad").WithDetail("field", "brand")
	assert.Equal(t, "brand", err.Details["field"])
}
