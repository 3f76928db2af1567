package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkSurvivesWrapping(t *testing.T) {
	err := NewErrorf("page %d failed", 3).
		WithHint("check the data host").
		Mark(ErrDataAccess)
	wrapped := fmt.Errorf("extract: %w", err)

	assert.True(t, IsDataAccess(wrapped))
	assert.False(t, IsAuthentication(wrapped))
	assert.Equal(t, []string{"check the data host"}, Hints(wrapped))
	assert.Contains(t, wrapped.Error(), "page 3 failed")
}

func TestHTTPStatusFromErr(t *testing.T) {
	tests := []struct {
		mark error
		want int
	}{
		{ErrValidation, http.StatusBadRequest},
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyRunning, http.StatusConflict},
		{ErrAuthentication, http.StatusBadGateway},
		{ErrDatabase, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.mark.Error(), func(t *testing.T) {
			err := NewError("boom").Mark(tt.mark)
			assert.Equal(t, tt.want, HTTPStatusFromErr(err))
		})
	}

	assert.Equal(t, http.StatusInternalServerError, HTTPStatusFromErr(fmt.Errorf("plain")))
}

func TestHTTPStatusFromErr_SeveralMarks(t *testing.T) {
	inner := NewError("no such run").Mark(ErrNotFound)
	err := WithError(inner).WithMessage("lookup failed").Mark(ErrDatabase)

	for i := 0; i < 50; i++ {
		assert.Equal(t, http.StatusNotFound, HTTPStatusFromErr(err))
	}
}
