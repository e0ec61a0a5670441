package dErrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	err := New(CodeNotFound, "lead not found")
	assert.True(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(nil, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeInternal, "failed to save client")

	require.Error(t, err)
	assert.True(t, HasCode(err, CodeInternal))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to save client")
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("handler: %w", New(CodeSerialization, "unsupported snapshot value"))
	assert.True(t, HasCode(err, CodeSerialization))
	assert.Equal(t, CodeSerialization, CodeOf(err))
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeBadRequest:    http.StatusBadRequest,
		CodeValidation:    http.StatusBadRequest,
		CodeUnauthorized:  http.StatusUnauthorized,
		CodeForbidden:     http.StatusForbidden,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeTimeout:       http.StatusGatewayTimeout,
		CodeSerialization: http.StatusInternalServerError,
		CodeInternal:      http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
