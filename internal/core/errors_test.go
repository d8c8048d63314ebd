package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelayErrorStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      *RelayError
		expected int
	}{
		{"validation maps to 400", NewValidationError("bad body", nil), http.StatusBadRequest},
		{"rate limit maps to 429", NewRateLimitError("too many requests"), http.StatusTooManyRequests},
		{"upstream auth maps to 500", NewUpstreamAuthError("openrouter", "missing key"), http.StatusInternalServerError},
		{"upstream maps to 500", NewUpstreamError("openrouter", "connection reset", nil), http.StatusInternalServerError},
		{"tool execution maps to 500 if it escapes", NewToolExecutionError("searchBooks", "catalog down", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.HTTPStatusCode())
		})
	}
}

func TestRelayErrorMessage(t *testing.T) {
	err := NewUpstreamError("openrouter", "connection reset", nil)
	assert.Equal(t, "[openrouter] upstream_error: connection reset", err.Error())

	plain := NewValidationError("messages must be an array", nil)
	assert.Equal(t, "validation_error: messages must be an array", plain.Error())
}

func TestRelayErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewUpstreamError("openrouter", "request failed", cause)

	require.ErrorIs(t, err, cause)

	var relayErr *RelayError
	require.ErrorAs(t, error(err), &relayErr)
	assert.Equal(t, ErrorKindUpstream, relayErr.Kind)
}

func TestRelayErrorToJSON(t *testing.T) {
	err := NewRateLimitError("slow down")
	body := err.ToJSON()

	inner, ok := body["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, ErrorKindRateLimit, inner["type"])
	assert.Equal(t, "slow down", inner["message"])
}

func TestClassifyUpstreamStatus(t *testing.T) {
	authErr := ClassifyUpstreamStatus("books", http.StatusUnauthorized, "API key not valid")
	assert.Equal(t, ErrorKindUpstreamAuth, authErr.Kind)

	forbidden := ClassifyUpstreamStatus("books", http.StatusForbidden, "quota exceeded")
	assert.Equal(t, ErrorKindUpstreamAuth, forbidden.Kind)

	serverErr := ClassifyUpstreamStatus("books", http.StatusBadGateway, "upstream down")
	assert.Equal(t, ErrorKindUpstream, serverErr.Kind)
}
