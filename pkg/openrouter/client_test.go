package openrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/stock-consensus/internal/resilience"
)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestChatCompletion_Success(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"id": "gen-123",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "PREDICTION: RISING"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160}
	}`)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model:    "openai/gpt-4o-mini",
		Messages: []Message{{Role: "user", Content: "analyze AAPL"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "gen-123", resp.ID)
	assert.Equal(t, "PREDICTION: RISING", resp.Choices[0].Message.Content)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
	assert.Equal(t, 160, resp.Usage.TotalTokens)
}

func TestChatCompletion_TruncatedFinishReason(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "PREDICTION: RIS"}, "finish_reason": "length"}],
		"usage": {"total_tokens": 1000}
	}`)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	require.NoError(t, err)
	assert.Equal(t, FinishReasonLength, resp.Choices[0].FinishReason)
}

func TestChatCompletion_BackendError(t *testing.T) {
	srv := newTestServer(t, http.StatusTooManyRequests, `{"error": {"message": "rate limit exceeded"}}`)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	require.Error(t, err)
	var be *resilience.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, http.StatusTooManyRequests, be.StatusCode)
	assert.True(t, be.Retryable())
}

func TestChatCompletion_InBodyError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"error": {"code": 502, "message": "upstream provider unavailable"}}`)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	require.Error(t, err)
	var be *resilience.BackendError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, 502, be.StatusCode)
}

func TestChatCompletion_TransportError(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{}`)
	srv.Close() // closed server forces a connection error

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	require.Error(t, err)
	var te *resilience.TransportError
	assert.True(t, errors.As(err, &te))
}

func TestChatCompletion_NoChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"choices": []}`)
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "m"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}
