package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/stock-consensus/pkg/anthropic"
	"github.com/quotelab/stock-consensus/pkg/openrouter"
)

type mockOpenRouterClient struct {
	mock.Mock
}

func (m *mockOpenRouterClient) ChatCompletion(ctx context.Context, req openrouter.ChatCompletionRequest) (*openrouter.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openrouter.ChatCompletionResponse), args.Error(1)
}

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestOpenRouterGateway_MapsResponse(t *testing.T) {
	ctx := context.Background()
	client := &mockOpenRouterClient{}
	client.On("ChatCompletion", ctx, mock.AnythingOfType("openrouter.ChatCompletionRequest")).
		Return(&openrouter.ChatCompletionResponse{
			Choices: []openrouter.Choice{{
				Message:      openrouter.Message{Role: "assistant", Content: "PREDICTION: RISING"},
				FinishReason: "stop",
			}},
			Usage: openrouter.Usage{TotalTokens: 210},
		}, nil)

	g := NewOpenRouterGateway(client)
	raw, err := g.Complete(ctx, Request{ModelID: "openai/gpt-4o-mini", System: "sys", User: "prompt", Temperature: 0.3, MaxTokens: 2000})

	require.NoError(t, err)
	assert.Equal(t, "PREDICTION: RISING", raw.Text)
	assert.Equal(t, 210, raw.TokensUsed)
	assert.False(t, raw.Truncated)
	client.AssertExpectations(t)
}

func TestOpenRouterGateway_TruncatedOnLengthFinish(t *testing.T) {
	ctx := context.Background()
	client := &mockOpenRouterClient{}
	client.On("ChatCompletion", ctx, mock.Anything).
		Return(&openrouter.ChatCompletionResponse{
			Choices: []openrouter.Choice{{
				Message:      openrouter.Message{Content: "PREDICTION: RIS"},
				FinishReason: "length",
			}},
		}, nil)

	g := NewOpenRouterGateway(client)
	raw, err := g.Complete(ctx, Request{ModelID: "m", User: "p"})

	require.NoError(t, err)
	assert.True(t, raw.Truncated)
}

func TestOpenRouterGateway_SystemMessageFirst(t *testing.T) {
	ctx := context.Background()
	client := &mockOpenRouterClient{}
	client.On("ChatCompletion", ctx, mock.MatchedBy(func(req openrouter.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 &&
			req.Messages[0].Role == "system" &&
			req.Messages[1].Role == "user"
	})).Return(&openrouter.ChatCompletionResponse{
		Choices: []openrouter.Choice{{Message: openrouter.Message{Content: "ok"}}},
	}, nil)

	g := NewOpenRouterGateway(client)
	_, err := g.Complete(ctx, Request{ModelID: "m", System: "sys", User: "p"})

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestAnthropicGateway_TruncatedOnMaxTokens(t *testing.T) {
	ctx := context.Background()
	client := &mockAnthropicClient{}
	client.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(&anthropic.MessageResponse{
			Text:       "PREDICTION: STAB",
			StopReason: "max_tokens",
			Usage:      anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
		}, nil)

	g := NewAnthropicGateway(client)
	raw, err := g.Complete(ctx, Request{ModelID: "claude-haiku-4-5-20251001", User: "p", MaxTokens: 50})

	require.NoError(t, err)
	assert.True(t, raw.Truncated)
	assert.Equal(t, 150, raw.TokensUsed)
}

func TestRegistry_DefaultProvider(t *testing.T) {
	reg := NewRegistry()
	g := NewOpenRouterGateway(&mockOpenRouterClient{})
	reg.Register(DefaultProvider, g)

	got, err := reg.ForProvider("")
	require.NoError(t, err)
	assert.Same(t, g, got)

	_, err = reg.ForProvider("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
