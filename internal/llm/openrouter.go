package llm

import (
	"context"

	"github.com/quotelab/stock-consensus/pkg/openrouter"
)

// openrouterGateway adapts the OpenRouter chat-completions client to the
// Gateway interface.
type openrouterGateway struct {
	client openrouter.Client
}

// NewOpenRouterGateway wraps an OpenRouter client as a Gateway.
func NewOpenRouterGateway(client openrouter.Client) Gateway {
	return &openrouterGateway{client: client}
}

func (g *openrouterGateway) Complete(ctx context.Context, req Request) (*RawAnswer, error) {
	messages := make([]openrouter.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, openrouter.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, openrouter.Message{Role: "user", Content: req.User})

	ccReq := openrouter.ChatCompletionRequest{
		Model:    req.ModelID,
		Messages: messages,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		ccReq.Temperature = &temp
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		ccReq.MaxTokens = &maxTokens
	}

	resp, err := g.client.ChatCompletion(ctx, ccReq)
	if err != nil {
		return nil, err
	}

	choice := resp.Choices[0]
	return &RawAnswer{
		Text:       choice.Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Truncated:  choice.FinishReason == openrouter.FinishReasonLength,
	}, nil
}
