package llm

import (
	"context"

	"github.com/quotelab/stock-consensus/pkg/anthropic"
)

// anthropicGateway adapts the Anthropic SDK client to the Gateway interface.
type anthropicGateway struct {
	client anthropic.Client
}

// NewAnthropicGateway wraps an Anthropic client as a Gateway.
func NewAnthropicGateway(client anthropic.Client) Gateway {
	return &anthropicGateway{client: client}
}

func (g *anthropicGateway) Complete(ctx context.Context, req Request) (*RawAnswer, error) {
	msgReq := anthropic.MessageRequest{
		Model:     req.ModelID,
		MaxTokens: int64(req.MaxTokens),
		System:    req.System,
		Messages:  []anthropic.Message{{Role: "user", Content: req.User}},
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		msgReq.Temperature = &temp
	}

	resp, err := g.client.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, err
	}

	return &RawAnswer{
		Text:       resp.Text,
		TokensUsed: int(resp.Usage.Total()),
		Truncated:  resp.StopReason == anthropic.StopReasonMaxTokens,
	}, nil
}
