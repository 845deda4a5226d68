// Package llm defines the single-call gateway surface between the analysis
// engine and the model backends. A gateway performs exactly one
// request/response exchange; all orchestration (stagger, fan-out, retry)
// lives above it.
package llm

import "context"

// Request describes one chat-completion exchange with one model.
type Request struct {
	ModelID     string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// RawAnswer is the unparsed result of one model call. Truncated is set when
// the backend reports the completion was cut off by the token budget; the
// trust validator unconditionally downgrades truncated answers.
type RawAnswer struct {
	Text       string
	TokensUsed int
	Truncated  bool
}

// Gateway sends one prompt to one model backend. Failures are reported as
// *resilience.TransportError (network/timeout) or *resilience.BackendError
// (explicit API error).
type Gateway interface {
	Complete(ctx context.Context, req Request) (*RawAnswer, error)
}
