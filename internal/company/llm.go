package company

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/quotelab/stock-consensus/internal/llm"
	"github.com/quotelab/stock-consensus/internal/model"
)

const profileSystemPrompt = "You are a financial data assistant. " +
	"Answer with a single short paragraph describing the company behind the given stock ticker: " +
	"what it does, its sector, and its industry. Do not include predictions or opinions."

// LLMProvider asks a configured model for a one-paragraph company profile.
// Results are cached per ticker for the process lifetime.
type LLMProvider struct {
	gateway llm.Gateway
	cfg     model.ModelConfig

	mu    sync.Mutex
	cache map[string]*model.CompanyInfo
}

// NewLLMProvider builds a provider over one gateway and model.
func NewLLMProvider(gateway llm.Gateway, cfg model.ModelConfig) *LLMProvider {
	return &LLMProvider{
		gateway: gateway,
		cfg:     cfg,
		cache:   make(map[string]*model.CompanyInfo),
	}
}

func (p *LLMProvider) Info(ctx context.Context, ticker string) (*model.CompanyInfo, error) {
	p.mu.Lock()
	if info, ok := p.cache[ticker]; ok {
		p.mu.Unlock()
		return info, nil
	}
	p.mu.Unlock()

	raw, err := p.gateway.Complete(ctx, llm.Request{
		ModelID:     p.cfg.ID,
		System:      profileSystemPrompt,
		User:        "Ticker: " + ticker,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "company: profile lookup %s", ticker)
	}

	desc := strings.TrimSpace(raw.Text)
	if desc == "" {
		return nil, eris.Errorf("company: empty profile for %s", ticker)
	}
	info := &model.CompanyInfo{
		Name:        ticker,
		Description: desc,
	}

	zap.L().Debug("company: profile resolved",
		zap.String("ticker", ticker),
		zap.Int("tokens", raw.TokensUsed),
	)

	p.mu.Lock()
	p.cache[ticker] = info
	p.mu.Unlock()
	return info, nil
}
