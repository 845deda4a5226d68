// Package company supplies optional company metadata used to enrich analysis
// prompts. Lookups are best effort; a failed lookup never blocks an
// instrument.
package company

import (
	"context"

	"github.com/quotelab/stock-consensus/internal/model"
)

// Provider resolves a ticker to company metadata.
type Provider interface {
	Info(ctx context.Context, ticker string) (*model.CompanyInfo, error)
}

// StaticProvider serves profiles from configuration. Unknown tickers return
// nil without error.
type StaticProvider struct {
	profiles map[string]model.CompanyInfo
}

// NewStaticProvider builds a provider over a ticker-keyed profile map.
func NewStaticProvider(profiles map[string]model.CompanyInfo) *StaticProvider {
	return &StaticProvider{profiles: profiles}
}

func (p *StaticProvider) Info(_ context.Context, ticker string) (*model.CompanyInfo, error) {
	info, ok := p.profiles[ticker]
	if !ok {
		return nil, nil
	}
	return &info, nil
}
