package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/stock-consensus/internal/model"
)

const testTemplate = `Analyze {ticker}: price ${price}, change {change}, volume {volume}.
Additional information: {additional_info}`

func TestPromptBuilder_Build(t *testing.T) {
	b, err := NewPromptBuilder(testTemplate)
	require.NoError(t, err)

	prompt := b.Build(model.Instrument{
		Ticker:        "AAPL",
		Price:         185.5,
		ChangePercent: -2.35,
		Volume:        75_000_000,
	}, "earnings next week")

	assert.Contains(t, prompt, "Analyze AAPL")
	assert.Contains(t, prompt, "price $185.50")
	assert.Contains(t, prompt, "change -2.35%")
	assert.Contains(t, prompt, "volume 75000000")
	assert.Contains(t, prompt, "Additional information: earnings next week")
}

func TestPromptBuilder_PositiveChangeKeepsSign(t *testing.T) {
	b, err := NewPromptBuilder(testTemplate)
	require.NoError(t, err)

	prompt := b.Build(model.Instrument{Ticker: "MSFT", Price: 420, ChangePercent: 1.2}, "none")
	assert.Contains(t, prompt, "change +1.20%")
}

func TestPromptBuilder_MissingPlaceholder(t *testing.T) {
	_, err := NewPromptBuilder("Analyze {ticker} at {price}")
	require.Error(t, err)

	var terr *TemplateError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, "{change}", terr.Placeholder)
}

func TestPromptBuilder_EmptyTemplate(t *testing.T) {
	_, err := NewPromptBuilder("")
	var terr *TemplateError
	require.ErrorAs(t, err, &terr)
}
