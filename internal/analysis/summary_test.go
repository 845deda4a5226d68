package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quotelab/stock-consensus/internal/model"
)

func record(ticker string, p model.Prediction, success bool) model.AnswerRecord {
	return model.AnswerRecord{
		Ticker:     ticker,
		Prediction: p,
		Confidence: model.ConfidenceMedium,
		Success:    success,
	}
}

func TestSummarize(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	records := []model.AnswerRecord{
		// AAPL: two of three agree on RISING.
		record("AAPL", model.PredictionRising, true),
		record("AAPL", model.PredictionRising, true),
		record("AAPL", model.PredictionFalling, true),
		// MSFT: 1-1 split, no majority.
		record("MSFT", model.PredictionStable, true),
		record("MSFT", model.PredictionFalling, true),
		// TSLA: one failure only.
		record("TSLA", model.PredictionError, false),
	}

	st := &mockStore{}
	st.On("QueryAnswers", mock.Anything, day, "").Return(records, nil)

	summary, err := Summarize(context.Background(), st, day, "")
	require.NoError(t, err)

	assert.Equal(t, 6, summary.TotalAnswers)
	assert.Equal(t, 2, summary.Predictions[model.PredictionRising])
	assert.Equal(t, 2, summary.Predictions[model.PredictionFalling])
	assert.Equal(t, 1, summary.Predictions[model.PredictionStable])

	require.Len(t, summary.Tickers, 3)
	aapl, msft, tsla := summary.Tickers[0], summary.Tickers[1], summary.Tickers[2]

	assert.Equal(t, "AAPL", aapl.Ticker)
	assert.Equal(t, model.PredictionRising, aapl.Majority)
	assert.Equal(t, 3, aapl.Successful)

	assert.Equal(t, "MSFT", msft.Ticker)
	assert.Empty(t, msft.Majority)

	assert.Equal(t, "TSLA", tsla.Ticker)
	assert.Equal(t, 0, tsla.Successful)
	assert.Empty(t, tsla.Majority)

	// One of three tickers reached agreement.
	assert.InDelta(t, 1.0/3.0, summary.ConsensusRate, 0.001)
}

func TestSummarize_Empty(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	st := &mockStore{}
	st.On("QueryAnswers", mock.Anything, day, "AAPL").Return([]model.AnswerRecord{}, nil)

	summary, err := Summarize(context.Background(), st, day, "AAPL")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalAnswers)
	assert.Empty(t, summary.Tickers)
	assert.Zero(t, summary.ConsensusRate)
}

func TestSummarize_QueryError(t *testing.T) {
	st := &mockStore{}
	st.On("QueryAnswers", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	_, err := Summarize(context.Background(), st, time.Now(), "")
	require.Error(t, err)
}
