package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/quotelab/stock-consensus/internal/model"
)

// AnswerSource is the read side of the store the summary consumes.
type AnswerSource interface {
	QueryAnswers(ctx context.Context, day time.Time, ticker string) ([]model.AnswerRecord, error)
}

// TickerSummary aggregates one ticker's persisted answers for a day.
type TickerSummary struct {
	Ticker     string           `json:"ticker"`
	Answers    int              `json:"answers"`
	Successful int              `json:"successful"`
	Majority   model.Prediction `json:"majority,omitempty"` // empty when no agreement
}

// Summary is the per-day aggregate across all analyzed tickers.
type Summary struct {
	Date          time.Time                `json:"date"`
	TotalAnswers  int                      `json:"total_answers"`
	Predictions   map[model.Prediction]int `json:"predictions"`
	Tickers       []TickerSummary          `json:"tickers"`
	ConsensusRate float64                  `json:"consensus_rate"` // agreeing tickers / total tickers
}

// Summarize aggregates the persisted answers for a day, optionally filtered
// to one ticker. Majority per ticker follows the consensus rule: more than
// one vote and a strict majority of that ticker's successful answers.
func Summarize(ctx context.Context, src AnswerSource, day time.Time, ticker string) (*Summary, error) {
	records, err := src.QueryAnswers(ctx, day, ticker)
	if err != nil {
		return nil, eris.Wrap(err, "summary: query answers")
	}

	summary := &Summary{
		Date:        day,
		Predictions: make(map[model.Prediction]int),
	}
	byTicker := make(map[string][]model.AnswerRecord)
	for _, rec := range records {
		summary.TotalAnswers++
		if rec.Success {
			summary.Predictions[rec.Prediction]++
		}
		byTicker[rec.Ticker] = append(byTicker[rec.Ticker], rec)
	}

	tickers := make([]string, 0, len(byTicker))
	for tk := range byTicker {
		tickers = append(tickers, tk)
	}
	sort.Strings(tickers)

	agreeing := 0
	for _, tk := range tickers {
		ts := summarizeTicker(tk, byTicker[tk])
		if ts.Majority != "" {
			agreeing++
		}
		summary.Tickers = append(summary.Tickers, ts)
	}
	if len(tickers) > 0 {
		summary.ConsensusRate = float64(agreeing) / float64(len(tickers))
	}
	return summary, nil
}

func summarizeTicker(ticker string, records []model.AnswerRecord) TickerSummary {
	ts := TickerSummary{Ticker: ticker, Answers: len(records)}

	counts := make(map[model.Prediction]int)
	for _, rec := range records {
		if !rec.Success {
			continue
		}
		ts.Successful++
		counts[rec.Prediction]++
	}

	var winner model.Prediction
	winnerCount := 0
	for p, n := range counts {
		if n > winnerCount || (n == winnerCount && p < winner) {
			winner = p
			winnerCount = n
		}
	}
	if winnerCount > 1 && winnerCount*2 > ts.Successful {
		ts.Majority = winner
	}
	return ts
}
