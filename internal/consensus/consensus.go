// Package consensus reduces the per-model answers for one instrument into an
// agreed verdict.
package consensus

import (
	"github.com/quotelab/stock-consensus/internal/model"
)

// Calculate aggregates one instrument's model answers. Failed answers are
// excluded from voting but still count toward disagreement when no model
// succeeded at all. Agreement requires the plurality winner to have more
// than one vote and a strict majority of the successful answers; any split
// at or below 50% yields no consensus.
func Calculate(answers []model.ModelAnswer) model.ConsensusResult {
	var successes []model.ModelAnswer
	for _, a := range answers {
		if a.Success {
			successes = append(successes, a)
		}
	}

	if len(successes) == 0 {
		return model.ConsensusResult{
			DisagreementCount: len(answers),
			AvgConfidence:     model.ConfidenceLow,
		}
	}

	counts := make(map[model.Prediction]int)
	order := make([]model.Prediction, 0, len(successes))
	for _, a := range successes {
		if counts[a.Parsed.Prediction] == 0 {
			order = append(order, a.Parsed.Prediction)
		}
		counts[a.Parsed.Prediction]++
	}

	// Plurality winner; first-seen order breaks ties deterministically.
	var winner model.Prediction
	winnerCount := 0
	for _, p := range order {
		if counts[p] > winnerCount {
			winner = p
			winnerCount = counts[p]
		}
	}

	result := model.ConsensusResult{
		DisagreementCount: len(successes) - winnerCount,
		AvgConfidence:     averageConfidence(successes),
	}
	if winnerCount > 1 && winnerCount*2 > len(successes) {
		result.AgreedPrediction = winner
	}
	return result
}

// averageConfidence maps confidence labels to {3,2,1}, averages, and
// thresholds back to a label.
func averageConfidence(answers []model.ModelAnswer) model.Confidence {
	sum := 0
	for _, a := range answers {
		sum += a.Parsed.Confidence.Weight()
	}
	avg := float64(sum) / float64(len(answers))

	switch {
	case avg >= 2.5:
		return model.ConfidenceHigh
	case avg >= 1.5:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
