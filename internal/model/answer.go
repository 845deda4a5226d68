package model

import (
	"strings"
	"time"
)

// Prediction is a model's directional verdict for an instrument.
type Prediction string

const (
	PredictionRising  Prediction = "RISING"
	PredictionFalling Prediction = "FALLING"
	PredictionStable  Prediction = "STABLE"
	PredictionUnknown Prediction = "UNKNOWN"
	// PredictionError marks a synthetic answer produced when a backend call
	// failed. The parser never emits it.
	PredictionError Prediction = "ERROR"
)

// ParsePrediction maps a raw token to a Prediction, case-insensitively.
// Unrecognized tokens degrade to PredictionUnknown.
func ParsePrediction(token string) Prediction {
	switch Prediction(strings.ToUpper(strings.TrimSpace(token))) {
	case PredictionRising:
		return PredictionRising
	case PredictionFalling:
		return PredictionFalling
	case PredictionStable:
		return PredictionStable
	default:
		return PredictionUnknown
	}
}

// Confidence is a model's self-reported confidence in its own answer.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// ParseConfidence maps a raw token to a Confidence, defaulting to low.
func ParseConfidence(token string) Confidence {
	switch Confidence(strings.ToUpper(strings.TrimSpace(token))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Weight maps confidence labels onto a numeric scale for averaging.
func (c Confidence) Weight() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	default:
		return 1
	}
}

// TrustLevel is the heuristic estimate that an answer is not fabricated.
// It is distinct from the model's self-reported Confidence.
type TrustLevel string

const (
	TrustHigh   TrustLevel = "HIGH"
	TrustMedium TrustLevel = "MEDIUM"
	TrustLow    TrustLevel = "LOW"
)

// ParsedAnswer is the structured form extracted from a raw model response.
// Immutable once created; malformed input degrades to UNKNOWN/LOW defaults
// rather than failing.
type ParsedAnswer struct {
	Prediction Prediction `json:"prediction"`
	Rationale  string     `json:"rationale"`
	KeyFactors []string   `json:"key_factors,omitempty"`
	// Reasons carries the legacy numbered-list section. When the key-factors
	// section is empty it is mirrored into KeyFactors for uniform handling.
	Reasons    []string   `json:"reasons,omitempty"`
	Confidence Confidence `json:"confidence"`
}

// ValidationFlags records the trust heuristics computed for one answer.
type ValidationFlags struct {
	FormatValid        bool       `json:"format_valid"`
	SuspiciousPatterns []string   `json:"suspicious_patterns,omitempty"`
	TrustLevel         TrustLevel `json:"trust_level"`
	Truncated          bool       `json:"truncated"`
	Terse              bool       `json:"terse,omitempty"`
}

// ModelAnswer is the unit of persistence: one model's answer for one
// instrument, with its trust metadata and raw text.
type ModelAnswer struct {
	ModelName  string          `json:"model_name"`
	ModelID    string          `json:"model_id"`
	Parsed     ParsedAnswer    `json:"parsed"`
	Flags      ValidationFlags `json:"validation_flags"`
	RawText    string          `json:"raw_text,omitempty"`
	TokensUsed int             `json:"tokens_used"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"` // failure detail when Success is false
}

// FailedAnswer builds the synthetic record for a model whose request failed.
// It carries only the ERROR sentinel prediction; consensus excludes it.
func FailedAnswer(cfg ModelConfig, err error) ModelAnswer {
	return ModelAnswer{
		ModelName: cfg.Name,
		ModelID:   cfg.ID,
		Parsed: ParsedAnswer{
			Prediction: PredictionError,
			Confidence: ConfidenceLow,
		},
		Flags: ValidationFlags{
			FormatValid: false,
			TrustLevel:  TrustLow,
		},
		Success: false,
		Error:   err.Error(),
	}
}

// ConsensusResult is the aggregated verdict across all successful answers for
// one instrument. AgreedPrediction is empty when no agreement was reached.
type ConsensusResult struct {
	AgreedPrediction  Prediction `json:"agreed_prediction,omitempty"`
	DisagreementCount int        `json:"disagreement_count"`
	AvgConfidence     Confidence `json:"avg_confidence"`
}

// Agreed reports whether the models converged on a prediction.
func (c ConsensusResult) Agreed() bool {
	return c.AgreedPrediction != ""
}

// AnswerRecord is the query shape returned by the store for persisted answers,
// joining the snapshot row with its per-model answer rows.
type AnswerRecord struct {
	Ticker        string          `json:"ticker"`
	Price         float64         `json:"price"`
	ChangePercent float64         `json:"change_percent"`
	Volume        int64           `json:"volume"`
	Date          time.Time       `json:"date"`
	ModelName     string          `json:"model_name"`
	ModelID       string          `json:"model_id"`
	Prediction    Prediction      `json:"prediction"`
	KeyFactors    []string        `json:"key_factors,omitempty"`
	Confidence    Confidence      `json:"confidence"`
	Flags         ValidationFlags `json:"validation_flags"`
	TokensUsed    int             `json:"tokens_used"`
	Success       bool            `json:"success"`
}
