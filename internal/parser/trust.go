package parser

import (
	"strings"

	"github.com/quotelab/stock-consensus/internal/llm"
	"github.com/quotelab/stock-consensus/internal/model"
)

// suspiciousKeywords are phrases associated with fabricated-news
// hallucinations: references to announcements, named executives, or sourced
// reporting that the model cannot actually have seen.
var suspiciousKeywords = []string{
	"announced",
	"reported that",
	"according to sources",
	"ceo",
	"the report showed",
	"analysts say",
	"experts believe",
	"it was announced",
	"the company plans",
	"insiders claim",
	"press release",
}

// genericPhrases are filler wordings that signal a content-free answer.
var genericPhrases = []string{
	"market conditions",
	"general trend",
	"economic situation",
	"in general",
	"as a rule",
	"usually",
}

// Validate scores one answer's trustworthiness. The rules form a layered
// heuristic applied in a fixed order: each rule can lower trust but never
// raise it past HIGH, and a truncated answer is forced to LOW last,
// regardless of everything else.
func Validate(raw llm.RawAnswer, parsed model.ParsedAnswer) model.ValidationFlags {
	flags := model.ValidationFlags{
		FormatValid: true,
		TrustLevel:  model.TrustHigh,
	}

	// An unrecognized prediction is terminal: later rules still run for
	// reporting, but trust stays LOW.
	forcedLow := false
	if parsed.Prediction == model.PredictionUnknown {
		flags.FormatValid = false
		flags.TrustLevel = model.TrustLow
		forcedLow = true
	}

	hasRationale := strings.TrimSpace(parsed.Rationale) != ""
	hasFactors := len(parsed.KeyFactors) > 0
	hasReasons := len(parsed.Reasons) > 0

	switch {
	case !hasRationale && !hasFactors && !hasReasons:
		flags.FormatValid = false
		flags.TrustLevel = model.TrustLow
		forcedLow = true
	case hasRationale && (hasFactors || hasReasons):
		if !forcedLow {
			flags.TrustLevel = model.TrustHigh
		}
	case hasRationale || len(parsed.KeyFactors) >= 2:
		if !forcedLow && parsed.Confidence == model.ConfidenceLow {
			flags.TrustLevel = capTrust(flags.TrustLevel, model.TrustMedium)
		}
	}

	lower := strings.ToLower(raw.Text)
	for _, kw := range suspiciousKeywords {
		if strings.Contains(lower, kw) {
			flags.SuspiciousPatterns = append(flags.SuspiciousPatterns, kw)
		}
	}
	switch n := len(flags.SuspiciousPatterns); {
	case n >= 3:
		flags.TrustLevel = model.TrustLow
	case n > 0 && !forcedLow:
		flags.TrustLevel = capTrust(flags.TrustLevel, model.TrustMedium)
	}

	generic := 0
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			generic++
		}
	}
	if generic > 2 && !forcedLow {
		flags.TrustLevel = capTrust(flags.TrustLevel, model.TrustMedium)
	}

	if len(raw.Text) < MinResponseLength {
		flags.Terse = true
	}

	// Final override: truncated answers are never trusted.
	if raw.Truncated {
		flags.Truncated = true
		flags.TrustLevel = model.TrustLow
	}

	return flags
}

func trustRank(t model.TrustLevel) int {
	switch t {
	case model.TrustHigh:
		return 3
	case model.TrustMedium:
		return 2
	default:
		return 1
	}
}

// capTrust lowers level to limit when it currently exceeds it.
func capTrust(level, limit model.TrustLevel) model.TrustLevel {
	if trustRank(level) > trustRank(limit) {
		return limit
	}
	return level
}
