// Package parser extracts structured predictions from free-text model
// answers and scores their trustworthiness. Parsing never fails: malformed
// input degrades to UNKNOWN/LOW defaults.
package parser

import (
	"strings"

	"github.com/quotelab/stock-consensus/internal/model"
)

// MinResponseLength is the threshold below which an answer is flagged as
// suspiciously terse.
const MinResponseLength = 100

// Parse converts a raw model answer into a ParsedAnswer. The answer is
// expected to contain PREDICTION, ANALYSIS, KEY FACTORS and CONFIDENCE
// sections; any missing section falls back to its default.
func Parse(text string) model.ParsedAnswer {
	parsed := model.ParsedAnswer{
		Prediction: model.PredictionUnknown,
		Confidence: model.ConfidenceLow,
	}

	sections := splitSections(text)

	if s, ok := firstSection(sections, sectionPrediction); ok {
		parsed.Prediction = model.ParsePrediction(firstToken(s.text))
	}

	if s, ok := firstSection(sections, sectionRationale); ok {
		parsed.Rationale = stripBrackets(s.text)
	}

	if s, ok := firstSection(sections, sectionFactors); ok {
		parsed.KeyFactors = parseListItems(s.text)
	}

	// Legacy REASONS fallback, mirrored into key factors for uniform handling.
	if len(parsed.KeyFactors) == 0 {
		if s, ok := firstSection(sections, sectionReasons); ok {
			parsed.Reasons = parseListItems(s.text)
			parsed.KeyFactors = parsed.Reasons
		}
	}

	if s, ok := firstSection(sections, sectionConfidence); ok {
		parsed.Confidence = model.ParseConfidence(firstToken(s.text))
	}

	return parsed
}

// firstToken returns the first whitespace-delimited token, with trailing
// punctuation trimmed.
func firstToken(text string) string {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ".,;:!")
}

// stripBrackets removes square-bracketed instructional artifacts that models
// occasionally echo back from the prompt template.
func stripBrackets(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '[':
			depth++
		case r == ']':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// parseListItems extracts bullet- or number-prefixed lines as list entries.
func parseListItems(text string) []string {
	var items []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if item, ok := stripListPrefix(line); ok && item != "" {
			items = append(items, item)
		}
	}
	return items
}

// stripListPrefix removes a leading bullet marker or "N." numbering and
// reports whether the line was a list item at all.
func stripListPrefix(line string) (string, bool) {
	for _, marker := range []string{"•", "-", "*"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):]), true
		}
	}

	// Numbered item: one or more digits followed by a dot.
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && line[i] == '.' {
		return strings.TrimSpace(line[i+1:]), true
	}

	return "", false
}
