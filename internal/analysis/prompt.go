// Package analysis contains the orchestration engine: prompt rendering,
// staggered fan-out to the model backends, batch retry, consensus, and the
// per-run pipeline driver.
package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/quotelab/stock-consensus/internal/model"
)

// requiredPlaceholders must all appear in an instrument prompt template.
var requiredPlaceholders = []string{
	"{ticker}",
	"{price}",
	"{change}",
	"{volume}",
	"{additional_info}",
}

// TemplateError reports a prompt template missing a required placeholder.
// It is fatal for the run.
type TemplateError struct {
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("prompt template missing placeholder %s", e.Placeholder)
}

// PromptBuilder renders per-instrument prompts from a template. The template
// is validated once at construction.
type PromptBuilder struct {
	template string
}

// NewPromptBuilder validates the template and returns a builder. A missing
// placeholder yields a *TemplateError.
func NewPromptBuilder(template string) (*PromptBuilder, error) {
	for _, ph := range requiredPlaceholders {
		if !strings.Contains(template, ph) {
			return nil, &TemplateError{Placeholder: ph}
		}
	}
	return &PromptBuilder{template: template}, nil
}

// Build substitutes instrument facts into the template. additionalInfo
// carries the instrument's free-text context plus any company profile.
func (b *PromptBuilder) Build(inst model.Instrument, additionalInfo string) string {
	r := strings.NewReplacer(
		"{ticker}", inst.Ticker,
		"{price}", strconv.FormatFloat(inst.Price, 'f', 2, 64),
		"{change}", fmt.Sprintf("%+.2f%%", inst.ChangePercent),
		"{volume}", strconv.FormatInt(inst.Volume, 10),
		"{additional_info}", additionalInfo,
	)
	return r.Replace(b.template)
}
