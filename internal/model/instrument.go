package model

import "time"

// Instrument is a tradable ticker with its current quote snapshot. Instruments
// are supplied by an external collaborator (spreadsheet, scheduler, API) and
// are immutable for the duration of one analysis run.
type Instrument struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	ChangePercent float64 `json:"change_percent"`
	Volume        int64   `json:"volume"`
	Context       string  `json:"context,omitempty"` // free-text notes fed into the prompt
}

// ModelConfig identifies one LLM backend model to query per instrument.
type ModelConfig struct {
	ID          string  `yaml:"id" mapstructure:"id"`
	Name        string  `yaml:"name" mapstructure:"name"`
	Provider    string  `yaml:"provider" mapstructure:"provider"` // "openrouter" (default) or "anthropic"
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// Snapshot is the persisted quote record for one (instrument, date) pair.
// Saving a snapshot twice for the same day updates the existing row.
type Snapshot struct {
	Ticker        string    `json:"ticker"`
	Price         float64   `json:"price"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	Context       string    `json:"context,omitempty"`
	Date          time.Time `json:"date"`
}

// CompanyInfo holds optional company metadata used to enrich prompts.
type CompanyInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// DayString formats a timestamp at date granularity for snapshot keys.
func DayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
