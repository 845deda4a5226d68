// Package config loads typed application configuration from file and
// environment and initializes the global logger.
package config

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/quotelab/stock-consensus/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig         `yaml:"store" mapstructure:"store"`
	OpenRouter OpenRouterConfig    `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic  AnthropicConfig     `yaml:"anthropic" mapstructure:"anthropic"`
	Models     []model.ModelConfig `yaml:"models" mapstructure:"models"`
	Analysis   AnalysisConfig      `yaml:"analysis" mapstructure:"analysis"`
	Company    CompanyConfig       `yaml:"company" mapstructure:"company"`
	Prompts    PromptsConfig       `yaml:"prompts" mapstructure:"prompts"`
	Log        LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file path
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// AnalysisConfig tunes the orchestration engine.
type AnalysisConfig struct {
	MaxRetries  int `yaml:"max_retries" mapstructure:"max_retries"`   // total dispatch attempts per instrument
	StaggerMs   int `yaml:"stagger_ms" mapstructure:"stagger_ms"`     // delay between request launches
	CommitEvery int `yaml:"commit_every" mapstructure:"commit_every"` // instruments per store flush
	MaxErrors   int `yaml:"max_errors" mapstructure:"max_errors"`     // example errors kept in run stats
}

// CompanyConfig configures the prompt-enrichment profile source.
type CompanyConfig struct {
	// Provider selects the profile source: "llm", "static", or "none".
	Provider string                       `yaml:"provider" mapstructure:"provider"`
	Model    model.ModelConfig            `yaml:"model" mapstructure:"model"`
	Profiles map[string]model.CompanyInfo `yaml:"profiles" mapstructure:"profiles"`
}

// PromptsConfig points at the prompt definitions file.
type PromptsConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STOCKCONSENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys with no meaningful default still get one so that
	// AutomaticEnv can resolve them through Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "stock-consensus.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("openrouter.key", "")
	v.SetDefault("openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("analysis.max_retries", 3)
	v.SetDefault("analysis.stagger_ms", 500)
	v.SetDefault("analysis.commit_every", 10)
	v.SetDefault("analysis.max_errors", 25)
	v.SetDefault("company.provider", "none")
	v.SetDefault("prompts.path", "prompts.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Prompts holds the model-facing prompt text.
type Prompts struct {
	System   string `yaml:"system_prompt"`
	Template string `yaml:"instrument_template"`
}

// DefaultPrompts returns the built-in prompt set used when no prompts file
// is configured.
func DefaultPrompts() Prompts {
	return Prompts{
		System: "You are a financial market analyst. Analyze the given stock and answer in the " +
			"required format with PREDICTION, ANALYSIS, KEY FACTORS and CONFIDENCE sections.",
		Template: `Analyze the stock {ticker}.
Current price: ${price}
Daily change: {change}
Volume: {volume}
Additional information: {additional_info}

Answer in exactly this format:
PREDICTION: RISING, FALLING or STABLE
ANALYSIS: your reasoning in 2-4 sentences
KEY FACTORS:
- factor one
- factor two
CONFIDENCE: HIGH, MEDIUM or LOW`,
	}
}

// LoadPrompts reads the prompt definitions file. A missing file falls back
// to the defaults; a present but malformed file is an error.
func LoadPrompts(path string) (Prompts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultPrompts(), nil
		}
		return Prompts{}, eris.Wrapf(err, "config: read prompts %s", path)
	}

	prompts := DefaultPrompts()
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return Prompts{}, eris.Wrapf(err, "config: parse prompts %s", path)
	}
	return prompts, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
