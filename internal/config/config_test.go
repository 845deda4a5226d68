package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "stock-consensus.db", cfg.Store.Path)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.OpenRouter.BaseURL)
	assert.Equal(t, 3, cfg.Analysis.MaxRetries)
	assert.Equal(t, 500, cfg.Analysis.StaggerMs)
	assert.Equal(t, 10, cfg.Analysis.CommitEvery)
	assert.Equal(t, "none", cfg.Company.Provider)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	configYAML := `
store:
  driver: postgres
  database_url: postgres://localhost/consensus
analysis:
  stagger_ms: 250
models:
  - id: openai/gpt-4o
    name: gpt-4o
    temperature: 0.3
    max_tokens: 800
  - id: claude-sonnet-4-5
    name: claude
    provider: anthropic
    max_tokens: 1000
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(configYAML), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 250, cfg.Analysis.StaggerMs)
	assert.Equal(t, 3, cfg.Analysis.MaxRetries) // default survives partial override

	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "openai/gpt-4o", cfg.Models[0].ID)
	assert.InDelta(t, 0.3, cfg.Models[0].Temperature, 0.001)
	assert.Equal(t, "anthropic", cfg.Models[1].Provider)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("STOCKCONSENSUS_STORE_DRIVER", "postgres")
	t.Setenv("STOCKCONSENSUS_STORE_DATABASE_URL", "postgres://env/consensus")
	t.Setenv("STOCKCONSENSUS_OPENROUTER_KEY", "sk-or-test")
	t.Setenv("STOCKCONSENSUS_ANTHROPIC_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://env/consensus", cfg.Store.DatabaseURL)
	assert.Equal(t, "sk-or-test", cfg.OpenRouter.Key)
	assert.Equal(t, "sk-ant-test", cfg.Anthropic.Key)
}

func TestLoadPrompts_MissingFileFallsBack(t *testing.T) {
	prompts, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultPrompts(), prompts)
	assert.Contains(t, prompts.Template, "{ticker}")
	assert.Contains(t, prompts.Template, "{additional_info}")
}

func TestLoadPrompts_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	content := `
system_prompt: custom system
instrument_template: "{ticker} {price} {change} {volume} {additional_info}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	prompts, err := LoadPrompts(path)
	require.NoError(t, err)
	assert.Equal(t, "custom system", prompts.System)
	assert.Contains(t, prompts.Template, "{volume}")
}

func TestLoadPrompts_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o644))

	_, err := LoadPrompts(path)
	require.Error(t, err)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
