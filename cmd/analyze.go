package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotelab/stock-consensus/internal/analysis"
	"github.com/quotelab/stock-consensus/internal/company"
	"github.com/quotelab/stock-consensus/internal/config"
	"github.com/quotelab/stock-consensus/internal/llm"
	"github.com/quotelab/stock-consensus/internal/loader"
	"github.com/quotelab/stock-consensus/internal/model"
	anthropicpkg "github.com/quotelab/stock-consensus/pkg/anthropic"
	"github.com/quotelab/stock-consensus/pkg/openrouter"
)

var (
	analyzeFile   string
	analyzeSheet  string
	analyzeTicker string
	analyzePrice  float64
	analyzeChange float64
	analyzeVolume int64
	analyzeNotes  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze instruments with all configured models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		instruments, err := loadInstruments()
		if err != nil {
			return err
		}
		if len(cfg.Models) == 0 {
			return eris.New("no models configured")
		}

		prompts, err := config.LoadPrompts(cfg.Prompts.Path)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		registry := initRegistry()
		stagger := time.Duration(cfg.Analysis.StaggerMs) * time.Millisecond
		dispatcher := analysis.NewRetryController(
			analysis.NewOrchestrator(registry, stagger),
			cfg.Analysis.MaxRetries,
		)

		p := analysis.NewPipeline(analysis.Options{
			Models:       cfg.Models,
			SystemPrompt: prompts.System,
			Template:     prompts.Template,
			CommitEvery:  cfg.Analysis.CommitEvery,
			MaxErrors:    cfg.Analysis.MaxErrors,
		}, dispatcher, st, initCompanyProvider(registry))

		stats, err := p.Run(ctx, instruments)
		if err != nil {
			return eris.Wrap(err, "analysis run")
		}

		zap.L().Info("analysis complete",
			zap.String("state", string(stats.State)),
			zap.Int("successful", stats.Successful),
			zap.Int("failed", stats.Failed),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	},
}

func loadInstruments() ([]model.Instrument, error) {
	if analyzeTicker != "" {
		return []model.Instrument{{
			Ticker:        analyzeTicker,
			Price:         analyzePrice,
			ChangePercent: analyzeChange,
			Volume:        analyzeVolume,
			Context:       analyzeNotes,
		}}, nil
	}
	if analyzeFile == "" {
		return nil, eris.New("either --file or --ticker is required")
	}
	return loader.LoadInstruments(analyzeFile, loader.Options{SheetName: analyzeSheet})
}

func initRegistry() *llm.Registry {
	registry := llm.NewRegistry()
	if cfg.OpenRouter.Key != "" {
		client := openrouter.NewClient(cfg.OpenRouter.Key, openrouter.WithBaseURL(cfg.OpenRouter.BaseURL))
		registry.Register("openrouter", llm.NewOpenRouterGateway(client))
	}
	if cfg.Anthropic.Key != "" {
		registry.Register("anthropic", llm.NewAnthropicGateway(anthropicpkg.NewClient(cfg.Anthropic.Key)))
	}
	return registry
}

func initCompanyProvider(registry *llm.Registry) company.Provider {
	switch cfg.Company.Provider {
	case "llm":
		gw, err := registry.ForProvider(cfg.Company.Model.Provider)
		if err != nil {
			zap.L().Warn("company provider disabled", zap.Error(err))
			return nil
		}
		return company.NewLLMProvider(gw, cfg.Company.Model)
	case "static":
		return company.NewStaticProvider(cfg.Company.Profiles)
	default:
		return nil
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "XLSX watchlist file")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "sheet name (default: first sheet)")
	analyzeCmd.Flags().StringVar(&analyzeTicker, "ticker", "", "analyze a single ticker instead of a file")
	analyzeCmd.Flags().Float64Var(&analyzePrice, "price", 0, "current price (with --ticker)")
	analyzeCmd.Flags().Float64Var(&analyzeChange, "change", 0, "daily change percent (with --ticker)")
	analyzeCmd.Flags().Int64Var(&analyzeVolume, "volume", 0, "daily volume (with --ticker)")
	analyzeCmd.Flags().StringVar(&analyzeNotes, "notes", "", "free-text context (with --ticker)")
	rootCmd.AddCommand(analyzeCmd)
}
