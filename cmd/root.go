package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quotelab/stock-consensus/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "stock-consensus",
	Short: "Multi-model stock analysis with consensus scoring",
	Long: "Queries several LLM backends per instrument, parses their free-text answers into " +
		"structured predictions, scores answer trustworthiness, and computes a consensus verdict.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
