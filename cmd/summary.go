package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/quotelab/stock-consensus/internal/analysis"
)

var (
	summaryDate   string
	summaryTicker string
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize persisted answers for a day",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		day := time.Now().UTC()
		if summaryDate != "" {
			var err error
			if day, err = time.Parse("2006-01-02", summaryDate); err != nil {
				return eris.Wrapf(err, "parse date %s", summaryDate)
			}
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		summary, err := analysis.Summarize(ctx, st, day, summaryTicker)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDate, "date", "", "day to summarize (YYYY-MM-DD, default today)")
	summaryCmd.Flags().StringVar(&summaryTicker, "ticker", "", "filter to a single ticker")
	rootCmd.AddCommand(summaryCmd)
}
