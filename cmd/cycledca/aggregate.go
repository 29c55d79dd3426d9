package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"CycleDCA/internal/report"
)

var aggregateReset bool

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Rebuild the price history and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if aggregateReset {
			if err := a.cache.Invalidate(ctx, cfg.Asset.Symbol); err != nil {
				return err
			}
			log.Info().Str("symbol", cfg.Asset.Symbol).Msg("provider cache cleared")
		}

		if err := a.aggregator.Init(ctx); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
		snap := a.aggregator.Series()
		report.RenderSeries(cmd.OutOrStdout(), snap)
		fmt.Fprintf(cmd.OutOrStdout(), "today: %s\n", a.classifier.Classify(snap.LastUpdated))
		return nil
	},
}

func init() {
	aggregateCmd.Flags().BoolVar(&aggregateReset, "reset-cache", false, "drop the cached provider series before aggregating")
}
