package main

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"CycleDCA/internal/metrics"
	"CycleDCA/internal/model"
	"CycleDCA/internal/report"
	"CycleDCA/internal/simulation"
)

var simulateFlags struct {
	start   string
	end     string
	amount  float64
	phases  []string
	spot    float64
	xlsx    string
	format  string
	details bool
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a monthly DCA simulation over the price history",
	Example: `  cycledca simulate --start 2018-01-01 --end 2024-12-31 --amount 100
  cycledca simulate --start 2015-01-01 --end 2023-01-01 --amount 250 --phases accumulation,bearMarket --xlsx out/dca.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := simulateFlags
		start, err := model.ParseDate(f.start)
		if err != nil {
			return err
		}
		end := model.DayOf(time.Now())
		if f.end != "" {
			if end, err = model.ParseDate(f.end); err != nil {
				return err
			}
		}
		switch f.format {
		case "table", "text", "json":
		default:
			return fmt.Errorf("unknown format %q", f.format)
		}
		phases, err := model.ParsePhaseFilter(f.phases)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.aggregator.Init(ctx); err != nil {
			return fmt.Errorf("load price history: %w", err)
		}

		spot := f.spot
		if spot <= 0 {
			if spot, err = a.spotPrice(ctx); err != nil {
				return err
			}
		}

		res, err := a.engine.Run(simulation.Request{
			StartDate:        start,
			EndDate:          end,
			MonthlyAmount:    f.amount,
			Phases:           phases,
			Series:           a.aggregator.Series().Daily,
			CurrentSpotPrice: spot,
		})
		metrics.RecordSimulation(err)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch f.format {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}
		case "text":
			fmt.Fprint(out, report.FormatSummary(res))
		default:
			report.RenderSummary(out, res)
			if f.details {
				report.RenderPurchases(out, res)
			}
		}

		if f.xlsx != "" {
			if err := report.WriteXLSX(res, f.xlsx); err != nil {
				return err
			}
			log.Info().Str("path", f.xlsx).Msg("workbook written")
		}
		return nil
	},
}

func init() {
	fl := simulateCmd.Flags()
	fl.StringVar(&simulateFlags.start, "start", "", "first contribution date (YYYY-MM-DD)")
	fl.StringVar(&simulateFlags.end, "end", "", "last possible contribution date (YYYY-MM-DD, default today)")
	fl.Float64Var(&simulateFlags.amount, "amount", 100, "amount contributed each eligible month")
	fl.StringSliceVar(&simulateFlags.phases, "phases", nil, "phases that receive contributions: accumulation,bullRun,bearMarket (default all)")
	fl.Float64Var(&simulateFlags.spot, "spot", 0, "override the current spot price")
	fl.StringVar(&simulateFlags.xlsx, "xlsx", "", "also write the result to this .xlsx file")
	fl.StringVar(&simulateFlags.format, "format", "table", "output format: table, text or json")
	fl.BoolVar(&simulateFlags.details, "details", false, "print every purchase")
	_ = simulateCmd.MarkFlagRequired("start")
}
