package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var updateForce bool

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Capture today's spot price into the current year file",
	Long: `Fetch the spot price and upsert it as today's row. A row only moves up,
so repeated runs keep the highest observed price. Runs less than 24h after the
previous update are skipped unless --force is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.close()
		// no aggregator refresh for a one-shot update
		a.updater.OnUpdate = nil

		res, err := a.updater.Run(ctx, updateForce)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Skipped {
			fmt.Fprintf(out, "skipped: next update due %s\n", res.NextDue.Format("2006-01-02 15:04 MST"))
			return nil
		}
		o := res.Outcome
		fmt.Fprintf(out, "%s %s: %.2f (spot %.2f, changed=%t)\n", o.Action, o.Date, o.Price, res.Price, o.Changed)
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "ignore the 24h gate")
}
