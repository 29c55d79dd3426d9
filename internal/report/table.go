package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"CycleDCA/internal/model"
)

// RenderSummary writes the headline table.
func RenderSummary(w io.Writer, r *model.SimulationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("DCA SIMULATION")
	t.SetStyle(table.StyleRounded)

	rows := []table.Row{
		{"Period", fmt.Sprintf("%s .. %s", r.StartDate.Format(model.DateLayout), r.EndDate.Format(model.DateLayout))},
		{"Monthly amount", fmt.Sprintf("$%.2f", r.MonthlyAmount)},
		{"Purchases", fmt.Sprintf("%d of %d months", r.TotalPurchases, r.Months)},
		{"Phases", FormatPhaseCounts(r)},
		{"Total invested", fmt.Sprintf("$%.2f", r.TotalInvested)},
		{"Total units", fmt.Sprintf("%.8f", r.TotalUnits)},
		{"Spot price", fmt.Sprintf("$%.2f", r.CurrentSpotPrice)},
		{"Current value", fmt.Sprintf("$%.2f", r.CurrentValue)},
		{"ROI", FormatROI(r)},
	}
	if !r.ROIUndefined {
		rows = append(rows, table.Row{"Average price", fmt.Sprintf("$%.2f", r.AveragePurchasePrice)})
	}
	rows = append(rows, table.Row{"Value at cycle ATH", fmt.Sprintf("$%.2f (ATH $%.0f)", r.CycleATHValue, r.CycleAllTimeHigh)})
	t.AppendRows(rows)

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, Align: text.AlignLeft},
	})
	t.Render()
}

// RenderPurchases writes one row per contribution.
func RenderPurchases(w io.Writer, r *model.SimulationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("PURCHASES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Date", "Phase", "Amount", "Price", "Units", "Value now"})
	for _, p := range r.PurchaseDetails {
		t.AppendRow(table.Row{
			p.SequenceNumber,
			p.Date.Format(model.DateLayout),
			string(p.Phase),
			fmt.Sprintf("%.2f", p.AmountContributed),
			fmt.Sprintf("%.2f", p.UnitPriceAtPurchase),
			fmt.Sprintf("%.8f", p.UnitsAcquired),
			fmt.Sprintf("%.2f", p.MarkToMarketValue),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	t.Render()
}

// RenderSeries writes a one-table overview of an aggregated snapshot.
func RenderSeries(w io.Writer, s *model.MultiResolutionSeries) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("%s PRICE HISTORY", s.Symbol))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Resolution", "Points", "First", "Last", "Last price"})
	for _, r := range []model.Resolution{model.ResolutionDaily, model.ResolutionHourly, model.ResolutionMinute15} {
		points, _ := s.At(r)
		first, ok := points.First()
		if !ok {
			t.AppendRow(table.Row{string(r), 0, "-", "-", "-"})
			continue
		}
		last, _ := points.Last()
		t.AppendRow(table.Row{
			string(r), len(points),
			first.Time.Format(time.RFC3339), last.Time.Format(time.RFC3339),
			fmt.Sprintf("%.2f", last.Price),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}
