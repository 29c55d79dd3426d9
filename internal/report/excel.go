package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"CycleDCA/internal/model"
)

const (
	summarySheet   = "Summary"
	purchasesSheet = "Purchases"
	trendSheet     = "Trend"
)

// WriteXLSX writes the result to a workbook with summary, purchase and trend sheets.
func WriteXLSX(r *model.SimulationResult, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	fx.SetSheetName(fx.GetSheetName(0), summarySheet)
	if _, err := fx.NewSheet(purchasesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if _, err := fx.NewSheet(trendSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	roi := any(r.ROIPercentage)
	avg := any(r.AveragePurchasePrice)
	if r.ROIUndefined {
		roi, avg = "n/a", "n/a"
	}
	summary := [][]any{
		{"Start", r.StartDate.Format(model.DateLayout)},
		{"End", r.EndDate.Format(model.DateLayout)},
		{"Monthly amount", r.MonthlyAmount},
		{"Months", r.Months},
		{"Purchases", r.TotalPurchases},
		{"Total invested", r.TotalInvested},
		{"Total units", r.TotalUnits},
		{"Spot price", r.CurrentSpotPrice},
		{"Current value", r.CurrentValue},
		{"ROI %", roi},
		{"Average price", avg},
		{"Cycle ATH", r.CycleAllTimeHigh},
		{"Value at cycle ATH", r.CycleATHValue},
	}
	if err := writeRows(fx, summarySheet, nil, summary, header); err != nil {
		return err
	}

	purchases := make([][]any, 0, len(r.PurchaseDetails))
	for _, p := range r.PurchaseDetails {
		purchases = append(purchases, []any{
			p.SequenceNumber, p.Date.Format(model.DateLayout), string(p.Phase),
			p.AmountContributed, p.UnitPriceAtPurchase, p.UnitsAcquired, p.MarkToMarketValue,
		})
	}
	if err := writeRows(fx, purchasesSheet,
		[]any{"#", "Date", "Phase", "Amount", "Price", "Units", "Value now"}, purchases, header); err != nil {
		return err
	}

	trend := make([][]any, 0, len(r.PurchasePoints))
	for _, p := range r.PurchasePoints {
		trend = append(trend, []any{
			p.Date.Format(model.DateLayout), string(p.Phase), p.Contributed, p.PriceOnDate,
			p.CumulativeInvested, p.CumulativeUnits, p.CumulativeValueAtThatDate,
		})
	}
	if err := writeRows(fx, trendSheet,
		[]any{"Date", "Phase", "Contributed", "Price", "Invested", "Units", "Value"}, trend, header); err != nil {
		return err
	}

	if err := fx.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func writeRows(fx *excelize.File, sheet string, head []any, rows [][]any, headerStyle int) error {
	row := 1
	if head != nil {
		for i, v := range head {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
		first, _ := excelize.CoordinatesToCellName(1, row)
		last, _ := excelize.CoordinatesToCellName(len(head), row)
		if err := fx.SetCellStyle(sheet, first, last, headerStyle); err != nil {
			return fmt.Errorf("style %s header: %w", sheet, err)
		}
		row++
	}
	for _, values := range rows {
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet, cell, err)
			}
		}
		row++
	}
	return nil
}
