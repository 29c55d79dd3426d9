// Package report renders simulation results for terminals and spreadsheets.
package report

import (
	"fmt"
	"sort"
	"strings"

	"CycleDCA/internal/model"
)

// FormatROI renders the ROI, or "n/a" when no contribution was made.
func FormatROI(r *model.SimulationResult) string {
	if r.ROIUndefined {
		return "n/a (no contributions)"
	}
	return fmt.Sprintf("%+.2f%%", r.ROIPercentage)
}

// FormatSummary formats the headline numbers of a simulation as plain text.
func FormatSummary(r *model.SimulationResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("DCA %s .. %s, %.2f per month\n",
		r.StartDate.Format(model.DateLayout), r.EndDate.Format(model.DateLayout), r.MonthlyAmount))
	b.WriteString(fmt.Sprintf("Purchases: %d of %d months\n", r.TotalPurchases, r.Months))
	b.WriteString(fmt.Sprintf("Invested: %.2f\n", r.TotalInvested))
	b.WriteString(fmt.Sprintf("Units: %.8f\n", r.TotalUnits))
	b.WriteString(fmt.Sprintf("Value at spot %.2f: %.2f\n", r.CurrentSpotPrice, r.CurrentValue))
	b.WriteString(fmt.Sprintf("ROI: %s\n", FormatROI(r)))
	if !r.ROIUndefined {
		b.WriteString(fmt.Sprintf("Average price: %.2f\n", r.AveragePurchasePrice))
	}
	b.WriteString(fmt.Sprintf("Value at cycle ATH %.0f: %.2f\n", r.CycleAllTimeHigh, r.CycleATHValue))
	return b.String()
}

// FormatPhaseCounts lists months per phase in table order.
func FormatPhaseCounts(r *model.SimulationResult) string {
	parts := make([]string, 0, len(r.PhaseCounts))
	for _, p := range model.Phases {
		if n, ok := r.PhaseCounts[p]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", p, n))
		}
	}
	var extra []string
	for p, n := range r.PhaseCounts {
		if !knownPhase(p) {
			extra = append(extra, fmt.Sprintf("%s=%d", p, n))
		}
	}
	sort.Strings(extra)
	return strings.Join(append(parts, extra...), " ")
}

func knownPhase(p model.Phase) bool {
	for _, k := range model.Phases {
		if p == k {
			return true
		}
	}
	return false
}
