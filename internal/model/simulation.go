package model

import (
	"fmt"
	"strings"
	"time"
)

// PhaseFilter selects which phases receive a contribution.
// An all-false filter means "contribute every month".
type PhaseFilter struct {
	Accumulation bool `json:"accumulation"`
	BullRun      bool `json:"bullRun"`
	BearMarket   bool `json:"bearMarket"`
}

// Any reports whether at least one phase is selected.
func (f *PhaseFilter) Any() bool {
	return f != nil && (f.Accumulation || f.BullRun || f.BearMarket)
}

// Allows reports whether a month classified as p receives a contribution.
func (f *PhaseFilter) Allows(p Phase) bool {
	if !f.Any() {
		return true
	}
	switch p {
	case PhaseAccumulation:
		return f.Accumulation
	case PhaseBullRun:
		return f.BullRun
	case PhaseBearMarket:
		return f.BearMarket
	}
	return false
}

// ParsePhaseFilter builds a filter from phase names, case-insensitively.
// No names yields an empty filter.
func ParsePhaseFilter(names []string) (*PhaseFilter, error) {
	f := &PhaseFilter{}
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "":
		case strings.ToLower(string(PhaseAccumulation)):
			f.Accumulation = true
		case strings.ToLower(string(PhaseBullRun)), "bull":
			f.BullRun = true
		case strings.ToLower(string(PhaseBearMarket)), "bear":
			f.BearMarket = true
		default:
			return nil, fmt.Errorf("unknown phase %q", n)
		}
	}
	return f, nil
}

// PurchaseRecord is one monthly contribution.
type PurchaseRecord struct {
	Date                time.Time `json:"date"`
	Phase               Phase     `json:"phase"`
	AmountContributed   float64   `json:"amountContributed"`
	UnitPriceAtPurchase float64   `json:"unitPriceAtPurchase"`
	UnitsAcquired       float64   `json:"unitsAcquired"`
	SequenceNumber      int       `json:"sequenceNumber"`
	MarkToMarketValue   float64   `json:"markToMarketValue"`
}

// MonthlyTrendPoint values the running position at the period price.
type MonthlyTrendPoint struct {
	Date                      time.Time `json:"date"`
	Phase                     Phase     `json:"phase"`
	Contributed               bool      `json:"contributed"`
	PriceOnDate               float64   `json:"priceOnDate"`
	CumulativeInvested        float64   `json:"cumulativeInvested"`
	CumulativeValueAtThatDate float64   `json:"cumulativeValueAtThatDate"`
	CumulativeUnits           float64   `json:"cumulativeUnits"`
}

// SimulationResult is transient and never persisted.
type SimulationResult struct {
	StartDate            time.Time           `json:"startDate"`
	EndDate              time.Time           `json:"endDate"`
	MonthlyAmount        float64             `json:"monthlyAmount"`
	TotalInvested        float64             `json:"totalInvested"`
	TotalUnits           float64             `json:"totalUnits"`
	TotalPurchases       int                 `json:"totalPurchases"`
	Months               int                 `json:"months"`
	CurrentSpotPrice     float64             `json:"currentSpotPrice"`
	CurrentValue         float64             `json:"currentValue"`
	ROIPercentage        float64             `json:"roiPercentage"`
	ROIUndefined         bool                `json:"roiUndefined"`
	AveragePurchasePrice float64             `json:"averagePurchasePrice"`
	CycleAllTimeHigh     float64             `json:"cycleAllTimeHigh"`
	CycleATHValue        float64             `json:"cycleATHValue"`
	PhaseCounts          map[Phase]int       `json:"phaseCounts"`
	PurchaseDetails      []PurchaseRecord    `json:"purchaseDetails"`
	PurchasePoints       []MonthlyTrendPoint `json:"purchasePoints"`
}
