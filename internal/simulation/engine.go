// Package simulation runs monthly dollar-cost-averaging simulations over a
// price series, optionally contributing only in selected cycle phases.
package simulation

import (
	"errors"
	"fmt"
	"time"

	"CycleDCA/internal/calculator"
	"CycleDCA/internal/model"
)

var (
	// ErrEmptySeries is returned when no price can be resolved.
	ErrEmptySeries = errors.New("price series is empty")
	// ErrInvalidRequest marks a request with unusable parameters.
	ErrInvalidRequest = errors.New("invalid simulation request")
)

// Classifier maps dates to phases and ranges to a cycle peak.
type Classifier interface {
	Classify(t time.Time) model.Phase
	AllTimeHigh(start, end time.Time) float64
}

// Request is one simulation input. Phases may be nil.
type Request struct {
	StartDate        time.Time
	EndDate          time.Time
	MonthlyAmount    float64
	Phases           *model.PhaseFilter
	Series           model.PriceSeries
	CurrentSpotPrice float64
}

// Engine is stateless; one Engine may serve concurrent requests.
type Engine struct {
	classifier Classifier
}

// NewEngine creates an engine over classifier.
func NewEngine(classifier Classifier) *Engine {
	return &Engine{classifier: classifier}
}

func (r *Request) validate() error {
	switch {
	case r.StartDate.IsZero() || r.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidRequest)
	case model.DayOf(r.EndDate).Before(model.DayOf(r.StartDate)):
		return fmt.Errorf("%w: end %s before start %s", ErrInvalidRequest,
			r.EndDate.Format(model.DateLayout), r.StartDate.Format(model.DateLayout))
	case r.MonthlyAmount <= 0:
		return fmt.Errorf("%w: monthly amount must be positive", ErrInvalidRequest)
	case r.CurrentSpotPrice <= 0:
		return fmt.Errorf("%w: current spot price must be positive", ErrInvalidRequest)
	}
	return nil
}

// Run steps from StartDate one calendar month at a time until the stepped
// date passes EndDate. Each month is classified; when the filter allows the
// phase, MonthlyAmount buys units at the price on that date (or the nearest
// available date). Every month gets a trend point valued at the period price.
func (e *Engine) Run(req Request) (*model.SimulationResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	series := req.Series.Positive()
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	series.Sort()

	start, end := model.DayOf(req.StartDate), model.DayOf(req.EndDate)
	res := &model.SimulationResult{
		StartDate:        start,
		EndDate:          end,
		MonthlyAmount:    req.MonthlyAmount,
		CurrentSpotPrice: req.CurrentSpotPrice,
		PhaseCounts:      make(map[model.Phase]int, len(model.Phases)),
		PurchaseDetails:  []model.PurchaseRecord{},
		PurchasePoints:   []model.MonthlyTrendPoint{},
	}

	var units float64
	purchases := 0
	for i := 0; ; i++ {
		d := AddMonths(start, i)
		if d.After(end) {
			break
		}
		res.Months++

		phase := e.classifier.Classify(d)
		res.PhaseCounts[phase]++

		point, _, _ := calculator.PriceAt(series, d)
		price := point.Price

		contributed := req.Phases.Allows(phase)
		if contributed {
			bought := req.MonthlyAmount / price
			units += bought
			purchases++
			res.PurchaseDetails = append(res.PurchaseDetails, model.PurchaseRecord{
				Date:                d,
				Phase:               phase,
				AmountContributed:   req.MonthlyAmount,
				UnitPriceAtPurchase: price,
				UnitsAcquired:       bought,
				SequenceNumber:      purchases,
				MarkToMarketValue:   bought * req.CurrentSpotPrice,
			})
		}

		res.PurchasePoints = append(res.PurchasePoints, model.MonthlyTrendPoint{
			Date:                      d,
			Phase:                     phase,
			Contributed:               contributed,
			PriceOnDate:               price,
			CumulativeInvested:        req.MonthlyAmount * float64(purchases),
			CumulativeValueAtThatDate: units * price,
			CumulativeUnits:           units,
		})
	}

	res.TotalPurchases = purchases
	res.TotalUnits = units
	res.TotalInvested = req.MonthlyAmount * float64(purchases)
	res.CurrentValue = units * req.CurrentSpotPrice
	if res.TotalInvested == 0 {
		res.ROIUndefined = true
	} else {
		res.ROIPercentage = (res.CurrentValue - res.TotalInvested) / res.TotalInvested * 100
		res.AveragePurchasePrice = res.TotalInvested / units
	}
	res.CycleAllTimeHigh = e.classifier.AllTimeHigh(start, end)
	res.CycleATHValue = units * res.CycleAllTimeHigh
	return res, nil
}

// AddMonths returns the date n calendar months after t, clamping the day to
// the target month's length (Jan 31 + 1 month = Feb 28 or 29).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	d := t.Day()
	if d > lastDay {
		d = lastDay
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}
