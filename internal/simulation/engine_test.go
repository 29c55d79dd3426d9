package simulation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleDCA/internal/cycle"
	"CycleDCA/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pt(t time.Time, price float64) model.PricePoint {
	return model.NewDailyPoint(t, price)
}

// dailyRamp builds one point per day from start to end with a slowly rising price.
func dailyRamp(start, end time.Time) model.PriceSeries {
	var out model.PriceSeries
	for d, i := start, 0; !d.After(end); d, i = d.AddDate(0, 0, 1), i+1 {
		out = append(out, pt(d, 500+float64(i)))
	}
	return out
}

func TestRun_ThreeMonthScenario(t *testing.T) {
	e := NewEngine(cycle.Default())
	res, err := e.Run(Request{
		StartDate:     day(2020, 1, 1),
		EndDate:       day(2020, 3, 1),
		MonthlyAmount: 100,
		Series: model.PriceSeries{
			pt(day(2020, 1, 1), 10),
			pt(day(2020, 2, 1), 20),
			pt(day(2020, 3, 1), 25),
		},
		CurrentSpotPrice: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.TotalPurchases)
	assert.Equal(t, 3, res.Months)
	assert.Equal(t, 300.0, res.TotalInvested)
	assert.InDelta(t, 19.0, res.TotalUnits, 1e-12)
	assert.InDelta(t, 570.0, res.CurrentValue, 1e-9)
	assert.InDelta(t, 300.0/19.0, res.AveragePurchasePrice, 1e-12)
	assert.InDelta(t, 90.0, res.ROIPercentage, 1e-9)
	assert.False(t, res.ROIUndefined)

	require.Len(t, res.PurchaseDetails, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{res.PurchaseDetails[0].SequenceNumber, res.PurchaseDetails[1].SequenceNumber, res.PurchaseDetails[2].SequenceNumber})
	assert.InDelta(t, 10.0, res.PurchaseDetails[0].UnitsAcquired, 1e-12)
	assert.InDelta(t, 300.0, res.PurchaseDetails[0].MarkToMarketValue, 1e-9)

	require.Len(t, res.PurchasePoints, 3)
	// trend uses the period price, not the spot price
	assert.InDelta(t, 15.0*20, res.PurchasePoints[1].CumulativeValueAtThatDate, 1e-9)
	assert.InDelta(t, 19.0*25, res.PurchasePoints[2].CumulativeValueAtThatDate, 1e-9)
	assert.Equal(t, 200.0, res.PurchasePoints[1].CumulativeInvested)

	assert.Equal(t, 69000.0, res.CycleAllTimeHigh)
	assert.InDelta(t, 19*69000.0, res.CycleATHValue, 1e-6)
	assert.Equal(t, 3, res.PhaseCounts[model.PhaseAccumulation])
}

func TestRun_TotalsAreConsistent(t *testing.T) {
	e := NewEngine(cycle.Default())
	series := dailyRamp(day(2019, 1, 1), day(2023, 12, 31))
	res, err := e.Run(Request{
		StartDate:        day(2019, 3, 15),
		EndDate:          day(2023, 3, 14),
		MonthlyAmount:    250,
		Series:           series,
		CurrentSpotPrice: 60000,
	})
	require.NoError(t, err)

	assert.Equal(t, 48, res.Months)
	assert.Equal(t, res.Months, res.TotalPurchases, "no filter contributes every month")
	assert.Equal(t, 250*float64(res.TotalPurchases), res.TotalInvested)

	var sum float64
	for _, p := range res.PurchaseDetails {
		sum += p.UnitsAcquired
	}
	assert.InDelta(t, sum, res.TotalUnits, 1e-12)
}

func TestRun_BullRunOnly(t *testing.T) {
	e := NewEngine(cycle.Default())
	// the 2016-07-09..2017-12-17 bull run followed by the bear market to 2018-12-15
	res, err := e.Run(Request{
		StartDate:        day(2016, 8, 1),
		EndDate:          day(2018, 12, 1),
		MonthlyAmount:    100,
		Phases:           &model.PhaseFilter{BullRun: true},
		Series:           dailyRamp(day(2016, 1, 1), day(2019, 1, 1)),
		CurrentSpotPrice: 20000,
	})
	require.NoError(t, err)

	assert.Equal(t, 29, res.Months)
	assert.Equal(t, 17, res.TotalPurchases)
	assert.Less(t, res.TotalPurchases, res.Months)
	for _, p := range res.PurchaseDetails {
		assert.Equal(t, model.PhaseBullRun, p.Phase, p.Date.Format(model.DateLayout))
	}
	assert.Equal(t, 12, res.PhaseCounts[model.PhaseBearMarket])

	// non-contributing months still get a trend point
	require.Len(t, res.PurchasePoints, 29)
	last := res.PurchasePoints[len(res.PurchasePoints)-1]
	assert.False(t, last.Contributed)
	assert.Equal(t, res.TotalUnits, last.CumulativeUnits)
	assert.Equal(t, 19783.0, res.CycleAllTimeHigh)
}

func TestRun_NearestPriceFallback(t *testing.T) {
	e := NewEngine(cycle.Default())
	series := model.PriceSeries{pt(day(2020, 1, 1), 10), pt(day(2020, 3, 1), 30)}

	res, err := e.Run(Request{StartDate: day(2020, 2, 1), EndDate: day(2020, 2, 1), MonthlyAmount: 30, Series: series, CurrentSpotPrice: 30})
	require.NoError(t, err)
	require.Len(t, res.PurchaseDetails, 1)
	assert.Equal(t, 30.0, res.PurchaseDetails[0].UnitPriceAtPurchase, "Mar 1 is 29 days away, Jan 1 is 31")

	// equidistant neighbours: the earlier date wins, every time
	series = model.PriceSeries{pt(day(2020, 1, 1), 10), pt(day(2020, 1, 3), 30)}
	for i := 0; i < 3; i++ {
		res, err = e.Run(Request{StartDate: day(2020, 1, 2), EndDate: day(2020, 1, 2), MonthlyAmount: 30, Series: series, CurrentSpotPrice: 30})
		require.NoError(t, err)
		assert.Equal(t, 10.0, res.PurchaseDetails[0].UnitPriceAtPurchase)
	}
}

func TestRun_EmptySeriesRejected(t *testing.T) {
	e := NewEngine(cycle.Default())
	_, err := e.Run(Request{StartDate: day(2020, 1, 1), EndDate: day(2020, 6, 1), MonthlyAmount: 100, CurrentSpotPrice: 1})
	assert.ErrorIs(t, err, ErrEmptySeries)

	_, err = e.Run(Request{StartDate: day(2020, 1, 1), EndDate: day(2020, 6, 1), MonthlyAmount: 100, CurrentSpotPrice: 1,
		Series: model.PriceSeries{pt(day(2020, 1, 1), 0)}})
	assert.ErrorIs(t, err, ErrEmptySeries)
}

func TestRun_InvalidRequests(t *testing.T) {
	e := NewEngine(cycle.Default())
	series := model.PriceSeries{pt(day(2020, 1, 1), 10)}
	for name, req := range map[string]Request{
		"end before start": {StartDate: day(2020, 2, 1), EndDate: day(2020, 1, 1), MonthlyAmount: 1, Series: series, CurrentSpotPrice: 1},
		"zero amount":      {StartDate: day(2020, 1, 1), EndDate: day(2020, 2, 1), Series: series, CurrentSpotPrice: 1},
		"zero spot":        {StartDate: day(2020, 1, 1), EndDate: day(2020, 2, 1), MonthlyAmount: 1, Series: series},
		"missing dates":    {MonthlyAmount: 1, Series: series, CurrentSpotPrice: 1},
	} {
		_, err := e.Run(req)
		assert.ErrorIs(t, err, ErrInvalidRequest, name)
	}
}

func TestRun_ZeroContributionsFlagged(t *testing.T) {
	e := NewEngine(cycle.Default())
	res, err := e.Run(Request{
		StartDate:        day(2021, 1, 1),
		EndDate:          day(2021, 6, 1),
		MonthlyAmount:    100,
		Phases:           &model.PhaseFilter{BearMarket: true},
		Series:           dailyRamp(day(2020, 12, 1), day(2021, 7, 1)),
		CurrentSpotPrice: 35000,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalPurchases)
	assert.Equal(t, 6, res.Months)
	assert.True(t, res.ROIUndefined)
	assert.False(t, math.IsNaN(res.ROIPercentage) || math.IsInf(res.ROIPercentage, 0))
	assert.Zero(t, res.AveragePurchasePrice)
	assert.Empty(t, res.PurchaseDetails)
	assert.Len(t, res.PurchasePoints, 6)
}

func TestAddMonths_ClampsDay(t *testing.T) {
	start := day(2020, 1, 31)
	assert.Equal(t, day(2020, 2, 29), AddMonths(start, 1))
	assert.Equal(t, day(2020, 3, 31), AddMonths(start, 2))
	assert.Equal(t, day(2020, 4, 30), AddMonths(start, 3))
	assert.Equal(t, day(2021, 2, 28), AddMonths(start, 13))
	assert.Equal(t, start, AddMonths(start, 0))
}
