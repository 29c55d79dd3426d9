package model

import (
	"fmt"
	"sort"
	"time"
)

// DateLayout is the ISO calendar-day layout used for every date key.
const DateLayout = "2006-01-02"

// Resolution names one granularity of a MultiResolutionSeries.
type Resolution string

const (
	ResolutionDaily    Resolution = "daily"
	ResolutionHourly   Resolution = "hourly"
	ResolutionMinute15 Resolution = "minute15"
)

// PricePoint is a single observation of an asset price.
type PricePoint struct {
	Time  time.Time `json:"timestamp"`
	Date  string    `json:"date"`
	Price float64   `json:"price"`
}

// NewPricePoint builds a point whose Date is the UTC calendar day of t.
func NewPricePoint(t time.Time, price float64) PricePoint {
	t = t.UTC()
	return PricePoint{Time: t, Date: t.Format(DateLayout), Price: price}
}

// NewDailyPoint builds a point pinned to UTC midnight of t's calendar day.
func NewDailyPoint(t time.Time, price float64) PricePoint {
	return NewPricePoint(DayOf(t), price)
}

// DayOf truncates t to UTC midnight of its calendar day.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar day into UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// PriceSeries is ordered ascending by time with one point per date.
type PriceSeries []PricePoint

// Sort orders the series ascending by timestamp.
func (s PriceSeries) Sort() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
}

// Clone returns an independent copy.
func (s PriceSeries) Clone() PriceSeries {
	if s == nil {
		return nil
	}
	out := make(PriceSeries, len(s))
	copy(out, s)
	return out
}

// First returns the earliest point.
func (s PriceSeries) First() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[0], true
}

// Last returns the latest point.
func (s PriceSeries) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Between returns the points whose calendar day lies in [start, end].
func (s PriceSeries) Between(start, end time.Time) PriceSeries {
	from := DayOf(start)
	to := DayOf(end).Add(24 * time.Hour)
	var out PriceSeries
	for _, p := range s {
		if !p.Time.Before(from) && p.Time.Before(to) {
			out = append(out, p)
		}
	}
	return out
}

// Positive drops points with a non-positive price.
func (s PriceSeries) Positive() PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, p := range s {
		if p.Price > 0 {
			out = append(out, p)
		}
	}
	return out
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r DateRange) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// MultiResolutionSeries is the canonical aggregated history of one asset.
// Hourly and Minute15 are derived from Daily, never fetched independently.
type MultiResolutionSeries struct {
	Symbol      string      `json:"symbol"`
	Daily       PriceSeries `json:"daily"`
	Hourly      PriceSeries `json:"hourly"`
	Minute15    PriceSeries `json:"minute15"`
	LastUpdated time.Time   `json:"lastUpdated"`
	DataRange   DateRange   `json:"dataRange"`
}

// At returns the series for the given resolution.
func (m *MultiResolutionSeries) At(r Resolution) (PriceSeries, error) {
	switch r {
	case ResolutionDaily, "":
		return m.Daily, nil
	case ResolutionHourly:
		return m.Hourly, nil
	case ResolutionMinute15:
		return m.Minute15, nil
	default:
		return nil, fmt.Errorf("unknown resolution %q", r)
	}
}

// Empty reports whether no daily data is present.
func (m *MultiResolutionSeries) Empty() bool {
	return m == nil || len(m.Daily) == 0
}
