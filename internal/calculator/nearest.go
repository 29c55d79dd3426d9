package calculator

import (
	"sort"
	"time"

	"CycleDCA/internal/model"
)

// PriceAt resolves the price for the calendar day of target: an exact date
// match when present, otherwise the point closest in time. Ties go to the
// earlier point. ok is false only for an empty series.
func PriceAt(series model.PriceSeries, target time.Time) (p model.PricePoint, exact bool, ok bool) {
	if len(series) == 0 {
		return model.PricePoint{}, false, false
	}
	day := model.DayOf(target)
	key := day.Format(model.DateLayout)

	i := sort.Search(len(series), func(i int) bool { return !series[i].Time.Before(day) })
	for j := i; j < len(series) && series[j].Time.Before(day.Add(24*time.Hour)); j++ {
		if series[j].Date == key {
			return series[j], true, true
		}
	}

	switch {
	case i == 0:
		return series[0], false, true
	case i == len(series):
		return series[len(series)-1], false, true
	}
	before, after := series[i-1], series[i]
	if day.Sub(before.Time) <= after.Time.Sub(day) {
		return before, false, true
	}
	return after, false, true
}
