package calculator

import (
	"errors"
	"math"
	"time"

	"CycleDCA/internal/model"
)

// HighLow scans the series and returns its highest and lowest price.
func HighLow(series model.PriceSeries) (high, low float64, err error) {
	if len(series) == 0 {
		return 0, 0, errors.New("no price points provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, p := range series {
		if p.Price > high {
			high = p.Price
		}
		if p.Price < low {
			low = p.Price
		}
	}
	return high, low, nil
}

// HighLowBetween is HighLow restricted to the calendar days [start, end].
func HighLowBetween(series model.PriceSeries, start, end time.Time) (high, low float64, err error) {
	return HighLow(series.Between(start, end))
}

// PositionInRange returns where price sits within [low, high] (0.0~1.0).
func PositionInRange(price, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (price - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
