package calculator

import (
	"time"

	"CycleDCA/internal/model"
)

// MinPrice floors interpolated prices so derived points are always positive.
const MinPrice = 1e-8

// Interpolate derives a finer series from daily points by linear
// interpolation of price against elapsed time. Every source point is kept;
// steps are inserted between consecutive points. The final point is emitted as-is.
func Interpolate(daily model.PriceSeries, step time.Duration) model.PriceSeries {
	if len(daily) == 0 || step <= 0 {
		return nil
	}
	out := make(model.PriceSeries, 0, estimate(daily, step))
	for i := 0; i < len(daily)-1; i++ {
		a, b := daily[i], daily[i+1]
		span := b.Time.Sub(a.Time)
		if span <= 0 {
			continue
		}
		for t := a.Time; t.Before(b.Time); t = t.Add(step) {
			frac := float64(t.Sub(a.Time)) / float64(span)
			price := a.Price + (b.Price-a.Price)*frac
			if price < MinPrice {
				price = MinPrice
			}
			out = append(out, model.NewPricePoint(t, price))
		}
	}
	last := daily[len(daily)-1]
	if last.Price < MinPrice {
		last.Price = MinPrice
	}
	return append(out, model.NewPricePoint(last.Time, last.Price))
}

func estimate(daily model.PriceSeries, step time.Duration) int {
	first, _ := daily.First()
	last, _ := daily.Last()
	n := int(last.Time.Sub(first.Time)/step) + 1
	if n < len(daily) {
		return len(daily)
	}
	return n
}
