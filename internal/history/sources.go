package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/model"
	"CycleDCA/internal/seriescache"
	"CycleDCA/internal/yearfile"
)

// CurrentYearSource supplies the freshest records of the running calendar year.
type CurrentYearSource interface {
	CurrentYear(ctx context.Context, year int, through time.Time) (model.PriceSeries, error)
}

// SpotSource supplies the current spot price.
type SpotSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

func milestone(date string, price float64) model.PricePoint {
	t, err := model.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return model.NewDailyPoint(t, price)
}

// DefaultMilestones are hand-curated BTC closes from before reliable daily data.
var DefaultMilestones = model.PriceSeries{
	milestone("2010-07-17", 0.05),
	milestone("2010-10-01", 0.06),
	milestone("2010-11-06", 0.39),
	milestone("2011-02-09", 1.00),
	milestone("2011-06-08", 29.60),
	milestone("2011-11-18", 2.01),
	milestone("2012-01-01", 5.27),
	milestone("2012-08-17", 15.40),
	milestone("2012-11-28", 12.35),
	milestone("2013-01-01", 13.30),
}

// CachedCurrentYear reads the current year through the series cache and
// overlays the year's file, whose entries win for the dates they hold.
type CachedCurrentYear struct {
	Symbol string
	Cache  *seriescache.Cache
	Years  *yearfile.Dir
}

func (c *CachedCurrentYear) CurrentYear(ctx context.Context, year int, through time.Time) (model.PriceSeries, error) {
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	var fetched model.PriceSeries
	var fetchErr error
	if c.Cache != nil {
		fetched, fetchErr = c.Cache.Get(ctx, c.Symbol, from, through)
		if fetchErr != nil {
			log.Warn().Err(fetchErr).Str("symbol", c.Symbol).Int("year", year).Msg("current year fetch failed")
		}
	}

	var recorded model.PriceSeries
	var fileErr error
	if c.Years != nil && c.Years.Exists(year) {
		recorded, fileErr = c.Years.Load(year)
		if fileErr != nil {
			log.Warn().Err(fileErr).Str("symbol", c.Symbol).Int("year", year).Msg("current year file unreadable")
		}
	}

	out := seriescache.Merge(fetched, recorded.Positive()).Between(from, through)
	if len(out) == 0 {
		if fetchErr != nil {
			return nil, fmt.Errorf("current year %d: %w", year, fetchErr)
		}
		if fileErr != nil {
			return nil, fmt.Errorf("current year %d: %w", year, fileErr)
		}
	}
	return out, nil
}
