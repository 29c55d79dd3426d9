// Package seriescache keeps per-asset price series in memory, fills gaps at
// either end through a fetcher and persists the merged result.
package seriescache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/model"
	"CycleDCA/internal/store"
)

// RangeFetcher is the fetch side of the cache, normally a collector.FallbackFetcher.
type RangeFetcher interface {
	FetchRange(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error)
}

// MissingRange returns the part of [start, end] not covered by cached, or nil
// when cached covers it. cached is treated as one contiguous block: gaps inside
// it are not detected. When both sides are missing the earlier gap is returned.
func MissingRange(cached model.PriceSeries, start, end time.Time) *model.DateRange {
	gaps := missingRanges(cached, start, end)
	if len(gaps) == 0 {
		return nil
	}
	return &gaps[0]
}

// missingRanges returns the uncovered ranges before and after cached, in order.
func missingRanges(cached model.PriceSeries, start, end time.Time) []model.DateRange {
	from, to := model.DayOf(start), model.DayOf(end)
	if to.Before(from) {
		return nil
	}
	first, ok := cached.First()
	if !ok {
		return []model.DateRange{{Start: from, End: to}}
	}
	last, _ := cached.Last()
	cs, ce := model.DayOf(first.Time), model.DayOf(last.Time)

	var gaps []model.DateRange
	if from.Before(cs) {
		gapEnd := cs.AddDate(0, 0, -1)
		if to.Before(gapEnd) {
			gapEnd = to
		}
		gaps = append(gaps, model.DateRange{Start: from, End: gapEnd})
	}
	if to.After(ce) {
		gapStart := ce.AddDate(0, 0, 1)
		if from.After(gapStart) {
			gapStart = from
		}
		gaps = append(gaps, model.DateRange{Start: gapStart, End: to})
	}
	return gaps
}

// Merge overlays fresh onto cached by calendar date; fresh wins. The result is
// a new slice sorted ascending and neither input is modified.
func Merge(cached, fresh model.PriceSeries) model.PriceSeries {
	byDate := make(map[string]model.PricePoint, len(cached)+len(fresh))
	for _, p := range cached {
		byDate[p.Date] = p
	}
	for _, p := range fresh {
		byDate[p.Date] = p
	}
	out := make(model.PriceSeries, 0, len(byDate))
	for _, p := range byDate {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Cache serves series per symbol. Reads share the current slice; writes
// build a new slice and swap it in.
type Cache struct {
	store   store.Store
	fetcher RangeFetcher
	now     func() time.Time

	mu     sync.RWMutex
	series map[string]model.PriceSeries
	loaded map[string]bool
}

// New creates a cache backed by st and filled through fetcher.
func New(st store.Store, fetcher RangeFetcher, now func() time.Time) *Cache {
	if st == nil {
		st = store.NewNoopStore()
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Cache{
		store:   st,
		fetcher: fetcher,
		now:     now,
		series:  make(map[string]model.PriceSeries),
		loaded:  make(map[string]bool),
	}
}

func cacheKey(symbol string) string {
	return store.SeriesKey(symbol, "cache")
}

// Cached returns the in-memory series for symbol, loading it from the store
// on first use.
func (c *Cache) Cached(ctx context.Context, symbol string) model.PriceSeries {
	c.mu.RLock()
	s, ok := c.series[symbol], c.loaded[symbol]
	c.mu.RUnlock()
	if ok {
		return s
	}

	var loaded model.PriceSeries
	e, err := c.store.LoadSeries(ctx, cacheKey(symbol))
	switch {
	case err == nil:
		loaded = e.Series
	case errors.Is(err, store.ErrNotFound):
	default:
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to load cached series, starting empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded[symbol] {
		return c.series[symbol]
	}
	c.series[symbol] = loaded
	c.loaded[symbol] = true
	return loaded
}

// Get returns the points in [start, end], fetching and merging whatever the
// cache does not cover yet. Each uncovered side is fetched once per call. If
// fetching fails the cached points are returned; the error is returned only
// when nothing is cached for the range.
func (c *Cache) Get(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	cached := c.Cached(ctx, symbol)

	var fetchErr error
	for _, gap := range missingRanges(cached, start, end) {
		fresh, err := c.fetcher.FetchRange(ctx, symbol, gap.Start, gap.End)
		if err != nil {
			fetchErr = err
			log.Warn().Err(err).Str("symbol", symbol).Str("range", gap.String()).Msg("gap fetch failed, serving cached data")
			continue
		}
		cached = c.merge(ctx, symbol, fresh)
	}

	out := cached.Between(start, end)
	if len(out) == 0 && fetchErr != nil {
		return nil, fmt.Errorf("get %s %s: %w", symbol, model.DateRange{Start: model.DayOf(start), End: model.DayOf(end)}, fetchErr)
	}
	return out, nil
}

func (c *Cache) merge(ctx context.Context, symbol string, fresh model.PriceSeries) model.PriceSeries {
	c.mu.Lock()
	merged := Merge(c.series[symbol], fresh)
	c.series[symbol] = merged
	c.loaded[symbol] = true
	c.mu.Unlock()

	c.persist(ctx, symbol, merged)
	return merged
}

// persist writes the series to the store; failures are logged only.
func (c *Cache) persist(ctx context.Context, symbol string, s model.PriceSeries) {
	e := &store.Entry{Key: cacheKey(symbol), Series: s, UpdatedAt: c.now()}
	if err := c.store.SaveSeries(ctx, e); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("failed to persist series, keeping in-memory copy")
	}
}

// Invalidate drops the in-memory and stored series for symbol.
func (c *Cache) Invalidate(ctx context.Context, symbol string) error {
	c.mu.Lock()
	delete(c.series, symbol)
	delete(c.loaded, symbol)
	c.mu.Unlock()
	if err := c.store.DeleteSeries(ctx, cacheKey(symbol)); err != nil {
		return fmt.Errorf("invalidate %s: %w", symbol, err)
	}
	return nil
}
