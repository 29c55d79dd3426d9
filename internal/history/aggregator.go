// Package history builds the canonical multi-resolution price series of one
// asset from curated milestones, a bulk history file, per-year records, the
// current year's feed and the spot price.
package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/calculator"
	"CycleDCA/internal/clock"
	"CycleDCA/internal/metrics"
	"CycleDCA/internal/model"
	"CycleDCA/internal/seriescache"
	"CycleDCA/internal/store"
	"CycleDCA/internal/yearfile"
)

const (
	HourlyStep   = time.Hour
	Minute15Step = 15 * time.Minute
)

// ErrDisposed is returned by an aggregator after Dispose.
var ErrDisposed = errors.New("aggregator disposed")

// Config wires the sources of an Aggregator. Every source is optional.
type Config struct {
	Symbol     string
	Milestones model.PriceSeries
	BulkFile   string
	Years      *yearfile.Dir
	Current    CurrentYearSource
	Spot       SpotSource
	Store      store.Store
	Clock      clock.Clock

	// RefreshInterval after which the snapshot is stale.
	RefreshInterval time.Duration
	// HourlyDays and Minute15Days bound the trailing daily window that is
	// interpolated; zero interpolates the full history.
	HourlyDays   int
	Minute15Days int

	// OnRefresh is called with every new snapshot.
	OnRefresh func(*model.MultiResolutionSeries)
}

// Aggregator owns the canonical series of one asset. Readers share the
// current snapshot, which is never mutated; Refresh swaps in a new one.
type Aggregator struct {
	cfg Config

	mu   sync.RWMutex
	snap *model.MultiResolutionSeries

	refreshMu sync.Mutex
	life      context.Context
	dispose   context.CancelFunc
}

// New validates cfg and returns an aggregator with an empty snapshot.
func New(cfg Config) (*Aggregator, error) {
	if cfg.Symbol == "" {
		return nil, fmt.Errorf("new aggregator: symbol is required")
	}
	if cfg.Store == nil {
		cfg.Store = store.NewNoopStore()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = time.Hour
	}
	life, cancel := context.WithCancel(context.Background())
	return &Aggregator{
		cfg:     cfg,
		snap:    &model.MultiResolutionSeries{Symbol: cfg.Symbol},
		life:    life,
		dispose: cancel,
	}, nil
}

// Init runs the first aggregation.
func (a *Aggregator) Init(ctx context.Context) error {
	_, err := a.Refresh(ctx, true)
	return err
}

// Series returns the current snapshot. Callers must not modify it.
func (a *Aggregator) Series() *model.MultiResolutionSeries {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap
}

// Stale reports whether the snapshot is older than the refresh interval.
func (a *Aggregator) Stale() bool {
	s := a.Series()
	return s.LastUpdated.IsZero() || a.cfg.Clock.Now().Sub(s.LastUpdated) >= a.cfg.RefreshInterval
}

// Refresh reaggregates from scratch when the snapshot is stale or force is set.
// It reports whether a new snapshot was installed.
func (a *Aggregator) Refresh(ctx context.Context, force bool) (bool, error) {
	if a.life.Err() != nil {
		return false, ErrDisposed
	}
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()
	if !force && !a.Stale() {
		return false, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(a.life, cancel)
	defer stop()

	next, err := a.aggregate(ctx)
	if err != nil {
		if a.life.Err() != nil {
			return false, ErrDisposed
		}
		return false, err
	}

	a.mu.Lock()
	a.snap = next
	a.mu.Unlock()

	metrics.RecordAggregation(next.Symbol, len(next.Daily), len(next.Hourly), len(next.Minute15), next.LastUpdated)
	log.Info().Str("symbol", next.Symbol).Int("daily", len(next.Daily)).Str("range", next.DataRange.String()).Msg("series aggregated")
	if a.cfg.OnRefresh != nil {
		a.cfg.OnRefresh(next)
	}
	return true, nil
}

// Dispose cancels any in-flight refresh and rejects further ones.
func (a *Aggregator) Dispose() {
	a.dispose()
}

func (a *Aggregator) persistedKey() string {
	return store.SeriesKey(a.cfg.Symbol, model.ResolutionDaily)
}

func (a *Aggregator) aggregate(ctx context.Context) (*model.MultiResolutionSeries, error) {
	now := a.cfg.Clock.Now()
	year := now.Year()
	symbol := a.cfg.Symbol

	loaded := false
	combined := a.loadYears(&loaded)

	if bulk := a.loadBulk(&loaded); len(bulk) > 0 {
		combined = overlayWholesale(combined, bulk)
	}

	if a.cfg.Current != nil {
		current, err := a.cfg.Current.CurrentYear(ctx, year, now)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("symbol", symbol).Int("year", year).Msg("skipping current year source")
		case len(current) > 0:
			loaded = true
			combined = spliceYear(combined, current.Positive(), year)
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var daily model.PriceSeries
	if loaded {
		daily = seriescache.Merge(a.cfg.Milestones, combined)
		a.persist(ctx, daily, now)
	} else {
		daily = a.fallback(ctx)
	}

	daily = a.topUp(ctx, daily, now)
	daily = daily.Positive()
	daily.Sort()

	out := &model.MultiResolutionSeries{
		Symbol:      symbol,
		Daily:       daily,
		Hourly:      calculator.Interpolate(trailing(daily, a.cfg.HourlyDays), HourlyStep),
		Minute15:    calculator.Interpolate(trailing(daily, a.cfg.Minute15Days), Minute15Step),
		LastUpdated: now,
	}
	if first, ok := daily.First(); ok {
		last, _ := daily.Last()
		out.DataRange = model.DateRange{Start: first.Time, End: last.Time}
	}
	return out, nil
}

// loadYears concatenates every per-year file, oldest first. Zero-price seed
// rows are dropped.
func (a *Aggregator) loadYears(loaded *bool) model.PriceSeries {
	if a.cfg.Years == nil {
		return nil
	}
	years, err := a.cfg.Years.Years()
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.cfg.Symbol).Msg("skipping per-year records")
		return nil
	}
	var out model.PriceSeries
	for _, y := range years {
		s, err := a.cfg.Years.Load(y)
		if err != nil {
			log.Warn().Err(err).Str("symbol", a.cfg.Symbol).Int("year", y).Msg("skipping year file")
			continue
		}
		s = s.Positive()
		if len(s) > 0 {
			*loaded = true
			out = append(out, s...)
		}
	}
	return out
}

func (a *Aggregator) loadBulk(loaded *bool) model.PriceSeries {
	if a.cfg.BulkFile == "" {
		return nil
	}
	s, err := yearfile.ReadFile(a.cfg.BulkFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", a.cfg.BulkFile).Msg("no bulk history file")
		} else {
			log.Warn().Err(err).Str("path", a.cfg.BulkFile).Msg("skipping bulk history file")
		}
		return nil
	}
	s = s.Positive()
	if len(s) > 0 {
		*loaded = true
	}
	return s
}

// fallback serves the last persisted aggregation when no live source produced data,
// and the milestones when nothing was ever persisted.
func (a *Aggregator) fallback(ctx context.Context) model.PriceSeries {
	e, err := a.cfg.Store.LoadSeries(ctx, a.persistedKey())
	if err == nil && len(e.Series) > 0 {
		log.Warn().Str("symbol", a.cfg.Symbol).Time("saved_at", e.UpdatedAt).Msg("all sources failed, using persisted series")
		return e.Series.Clone()
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Str("symbol", a.cfg.Symbol).Msg("persisted series unavailable")
	}
	log.Warn().Str("symbol", a.cfg.Symbol).Msg("no price data from any source")
	return a.cfg.Milestones.Clone()
}

func (a *Aggregator) persist(ctx context.Context, daily model.PriceSeries, now time.Time) {
	e := &store.Entry{Key: a.persistedKey(), Series: daily, UpdatedAt: now}
	if err := a.cfg.Store.SaveSeries(ctx, e); err != nil {
		log.Warn().Err(err).Str("symbol", a.cfg.Symbol).Msg("failed to persist aggregated series")
	}
}

// topUp appends today's spot price when today has no point yet.
func (a *Aggregator) topUp(ctx context.Context, daily model.PriceSeries, now time.Time) model.PriceSeries {
	if a.cfg.Spot == nil {
		return daily
	}
	today := model.DayOf(now)
	if last, ok := daily.Last(); ok && !last.Time.Before(today) {
		return daily
	}
	price, err := a.cfg.Spot.CurrentPrice(ctx, a.cfg.Symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", a.cfg.Symbol).Msg("skipping spot top-up")
		return daily
	}
	if price <= 0 {
		return daily
	}
	return append(daily.Clone(), model.NewDailyPoint(today, price))
}

// overlayWholesale replaces every point of base inside bulk's date span with bulk.
func overlayWholesale(base, bulk model.PriceSeries) model.PriceSeries {
	first, _ := bulk.First()
	last, _ := bulk.Last()
	out := make(model.PriceSeries, 0, len(base)+len(bulk))
	for _, p := range base {
		if p.Time.Before(first.Time) || p.Time.After(last.Time) {
			out = append(out, p)
		}
	}
	out = append(out, bulk...)
	out.Sort()
	return out
}

// spliceYear discards base's entries in year and appends current's entries in year.
func spliceYear(base, current model.PriceSeries, year int) model.PriceSeries {
	out := make(model.PriceSeries, 0, len(base)+len(current))
	for _, p := range base {
		if p.Time.Year() != year {
			out = append(out, p)
		}
	}
	for _, p := range current {
		if p.Time.Year() == year {
			out = append(out, p)
		}
	}
	out.Sort()
	return out
}

// trailing returns the points within the last days days of s; zero keeps all.
func trailing(s model.PriceSeries, days int) model.PriceSeries {
	last, ok := s.Last()
	if !ok || days <= 0 {
		return s
	}
	return s.Between(last.Time.AddDate(0, 0, -days), last.Time)
}
