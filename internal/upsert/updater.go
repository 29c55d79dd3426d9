package upsert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/clock"
	"CycleDCA/internal/events"
	"CycleDCA/internal/metrics"
	"CycleDCA/internal/model"
	"CycleDCA/internal/state"
	"CycleDCA/internal/store"
)

// DefaultInterval is the minimum gap between two daily updates.
const DefaultInterval = 24 * time.Hour

// SpotSource supplies the current spot price.
type SpotSource interface {
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Result is the outcome of one Updater run.
type Result struct {
	Skipped bool
	NextDue time.Time
	Outcome *Outcome
	Price   float64
}

// Updater performs at most one daily upsert per Interval, tracked in a state
// file so the limit holds across restarts.
type Updater struct {
	Symbol    string
	Policy    *Policy
	Spot      SpotSource
	StatePath string
	Clock     clock.Clock
	Interval  time.Duration
	Store     store.Store
	Events    events.Publisher

	// OnUpdate runs after a successful upsert, typically a forced aggregator refresh.
	OnUpdate func(ctx context.Context)

	mu sync.Mutex
}

// Run fetches the spot price and applies it to today's row, unless the last
// update is younger than Interval and force is false.
func (u *Updater) Run(ctx context.Context, force bool) (*Result, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	clk := u.Clock
	if clk == nil {
		clk = clock.System{}
	}
	interval := u.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	now := clk.Now()

	st, err := state.Load(u.StatePath)
	if err != nil {
		return nil, fmt.Errorf("load update state: %w", err)
	}
	if !force && !state.Due(st, now, interval) {
		next := st.LastDailyUpdate.Add(interval)
		log.Debug().Str("symbol", u.Symbol).Time("next_due", next).Msg("daily update not due")
		return &Result{Skipped: true, NextDue: next}, nil
	}

	price, err := u.Spot.CurrentPrice(ctx, u.Symbol)
	if err != nil {
		metrics.RecordError("daily_update_spot")
		return nil, fmt.Errorf("fetch spot price: %w", err)
	}

	out, err := u.Policy.Apply(now, price)
	if err != nil {
		metrics.RecordError("daily_update_write")
		return nil, fmt.Errorf("apply daily price: %w", err)
	}
	metrics.RecordUpsert(string(out.Action))
	log.Info().Str("symbol", u.Symbol).Str("date", out.Date).Float64("price", out.Price).
		Str("action", string(out.Action)).Bool("changed", out.Changed).Msg("daily price upserted")

	st.LastDailyUpdate = now
	st.LastDate = out.Date
	st.LastPrice = out.Price
	st.LastAction = out.Action
	if err := state.Save(u.StatePath, st, now); err != nil {
		log.Error().Err(err).Str("path", u.StatePath).Msg("failed to save update state")
	}

	u.record(ctx, out, now)

	if u.OnUpdate != nil && out.Changed {
		u.OnUpdate(ctx)
	}
	return &Result{NextDue: now.Add(interval), Outcome: out, Price: price}, nil
}

// Upsert applies a manually submitted price. It does not touch the daily
// gating state.
func (u *Updater) Upsert(ctx context.Context, req *model.UpsertRequest) (*Outcome, error) {
	out, err := u.Policy.ApplyRequest(req)
	if err != nil {
		return nil, err
	}
	metrics.RecordUpsert(string(out.Action))
	log.Info().Str("symbol", u.Symbol).Str("date", out.Date).Float64("price", out.Price).
		Str("action", string(out.Action)).Bool("changed", out.Changed).Msg("manual price upserted")

	now := time.Now()
	if u.Clock != nil {
		now = u.Clock.Now()
	}
	u.record(ctx, out, now)

	if u.OnUpdate != nil && out.Changed {
		u.OnUpdate(ctx)
	}
	return out, nil
}

// record stores and publishes the outcome; failures are logged only.
func (u *Updater) record(ctx context.Context, out *Outcome, now time.Time) {
	if u.Store != nil {
		rec := &store.UpsertRecord{
			Date: out.Date, Price: out.Price, Previous: out.Previous,
			Action: out.Action, Changed: out.Changed, RecordedAt: now,
		}
		if err := u.Store.RecordUpsert(ctx, u.Symbol, rec); err != nil {
			log.Warn().Err(err).Str("symbol", u.Symbol).Msg("failed to record upsert history")
		}
	}
	if u.Events != nil {
		e := events.PriceUpserted(u.Symbol, events.Upsert{
			Date: out.Date, Price: out.Price, Previous: out.Previous,
			Action: out.Action, Changed: out.Changed,
		}, now)
		if err := u.Events.Publish(ctx, e); err != nil {
			log.Warn().Err(err).Str("symbol", u.Symbol).Msg("failed to publish upsert event")
		}
	}
}

// Response converts an outcome to the wire response.
func Response(out *Outcome) *model.UpsertResponse {
	msg := "price created"
	switch {
	case out.Action == model.ActionUpdated && out.Changed:
		msg = "price updated to new daily high"
	case out.Action == model.ActionUpdated:
		msg = "existing price kept, new price is not higher"
	}
	return &model.UpsertResponse{
		Success: true,
		Message: msg,
		Date:    out.Date,
		Price:   out.Price,
		Action:  out.Action,
	}
}
