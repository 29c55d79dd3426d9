package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"CycleDCA/internal/metrics"
	"CycleDCA/internal/model"
)

// ExhaustedError reports that every provider in the chain failed.
// It unwraps to ErrAllProvidersFailed and to each provider's last error.
type ExhaustedError struct {
	Op     string
	Errors map[string]error
	order  []string
}

func (e *ExhaustedError) add(provider string, err error) {
	if e.Errors == nil {
		e.Errors = make(map[string]error)
	}
	if _, ok := e.Errors[provider]; !ok {
		e.order = append(e.order, provider)
	}
	e.Errors[provider] = err
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.order))
	for _, name := range e.order {
		parts = append(parts, fmt.Sprintf("%s: %v", name, e.Errors[name]))
	}
	return fmt.Sprintf("%s: %v [%s]", e.Op, ErrAllProvidersFailed, strings.Join(parts, "; "))
}

func (e *ExhaustedError) Unwrap() []error {
	errs := []error{ErrAllProvidersFailed}
	for _, name := range e.order {
		errs = append(errs, e.Errors[name])
	}
	return errs
}

// FallbackFetcher tries Providers strictly in order. Each provider gets
// Retries extra attempts with exponential backoff from RetryDelay before the
// chain moves on. The first non-empty success is returned untouched; results
// from different providers are never blended. When the whole chain fails,
// FetchRange repeats it ChainRetries more times.
type FallbackFetcher struct {
	Providers    []Provider
	Retries      int
	RetryDelay   time.Duration
	ChainRetries int

	// sleep waits for d or until ctx is done; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFallbackFetcher builds a chain over providers.
func NewFallbackFetcher(providers []Provider, retries int, retryDelay time.Duration, chainRetries int) *FallbackFetcher {
	return &FallbackFetcher{
		Providers:    providers,
		Retries:      retries,
		RetryDelay:   retryDelay,
		ChainRetries: chainRetries,
	}
}

func (f *FallbackFetcher) wait(ctx context.Context, d time.Duration) error {
	if f.sleep != nil {
		return f.sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (f *FallbackFetcher) backoff(attempt int) time.Duration {
	return f.RetryDelay * time.Duration(1<<uint(attempt))
}

// FetchRange returns the first provider's non-empty series for [start, end].
func (f *FallbackFetcher) FetchRange(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	if len(f.Providers) == 0 {
		return nil, fmt.Errorf("fetch range: no providers configured")
	}
	var lastErr error
	for round := 0; round <= f.ChainRetries; round++ {
		if round > 0 {
			delay := f.backoff(round)
			log.Warn().Err(lastErr).Int("round", round).Dur("backoff", delay).Str("symbol", symbol).Msg("provider chain failed, retrying")
			if err := f.wait(ctx, delay); err != nil {
				return nil, err
			}
		}
		series, err := f.fetchRangeOnce(ctx, symbol, start, end)
		if err == nil {
			return series, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
	}
	return nil, lastErr
}

func (f *FallbackFetcher) fetchRangeOnce(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error) {
	exhausted := &ExhaustedError{Op: "fetch range " + symbol}
	for _, p := range f.Providers {
		var series model.PriceSeries
		err := f.attempt(ctx, p.Name(), func() error {
			s, err := p.FetchRange(ctx, symbol, start, end)
			if err != nil {
				return err
			}
			if len(s) == 0 {
				return fmt.Errorf("%s: %w", p.Name(), ErrEmptySeries)
			}
			series = s
			return nil
		})
		if err == nil {
			log.Debug().Str("provider", p.Name()).Str("symbol", symbol).Int("points", len(series)).Msg("range fetched")
			return series, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("provider failed, trying next")
		exhausted.add(p.Name(), err)
	}
	return nil, exhausted
}

// CurrentPrice returns the first provider's positive spot price.
func (f *FallbackFetcher) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if len(f.Providers) == 0 {
		return 0, fmt.Errorf("current price: no providers configured")
	}
	exhausted := &ExhaustedError{Op: "current price " + symbol}
	for _, p := range f.Providers {
		var price float64
		err := f.attempt(ctx, p.Name(), func() error {
			v, err := p.FetchCurrentPrice(ctx, symbol)
			if err != nil {
				return err
			}
			if v <= 0 {
				return fmt.Errorf("%s: non-positive price %v", p.Name(), v)
			}
			price = v
			return nil
		})
		if err == nil {
			metrics.UpdateSpotPrice(symbol, price)
			return price, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.Warn().Err(err).Str("provider", p.Name()).Str("symbol", symbol).Msg("spot price failed, trying next")
		exhausted.add(p.Name(), err)
	}
	return 0, exhausted
}

// attempt runs call up to Retries+1 times with exponential backoff.
func (f *FallbackFetcher) attempt(ctx context.Context, provider string, call func() error) error {
	var lastErr error
	for i := 0; i <= f.Retries; i++ {
		if i > 0 {
			delay := f.backoff(i - 1)
			log.Debug().Err(lastErr).Str("provider", provider).Int("attempt", i+1).Dur("backoff", delay).Msg("retrying provider")
			if err := f.wait(ctx, delay); err != nil {
				return err
			}
		}
		began := time.Now()
		err := call()
		metrics.RecordProviderRequest(provider, time.Since(began), err)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptySeries) {
			return err
		}
	}
	return fmt.Errorf("%d attempts: %w", f.Retries+1, lastErr)
}
