package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"CycleDCA/internal/model"
)

var (
	// ErrEmptySeries is returned by a provider that answered without usable prices.
	ErrEmptySeries = errors.New("provider returned no prices")
	// ErrAllProvidersFailed is wrapped by ExhaustedError.
	ErrAllProvidersFailed = errors.New("all price providers failed")
)

// Provider adapts one external price source to a uniform contract.
// Implementations return one point per UTC calendar day, ascending, with
// positive prices only.
type Provider interface {
	Name() string
	FetchRange(ctx context.Context, symbol string, start, end time.Time) (model.PriceSeries, error)
	FetchCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// dailySeries collapses raw observations into one point per UTC day.
// The latest observation of a day wins; non-positive prices and points outside
// [start, end] are dropped. Zero start or end leaves that side open.
func dailySeries(points []model.PricePoint, start, end time.Time) model.PriceSeries {
	raw := model.PriceSeries(points).Clone()
	raw.Sort()

	from, to := model.DayOf(start), model.DayOf(end)
	byDate := make(map[string]int, len(raw))
	out := make(model.PriceSeries, 0, len(raw))
	for _, p := range raw {
		if p.Price <= 0 {
			continue
		}
		d := model.DayOf(p.Time)
		if (!start.IsZero() && d.Before(from)) || (!end.IsZero() && d.After(to)) {
			continue
		}
		dp := model.NewDailyPoint(d, p.Price)
		if i, ok := byDate[dp.Date]; ok {
			out[i] = dp
			continue
		}
		byDate[dp.Date] = len(out)
		out = append(out, dp)
	}
	return out
}
