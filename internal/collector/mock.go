package collector

import (
	"context"
	"fmt"
	"time"

	"CycleDCA/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
// With Series unset it synthesizes a gently trending daily series around Price.
type MockProvider struct {
	ProviderName string
	Price        float64
	Series       model.PriceSeries
	Err          error
}

func (m *MockProvider) Name() string {
	if m.ProviderName != "" {
		return m.ProviderName
	}
	return "mock"
}

func (m *MockProvider) FetchRange(_ context.Context, _ string, start, end time.Time) (model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Series != nil {
		s := m.Series.Between(start, end)
		if len(s) == 0 {
			return nil, fmt.Errorf("%s: %w", m.Name(), ErrEmptySeries)
		}
		return s, nil
	}
	return generateMockSeries(m.Price, start, end), nil
}

func (m *MockProvider) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	if m.Price <= 0 {
		return 0, fmt.Errorf("%s: no price configured", m.Name())
	}
	return m.Price, nil
}

func generateMockSeries(basePrice float64, start, end time.Time) model.PriceSeries {
	from, to := model.DayOf(start), model.DayOf(end)
	days := int(to.Sub(from).Hours()/24) + 1
	if days <= 0 || basePrice <= 0 {
		return nil
	}
	out := make(model.PriceSeries, 0, days)
	for i := 0; i < days; i++ {
		p := basePrice * (1 + float64(i-days/2)*0.001)
		if p <= 0 {
			p = basePrice * 0.001
		}
		out = append(out, model.NewDailyPoint(from.AddDate(0, 0, i), p))
	}
	return out
}
