// Package events publishes domain events about price upserts and series refreshes.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"CycleDCA/internal/model"
)

const (
	TypePriceUpserted   = "PRICE_UPSERTED"
	TypeSeriesRefreshed = "SERIES_REFRESHED"
)

// Event is the envelope written to the topic.
type Event struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Upsert    *Upsert   `json:"upsert,omitempty"`
	Refresh   *Refresh  `json:"refresh,omitempty"`
}

// Upsert describes one daily price write.
type Upsert struct {
	Date     string             `json:"date"`
	Price    float64            `json:"price"`
	Previous float64            `json:"previous,omitempty"`
	Action   model.UpsertAction `json:"action"`
	Changed  bool               `json:"changed"`
}

// Refresh describes a new aggregated snapshot.
type Refresh struct {
	DailyPoints int             `json:"daily_points"`
	DataRange   model.DateRange `json:"data_range"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e *Event) error
	Close() error
}

// NewEvent stamps an event with a fresh id.
func NewEvent(eventType, symbol string, at time.Time) *Event {
	return &Event{
		ID:        uuid.NewString(),
		EventType: eventType,
		Symbol:    symbol,
		Timestamp: at,
	}
}

// PriceUpserted builds a PRICE_UPSERTED event.
func PriceUpserted(symbol string, u Upsert, at time.Time) *Event {
	e := NewEvent(TypePriceUpserted, symbol, at)
	e.Upsert = &u
	return e
}

// SeriesRefreshed builds a SERIES_REFRESHED event from a snapshot.
func SeriesRefreshed(s *model.MultiResolutionSeries) *Event {
	e := NewEvent(TypeSeriesRefreshed, s.Symbol, s.LastUpdated)
	e.Refresh = &Refresh{DailyPoints: len(s.Daily), DataRange: s.DataRange}
	return e
}

// NoopPublisher drops every event; used when Kafka is not configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) Publish(_ context.Context, _ *Event) error { return nil }
func (NoopPublisher) Close() error                              { return nil }
