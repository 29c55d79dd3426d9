// Package store persists price series and the upsert history outside the
// per-year files.
package store

import (
	"context"
	"errors"
	"time"

	"CycleDCA/internal/model"
)

// ErrNotFound is returned when no series is stored under a key.
var ErrNotFound = errors.New("series not found")

// Entry is one persisted series.
type Entry struct {
	Key       string
	Series    model.PriceSeries
	UpdatedAt time.Time
}

// UpsertRecord is one applied daily upsert.
type UpsertRecord struct {
	Date       string             `json:"date"`
	Price      float64            `json:"price"`
	Previous   float64            `json:"previous"`
	Action     model.UpsertAction `json:"action"`
	Changed    bool               `json:"changed"`
	RecordedAt time.Time          `json:"recordedAt"`
}

// Store persists series keyed by asset, e.g. "BTC:daily".
// SaveSeries replaces the whole series under a key.
type Store interface {
	LoadSeries(ctx context.Context, key string) (*Entry, error)
	SaveSeries(ctx context.Context, e *Entry) error
	DeleteSeries(ctx context.Context, key string) error
	RecordUpsert(ctx context.Context, symbol string, r *UpsertRecord) error
	UpsertHistory(ctx context.Context, symbol string, limit int) ([]UpsertRecord, error)
	Close() error
}

// SeriesKey builds the storage key for a symbol and resolution.
func SeriesKey(symbol string, r model.Resolution) string {
	return symbol + ":" + string(r)
}
