package store

import "context"

// NoopStore is a no-op implementation used when no cache backend is configured.
type NoopStore struct{}

func NewNoopStore() *NoopStore { return &NoopStore{} }

func (n *NoopStore) LoadSeries(_ context.Context, _ string) (*Entry, error) {
	return nil, ErrNotFound
}

func (n *NoopStore) SaveSeries(_ context.Context, _ *Entry) error { return nil }

func (n *NoopStore) DeleteSeries(_ context.Context, _ string) error { return nil }

func (n *NoopStore) RecordUpsert(_ context.Context, _ string, _ *UpsertRecord) error { return nil }

func (n *NoopStore) UpsertHistory(_ context.Context, _ string, _ int) ([]UpsertRecord, error) {
	return nil, nil
}

func (n *NoopStore) Close() error { return nil }
