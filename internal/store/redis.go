package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"CycleDCA/internal/model"
)

const (
	redisSeriesPrefix = "cycledca:series:"
	redisUpsertPrefix = "cycledca:upserts:"
	redisUpsertKeep   = 1000
)

type redisEntry struct {
	UpdatedAt time.Time         `json:"updatedAt"`
	Series    model.PriceSeries `json:"series"`
}

// RedisStore keeps each series as one JSON value, replaced with a single SET.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to addr and verifies the connection.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Msg("redis store connected")
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) LoadSeries(ctx context.Context, key string) (*Entry, error) {
	raw, err := s.client.Get(ctx, redisSeriesPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get series %s: %w", key, err)
	}
	var re redisEntry
	if err := json.Unmarshal(raw, &re); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", key, err)
	}
	return &Entry{Key: key, Series: re.Series, UpdatedAt: re.UpdatedAt}, nil
}

func (s *RedisStore) SaveSeries(ctx context.Context, e *Entry) error {
	raw, err := json.Marshal(redisEntry{UpdatedAt: e.UpdatedAt, Series: e.Series})
	if err != nil {
		return fmt.Errorf("encode series %s: %w", e.Key, err)
	}
	if err := s.client.Set(ctx, redisSeriesPrefix+e.Key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set series %s: %w", e.Key, err)
	}
	return nil
}

func (s *RedisStore) DeleteSeries(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, redisSeriesPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete series %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) RecordUpsert(ctx context.Context, symbol string, r *UpsertRecord) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode upsert: %w", err)
	}
	key := redisUpsertPrefix + symbol
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, redisUpsertKeep-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record upsert: %w", err)
	}
	return nil
}

// UpsertHistory returns up to limit recent upserts for symbol, newest first.
func (s *RedisStore) UpsertHistory(ctx context.Context, symbol string, limit int) ([]UpsertRecord, error) {
	vals, err := s.client.LRange(ctx, redisUpsertPrefix+symbol, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read upsert history: %w", err)
	}
	out := make([]UpsertRecord, 0, len(vals))
	for _, v := range vals {
		var r UpsertRecord
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode upsert history: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
