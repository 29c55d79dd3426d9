package events

import (
	"context"
	"errors"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CycleDCA/internal/model"
)

type captureWriter struct {
	msgs []kafka.Message
	err  error
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func TestKafkaPublisher_PriceUpserted(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaPublisher{writer: w, topic: "cycledca.events"}
	at := time.Date(2024, 3, 14, 0, 5, 0, 0, time.UTC)

	e := PriceUpserted("BTC", Upsert{Date: "2024-03-14", Price: 73000, Action: model.ActionCreated, Changed: true}, at)
	require.NoError(t, p.Publish(context.Background(), e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "BTC", string(msg.Key))
	assert.Equal(t, TypePriceUpserted, string(msg.Headers[0].Value))

	var got Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, e.ID, got.ID)
	_, err := uuid.Parse(got.ID)
	assert.NoError(t, err)
	require.NotNil(t, got.Upsert)
	assert.Equal(t, 73000.0, got.Upsert.Price)
	assert.Nil(t, got.Refresh)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{writer: &captureWriter{err: errors.New("broker down")}, topic: "t"}
	err := p.Publish(context.Background(), NewEvent(TypeSeriesRefreshed, "BTC", time.Now()))
	assert.ErrorContains(t, err, "broker down")
}

func TestSeriesRefreshed(t *testing.T) {
	s := &model.MultiResolutionSeries{
		Symbol:      "BTC",
		Daily:       model.PriceSeries{{}, {}},
		LastUpdated: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	e := SeriesRefreshed(s)
	assert.Equal(t, TypeSeriesRefreshed, e.EventType)
	assert.Equal(t, 2, e.Refresh.DailyPoints)
	assert.Equal(t, s.LastUpdated, e.Timestamp)
	assert.NotEqual(t, e.ID, SeriesRefreshed(s).ID)
}
