package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "skillswap/internal/app/outbox"
	"skillswap/internal/app/uow"
	"skillswap/internal/infra/outbox"
	"skillswap/internal/infra/storage/memory"
)

type fakeProducer struct {
	failures int
	sent     []outbox.Message
}

func (p *fakeProducer) Publish(_ context.Context, msg outbox.Message) error {
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, msg)
	return nil
}

func commitRecords(t *testing.T, store *memory.Store, records ...appoutbox.EventRecord) {
	t.Helper()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	for _, rec := range records {
		require.NoError(t, unit.Outbox().Add(ctx, rec))
	}
	require.NoError(t, unit.Commit(ctx))
}

func record(id, name, aggregate string) appoutbox.EventRecord {
	return appoutbox.EventRecord{
		ID:         id,
		Name:       name,
		Payload:    []byte(`{"swap_id":"` + aggregate + `"}`),
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Aggregate:  aggregate,
		Headers:    map[string]string{"traceparent": "00-abc-def-01"},
	}
}

func TestWorkerRelaysCloudEvents(t *testing.T) {
	store := memory.NewStore()
	commitRecords(t, store, record("e1", "swap.accepted", "s-1"), record("e2", "chat.opened", "c-1"))
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: store, Producer: producer, TopicPrefix: "dev.", ID: "w1"}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, producer.sent, 2)

	first := producer.sent[0]
	assert.Equal(t, "dev.swap.events.v1", first.Topic)
	assert.Equal(t, "s-1", first.Key)
	assert.Equal(t, "application/cloudevents+json", first.Headers["content-type"])
	assert.Equal(t, "00-abc-def-01", first.Headers["traceparent"])

	var evt map[string]any
	require.NoError(t, json.Unmarshal(first.Value, &evt))
	assert.Equal(t, "1.0", evt["specversion"])
	assert.Equal(t, "e1", evt["id"])
	assert.Equal(t, "swap.accepted.v1", evt["type"])
	assert.Equal(t, "app://skillswap", evt["source"])
	assert.Equal(t, map[string]any{"swap_id": "s-1"}, evt["data"])
	assert.Equal(t, "dev.chat.events.v1", producer.sent[1].Topic)

	_, states := store.OutboxRecords()
	assert.Equal(t, []string{outbox.StateSent, outbox.StateSent}, states)

	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerBacksOffFailedPublish(t *testing.T) {
	store := memory.NewStore()
	commitRecords(t, store, record("e1", "swap.completed", "s-1"))
	producer := &fakeProducer{failures: 1}
	w := &outbox.Worker{Store: store, Producer: producer, Backoff: []time.Duration{time.Hour}}

	n, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, producer.sent)
	_, states := store.OutboxRecords()
	assert.Equal(t, []string{outbox.StateFailed}, states)

	n, err = w.Drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n, "record is not due until the backoff elapses")

	w.Backoff = nil
	store2 := memory.NewStore()
	commitRecords(t, store2, record("e2", "swap.completed", "s-2"))
	w.Store = store2
	producer.failures = 1
	_, err = w.Drain(context.Background())
	require.NoError(t, err)
	_, states = store2.OutboxRecords()
	assert.Equal(t, []string{outbox.StateFailed}, states)
}

func TestWorkerMarksUndecodablePayloadFailed(t *testing.T) {
	store := memory.NewStore()
	rec := record("e1", "swap.proposed", "s-1")
	rec.Payload = []byte("not json")
	commitRecords(t, store, rec)
	producer := &fakeProducer{}
	w := &outbox.Worker{Store: store, Producer: producer}

	_, err := w.Drain(context.Background())
	require.NoError(t, err)
	assert.Empty(t, producer.sent)
	_, states := store.OutboxRecords()
	assert.Equal(t, []string{outbox.StateFailed}, states)
}

func TestRolledBackRecordsAreNeverRelayed(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	unit, err := store.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Outbox().Add(ctx, record("e1", "swap.proposed", "s-1")))
	require.NoError(t, unit.Rollback(ctx))

	producer := &fakeProducer{}
	w := &outbox.Worker{Store: store, Producer: producer}
	n, err := w.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWorkerRequiresDependencies(t *testing.T) {
	w := &outbox.Worker{}
	assert.ErrorIs(t, w.Run(context.Background()), outbox.ErrWorkerNotConfigured)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &outbox.Worker{Store: memory.NewStore(), Producer: outbox.LogProducer{}}
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}
