package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/progression-engine/internal/domain/shared"
	"github.com/alem-hub/progression-engine/pkg/circuitbreaker"
)

var testAt = time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func badgeEvent() shared.Event {
	base := shared.NewBaseEvent("", "user-1", 3, testAt).WithCorrelationID("corr-1")
	return shared.NewBadgeUnlockedEvent(base, "FIRST_STEPS", "First Steps", "🎯", "common", 100, 2)
}

func syncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	cfg.Logger = quietLogger()
	return NewInMemoryEventBus(cfg)
}

func TestInMemoryEventBus_RoutesByType(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var typed, all int
	require.NoError(t, bus.Subscribe(shared.EventBadgeUnlocked, func(shared.Event) error { typed++; return nil }))
	require.NoError(t, bus.Subscribe(shared.EventLevelUp, func(shared.Event) error { t.Fatal("wrong type"); return nil }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { all++; return nil }))

	require.NoError(t, bus.Publish(badgeEvent()))

	assert.Equal(t, 1, typed)
	assert.Equal(t, 1, all)
	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
}

func TestInMemoryEventBus_RecoversPanics(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var after bool
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { after = true; return nil }))

	require.NoError(t, bus.Publish(badgeEvent()))
	assert.True(t, after)
	assert.Equal(t, int64(1), bus.Metrics().Snapshot().HandlerFailures)
}

func TestInMemoryEventBus_AsyncDeliversBeforeClose(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.Logger = quietLogger()
	bus := NewInMemoryEventBus(cfg)

	var count atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { count.Add(1); return nil }))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(badgeEvent()))
	}
	require.NoError(t, bus.Close())

	// Close waits for handlers already holding a worker slot; the rest may be dropped.
	assert.LessOrEqual(t, count.Load(), int32(20))
	assert.ErrorIs(t, bus.Publish(badgeEvent()), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventLevelUp, nil))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	require.NoError(t, LogSink(logger)(badgeEvent()))
	assert.Contains(t, buf.String(), `"kind":"badge"`)
	assert.Contains(t, buf.String(), `"user_id":"user-1"`)
}

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	err      error
	calls    int
}

func (p *fakePublisher) Publish(_ context.Context, channel string, message any) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, data)
	return nil
}

func TestPubSubSink(t *testing.T) {
	pub := &fakePublisher{}
	sink, err := PubSubSink(PubSubSinkConfig{
		Publisher: pub,
		Channel:   func(t shared.EventType) string { return "pubsub:progress." + t.NotificationKind() },
		IDs:       func() string { return "notif-1" },
	})
	require.NoError(t, err)

	require.NoError(t, sink(badgeEvent()))

	require.Len(t, pub.channels, 1)
	assert.Equal(t, "pubsub:progress.badge", pub.channels[0])

	var env shared.EventEnvelope
	require.NoError(t, json.Unmarshal(pub.messages[0], &env))
	assert.Equal(t, "notif-1", env.ID)
	assert.Equal(t, "badge", env.Kind)
	assert.Equal(t, int64(3), env.Version)
	assert.Equal(t, "corr-1", env.CorrelationID)
	assert.JSONEq(t, `"FIRST_STEPS"`, string(extract(t, env.Payload, "badgeId")))
}

func TestPubSubSink_Errors(t *testing.T) {
	_, err := PubSubSink(PubSubSinkConfig{})
	assert.Error(t, err)

	pub := &fakePublisher{err: errors.New("redis down")}
	sink, err := PubSubSink(PubSubSinkConfig{Publisher: pub})
	require.NoError(t, err)
	assert.ErrorContains(t, sink(badgeEvent()), "redis down")
}

func TestPubSubSink_BreakerStopsPublishing(t *testing.T) {
	pub := &fakePublisher{err: errors.New("redis down")}
	breaker := circuitbreaker.New("pubsub", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithCoolDown(time.Hour))
	sink, err := PubSubSink(PubSubSinkConfig{Publisher: pub, Breaker: breaker})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Error(t, sink(badgeEvent()))
	}
	assert.Equal(t, 2, pub.calls)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
	assert.ErrorIs(t, sink(badgeEvent()), circuitbreaker.ErrCircuitOpen)
}

func extract(t *testing.T, raw json.RawMessage, key string) json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m[key]
}
