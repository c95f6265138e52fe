package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/events"
	kafkax "github.com/haderMaya1/coquito-amarillo/internal/kafka"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReceiver struct {
	calls []int64
	err   error
}

func (f *fakeReceiver) Receive(ctx context.Context, id int64) (*procurement.Order, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	return &procurement.Order{ID: id, Status: procurement.StatusReceived}, nil
}

type fakeDedup struct{ keys map[string]bool }

func (f *fakeDedup) Exists(ctx context.Context, key string) (bool, error) { return f.keys[key], nil }

func (f *fakeDedup) Mark(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if f.keys[key] {
		return false, nil
	}
	f.keys[key] = true
	return true, nil
}

func message(t *testing.T, eventType string, orderID int64) kafkago.Message {
	t.Helper()
	e, err := events.New(eventType, "test", orderID, events.OrderReceivedPayload{OrderID: orderID})
	require.NoError(t, err)
	m, err := kafkax.Message(e)
	require.NoError(t, err)
	return m
}

func newService() (*Service, *fakeReceiver, *fakeDedup) {
	r := &fakeReceiver{}
	d := &fakeDedup{keys: map[string]bool{}}
	return &Service{Orders: r, Dedup: d, Log: zap.NewNop(), ServiceName: "restock"}, r, d
}

func TestHandleOrderReceived(t *testing.T) {
	svc, r, d := newService()
	m := message(t, events.TypeOrderReceived, 12)

	require.NoError(t, svc.HandleOrderReceived(context.Background(), m))
	assert.Equal(t, []int64{12}, r.calls)
	assert.Len(t, d.keys, 1)

	require.NoError(t, svc.HandleOrderReceived(context.Background(), m), "redelivery is skipped")
	assert.Equal(t, []int64{12}, r.calls)
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	svc, r, _ := newService()
	require.NoError(t, svc.HandleOrderReceived(context.Background(), message(t, events.TypeSaleCreated, 1)))
	assert.Empty(t, r.calls)
}

func TestHandleAlreadyReceivedOrderIsCommitted(t *testing.T) {
	svc, r, d := newService()
	r.err = procurement.ErrNotPending
	require.NoError(t, svc.HandleOrderReceived(context.Background(), message(t, events.TypeOrderReceived, 3)))
	assert.Len(t, d.keys, 1)
}

func TestHandleFailureIsRetried(t *testing.T) {
	svc, r, d := newService()
	r.err = errors.New("db down")
	m := message(t, events.TypeOrderReceived, 3)
	assert.Error(t, svc.HandleOrderReceived(context.Background(), m))
	assert.Empty(t, d.keys, "failed messages are not marked")

	assert.Error(t, svc.HandleOrderReceived(context.Background(), kafkago.Message{Value: []byte("{")}))
}

func TestHandleSkipsOtherTypesByHeader(t *testing.T) {
	svc, r, d := newService()
	m := kafkago.Message{
		Value:   []byte("not an envelope"),
		Headers: []kafkago.Header{{Key: kafkax.HeaderEventType, Value: []byte(events.TypeSaleCreated)}},
	}
	require.NoError(t, svc.HandleOrderReceived(context.Background(), m), "the body is never decoded")
	assert.Empty(t, r.calls)
	assert.Empty(t, d.keys)
}
