// Package inventory applies supplier order receipts delivered over Kafka.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/events"
	kafkax "github.com/haderMaya1/coquito-amarillo/internal/kafka"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	"github.com/haderMaya1/coquito-amarillo/internal/redisx"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Receiver interface {
	Receive(ctx context.Context, id int64) (*procurement.Order, error)
}

type Deduper interface {
	Exists(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

type Service struct {
	Orders      Receiver
	Dedup       Deduper
	Log         *zap.Logger
	ServiceName string
}

// HandleOrderReceived is installed as the consumer handler for receipt commands.
// Messages whose type header names another event are skipped undecoded.
func (s *Service) HandleOrderReceived(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, kafkax.HeaderEventType); t != "" && t != events.TypeOrderReceived {
		return nil
	}
	env, err := kafkax.Envelope(m)
	if err != nil {
		return err
	}
	if env.EventType != events.TypeOrderReceived {
		return nil
	}

	key := redisx.Dedup(s.ServiceName, env.EventID)
	if seen, err := s.Dedup.Exists(ctx, key); err == nil && seen {
		return nil
	}

	p, err := events.Decode[events.OrderReceivedPayload](env)
	if err != nil {
		return err
	}

	o, err := s.Orders.Receive(ctx, p.OrderID)
	switch {
	case errors.Is(err, procurement.ErrNotPending):
		s.Log.Info("receipt already applied", zap.Int64("order_id", p.OrderID), zap.String("event_id", env.EventID))
	case err != nil:
		return err
	default:
		s.Log.Info("restocked", zap.Int64("order_id", o.ID), zap.Int("lines", len(o.Items)))
	}

	if _, err := s.Dedup.Mark(ctx, key, redisx.TTLDedup); err != nil {
		s.Log.Warn("dedup mark failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}
