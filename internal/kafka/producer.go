package kafka

import (
	"context"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Producer writes to one topic from a buffered inbox so request handlers
// never wait on the broker.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     *zap.Logger
}

func NewProducer(brokers []string, topic string, buf int, log *zap.Logger) *Producer {
	p := &Producer{
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     log,
	}
	p.w = &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        true,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				p.log.Warn("kafka write failed", zap.String("topic", topic), zap.Int("messages", len(msgs)), zap.Error(err))
			}
		},
	}
	return p
}

// Start drains the inbox until Close is called, then flushes and closes the writer.
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			if err := p.w.WriteMessages(context.Background(), m); err != nil {
				p.log.Warn("kafka write failed", zap.String("topic", p.w.Topic), zap.Error(err))
			}
		}
		if err := p.w.Close(); err != nil {
			p.log.Warn("kafka writer close", zap.String("topic", p.w.Topic), zap.Error(err))
		}
	}()
}

func (p *Producer) Publish(ctx context.Context, m kafka.Message) error {
	if m.Time.IsZero() {
		m.Time = time.Now()
	}
	select {
	case p.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishEvent queues e keyed by its correlation id.
func (p *Producer) PublishEvent(ctx context.Context, e events.Envelope) error {
	m, err := Message(e)
	if err != nil {
		return err
	}
	return p.Publish(ctx, m)
}

// Close stops accepting messages; the writer flushes what is queued.
func (p *Producer) Close() { close(p.inbox) }

// WaitClosed blocks until the queued messages are flushed.
func (p *Producer) WaitClosed() { <-p.closeCh }
