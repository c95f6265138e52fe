package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/segmentio/kafka-go"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// Message encodes e with its type and version copied into headers.
func Message(e events.Envelope) (kafka.Message, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode envelope: %w", err)
	}
	return kafka.Message{
		Key:   []byte(e.CorrelationID),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.EventType)},
			{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(e.EventVersion))},
		},
	}, nil
}

func Envelope(m kafka.Message) (events.Envelope, error) {
	var e events.Envelope
	if err := json.Unmarshal(m.Value, &e); err != nil {
		return e, fmt.Errorf("decode envelope at offset %d: %w", m.Offset, err)
	}
	return e, nil
}

// Header returns the value of the first header named key.
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
