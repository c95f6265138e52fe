package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeSaleCreated     = "SaleCreated"
	TypeSaleVoided      = "SaleVoided"
	TypeSaleReactivated = "SaleReactivated"
	TypeSaleItemAdded   = "SaleItemAdded"
	TypeInvoiceVoided   = "InvoiceVoided"
	TypeStockReceived   = "StockReceived"
	TypeOrderReceived   = "SupplierOrderReceived"
)

const (
	TopicSales     = "sales.events"
	TopicInventory = "inventory.events"
	// TopicOrderReceived carries receipt commands for the restock worker.
	TopicOrderReceived = "procurement.order.received"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// New builds a version 1 envelope correlated on id.
func New(eventType, producer string, id int64, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.FormatInt(id, 10),
		Payload:       b,
	}, nil
}

// PartitionKey keeps every event of one aggregate on one partition.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }

// Decode unmarshals the payload of e into T.
func Decode[T any](e Envelope) (T, error) {
	var t T
	if err := json.Unmarshal(e.Payload, &t); err != nil {
		return t, fmt.Errorf("decode %s payload: %w", e.EventType, err)
	}
	return t, nil
}

// Publisher delivers envelopes after the writes they describe have committed.
type Publisher interface {
	PublishEvent(ctx context.Context, e Envelope) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) PublishEvent(context.Context, Envelope) error { return nil }

type SaleItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SaleCreatedPayload struct {
	SaleID     int64           `json:"sale_id"`
	ClientID   int64           `json:"client_id"`
	EmployeeID int64           `json:"employee_id"`
	StoreID    int64           `json:"store_id"`
	Items      []SaleItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	InvoiceID  int64           `json:"invoice_id"`
}

type SaleStatusPayload struct {
	SaleID int64           `json:"sale_id"`
	Status string          `json:"status"`
	Total  decimal.Decimal `json:"total"`
}

// SaleItemAddedPayload carries the line added to an existing sale and the
// sale total after it.
type SaleItemAddedPayload struct {
	SaleID int64           `json:"sale_id"`
	Item   SaleItem        `json:"item"`
	Total  decimal.Decimal `json:"total"`
}

type InvoiceStatusPayload struct {
	InvoiceID int64 `json:"invoice_id"`
	SaleID    int64 `json:"sale_id"`
	Active    bool  `json:"active"`
}

type ItemQty struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type StockReceivedPayload struct {
	OrderID    int64     `json:"order_id"`
	SupplierID int64     `json:"supplier_id"`
	Items      []ItemQty `json:"items"`
}

// OrderReceivedPayload asks the restock worker to receive a supplier order.
type OrderReceivedPayload struct {
	OrderID int64 `json:"order_id"`
}
