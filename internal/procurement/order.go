// Package procurement tracks supplier orders and puts received goods into stock.
package procurement

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound     = errors.New("supplier order not found")
	ErrInvalidOrder = errors.New("invalid supplier order")
	ErrNotPending   = errors.New("supplier order is not pending")
	ErrForbidden    = errors.New("supplier order belongs to another supplier")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusReceived  Status = "RECEIVED"
	StatusCancelled Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusReceived: true, StatusCancelled: true},
	StatusReceived:  {},
	StatusCancelled: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	ID         int64     `json:"id"`
	SupplierID int64     `json:"supplier_id"`
	Status     Status    `json:"status"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewOrder builds a pending order. Lines for the same product are merged.
func NewOrder(supplierID int64, items []Item) (*Order, error) {
	if supplierID <= 0 {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalidOrder)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidOrder)
	}
	idx := make(map[int64]int, len(items))
	merged := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %d quantity %d", ErrInvalidOrder, it.ProductID, it.Quantity)
		}
		if i, ok := idx[it.ProductID]; ok {
			merged[i].Quantity += it.Quantity
			continue
		}
		idx[it.ProductID] = len(merged)
		merged = append(merged, it)
	}
	return &Order{SupplierID: supplierID, Status: StatusPending, Items: merged}, nil
}

func (o *Order) transition(to Status) error {
	if !CanTransition(o.Status, to) {
		return fmt.Errorf("%w: order %d is %s", ErrNotPending, o.ID, o.Status)
	}
	o.Status = to
	return nil
}

func (o *Order) Receive() error { return o.transition(StatusReceived) }
func (o *Order) Cancel() error  { return o.transition(StatusCancelled) }
