// Package clientorders records what clients ask for before it is sold.
// Adding a product checks that the stock could cover it but takes nothing
// out of stock; only a sale does that.
package clientorders

import (
	"errors"
	"fmt"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
)

var (
	ErrNotFound           = errors.New("client order not found")
	ErrInvalidOrder       = errors.New("invalid client order")
	ErrNotPending         = errors.New("client order is not pending")
	ErrProductUnavailable = errors.New("product not found or inactive")
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCancelled Status = "CANCELLED"
)

type Item struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	ID        int64     `json:"id"`
	ClientID  int64     `json:"client_id"`
	Status    Status    `json:"status"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

func New(clientID int64) (*Order, error) {
	if clientID <= 0 {
		return nil, fmt.Errorf("%w: client is required", ErrInvalidOrder)
	}
	return &Order{ClientID: clientID, Status: StatusPending, Items: []Item{}}, nil
}

// Add puts qty units of p on the order, merging with an existing line for the
// same product. The merged quantity must fit in p's current stock. It returns
// the line as it now stands.
func (o *Order) Add(productID int64, p *catalog.Product, qty int) (Item, error) {
	if o.Status != StatusPending {
		return Item{}, fmt.Errorf("%w: order %d is %s", ErrNotPending, o.ID, o.Status)
	}
	if qty <= 0 {
		return Item{}, catalog.ErrInvalidQuantity
	}
	if p == nil || !p.Active {
		return Item{}, fmt.Errorf("%w: product %d", ErrProductUnavailable, productID)
	}
	i := o.line(productID)
	want := qty
	if i >= 0 {
		want += o.Items[i].Quantity
	}
	if want > p.Stock {
		return Item{}, &catalog.InsufficientStockError{ProductID: productID, Requested: want, Available: p.Stock}
	}
	if i < 0 {
		o.Items = append(o.Items, Item{ProductID: productID})
		i = len(o.Items) - 1
	}
	o.Items[i].Quantity = want
	return o.Items[i], nil
}

func (o *Order) line(productID int64) int {
	for i, it := range o.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (o *Order) Cancel() error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: order %d is %s", ErrNotPending, o.ID, o.Status)
	}
	o.Status = StatusCancelled
	return nil
}
