package sales

import (
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusVoided Status = "VOIDED"
)

var validNext = map[Status]map[Status]bool{
	StatusActive: {StatusVoided: true},
	StatusVoided: {StatusActive: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Refs are the parties every sale must point at.
type Refs struct {
	ClientID   int64 `json:"client_id"`
	EmployeeID int64 `json:"employee_id"`
	StoreID    int64 `json:"store_id"`
}

// Validate checks that every reference is present. Whether the referenced
// rows exist is decided by a References lookup.
func (r Refs) Validate() error {
	switch {
	case r.ClientID <= 0:
		return &MissingReferenceError{Field: "client_id"}
	case r.EmployeeID <= 0:
		return &MissingReferenceError{Field: "employee_id"}
	case r.StoreID <= 0:
		return &MissingReferenceError{Field: "store_id"}
	}
	return nil
}

// validateParties checks the references a caller must always name. The store
// may be left out and taken from the seller's assignment.
func (r Refs) validateParties() error {
	switch {
	case r.ClientID <= 0:
		return &MissingReferenceError{Field: "client_id"}
	case r.EmployeeID <= 0:
		return &MissingReferenceError{Field: "employee_id"}
	}
	return nil
}

// AssignStore applies the store the employee is assigned to. A zero StoreID
// takes the assigned store and any other store is rejected. Staff without an
// assignment (assigned is nil) must name the store themselves.
func (r Refs) AssignStore(assigned *int64) (Refs, error) {
	switch {
	case assigned == nil:
	case r.StoreID == 0:
		r.StoreID = *assigned
	case r.StoreID != *assigned:
		return r, &StoreMismatchError{EmployeeID: r.EmployeeID, StoreID: r.StoreID, AssignedStoreID: *assigned}
	}
	if r.StoreID <= 0 {
		return r, &MissingReferenceError{Field: "store_id"}
	}
	return r, nil
}

type Sale struct {
	ID int64 `json:"id"`
	Refs
	CreatedAt time.Time       `json:"created_at"`
	Total     decimal.Decimal `json:"total"`
	Status    Status          `json:"status"`
	lifecycle.State
	Items   []LineItem `json:"items,omitempty"`
	Invoice *Invoice   `json:"invoice,omitempty"`
}

// Open starts an active sale with no items and a zero total.
func Open(refs Refs, now time.Time) (*Sale, error) {
	if err := refs.Validate(); err != nil {
		return nil, err
	}
	return &Sale{
		Refs:      refs,
		CreatedAt: now.UTC(),
		Total:     decimal.Zero,
		Status:    StatusActive,
		State:     lifecycle.New(),
	}, nil
}

// AddLineItem takes quantity units of p out of stock and appends a line item
// priced at p's current price. p is nil when the product was not found;
// inactive products are treated the same way. Nothing changes on failure.
func (s *Sale) AddLineItem(productID int64, p *catalog.Product, quantity int) error {
	if s.Status == StatusVoided {
		return ErrSaleVoided
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if p == nil || !p.Active {
		return &ProductNotFoundError{ProductID: productID}
	}
	li, err := NewLineItem(s.ID, p.ID, quantity, p.Price)
	if err != nil {
		return err
	}
	available := p.Stock
	ok, err := p.DecreaseStock(quantity)
	if err != nil {
		return err
	}
	if !ok {
		return &InsufficientStockError{ProductID: p.ID, Requested: quantity, Available: available}
	}
	li.Position = len(s.Items)
	s.Items = append(s.Items, li)
	s.RecomputeTotal()
	return nil
}

// RecomputeTotal sets Total to the sum of the active line item subtotals.
func (s *Sale) RecomputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.Items {
		if li.Active {
			total = total.Add(li.Subtotal())
		}
	}
	s.Total = total
	return total
}

// Void cancels the sale and its line items. Stock taken by the sale stays
// taken. It reports false when the sale was already voided.
func (s *Sale) Void(now time.Time) bool {
	if !CanTransition(s.Status, StatusVoided) {
		return false
	}
	s.Status = StatusVoided
	s.Deactivate(now)
	for i := range s.Items {
		s.Items[i].void()
	}
	s.RecomputeTotal()
	return true
}

// Reactivate restores a voided sale and its line items without checking
// stock again. It reports false when the sale was already active.
func (s *Sale) Reactivate() bool {
	if !CanTransition(s.Status, StatusActive) {
		return false
	}
	s.Status = StatusActive
	s.Activate()
	for i := range s.Items {
		s.Items[i].reactivate()
	}
	s.RecomputeTotal()
	return true
}
