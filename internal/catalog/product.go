package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidProduct  = errors.New("invalid product")
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SupplierID  *int64          `json:"supplier_id,omitempty"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the fields a caller supplies on create and update.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidProduct)
	}
	return nil
}

func (p *Product) IncreaseStock(amount int) error {
	if amount <= 0 {
		return ErrInvalidQuantity
	}
	p.Stock += amount
	return nil
}

// DecreaseStock takes amount units out of stock. It reports false, leaving
// the stock untouched, when fewer than amount units are available.
func (p *Product) DecreaseStock(amount int) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidQuantity
	}
	if p.Stock < amount {
		return false, nil
	}
	p.Stock -= amount
	return true, nil
}

// StockAction is the direction of a manual stock adjustment.
type StockAction string

const (
	StockIncrease StockAction = "increase"
	StockDecrease StockAction = "decrease"
)

// StockFilter narrows product listings by availability.
type StockFilter string

const (
	StockAny StockFilter = ""
	StockIn  StockFilter = "in"
	StockOut StockFilter = "out"
)

type ListFilter struct {
	Lifecycle lifecycle.Filter
	Stock     StockFilter
}

// InsufficientStockError reports a decrement that the available stock cannot cover.
type InsufficientStockError struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

var ErrInsufficientStock = errors.New("insufficient stock")

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// Apply runs a manual stock adjustment on p.
func (p *Product) Apply(action StockAction, amount int) error {
	switch action {
	case StockIncrease:
		return p.IncreaseStock(amount)
	case StockDecrease:
		available := p.Stock
		ok, err := p.DecreaseStock(amount)
		if err != nil {
			return err
		}
		if !ok {
			return &InsufficientStockError{ProductID: p.ID, Requested: amount, Available: available}
		}
		return nil
	}
	return fmt.Errorf("unknown stock action %q", action)
}
