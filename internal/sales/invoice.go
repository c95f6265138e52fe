package sales

import (
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// Invoice bills exactly one sale. Total is the sale total at emission and is
// not updated afterwards.
type Invoice struct {
	ID       int64           `json:"id"`
	SaleID   int64           `json:"sale_id"`
	IssuedAt time.Time       `json:"issued_at"`
	Total    decimal.Decimal `json:"total"`
	lifecycle.State
}

// Emit binds a new invoice to s.
func Emit(s *Sale, now time.Time) (*Invoice, error) {
	if s.Invoice != nil {
		return nil, ErrDuplicateInvoice
	}
	if s.Status == StatusVoided {
		return nil, ErrSaleVoided
	}
	inv := &Invoice{
		SaleID:   s.ID,
		IssuedAt: now.UTC(),
		Total:    s.Total,
		State:    lifecycle.New(),
	}
	s.Invoice = inv
	return inv, nil
}

// Void and Reactivate do not follow the sale's own state.
func (inv *Invoice) Void(now time.Time) bool {
	if !inv.Active {
		return false
	}
	inv.Deactivate(now)
	return true
}

func (inv *Invoice) Reactivate() bool {
	if inv.Active {
		return false
	}
	inv.Activate()
	return true
}
