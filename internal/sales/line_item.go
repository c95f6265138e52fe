package sales

import "github.com/shopspring/decimal"

// LineItem is one product, quantity and captured price inside a sale. The
// unit price is fixed when the item is created and never follows the catalog.
type LineItem struct {
	ID        int64           `json:"id"`
	SaleID    int64           `json:"sale_id"`
	ProductID int64           `json:"product_id"`
	Position  int             `json:"position"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Active    bool            `json:"active"`
}

func NewLineItem(saleID, productID int64, quantity int, unitPrice decimal.Decimal) (LineItem, error) {
	if quantity <= 0 {
		return LineItem{}, ErrInvalidQuantity
	}
	if unitPrice.IsNegative() {
		return LineItem{}, ErrInvalidPrice
	}
	return LineItem{
		SaleID:    saleID,
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Active:    true,
	}, nil
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// void and reactivate only run as a cascade from the owning sale.
func (li *LineItem) void()       { li.Active = false }
func (li *LineItem) reactivate() { li.Active = true }
