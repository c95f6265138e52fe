package sales

import (
	"context"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
)

// Beginner opens units of work. Writes made through a unit of work stay
// invisible to other units until Commit.
type Beginner interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork groups the writes of one operation. The Service calls exactly
// one of Commit or Rollback; a Rollback after a failed Commit must be harmless.
type UnitOfWork interface {
	References() References
	Products() ProductLedger
	Sales() SaleWriter
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// References checks the parties of a new sale. Resolve reports a
// *MissingReferenceError when a client, employee or store does not exist or
// is inactive and a *StoreMismatchError when the employee is assigned to a
// different store. The returned Refs carry the store the sale belongs to.
type References interface {
	Resolve(ctx context.Context, refs Refs) (Refs, error)
}

type ProductLedger interface {
	// GetForUpdate returns catalog.ErrNotFound for unknown products and holds
	// the row until the unit of work ends.
	GetForUpdate(ctx context.Context, id int64) (*catalog.Product, error)
	// Decrement subtracts qty only while stock >= qty and reports whether it did.
	Decrement(ctx context.Context, id int64, qty int) (bool, error)
}

type SaleWriter interface {
	// ClaimKey records that an employee's idempotency key is in use. It
	// returns ErrDuplicateRequest when the key is already claimed; a claim
	// held by a unit of work still in progress blocks until that unit ends.
	ClaimKey(ctx context.Context, employeeID int64, key string) error
	// BindKey points a claimed key at the sale it created.
	BindKey(ctx context.Context, employeeID int64, key string, saleID int64) error
	// InsertSale stores the sale and its line items and assigns their ids.
	InsertSale(ctx context.Context, s *Sale) error
	// InsertItem stores one line item added to an existing sale.
	InsertItem(ctx context.Context, li *LineItem) error
	// InsertInvoice returns ErrDuplicateInvoice when the sale already has one.
	InsertInvoice(ctx context.Context, inv *Invoice) error
	LockSale(ctx context.Context, id int64) (*Sale, error)
	// UpdateSale writes status, lifecycle, total and line item flags.
	UpdateSale(ctx context.Context, s *Sale) error
	LockInvoice(ctx context.Context, id int64) (*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice) error
}

type Filter struct {
	From       *time.Time
	To         *time.Time
	ClientID   *int64
	EmployeeID *int64
	Lifecycle  lifecycle.Filter
}

type Reader interface {
	GetSale(ctx context.Context, id int64) (*Sale, error)
	GetInvoice(ctx context.Context, id int64) (*Invoice, error)
	// FindByKey returns the sale created under an employee's idempotency key
	// or ErrSaleNotFound.
	FindByKey(ctx context.Context, employeeID int64, key string) (*Sale, error)
	// ListSales returns headers without line items, newest first.
	ListSales(ctx context.Context, f Filter) ([]Sale, error)
}
