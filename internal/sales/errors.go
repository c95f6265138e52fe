package sales

import (
	"errors"
	"fmt"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
)

var (
	ErrEmptyOrder        = errors.New("order has no items")
	ErrMissingReference  = errors.New("missing reference")
	ErrForeignStore      = errors.New("employee does not work at the store")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = catalog.ErrInsufficientStock
	ErrInvalidQuantity   = catalog.ErrInvalidQuantity
	ErrInvalidPrice      = errors.New("unit price must not be negative")
	ErrDuplicateInvoice  = errors.New("sale already has an invoice")
	ErrSaleVoided        = errors.New("sale is voided")
	ErrSaleNotFound      = errors.New("sale not found")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrDuplicateRequest  = errors.New("idempotency key already used")
	ErrStorage           = errors.New("storage failure")
)

// InsufficientStockError names the product, the requested quantity and what
// was left when the request was rejected.
type InsufficientStockError = catalog.InsufficientStockError

type MissingReferenceError struct {
	Field string `json:"field"`
	ID    int64  `json:"id"`
}

func (e *MissingReferenceError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("missing reference: %s is required", e.Field)
	}
	return fmt.Sprintf("missing reference: %s %d does not exist or is inactive", e.Field, e.ID)
}

func (e *MissingReferenceError) Is(target error) bool { return target == ErrMissingReference }

// StoreMismatchError rejects a sale made for a store other than the one the
// employee is assigned to.
type StoreMismatchError struct {
	EmployeeID      int64 `json:"employee_id"`
	StoreID         int64 `json:"store_id"`
	AssignedStoreID int64 `json:"assigned_store_id"`
}

func (e *StoreMismatchError) Error() string {
	return fmt.Sprintf("employee %d works at store %d, not store %d", e.EmployeeID, e.AssignedStoreID, e.StoreID)
}

func (e *StoreMismatchError) Is(target error) bool { return target == ErrForeignStore }

type ProductNotFoundError struct {
	ProductID int64 `json:"product_id"`
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool { return target == ErrProductNotFound }

// ItemError identifies the order item that stopped a sale.
type ItemError struct {
	Index     int   `json:"index"`
	ProductID int64 `json:"product_id"`
	Err       error `json:"-"`
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d (product %d): %v", e.Index, e.ProductID, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err) }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func (e *StorageError) Unwrap() error { return e.Err }

// storage wraps err as a StorageError unless it already carries a domain reason.
func storage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrSaleNotFound, ErrInvoiceNotFound, ErrDuplicateInvoice,
		ErrMissingReference, ErrForeignStore, ErrProductNotFound, ErrDuplicateRequest, ErrStorage,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &StorageError{Op: op, Err: err}
}

// Reason returns the failure kind reported to callers of the sale workflow.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyOrder):
		return "EmptyOrder"
	case errors.Is(err, ErrMissingReference):
		return "MissingReference"
	case errors.Is(err, ErrForeignStore):
		return "ForeignStore"
	case errors.Is(err, ErrProductNotFound):
		return "ProductNotFound"
	case errors.Is(err, ErrInsufficientStock):
		return "InsufficientStock"
	case errors.Is(err, ErrDuplicateInvoice):
		return "DuplicateInvoice"
	case errors.Is(err, ErrDuplicateRequest):
		return "Conflict"
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidPrice):
		return "InvalidQuantity"
	case errors.Is(err, ErrSaleVoided):
		return "SaleVoided"
	case errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrInvoiceNotFound):
		return "NotFound"
	}
	return "StorageFailure"
}
