package sales

import (
	"context"
	"errors"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type CreateRequest struct {
	Refs
	Items []ItemRequest `json:"items"`
	// IdempotencyKey makes retries of the same request return the first sale.
	IdempotencyKey string `json:"-"`
}

type Receipt struct {
	SaleID       int64           `json:"sale_id"`
	Total        decimal.Decimal `json:"total"`
	InvoiceID    int64           `json:"invoice_id"`
	InvoiceTotal decimal.Decimal `json:"invoice_total"`
	// Replayed is set when the sale was created by an earlier request with
	// the same idempotency key.
	Replayed bool `json:"-"`
}

func receiptOf(sale *Sale) *Receipt {
	rc := &Receipt{SaleID: sale.ID, Total: sale.Total}
	if sale.Invoice != nil {
		rc.InvoiceID = sale.Invoice.ID
		rc.InvoiceTotal = sale.Invoice.Total
	}
	return rc
}

// Service runs the sale workflow. It is the only place that commits or
// rolls back a unit of work; events are published after commit.
type Service struct {
	Store    Beginner
	Reader   Reader
	Events   events.Publisher
	Log      *zap.Logger
	Producer string
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) log() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

// inUnit runs fn inside a unit of work, committing when fn succeeds.
func (s *Service) inUnit(ctx context.Context, fn func(UnitOfWork) error) error {
	uow, err := s.Store.Begin(ctx)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(ctx); rbErr != nil {
			s.log().Warn("rollback failed", zap.Error(rbErr))
		}
		return err
	}
	if err := uow.Commit(ctx); err != nil {
		_ = uow.Rollback(ctx)
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// CreateSale validates the request, then in one unit of work opens the sale,
// adds every item in order, emits the invoice and commits. Any failure leaves
// stock, sales and invoices as they were. A request repeating an idempotency
// key already used by the same employee returns the first sale's receipt.
func (s *Service) CreateSale(ctx context.Context, req CreateRequest) (*Receipt, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, &ItemError{Index: i, ProductID: it.ProductID, Err: ErrInvalidQuantity}
		}
	}
	if err := req.validateParties(); err != nil {
		return nil, err
	}
	if req.IdempotencyKey != "" {
		if rc, err := s.replay(ctx, req); rc != nil || err != nil {
			return rc, err
		}
	}
	now := s.now()

	var sale *Sale
	err := s.inUnit(ctx, func(u UnitOfWork) error {
		if req.IdempotencyKey != "" {
			if err := u.Sales().ClaimKey(ctx, req.EmployeeID, req.IdempotencyKey); err != nil {
				return storage("claim idempotency key", err)
			}
		}
		refs, err := u.References().Resolve(ctx, req.Refs)
		if err != nil {
			return storage("resolve references", err)
		}
		if sale, err = Open(refs, now); err != nil {
			return err
		}
		for i, it := range req.Items {
			if err := addItem(ctx, u.Products(), sale, it); err != nil {
				return &ItemError{Index: i, ProductID: it.ProductID, Err: err}
			}
		}
		sale.RecomputeTotal()
		if err := u.Sales().InsertSale(ctx, sale); err != nil {
			return storage("insert sale", err)
		}
		if req.IdempotencyKey != "" {
			if err := u.Sales().BindKey(ctx, req.EmployeeID, req.IdempotencyKey, sale.ID); err != nil {
				return storage("bind idempotency key", err)
			}
		}
		inv, err := Emit(sale, now)
		if err != nil {
			return err
		}
		if err := u.Sales().InsertInvoice(ctx, inv); err != nil {
			return storage("insert invoice", err)
		}
		return nil
	})
	if errors.Is(err, ErrDuplicateRequest) {
		if rc, rerr := s.replay(ctx, req); rc != nil || rerr != nil {
			return rc, rerr
		}
	}
	if err != nil {
		s.log().Info("sale rejected",
			zap.Int64("client_id", req.ClientID),
			zap.Int64("employee_id", req.EmployeeID),
			zap.Int64("store_id", req.StoreID),
			zap.String("reason", Reason(err)),
			zap.Error(err))
		return nil, err
	}

	s.log().Info("sale created",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("store_id", sale.StoreID),
		zap.Int64("invoice_id", sale.Invoice.ID),
		zap.String("total", sale.Total.StringFixed(2)))
	s.publish(ctx, events.TypeSaleCreated, sale.ID, createdPayload(sale))
	return receiptOf(sale), nil
}

// replay returns the receipt of the sale already created under the request's
// idempotency key, or nil when there is none.
func (s *Service) replay(ctx context.Context, req CreateRequest) (*Receipt, error) {
	sale, err := s.Reader.FindByKey(ctx, req.EmployeeID, req.IdempotencyKey)
	switch {
	case errors.Is(err, ErrSaleNotFound):
		return nil, nil
	case err != nil:
		return nil, storage("find sale by key", err)
	}
	s.log().Info("sale replayed", zap.Int64("sale_id", sale.ID), zap.Int64("employee_id", req.EmployeeID))
	rc := receiptOf(sale)
	rc.Replayed = true
	return rc, nil
}

// AddItem adds one product to an existing active sale, taking the stock with
// the same guarded decrement as CreateSale. The sale total is recomputed; an
// invoice already emitted keeps the total it was issued with.
func (s *Service) AddItem(ctx context.Context, saleID int64, it ItemRequest) (*Sale, error) {
	if it.Quantity <= 0 {
		return nil, &ItemError{ProductID: it.ProductID, Err: ErrInvalidQuantity}
	}
	var sale *Sale
	err := s.inUnit(ctx, func(u UnitOfWork) error {
		var err error
		if sale, err = u.Sales().LockSale(ctx, saleID); err != nil {
			return storage("lock sale", err)
		}
		if err := addItem(ctx, u.Products(), sale, it); err != nil {
			return &ItemError{ProductID: it.ProductID, Err: err}
		}
		if err := u.Sales().InsertItem(ctx, &sale.Items[len(sale.Items)-1]); err != nil {
			return storage("insert line item", err)
		}
		return storage("update sale", u.Sales().UpdateSale(ctx, sale))
	})
	if err != nil {
		s.log().Info("sale item rejected",
			zap.Int64("sale_id", saleID),
			zap.Int64("product_id", it.ProductID),
			zap.String("reason", Reason(err)),
			zap.Error(err))
		return nil, err
	}

	li := sale.Items[len(sale.Items)-1]
	s.log().Info("sale item added",
		zap.Int64("sale_id", saleID),
		zap.Int64("product_id", li.ProductID),
		zap.String("total", sale.Total.StringFixed(2)))
	s.publish(ctx, events.TypeSaleItemAdded, saleID, events.SaleItemAddedPayload{
		SaleID: saleID,
		Item:   events.SaleItem{ProductID: li.ProductID, Quantity: li.Quantity, UnitPrice: li.UnitPrice},
		Total:  sale.Total,
	})
	return sale, nil
}

// addItem locks the product, applies the line item to the sale and writes the
// decrement with a stock guard.
func addItem(ctx context.Context, products ProductLedger, sale *Sale, it ItemRequest) error {
	p, err := products.GetForUpdate(ctx, it.ProductID)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			return storage("lock product", err)
		}
		p = nil
	}
	if err := sale.AddLineItem(it.ProductID, p, it.Quantity); err != nil {
		return err
	}
	ok, err := products.Decrement(ctx, it.ProductID, it.Quantity)
	if err != nil {
		return storage("decrement stock", err)
	}
	if !ok {
		return &InsufficientStockError{ProductID: it.ProductID, Requested: it.Quantity, Available: p.Stock + it.Quantity}
	}
	return nil
}

func createdPayload(sale *Sale) events.SaleCreatedPayload {
	items := make([]events.SaleItem, 0, len(sale.Items))
	for _, li := range sale.Items {
		items = append(items, events.SaleItem{ProductID: li.ProductID, Quantity: li.Quantity, UnitPrice: li.UnitPrice})
	}
	return events.SaleCreatedPayload{
		SaleID:     sale.ID,
		ClientID:   sale.ClientID,
		EmployeeID: sale.EmployeeID,
		StoreID:    sale.StoreID,
		Items:      items,
		Total:      sale.Total,
		InvoiceID:  sale.Invoice.ID,
	}
}

// VoidSale cancels a sale and its line items. Voiding a voided sale is a no-op.
func (s *Service) VoidSale(ctx context.Context, id int64) (*Sale, error) {
	return s.toggleSale(ctx, id, events.TypeSaleVoided, func(sale *Sale) bool { return sale.Void(s.now()) })
}

// ReactivateSale restores a voided sale. Stock is not checked again.
func (s *Service) ReactivateSale(ctx context.Context, id int64) (*Sale, error) {
	return s.toggleSale(ctx, id, events.TypeSaleReactivated, (*Sale).Reactivate)
}

func (s *Service) toggleSale(ctx context.Context, id int64, eventType string, apply func(*Sale) bool) (*Sale, error) {
	var (
		sale    *Sale
		changed bool
	)
	err := s.inUnit(ctx, func(u UnitOfWork) error {
		var err error
		sale, err = u.Sales().LockSale(ctx, id)
		if err != nil {
			return storage("lock sale", err)
		}
		if changed = apply(sale); !changed {
			return nil
		}
		return storage("update sale", u.Sales().UpdateSale(ctx, sale))
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log().Info("sale status changed", zap.Int64("sale_id", id), zap.String("status", string(sale.Status)))
		s.publish(ctx, eventType, id, events.SaleStatusPayload{SaleID: id, Status: string(sale.Status), Total: sale.Total})
	}
	return sale, nil
}

// EmitInvoice bills a sale that has no invoice yet.
func (s *Service) EmitInvoice(ctx context.Context, saleID int64) (*Invoice, error) {
	var inv *Invoice
	err := s.inUnit(ctx, func(u UnitOfWork) error {
		sale, err := u.Sales().LockSale(ctx, saleID)
		if err != nil {
			return storage("lock sale", err)
		}
		if inv, err = Emit(sale, s.now()); err != nil {
			return err
		}
		return storage("insert invoice", u.Sales().InsertInvoice(ctx, inv))
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

func (s *Service) VoidInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.toggleInvoice(ctx, id, func(inv *Invoice) bool { return inv.Void(s.now()) })
}

func (s *Service) ReactivateInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return s.toggleInvoice(ctx, id, (*Invoice).Reactivate)
}

func (s *Service) toggleInvoice(ctx context.Context, id int64, apply func(*Invoice) bool) (*Invoice, error) {
	var (
		inv     *Invoice
		changed bool
	)
	err := s.inUnit(ctx, func(u UnitOfWork) error {
		var err error
		inv, err = u.Sales().LockInvoice(ctx, id)
		if err != nil {
			return storage("lock invoice", err)
		}
		if changed = apply(inv); !changed {
			return nil
		}
		return storage("update invoice", u.Sales().UpdateInvoice(ctx, inv))
	})
	if err != nil {
		return nil, err
	}
	if changed && !inv.Active {
		s.publish(ctx, events.TypeInvoiceVoided, inv.SaleID,
			events.InvoiceStatusPayload{InvoiceID: inv.ID, SaleID: inv.SaleID, Active: inv.Active})
	}
	return inv, nil
}

func (s *Service) GetSale(ctx context.Context, id int64) (*Sale, error) {
	sale, err := s.Reader.GetSale(ctx, id)
	if err != nil {
		return nil, storage("get sale", err)
	}
	return sale, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := s.Reader.GetInvoice(ctx, id)
	if err != nil {
		return nil, storage("get invoice", err)
	}
	return inv, nil
}

func (s *Service) ListSales(ctx context.Context, f Filter) ([]Sale, error) {
	out, err := s.Reader.ListSales(ctx, f)
	if err != nil {
		return nil, storage("list sales", err)
	}
	return out, nil
}

// publish never fails the operation; the writes are already committed.
func (s *Service) publish(ctx context.Context, eventType string, id int64, payload any) {
	if s.Events == nil {
		return
	}
	e, err := events.New(eventType, s.Producer, id, payload)
	if err == nil {
		err = s.Events.PublishEvent(ctx, e)
	}
	if err != nil {
		s.log().Warn("publish event failed", zap.String("event_type", eventType), zap.Int64("id", id), zap.Error(err))
	}
}
