package procurement

import (
	"context"
	"fmt"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type orderStore interface {
	LockOrder(ctx context.Context, id int64) (*Order, error)
	SetStatus(ctx context.Context, id int64, s Status) error
}

type stockLedger interface {
	Adjust(ctx context.Context, id int64, action catalog.StockAction, amount int) (*catalog.Product, error)
}

// AnySupplier lets a receipt through whichever supplier the order is for.
const AnySupplier int64 = 0

// receive marks a pending order received and adds every line to stock. The
// caller supplies stores bound to one transaction. Unless supplierID is
// AnySupplier, the order must belong to that supplier.
func receive(ctx context.Context, orders orderStore, stock stockLedger, id, supplierID int64) (*Order, error) {
	o, err := orders.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplierID != AnySupplier && o.SupplierID != supplierID {
		return nil, ErrForbidden
	}
	if err := o.Receive(); err != nil {
		return nil, err
	}
	for _, it := range o.Items {
		if _, err := stock.Adjust(ctx, it.ProductID, catalog.StockIncrease, it.Quantity); err != nil {
			return nil, fmt.Errorf("receive product %d: %w", it.ProductID, err)
		}
	}
	if err := orders.SetStatus(ctx, o.ID, o.Status); err != nil {
		return nil, err
	}
	return o, nil
}

func cancel(ctx context.Context, orders orderStore, id int64) (*Order, error) {
	o, err := orders.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Cancel(); err != nil {
		return nil, err
	}
	return o, orders.SetStatus(ctx, o.ID, o.Status)
}

type Service struct {
	DB       *pgxpool.Pool
	Events   events.Publisher
	Log      *zap.Logger
	Producer string
}

func (s *Service) Create(ctx context.Context, supplierID int64, items []Item) (*Order, error) {
	o, err := NewOrder(supplierID, items)
	if err != nil {
		return nil, err
	}
	err = pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		return (&Repo{DB: tx}).Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return (&Repo{DB: s.DB}).Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, error) {
	return (&Repo{DB: s.DB}).List(ctx, f)
}

// Receive puts the order's goods into stock in one transaction.
func (s *Service) Receive(ctx context.Context, id int64) (*Order, error) {
	return s.ReceiveFor(ctx, id, AnySupplier)
}

// ReceiveFor is Receive on behalf of one supplier. An order placed with
// another supplier is rejected with ErrForbidden and stock is untouched.
func (s *Service) ReceiveFor(ctx context.Context, id, supplierID int64) (*Order, error) {
	var o *Order
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		o, err = receive(ctx, &Repo{DB: tx}, &catalog.Repo{DB: tx}, id, supplierID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("supplier order received",
		zap.Int64("order_id", o.ID),
		zap.Int64("supplier_id", o.SupplierID),
		zap.Int("lines", len(o.Items)))
	s.publishReceived(ctx, o)
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	var o *Order
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		o, err = cancel(ctx, &Repo{DB: tx}, id)
		return err
	})
	return o, err
}

func (s *Service) publishReceived(ctx context.Context, o *Order) {
	if s.Events == nil {
		return
	}
	items := make([]events.ItemQty, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, events.ItemQty{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	e, err := events.New(events.TypeStockReceived, s.Producer, o.ID,
		events.StockReceivedPayload{OrderID: o.ID, SupplierID: o.SupplierID, Items: items})
	if err == nil {
		err = s.Events.PublishEvent(ctx, e)
	}
	if err != nil {
		s.Log.Warn("publish event failed", zap.String("event_type", events.TypeStockReceived), zap.Error(err))
	}
}
