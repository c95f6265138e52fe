package clientorders

import (
	"context"
	"errors"
	"fmt"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type orderStore interface {
	LockOrder(ctx context.Context, id int64) (*Order, error)
	PutItem(ctx context.Context, orderID int64, it Item) error
}

type productReader interface {
	Get(ctx context.Context, id int64) (*catalog.Product, error)
}

// addItem merges one product into a pending order. The caller supplies
// stores bound to one transaction.
func addItem(ctx context.Context, orders orderStore, products productReader, id int64, it Item) (*Order, error) {
	o, err := orders.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	p, err := products.Get(ctx, it.ProductID)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return nil, err
	}
	line, err := o.Add(it.ProductID, p, it.Quantity)
	if err != nil {
		return nil, err
	}
	if err := orders.PutItem(ctx, o.ID, line); err != nil {
		return nil, err
	}
	return o, nil
}

type Service struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
}

// Create opens a pending order for an active client.
func (s *Service) Create(ctx context.Context, clientID int64) (*Order, error) {
	o, err := New(clientID)
	if err != nil {
		return nil, err
	}
	err = pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		ok, err := directory.Lookup{DB: tx}.IsActive(ctx, directory.KindClient, clientID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: client %d does not exist or is inactive", ErrInvalidOrder, clientID)
		}
		return (&Repo{DB: tx}).Create(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("client order created", zap.Int64("order_id", o.ID), zap.Int64("client_id", clientID))
	return o, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Order, error) {
	return (&Repo{DB: s.DB}).Get(ctx, id)
}

func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]Order, error) {
	return (&Repo{DB: s.DB}).ListByClient(ctx, clientID)
}

// AddItem adds a product to a pending order without touching stock.
func (s *Service) AddItem(ctx context.Context, id int64, it Item) (*Order, error) {
	var o *Order
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		var err error
		o, err = addItem(ctx, &Repo{DB: tx}, &catalog.Repo{DB: tx}, id, it)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("client order item added",
		zap.Int64("order_id", id),
		zap.Int64("product_id", it.ProductID),
		zap.Int("quantity", it.Quantity))
	return o, nil
}

func (s *Service) Cancel(ctx context.Context, id int64) (*Order, error) {
	var o *Order
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		r := &Repo{DB: tx}
		var err error
		if o, err = r.LockOrder(ctx, id); err != nil {
			return err
		}
		if err := o.Cancel(); err != nil {
			return err
		}
		return r.SetStatus(ctx, o.ID, o.Status)
	})
	if err != nil {
		return nil, err
	}
	return o, nil
}
