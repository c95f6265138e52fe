package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Service is the catalog management surface used by the HTTP layer.
type Service struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) Create(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p.Activate()
	return (&Repo{DB: s.DB}).Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return (&Repo{DB: s.DB}).Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Product, error) {
	return (&Repo{DB: s.DB}).List(ctx, f)
}

// Update changes name, description, price and supplier. Past sales keep
// the price they captured.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return (&Repo{DB: s.DB}).Update(ctx, p)
}

func (s *Service) AdjustStock(ctx context.Context, id int64, action StockAction, amount int) (*Product, error) {
	var out *Product
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		p, err := (&Repo{DB: tx}).Adjust(ctx, id, action, amount)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Log.Info("stock adjusted",
		zap.Int64("product_id", id),
		zap.String("action", string(action)),
		zap.Int("amount", amount),
		zap.Int("stock", out.Stock))
	return out, nil
}

// SetActive deactivates or reactivates a product without touching stock.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*Product, error) {
	var out *Product
	err := pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		r := &Repo{DB: tx}
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if active {
			p.Activate()
		} else {
			p.Deactivate(s.now())
		}
		out = p
		return r.SetLifecycle(ctx, id, p.State)
	})
	return out, err
}
