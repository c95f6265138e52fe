package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

type ListFilter struct {
	Status     Status
	SupplierID *int64
}

func (r *Repo) Create(ctx context.Context, o *Order) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO supplier_orders (supplier_id, status)
		VALUES ($1, $2) RETURNING id, created_at, updated_at`,
		o.SupplierID, o.Status).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: supplier %d does not exist", ErrInvalidOrder, o.SupplierID)
		}
		return err
	}
	b := &pgx.Batch{}
	for _, it := range o.Items {
		b.Queue(`INSERT INTO supplier_order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`,
			o.ID, it.ProductID, it.Quantity)
	}
	if err := r.DB.SendBatch(ctx, b).Close(); err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: unknown product", ErrInvalidOrder)
		}
		return err
	}
	return nil
}

func (r *Repo) load(ctx context.Context, id int64, lock bool) (*Order, error) {
	q := `SELECT id, supplier_id, status, created_at, updated_at FROM supplier_orders WHERE id=$1`
	if lock {
		q += ` FOR UPDATE`
	}
	var o Order
	if err := r.DB.QueryRow(ctx, q, id).Scan(&o.ID, &o.SupplierID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity FROM supplier_order_items WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id int64) (*Order, error) { return r.load(ctx, id, false) }

// LockOrder holds the order row until the transaction ends.
func (r *Repo) LockOrder(ctx context.Context, id int64) (*Order, error) { return r.load(ctx, id, true) }

func (r *Repo) SetStatus(ctx context.Context, id int64, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE supplier_orders SET status=$2, updated_at=now() WHERE id=$1`, id, s)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// List returns order headers, newest first.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SupplierID != nil {
		args = append(args, *f.SupplierID)
		where = append(where, fmt.Sprintf("supplier_id = $%d", len(args)))
	}
	q := `SELECT id, supplier_id, status, created_at, updated_at FROM supplier_orders`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.SupplierID, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
