package clientorders

import (
	"context"
	"fmt"

	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

func (r *Repo) Create(ctx context.Context, o *Order) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO client_orders (client_id, status) VALUES ($1, $2) RETURNING id, created_at`,
		o.ClientID, o.Status).Scan(&o.ID, &o.CreatedAt)
	if postgres.IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: client %d does not exist", ErrInvalidOrder, o.ClientID)
	}
	return err
}

func (r *Repo) load(ctx context.Context, id int64, lock bool) (*Order, error) {
	q := `SELECT id, client_id, status, created_at FROM client_orders WHERE id=$1`
	if lock {
		q += ` FOR UPDATE`
	}
	var o Order
	if err := r.DB.QueryRow(ctx, q, id).Scan(&o.ID, &o.ClientID, &o.Status, &o.CreatedAt); err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity FROM client_order_items WHERE order_id=$1 ORDER BY product_id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	o.Items = []Item{}
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

// PutItem writes the line's quantity, inserting the line when it is new.
func (r *Repo) PutItem(ctx context.Context, orderID int64, it Item) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO client_order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)
		ON CONFLICT (order_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		orderID, it.ProductID, it.Quantity)
	return err
}

func (r *Repo) SetStatus(ctx context.Context, id int64, s Status) error {
	ct, err := r.DB.Exec(ctx, `UPDATE client_orders SET status=$2 WHERE id=$1`, id, s)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// ListByClient returns order headers, newest first.
func (r *Repo) ListByClient(ctx context.Context, clientID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, client_id, status, created_at FROM client_orders
		WHERE client_id=$1 ORDER BY created_at DESC, id DESC`, clientID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Order, error) {
		var o Order
		err := row.Scan(&o.ID, &o.ClientID, &o.Status, &o.CreatedAt)
		return o, err
	})
}
