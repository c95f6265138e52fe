package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
)

// Repo reads and writes products through a pool or a transaction.
type Repo struct{ DB postgres.DBTX }

const productColumns = `id, name, description, price, stock, supplier_id, active, deactivated_at, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanProduct(row rowScanner) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.SupplierID,
		&p.Active, &p.DeactivatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	return r.DB.QueryRow(ctx, `
		INSERT INTO products (name, description, price, stock, supplier_id, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.Price, p.Stock, p.SupplierID, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *Repo) Get(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
}

// GetForUpdate locks the product row until the surrounding transaction ends.
func (r *Repo) GetForUpdate(ctx context.Context, id int64) (*Product, error) {
	return scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1 FOR UPDATE`, id))
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, error) {
	var where []string
	if c := f.Lifecycle.SQL("active"); c != "" {
		where = append(where, c)
	}
	switch f.Stock {
	case StockIn:
		where = append(where, "stock > 0")
	case StockOut:
		where = append(where, "stock = 0")
	}
	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY name`

	rows, err := r.DB.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Update writes the editable fields. Stock and lifecycle have their own writers.
func (r *Repo) Update(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET name=$2, description=$3, price=$4, supplier_id=$5, updated_at=now()
		WHERE id=$1`, p.ID, p.Name, p.Description, p.Price, p.SupplierID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetStock(ctx context.Context, id int64, stock int) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, id, stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// Decrement subtracts qty only while enough stock remains. It reports false
// when the guard rejected the update.
func (r *Repo) Decrement(ctx context.Context, id int64, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at=now()
		WHERE id=$1 AND stock >= $2`, id, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *Repo) SetLifecycle(ctx context.Context, id int64, s lifecycle.State) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products SET active=$2, deactivated_at=$3, updated_at=now() WHERE id=$1`,
		id, s.Active, s.DeactivatedAt)
	if err != nil {
		return fmt.Errorf("set product lifecycle: %w", err)
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// Adjust locks the product, applies the stock action and writes the result.
// r.DB must be a transaction for the lock to hold until the write.
func (r *Repo) Adjust(ctx context.Context, id int64, action StockAction, amount int) (*Product, error) {
	p, err := r.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.Apply(action, amount); err != nil {
		return nil, err
	}
	if err := r.SetStock(ctx, p.ID, p.Stock); err != nil {
		return nil, err
	}
	return p, nil
}
