package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore runs units of work as Postgres transactions.
type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &pgUnit{tx: tx}, nil
}

// Reader serves queries straight from the pool.
func (s *PGStore) Reader() Reader { return &SaleRepo{DB: s.DB} }

type pgUnit struct{ tx pgx.Tx }

func (u *pgUnit) References() References             { return pgRefs{directory.Lookup{DB: u.tx}} }
func (u *pgUnit) Products() ProductLedger            { return &catalog.Repo{DB: u.tx} }
func (u *pgUnit) Sales() SaleWriter                  { return &SaleRepo{DB: u.tx} }
func (u *pgUnit) Commit(ctx context.Context) error   { return u.tx.Commit(ctx) }
func (u *pgUnit) Rollback(ctx context.Context) error { return u.tx.Rollback(ctx) }

type pgRefs struct{ lookup directory.Lookup }

func (r pgRefs) Resolve(ctx context.Context, refs Refs) (Refs, error) {
	if err := r.active(ctx, "client_id", directory.KindClient, refs.ClientID); err != nil {
		return refs, err
	}
	if err := r.active(ctx, "employee_id", directory.KindStaff, refs.EmployeeID); err != nil {
		return refs, err
	}
	assigned, err := r.lookup.StaffStore(ctx, refs.EmployeeID)
	if err != nil {
		return refs, err
	}
	if refs, err = refs.AssignStore(assigned); err != nil {
		return refs, err
	}
	return refs, r.active(ctx, "store_id", directory.KindStore, refs.StoreID)
}

func (r pgRefs) active(ctx context.Context, field string, kind directory.Kind, id int64) error {
	ok, err := r.lookup.IsActive(ctx, kind, id)
	if err != nil {
		return err
	}
	if !ok {
		return &MissingReferenceError{Field: field, ID: id}
	}
	return nil
}

// SaleRepo reads and writes sales, line items and invoices.
type SaleRepo struct{ DB postgres.DBTX }

const (
	saleColumns    = `id, client_id, employee_id, store_id, created_at, total, status, active, deactivated_at`
	itemColumns    = `id, sale_id, product_id, position, quantity, unit_price, active`
	invoiceColumns = `id, sale_id, issued_at, total, active, deactivated_at`
)

func scanSale(row pgx.Row, s *Sale) error {
	return row.Scan(&s.ID, &s.ClientID, &s.EmployeeID, &s.StoreID, &s.CreatedAt, &s.Total, &s.Status,
		&s.Active, &s.DeactivatedAt)
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.SaleID, &inv.IssuedAt, &inv.Total, &inv.Active, &inv.DeactivatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (r *SaleRepo) InsertSale(ctx context.Context, s *Sale) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO sales (client_id, employee_id, store_id, created_at, total, status, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		s.ClientID, s.EmployeeID, s.StoreID, s.CreatedAt, s.Total, s.Status, s.Active,
	).Scan(&s.ID)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", ErrMissingReference, err)
		}
		return err
	}

	b := &pgx.Batch{}
	for i := range s.Items {
		li := &s.Items[i]
		li.SaleID = s.ID
		b.Queue(`
			INSERT INTO sale_items (sale_id, product_id, position, quantity, unit_price, active)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			li.SaleID, li.ProductID, li.Position, li.Quantity, li.UnitPrice, li.Active,
		).QueryRow(func(row pgx.Row) error { return row.Scan(&li.ID) })
	}
	return r.DB.SendBatch(ctx, b).Close()
}

func (r *SaleRepo) InsertItem(ctx context.Context, li *LineItem) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO sale_items (sale_id, product_id, position, quantity, unit_price, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		li.SaleID, li.ProductID, li.Position, li.Quantity, li.UnitPrice, li.Active,
	).Scan(&li.ID)
	if postgres.IsForeignKeyViolation(err) {
		return ErrSaleNotFound
	}
	return err
}

// ClaimKey relies on the primary key of sale_requests: a second insert of the
// same key waits for the first transaction and fails once it commits.
func (r *SaleRepo) ClaimKey(ctx context.Context, employeeID int64, key string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO sale_requests (employee_id, idempotency_key) VALUES ($1, $2)`,
		employeeID, key)
	if postgres.IsUniqueViolation(err) {
		return ErrDuplicateRequest
	}
	return err
}

func (r *SaleRepo) BindKey(ctx context.Context, employeeID int64, key string, saleID int64) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE sale_requests SET sale_id=$3 WHERE employee_id=$1 AND idempotency_key=$2`,
		employeeID, key, saleID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("idempotency key %q was not claimed", key)
	}
	return nil
}

func (r *SaleRepo) FindByKey(ctx context.Context, employeeID int64, key string) (*Sale, error) {
	var id int64
	err := r.DB.QueryRow(ctx, `
		SELECT sale_id FROM sale_requests
		WHERE employee_id=$1 AND idempotency_key=$2 AND sale_id IS NOT NULL`,
		employeeID, key).Scan(&id)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return r.loadSale(ctx, id, false)
}

func (r *SaleRepo) InsertInvoice(ctx context.Context, inv *Invoice) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO invoices (sale_id, issued_at, total, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		inv.SaleID, inv.IssuedAt, inv.Total, inv.Active,
	).Scan(&inv.ID)
	switch {
	case err == nil:
		return nil
	case postgres.IsUniqueViolation(err):
		return ErrDuplicateInvoice
	case postgres.IsForeignKeyViolation(err):
		return ErrSaleNotFound
	}
	return err
}

func (r *SaleRepo) loadSale(ctx context.Context, id int64, lock bool) (*Sale, error) {
	q := `SELECT ` + saleColumns + ` FROM sales WHERE id=$1`
	if lock {
		q += ` FOR UPDATE`
	}
	var s Sale
	if err := scanSale(r.DB.QueryRow(ctx, q, id), &s); err != nil {
		if postgres.IsNoRows(err) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `SELECT `+itemColumns+` FROM sale_items WHERE sale_id=$1 ORDER BY position`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.SaleID, &li.ProductID, &li.Position, &li.Quantity, &li.UnitPrice, &li.Active); err != nil {
			return nil, err
		}
		s.Items = append(s.Items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	inv, err := scanInvoice(r.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE sale_id=$1`, id))
	switch {
	case err == nil:
		s.Invoice = inv
	case !errors.Is(err, ErrInvoiceNotFound):
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepo) LockSale(ctx context.Context, id int64) (*Sale, error) { return r.loadSale(ctx, id, true) }

func (r *SaleRepo) GetSale(ctx context.Context, id int64) (*Sale, error) { return r.loadSale(ctx, id, false) }

func (r *SaleRepo) UpdateSale(ctx context.Context, s *Sale) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE sales SET total=$2, status=$3, active=$4, deactivated_at=$5 WHERE id=$1`,
		s.ID, s.Total, s.Status, s.Active, s.DeactivatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrSaleNotFound
	}
	for _, li := range s.Items {
		if _, err := r.DB.Exec(ctx, `UPDATE sale_items SET active=$2 WHERE id=$1`, li.ID, li.Active); err != nil {
			return err
		}
	}
	return nil
}

func (r *SaleRepo) LockInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1 FOR UPDATE`, id))
}

func (r *SaleRepo) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	return scanInvoice(r.DB.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id))
}

func (r *SaleRepo) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	ct, err := r.DB.Exec(ctx, `UPDATE invoices SET active=$2, deactivated_at=$3 WHERE id=$1`,
		inv.ID, inv.Active, inv.DeactivatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrInvoiceNotFound
	}
	return nil
}

func (r *SaleRepo) ListSales(ctx context.Context, f Filter) ([]Sale, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		add("created_at < $%d", *f.To)
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.EmployeeID != nil {
		add("employee_id = $%d", *f.EmployeeID)
	}
	if c := f.Lifecycle.SQL("active"); c != "" {
		where = append(where, c)
	}

	q := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		var s Sale
		if err := scanSale(rows, &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
