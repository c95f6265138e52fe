package directory

import (
	"context"
	"fmt"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/jackc/pgx/v5"
)

type Repo struct{ DB postgres.DBTX }

// classify maps constraint violations to directory errors.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case postgres.IsNoRows(err):
		return ErrNotFound
	case postgres.IsUniqueViolation(err):
		return ErrDuplicate
	case postgres.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: referenced record does not exist", ErrInvalid)
	}
	return err
}

func listQuery(columns string, kind Kind, f lifecycle.Filter, order string) string {
	q := `SELECT ` + columns + ` FROM ` + string(kind)
	if c := f.SQL("active"); c != "" && kind.HasLifecycle() {
		q += ` WHERE ` + c
	}
	return q + ` ORDER BY ` + order
}

// collect scans every row with fn.
func collect[T any](rows pgx.Rows, err error, fn func(pgx.Rows, *T) error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		var t T
		if err := fn(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- cities ----

func (r *Repo) CreateCity(ctx context.Context, c *City) error {
	err := r.DB.QueryRow(ctx, `INSERT INTO cities (name) VALUES ($1) RETURNING id, created_at`, c.Name).
		Scan(&c.ID, &c.CreatedAt)
	return classify(err)
}

func (r *Repo) GetCity(ctx context.Context, id int64) (*City, error) {
	var c City
	err := r.DB.QueryRow(ctx, `SELECT id, name, created_at FROM cities WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

// CityByName matches case-insensitively.
func (r *Repo) CityByName(ctx context.Context, name string) (*City, error) {
	var c City
	err := r.DB.QueryRow(ctx, `SELECT id, name, created_at FROM cities WHERE lower(name) = lower($1)`, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

func (r *Repo) UpdateCity(ctx context.Context, c *City) error {
	err := r.DB.QueryRow(ctx, `UPDATE cities SET name=$2 WHERE id=$1 RETURNING created_at`, c.ID, c.Name).
		Scan(&c.CreatedAt)
	return classify(err)
}

func (r *Repo) ListCities(ctx context.Context) ([]City, error) {
	rows, err := r.DB.Query(ctx, `SELECT id, name, created_at FROM cities ORDER BY name`)
	return collect(rows, err, func(row pgx.Rows, c *City) error {
		return row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	})
}

// ---- clients ----

const clientColumns = `id, name, address, phone, city_id, active, deactivated_at, created_at`

func scanClient(row pgx.Row, c *Client) error {
	return row.Scan(&c.ID, &c.Name, &c.Address, &c.Phone, &c.CityID, &c.Active, &c.DeactivatedAt, &c.CreatedAt)
}

func (r *Repo) CreateClient(ctx context.Context, c *Client) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO clients (name, address, phone, city_id, active)
		VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		c.Name, c.Address, c.Phone, c.CityID, c.Active).Scan(&c.ID, &c.CreatedAt)
	return classify(err)
}

func (r *Repo) GetClient(ctx context.Context, id int64) (*Client, error) {
	var c Client
	if err := scanClient(r.DB.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=$1`, id), &c); err != nil {
		return nil, classify(err)
	}
	return &c, nil
}

func (r *Repo) UpdateClient(ctx context.Context, c *Client) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE clients SET name=$2, address=$3, phone=$4, city_id=$5
		WHERE id=$1 RETURNING active, deactivated_at, created_at`,
		c.ID, c.Name, c.Address, c.Phone, c.CityID).Scan(&c.Active, &c.DeactivatedAt, &c.CreatedAt)
	return classify(err)
}

func (r *Repo) ListClients(ctx context.Context, f lifecycle.Filter) ([]Client, error) {
	rows, err := r.DB.Query(ctx, listQuery(clientColumns, KindClient, f, "name"))
	return collect(rows, err, func(row pgx.Rows, c *Client) error { return scanClient(row, c) })
}

// ---- suppliers ----

const supplierColumns = `id, name, contact, city_id, active, deactivated_at, created_at`

func scanSupplier(row pgx.Row, s *Supplier) error {
	return row.Scan(&s.ID, &s.Name, &s.Contact, &s.CityID, &s.Active, &s.DeactivatedAt, &s.CreatedAt)
}

func (r *Repo) CreateSupplier(ctx context.Context, s *Supplier) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO suppliers (name, contact, city_id, active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		s.Name, s.Contact, s.CityID, s.Active).Scan(&s.ID, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) GetSupplier(ctx context.Context, id int64) (*Supplier, error) {
	var s Supplier
	if err := scanSupplier(r.DB.QueryRow(ctx, `SELECT `+supplierColumns+` FROM suppliers WHERE id=$1`, id), &s); err != nil {
		return nil, classify(err)
	}
	return &s, nil
}

func (r *Repo) UpdateSupplier(ctx context.Context, s *Supplier) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE suppliers SET name=$2, contact=$3, city_id=$4
		WHERE id=$1 RETURNING active, deactivated_at, created_at`,
		s.ID, s.Name, s.Contact, s.CityID).Scan(&s.Active, &s.DeactivatedAt, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) ListSuppliers(ctx context.Context, f lifecycle.Filter) ([]Supplier, error) {
	rows, err := r.DB.Query(ctx, listQuery(supplierColumns, KindSupplier, f, "name"))
	return collect(rows, err, func(row pgx.Rows, s *Supplier) error { return scanSupplier(row, s) })
}

// ---- stores ----

const storeColumns = `id, name, address, city_id, active, deactivated_at, created_at`

func scanStore(row pgx.Row, s *Store) error {
	return row.Scan(&s.ID, &s.Name, &s.Address, &s.CityID, &s.Active, &s.DeactivatedAt, &s.CreatedAt)
}

func (r *Repo) CreateStore(ctx context.Context, s *Store) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO stores (name, address, city_id, active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		s.Name, s.Address, s.CityID, s.Active).Scan(&s.ID, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) GetStore(ctx context.Context, id int64) (*Store, error) {
	var s Store
	if err := scanStore(r.DB.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id=$1`, id), &s); err != nil {
		return nil, classify(err)
	}
	return &s, nil
}

func (r *Repo) UpdateStore(ctx context.Context, s *Store) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE stores SET name=$2, address=$3, city_id=$4
		WHERE id=$1 RETURNING active, deactivated_at, created_at`,
		s.ID, s.Name, s.Address, s.CityID).Scan(&s.Active, &s.DeactivatedAt, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) lockStore(ctx context.Context, id int64) (*Store, error) {
	var s Store
	if err := scanStore(r.DB.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id=$1 FOR UPDATE`, id), &s); err != nil {
		return nil, classify(err)
	}
	return &s, nil
}

func (r *Repo) ListStores(ctx context.Context, f lifecycle.Filter) ([]Store, error) {
	rows, err := r.DB.Query(ctx, listQuery(storeColumns, KindStore, f, "name"))
	return collect(rows, err, func(row pgx.Rows, s *Store) error { return scanStore(row, s) })
}

// ---- staff ----

const staffColumns = `id, name, position, salary, city_id, store_id, user_id, supplier_id, active, deactivated_at, created_at`

func scanStaff(row pgx.Row, s *Staff) error {
	return row.Scan(&s.ID, &s.Name, &s.Position, &s.Salary, &s.CityID, &s.StoreID, &s.UserID, &s.SupplierID,
		&s.Active, &s.DeactivatedAt, &s.CreatedAt)
}

func (r *Repo) CreateStaff(ctx context.Context, s *Staff) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO staff (name, position, salary, city_id, store_id, user_id, supplier_id, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		s.Name, s.Position, s.Salary, s.CityID, s.StoreID, s.UserID, s.SupplierID, s.Active).
		Scan(&s.ID, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) GetStaff(ctx context.Context, id int64) (*Staff, error) {
	var s Staff
	if err := scanStaff(r.DB.QueryRow(ctx, `SELECT `+staffColumns+` FROM staff WHERE id=$1`, id), &s); err != nil {
		return nil, classify(err)
	}
	return &s, nil
}

func (r *Repo) UpdateStaff(ctx context.Context, s *Staff) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE staff SET name=$2, position=$3, salary=$4, city_id=$5, store_id=$6, user_id=$7, supplier_id=$8
		WHERE id=$1 RETURNING active, deactivated_at, created_at`,
		s.ID, s.Name, s.Position, s.Salary, s.CityID, s.StoreID, s.UserID, s.SupplierID).
		Scan(&s.Active, &s.DeactivatedAt, &s.CreatedAt)
	return classify(err)
}

func (r *Repo) ListStaff(ctx context.Context, f lifecycle.Filter) ([]Staff, error) {
	rows, err := r.DB.Query(ctx, listQuery(staffColumns, KindStaff, f, "name"))
	return collect(rows, err, func(row pgx.Rows, s *Staff) error { return scanStaff(row, s) })
}

func (r *Repo) lockStaffOfStore(ctx context.Context, storeID int64) ([]Staff, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+staffColumns+` FROM staff WHERE store_id=$1 FOR UPDATE`, storeID)
	return collect(rows, err, func(row pgx.Rows, s *Staff) error { return scanStaff(row, s) })
}

// ---- roles ----

const roleColumns = `id, name, description, active, deactivated_at, created_at`

func scanRole(row pgx.Row, ro *Role) error {
	return row.Scan(&ro.ID, &ro.Name, &ro.Description, &ro.Active, &ro.DeactivatedAt, &ro.CreatedAt)
}

func (r *Repo) CreateRole(ctx context.Context, ro *Role) error {
	err := r.DB.QueryRow(ctx, `
		INSERT INTO roles (name, description, active)
		VALUES ($1, $2, $3) RETURNING id, created_at`,
		ro.Name, ro.Description, ro.Active).Scan(&ro.ID, &ro.CreatedAt)
	return classify(err)
}

func (r *Repo) GetRole(ctx context.Context, id int64) (*Role, error) {
	var ro Role
	if err := scanRole(r.DB.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id=$1`, id), &ro); err != nil {
		return nil, classify(err)
	}
	return &ro, nil
}

func (r *Repo) UpdateRole(ctx context.Context, ro *Role) error {
	err := r.DB.QueryRow(ctx, `
		UPDATE roles SET name=$2, description=$3
		WHERE id=$1 RETURNING active, deactivated_at, created_at`,
		ro.ID, ro.Name, ro.Description).Scan(&ro.Active, &ro.DeactivatedAt, &ro.CreatedAt)
	return classify(err)
}

func (r *Repo) ListRoles(ctx context.Context, f lifecycle.Filter) ([]Role, error) {
	rows, err := r.DB.Query(ctx, listQuery(roleColumns, KindRole, f, "name"))
	return collect(rows, err, func(row pgx.Rows, ro *Role) error { return scanRole(row, ro) })
}

// ---- lifecycle ----

func (r *Repo) lockState(ctx context.Context, kind Kind, id int64) (lifecycle.State, error) {
	var s lifecycle.State
	err := r.DB.QueryRow(ctx, `SELECT active, deactivated_at FROM `+string(kind)+` WHERE id=$1 FOR UPDATE`, id).
		Scan(&s.Active, &s.DeactivatedAt)
	return s, classify(err)
}

func (r *Repo) setState(ctx context.Context, kind Kind, id int64, s lifecycle.State) error {
	ct, err := r.DB.Exec(ctx, `UPDATE `+string(kind)+` SET active=$2, deactivated_at=$3 WHERE id=$1`,
		id, s.Active, s.DeactivatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// Lookup answers whether a referenced directory row can be used by new records.
type Lookup struct{ DB postgres.DBTX }

// IsActive reports whether the row exists and, for kinds with a lifecycle,
// is active. A missing row is not an error.
func (l Lookup) IsActive(ctx context.Context, kind Kind, id int64) (bool, error) {
	if !kind.valid() {
		return false, fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
	}
	q := `SELECT true FROM ` + string(kind) + ` WHERE id=$1`
	if kind.HasLifecycle() {
		q = `SELECT active FROM ` + string(kind) + ` WHERE id=$1`
	}
	var active bool
	if err := l.DB.QueryRow(ctx, q, id).Scan(&active); err != nil {
		if postgres.IsNoRows(err) {
			return false, nil
		}
		return false, err
	}
	return active, nil
}

// StaffStore returns the store a staff member is assigned to, nil when the
// member has none.
func (l Lookup) StaffStore(ctx context.Context, staffID int64) (*int64, error) {
	var store *int64
	err := l.DB.QueryRow(ctx, `SELECT store_id FROM staff WHERE id=$1`, staffID).Scan(&store)
	if err != nil {
		return nil, classify(err)
	}
	return store, nil
}

// StaffSupplier returns the supplier a staff member acts for, nil when the
// member acts for none.
func (l Lookup) StaffSupplier(ctx context.Context, staffID int64) (*int64, error) {
	var supplier *int64
	err := l.DB.QueryRow(ctx, `SELECT supplier_id FROM staff WHERE id=$1`, staffID).Scan(&supplier)
	if err != nil {
		return nil, classify(err)
	}
	return supplier, nil
}
