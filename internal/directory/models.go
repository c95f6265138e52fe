// Package directory keeps the master data that sales and supplier orders
// point at: cities, clients, suppliers, stores, staff and their roles.
package directory

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalid   = errors.New("invalid record")
	ErrDuplicate = errors.New("record already exists")
	ErrNoState   = errors.New("record kind has no active flag")

	// ErrNoSupplier is returned for staff that do not act for a supplier.
	ErrNoSupplier = errors.New("staff member acts for no supplier")
)

// Kind names a directory table.
type Kind string

const (
	KindCity     Kind = "cities"
	KindClient   Kind = "clients"
	KindSupplier Kind = "suppliers"
	KindStore    Kind = "stores"
	KindStaff    Kind = "staff"
	KindRole     Kind = "roles"
)

// HasLifecycle reports whether records of k are deactivated instead of deleted.
func (k Kind) HasLifecycle() bool {
	switch k {
	case KindClient, KindSupplier, KindStore, KindStaff, KindRole:
		return true
	}
	return false
}

func (k Kind) valid() bool { return k == KindCity || k.HasLifecycle() }

type City struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	CityID  *int64 `json:"city_id,omitempty"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
}

type Supplier struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	CityID  *int64 `json:"city_id,omitempty"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
	CityID  int64  `json:"city_id"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
}

type Staff struct {
	ID         int64               `json:"id"`
	Name       string              `json:"name"`
	Position   string              `json:"position,omitempty"`
	Salary     decimal.NullDecimal `json:"salary"`
	CityID     *int64              `json:"city_id,omitempty"`
	StoreID    *int64              `json:"store_id,omitempty"`
	UserID     *int64              `json:"user_id,omitempty"`
	SupplierID *int64              `json:"supplier_id,omitempty"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
}

// Role is a named job function staff can hold.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	lifecycle.State
	CreatedAt time.Time `json:"created_at"`
}

func requireName(kind Kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s name is required", ErrInvalid, kind)
	}
	return nil
}

func (c *City) Validate() error     { return requireName(KindCity, c.Name) }
func (c *Client) Validate() error   { return requireName(KindClient, c.Name) }
func (s *Supplier) Validate() error { return requireName(KindSupplier, s.Name) }
func (r *Role) Validate() error     { return requireName(KindRole, r.Name) }

func (s *Store) Validate() error {
	if err := requireName(KindStore, s.Name); err != nil {
		return err
	}
	if s.CityID <= 0 {
		return fmt.Errorf("%w: store city is required", ErrInvalid)
	}
	return nil
}

func (s *Staff) Validate() error {
	if err := requireName(KindStaff, s.Name); err != nil {
		return err
	}
	if s.Salary.Valid && s.Salary.Decimal.IsNegative() {
		return fmt.Errorf("%w: salary must not be negative", ErrInvalid)
	}
	return nil
}

// DeactivateStore deactivates the store and every active member of its staff.
// It returns the staff records it changed.
func DeactivateStore(store *Store, staff []Staff, now time.Time) []Staff {
	if !store.Active {
		return nil
	}
	store.Deactivate(now)
	var changed []Staff
	for i := range staff {
		if staff[i].StoreID == nil || *staff[i].StoreID != store.ID || !staff[i].Active {
			continue
		}
		staff[i].Deactivate(now)
		changed = append(changed, staff[i])
	}
	return changed
}

// actingSupplier turns a staff member's supplier link into the supplier id
// they act for.
func actingSupplier(supplier *int64, err error) (int64, error) {
	switch {
	case errors.Is(err, ErrNotFound):
		return 0, ErrNoSupplier
	case err != nil:
		return 0, err
	case supplier == nil:
		return 0, ErrNoSupplier
	}
	return *supplier, nil
}
