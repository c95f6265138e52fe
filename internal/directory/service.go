package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Service struct {
	DB  *pgxpool.Pool
	Log *zap.Logger
	Now func() time.Time
}

func (s *Service) repo() *Repo { return &Repo{DB: s.DB} }

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) CreateCity(ctx context.Context, c *City) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo().CreateCity(ctx, c)
}

func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.State = lifecycle.New()
	return s.repo().CreateClient(ctx, c)
}

func (s *Service) CreateSupplier(ctx context.Context, sp *Supplier) error {
	if err := sp.Validate(); err != nil {
		return err
	}
	sp.State = lifecycle.New()
	return s.repo().CreateSupplier(ctx, sp)
}

func (s *Service) CreateStore(ctx context.Context, st *Store) error {
	if err := st.Validate(); err != nil {
		return err
	}
	st.State = lifecycle.New()
	return s.repo().CreateStore(ctx, st)
}

func (s *Service) CreateStaff(ctx context.Context, st *Staff) error {
	if err := st.Validate(); err != nil {
		return err
	}
	st.State = lifecycle.New()
	return s.repo().CreateStaff(ctx, st)
}

func (s *Service) CreateRole(ctx context.Context, ro *Role) error {
	if err := ro.Validate(); err != nil {
		return err
	}
	ro.State = lifecycle.New()
	return s.repo().CreateRole(ctx, ro)
}

// Update methods replace the editable fields of record id. The active flag
// only changes through SetActive.

func (s *Service) UpdateCity(ctx context.Context, id int64, c *City) error {
	c.ID = id
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateCity(ctx, c)
}

func (s *Service) UpdateClient(ctx context.Context, id int64, c *Client) error {
	c.ID = id
	if err := c.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateClient(ctx, c)
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, sp *Supplier) error {
	sp.ID = id
	if err := sp.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateSupplier(ctx, sp)
}

func (s *Service) UpdateStore(ctx context.Context, id int64, st *Store) error {
	st.ID = id
	if err := st.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateStore(ctx, st)
}

func (s *Service) UpdateStaff(ctx context.Context, id int64, st *Staff) error {
	st.ID = id
	if err := st.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateStaff(ctx, st)
}

func (s *Service) UpdateRole(ctx context.Context, id int64, ro *Role) error {
	ro.ID = id
	if err := ro.Validate(); err != nil {
		return err
	}
	return s.repo().UpdateRole(ctx, ro)
}

func (s *Service) ListCities(ctx context.Context) ([]City, error) { return s.repo().ListCities(ctx) }

// CityByName finds a city ignoring case.
func (s *Service) CityByName(ctx context.Context, name string) (*City, error) {
	return s.repo().CityByName(ctx, name)
}

func (s *Service) ListClients(ctx context.Context, f lifecycle.Filter) ([]Client, error) {
	return s.repo().ListClients(ctx, f)
}

func (s *Service) ListSuppliers(ctx context.Context, f lifecycle.Filter) ([]Supplier, error) {
	return s.repo().ListSuppliers(ctx, f)
}

func (s *Service) ListStores(ctx context.Context, f lifecycle.Filter) ([]Store, error) {
	return s.repo().ListStores(ctx, f)
}

func (s *Service) ListStaff(ctx context.Context, f lifecycle.Filter) ([]Staff, error) {
	return s.repo().ListStaff(ctx, f)
}

func (s *Service) ListRoles(ctx context.Context, f lifecycle.Filter) ([]Role, error) {
	return s.repo().ListRoles(ctx, f)
}

// SupplierOf returns the supplier a staff member acts for, ErrNoSupplier when
// there is none.
func (s *Service) SupplierOf(ctx context.Context, staffID int64) (int64, error) {
	return actingSupplier(Lookup{DB: s.DB}.StaffSupplier(ctx, staffID))
}

// Get returns the record of kind with the given id.
func (s *Service) Get(ctx context.Context, kind Kind, id int64) (any, error) {
	r := s.repo()
	switch kind {
	case KindCity:
		return r.GetCity(ctx, id)
	case KindClient:
		return r.GetClient(ctx, id)
	case KindSupplier:
		return r.GetSupplier(ctx, id)
	case KindStore:
		return r.GetStore(ctx, id)
	case KindStaff:
		return r.GetStaff(ctx, id)
	case KindRole:
		return r.GetRole(ctx, id)
	}
	return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalid, kind)
}

// SetActive deactivates or reactivates a record. Deactivating a store also
// deactivates its staff in the same transaction; reactivating it does not
// bring the staff back.
func (s *Service) SetActive(ctx context.Context, kind Kind, id int64, active bool) error {
	if !kind.HasLifecycle() {
		return ErrNoState
	}
	now := s.now()
	return pgx.BeginFunc(ctx, s.DB, func(tx pgx.Tx) error {
		r := &Repo{DB: tx}
		if kind == KindStore && !active {
			return s.deactivateStore(ctx, r, id, now)
		}
		st, err := r.lockState(ctx, kind, id)
		if err != nil {
			return err
		}
		if active {
			st.Activate()
		} else {
			st.Deactivate(now)
		}
		return r.setState(ctx, kind, id, st)
	})
}

func (s *Service) deactivateStore(ctx context.Context, r *Repo, id int64, now time.Time) error {
	store, err := r.lockStore(ctx, id)
	if err != nil {
		return err
	}
	staff, err := r.lockStaffOfStore(ctx, id)
	if err != nil {
		return err
	}
	changed := DeactivateStore(store, staff, now)
	if err := r.setState(ctx, KindStore, id, store.State); err != nil {
		return err
	}
	for _, st := range changed {
		if err := r.setState(ctx, KindStaff, st.ID, st.State); err != nil {
			return err
		}
	}
	if s.Log != nil {
		s.Log.Info("store deactivated", zap.Int64("store_id", id), zap.Int("staff_deactivated", len(changed)))
	}
	return nil
}
