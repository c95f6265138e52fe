package httpx

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"go.uber.org/zap"
)

type DirectoryService interface {
	CreateCity(ctx context.Context, c *directory.City) error
	CreateClient(ctx context.Context, c *directory.Client) error
	CreateSupplier(ctx context.Context, sp *directory.Supplier) error
	CreateStore(ctx context.Context, st *directory.Store) error
	CreateStaff(ctx context.Context, st *directory.Staff) error
	CreateRole(ctx context.Context, ro *directory.Role) error
	UpdateCity(ctx context.Context, id int64, c *directory.City) error
	UpdateClient(ctx context.Context, id int64, c *directory.Client) error
	UpdateSupplier(ctx context.Context, id int64, sp *directory.Supplier) error
	UpdateStore(ctx context.Context, id int64, st *directory.Store) error
	UpdateStaff(ctx context.Context, id int64, st *directory.Staff) error
	UpdateRole(ctx context.Context, id int64, ro *directory.Role) error
	ListCities(ctx context.Context) ([]directory.City, error)
	ListClients(ctx context.Context, f lifecycle.Filter) ([]directory.Client, error)
	ListSuppliers(ctx context.Context, f lifecycle.Filter) ([]directory.Supplier, error)
	ListStores(ctx context.Context, f lifecycle.Filter) ([]directory.Store, error)
	ListStaff(ctx context.Context, f lifecycle.Filter) ([]directory.Staff, error)
	ListRoles(ctx context.Context, f lifecycle.Filter) ([]directory.Role, error)
	CityByName(ctx context.Context, name string) (*directory.City, error)
	Get(ctx context.Context, kind directory.Kind, id int64) (any, error)
	SetActive(ctx context.Context, kind directory.Kind, id int64, active bool) error
}

type DirectoryHandler struct {
	Directory DirectoryService
	Log       *zap.Logger
}

// records holds the operations one directory kind exposes.
type records[T any] struct {
	kind   directory.Kind
	create func(context.Context, *T) error
	update func(context.Context, int64, *T) error
	list   func(context.Context, lifecycle.Filter) ([]T, error)
	extra  func(chi.Router)
}

func (h *DirectoryHandler) Register(r chi.Router) {
	d := h.Directory
	mount(r, h, records[directory.City]{
		kind:   directory.KindCity,
		create: d.CreateCity,
		update: d.UpdateCity,
		list:   func(ctx context.Context, _ lifecycle.Filter) ([]directory.City, error) { return d.ListCities(ctx) },
		extra: func(r chi.Router) {
			r.With(anyStaffer).Get("/lookup", h.cityByName)
		},
	})
	mount(r, h, records[directory.Client]{kind: directory.KindClient, create: d.CreateClient, update: d.UpdateClient, list: d.ListClients})
	mount(r, h, records[directory.Supplier]{kind: directory.KindSupplier, create: d.CreateSupplier, update: d.UpdateSupplier, list: d.ListSuppliers})
	mount(r, h, records[directory.Store]{kind: directory.KindStore, create: d.CreateStore, update: d.UpdateStore, list: d.ListStores})
	mount(r, h, records[directory.Staff]{kind: directory.KindStaff, create: d.CreateStaff, update: d.UpdateStaff, list: d.ListStaff})
	mount(r, h, records[directory.Role]{kind: directory.KindRole, create: d.CreateRole, update: d.UpdateRole, list: d.ListRoles})
}

// mount wires the list, create, get, update and state routes of one kind.
func mount[T any](r chi.Router, h *DirectoryHandler, rec records[T]) {
	kind := rec.kind
	r.Route("/"+string(kind), func(r chi.Router) {
		if rec.extra != nil {
			rec.extra(r)
		}
		r.With(anyStaffer).Get("/", func(w http.ResponseWriter, r *http.Request) {
			out, err := rec.list(r.Context(), statusFilter(r))
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{string(kind): out})
		})
		r.With(anyStaffer).Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := idParam(r)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			v, err := h.Directory.Get(r.Context(), kind, id)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, v)
		})
		r.With(adminOnly).Post("/", func(w http.ResponseWriter, r *http.Request) {
			var v T
			if err := decode(r, &v); err != nil {
				writeError(w, h.Log, err)
				return
			}
			if err := rec.create(r.Context(), &v); err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusCreated, &v)
		})
		r.With(adminOnly).Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := idParam(r)
			if err != nil {
				writeError(w, h.Log, err)
				return
			}
			var v T
			if err := decode(r, &v); err != nil {
				writeError(w, h.Log, err)
				return
			}
			if err := rec.update(r.Context(), id, &v); err != nil {
				writeError(w, h.Log, err)
				return
			}
			writeJSON(w, http.StatusOK, &v)
		})
		if !kind.HasLifecycle() {
			return
		}
		r.With(adminOnly).Post("/{id}/deactivate", h.setActive(kind, false))
		r.With(adminOnly).Post("/{id}/activate", h.setActive(kind, true))
	})
}

func (h *DirectoryHandler) cityByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeError(w, h.Log, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}
	c, err := h.Directory.CityByName(r.Context(), name)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *DirectoryHandler) setActive(kind directory.Kind, active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		if err := h.Directory.SetActive(r.Context(), kind, id, active); err != nil {
			writeError(w, h.Log, err)
			return
		}
		v, err := h.Directory.Get(r.Context(), kind, id)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
