package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haderMaya1/coquito-amarillo/internal/authz"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	"go.uber.org/zap"
)

type ProcurementService interface {
	Create(ctx context.Context, supplierID int64, items []procurement.Item) (*procurement.Order, error)
	Get(ctx context.Context, id int64) (*procurement.Order, error)
	List(ctx context.Context, f procurement.ListFilter) ([]procurement.Order, error)
	ReceiveFor(ctx context.Context, id, supplierID int64) (*procurement.Order, error)
	Cancel(ctx context.Context, id int64) (*procurement.Order, error)
}

// SupplierResolver names the supplier a Supplier-role caller acts for.
type SupplierResolver interface {
	SupplierOf(ctx context.Context, staffID int64) (int64, error)
}

// ProcurementHandler limits Supplier-role callers to their own supplier's
// orders; administrators see and receive every order.
type ProcurementHandler struct {
	Procurement ProcurementService
	Suppliers   SupplierResolver
	Log         *zap.Logger
}

func (h *ProcurementHandler) Register(r chi.Router) {
	r.Route("/supplier-orders", func(r chi.Router) {
		r.With(receivers).Get("/", h.list)
		r.With(receivers).Get("/{id}", h.get)
		r.With(adminOnly).Post("/", h.create)
		r.With(receivers).Post("/{id}/receive", h.receive)
		r.With(adminOnly).Post("/{id}/cancel", h.transition(h.Procurement.Cancel))
	})
}

type orderBody struct {
	SupplierID int64              `json:"supplier_id"`
	Items      []procurement.Item `json:"items"`
}

func (h *ProcurementHandler) create(w http.ResponseWriter, r *http.Request) {
	var body orderBody
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Procurement.Create(r.Context(), body.SupplierID, body.Items)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// scope returns the supplier the caller is limited to.
func (h *ProcurementHandler) scope(ctx context.Context) (int64, error) {
	c, ok := authz.FromContext(ctx)
	if !ok || c.Role != authz.RoleSupplier {
		return procurement.AnySupplier, nil
	}
	if h.Suppliers == nil {
		return 0, directory.ErrNoSupplier
	}
	return h.Suppliers.SupplierOf(ctx, c.EmployeeID)
}

func (h *ProcurementHandler) list(w http.ResponseWriter, r *http.Request) {
	supplier, err := optionalInt(r, "supplier_id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	scope, err := h.scope(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if scope != procurement.AnySupplier {
		supplier = &scope
	}
	f := procurement.ListFilter{
		Status:     procurement.Status(r.URL.Query().Get("status")),
		SupplierID: supplier,
	}
	list, err := h.Procurement.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *ProcurementHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	scope, err := h.scope(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Procurement.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if scope != procurement.AnySupplier && o.SupplierID != scope {
		writeError(w, h.Log, procurement.ErrForbidden)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *ProcurementHandler) receive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	scope, err := h.scope(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Procurement.ReceiveFor(r.Context(), id, scope)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *ProcurementHandler) transition(fn func(context.Context, int64) (*procurement.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		o, err := fn(r.Context(), id)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, o)
	}
}
