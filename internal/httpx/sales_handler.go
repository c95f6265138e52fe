package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/haderMaya1/coquito-amarillo/internal/authz"
	"github.com/haderMaya1/coquito-amarillo/internal/redisx"
	"github.com/haderMaya1/coquito-amarillo/internal/sales"
	"go.uber.org/zap"
)

type SalesService interface {
	CreateSale(ctx context.Context, req sales.CreateRequest) (*sales.Receipt, error)
	AddItem(ctx context.Context, saleID int64, it sales.ItemRequest) (*sales.Sale, error)
	GetSale(ctx context.Context, id int64) (*sales.Sale, error)
	ListSales(ctx context.Context, f sales.Filter) ([]sales.Sale, error)
	VoidSale(ctx context.Context, id int64) (*sales.Sale, error)
	ReactivateSale(ctx context.Context, id int64) (*sales.Sale, error)
	EmitInvoice(ctx context.Context, saleID int64) (*sales.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*sales.Invoice, error)
	VoidInvoice(ctx context.Context, id int64) (*sales.Invoice, error)
	ReactivateInvoice(ctx context.Context, id int64) (*sales.Invoice, error)
}

// Cache is the Redis shortcut in front of idempotent creates and sale views.
// The sale store stays the authority on whether a key was already used.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type SalesHandler struct {
	Sales SalesService
	Cache Cache
	Log   *zap.Logger
}

func (h *SalesHandler) Register(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Use(sellers)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Post("/{id}/items", h.addItem)
		r.Post("/{id}/void", h.void)
		r.Post("/{id}/reactivate", h.reactivate)
		r.Post("/{id}/invoice", h.emitInvoice)
	})
	r.Route("/invoices", func(r chi.Router) {
		r.Use(sellers)
		r.Get("/{id}", h.getInvoice)
		r.Post("/{id}/void", h.voidInvoice)
		r.Post("/{id}/reactivate", h.reactivateInvoice)
	})
}

// createSaleBody has no employee field: the seller is always the caller.
// StoreID may be left out for sellers assigned to a store.
type createSaleBody struct {
	ClientID int64               `json:"client_id"`
	StoreID  int64               `json:"store_id,omitempty"`
	Items    []sales.ItemRequest `json:"items"`
}

func (h *SalesHandler) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	claims, _ := authz.FromContext(ctx)

	var body createSaleBody
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	employee := claims.EmployeeID

	idem := r.Header.Get("Idempotency-Key")
	var key string
	if idem != "" && h.Cache != nil {
		key = redisx.IdemSaleCreate(employee, idem)
		var cached sales.Receipt
		ok, err := h.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			h.Log.Warn("idempotency lookup failed", zap.String("key", key), zap.Error(err))
		}
		if ok {
			w.Header().Set("Idempotent-Replay", "true")
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	receipt, err := h.Sales.CreateSale(ctx, sales.CreateRequest{
		Refs:           sales.Refs{ClientID: body.ClientID, EmployeeID: employee, StoreID: body.StoreID},
		Items:          body.Items,
		IdempotencyKey: idem,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if key != "" {
		if err := h.Cache.SetJSON(ctx, key, receipt, redisx.TTLIdempotency); err != nil {
			h.Log.Warn("idempotency store failed", zap.String("key", key), zap.Error(err))
		}
	}
	if receipt.Replayed {
		w.Header().Set("Idempotent-Replay", "true")
		writeJSON(w, http.StatusOK, receipt)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (h *SalesHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var it sales.ItemRequest
	if err := decode(r, &it); err != nil {
		writeError(w, h.Log, err)
		return
	}
	s, err := h.Sales.AddItem(r.Context(), id, it)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.forget(r.Context(), id)
	writeJSON(w, http.StatusOK, s)
}

func (h *SalesHandler) list(w http.ResponseWriter, r *http.Request) {
	var (
		f   = sales.Filter{Lifecycle: statusFilter(r)}
		err error
	)
	if f.From, err = optionalTime(r, "from"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if f.To, err = optionalTime(r, "to"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if f.ClientID, err = optionalInt(r, "client_id"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if f.EmployeeID, err = optionalInt(r, "employee_id"); err != nil {
		writeError(w, h.Log, err)
		return
	}
	list, err := h.Sales.ListSales(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": list})
}

func (h *SalesHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	ctx := r.Context()
	if h.Cache != nil {
		var cached sales.Sale
		if ok, _ := h.Cache.GetJSON(ctx, redisx.SaleView(id), &cached); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}
	s, err := h.Sales.GetSale(ctx, id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Cache != nil {
		_ = h.Cache.SetJSON(ctx, redisx.SaleView(id), s, redisx.TTLSaleView)
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *SalesHandler) void(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Sales.VoidSale)
}

func (h *SalesHandler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Sales.ReactivateSale)
}

func (h *SalesHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*sales.Sale, error)) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	s, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.forget(r.Context(), id)
	writeJSON(w, http.StatusOK, s)
}

func (h *SalesHandler) emitInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	inv, err := h.Sales.EmitInvoice(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.forget(r.Context(), id)
	writeJSON(w, http.StatusCreated, inv)
}

func (h *SalesHandler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	inv, err := h.Sales.GetInvoice(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *SalesHandler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	h.toggleInvoice(w, r, h.Sales.VoidInvoice)
}

func (h *SalesHandler) reactivateInvoice(w http.ResponseWriter, r *http.Request) {
	h.toggleInvoice(w, r, h.Sales.ReactivateInvoice)
}

func (h *SalesHandler) toggleInvoice(w http.ResponseWriter, r *http.Request, fn func(context.Context, int64) (*sales.Invoice, error)) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	inv, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.forget(r.Context(), inv.SaleID)
	writeJSON(w, http.StatusOK, inv)
}

// forget drops the cached view of a sale after it changed.
func (h *SalesHandler) forget(ctx context.Context, saleID int64) {
	if h.Cache == nil {
		return
	}
	if err := h.Cache.Del(ctx, redisx.SaleView(saleID)); err != nil {
		h.Log.Warn("cache invalidation failed", zap.Int64("sale_id", saleID), zap.Error(err))
	}
}
