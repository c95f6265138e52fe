package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogService interface {
	Create(ctx context.Context, p *catalog.Product) error
	Get(ctx context.Context, id int64) (*catalog.Product, error)
	List(ctx context.Context, f catalog.ListFilter) ([]catalog.Product, error)
	Update(ctx context.Context, p *catalog.Product) error
	AdjustStock(ctx context.Context, id int64, action catalog.StockAction, amount int) (*catalog.Product, error)
	SetActive(ctx context.Context, id int64, active bool) (*catalog.Product, error)
}

type CatalogHandler struct {
	Catalog CatalogService
	Log     *zap.Logger
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.With(anyStaffer).Get("/", h.list)
		r.With(anyStaffer).Get("/{id}", h.get)
		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Post("/{id}/stock", h.adjust)
			r.Post("/{id}/deactivate", h.setActive(false))
			r.Post("/{id}/activate", h.setActive(true))
		})
	})
}

type productBody struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	SupplierID  *int64          `json:"supplier_id"`
}

func (b productBody) product() *catalog.Product {
	return &catalog.Product{
		Name:        b.Name,
		Description: b.Description,
		Price:       b.Price,
		Stock:       b.Stock,
		SupplierID:  b.SupplierID,
	}
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	var body productBody
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p := body.product()
	if err := h.Catalog.Create(r.Context(), p); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var body productBody
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p := body.product()
	p.ID = id
	if err := h.Catalog.Update(r.Context(), p); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	f := catalog.ListFilter{
		Lifecycle: statusFilter(r),
		Stock:     catalog.StockFilter(r.URL.Query().Get("stock")),
	}
	list, err := h.Catalog.List(r.Context(), f)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": list})
}

type stockBody struct {
	Action catalog.StockAction `json:"action"`
	Amount int                 `json:"amount"`
}

func (h *CatalogHandler) adjust(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var body stockBody
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	p, err := h.Catalog.AdjustStock(r.Context(), id, body.Action, body.Amount)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) setActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		p, err := h.Catalog.SetActive(r.Context(), id, active)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
