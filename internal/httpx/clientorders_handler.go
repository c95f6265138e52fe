package httpx

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/haderMaya1/coquito-amarillo/internal/clientorders"
	"go.uber.org/zap"
)

type ClientOrderService interface {
	Create(ctx context.Context, clientID int64) (*clientorders.Order, error)
	Get(ctx context.Context, id int64) (*clientorders.Order, error)
	ListByClient(ctx context.Context, clientID int64) ([]clientorders.Order, error)
	AddItem(ctx context.Context, id int64, it clientorders.Item) (*clientorders.Order, error)
	Cancel(ctx context.Context, id int64) (*clientorders.Order, error)
}

type ClientOrderHandler struct {
	Orders ClientOrderService
	Log    *zap.Logger
}

func (h *ClientOrderHandler) Register(r chi.Router) {
	r.Route("/client-orders", func(r chi.Router) {
		r.Use(sellers)
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.get)
		r.Post("/{id}/items", h.addItem)
		r.Post("/{id}/cancel", h.cancel)
	})
}

func (h *ClientOrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClientID int64 `json:"client_id"`
	}
	if err := decode(r, &body); err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Orders.Create(r.Context(), body.ClientID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *ClientOrderHandler) list(w http.ResponseWriter, r *http.Request) {
	client, err := optionalInt(r, "client_id")
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if client == nil {
		writeError(w, h.Log, fmt.Errorf("%w: client_id is required", errBadRequest))
		return
	}
	list, err := h.Orders.ListByClient(r.Context(), *client)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (h *ClientOrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *ClientOrderHandler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	var it clientorders.Item
	if err := decode(r, &it); err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Orders.AddItem(r.Context(), id, it)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *ClientOrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	o, err := h.Orders.Cancel(r.Context(), id)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
