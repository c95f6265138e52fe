package httpx

import (
	"context"
	"net/http"
	"testing"

	"github.com/haderMaya1/coquito-amarillo/internal/authz"
	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/clientorders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClientOrders struct {
	orders map[int64]*clientorders.Order
	stock  map[int64]int
}

func (f *fakeClientOrders) Create(_ context.Context, clientID int64) (*clientorders.Order, error) {
	o, err := clientorders.New(clientID)
	if err != nil {
		return nil, err
	}
	o.ID = int64(len(f.orders) + 1)
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeClientOrders) Get(_ context.Context, id int64) (*clientorders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, clientorders.ErrNotFound
	}
	return o, nil
}

func (f *fakeClientOrders) ListByClient(_ context.Context, clientID int64) ([]clientorders.Order, error) {
	var out []clientorders.Order
	for _, o := range f.orders {
		if o.ClientID == clientID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeClientOrders) AddItem(ctx context.Context, id int64, it clientorders.Item) (*clientorders.Order, error) {
	o, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var p *catalog.Product
	if n, ok := f.stock[it.ProductID]; ok {
		p = &catalog.Product{ID: it.ProductID, Stock: n}
		p.Active = true
	}
	if _, err := o.Add(it.ProductID, p, it.Quantity); err != nil {
		return nil, err
	}
	return o, nil
}

func (f *fakeClientOrders) Cancel(ctx context.Context, id int64) (*clientorders.Order, error) {
	o, err := f.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := o.Cancel(); err != nil {
		return nil, err
	}
	return o, nil
}

func TestClientOrderRoutes(t *testing.T) {
	svc := &fakeClientOrders{orders: map[int64]*clientorders.Order{}, stock: map[int64]int{7: 3}}
	r := NewRouter(Deps{Verifier: verifier, ClientOrders: svc, Log: zap.NewNop()})
	seller := token(t, 2, authz.RoleSalesperson)

	w := do(t, r, http.MethodPost, "/client-orders", seller, `{"client_id":5}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	o := decodeBody[clientorders.Order](t, w)
	assert.Equal(t, clientorders.StatusPending, o.Status)

	w = do(t, r, http.MethodPost, "/client-orders", seller, `{"client_id":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/client-orders/1/items", seller, `{"product_id":7,"quantity":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = do(t, r, http.MethodPost, "/client-orders/1/items", seller, `{"product_id":7,"quantity":1}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []clientorders.Item{{ProductID: 7, Quantity: 3}}, decodeBody[clientorders.Order](t, w).Items)

	w = do(t, r, http.MethodPost, "/client-orders/1/items", seller, `{"product_id":7,"quantity":1}`)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "InsufficientStock", decodeBody[errorBody](t, w).Error)

	w = do(t, r, http.MethodPost, "/client-orders/1/items", seller, `{"product_id":8,"quantity":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodGet, "/client-orders?client_id=5", seller, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeBody[map[string][]clientorders.Order](t, w)["orders"], 1)

	w = do(t, r, http.MethodGet, "/client-orders", seller, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/client-orders/1/cancel", seller, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, http.MethodPost, "/client-orders/1/cancel", seller, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodGet, "/client-orders/9", seller, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodGet, "/client-orders/1", token(t, 3, authz.RoleSupplier), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}
