package clientorders

import (
	"context"
	"errors"
	"testing"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id int64, stock int) *catalog.Product {
	return &catalog.Product{ID: id, Stock: stock, State: lifecycle.New()}
}

func TestNew(t *testing.T) {
	_, err := New(0)
	assert.ErrorIs(t, err, ErrInvalidOrder)

	o, err := New(4)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, o.Status)
	assert.Empty(t, o.Items)
}

func TestAddMergesLinesWithinStock(t *testing.T) {
	o, _ := New(1)
	p := product(7, 5)

	line, err := o.Add(7, p, 2)
	require.NoError(t, err)
	assert.Equal(t, Item{ProductID: 7, Quantity: 2}, line)

	line, err = o.Add(7, p, 3)
	require.NoError(t, err)
	assert.Equal(t, Item{ProductID: 7, Quantity: 5}, line)
	assert.Len(t, o.Items, 1)

	_, err = o.Add(7, p, 1)
	var ise *catalog.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, catalog.InsufficientStockError{ProductID: 7, Requested: 6, Available: 5}, *ise)
	assert.Equal(t, 5, o.Items[0].Quantity, "a rejected add leaves the line alone")
	assert.Equal(t, 5, p.Stock, "orders never take stock")
}

func TestAddRejections(t *testing.T) {
	o, _ := New(1)
	_, err := o.Add(7, nil, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	inactive := product(8, 10)
	inactive.Active = false
	_, err = o.Add(8, inactive, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = o.Add(7, product(7, 10), 0)
	assert.ErrorIs(t, err, catalog.ErrInvalidQuantity)

	require.NoError(t, o.Cancel())
	_, err = o.Add(7, product(7, 10), 1)
	assert.ErrorIs(t, err, ErrNotPending)
	assert.ErrorIs(t, o.Cancel(), ErrNotPending)
}

type fakeOrders struct {
	orders map[int64]Order
	puts   []Item
}

func (f *fakeOrders) LockOrder(_ context.Context, id int64) (*Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o.Items = append([]Item(nil), o.Items...)
	return &o, nil
}

func (f *fakeOrders) PutItem(_ context.Context, orderID int64, it Item) error {
	f.puts = append(f.puts, it)
	return nil
}

type fakeProducts map[int64]*catalog.Product

func (f fakeProducts) Get(_ context.Context, id int64) (*catalog.Product, error) {
	p, ok := f[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func TestAddItem(t *testing.T) {
	orders := &fakeOrders{orders: map[int64]Order{
		3: {ID: 3, ClientID: 1, Status: StatusPending, Items: []Item{{ProductID: 7, Quantity: 1}}},
	}}
	products := fakeProducts{7: product(7, 4)}
	ctx := context.Background()

	o, err := addItem(ctx, orders, products, 3, Item{ProductID: 7, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, []Item{{ProductID: 7, Quantity: 3}}, o.Items)
	assert.Equal(t, []Item{{ProductID: 7, Quantity: 3}}, orders.puts)

	_, err = addItem(ctx, orders, products, 3, Item{ProductID: 99, Quantity: 1})
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = addItem(ctx, orders, products, 4, Item{ProductID: 7, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, orders.puts, 1)
}

type brokenProducts struct{}

func (brokenProducts) Get(context.Context, int64) (*catalog.Product, error) {
	return nil, errors.New("conn reset")
}

func TestAddItemStorageFailure(t *testing.T) {
	orders := &fakeOrders{orders: map[int64]Order{3: {ID: 3, Status: StatusPending}}}
	_, err := addItem(context.Background(), orders, brokenProducts{}, 3, Item{ProductID: 7, Quantity: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrProductUnavailable)
	assert.Empty(t, orders.puts)
}
