package sales

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/events"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"github.com/shopspring/decimal"
)

// memStore is an in-memory Beginner and Reader. A unit of work holds the
// store mutex from Begin until Commit or Rollback, so units are serialized
// the way row locks serialize competing transactions on the same product.
type memStore struct {
	mu        sync.Mutex
	products  map[int64]catalog.Product
	sales     map[int64]Sale
	invoices  map[int64]Invoice
	refs      map[string]map[int64]bool
	assigned  map[int64]int64
	keys      map[requestKey]int64
	nextID    int64
	commitErr error
}

func newMemStore() *memStore {
	return &memStore{
		products: map[int64]catalog.Product{},
		sales:    map[int64]Sale{},
		invoices: map[int64]Invoice{},
		refs:     map[string]map[int64]bool{"client_id": {}, "employee_id": {}, "store_id": {}},
		assigned: map[int64]int64{},
		keys:     map[requestKey]int64{},
		nextID:   100,
	}
}

func (m *memStore) addProduct(id int64, price string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = catalog.Product{
		ID: id, Name: "product", Price: decimal.RequireFromString(price), Stock: stock, State: lifecycle.New(),
	}
}

func (m *memStore) setRef(field string, id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs[field][id] = active
}

// addRefs registers active parties and assigns the employee to the store.
func (m *memStore) addRefs(r Refs) {
	m.setRef("client_id", r.ClientID, true)
	m.setRef("employee_id", r.EmployeeID, true)
	m.setRef("store_id", r.StoreID, true)
	m.mu.Lock()
	m.assigned[r.EmployeeID] = r.StoreID
	m.mu.Unlock()
}

// unassign leaves the employee without a store, like an administrator.
func (m *memStore) unassign(employeeID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.assigned, employeeID)
}

type requestKey struct {
	employeeID int64
	key        string
}

func (m *memStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *memStore) saleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sales)
}

func (m *memStore) invoiceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.invoices)
}

func copyItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	return append([]LineItem(nil), items...)
}

func assemble(sales map[int64]Sale, invoices map[int64]Invoice, id int64) (*Sale, error) {
	s, ok := sales[id]
	if !ok {
		return nil, ErrSaleNotFound
	}
	s.Items = copyItems(s.Items)
	for _, inv := range invoices {
		if inv.SaleID == id {
			inv := inv
			s.Invoice = &inv
		}
	}
	return &s, nil
}

func (m *memStore) Begin(ctx context.Context) (UnitOfWork, error) {
	m.mu.Lock()
	u := &memUnit{
		m:        m,
		products: make(map[int64]catalog.Product, len(m.products)),
		sales:    make(map[int64]Sale, len(m.sales)),
		invoices: make(map[int64]Invoice, len(m.invoices)),
		keys:     make(map[requestKey]int64, len(m.keys)),
		nextID:   m.nextID,
	}
	for k, v := range m.keys {
		u.keys[k] = v
	}
	for k, v := range m.products {
		u.products[k] = v
	}
	for k, v := range m.sales {
		v.Items = copyItems(v.Items)
		u.sales[k] = v
	}
	for k, v := range m.invoices {
		u.invoices[k] = v
	}
	return u, nil
}

func (m *memStore) GetSale(ctx context.Context, id int64) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return assemble(m.sales, m.invoices, id)
}

func (m *memStore) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

func (m *memStore) FindByKey(ctx context.Context, employeeID int64, key string) (*Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.keys[requestKey{employeeID, key}]
	if !ok || id == 0 {
		return nil, ErrSaleNotFound
	}
	return assemble(m.sales, m.invoices, id)
}

func (m *memStore) ListSales(ctx context.Context, f Filter) ([]Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Sale
	for _, s := range m.sales {
		switch {
		case f.From != nil && s.CreatedAt.Before(*f.From):
			continue
		case f.To != nil && !s.CreatedAt.Before(*f.To):
			continue
		case f.ClientID != nil && s.ClientID != *f.ClientID:
			continue
		case f.EmployeeID != nil && s.EmployeeID != *f.EmployeeID:
			continue
		case f.Lifecycle == lifecycle.FilterActive && !s.Active:
			continue
		case f.Lifecycle == lifecycle.FilterInactive && s.Active:
			continue
		}
		s.Items = nil
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

type memUnit struct {
	m        *memStore
	products map[int64]catalog.Product
	sales    map[int64]Sale
	invoices map[int64]Invoice
	keys     map[requestKey]int64
	nextID   int64
	done     bool
}

func (u *memUnit) id() int64 {
	u.nextID++
	return u.nextID
}

func (u *memUnit) References() References  { return u }
func (u *memUnit) Products() ProductLedger { return u }
func (u *memUnit) Sales() SaleWriter       { return u }

func (u *memUnit) Resolve(ctx context.Context, r Refs) (Refs, error) {
	if !u.m.refs["client_id"][r.ClientID] {
		return r, &MissingReferenceError{Field: "client_id", ID: r.ClientID}
	}
	if !u.m.refs["employee_id"][r.EmployeeID] {
		return r, &MissingReferenceError{Field: "employee_id", ID: r.EmployeeID}
	}
	var assigned *int64
	if store, ok := u.m.assigned[r.EmployeeID]; ok {
		assigned = &store
	}
	r, err := r.AssignStore(assigned)
	if err != nil {
		return r, err
	}
	if !u.m.refs["store_id"][r.StoreID] {
		return r, &MissingReferenceError{Field: "store_id", ID: r.StoreID}
	}
	return r, nil
}

func (u *memUnit) GetForUpdate(ctx context.Context, id int64) (*catalog.Product, error) {
	p, ok := u.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (u *memUnit) Decrement(ctx context.Context, id int64, qty int) (bool, error) {
	p, ok := u.products[id]
	if !ok || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	u.products[id] = p
	return true, nil
}

func (u *memUnit) InsertSale(ctx context.Context, s *Sale) error {
	s.ID = u.id()
	for i := range s.Items {
		s.Items[i].ID = u.id()
		s.Items[i].SaleID = s.ID
	}
	stored := *s
	stored.Items = copyItems(s.Items)
	stored.Invoice = nil
	u.sales[s.ID] = stored
	return nil
}

func (u *memUnit) InsertItem(ctx context.Context, li *LineItem) error {
	if _, ok := u.sales[li.SaleID]; !ok {
		return ErrSaleNotFound
	}
	li.ID = u.id()
	return nil
}

func (u *memUnit) ClaimKey(ctx context.Context, employeeID int64, key string) error {
	k := requestKey{employeeID, key}
	if _, ok := u.keys[k]; ok {
		return ErrDuplicateRequest
	}
	u.keys[k] = 0
	return nil
}

func (u *memUnit) BindKey(ctx context.Context, employeeID int64, key string, saleID int64) error {
	k := requestKey{employeeID, key}
	if _, ok := u.keys[k]; !ok {
		return errors.New("idempotency key was not claimed")
	}
	u.keys[k] = saleID
	return nil
}

func (u *memUnit) InsertInvoice(ctx context.Context, inv *Invoice) error {
	if _, ok := u.sales[inv.SaleID]; !ok {
		return ErrSaleNotFound
	}
	for _, existing := range u.invoices {
		if existing.SaleID == inv.SaleID {
			return ErrDuplicateInvoice
		}
	}
	inv.ID = u.id()
	u.invoices[inv.ID] = *inv
	return nil
}

func (u *memUnit) LockSale(ctx context.Context, id int64) (*Sale, error) {
	return assemble(u.sales, u.invoices, id)
}

func (u *memUnit) UpdateSale(ctx context.Context, s *Sale) error {
	if _, ok := u.sales[s.ID]; !ok {
		return ErrSaleNotFound
	}
	stored := *s
	stored.Items = copyItems(s.Items)
	stored.Invoice = nil
	u.sales[s.ID] = stored
	return nil
}

func (u *memUnit) LockInvoice(ctx context.Context, id int64) (*Invoice, error) {
	inv, ok := u.invoices[id]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

func (u *memUnit) UpdateInvoice(ctx context.Context, inv *Invoice) error {
	if _, ok := u.invoices[inv.ID]; !ok {
		return ErrInvoiceNotFound
	}
	u.invoices[inv.ID] = *inv
	return nil
}

func (u *memUnit) Commit(ctx context.Context) error {
	if u.done {
		return errors.New("unit of work already finished")
	}
	u.done = true
	defer u.m.mu.Unlock()
	if u.m.commitErr != nil {
		return u.m.commitErr
	}
	u.m.products = u.products
	u.m.sales = u.sales
	u.m.invoices = u.invoices
	u.m.keys = u.keys
	u.m.nextID = u.nextID
	return nil
}

func (u *memUnit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	u.m.mu.Unlock()
	return nil
}

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []events.Envelope
	err    error
}

func (r *recorder) PublishEvent(ctx context.Context, e events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
