//go:build integration

package sales

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Run with: TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/sales/

func integrationDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN is not set")
	}
	ctx := context.Background()
	db, err := postgres.Connect(ctx, dsn, 8)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, postgres.Migrate(ctx, db))
	return db
}

type fixture struct {
	db         *pgxpool.Pool
	client     int64
	employee   int64
	store      int64
	otherStore int64
}

func insertID(t *testing.T, db *pgxpool.Pool, sql string, args ...any) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.QueryRow(context.Background(), sql, args...).Scan(&id))
	return id
}

// seed creates a city, two stores, a client and an employee of the first
// store. Names are unique so runs against a shared database do not collide.
func seed(t *testing.T, db *pgxpool.Pool) fixture {
	tag := uuid.NewString()
	city := insertID(t, db, `INSERT INTO cities (name) VALUES ($1) RETURNING id`, "city-"+tag)
	f := fixture{db: db}
	f.store = insertID(t, db, `INSERT INTO stores (name, city_id) VALUES ($1, $2) RETURNING id`, "store-"+tag, city)
	f.otherStore = insertID(t, db, `INSERT INTO stores (name, city_id) VALUES ($1, $2) RETURNING id`, "other-"+tag, city)
	f.client = insertID(t, db, `INSERT INTO clients (name, city_id) VALUES ($1, $2) RETURNING id`, "client-"+tag, city)
	f.employee = insertID(t, db, `INSERT INTO staff (name, store_id) VALUES ($1, $2) RETURNING id`, "seller-"+tag, f.store)
	return f
}

func (f fixture) product(t *testing.T, stock int, price string) int64 {
	return insertID(t, f.db, `INSERT INTO products (name, price, stock) VALUES ($1, $2::numeric, $3) RETURNING id`,
		"product-"+uuid.NewString(), price, stock)
}

func (f fixture) stock(t *testing.T, product int64) int {
	var n int
	require.NoError(t, f.db.QueryRow(context.Background(), `SELECT stock FROM products WHERE id=$1`, product).Scan(&n))
	return n
}

func (f fixture) request(product int64, qty int) CreateRequest {
	return CreateRequest{
		Refs:  Refs{ClientID: f.client, EmployeeID: f.employee, StoreID: f.store},
		Items: []ItemRequest{{ProductID: product, Quantity: qty}},
	}
}

func pgService(db *pgxpool.Pool) *Service {
	store := &PGStore{DB: db}
	return &Service{Store: store, Reader: store.Reader(), Log: zap.NewNop()}
}

func TestPGGuardedDecrementUnderContention(t *testing.T) {
	db := integrationDB(t)
	f := seed(t, db)
	product := f.product(t, 1, "2.00")
	ctx := context.Background()

	first, err := db.Begin(ctx)
	require.NoError(t, err)
	defer first.Rollback(ctx)
	ok, err := (&catalog.Repo{DB: first}).Decrement(ctx, product, 1)
	require.NoError(t, err)
	require.True(t, ok)

	second := make(chan bool, 1)
	go func() {
		_ = pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
			ok, err := (&catalog.Repo{DB: tx}).Decrement(ctx, product, 1)
			assert.NoError(t, err)
			second <- ok
			return err
		})
	}()

	require.NoError(t, first.Commit(ctx))
	assert.False(t, <-second, "the waiting update re-checks the guard against committed stock")
	assert.Equal(t, 0, f.stock(t, product))
}

func TestPGConcurrentSalesNeverOversell(t *testing.T) {
	db := integrationDB(t)
	f := seed(t, db)
	product := f.product(t, 1, "4.00")
	svc := pgService(db)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		made []*Receipt
		errs []error
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := svc.CreateSale(context.Background(), f.request(product, 1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			made = append(made, rc)
		}()
	}
	wg.Wait()

	require.Len(t, made, 1)
	require.Len(t, errs, 1)
	assert.Equal(t, "InsufficientStock", Reason(errs[0]))
	assert.Equal(t, 0, f.stock(t, product))
	assert.Equal(t, "4.00", made[0].Total.StringFixed(2))
}

func TestPGIdempotencyKeyUnderConcurrentRetries(t *testing.T) {
	db := integrationDB(t)
	f := seed(t, db)
	product := f.product(t, 10, "1.50")
	svc := pgService(db)
	req := f.request(product, 2)
	req.IdempotencyKey = uuid.NewString()

	receipts := make(chan *Receipt, 4)
	var wg sync.WaitGroup
	for i := 0; i < cap(receipts); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rc, err := svc.CreateSale(context.Background(), req)
			if assert.NoError(t, err) {
				receipts <- rc
			}
		}()
	}
	wg.Wait()
	close(receipts)

	var fresh int
	ids := map[int64]bool{}
	for rc := range receipts {
		ids[rc.SaleID] = true
		if !rc.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
	assert.Len(t, ids, 1)
	assert.Equal(t, 8, f.stock(t, product), "stock is taken once")

	var sales int
	require.NoError(t, db.QueryRow(context.Background(),
		`SELECT count(*) FROM sales WHERE employee_id=$1`, f.employee).Scan(&sales))
	assert.Equal(t, 1, sales)
}

func TestPGStoreComesFromSeller(t *testing.T) {
	db := integrationDB(t)
	f := seed(t, db)
	product := f.product(t, 5, "3.00")
	svc := pgService(db)
	ctx := context.Background()

	req := f.request(product, 1)
	req.StoreID = f.otherStore
	_, err := svc.CreateSale(ctx, req)
	require.ErrorIs(t, err, ErrForeignStore)
	assert.Equal(t, 5, f.stock(t, product))

	req.StoreID = 0
	rc, err := svc.CreateSale(ctx, req)
	require.NoError(t, err)
	sale, err := svc.GetSale(ctx, rc.SaleID)
	require.NoError(t, err)
	assert.Equal(t, f.store, sale.StoreID)
}

func TestPGAddItemToExistingSale(t *testing.T) {
	db := integrationDB(t)
	f := seed(t, db)
	first := f.product(t, 5, "3.00")
	second := f.product(t, 2, "1.25")
	svc := pgService(db)
	ctx := context.Background()

	rc, err := svc.CreateSale(ctx, f.request(first, 1))
	require.NoError(t, err)

	sale, err := svc.AddItem(ctx, rc.SaleID, ItemRequest{ProductID: second, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, "5.50", sale.Total.StringFixed(2))
	assert.Equal(t, 0, f.stock(t, second))

	_, err = svc.AddItem(ctx, rc.SaleID, ItemRequest{ProductID: second, Quantity: 1})
	assert.Equal(t, "InsufficientStock", Reason(err))

	got, err := svc.GetSale(ctx, rc.SaleID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
	assert.Equal(t, "5.50", got.Total.StringFixed(2))
	require.NotNil(t, got.Invoice)
	assert.Equal(t, "3.00", got.Invoice.Total.StringFixed(2), "the invoice keeps the total it was issued with")
}
