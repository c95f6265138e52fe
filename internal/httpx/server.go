package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/haderMaya1/coquito-amarillo/internal/authz"
	"github.com/haderMaya1/coquito-amarillo/internal/lifecycle"
	"go.uber.org/zap"
)

// Deps holds the services behind the API. A nil service leaves its routes
// out. Without Suppliers, Supplier-role callers are refused supplier orders.
type Deps struct {
	Verifier     authz.Verifier
	Sales        SalesService
	Catalog      CatalogService
	Directory    DirectoryService
	Procurement  ProcurementService
	ClientOrders ClientOrderService
	Suppliers    SupplierResolver
	Cache        Cache
	Log          *zap.Logger
	Timeout      time.Duration
}

var (
	adminOnly  = authz.RequireRole(authz.RoleAdministrator)
	sellers    = authz.RequireRole(authz.RoleAdministrator, authz.RoleSalesperson)
	receivers  = authz.RequireRole(authz.RoleAdministrator, authz.RoleSupplier)
	anyStaffer = authz.RequireRole(authz.RoleAdministrator, authz.RoleSalesperson, authz.RoleSupplier)
)

func NewRouter(d Deps) *chi.Mux {
	if d.Timeout <= 0 {
		d.Timeout = 15 * time.Second
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		r.Use(authz.Middleware(d.Verifier))
		if d.Sales != nil {
			(&SalesHandler{Sales: d.Sales, Cache: d.Cache, Log: d.Log}).Register(r)
		}
		if d.Catalog != nil {
			(&CatalogHandler{Catalog: d.Catalog, Log: d.Log}).Register(r)
		}
		if d.Directory != nil {
			(&DirectoryHandler{Directory: d.Directory, Log: d.Log}).Register(r)
		}
		if d.Procurement != nil {
			(&ProcurementHandler{Procurement: d.Procurement, Suppliers: d.Suppliers, Log: d.Log}).Register(r)
		}
		if d.ClientOrders != nil {
			(&ClientOrderHandler{Orders: d.ClientOrders, Log: d.Log}).Register(r)
		}
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", errBadRequest, chi.URLParam(r, "id"))
	}
	return id, nil
}

func optionalInt(r *http.Request, key string) (*int64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", errBadRequest, key)
	}
	return &v, nil
}

// optionalTime accepts RFC 3339 timestamps or plain dates.
func optionalTime(r *http.Request, key string) (*time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: invalid %s", errBadRequest, key)
}

func statusFilter(r *http.Request) lifecycle.Filter {
	return lifecycle.ParseFilter(r.URL.Query().Get("status"))
}
