package httpx

import (
	"errors"
	"net/http"

	"github.com/haderMaya1/coquito-amarillo/internal/catalog"
	"github.com/haderMaya1/coquito-amarillo/internal/clientorders"
	"github.com/haderMaya1/coquito-amarillo/internal/directory"
	"github.com/haderMaya1/coquito-amarillo/internal/procurement"
	"github.com/haderMaya1/coquito-amarillo/internal/sales"
	"go.uber.org/zap"
)

var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

var statusByKind = map[string]int{
	"EmptyOrder":        http.StatusBadRequest,
	"InvalidQuantity":   http.StatusBadRequest,
	"InvalidInput":      http.StatusBadRequest,
	"Forbidden":         http.StatusForbidden,
	"ForeignStore":      http.StatusForbidden,
	"MissingReference":  http.StatusUnprocessableEntity,
	"ProductNotFound":   http.StatusUnprocessableEntity,
	"InsufficientStock": http.StatusConflict,
	"DuplicateInvoice":  http.StatusConflict,
	"SaleVoided":        http.StatusConflict,
	"Conflict":          http.StatusConflict,
	"NotFound":          http.StatusNotFound,
	"StorageFailure":    http.StatusInternalServerError,
}

// kind names the failure for the JSON body.
func kind(err error) string {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, catalog.ErrInvalidProduct),
		errors.Is(err, directory.ErrInvalid),
		errors.Is(err, directory.ErrNoState),
		errors.Is(err, procurement.ErrInvalidOrder),
		errors.Is(err, clientorders.ErrInvalidOrder):
		return "InvalidInput"
	case errors.Is(err, procurement.ErrForbidden),
		errors.Is(err, directory.ErrNoSupplier):
		return "Forbidden"
	case errors.Is(err, directory.ErrDuplicate),
		errors.Is(err, procurement.ErrNotPending),
		errors.Is(err, clientorders.ErrNotPending):
		return "Conflict"
	case errors.Is(err, clientorders.ErrProductUnavailable):
		return "ProductNotFound"
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, directory.ErrNotFound),
		errors.Is(err, procurement.ErrNotFound),
		errors.Is(err, clientorders.ErrNotFound):
		return "NotFound"
	}
	return sales.Reason(err)
}

func details(err error) map[string]any {
	d := map[string]any{}
	var ie *sales.ItemError
	if errors.As(err, &ie) {
		d["item"] = ie
	}
	var ise *catalog.InsufficientStockError
	if errors.As(err, &ise) {
		d["stock"] = ise
	}
	var mre *sales.MissingReferenceError
	if errors.As(err, &mre) {
		d["reference"] = mre
	}
	var sme *sales.StoreMismatchError
	if errors.As(err, &sme) {
		d["store"] = sme
	}
	var pnf *sales.ProductNotFoundError
	if errors.As(err, &pnf) {
		d["product"] = pnf
	}
	if len(d) == 0 {
		return nil
	}
	return d
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	k := kind(err)
	code, ok := statusByKind[k]
	if !ok {
		code = http.StatusInternalServerError
	}
	body := errorBody{Error: k, Message: err.Error(), Details: details(err)}
	if code == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		body.Message = "storage failure, nothing was saved"
	}
	writeJSON(w, code, body)
}
