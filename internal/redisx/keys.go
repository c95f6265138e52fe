package redisx

import (
	"fmt"
	"time"
)

const (
	// idem:sale:create:{employee_id}:{idempotency key} -> receipt JSON
	KeyIdemSaleCreate = "idem:sale:create:%d:%s"

	// sale:{sale_id} -> sale JSON with line items and invoice
	KeySaleView = "sale:%d"

	// dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLSaleView    = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func IdemSaleCreate(employeeID int64, key string) string {
	return fmt.Sprintf(KeyIdemSaleCreate, employeeID, key)
}

func SaleView(saleID int64) string { return fmt.Sprintf(KeySaleView, saleID) }

func Dedup(service, eventID string) string { return fmt.Sprintf(KeyDedup, service, eventID) }
