package waybills

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

// Status is the waybill delivery status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
	StatusDisputed  Status = "DISPUTED"
)

// ParseStatus matches a status case-insensitively.
func ParseStatus(value string) (Status, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(StatusPending):
		return StatusPending, true
	case string(StatusDelivered):
		return StatusDelivered, true
	case string(StatusCancelled):
		return StatusCancelled, true
	case string(StatusDisputed):
		return StatusDisputed, true
	}
	return "", false
}

// IsValidTransition reports whether from -> to is an allowed status change.
// Self-transitions are always allowed; CANCELLED and DISPUTED are terminal.
func IsValidTransition(from, to Status) bool {
	if from == to {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusDelivered || to == StatusCancelled
	case StatusDelivered:
		return to == StatusDisputed
	default:
		return false
	}
}

// Quantity bounds and the tolerance applied to quantity * unit price
// against the supplied total amount.
var (
	QuantityMin    = decimal.NewFromFloat(0.5)
	QuantityMax    = decimal.NewFromInt(50)
	PriceTolerance = decimal.NewFromFloat(0.01)
)

// Waybill is a tenant-owned delivery record.
type Waybill struct {
	ID            uuid.UUID
	TenantID      string
	WaybillNumber string
	ProjectID     uuid.UUID
	SupplierID    uuid.UUID
	WaybillDate   time.Time
	DeliveryDate  time.Time
	ProductCode   string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	TotalAmount   decimal.Decimal
	Status        Status
	// RowToken is the opaque concurrency token; it changes on every write.
	RowToken  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project is a tenant-scoped project reference, unique by name
// (case-insensitive) within a tenant.
type Project struct {
	ID        uuid.UUID
	TenantID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Supplier is a tenant-scoped supplier reference, unique by name
// (case-insensitive) within a tenant.
type Supplier struct {
	ID        uuid.UUID
	TenantID  string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRowToken returns a fresh opaque concurrency token.
func NewRowToken() string {
	return ulid.Make().String()
}

// TotalMatches reports whether quantity * unitPrice equals total within
// PriceTolerance.
func TotalMatches(quantity, unitPrice, total decimal.Decimal) bool {
	return quantity.Mul(unitPrice).Sub(total).Abs().LessThanOrEqual(PriceTolerance)
}

// QuantityInRange reports whether quantity lies in [QuantityMin, QuantityMax].
func QuantityInRange(quantity decimal.Decimal) bool {
	return quantity.GreaterThanOrEqual(QuantityMin) && quantity.LessThanOrEqual(QuantityMax)
}
