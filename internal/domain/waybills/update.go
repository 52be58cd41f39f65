package waybills

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Update validation codes.
const (
	CodeRowVersionMissing       = "ROW_VERSION_MISSING"
	CodeRowVersionInvalid       = "ROW_VERSION_INVALID"
	CodeQuantityOutOfRange      = "QUANTITY_OUT_OF_RANGE"
	CodeDeliveryBeforeWaybill   = "DELIVERY_DATE_BEFORE_WAYBILL"
	CodeTotalMismatch           = "TOTAL_MISMATCH"
	CodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
)

// ValidationError rejects a single update request before any store mutation.
type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// UpdateRequest carries the target field values plus the concurrency token
// the caller last observed.
type UpdateRequest struct {
	RowToken     string
	DeliveryDate time.Time
	ProductCode  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	TotalAmount  decimal.Decimal
	Status       Status
}

// VersionBumper invalidates a tenant's derived read views after a commit.
type VersionBumper interface {
	Increment(tenantID string, reason string)
}

// UpdateService applies token-checked waybill updates.
type UpdateService struct {
	repo     Repository
	versions VersionBumper
	logger   zerolog.Logger
}

func NewUpdateService(repo Repository, versions VersionBumper, logger zerolog.Logger) *UpdateService {
	return &UpdateService{repo: repo, versions: versions, logger: logger}
}

// Update validates the request against the stored record and performs a
// single conditional write. It returns ErrNotFound when the record is
// absent, a ValidationError on a field or transition failure, and
// ErrConflict when the stored token no longer matches.
func (s *UpdateService) Update(ctx context.Context, tenantID string, id uuid.UUID, req UpdateRequest) (*ListItem, error) {
	if req.RowToken == "" {
		return nil, ValidationError{Code: CodeRowVersionMissing, Message: "rowToken is required"}
	}
	if _, err := ulid.ParseStrict(req.RowToken); err != nil {
		return nil, ValidationError{Code: CodeRowVersionInvalid, Message: "rowToken is not a valid token"}
	}

	current, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if !QuantityInRange(req.Quantity) {
		return nil, ValidationError{Code: CodeQuantityOutOfRange, Message: "quantity must be between 0.5 and 50"}
	}
	if req.DeliveryDate.Before(current.WaybillDate) {
		return nil, ValidationError{Code: CodeDeliveryBeforeWaybill, Message: "deliveryDate must be on or after waybillDate"}
	}
	if !TotalMatches(req.Quantity, req.UnitPrice, req.TotalAmount) {
		return nil, ValidationError{Code: CodeTotalMismatch, Message: "totalAmount must equal quantity * unitPrice"}
	}
	if !IsValidTransition(current.Status, req.Status) {
		s.logger.Warn().
			Str("tenant", tenantID).
			Str("waybill_id", id.String()).
			Str("from", string(current.Status)).
			Str("to", string(req.Status)).
			Msg("invalid status transition")
		return nil, ValidationError{Code: CodeInvalidStatusTransition, Message: "status transition is not allowed"}
	}

	fields := UpdateFields{
		DeliveryDate: req.DeliveryDate,
		ProductCode:  req.ProductCode,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		TotalAmount:  req.TotalAmount,
		Status:       req.Status,
	}
	newToken := NewRowToken()

	matched, err := s.repo.ReplaceChecked(ctx, tenantID, id, req.RowToken, fields, newToken)
	if err != nil {
		return nil, fmt.Errorf("update waybill: %w", err)
	}
	if !matched {
		// The record existed at read time, so a non-matching token means a
		// concurrent writer won.
		s.logger.Warn().
			Str("tenant", tenantID).
			Str("waybill_id", id.String()).
			Msg("waybill update concurrency conflict")
		return nil, ErrConflict
	}

	s.versions.Increment(tenantID, "waybill-update")
	s.logger.Info().
		Str("tenant", tenantID).
		Str("waybill_id", id.String()).
		Msg("waybill updated")

	return s.repo.GetByID(ctx, tenantID, id)
}
