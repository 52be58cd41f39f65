// Package imports implements CSV waybill ingestion: per-row validation,
// batch reconciliation against the store, and the async job pipeline.
package imports

// Row error codes. A rejected row carries every code that applied to it,
// in check order.
const (
	CodeInvalidRow            = "INVALID_ROW"
	CodeTenantMismatch        = "TENANT_MISMATCH"
	CodeWaybillNumberRequired = "WAYBILL_NUMBER_REQUIRED"
	CodeProjectNameRequired   = "PROJECT_NAME_REQUIRED"
	CodeSupplierNameRequired  = "SUPPLIER_NAME_REQUIRED"
	CodeProductCodeRequired   = "PRODUCT_CODE_REQUIRED"
	CodeInvalidWaybillDate    = "INVALID_WAYBILL_DATE"
	CodeInvalidDeliveryDate   = "INVALID_DELIVERY_DATE"
	CodeDeliveryBeforeWaybill = "DELIVERY_BEFORE_WAYBILL"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeQuantityOutOfRange    = "QUANTITY_OUT_OF_RANGE"
	CodeInvalidUnitPrice      = "INVALID_UNIT_PRICE"
	CodeInvalidTotalAmount    = "INVALID_TOTAL_AMOUNT"
	CodeInvalidStatus         = "INVALID_STATUS"
)

// CodePriceDiscrepancy is a warning, not an error. The row persists with
// the supplied total.
const CodePriceDiscrepancy = "PRICE_DISCREPANCY"

// RejectedRow records a row excluded from persistence. RowNumber is the
// 1-based line in the source file, with the header on line 1.
type RejectedRow struct {
	RowNumber int      `json:"rowNumber"`
	Errors    []string `json:"errors"`
}

// WarningRow records a persisted row that carried warnings.
type WarningRow struct {
	RowNumber int      `json:"rowNumber"`
	Warnings  []string `json:"warnings"`
}

// ImportResult aggregates one reconciliation run.
type ImportResult struct {
	TotalRows     int           `json:"totalRows"`
	InsertedCount int           `json:"insertedCount"`
	UpdatedCount  int           `json:"updatedCount"`
	RejectedCount int           `json:"rejectedCount"`
	Rejected      []RejectedRow `json:"rejected"`
	Warnings      []WarningRow  `json:"warnings"`
}
