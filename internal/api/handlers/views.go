package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gekko-logistics/waybills-server/internal/domain/waybills"
)

const dateLayout = "2006-01-02"

// waybillView is the wire shape of a waybill with its joined names.
type waybillView struct {
	ID            string          `json:"id"`
	WaybillNumber string          `json:"waybillNumber"`
	ProjectID     string          `json:"projectId"`
	ProjectName   string          `json:"projectName"`
	SupplierID    string          `json:"supplierId"`
	SupplierName  string          `json:"supplierName"`
	WaybillDate   string          `json:"waybillDate"`
	DeliveryDate  string          `json:"deliveryDate"`
	ProductCode   string          `json:"productCode"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Status        waybills.Status `json:"status"`
	RowToken      string          `json:"rowToken"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func newWaybillView(item waybills.ListItem) waybillView {
	return waybillView{
		ID:            item.ID.String(),
		WaybillNumber: item.WaybillNumber,
		ProjectID:     item.ProjectID.String(),
		ProjectName:   item.ProjectName,
		SupplierID:    item.SupplierID.String(),
		SupplierName:  item.SupplierName,
		WaybillDate:   item.WaybillDate.Format(dateLayout),
		DeliveryDate:  item.DeliveryDate.Format(dateLayout),
		ProductCode:   item.ProductCode,
		Quantity:      item.Quantity,
		UnitPrice:     item.UnitPrice,
		TotalAmount:   item.TotalAmount,
		Status:        item.Status,
		RowToken:      item.RowToken,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

func newWaybillViews(items []waybills.ListItem) []waybillView {
	views := make([]waybillView, 0, len(items))
	for _, item := range items {
		views = append(views, newWaybillView(item))
	}
	return views
}

type listPageView struct {
	Items      []waybillView `json:"items"`
	TotalCount int           `json:"totalCount"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
}

type catalogEntryView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type statusTotalsView struct {
	Status        waybills.Status `json:"status"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type monthlyTotalsView struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type topSupplierView struct {
	SupplierID    string          `json:"supplierId"`
	SupplierName  string          `json:"supplierName"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
}

type projectTotalsView struct {
	ProjectID     string          `json:"projectId"`
	ProjectName   string          `json:"projectName"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
}

type summaryView struct {
	StatusTotals           []statusTotalsView  `json:"statusTotals"`
	MonthlyTotals          []monthlyTotalsView `json:"monthlyTotals"`
	TopSuppliersByQuantity []topSupplierView   `json:"topSuppliersByQuantity"`
	ProjectTotals          []projectTotalsView `json:"projectTotals"`
}

func newSummaryView(summary *waybills.Summary) summaryView {
	view := summaryView{
		StatusTotals:           []statusTotalsView{},
		MonthlyTotals:          []monthlyTotalsView{},
		TopSuppliersByQuantity: []topSupplierView{},
		ProjectTotals:          []projectTotalsView{},
	}
	for _, entry := range summary.StatusTotals {
		view.StatusTotals = append(view.StatusTotals, statusTotalsView{
			Status:        entry.Status,
			TotalQuantity: entry.TotalQuantity,
			TotalAmount:   entry.TotalAmount,
		})
	}
	for _, entry := range summary.MonthlyTotals {
		view.MonthlyTotals = append(view.MonthlyTotals, monthlyTotalsView{
			Year:          entry.Year,
			Month:         entry.Month,
			TotalQuantity: entry.TotalQuantity,
			TotalAmount:   entry.TotalAmount,
		})
	}
	for _, entry := range summary.TopSuppliersByQuantity {
		view.TopSuppliersByQuantity = append(view.TopSuppliersByQuantity, topSupplierView{
			SupplierID:    entry.SupplierID.String(),
			SupplierName:  entry.SupplierName,
			TotalQuantity: entry.TotalQuantity,
		})
	}
	for _, entry := range summary.ProjectTotals {
		view.ProjectTotals = append(view.ProjectTotals, projectTotalsView{
			ProjectID:     entry.ProjectID.String(),
			ProjectName:   entry.ProjectName,
			TotalQuantity: entry.TotalQuantity,
			TotalAmount:   entry.TotalAmount,
		})
	}
	return view
}

type supplierSummaryView struct {
	SupplierID        string             `json:"supplierId"`
	TotalQuantity     decimal.Decimal    `json:"totalQuantity"`
	TotalAmount       decimal.Decimal    `json:"totalAmount"`
	BreakdownByStatus []statusTotalsView `json:"breakdownByStatus"`
}

func newSupplierSummaryView(summary *waybills.SupplierSummary) supplierSummaryView {
	view := supplierSummaryView{
		SupplierID:        summary.SupplierID.String(),
		TotalQuantity:     summary.TotalQuantity,
		TotalAmount:       summary.TotalAmount,
		BreakdownByStatus: []statusTotalsView{},
	}
	for _, entry := range summary.BreakdownByStatus {
		view.BreakdownByStatus = append(view.BreakdownByStatus, statusTotalsView{
			Status:        entry.Status,
			TotalQuantity: entry.TotalQuantity,
			TotalAmount:   entry.TotalAmount,
		})
	}
	return view
}
