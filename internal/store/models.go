package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/shopspring/decimal"
)

// SalesInvoice represents the 'sales_invoices' table.
type SalesInvoice struct {
	InvoiceID         int64                `db:"invoice_id"`
	InvoiceNumber     mo.Option[string]    `db:"invoice_number"`
	InvoiceDate       mo.Option[time.Time] `db:"invoice_date"`
	DueDate           mo.Option[time.Time] `db:"due_date"`
	ShipDate          mo.Option[time.Time] `db:"ship_date"`
	CustomerID        mo.Option[int64]     `db:"customer_id"`
	CustomerName      mo.Option[string]    `db:"customer_name"`
	SubTotal          decimal.Decimal      `db:"sub_total"`
	TotalAmount       decimal.Decimal      `db:"total_amount"`
	OutstandingAmount decimal.Decimal      `db:"outstanding_amount"`
	Status            mo.Option[string]    `db:"status"`
	ApprovalStatus    mo.Option[string]    `db:"approval_status"`
	PONumber          mo.Option[string]    `db:"po_number"`
	SalesOrderID      mo.Option[int64]     `db:"sales_order_id"`
	DeliveryOrderID   mo.Option[int64]     `db:"delivery_order_id"`
	PaymentTermID     mo.Option[int64]     `db:"payment_term_id"`
	PaymentTermName   mo.Option[string]    `db:"payment_term_name"`
	CurrencyID        mo.Option[int64]     `db:"currency_id"`
	CurrencyCode      mo.Option[string]    `db:"currency_code"`
	ExchangeRate      decimal.Decimal      `db:"exchange_rate"`
	BranchID          mo.Option[int64]     `db:"branch_id"`
	BranchName        mo.Option[string]    `db:"branch_name"`
	InvoiceAgeDays    mo.Option[int64]     `db:"invoice_age_days"`
	CreatedBy         mo.Option[string]    `db:"created_by"`
	PrintedTime       mo.Option[time.Time] `db:"printed_time"`
	ExtractedAt       mo.Option[time.Time] `db:"extracted_at"`
}

// SalesInvoiceDetail represents the 'sales_invoice_details' table.
type SalesInvoiceDetail struct {
	DetailID              mo.Option[int64]     `db:"detail_id"`
	InvoiceID             int64                `db:"invoice_id"`
	InvoiceNumber         mo.Option[string]    `db:"invoice_number"`
	ItemID                mo.Option[int64]     `db:"item_id"`
	ItemNumber            mo.Option[string]    `db:"item_number"`
	ItemName              mo.Option[string]    `db:"item_name"`
	ItemCategoryID        mo.Option[int64]     `db:"item_category_id"`
	Quantity              decimal.Decimal      `db:"quantity"`
	UnitID                mo.Option[int64]     `db:"unit_id"`
	UnitName              mo.Option[string]    `db:"unit_name"`
	UnitRatio             decimal.Decimal      `db:"unit_ratio"`
	UnitPrice             decimal.Decimal      `db:"unit_price"`
	GrossAmount           decimal.Decimal      `db:"gross_amount"`
	SalesAmount           decimal.Decimal      `db:"sales_amount"`
	WarehouseID           mo.Option[int64]     `db:"warehouse_id"`
	WarehouseName         mo.Option[string]    `db:"warehouse_name"`
	SalesOrderDetailID    mo.Option[int64]     `db:"sales_order_detail_id"`
	DeliveryOrderDetailID mo.Option[int64]     `db:"delivery_order_detail_id"`
	LineSeq               mo.Option[int64]     `db:"line_seq"`
	ExtractedAt           mo.Option[time.Time] `db:"extracted_at"`
}

// IngestionHistory represents the 'ingestion_history' table: one row per
// stage execution.
type IngestionHistory struct {
	ID            int64      `db:"id" json:"id"`
	RunID         uuid.UUID  `db:"run_id" json:"run_id"`
	WindowStart   time.Time  `db:"window_start" json:"window_start"`
	WindowEnd     time.Time  `db:"window_end" json:"window_end"`
	Stage         string     `db:"stage" json:"stage"`
	TriggerType   string     `db:"trigger_type" json:"trigger_type"`
	Status        string     `db:"status" json:"status"`
	InvoicesCount int        `db:"invoices_count" json:"invoices_count"`
	DetailsCount  int        `db:"details_count" json:"details_count"`
	ErrorMessage  *string    `db:"error_message" json:"error_message,omitempty"`
	ProcessedAt   time.Time  `db:"processed_at" json:"processed_at"`
	FinishedAt    *time.Time `db:"finished_at" json:"finished_at,omitempty"`
}

// IngestionOutcome closes an in-progress IngestionHistory row.
type IngestionOutcome struct {
	Status        string
	InvoicesCount int
	DetailsCount  int
	ErrorMessage  *string
}
