package types

import (
	"fmt"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// Staged text layouts.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	FileDateLayout  = "20060102"
)

// DefaultCurrencyCode is used when an invoice carries no currency object.
const DefaultCurrencyCode = "IDR"

// InvoiceHeader is one flattened sales invoice. Dates stay in the dd/mm/yyyy
// form Accurate returns them in; the loader parses them.
type InvoiceHeader struct {
	InvoiceID         int64
	InvoiceNumber     mo.Option[string]
	InvoiceDate       mo.Option[string]
	DueDate           mo.Option[string]
	ShipDate          mo.Option[string]
	CustomerID        mo.Option[int64]
	CustomerName      mo.Option[string]
	SubTotal          decimal.Decimal
	TotalAmount       decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            mo.Option[string]
	ApprovalStatus    mo.Option[string]
	PONumber          mo.Option[string]
	SalesOrderID      mo.Option[int64]
	DeliveryOrderID   mo.Option[int64]
	PaymentTermID     mo.Option[int64]
	PaymentTermName   mo.Option[string]
	CurrencyID        mo.Option[int64]
	CurrencyCode      mo.Option[string]
	ExchangeRate      decimal.Decimal
	BranchID          mo.Option[int64]
	BranchName        mo.Option[string]
	InvoiceAgeDays    mo.Option[int64]
	CreatedBy         mo.Option[string]
	PrintedTime       mo.Option[string]
	ExtractedAt       string
}

// InvoiceDetail is one flattened invoice line.
type InvoiceDetail struct {
	DetailID              mo.Option[int64]
	InvoiceID             int64
	InvoiceNumber         mo.Option[string]
	ItemID                mo.Option[int64]
	ItemNumber            mo.Option[string]
	ItemName              mo.Option[string]
	ItemCategoryID        mo.Option[int64]
	Quantity              decimal.Decimal
	UnitID                mo.Option[int64]
	UnitName              mo.Option[string]
	UnitRatio             decimal.Decimal
	UnitPrice             decimal.Decimal
	GrossAmount           decimal.Decimal
	SalesAmount           decimal.Decimal
	WarehouseID           mo.Option[int64]
	WarehouseName         mo.Option[string]
	SalesOrderDetailID    mo.Option[int64]
	DeliveryOrderDetailID mo.Option[int64]
	LineSeq               mo.Option[int64]
	ExtractedAt           string
}

// HeaderColumns is the column order of the staged headers and of the
// sales_invoices table.
var HeaderColumns = []string{
	"invoice_id",
	"invoice_number",
	"invoice_date",
	"due_date",
	"ship_date",
	"customer_id",
	"customer_name",
	"sub_total",
	"total_amount",
	"outstanding_amount",
	"status",
	"approval_status",
	"po_number",
	"sales_order_id",
	"delivery_order_id",
	"payment_term_id",
	"payment_term_name",
	"currency_id",
	"currency_code",
	"exchange_rate",
	"branch_id",
	"branch_name",
	"invoice_age_days",
	"created_by",
	"printed_time",
	"extracted_at",
}

// DetailColumns is the column order of the staged details and of the
// sales_invoice_details table.
var DetailColumns = []string{
	"detail_id",
	"invoice_id",
	"invoice_number",
	"item_id",
	"item_number",
	"item_name",
	"item_category_id",
	"quantity",
	"unit_id",
	"unit_name",
	"unit_ratio",
	"unit_price",
	"gross_amount",
	"sales_amount",
	"warehouse_id",
	"warehouse_name",
	"sales_order_detail_id",
	"delivery_order_detail_id",
	"line_seq",
	"extracted_at",
}

// Window is an inclusive range of calendar days filtered on transDate.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow truncates start and end to calendar days and validates them.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: day(start), End: day(end)}
	return w, w.Validate()
}

// ParseWindow reads two yyyy-mm-dd dates.
func ParseWindow(start, end string) (Window, error) {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return Window{}, ierr.WithError(err).
			WithHint("Dates must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return Window{}, ierr.WithError(err).
			WithHint("Dates must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	return NewWindow(s, e)
}

// DefaultWindow is the seven days ending yesterday, relative to now.
func DefaultWindow(now time.Time) Window {
	end := day(now).AddDate(0, 0, -1)
	return Window{Start: end.AddDate(0, 0, -6), End: end}
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return ierr.NewError("window start and end are required").
			Mark(ierr.ErrValidation)
	}
	if w.End.Before(w.Start) {
		return ierr.NewErrorf("window end %s is before start %s", w.End.Format(time.DateOnly), w.Start.Format(time.DateOnly)).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Key names the staged files of the window: YYYYMMDD_YYYYMMDD.
func (w Window) Key() string {
	return w.Start.Format(FileDateLayout) + "_" + w.End.Format(FileDateLayout)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Stage names a pipeline step.
type Stage string

const (
	StageAll     Stage = "all"
	StageRefresh Stage = "refresh"
	StageExtract Stage = "extract"
	StageLoad    Stage = "load"
)

// Steps expands StageAll into the concrete stages in execution order.
func (s Stage) Steps() ([]Stage, error) {
	switch s {
	case StageAll:
		return []Stage{StageRefresh, StageExtract, StageLoad}, nil
	case StageRefresh, StageExtract, StageLoad:
		return []Stage{s}, nil
	default:
		return nil, ierr.NewErrorf("unknown stage %q", string(s)).
			WithHint("Use one of all, refresh, extract, load").
			Mark(ierr.ErrValidation)
	}
}

// Counts reports how many rows a stage handled.
type Counts struct {
	Invoices int
	Details  int
}
