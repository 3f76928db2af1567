package files

import (
	"strconv"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

// nullCell is how gota writes and recognises a missing value.
const nullCell = "NaN"

type cell = mo.Option[string]

// column maps one staged CSV column onto a field of T.
type column[T any] struct {
	name   string
	format func(*T) string
	parse  func(*T, cell) error
}

func textColumn[T any](name string, field func(*T) *mo.Option[string]) column[T] {
	return column[T]{
		name: name,
		format: func(r *T) string {
			return field(r).OrElse(nullCell)
		},
		parse: func(r *T, c cell) error {
			*field(r) = c
			return nil
		},
	}
}

func stringColumn[T any](name string, field func(*T) *string) column[T] {
	return column[T]{
		name:   name,
		format: func(r *T) string { return *field(r) },
		parse: func(r *T, c cell) error {
			*field(r) = c.OrEmpty()
			return nil
		},
	}
}

func optIntColumn[T any](name string, field func(*T) *mo.Option[int64]) column[T] {
	return column[T]{
		name: name,
		format: func(r *T) string {
			v, ok := field(r).Get()
			if !ok {
				return nullCell
			}
			return strconv.FormatInt(v, 10)
		},
		parse: func(r *T, c cell) error {
			s, ok := c.Get()
			if !ok {
				*field(r) = mo.None[int64]()
				return nil
			}
			v, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return invalidCell(name, s, err)
			}
			*field(r) = mo.Some(v)
			return nil
		},
	}
}

func intColumn[T any](name string, field func(*T) *int64) column[T] {
	return column[T]{
		name:   name,
		format: func(r *T) string { return strconv.FormatInt(*field(r), 10) },
		parse: func(r *T, c cell) error {
			v, err := strconv.ParseInt(c.OrEmpty(), 10, 64)
			if err != nil {
				return invalidCell(name, c.OrEmpty(), err)
			}
			*field(r) = v
			return nil
		},
	}
}

func decimalColumn[T any](name string, field func(*T) *decimal.Decimal) column[T] {
	return column[T]{
		name:   name,
		format: func(r *T) string { return field(r).String() },
		parse: func(r *T, c cell) error {
			v, err := decimal.NewFromString(c.OrEmpty())
			if err != nil {
				return invalidCell(name, c.OrEmpty(), err)
			}
			*field(r) = v
			return nil
		},
	}
}

func invalidCell(name, value string, err error) error {
	return ierr.WithError(err).
		WithMessagef("staged column %s has invalid value %q", name, value).
		Mark(ierr.ErrValidation)
}

type header = types.InvoiceHeader
type detail = types.InvoiceDetail

var headerColumns = []column[header]{
	intColumn("invoice_id", func(h *header) *int64 { return &h.InvoiceID }),
	textColumn("invoice_number", func(h *header) *mo.Option[string] { return &h.InvoiceNumber }),
	textColumn("invoice_date", func(h *header) *mo.Option[string] { return &h.InvoiceDate }),
	textColumn("due_date", func(h *header) *mo.Option[string] { return &h.DueDate }),
	textColumn("ship_date", func(h *header) *mo.Option[string] { return &h.ShipDate }),
	optIntColumn("customer_id", func(h *header) *mo.Option[int64] { return &h.CustomerID }),
	textColumn("customer_name", func(h *header) *mo.Option[string] { return &h.CustomerName }),
	decimalColumn("sub_total", func(h *header) *decimal.Decimal { return &h.SubTotal }),
	decimalColumn("total_amount", func(h *header) *decimal.Decimal { return &h.TotalAmount }),
	decimalColumn("outstanding_amount", func(h *header) *decimal.Decimal { return &h.OutstandingAmount }),
	textColumn("status", func(h *header) *mo.Option[string] { return &h.Status }),
	textColumn("approval_status", func(h *header) *mo.Option[string] { return &h.ApprovalStatus }),
	textColumn("po_number", func(h *header) *mo.Option[string] { return &h.PONumber }),
	optIntColumn("sales_order_id", func(h *header) *mo.Option[int64] { return &h.SalesOrderID }),
	optIntColumn("delivery_order_id", func(h *header) *mo.Option[int64] { return &h.DeliveryOrderID }),
	optIntColumn("payment_term_id", func(h *header) *mo.Option[int64] { return &h.PaymentTermID }),
	textColumn("payment_term_name", func(h *header) *mo.Option[string] { return &h.PaymentTermName }),
	optIntColumn("currency_id", func(h *header) *mo.Option[int64] { return &h.CurrencyID }),
	textColumn("currency_code", func(h *header) *mo.Option[string] { return &h.CurrencyCode }),
	decimalColumn("exchange_rate", func(h *header) *decimal.Decimal { return &h.ExchangeRate }),
	optIntColumn("branch_id", func(h *header) *mo.Option[int64] { return &h.BranchID }),
	textColumn("branch_name", func(h *header) *mo.Option[string] { return &h.BranchName }),
	optIntColumn("invoice_age_days", func(h *header) *mo.Option[int64] { return &h.InvoiceAgeDays }),
	textColumn("created_by", func(h *header) *mo.Option[string] { return &h.CreatedBy }),
	textColumn("printed_time", func(h *header) *mo.Option[string] { return &h.PrintedTime }),
	stringColumn("extracted_at", func(h *header) *string { return &h.ExtractedAt }),
}

var detailColumns = []column[detail]{
	optIntColumn("detail_id", func(d *detail) *mo.Option[int64] { return &d.DetailID }),
	intColumn("invoice_id", func(d *detail) *int64 { return &d.InvoiceID }),
	textColumn("invoice_number", func(d *detail) *mo.Option[string] { return &d.InvoiceNumber }),
	optIntColumn("item_id", func(d *detail) *mo.Option[int64] { return &d.ItemID }),
	textColumn("item_number", func(d *detail) *mo.Option[string] { return &d.ItemNumber }),
	textColumn("item_name", func(d *detail) *mo.Option[string] { return &d.ItemName }),
	optIntColumn("item_category_id", func(d *detail) *mo.Option[int64] { return &d.ItemCategoryID }),
	decimalColumn("quantity", func(d *detail) *decimal.Decimal { return &d.Quantity }),
	optIntColumn("unit_id", func(d *detail) *mo.Option[int64] { return &d.UnitID }),
	textColumn("unit_name", func(d *detail) *mo.Option[string] { return &d.UnitName }),
	decimalColumn("unit_ratio", func(d *detail) *decimal.Decimal { return &d.UnitRatio }),
	decimalColumn("unit_price", func(d *detail) *decimal.Decimal { return &d.UnitPrice }),
	decimalColumn("gross_amount", func(d *detail) *decimal.Decimal { return &d.GrossAmount }),
	decimalColumn("sales_amount", func(d *detail) *decimal.Decimal { return &d.SalesAmount }),
	optIntColumn("warehouse_id", func(d *detail) *mo.Option[int64] { return &d.WarehouseID }),
	textColumn("warehouse_name", func(d *detail) *mo.Option[string] { return &d.WarehouseName }),
	optIntColumn("sales_order_detail_id", func(d *detail) *mo.Option[int64] { return &d.SalesOrderDetailID }),
	optIntColumn("delivery_order_detail_id", func(d *detail) *mo.Option[int64] { return &d.DeliveryOrderDetailID }),
	optIntColumn("line_seq", func(d *detail) *mo.Option[int64] { return &d.LineSeq }),
	stringColumn("extracted_at", func(d *detail) *string { return &d.ExtractedAt }),
}
