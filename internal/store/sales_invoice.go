package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

type SalesInvoiceStore struct {
	db *sqlx.DB
}

// InsertSalesInvoices appends invoices in a single multi-row statement.
// There is no conflict handling; the table keeps every load.
func (s *SalesInvoiceStore) InsertSalesInvoices(ctx context.Context, invoices []SalesInvoice) error {
	if len(invoices) == 0 {
		return nil
	}

	query := `INSERT INTO sales_invoices (
		invoice_id,
		invoice_number,
		invoice_date,
		due_date,
		ship_date,
		customer_id,
		customer_name,
		sub_total,
		total_amount,
		outstanding_amount,
		status,
		approval_status,
		po_number,
		sales_order_id,
		delivery_order_id,
		payment_term_id,
		payment_term_name,
		currency_id,
		currency_code,
		exchange_rate,
		branch_id,
		branch_name,
		invoice_age_days,
		created_by,
		printed_time,
		extracted_at
	) VALUES (
		:invoice_id,
		:invoice_number,
		:invoice_date,
		:due_date,
		:ship_date,
		:customer_id,
		:customer_name,
		:sub_total,
		:total_amount,
		:outstanding_amount,
		:status,
		:approval_status,
		:po_number,
		:sales_order_id,
		:delivery_order_id,
		:payment_term_id,
		:payment_term_name,
		:currency_id,
		:currency_code,
		:exchange_rate,
		:branch_id,
		:branch_name,
		:invoice_age_days,
		:created_by,
		:printed_time,
		:extracted_at
	)`

	if _, err := s.db.NamedExecContext(ctx, query, invoices); err != nil {
		return ierr.WithError(err).
			WithMessagef("insert %d sales invoices", len(invoices)).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

type SalesInvoiceDetailStore struct {
	db *sqlx.DB
}

func (s *SalesInvoiceDetailStore) InsertSalesInvoiceDetails(ctx context.Context, details []SalesInvoiceDetail) error {
	if len(details) == 0 {
		return nil
	}

	query := `INSERT INTO sales_invoice_details (
		detail_id,
		invoice_id,
		invoice_number,
		item_id,
		item_number,
		item_name,
		item_category_id,
		quantity,
		unit_id,
		unit_name,
		unit_ratio,
		unit_price,
		gross_amount,
		sales_amount,
		warehouse_id,
		warehouse_name,
		sales_order_detail_id,
		delivery_order_detail_id,
		line_seq,
		extracted_at
	) VALUES (
		:detail_id,
		:invoice_id,
		:invoice_number,
		:item_id,
		:item_number,
		:item_name,
		:item_category_id,
		:quantity,
		:unit_id,
		:unit_name,
		:unit_ratio,
		:unit_price,
		:gross_amount,
		:sales_amount,
		:warehouse_id,
		:warehouse_name,
		:sales_order_detail_id,
		:delivery_order_detail_id,
		:line_seq,
		:extracted_at
	)`

	if _, err := s.db.NamedExecContext(ctx, query, details); err != nil {
		return ierr.WithError(err).
			WithMessagef("insert %d sales invoice details", len(details)).
			Mark(ierr.ErrDatabase)
	}
	return nil
}
