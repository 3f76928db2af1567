// Package load appends staged datasets to the sales tables.
package load

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"

	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

const component = "Loader"

const DefaultChunkSize = 1000

// Result summarises one load.
type Result struct {
	Invoices  int
	Details   int
	NullDates map[string]int
}

type Loader struct {
	storage   *store.Storage
	chunkSize int
	location  *time.Location
	logger    *logger.Logger
}

// New returns a Loader. Timestamps without a zone are read in loc; nil
// means time.Local, the zone extracted_at was written in.
func New(storage *store.Storage, chunkSize int, loc *time.Location, appLogger *logger.Logger) *Loader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if loc == nil {
		loc = time.Local
	}
	return &Loader{storage: storage, chunkSize: chunkSize, location: loc, logger: appLogger}
}

// Load converts the staged rows and appends headers, then details. Rows
// whose dates cannot be parsed are still inserted with NULL in that column.
func (l *Loader) Load(ctx context.Context, headers []types.InvoiceHeader, details []types.InvoiceDetail) (Result, error) {
	invoices := lo.Map(headers, func(h types.InvoiceHeader, _ int) store.SalesInvoice {
		return l.toSalesInvoice(h)
	})
	lines := lo.Map(details, func(d types.InvoiceDetail, _ int) store.SalesInvoiceDetail {
		return l.toSalesInvoiceDetail(d)
	})

	result := Result{NullDates: CountNullDates(invoices)}
	for _, col := range []string{"invoice_date", "due_date", "ship_date"} {
		if n := result.NullDates[col]; n > 0 {
			l.logger.Warn(component, "%d rows have null %s", n, col)
		}
	}

	for i, chunk := range lo.Chunk(invoices, l.chunkSize) {
		if err := l.storage.SalesInvoice.InsertSalesInvoices(ctx, chunk); err != nil {
			l.logger.Error(component, "Failed to insert sales invoices: chunk=%d rows=%d error=%v", i+1, len(chunk), err)
			return result, err
		}
		result.Invoices += len(chunk)
	}
	l.logger.Info(component, "Loaded sales_invoices: rows=%d", result.Invoices)

	for i, chunk := range lo.Chunk(lines, l.chunkSize) {
		if err := l.storage.SalesInvoiceDetail.InsertSalesInvoiceDetails(ctx, chunk); err != nil {
			l.logger.Error(component, "Failed to insert sales invoice details: chunk=%d rows=%d error=%v", i+1, len(chunk), err)
			return result, err
		}
		result.Details += len(chunk)
	}
	l.logger.Info(component, "Loaded sales_invoice_details: rows=%d", result.Details)

	return result, nil
}

// CountNullDates counts rows with a NULL invoice_date, due_date or
// ship_date after parsing.
func CountNullDates(invoices []store.SalesInvoice) map[string]int {
	counts := map[string]int{"invoice_date": 0, "due_date": 0, "ship_date": 0}
	for _, inv := range invoices {
		if inv.InvoiceDate.IsAbsent() {
			counts["invoice_date"]++
		}
		if inv.DueDate.IsAbsent() {
			counts["due_date"]++
		}
		if inv.ShipDate.IsAbsent() {
			counts["ship_date"]++
		}
	}
	return counts
}

func (l *Loader) toSalesInvoice(h types.InvoiceHeader) store.SalesInvoice {
	return store.SalesInvoice{
		InvoiceID:         h.InvoiceID,
		InvoiceNumber:     h.InvoiceNumber,
		InvoiceDate:       ParseDate(h.InvoiceDate),
		DueDate:           ParseDate(h.DueDate),
		ShipDate:          ParseDate(h.ShipDate),
		CustomerID:        h.CustomerID,
		CustomerName:      h.CustomerName,
		SubTotal:          h.SubTotal,
		TotalAmount:       h.TotalAmount,
		OutstandingAmount: h.OutstandingAmount,
		Status:            h.Status,
		ApprovalStatus:    h.ApprovalStatus,
		PONumber:          h.PONumber,
		SalesOrderID:      h.SalesOrderID,
		DeliveryOrderID:   h.DeliveryOrderID,
		PaymentTermID:     h.PaymentTermID,
		PaymentTermName:   h.PaymentTermName,
		CurrencyID:        h.CurrencyID,
		CurrencyCode:      h.CurrencyCode,
		ExchangeRate:      h.ExchangeRate,
		BranchID:          h.BranchID,
		BranchName:        h.BranchName,
		InvoiceAgeDays:    h.InvoiceAgeDays,
		CreatedBy:         h.CreatedBy,
		PrintedTime:       ParseTimestamp(h.PrintedTime, l.location),
		ExtractedAt:       ParseTimestamp(mo.Some(h.ExtractedAt), l.location),
	}
}

func (l *Loader) toSalesInvoiceDetail(d types.InvoiceDetail) store.SalesInvoiceDetail {
	return store.SalesInvoiceDetail{
		DetailID:              d.DetailID,
		InvoiceID:             d.InvoiceID,
		InvoiceNumber:         d.InvoiceNumber,
		ItemID:                d.ItemID,
		ItemNumber:            d.ItemNumber,
		ItemName:              d.ItemName,
		ItemCategoryID:        d.ItemCategoryID,
		Quantity:              d.Quantity,
		UnitID:                d.UnitID,
		UnitName:              d.UnitName,
		UnitRatio:             d.UnitRatio,
		UnitPrice:             d.UnitPrice,
		GrossAmount:           d.GrossAmount,
		SalesAmount:           d.SalesAmount,
		WarehouseID:           d.WarehouseID,
		WarehouseName:         d.WarehouseName,
		SalesOrderDetailID:    d.SalesOrderDetailID,
		DeliveryOrderDetailID: d.DeliveryOrderDetailID,
		LineSeq:               d.LineSeq,
		ExtractedAt:           ParseTimestamp(mo.Some(d.ExtractedAt), l.location),
	}
}
