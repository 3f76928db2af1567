// Package flatten turns decoded Accurate invoices into the two tabular
// datasets that get staged and loaded.
package flatten

import (
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

const component = "Flattener"

var one = decimal.NewFromInt(1)

type Flattener struct {
	logger *logger.Logger
}

func New(appLogger *logger.Logger) *Flattener {
	return &Flattener{logger: appLogger}
}

// Flatten returns the headers and details of invoices. now is used for
// invoice_age_days and as extracted_at of every row.
func (f *Flattener) Flatten(invoices []accurate.Invoice, now time.Time) ([]types.InvoiceHeader, []types.InvoiceDetail) {
	return f.Headers(invoices, now), Details(invoices, now)
}

// Headers produces one row per invoice, in input order. A malformed
// printedTime nulls that field and is logged; it never fails the batch.
func (f *Flattener) Headers(invoices []accurate.Invoice, now time.Time) []types.InvoiceHeader {
	extractedAt := now.Format(types.TimestampLayout)
	headers := make([]types.InvoiceHeader, 0, len(invoices))

	for _, inv := range invoices {
		h := types.InvoiceHeader{
			InvoiceNumber:     text(inv.InvoiceNo),
			InvoiceDate:       text(inv.TransDate),
			DueDate:           text(inv.DueDate),
			ShipDate:          text(inv.ShipDate),
			CustomerID:        id(inv.CustomerID),
			SubTotal:          amount(inv.SubTotal, decimal.Zero),
			TotalAmount:       amount(inv.TotalAmount, decimal.Zero),
			OutstandingAmount: amount(inv.Outstanding, decimal.Zero),
			Status:            text(inv.Status),
			ApprovalStatus:    text(inv.ApprovalStatus),
			PONumber:          text(inv.PONumber),
			SalesOrderID:      id(inv.SalesOrderID),
			DeliveryOrderID:   id(inv.DeliveryOrderID),
			PaymentTermID:     id(inv.PaymentTermID),
			CurrencyID:        id(inv.CurrencyID),
			CurrencyCode:      mo.Some(types.DefaultCurrencyCode),
			ExchangeRate:      amount(inv.Rate, one),
			BranchID:          id(inv.BranchID),
			BranchName:        text(inv.BranchName),
			InvoiceAgeDays:    CalculateAge(inv.TransDate.Value, now),
			CreatedBy:         text(inv.CreatedBy),
			ExtractedAt:       extractedAt,
		}
		h.InvoiceID, _ = inv.ID.Int64()

		if inv.Customer != nil {
			h.CustomerName = text(inv.Customer.Name)
		}
		if inv.PaymentTerm != nil {
			h.PaymentTermName = text(inv.PaymentTerm.Name)
		}
		if inv.Currency != nil {
			h.CurrencyCode = text(inv.Currency.Code)
		}

		printed, err := ParsePrintedTime(inv.PrintedTime, now.Location())
		if err != nil {
			f.logger.Warn(component, "Invalid printedTime, storing null: invoice_id=%d value=%q error=%v", h.InvoiceID, inv.PrintedTime.Value, err)
		}
		h.PrintedTime = printed

		headers = append(headers, h)
	}

	return headers
}

// Details produces one row per detail line, invoice by invoice, keeping the
// line order of each invoice.
func Details(invoices []accurate.Invoice, now time.Time) []types.InvoiceDetail {
	extractedAt := now.Format(types.TimestampLayout)
	var details []types.InvoiceDetail

	for _, inv := range invoices {
		invoiceID, _ := inv.ID.Int64()
		for _, line := range inv.DetailItem {
			d := types.InvoiceDetail{
				DetailID:              id(line.ID),
				InvoiceID:             invoiceID,
				InvoiceNumber:         text(inv.InvoiceNo),
				ItemID:                id(line.ItemID),
				Quantity:              amount(line.Quantity, decimal.Zero),
				UnitID:                id(line.ItemUnitID),
				UnitRatio:             amount(line.UnitRatio, one),
				UnitPrice:             amount(line.UnitPrice, decimal.Zero),
				GrossAmount:           amount(line.GrossAmount, decimal.Zero),
				SalesAmount:           amount(line.SalesAmount, decimal.Zero),
				WarehouseID:           id(line.WarehouseID),
				SalesOrderDetailID:    id(line.SalesOrderDetailID),
				DeliveryOrderDetailID: id(line.DeliveryOrderDetailID),
				LineSeq:               id(line.Seq),
				ExtractedAt:           extractedAt,
			}
			if line.Item != nil {
				d.ItemNumber = text(line.Item.No)
				d.ItemName = text(line.Item.Name)
				d.ItemCategoryID = id(line.Item.ItemCategoryID)
			}
			if line.ItemUnit != nil {
				d.UnitName = text(line.ItemUnit.Name)
			}
			if line.Warehouse != nil {
				d.WarehouseName = text(line.Warehouse.Name)
			}
			details = append(details, d)
		}
	}

	if details == nil {
		return []types.InvoiceDetail{}
	}
	return details
}

// CalculateAge returns the calendar days from transDate (dd/mm/yyyy) to the
// date of now in now's location. It is absent for empty or malformed input.
func CalculateAge(transDate string, now time.Time) mo.Option[int64] {
	transDate = strings.TrimSpace(transDate)
	if transDate == "" {
		return mo.None[int64]()
	}
	dt, err := time.Parse(accurate.DateLayout, transDate)
	if err != nil {
		return mo.None[int64]()
	}
	// Both dates at UTC midnight, so DST shifts in now's zone cannot skew the count.
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return mo.Some(int64(today.Sub(dt) / (24 * time.Hour)))
}

// ParsePrintedTime converts "dd/mm/yyyy, HH:MM" into the staged timestamp
// form. An absent value is None without error; a malformed one is None with
// an error marked ierr.ErrFieldParse.
func ParsePrintedTime(value accurate.Text, loc *time.Location) (mo.Option[string], error) {
	if !value.NonEmpty() {
		return mo.None[string](), nil
	}
	t, err := time.ParseInLocation(accurate.PrintedTimeLayout, strings.TrimSpace(value.Value), loc)
	if err != nil {
		return mo.None[string](), ierr.WithError(err).
			WithMessage("parse printedTime").
			Mark(ierr.ErrFieldParse)
	}
	return mo.Some(t.Format(types.TimestampLayout)), nil
}

// CheckLinkage verifies every detail row points at a header of the same
// batch.
func CheckLinkage(headers []types.InvoiceHeader, details []types.InvoiceDetail) error {
	known := make(map[int64]struct{}, len(headers))
	for _, h := range headers {
		known[h.InvoiceID] = struct{}{}
	}
	for _, d := range details {
		if _, ok := known[d.InvoiceID]; !ok {
			return ierr.NewErrorf("detail %v references unknown invoice %d", d.DetailID.OrEmpty(), d.InvoiceID).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

func text(t accurate.Text) mo.Option[string] {
	return mo.TupleToOption(t.Value, t.Valid)
}

func id(n accurate.Number) mo.Option[int64] {
	v, ok := n.Int64()
	return mo.TupleToOption(v, ok)
}

func amount(n accurate.Number, def decimal.Decimal) decimal.Decimal {
	if !n.Valid {
		return def
	}
	return n.Value
}
