package flatten

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

var testNow = time.Date(2024, 1, 20, 8, 15, 0, 0, time.UTC)

func decodeInvoices(t *testing.T, body string) []accurate.Invoice {
	t.Helper()
	var invoices []accurate.Invoice
	require.NoError(t, json.Unmarshal([]byte(body), &invoices))
	return invoices
}

func TestHeaders_FullInvoice(t *testing.T) {
	invoices := decodeInvoices(t, `[{
		"id": 501,
		"number": "SI.2024.01.00501",
		"transDate": "10/01/2024",
		"dueDate": "09/02/2024",
		"shipDate": "11/01/2024",
		"customerId": 77,
		"customer": {"id": 77, "name": "PT Maju Jaya"},
		"subTotal": 1000000,
		"totalAmount": 1110000,
		"outstanding": "1110000",
		"status": "OUTSTANDING",
		"approvalStatus": "APPROVED",
		"poNumber": "PO-9",
		"salesOrderId": 12,
		"deliveryOrderId": 13,
		"paymentTermId": 3,
		"paymentTerm": {"id": 3, "name": "Net 30"},
		"currencyId": 50,
		"currency": {"id": 50, "code": "USD"},
		"rate": 15500.5,
		"branchId": 1,
		"branchName": "Jakarta",
		"createdBy": "admin",
		"printedTime": "12/01/2024, 14:35"
	}]`)

	headers := New(logger.NewNop()).Headers(invoices, testNow)

	require.Len(t, headers, 1)
	h := headers[0]
	assert.Equal(t, int64(501), h.InvoiceID)
	assert.Equal(t, mo.Some("SI.2024.01.00501"), h.InvoiceNumber)
	assert.Equal(t, mo.Some("10/01/2024"), h.InvoiceDate)
	assert.Equal(t, mo.Some("PT Maju Jaya"), h.CustomerName)
	assert.True(t, decimal.NewFromInt(1110000).Equal(h.OutstandingAmount))
	assert.Equal(t, mo.Some("Net 30"), h.PaymentTermName)
	assert.Equal(t, mo.Some("USD"), h.CurrencyCode)
	assert.True(t, decimal.RequireFromString("15500.5").Equal(h.ExchangeRate))
	assert.Equal(t, mo.Some(int64(10)), h.InvoiceAgeDays)
	assert.Equal(t, mo.Some("2024-01-12 14:35:00"), h.PrintedTime)
	assert.Equal(t, "2024-01-20 08:15:00", h.ExtractedAt)
}

func TestHeaders_MissingNestedAndAmounts(t *testing.T) {
	invoices := decodeInvoices(t, `[{"id": 1, "number": "SI-1", "customer": null}]`)

	headers := New(logger.NewNop()).Headers(invoices, testNow)

	require.Len(t, headers, 1)
	h := headers[0]
	assert.Equal(t, mo.None[string](), h.CustomerName)
	assert.Equal(t, mo.None[string](), h.PaymentTermName)
	assert.True(t, h.SubTotal.IsZero())
	assert.True(t, h.TotalAmount.IsZero())
	assert.True(t, h.OutstandingAmount.IsZero())
	assert.Equal(t, mo.Some(types.DefaultCurrencyCode), h.CurrencyCode)
	assert.True(t, decimal.NewFromInt(1).Equal(h.ExchangeRate))
	assert.Equal(t, mo.None[int64](), h.InvoiceAgeDays)
	assert.Equal(t, mo.None[string](), h.PrintedTime)
}

func TestHeaders_MalformedPrintedTimeIsNulled(t *testing.T) {
	invoices := decodeInvoices(t, `[
		{"id": 1, "printedTime": "2024-01-12T14:35"},
		{"id": 2, "printedTime": "12/01/2024, 09:05"}
	]`)

	headers := New(logger.NewNop()).Headers(invoices, testNow)

	require.Len(t, headers, 2)
	assert.Equal(t, mo.None[string](), headers[0].PrintedTime)
	assert.Equal(t, mo.Some("2024-01-12 09:05:00"), headers[1].PrintedTime)
}

func TestDetails(t *testing.T) {
	invoices := decodeInvoices(t, `[
		{"id": 10, "number": "SI-10", "detailItem": [
			{"id": 100, "itemId": 5, "item": {"no": "BRG-5", "name": "Kopi", "itemCategoryId": 2},
			 "quantity": 3, "itemUnitId": 1, "itemUnit": {"name": "PCS"}, "unitPrice": 2500,
			 "grossAmount": 7500, "salesAmount": 7500, "warehouseId": 9, "warehouse": {"name": "Gudang Utama"}, "seq": 1},
			{"id": 101, "itemId": 6, "seq": 2}
		]},
		{"id": 11, "number": "SI-11", "detailItem": []}
	]`)

	details := Details(invoices, testNow)

	require.Len(t, details, 2)
	first := details[0]
	assert.Equal(t, mo.Some(int64(100)), first.DetailID)
	assert.Equal(t, int64(10), first.InvoiceID)
	assert.Equal(t, mo.Some("SI-10"), first.InvoiceNumber)
	assert.Equal(t, mo.Some("BRG-5"), first.ItemNumber)
	assert.Equal(t, mo.Some(int64(2)), first.ItemCategoryID)
	assert.Equal(t, mo.Some("PCS"), first.UnitName)
	assert.Equal(t, mo.Some("Gudang Utama"), first.WarehouseName)
	assert.True(t, decimal.NewFromInt(3).Equal(first.Quantity))

	second := details[1]
	assert.Equal(t, mo.None[string](), second.ItemNumber)
	assert.Equal(t, mo.None[string](), second.ItemName)
	assert.Equal(t, mo.None[int64](), second.ItemCategoryID)
	assert.Equal(t, mo.None[string](), second.UnitName)
	assert.Equal(t, mo.None[string](), second.WarehouseName)
	assert.True(t, second.Quantity.IsZero())
	assert.True(t, second.UnitPrice.IsZero())
	assert.True(t, decimal.NewFromInt(1).Equal(second.UnitRatio))
	assert.Equal(t, "2024-01-20 08:15:00", second.ExtractedAt)
}

func TestDetails_NoLines(t *testing.T) {
	invoices := decodeInvoices(t, `[{"id": 1}, {"id": 2, "detailItem": []}]`)

	details := Details(invoices, testNow)

	assert.NotNil(t, details)
	assert.Empty(t, details)
}

func TestFlatten_DetailsLinkToHeaders(t *testing.T) {
	invoices := decodeInvoices(t, `[
		{"id": 1, "detailItem": [{"id": 11}, {"id": 12}]},
		{"id": 2, "detailItem": [{"id": 21}]},
		{"id": 3}
	]`)

	headers, details := New(logger.NewNop()).Flatten(invoices, testNow)

	require.Len(t, headers, 3)
	require.Len(t, details, 3)
	require.NoError(t, CheckLinkage(headers, details))
	for _, d := range details {
		assert.Equal(t, headers[0].ExtractedAt, d.ExtractedAt)
	}
}

func TestCheckLinkage_Orphan(t *testing.T) {
	headers := []types.InvoiceHeader{{InvoiceID: 1}}
	details := []types.InvoiceDetail{{DetailID: mo.Some(int64(7)), InvoiceID: 2}}

	err := CheckLinkage(headers, details)

	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))
}

func berlin(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	return loc
}

func TestCalculateAge(t *testing.T) {
	tests := []struct {
		name      string
		transDate string
		now       time.Time
		want      mo.Option[int64]
	}{
		{name: "ten days", transDate: "01/01/2020", now: time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC), want: mo.Some(int64(10))},
		{name: "partial day floors", transDate: "01/01/2020", now: time.Date(2020, 1, 11, 23, 59, 0, 0, time.UTC), want: mo.Some(int64(10))},
		{name: "same day", transDate: "11/01/2020", now: time.Date(2020, 1, 11, 12, 0, 0, 0, time.UTC), want: mo.Some(int64(0))},
		{name: "future date", transDate: "12/01/2020", now: time.Date(2020, 1, 11, 12, 0, 0, 0, time.UTC), want: mo.Some(int64(-1))},
		{name: "across spring DST", transDate: "30/03/2024", now: time.Date(2024, 4, 1, 0, 30, 0, 0, berlin(t)), want: mo.Some(int64(2))},
		{name: "across autumn DST", transDate: "26/10/2024", now: time.Date(2024, 10, 28, 23, 30, 0, 0, berlin(t)), want: mo.Some(int64(2))},
		{name: "empty", transDate: "", now: testNow, want: mo.None[int64]()},
		{name: "malformed", transDate: "2020-01-01", now: testNow, want: mo.None[int64]()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateAge(tt.transDate, tt.now))
		})
	}
}

func TestParsePrintedTime(t *testing.T) {
	got, err := ParsePrintedTime(accurate.NewText("05/03/2024, 07:09"), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, mo.Some("2024-03-05 07:09:00"), got)

	got, err = ParsePrintedTime(accurate.Text{}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, mo.None[string](), got)

	got, err = ParsePrintedTime(accurate.NewText("05/03/2024"), time.UTC)
	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrFieldParse))
	assert.Equal(t, mo.None[string](), got)
}
