package load

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
	"github.com/farxc/accurate-sales-etl/internal/testutil"
)

func header(id int64, invoiceDate, dueDate, shipDate mo.Option[string]) types.InvoiceHeader {
	return types.InvoiceHeader{
		InvoiceID:    id,
		InvoiceDate:  invoiceDate,
		DueDate:      dueDate,
		ShipDate:     shipDate,
		SubTotal:     decimal.NewFromInt(100),
		ExchangeRate: decimal.NewFromInt(1),
		ExtractedAt:  "2024-01-08 02:00:00",
	}
}

func TestLoad_ParsesDatesAndTimestamps(t *testing.T) {
	stores := testutil.NewStores(nil)
	h := header(1, mo.Some("15/01/2024"), mo.Some("14/02/2024"), mo.Some("16/01/2024"))
	h.PrintedTime = mo.Some("2024-01-15 09:30:00")

	result, err := New(stores.Storage(), 10, time.UTC, logger.NewNop()).Load(context.Background(), []types.InvoiceHeader{h}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Invoices)
	assert.Equal(t, 0, result.Details)

	rows := stores.Invoices.All()
	require.Len(t, rows, 1)
	assert.Equal(t, mo.Some(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)), rows[0].InvoiceDate)
	assert.Equal(t, mo.Some(time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)), rows[0].DueDate)
	assert.Equal(t, mo.Some(time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)), rows[0].PrintedTime)
	assert.Equal(t, mo.Some(time.Date(2024, 1, 8, 2, 0, 0, 0, time.UTC)), rows[0].ExtractedAt)
	assert.True(t, decimal.NewFromInt(100).Equal(rows[0].SubTotal))
}

func TestLoad_NullDatesAreCountedAndInserted(t *testing.T) {
	stores := testutil.NewStores(nil)
	headers := []types.InvoiceHeader{
		header(1, mo.Some("15/01/2024"), mo.None[string](), mo.Some("garbage")),
		header(2, mo.Some("31/02/2024"), mo.None[string](), mo.Some("16/01/2024")),
		header(3, mo.Some("01/01/2024"), mo.Some("31/01/2024"), mo.Some("02/01/2024")),
	}

	result, err := New(stores.Storage(), 10, time.UTC, logger.NewNop()).Load(context.Background(), headers, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"invoice_date": 1, "due_date": 2, "ship_date": 1}, result.NullDates)
	assert.Len(t, stores.Invoices.All(), 3)
	assert.Equal(t, mo.None[time.Time](), stores.Invoices.All()[1].InvoiceDate)
}

func TestLoad_NullDateWarnings(t *testing.T) {
	stores := testutil.NewStores(nil)
	core, logs := observer.New(zapcore.DebugLevel)
	headers := []types.InvoiceHeader{
		header(1, mo.Some("15/01/2024"), mo.None[string](), mo.Some("16/01/2024")),
		header(2, mo.Some("16/01/2024"), mo.None[string](), mo.Some("17/01/2024")),
	}

	_, err := New(stores.Storage(), 10, time.UTC, logger.NewWithCore(core)).Load(context.Background(), headers, nil)
	require.NoError(t, err)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "2 rows have null due_date", warnings[0].Message)
	assert.Equal(t, "Loader", warnings[0].ContextMap()["component"])
}

func TestLoad_ChunksInserts(t *testing.T) {
	stores := testutil.NewStores(nil)
	headers := make([]types.InvoiceHeader, 2500)
	for i := range headers {
		headers[i] = header(int64(i+1), mo.Some("01/01/2024"), mo.Some("01/01/2024"), mo.Some("01/01/2024"))
	}
	details := make([]types.InvoiceDetail, 3)
	for i := range details {
		details[i] = types.InvoiceDetail{InvoiceID: int64(i + 1), ExtractedAt: "2024-01-08 02:00:00"}
	}

	result, err := New(stores.Storage(), 0, time.UTC, logger.NewNop()).Load(context.Background(), headers, details)

	require.NoError(t, err)
	assert.Equal(t, 2500, result.Invoices)
	assert.Equal(t, 3, result.Details)

	batches := stores.Invoices.Batches()
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 1000)
	assert.Len(t, batches[1], 1000)
	assert.Len(t, batches[2], 500)
	assert.Equal(t, int64(2500), batches[2][499].InvoiceID)
	assert.Len(t, stores.Details.Batches(), 1)
}

func TestLoad_EmptyDatasets(t *testing.T) {
	stores := testutil.NewStores(nil)

	result, err := New(stores.Storage(), 10, time.UTC, logger.NewNop()).Load(context.Background(), []types.InvoiceHeader{}, []types.InvoiceDetail{})

	require.NoError(t, err)
	assert.Zero(t, result.Invoices)
	assert.Zero(t, result.Details)
	assert.Empty(t, stores.Invoices.Batches())
	assert.Empty(t, stores.Details.Batches())
}

func TestLoad_InsertFailureStopsBeforeDetails(t *testing.T) {
	stores := testutil.NewStores(nil)
	stores.Invoices.Err = ierr.WithError(errors.New("relation does not exist")).Mark(ierr.ErrDatabase)
	headers := []types.InvoiceHeader{header(1, mo.None[string](), mo.None[string](), mo.None[string]())}
	details := []types.InvoiceDetail{{InvoiceID: 1}}

	_, err := New(stores.Storage(), 10, time.UTC, logger.NewNop()).Load(context.Background(), headers, details)

	require.Error(t, err)
	assert.True(t, ierr.Is(err, ierr.ErrDatabase))
	assert.Empty(t, stores.Details.Batches())
}

func TestParseTimestamp(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)

	got := ParseTimestamp(mo.Some("2024-01-15 09:30:00"), jakarta)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, jakarta), got.MustGet())

	got = ParseTimestamp(mo.Some("2024-01-15T09:30:00Z"), jakarta)
	assert.Equal(t, time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC), got.MustGet().UTC())

	assert.True(t, ParseTimestamp(mo.Some("15/01/2024, 09:30"), jakarta).IsAbsent())
	assert.True(t, ParseTimestamp(mo.None[string](), jakarta).IsAbsent())
}
