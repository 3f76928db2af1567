// Package fetch pulls sales invoices for a window: the paginated list
// first, then one detail request per invoice.
package fetch

import (
	"context"
	"time"

	"github.com/farxc/accurate-sales-etl/internal/accurate"
	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/logger"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

const component = "Fetcher"

// API is the part of the Accurate client the fetcher needs.
type API interface {
	ListInvoices(ctx context.Context, creds credentials.Credentials, params accurate.ListParams) ([]accurate.Invoice, error)
	GetInvoiceDetail(ctx context.Context, creds credentials.Credentials, id int64) (accurate.Invoice, error)
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	PageSize         int
	PageDelay        time.Duration
	DetailBatchSize  int
	DetailBatchDelay time.Duration
	Sleep            SleepFunc
}

type Fetcher struct {
	api    API
	opts   Options
	logger *logger.Logger
}

func New(api API, opts Options, appLogger *logger.Logger) *Fetcher {
	if opts.PageSize <= 0 {
		opts.PageSize = 100
	}
	if opts.DetailBatchSize <= 0 {
		opts.DetailBatchSize = 5
	}
	if opts.Sleep == nil {
		opts.Sleep = Sleep
	}
	return &Fetcher{api: api, opts: opts, logger: appLogger}
}

// Fetch returns the full invoices of w in list order. An empty window is
// an empty slice and issues no detail requests.
func (f *Fetcher) Fetch(ctx context.Context, creds credentials.Credentials, w types.Window) ([]accurate.Invoice, error) {
	summaries, err := f.List(ctx, creds, w)
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		f.logger.Info(component, "No invoices in window: window=%s", w)
		return []accurate.Invoice{}, nil
	}
	return f.Details(ctx, creds, summaries)
}

// List walks list.do from page 1 until a page comes back empty, pausing
// after every non-empty page.
func (f *Fetcher) List(ctx context.Context, creds credentials.Credentials, w types.Window) ([]accurate.Invoice, error) {
	var all []accurate.Invoice

	for page := 1; ; page++ {
		f.logger.Debug(component, "Fetching invoice list page: page=%d window=%s", page, w)

		invoices, err := f.api.ListInvoices(ctx, creds, accurate.ListParams{
			Page:     page,
			PageSize: f.opts.PageSize,
			Start:    w.Start,
			End:      w.End,
		})
		if err != nil {
			return nil, err
		}

		f.logger.Info(component, "Invoice list page fetched: page=%d found=%d", page, len(invoices))
		if len(invoices) == 0 {
			break
		}

		all = append(all, invoices...)
		if err := f.opts.Sleep(ctx, f.opts.PageDelay); err != nil {
			return nil, err
		}
	}

	return all, nil
}

// Details fetches every summary's full record into a new slice in the same
// order. A pause follows every DetailBatchSize requests.
func (f *Fetcher) Details(ctx context.Context, creds credentials.Credentials, summaries []accurate.Invoice) ([]accurate.Invoice, error) {
	out := make([]accurate.Invoice, 0, len(summaries))

	for idx, summary := range summaries {
		id, ok := summary.ID.Int64()
		if !ok {
			return nil, ierr.NewErrorf("invoice summary at position %d has no id", idx+1).
				WithReportableDetails(map[string]any{
					"position": idx + 1,
					"number":   summary.InvoiceNo.Value,
				}).
				Mark(ierr.ErrDataAccess)
		}

		invoice, err := f.api.GetInvoiceDetail(ctx, creds, id)
		if err != nil {
			return nil, err
		}
		if !invoice.ID.Valid {
			invoice.ID = summary.ID
		}
		out = append(out, invoice)

		f.logger.Debug(component, "Fetched invoice detail: progress=%d/%d id=%d", idx+1, len(summaries), id)

		if (idx+1)%f.opts.DetailBatchSize == 0 {
			if err := f.opts.Sleep(ctx, f.opts.DetailBatchDelay); err != nil {
				return nil, err
			}
		}
	}

	f.logger.Info(component, "Invoice details fetched: count=%d", len(out))
	return out, nil
}

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
