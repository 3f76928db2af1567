package accurate

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/farxc/accurate-sales-etl/internal/credentials"
	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

const (
	listPath   = "/accurate/api/sales-invoice/list.do"
	detailPath = "/accurate/api/sales-invoice/detail.do"
)

// ListParams selects one page of invoices whose transDate is between Start
// and End, both inclusive.
type ListParams struct {
	Page     int
	PageSize int
	Start    time.Time
	End      time.Time
}

func (p ListParams) query() url.Values {
	q := url.Values{}
	q.Set("sp.pageSize", strconv.Itoa(p.PageSize))
	q.Set("sp.page", strconv.Itoa(p.Page))
	q.Set("filter.transDate.op", "BETWEEN")
	q.Set("filter.transDate.val[0]", p.Start.Format(DateLayout))
	q.Set("filter.transDate.val[1]", p.End.Format(DateLayout))
	return q
}

func dataHeader(creds credentials.Credentials) http.Header {
	h := bearerHeader(creds.AccessToken)
	h.Set("X-Session-ID", creds.DBSession)
	h.Set("Content-Type", "application/json")
	return h
}

// ListInvoices returns one page of invoice summaries. A page without
// records, including one whose d field is missing, is an empty slice.
func (c *Client) ListInvoices(ctx context.Context, creds credentials.Credentials, params ListParams) ([]Invoice, error) {
	resp, err := c.send(ctx, c.dataRetry, request{
		method: http.MethodPost,
		url:    joinURL(creds.DataHost, listPath),
		query:  params.query(),
		header: dataHeader(creds),
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("list invoices page %d", params.Page).
			WithReportableDetails(map[string]any{
				"page":        params.Page,
				"status_code": StatusCode(err),
			}).
			Mark(ierr.ErrDataAccess)
	}

	var invoices []Invoice
	if err := decodeEnvelope(resp.body, &invoices); err != nil {
		if ierr.Is(err, errEnvelopeMissingData) {
			return []Invoice{}, nil
		}
		return nil, ierr.WithError(err).
			WithMessagef("decode invoice list page %d", params.Page).
			Mark(ierr.ErrDataAccess)
	}
	return invoices, nil
}

// GetInvoiceDetail returns the full invoice, including its detail lines.
func (c *Client) GetInvoiceDetail(ctx context.Context, creds credentials.Credentials, id int64) (Invoice, error) {
	query := url.Values{}
	query.Set("id", strconv.FormatInt(id, 10))

	resp, err := c.send(ctx, c.dataRetry, request{
		method: http.MethodGet,
		url:    joinURL(creds.DataHost, detailPath),
		query:  query,
		header: dataHeader(creds),
	})
	if err != nil {
		return Invoice{}, ierr.WithError(err).
			WithMessagef("get invoice detail %d", id).
			WithReportableDetails(map[string]any{
				"invoice_id":  id,
				"status_code": StatusCode(err),
			}).
			Mark(ierr.ErrDataAccess)
	}

	var invoice Invoice
	if err := decodeEnvelope(resp.body, &invoice); err != nil {
		return Invoice{}, ierr.WithError(err).
			WithMessagef("decode invoice detail %d", id).
			Mark(ierr.ErrDataAccess)
	}
	return invoice, nil
}
