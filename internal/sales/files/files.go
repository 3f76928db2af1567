// Package files stages flattened datasets as CSV files named after their
// window, and reads them back for loading.
package files

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/samber/mo"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/sales/types"
)

const (
	headersPrefix = "sales_invoices_"
	detailsPrefix = "sales_invoice_details_"
)

// HeadersPath is {dir}/sales_invoices_YYYYMMDD_YYYYMMDD.csv.
func HeadersPath(dir string, w types.Window) string {
	return filepath.Join(dir, headersPrefix+w.Key()+".csv")
}

// DetailsPath is {dir}/sales_invoice_details_YYYYMMDD_YYYYMMDD.csv.
func DetailsPath(dir string, w types.Window) string {
	return filepath.Join(dir, detailsPrefix+w.Key()+".csv")
}

func WriteHeaders(dir string, w types.Window, headers []types.InvoiceHeader) (string, error) {
	path := HeadersPath(dir, w)
	return path, writeFrame(path, buildFrame(headerColumns, headers))
}

func WriteDetails(dir string, w types.Window, details []types.InvoiceDetail) (string, error) {
	path := DetailsPath(dir, w)
	return path, writeFrame(path, buildFrame(detailColumns, details))
}

// ReadHeaders returns the staged headers of w. A missing file is marked
// ierr.ErrNotFound.
func ReadHeaders(dir string, w types.Window) ([]types.InvoiceHeader, error) {
	return readFrame(HeadersPath(dir, w), headerColumns)
}

// ReadDetails returns the staged details of w.
func ReadDetails(dir string, w types.Window) ([]types.InvoiceDetail, error) {
	return readFrame(DetailsPath(dir, w), detailColumns)
}

func buildFrame[T any](columns []column[T], rows []T) dataframe.DataFrame {
	cols := make([]series.Series, len(columns))
	for i, c := range columns {
		values := make([]string, len(rows))
		for j := range rows {
			values[j] = c.format(&rows[j])
		}
		cols[i] = series.New(values, series.String, c.name)
	}
	return dataframe.New(cols...)
}

// writeFrame writes to a temporary file first so a failed run never leaves a
// truncated dataset under the final name.
func writeFrame(path string, df dataframe.DataFrame) error {
	if df.Err != nil {
		return ierr.WithError(df.Err).
			WithMessage("build staging frame").
			Mark(ierr.ErrSystem)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ierr.WithError(err).
			WithMessagef("create staging dir for %s", path).
			Mark(ierr.ErrSystem)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ierr.WithError(err).
			WithMessagef("create %s", tmp).
			Mark(ierr.ErrSystem)
	}

	if err := df.WriteCSV(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return ierr.WithError(err).
			WithMessagef("write %s", path).
			Mark(ierr.ErrSystem)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ierr.WithError(err).
			WithMessagef("close %s", path).
			Mark(ierr.ErrSystem)
	}

	if err := os.Rename(tmp, path); err != nil {
		return ierr.WithError(err).
			WithMessagef("rename %s", tmp).
			Mark(ierr.ErrSystem)
	}
	return nil
}

func readFrame[T any](path string, columns []column[T]) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ierr.WithError(err).
				WithHint("Run the extract stage for this window before loading").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithMessagef("open %s", path).
			Mark(ierr.ErrSystem)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, ierr.WithError(err).
			WithMessagef("read %s", path).
			Mark(ierr.ErrValidation)
	}
	if len(records) == 0 {
		return nil, ierr.NewErrorf("%s has no header row", path).
			Mark(ierr.ErrValidation)
	}
	if err := checkHeader(path, records[0], columns); err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(records)-1)
	if len(records) == 1 {
		return rows, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{nullCell}),
	)
	if df.Err != nil {
		return nil, ierr.WithError(df.Err).
			WithMessagef("decode %s", path).
			Mark(ierr.ErrValidation)
	}

	cols := make([]series.Series, len(columns))
	for i, c := range columns {
		cols[i] = df.Col(c.name)
	}

	for r := 0; r < df.Nrow(); r++ {
		var row T
		for i, c := range columns {
			elem := cols[i].Elem(r)
			value := mo.None[string]()
			if !elem.IsNA() {
				value = mo.Some(elem.String())
			}
			if err := c.parse(&row, value); err != nil {
				return nil, ierr.WithError(err).
					WithMessagef("%s row %d", filepath.Base(path), r+1).
					Mark(ierr.ErrValidation)
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func checkHeader[T any](path string, header []string, columns []column[T]) error {
	present := make(map[string]struct{}, len(header))
	for _, name := range header {
		present[name] = struct{}{}
	}
	for _, c := range columns {
		if _, ok := present[c.name]; !ok {
			return ierr.NewErrorf("%s is missing column %s", path, c.name).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
