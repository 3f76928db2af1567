package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Storage struct {
	SalesInvoice interface {
		InsertSalesInvoices(ctx context.Context, invoices []SalesInvoice) error
	}

	SalesInvoiceDetail interface {
		InsertSalesInvoiceDetails(ctx context.Context, details []SalesInvoiceDetail) error
	}

	IngestionHistory interface {
		InsertIngestionHistory(ctx context.Context, history *IngestionHistory) error
		GetLatest(ctx context.Context, limit int) ([]IngestionHistory, error)
		GetByRunID(ctx context.Context, runID uuid.UUID) ([]IngestionHistory, error)
		UpdateIngestionStatus(ctx context.Context, id int64, outcome IngestionOutcome) error
	}

	CredentialVariables interface {
		Get(ctx context.Context, name string) (string, error)
		Set(ctx context.Context, name, value string) error
	}
}

func NewStorage(db *sqlx.DB) *Storage {
	return &Storage{
		SalesInvoice:        &SalesInvoiceStore{db: db},
		SalesInvoiceDetail:  &SalesInvoiceDetailStore{db: db},
		IngestionHistory:    &IngestionHistoryStore{db: db},
		CredentialVariables: &CredentialVariableStore{db: db},
	}
}
