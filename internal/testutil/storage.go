package testutil

import (
	"github.com/farxc/accurate-sales-etl/internal/store"
)

// Stores bundles the in-memory implementations behind a store.Storage.
type Stores struct {
	Invoices    *InMemorySalesInvoiceStore
	Details     *InMemorySalesInvoiceDetailStore
	History     *InMemoryIngestionHistoryStore
	Credentials *InMemoryCredentialStore
}

func NewStores(credentials map[string]string) *Stores {
	return &Stores{
		Invoices:    NewInMemorySalesInvoiceStore(),
		Details:     NewInMemorySalesInvoiceDetailStore(),
		History:     NewInMemoryIngestionHistoryStore(),
		Credentials: NewInMemoryCredentialStore(credentials),
	}
}

func (s *Stores) Storage() *store.Storage {
	return &store.Storage{
		SalesInvoice:        s.Invoices,
		SalesInvoiceDetail:  s.Details,
		IngestionHistory:    s.History,
		CredentialVariables: s.Credentials,
	}
}
