package testutil

import (
	"context"
	"sync"

	"github.com/farxc/accurate-sales-etl/internal/store"
)

// InMemorySalesInvoiceStore records every insert call as one batch.
type InMemorySalesInvoiceStore struct {
	mu      sync.Mutex
	batches [][]store.SalesInvoice
	Err     error
}

func NewInMemorySalesInvoiceStore() *InMemorySalesInvoiceStore {
	return &InMemorySalesInvoiceStore{}
}

func (s *InMemorySalesInvoiceStore) InsertSalesInvoices(_ context.Context, invoices []store.SalesInvoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.batches = append(s.batches, append([]store.SalesInvoice(nil), invoices...))
	return nil
}

func (s *InMemorySalesInvoiceStore) Batches() [][]store.SalesInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func (s *InMemorySalesInvoiceStore) All() []store.SalesInvoice {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []store.SalesInvoice
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}

type InMemorySalesInvoiceDetailStore struct {
	mu      sync.Mutex
	batches [][]store.SalesInvoiceDetail
	Err     error
}

func NewInMemorySalesInvoiceDetailStore() *InMemorySalesInvoiceDetailStore {
	return &InMemorySalesInvoiceDetailStore{}
}

func (s *InMemorySalesInvoiceDetailStore) InsertSalesInvoiceDetails(_ context.Context, details []store.SalesInvoiceDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		return s.Err
	}
	s.batches = append(s.batches, append([]store.SalesInvoiceDetail(nil), details...))
	return nil
}

func (s *InMemorySalesInvoiceDetailStore) Batches() [][]store.SalesInvoiceDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func (s *InMemorySalesInvoiceDetailStore) All() []store.SalesInvoiceDetail {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []store.SalesInvoiceDetail
	for _, b := range s.batches {
		all = append(all, b...)
	}
	return all
}
