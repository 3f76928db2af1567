package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
	"github.com/farxc/accurate-sales-etl/internal/store"
)

type InMemoryIngestionHistoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	history map[int64]*store.IngestionHistory
}

func NewInMemoryIngestionHistoryStore() *InMemoryIngestionHistoryStore {
	return &InMemoryIngestionHistoryStore{history: make(map[int64]*store.IngestionHistory)}
}

func (s *InMemoryIngestionHistoryStore) InsertIngestionHistory(_ context.Context, history *store.IngestionHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	history.ID = s.nextID
	history.ProcessedAt = time.Now()
	stored := *history
	s.history[history.ID] = &stored
	return nil
}

func (s *InMemoryIngestionHistoryStore) UpdateIngestionStatus(_ context.Context, id int64, outcome store.IngestionOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.history[id]
	if !ok {
		return ierr.NewErrorf("ingestion history %d not found", id).
			Mark(ierr.ErrNotFound)
	}
	now := time.Now()
	h.Status = outcome.Status
	h.InvoicesCount = outcome.InvoicesCount
	h.DetailsCount = outcome.DetailsCount
	h.ErrorMessage = outcome.ErrorMessage
	h.FinishedAt = &now
	return nil
}

func (s *InMemoryIngestionHistoryStore) GetLatest(_ context.Context, limit int) ([]store.IngestionHistory, error) {
	all := s.All()
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *InMemoryIngestionHistoryStore) GetByRunID(_ context.Context, runID uuid.UUID) ([]store.IngestionHistory, error) {
	rows := lo.Filter(s.All(), func(h store.IngestionHistory, _ int) bool {
		return h.RunID == runID
	})
	if len(rows) == 0 {
		return nil, ierr.NewErrorf("run %s not found", runID).
			Mark(ierr.ErrNotFound)
	}
	return rows, nil
}

// All returns every row in insertion order.
func (s *InMemoryIngestionHistoryStore) All() []store.IngestionHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.IngestionHistory, 0, len(s.history))
	for _, h := range s.history {
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
