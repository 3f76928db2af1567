package testutil

import (
	"context"
	"sync"

	ierr "github.com/farxc/accurate-sales-etl/internal/errors"
)

// InMemoryCredentialStore satisfies credentials.Store. SetErr makes Set fail
// for the given names.
type InMemoryCredentialStore struct {
	mu     sync.RWMutex
	values map[string]string
	sets   []string
	SetErr map[string]error
	GetErr error
}

func NewInMemoryCredentialStore(initial map[string]string) *InMemoryCredentialStore {
	values := make(map[string]string, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &InMemoryCredentialStore{values: values, SetErr: map[string]error{}}
}

func (s *InMemoryCredentialStore) Get(_ context.Context, name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.GetErr != nil {
		return "", s.GetErr
	}
	v, ok := s.values[name]
	if !ok {
		return "", ierr.NewErrorf("credential variable %s not set", name).
			Mark(ierr.ErrNotFound)
	}
	return v, nil
}

func (s *InMemoryCredentialStore) Set(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.SetErr[name]; err != nil {
		return err
	}
	s.values[name] = value
	s.sets = append(s.sets, name)
	return nil
}

// Value returns the stored value, or "" when unset.
func (s *InMemoryCredentialStore) Value(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// Sets lists the names passed to successful Set calls, in order.
func (s *InMemoryCredentialStore) Sets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.sets...)
}
