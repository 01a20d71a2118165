package repository

import (
	"context"
	"sort"
	"sync"

	"SigDerive/internal/domain/models"
	domrepo "SigDerive/internal/domain/repository"
)

// MemorySignalRegistry keeps signals in process memory. Used for local runs and tests.
type MemorySignalRegistry struct {
	mu      sync.RWMutex
	signals map[string]models.DerivedSignal
}

var _ domrepo.SignalRegistry = (*MemorySignalRegistry)(nil)

func NewMemorySignalRegistry() *MemorySignalRegistry {
	return &MemorySignalRegistry{signals: make(map[string]models.DerivedSignal)}
}

func (r *MemorySignalRegistry) Create(_ context.Context, s *models.DerivedSignal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.signals[s.ID]; ok {
		return domrepo.ErrSignalExists
	}
	r.signals[s.ID] = cloneSignal(s)
	return nil
}

func (r *MemorySignalRegistry) Get(_ context.Context, id string) (*models.DerivedSignal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.signals[id]
	if !ok {
		return nil, domrepo.ErrSignalNotFound
	}
	out := cloneSignal(&s)
	return &out, nil
}

func (r *MemorySignalRegistry) List(_ context.Context) ([]*models.DerivedSignal, error) {
	r.mu.RLock()
	out := make([]*models.DerivedSignal, 0, len(r.signals))
	for _, s := range r.signals {
		c := cloneSignal(&s)
		out = append(out, &c)
	}
	r.mu.RUnlock()
	sortSignals(out)
	return out, nil
}

func (r *MemorySignalRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.signals[id]; !ok {
		return domrepo.ErrSignalNotFound
	}
	delete(r.signals, id)
	return nil
}

func cloneSignal(s *models.DerivedSignal) models.DerivedSignal {
	c := *s
	c.SourceChannels = append([]string(nil), s.SourceChannels...)
	return c
}

// sortSignals orders by name, then id for equal names.
func sortSignals(s []*models.DerivedSignal) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Name != s[j].Name {
			return s[i].Name < s[j].Name
		}
		return s[i].ID < s[j].ID
	})
}
