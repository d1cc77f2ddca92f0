// Package memory provides an in-process BatchRepository for the one-shot
// CLI and for tests. Batches are deep-copied on the way in and out so
// callers never share mutable state with the store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/port"
)

type batchRepo struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]*domain.BatchResult
}

// NewBatchRepo creates an empty in-memory BatchRepository.
func NewBatchRepo() port.BatchRepository {
	return &batchRepo{batches: make(map[uuid.UUID]*domain.BatchResult)}
}

func (r *batchRepo) Create(_ context.Context, batch *domain.BatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches[batch.ID] = batch.Clone()
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.BatchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	batch, ok := r.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	return batch.Clone(), nil
}

func (r *batchRepo) List(_ context.Context, offset, limit int) ([]domain.BatchResult, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.BatchResult, 0, len(r.batches))
	for _, b := range r.batches {
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]domain.BatchResult, 0, end-offset)
	for _, b := range all[offset:end] {
		out = append(out, *b.Clone())
	}
	return out, total, nil
}

func (r *batchRepo) UpdateState(_ context.Context, id uuid.UUID, state domain.BatchState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[id]
	if !ok {
		return domain.ErrBatchNotFound
	}
	batch.State = state
	return nil
}

func (r *batchRepo) SaveResult(_ context.Context, batch *domain.BatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.batches[batch.ID]; !ok {
		return domain.ErrBatchNotFound
	}
	r.batches[batch.ID] = batch.Clone()
	return nil
}

func (r *batchRepo) UpdateEntry(_ context.Context, batchID uuid.UUID, entry *domain.OvertimeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	batch, ok := r.batches[batchID]
	if !ok {
		return domain.ErrBatchNotFound
	}
	for i := range batch.Entries {
		if batch.Entries[i].ID == entry.ID {
			batch.Entries[i] = entry.Clone()
			return nil
		}
	}
	return domain.ErrEntryNotFound
}
