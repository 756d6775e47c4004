// Package memory provides map-backed repository implementations. They honor
// the same atomicity contracts as the pgsql repositories (increments and the
// conditional completion write happen under one lock) and back the
// concurrency tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
)

type BatchRepository struct {
	mu      sync.Mutex
	batches map[string]*domain.Batch
}

func NewBatchRepository() *BatchRepository {
	return &BatchRepository{batches: make(map[string]*domain.Batch)}
}

var _ portsrepo.BatchRepository = (*BatchRepository)(nil)

func (r *BatchRepository) SaveBatch(_ context.Context, batch domain.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.batches[batch.BatchID]; exists {
		return fmt.Errorf("%w: batch with ID %s already exists", apperrors.ErrDuplicate, batch.BatchID)
	}
	b := batch
	r.batches[batch.BatchID] = &b
	return nil
}

func (r *BatchRepository) FindBatchByID(_ context.Context, batchID string) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, batchID)
	}
	snapshot := *b
	return &snapshot, nil
}

func (r *BatchRepository) IncrementCompleted(ctx context.Context, batchID string) (*domain.Batch, error) {
	return r.increment(ctx, batchID, func(b *domain.Batch) { b.CompletedSimulations++ })
}

func (r *BatchRepository) IncrementFailed(ctx context.Context, batchID string) (*domain.Batch, error) {
	return r.increment(ctx, batchID, func(b *domain.Batch) { b.FailedSimulations++ })
}

func (r *BatchRepository) increment(_ context.Context, batchID string, bump func(*domain.Batch)) (*domain.Batch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[batchID]
	if !ok {
		return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, batchID)
	}
	bump(b)
	snapshot := *b
	return &snapshot, nil
}

func (r *BatchRepository) MarkCompleted(_ context.Context, batchID string, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.batches[batchID]
	if !ok {
		return false, nil
	}
	if b.Status == domain.BatchStatusCompleted {
		return false, nil
	}
	if b.CompletedSimulations+b.FailedSimulations < b.TotalSimulations {
		return false, nil
	}
	b.Status = domain.BatchStatusCompleted
	t := completedAt
	b.CompletedAt = &t
	return true, nil
}
