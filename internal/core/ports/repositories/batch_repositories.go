package repositories

import (
	"context"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
)

// BatchRepository defines persistence operations for simulation batches.
//
// IncrementCompleted and IncrementFailed must be implemented as a single
// atomic storage operation (an atomic add, not read-modify-write in caller
// memory) and return the post-increment snapshot. MarkCompleted must be a
// conditional write that transitions the batch at most once: it reports
// whether this call performed the transition.
type BatchRepository interface {
	SaveBatch(ctx context.Context, batch domain.Batch) error
	FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error)
	IncrementCompleted(ctx context.Context, batchID string) (*domain.Batch, error)
	IncrementFailed(ctx context.Context, batchID string) (*domain.Batch, error)
	MarkCompleted(ctx context.Context, batchID string, completedAt time.Time) (bool, error)
}
