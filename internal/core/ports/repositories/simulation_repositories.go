package repositories

import (
	"context"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
)

// SimulationRepository defines persistence operations for simulation records.
type SimulationRepository interface {
	// SaveSimulation inserts the record exactly once. It reports false when a
	// record with the same simulation ID already exists, so redelivered units
	// can be detected before the batch counters are advanced.
	SaveSimulation(ctx context.Context, record domain.SimulationRecord) (bool, error)
	// ListByBatch returns one page of records for the batch filtered by
	// status, ordered by processedAt descending, plus the total match count.
	ListByBatch(ctx context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error)
}
