package services

import (
	"context"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// FeeSvcFacade resolves the annual fee rate for an applicant.
type FeeSvcFacade interface {
	CalculateFeeRate(ctx context.Context, birthdate string) (decimal.Decimal, error)
}

// SimulationSvcFacade orchestrates single simulations and batch units.
type SimulationSvcFacade interface {
	// Simulate runs the synchronous, non-persisting path. It propagates
	// apperrors.ErrValidation for malformed input.
	Simulate(ctx context.Context, app domain.LoanApplication) (*domain.SimulationOutcome, error)
	// ProcessUnit runs one batch unit and persists exactly one record,
	// COMPLETED or FAILED. Expected input errors never escape it; they are
	// converted into a FAILED record. The bool reports whether the record
	// was actually inserted (false means this unit was already processed).
	ProcessUnit(ctx context.Context, batchID, simulationID string, app domain.LoanApplication) (*domain.SimulationRecord, bool, error)
	// ListBatchResults pages the persisted records of a batch by status.
	ListBatchResults(ctx context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error)
}

// BatchSvcFacade owns the batch lifecycle.
type BatchSvcFacade interface {
	CreateBatch(ctx context.Context, apps []domain.LoanApplication) (*domain.Batch, error)
	GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error)
	IncrementCompleted(ctx context.Context, batchID string) error
	IncrementFailed(ctx context.Context, batchID string) error
}

// EventPublisher abstracts the message-passing fabric so the coordinator and
// processor stay agnostic of whether events ride an in-memory bus, a task
// queue or a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	PublishAll(ctx context.Context, events []domain.Event) error
}
