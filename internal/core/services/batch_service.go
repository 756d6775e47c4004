package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
	portssvc "github.com/lucasmedeiros/credit_engine/internal/core/ports/services"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
)

// BatchService owns the batch lifecycle: creation, counter advancement and
// the one-time finalization to COMPLETED.
type BatchService struct {
	batchRepo portsrepo.BatchRepository
	publisher portssvc.EventPublisher
}

// NewBatchService creates a new BatchService.
func NewBatchService(batchRepo portsrepo.BatchRepository, publisher portssvc.EventPublisher) *BatchService {
	return &BatchService{
		batchRepo: batchRepo,
		publisher: publisher,
	}
}

var _ portssvc.BatchSvcFacade = (*BatchService)(nil)

// CreateBatch durably creates the batch record and only then publishes the
// fan-out event, so no consumer can observe a batch that does not yet exist.
// An empty batch has nothing to wait for and is created already COMPLETED.
func (s *BatchService) CreateBatch(ctx context.Context, apps []domain.LoanApplication) (*domain.Batch, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	now := time.Now()
	batch := domain.Batch{
		BatchID:          uuid.NewString(),
		Status:           domain.BatchStatusPending,
		TotalSimulations: len(apps),
		CreatedAt:        now,
	}
	if len(apps) == 0 {
		batch.Status = domain.BatchStatusCompleted
		batch.CompletedAt = &now
	}

	if err := s.batchRepo.SaveBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}
	logger.Info("Batch created",
		slog.String("batch_id", batch.BatchID),
		slog.Int("total_simulations", batch.TotalSimulations),
	)

	if len(apps) > 0 {
		event := domain.NewBatchSimulationCreatedEvent(batch.BatchID, apps)
		if err := s.publisher.Publish(ctx, event); err != nil {
			// The batch exists; its units were never dispatched. Surface the
			// problem loudly instead of returning a half-alive batch.
			return nil, fmt.Errorf("failed to publish batch created event for batch %s: %w", batch.BatchID, err)
		}
		logger.Info("Batch fan-out event published", slog.String("batch_id", batch.BatchID), slog.String("event_id", event.EventID))
	}

	return &batch, nil
}

// GetBatchStatus returns the current batch snapshot with the externally
// visible status (PROCESSING inferred from moving counters).
func (s *BatchService) GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error) {
	batch, err := s.batchRepo.FindBatchByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	batch.Status = batch.EffectiveStatus()
	return batch, nil
}

// IncrementCompleted atomically advances the completed counter and finalizes
// the batch if every unit has now reached a terminal state.
func (s *BatchService) IncrementCompleted(ctx context.Context, batchID string) error {
	batch, err := s.batchRepo.IncrementCompleted(ctx, batchID)
	if err != nil {
		return err
	}
	return s.finalizeIfDone(ctx, batch)
}

// IncrementFailed atomically advances the failed counter and finalizes the
// batch if every unit has now reached a terminal state.
func (s *BatchService) IncrementFailed(ctx context.Context, batchID string) error {
	batch, err := s.batchRepo.IncrementFailed(ctx, batchID)
	if err != nil {
		return err
	}
	return s.finalizeIfDone(ctx, batch)
}

// finalizeIfDone marks the batch COMPLETED once completed+failed reaches the
// total. Several units finishing at once may all evaluate this; the
// conditional MarkCompleted write guarantees exactly one of them performs
// the transition and the rest no-op.
func (s *BatchService) finalizeIfDone(ctx context.Context, batch *domain.Batch) error {
	if batch.CompletedSimulations+batch.FailedSimulations < batch.TotalSimulations {
		return nil
	}

	transitioned, err := s.batchRepo.MarkCompleted(ctx, batch.BatchID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to finalize batch %s: %w", batch.BatchID, err)
	}
	if transitioned {
		middleware.GetLoggerFromCtx(ctx).Info("Batch completed",
			slog.String("batch_id", batch.BatchID),
			slog.Int("completed", batch.CompletedSimulations),
			slog.Int("failed", batch.FailedSimulations),
			slog.Int("total", batch.TotalSimulations),
		)
	}
	return nil
}
