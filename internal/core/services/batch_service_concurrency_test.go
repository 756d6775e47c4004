package services_test

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
	"github.com/lucasmedeiros/credit_engine/internal/core/services"
	"github.com/lucasmedeiros/credit_engine/internal/repositories/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// transitionCountingRepo counts how many MarkCompleted calls actually
// performed the transition.
type transitionCountingRepo struct {
	portsrepo.BatchRepository
	transitions atomic.Int32
}

func (r *transitionCountingRepo) MarkCompleted(ctx context.Context, batchID string, completedAt time.Time) (bool, error) {
	transitioned, err := r.BatchRepository.MarkCompleted(ctx, batchID, completedAt)
	if transitioned {
		r.transitions.Add(1)
	}
	return transitioned, err
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domain.Event) error      { return nil }
func (nopPublisher) PublishAll(context.Context, []domain.Event) error { return nil }

// N units finishing concurrently in a random success/failure mix must leave
// the batch with completed+failed == N, no lost increments, and exactly one
// observable transition to COMPLETED.
func TestBatchCounters_ConcurrentFinishersFinalizeExactlyOnce(t *testing.T) {
	const total = 500

	repo := &transitionCountingRepo{BatchRepository: memory.NewBatchRepository()}
	service := services.NewBatchService(repo, nopPublisher{})

	ctx := context.Background()
	batch, err := service.CreateBatch(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, domain.BatchStatusCompleted, batch.Status)

	// A non-empty batch for the real run.
	apps := make([]domain.LoanApplication, total)
	batch, err = service.CreateBatch(ctx, apps)
	require.NoError(t, err)

	outcomes := make([]bool, total)
	expectedFailed := 0
	rng := rand.New(rand.NewSource(42))
	for i := range outcomes {
		outcomes[i] = rng.Intn(2) == 0
		if !outcomes[i] {
			expectedFailed++
		}
	}

	var wg sync.WaitGroup
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			if success {
				assert.NoError(t, service.IncrementCompleted(ctx, batch.BatchID))
			} else {
				assert.NoError(t, service.IncrementFailed(ctx, batch.BatchID))
			}
		}(outcomes[i])
	}
	wg.Wait()

	final, err := service.GetBatchStatus(ctx, batch.BatchID)
	require.NoError(t, err)

	assert.Equal(t, total, final.CompletedSimulations+final.FailedSimulations)
	assert.Equal(t, expectedFailed, final.FailedSimulations)
	assert.Equal(t, domain.BatchStatusCompleted, final.Status)
	require.NotNil(t, final.CompletedAt)
	assert.Equal(t, int32(1), repo.transitions.Load(), "finalize must fire exactly once")
}

func TestBatchCounters_IncrementUnknownBatchIsNotFound(t *testing.T) {
	repo := memory.NewBatchRepository()
	service := services.NewBatchService(repo, nopPublisher{})

	err := service.IncrementCompleted(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	err = service.IncrementFailed(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	// No phantom batch must appear.
	_, err = service.GetBatchStatus(context.Background(), "no-such-batch")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
