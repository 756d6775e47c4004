package events_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/lucasmedeiros/credit_engine/internal/core/services"
	"github.com/lucasmedeiros/credit_engine/internal/platform/dispatch"
	"github.com/lucasmedeiros/credit_engine/internal/platform/events"
	"github.com/lucasmedeiros/credit_engine/internal/repositories/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipeline wires the full asynchronous path the server runs in production:
// batch creation, fan-out, unit processing and counter-driven finalization,
// backed by the map repositories.
type pipeline struct {
	pool     *dispatch.Pool
	batchSvc *services.BatchService
	simSvc   *services.SimulationService
}

func newPipeline(t *testing.T, cfg dispatch.Config) *pipeline {
	t.Helper()
	logger := slog.Default()

	pool := dispatch.NewPool(cfg, logger)
	bus := events.NewBus(pool, logger)

	batchRepo := memory.NewBatchRepository()
	simRepo := memory.NewSimulationRepository()

	feeSvc := services.NewFeeServiceWithClock(func() time.Time {
		return time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	})
	simSvc := services.NewSimulationService(feeSvc, simRepo)
	batchSvc := services.NewBatchService(batchRepo, bus)

	fanOut := events.NewBatchSimulationEventHandler(bus, logger)
	processing := events.NewSimulationProcessingEventHandler(simSvc, batchSvc, logger)
	bus.Subscribe(domain.EventTypeBatchSimulationCreated, fanOut.Handle)
	bus.Subscribe(domain.EventTypeSimulationProcessing, processing.Handle)

	return &pipeline{
		pool:     pool,
		batchSvc: batchSvc,
		simSvc:   simSvc,
	}
}

func (p *pipeline) awaitCompletion(t *testing.T, batchID string) *domain.Batch {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		batch, err := p.batchSvc.GetBatchStatus(context.Background(), batchID)
		require.NoError(t, err)
		if batch.EffectiveStatus() == domain.BatchStatusCompleted {
			return batch
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("batch %s never completed", batchID)
	return nil
}

func validApplication(years int) domain.LoanApplication {
	return domain.LoanApplication{
		Amount:       decimal.NewFromInt(10000),
		Birthdate:    fmt.Sprintf("15/06/%d", 2025-years),
		Installments: 12,
	}
}

func TestPipeline_BatchCompletesWithAllUnitsProcessed(t *testing.T) {
	p := newPipeline(t, dispatch.Config{
		CoreWorkers:   8,
		MaxWorkers:    16,
		QueueCapacity: 1000,
		KeepAlive:     time.Second,
	})

	const units = 200
	apps := make([]domain.LoanApplication, 0, units)
	for i := 0; i < units; i++ {
		apps = append(apps, validApplication(20+i%50))
	}

	batch, err := p.batchSvc.CreateBatch(context.Background(), apps)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPending, batch.Status)
	assert.Equal(t, units, batch.TotalSimulations)

	final := p.awaitCompletion(t, batch.BatchID)
	assert.Equal(t, units, final.CompletedSimulations)
	assert.Equal(t, 0, final.FailedSimulations)
	require.NotNil(t, final.CompletedAt)

	records, total, err := p.simSvc.ListBatchResults(context.Background(), batch.BatchID, domain.SimulationStatusCompleted, units, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(units), total)
	assert.Len(t, records, units)
	for _, rec := range records {
		require.NotNil(t, rec.InstallmentAmount)
		assert.True(t, rec.InstallmentAmount.IsPositive())
	}

	require.NoError(t, p.pool.Drain(context.Background()))
}

func TestPipeline_MixedOutcomesAreCountedSeparately(t *testing.T) {
	p := newPipeline(t, dispatch.Config{
		CoreWorkers:   4,
		MaxWorkers:    8,
		QueueCapacity: 100,
		KeepAlive:     time.Second,
	})

	// The last entry's birthdate is longer than any valid dd/MM/yyyy value;
	// it must still land as a FAILED record, stored verbatim.
	oversizedBirthdate := "99/99/999999999999999999"
	apps := []domain.LoanApplication{
		validApplication(30),
		{Amount: decimal.NewFromInt(5000), Birthdate: "not-a-date", Installments: 12},
		validApplication(45),
		{Amount: decimal.NewFromInt(-1), Birthdate: "15/06/1990", Installments: 12},
		{Amount: decimal.NewFromInt(5000), Birthdate: "15/06/1990", Installments: 0},
		{Amount: decimal.NewFromInt(5000), Birthdate: oversizedBirthdate, Installments: 12},
	}

	batch, err := p.batchSvc.CreateBatch(context.Background(), apps)
	require.NoError(t, err)

	final := p.awaitCompletion(t, batch.BatchID)
	assert.Equal(t, 2, final.CompletedSimulations)
	assert.Equal(t, 4, final.FailedSimulations)

	failed, total, err := p.simSvc.ListBatchResults(context.Background(), batch.BatchID, domain.SimulationStatusFailed, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	sawOversized := false
	for _, rec := range failed {
		assert.Nil(t, rec.InstallmentAmount)
		assert.Equal(t, domain.SimulationStatusFailed, rec.Status)
		if rec.Birthdate == oversizedBirthdate {
			sawOversized = true
		}
	}
	assert.True(t, sawOversized, "oversized birthdate must be recorded as submitted")

	require.NoError(t, p.pool.Drain(context.Background()))
}

func TestPipeline_EmptyBatchIsBornCompleted(t *testing.T) {
	p := newPipeline(t, dispatch.Config{
		CoreWorkers:   1,
		MaxWorkers:    1,
		QueueCapacity: 10,
		KeepAlive:     time.Second,
	})

	batch, err := p.batchSvc.CreateBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCompleted, batch.Status)
	require.NotNil(t, batch.CompletedAt)

	require.NoError(t, p.pool.Drain(context.Background()))
}

// A tiny pool with no queue headroom forces the caller-runs overflow path
// during fan-out; the batch must still finalize exactly once.
func TestPipeline_CompletesUnderQueuePressure(t *testing.T) {
	p := newPipeline(t, dispatch.Config{
		CoreWorkers:   1,
		MaxWorkers:    2,
		QueueCapacity: 1,
		KeepAlive:     50 * time.Millisecond,
	})

	const units = 100
	apps := make([]domain.LoanApplication, 0, units)
	for i := 0; i < units; i++ {
		apps = append(apps, validApplication(25+i%40))
	}

	batch, err := p.batchSvc.CreateBatch(context.Background(), apps)
	require.NoError(t, err)

	final := p.awaitCompletion(t, batch.BatchID)
	assert.Equal(t, units, final.CompletedSimulations+final.FailedSimulations)
	assert.Equal(t, units, final.CompletedSimulations)
	require.NotNil(t, final.CompletedAt)

	require.NoError(t, p.pool.Drain(context.Background()))
}

// Redelivering a unit event must not double-count: the record insert is
// idempotent on the simulation id and only a first insert moves the counters.
func TestPipeline_RedeliveredUnitDoesNotDoubleCount(t *testing.T) {
	p := newPipeline(t, dispatch.Config{
		CoreWorkers:   4,
		MaxWorkers:    8,
		QueueCapacity: 100,
		KeepAlive:     time.Second,
	})
	logger := slog.Default()

	apps := []domain.LoanApplication{validApplication(30), validApplication(50)}
	batch, err := p.batchSvc.CreateBatch(context.Background(), apps)
	require.NoError(t, err)
	final := p.awaitCompletion(t, batch.BatchID)

	// Replay one unit through the processing handler with the same id.
	records, _, err := p.simSvc.ListBatchResults(context.Background(), batch.BatchID, domain.SimulationStatusCompleted, 10, 0)
	require.NoError(t, err)
	require.NotEmpty(t, records)
	replay := domain.SimulationProcessingEvent{
		BatchID:         batch.BatchID,
		SimulationID:    records[0].SimulationID,
		LoanApplication: validApplication(30),
	}
	handler := events.NewSimulationProcessingEventHandler(p.simSvc, p.batchSvc, logger)
	handler.Handle(context.Background(), replay)

	after, err := p.batchSvc.GetBatchStatus(context.Background(), batch.BatchID)
	require.NoError(t, err)
	assert.Equal(t, final.CompletedSimulations, after.CompletedSimulations)
	assert.Equal(t, final.FailedSimulations, after.FailedSimulations)

	require.NoError(t, p.pool.Drain(context.Background()))
}
