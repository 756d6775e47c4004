package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
	portssvc "github.com/lucasmedeiros/credit_engine/internal/core/ports/services"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
	"github.com/lucasmedeiros/credit_engine/internal/utils/finance"
)

// SimulationService runs loan simulations: the synchronous single-shot path
// and the per-unit batch path that persists its outcome.
type SimulationService struct {
	feeService     portssvc.FeeSvcFacade
	simulationRepo portsrepo.SimulationRepository
}

// NewSimulationService creates a new SimulationService.
func NewSimulationService(feeService portssvc.FeeSvcFacade, simulationRepo portsrepo.SimulationRepository) *SimulationService {
	return &SimulationService{
		feeService:     feeService,
		simulationRepo: simulationRepo,
	}
}

var _ portssvc.SimulationSvcFacade = (*SimulationService)(nil)

// Simulate resolves the fee rate for the applicant and computes the fixed
// monthly installment, total amount and total fee. Input errors propagate as
// apperrors.ErrValidation.
func (s *SimulationService) Simulate(ctx context.Context, app domain.LoanApplication) (*domain.SimulationOutcome, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	feeRate, err := s.feeService.CalculateFeeRate(ctx, app.Birthdate)
	if err != nil {
		return nil, err
	}

	amortization, err := finance.ComputeAmortization(app.Amount, app.Installments, feeRate)
	if err != nil {
		return nil, err
	}

	outcome := &domain.SimulationOutcome{
		MonthlyInstallmentAmount: amortization.InstallmentAmount,
		TotalAmountToBePaid:      amortization.TotalAmount,
		TotalFeePaid:             amortization.TotalFee,
	}

	logger.Info("Simulation completed",
		slog.String("installment_amount", outcome.MonthlyInstallmentAmount.String()),
		slog.String("total_amount", outcome.TotalAmountToBePaid.String()),
	)
	return outcome, nil
}

// ProcessUnit runs one batch unit and persists exactly one SimulationRecord.
// A failed computation is converted into a FAILED record instead of an
// error; only infrastructure failures escape. The returned bool reports
// whether a record was actually inserted; false means a record with this
// simulation ID already exists (redelivered unit) and the batch counters
// must not be advanced again.
func (s *SimulationService) ProcessUnit(ctx context.Context, batchID, simulationID string, app domain.LoanApplication) (*domain.SimulationRecord, bool, error) {
	logger := middleware.GetLoggerFromCtx(ctx).With(
		slog.String("batch_id", batchID),
		slog.String("simulation_id", simulationID),
	)

	now := time.Now()
	record := domain.SimulationRecord{
		SimulationID:    simulationID,
		BatchID:         batchID,
		AmountRequested: app.Amount,
		Birthdate:       app.Birthdate,
		Installments:    app.Installments,
		ProcessedAt:     now,
		CreatedAt:       now,
	}

	outcome, simErr := s.Simulate(ctx, app)
	if simErr != nil {
		logger.Warn("Simulation unit failed", slog.String("error", simErr.Error()))
		record.Status = domain.SimulationStatusFailed
	} else {
		record.Status = domain.SimulationStatusCompleted
		record.InstallmentAmount = &outcome.MonthlyInstallmentAmount
		record.TotalAmount = &outcome.TotalAmountToBePaid
		record.TotalFee = &outcome.TotalFeePaid
	}

	inserted, err := s.simulationRepo.SaveSimulation(ctx, record)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save simulation record: %w", err)
	}
	if !inserted {
		logger.Info("Simulation already recorded, skipping")
		return &record, false, nil
	}

	logger.Info("Simulation record saved", slog.String("status", record.Status.String()))
	return &record, true, nil
}

// ListBatchResults pages the persisted records of a batch filtered by status.
func (s *SimulationService) ListBatchResults(ctx context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error) {
	records, total, err := s.simulationRepo.ListByBatch(ctx, batchID, status, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list simulations for batch %s: %w", batchID, err)
	}
	if records == nil {
		records = []domain.SimulationRecord{}
	}
	return records, total, nil
}
