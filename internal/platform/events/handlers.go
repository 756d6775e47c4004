package events

import (
	"context"
	"log/slog"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portssvc "github.com/lucasmedeiros/credit_engine/internal/core/ports/services"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
)

// BatchSimulationEventHandler expands one BatchSimulationCreated event into
// N SimulationProcessing events, one per loan application.
type BatchSimulationEventHandler struct {
	publisher portssvc.EventPublisher
	logger    *slog.Logger
}

func NewBatchSimulationEventHandler(publisher portssvc.EventPublisher, logger *slog.Logger) *BatchSimulationEventHandler {
	return &BatchSimulationEventHandler{publisher: publisher, logger: logger}
}

// Handle fans the batch out. Each unit event is assigned its simulation ID
// here, before publication, so redeliveries stay de-duplicable downstream.
func (h *BatchSimulationEventHandler) Handle(ctx context.Context, event domain.Event) {
	created, ok := event.(domain.BatchSimulationCreatedEvent)
	if !ok {
		h.logger.Error("Unexpected event payload for batch fan-out", slog.String("event_type", event.Meta().EventType))
		return
	}

	logger := h.logger.With(slog.String("batch_id", created.BatchID), slog.String("event_id", created.EventID))
	logger.Info("Fanning out batch simulation", slog.Int("units", len(created.LoanApplications)))

	for _, app := range created.LoanApplications {
		unit := domain.NewSimulationProcessingEvent(created.BatchID, app)
		if err := h.publisher.Publish(ctx, unit); err != nil {
			// Units not dispatched here are lost work; this must reach alerts.
			logger.Error("Failed to publish simulation unit event",
				slog.String("simulation_id", unit.SimulationID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// SimulationProcessingEventHandler runs one unit of work: process the
// simulation, persist its record and advance the owning batch's counters.
type SimulationProcessingEventHandler struct {
	simulations portssvc.SimulationSvcFacade
	batches     portssvc.BatchSvcFacade
	logger      *slog.Logger
}

func NewSimulationProcessingEventHandler(simulations portssvc.SimulationSvcFacade, batches portssvc.BatchSvcFacade, logger *slog.Logger) *SimulationProcessingEventHandler {
	return &SimulationProcessingEventHandler{simulations: simulations, batches: batches, logger: logger}
}

// Handle is safe under at-least-once redelivery: a unit whose record already
// exists skips the counter increment entirely.
func (h *SimulationProcessingEventHandler) Handle(ctx context.Context, event domain.Event) {
	unit, ok := event.(domain.SimulationProcessingEvent)
	if !ok {
		h.logger.Error("Unexpected event payload for simulation processing", slog.String("event_type", event.Meta().EventType))
		return
	}

	logger := h.logger.With(
		slog.String("batch_id", unit.BatchID),
		slog.String("simulation_id", unit.SimulationID),
		slog.String("event_id", unit.EventID),
	)
	ctx = middleware.AddLoggerToCtx(ctx, logger)

	record, inserted, err := h.simulations.ProcessUnit(ctx, unit.BatchID, unit.SimulationID, unit.LoanApplication)
	if err != nil {
		logger.Error("Failed to process simulation unit", slog.String("error", err.Error()))
		return
	}
	if !inserted {
		logger.Info("Duplicate simulation delivery, counters untouched")
		return
	}

	if record.Status == domain.SimulationStatusCompleted {
		err = h.batches.IncrementCompleted(ctx, unit.BatchID)
	} else {
		err = h.batches.IncrementFailed(ctx, unit.BatchID)
	}
	if err != nil {
		// An unknown batch id here means lost work, not user error.
		logger.Error("Failed to advance batch counters", slog.String("error", err.Error()))
	}
}
