package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types published by the batch pipeline.
const (
	EventTypeBatchSimulationCreated = "BatchSimulationCreated"
	EventTypeSimulationProcessing   = "SimulationProcessing"
)

// EventMeta is the envelope shared by all domain events.
type EventMeta struct {
	EventID     string
	EventType   string
	PublishedAt time.Time
}

func newEventMeta(eventType string) EventMeta {
	return EventMeta{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		PublishedAt: time.Now(),
	}
}

// Event is implemented by every message that flows through the event bus.
type Event interface {
	Meta() EventMeta
}

// BatchSimulationCreatedEvent announces that a batch was durably created and
// names the applications it fans out into.
type BatchSimulationCreatedEvent struct {
	EventMeta
	BatchID          string
	LoanApplications []LoanApplication
}

func NewBatchSimulationCreatedEvent(batchID string, apps []LoanApplication) BatchSimulationCreatedEvent {
	return BatchSimulationCreatedEvent{
		EventMeta:        newEventMeta(EventTypeBatchSimulationCreated),
		BatchID:          batchID,
		LoanApplications: apps,
	}
}

func (e BatchSimulationCreatedEvent) Meta() EventMeta { return e.EventMeta }

// SimulationProcessingEvent carries one unit of work. SimulationID is
// assigned at fan-out time so redelivered units can be de-duplicated before
// the batch counters are touched.
type SimulationProcessingEvent struct {
	EventMeta
	BatchID         string
	SimulationID    string
	LoanApplication LoanApplication
}

func NewSimulationProcessingEvent(batchID string, app LoanApplication) SimulationProcessingEvent {
	return SimulationProcessingEvent{
		EventMeta:       newEventMeta(EventTypeSimulationProcessing),
		BatchID:         batchID,
		SimulationID:    uuid.NewString(),
		LoanApplication: app,
	}
}

func (e SimulationProcessingEvent) Meta() EventMeta { return e.EventMeta }
