package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulationStatus represents the terminal state of a persisted simulation.
type SimulationStatus string

const (
	SimulationStatusPending   SimulationStatus = "PENDING"
	SimulationStatusCompleted SimulationStatus = "COMPLETED"
	SimulationStatusFailed    SimulationStatus = "FAILED"
)

func (s SimulationStatus) String() string { return string(s) }

// SimulationRecord is the persisted result of one unit of work. It is
// written exactly once, either as COMPLETED with the outcome fields set or
// as FAILED with them nil, and never mutated afterwards. BatchID is empty
// for standalone simulations.
type SimulationRecord struct {
	SimulationID      string           `json:"simulationId"`
	BatchID           string           `json:"batchId,omitempty"`
	Status            SimulationStatus `json:"status"`
	AmountRequested   decimal.Decimal  `json:"amountRequested"`
	Birthdate         string           `json:"birthdate"`
	Installments      int              `json:"installments"`
	InstallmentAmount *decimal.Decimal `json:"installmentAmount,omitempty"`
	TotalAmount       *decimal.Decimal `json:"totalAmount,omitempty"`
	TotalFee          *decimal.Decimal `json:"totalFee,omitempty"`
	ProcessedAt       time.Time        `json:"processedAt"`
	CreatedAt         time.Time        `json:"createdAt"`
}
