package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Simulation is the database representation of a persisted simulation
// record (simulation table). The outcome columns are NULL for FAILED
// records; the birthdate is stored as submitted so that unparsable input
// on a failed unit is still recorded verbatim.
type Simulation struct {
	SimulationID      string              `db:"simulation_id"`
	BatchID           *string             `db:"batch_id"`
	Status            string              `db:"status"`
	AmountRequested   decimal.Decimal     `db:"amount_requested"`
	Birthdate         string              `db:"birthdate"`
	Installments      int                 `db:"installments"`
	InstallmentAmount decimal.NullDecimal `db:"installment_amount"`
	TotalAmount       decimal.NullDecimal `db:"total_amount"`
	TotalFee          decimal.NullDecimal `db:"total_fee"`
	ProcessedAt       time.Time           `db:"processed_at"`
	CreatedAt         time.Time           `db:"created_at"`
}
