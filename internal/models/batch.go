package models

import "time"

// Batch is the database representation of a simulation batch
// (batch_simulation table).
type Batch struct {
	BatchID              string     `db:"batch_id"`
	Status               string     `db:"status"`
	TotalSimulations     int        `db:"total_simulations"`
	CompletedSimulations int        `db:"completed_simulations"`
	FailedSimulations    int        `db:"failed_simulations"`
	CreatedAt            time.Time  `db:"created_at"`
	CompletedAt          *time.Time `db:"completed_at"`
}
