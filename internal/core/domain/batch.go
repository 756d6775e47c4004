package domain

import "time"

// BatchStatus represents the lifecycle state of a simulation batch.
type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "PENDING"
	BatchStatusProcessing BatchStatus = "PROCESSING"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
)

func (s BatchStatus) String() string { return string(s) }

// Batch tracks the lifecycle of N independently processed loan simulations
// submitted together. TotalSimulations is fixed at creation; the two
// counters only ever advance via atomic increments at the storage layer, and
// the batch transitions to COMPLETED exactly once, when
// completed + failed == total.
//
// PROCESSING is never persisted: it is inferred from counters > 0 on a batch
// that is not yet COMPLETED.
type Batch struct {
	BatchID              string      `json:"batchId"`
	Status               BatchStatus `json:"status"`
	TotalSimulations     int         `json:"totalSimulations"`
	CompletedSimulations int         `json:"completedSimulations"`
	FailedSimulations    int         `json:"failedSimulations"`
	CreatedAt            time.Time   `json:"createdAt"`
	CompletedAt          *time.Time  `json:"completedAt,omitempty"`
}

// EffectiveStatus reports the externally visible status, inferring
// PROCESSING for a pending batch whose counters have started moving.
func (b Batch) EffectiveStatus() BatchStatus {
	if b.Status == BatchStatusCompleted {
		return BatchStatusCompleted
	}
	if b.CompletedSimulations+b.FailedSimulations > 0 {
		return BatchStatusProcessing
	}
	return b.Status
}
