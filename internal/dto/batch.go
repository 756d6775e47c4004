package dto

import (
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
)

// BatchLoanApplicationRequest is the payload for a batch submission.
// Per-item input problems never reject the batch; they surface later as
// FAILED records, so only the request shape is validated here.
type BatchLoanApplicationRequest struct {
	LoanApplications []LoanApplicationRequest `json:"loanApplications" binding:"required,min=1,max=10000,dive"`
}

// ToDomain converts the batch request to its domain representation.
func (r BatchLoanApplicationRequest) ToDomain() []domain.LoanApplication {
	apps := make([]domain.LoanApplication, 0, len(r.LoanApplications))
	for _, app := range r.LoanApplications {
		apps = append(apps, app.ToDomain())
	}
	return apps
}

// BatchSimulationResponse acknowledges an accepted batch submission.
type BatchSimulationResponse struct {
	BatchID          string    `json:"batchId"`
	Status           string    `json:"status"`
	TotalSimulations int       `json:"totalSimulations"`
	CreatedAt        time.Time `json:"createdAt"`
}

// ToBatchSimulationResponse maps a freshly created batch to its
// acknowledgement DTO.
func ToBatchSimulationResponse(batch domain.Batch) BatchSimulationResponse {
	return BatchSimulationResponse{
		BatchID:          batch.BatchID,
		Status:           batch.Status.String(),
		TotalSimulations: batch.TotalSimulations,
		CreatedAt:        batch.CreatedAt,
	}
}

// BatchStatusResponse is the current snapshot of a batch.
type BatchStatusResponse struct {
	BatchID              string     `json:"batchId"`
	Status               string     `json:"status"`
	TotalSimulations     int        `json:"totalSimulations"`
	CompletedSimulations int        `json:"completedSimulations"`
	FailedSimulations    int        `json:"failedSimulations"`
	CreatedAt            time.Time  `json:"createdAt"`
	CompletedAt          *time.Time `json:"completedAt,omitempty"`
}

// ToBatchStatusResponse maps a batch snapshot to its response DTO.
func ToBatchStatusResponse(batch domain.Batch) BatchStatusResponse {
	return BatchStatusResponse{
		BatchID:              batch.BatchID,
		Status:               batch.Status.String(),
		TotalSimulations:     batch.TotalSimulations,
		CompletedSimulations: batch.CompletedSimulations,
		FailedSimulations:    batch.FailedSimulations,
		CreatedAt:            batch.CreatedAt,
		CompletedAt:          batch.CompletedAt,
	}
}
