package dto

import (
	"time"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/shopspring/decimal"
)

// LoanApplicationRequest is the payload for a single loan simulation.
// Amount positivity and the birthdate format are enforced by the core
// (apperrors.ErrValidation), so invalid values surface as 400s with a
// specific message rather than a generic binding failure.
type LoanApplicationRequest struct {
	Amount       decimal.Decimal `json:"amount" binding:"required" example:"10000.00"`
	Birthdate    string          `json:"birthdate" binding:"required" example:"15/05/1990"`
	Installments int             `json:"installments" binding:"required,gt=0" example:"12"`
}

// ToDomain converts the request to its domain representation.
func (r LoanApplicationRequest) ToDomain() domain.LoanApplication {
	return domain.LoanApplication{
		Amount:       r.Amount,
		Birthdate:    r.Birthdate,
		Installments: r.Installments,
	}
}

// LoanSimulationResponse is the outcome of a synchronous simulation.
type LoanSimulationResponse struct {
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	TotalFee          decimal.Decimal `json:"totalFee"`
}

// ToLoanSimulationResponse maps a domain outcome to its response DTO.
func ToLoanSimulationResponse(outcome domain.SimulationOutcome) LoanSimulationResponse {
	return LoanSimulationResponse{
		InstallmentAmount: outcome.MonthlyInstallmentAmount,
		TotalAmount:       outcome.TotalAmountToBePaid,
		TotalFee:          outcome.TotalFeePaid,
	}
}

// SimulationResultResponse is one persisted simulation record.
type SimulationResultResponse struct {
	SimulationID      string           `json:"simulationId"`
	BatchID           string           `json:"batchId,omitempty"`
	Status            string           `json:"status"`
	AmountRequested   decimal.Decimal  `json:"amountRequested"`
	Birthdate         string           `json:"birthdate"`
	Installments      int              `json:"installments"`
	InstallmentAmount *decimal.Decimal `json:"installmentAmount,omitempty"`
	TotalAmount       *decimal.Decimal `json:"totalAmount,omitempty"`
	TotalFee          *decimal.Decimal `json:"totalFee,omitempty"`
	ProcessedAt       time.Time        `json:"processedAt"`
	CreatedAt         time.Time        `json:"createdAt"`
}

// ToSimulationResultResponse maps a domain record to its response DTO.
func ToSimulationResultResponse(record domain.SimulationRecord) SimulationResultResponse {
	return SimulationResultResponse{
		SimulationID:      record.SimulationID,
		BatchID:           record.BatchID,
		Status:            record.Status.String(),
		AmountRequested:   record.AmountRequested,
		Birthdate:         record.Birthdate,
		Installments:      record.Installments,
		InstallmentAmount: record.InstallmentAmount,
		TotalAmount:       record.TotalAmount,
		TotalFee:          record.TotalFee,
		ProcessedAt:       record.ProcessedAt,
		CreatedAt:         record.CreatedAt,
	}
}

// PagedSimulationResponse is one page of simulation results.
type PagedSimulationResponse struct {
	Content       []SimulationResultResponse `json:"content"`
	Page          int                        `json:"page"`
	Size          int                        `json:"size"`
	TotalElements int64                      `json:"totalElements"`
	TotalPages    int                        `json:"totalPages"`
	First         bool                       `json:"first"`
	Last          bool                       `json:"last"`
}

// ToPagedSimulationResponse assembles a page envelope from the records and
// the total match count.
func ToPagedSimulationResponse(records []domain.SimulationRecord, page, size int, total int64) PagedSimulationResponse {
	content := make([]SimulationResultResponse, 0, len(records))
	for _, rec := range records {
		content = append(content, ToSimulationResultResponse(rec))
	}

	totalPages := 0
	if size > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}

	return PagedSimulationResponse{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		First:         page == 0,
		Last:          page >= totalPages-1,
	}
}
