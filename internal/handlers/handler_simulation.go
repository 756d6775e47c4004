package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portssvc "github.com/lucasmedeiros/credit_engine/internal/core/ports/services"
	"github.com/lucasmedeiros/credit_engine/internal/dto"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
)

const (
	defaultResultsPageSize = 20
	maxResultsPageSize     = 100
	// maxResultsPage keeps page*size far from integer overflow; no real
	// batch has a millionth page.
	maxResultsPage = 1_000_000
)

// simulationHandler handles HTTP requests related to loan simulations.
type simulationHandler struct {
	simulationService portssvc.SimulationSvcFacade
	batchService      portssvc.BatchSvcFacade
}

func newSimulationHandler(ss portssvc.SimulationSvcFacade, bs portssvc.BatchSvcFacade) *simulationHandler {
	return &simulationHandler{
		simulationService: ss,
		batchService:      bs,
	}
}

// RegisterSimulationRoutes registers the simulation API routes.
func RegisterSimulationRoutes(rg *gin.RouterGroup, simulationService portssvc.SimulationSvcFacade, batchService portssvc.BatchSvcFacade) {
	h := newSimulationHandler(simulationService, batchService)

	simulations := rg.Group("/simulations")
	{
		simulations.POST("", h.simulate)
		simulations.POST("/batch", h.simulateBatch)
		simulations.GET("/batch/:batchID", h.getBatchStatus)
		simulations.GET("/batch/:batchID/results", h.listBatchResults)
	}
}

// simulate godoc
// @Summary Simulate a single loan application
// @Description Computes the fixed monthly installment, total amount and total fee for one loan application
// @Tags simulations
// @Accept  json
// @Produce  json
// @Param   loanApplication body dto.LoanApplicationRequest true "Loan application"
// @Success 200 {object} dto.LoanSimulationResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Invalid input"
// @Failure 500 {object} map[string]string "Failed to simulate loan"
// @Router /simulations [post]
func (h *simulationHandler) simulate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.LoanApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Simulate", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ToValidationErrorResponse(err))
		return
	}

	outcome, err := h.simulationService.Simulate(c.Request.Context(), req.ToDomain())
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error simulating loan", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			logger.Error("Failed to simulate loan", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate loan"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToLoanSimulationResponse(*outcome))
}

// simulateBatch godoc
// @Summary Create a batch of loan simulations
// @Description Accepts up to 10000 loan applications and processes them asynchronously
// @Tags simulations
// @Accept  json
// @Produce  json
// @Param   batch body dto.BatchLoanApplicationRequest true "Batch of loan applications"
// @Success 202 {object} dto.BatchSimulationResponse
// @Failure 400 {object} dto.ValidationErrorResponse "Invalid request shape"
// @Failure 500 {object} map[string]string "Failed to create batch"
// @Router /simulations/batch [post]
func (h *simulationHandler) simulateBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.BatchLoanApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SimulateBatch", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ToValidationErrorResponse(err))
		return
	}

	batch, err := h.batchService.CreateBatch(c.Request.Context(), req.ToDomain())
	if err != nil {
		logger.Error("Failed to create batch", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
		return
	}

	logger.Info("Batch accepted", slog.String("batch_id", batch.BatchID), slog.Int("total_simulations", batch.TotalSimulations))
	c.JSON(http.StatusAccepted, dto.ToBatchSimulationResponse(*batch))
}

// getBatchStatus godoc
// @Summary Get batch simulation status
// @Description Returns the current counters and status of a batch
// @Tags simulations
// @Produce  json
// @Param   batchID path string true "Batch ID"
// @Success 200 {object} dto.BatchStatusResponse
// @Failure 404 {object} map[string]string "Batch not found"
// @Failure 500 {object} map[string]string "Failed to retrieve batch"
// @Router /simulations/batch/{batchID} [get]
func (h *simulationHandler) getBatchStatus(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")

	batch, err := h.batchService.GetBatchStatus(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Batch not found", slog.String("batch_id", batchID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		} else {
			logger.Error("Failed to get batch status", slog.String("batch_id", batchID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve batch"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToBatchStatusResponse(*batch))
}

// listBatchResults godoc
// @Summary List simulation results of a batch
// @Description Returns one page of the batch's simulation records filtered by status
// @Tags simulations
// @Produce  json
// @Param   batchID path string true "Batch ID"
// @Param   status query string false "Simulation status filter (COMPLETED or FAILED)" default(COMPLETED)
// @Param   page query int false "Page number, zero based" default(0)
// @Param   size query int false "Page size" default(20)
// @Success 200 {object} dto.PagedSimulationResponse
// @Failure 400 {object} map[string]string "Invalid paging or status parameter"
// @Failure 404 {object} map[string]string "Batch not found"
// @Failure 500 {object} map[string]string "Failed to list results"
// @Router /simulations/batch/{batchID}/results [get]
func (h *simulationHandler) listBatchResults(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	batchID := c.Param("batchID")

	status := domain.SimulationStatus(c.DefaultQuery("status", string(domain.SimulationStatusCompleted)))
	if status != domain.SimulationStatusCompleted && status != domain.SimulationStatusFailed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be COMPLETED or FAILED"})
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 || page > maxResultsPage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be an integer between 0 and 1000000"})
		return
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultResultsPageSize)))
	if err != nil || size < 1 || size > maxResultsPageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "size must be between 1 and 100"})
		return
	}

	// The batch must exist; an empty page on an unknown id would be
	// indistinguishable from a real empty result set.
	if _, err := h.batchService.GetBatchStatus(c.Request.Context(), batchID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		} else {
			logger.Error("Failed to check batch before listing results", slog.String("batch_id", batchID), slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results"})
		}
		return
	}

	records, total, err := h.simulationService.ListBatchResults(c.Request.Context(), batchID, status, size, page*size)
	if err != nil {
		logger.Error("Failed to list batch results", slog.String("batch_id", batchID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results"})
		return
	}

	c.JSON(http.StatusOK, dto.ToPagedSimulationResponse(records, page, size, total))
}
