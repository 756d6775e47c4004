package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	"github.com/lucasmedeiros/credit_engine/internal/dto"
	"github.com/lucasmedeiros/credit_engine/internal/handlers"
	"github.com/lucasmedeiros/credit_engine/internal/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Mocks ---

type MockSimulationService struct {
	mock.Mock
}

func (m *MockSimulationService) Simulate(ctx context.Context, app domain.LoanApplication) (*domain.SimulationOutcome, error) {
	args := m.Called(ctx, app)
	outcome, _ := args.Get(0).(*domain.SimulationOutcome)
	return outcome, args.Error(1)
}

func (m *MockSimulationService) ProcessUnit(ctx context.Context, batchID, simulationID string, app domain.LoanApplication) (*domain.SimulationRecord, bool, error) {
	args := m.Called(ctx, batchID, simulationID, app)
	record, _ := args.Get(0).(*domain.SimulationRecord)
	return record, args.Bool(1), args.Error(2)
}

func (m *MockSimulationService) ListBatchResults(ctx context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error) {
	args := m.Called(ctx, batchID, status, limit, offset)
	records, _ := args.Get(0).([]domain.SimulationRecord)
	return records, args.Get(1).(int64), args.Error(2)
}

type MockBatchService struct {
	mock.Mock
}

func (m *MockBatchService) CreateBatch(ctx context.Context, apps []domain.LoanApplication) (*domain.Batch, error) {
	args := m.Called(ctx, apps)
	batch, _ := args.Get(0).(*domain.Batch)
	return batch, args.Error(1)
}

func (m *MockBatchService) GetBatchStatus(ctx context.Context, batchID string) (*domain.Batch, error) {
	args := m.Called(ctx, batchID)
	batch, _ := args.Get(0).(*domain.Batch)
	return batch, args.Error(1)
}

func (m *MockBatchService) IncrementCompleted(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockBatchService) IncrementFailed(ctx context.Context, batchID string) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

// --- Suite ---

type SimulationHandlerTestSuite struct {
	suite.Suite
	router         *gin.Engine
	mockSimService *MockSimulationService
	mockBatchSvc   *MockBatchService
}

func (s *SimulationHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.mockSimService = new(MockSimulationService)
	s.mockBatchSvc = new(MockBatchService)

	s.router = gin.New()
	s.router.Use(middleware.StructuredLoggingMiddleware(slog.Default()))
	v1 := s.router.Group("/api/v1")
	handlers.RegisterSimulationRoutes(v1, s.mockSimService, s.mockBatchSvc)
}

func (s *SimulationHandlerTestSuite) performRequest(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *SimulationHandlerTestSuite) TestSimulate_Success() {
	outcome := &domain.SimulationOutcome{
		MonthlyInstallmentAmount: decimal.RequireFromString("851.50"),
		TotalAmountToBePaid:      decimal.RequireFromString("10218.00"),
		TotalFeePaid:             decimal.RequireFromString("218.00"),
	}
	s.mockSimService.On("Simulate", mock.Anything, mock.MatchedBy(func(app domain.LoanApplication) bool {
		return app.Birthdate == "15/05/1990" && app.Installments == 12
	})).Return(outcome, nil).Once()

	w := s.performRequest(http.MethodPost, "/api/v1/simulations", dto.LoanApplicationRequest{
		Amount:       decimal.NewFromInt(10000),
		Birthdate:    "15/05/1990",
		Installments: 12,
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp dto.LoanSimulationResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(s.T(), resp.InstallmentAmount.Equal(outcome.MonthlyInstallmentAmount))
	assert.True(s.T(), resp.TotalAmount.Equal(outcome.TotalAmountToBePaid))
	assert.True(s.T(), resp.TotalFee.Equal(outcome.TotalFeePaid))
	s.mockSimService.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestSimulate_MissingFieldsReturns400() {
	w := s.performRequest(http.MethodPost, "/api/v1/simulations", map[string]any{
		"amount": "10000",
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	s.mockSimService.AssertNotCalled(s.T(), "Simulate", mock.Anything, mock.Anything)
}

func (s *SimulationHandlerTestSuite) TestSimulate_ValidationErrorReturns400() {
	simErr := fmt.Errorf("%w: birthdate must not be in the future", apperrors.ErrValidation)
	s.mockSimService.On("Simulate", mock.Anything, mock.Anything).Return(nil, simErr).Once()

	w := s.performRequest(http.MethodPost, "/api/v1/simulations", dto.LoanApplicationRequest{
		Amount:       decimal.NewFromInt(10000),
		Birthdate:    "15/05/2990",
		Installments: 12,
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	s.mockSimService.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestSimulate_InternalErrorReturns500() {
	s.mockSimService.On("Simulate", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("repository offline")).Once()

	w := s.performRequest(http.MethodPost, "/api/v1/simulations", dto.LoanApplicationRequest{
		Amount:       decimal.NewFromInt(10000),
		Birthdate:    "15/05/1990",
		Installments: 12,
	})

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
}

func (s *SimulationHandlerTestSuite) TestSimulateBatch_Accepted() {
	batch := &domain.Batch{
		BatchID:          "7f9c64c5-8a0e-4b46-9a47-1f2a3a6d0c11",
		Status:           domain.BatchStatusPending,
		TotalSimulations: 2,
		CreatedAt:        time.Now(),
	}
	s.mockBatchSvc.On("CreateBatch", mock.Anything, mock.MatchedBy(func(apps []domain.LoanApplication) bool {
		return len(apps) == 2
	})).Return(batch, nil).Once()

	w := s.performRequest(http.MethodPost, "/api/v1/simulations/batch", dto.BatchLoanApplicationRequest{
		LoanApplications: []dto.LoanApplicationRequest{
			{Amount: decimal.NewFromInt(10000), Birthdate: "15/05/1990", Installments: 12},
			{Amount: decimal.NewFromInt(5000), Birthdate: "01/01/1960", Installments: 24},
		},
	})

	assert.Equal(s.T(), http.StatusAccepted, w.Code)
	var resp dto.BatchSimulationResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), batch.BatchID, resp.BatchID)
	assert.Equal(s.T(), 2, resp.TotalSimulations)
	s.mockBatchSvc.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestSimulateBatch_EmptyListReturns400() {
	w := s.performRequest(http.MethodPost, "/api/v1/simulations/batch", map[string]any{
		"loanApplications": []any{},
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	s.mockBatchSvc.AssertNotCalled(s.T(), "CreateBatch", mock.Anything, mock.Anything)
}

func (s *SimulationHandlerTestSuite) TestGetBatchStatus_Success() {
	completedAt := time.Now()
	batch := &domain.Batch{
		BatchID:              "batch-1",
		Status:               domain.BatchStatusCompleted,
		TotalSimulations:     10,
		CompletedSimulations: 9,
		FailedSimulations:    1,
		CompletedAt:          &completedAt,
	}
	s.mockBatchSvc.On("GetBatchStatus", mock.Anything, "batch-1").Return(batch, nil).Once()

	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/batch-1", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp dto.BatchStatusResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(s.T(), "COMPLETED", resp.Status)
	assert.Equal(s.T(), 9, resp.CompletedSimulations)
	assert.Equal(s.T(), 1, resp.FailedSimulations)
	s.mockBatchSvc.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestGetBatchStatus_NotFoundReturns404() {
	notFound := fmt.Errorf("%w: batch missing", apperrors.ErrNotFound)
	s.mockBatchSvc.On("GetBatchStatus", mock.Anything, "missing").Return(nil, notFound).Once()

	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/missing", nil)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
}

func (s *SimulationHandlerTestSuite) TestListBatchResults_Success() {
	batch := &domain.Batch{BatchID: "batch-1", Status: domain.BatchStatusCompleted, TotalSimulations: 1}
	installment := decimal.RequireFromString("851.50")
	records := []domain.SimulationRecord{{
		SimulationID:      "sim-1",
		BatchID:           "batch-1",
		Status:            domain.SimulationStatusCompleted,
		AmountRequested:   decimal.NewFromInt(10000),
		Birthdate:         "15/05/1990",
		Installments:      12,
		InstallmentAmount: &installment,
	}}
	s.mockBatchSvc.On("GetBatchStatus", mock.Anything, "batch-1").Return(batch, nil).Once()
	s.mockSimService.On("ListBatchResults", mock.Anything, "batch-1", domain.SimulationStatusCompleted, 20, 0).
		Return(records, int64(1), nil).Once()

	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/batch-1/results", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	var resp dto.PagedSimulationResponse
	require.NoError(s.T(), json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.T(), resp.Content, 1)
	assert.Equal(s.T(), "sim-1", resp.Content[0].SimulationID)
	assert.Equal(s.T(), int64(1), resp.TotalElements)
	assert.True(s.T(), resp.First)
	assert.True(s.T(), resp.Last)
	s.mockSimService.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestListBatchResults_PagingParamsArePassedThrough() {
	batch := &domain.Batch{BatchID: "batch-1", Status: domain.BatchStatusCompleted}
	s.mockBatchSvc.On("GetBatchStatus", mock.Anything, "batch-1").Return(batch, nil).Once()
	s.mockSimService.On("ListBatchResults", mock.Anything, "batch-1", domain.SimulationStatusFailed, 50, 100).
		Return([]domain.SimulationRecord{}, int64(0), nil).Once()

	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/batch-1/results?status=FAILED&page=2&size=50", nil)

	assert.Equal(s.T(), http.StatusOK, w.Code)
	s.mockSimService.AssertExpectations(s.T())
}

func (s *SimulationHandlerTestSuite) TestListBatchResults_InvalidStatusReturns400() {
	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/batch-1/results?status=PENDING", nil)

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	s.mockSimService.AssertNotCalled(s.T(), "ListBatchResults",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *SimulationHandlerTestSuite) TestListBatchResults_InvalidPagingReturns400() {
	// The two large values parse as int but must be rejected: multiplied by
	// the page size they would wrap around into a negative offset.
	for _, query := range []string{"page=-1", "size=0", "size=101", "page=abc", "page=1000001", "page=4611686018427387904&size=50"} {
		w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/batch-1/results?"+query, nil)
		assert.Equal(s.T(), http.StatusBadRequest, w.Code, "query %q", query)
	}
}

func (s *SimulationHandlerTestSuite) TestListBatchResults_UnknownBatchReturns404() {
	notFound := fmt.Errorf("%w: batch missing", apperrors.ErrNotFound)
	s.mockBatchSvc.On("GetBatchStatus", mock.Anything, "missing").Return(nil, notFound).Once()

	w := s.performRequest(http.MethodGet, "/api/v1/simulations/batch/missing/results", nil)

	assert.Equal(s.T(), http.StatusNotFound, w.Code)
	s.mockSimService.AssertNotCalled(s.T(), "ListBatchResults",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSimulationHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(SimulationHandlerTestSuite))
}
