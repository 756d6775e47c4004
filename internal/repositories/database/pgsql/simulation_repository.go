package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
	"github.com/lucasmedeiros/credit_engine/internal/models"
	"github.com/shopspring/decimal"
)

type PgxSimulationRepository struct {
	BaseRepository
}

// NewSimulationRepository creates a new repository for simulation records.
func NewSimulationRepository(pool *pgxpool.Pool) portsrepo.SimulationRepository {
	return &PgxSimulationRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.SimulationRepository = (*PgxSimulationRepository)(nil)

func toModelSimulation(d domain.SimulationRecord) models.Simulation {
	m := models.Simulation{
		SimulationID:    d.SimulationID,
		Status:          string(d.Status),
		AmountRequested: d.AmountRequested,
		Birthdate:       d.Birthdate,
		Installments:    d.Installments,
		ProcessedAt:     d.ProcessedAt,
		CreatedAt:       d.CreatedAt,
	}
	if d.BatchID != "" {
		batchID := d.BatchID
		m.BatchID = &batchID
	}
	if d.InstallmentAmount != nil {
		m.InstallmentAmount = decimal.NullDecimal{Decimal: *d.InstallmentAmount, Valid: true}
	}
	if d.TotalAmount != nil {
		m.TotalAmount = decimal.NullDecimal{Decimal: *d.TotalAmount, Valid: true}
	}
	if d.TotalFee != nil {
		m.TotalFee = decimal.NullDecimal{Decimal: *d.TotalFee, Valid: true}
	}
	return m
}

func toDomainSimulation(m models.Simulation) domain.SimulationRecord {
	d := domain.SimulationRecord{
		SimulationID:    m.SimulationID,
		Status:          domain.SimulationStatus(m.Status),
		AmountRequested: m.AmountRequested,
		Birthdate:       m.Birthdate,
		Installments:    m.Installments,
		ProcessedAt:     m.ProcessedAt,
		CreatedAt:       m.CreatedAt,
	}
	if m.BatchID != nil {
		d.BatchID = *m.BatchID
	}
	if m.InstallmentAmount.Valid {
		v := m.InstallmentAmount.Decimal
		d.InstallmentAmount = &v
	}
	if m.TotalAmount.Valid {
		v := m.TotalAmount.Decimal
		d.TotalAmount = &v
	}
	if m.TotalFee.Valid {
		v := m.TotalFee.Decimal
		d.TotalFee = &v
	}
	return d
}

// SaveSimulation inserts the record exactly once. ON CONFLICT DO NOTHING
// turns a redelivered unit into a no-op, reported through the bool so the
// caller knows not to advance the batch counters.
func (r *PgxSimulationRepository) SaveSimulation(ctx context.Context, record domain.SimulationRecord) (bool, error) {
	m := toModelSimulation(record)

	query := `
		INSERT INTO simulation (simulation_id, batch_id, status, amount_requested, birthdate, installments, installment_amount, total_amount, total_fee, processed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (simulation_id) DO NOTHING;
	`
	tag, err := r.Pool.Exec(ctx, query,
		m.SimulationID,
		m.BatchID,
		m.Status,
		m.AmountRequested,
		m.Birthdate,
		m.Installments,
		m.InstallmentAmount,
		m.TotalAmount,
		m.TotalFee,
		m.ProcessedAt,
		m.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save simulation %s: %w", m.SimulationID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByBatch returns one page of a batch's records filtered by status,
// newest processed first, plus the total match count. The count and the page
// query run in one transaction on a single connection.
func (r *PgxSimulationRepository) ListByBatch(ctx context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	countQuery := `SELECT COUNT(*) FROM simulation WHERE batch_id = $1 AND status = $2;`

	var total int64
	if err := tx.QueryRow(ctx, countQuery, batchID, string(status)).Scan(&total); err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to count simulations", err)
	}

	query := `
		SELECT simulation_id, batch_id, status, amount_requested, birthdate, installments, installment_amount, total_amount, total_fee, processed_at, created_at
		FROM simulation
		WHERE batch_id = $1 AND status = $2
		ORDER BY processed_at DESC
		LIMIT $3 OFFSET $4;
	`
	rows, err := tx.Query(ctx, query, batchID, string(status), limit, offset)
	if err != nil {
		return nil, 0, apperrors.NewAppError(500, "failed to list simulations", err)
	}
	defer rows.Close()

	records := make([]domain.SimulationRecord, 0)
	for rows.Next() {
		var m models.Simulation
		err := rows.Scan(
			&m.SimulationID,
			&m.BatchID,
			&m.Status,
			&m.AmountRequested,
			&m.Birthdate,
			&m.Installments,
			&m.InstallmentAmount,
			&m.TotalAmount,
			&m.TotalFee,
			&m.ProcessedAt,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, 0, apperrors.NewAppError(500, "failed to scan simulation", err)
		}
		records = append(records, toDomainSimulation(m))
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewAppError(500, "error iterating simulations", err)
	}
	rows.Close()

	if err := r.Commit(ctx, tx); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}
