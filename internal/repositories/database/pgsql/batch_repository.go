package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lucasmedeiros/credit_engine/internal/apperrors"
	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
	"github.com/lucasmedeiros/credit_engine/internal/models"
)

type PgxBatchRepository struct {
	BaseRepository
}

// NewBatchRepository creates a new repository for batch data.
func NewBatchRepository(pool *pgxpool.Pool) portsrepo.BatchRepository {
	return &PgxBatchRepository{BaseRepository{Pool: pool}}
}

var _ portsrepo.BatchRepository = (*PgxBatchRepository)(nil)

func toModelBatch(d domain.Batch) models.Batch {
	return models.Batch{
		BatchID:              d.BatchID,
		Status:               string(d.Status),
		TotalSimulations:     d.TotalSimulations,
		CompletedSimulations: d.CompletedSimulations,
		FailedSimulations:    d.FailedSimulations,
		CreatedAt:            d.CreatedAt,
		CompletedAt:          d.CompletedAt,
	}
}

func toDomainBatch(m models.Batch) domain.Batch {
	return domain.Batch{
		BatchID:              m.BatchID,
		Status:               domain.BatchStatus(m.Status),
		TotalSimulations:     m.TotalSimulations,
		CompletedSimulations: m.CompletedSimulations,
		FailedSimulations:    m.FailedSimulations,
		CreatedAt:            m.CreatedAt,
		CompletedAt:          m.CompletedAt,
	}
}

const batchColumns = `batch_id, status, total_simulations, completed_simulations, failed_simulations, created_at, completed_at`

// SaveBatch inserts a new batch. The batch row is immutable afterwards
// except for the counters and the completion columns.
func (r *PgxBatchRepository) SaveBatch(ctx context.Context, batch domain.Batch) error {
	m := toModelBatch(batch)

	query := `
		INSERT INTO batch_simulation (batch_id, status, total_simulations, completed_simulations, failed_simulations, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.BatchID,
		m.Status,
		m.TotalSimulations,
		m.CompletedSimulations,
		m.FailedSimulations,
		m.CreatedAt,
		m.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique violation
			return fmt.Errorf("%w: batch with ID %s already exists", apperrors.ErrDuplicate, m.BatchID)
		}
		return fmt.Errorf("failed to save batch %s: %w", m.BatchID, err)
	}
	return nil
}

// FindBatchByID fetches a batch snapshot.
func (r *PgxBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batch_simulation WHERE batch_id = $1;`

	m, err := r.scanBatchRow(r.Pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, batchID)
		}
		return nil, apperrors.NewAppError(500, fmt.Sprintf("failed to find batch %s", batchID), err)
	}

	batch := toDomainBatch(m)
	return &batch, nil
}

// IncrementCompleted atomically adds one to the completed counter and
// returns the post-increment snapshot. The increment happens entirely in the
// database, so concurrent finishers cannot lose updates.
func (r *PgxBatchRepository) IncrementCompleted(ctx context.Context, batchID string) (*domain.Batch, error) {
	return r.increment(ctx, batchID, "completed_simulations")
}

// IncrementFailed atomically adds one to the failed counter and returns the
// post-increment snapshot.
func (r *PgxBatchRepository) IncrementFailed(ctx context.Context, batchID string) (*domain.Batch, error) {
	return r.increment(ctx, batchID, "failed_simulations")
}

func (r *PgxBatchRepository) increment(ctx context.Context, batchID, column string) (*domain.Batch, error) {
	// column is one of two compile-time constants, never user input.
	query := `
		UPDATE batch_simulation
		SET ` + column + ` = ` + column + ` + 1
		WHERE batch_id = $1
		RETURNING ` + batchColumns + `;
	`
	m, err := r.scanBatchRow(r.Pool.QueryRow(ctx, query, batchID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: batch %s", apperrors.ErrNotFound, batchID)
		}
		return nil, apperrors.NewAppError(500, fmt.Sprintf("failed to increment %s for batch %s", column, batchID), err)
	}

	batch := toDomainBatch(m)
	return &batch, nil
}

// MarkCompleted performs the one-time transition to COMPLETED. The WHERE
// clause makes it idempotent under concurrent finalize attempts: only the
// first caller matches a non-COMPLETED row, so completed_at is set exactly
// once and the status never oscillates.
func (r *PgxBatchRepository) MarkCompleted(ctx context.Context, batchID string, completedAt time.Time) (bool, error) {
	query := `
		UPDATE batch_simulation
		SET status = $2, completed_at = $3
		WHERE batch_id = $1
		  AND status <> $2
		  AND completed_simulations + failed_simulations >= total_simulations;
	`
	tag, err := r.Pool.Exec(ctx, query, batchID, string(domain.BatchStatusCompleted), completedAt)
	if err != nil {
		return false, apperrors.NewAppError(500, fmt.Sprintf("failed to mark batch %s completed", batchID), err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PgxBatchRepository) scanBatchRow(row pgx.Row) (models.Batch, error) {
	var m models.Batch
	err := row.Scan(
		&m.BatchID,
		&m.Status,
		&m.TotalSimulations,
		&m.CompletedSimulations,
		&m.FailedSimulations,
		&m.CreatedAt,
		&m.CompletedAt,
	)
	return m, err
}
