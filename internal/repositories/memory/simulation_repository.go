package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lucasmedeiros/credit_engine/internal/core/domain"
	portsrepo "github.com/lucasmedeiros/credit_engine/internal/core/ports/repositories"
)

type SimulationRepository struct {
	mu      sync.Mutex
	records map[string]domain.SimulationRecord
}

func NewSimulationRepository() *SimulationRepository {
	return &SimulationRepository{records: make(map[string]domain.SimulationRecord)}
}

var _ portsrepo.SimulationRepository = (*SimulationRepository)(nil)

func (r *SimulationRepository) SaveSimulation(_ context.Context, record domain.SimulationRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.SimulationID]; exists {
		return false, nil
	}
	r.records[record.SimulationID] = record
	return true, nil
}

func (r *SimulationRepository) ListByBatch(_ context.Context, batchID string, status domain.SimulationStatus, limit, offset int) ([]domain.SimulationRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matches := make([]domain.SimulationRecord, 0)
	for _, rec := range r.records {
		if rec.BatchID == batchID && rec.Status == status {
			matches = append(matches, rec)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ProcessedAt.After(matches[j].ProcessedAt)
	})

	total := int64(len(matches))
	if offset >= len(matches) {
		return []domain.SimulationRecord{}, total, nil
	}
	end := offset + limit
	if end > len(matches) {
		end = len(matches)
	}
	return matches[offset:end], total, nil
}
