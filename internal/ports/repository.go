package ports

import (
	"context"

	"itmScreener/internal/domain"
)

// RunRepository defines the interface for storing and retrieving screener runs.
type RunRepository interface {
	// SaveRun persists a run and its ranked contracts.
	SaveRun(ctx context.Context, run *domain.RunRecord) error
	// FindRecentBySymbol retrieves the most recent runs for a symbol, newest first.
	FindRecentBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.RunRecord, error)
	// FindByID retrieves a run and its ranked contracts.
	// Returns nil, nil if not found.
	FindByID(ctx context.Context, id string) (*domain.RunRecord, error)
}

// SnapshotWriter persists the ranked-contract table of the current run.
type SnapshotWriter interface {
	Write(rows []domain.RankedContract, path string) error
	Extension() string
}
