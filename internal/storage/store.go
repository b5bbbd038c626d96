package storage

import (
	"context"

	"github.com/guttosm/k4ledger/internal/domain/models"
	"github.com/guttosm/k4ledger/internal/fx"
)

// SnapshotStore persists the state carried between tax-year runs.
//
// LoadPositions returns the opening portfolio of year and SavePositions
// stores its closing portfolio. Flat positions are never stored, so saving
// what was loaded is a no-op. LoadReport returns nil, nil when year has no
// stored run.
type SnapshotStore interface {
	LoadPositions(ctx context.Context, year int) (map[string]models.Position, error)
	SavePositions(ctx context.Context, year int, positions map[string]models.Position) error
	LoadRates(ctx context.Context, year int) (map[fx.Key]float64, error)
	SaveRates(ctx context.Context, year int, rates map[fx.Key]float64) error
	SaveReport(ctx context.Context, year int, report *models.Report) error
	LoadReport(ctx context.Context, year int) (*models.Report, error)
	Ping(ctx context.Context) error
}
