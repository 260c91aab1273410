// Package store persists filtering run history behind a driver-agnostic
// interface, with SQLite for local use and PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/phylo-tools/strainfilter/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Metadata string          `json:"metadata,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// CreateRun records the start of a run: the metadata path it reads and a
	// JSON snapshot of the options it runs with.
	CreateRun(ctx context.Context, metadata string, options []byte) (*model.FilterRun, error)

	// CompleteRun marks a run complete and stores its outcome.
	CompleteRun(ctx context.Context, runID string, outcome *model.Outcome) error

	// FailRun marks a run failed with the error it failed on.
	FailRun(ctx context.Context, runID string, cause string) error

	GetRun(ctx context.Context, runID string) (*model.FilterRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.FilterRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
