// Package store records pipeline runs and the workspace layers they created.
package store

import (
	"context"
	"time"

	"github.com/sells-group/rws-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Country string          `json:"country,omitempty"`
	Name    string          `json:"name,omitempty"`
	// CreatedAfter, when non-zero, keeps runs created at or after this time.
	CreatedAfter time.Time `json:"created_after,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

// Store defines the persistence interface for run history.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, name, country string, method model.Method) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, result *model.Result) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Layers
	AddLayers(ctx context.Context, runID string, layers []model.Layer) error
	Layers(ctx context.Context, runID string) ([]model.Layer, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

func errorText(cause error) string {
	if cause == nil {
		return "unknown error"
	}
	return cause.Error()
}
