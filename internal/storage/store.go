package storage

import (
	"context"
	"time"

	"github.com/BAMresearch/McSAS/internal/ensemble"
	"github.com/BAMresearch/McSAS/internal/montecarlo"
	"github.com/BAMresearch/McSAS/pkg/config"
)

// RepetitionSummary is the persisted form of a single optimization run.
type RepetitionSummary struct {
	Index      int                 `json:"index"`
	State      montecarlo.State    `json:"state"`
	Converged  bool                `json:"converged"`
	Fit        montecarlo.FitState `json:"fit"`
	Iterations int                 `json:"iterations"`
	Params     [][]float64         `json:"params,omitempty"`
	Weights    []float64           `json:"weights,omitempty"`
}

// FitRecord is the persisted form of a fit job, from submission through
// its final ensemble statistics.
type FitRecord struct {
	SchemaVersion int                  `json:"schemaVersion"`
	ID            string               `json:"id"`
	Status        string               `json:"status"`
	CreatedAt     time.Time            `json:"createdAt"`
	CompletedAt   *time.Time           `json:"completedAt,omitempty"`
	Settings      *config.Settings     `json:"settings,omitempty"`
	Error         string               `json:"error,omitempty"`
	Stats         *ensemble.Statistics `json:"stats,omitempty"`
	Repetitions   []RepetitionSummary  `json:"repetitions,omitempty"`
}

// Store defines persistence operations for completed and in-flight fits.
type Store interface {
	Init(ctx context.Context) error
	SaveFit(ctx context.Context, record FitRecord) error
	GetFit(ctx context.Context, id string) (FitRecord, bool, error)
	ListFits(ctx context.Context) ([]FitRecord, error)
	Close() error
}
