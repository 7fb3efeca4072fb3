package mcsasd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BAMresearch/McSAS/internal/ensemble"
	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/internal/storage"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/logger"
	"github.com/BAMresearch/McSAS/pkg/models"
)

var (
	ErrFitNotFound  = errors.New("fit not found")
	ErrFitTerminal  = errors.New("fit is terminal")
	ErrFitIDMissing = errors.New("fit id is required")
)

// FitExecutor manages asynchronous fit execution and per-fit cancellation.
type FitExecutor struct {
	store   *RunStore
	persist storage.Store

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

func NewFitExecutor(store *RunStore, persist storage.Store) *FitExecutor {
	return &FitExecutor{
		store:   store,
		persist: persist,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Start begins executing a fit asynchronously.
// Returns the updated record (running) or an error.
func (e *FitExecutor) Start(fitID string) (FitRecord, error) {
	if fitID == "" {
		return FitRecord{}, ErrFitIDMissing
	}

	rec, ok := e.store.Snapshot(fitID)
	if !ok {
		return FitRecord{}, fmt.Errorf("%w: %s", ErrFitNotFound, fitID)
	}

	switch {
	case rec.Status == StatusRunning:
		return rec, nil
	case rec.Status.Terminal():
		return FitRecord{}, fmt.Errorf("%w: %s", ErrFitTerminal, fitID)
	}

	updated, err := e.store.SetStatus(fitID, StatusRunning, "")
	if err != nil {
		return FitRecord{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	if old, exists := e.cancels[fitID]; exists {
		old()
	}
	e.cancels[fitID] = cancel
	e.mu.Unlock()

	go e.runFit(ctx, fitID)
	return updated, nil
}

// Stop requests cancellation for a running fit and marks it cancelled.
func (e *FitExecutor) Stop(fitID string) (FitRecord, error) {
	if fitID == "" {
		return FitRecord{}, ErrFitIDMissing
	}

	rec, ok := e.store.Snapshot(fitID)
	if !ok {
		return FitRecord{}, fmt.Errorf("%w: %s", ErrFitNotFound, fitID)
	}
	if rec.Status.Terminal() {
		return rec, nil
	}

	e.mu.Lock()
	cancel, ok := e.cancels[fitID]
	e.mu.Unlock()
	if ok {
		cancel()
	}

	updated, _, err := e.store.MarkCancelled(fitID)
	return updated, err
}

func (e *FitExecutor) cleanup(fitID string) {
	e.mu.Lock()
	if cancel, ok := e.cancels[fitID]; ok {
		cancel()
		delete(e.cancels, fitID)
	}
	e.mu.Unlock()
}

func (e *FitExecutor) runFit(ctx context.Context, fitID string) {
	defer e.cleanup(fitID)

	rec, ok := e.store.Snapshot(fitID)
	if !ok {
		logger.Error("fit not found", "fit_id", fitID)
		return
	}

	model, err := BuildModel(rec.Settings, rec.Data)
	if err != nil {
		e.fail(fitID, fmt.Sprintf("invalid model: %v", err))
		return
	}

	coord, err := ensemble.NewCoordinator(model, rec.Data, rec.Settings)
	if err != nil {
		e.fail(fitID, fmt.Sprintf("invalid fit request: %v", err))
		return
	}
	coord.WithProgressReporter(func(repetition, iteration int, chiSq float64) {
		e.store.SetProgress(fitID, Progress{
			Repetition:   repetition,
			Iteration:    iteration,
			ReducedChiSq: chiSq,
		})
	})

	logger.Info("starting fit", "fit_id", fitID,
		"num_reps", rec.Settings.NumReps,
		"num_contribs", rec.Settings.NumContribs)

	result, err := coord.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("fit cancelled", "fit_id", fitID)
			e.persistFit(fitID)
			return
		}
		logger.Error("fit failed", "fit_id", fitID, "error", err)
		e.fail(fitID, err.Error())
		return
	}

	if err := e.store.SetResult(fitID, result); err != nil {
		logger.Error("failed to store result", "fit_id", fitID, "error", err)
		return
	}

	// compare-and-set so a concurrent Stop cannot be overwritten
	_, applied, err := e.store.SetStatusIf(fitID, StatusRunning, StatusCompleted, "")
	if err != nil {
		logger.Error("failed to set completed status", "fit_id", fitID, "error", err)
	} else if applied {
		logger.Info("fit completed", "fit_id", fitID,
			"converged", result.Stats.NumConverged,
			"reps", result.Stats.NumRuns,
			"elapsed", result.Elapsed)
	}
	e.persistFit(fitID)
}

func (e *FitExecutor) fail(fitID, msg string) {
	if _, _, err := e.store.SetStatusIf(fitID, StatusRunning, StatusFailed, msg); err != nil {
		logger.Error("failed to set failed status", "fit_id", fitID, "error", err)
		return
	}
	e.persistFit(fitID)
}

func (e *FitExecutor) persistFit(fitID string) {
	if e.persist == nil {
		return
	}
	rec, ok := e.store.Snapshot(fitID)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.persist.SaveFit(ctx, buildStorageRecord(rec)); err != nil {
		logger.Error("failed to persist fit", "fit_id", fitID, "error", err)
	}
}

func buildStorageRecord(rec FitRecord) storage.FitRecord {
	out := storage.FitRecord{
		SchemaVersion: storage.CurrentSchemaVersion,
		ID:            rec.ID,
		Status:        string(rec.Status),
		CreatedAt:     time.UnixMilli(rec.CreatedAtUnixMs).UTC(),
		Settings:      rec.Settings,
		Error:         rec.Error,
	}
	if rec.EndedAtUnixMs != 0 {
		completed := time.UnixMilli(rec.EndedAtUnixMs).UTC()
		out.CompletedAt = &completed
	}
	if rec.Result != nil {
		out.Stats = rec.Result.Stats
		out.Repetitions = make([]storage.RepetitionSummary, 0, len(rec.Result.Repetitions))
		for i, res := range rec.Result.Repetitions {
			summary := storage.RepetitionSummary{
				Index:      i,
				State:      res.State,
				Converged:  res.Converged,
				Fit:        res.Fit,
				Iterations: res.TotalIterations,
			}
			if res.Population != nil {
				summary.Params = res.Population.ParamMatrix()
				summary.Weights = res.Population.Weights()
			}
			out.Repetitions = append(out.Repetitions, summary)
		}
	}
	return out
}

// BuildModel assembles the scattering model a fit request describes,
// deriving parameter bounds from the measured q range when the request
// leaves them unset.
func BuildModel(settings *config.Settings, data *models.Dataset) (*scatter.Model, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if data == nil {
		return nil, fmt.Errorf("dataset is required")
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	modelCfg := settings.Model
	if modelCfg == nil {
		modelCfg = &config.Model{}
	}

	ff, err := scatter.NewFormFactor(modelCfg.Name)
	if err != nil {
		return nil, err
	}

	var bounds []scatter.ParamRange
	if len(modelCfg.Bounds) == 0 {
		qMin, qMax := data.QRange()
		bounds = scatter.DefaultBounds(ff, qMin, qMax)
	} else {
		if len(modelCfg.Bounds) != ff.NumParams() {
			return nil, fmt.Errorf("model %s needs %d parameter bounds, got %d",
				ff.Name(), ff.NumParams(), len(modelCfg.Bounds))
		}
		bounds = make([]scatter.ParamRange, len(modelCfg.Bounds))
		for i, b := range modelCfg.Bounds {
			bounds[i] = scatter.ParamRange{Min: b[0], Max: b[1]}
		}
	}
	if modelCfg.LogSampling {
		for i := range bounds {
			bounds[i].LogSample = true
		}
	}

	return scatter.NewModel(ff, bounds, data.Q, settings.Compensation())
}
