// Package ensemble runs the configured number of independent Monte Carlo
// repetitions on parallel workers and aggregates their results into
// ensemble statistics.
package ensemble

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sourcegraph/conc/pool"

	"github.com/BAMresearch/McSAS/internal/montecarlo"
	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/logger"
	"github.com/BAMresearch/McSAS/pkg/models"
	"github.com/BAMresearch/McSAS/pkg/utils"
)

// ProgressFunc receives per-repetition progress during a running ensemble
type ProgressFunc func(repetition, iteration int, chiSq float64)

// Result collects every repetition plus the aggregated statistics
type Result struct {
	// Repetitions is ordered by repetition index
	Repetitions []*montecarlo.RunResult
	Stats       *Statistics
	Elapsed     time.Duration
}

// Coordinator executes numReps independent optimization runs. Each run owns
// its population, fit state and random stream; the only synchronization
// point is the join before aggregation.
type Coordinator struct {
	model    *scatter.Model
	data     *models.Dataset
	settings *config.Settings
	progress ProgressFunc
}

// NewCoordinator validates inputs once so misconfigurations fail before any
// worker is spawned
func NewCoordinator(model *scatter.Model, data *models.Dataset, settings *config.Settings) (*Coordinator, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}
	// constructing a throwaway engine runs the full input validation,
	// including the degrees-of-freedom check
	if _, err := montecarlo.NewEngine(model, data, engineConfig(settings), utils.NewRandSource(1)); err != nil {
		return nil, err
	}
	return &Coordinator{
		model:    model,
		data:     data,
		settings: settings,
	}, nil
}

// WithProgressReporter sets the progress callback forwarded to every run
func (c *Coordinator) WithProgressReporter(f ProgressFunc) *Coordinator {
	c.progress = f
	return c
}

func engineConfig(s *config.Settings) montecarlo.Config {
	return montecarlo.Config{
		NumContribs:          s.NumContribs,
		MaxIterations:        s.MaxIterations,
		MaxRetries:           s.MaxRetryBudget(),
		ConvergenceCriterion: s.ConvergenceCriterion,
		CompensationExponent: s.Compensation(),
		FindBackground:       s.FindBackgroundEnabled(),
		PositiveBackground:   s.PositiveBackground,
		StartFromMinimum:     s.StartFromMinimum,
	}
}

// repetition pairs a run result with its submission index so ordering does
// not depend on worker scheduling
type repetition struct {
	index  int
	result *montecarlo.RunResult
}

// Run executes all repetitions and aggregates the converged ones (or all,
// when showIncomplete is set). It returns NoConvergedRunsError when no
// repetition converged and incomplete results are suppressed.
func (c *Coordinator) Run(ctx context.Context) (*Result, error) {
	numReps := c.settings.NumReps
	workers := c.settings.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	base := utils.NewRandSource(c.settings.Seed)
	streams := make([]*utils.RandSource, numReps)
	for i := range streams {
		streams[i] = base.Stream(i)
	}

	start := time.Now()
	var finished atomic.Int64

	p := pool.NewWithResults[repetition]().WithContext(ctx).WithMaxGoroutines(workers)
	for i := 0; i < numReps; i++ {
		rep := i
		p.Go(func(ctx context.Context) (repetition, error) {
			eng, err := montecarlo.NewEngine(c.model, c.data, engineConfig(c.settings), streams[rep])
			if err != nil {
				return repetition{}, fmt.Errorf("repetition %d: %w", rep, err)
			}
			if c.progress != nil {
				eng.WithProgressReporter(func(iter int, chiSq float64) {
					c.progress(rep, iter, chiSq)
				})
			}
			res, err := eng.Run(ctx)
			if err != nil {
				return repetition{}, fmt.Errorf("repetition %d: %w", rep, err)
			}
			c.logRepetition(rep, numReps, res, start, int(finished.Add(1)))
			return repetition{index: rep, result: res}, nil
		})
	}

	reps, err := p.Wait()
	if err != nil {
		return nil, err
	}
	sort.Slice(reps, func(i, j int) bool { return reps[i].index < reps[j].index })

	results := make([]*montecarlo.RunResult, len(reps))
	converged := make([]*montecarlo.RunResult, 0, len(reps))
	for i, r := range reps {
		results[i] = r.result
		if r.result.Converged {
			converged = append(converged, r.result)
		}
	}

	showIncomplete := c.settings.ShowIncomplete
	if len(converged) == 0 && !showIncomplete {
		return nil, &NoConvergedRunsError{Attempted: len(results)}
	}

	included := converged
	includesIncomplete := false
	if showIncomplete && len(converged) < len(results) {
		included = results
		includesIncomplete = true
	}

	return &Result{
		Repetitions: results,
		Stats:       computeStatistics(results, included, len(converged), includesIncomplete),
		Elapsed:     time.Since(start),
	}, nil
}

// logRepetition reports per-repetition timing with a completion estimate
func (c *Coordinator) logRepetition(rep, numReps int, res *montecarlo.RunResult, start time.Time, finished int) {
	elapsed := time.Since(start)
	average := elapsed / time.Duration(finished)
	remaining := average*time.Duration(numReps) - elapsed
	if remaining < 0 {
		remaining = 0
	}
	logger.Info("finished repetition",
		"repetition", rep+1,
		"of", numReps,
		"state", string(res.State),
		"chi_sq", res.Fit.ReducedChiSq,
		"iterations", humanize.Comma(int64(res.TotalIterations)),
		"elapsed", elapsed.Round(time.Millisecond).String(),
		"avg_per_repetition", average.Round(time.Millisecond).String(),
		"est_remaining", remaining.Round(time.Millisecond).String(),
	)
}

// NoConvergedRunsError indicates that every repetition failed to converge
// and incomplete results were not requested
type NoConvergedRunsError struct {
	Attempted int
}

func (e *NoConvergedRunsError) Error() string {
	return fmt.Sprintf("no converged runs out of %d repetitions (set showIncomplete to inspect partial results)", e.Attempted)
}
