// Package montecarlo drives one independent Monte Carlo optimization run:
// greedy single-contribution moves accepted only when the reduced
// chi-squared does not worsen, with restart-on-exhaustion retries.
package montecarlo

import (
	"context"
	"fmt"
	"time"

	"github.com/BAMresearch/McSAS/internal/fit"
	"github.com/BAMresearch/McSAS/internal/population"
	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/pkg/models"
	"github.com/BAMresearch/McSAS/pkg/utils"
)

// State is the engine's lifecycle state
type State string

const (
	StateInitializing State = "initializing"
	StateIterating    State = "iterating"
	StateConverged    State = "converged"
	StateExhausted    State = "exhausted"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether the state ends a run
func (s State) Terminal() bool {
	switch s {
	case StateConverged, StateExhausted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Config holds the per-run optimization parameters
type Config struct {
	NumContribs          int
	MaxIterations        int
	MaxRetries           int
	ConvergenceCriterion float64
	CompensationExponent float64
	FindBackground       bool
	PositiveBackground   bool
	StartFromMinimum     bool
	// ProgressEvery bounds the progress callback cadence in proposals.
	// Zero selects the default.
	ProgressEvery int
}

const defaultProgressEvery = 1000

// FitState is the scalar state of a run: the current fit quality, the
// fitted scale and background, and the proposal/attempt counters.
type FitState struct {
	ReducedChiSq float64 `json:"reduced_chi_sq"`
	Scale        float64 `json:"scale"`
	Background   float64 `json:"background"`
	Iteration    int     `json:"iteration"`
	Attempt      int     `json:"attempt"`
}

// RunResult is the immutable terminal snapshot of one run
type RunResult struct {
	// Population is the final (possibly partial, when cancelled)
	// contribution set
	Population *population.Population
	Fit        FitState
	State      State
	Converged  bool
	// TotalIterations counts proposals across all attempts of this run
	TotalIterations int
	// ModelIntensity is the final scaled model curve scale*I + background
	ModelIntensity []float64
	Elapsed        time.Duration
}

// ProgressFunc receives the current proposal count and fit quality at a
// bounded cadence during Iterating
type ProgressFunc func(iteration int, chiSq float64)

// Engine performs one independent Monte Carlo run. It owns its random
// source and population; nothing is shared with other engines.
type Engine struct {
	model         *scatter.Model
	data          *models.Dataset
	cfg           Config
	rng           *utils.RandSource
	progress      ProgressFunc
	progressEvery int
	state         State
}

// NewEngine creates an engine for the given model, data and configuration.
// The caller supplies the run's private random source.
func NewEngine(model *scatter.Model, data *models.Dataset, cfg Config, rng *utils.RandSource) (*Engine, error) {
	if model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	if model.NumQ() != data.Len() {
		return nil, fmt.Errorf("model q-sampling (%d) does not match dataset (%d)", model.NumQ(), data.Len())
	}
	if cfg.NumContribs < 1 {
		return nil, fmt.Errorf("numContribs must be at least 1, got %d", cfg.NumContribs)
	}
	if cfg.MaxIterations < 1 {
		return nil, fmt.Errorf("maxIterations must be at least 1, got %d", cfg.MaxIterations)
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("maxRetries cannot be negative, got %d", cfg.MaxRetries)
	}
	if rng == nil {
		rng = utils.NewRandSource(0)
	}
	if dof := fit.DegreesOfFreedom(data.Len(), fitOptions(cfg)); dof <= 0 {
		return nil, &fit.DegenerateFitError{Samples: data.Len(), FreeParams: fitOptions(cfg).FreeParams()}
	}
	progressEvery := cfg.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = defaultProgressEvery
	}
	return &Engine{
		model:         model,
		data:          data,
		cfg:           cfg,
		rng:           rng,
		progressEvery: progressEvery,
		state:         StateInitializing,
	}, nil
}

// WithProgressReporter sets the progress callback
func (e *Engine) WithProgressReporter(f ProgressFunc) *Engine {
	e.progress = f
	return e
}

// State returns the engine's current state
func (e *Engine) State() State {
	return e.state
}

func fitOptions(cfg Config) fit.Options {
	return fit.Options{
		FindBackground:     cfg.FindBackground,
		PositiveBackground: cfg.PositiveBackground,
	}
}

// Run executes the full run: up to 1+maxRetries attempts, each a fresh
// population iterated until convergence, exhaustion or cancellation.
// Errors are fatal to the run (degenerate fit, invalid inputs); exhaustion
// and failure are reported through the result state, not as errors.
func (e *Engine) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	totalIterations := 0

	var last *RunResult
	for attempt := 1; attempt <= e.cfg.MaxRetries+1; attempt++ {
		res, err := e.runAttempt(ctx, attempt)
		if err != nil {
			e.state = StateFailed
			return nil, err
		}
		totalIterations += res.Fit.Iteration
		res.TotalIterations = totalIterations
		res.Elapsed = time.Since(start)
		if res.State == StateConverged || res.State == StateCancelled {
			e.state = res.State
			return res, nil
		}
		last = res
	}

	// every attempt exhausted its iteration budget
	last.State = StateFailed
	last.Converged = false
	e.state = StateFailed
	return last, nil
}

// runAttempt performs one initialize-and-iterate cycle
func (e *Engine) runAttempt(ctx context.Context, attempt int) (*RunResult, error) {
	e.state = StateInitializing
	strategy := population.InitRandom
	if e.cfg.StartFromMinimum {
		strategy = population.InitMinimumSeeded
	}
	pop, err := population.New(e.model, e.cfg.NumContribs, strategy, e.rng)
	if err != nil {
		return nil, fmt.Errorf("population initialization failed: %w", err)
	}

	opts := fitOptions(e.cfg)
	cur, err := fit.Evaluate(pop.AggregateIntensity(), e.data.Intensity, e.data.Uncertainty, opts)
	if err != nil {
		return nil, err
	}

	e.state = StateIterating
	iter := 0
	for cur.ReducedChiSq > e.cfg.ConvergenceCriterion && iter < e.cfg.MaxIterations {
		select {
		case <-ctx.Done():
			return e.buildResult(pop, cur, StateCancelled, iter, attempt), nil
		default:
		}

		iter++

		candidate := e.drawCandidate()
		next, err := scatter.NewContribution(e.model, candidate)
		if err != nil {
			// out-of-range proposals count against the budget; resample
			continue
		}

		idx := e.rng.Intn(pop.Size())
		prev := pop.Member(idx)
		if err := pop.ReplaceContribution(idx, next); err != nil {
			return nil, err
		}
		trial, err := fit.Evaluate(pop.AggregateIntensity(), e.data.Intensity, e.data.Uncertainty, opts)
		if err != nil {
			return nil, err
		}

		if trial.ReducedChiSq <= cur.ReducedChiSq {
			cur = trial
		} else {
			if err := pop.ReplaceContribution(idx, prev); err != nil {
				return nil, err
			}
		}

		if e.progress != nil && iter%e.progressEvery == 0 {
			e.progress(iter, cur.ReducedChiSq)
		}
	}

	state := StateExhausted
	if cur.ReducedChiSq <= e.cfg.ConvergenceCriterion {
		state = StateConverged
	}
	return e.buildResult(pop, cur, state, iter, attempt), nil
}

// drawCandidate samples parameter vectors until one satisfies the declared
// ranges. Uniform draws are always in range; the loop guards custom
// samplers.
func (e *Engine) drawCandidate() []float64 {
	for {
		params := e.model.Draw(e.rng)
		if e.model.Check(params) == nil {
			return params
		}
	}
}

func (e *Engine) buildResult(pop *population.Population, cur fit.Result, state State, iter, attempt int) *RunResult {
	agg := pop.AggregateIntensity()
	scaled := make([]float64, len(agg))
	for i, v := range agg {
		scaled[i] = cur.Scale*v + cur.Background
	}
	return &RunResult{
		Population: pop,
		Fit: FitState{
			ReducedChiSq: cur.ReducedChiSq,
			Scale:        cur.Scale,
			Background:   cur.Background,
			Iteration:    iter,
			Attempt:      attempt,
		},
		State:          state,
		Converged:      state == StateConverged,
		ModelIntensity: scaled,
	}
}
