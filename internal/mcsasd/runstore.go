package mcsasd

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BAMresearch/McSAS/internal/ensemble"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/models"
)

// Status tracks a fit job through its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Progress is the latest reported optimization position of a running fit.
type Progress struct {
	Repetition   int     `json:"repetition"`
	Iteration    int     `json:"iteration"`
	ReducedChiSq float64 `json:"reducedChiSq"`
}

// FitRecord is the in-memory state of a submitted fit.
type FitRecord struct {
	ID              string
	Status          Status
	CreatedAtUnixMs int64
	StartedAtUnixMs int64
	EndedAtUnixMs   int64
	Error           string

	Settings *config.Settings
	Data     *models.Dataset

	Progress Progress
	Result   *ensemble.Result
}

// RunStore holds all fits known to the daemon, keyed by id.
type RunStore struct {
	mu   sync.RWMutex
	fits map[string]*FitRecord
}

func NewRunStore() *RunStore {
	return &RunStore{
		fits: make(map[string]*FitRecord),
	}
}

func nowUnixMs() int64 {
	return time.Now().UTC().UnixMilli()
}

func (s *RunStore) Create(fitID string, settings *config.Settings, data *models.Dataset) (*FitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if fitID == "" {
		fitID = uuid.NewString()
	}
	if _, exists := s.fits[fitID]; exists {
		return nil, fmt.Errorf("fit already exists: %s", fitID)
	}

	rec := &FitRecord{
		ID:              fitID,
		Status:          StatusPending,
		CreatedAtUnixMs: nowUnixMs(),
		Settings:        settings,
		Data:            data,
	}
	s.fits[fitID] = rec
	return rec, nil
}

func (s *RunStore) Get(fitID string) (*FitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.fits[fitID]
	return rec, ok
}

// Snapshot returns a copy of the record safe to read without holding the
// store lock. The Settings, Data and Result pointers are shared; they are
// never mutated after being set.
func (s *RunStore) Snapshot(fitID string) (FitRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.fits[fitID]
	if !ok {
		return FitRecord{}, false
	}
	return *rec, true
}

func (s *RunStore) List() []FitRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]FitRecord, 0, len(s.fits))
	for _, rec := range s.fits {
		out = append(out, *rec)
	}
	return out
}

func (s *RunStore) SetStatus(fitID string, status Status, errMsg string) (FitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.fits[fitID]
	if !ok {
		return FitRecord{}, fmt.Errorf("fit not found: %s", fitID)
	}
	return applyStatusLocked(rec, status, errMsg), nil
}

// SetStatusIf updates the status only while the current status matches
// from, keeping check and transition under one lock. It reports whether
// the transition was applied.
func (s *RunStore) SetStatusIf(fitID string, from, to Status, errMsg string) (FitRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.fits[fitID]
	if !ok {
		return FitRecord{}, false, fmt.Errorf("fit not found: %s", fitID)
	}
	if rec.Status != from {
		return *rec, false, nil
	}
	return applyStatusLocked(rec, to, errMsg), true, nil
}

// MarkCancelled sets StatusCancelled unless the fit already reached a
// terminal status. It reports whether the transition was applied.
func (s *RunStore) MarkCancelled(fitID string) (FitRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.fits[fitID]
	if !ok {
		return FitRecord{}, false, fmt.Errorf("fit not found: %s", fitID)
	}
	if rec.Status.Terminal() {
		return *rec, false, nil
	}
	return applyStatusLocked(rec, StatusCancelled, ""), true, nil
}

func applyStatusLocked(rec *FitRecord, status Status, errMsg string) FitRecord {
	rec.Status = status
	if errMsg != "" {
		rec.Error = errMsg
	}

	switch status {
	case StatusRunning:
		if rec.StartedAtUnixMs == 0 {
			rec.StartedAtUnixMs = nowUnixMs()
		}
	case StatusCompleted, StatusFailed, StatusCancelled:
		if rec.EndedAtUnixMs == 0 {
			rec.EndedAtUnixMs = nowUnixMs()
		}
	}

	return *rec
}

func (s *RunStore) SetProgress(fitID string, progress Progress) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.fits[fitID]; ok {
		rec.Progress = progress
	}
}

func (s *RunStore) SetResult(fitID string, result *ensemble.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.fits[fitID]
	if !ok {
		return fmt.Errorf("fit not found: %s", fitID)
	}
	rec.Result = result
	return nil
}
