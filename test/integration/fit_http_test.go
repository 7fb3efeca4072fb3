//go:build integration
// +build integration

package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/BAMresearch/McSAS/internal/mcsasd"
	"github.com/BAMresearch/McSAS/internal/scatter"
	"github.com/BAMresearch/McSAS/internal/storage"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/models"
)

func intPtr(i int) *int { return &i }

func syntheticSphereData(t *testing.T) *models.Dataset {
	t.Helper()
	q := make([]float64, 30)
	for i := range q {
		q[i] = 0.02 + 0.015*float64(i)
	}
	m, err := scatter.NewModel(&scatter.Sphere{}, []scatter.ParamRange{{Min: 5, Max: 15}}, q, 2.0/3.0)
	if err != nil {
		t.Fatalf("NewModel error: %v", err)
	}

	intensity := make([]float64, len(q))
	for _, r := range []float64{10, 10, 9, 11, 10, 10.5} {
		for i, v := range m.Curve([]float64{r}) {
			intensity[i] += v
		}
	}
	sigma := make([]float64, len(q))
	for i, v := range intensity {
		sigma[i] = math.Max(0.1*v, 1e-12)
	}
	return &models.Dataset{Q: q, Intensity: intensity, Uncertainty: sigma}
}

// TestIntegration_FitLifecycle drives a complete fit through the HTTP
// surface with SQLite persistence behind it.
func TestIntegration_FitLifecycle(t *testing.T) {
	persist := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "fits.db"))
	if err := persist.Init(context.Background()); err != nil {
		t.Fatalf("store init error: %v", err)
	}
	defer persist.Close()

	store := mcsasd.NewRunStore()
	executor := mcsasd.NewFitExecutor(store, persist)
	ts := httptest.NewServer(mcsasd.NewHTTPServer(store, executor, persist).Handler())
	defer ts.Close()

	body, err := json.Marshal(map[string]any{
		"fit_id": "integration-fit",
		"settings": &config.Settings{
			NumContribs:          10,
			NumReps:              3,
			MaxIterations:        50000,
			MaxRetries:           intPtr(2),
			ConvergenceCriterion: 1.0,
			Seed:                 11,
			Workers:              2,
			Model:                &config.Model{Name: "sphere", Bounds: [][2]float64{{5, 15}}},
		},
		"data": syntheticSphereData(t),
	})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	resp, err := http.Post(ts.URL+"/v1/fits", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /v1/fits error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// Poll until terminal
	deadline := time.Now().Add(60 * time.Second)
	var status string
	for time.Now().Before(deadline) {
		r, err := http.Get(ts.URL + "/v1/fits/integration-fit")
		if err != nil {
			t.Fatalf("GET fit error: %v", err)
		}
		var payload struct {
			Fit struct {
				Status string `json:"status"`
			} `json:"fit"`
			Stats *struct {
				NumRuns      int `json:"num_runs"`
				NumConverged int `json:"num_converged"`
			} `json:"stats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		r.Body.Close()

		status = payload.Fit.Status
		if status == "completed" {
			if payload.Stats == nil {
				t.Fatal("completed fit has no stats")
			}
			if payload.Stats.NumRuns != 3 {
				t.Fatalf("expected 3 runs, got %d", payload.Stats.NumRuns)
			}
			if payload.Stats.NumConverged == 0 {
				t.Fatal("expected at least one converged repetition")
			}
			break
		}
		if status == "failed" || status == "cancelled" {
			t.Fatalf("fit ended in status %s", status)
		}
		time.Sleep(50 * time.Millisecond)
	}
	if status != "completed" {
		t.Fatalf("fit did not complete in time, last status %s", status)
	}

	// The record survives the in-memory store
	stored, found, err := persist.GetFit(context.Background(), "integration-fit")
	if err != nil {
		t.Fatalf("GetFit error: %v", err)
	}
	if !found {
		t.Fatal("fit not persisted")
	}
	if stored.Status != "completed" {
		t.Fatalf("persisted status %s", stored.Status)
	}
	if len(stored.Repetitions) != 3 {
		t.Fatalf("expected 3 persisted repetitions, got %d", len(stored.Repetitions))
	}
}
