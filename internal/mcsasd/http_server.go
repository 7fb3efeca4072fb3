package mcsasd

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BAMresearch/McSAS/internal/storage"
	"github.com/BAMresearch/McSAS/pkg/config"
	"github.com/BAMresearch/McSAS/pkg/logger"
	"github.com/BAMresearch/McSAS/pkg/models"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	persist  storage.Store
	defaults *config.Settings
	Executor *FitExecutor
}

func NewHTTPServer(store *RunStore, executor *FitExecutor, persist storage.Store) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		persist:  persist,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/params", s.handleParams)
	s.mux.HandleFunc("/v1/fits", s.handleFits)
	s.mux.HandleFunc("/v1/fits/", s.handleFitByID)

	return s
}

// WithDefaultSettings sets the settings applied to fit requests that omit
// them. Built-in defaults are used otherwise.
func (s *HTTPServer) WithDefaultSettings(settings *config.Settings) *HTTPServer {
	s.defaults = settings
	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleParams handles GET /v1/params
func (s *HTTPServer) handleParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"params": config.ParameterInfos(),
	})
}

// handleFits handles /v1/fits
func (s *HTTPServer) handleFits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateFit(w, r)
	case http.MethodGet:
		s.handleListFits(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleFitByID handles /v1/fits/{id} and /v1/fits/{id}:cancel
func (s *HTTPServer) handleFitByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/fits/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "fit ID is required")
		return
	}

	if strings.HasSuffix(path, ":cancel") {
		fitID := strings.TrimSuffix(path, ":cancel")
		if r.Method == http.MethodPost {
			s.handleCancelFit(w, r, fitID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetFit(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateFit handles POST /v1/fits
func (s *HTTPServer) handleCreateFit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FitID    string           `json:"fit_id,omitempty"`
		Settings *config.Settings `json:"settings"`
		Data     *models.Dataset  `json:"data"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Data == nil {
		s.writeError(w, http.StatusBadRequest, "data is required")
		return
	}
	settings := req.Settings
	if settings == nil {
		if s.defaults != nil {
			clone := *s.defaults
			settings = &clone
		} else {
			settings = config.DefaultSettings()
		}
	}
	settings.ApplyDefaults()

	// fail before the record exists so bad requests never enter the store
	if _, err := BuildModel(settings, req.Data); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := s.store.Create(req.FitID, settings, req.Data)
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			s.writeError(w, http.StatusConflict, err.Error())
		} else {
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	started, err := s.Executor.Start(rec.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Info("fit created", "fit_id", started.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"fit": convertFitToJSON(started),
	})
}

// handleListFits handles GET /v1/fits with pagination and filtering
func (s *HTTPServer) handleListFits(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	statusFilter := Status(strings.ToLower(r.URL.Query().Get("status")))

	fits := s.store.List()
	sort.Slice(fits, func(i, j int) bool {
		if fits[i].CreatedAtUnixMs == fits[j].CreatedAtUnixMs {
			return fits[i].ID < fits[j].ID
		}
		return fits[i].CreatedAtUnixMs < fits[j].CreatedAtUnixMs
	})

	filtered := make([]FitRecord, 0, len(fits))
	for _, rec := range fits {
		if statusFilter != "" && rec.Status != statusFilter {
			continue
		}
		filtered = append(filtered, rec)
	}

	end := offset + limit
	if offset > len(filtered) {
		offset = len(filtered)
	}
	if end > len(filtered) {
		end = len(filtered)
	}
	page := filtered[offset:end]

	fitsJSON := make([]map[string]any, 0, len(page))
	for _, rec := range page {
		fitsJSON = append(fitsJSON, convertFitToJSON(rec))
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"fits": fitsJSON,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(page),
		},
	})
}

// handleGetFit handles GET /v1/fits/{id}
func (s *HTTPServer) handleGetFit(w http.ResponseWriter, r *http.Request, fitID string) {
	rec, ok := s.store.Snapshot(fitID)
	if ok {
		response := map[string]any{
			"fit": convertFitToJSON(rec),
		}
		if rec.Result != nil {
			stored := buildStorageRecord(rec)
			response["stats"] = stored.Stats
			response["repetitions"] = stored.Repetitions
		}
		s.writeJSON(w, http.StatusOK, response)
		return
	}

	// fall back to persisted fits from earlier daemon sessions
	if s.persist != nil {
		stored, found, err := s.persist.GetFit(r.Context(), fitID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if found {
			response := map[string]any{
				"fit": convertStoredFitToJSON(stored),
			}
			if stored.Stats != nil {
				response["stats"] = stored.Stats
				response["repetitions"] = stored.Repetitions
			}
			s.writeJSON(w, http.StatusOK, response)
			return
		}
	}

	s.writeError(w, http.StatusNotFound, "fit not found")
}

// handleCancelFit handles POST /v1/fits/{id}:cancel
func (s *HTTPServer) handleCancelFit(w http.ResponseWriter, _ *http.Request, fitID string) {
	updated, err := s.Executor.Stop(fitID)
	if err != nil {
		switch {
		case errors.Is(err, ErrFitNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrFitIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("fit cancelled", "fit_id", fitID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fit": convertFitToJSON(updated),
	})
}

// Helper functions

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func convertFitToJSON(rec FitRecord) map[string]any {
	out := map[string]any{
		"id":                 rec.ID,
		"status":             string(rec.Status),
		"created_at_unix_ms": rec.CreatedAtUnixMs,
		"started_at_unix_ms": rec.StartedAtUnixMs,
		"ended_at_unix_ms":   rec.EndedAtUnixMs,
		"error":              rec.Error,
	}
	if rec.Status == StatusRunning {
		out["progress"] = rec.Progress
	}
	return out
}

func convertStoredFitToJSON(rec storage.FitRecord) map[string]any {
	out := map[string]any{
		"id":                 rec.ID,
		"status":             rec.Status,
		"created_at_unix_ms": rec.CreatedAt.UnixMilli(),
		"error":              rec.Error,
	}
	if rec.CompletedAt != nil {
		out["ended_at_unix_ms"] = rec.CompletedAt.UnixMilli()
	}
	return out
}
