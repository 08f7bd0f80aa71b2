package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"runtrack/internal/models"
	"runtrack/internal/store"
	"runtrack/internal/tracker"
)

type RunRouter struct {
	ctx     context.Context
	store   *store.Store
	tracker *tracker.Tracker
	router  chi.Router
}

func (rr *RunRouter) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	rr.router.ServeHTTP(writer, request)
}

func NewRunRouter(ctx context.Context, st *store.Store, trk *tracker.Tracker, router chi.Router) *RunRouter {
	rr := &RunRouter{
		ctx:     ctx,
		store:   st,
		tracker: trk,
		router:  router,
	}
	rr.router.Get("/", rr.ListRuns)
	rr.router.Post("/", rr.BeginRun)
	rr.router.Get("/{runID}", rr.GetRun)
	rr.router.Post("/{runID}/end", rr.EndRun)
	rr.router.Post("/{runID}/override", rr.OverrideRun)

	return rr
}

// ListRuns returns the most recent runs, newest start time first. Running
// and terminal runs are both included; the export endpoint is the filtered
// view.
func (rr *RunRouter) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 50)

	runs, err := rr.store.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to list job runs", http.StatusInternalServerError)
		log.Error().Err(err).Msg("Failed to list job runs")
		return
	}
	if runs == nil {
		runs = []*models.JobRun{}
	}

	serveJson(w, runs)
}

func (rr *RunRouter) GetRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}

	run, err := rr.store.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Job run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get job run", http.StatusInternalServerError)
		log.Error().Err(err).Int64("run_id", runID).Msg("Failed to get job run")
		return
	}

	serveJson(w, run)
}

type beginRunRequest struct {
	JobName string `json:"job_name"`
}

type beginRunResponse struct {
	RunID int64 `json:"run_id"`
}

// BeginRun registers the start of a run. A failure to record the run is an
// error to the caller: a run that cannot be tracked must not appear started.
func (rr *RunRouter) BeginRun(w http.ResponseWriter, r *http.Request) {
	var payload beginRunRequest
	if err := readJson(w, r, &payload); err != nil {
		return
	}
	if payload.JobName == "" {
		http.Error(w, "job_name is required", http.StatusBadRequest)
		return
	}

	runID, err := rr.tracker.Begin(r.Context(), payload.JobName)
	if err != nil {
		http.Error(w, "Failed to register job run", http.StatusInternalServerError)
		log.Error().Err(err).Str("job_name", payload.JobName).Msg("Failed to register job run")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(beginRunResponse{RunID: runID}); err != nil {
		log.Error().Err(err).Msg("JSON encoding issue")
	}
}

type endRunRequest struct {
	Status string `json:"status"`
}

// EndRun registers the terminal status of a run. The response is always
// accepted: end-of-run signaling is best effort and never fails the caller.
func (rr *RunRouter) EndRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}

	var payload endRunRequest
	if err := readJson(w, r, &payload); err != nil {
		return
	}

	rr.tracker.End(r.Context(), runID, models.RunStatus(payload.Status))
	w.WriteHeader(http.StatusAccepted)
}

type overrideRunRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// OverrideRun rewrites the terminal fields of a run outside the normal
// lifecycle, e.g. to close out a run whose caller died before ending it.
// The override is recorded in the logs together with the supplied reason.
func (rr *RunRouter) OverrideRun(w http.ResponseWriter, r *http.Request) {
	runID, err := runIDParam(r)
	if err != nil {
		http.Error(w, "Invalid run ID", http.StatusBadRequest)
		return
	}

	var payload overrideRunRequest
	if err := readJson(w, r, &payload); err != nil {
		return
	}
	if payload.Status == "" || payload.Reason == "" {
		http.Error(w, "status and reason are required", http.StatusBadRequest)
		return
	}
	if !models.RunStatus(payload.Status).Terminal() {
		http.Error(w, "status must be terminal", http.StatusBadRequest)
		return
	}

	run, err := rr.store.Get(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Job run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to get job run", http.StatusInternalServerError)
		log.Error().Err(err).Int64("run_id", runID).Msg("Failed to get job run")
		return
	}

	endTime := time.Now()
	duration := endTime.Sub(run.StartTime).Seconds()
	if duration < 0 {
		duration = 0
	}
	if run.EndTime.Valid {
		// Keep the original terminal timestamps when only the status label
		// is being corrected.
		endTime = run.EndTime.Time
		duration = run.DurationSeconds.Float64
	}

	if err := rr.store.Override(r.Context(), runID, endTime, duration, models.RunStatus(payload.Status), payload.Reason); err != nil {
		http.Error(w, "Failed to override job run", http.StatusInternalServerError)
		log.Error().Err(err).Int64("run_id", runID).Msg("Failed to override job run")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func runIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "runID"), 10, 64)
}

func queryLimit(r *http.Request, fallback int) int {
	limit := fallback
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return limit
}
