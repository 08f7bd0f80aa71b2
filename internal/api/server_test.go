package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"runtrack/internal/api"
	"runtrack/internal/metrics"
	"runtrack/internal/models"
	"runtrack/internal/store"
	"runtrack/internal/tracker"
)

func newTestServer(t *testing.T) (*api.Server, *store.Store) {
	t.Helper()

	db, err := sqlx.Connect("sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	st, err := store.New(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	registry := prometheus.NewRegistry()
	trk := tracker.New(st, metrics.NewPromEmitter(registry))
	return api.New(context.Background(), st, trk, registry), st
}

func postJSON(t *testing.T, srv http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func get(srv http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func beginRun(t *testing.T, srv http.Handler, jobName string) int64 {
	t.Helper()

	rec := postJSON(t, srv, "/api/runs", map[string]string{"job_name": jobName})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		RunID int64 `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Positive(t, resp.RunID)
	return resp.RunID
}

func TestBeginAndEndRun(t *testing.T) {
	srv, st := newTestServer(t)

	runID := beginRun(t, srv, "data_ingestion")

	rec := postJSON(t, srv, fmt.Sprintf("/api/runs/%d/end", runID), map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	run, err := st.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RsCompleted, run.Status)
	assert.True(t, run.EndTime.Valid)
}

func TestBeginRunRequiresJobName(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := postJSON(t, srv, "/api/runs", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEndRunUnknownIDIsAccepted(t *testing.T) {
	srv, st := newTestServer(t)

	// Best-effort monitoring: ending a run nobody started must not error.
	rec := postJSON(t, srv, "/api/runs/9999/end", map[string]string{"status": "failed"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	runs, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGetRun(t *testing.T) {
	srv, _ := newTestServer(t)

	runID := beginRun(t, srv, "ml_training")

	rec := get(srv, fmt.Sprintf("/api/runs/%d", runID))
	require.Equal(t, http.StatusOK, rec.Code)

	var run models.JobRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, runID, run.ID)
	assert.Equal(t, "ml_training", run.JobName)
	assert.Equal(t, models.RsRunning, run.Status)

	assert.Equal(t, http.StatusNotFound, get(srv, "/api/runs/424242").Code)
	assert.Equal(t, http.StatusBadRequest, get(srv, "/api/runs/not-a-number").Code)
}

func TestListRuns(t *testing.T) {
	srv, _ := newTestServer(t)

	for i := 0; i < 3; i++ {
		beginRun(t, srv, fmt.Sprintf("job_%d", i))
	}

	rec := get(srv, "/api/runs?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []models.JobRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)
}

func TestExportFiltersRunningRuns(t *testing.T) {
	srv, _ := newTestServer(t)

	completedID := beginRun(t, srv, "ingest")
	beginRun(t, srv, "train")

	rec := postJSON(t, srv, fmt.Sprintf("/api/runs/%d/end", completedID), map[string]string{"status": "completed"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := get(srv, "/api/export")
	require.Equal(t, http.StatusOK, resp.Code)

	var records []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "ingest", records[0]["job_name"])
}

func TestOverrideRun(t *testing.T) {
	srv, st := newTestServer(t)

	runID := beginRun(t, srv, "stuck_job")
	rec := postJSON(t, srv, fmt.Sprintf("/api/runs/%d/end", runID), map[string]string{"status": "completed"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	// Missing reason is rejected; the override must be auditable.
	rec = postJSON(t, srv, fmt.Sprintf("/api/runs/%d/override", runID), map[string]string{"status": "failed"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, srv, fmt.Sprintf("/api/runs/%d/override", runID), map[string]string{
		"status": "failed",
		"reason": "postmortem: downstream data was corrupt",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	run, err := st.Get(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, models.RsFailed, run.Status)

	rec = postJSON(t, srv, "/api/runs/424242/override", map[string]string{
		"status": "failed",
		"reason": "no such run",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	runID := beginRun(t, srv, "x")
	rec := postJSON(t, srv, fmt.Sprintf("/api/runs/%d/end", runID), map[string]string{"status": "failed"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	resp := get(srv, "/metrics")
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, "batch_job_count_total")
	assert.Contains(t, body, `batch_job_count_total{job_name="x",status="failed"} 1`)
	assert.Contains(t, body, "batch_job_start_time")
}
