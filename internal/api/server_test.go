package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impulse-data/trajectory.report/internal/config"
	"github.com/impulse-data/trajectory.report/internal/db"
	"github.com/impulse-data/trajectory.report/internal/physics"
	"github.com/impulse-data/trajectory.report/internal/track"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	// Calibrate 30 px/m so the steady fixture moves at a clean 30 m/s.
	tuning := config.EmptyTuningConfig()
	ppm := 30.0
	tuning.PixelsPerMeter = &ppm

	srv := NewServer(database, tuning, "mps", filepath.Join(t.TempDir(), "reports"))
	ts := httptest.NewServer(srv.ServeMux())
	t.Cleanup(ts.Close)
	return srv, ts
}

// fixtureCSV renders a steady track and a too-short track as a tracker
// CSV upload.
func fixtureCSV(t *testing.T) string {
	t.Helper()
	var detections []track.Detection
	for i := 0; i < 10; i++ {
		detections = append(detections, track.Detection{
			Frame: i, TrackID: 1, CX: float64(30 * i), CY: 100,
		})
	}
	detections = append(detections,
		track.Detection{Frame: 0, TrackID: 2, CX: 1},
		track.Detection{Frame: 1, TrackID: 2, CX: 2},
	)

	var buf bytes.Buffer
	require.NoError(t, track.WriteCSV(&buf, detections))
	return buf.String()
}

// submitAndWait posts a CSV and polls until the run completes.
func submitAndWait(t *testing.T, srv *Server, ts *httptest.Server, csv string) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/analyze", "text/csv", strings.NewReader(csv))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	runID := accepted["run_id"]
	require.NotEmpty(t, runID)

	require.Eventually(t, func() bool {
		run, err := srv.db.GetRun(runID)
		return err == nil && (run.Status == db.RunCompleted || run.Status == db.RunFailed)
	}, 10*time.Second, 10*time.Millisecond)

	run, err := srv.db.GetRun(runID)
	require.NoError(t, err)
	require.Equal(t, db.RunCompleted, run.Status)
	return runID
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAnalyzeFlow(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)

	runID := submitAndWait(t, srv, ts, fixtureCSV(t))

	resp, err := http.Get(ts.URL + "/api/runs/" + runID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Run        db.Run                `json:"run"`
		SpeedUnits string                `json:"speed_units"`
		Results    []trackResultResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	assert.Equal(t, db.RunCompleted, body.Run.Status)
	assert.Equal(t, 2, body.Run.TrackCount)
	assert.Equal(t, "mps", body.SpeedUnits)
	require.Len(t, body.Results, 2)

	steady := body.Results[0]
	assert.Equal(t, int64(1), steady.TrackID)
	assert.Equal(t, string(physics.MotionConstantVelocity), steady.MotionType)
	assert.InDelta(t, 30.0, steady.Analysis.MaxSpeed, 1e-6)
	assert.Empty(t, steady.Error)

	short := body.Results[1]
	assert.Equal(t, int64(2), short.TrackID)
	assert.Equal(t, string(physics.MotionInsufficient), short.MotionType)
	assert.NotEmpty(t, short.Error)
}

func TestAnalyzeMultipart(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "session.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(fixtureCSV(t)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/api/analyze", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var accepted map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&accepted))
	runID := accepted["run_id"]

	require.Eventually(t, func() bool {
		run, err := srv.db.GetRun(runID)
		return err == nil && run.Status == db.RunCompleted
	}, 10*time.Second, 10*time.Millisecond)

	run, err := srv.db.GetRun(runID)
	require.NoError(t, err)
	assert.Equal(t, "session.csv", run.SourceName)
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	t.Run("not csv", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/analyze", "text/csv", strings.NewReader("{}"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("header only", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/analyze", "text/csv",
			strings.NewReader("frame,track_id,cx,cy\n"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetRunUnits(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	runID := submitAndWait(t, srv, ts, fixtureCSV(t))

	resp, err := http.Get(ts.URL + "/api/runs/" + runID + "?units=kmph")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		SpeedUnits string                `json:"speed_units"`
		Results    []trackResultResponse `json:"results"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "kmph", body.SpeedUnits)
	require.NotEmpty(t, body.Results)
	assert.InDelta(t, 108.0, body.Results[0].Analysis.MaxSpeed, 1e-6)

	bad, err := http.Get(ts.URL + "/api/runs/" + runID + "?units=knots")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListRuns(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	submitAndWait(t, srv, ts, fixtureCSV(t))

	resp, err := http.Get(ts.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Runs []db.Run `json:"runs"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Len(t, body.Runs, 1)
}

func TestRecordsCSVDownload(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	runID := submitAndWait(t, srv, ts, fixtureCSV(t))

	resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/tracks/1/records.csv", ts.URL, runID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))

	records, err := physics.ReadRecordsCSV(resp.Body)
	require.NoError(t, err)
	assert.Len(t, records, 10)

	// The too-short track has no derived records to download.
	missing, err := http.Get(fmt.Sprintf("%s/api/runs/%s/tracks/2/records.csv", ts.URL, runID))
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestChartEndpoints(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	runID := submitAndWait(t, srv, ts, fixtureCSV(t))

	for _, kind := range []string{"trajectory", "energy", "speed"} {
		t.Run(kind, func(t *testing.T) {
			resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/tracks/1/charts/%s", ts.URL, runID, kind))
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
		})
	}

	resp, err := http.Get(fmt.Sprintf("%s/api/runs/%s/tracks/1/charts/sparkline", ts.URL, runID))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlotsEndpoint(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t)
	runID := submitAndWait(t, srv, ts, fixtureCSV(t))

	resp, err := http.Post(fmt.Sprintf("%s/api/runs/%s/tracks/1/plots", ts.URL, runID), "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Files []string `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Files, 3)
	for _, f := range body.Files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	missing, err := http.Post(fmt.Sprintf("%s/api/runs/%s/tracks/99/plots", ts.URL, runID), "", nil)
	require.NoError(t, err)
	defer missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestParamsEndpoint(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/params")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var opts struct {
		Cleaning struct {
			KSpeed float64 `json:"k_speed"`
		} `json:"cleaning"`
		Physics struct {
			Gravity float64 `json:"gravity"`
		} `json:"physics"`
		Workers int `json:"workers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
	assert.Equal(t, 4.0, opts.Cleaning.KSpeed)
	assert.Equal(t, 9.81, opts.Physics.Gravity)
	assert.Equal(t, 4, opts.Workers)

	update, err := http.Post(ts.URL+"/api/params", "application/json",
		strings.NewReader(`{"k_speed": 6, "workers": 2}`))
	require.NoError(t, err)
	defer update.Body.Close()
	require.Equal(t, http.StatusOK, update.StatusCode)
	require.NoError(t, json.NewDecoder(update.Body).Decode(&opts))
	assert.Equal(t, 6.0, opts.Cleaning.KSpeed)
	assert.Equal(t, 2, opts.Workers)

	bad, err := http.Post(ts.URL+"/api/params", "application/json",
		strings.NewReader(`{"object_mass": -1}`))
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
