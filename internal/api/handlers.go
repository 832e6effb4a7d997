package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/impulse-data/trajectory.report/internal/config"
	"github.com/impulse-data/trajectory.report/internal/db"
	"github.com/impulse-data/trajectory.report/internal/httputil"
	"github.com/impulse-data/trajectory.report/internal/monitoring"
	"github.com/impulse-data/trajectory.report/internal/physics"
	"github.com/impulse-data/trajectory.report/internal/pipeline"
	"github.com/impulse-data/trajectory.report/internal/report"
	"github.com/impulse-data/trajectory.report/internal/security"
	"github.com/impulse-data/trajectory.report/internal/track"
	"github.com/impulse-data/trajectory.report/internal/units"
)

// maxUploadBytes bounds analyze request bodies. Tracker exports are a few
// hundred bytes per detection; 32MB covers hours of footage.
const maxUploadBytes = 32 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

// handleAnalyze accepts tracker detections as CSV (raw body or multipart
// "file" field), registers a run and processes it in the background.
// Responds 202 with the run id immediately.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	body, sourceName, err := analyzeBody(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	detections, err := track.ReadCSV(body)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid CSV: %v", err))
		return
	}
	if len(detections) == 0 {
		httputil.BadRequest(w, "no detections in upload")
		return
	}

	s.mu.RLock()
	opts := s.tuning.PipelineOptions()
	s.mu.RUnlock()

	paramsJSON, err := json.Marshal(opts)
	if err != nil {
		httputil.InternalServerError(w, "failed to encode parameters")
		return
	}

	run := &db.Run{
		ID:         uuid.NewString(),
		SourceName: sourceName,
		Status:     db.RunPending,
		ParamsJSON: string(paramsJSON),
	}
	if err := s.db.CreateRun(run); err != nil {
		monitoring.Logf("failed to create run: %v", err)
		httputil.InternalServerError(w, "failed to create run")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.processRun(run.ID, detections, opts)
	}()

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"run_id": run.ID,
		"status": db.RunPending,
	})
}

// analyzeBody extracts the CSV payload and a source name from the
// request, supporting both raw-body and multipart uploads.
func analyzeBody(r *http.Request) (io.Reader, string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxUploadBytes)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", fmt.Errorf("missing multipart field %q", "file")
		}
		return file, security.SanitizeFilename(header.Filename), nil
	}
	return r.Body, "", nil
}

// processRun runs the pipeline and persists every track's outcome. Any
// persistence failure marks the run failed; a failed track does not.
func (s *Server) processRun(runID string, detections []track.Detection, opts pipeline.Options) {
	if err := s.db.UpdateRunStatus(runID, db.RunRunning, ""); err != nil {
		monitoring.Logf("run %s: failed to mark running: %v", runID, err)
		return
	}

	results := pipeline.Run(detections, opts)
	for i := range results {
		row, err := resultRow(runID, &results[i])
		if err == nil {
			err = s.db.InsertTrackResult(row)
		}
		if err != nil {
			monitoring.Logf("run %s: failed to persist track %d: %v", runID, results[i].TrackID, err)
			if err := s.db.UpdateRunStatus(runID, db.RunFailed, err.Error()); err != nil {
				monitoring.Logf("run %s: failed to mark failed: %v", runID, err)
			}
			return
		}
	}

	if err := s.db.SetRunTrackCount(runID, len(results)); err != nil {
		monitoring.Logf("run %s: failed to set track count: %v", runID, err)
	}
	if err := s.db.UpdateRunStatus(runID, db.RunCompleted, ""); err != nil {
		monitoring.Logf("run %s: failed to mark completed: %v", runID, err)
	}
}

// resultRow flattens a pipeline result into its persisted form.
func resultRow(runID string, result *pipeline.TrackResult) (*db.TrackResultRow, error) {
	statsJSON, err := json.Marshal(result.CleaningStats)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cleaning stats: %w", err)
	}
	analysisJSON, err := json.Marshal(result.Analysis)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}
	insights := result.Insights
	if insights == nil {
		insights = []physics.Insight{}
	}
	insightsJSON, err := json.Marshal(insights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insights: %w", err)
	}

	var recordsCSV bytes.Buffer
	if len(result.Records) > 0 {
		if err := physics.WriteRecordsCSV(&recordsCSV, result.Records); err != nil {
			return nil, fmt.Errorf("failed to encode records: %w", err)
		}
	}

	return &db.TrackResultRow{
		RunID:        runID,
		TrackID:      result.TrackID,
		MotionType:   string(result.Analysis.MotionType),
		Error:        result.Error,
		StatsJSON:    string(statsJSON),
		AnalysisJSON: string(analysisJSON),
		InsightsJSON: string(insightsJSON),
		RecordsCSV:   recordsCSV.String(),
	}, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 1 {
			httputil.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = v
	}

	runs, err := s.db.ListRuns(limit)
	if err != nil {
		monitoring.Logf("failed to list runs: %v", err)
		httputil.InternalServerError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"runs": runs})
}

// trackResultResponse is the API shape of one persisted track result.
// The stored JSON blobs are passed through untouched except the analysis,
// whose speed fields honour the requested display units.
type trackResultResponse struct {
	TrackID       int64                      `json:"track_id"`
	MotionType    string                     `json:"motion_type"`
	Error         string                     `json:"error,omitempty"`
	CleaningStats json.RawMessage            `json:"cleaning_stats"`
	Analysis      physics.TrajectoryAnalysis `json:"analysis"`
	Insights      json.RawMessage            `json:"insights"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")

	run, err := s.db.GetRun(runID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return
	}
	if err != nil {
		monitoring.Logf("failed to get run %s: %v", runID, err)
		httputil.InternalServerError(w, "failed to get run")
		return
	}

	targetUnits, ok := requestUnits(r, s.units)
	if !ok {
		httputil.BadRequest(w, "invalid units; valid values are "+units.GetValidUnitsString())
		return
	}

	rows, err := s.db.ListTrackResults(runID)
	if err != nil {
		monitoring.Logf("failed to list results for run %s: %v", runID, err)
		httputil.InternalServerError(w, "failed to list track results")
		return
	}

	results := make([]trackResultResponse, 0, len(rows))
	for _, row := range rows {
		var analysis physics.TrajectoryAnalysis
		if err := json.Unmarshal([]byte(row.AnalysisJSON), &analysis); err != nil {
			monitoring.Logf("run %s track %d: corrupt analysis JSON: %v", runID, row.TrackID, err)
			httputil.InternalServerError(w, "corrupt analysis record")
			return
		}
		analysis.MaxSpeed = units.ConvertSpeed(analysis.MaxSpeed, targetUnits)
		analysis.AvgSpeed = units.ConvertSpeed(analysis.AvgSpeed, targetUnits)
		analysis.MaxVelocityX = units.ConvertSpeed(analysis.MaxVelocityX, targetUnits)
		analysis.MaxVelocityY = units.ConvertSpeed(analysis.MaxVelocityY, targetUnits)

		results = append(results, trackResultResponse{
			TrackID:       row.TrackID,
			MotionType:    row.MotionType,
			Error:         row.Error,
			CleaningStats: json.RawMessage(row.StatsJSON),
			Analysis:      analysis,
			Insights:      json.RawMessage(row.InsightsJSON),
		})
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"run":         run,
		"speed_units": targetUnits,
		"results":     results,
	})
}

func (s *Server) handleRecordsCSV(w http.ResponseWriter, r *http.Request) {
	runID, trackID, ok := runTrackPath(w, r)
	if !ok {
		return
	}

	csv, err := s.db.GetTrackRecordsCSV(runID, trackID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "track result not found")
		return
	}
	if err != nil {
		monitoring.Logf("failed to get records for run %s track %d: %v", runID, trackID, err)
		httputil.InternalServerError(w, "failed to get track records")
		return
	}
	if csv == "" {
		httputil.NotFound(w, "track has no derived records")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("run_%s_track_%d.csv", runID, trackID)))
	_, _ = io.WriteString(w, csv)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	runID, trackID, ok := runTrackPath(w, r)
	if !ok {
		return
	}
	kind := r.PathValue("kind")

	csv, err := s.db.GetTrackRecordsCSV(runID, trackID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "track result not found")
		return
	}
	if err != nil {
		monitoring.Logf("failed to get records for run %s track %d: %v", runID, trackID, err)
		httputil.InternalServerError(w, "failed to get track records")
		return
	}
	if csv == "" {
		httputil.NotFound(w, "track has no derived records")
		return
	}

	records, err := physics.ReadRecordsCSV(strings.NewReader(csv))
	if err != nil {
		monitoring.Logf("run %s track %d: corrupt records CSV: %v", runID, trackID, err)
		httputil.InternalServerError(w, "corrupt track records")
		return
	}

	var buf bytes.Buffer
	switch kind {
	case "trajectory":
		err = report.RenderTrajectoryChart(&buf, trackID, records)
	case "energy":
		err = report.RenderEnergyChart(&buf, trackID, records)
	case "speed":
		err = report.RenderSpeedChart(&buf, trackID, records)
	default:
		httputil.BadRequest(w, "unknown chart kind; valid values are trajectory, energy, speed")
		return
	}
	if err != nil {
		monitoring.Logf("failed to render %s chart: %v", kind, err)
		httputil.InternalServerError(w, "failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handlePlots exports PNG plots of a track into the configured reports
// directory, one subdirectory per run, and responds with the file list.
func (s *Server) handlePlots(w http.ResponseWriter, r *http.Request) {
	if s.reportsDir == "" {
		httputil.BadRequest(w, "plot export is not configured")
		return
	}
	runID, trackID, ok := runTrackPath(w, r)
	if !ok {
		return
	}

	csv, err := s.db.GetTrackRecordsCSV(runID, trackID)
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, "track result not found")
		return
	}
	if err != nil {
		monitoring.Logf("failed to get records for run %s track %d: %v", runID, trackID, err)
		httputil.InternalServerError(w, "failed to get track records")
		return
	}
	if csv == "" {
		httputil.NotFound(w, "track has no derived records")
		return
	}

	records, err := physics.ReadRecordsCSV(strings.NewReader(csv))
	if err != nil {
		monitoring.Logf("run %s track %d: corrupt records CSV: %v", runID, trackID, err)
		httputil.InternalServerError(w, "corrupt track records")
		return
	}

	dir := filepath.Join(s.reportsDir, security.SanitizeFilename(runID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		monitoring.Logf("failed to create plot directory %s: %v", dir, err)
		httputil.InternalServerError(w, "failed to create plot directory")
		return
	}
	files, err := report.SavePlots(dir, trackID, records)
	if err != nil {
		monitoring.Logf("failed to save plots for run %s track %d: %v", runID, trackID, err)
		httputil.InternalServerError(w, "failed to save plots")
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"files": files})
}

func (s *Server) handleGetParams(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	opts := s.tuning.PipelineOptions()
	s.mu.RUnlock()
	httputil.WriteJSONOK(w, opts)
}

// handleUpdateParams replaces the runtime tuning. The payload uses the
// same partial-JSON schema as the startup tuning file; omitted fields
// revert to defaults rather than keeping the previous override.
func (s *Server) handleUpdateParams(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		httputil.BadRequest(w, "failed to read body")
		return
	}

	tuning := config.EmptyTuningConfig()
	if err := json.Unmarshal(data, tuning); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid tuning JSON: %v", err))
		return
	}
	if err := tuning.Validate(); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	s.mu.Lock()
	s.tuning = tuning
	opts := tuning.PipelineOptions()
	s.mu.Unlock()

	httputil.WriteJSONOK(w, opts)
}

// requestUnits resolves the display units for a request: the ?units=
// query parameter when present, the server default otherwise.
func requestUnits(r *http.Request, fallback string) (string, bool) {
	u := r.URL.Query().Get("units")
	if u == "" {
		if fallback == "" {
			return units.MPS, true
		}
		return fallback, true
	}
	if !units.IsValid(u) {
		return "", false
	}
	return u, true
}

// runTrackPath parses the {id} and {track} path segments.
func runTrackPath(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	runID := r.PathValue("id")
	trackID, err := strconv.ParseInt(r.PathValue("track"), 10, 64)
	if err != nil {
		httputil.BadRequest(w, "track id must be an integer")
		return "", 0, false
	}
	return runID, trackID, true
}
