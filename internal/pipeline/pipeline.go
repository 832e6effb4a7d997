// Package pipeline runs the per-track analysis chain: clean, derive,
// analyze, insights. Tracks are independent, so a batch fans out over a
// bounded worker pool with no shared state beyond result collection.
// Each invocation owns its inputs and outputs; nothing is retained
// between runs.
package pipeline

import (
	"sync"

	"github.com/impulse-data/trajectory.report/internal/clean"
	"github.com/impulse-data/trajectory.report/internal/physics"
	"github.com/impulse-data/trajectory.report/internal/track"
)

// DefaultWorkers bounds batch concurrency when Options.Workers is unset.
const DefaultWorkers = 4

// Options bundles the tuning for one pipeline invocation.
type Options struct {
	Cleaning clean.Config   `json:"cleaning"`
	Physics  physics.Params `json:"physics"`
	Workers  int            `json:"workers"`
}

// DefaultOptions returns the pipeline defaults.
func DefaultOptions() Options {
	return Options{
		Cleaning: clean.DefaultConfig(),
		Physics:  physics.DefaultParams(),
		Workers:  DefaultWorkers,
	}
}

// TrackResult is the complete outcome for one track. It is an explicit
// per-job value: callers own its lifecycle and no global status exists.
// Error is non-empty when the track was unusable (too few points); the
// cleaning stats then carry the detail and Records is empty.
type TrackResult struct {
	TrackID       int64                      `json:"track_id"`
	Cleaned       []track.Detection          `json:"-"`
	CleaningStats clean.Stats                `json:"cleaning_stats"`
	Records       []physics.Record           `json:"-"`
	Analysis      physics.TrajectoryAnalysis `json:"analysis"`
	Insights      []physics.Insight          `json:"insights"`
	Error         string                     `json:"error,omitempty"`
}

// ProcessTrack runs the full chain for one track's detections.
func ProcessTrack(trackID int64, detections []track.Detection, opts Options) TrackResult {
	result := TrackResult{TrackID: trackID}

	cleaned, stats, err := clean.Clean(detections, opts.Cleaning)
	result.CleaningStats = stats
	if err != nil {
		result.Error = stats.Error
		result.Analysis = physics.TrajectoryAnalysis{MotionType: physics.MotionInsufficient}
		return result
	}
	result.Cleaned = cleaned

	result.Records = physics.Derive(cleaned, opts.Physics)
	analysis, err := physics.Analyze(result.Records, opts.Physics)
	result.Analysis = analysis
	if err != nil {
		// Too short to analyze; the derived records are still returned.
		return result
	}
	result.Insights = physics.Insights(result.Records, opts.Physics)
	return result
}

// Run processes every track in the batch, fanning out across a bounded
// worker pool. Results are returned in ascending track-id order
// regardless of completion order. A failed track yields a result with
// Error set; it never aborts the batch.
func Run(detections []track.Detection, opts Options) []TrackResult {
	byTrack := track.GroupByTrack(detections)
	ids := track.TrackIDs(detections)
	results := make([]TrackResult, len(ids))

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(ids) {
		workers = len(ids)
	}
	if workers <= 1 {
		for i, id := range ids {
			results[i] = ProcessTrack(id, byTrack[id], opts)
		}
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				id := ids[i]
				results[i] = ProcessTrack(id, byTrack[id], opts)
			}
		}()
	}
	for i := range ids {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
