// Package clean removes tracker noise from per-track position sequences:
// duplicate detections, disjoint track fragments, teleports, back-jumps
// and curve-fit outliers. Cleaning is a pure function of its input and
// configuration; it performs no I/O and keeps no state between calls.
package clean

import (
	"errors"
	"math"
	"sort"

	"github.com/impulse-data/trajectory.report/internal/mathx"
	"github.com/impulse-data/trajectory.report/internal/track"
)

// ErrInsufficientData reports a track too short to clean (fewer than
// three points after duplicate collapse). The caller must treat the track
// as unusable rather than retry.
var ErrInsufficientData = errors.New("not enough data points")

// Stats describes one cleaning pass. Purely diagnostic; nothing here
// feeds back into the algorithm.
type Stats struct {
	OriginalPoints        int       `json:"original_points"`
	CleanedPoints         int       `json:"cleaned_points"`
	OutliersRemoved       int       `json:"outliers_removed"`
	CleaningPercentage    float64   `json:"cleaning_percentage"`
	SpeedThreshold        float64   `json:"speed_threshold"`
	BackJumpThreshold     float64   `json:"back_jump_threshold"`
	QuadraticCoefficients []float64 `json:"quadratic_coefficients,omitempty"` // a, b, c
	RSquared              *float64  `json:"r_squared,omitempty"`
	Error                 string    `json:"error,omitempty"`
}

// point is one collapsed per-frame sample inside the retained run.
type point struct {
	frame int
	cx    float64
	cy    float64
}

// Clean removes outliers from one track's detections and returns the
// surviving rows plus cleaning statistics. Input rows may repeat frames;
// duplicates are collapsed to their per-frame median before any rule
// runs. Returns ErrInsufficientData when fewer than three usable points
// exist; the input is then passed through unchanged.
func Clean(detections []track.Detection, cfg Config) ([]track.Detection, Stats, error) {
	stats := Stats{OriginalPoints: len(detections), CleanedPoints: len(detections)}
	if len(detections) < 3 {
		stats.Error = "not enough data points for cleaning"
		return detections, stats, ErrInsufficientData
	}

	collapsed := collapseDuplicateFrames(detections)
	if len(collapsed) < 3 {
		stats.Error = "not enough points after grouping"
		return detections, stats, ErrInsufficientData
	}

	// Keep only the longest unbroken fragment; a tracker that loses and
	// re-acquires an object produces disjoint pieces that cannot belong
	// to one continuous motion.
	s, e := longestContiguousRun(collapsed, cfg.MaxGap)
	run := collapsed[s:e]
	n := len(run)

	dx := make([]float64, n-1)
	dy := make([]float64, n-1)
	speed := make([]float64, n-1)
	for i := 0; i < n-1; i++ {
		dx[i] = run[i+1].cx - run[i].cx
		dy[i] = run[i+1].cy - run[i].cy
		speed[i] = math.Hypot(dx[i], dy[i])
	}

	thrSpeed := mathx.Median(speed) + cfg.KSpeed*mathx.MADSigma(speed)
	thrBack := math.Max(cfg.BackMin, cfg.KBack*mathx.MADSigma(dx))
	stats.SpeedThreshold = thrSpeed
	stats.BackJumpThreshold = thrBack

	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}

	// Teleport rule: a point flanked by an implausibly fast step on
	// either side is tracker noise.
	for i := 0; i < n; i++ {
		if (i-1 >= 0 && speed[i-1] > thrSpeed) || (i < n-1 && speed[i] > thrSpeed) {
			keep[i] = false
		}
	}

	// Back-jump rule: a sharp regression against the dominant direction
	// marks the later point of the step as the suspect.
	for i := 0; i < n-1; i++ {
		if dx[i] < -thrBack {
			keep[i+1] = false
		}
	}

	// Near-monotone cx with tolerance.
	runMax := math.Inf(-1)
	for i := 0; i < n; i++ {
		if run[i].cx+cfg.CXTol < runMax {
			keep[i] = false
		} else {
			runMax = math.Max(runMax, run[i].cx)
		}
	}

	// Survivors are tracked by run index so every later stage removes
	// exactly the marked point, even when two frames share a position.
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if keep[i] {
			idx = append(idx, i)
		}
	}
	// Never reduce below the minimum needed for curve fitting; abandon
	// the rule marks rather than the track.
	if len(idx) < 3 {
		idx = idx[:0]
		for i := 0; i < n; i++ {
			idx = append(idx, i)
		}
	}
	cxCln := make([]float64, len(idx))
	cyCln := make([]float64, len(idx))
	for j, i := range idx {
		cxCln[j] = run[i].cx
		cyCln[j] = run[i].cy
	}

	// Iterative residual trimming against a robust quadratic.
	coef, fitErr := mathx.Polyfit(cxCln, cyCln, 2)
	if fitErr == nil {
		for pass := 0; pass < cfg.TrimPasses; pass++ {
			resid := make([]float64, len(cxCln))
			for i := range cxCln {
				resid[i] = cyCln[i] - mathx.Polyval(coef, cxCln[i])
			}
			thrRes := math.Max(3.0, cfg.KResid*mathx.MADSigma(resid))

			var nextIdx []int
			var nextX, nextY []float64
			dropped := false
			for j := range cxCln {
				if math.Abs(resid[j]) <= thrRes {
					nextIdx = append(nextIdx, idx[j])
					nextX = append(nextX, cxCln[j])
					nextY = append(nextY, cyCln[j])
				} else {
					dropped = true
				}
			}
			if !dropped || len(nextX) < 3 {
				break
			}
			idx, cxCln, cyCln = nextIdx, nextX, nextY
			if coef, fitErr = mathx.Polyfit(cxCln, cyCln, 2); fitErr != nil {
				break
			}
		}
	}

	// Map survivors back onto original rows by run index (first matching
	// row per frame, tolerating duplicate-collapse).
	inliers := make(map[int]bool, len(idx))
	for _, i := range idx {
		inliers[i] = true
	}
	cleaned := make([]track.Detection, 0, len(idx))
	for i := 0; i < n; i++ {
		isInlier := inliers[i]
		if cfg.Invert {
			isInlier = !isInlier
		}
		if !isInlier {
			continue
		}
		for _, d := range detections {
			if d.Frame == run[i].frame {
				cleaned = append(cleaned, d)
				break
			}
		}
	}

	stats.CleanedPoints = len(cleaned)
	stats.OutliersRemoved = len(detections) - len(cleaned)
	stats.CleaningPercentage = float64(stats.OutliersRemoved) / float64(len(detections)) * 100

	if fitErr == nil && len(cxCln) >= 3 {
		stats.QuadraticCoefficients = coef
		if distinctCount(cxCln) >= 3 {
			r2 := mathx.RSquared(coef, cxCln, cyCln)
			stats.RSquared = &r2
		}
	}

	return cleaned, stats, nil
}

// CleanAll cleans every track independently and concatenates the results
// in canonical (track_id, frame) order. A track that fails with
// ErrInsufficientData contributes no rows; its stats carry the error.
func CleanAll(detections []track.Detection, cfg Config) ([]track.Detection, map[int64]Stats) {
	byTrack := track.GroupByTrack(detections)
	allStats := make(map[int64]Stats, len(byTrack))

	var cleaned []track.Detection
	for _, id := range track.TrackIDs(detections) {
		trackCleaned, stats, err := Clean(byTrack[id], cfg)
		allStats[id] = stats
		if err != nil {
			continue
		}
		cleaned = append(cleaned, trackCleaned...)
	}

	track.SortCanonical(cleaned)
	return cleaned, allStats
}

// collapseDuplicateFrames reduces detections to one point per frame,
// taking the per-frame median of cx and cy, ordered by frame.
func collapseDuplicateFrames(detections []track.Detection) []point {
	byFrame := make(map[int][]track.Detection)
	frames := make([]int, 0)
	for _, d := range detections {
		if _, seen := byFrame[d.Frame]; !seen {
			frames = append(frames, d.Frame)
		}
		byFrame[d.Frame] = append(byFrame[d.Frame], d)
	}
	sort.Ints(frames)

	points := make([]point, 0, len(frames))
	for _, f := range frames {
		rows := byFrame[f]
		cxs := make([]float64, len(rows))
		cys := make([]float64, len(rows))
		for i, d := range rows {
			cxs[i] = d.CX
			cys[i] = d.CY
		}
		points = append(points, point{frame: f, cx: mathx.Median(cxs), cy: mathx.Median(cys)})
	}
	return points
}

// longestContiguousRun returns the half-open [s, e) bounds of the longest
// run of points whose consecutive frame gaps never exceed maxGap.
func longestContiguousRun(points []point, maxGap int) (int, int) {
	bestS, bestE := 0, 1
	s := 0
	for i := 1; i <= len(points); i++ {
		if i == len(points) || points[i].frame-points[i-1].frame > maxGap {
			if i-s > bestE-bestS {
				bestS, bestE = s, i
			}
			s = i
		}
	}
	return bestS, bestE
}

func distinctCount(values []float64) int {
	seen := make(map[float64]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}
