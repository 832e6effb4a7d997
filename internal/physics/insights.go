package physics

import (
	"fmt"

	"github.com/impulse-data/trajectory.report/internal/mathx"
)

// Insight is one qualitative, threshold-derived observation about a
// track. Kind groups insights for presentation; Message is the human
// readable text.
type Insight struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Insight cut points. These are output-compatibility constants: the
// buckets and bounds must not drift between releases.
const (
	energyErrExcellent = 1.0
	energyErrModerate  = 5.0
	gravityTolerance   = 2.0
	highSpeedCutoff    = 10.0
	slowMotionCutoff   = 1.0
)

// Insights derives the fixed, ordered set of qualitative labels from a
// derived record sequence: energy conservation quality, projectile
// detection, acceleration vs gravity, and speed regime. Returns nil for
// sequences too short to analyze.
func Insights(records []Record, p Params) []Insight {
	if len(records) < 2 {
		return nil
	}

	var insights []Insight

	energyErr := mathx.PopStdDev(column(records, func(r Record) float64 { return r.TotalEnergy }))
	switch {
	case energyErr < energyErrExcellent:
		insights = append(insights, Insight{
			Kind:    "energy",
			Message: "Excellent energy conservation - motion is nearly frictionless",
		})
	case energyErr < energyErrModerate:
		insights = append(insights, Insight{
			Kind:    "energy",
			Message: "Moderate energy loss - some friction or air resistance present",
		})
	default:
		insights = append(insights, Insight{
			Kind:    "energy",
			Message: "Significant energy loss - high friction or external forces",
		})
	}

	if detectProjectileMotion(records, p.Gravity) {
		insights = append(insights, Insight{
			Kind:    "motion",
			Message: "Projectile motion detected - parabolic trajectory",
		})
		maxH, minX, maxX := records[0].YM, records[0].XM, records[0].XM
		for _, r := range records {
			if r.YM > maxH {
				maxH = r.YM
			}
			if r.XM < minX {
				minX = r.XM
			}
			if r.XM > maxX {
				maxX = r.XM
			}
		}
		insights = append(insights, Insight{
			Kind:    "motion",
			Message: fmt.Sprintf("Maximum height: %.2fm, Range: %.2fm", maxH, maxX-minX),
		})
	}

	meanAccel := mathx.Mean(column(records, func(r Record) float64 { return r.AccelMag }))
	if diff := meanAccel - p.Gravity; diff < gravityTolerance && diff > -gravityTolerance {
		insights = append(insights, Insight{
			Kind:    "acceleration",
			Message: "Acceleration matches gravitational acceleration",
		})
	} else if meanAccel > p.Gravity+gravityTolerance {
		insights = append(insights, Insight{
			Kind:    "acceleration",
			Message: "Above-average acceleration - external forces present",
		})
	}

	var maxSpeed float64
	for _, r := range records {
		if r.Speed > maxSpeed {
			maxSpeed = r.Speed
		}
	}
	if maxSpeed > highSpeedCutoff {
		insights = append(insights, Insight{
			Kind:    "speed",
			Message: fmt.Sprintf("High-speed motion detected: %.1f m/s", maxSpeed),
		})
	} else if maxSpeed < slowMotionCutoff {
		insights = append(insights, Insight{
			Kind:    "speed",
			Message: fmt.Sprintf("Slow motion: %.1f m/s", maxSpeed),
		})
	}

	return insights
}
