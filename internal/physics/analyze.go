package physics

import (
	"math"

	"github.com/impulse-data/trajectory.report/internal/mathx"
)

// MotionClass is the trajectory-level classification of a track.
type MotionClass string

const (
	MotionProjectile       MotionClass = "projectile_motion"
	MotionConstantVelocity MotionClass = "constant_velocity"
	MotionCircular         MotionClass = "circular_motion"
	MotionAccelerated      MotionClass = "accelerated_motion"
	MotionComplex          MotionClass = "complex_motion"
	MotionInsufficient     MotionClass = "insufficient_data"
)

// Classification thresholds. The values are load-bearing output
// compatibility constants, not tunables.
const (
	projectileMinSamples   = 5
	circularMinSamples     = 10
	projectileR2Threshold  = 0.8
	projectileAccTolerance = 5.0  // |mean ay + g| bound, m/s²
	projectileVarTolerance = 10.0 // variance of ay bound
	constantVelocityCV     = 0.1  // coefficient of variation of speed
	circularCV             = 0.2  // coefficient of variation of radius
	acceleratedMeanAccel   = 2.0  // mean |a| bound, m/s²
)

// TrajectoryAnalysis is the per-track aggregate: extrema, energy
// bookkeeping and motion classification. Immutable once computed.
type TrajectoryAnalysis struct {
	SampleCount     int     `json:"sample_count"`
	TotalDistance   float64 `json:"total_distance"`
	MaxHeight       float64 `json:"max_height"`
	MinHeight       float64 `json:"min_height"`
	HorizontalRange float64 `json:"horizontal_range"`
	Duration        float64 `json:"duration"`

	MaxSpeed     float64 `json:"max_speed"`
	AvgSpeed     float64 `json:"avg_speed"`
	MaxVelocityX float64 `json:"max_velocity_x"`
	MaxVelocityY float64 `json:"max_velocity_y"`

	MaxAcceleration float64 `json:"max_acceleration"`
	AvgAcceleration float64 `json:"avg_acceleration"`

	MaxKineticEnergy        float64 `json:"max_kinetic_energy"`
	MaxPotentialEnergy      float64 `json:"max_potential_energy"`
	EnergyConservationError float64 `json:"energy_conservation_error"`

	IsProjectile bool        `json:"is_projectile"`
	MotionType   MotionClass `json:"motion_type"`
}

// Analyze aggregates a derived record sequence into a TrajectoryAnalysis.
// Returns ErrInsufficientData (with MotionType set accordingly) when
// fewer than two records exist; no degenerate math is attempted.
func Analyze(records []Record, p Params) (TrajectoryAnalysis, error) {
	if len(records) < 2 {
		return TrajectoryAnalysis{
			SampleCount: len(records),
			MotionType:  MotionInsufficient,
		}, ErrInsufficientData
	}

	a := TrajectoryAnalysis{SampleCount: len(records)}

	var dist float64
	for i := 1; i < len(records); i++ {
		dist += math.Hypot(records[i].XM-records[i-1].XM, records[i].YM-records[i-1].YM)
	}
	a.TotalDistance = dist

	a.MaxHeight = records[0].YM
	a.MinHeight = records[0].YM
	minX, maxX := records[0].XM, records[0].XM
	for _, r := range records {
		a.MaxHeight = math.Max(a.MaxHeight, r.YM)
		a.MinHeight = math.Min(a.MinHeight, r.YM)
		minX = math.Min(minX, r.XM)
		maxX = math.Max(maxX, r.XM)

		a.MaxSpeed = math.Max(a.MaxSpeed, r.Speed)
		a.MaxVelocityX = math.Max(a.MaxVelocityX, mathx.Finite(r.VX))
		a.MaxVelocityY = math.Max(a.MaxVelocityY, mathx.Finite(r.VY))
		a.MaxAcceleration = math.Max(a.MaxAcceleration, r.AccelMag)
		a.MaxKineticEnergy = math.Max(a.MaxKineticEnergy, r.KineticEnergy)
		a.MaxPotentialEnergy = math.Max(a.MaxPotentialEnergy, r.PotentialEnergy)
	}
	a.HorizontalRange = maxX - minX
	a.Duration = records[len(records)-1].TimeS - records[0].TimeS

	a.AvgSpeed = mathx.Mean(column(records, func(r Record) float64 { return r.Speed }))
	a.AvgAcceleration = mathx.Mean(column(records, func(r Record) float64 { return r.AccelMag }))
	a.EnergyConservationError = mathx.PopStdDev(column(records, func(r Record) float64 { return r.TotalEnergy }))

	a.IsProjectile = detectProjectileMotion(records, p.Gravity)
	a.MotionType = classify(records, a, p)
	return a, nil
}

// classify applies the motion heuristics in fixed precedence order:
// constant velocity, projectile, circular, accelerated, complex. Each
// heuristic abstains below its minimum sample count rather than
// defaulting to a false positive.
func classify(records []Record, a TrajectoryAnalysis, p Params) MotionClass {
	if len(records) < 3 {
		return MotionInsufficient
	}

	speeds := column(records, func(r Record) float64 { return r.Speed })
	if meanSpeed := mathx.Mean(speeds); meanSpeed > 0 {
		if mathx.PopStdDev(speeds)/meanSpeed < constantVelocityCV {
			return MotionConstantVelocity
		}
	}

	if a.IsProjectile {
		return MotionProjectile
	}

	if isCircularMotion(records) {
		return MotionCircular
	}

	if a.AvgAcceleration > acceleratedMeanAccel {
		return MotionAccelerated
	}
	return MotionComplex
}

// detectProjectileMotion tests the four ballistic conditions together: a
// well-fitting (R² > 0.8) downward-opening parabola in (x, y), mean
// vertical acceleration within tolerance of -gravity, and low vertical
// acceleration variance. A visually parabolic but non-ballistic path
// fails the acceleration conditions and is rejected.
func detectProjectileMotion(records []Record, gravity float64) bool {
	if len(records) < projectileMinSamples {
		return false
	}

	xs := column(records, func(r Record) float64 { return r.XM })
	ys := column(records, func(r Record) float64 { return r.YM })

	coef, err := mathx.Polyfit(xs, ys, 2)
	if err != nil {
		return false
	}
	if mathx.RSquared(coef, xs, ys) <= projectileR2Threshold {
		return false
	}
	if coef[0] >= 0 {
		return false
	}

	ay := column(records, func(r Record) float64 { return r.AY })
	if math.Abs(mathx.Mean(ay)+gravity) >= projectileAccTolerance {
		return false
	}
	return mathx.PopVariance(ay) < projectileVarTolerance
}

// isCircularMotion checks whether the samples keep a near-constant
// distance from their centroid.
func isCircularMotion(records []Record) bool {
	if len(records) < circularMinSamples {
		return false
	}

	cx := mathx.Mean(column(records, func(r Record) float64 { return r.XM }))
	cy := mathx.Mean(column(records, func(r Record) float64 { return r.YM }))

	radii := make([]float64, len(records))
	for i, r := range records {
		radii[i] = math.Hypot(r.XM-cx, r.YM-cy)
	}
	meanR := mathx.Mean(radii)
	if meanR <= 0 {
		return false
	}
	return mathx.PopStdDev(radii)/meanR < circularCV
}

func column(records []Record, get func(Record) float64) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = get(r)
	}
	return out
}
