// Package physics converts cleaned track positions into per-sample
// kinematic and dynamic quantities, classifies the trajectory and derives
// threshold-based insights. All derivation is total: degenerate time
// steps and failed fits degrade to zeros and unsmoothed values, never to
// NaN, Inf or an error.
package physics

import (
	"errors"
	"math"
	"sort"

	"github.com/impulse-data/trajectory.report/internal/mathx"
	"github.com/impulse-data/trajectory.report/internal/track"
)

// ErrInsufficientData reports a sequence too short for trajectory
// analysis (fewer than two derived records).
var ErrInsufficientData = errors.New("not enough data points for analysis")

// Record is one cleaned detection augmented with physical quantities.
// Positions are meters, velocities m/s, accelerations m/s², energies
// joules, power watts. PotentialEnergy is relative to the track's own
// maximum height: it is zero at the highest sampled point and not
// comparable across tracks.
type Record struct {
	track.Detection

	XM float64 `json:"x_m"`
	YM float64 `json:"y_m"`

	VX    float64 `json:"vx"`
	VY    float64 `json:"vy"`
	Speed float64 `json:"speed"`

	AX       float64 `json:"ax"`
	AY       float64 `json:"ay"`
	AccelMag float64 `json:"acceleration"`

	MomentumX   float64 `json:"momentum_x"`
	MomentumY   float64 `json:"momentum_y"`
	MomentumMag float64 `json:"momentum_magnitude"`

	ForceX   float64 `json:"force_x"`
	ForceY   float64 `json:"force_y"`
	ForceMag float64 `json:"force_magnitude"`

	KineticEnergy   float64 `json:"kinetic_energy"`
	PotentialEnergy float64 `json:"potential_energy"`
	TotalEnergy     float64 `json:"total_energy"`
	Work            float64 `json:"work_done"`
	Power           float64 `json:"power"`

	// Smoothed channels from the Savitzky-Golay pass. Equal to the
	// unsmoothed values when smoothing is disabled or fails.
	XMSmooth float64 `json:"x_m_smooth"`
	YMSmooth float64 `json:"y_m_smooth"`
	VXSmooth float64 `json:"vx_smooth"`
	VYSmooth float64 `json:"vy_smooth"`
	AXSmooth float64 `json:"ax_smooth"`
	AYSmooth float64 `json:"ay_smooth"`
}

// Derive computes the full physics record sequence for one cleaned
// track. Records are returned time-ordered, one per input detection.
// With fewer than two detections the input is passed through with no
// metrics computed.
func Derive(detections []track.Detection, p Params) []Record {
	records := make([]Record, len(detections))
	for i, d := range detections {
		records[i] = Record{Detection: d}
	}
	if len(records) < 2 {
		return records
	}

	// Derive timestamps from frame numbers when the tracker supplied
	// none (an all-zero time column).
	fps := p.AssumedFPS
	if fps <= 0 {
		fps = 30.0
	}
	haveTimes := false
	for _, r := range records {
		if r.TimeS != 0 {
			haveTimes = true
			break
		}
	}
	if !haveTimes {
		for i := range records {
			records[i].TimeS = float64(records[i].Frame) / fps
		}
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].TimeS < records[j].TimeS })

	n := len(records)
	times := make([]float64, n)
	xm := make([]float64, n)
	ym := make([]float64, n)
	for i, r := range records {
		times[i] = r.TimeS
		xm[i] = r.CX / p.PixelsPerMeter
		ym[i] = r.CY / p.PixelsPerMeter
	}

	vx := gradient(xm, times)
	vy := gradient(ym, times)
	ax := gradient(vx, times)
	ay := gradient(vy, times)

	maxHeight := ym[0]
	for _, y := range ym {
		if y > maxHeight {
			maxHeight = y
		}
	}

	mass := p.ObjectMass
	for i := range records {
		r := &records[i]
		r.XM = xm[i]
		r.YM = ym[i]
		r.VX = vx[i]
		r.VY = vy[i]
		r.AX = ax[i]
		r.AY = ay[i]

		r.Speed = math.Hypot(mathx.Finite(vx[i]), mathx.Finite(vy[i]))
		r.AccelMag = math.Hypot(mathx.Finite(ax[i]), mathx.Finite(ay[i]))

		r.MomentumX = mass * mathx.Finite(vx[i])
		r.MomentumY = mass * mathx.Finite(vy[i])
		r.MomentumMag = mass * r.Speed

		r.ForceX = mass * mathx.Finite(ax[i])
		r.ForceY = mass * mathx.Finite(ay[i])
		r.ForceMag = mass * r.AccelMag

		r.KineticEnergy = 0.5 * mass * r.Speed * r.Speed
		// Relative baseline: zero at the track's highest sampled point.
		r.PotentialEnergy = mass * p.Gravity * (maxHeight - ym[i])
		r.TotalEnergy = r.KineticEnergy + r.PotentialEnergy
	}

	for i := 1; i < n; i++ {
		records[i].Work = records[i].TotalEnergy - records[i-1].TotalEnergy
		dt := times[i] - times[i-1]
		records[i].Power = safeDiv(records[i].Work, dt)
	}

	smoothRecords(records, times, xm, ym, p.SmoothingWindow)

	for i := range records {
		sanitize(&records[i])
	}
	return records
}

// gradient differentiates ys with respect to ts using centered
// differences for interior points and one-sided differences at the
// boundaries. Zero or non-finite denominators yield zero, never NaN or
// infinity.
func gradient(ys, ts []float64) []float64 {
	n := len(ys)
	g := make([]float64, n)
	if n < 2 {
		return g
	}

	g[0] = safeDiv(ys[1]-ys[0], ts[1]-ts[0])
	g[n-1] = safeDiv(ys[n-1]-ys[n-2], ts[n-1]-ts[n-2])
	for i := 1; i < n-1; i++ {
		g[i] = safeDiv(ys[i+1]-ys[i-1], ts[i+1]-ts[i-1])
	}
	return g
}

// safeDiv divides with the degenerate-step rule: a zero or non-finite
// denominator (or numerator) yields zero.
func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0
	}
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return 0
	}
	return mathx.Finite(num / den)
}

// sanitize is the final safety net: no record field may carry a
// non-finite value across the output boundary.
func sanitize(r *Record) {
	fields := []*float64{
		&r.TimeS, &r.XM, &r.YM,
		&r.VX, &r.VY, &r.Speed,
		&r.AX, &r.AY, &r.AccelMag,
		&r.MomentumX, &r.MomentumY, &r.MomentumMag,
		&r.ForceX, &r.ForceY, &r.ForceMag,
		&r.KineticEnergy, &r.PotentialEnergy, &r.TotalEnergy,
		&r.Work, &r.Power,
		&r.XMSmooth, &r.YMSmooth,
		&r.VXSmooth, &r.VYSmooth, &r.AXSmooth, &r.AYSmooth,
	}
	for _, f := range fields {
		*f = mathx.Finite(*f)
	}
}
