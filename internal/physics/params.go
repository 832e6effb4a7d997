package physics

// Params holds the calibration for physics derivation. PixelsPerMeter is
// a fixed scalar supplied by the caller; no camera model is involved.
type Params struct {
	// PixelsPerMeter converts pixel coordinates to meters. Must be > 0.
	PixelsPerMeter float64 `json:"pixels_per_meter"`

	// ObjectMass is the tracked object's mass in kilograms. Must be > 0.
	ObjectMass float64 `json:"object_mass"`

	// Gravity is the gravitational acceleration in m/s².
	Gravity float64 `json:"gravity"`

	// AssumedFPS derives time_s = frame / AssumedFPS when the tracker
	// supplied no timestamps.
	AssumedFPS float64 `json:"assumed_fps"`

	// SmoothingWindow is the Savitzky-Golay window length for the
	// smoothed position/velocity/acceleration channels. Values below 3
	// disable smoothing.
	SmoothingWindow int `json:"smoothing_window"`
}

// DefaultParams returns the derivation defaults: uncalibrated scale,
// unit mass, standard gravity, 30fps video.
func DefaultParams() Params {
	return Params{
		PixelsPerMeter:  1.0,
		ObjectMass:      1.0,
		Gravity:         9.81,
		AssumedFPS:      30.0,
		SmoothingWindow: 5,
	}
}
