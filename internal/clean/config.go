package clean

// Config holds the tuning parameters for track cleaning. All thresholds
// are expressed in pixel units of the source video.
type Config struct {
	// MaxGap is the largest frame gap still treated as contiguous when
	// selecting the longest unbroken run of a track.
	MaxGap int `json:"max_gap"`

	// KSpeed is the MAD multiplier for the teleport threshold on
	// per-step displacement speed.
	KSpeed float64 `json:"k_speed"`

	// KBack is the MAD multiplier for the backward-jump threshold on dx.
	KBack float64 `json:"k_back"`

	// BackMin is the floor (pixels) under the MAD-derived back-jump
	// threshold; smaller regressions never count as back-jumps.
	BackMin float64 `json:"back_min"`

	// CXTol is the tolerance (pixels) for non-monotone wiggle in the
	// dominant motion axis.
	CXTol float64 `json:"cx_tol"`

	// KResid is the MAD multiplier for residual trimming against the
	// fitted quadratic.
	KResid float64 `json:"k_resid"`

	// TrimPasses bounds the iterative refit-and-trim rounds.
	TrimPasses int `json:"trim_passes"`

	// Invert swaps the inlier and outlier sets. Inspection switch only.
	Invert bool `json:"invert,omitempty"`
}

// DefaultConfig returns the cleaning parameters tuned for 30fps tracker
// output at typical video resolutions.
func DefaultConfig() Config {
	return Config{
		MaxGap:     1,
		KSpeed:     4.0,
		KBack:      3.5,
		BackMin:    15.0,
		CXTol:      8.0,
		KResid:     3.5,
		TrimPasses: 3,
	}
}
