// Package motion turns raw accelerometer readings into g-force readings and
// decides when a reading is an impact.
package motion

import (
	"math"
	"time"
)

// StandardGravity converts m/s² to g.
const StandardGravity = 9.81

// Acceleration is one three-axis reading in m/s². A nil axis was not
// reported by the sensor and counts as 0.
type Acceleration struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// NewAcceleration builds a reading with all three axes present.
func NewAcceleration(x, y, z float64) Acceleration {
	return Acceleration{X: &x, Y: &y, Z: &z}
}

func axis(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Magnitude returns the vector length of a in g.
func Magnitude(a Acceleration) float64 {
	x, y, z := axis(a.X), axis(a.Y), axis(a.Z)
	return math.Sqrt(x*x+y*y+z*z) / StandardGravity
}

// Severity buckets a g-force value relative to the threshold.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityElevated Severity = "elevated"
	SeverityImpact   Severity = "impact"
)

// elevatedRatio is the fraction of the threshold above which a reading is elevated.
const elevatedRatio = 0.7

// Classify returns the severity of gForce for the given threshold.
func Classify(gForce, threshold float64) Severity {
	switch {
	case gForce > threshold:
		return SeverityImpact
	case gForce > threshold*elevatedRatio:
		return SeverityElevated
	default:
		return SeverityNormal
	}
}

// Progress is gForce as a percentage of threshold, capped at 100.
func Progress(gForce, threshold float64) float64 {
	if threshold <= 0 {
		return 100
	}
	return math.Min(gForce/threshold*100, 100)
}

// Window reports whether a magnitude crosses the threshold once the warm-up
// period since activation has passed.
func Window(magnitude, threshold float64, elapsed, warmUp time.Duration) bool {
	return magnitude > threshold && elapsed >= warmUp
}

// Reading is the result of observing one sample.
type Reading struct {
	GForce    float64   `json:"g_force"`
	Jerk      float64   `json:"jerk"`
	HasJerk   bool      `json:"has_jerk"`
	Progress  float64   `json:"progress"`
	Severity  Severity  `json:"severity"`
	Impact    bool      `json:"impact"`
	Threshold float64   `json:"threshold"`
	At        time.Time `json:"at"`
}
