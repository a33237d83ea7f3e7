// Package numeric holds the clamp-or-default helpers every generator uses to keep
// NaN and infinities out of musical data.
package numeric

import "math"

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// OrDefault returns def when v is NaN or infinite.
func OrDefault(v, def float64) float64 {
	if !Finite(v) {
		return def
	}
	return v
}

// Clamp bounds v to [lo, hi]. NaN clamps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt bounds v to [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampOrDefault replaces a non-finite v with def, then clamps.
func ClampOrDefault(v, lo, hi, def float64) float64 {
	return Clamp(OrDefault(v, def), lo, hi)
}

// SafeIndex maps i into [0, n-1]. Returns -1 when n is zero.
func SafeIndex(n, i int) int {
	if n <= 0 {
		return -1
	}
	return ClampInt(i, 0, n-1)
}

// Round rounds to the nearest integer, half away from zero. Non-finite input rounds to 0.
func Round(v float64) int {
	if !Finite(v) {
		return 0
	}
	return int(math.Round(v))
}

// Sign returns -1, 0 or 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
