// Package mapping defines the flattened note record the post-processing passes share.
package mapping

import (
	"log/slog"

	"github.com/dygy/sonigraph/internal/numeric"
)

// DefaultRootFrequency is A3, the pitch a zero semitone offset sounds at
const DefaultRootFrequency = 220.0

// Note is one scheduled sound. Timing and Duration are in beats.
type Note struct {
	NodeID          string  `json:"node_id"`
	Instrument      string  `json:"instrument"`
	Timing          float64 `json:"timing"`
	Duration        float64 `json:"duration"`
	Velocity        float64 `json:"velocity"`
	Pan             float64 `json:"pan"`
	Frequency       float64 `json:"frequency"`
	Semitone        int     `json:"semitone"`
	Depth           int     `json:"depth"`
	IsSolo          bool    `json:"is_solo,omitempty"`
	IsAccompaniment bool    `json:"is_accompaniment,omitempty"`
	TurnIndex       int     `json:"turn_index"`
}

// Normalize validates notes once at the boundary so later passes can trust
// every numeric field. It returns the number of fields repaired.
func Normalize(notes []Note, rootFrequency float64, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	rootFrequency = numeric.OrDefault(rootFrequency, DefaultRootFrequency)
	if rootFrequency <= 0 {
		rootFrequency = DefaultRootFrequency
	}

	repaired := 0
	fix := func(i int, field string, v, def float64) float64 {
		if numeric.Finite(v) {
			return v
		}
		repaired++
		logger.Warn("non-finite note field replaced",
			slog.Int("index", i), slog.String("field", field), slog.Float64("default", def))
		return def
	}

	for i := range notes {
		n := &notes[i]
		n.Timing = fix(i, "timing", n.Timing, 0)
		if n.Timing < 0 {
			n.Timing = 0
		}
		n.Duration = fix(i, "duration", n.Duration, 1)
		if n.Duration <= 0 {
			repaired++
			n.Duration = 1
		}
		n.Velocity = numeric.Clamp(fix(i, "velocity", n.Velocity, 0.5), 0, 1)
		n.Pan = numeric.Clamp(fix(i, "pan", n.Pan, 0), -1, 1)
		n.Frequency = fix(i, "frequency", n.Frequency, rootFrequency)
		if n.Frequency <= 0 {
			repaired++
			n.Frequency = rootFrequency
		}
		if n.Depth < 0 {
			n.Depth = 0
		}
	}
	return repaired
}

// Clone returns a copy of notes
func Clone(notes []Note) []Note {
	out := make([]Note, len(notes))
	copy(out, notes)
	return out
}

// End returns the beat at which the last note finishes
func End(notes []Note) float64 {
	end := 0.0
	for _, n := range notes {
		end = max(end, n.Timing+n.Duration)
	}
	return end
}
