// Package panning moves notes across the stereo field over time and by graph
// depth.
package panning

import (
	"log/slog"
	"math"

	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

// directional pans are strong enough that animation must not flip their side
const directional = 0.1

// Config controls dynamic panning
type Config struct {
	Speed          float64 `yaml:"speed" json:"speed"` // cycles per beat
	Amplitude      float64 `yaml:"amplitude" json:"amplitude"`
	DepthSpread    float64 `yaml:"depth_spread" json:"depth_spread"`
	MaxDepthOffset float64 `yaml:"max_depth_offset" json:"max_depth_offset"`
	Smoothing      float64 `yaml:"smoothing" json:"smoothing"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Speed:          0.125,
		Amplitude:      0.15,
		DepthSpread:    0.15,
		MaxDepthOffset: 0.6,
		Smoothing:      0.3,
	}
}

// Controller applies dynamic panning
type Controller struct {
	cfg    Config
	rng    random.Source
	logger *slog.Logger
}

// NewController creates a panning controller. variation picks the side each
// deeper note spreads to.
func NewController(cfg Config, variation random.Source, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if variation == nil {
		variation = random.NewEntropy()
	}
	cfg.Smoothing = numeric.ClampOrDefault(cfg.Smoothing, 0, 1, 0.3)
	return &Controller{cfg: cfg, rng: variation, logger: logger}
}

// Offset returns the pan a note would have before smoothing
func (c *Controller) Offset(n mapping.Note) float64 {
	base := numeric.OrDefault(n.Pan, 0)
	pan := base

	anim := c.cfg.Amplitude * math.Sin(2*math.Pi*c.cfg.Speed*n.Timing)
	if math.Abs(base) <= directional || numeric.Sign(base+anim) == numeric.Sign(base) {
		pan += anim
	}

	if n.Depth > 0 {
		spread := math.Min(float64(n.Depth)*c.cfg.DepthSpread, c.cfg.MaxDepthOffset)
		pan += random.SignOf(c.rng) * spread
	}
	return numeric.OrDefault(pan, base)
}

// Apply pans notes in place and returns them. Every pan ends in [-1, 1].
func (c *Controller) Apply(notes []mapping.Note) []mapping.Note {
	s := c.cfg.Smoothing
	prev := 0.0
	for i := range notes {
		cur := c.Offset(notes[i])
		if i > 0 {
			cur = s*prev + (1-s)*cur
		}
		cur = numeric.Clamp(cur, -1, 1)
		notes[i].Pan = cur
		prev = cur
	}
	return notes
}
