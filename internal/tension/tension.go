// Package tension maps a position in the piece to a tension level and the
// pitch, velocity and duration modulation that follows from it.
package tension

import (
	"log/slog"
	"math"

	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/numeric"
)

// Shape is a tension arc
type Shape string

const (
	RiseFall Shape = "rise-fall"
	Build    Shape = "build"
	Release  Shape = "release"
	Wave     Shape = "wave"
	Plateau  Shape = "plateau"
)

// Shapes lists the known arcs
var Shapes = []Shape{RiseFall, Build, Release, Wave, Plateau}

// Config controls the arc and how strongly it modulates notes
type Config struct {
	Shape         Shape   `yaml:"shape" json:"shape"`
	PeakPosition  float64 `yaml:"peak_position" json:"peak_position"`
	PlateauWidth  float64 `yaml:"plateau_width" json:"plateau_width"`
	Waves         int     `yaml:"waves" json:"waves"`
	Intensity     float64 `yaml:"intensity" json:"intensity"`
	PitchRange    float64 `yaml:"pitch_range" json:"pitch_range"`       // semitones
	VelocityRange float64 `yaml:"velocity_range" json:"velocity_range"` // fraction
	DurationRange float64 `yaml:"duration_range" json:"duration_range"` // fraction
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Shape:         RiseFall,
		PeakPosition:  0.7,
		PlateauWidth:  0.3,
		Waves:         3,
		Intensity:     0.5,
		PitchRange:    2,
		VelocityRange: 0.3,
		DurationRange: 0.2,
	}
}

// Modulation is what the arc asks of a note at one position
type Modulation struct {
	PitchOffset        int     `json:"pitch_offset"`
	VelocityMultiplier float64 `json:"velocity_multiplier"`
	DurationMultiplier float64 `json:"duration_multiplier"`
	TensionLevel       float64 `json:"tension_level"`
}

// Controller evaluates the arc. It holds no state beyond its config.
type Controller struct {
	cfg    Config
	logger *slog.Logger
}

// NewController creates a tension arc controller
func NewController(cfg Config, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.PeakPosition = numeric.ClampOrDefault(cfg.PeakPosition, 0, 1, 0.7)
	cfg.PlateauWidth = numeric.ClampOrDefault(cfg.PlateauWidth, 0, 1, 0.3)
	if cfg.Waves <= 0 {
		cfg.Waves = 3
	}
	return &Controller{cfg: cfg, logger: logger}
}

// TensionLevel returns the arc height in [0, 1] at pos in [0, 1]
func (c *Controller) TensionLevel(pos float64) float64 {
	pos = numeric.ClampOrDefault(pos, 0, 1, 0)
	peak := c.cfg.PeakPosition

	var t float64
	switch c.cfg.Shape {
	case Build:
		t = 0.2 + 0.8*math.Pow(pos, 1.5)
	case Release:
		t = 1 - 0.8*math.Pow(pos, 1.5)
	case Wave:
		t = 0.5 - 0.5*math.Cos(2*math.Pi*float64(c.cfg.Waves)*pos)
	case Plateau:
		half := c.cfg.PlateauWidth / 2
		lo, hi := peak-half, peak+half
		switch {
		case pos >= lo && pos <= hi:
			t = 1
		case pos < lo:
			t = 1 - square((lo-pos)/math.Max(lo, 1e-9))
		default:
			t = 1 - square((pos-hi)/math.Max(1-hi, 1e-9))
		}
	case RiseFall:
		t = riseFall(pos, peak)
	default:
		c.logger.Warn("unknown tension shape, using rise-fall", slog.String("shape", string(c.cfg.Shape)))
		t = riseFall(pos, peak)
	}
	return numeric.Clamp(t, 0, 1)
}

// riseFall eases in and out up to the peak, then mirrors back down
func riseFall(pos, peak float64) float64 {
	if pos <= peak {
		if peak <= 0 {
			return 1
		}
		return easeInOut(pos / peak)
	}
	if peak >= 1 {
		return 1
	}
	return easeInOut(1 - (pos-peak)/(1-peak))
}

func easeInOut(x float64) float64 {
	if x < 0.5 {
		return 2 * x * x
	}
	return 1 - square(-2*x+2)/2
}

func square(x float64) float64 { return x * x }

// Modulation maps the tension at pos to note adjustments. Tension 0.5 is
// neutral.
func (c *Controller) Modulation(pos float64) Modulation {
	t := c.TensionLevel(pos)
	d := 2 * (t - 0.5)
	i := c.cfg.Intensity
	return Modulation{
		PitchOffset:        numeric.Round(d * c.cfg.PitchRange * i),
		VelocityMultiplier: 1 + d*c.cfg.VelocityRange*i,
		DurationMultiplier: 1 - d*c.cfg.DurationRange*i,
		TensionLevel:       t,
	}
}

// Apply modulates notes in place by their position between the first and
// last onset. Order and length are preserved.
func (c *Controller) Apply(notes []mapping.Note) []mapping.Note {
	if len(notes) == 0 {
		return notes
	}
	start, end := notes[0].Timing, notes[0].Timing
	for _, n := range notes {
		start = math.Min(start, n.Timing)
		end = math.Max(end, n.Timing)
	}
	span := end - start

	for i := range notes {
		n := &notes[i]
		pos := 0.0
		if span > 0 {
			pos = (n.Timing - start) / span
		}
		m := c.Modulation(pos)
		if m.PitchOffset != 0 {
			n.Semitone += m.PitchOffset
			n.Frequency *= math.Pow(2, float64(m.PitchOffset)/12)
		}
		n.Velocity = numeric.Clamp(n.Velocity*m.VelocityMultiplier, 0, 1)
		n.Duration = math.Max(n.Duration*m.DurationMultiplier, 0.05)
	}
	return notes
}
