// Package embellish derives secondary phrases for the graph neighbours of a
// note from the note's own phrase.
package embellish

import (
	"log/slog"
	"sort"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/random"
)

// Type names which generator produced an embellishment
type Type string

const (
	HarmonicResponse     Type = "harmonic-response"
	RhythmicCounterpoint Type = "rhythmic-counterpoint"
	AmbientTexture       Type = "ambient-texture"
)

// maxChordRoot bounds what counts as a usable chord root
const maxChordRoot = 24

// Embellishment is a secondary phrase voiced for one neighbouring note
type Embellishment struct {
	NodeID string         `json:"node_id"`
	Depth  int            `json:"depth"`
	Type   Type           `json:"type"`
	Phrase *phrase.Phrase `json:"phrase"`
}

// Config controls embellishment caps and shaping
type Config struct {
	MaxTotal          int     `yaml:"max_total" json:"max_total"`
	MaxDepth1         int     `yaml:"max_depth1" json:"max_depth1"`
	MaxDepth2         int     `yaml:"max_depth2" json:"max_depth2"`
	MaxDeeper         int     `yaml:"max_deeper" json:"max_deeper"`
	Independence      float64 `yaml:"independence" json:"independence"`
	MaxDeviation      int     `yaml:"max_deviation" json:"max_deviation"`
	WhisperMultiplier float64 `yaml:"whisper_multiplier" json:"whisper_multiplier"`
	AccentMultiplier  float64 `yaml:"accent_multiplier" json:"accent_multiplier"`
	NormalMultiplier  float64 `yaml:"normal_multiplier" json:"normal_multiplier"`
	AmbientTones      int     `yaml:"ambient_tones" json:"ambient_tones"`
	AmbientVelocity   float64 `yaml:"ambient_velocity" json:"ambient_velocity"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MaxTotal:          6,
		MaxDepth1:         3,
		MaxDepth2:         2,
		MaxDeeper:         1,
		Independence:      0.6,
		MaxDeviation:      2,
		WhisperMultiplier: 0.5,
		AccentMultiplier:  1.2,
		NormalMultiplier:  0.85,
		AmbientTones:      6,
		AmbientVelocity:   0.25,
	}
}

// Generator produces embellishments
type Generator struct {
	cfg    Config
	rng    random.Source
	logger *slog.Logger
}

// NewGenerator creates an embellishment generator
func NewGenerator(cfg Config, rng random.Source, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if rng == nil {
		rng = random.NewSeeded(0)
	}
	return &Generator{cfg: cfg, rng: rng, logger: logger}
}

// Generate returns at most MaxTotal embellishments for the neighbours,
// visiting depths in ascending order and node ids in sorted order.
func (g *Generator) Generate(center *phrase.Phrase, p analysis.Prose, neighbors map[int][]string) []Embellishment {
	if center.Len() == 0 {
		return nil
	}

	depths := make([]int, 0, len(neighbors))
	for d := range neighbors {
		if d > 0 {
			depths = append(depths, d)
		}
	}
	sort.Ints(depths)

	used := map[Type]int{}
	var out []Embellishment
	for _, depth := range depths {
		ids := append([]string(nil), neighbors[depth]...)
		sort.Strings(ids)

		typ, limit := g.bucket(depth)
		for _, id := range ids {
			if len(out) >= g.cfg.MaxTotal {
				return out
			}
			if used[typ] >= limit {
				break
			}

			var ph *phrase.Phrase
			switch typ {
			case HarmonicResponse:
				ph = g.harmonicResponse(center)
			case RhythmicCounterpoint:
				ph = g.counterpoint(center, p)
			default:
				ph = g.ambient(center)
			}
			used[typ]++
			out = append(out, Embellishment{NodeID: id, Depth: depth, Type: typ, Phrase: ph})
		}
	}

	g.logger.Debug("generated embellishments", slog.Int("count", len(out)))
	return out
}

func (g *Generator) bucket(depth int) (Type, int) {
	switch depth {
	case 1:
		return HarmonicResponse, g.cfg.MaxDepth1
	case 2:
		return RhythmicCounterpoint, g.cfg.MaxDepth2
	}
	return AmbientTexture, g.cfg.MaxDeeper
}

// chordAt reads the centre harmony under melody note i, replacing an
// unusable root with the tonic
func (g *Generator) chordAt(center *phrase.Phrase, i int) int {
	return g.validRoot(center.ChordAt(i), i)
}

func (g *Generator) validRoot(root, i int) int {
	if root < -maxChordRoot || root > maxChordRoot {
		g.logger.Warn("invalid harmony value, using tonic", slog.Int("index", i), slog.Int("value", root))
		return 0
	}
	return root
}

func clampVelocity(v float64) float64 {
	return numeric.ClampOrDefault(v, 0.08, 0.99, 0.5)
}
