package phrase

import (
	"fmt"
	"log/slog"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

// Generator derives phrases from prose features
type Generator struct {
	cfg    Config
	rng    random.Source
	logger *slog.Logger
}

// NewGenerator creates a phrase generator. When rng is nil each call seeds
// its own source from the prose features, so identical prose gives an
// identical phrase.
func NewGenerator(cfg Config, rng random.Source, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{cfg: cfg, rng: rng, logger: logger}
}

// Generate builds a phrase. It never fails: malformed features are replaced
// by neutral values and any failure of the main path falls back to a
// simplified phrase.
func (g *Generator) Generate(p analysis.Prose) (ph *Phrase) {
	p = p.Sanitized(g.logger)

	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("phrase generation panicked, using fallback", slog.Any("panic", r))
			ph = Fallback(p, g.cfg)
		}
	}()

	var err error
	ph, err = g.generate(p, g.source(p))
	if err != nil {
		g.logger.Warn("phrase generation failed, using fallback", slog.Any("error", err))
		return Fallback(p, g.cfg)
	}
	return ph
}

func (g *Generator) source(p analysis.Prose) random.Source {
	if g.rng != nil {
		return g.rng
	}
	return random.NewSeeded(random.Seed(p.Features()...))
}

func (g *Generator) generate(p analysis.Prose, rng random.Source) (*Phrase, error) {
	n := g.Length(p)

	harmony, err := g.harmony(p, n, rng)
	if err != nil {
		return nil, fmt.Errorf("harmony: %w", err)
	}

	ph := &Phrase{
		Melody:     g.melody(p, n, rng),
		Harmony:    harmony,
		Rhythm:     g.rhythm(p, n, rng),
		Velocities: g.velocities(p, n),
		Tempo:      g.Tempo(p),
	}
	ph.Sum()
	return ph, nil
}

// Length returns the number of notes for the prose: 16 + 32 * content
// density, rounded and clamped.
func (g *Generator) Length(p analysis.Prose) int {
	return phraseLength(g.cfg, p)
}

// Tempo returns the base tempo for the content type scaled by how the
// average sentence compares to the reference length.
func (g *Generator) Tempo(p analysis.Prose) float64 {
	return phraseTempo(g.cfg, p)
}

func phraseLength(cfg Config, p analysis.Prose) int {
	lo, hi := cfg.lengthRange()
	density := numeric.ClampOrDefault(p.Density.ContentDensity, 0, 1, 0.5)
	return numeric.ClampInt(numeric.Round(16+32*density), lo, hi)
}

func phraseTempo(cfg Config, p analysis.Prose) float64 {
	ref := cfg.ReferenceSentenceLength
	if !(ref > 0) || !numeric.Finite(ref) {
		ref = 15
	}
	factor := 1.0
	if s := p.Linguistic.AvgSentenceLength; numeric.Finite(s) && s > 0 {
		factor = numeric.Clamp(ref/s, 0.7, 1.3)
	}
	return cfg.tempoFor(p.ContentType) * factor
}
