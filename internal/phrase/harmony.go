package phrase

import (
	"log/slog"

	"github.com/dygy/sonigraph/internal/analysis"
	apperrors "github.com/dygy/sonigraph/internal/errors"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

const (
	colourThreshold = 0.6
	passingDistance = 5
	halfCadence     = 7
)

// progression reads the configured roots for a content type, replacing any
// non-finite entry with the tonic.
func (g *Generator) progression(ct analysis.ContentType) ([]int, error) {
	raw, ok := g.cfg.Progressions[ct]
	if !ok {
		raw = g.cfg.Progressions[analysis.ContentGeneral]
	}
	if len(raw) == 0 {
		return nil, apperrors.ErrEmptyProgression
	}
	roots := make([]int, len(raw))
	for i, v := range raw {
		if !numeric.Finite(v) {
			g.logger.Warn("invalid chord root in progression, using tonic",
				slog.String("content_type", string(ct)), slog.Int("index", i))
		}
		roots[i] = numeric.Round(numeric.OrDefault(v, 0))
	}
	return roots, nil
}

// harmony repeats the progression to cover one chord per four notes, adds
// colour for expressive prose, sets cadences and inserts passing chords.
func (g *Generator) harmony(p analysis.Prose, n int, rng random.Source) ([]int, error) {
	prog, err := g.progression(p.ContentType)
	if err != nil {
		return nil, err
	}
	need := max((n+3)/4, 1)

	chords := make([]int, need)
	for i := range chords {
		chords[i] = prog[i%len(prog)]
	}

	expr := p.MusicalExpressiveness
	if expr > colourThreshold {
		for i := 0; i < need-1; i++ {
			if rng.Float64() < 0.3*expr {
				chords[i] = colour(chords[i], rng)
			}
		}
	}

	// interior repetitions close on the dominant, the last on the tonic
	for end := len(prog) - 1; end < need-1; end += len(prog) {
		chords[end] = halfCadence
	}
	chords[need-1] = 0

	out := make([]int, 0, need*2)
	for i, c := range chords {
		out = append(out, c)
		if i+1 < len(chords) {
			next := chords[i+1]
			if abs(next-c) > passingDistance {
				out = append(out, next+int(numeric.Sign(float64(c-next))))
			}
		}
	}
	return out, nil
}

// colour applies one chromatic substitution to a chord root
func colour(root int, rng random.Source) int {
	switch pitchClass(root) {
	case 7:
		// tritone substitution for the dominant
		if rng.Float64() < 0.5 {
			return root - 6
		}
	case 5:
		// borrowed bVI
		if rng.Float64() < 0.5 {
			return root + 3
		}
	case 9:
		// borrowed bVII
		if rng.Float64() < 0.5 {
			return root + 1
		}
	}
	// added ninth
	return root + 2
}
