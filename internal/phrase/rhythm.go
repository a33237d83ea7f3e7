package phrase

import (
	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

// RhythmMotif names a base duration pattern
type RhythmMotif string

const (
	RhythmSteady   RhythmMotif = "steady"
	RhythmFlowing  RhythmMotif = "flowing"
	RhythmDotted   RhythmMotif = "dotted"
	RhythmSparse   RhythmMotif = "sparse"
	RhythmStaccato RhythmMotif = "staccato"
	RhythmQuestion RhythmMotif = "question"
)

var rhythmMotifs = map[RhythmMotif][]float64{
	RhythmSteady:   {1, 1, 1, 1},
	RhythmFlowing:  {1.5, 0.5, 1, 1},
	RhythmDotted:   {1.5, 0.5, 1.5, 0.5},
	RhythmSparse:   {2, 1, 2, 3},
	RhythmStaccato: {0.5, 0.5, 0.5, 1},
	RhythmQuestion: {1, 1, 0.5, 2.5},
}

// SelectRhythm picks the base motif from density, punctuation and content type
func SelectRhythm(p analysis.Prose) RhythmMotif {
	switch {
	case p.Density.ListDensity > 0.35:
		return RhythmStaccato
	case p.Linguistic.QuestionRatio > 0.25:
		return RhythmQuestion
	case p.Linguistic.PunctuationDensity > 0.08:
		return RhythmDotted
	case p.Density.ContentDensity < 0.3:
		return RhythmSparse
	case p.ContentType == analysis.ContentCreative || p.ContentType == analysis.ContentJournal:
		return RhythmFlowing
	}
	return RhythmSteady
}

func (g *Generator) rhythm(p analysis.Prose, n int, rng random.Source) []float64 {
	lo, hi := g.cfg.durationRange()
	motif := append([]float64(nil), rhythmMotifs[SelectRhythm(p)]...)

	out := make([]float64, n)
	for i := range out {
		cycle, pos := i/len(motif), i%len(motif)
		if pos == 0 && cycle > 0 && cycle%2 == 0 {
			for k := range motif {
				motif[k] = numeric.Clamp(motif[k]+random.Jitter(rng, 0.25), 0.5, 3)
			}
		}

		d := motif[pos] + random.Jitter(rng, 0.1)
		// ritardando at the end of each 8-note group
		switch i % 8 {
		case 6:
			d *= 1.25
		case 7:
			d *= 1.5
		}
		out[i] = numeric.ClampOrDefault(d, lo, hi, 1)
	}
	return out
}
