package embellish

import (
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/random"
)

const (
	thirdUp = 4
	leap    = 5
	octave  = 12
)

// harmonicResponse answers the centre melody: inverted around its mean,
// blended with the original, a third higher and complementary in rhythm
func (g *Generator) harmonicResponse(center *phrase.Phrase) *phrase.Phrase {
	n := center.Len()
	length := max(4, 2*n/3)

	mean := 0.0
	for _, m := range center.Melody {
		mean += float64(m)
	}
	mean /= float64(n)

	indep := numeric.ClampOrDefault(g.cfg.Independence, 0, 1, 0.6)
	dev := max(g.cfg.MaxDeviation, 0)

	ph := &phrase.Phrase{
		Melody:     make([]int, length),
		Harmony:    make([]int, length),
		Rhythm:     make([]float64, length),
		Velocities: make([]float64, length),
		Tempo:      center.Tempo,
	}
	for i := 0; i < length; i++ {
		src := numeric.SafeIndex(n, i)
		orig := float64(center.Melody[src])
		inverted := 2*mean - orig
		pitch := numeric.Round(indep*inverted+(1-indep)*orig) + thirdUp
		pitch += g.rng.IntN(2*dev+1) - dev

		switch {
		case i > 0 && i%9 == 0:
			pitch += octave
		case i > 0 && i%7 == 0:
			pitch += int(random.SignOf(g.rng)) * leap
		case i > 0 && i%5 == 0:
			// a stepwise run following the centre's direction
			dir := 1
			if src > 0 && center.Melody[src] < center.Melody[src-1] {
				dir = -1
			}
			pitch = ph.Melody[i-1] + 2*dir
		}
		ph.Melody[i] = pitch

		ph.Harmony[i] = g.chordAt(center, src)
		ph.Rhythm[i] = numeric.Clamp(2-center.Rhythm[src], 0.5, 2)

		v := center.Velocities[src]
		switch {
		case i%6 == 0:
			v *= g.cfg.WhisperMultiplier
		case i%4 == 1:
			v *= g.cfg.AccentMultiplier
		default:
			v *= g.cfg.NormalMultiplier
		}
		ph.Velocities[i] = clampVelocity(v)
	}
	ph.Sum()
	return ph
}
