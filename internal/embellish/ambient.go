package embellish

import "github.com/dygy/sonigraph/internal/phrase"

const (
	ambientOctaves  = 24
	ambientDuration = 4
)

// ambient holds long soft tones cycling through the centre's distinct chord
// roots two octaves up at half tempo
func (g *Generator) ambient(center *phrase.Phrase) *phrase.Phrase {
	var roots []int
	for i, r := range center.UniqueRoots() {
		roots = append(roots, g.validRoot(r, i))
	}
	if len(roots) == 0 {
		roots = []int{0}
	}

	tones := max(g.cfg.AmbientTones, 1)
	ph := &phrase.Phrase{
		Melody:     make([]int, tones),
		Harmony:    make([]int, tones),
		Rhythm:     make([]float64, tones),
		Velocities: make([]float64, tones),
		Tempo:      center.Tempo / 2,
	}
	for i := 0; i < tones; i++ {
		r := roots[i%len(roots)]
		ph.Melody[i] = r + ambientOctaves
		ph.Harmony[i] = r
		ph.Rhythm[i] = ambientDuration
		ph.Velocities[i] = clampVelocity(g.cfg.AmbientVelocity)
	}
	ph.Sum()
	return ph
}
