package phrase

import (
	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
)

var (
	fallbackWalk        = []int{0, 2, 4, 5, 7, 5, 4, 2}
	fallbackProgression = []int{0, 5, 7, 0}
)

// Fallback returns a plain scale walk over I-IV-V-I with a steady rhythm.
// It never fails and is used whenever the main path cannot produce a phrase.
func Fallback(p analysis.Prose, cfg Config) *Phrase {
	n := phraseLength(cfg, p)
	vlo, vhi := cfg.velocityRange()
	dlo, dhi := cfg.durationRange()

	ph := &Phrase{
		Melody:     make([]int, n),
		Rhythm:     make([]float64, n),
		Velocities: make([]float64, n),
		Harmony:    make([]int, max((n+3)/4, 1)),
		Tempo:      phraseTempo(cfg, p),
	}
	for i := 0; i < n; i++ {
		ph.Melody[i] = fallbackWalk[i%len(fallbackWalk)]
		ph.Rhythm[i] = numeric.Clamp(1, dlo, dhi)
		ph.Velocities[i] = numeric.Clamp(0.6, vlo, vhi)
	}
	if n > 0 {
		ph.Melody[n-1] = 0
	}
	for i := range ph.Harmony {
		ph.Harmony[i] = fallbackProgression[i%len(fallbackProgression)]
	}
	ph.Harmony[len(ph.Harmony)-1] = 0
	ph.Sum()
	return ph
}
