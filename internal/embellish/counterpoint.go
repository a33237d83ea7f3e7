package embellish

import (
	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/phrase"
)

// counterpointRhythms is ordered from plain to most syncopated
var counterpointRhythms = [][]float64{
	{1, 1, 1, 1},
	{1.5, 0.5, 1, 1},
	{0.5, 1, 0.5, 2},
	{0.75, 0.75, 0.5, 2},
}

// minorRoots are the pitch classes of the ii, iii and vi chords
var minorRoots = map[int]bool{2: true, 4: true, 9: true}

// counterpoint builds a walking bass: root, fifth, third and an approach
// tone into the next chord, one octave below the centre
func (g *Generator) counterpoint(center *phrase.Phrase, p analysis.Prose) *phrase.Phrase {
	roots := make([]int, 0, len(center.Harmony))
	for i, r := range center.Harmony {
		roots = append(roots, g.validRoot(r, i))
	}
	if len(roots) == 0 {
		roots = []int{0}
	}

	complexity := numeric.ClampOrDefault(p.OverallComplexity, 0, 1, 0.5)
	expr := numeric.ClampOrDefault(p.MusicalExpressiveness, 0, 1, 0.5)
	rhythm := counterpointRhythms[numeric.SafeIndex(len(counterpointRhythms), int(complexity*float64(len(counterpointRhythms))))]

	ph := &phrase.Phrase{
		Harmony: roots,
		Tempo:   center.Tempo,
	}
	for ci, root := range roots {
		next := 0
		if ci+1 < len(roots) {
			next = roots[ci+1]
		}

		fifth := root + 7
		if expr > 0.6 && ci%4 == 3 {
			fifth = root + 6
		}
		third := root + 4
		if minorRoots[pitchClass(root)] {
			third = root + 3
		}
		approach := next - 2
		if g.rng.Float64() < 0.5 {
			approach = next - 1
		}

		for k, pitch := range []int{root, fifth, third, approach} {
			ph.Melody = append(ph.Melody, pitch-12)
			ph.Rhythm = append(ph.Rhythm, rhythm[k])
			v := 0.55
			if k == 0 {
				v = 0.7
			}
			ph.Velocities = append(ph.Velocities, clampVelocity(v))
		}
	}
	ph.Sum()
	return ph
}

func pitchClass(p int) int {
	return ((p % 12) + 12) % 12
}
