package phrase

import (
	"math"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
)

const (
	softExtreme = 0.12
	loudExtreme = 0.95
)

func (g *Generator) velocities(p analysis.Prose, n int) []float64 {
	lo, hi := g.cfg.velocityRange()
	c := p.OverallComplexity
	base := 0.45 + 0.2*c

	out := make([]float64, n)
	for i := range out {
		pos := 0.5
		if n > 1 {
			pos = float64(i) / float64(n-1)
		}
		v := base + math.Sin(math.Pi*pos)*(0.15+0.15*c)
		v += 0.08 * math.Sin(2*math.Pi*float64(i)/8)

		if i%4 == 0 {
			v *= 1.15
		} else if i%2 == 0 {
			v *= 1.05
		}
		if (i+1)%11 == 0 {
			v = softExtreme
		}
		if (i+1)%13 == 0 {
			v = loudExtreme
		}
		out[i] = numeric.ClampOrDefault(v, lo, hi, 0.5)
	}
	return out
}
