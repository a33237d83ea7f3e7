package phrase

import (
	"math"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

// Contour is the overall shape of a sub-phrase
type Contour int

const (
	ContourAscending Contour = iota
	ContourDescending
	ContourArch
	ContourValley
	ContourOscillating
	ContourStatic
)

const (
	maxPitch = 12
	maxLeap  = 7
)

// majorScale marks the pitch classes of the major scale
var majorScale = [12]bool{true, false, true, false, true, true, false, true, false, true, false, true}

// contourWeights are indexed by Contour
var contourWeights = map[analysis.ContentType][]float64{
	analysis.ContentTechnical: {3, 2, 1, 1, 1, 2},
	analysis.ContentCreative:  {2, 2, 3, 2, 3, 0.5},
	analysis.ContentAcademic:  {2, 2, 3, 1, 1, 1},
	analysis.ContentJournal:   {1, 2, 3, 3, 1, 1},
	analysis.ContentMeeting:   {2, 2, 1, 1, 3, 1},
	analysis.ContentList:      {2, 1, 1, 1, 2, 3},
	analysis.ContentReference: {1, 1, 1, 1, 1, 3},
	analysis.ContentGeneral:   {1, 1, 1, 1, 1, 1},
}

// value maps t in [0, 1] to a contour height in [-1, 1]
func (c Contour) value(t float64) float64 {
	switch c {
	case ContourAscending:
		return 2*t - 1
	case ContourDescending:
		return 1 - 2*t
	case ContourArch:
		return 2*math.Sin(math.Pi*t) - 1
	case ContourValley:
		return 1 - 2*math.Sin(math.Pi*t)
	case ContourOscillating:
		return 0.6 * math.Sin(4*math.Pi*t)
	}
	return 0
}

func pickContour(ct analysis.ContentType, rng random.Source) Contour {
	weights, ok := contourWeights[ct]
	if !ok {
		weights = contourWeights[analysis.ContentGeneral]
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	for i, w := range weights {
		if r < w {
			return Contour(i)
		}
		r -= w
	}
	return ContourStatic
}

func (g *Generator) melody(p analysis.Prose, n int, rng random.Source) []int {
	sub := numeric.ClampInt(3+p.Structure.NestingDepth, 3, 8)
	span := 3 + 9*p.OverallComplexity

	out := make([]int, 0, n)
	for start := 0; start < n; start += sub {
		end := min(start+sub, n)
		contour := pickContour(p.ContentType, rng)
		length := end - start

		for j := 0; j < length; j++ {
			t := 0.5
			if length > 1 {
				t = float64(j) / float64(length-1)
			}
			raw := contour.value(t)*span + random.Jitter(rng, 1.5)
			pitch := clampPitch(snapToScale(numeric.Round(raw)))

			if len(out) > 0 {
				prev := out[len(out)-1]
				if abs(pitch-prev) > maxLeap {
					pitch = clampPitch(snapToScale(prev + (pitch-prev)/2))
				}
			}
			out = append(out, pitch)
		}

		if end < n {
			out[end-1] = nearestOf(out[end-1], 0, 7)
		}
	}
	if n > 0 {
		out[n-1] = nearestOf(out[n-1], 0)
	}
	return out
}

// snapToScale moves a chromatic pitch down to the scale tone below it
func snapToScale(p int) int {
	if majorScale[pitchClass(p)] {
		return p
	}
	return p - 1
}

// nearestOf returns the pitch closest to p whose pitch class is one of
// classes, staying within the melody range. Ties resolve downward.
func nearestOf(p int, classes ...int) int {
	p = clampPitch(p)
	for d := 0; d <= 12; d++ {
		for _, cand := range []int{p - d, p + d} {
			if cand < -maxPitch || cand > maxPitch {
				continue
			}
			for _, c := range classes {
				if pitchClass(cand) == c {
					return cand
				}
			}
		}
	}
	return 0
}

func pitchClass(p int) int {
	return ((p % 12) + 12) % 12
}

func clampPitch(p int) int {
	return numeric.ClampInt(p, -maxPitch, maxPitch)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
