// Package phrase turns a prose feature record into a melody, a chord
// progression, a rhythm and a dynamic curve.
package phrase

import "github.com/dygy/sonigraph/internal/numeric"

// Phrase is the central value object. Melody, Rhythm and Velocities always
// have the same length; Harmony may be shorter or longer and is read through
// ChordAt.
type Phrase struct {
	Melody     []int     `json:"melody"`     // semitones from the tonal centre
	Harmony    []int     `json:"harmony"`    // chord roots, semitones from the tonal centre
	Rhythm     []float64 `json:"rhythm"`     // beats
	Velocities []float64 `json:"velocities"` // 0-1
	Tempo      float64   `json:"tempo"`      // BPM
	TotalBeats float64   `json:"total_beats"`
}

// Len returns the number of notes
func (p *Phrase) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Melody)
}

// ChordAt returns the chord root sounding under melody note i. The melody
// index is mapped proportionally onto the harmony and clamped; an empty
// harmony reads as the tonic.
func (p *Phrase) ChordAt(i int) int {
	if p == nil || len(p.Harmony) == 0 {
		return 0
	}
	n := len(p.Melody)
	idx := i
	if n > 0 {
		idx = i * len(p.Harmony) / n
	}
	return p.Harmony[numeric.SafeIndex(len(p.Harmony), idx)]
}

// Clone returns a deep copy
func (p *Phrase) Clone() *Phrase {
	if p == nil {
		return nil
	}
	return &Phrase{
		Melody:     append([]int(nil), p.Melody...),
		Harmony:    append([]int(nil), p.Harmony...),
		Rhythm:     append([]float64(nil), p.Rhythm...),
		Velocities: append([]float64(nil), p.Velocities...),
		Tempo:      p.Tempo,
		TotalBeats: p.TotalBeats,
	}
}

// Sum recomputes TotalBeats from Rhythm
func (p *Phrase) Sum() float64 {
	total := 0.0
	for _, r := range p.Rhythm {
		total += r
	}
	p.TotalBeats = total
	return total
}

// UniqueRoots returns the distinct chord roots in order of first appearance
func (p *Phrase) UniqueRoots() []int {
	seen := make(map[int]bool)
	var roots []int
	for _, r := range p.Harmony {
		if !seen[r] {
			seen[r] = true
			roots = append(roots, r)
		}
	}
	return roots
}
