// Package motif extracts short recurring gestures from a melody and develops
// them on a fixed usage schedule.
package motif

import (
	"fmt"

	"github.com/dygy/sonigraph/internal/phrase"
)

// Transform is a motif development technique
type Transform string

const (
	Repeat    Transform = "repeat"
	Transpose Transform = "transpose"
	Invert    Transform = "invert"
	Augment   Transform = "augment"
	Fragment  Transform = "fragment"
)

const (
	motifLength    = 4
	fragmentLength = 3
	fifth          = 7
	maxDuration    = 4.5
)

// Motif is a melodic fragment stored relative to its own first note
type Motif struct {
	ID            string    `json:"id"`
	PitchPattern  []int     `json:"pitch_pattern"`
	RhythmPattern []float64 `json:"rhythm_pattern"`
	SourcePhrase  int       `json:"source_phrase"`
}

// Developed is a motif rendered at absolute pitches
type Developed struct {
	Melody    []int
	Rhythm    []float64
	Transform Transform
}

// Extract returns motif A (the opening gesture) and, when the melody is long
// enough, motif B (the most distinctive later window). The motifs are named
// key-A and key-B so a gesture extracted again under the same key carries its
// usage forward; an empty key falls back to p<phraseIndex>.
func Extract(ph *phrase.Phrase, key string, phraseIndex int) []Motif {
	n := ph.Len()
	if n == 0 {
		return nil
	}
	if key == "" {
		key = fmt.Sprintf("p%d", phraseIndex)
	}
	aLen := min(motifLength, n)
	motifs := []Motif{build(ph, 0, aLen, key+"-A", phraseIndex)}

	w := motifLength
	if n < 2*motifLength {
		w = fragmentLength
	}
	best, bestScore := -1, -1
	for start := aLen; start+w <= n; start++ {
		if s := distinctiveness(ph.Melody[start : start+w]); s > bestScore {
			best, bestScore = start, s
		}
	}
	if best >= 0 {
		motifs = append(motifs, build(ph, best, w, key+"-B", phraseIndex))
	}
	return motifs
}

func build(ph *phrase.Phrase, start, length int, id string, phraseIndex int) Motif {
	m := Motif{
		ID:            id,
		PitchPattern:  make([]int, length),
		RhythmPattern: make([]float64, length),
		SourcePhrase:  phraseIndex,
	}
	first := ph.Melody[start]
	for i := 0; i < length; i++ {
		m.PitchPattern[i] = ph.Melody[start+i] - first
		m.RhythmPattern[i] = ph.Rhythm[start+i]
	}
	return m
}

// distinctiveness scores a window by total interval size plus two points per
// change of direction
func distinctiveness(window []int) int {
	score := 0
	prevDir := 0
	for i := 1; i < len(window); i++ {
		d := window[i] - window[i-1]
		score += abs(d)
		dir := sign(d)
		if dir != 0 && prevDir != 0 && dir != prevDir {
			score += 2
		}
		if dir != 0 {
			prevDir = dir
		}
	}
	return score
}

// Develop renders m at basePitch using the given transform. transposition is
// added to every pitch.
func Develop(m Motif, t Transform, basePitch, transposition int) Developed {
	pitches := m.PitchPattern
	rhythm := m.RhythmPattern
	if t == Fragment && len(pitches) > fragmentLength {
		pitches = pitches[:fragmentLength]
		rhythm = rhythm[:fragmentLength]
	}

	out := Developed{
		Melody:    make([]int, len(pitches)),
		Rhythm:    make([]float64, len(rhythm)),
		Transform: t,
	}
	for i, p := range pitches {
		switch t {
		case Transpose:
			out.Melody[i] = basePitch + p + fifth + transposition
		case Invert:
			out.Melody[i] = basePitch - p + transposition
		default:
			out.Melody[i] = basePitch + p + transposition
		}
	}
	for i, r := range rhythm {
		if t == Augment {
			r *= 2
		}
		out.Rhythm[i] = r
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
