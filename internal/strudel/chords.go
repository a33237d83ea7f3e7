package strudel

import (
	"fmt"
	"strings"
)

// ChordType represents the quality of a chord
type ChordType string

const (
	ChordMajor ChordType = ""    // C (no suffix for major triad)
	ChordMinor ChordType = "m"   // Cm
	ChordDim   ChordType = "dim" // Cdim
)

// Chord is one harmony step
type Chord struct {
	Root  string    // Root note name (C, Db, D, ...)
	Type  ChordType // Chord quality
	Beats int       // Repetitions when merged
}

// Name returns the full chord name (e.g., "Am", "Bdim")
func (c *Chord) Name() string {
	return c.Root + string(c.Type)
}

// qualityFor picks a diatonic quality for a root a given number of semitones
// above the tonic. Chromatic roots are treated as borrowed major chords.
func qualityFor(interval int) ChordType {
	switch ((interval % 12) + 12) % 12 {
	case 2, 4, 9:
		return ChordMinor
	case 11:
		return ChordDim
	default:
		return ChordMajor
	}
}

// ChordsFromHarmony names each harmony root relative to the tonic pitch class
func ChordsFromHarmony(harmony []int, tonic int) []Chord {
	chords := make([]Chord, 0, len(harmony))
	for _, root := range harmony {
		chords = append(chords, Chord{
			Root:  pitchClassName(tonic + root),
			Type:  qualityFor(root),
			Beats: 1,
		})
	}
	return chords
}

// pitchClassName returns the note name for a pitch class
func pitchClassName(pc int) string {
	names := []string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
	return names[((pc%12)+12)%12]
}

// mergeConsecutiveChords combines adjacent identical chords
func mergeConsecutiveChords(chords []Chord) []Chord {
	if len(chords) <= 1 {
		return chords
	}

	var merged []Chord
	current := chords[0]

	for i := 1; i < len(chords); i++ {
		if chords[i].Root == current.Root && chords[i].Type == current.Type {
			current.Beats += chords[i].Beats
		} else {
			merged = append(merged, current)
			current = chords[i]
		}
	}
	merged = append(merged, current)

	return merged
}

// buildChordPattern creates a mini-notation sequence from chords with
// repeated chords folded into name!n
func buildChordPattern(chords []Chord) string {
	chords = mergeConsecutiveChords(chords)
	if len(chords) == 0 {
		return "~"
	}

	var parts []string
	for _, c := range chords {
		name := c.Name()
		if c.Beats > 1 {
			parts = append(parts, fmt.Sprintf("%s!%d", name, c.Beats))
		} else {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " ")
}
