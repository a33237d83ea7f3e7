// Package strudel renders compositions as Strudel live-coding patterns.
package strudel

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/midi"
	"github.com/dygy/sonigraph/internal/numeric"
)

// MaxBars limits pattern length for readability
const MaxBars = 32

// SoundPalette defines the sound for each instrument
type SoundPalette struct {
	Lead  string
	Keys  string
	Bass  string
	Pad   string
	Chord string
}

// Predefined sound palettes for each content type
var soundPalettes = map[analysis.ContentType]SoundPalette{
	analysis.ContentTechnical: {
		Lead: "gm_lead_1_square", Keys: "gm_electric_piano_1", Bass: "gm_synth_bass_1",
		Pad: "gm_pad_poly", Chord: "gm_pad_metallic",
	},
	analysis.ContentCreative: {
		Lead: "gm_flute", Keys: "gm_harp", Bass: "gm_contrabass",
		Pad: "gm_string_ensemble_1", Chord: "gm_pad_warm",
	},
	analysis.ContentAcademic: {
		Lead: "gm_violin", Keys: "gm_harpsichord", Bass: "gm_cello",
		Pad: "gm_string_ensemble_2", Chord: "gm_church_organ",
	},
	analysis.ContentJournal: {
		Lead: "gm_acoustic_grand_piano", Keys: "gm_electric_piano_2", Bass: "gm_acoustic_bass",
		Pad: "gm_pad_warm", Chord: "gm_pad_halo",
	},
	analysis.ContentMeeting: {
		Lead: "gm_vibraphone", Keys: "gm_marimba", Bass: "gm_electric_bass_finger",
		Pad: "gm_pad_choir", Chord: "gm_pad_warm",
	},
	analysis.ContentList: {
		Lead: "gm_music_box", Keys: "gm_celesta", Bass: "gm_electric_bass_pick",
		Pad: "gm_pad_sweep", Chord: "gm_pad_poly",
	},
	analysis.ContentReference: {
		Lead: "gm_clarinet", Keys: "gm_acoustic_grand_piano", Bass: "gm_acoustic_bass",
		Pad: "gm_pad_bowed", Chord: "gm_pad_warm",
	},
	analysis.ContentGeneral: {
		Lead: "gm_acoustic_grand_piano", Keys: "gm_electric_piano_1", Bass: "gm_acoustic_bass",
		Pad: "gm_pad_warm", Chord: "gm_pad_warm",
	},
}

// Palette returns the sounds for a content type, falling back to general
func Palette(ct analysis.ContentType) SoundPalette {
	if p, ok := soundPalettes[ct]; ok {
		return p
	}
	return soundPalettes[analysis.ContentGeneral]
}

func (p SoundPalette) soundFor(instrument string) string {
	switch instrument {
	case composition.Keys:
		return p.Keys
	case composition.Bass:
		return p.Bass
	case composition.Pad:
		return p.Pad
	default:
		return p.Lead
	}
}

// Generator converts compositions to Strudel code
type Generator struct {
	quantize int
}

// NewGenerator creates a generator with the given grid resolution per bar (16 = sixteenth notes)
func NewGenerator(quantize int) *Generator {
	if quantize <= 0 {
		quantize = 16
	}
	return &Generator{quantize: quantize}
}

// Generate renders c: a header comment, setcps from the tempo, a stacked
// note() line per instrument and the chord progression.
func (g *Generator) Generate(c *composition.Composition) string {
	var sb strings.Builder
	if c == nil {
		return sb.String()
	}

	tempo := numeric.OrDefault(c.Tempo, 100)
	if tempo <= 0 {
		tempo = 100
	}
	palette := Palette(c.ContentType)
	instruments := c.Instruments()

	// Header with stats
	sb.WriteString("// sonigraph output\n")
	sb.WriteString(fmt.Sprintf("// Note: %s\n", c.NodeID))
	sb.WriteString(fmt.Sprintf("// BPM: %.0f, Content: %s\n", tempo, c.ContentType))
	counts := make([]string, 0, len(instruments))
	for _, inst := range instruments {
		counts = append(counts, fmt.Sprintf("%s: %d", inst, countFor(c.Notes, inst)))
	}
	sb.WriteString(fmt.Sprintf("// Notes: %d (%s)\n", len(c.Notes), strings.Join(counts, ", ")))
	sb.WriteString(fmt.Sprintf("// Duration: %.1f beats\n\n", c.Beats()))

	// Tempo
	sb.WriteString(fmt.Sprintf("setcps(%.0f/60/4)\n\n", tempo))

	numBars := int(math.Ceil(c.Beats() / 4))
	numBars = numeric.ClampInt(numBars, 1, MaxBars)

	var voices []string
	for _, inst := range instruments {
		var notes []mapping.Note
		for _, n := range c.Notes {
			if n.Instrument == inst && n.Velocity > 0 {
				notes = append(notes, n)
			}
		}
		pattern := g.voiceToPattern(notes, c.RootFrequency, numBars)
		if pattern == "~" {
			continue
		}

		vel, pan := averages(notes)
		code := fmt.Sprintf("  // %s (%d notes)\n", inst, len(notes))
		code += fmt.Sprintf("  note(\"%s\")\n", pattern)
		code += fmt.Sprintf("    .s(\"%s\")", palette.soundFor(inst))
		if gain := FormatGain(VelocityToGain(vel)); gain != "" {
			code += "\n    " + gain
		}
		code += fmt.Sprintf("\n    .pan(%.2f)", PanToStrudel(pan))
		if chain := BuildEffectChain(GetVoiceEffects(inst, c.ContentType)); chain != "" {
			code += "\n    " + chain
		}
		voices = append(voices, code)
	}

	if c.Phrase != nil && len(c.Phrase.Harmony) > 0 {
		tonic := int(midi.Key(c.RootFrequency, c.RootFrequency, 0)) % 12
		chords := buildChordPattern(ChordsFromHarmony(c.Phrase.Harmony, tonic))
		code := "  // harmony\n"
		code += fmt.Sprintf("  chord(\"[%s]\").slow(%d).voicing()\n", chords, numBars)
		code += fmt.Sprintf("    .s(\"%s\")\n    .gain(0.40)", palette.Chord)
		voices = append(voices, code)
	}

	if len(voices) == 0 {
		sb.WriteString(fmt.Sprintf("$: note(\"a3\").s(\"%s\")\n", palette.Lead))
		return sb.String()
	}

	if len(voices) == 1 {
		// Single voice - no stack needed
		comment, body, _ := strings.Cut(voices[0], "\n")
		sb.WriteString(strings.TrimSpace(comment) + "\n")
		sb.WriteString("$: " + strings.TrimPrefix(body, "  ") + "\n")
		return sb.String()
	}

	sb.WriteString("$: stack(\n")
	for i, voice := range voices {
		sb.WriteString(voice)
		if i < len(voices)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString(")\n")
	return sb.String()
}

func countFor(notes []mapping.Note, inst string) int {
	n := 0
	for _, note := range notes {
		if note.Instrument == inst {
			n++
		}
	}
	return n
}

func averages(notes []mapping.Note) (vel, pan float64) {
	if len(notes) == 0 {
		return 0, 0
	}
	for _, n := range notes {
		vel += n.Velocity
		pan += n.Pan
	}
	k := float64(len(notes))
	return vel / k, pan / k
}

// voiceToPattern converts notes to mini-notation with one group per bar.
// Timing is in beats, so a bar holds four beats of quantize/4 slots each.
func (g *Generator) voiceToPattern(notes []mapping.Note, root float64, numBars int) string {
	if len(notes) == 0 {
		return "~"
	}

	slotsPerBar := g.quantize
	slotsPerBeat := float64(g.quantize) / 4
	totalSlots := slotsPerBar * numBars

	slots := make([][]string, totalSlots)
	for _, n := range notes {
		slot := int(math.Round(n.Timing * slotsPerBeat))
		if slot >= 0 && slot < totalSlots {
			name := midiToNoteName(int(midi.Key(n.Frequency, root, n.Semitone)))
			slots[slot] = appendUnique(slots[slot], name)
		}
	}

	var bars []string
	for bar := 0; bar < numBars; bar++ {
		var barParts []string
		for i := bar * slotsPerBar; i < (bar+1)*slotsPerBar; i++ {
			slot := slots[i]
			switch len(slot) {
			case 0:
				barParts = append(barParts, "~")
			case 1:
				barParts = append(barParts, slot[0])
			default:
				sort.Strings(slot)
				barParts = append(barParts, "["+strings.Join(slot, ",")+"]")
			}
		}
		bars = append(bars, "["+simplifyPattern(barParts)+"]")
	}

	joined := strings.Join(bars, " ")
	if isAllRests(joined) {
		return "~"
	}
	// one bar per cycle
	return "<" + joined + ">"
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// midiToNoteName converts MIDI note number to Strudel notation
func midiToNoteName(midiNote int) string {
	noteNames := []string{"c", "cs", "d", "ds", "e", "f", "fs", "g", "gs", "a", "as", "b"}
	octave := (midiNote / 12) - 1
	note := midiNote % 12
	return fmt.Sprintf("%s%d", noteNames[note], octave)
}

// simplifyPattern collapses runs of rests into ~@n so each bar keeps its length
func simplifyPattern(parts []string) string {
	if len(parts) == 0 {
		return "~"
	}

	var result []string
	restCount := 0
	flush := func() {
		switch {
		case restCount == 1:
			result = append(result, "~")
		case restCount > 1:
			result = append(result, fmt.Sprintf("~@%d", restCount))
		}
		restCount = 0
	}

	for _, p := range parts {
		if p == "~" {
			restCount++
			continue
		}
		flush()
		result = append(result, p)
	}
	flush()

	return strings.Join(result, " ")
}

// isAllRests checks if pattern is only rests
func isAllRests(pattern string) bool {
	for _, p := range strings.Fields(strings.NewReplacer("[", " ", "]", " ").Replace(pattern)) {
		if p != "~" && !strings.HasPrefix(p, "~@") {
			return false
		}
	}
	return true
}
