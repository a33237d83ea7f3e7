// Package midi exports compositions as Standard MIDI Files.
package midi

import (
	"fmt"
	"io"
	"math"
	"sort"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/numeric"
)

const (
	// TicksPerQuarter is the file resolution
	TicksPerQuarter = 960

	ccPan        = 10
	drumChannel  = 9
	defaultTempo = 100.0
)

// General MIDI programs per instrument
var programs = map[string]uint8{
	composition.Lead: 0,  // acoustic grand
	composition.Keys: 4,  // electric piano
	composition.Bass: 32, // acoustic bass
	composition.Pad:  89, // warm pad
}

// event is a message at an absolute tick. Lower order sorts first at the
// same tick so note-offs land before the next note-on. Note events carry
// key and velocity and are rendered once overlaps are known.
type event struct {
	tick  uint32
	order int
	msg   []byte
	kind  eventKind
	key   uint8
	vel   uint8
}

type eventKind int

const (
	rawEvent eventKind = iota
	noteOnEvent
	noteOffEvent
)

// sounded is a note converted to ticks and MIDI values
type sounded struct {
	on, off uint32
	key     uint8
	vel     uint8
	pan     uint8
}

// WriteSMF writes c as a format 1 file: a conductor track with tempo and
// meter followed by one track per instrument. Silent notes are skipped.
func WriteSMF(w io.Writer, c *composition.Composition) error {
	if c == nil {
		return fmt.Errorf("write midi: nil composition")
	}

	tempo := numeric.OrDefault(c.Tempo, defaultTempo)
	if tempo <= 0 {
		tempo = defaultTempo
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var conductor smf.Track
	conductor.Add(0, smf.MetaTrackSequenceName(c.NodeID))
	conductor.Add(0, smf.MetaMeter(4, 4))
	conductor.Add(0, smf.MetaTempo(tempo))
	conductor.Close(0)
	if err := s.Add(conductor); err != nil {
		return fmt.Errorf("add conductor track: %w", err)
	}

	for i, inst := range c.Instruments() {
		tr := instrumentTrack(c, inst, Channel(i))
		if err := s.Add(tr); err != nil {
			return fmt.Errorf("add %s track: %w", inst, err)
		}
	}

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("write midi: %w", err)
	}
	return nil
}

// Channel maps a track index to a MIDI channel, skipping the drum channel
func Channel(i int) uint8 {
	ch := i % 15
	if ch >= drumChannel {
		ch++
	}
	return uint8(ch)
}

func instrumentTrack(c *composition.Composition, inst string, ch uint8) smf.Track {
	var tr smf.Track
	tr.Add(0, smf.MetaTrackSequenceName(inst))
	tr.Add(0, smf.MetaInstrument(inst))
	tr.Add(0, gomidi.ProgramChange(ch, programs[inst]))

	var events []event
	lastPan := -1
	for _, n := range mergeUnisons(trackNotes(c, inst)) {
		if int(n.pan) != lastPan {
			events = append(events, event{tick: n.on, order: 1, msg: gomidi.ControlChange(ch, ccPan, n.pan)})
			lastPan = int(n.pan)
		}
		events = append(events,
			event{tick: n.on, order: 2, kind: noteOnEvent, key: n.key, vel: n.vel},
			event{tick: n.off, order: 0, kind: noteOffEvent, key: n.key},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return events[i].order < events[j].order
	})

	// A key struck while still sounding is released and struck again; it is
	// only released for good when every overlapping note has ended.
	sounding := make(map[uint8]int)
	var prev uint32
	add := func(tick uint32, msg []byte) {
		tr.Add(tick-prev, msg)
		prev = tick
	}
	for _, e := range events {
		switch e.kind {
		case noteOnEvent:
			if sounding[e.key] > 0 {
				add(e.tick, gomidi.NoteOff(ch, e.key))
			}
			sounding[e.key]++
			add(e.tick, gomidi.NoteOn(ch, e.key, e.vel))
		case noteOffEvent:
			sounding[e.key]--
			if sounding[e.key] == 0 {
				add(e.tick, gomidi.NoteOff(ch, e.key))
			}
		default:
			add(e.tick, e.msg)
		}
	}
	tr.Close(0)
	return tr
}

// trackNotes converts the audible notes of one instrument in composition order
func trackNotes(c *composition.Composition, inst string) []sounded {
	var out []sounded
	for _, n := range c.Notes {
		if n.Instrument != inst {
			continue
		}
		vel := Velocity(n.Velocity)
		if vel == 0 {
			continue
		}
		on := ticks(n.Timing)
		off := ticks(n.Timing + n.Duration)
		if off <= on {
			off = on + 1
		}
		out = append(out, sounded{
			on:  on,
			off: off,
			key: Key(n.Frequency, c.RootFrequency, n.Semitone),
			vel: vel,
			pan: Pan(n.Pan),
		})
	}
	return out
}

// mergeUnisons folds notes that start on the same key at the same tick into
// one, keeping the latest release and the loudest velocity
func mergeUnisons(notes []sounded) []sounded {
	type onset struct {
		tick uint32
		key  uint8
	}
	index := make(map[onset]int, len(notes))
	out := make([]sounded, 0, len(notes))
	for _, n := range notes {
		k := onset{n.on, n.key}
		if i, ok := index[k]; ok {
			out[i].off = max(out[i].off, n.off)
			out[i].vel = max(out[i].vel, n.vel)
			continue
		}
		index[k] = len(out)
		out = append(out, n)
	}
	return out
}

// Key converts a frequency to the nearest MIDI key. When the frequency is
// unusable the semitone offset from the root is used instead.
func Key(freq, root float64, semitone int) uint8 {
	if numeric.Finite(freq) && freq > 0 {
		return uint8(numeric.ClampInt(numeric.Round(69+12*math.Log2(freq/440)), 0, 127))
	}
	root = numeric.OrDefault(root, 220)
	if root <= 0 {
		root = 220
	}
	base := 69 + 12*math.Log2(root/440)
	return uint8(numeric.ClampInt(numeric.Round(base)+semitone, 0, 127))
}

// Velocity scales 0-1 to 1-127. Zero and below stay silent.
func Velocity(v float64) uint8 {
	if !numeric.Finite(v) || v <= 0 {
		return 0
	}
	return uint8(numeric.ClampInt(numeric.Round(v*127), 1, 127))
}

// Pan scales -1..1 to the CC10 range with 64 as centre
func Pan(p float64) uint8 {
	p = numeric.ClampOrDefault(p, -1, 1, 0)
	return uint8(numeric.ClampInt(numeric.Round(63.5+p*63.5), 0, 127))
}

func ticks(beats float64) uint32 {
	beats = numeric.OrDefault(beats, 0)
	if beats < 0 {
		return 0
	}
	return uint32(math.Round(beats * TicksPerQuarter))
}
