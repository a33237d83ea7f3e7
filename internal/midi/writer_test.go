package midi

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/mapping"
)

func testComposition() *composition.Composition {
	return &composition.Composition{
		NodeID:        "journal/today",
		Tempo:         85,
		RootFrequency: 220,
		Notes: []mapping.Note{
			{Instrument: composition.Lead, Timing: 0, Duration: 1, Velocity: 0.5, Frequency: 220},
			{Instrument: composition.Lead, Timing: 1, Duration: 0.5, Velocity: 1, Frequency: 440},
			{Instrument: composition.Bass, Timing: 0, Duration: 2, Velocity: 0.3, Pan: -1, Frequency: 110},
			{Instrument: composition.Bass, Timing: 2, Duration: 2, Velocity: 0, Pan: -1, Frequency: 110},
		},
	}
}

type noteStart struct {
	tick uint32
	ch   uint8
	key  uint8
	vel  uint8
}

func readBack(t *testing.T, data []byte) (*smf.SMF, [][]noteStart) {
	t.Helper()
	s, err := smf.ReadFrom(bytes.NewReader(data))
	require.NoError(t, err)

	starts := make([][]noteStart, len(s.Tracks))
	for i, tr := range s.Tracks {
		var abs uint32
		for _, ev := range tr {
			abs += ev.Delta
			var ch, key, vel uint8
			if gomidi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				starts[i] = append(starts[i], noteStart{abs, ch, key, vel})
			}
		}
	}
	return s, starts
}

func TestWriteSMF(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSMF(&buf, testComposition()))

	s, starts := readBack(t, buf.Bytes())
	require.Len(t, s.Tracks, 3, "conductor plus one track per instrument")
	assert.Equal(t, smf.MetricTicks(TicksPerQuarter), s.TimeFormat)

	t.Run("Tempo", func(t *testing.T) {
		var bpm float64
		found := false
		for _, ev := range s.Tracks[0] {
			if ev.Message.GetMetaTempo(&bpm) {
				found = true
			}
		}
		require.True(t, found)
		assert.InDelta(t, 85, bpm, 0.01)
	})

	t.Run("Lead", func(t *testing.T) {
		assert.Equal(t, []noteStart{
			{0, 0, 57, 64},
			{960, 0, 69, 127},
		}, starts[1])
	})

	t.Run("BassSkipsSilentNote", func(t *testing.T) {
		assert.Equal(t, []noteStart{{0, 1, 45, 38}}, starts[2])
	})

	t.Run("ProgramAndPan", func(t *testing.T) {
		var ch, prog, cc, val uint8
		var programs []uint8
		var pans []uint8
		for _, ev := range s.Tracks[2] {
			msg := gomidi.Message(ev.Message)
			if msg.GetProgramChange(&ch, &prog) {
				programs = append(programs, prog)
			}
			if msg.GetControlChange(&ch, &cc, &val) && cc == ccPan {
				pans = append(pans, val)
			}
		}
		assert.Equal(t, []uint8{32}, programs)
		assert.Equal(t, []uint8{0}, pans)
	})
}

type noteEnd struct {
	tick uint32
	key  uint8
}

func TestWriteSMFSharedChannel(t *testing.T) {
	c := &composition.Composition{
		NodeID:        "ideas",
		Tempo:         90,
		RootFrequency: 220,
		Notes: []mapping.Note{
			// two harmonic responses landing on the same key together
			{NodeID: "a", Instrument: composition.Keys, Timing: 0, Duration: 1, Velocity: 0.3, Frequency: 220},
			{NodeID: "b", Instrument: composition.Keys, Timing: 0, Duration: 2, Velocity: 0.5, Frequency: 220},
			// a third restriking the key while it still sounds
			{NodeID: "c", Instrument: composition.Keys, Timing: 1.5, Duration: 1, Velocity: 0.4, Frequency: 220},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSMF(&buf, c))
	s, starts := readBack(t, buf.Bytes())
	require.Len(t, s.Tracks, 2)

	assert.Equal(t, []noteStart{
		{0, 0, 57, 64},
		{1440, 0, 57, 51},
	}, starts[1])

	var ends []noteEnd
	var abs uint32
	for _, ev := range s.Tracks[1] {
		abs += ev.Delta
		var ch, key uint8
		if gomidi.Message(ev.Message).GetNoteEnd(&ch, &key) {
			ends = append(ends, noteEnd{abs, key})
		}
	}
	assert.Equal(t, []noteEnd{{1440, 57}, {2400, 57}}, ends, "every note-on has exactly one note-off")
}

func TestWriteSMFNil(t *testing.T) {
	assert.Error(t, WriteSMF(&bytes.Buffer{}, nil))
}

func TestConversions(t *testing.T) {
	t.Run("Key", func(t *testing.T) {
		assert.Equal(t, uint8(69), Key(440, 220, 0))
		assert.Equal(t, uint8(60), Key(261.63, 220, 0))
		assert.Equal(t, uint8(64), Key(math.NaN(), 220, 7), "falls back to root plus semitone")
		assert.Equal(t, uint8(57), Key(0, math.Inf(1), 0))
		assert.Equal(t, uint8(127), Key(1e9, 220, 0))
	})

	t.Run("Velocity", func(t *testing.T) {
		assert.Equal(t, uint8(0), Velocity(0))
		assert.Equal(t, uint8(0), Velocity(math.NaN()))
		assert.Equal(t, uint8(1), Velocity(0.001))
		assert.Equal(t, uint8(127), Velocity(2))
	})

	t.Run("Pan", func(t *testing.T) {
		assert.Equal(t, uint8(0), Pan(-1))
		assert.Equal(t, uint8(64), Pan(0))
		assert.Equal(t, uint8(127), Pan(1))
		assert.Equal(t, uint8(64), Pan(math.NaN()))
	})

	t.Run("Channel", func(t *testing.T) {
		assert.Equal(t, uint8(8), Channel(8))
		assert.Equal(t, uint8(10), Channel(9))
		assert.Equal(t, uint8(0), Channel(15))
	})
}
