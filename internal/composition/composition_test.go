package composition

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/sonigraph/internal/embellish"
	"github.com/dygy/sonigraph/internal/phrase"
)

func TestNewID(t *testing.T) {
	a := NewID("daily/2024-03-01", "abc123")
	assert.Equal(t, a, NewID("daily/2024-03-01", "abc123"))
	assert.NotEqual(t, a, NewID("daily/2024-03-02", "abc123"))
	assert.NotEqual(t, NewID("ab", "c"), NewID("a", "bc"))

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
}

func TestLayout(t *testing.T) {
	center := &phrase.Phrase{
		Melody:     []int{0, 12, -12},
		Rhythm:     []float64{1, 0.5, 2},
		Velocities: []float64{0.5, 0.6, 0.7},
		Tempo:      100,
	}
	embs := []embellish.Embellishment{
		{NodeID: "n1", Depth: 1, Type: embellish.HarmonicResponse, Phrase: &phrase.Phrase{
			Melody: []int{4}, Rhythm: []float64{1}, Velocities: []float64{0.4}, Tempo: 100,
		}},
		{NodeID: "n2", Depth: 2, Type: embellish.AmbientTexture, Phrase: &phrase.Phrase{
			Melody: []int{24, 24}, Rhythm: []float64{4, 4}, Velocities: []float64{0.25, 0.25}, Tempo: 50,
		}},
		{NodeID: "n3", Depth: 9, Type: embellish.RhythmicCounterpoint},
	}

	notes := Layout("center", center, embs, 220)
	require.Len(t, notes, 6)

	t.Run("Center", func(t *testing.T) {
		assert.Equal(t, Lead, notes[0].Instrument)
		assert.Equal(t, []float64{0, 1, 1.5}, []float64{notes[0].Timing, notes[1].Timing, notes[2].Timing})
		assert.InDelta(t, 440, notes[1].Frequency, 1e-9)
		assert.InDelta(t, 110, notes[2].Frequency, 1e-9)
		assert.Equal(t, 0.0, notes[0].Pan)
		assert.Equal(t, "center", notes[2].NodeID)
	})

	t.Run("Response", func(t *testing.T) {
		n := notes[3]
		assert.Equal(t, Keys, n.Instrument)
		assert.InDelta(t, 0.4, n.Pan, 1e-9)
		assert.Equal(t, 1, n.Depth)
		assert.Equal(t, 4, n.Semitone)
	})

	t.Run("AmbientStretched", func(t *testing.T) {
		assert.Equal(t, Pad, notes[4].Instrument)
		assert.InDelta(t, -0.6, notes[4].Pan, 1e-9)
		assert.InDelta(t, 8, notes[4].Duration, 1e-9)
		assert.InDelta(t, 8, notes[5].Timing, 1e-9)
	})

	c := &Composition{Notes: notes}
	assert.Equal(t, []string{Lead, Keys, Pad}, c.Instruments())
	assert.InDelta(t, 16, c.Beats(), 1e-9)
}

func TestLayoutNilCenter(t *testing.T) {
	assert.Nil(t, Layout("x", nil, nil, 220))
}
