package turntaking

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dygy/sonigraph/internal/mapping"
)

func engine(p Pattern) *Engine {
	cfg := DefaultConfig()
	cfg.Pattern = p
	return NewEngine(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func note(inst string, timing float64) mapping.Note {
	return mapping.Note{Instrument: inst, Timing: timing, Velocity: 1, Duration: 1}
}

func TestSequential(t *testing.T) {
	notes := []mapping.Note{note("A", 0), note("B", 0), note("A", 4), note("B", 4), note("A", 8)}

	out := engine(Sequential).Apply(notes)

	assert.True(t, out[0].IsSolo)
	assert.False(t, out[0].IsAccompaniment)
	assert.Equal(t, 1.0, out[0].Velocity)

	assert.True(t, out[1].IsAccompaniment)
	assert.False(t, out[1].IsSolo)
	assert.InDelta(t, 0.4, out[1].Velocity, 1e-9)

	assert.True(t, out[2].IsAccompaniment)
	assert.True(t, out[3].IsSolo)
	assert.True(t, out[4].IsSolo)
	assert.Equal(t, 2, out[4].TurnIndex)
}

func TestSolosSpanTwoWindows(t *testing.T) {
	notes := []mapping.Note{note("A", 0), note("A", 4), note("A", 8), note("B", 8)}
	out := engine(Solos).Apply(notes)
	assert.True(t, out[0].IsSolo)
	assert.True(t, out[1].IsSolo)
	assert.True(t, out[2].IsAccompaniment)
	assert.True(t, out[3].IsSolo)
}

func TestConversationByDepth(t *testing.T) {
	notes := []mapping.Note{
		{Depth: 0, Timing: 0, Velocity: 1},
		{Depth: 1, Timing: 0, Velocity: 1},
		{Depth: 1, Timing: 4, Velocity: 1},
	}
	out := engine(Conversation).Apply(notes)
	assert.True(t, out[0].IsSolo)
	assert.True(t, out[1].IsAccompaniment)
	assert.True(t, out[2].IsSolo)
}

func TestCallResponse(t *testing.T) {
	notes := []mapping.Note{note("A", 0), note("B", 0), note("C", 0), note("A", 4), note("C", 4)}
	out := engine(CallResponse).Apply(notes)

	// A and B call, C answers
	assert.True(t, out[0].IsSolo)
	assert.True(t, out[1].IsSolo)
	assert.True(t, out[2].IsAccompaniment)
	assert.True(t, out[3].IsAccompaniment)
	assert.True(t, out[4].IsSolo)
}

func TestLayeredEntry(t *testing.T) {
	notes := []mapping.Note{
		note("A", 0), note("B", 0), note("C", 0),
		note("A", 4), note("B", 4), note("C", 4),
		note("A", 8), note("B", 8), note("C", 8),
	}
	out := engine(LayeredEntry).Apply(notes)

	assert.True(t, out[0].IsSolo, "first entrant leads")
	assert.Equal(t, 0.0, out[1].Velocity, "B not yet entered")
	assert.Equal(t, 0.0, out[2].Velocity, "C not yet entered")

	assert.True(t, out[3].IsAccompaniment)
	assert.True(t, out[4].IsSolo, "newest entrant leads")
	assert.Equal(t, 0.0, out[5].Velocity)

	for _, n := range out[6:] {
		assert.True(t, n.IsSolo, "everyone has entered")
		assert.Equal(t, 1.0, n.Velocity)
	}
}

func TestFugue(t *testing.T) {
	notes := []mapping.Note{note("A", 0), note("B", 0), note("C", 1), note("A", 2)}
	out := engine(Fugue).Apply(notes)

	assert.Equal(t, []float64{0, 4, 9, 2}, []float64{out[0].Timing, out[1].Timing, out[2].Timing, out[3].Timing})
	assert.Equal(t, []int{0, 1, 2, 0}, []int{out[0].TurnIndex, out[1].TurnIndex, out[2].TurnIndex, out[3].TurnIndex})
	for _, n := range out {
		assert.Equal(t, 1.0, n.Velocity)
	}
}

func TestAntiphonal(t *testing.T) {
	notes := []mapping.Note{
		{Pan: -0.5, Timing: 0, Velocity: 1},
		{Pan: 0.5, Timing: 0, Velocity: 1},
		{Pan: 0.05, Timing: 0, Velocity: 1},
		{Pan: 0.5, Timing: 4, Velocity: 1},
	}
	out := engine(Antiphonal).Apply(notes)
	assert.True(t, out[0].IsSolo)
	assert.True(t, out[1].IsAccompaniment)
	assert.True(t, out[2].IsAccompaniment)
	assert.True(t, out[3].IsSolo)
}

func TestNoneAndUnknown(t *testing.T) {
	for _, p := range []Pattern{None, "square-dance"} {
		notes := []mapping.Note{note("A", 0), note("B", 0)}
		out := engine(p).Apply(notes)
		assert.Equal(t, []mapping.Note{note("A", 0), note("B", 0)}, out)
	}
}

func TestPreservesLength(t *testing.T) {
	for _, p := range Patterns {
		notes := []mapping.Note{note("A", 0), note("B", 3), note("C", 7), note("A", 12)}
		assert.Len(t, engine(p).Apply(notes), 4, string(p))
	}
}
