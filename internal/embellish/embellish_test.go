package embellish

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/random"
	"github.com/dygy/sonigraph/internal/random/randomtest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func centerPhrase(t *testing.T) *phrase.Phrase {
	t.Helper()
	p := analysis.Neutral()
	return phrase.NewGenerator(phrase.DefaultConfig(), random.NewSeeded(11), quietLogger()).Generate(p)
}

func newGen() *Generator {
	return NewGenerator(DefaultConfig(), random.NewSeeded(5), quietLogger())
}

func TestGenerateCaps(t *testing.T) {
	center := centerPhrase(t)
	neighbors := map[int][]string{
		1: {"e", "d", "c", "b", "a"},
		2: {"z", "y", "x"},
		3: {"deep1", "deep2"},
		4: {"deeper"},
		0: {"self"},
	}

	embs := newGen().Generate(center, analysis.Neutral(), neighbors)

	require.Len(t, embs, 6)
	var ids []string
	for _, e := range embs {
		ids = append(ids, e.NodeID)
	}
	assert.Equal(t, []string{"a", "b", "c", "x", "y", "deep1"}, ids)
	assert.Equal(t, HarmonicResponse, embs[0].Type)
	assert.Equal(t, RhythmicCounterpoint, embs[3].Type)
	assert.Equal(t, AmbientTexture, embs[5].Type)
	assert.Equal(t, 3, embs[5].Depth)
}

func TestGenerateTotalCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTotal = 2
	g := NewGenerator(cfg, random.NewSeeded(5), quietLogger())

	embs := g.Generate(centerPhrase(t), analysis.Neutral(), map[int][]string{1: {"a", "b", "c"}, 2: {"d"}})
	assert.Len(t, embs, 2)
}

func TestGenerateEmptyCenter(t *testing.T) {
	assert.Nil(t, newGen().Generate(&phrase.Phrase{}, analysis.Neutral(), map[int][]string{1: {"a"}}))
}

func TestHarmonicResponse(t *testing.T) {
	center := centerPhrase(t)
	ph := newGen().harmonicResponse(center)

	n := center.Len()
	want := max(4, 2*n/3)
	assert.Len(t, ph.Melody, want)
	assert.Len(t, ph.Rhythm, want)
	assert.Len(t, ph.Velocities, want)
	for i, r := range ph.Rhythm {
		assert.InDelta(t, clampTo(2-center.Rhythm[i], 0.5, 2), r, 1e-9)
	}
	for _, v := range ph.Velocities {
		assert.GreaterOrEqual(t, v, 0.08)
		assert.LessOrEqual(t, v, 0.99)
	}
	assert.Equal(t, center.Tempo, ph.Tempo)
}

func TestHarmonicResponseShortCenter(t *testing.T) {
	center := &phrase.Phrase{
		Melody:     []int{0, 4},
		Harmony:    []int{0},
		Rhythm:     []float64{1, 1},
		Velocities: []float64{0.5, 0.5},
		Tempo:      100,
	}
	ph := newGen().harmonicResponse(center)
	assert.Len(t, ph.Melody, 4)
	assert.Equal(t, []int{0, 0, 0, 0}, ph.Harmony)
}

func TestCounterpoint(t *testing.T) {
	center := &phrase.Phrase{
		Melody:     make([]int, 16),
		Harmony:    []int{0, 9, 5, 7},
		Rhythm:     make([]float64, 16),
		Velocities: make([]float64, 16),
		Tempo:      90,
	}
	p := analysis.Neutral()
	p.OverallComplexity = 0
	p.MusicalExpressiveness = 0.9

	// rng values below 0.5 pick chromatic approaches
	g := NewGenerator(DefaultConfig(), randomtest.NewFixed(0.1), quietLogger())
	ph := g.counterpoint(center, p)

	require.Len(t, ph.Melody, 16)
	assert.Equal(t, []int{-12, -5, -8, -4}, ph.Melody[0:4], "C: root fifth third, approach to A")
	assert.Equal(t, []int{-3, 4, 0, -8}, ph.Melody[4:8], "Am: minor third")
	assert.Equal(t, []int{-5, 1, -1, -13}, ph.Melody[12:16], "G: tritone on the fourth chord, approach to the tonic")
	assert.Equal(t, []float64{1, 1, 1, 1}, ph.Rhythm[0:4])
	assert.Equal(t, 9, ph.ChordAt(5))
}

func TestCounterpointInvalidRoot(t *testing.T) {
	center := &phrase.Phrase{Melody: []int{0}, Harmony: []int{99}, Rhythm: []float64{1}, Velocities: []float64{0.5}}
	ph := newGen().counterpoint(center, analysis.Neutral())
	assert.Equal(t, []int{0}, ph.Harmony)
	assert.Equal(t, -12, ph.Melody[0])
}

func TestAmbient(t *testing.T) {
	center := &phrase.Phrase{
		Melody:     make([]int, 8),
		Harmony:    []int{0, 5, 0, 7},
		Rhythm:     make([]float64, 8),
		Velocities: make([]float64, 8),
		Tempo:      100,
	}
	ph := newGen().ambient(center)

	assert.Equal(t, []int{24, 29, 31, 24, 29, 31}, ph.Melody)
	assert.Equal(t, []float64{4, 4, 4, 4, 4, 4}, ph.Rhythm)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25, 0.25, 0.25}, ph.Velocities)
	assert.Equal(t, 50.0, ph.Tempo)
	assert.Equal(t, 24.0, ph.TotalBeats)
}

func clampTo(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
