package voicing

import (
	"io"
	"log/slog"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/random"
	"github.com/dygy/sonigraph/internal/random/randomtest"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func voicer(cfg Config) *Voicer {
	return NewVoicer(cfg, random.NewSeeded(1), quietLogger())
}

func yes() *bool {
	b := true
	return &b
}

func no() *bool {
	b := false
	return &b
}

func TestDrop2(t *testing.T) {
	v := voicer(Config{Strategy: Drop2, VoiceCounts: []int{4}})
	base := []int{0, 4, 7, 11}

	got := v.apply(base)

	assert.Equal(t, []int{-5, 0, 4, 11}, got)
	assert.True(t, sort.IntsAreSorted(got))

	// same pitch classes, exactly one voice moved down an octave
	assert.Equal(t, pcs(base), pcs(got))
	lowered := 0
	for _, g := range got {
		if !contains(base, g) {
			assert.True(t, contains(base, g+12))
			lowered++
		}
	}
	assert.Equal(t, 1, lowered)
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		strategy Strategy
		level    int
		want     []int
	}{
		{Close, 0, []int{0, 4, 7, 11}},
		{DepthBased, 0, []int{0, 4, 7, 11}},
		{Spread, 0, []int{0, 7, 16, 23}},
		{RootPosition, 0, []int{-12, 4, 7, 11}},
		{Inversions, 1, []int{4, 7, 11, 12}},
		{Inversions, 2, []int{7, 11, 12, 16}},
		{Inversions, 9, []int{11, 12, 16, 19}},
		{"mystery", 0, []int{0, 4, 7, 11}},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			v := voicer(Config{Strategy: tt.strategy, InversionLevel: tt.level})
			assert.Equal(t, tt.want, v.apply([]int{0, 4, 7, 11}))
		})
	}
}

func TestQuality(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		degree int
		want   Quality
	}{
		{"Tonic", DefaultConfig(), 1, Major},
		{"Supertonic", DefaultConfig(), 2, Minor},
		{"Leading", DefaultConfig(), 7, Diminished},
		{"LeadingNoDim", Config{}, 7, Minor},
		{"PreferMajor", Config{PreferMajor: true}, 6, Major},
		{"PreferMinor", Config{PreferMinor: true, AllowDiminished: true}, 4, Minor},
		{"BothPreferencesCancel", Config{PreferMajor: true, PreferMinor: true}, 2, Minor},
		{"Augmented", Config{AllowAugmented: true}, 3, Augmented},
		{"AugmentedBlockedByMinor", Config{AllowAugmented: true, PreferMinor: true}, 3, Minor},
		{"Dominant7", Config{AllowSevenths: true}, 5, Dominant7},
		{"Major7", Config{AllowSevenths: true}, 4, Major7},
		{"Minor7", Config{AllowSevenths: true}, 6, Minor7},
		{"HalfDim", Config{AllowSevenths: true, AllowDiminished: true}, 7, HalfDiminished},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := voicer(tt.cfg)
			v.SetScaleDegree(tt.degree)
			assert.Equal(t, tt.want, v.Quality())
		})
	}
}

func TestVoice(t *testing.T) {
	t.Run("CountByDepth", func(t *testing.T) {
		v := voicer(DefaultConfig())
		for depth, want := range []int{1, 2, 3, 4, 4} {
			assert.Equal(t, want, v.Voice(220, depth, yes()).VoiceCount)
		}
	})

	t.Run("ShouldVoiceFalse", func(t *testing.T) {
		vc := voicer(DefaultConfig()).Voice(220, 3, no())
		assert.Equal(t, []int{0}, vc.Intervals)
		assert.Equal(t, []float64{220}, vc.Frequencies)
	})

	t.Run("DensityDecides", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Density = 0.5
		v := NewVoicer(cfg, randomtest.NewFixed(0.9, 0.1), quietLogger())
		assert.Equal(t, 1, v.Voice(220, 3, nil).VoiceCount)
		assert.Equal(t, 4, v.Voice(220, 3, nil).VoiceCount)
	})

	t.Run("OctaveDoubling", func(t *testing.T) {
		v := voicer(Config{VoiceCounts: []int{5}})
		assert.Equal(t, []int{0, 4, 7, 12, 16}, v.Voice(220, 0, yes()).Intervals)
	})

	t.Run("Extensions", func(t *testing.T) {
		v := voicer(Config{VoiceCounts: []int{5}, AllowExtensions: true})
		assert.Equal(t, []int{0, 4, 7, 12, 14}, v.Voice(220, 0, yes()).Intervals)
	})

	t.Run("Frequencies", func(t *testing.T) {
		vc := voicer(Config{VoiceCounts: []int{3}}).Voice(220, 0, yes())
		require.Len(t, vc.Frequencies, 3)
		assert.InDelta(t, 220*math.Pow(2, 4.0/12), vc.Frequencies[1], 1e-9)
		assert.InDelta(t, 220*math.Pow(2, 7.0/12), vc.Frequencies[2], 1e-9)
	})

	t.Run("InjectedInterval", func(t *testing.T) {
		v := voicer(Config{VoiceCounts: []int{2}})
		v.Interval = func(root float64, semitones int) float64 { return root + float64(semitones) }
		assert.Equal(t, []float64{100, 104}, v.Voice(100, 0, yes()).Frequencies)
	})

	t.Run("InvalidRoot", func(t *testing.T) {
		vc := voicer(DefaultConfig()).Voice(math.NaN(), 0, yes())
		assert.Equal(t, []float64{mapping.DefaultRootFrequency}, vc.Frequencies)
	})
}

func TestExpand(t *testing.T) {
	v := voicer(Config{VoiceCounts: []int{1, 3}, Density: 1})
	notes := []mapping.Note{
		{Instrument: "piano", Frequency: 220, Velocity: 0.5, Depth: 0, Semitone: 0},
		{Instrument: "strings", Frequency: 220, Velocity: 1, Depth: 1, Semitone: 2},
	}

	out := v.Expand(notes)

	require.Len(t, out, 4)
	assert.Equal(t, notes[0], out[0])
	assert.Equal(t, []int{2, 5, 9}, []int{out[1].Semitone, out[2].Semitone, out[3].Semitone}, "ii chord is minor")
	assert.Equal(t, 1.0, out[1].Velocity)
	assert.InDelta(t, 0.7, out[2].Velocity, 1e-9)
	assert.Equal(t, 220.0, notes[1].Frequency, "input untouched")
}

func TestExpandKeepsRootLoud(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		root     int
	}{
		{"Close", Close, 0},
		{"RootPosition", RootPosition, -12},
		{"Inversions", Inversions, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := voicer(Config{VoiceCounts: []int{3}, Density: 1, Strategy: tt.strategy, InversionLevel: 1})
			out := v.Expand([]mapping.Note{{Instrument: "piano", Frequency: 220, Velocity: 0.5, Semitone: 0}})
			require.Len(t, out, 3)

			var loud []int
			for _, n := range out {
				if n.Velocity == 0.5 {
					loud = append(loud, n.Semitone)
				} else {
					assert.InDelta(t, 0.35, n.Velocity, 1e-9)
				}
			}
			assert.Equal(t, []int{tt.root}, loud)
		})
	}
}

func pcs(v []int) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = ((x % 12) + 12) % 12
	}
	sort.Ints(out)
	return out
}

func contains(v []int, x int) bool {
	for _, y := range v {
		if y == x {
			return true
		}
	}
	return false
}
