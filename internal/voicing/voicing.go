// Package voicing turns a single root frequency into a chord whose size grows
// with graph depth.
package voicing

import (
	"log/slog"
	"math"
	"sort"

	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/random"
)

// Strategy is how chord tones are spread across registers
type Strategy string

const (
	Close        Strategy = "close"
	Drop2        Strategy = "drop2"
	Spread       Strategy = "spread"
	RootPosition Strategy = "root-position"
	Inversions   Strategy = "inversions"
	DepthBased   Strategy = "depth-based"
)

// Strategies lists the known strategies
var Strategies = []Strategy{Close, Drop2, Spread, RootPosition, Inversions, DepthBased}

// Quality is the chord type
type Quality string

const (
	Major          Quality = "major"
	Minor          Quality = "minor"
	Diminished     Quality = "diminished"
	Augmented      Quality = "augmented"
	Dominant7      Quality = "dominant7"
	Major7         Quality = "major7"
	Minor7         Quality = "minor7"
	HalfDiminished Quality = "half-diminished"
)

var qualityIntervals = map[Quality][]int{
	Major:          {0, 4, 7},
	Minor:          {0, 3, 7},
	Diminished:     {0, 3, 6},
	Augmented:      {0, 4, 8},
	Dominant7:      {0, 4, 7, 10},
	Major7:         {0, 4, 7, 11},
	Minor7:         {0, 3, 7, 10},
	HalfDiminished: {0, 3, 6, 10},
}

const ninth = 14

// Config controls chord voicing
type Config struct {
	Strategy        Strategy `yaml:"strategy" json:"strategy"`
	VoiceCounts     []int    `yaml:"voice_counts" json:"voice_counts"`
	Density         float64  `yaml:"density" json:"density"`
	InversionLevel  int      `yaml:"inversion_level" json:"inversion_level"`
	PreferMajor     bool     `yaml:"prefer_major" json:"prefer_major"`
	PreferMinor     bool     `yaml:"prefer_minor" json:"prefer_minor"`
	AllowSevenths   bool     `yaml:"allow_sevenths" json:"allow_sevenths"`
	AllowDiminished bool     `yaml:"allow_diminished" json:"allow_diminished"`
	AllowAugmented  bool     `yaml:"allow_augmented" json:"allow_augmented"`
	AllowExtensions bool     `yaml:"allow_extensions" json:"allow_extensions"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Strategy:        Close,
		VoiceCounts:     []int{1, 2, 3, 4},
		Density:         1.0,
		InversionLevel:  1,
		AllowDiminished: true,
	}
}

// Voicing is the result of voicing one root
type Voicing struct {
	Frequencies []float64 `json:"frequencies"`
	Intervals   []int     `json:"intervals"`
	Quality     Quality   `json:"quality"`
	VoiceCount  int       `json:"voice_count"`
}

// HarmonicInterval converts a semitone distance from root into a frequency
type HarmonicInterval func(root float64, semitones int) float64

// EqualTemperament is the default HarmonicInterval
func EqualTemperament(root float64, semitones int) float64 {
	return root * math.Pow(2, float64(semitones)/12)
}

// Voicer voices roots. The scale degree is session state set by the caller.
type Voicer struct {
	cfg      Config
	rng      random.Source
	logger   *slog.Logger
	degree   int
	Interval HarmonicInterval
}

// NewVoicer creates a voicer. variation decides whether a note is voiced
// when the caller leaves it open.
func NewVoicer(cfg Config, variation random.Source, logger *slog.Logger) *Voicer {
	if logger == nil {
		logger = slog.Default()
	}
	if variation == nil {
		variation = random.NewEntropy()
	}
	if len(cfg.VoiceCounts) == 0 {
		cfg.VoiceCounts = DefaultConfig().VoiceCounts
	}
	return &Voicer{cfg: cfg, rng: variation, logger: logger, degree: 1, Interval: EqualTemperament}
}

// SetScaleDegree sets the degree (1-7) chord quality is derived from
func (v *Voicer) SetScaleDegree(degree int) {
	v.degree = numeric.ClampInt(degree, 1, 7)
}

// Quality returns the chord quality for the current scale degree
func (v *Voicer) Quality() Quality {
	q := Major
	switch v.degree {
	case 2, 3, 6:
		q = Minor
	case 7:
		q = Diminished
	}

	switch {
	case v.cfg.PreferMajor && !v.cfg.PreferMinor && q == Minor:
		q = Major
	case v.cfg.PreferMinor && !v.cfg.PreferMajor && q == Major:
		q = Minor
	}
	if v.cfg.AllowAugmented && !v.cfg.PreferMinor && v.degree == 3 {
		q = Augmented
	}
	if q == Diminished && !v.cfg.AllowDiminished {
		q = Minor
	}

	if v.cfg.AllowSevenths {
		switch q {
		case Major:
			if v.degree == 5 {
				q = Dominant7
			} else {
				q = Major7
			}
		case Minor:
			q = Minor7
		case Diminished:
			q = HalfDiminished
		}
	}
	return q
}

// Voice voices rootFreq for a note at the given depth. A nil shouldVoice
// lets the variation source decide using the configured density.
func (v *Voicer) Voice(rootFreq float64, depth int, shouldVoice *bool) Voicing {
	if !numeric.Finite(rootFreq) || rootFreq <= 0 {
		v.logger.Warn("invalid root frequency, using default", slog.Float64("root", rootFreq))
		rootFreq = mapping.DefaultRootFrequency
	}

	count := max(v.cfg.VoiceCounts[numeric.SafeIndex(len(v.cfg.VoiceCounts), depth)], 1)
	var voice bool
	if shouldVoice != nil {
		voice = *shouldVoice
	} else {
		voice = v.rng.Float64() < v.cfg.Density
	}
	if !voice {
		count = 1
	}

	q := v.Quality()
	intervals := baseIntervals(qualityIntervals[q], count, v.cfg.AllowExtensions)
	intervals = v.apply(intervals)

	freqs := make([]float64, len(intervals))
	for i, s := range intervals {
		freqs[i] = v.Interval(rootFreq, s)
	}
	return Voicing{Frequencies: freqs, Intervals: intervals, Quality: q, VoiceCount: len(intervals)}
}

// baseIntervals picks count voices from the chord tones, doubling at the
// octave when the chord has fewer tones than voices
func baseIntervals(tones []int, count int, extensions bool) []int {
	tones = append([]int(nil), tones...)
	if extensions && count >= 5 {
		tones = append(tones, ninth)
	}
	out := make([]int, count)
	for i := range out {
		out[i] = tones[i%len(tones)] + 12*(i/len(tones))
	}
	return out
}

func (v *Voicer) apply(intervals []int) []int {
	out := append([]int(nil), intervals...)
	switch v.cfg.Strategy {
	case Close, DepthBased, "":
	case Drop2:
		if len(out) >= 2 {
			out[len(out)-2] -= 12
		}
	case Spread:
		for i := 1; i < len(out); i += 2 {
			out[i] += 12
		}
	case RootPosition:
		if len(out) >= 2 {
			out[0] -= 12
		}
	case Inversions:
		level := numeric.ClampInt(v.cfg.InversionLevel, 0, len(out)-1)
		for i := 0; i < level; i++ {
			out[i] += 12
		}
	default:
		v.logger.Warn("unknown voicing strategy, using close", slog.String("strategy", string(v.cfg.Strategy)))
	}
	sort.Ints(out)
	return out
}

// scaleDegrees maps major-scale pitch classes to degrees
var scaleDegrees = map[int]int{0: 1, 2: 2, 4: 3, 5: 4, 7: 5, 9: 6, 11: 7}

// Expand fans every note out into its voiced chord. Added voices are softer
// than the root, wherever the strategy moved it. The input is not modified.
func (v *Voicer) Expand(notes []mapping.Note) []mapping.Note {
	out := make([]mapping.Note, 0, len(notes))
	for _, n := range notes {
		if d, ok := scaleDegrees[((n.Semitone%12)+12)%12]; ok {
			v.SetScaleDegree(d)
		}
		vc := v.Voice(n.Frequency, n.Depth, nil)
		root := rootVoice(vc.Intervals)
		for i, s := range vc.Intervals {
			voiced := n
			voiced.Frequency = vc.Frequencies[i]
			voiced.Semitone = n.Semitone + s
			if i != root {
				voiced.Velocity = n.Velocity * 0.7
			}
			out = append(out, voiced)
		}
	}
	return out
}

// rootVoice is the index of the lowest voice on the chord root. Intervals are
// sorted, so the first octave multiple wins; 0 when no voice is on the root.
func rootVoice(intervals []int) int {
	for i, s := range intervals {
		if s%12 == 0 {
			return i
		}
	}
	return 0
}
