package phrase

import "github.com/dygy/sonigraph/internal/analysis"

// Config holds the phrase generation policy
type Config struct {
	MinLength               int     `yaml:"min_length" json:"min_length"`
	MaxLength               int     `yaml:"max_length" json:"max_length"`
	MinVelocity             float64 `yaml:"min_velocity" json:"min_velocity"`
	MaxVelocity             float64 `yaml:"max_velocity" json:"max_velocity"`
	MinDuration             float64 `yaml:"min_duration" json:"min_duration"`
	MaxDuration             float64 `yaml:"max_duration" json:"max_duration"`
	ReferenceSentenceLength float64 `yaml:"reference_sentence_length" json:"reference_sentence_length"`

	// Base tempo in BPM per content type
	Tempos map[analysis.ContentType]float64 `yaml:"tempos" json:"tempos"`
	// Chord roots in semitones per content type. Floats so that a
	// misconfigured value is caught instead of truncated.
	Progressions map[analysis.ContentType][]float64 `yaml:"progressions" json:"progressions"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		MinLength:               16,
		MaxLength:               48,
		MinVelocity:             0.08,
		MaxVelocity:             0.99,
		MinDuration:             0.5,
		MaxDuration:             4.5,
		ReferenceSentenceLength: 15,
		Tempos: map[analysis.ContentType]float64{
			analysis.ContentTechnical: 110,
			analysis.ContentCreative:  95,
			analysis.ContentAcademic:  80,
			analysis.ContentJournal:   85,
			analysis.ContentMeeting:   100,
			analysis.ContentList:      120,
			analysis.ContentReference: 90,
			analysis.ContentGeneral:   100,
		},
		Progressions: map[analysis.ContentType][]float64{
			analysis.ContentTechnical: {0, 5, 7, 0}, // I IV V I
			analysis.ContentCreative:  {0, 9, 5, 7}, // I vi IV V
			analysis.ContentAcademic:  {0, 2, 7, 0}, // I ii V I
			analysis.ContentJournal:   {0, 9, 2, 7}, // I vi ii V
			analysis.ContentMeeting:   {0, 7, 9, 5}, // I V vi IV
			analysis.ContentList:      {0, 5, 0, 7}, // I IV I V
			analysis.ContentReference: {0, 4, 5, 7}, // I iii IV V
			analysis.ContentGeneral:   {0, 5, 7, 0}, // I IV V I
		},
	}
}

func (c Config) tempoFor(ct analysis.ContentType) float64 {
	if t, ok := c.Tempos[ct]; ok && t > 0 {
		return t
	}
	if t, ok := c.Tempos[analysis.ContentGeneral]; ok && t > 0 {
		return t
	}
	return 100
}

func (c Config) velocityRange() (float64, float64) {
	lo, hi := c.MinVelocity, c.MaxVelocity
	if !(lo >= 0 && hi <= 1 && lo < hi) {
		return 0.08, 0.99
	}
	return lo, hi
}

func (c Config) durationRange() (float64, float64) {
	lo, hi := c.MinDuration, c.MaxDuration
	if !(lo > 0 && lo < hi) {
		return 0.5, 4.5
	}
	return lo, hi
}

func (c Config) lengthRange() (int, int) {
	if c.MinLength <= 0 || c.MaxLength < c.MinLength {
		return 16, 48
	}
	return c.MinLength, c.MaxLength
}
