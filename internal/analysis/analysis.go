package analysis

import (
	"log/slog"

	"github.com/dygy/sonigraph/internal/numeric"
)

// ContentType is the broad category of a note's prose
type ContentType string

const (
	ContentTechnical ContentType = "technical"
	ContentCreative  ContentType = "creative"
	ContentAcademic  ContentType = "academic"
	ContentJournal   ContentType = "journal"
	ContentMeeting   ContentType = "meeting"
	ContentList      ContentType = "list"
	ContentReference ContentType = "reference"
	ContentGeneral   ContentType = "general"
)

// ContentTypes lists every known category in table order
var ContentTypes = []ContentType{
	ContentTechnical, ContentCreative, ContentAcademic, ContentJournal,
	ContentMeeting, ContentList, ContentReference, ContentGeneral,
}

// Valid reports whether c is a known category
func (c ContentType) Valid() bool {
	for _, t := range ContentTypes {
		if t == c {
			return true
		}
	}
	return false
}

// Density holds how much text sits on each line
type Density struct {
	ContentDensity float64 `json:"content_density"`
	ListDensity    float64 `json:"list_density"`
}

// Linguistic holds sentence and word statistics
type Linguistic struct {
	AvgSentenceLength   float64 `json:"avg_sentence_length"`
	AvgWordLength       float64 `json:"avg_word_length"`
	VocabularyDiversity float64 `json:"vocabulary_diversity"`
	PunctuationDensity  float64 `json:"punctuation_density"`
	QuestionRatio       float64 `json:"question_ratio"`
}

// Structure holds document shape statistics
type Structure struct {
	NestingDepth    int     `json:"nesting_depth"`
	ComplexityScore float64 `json:"complexity_score"`
}

// Prose is the feature record for one note. It is read-only once produced.
type Prose struct {
	ContentType           ContentType `json:"content_type"`
	OverallComplexity     float64     `json:"overall_complexity"`
	MusicalExpressiveness float64     `json:"musical_expressiveness"`
	Density               Density     `json:"density"`
	Linguistic            Linguistic  `json:"linguistic"`
	Structure             Structure   `json:"structure"`
}

// Neutral returns the record used when nothing is known about the text
func Neutral() Prose {
	return Prose{
		ContentType:           ContentGeneral,
		OverallComplexity:     0.5,
		MusicalExpressiveness: 0.5,
		Density:               Density{ContentDensity: 0.5},
		Linguistic: Linguistic{
			AvgSentenceLength:   15,
			AvgWordLength:       5,
			VocabularyDiversity: 0.5,
			PunctuationDensity:  0.05,
		},
		Structure: Structure{ComplexityScore: 0.5},
	}
}

// Sanitized returns a copy where every non-finite field is replaced by its
// neutral value and every out-of-range field is clamped. Each substitution
// is logged once.
func (p Prose) Sanitized(logger *slog.Logger) Prose {
	if logger == nil {
		logger = slog.Default()
	}
	n := Neutral()
	out := p

	unit := func(name string, v, def float64) float64 {
		if !numeric.Finite(v) {
			logger.Warn("non-finite prose feature, using neutral value",
				slog.String("field", name), slog.Float64("neutral", def))
			return def
		}
		if v < 0 || v > 1 {
			logger.Warn("prose feature out of range, clamping",
				slog.String("field", name), slog.Float64("value", v))
		}
		return numeric.Clamp(v, 0, 1)
	}
	positive := func(name string, v, def float64) float64 {
		if !numeric.Finite(v) || v <= 0 {
			logger.Warn("invalid prose feature, using neutral value",
				slog.String("field", name), slog.Float64("neutral", def))
			return def
		}
		return v
	}

	if !out.ContentType.Valid() {
		logger.Warn("unknown content type, using general", slog.String("content_type", string(p.ContentType)))
		out.ContentType = ContentGeneral
	}
	out.OverallComplexity = unit("overall_complexity", p.OverallComplexity, n.OverallComplexity)
	out.MusicalExpressiveness = unit("musical_expressiveness", p.MusicalExpressiveness, n.MusicalExpressiveness)
	out.Density.ContentDensity = unit("content_density", p.Density.ContentDensity, n.Density.ContentDensity)
	out.Density.ListDensity = unit("list_density", p.Density.ListDensity, n.Density.ListDensity)
	out.Linguistic.AvgSentenceLength = positive("avg_sentence_length", p.Linguistic.AvgSentenceLength, n.Linguistic.AvgSentenceLength)
	out.Linguistic.AvgWordLength = positive("avg_word_length", p.Linguistic.AvgWordLength, n.Linguistic.AvgWordLength)
	out.Linguistic.VocabularyDiversity = unit("vocabulary_diversity", p.Linguistic.VocabularyDiversity, n.Linguistic.VocabularyDiversity)
	out.Linguistic.PunctuationDensity = unit("punctuation_density", p.Linguistic.PunctuationDensity, n.Linguistic.PunctuationDensity)
	out.Linguistic.QuestionRatio = unit("question_ratio", p.Linguistic.QuestionRatio, n.Linguistic.QuestionRatio)
	out.Structure.ComplexityScore = unit("complexity_score", p.Structure.ComplexityScore, n.Structure.ComplexityScore)
	if out.Structure.NestingDepth < 0 {
		out.Structure.NestingDepth = 0
	}
	return out
}

// Features returns the values the structural seed is derived from
func (p Prose) Features() []float64 {
	return []float64{
		p.Linguistic.AvgSentenceLength,
		p.Linguistic.AvgWordLength,
		p.Linguistic.VocabularyDiversity,
		p.Linguistic.PunctuationDensity,
		p.Linguistic.QuestionRatio,
		p.Density.ContentDensity,
		float64(p.Structure.NestingDepth),
	}
}
