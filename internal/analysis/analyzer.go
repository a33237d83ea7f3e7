package analysis

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/dygy/sonigraph/internal/numeric"
)

// Document is the text of one note plus the metadata the analyzer reads
type Document struct {
	Name string   // note identifier, usually the path without extension
	Body string   // markdown without front matter
	Tags []string // front matter tags
}

var (
	listItemRe  = regexp.MustCompile(`^(\s*)([-*+]|\d+[.)])\s+`)
	headingRe   = regexp.MustCompile(`^(#{1,6})\s+`)
	inlineTagRe = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_/-]+)`)
	citationRe  = regexp.MustCompile(`\[@[^\]]+\]|\bet al\.|\[\d+\]`)
	dateNameRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// tagHints maps tags to the category they announce
var tagHints = map[string]ContentType{
	"journal":   ContentJournal,
	"daily":     ContentJournal,
	"diary":     ContentJournal,
	"meeting":   ContentMeeting,
	"meetings":  ContentMeeting,
	"standup":   ContentMeeting,
	"code":      ContentTechnical,
	"dev":       ContentTechnical,
	"technical": ContentTechnical,
	"research":  ContentAcademic,
	"paper":     ContentAcademic,
	"academic":  ContentAcademic,
	"poem":      ContentCreative,
	"poetry":    ContentCreative,
	"story":     ContentCreative,
	"fiction":   ContentCreative,
	"creative":  ContentCreative,
	"reference": ContentReference,
	"ref":       ContentReference,
	"list":      ContentList,
	"todo":      ContentList,
}

// Analyzer derives prose features from markdown
type Analyzer struct {
	logger *slog.Logger
}

// NewAnalyzer creates an analyzer. A nil logger uses slog.Default().
func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

type counts struct {
	lines, listLines, headings     int
	nesting                        int
	sentences, questions, exclaims int
	words, letters                 int
	punct, chars                   int
	unique                         map[string]struct{}
	hasCode                        bool
}

// Analyze computes the feature record for a document. Empty text yields Neutral().
func (a *Analyzer) Analyze(doc Document) Prose {
	text := norm.NFC.String(doc.Body)
	if strings.TrimSpace(text) == "" {
		a.logger.Debug("empty note, using neutral prose", slog.String("note", doc.Name))
		p := Neutral()
		if ct, ok := hintFromTags(doc.Tags, text); ok {
			p.ContentType = ct
		}
		return p
	}

	c := scan(text)
	if c.words == 0 {
		p := Neutral()
		p.Density.ListDensity = ratio(c.listLines, c.lines)
		return p
	}

	p := Prose{}
	sentences := c.sentences
	if sentences == 0 {
		sentences = 1
	}
	p.Linguistic.AvgSentenceLength = float64(c.words) / float64(sentences)
	p.Linguistic.AvgWordLength = float64(c.letters) / float64(c.words)
	p.Linguistic.VocabularyDiversity = float64(len(c.unique)) / float64(c.words)
	p.Linguistic.PunctuationDensity = ratio(c.punct, c.chars)
	p.Linguistic.QuestionRatio = ratio(c.questions, sentences)
	p.Density.ListDensity = ratio(c.listLines, c.lines)
	p.Density.ContentDensity = numeric.Clamp(float64(c.words)/float64(max(c.lines, 1))/20, 0, 1)
	p.Structure.NestingDepth = c.nesting
	p.Structure.ComplexityScore = numeric.Clamp(
		0.5*float64(min(c.nesting, 5))/5+0.5*float64(min(c.headings, 10))/10, 0, 1)

	p.OverallComplexity = numeric.Clamp(
		0.3*span(p.Linguistic.AvgWordLength, 3, 8)+
			0.3*span(p.Linguistic.AvgSentenceLength, 5, 30)+
			0.2*p.Linguistic.VocabularyDiversity+
			0.2*p.Structure.ComplexityScore, 0, 1)
	p.MusicalExpressiveness = numeric.Clamp(
		0.35*numeric.Clamp(p.Linguistic.PunctuationDensity/0.1, 0, 1)+
			0.25*p.Linguistic.QuestionRatio+
			0.25*ratio(c.exclaims, sentences)+
			0.15*p.Linguistic.VocabularyDiversity, 0, 1)

	p.ContentType = a.classify(doc, text, c, p)

	a.logger.Debug("analyzed note",
		slog.String("note", doc.Name),
		slog.String("content_type", string(p.ContentType)),
		slog.Int("words", c.words),
		slog.Int("sentences", c.sentences))
	return p
}

func (a *Analyzer) classify(doc Document, text string, c counts, p Prose) ContentType {
	if ct, ok := hintFromTags(doc.Tags, text); ok {
		return ct
	}
	switch {
	case p.Density.ListDensity > 0.5:
		return ContentList
	case c.hasCode:
		return ContentTechnical
	case citationRe.MatchString(text):
		return ContentAcademic
	case dateNameRe.MatchString(doc.Name):
		return ContentJournal
	case p.MusicalExpressiveness > 0.6:
		return ContentCreative
	}
	return ContentGeneral
}

func hintFromTags(tags []string, text string) (ContentType, bool) {
	all := append([]string{}, tags...)
	for _, m := range inlineTagRe.FindAllStringSubmatch(text, -1) {
		all = append(all, m[1])
	}
	for _, tag := range all {
		tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
		// nested tags like journal/2024 hint by their first segment
		if i := strings.IndexByte(tag, '/'); i > 0 {
			tag = tag[:i]
		}
		if ct, ok := tagHints[tag]; ok {
			return ct, true
		}
	}
	return "", false
}

func scan(text string) counts {
	c := counts{unique: make(map[string]struct{})}
	inFence := false
	var sentence strings.Builder

	flush := func(term rune) {
		if strings.TrimSpace(sentence.String()) == "" {
			sentence.Reset()
			return
		}
		c.sentences++
		switch term {
		case '?':
			c.questions++
		case '!':
			c.exclaims++
		}
		sentence.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			c.hasCode = true
			continue
		}
		if inFence {
			continue
		}
		if trimmed == "" {
			flush(0)
			continue
		}
		c.lines++

		breakAfter := false
		if m := headingRe.FindStringSubmatch(trimmed); m != nil {
			c.headings++
			c.nesting = max(c.nesting, len(m[1])-1)
			trimmed = trimmed[len(m[0]):]
			breakAfter = true
		} else if m := listItemRe.FindStringSubmatch(line); m != nil {
			c.listLines++
			c.nesting = max(c.nesting, indentLevel(m[1]))
			trimmed = strings.TrimSpace(line[len(m[0]):])
			breakAfter = true
		}

		for _, r := range trimmed {
			if !unicode.IsSpace(r) {
				c.chars++
			}
			if unicode.IsPunct(r) {
				c.punct++
			}
			switch r {
			case '.', '!', '?':
				flush(r)
				continue
			}
			sentence.WriteRune(r)
		}
		if breakAfter {
			flush(0)
		} else {
			sentence.WriteRune(' ')
		}

		for _, w := range strings.FieldsFunc(trimmed, notWordRune) {
			c.words++
			for _, r := range w {
				if unicode.IsLetter(r) || unicode.IsDigit(r) {
					c.letters++
				}
			}
			c.unique[strings.ToLower(w)] = struct{}{}
		}
	}
	flush(0)
	return c
}

func notWordRune(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
}

func indentLevel(ws string) int {
	level := 0
	spaces := 0
	for _, r := range ws {
		switch r {
		case '\t':
			level++
		case ' ':
			spaces++
			if spaces == 2 {
				level++
				spaces = 0
			}
		}
	}
	return level
}

func ratio(n, d int) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// span maps v from [lo, hi] onto [0, 1]
func span(v, lo, hi float64) float64 {
	return numeric.Clamp((v-lo)/(hi-lo), 0, 1)
}
