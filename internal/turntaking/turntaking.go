// Package turntaking assigns solo and accompaniment roles to notes by time
// window so that voices take turns instead of all playing at once.
package turntaking

import (
	"log/slog"
	"math"

	"github.com/dygy/sonigraph/internal/mapping"
)

// Pattern is a turn-taking scheme
type Pattern string

const (
	None         Pattern = "none"
	Sequential   Pattern = "sequential"
	CallResponse Pattern = "call-response"
	Solos        Pattern = "solos"
	LayeredEntry Pattern = "layered-entry"
	Conversation Pattern = "conversation"
	Fugue        Pattern = "fugue"
	Antiphonal   Pattern = "antiphonal"
)

// Patterns lists the known schemes
var Patterns = []Pattern{None, Sequential, CallResponse, Solos, LayeredEntry, Conversation, Fugue, Antiphonal}

const centreWidth = 0.1

// Config controls turn-taking
type Config struct {
	Pattern                Pattern `yaml:"pattern" json:"pattern"`
	TurnLength             float64 `yaml:"turn_length" json:"turn_length"` // beats
	AccompanimentReduction float64 `yaml:"accompaniment_reduction" json:"accompaniment_reduction"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Pattern:                Sequential,
		TurnLength:             4,
		AccompanimentReduction: 0.4,
	}
}

// Engine applies a turn-taking pattern
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates a turn-taking engine
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if !(cfg.TurnLength > 0) {
		cfg.TurnLength = 4
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Apply annotates notes in place and returns them. Order and length are
// preserved.
func (e *Engine) Apply(notes []mapping.Note) []mapping.Note {
	switch e.cfg.Pattern {
	case None, "":
	case Sequential:
		e.rotate(notes, byInstrument, 1)
	case Solos:
		e.rotate(notes, byInstrument, 2)
	case Conversation:
		e.rotate(notes, byDepth, 1)
	case CallResponse:
		e.callResponse(notes)
	case LayeredEntry:
		e.layeredEntry(notes)
	case Fugue:
		e.fugue(notes)
	case Antiphonal:
		e.antiphonal(notes)
	default:
		e.logger.Warn("unknown turn-taking pattern, leaving notes unchanged", slog.String("pattern", string(e.cfg.Pattern)))
	}
	return notes
}

func (e *Engine) window(n mapping.Note) int {
	return int(math.Floor(n.Timing / e.cfg.TurnLength))
}

func (e *Engine) mark(n *mapping.Note, solo bool) {
	n.IsSolo = solo
	n.IsAccompaniment = !solo
	if !solo {
		n.Velocity *= e.cfg.AccompanimentReduction
	}
}

type keyFunc func(mapping.Note) any

func byInstrument(n mapping.Note) any { return n.Instrument }
func byDepth(n mapping.Note) any      { return n.Depth }

// groups numbers each distinct key in order of first appearance
func groups(notes []mapping.Note, key keyFunc) ([]int, int) {
	index := make(map[any]int)
	ids := make([]int, len(notes))
	for i, n := range notes {
		k := key(n)
		g, ok := index[k]
		if !ok {
			g = len(index)
			index[k] = g
		}
		ids[i] = g
	}
	return ids, len(index)
}

// rotate gives each group the solo for span consecutive windows in turn
func (e *Engine) rotate(notes []mapping.Note, key keyFunc, span int) {
	ids, count := groups(notes, key)
	if count == 0 {
		return
	}
	for i := range notes {
		w := e.window(notes[i])
		notes[i].TurnIndex = w
		e.mark(&notes[i], ids[i] == (w/span)%count)
	}
}

// callResponse splits the groups into a calling half and an answering half
// that alternate by window
func (e *Engine) callResponse(notes []mapping.Note) {
	ids, count := groups(notes, byInstrument)
	calls := (count + 1) / 2
	for i := range notes {
		w := e.window(notes[i])
		notes[i].TurnIndex = w
		calling := ids[i] < calls
		e.mark(&notes[i], calling == (w%2 == 0))
	}
}

// layeredEntry brings one group in per window. The newest entrant leads
// until everyone has entered.
func (e *Engine) layeredEntry(notes []mapping.Note) {
	ids, count := groups(notes, byInstrument)
	for i := range notes {
		n := &notes[i]
		w := e.window(*n)
		g := ids[i]
		n.TurnIndex = w
		switch {
		case w < g:
			n.Velocity = 0
			n.IsSolo = false
			n.IsAccompaniment = false
		case w >= count-1:
			e.mark(n, true)
		default:
			e.mark(n, g == w)
		}
	}
}

// fugue staggers each voice's entry by one turn per voice
func (e *Engine) fugue(notes []mapping.Note) {
	ids, _ := groups(notes, byInstrument)
	for i := range notes {
		v := ids[i]
		notes[i].Timing += float64(v) * e.cfg.TurnLength
		notes[i].TurnIndex = v
	}
}

// antiphonal alternates the left and right sides; centre notes accompany
func (e *Engine) antiphonal(notes []mapping.Note) {
	for i := range notes {
		n := &notes[i]
		w := e.window(*n)
		n.TurnIndex = w
		switch {
		case n.Pan < -centreWidth:
			e.mark(n, w%2 == 0)
		case n.Pan > centreWidth:
			e.mark(n, w%2 == 1)
		default:
			e.mark(n, false)
		}
	}
}
