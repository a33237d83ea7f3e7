// Package composition holds the finished result of one generation run and
// lays its voices out on a shared timeline.
package composition

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/embellish"
	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/motif"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/phrase"
)

// Instrument names used on the flattened timeline
const (
	Lead     = "lead"
	Keys     = "keys"
	Bass     = "bass"
	Pad      = "pad"
	maxPan   = 0.8
	panStep  = 0.2
	panFloor = 0.2
)

var instrumentFor = map[embellish.Type]string{
	embellish.HarmonicResponse:     Keys,
	embellish.RhythmicCounterpoint: Bass,
	embellish.AmbientTexture:       Pad,
}

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/dygy/sonigraph"))

// Composition is everything generated for one note
type Composition struct {
	ID             string                    `json:"id"`
	NodeID         string                    `json:"node_id"`
	ContentType    analysis.ContentType      `json:"content_type"`
	Tempo          float64                   `json:"tempo"`
	RootFrequency  float64                   `json:"root_frequency"`
	Prose          analysis.Prose            `json:"prose"`
	Phrase         *phrase.Phrase            `json:"phrase"`
	Motifs         []motif.Motif             `json:"motifs,omitempty"`
	Embellishments []embellish.Embellishment `json:"embellishments,omitempty"`
	Notes          []mapping.Note            `json:"notes"`
	Fingerprint    string                    `json:"fingerprint"`
	CreatedAt      time.Time                 `json:"created_at"`
}

// NewID derives a stable identifier from the given parts
func NewID(parts ...string) string {
	return uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "\x00"))).String()
}

// Instruments returns the distinct instruments in order of first appearance
func (c *Composition) Instruments() []string {
	var out []string
	seen := make(map[string]bool)
	for _, n := range c.Notes {
		if !seen[n.Instrument] {
			seen[n.Instrument] = true
			out = append(out, n.Instrument)
		}
	}
	return out
}

// Beats returns the end of the last sounding note
func (c *Composition) Beats() float64 {
	return mapping.End(c.Notes)
}

// Layout flattens the center phrase and its embellishments into mapping
// notes. Every voice starts at beat zero; embellishments at another tempo
// are stretched onto the center's beat grid. Embellishments alternate sides
// and move outward with depth.
func Layout(nodeID string, center *phrase.Phrase, embs []embellish.Embellishment, rootFrequency float64) []mapping.Note {
	if center == nil {
		return nil
	}
	notes := voice(center, nodeID, Lead, 0, 0, 1, rootFrequency)

	for i, e := range embs {
		if e.Phrase == nil {
			continue
		}
		side := 1.0
		if i%2 == 1 {
			side = -1
		}
		pan := side * math.Min(panFloor+panStep*float64(e.Depth), maxPan)

		stretch := 1.0
		if e.Phrase.Tempo > 0 && center.Tempo > 0 {
			stretch = center.Tempo / e.Phrase.Tempo
		}
		inst, ok := instrumentFor[e.Type]
		if !ok {
			inst = Keys
		}
		notes = append(notes, voice(e.Phrase, e.NodeID, inst, e.Depth, pan, stretch, rootFrequency)...)
	}
	return notes
}

func voice(p *phrase.Phrase, nodeID, instrument string, depth int, pan, stretch, root float64) []mapping.Note {
	notes := make([]mapping.Note, 0, p.Len())
	t := 0.0
	for i, semi := range p.Melody {
		dur := 1.0
		if i < len(p.Rhythm) {
			dur = numeric.OrDefault(p.Rhythm[i], 1) * stretch
		}
		vel := 0.5
		if i < len(p.Velocities) {
			vel = p.Velocities[i]
		}
		notes = append(notes, mapping.Note{
			NodeID:     nodeID,
			Instrument: instrument,
			Timing:     t,
			Duration:   dur,
			Velocity:   vel,
			Pan:        pan,
			Frequency:  root * math.Pow(2, float64(semi)/12),
			Semitone:   semi,
			Depth:      depth,
		})
		t += dur
	}
	return notes
}
