// Package pipeline composes a note: read, analyze, generate, embellish and
// post-process.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/cache"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/config"
	"github.com/dygy/sonigraph/internal/embellish"
	apperrors "github.com/dygy/sonigraph/internal/errors"
	"github.com/dygy/sonigraph/internal/mapping"
	"github.com/dygy/sonigraph/internal/motif"
	"github.com/dygy/sonigraph/internal/numeric"
	"github.com/dygy/sonigraph/internal/panning"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/progress"
	"github.com/dygy/sonigraph/internal/random"
	"github.com/dygy/sonigraph/internal/strudel"
	"github.com/dygy/sonigraph/internal/tension"
	"github.com/dygy/sonigraph/internal/turntaking"
	"github.com/dygy/sonigraph/internal/vault"
	"github.com/dygy/sonigraph/internal/voicing"
)

// DefaultMaxDepth is how many links away embellishing neighbours are searched
const DefaultMaxDepth = 3

// variationSalt keeps a seeded variation source distinct from the structure source
const variationSalt = 0x9e3779b97f4a7c15

const (
	codaRange    = 12
	codaMinBeats = 0.5
	codaMaxBeats = 4.5
)

// NoteSource reads notes and their link neighbourhood
type NoteSource interface {
	Read(ctx context.Context, id string) (*vault.Note, error)
	Neighbors(ctx context.Context, id string, maxDepth int) (map[int][]string, error)
}

// Request selects the note to compose
type Request struct {
	NodeID   string
	MaxDepth int  // 0 uses DefaultMaxDepth
	NoCache  bool // skip the cache lookup; the result is still stored
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithCache stores and reuses compositions
func WithCache(c *cache.Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithProgress reports stages to r
func WithProgress(r *progress.Reporter) Option {
	return func(o *Orchestrator) { o.progress = r }
}

// WithLogger sets the structured logger
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// Orchestrator coordinates one composition session. Motif memory is shared
// by every composition the orchestrator produces.
type Orchestrator struct {
	cfg      config.Config
	source   NoteSource
	cache    *cache.Cache
	progress *progress.Reporter
	logger   *slog.Logger
	analyzer *analysis.Analyzer

	mu     sync.Mutex
	memory *motif.Memory
}

// NewOrchestrator creates a pipeline orchestrator. source may be nil when
// only ComposeProse is used.
func NewOrchestrator(cfg config.Config, source NoteSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:    cfg,
		source: source,
		logger: slog.Default(),
		memory: motif.NewMemory(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.analyzer = analysis.NewAnalyzer(o.logger)
	return o
}

// Compose runs the full pipeline for a vault note. A note that cannot be
// read yields no composition and no error; the failure is logged.
func (o *Orchestrator) Compose(ctx context.Context, req Request) (*composition.Composition, error) {
	if o.source == nil {
		return nil, fmt.Errorf("compose %s: no note source configured", req.NodeID)
	}
	depth := req.MaxDepth
	if depth <= 0 {
		depth = DefaultMaxDepth
	}

	// Stage 1: Read
	o.progress.StartStage(progress.StageRead)
	note, err := o.source.Read(ctx, req.NodeID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		stageErr := apperrors.NewStageError("read", req.NodeID, err)
		o.logger.Error("no composition for this node", slog.Any("error", stageErr))
		o.progress.Warning("No composition: %v", err)
		return nil, nil
	}

	neighbors, err := o.source.Neighbors(ctx, note.ID, depth)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		o.logger.Warn("link neighbourhood unavailable, composing without embellishments",
			slog.String("node", note.ID), slog.Any("error", err))
		o.progress.Warning("Links unavailable: %v", err)
		neighbors = nil
	}
	o.progress.StageComplete("Read %s (%d bytes, %d linked notes)", note.ID, len(note.Body), countNeighbors(neighbors))

	key := ""
	if o.cache != nil {
		key = cache.Key(cacheText(note, neighbors), o.cfg.Fingerprint())
		if !req.NoCache {
			if cached, ok := o.cache.Get(key); ok {
				o.progress.StageComplete("Using cached composition (key: %s)", key)
				return cached, nil
			}
		}
	}

	// Stage 2: Analyze
	o.progress.StartStage(progress.StageAnalyze)
	prose := o.Analyze(note)
	o.progress.StageComplete("Content: %s, complexity %.2f, expressiveness %.2f",
		prose.ContentType, prose.OverallComplexity, prose.MusicalExpressiveness)

	c := o.build(note.ID, prose, neighbors)

	if o.cache != nil {
		code := strudel.NewGenerator(16).Generate(c)
		if version, err := o.cache.Put(key, c, code); err != nil {
			o.progress.Warning("Cache save failed: %v", err)
			o.logger.Warn("cache save failed", slog.String("key", key), slog.Any("error", err))
		} else {
			o.progress.Update("Cached as version %d (key: %s)", version, key)
		}
	}
	return c, nil
}

// Analyze measures a note's prose
func (o *Orchestrator) Analyze(note *vault.Note) analysis.Prose {
	return o.analyzer.Analyze(analysis.Document{Name: note.ID, Body: note.Body, Tags: note.Tags})
}

// ComposeProse runs the pipeline on an already analysed note. Malformed
// features are replaced by neutral values, so only cancellation fails it.
func (o *Orchestrator) ComposeProse(ctx context.Context, id string, prose analysis.Prose, neighbors map[int][]string) (*composition.Composition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.build(id, prose, neighbors), nil
}

func (o *Orchestrator) build(id string, prose analysis.Prose, neighbors map[int][]string) *composition.Composition {
	prose = prose.Sanitized(o.logger)
	proseSeed := random.Seed(prose.Features()...)
	structure, variation := o.sources(proseSeed)
	root := o.rootFrequency()

	// Stage 3: Generate
	o.progress.StartStage(progress.StageGenerate)
	center := phrase.NewGenerator(o.cfg.Phrase, structure, o.logger).Generate(prose)
	lead, motifs, development := o.coda(id, center)
	o.logger.Debug("coda developed", slog.String("node", id), slog.Any("transforms", development))
	o.progress.StageComplete("%d notes at %.0f BPM (%d motifs, %d in coda)",
		center.Len(), center.Tempo, len(motifs), lead.Len()-center.Len())

	// Stage 4: Embellish
	o.progress.StartStage(progress.StageEmbellish)
	embs := embellish.NewGenerator(o.cfg.Embellish, structure, o.logger).Generate(center, prose, neighbors)
	o.progress.StageComplete("%d embellishments from %d linked notes", len(embs), countNeighbors(neighbors))

	// Stage 5: Process
	o.progress.StartStage(progress.StageProcess)
	notes := composition.Layout(id, lead, embs, root)
	if repaired := mapping.Normalize(notes, root, o.logger); repaired > 0 {
		o.progress.Update("Repaired %d note fields", repaired)
	}
	notes = o.applyPasses(notes, variation)
	o.progress.StageComplete("%d notes after %s", len(notes), strings.Join(o.cfg.Passes, ", "))

	fingerprint := o.cfg.Fingerprint()
	return &composition.Composition{
		ID:             composition.NewID(id, fingerprint, strconv.FormatUint(proseSeed, 16)),
		NodeID:         id,
		ContentType:    prose.ContentType,
		Tempo:          center.Tempo,
		RootFrequency:  root,
		Prose:          prose,
		Phrase:         center,
		Motifs:         motifs,
		Embellishments: embs,
		Notes:          notes,
		Fingerprint:    fingerprint,
		CreatedAt:      time.Now().UTC(),
	}
}

// sources returns the structure and variation randomness. Structure is
// always seeded: from Config.Seed when set, otherwise from the prose.
// Variation is seeded only when Reproducible or Seed asks for it.
func (o *Orchestrator) sources(proseSeed uint64) (structure, variation random.Source) {
	seed := proseSeed
	if o.cfg.Seed != 0 {
		seed = o.cfg.Seed
	}
	structure = random.NewSeeded(seed)
	if o.cfg.Reproducible || o.cfg.Seed != 0 {
		return structure, random.NewSeeded(seed ^ variationSalt)
	}
	return structure, random.NewEntropy()
}

func (o *Orchestrator) rootFrequency() float64 {
	root := numeric.OrDefault(o.cfg.RootFrequency, mapping.DefaultRootFrequency)
	if root <= 0 {
		return mapping.DefaultRootFrequency
	}
	return root
}

func (o *Orchestrator) applyPasses(notes []mapping.Note, variation random.Source) []mapping.Note {
	for _, pass := range o.cfg.Passes {
		switch pass {
		case config.PassTension:
			notes = tension.NewController(o.cfg.Tension, o.logger).Apply(notes)
		case config.PassTurnTaking:
			notes = turntaking.NewEngine(o.cfg.TurnTaking, o.logger).Apply(notes)
		case config.PassPanning:
			notes = panning.NewController(o.cfg.Panning, variation, o.logger).Apply(notes)
		case config.PassVoicing:
			notes = voicing.NewVoicer(o.cfg.Voicing, variation, o.logger).Expand(notes)
		default:
			o.logger.Warn("unknown pass skipped", slog.String("pass", pass))
		}
	}
	return notes
}

func countNeighbors(neighbors map[int][]string) int {
	n := 0
	for _, ids := range neighbors {
		n += len(ids)
	}
	return n
}

// cacheText is everything about a note that changes its composition
func cacheText(note *vault.Note, neighbors map[int][]string) string {
	var sb strings.Builder
	sb.WriteString(note.ID)
	sb.WriteByte('\n')
	sb.WriteString(strings.Join(note.Tags, ","))
	sb.WriteByte('\n')
	sb.WriteString(note.Body)

	depths := make([]int, 0, len(neighbors))
	for d := range neighbors {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		fmt.Fprintf(&sb, "\n%d:%s", d, strings.Join(neighbors[d], ","))
	}
	return sb.String()
}

// coda restates motif A twice and motif B once after the phrase, fading out.
// Motifs are keyed by node, so each recomposition of a node moves its motifs
// further along the development schedule. The centre phrase is left
// untouched; the returned lead carries the coda.
func (o *Orchestrator) coda(id string, center *phrase.Phrase) (*phrase.Phrase, []motif.Motif, []motif.Transform) {
	o.mu.Lock()
	defer o.mu.Unlock()

	motifs := motif.Extract(center, id, o.memory.CurrentPhrase)
	o.memory.CurrentPhrase++
	lead := center.Clone()
	if len(motifs) == 0 {
		return lead, nil, nil
	}

	plan := []motif.Motif{motifs[0], motifs[0]}
	if len(motifs) > 1 {
		plan = append(plan, motifs[1])
	}
	var melody []int
	var rhythm []float64
	development := make([]motif.Transform, 0, len(plan))
	for _, m := range plan {
		d := o.memory.Restate(m, 0)
		melody = append(melody, d.Melody...)
		rhythm = append(rhythm, d.Rhythm...)
		development = append(development, d.Transform)
	}

	floor := numeric.ClampOrDefault(o.cfg.Phrase.MinVelocity, 0.01, 1, 0.08)
	start := floor
	if n := len(lead.Velocities); n > 0 {
		start = max(lead.Velocities[n-1], floor)
	}
	steps := float64(len(melody))
	for i := range melody {
		fade := 1 - float64(i+1)/steps
		lead.Melody = append(lead.Melody, numeric.ClampInt(melody[i], -codaRange, codaRange))
		lead.Rhythm = append(lead.Rhythm, numeric.Clamp(rhythm[i], codaMinBeats, codaMaxBeats))
		lead.Velocities = append(lead.Velocities, floor+(start-floor)*fade)
	}
	lead.Sum()
	return lead, motifs, development
}
