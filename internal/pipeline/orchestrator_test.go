package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/cache"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/config"
	"github.com/dygy/sonigraph/internal/embellish"
	"github.com/dygy/sonigraph/internal/motif"
	"github.com/dygy/sonigraph/internal/phrase"
	"github.com/dygy/sonigraph/internal/progress"
	"github.com/dygy/sonigraph/internal/vault"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func journalVault(t *testing.T) *vault.Vault {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"daily/today.md": "---\ntags: [journal]\n---\n" +
			"Woke up early and walked to the river. I wondered why the fog stays so long.\n" +
			"Later I wrote about [[ideas]] and felt calm.\n",
		"ideas.md":   "Loose thoughts. See [[archive]].\n",
		"archive.md": "Old things live here. [[attic]]\n",
		"attic.md":   "Dust.\n",
	}
	for name, body := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	}
	v, err := vault.Open(dir, 0)
	require.NoError(t, err)
	return v
}

func seededConfig(seed uint64) config.Config {
	cfg := config.Default()
	cfg.Seed = seed
	return cfg
}

func TestComposeJournalNote(t *testing.T) {
	var out bytes.Buffer
	o := NewOrchestrator(seededConfig(7), journalVault(t),
		WithLogger(quietLogger()), WithProgress(progress.NewReporter(&out, true)))

	c, err := o.Compose(context.Background(), Request{NodeID: "today"})
	require.NoError(t, err)
	require.NotNil(t, c)

	assert.Equal(t, "daily/today", c.NodeID)
	assert.Equal(t, analysis.ContentJournal, c.ContentType)
	assert.Equal(t, c.Phrase.Tempo, c.Tempo)
	assert.Positive(t, c.Tempo)

	require.NotEmpty(t, c.Motifs)
	assert.Equal(t, "daily/today-A", c.Motifs[0].ID)

	types := map[embellish.Type]string{}
	for _, e := range c.Embellishments {
		types[e.Type] = e.NodeID
	}
	assert.Equal(t, "ideas", types[embellish.HarmonicResponse])
	assert.Equal(t, "archive", types[embellish.RhythmicCounterpoint])
	assert.Equal(t, "attic", types[embellish.AmbientTexture])

	assert.Contains(t, c.Instruments(), composition.Lead)
	for _, n := range c.Notes {
		assert.GreaterOrEqual(t, n.Velocity, 0.0)
		assert.LessOrEqual(t, n.Velocity, 1.0)
		assert.GreaterOrEqual(t, n.Pan, -1.0)
		assert.LessOrEqual(t, n.Pan, 1.0)
		assert.Positive(t, n.Frequency)
	}

	for _, stage := range []string{"[1/5]", "[2/5]", "[3/5]", "[4/5]", "[5/5]"} {
		assert.Contains(t, out.String(), stage)
	}
}

func TestComposeUnreadableNote(t *testing.T) {
	o := NewOrchestrator(config.Default(), journalVault(t), WithLogger(quietLogger()))

	c, err := o.Compose(context.Background(), Request{NodeID: "missing"})
	assert.NoError(t, err)
	assert.Nil(t, c)
}

func TestComposeCanceled(t *testing.T) {
	o := NewOrchestrator(config.Default(), journalVault(t), WithLogger(quietLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, err := o.Compose(ctx, Request{NodeID: "today"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, c)

	_, err = o.ComposeProse(ctx, "x", analysis.Neutral(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComposeWithoutSource(t *testing.T) {
	o := NewOrchestrator(config.Default(), nil, WithLogger(quietLogger()))
	_, err := o.Compose(context.Background(), Request{NodeID: "today"})
	assert.Error(t, err)
}

type brokenLinks struct {
	*vault.Vault
}

func (brokenLinks) Neighbors(context.Context, string, int) (map[int][]string, error) {
	return nil, errors.New("index offline")
}

func TestComposeWithoutLinks(t *testing.T) {
	o := NewOrchestrator(seededConfig(7), brokenLinks{journalVault(t)}, WithLogger(quietLogger()))

	c, err := o.Compose(context.Background(), Request{NodeID: "today"})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Empty(t, c.Embellishments)
	assert.Equal(t, []string{composition.Lead}, c.Instruments())
}

func TestSeedIsReproducible(t *testing.T) {
	prose := analysis.Neutral()
	prose.ContentType = analysis.ContentCreative
	neighbors := map[int][]string{1: {"a"}, 2: {"b"}}

	compose := func() *composition.Composition {
		o := NewOrchestrator(seededConfig(42), nil, WithLogger(quietLogger()))
		c, err := o.ComposeProse(context.Background(), "poem", prose, neighbors)
		require.NoError(t, err)
		return c
	}
	first, second := compose(), compose()

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Phrase, second.Phrase)
	assert.Equal(t, first.Notes, second.Notes)
}

func TestProseSeedWithoutConfigSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Passes = []string{config.PassTension, config.PassTurnTaking}
	prose := analysis.Neutral()

	a, err := NewOrchestrator(cfg, nil, WithLogger(quietLogger())).ComposeProse(context.Background(), "n", prose, nil)
	require.NoError(t, err)
	b, err := NewOrchestrator(cfg, nil, WithLogger(quietLogger())).ComposeProse(context.Background(), "n", prose, nil)
	require.NoError(t, err)

	// without panning or voicing nothing draws from the variation source
	assert.Equal(t, a.Phrase, b.Phrase)
	assert.Equal(t, a.Notes, b.Notes)
}

func TestMalformedProseIsSanitized(t *testing.T) {
	o := NewOrchestrator(seededConfig(3), nil, WithLogger(quietLogger()))
	prose := analysis.Prose{ContentType: "poetry", OverallComplexity: 7, MusicalExpressiveness: -2}

	c, err := o.ComposeProse(context.Background(), "odd", prose, nil)
	require.NoError(t, err)
	assert.Equal(t, analysis.ContentGeneral, c.ContentType)
	assert.Equal(t, 1.0, c.Prose.OverallComplexity)
	assert.Equal(t, 0.0, c.Prose.MusicalExpressiveness)
	assert.NotEmpty(t, c.Notes)
}

func TestCodaFollowsPhrase(t *testing.T) {
	cfg := seededConfig(11)
	cfg.Passes = nil
	o := NewOrchestrator(cfg, nil, WithLogger(quietLogger()))

	c, err := o.ComposeProse(context.Background(), "n", analysis.Neutral(), nil)
	require.NoError(t, err)

	lead := 0
	for _, n := range c.Notes {
		if n.Instrument == composition.Lead {
			lead++
		}
	}
	assert.Greater(t, lead, c.Phrase.Len(), "coda extends the lead voice")

	last := c.Notes[len(c.Notes)-1]
	assert.Greater(t, last.Timing, c.Phrase.TotalBeats-1e-9)
	assert.LessOrEqual(t, last.Velocity, c.Phrase.Velocities[c.Phrase.Len()-1]+1e-9)
	assert.GreaterOrEqual(t, last.Semitone, -12)
	assert.LessOrEqual(t, last.Semitone, 12)
}

func TestMotifMemorySpansCompositions(t *testing.T) {
	o := NewOrchestrator(seededConfig(5), nil, WithLogger(quietLogger()))

	first, err := o.ComposeProse(context.Background(), "a", analysis.Neutral(), nil)
	require.NoError(t, err)
	second, err := o.ComposeProse(context.Background(), "a", analysis.Neutral(), nil)
	require.NoError(t, err)

	assert.Equal(t, "a-A", first.Motifs[0].ID)
	assert.Equal(t, first.Motifs[0].ID, second.Motifs[0].ID)
	assert.Equal(t, 0, first.Motifs[0].SourcePhrase)
	assert.Equal(t, 1, second.Motifs[0].SourcePhrase)
	assert.Equal(t, 4, o.memory.Usage("a-A").Count)
}

func TestMotifDevelopsAcrossCompositions(t *testing.T) {
	o := NewOrchestrator(seededConfig(5), nil, WithLogger(quietLogger()))
	center := &phrase.Phrase{
		Melody:     []int{0, 2, 4, 5, 7, 3, 9, 1},
		Rhythm:     []float64{1, 1, 0.5, 1, 1, 2, 1, 1},
		Velocities: []float64{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5},
	}

	var a, b []motif.Transform
	for i := 0; i < 3; i++ {
		_, motifs, development := o.coda("poem", center)
		require.Len(t, motifs, 2)
		assert.Equal(t, "poem-A", motifs[0].ID)
		require.Len(t, development, 3)
		a = append(a, development[0], development[1])
		b = append(b, development[2])
	}

	assert.Equal(t, []motif.Transform{
		motif.Repeat, motif.Transpose, motif.Invert, motif.Fragment, motif.Augment, motif.Augment,
	}, a)
	assert.Equal(t, []motif.Transform{motif.Repeat, motif.Transpose, motif.Invert}, b)
	assert.Equal(t, motif.Usage{Count: 6, LastTransform: motif.Augment}, o.memory.Usage("poem-A"))
	assert.Len(t, center.Melody, 8, "centre phrase untouched")

	t.Run("OtherNodeStartsFresh", func(t *testing.T) {
		_, motifs, development := o.coda("other", center)
		require.NotEmpty(t, motifs)
		assert.Equal(t, "other-A", motifs[0].ID)
		assert.Equal(t, motif.Repeat, development[0])
	})
}

func TestComposeUsesCache(t *testing.T) {
	c, err := cache.New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	v := journalVault(t)
	o := NewOrchestrator(seededConfig(9), v, WithLogger(quietLogger()), WithCache(c))
	ctx := context.Background()

	first, err := o.Compose(ctx, Request{NodeID: "ideas"})
	require.NoError(t, err)
	second, err := o.Compose(ctx, Request{NodeID: "ideas"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Notes, second.Notes)

	_, err = o.Compose(ctx, Request{NodeID: "ideas", NoCache: true})
	require.NoError(t, err)

	note, err := v.Read(ctx, "ideas")
	require.NoError(t, err)
	neighbors, err := v.Neighbors(ctx, "ideas", DefaultMaxDepth)
	require.NoError(t, err)
	history, err := c.History(cache.Key(cacheText(note, neighbors), seededConfig(9).Fingerprint()))
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Contains(t, history[0].Strudel, "setcps(")
}

func TestCacheTextOrdersDepths(t *testing.T) {
	note := &vault.Note{ID: "n", Body: "text", Tags: []string{"a", "b"}}
	got := cacheText(note, map[int][]string{2: {"y"}, 1: {"x", "z"}})
	assert.Equal(t, "n\na,b\ntext\n1:x,z\n2:y", got)
}
