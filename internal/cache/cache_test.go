package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dygy/sonigraph/internal/analysis"
	"github.com/dygy/sonigraph/internal/composition"
	"github.com/dygy/sonigraph/internal/mapping"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "compositions"))
	require.NoError(t, err)
	return c
}

func sample(tempo float64) *composition.Composition {
	return &composition.Composition{
		ID:          "id-1",
		NodeID:      "daily/today",
		ContentType: analysis.ContentJournal,
		Tempo:       tempo,
		Notes:       []mapping.Note{{Instrument: composition.Lead, Velocity: 0.5, Duration: 1}},
	}
}

func TestKey(t *testing.T) {
	a := Key("hello", "fp1")
	assert.Equal(t, a, Key("hello", "fp1"))
	assert.NotEqual(t, a, Key("hello", "fp2"))
	assert.NotEqual(t, a, Key("hello!", "fp1"))
	assert.Len(t, a, len("note_")+16)
}

func TestPutGetHistory(t *testing.T) {
	c := newCache(t)
	key := Key("text", "fp")

	_, ok := c.Get(key)
	assert.False(t, ok, "empty cache misses")

	v, err := c.Put(key, sample(85), "setcps(85/60/4)")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.Put(key, sample(90), "")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 90.0, got.Tempo)
	assert.Equal(t, "daily/today", got.NodeID)

	history, err := c.History(key)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 1, history[0].Version)
	assert.Equal(t, "setcps(85/60/4)", history[0].Strudel)

	latest, err := os.ReadFile(filepath.Join(c.Dir(), key, "output_latest.strudel"))
	require.NoError(t, err)
	assert.Equal(t, "setcps(85/60/4)", string(latest))
}

func TestStaleVersionIgnored(t *testing.T) {
	c := newCache(t)
	key := Key("text", "fp")
	_, err := c.Put(key, sample(85), "")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), key, ".version"), []byte("old"), 0644))
	_, ok := c.Get(key)
	assert.False(t, ok)

	v, err := c.Put(key, sample(70), "")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "stale outputs are discarded")

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, 70.0, got.Tempo)
}

func TestSizeAndClear(t *testing.T) {
	c := newCache(t)

	size, count, err := c.Size()
	require.NoError(t, err)
	assert.Zero(t, size)
	assert.Zero(t, count)

	_, err = c.Put(Key("a", "fp"), sample(85), "")
	require.NoError(t, err)
	_, err = c.Put(Key("b", "fp"), sample(85), "code")
	require.NoError(t, err)

	size, count, err = c.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Positive(t, size)

	require.NoError(t, c.Clear())
	size, count, err = c.Size()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, size)
}

func TestKeys(t *testing.T) {
	c := newCache(t)
	keys, err := c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = c.Put("note_b", sample(85), "")
	require.NoError(t, err)
	_, err = c.Put("note_a", sample(85), "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(c.Dir(), "note_partial"), 0755))

	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"note_a", "note_b"}, keys)
}

func TestNewRejectsEmptyDir(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}
