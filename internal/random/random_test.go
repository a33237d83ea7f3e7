package random

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeededIsReproducible(t *testing.T) {
	a := NewSeeded(42)
	b := NewSeeded(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
		assert.Equal(t, a.IntN(10), b.IntN(10))
	}
}

func TestIntNNonPositive(t *testing.T) {
	assert.Equal(t, 0, NewSeeded(1).IntN(0))
	assert.Equal(t, 0, NewSeeded(1).IntN(-3))
}

func TestSeed(t *testing.T) {
	t.Run("StableUnderFloatNoise", func(t *testing.T) {
		assert.Equal(t, Seed(15, 0.5), Seed(15.0000001, 0.5))
	})
	t.Run("DiffersOnFeatures", func(t *testing.T) {
		assert.NotEqual(t, Seed(15, 0.5), Seed(16, 0.5))
	})
	t.Run("NaNTolerated", func(t *testing.T) {
		assert.Equal(t, Seed(0), Seed(math.NaN()))
	})
}

func TestHelpers(t *testing.T) {
	s := NewSeeded(7)
	for i := 0; i < 50; i++ {
		v := Jitter(s, 0.1)
		assert.GreaterOrEqual(t, v, -0.1)
		assert.Less(t, v, 0.1)
		assert.Contains(t, []float64{-1, 1}, SignOf(s))
	}
}
