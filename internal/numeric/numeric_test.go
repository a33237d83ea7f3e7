package numeric

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrDefault(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"finite", 0.25, 0.25},
		{"nan", math.NaN(), 0.5},
		{"posinf", math.Inf(1), 0.5},
		{"neginf", math.Inf(-1), 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OrDefault(tt.in, 0.5))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-2, 0, 1))
	assert.Equal(t, 1.0, Clamp(3, 0, 1))
	assert.Equal(t, 0.3, Clamp(0.3, 0, 1))
	assert.Equal(t, 0.0, Clamp(math.NaN(), 0, 1))
	assert.Equal(t, 0.7, ClampOrDefault(math.NaN(), 0, 1, 0.7))
	assert.Equal(t, 3, ClampInt(10, 0, 3))
}

func TestSafeIndex(t *testing.T) {
	assert.Equal(t, -1, SafeIndex(0, 3))
	assert.Equal(t, 0, SafeIndex(4, -1))
	assert.Equal(t, 3, SafeIndex(4, 9))
	assert.Equal(t, 2, SafeIndex(4, 2))
}

func TestRoundAndSign(t *testing.T) {
	assert.Equal(t, 3, Round(2.5))
	assert.Equal(t, -3, Round(-2.5))
	assert.Equal(t, 0, Round(math.NaN()))
	assert.Equal(t, -1.0, Sign(-0.2))
	assert.Equal(t, 0.0, Sign(0))
}
