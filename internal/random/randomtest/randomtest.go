// Package randomtest provides deterministic random.Source implementations for
// tests.
package randomtest

import "github.com/dygy/sonigraph/internal/random"

var _ random.Source = (*Fixed)(nil)

// Fixed replays a fixed sequence of floats, wrapping around at the end.
type Fixed struct {
	Values []float64
	pos    int
}

// NewFixed returns a source that replays values in order
func NewFixed(values ...float64) *Fixed {
	return &Fixed{Values: values}
}

func (f *Fixed) Float64() float64 {
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.pos%len(f.Values)]
	f.pos++
	return v
}

func (f *Fixed) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	i := int(f.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}
