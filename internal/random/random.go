// Package random provides the injectable randomness used by the generators.
package random

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"time"
)

// Source is the randomness every generator draws from.
type Source interface {
	Float64() float64
	IntN(n int) int
}

// Rand is a seeded PCG source.
type Rand struct {
	r    *rand.Rand
	Seed uint64
}

// NewSeeded returns a reproducible source.
func NewSeeded(seed uint64) *Rand {
	return &Rand{
		r:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Seed: seed,
	}
}

// NewEntropy returns a source seeded from the wall clock.
func NewEntropy() *Rand {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

func (r *Rand) Float64() float64 { return r.r.Float64() }

// IntN returns a value in [0, n). n <= 0 yields 0.
func (r *Rand) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return r.r.IntN(n)
}

// Between returns a value in [lo, hi).
func Between(s Source, lo, hi float64) float64 {
	return lo + s.Float64()*(hi-lo)
}

// Jitter returns a value in [-amount, amount).
func Jitter(s Source, amount float64) float64 {
	return Between(s, -amount, amount)
}

// SignOf returns -1 or 1 with equal probability.
func SignOf(s Source) float64 {
	if s.Float64() < 0.5 {
		return -1
	}
	return 1
}

// Seed hashes the given features into a seed. Values are rounded to three
// decimals so float noise in the inputs does not change the result.
func Seed(features ...float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, f := range features {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			f = 0
		}
		v := uint64(int64(math.Round(f * 1000)))
		for i := range buf {
			buf[i] = byte(v >> (8 * i))
		}
		h.Write(buf[:])
	}
	return h.Sum64()
}
