// Package random provides the per-household random streams.
//
// Every household owns a Stream seeded from the scheduler's sequential seed
// generator. Outcomes therefore depend only on the household seed, never on
// which worker simulated it or how many households it shared a worker with.
package random

import (
	"math/rand"
)

// Stream is a reseedable uniform(0,1) source with a second, household
// synchronized source used for joint choices.
type Stream struct {
	seed int64
	main *rand.Rand
	sync *rand.Rand
}

// New creates a stream for a household seed.
func New(seed int64) *Stream {
	s := &Stream{}
	s.Reseed(seed)
	return s
}

// Reseed restarts the stream from seed.
func (s *Stream) Reseed(seed int64) {
	s.seed = seed
	s.main = rand.New(rand.NewSource(seed))
	s.sync = rand.New(rand.NewSource(seed ^ 0x5bd1e995))
}

// Seed returns the seed the stream was last started from.
func (s *Stream) Seed() int64 {
	return s.seed
}

// Uniform01 returns a draw in (0,1).
func (s *Stream) Uniform01() float64 {
	return open(s.main.Float64())
}

// Intn returns a draw in [0,n).
func (s *Stream) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return s.main.Intn(n)
}

// ResetSynchronization restarts the synchronized source. Joint choices are
// drawn from it so every participant sees the same sequence.
func (s *Stream) ResetSynchronization(seed int64) {
	s.sync = rand.New(rand.NewSource(seed))
}

// NextSynchronizationSeed draws a seed for ResetSynchronization from the
// main source.
func (s *Stream) NextSynchronizationSeed() int64 {
	return s.main.Int63()
}

// SyncUniform01 returns a draw in (0,1) from the synchronized source.
func (s *Stream) SyncUniform01() float64 {
	return open(s.sync.Float64())
}

// Synchronized exposes the synchronized source as a Uniform.
func (s *Stream) Synchronized() Uniform {
	return syncView{s}
}

// Uniform is implemented by Stream and its synchronized view.
type Uniform interface {
	Uniform01() float64
}

type syncView struct{ s *Stream }

func (v syncView) Uniform01() float64 { return v.s.SyncUniform01() }

// SeedSequence hands out household seeds in roster order.
type SeedSequence struct {
	r *rand.Rand
}

// NewSeedSequence creates the run-level seed generator.
func NewSeedSequence(seed int64) *SeedSequence {
	return &SeedSequence{r: rand.New(rand.NewSource(seed))}
}

// Next returns the seed for the next household in roster order.
func (q *SeedSequence) Next() int64 {
	return q.r.Int63()
}

func open(v float64) float64 {
	if v == 0 {
		return 1e-12
	}
	return v
}
