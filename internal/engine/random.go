package engine

import "math/rand/v2"

// Random is the single source of randomness for crits, damage rolls and
// speed tie-breaks. *rand.Rand satisfies it.
type Random interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// DefaultRandom draws from the math/rand/v2 global source.
func DefaultRandom() Random { return globalRandom{} }

// Sequence replays fixed draws in order and wraps around when exhausted.
// An empty Sequence always returns 0.
type Sequence struct {
	Values []float64
	next   int
}

// NewSequence returns a Sequence over values.
func NewSequence(values ...float64) *Sequence {
	return &Sequence{Values: values}
}

func (s *Sequence) Float64() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}
