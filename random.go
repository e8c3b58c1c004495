package htm

import (
	"math/rand"
)

/*
 seededSource wraps the math/rand generator and counts draws so that a
checkpoint can store (seed, draws) and a restored instance continues the
exact same sequence.
*/
type seededSource struct {
	seed  int64
	draws uint64
	src   rand.Source64
}

func newSeededSource(seed int64) *seededSource {
	return &seededSource{
		seed: seed,
		src:  rand.NewSource(seed).(rand.Source64),
	}
}

//Rebuilds a source positioned after draws values
func restoreSeededSource(seed int64, draws uint64) *seededSource {
	s := newSeededSource(seed)
	for i := uint64(0); i < draws; i++ {
		s.src.Uint64()
	}
	s.draws = draws
	return s
}

func (s *seededSource) Int63() int64 {
	s.draws++
	return s.src.Int63()
}

func (s *seededSource) Uint64() uint64 {
	s.draws++
	return s.src.Uint64()
}

func (s *seededSource) Seed(seed int64) {
	s.seed = seed
	s.draws = 0
	s.src.Seed(seed)
}
