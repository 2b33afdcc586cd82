package session

import (
	"math/rand/v2"
	"time"
)

// Generator yields uniform random slot indices, independent draws with
// replacement. One draw is consumed per round.
type Generator struct {
	slots int
	r     *rand.Rand
}

// NewGenerator returns a generator over [0, slots) seeded from the clock.
func NewGenerator(slots int) *Generator {
	return NewSeededGenerator(slots, uint64(time.Now().UnixNano()))
}

// NewSeededGenerator returns a deterministic generator for tests.
func NewSeededGenerator(slots int, seed uint64) *Generator {
	if slots <= 0 {
		slots = DefaultConfig().Slots
	}
	return &Generator{slots: slots, r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Next returns the next slot index.
func (g *Generator) Next() int { return g.r.IntN(g.slots) }
