package benchmark

import (
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/brunobiangulo/modelarena/llm"
)

// Rand is the randomness used for model-pair sampling and blind-test
// position shuffling. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Perm(n int) []int
}

// NewRand returns a goroutine-safe Rand seeded with seed.
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func newClockRand() Rand {
	return NewRand(uint64(time.Now().UnixNano()))
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}

// choosePair picks two distinct models uniformly at random, keeping their
// request order. With exactly two models no randomness is consumed.
func choosePair(r Rand, models []llm.Endpoint) [2]llm.Endpoint {
	if len(models) == 2 {
		return [2]llm.Endpoint{models[0], models[1]}
	}
	idx := r.Perm(len(models))[:2]
	slices.Sort(idx)
	return [2]llm.Endpoint{models[idx[0]], models[idx[1]]}
}
