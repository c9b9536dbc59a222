package ledger

import (
	"math/rand"
	"sync"
	"time"
)

// FaultPolicy decides whether the next simulated backend call fails.
type FaultPolicy interface {
	ShouldFail() bool
}

// RandomFaults fails a fixed fraction of calls.
type RandomFaults struct {
	Rate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomFaults(rate float64) *RandomFaults {
	return &RandomFaults{
		Rate: rate,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (f *RandomFaults) ShouldFail() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.Float64() < f.Rate
}

// ScriptedFaults replays a fixed outcome sequence, then always succeeds.
// Used by tests to control failure timing.
type ScriptedFaults struct {
	Outcomes []bool
	next     int
}

func (f *ScriptedFaults) ShouldFail() bool {
	if f.next >= len(f.Outcomes) {
		return false
	}
	fail := f.Outcomes[f.next]
	f.next++
	return fail
}

// NoFaults never fails.
type NoFaults struct{}

func (NoFaults) ShouldFail() bool { return false }
