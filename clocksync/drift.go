package clocksync

import (
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DriftSimulator skews a local clock by random jumps so the
// synchronization protocol has something to correct. Demonstration
// aid only; safe for concurrent use.
type DriftSimulator struct {
	clock clockwork.Clock
	rng   *rand.Rand

	mu       sync.Mutex
	offsetMs float64
	maxDrift int64
}

// NewDriftSimulator builds a simulator that drifts up to maxDriftMs
// milliseconds per jump. A maxDriftMs of 0 never drifts, which makes
// the simulator a plain view of clock plus applied corrections.
func NewDriftSimulator(maxDriftMs int64, clock clockwork.Clock) *DriftSimulator {
	return &DriftSimulator{
		clock:    clock,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		maxDrift: maxDriftMs,
	}
}

// DriftedNow returns the local time in milliseconds, occasionally
// accumulating a new random drift first (30% of calls).
func (d *DriftSimulator) DriftedNow() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.maxDrift > 0 && d.rng.Float64() > 0.7 {
		d.offsetMs += float64(d.rng.Int63n(2*d.maxDrift+1) - d.maxDrift)
	}
	return d.clock.Now().UnixMilli() + int64(d.offsetMs)
}

// ApplyCorrection folds a measured offset into the simulated clock,
// pulling it back toward server time.
func (d *DriftSimulator) ApplyCorrection(offsetMs float64) {
	d.mu.Lock()
	d.offsetMs += offsetMs
	d.mu.Unlock()
}
