package clocksync

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestDriftSimulator_NoDrift(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sim := NewDriftSimulator(0, clock)

	now := clock.Now().UnixMilli()
	assert.Equal(t, now, sim.DriftedNow())

	sim.ApplyCorrection(250)
	assert.Equal(t, now+250, sim.DriftedNow())

	sim.ApplyCorrection(-100.5)
	assert.Equal(t, now+149, sim.DriftedNow())
}

func TestDriftSimulator_DriftStaysBounded(t *testing.T) {
	const maxDrift = 2000

	clock := clockwork.NewFakeClock()
	sim := NewDriftSimulator(maxDrift, clock)
	now := clock.Now().UnixMilli()

	for i := 1; i <= 100; i++ {
		got := sim.DriftedNow()
		diff := got - now
		if diff < 0 {
			diff = -diff
		}
		// at most one jump of up to maxDrift per call
		assert.LessOrEqual(t, diff, int64(i)*maxDrift)
	}
}

func TestDriftSimulator_CorrectionFollowsClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sim := NewDriftSimulator(0, clock)

	sim.ApplyCorrection(1000)
	clock.Advance(3 * time.Second)

	assert.Equal(t, clock.Now().UnixMilli()+1000, sim.DriftedNow())
}
