package sim

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

func TestPart_AddWear_ClampsAndStaysMonotonic(t *testing.T) {
	// GIVEN a fresh part
	p := &Part{Name: "Blade", WearRate: 0.001}

	// WHEN wear accumulates past the cap
	p.AddWear(0.4)
	p.AddWear(0.7)

	// THEN wear is clamped to 1.0
	assert.Equal(t, 1.0, p.Wear)
	assert.True(t, p.Broken())

	// AND negative deltas never reduce it
	p.AddWear(-0.5)
	assert.Equal(t, 1.0, p.Wear)
}

func TestCheckFailure_BrokenPartForcesFailure(t *testing.T) {
	// GIVEN a cutter whose blade has reached full wear
	cfg := DefaultConfig()
	c := NewCutter("L1-CUT-01", "L1", cfg, testRNG())
	c.parts[0].Wear = 1.0

	// WHEN the failure risk is evaluated
	failed, reason := c.checkFailure(c.readings(), testRNG())

	// THEN it fails regardless of metric values, naming the part
	require.True(t, failed)
	assert.Contains(t, reason, "Blade")
	assert.Contains(t, reason, "Wear 100%")
}

func TestCheckFailure_SkippedWhileDownOrUnderRepair(t *testing.T) {
	cfg := DefaultConfig()
	for _, status := range []Status{StatusWaitingRepair, StatusRepairing, StatusError} {
		// GIVEN a machine already down, even with a broken part
		c := NewCutter("L1-CUT-01", "L1", cfg, testRNG())
		c.parts[0].Wear = 1.0
		c.status = status

		// WHEN the failure risk is evaluated
		failed, reason := c.checkFailure(c.readings(), testRNG())

		// THEN no new failure is triggered
		assert.False(t, failed, "status %s", status)
		assert.Equal(t, "None", reason)
	}
}

func TestCheckFailure_HighMetricRaisesProbability(t *testing.T) {
	// GIVEN a cutter pinned at a temperature well past critical and a
	// certain-failure base chance
	cfg := DefaultConfig()
	cfg.Physics.FailureChanceBase = 0.009 // prob = base * (1 + risk*100) -> near 1 at ratio 1
	c := NewCutter("L1-CUT-01", "L1", cfg, testRNG())
	c.status = StatusRunning
	c.m.Temperature = 500.0

	// WHEN the risk is evaluated many times
	rng := testRNG()
	failures := 0
	var reason string
	for i := 0; i < 200; i++ {
		if failed, r := c.checkFailure(c.readings(), rng); failed {
			failures++
			reason = r
		}
	}

	// THEN failures occur and the recorded cause names the hot metric
	require.Greater(t, failures, 0)
	assert.True(t, strings.HasPrefix(reason, "temperature"), "reason %q", reason)
}

func TestMachineReset_RestoresSafeDefaults(t *testing.T) {
	// GIVEN a failed cutter with worn parts and hot metrics
	cfg := DefaultConfig()
	c := NewCutter("L1-CUT-01", "L1", cfg, testRNG())
	c.status = StatusError
	c.faultReason = "temperature (120.0 > 100.0)"
	c.parts[0].Wear = 0.9
	c.m.Temperature = 120.0
	c.m.Speed = 2800.0

	// WHEN it is reset
	c.Reset()

	// THEN it is idle, unfaulted, with new parts and baseline metrics
	assert.Equal(t, StatusIdle, c.Status())
	assert.Equal(t, "None", c.FaultReason())
	assert.Equal(t, 0.0, c.parts[0].Wear)
	assert.Equal(t, 25.0, c.Metrics().Temperature)
	assert.Equal(t, 0.0, c.Metrics().Speed)
}

func TestAdvanceProcessing_PullsAndFinishes(t *testing.T) {
	// GIVEN a running packer with one queued product
	cfg := DefaultConfig()
	p := NewPacker("L1-PAC-01", "L1", cfg, testRNG())
	p.status = StatusRunning
	prod := NewProduct("P-1", "Generic Unit", "ORD-1", 0)
	p.PushInput(prod)

	// WHEN the slot pulls the product
	finished, started := p.advanceProcessing(1.0, 1.0)
	require.Nil(t, finished)
	assert.True(t, started)
	assert.Equal(t, 0, p.InputLen())

	// AND the timer runs down
	finished, _ = p.advanceProcessing(1.0, 1.0)
	require.Nil(t, finished)
	finished, _ = p.advanceProcessing(1.0, 1.0)

	// THEN the product lands in the output buffer
	require.Equal(t, prod, finished)
	assert.Equal(t, []*Product{prod}, p.DrainOutput())
}

func TestAdvanceProcessing_StarvesOnEmptyInput(t *testing.T) {
	// GIVEN a running machine with nothing queued
	cfg := DefaultConfig()
	p := NewPacker("L1-PAC-01", "L1", cfg, testRNG())
	p.status = StatusRunning

	// WHEN it tries to pull work
	finished, started := p.advanceProcessing(1.0, 1.0)

	// THEN it starves
	assert.Nil(t, finished)
	assert.False(t, started)
	assert.Equal(t, StatusStarved, p.Status())
}

func TestThresholds_RandomizedWithinVariance(t *testing.T) {
	// GIVEN the default +/-10% variance
	cfg := DefaultConfig()

	// WHEN many cutters are built
	rng := testRNG()
	for i := 0; i < 50; i++ {
		c := NewCutter("C", "L1", cfg, rng)
		th := c.thresholds["temperature"]

		// THEN each critical threshold stays inside the band
		assert.InDelta(t, 100.0, th.Critical, 10.0+1e-9)
		assert.Greater(t, th.Critical, th.SafeMax)
	}
}

func TestSnapshot_ExportsGenericMetricView(t *testing.T) {
	// GIVEN a cutter with known metric values
	cfg := DefaultConfig()
	c := NewCutter("L1-CUT-01", "L1", cfg, testRNG())
	c.m.Temperature = 42.0
	c.parts[0].Wear = 0.25

	// WHEN it is snapshotted
	snap := c.Snapshot()

	// THEN the typed metrics appear under their wire names
	assert.Equal(t, "Cutter", snap.Type)
	assert.Equal(t, 42.0, snap.Metric("temperature"))
	assert.Equal(t, 0.25, snap.WearLevel)
	assert.Equal(t, 75.0, snap.HealthScore)
	require.Len(t, snap.Parts, 1)
	assert.Equal(t, "OK", snap.Parts[0].Status)
}
