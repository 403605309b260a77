package monitor

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/factory-sim/factory-sim/sim"
)

func cutterSnap(status string, metrics map[string]float64, wear float64) sim.MachineSnapshot {
	return sim.MachineSnapshot{
		ID:        "L1-CUT-01",
		Name:      "Cutter",
		Type:      string(sim.MachineCutter),
		Status:    status,
		LastFault: "None",
		Metrics:   metrics,
		WearLevel: wear,
	}
}

func TestDetect_HealthyMachineIsQuiet(t *testing.T) {
	d := NewDetector()
	m := cutterSnap("RUNNING", map[string]float64{"temperature": 60.0, "vibration": 2.0}, 0.1)
	assert.Empty(t, d.Detect(m))
}

func TestDetect_SkipsMachinesUnderRepair(t *testing.T) {
	// GIVEN a machine that would violate every rule
	d := NewDetector()
	hot := map[string]float64{"temperature": 200.0, "vibration": 50.0}

	// WHEN it is waiting for or undergoing repair
	for _, status := range []string{"WAITING_FOR_REPAIR", "REPAIRING"} {
		m := cutterSnap(status, hot, 1.0)

		// THEN no anomalies fire
		assert.Empty(t, d.Detect(m), "status %s", status)
	}
}

func TestDetect_ErrorStatusIsCriticalFailure(t *testing.T) {
	// GIVEN a failed machine
	d := NewDetector()
	m := cutterSnap("ERROR", map[string]float64{"temperature": 60.0}, 0.1)
	m.LastFault = "temperature (120.3 > 100.0)"

	// WHEN detected
	out := d.Detect(m)

	// THEN one critical system failure carries the fault cause
	require.Len(t, out, 1)
	assert.Equal(t, "system_failure", out[0].Type)
	assert.Equal(t, SeverityCritical, out[0].Severity)
	assert.Equal(t, "machine failure: status is ERROR (temperature (120.3 > 100.0))", out[0].Message)
}

func TestDetect_WearBands(t *testing.T) {
	d := NewDetector()

	// GIVEN wear just over the warning band
	warn := d.Detect(cutterSnap("RUNNING", nil, 0.85))
	require.Len(t, warn, 1)
	assert.Equal(t, "wear_warning", warn[0].Type)
	assert.Equal(t, SeverityWarning, warn[0].Severity)

	// AND wear at the hard limit
	crit := d.Detect(cutterSnap("RUNNING", nil, 1.0))
	require.Len(t, crit, 1)
	assert.Equal(t, "part_failure", crit[0].Type)
	assert.Equal(t, SeverityCritical, crit[0].Severity)

	// AND wear at exactly the warning boundary stays quiet
	assert.Empty(t, d.Detect(cutterSnap("RUNNING", nil, 0.8)))
}

func TestDetect_MetricBandsFireWarningThenCritical(t *testing.T) {
	d := NewDetector()

	// GIVEN temperature inside the pre-emptive band (85% of critical)
	warn := d.Detect(cutterSnap("RUNNING", map[string]float64{"temperature": 100.0}, 0))
	require.Len(t, warn, 1)
	assert.Equal(t, "pre_emptive_warning", warn[0].Type)
	assert.Equal(t, "temperature warning: 100.0 approaching 110.0", warn[0].Message)

	// AND temperature past critical
	crit := d.Detect(cutterSnap("RUNNING", map[string]float64{"temperature": 115.0}, 0))
	require.Len(t, crit, 1)
	assert.Equal(t, "physics_violation", crit[0].Type)
	assert.Equal(t, "temperature critical: 115.0 > 110.0", crit[0].Message)
}

func TestDetect_UnmonitoredTypesAndMetricsAreIgnored(t *testing.T) {
	d := NewDetector()

	// GIVEN a conveyor (no bands configured) with wild metrics
	m := sim.MachineSnapshot{
		ID:      "L1-CON-01",
		Type:    string(sim.MachineConveyor),
		Status:  "RUNNING",
		Metrics: map[string]float64{"speed": 99.0, "load": 500.0},
	}
	assert.Empty(t, d.Detect(m))
}

func TestDetect_MultipleViolationsReportTogether(t *testing.T) {
	// GIVEN a cutter violating wear, temperature and vibration rules at once
	d := NewDetector()
	m := cutterSnap("RUNNING", map[string]float64{
		"temperature": 112.3,
		"vibration":   10.5,
	}, 0.85)

	// WHEN detected
	out := d.Detect(m)
	require.Len(t, out, 3)

	// THEN the report matches, stable across runs: wear first, then metrics
	// in name order
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	require.NoError(t, enc.Encode(out))

	g := goldie.New(t)
	g.Assert(t, "cutter_anomalies", buf.Bytes())
}
