// Package monitor watches factory snapshots, raises deduplicated alerts,
// and autonomously issues corrective commands back into the simulation.
//
// The Manager consumes one snapshot at a time; anomaly detection and alert
// bookkeeping are sequential. Oracle enrichment and the periodic autonomy
// cycle run as detached background tasks that report back over a result
// channel, and a result is applied only if its alert key still exists when
// it arrives.
package monitor

import (
	"fmt"
	"sort"

	"github.com/factory-sim/factory-sim/sim"
)

// Severity levels attached to anomalies and alerts.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Anomaly is a single stateless threshold violation detected from one
// machine snapshot. Anomalies are produced fresh each tick; the Manager
// turns persistent ones into alerts.
type Anomaly struct {
	MachineID string `json:"machine_id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
}

// MetricBand is a warning/critical pair for one monitored metric.
type MetricBand struct {
	Warning  float64
	Critical float64
}

// Detector evaluates machine snapshots against per-type metric bands. It is
// stateless: Detect depends only on its input.
type Detector struct {
	// bands maps machine type -> metric name -> band. Metric names match the
	// snapshot's generic metric keys.
	bands map[string]map[string]MetricBand
}

// NewDetector builds a detector with the standard monitoring bands. The
// bands sit above the machines' own (randomized) failure thresholds so
// warnings fire before the physics give out.
func NewDetector() *Detector {
	return &Detector{
		bands: map[string]map[string]MetricBand{
			string(sim.MachineCutter): {
				"temperature": {Warning: 95.0, Critical: 110.0},
				"vibration":   {Warning: 8.0, Critical: 12.0},
			},
			string(sim.MachineRobotArm): {
				"current": {Warning: 20.0, Critical: 25.0},
			},
			string(sim.MachinePacker): {
				"jam_rate": {Warning: 0.5, Critical: 0.8},
			},
		},
	}
}

// Detect returns every rule violation for one machine snapshot. Rules are
// independent; a machine may yield several anomalies per call. Machines that
// are waiting for repair or being repaired are skipped entirely.
//
// Each message deliberately starts with the metric (or condition) name: the
// Manager derives its dedup key from the first token.
func (d *Detector) Detect(m sim.MachineSnapshot) []Anomaly {
	switch m.Status {
	case string(sim.StatusWaitingRepair), string(sim.StatusRepairing):
		return nil
	}

	var out []Anomaly

	if m.Status == string(sim.StatusError) {
		out = append(out, Anomaly{
			MachineID: m.ID,
			Type:      "system_failure",
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("machine failure: status is %s (%s)", m.Status, m.LastFault),
		})
	}

	if m.WearLevel >= 1.0 {
		out = append(out, Anomaly{
			MachineID: m.ID,
			Type:      "part_failure",
			Severity:  SeverityCritical,
			Message:   fmt.Sprintf("wear critical: %.2f >= 1.0", m.WearLevel),
		})
	} else if m.WearLevel > 0.8 {
		out = append(out, Anomaly{
			MachineID: m.ID,
			Type:      "wear_warning",
			Severity:  SeverityWarning,
			Message:   fmt.Sprintf("wear high: %.2f > 0.8", m.WearLevel),
		})
	}

	metrics := make([]string, 0, len(d.bands[m.Type]))
	for metric := range d.bands[m.Type] {
		metrics = append(metrics, metric)
	}
	sort.Strings(metrics)
	for _, metric := range metrics {
		band := d.bands[m.Type][metric]
		val, ok := m.Metrics[metric]
		if !ok {
			continue
		}
		if val > band.Critical {
			out = append(out, Anomaly{
				MachineID: m.ID,
				Type:      "physics_violation",
				Severity:  SeverityCritical,
				Message:   fmt.Sprintf("%s critical: %.1f > %.1f", metric, val, band.Critical),
			})
		} else if val > band.Critical*0.85 {
			out = append(out, Anomaly{
				MachineID: m.ID,
				Type:      "pre_emptive_warning",
				Severity:  SeverityWarning,
				Message:   fmt.Sprintf("%s warning: %.1f approaching %.1f", metric, val, band.Critical),
			})
		}
	}

	return out
}
