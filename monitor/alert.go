package monitor

import "strings"

// Alert is a deduplicated, stateful record tracking one ongoing issue across
// ticks. At most one active alert exists per (machine, derived metric) key.
type Alert struct {
	ID        string `json:"id"`
	MachineID string `json:"machineId"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Count     int    `json:"count"`

	// Timestamps are simulation seconds taken from snapshot timestamps.
	CreatedAt  float64 `json:"created_at"`
	Timestamp  float64 `json:"timestamp"`
	Resolved   bool    `json:"resolved"`
	ResolvedAt float64 `json:"resolved_at,omitempty"`

	// Filled asynchronously by oracle enrichment; may stay empty forever.
	SuggestedAction string `json:"suggested_action,omitempty"`
	RootCause       string `json:"root_cause,omitempty"`
}

// alertKey derives the dedup key for an anomaly: machine id plus the first
// whitespace token of the message, lowercased. The first token approximates
// the metric name; detector messages are written to keep that stable, but
// the scheme can collide or split across similarly-worded messages. That
// fragility is inherited behavior, kept as-is.
func alertKey(a Anomaly) string {
	first := a.Message
	if idx := strings.IndexByte(first, ' '); idx >= 0 {
		first = first[:idx]
	}
	return a.MachineID + "_" + strings.ToLower(first)
}

// criticalFailure reports whether the alert is a critical machine failure,
// which fast-tracks remediation even without an oracle suggestion.
func (a *Alert) criticalFailure() bool {
	return a.Severity == SeverityCritical && strings.Contains(strings.ToLower(a.Message), "machine failure")
}
