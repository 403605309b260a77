package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/factory-sim/factory-sim/sim"
)

// Lifecycle timing, in simulation seconds (snapshot timestamps).
const (
	// GracePeriod suppresses anomaly detection for a machine after any
	// command was sent to it, so remediation can take effect without
	// flapping alerts.
	GracePeriod = 5.0

	// AutoResolveDelay is how long an alert must age before the Manager
	// remediates it on its own.
	AutoResolveDelay = 15.0

	// ResolvedRetention keeps resolved alerts visible in the active map so
	// observers see the resolution before it disappears.
	ResolvedRetention = 10.0

	// AutonomyInterval paces the periodic whole-facility oracle check.
	AutonomyInterval = 10.0

	// SinkCleanupInterval and SinkRetention pace the event store purge.
	SinkCleanupInterval = 3600.0
	SinkRetention       = 30 * 24 * 3600.0
)

// CommandSender delivers one control command toward the simulation. Sends
// are fire-and-forget: a failure is logged and the caller proceeds.
type CommandSender func(machineID, command string) error

// EventSink is the append-only persistence boundary for alert events.
type EventSink interface {
	Append(ctx context.Context, e SinkEvent) error
	PruneBefore(ctx context.Context, cutoff float64) error
}

// SinkEvent is one persisted alert-creation record.
type SinkEvent struct {
	MachineID string
	Type      string
	Severity  string
	Message   string
	Details   string
	Timestamp float64
}

// ActionRecord is one entry in the autonomy audit log.
type ActionRecord struct {
	Timestamp float64 `json:"timestamp"`
	MachineID string  `json:"machine_id"`
	Command   string  `json:"command"`
	Reason    string  `json:"reason"`
}

// enrichmentResult carries an oracle analysis back to the sequential loop.
type enrichmentResult struct {
	key      string
	analysis Analysis
}

// autonomyResult carries an autonomy decision back to the sequential loop.
type autonomyResult struct {
	decision AutonomyDecision
}

// Manager owns the alert map exclusively. It consumes snapshots one at a
// time; detached oracle tasks feed results back through channels, and a
// result is applied only if its alert key still exists on arrival. The
// Manager never mutates factory state directly, only through the sender.
type Manager struct {
	detector *Detector
	oracle   Oracle        // nil disables enrichment and autonomy
	sender   CommandSender // nil drops commands
	sink     EventSink     // nil disables persistence

	alerts      map[string]*Alert
	lastCommand map[string]float64 // machine id -> sim time of last command
	history     []ActionRecord

	now          float64 // latest snapshot timestamp seen
	lastAutonomy float64
	lastCleanup  float64

	enrichments chan enrichmentResult
	autonomy    chan autonomyResult
}

// NewManager wires a Manager. Any of oracle, sender and sink may be nil.
func NewManager(oracle Oracle, sender CommandSender, sink EventSink) *Manager {
	return &Manager{
		detector:    NewDetector(),
		oracle:      oracle,
		sender:      sender,
		sink:        sink,
		alerts:      make(map[string]*Alert),
		lastCommand: make(map[string]float64),
		enrichments: make(chan enrichmentResult, 64),
		autonomy:    make(chan autonomyResult, 8),
	}
}

// Run consumes snapshots until the channel closes or the context is
// cancelled. In-flight background tasks are abandoned on shutdown; their
// late results are discarded by the key-still-exists rule (or never read).
func (m *Manager) Run(ctx context.Context, snapshots <-chan sim.Snapshot) {
	logrus.Info("monitoring loop started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("monitoring loop stopped")
			return
		case res := <-m.enrichments:
			m.applyEnrichment(res)
		case res := <-m.autonomy:
			m.applyAutonomy(res)
		case snap, ok := <-snapshots:
			if !ok {
				logrus.Info("snapshot stream closed")
				return
			}
			m.Process(snap)
		}
	}
}

// Process runs one full monitoring pass over a snapshot: detection with
// grace suppression, alert bookkeeping, auto-resolution, retention cleanup,
// and the periodic autonomy and purge cycles. It must not be called
// concurrently with itself.
func (m *Manager) Process(snap sim.Snapshot) {
	m.now = snap.Timestamp

	for _, line := range snap.Lines {
		for _, machine := range line.Machines {
			if m.now-m.lastCommandAt(machine.ID) < GracePeriod {
				// Machine is still reacting to a command; ignore it.
				continue
			}
			for _, anomaly := range m.detector.Detect(machine) {
				m.ingest(anomaly)
			}
		}
	}

	m.sweep()
	m.maybeAutonomy(snap)
	m.maybeCleanup()
}

func (m *Manager) lastCommandAt(machineID string) float64 {
	if t, ok := m.lastCommand[machineID]; ok {
		return t
	}
	return -GracePeriod // never commanded: no suppression
}

// ingest folds one anomaly into the alert map: create, bump, or reactivate.
func (m *Manager) ingest(a Anomaly) {
	key := alertKey(a)

	if alert, ok := m.alerts[key]; ok {
		if alert.Resolved {
			// The issue came back after resolution: reactivate and restart
			// the auto-resolve timer.
			alert.Resolved = false
			alert.ResolvedAt = 0
			alert.Count++
			alert.Timestamp = m.now
			alert.CreatedAt = m.now
		} else {
			alert.Count++
			alert.Timestamp = m.now
		}
		alert.Message = a.Message
		return
	}

	alert := &Alert{
		ID:        uuid.NewString(),
		MachineID: a.MachineID,
		Type:      "system",
		Severity:  strings.ToLower(a.Severity),
		Message:   a.Message,
		Count:     1,
		CreatedAt: m.now,
		Timestamp: m.now,
	}
	m.alerts[key] = alert
	logrus.Warnf("new alert %s [%s] %s", alert.ID, alert.Severity, alert.Message)

	switch alert.Severity {
	case SeverityWarning, "high", SeverityCritical:
		m.enrich(a, key)
	}

	if m.sink != nil {
		err := m.sink.Append(context.Background(), SinkEvent{
			MachineID: a.MachineID,
			Type:      a.Type,
			Severity:  a.Severity,
			Message:   a.Message,
			Timestamp: m.now,
		})
		if err != nil {
			// Persistence failures never interrupt the pass.
			logrus.Errorf("event sink append: %v", err)
		}
	}
}

// enrich launches the detached oracle analysis for a new alert. An oracle
// failure means the enrichment fields stay unset.
func (m *Manager) enrich(a Anomaly, key string) {
	if m.oracle == nil {
		return
	}
	go func() {
		analysis, err := m.oracle.AnalyzeAnomaly(context.Background(), a)
		if err != nil {
			logrus.Warnf("oracle analysis for %s failed: %v", key, err)
			return
		}
		select {
		case m.enrichments <- enrichmentResult{key: key, analysis: analysis}:
		default:
			logrus.Warnf("enrichment queue full, dropping result for %s", key)
		}
	}()
}

// applyEnrichment applies an oracle analysis if the alert key still exists;
// results for vanished alerts are discarded.
func (m *Manager) applyEnrichment(res enrichmentResult) {
	alert, ok := m.alerts[res.key]
	if !ok {
		logrus.Debugf("discarding enrichment for vanished alert %s", res.key)
		return
	}
	alert.SuggestedAction = res.analysis.SuggestedAction
	alert.RootCause = res.analysis.RootCause
	logrus.Infof("alert %s enriched: %s", alert.ID, alert.SuggestedAction)
}

// sweep ages the alert map: resolved alerts past retention are removed, and
// stale unresolved alerts with a suggestion (or fast-tracked critical
// failures) are remediated.
func (m *Manager) sweep() {
	for key, alert := range m.alerts {
		if alert.Resolved {
			if m.now-alert.ResolvedAt > ResolvedRetention {
				delete(m.alerts, key)
			}
			continue
		}

		hasSuggestion := alert.SuggestedAction != ""
		critFailure := alert.criticalFailure()
		if !hasSuggestion && !critFailure {
			continue
		}
		if m.now-alert.CreatedAt <= AutoResolveDelay {
			continue
		}

		action := strings.ToLower(alert.SuggestedAction)
		if critFailure && !hasSuggestion {
			action = "emergency reset"
		}
		logrus.Infof("alert %s (%s) is stale, taking action: %s", alert.ID, alert.Severity, action)

		if strings.Contains(action, "ignore") && !critFailure {
			m.resolve(alert, " (Auto-Ignored)")
			continue
		}

		command := deriveCommand(action, strings.ToLower(alert.Message), critFailure)
		if command == "" {
			logrus.Warnf("suggestion %q has no command mapping", action)
			continue
		}
		m.sendCommand(alert.MachineID, command)
		m.resolve(alert, " (Auto-Executed)")
	}
}

// resolve marks the alert resolved now and appends a one-time suffix to the
// suggestion so observers can tell how it was closed.
func (m *Manager) resolve(alert *Alert, suffix string) {
	alert.Resolved = true
	alert.ResolvedAt = m.now
	if !strings.Contains(alert.SuggestedAction, strings.TrimSpace(suffix)) {
		alert.SuggestedAction += suffix
	}
}

// deriveCommand maps a suggested action and the original alert message to a
// concrete command, by ordered keyword matching. An empty return means no
// mapping exists.
func deriveCommand(action, message string, critFailure bool) string {
	switch {
	case critFailure, strings.Contains(action, "reset"), strings.Contains(message, "machine failure"):
		return "reset"
	case strings.Contains(action, "stop"), strings.Contains(action, "halt"):
		return "stop"
	case strings.Contains(message, "temperature"):
		return "set_speed:500" // overheating: cut speed hard
	case strings.Contains(message, "vibration"):
		return "set_speed:1500"
	case strings.Contains(message, "current"), strings.Contains(message, "load"):
		return "set_speed:1000"
	case strings.Contains(message, "wear"):
		return "set_speed:1000" // slowing down delays the failure until service
	case strings.Contains(action, "slow"), strings.Contains(action, "speed"):
		return "set_speed:1200"
	case strings.Contains(action, "maintenance"):
		return "set_speed:1000"
	}
	return ""
}

// sendCommand forwards a command to the simulation and refreshes the
// machine's grace-period marker.
func (m *Manager) sendCommand(machineID, command string) {
	if m.sender != nil {
		if err := m.sender(machineID, command); err != nil {
			// Fire-and-forget: the simulation being unreachable is a
			// transport concern, not ours.
			logrus.Errorf("command send %s -> %s failed: %v", machineID, command, err)
		}
	}
	m.lastCommand[machineID] = m.now
}

// maybeAutonomy kicks off the periodic whole-facility oracle check.
func (m *Manager) maybeAutonomy(snap sim.Snapshot) {
	if m.oracle == nil || m.now-m.lastAutonomy <= AutonomyInterval {
		return
	}
	m.lastAutonomy = m.now
	actx := m.buildContext(snap)

	go func() {
		decision, err := m.oracle.EvaluateAutonomy(context.Background(), actx)
		if err != nil {
			// Unreachable or unparsable oracle means no action needed.
			logrus.Warnf("autonomy cycle failed: %v", err)
			return
		}
		select {
		case m.autonomy <- autonomyResult{decision: decision}:
		default:
			logrus.Warn("autonomy queue full, dropping decision")
		}
	}()
}

// buildContext condenses a snapshot into the compact view the oracle sees.
func (m *Manager) buildContext(snap sim.Snapshot) AutonomyContext {
	actx := AutonomyContext{
		PendingOrders: m.countPending(snap),
		Cash:          snap.Financials.Cash,
	}
	for _, line := range snap.Lines {
		for _, machine := range line.Machines {
			actx.Machines = append(actx.Machines, MachineSummary{
				ID:         machine.ID,
				Status:     machine.Status,
				Temp:       machine.Metric("temperature"),
				Speed:      machine.Metric("speed"),
				Efficiency: machine.Metric("efficiency"),
				Wear:       machine.WearLevel,
			})
		}
	}
	return actx
}

// Chat relays a free-form operator message to the oracle with current
// facility context, executes any machine actions the reply carries, and
// returns the reply text. Like Process, it must be called from the owning
// loop, not concurrently with it.
func (m *Manager) Chat(ctx context.Context, message string, snap sim.Snapshot) (ChatReply, error) {
	if m.oracle == nil {
		return ChatReply{Response: "Assistant unavailable"}, nil
	}
	reply, err := m.oracle.Chat(ctx, message, m.buildContext(snap))
	if err != nil {
		return reply, err
	}
	for _, action := range reply.Actions {
		command := chatCommand(action)
		if command == "" || action.MachineID == "" {
			continue
		}
		logrus.Infof("chat action: %s on %s", command, action.MachineID)
		m.sendCommand(action.MachineID, command)
		m.history = append(m.history, ActionRecord{
			Timestamp: m.now,
			MachineID: action.MachineID,
			Command:   command,
			Reason:    "operator chat",
		})
	}
	return reply, nil
}

// chatCommand translates a typed chat action into the command grammar.
func chatCommand(a ChatAction) string {
	switch strings.ToUpper(a.Type) {
	case "SET_SPEED":
		return fmt.Sprintf("set_speed:%g", a.Value)
	case "ADJUST_SPEED":
		return fmt.Sprintf("adjust_speed:%g", a.Value)
	case "START":
		return "start"
	case "STOP":
		return "stop"
	case "RESET":
		return "reset"
	case "MAINTENANCE":
		return "maintenance"
	}
	return ""
}

func (m *Manager) countPending(snap sim.Snapshot) int {
	n := 0
	for _, o := range snap.Orders {
		if o.Status != string(sim.OrderReady) {
			n++
		}
	}
	return n
}

// applyAutonomy executes an autonomy decision: each returned action is sent
// through the command channel and recorded in the audit log.
func (m *Manager) applyAutonomy(res autonomyResult) {
	if !res.decision.ActionNeeded {
		return
	}
	for _, action := range res.decision.Actions {
		if action.Command == "" || action.MachineID == "" {
			continue
		}
		logrus.Infof("autonomy action: %s on %s (%s)", action.Command, action.MachineID, action.Reason)
		m.sendCommand(action.MachineID, action.Command)
		m.history = append(m.history, ActionRecord{
			Timestamp: m.now,
			MachineID: action.MachineID,
			Command:   action.Command,
			Reason:    action.Reason,
		})
	}
}

// maybeCleanup paces the event store purge.
func (m *Manager) maybeCleanup() {
	if m.sink == nil || m.now-m.lastCleanup <= SinkCleanupInterval {
		return
	}
	m.lastCleanup = m.now
	cutoff := m.now - SinkRetention
	sink := m.sink
	go func() {
		if err := sink.PruneBefore(context.Background(), cutoff); err != nil {
			logrus.Errorf("event sink prune: %v", err)
		}
	}()
}

// ActiveAlerts returns a copy of the active alert map (resolved alerts
// inside their retention window included), ordered by creation time.
func (m *Manager) ActiveAlerts() []Alert {
	out := make([]Alert, 0, len(m.alerts))
	for _, a := range m.alerts {
		out = append(out, *a)
	}
	sortAlerts(out)
	return out
}

// ActionHistory returns a copy of the autonomy audit log.
func (m *Manager) ActionHistory() []ActionRecord {
	out := make([]ActionRecord, len(m.history))
	copy(out, m.history)
	return out
}

// Reset wipes all monitoring state; used alongside a SYSTEM factory reset.
func (m *Manager) Reset() {
	m.alerts = make(map[string]*Alert)
	m.lastCommand = make(map[string]float64)
	m.history = nil
}

// sortAlerts gives observers and tests a stable order: creation time, then id.
func sortAlerts(alerts []Alert) {
	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].CreatedAt != alerts[j].CreatedAt {
			return alerts[i].CreatedAt < alerts[j].CreatedAt
		}
		return alerts[i].ID < alerts[j].ID
	})
}
