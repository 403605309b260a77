package sim

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Status is the lifecycle state of a machine.
type Status string

const (
	StatusIdle          Status = "IDLE"
	StatusRunning       Status = "RUNNING"
	StatusStarved       Status = "STARVED"
	StatusError         Status = "ERROR"
	StatusWaitingRepair Status = "WAITING_FOR_REPAIR"
	StatusRepairing     Status = "REPAIRING"
)

// MachineType tags the closed set of machine variants.
type MachineType string

const (
	MachineCutter    MachineType = "Cutter"
	MachineConveyor  MachineType = "Conveyor"
	MachineRobotArm  MachineType = "RobotArm"
	MachineInspector MachineType = "Inspector"
	MachinePacker    MachineType = "Packer"
)

// Threshold is the randomized critical/safe band for one metric of one
// machine instance.
type Threshold struct {
	Critical float64
	SafeMax  float64
}

// metricReading pairs a metric name with its current value for the failure
// risk evaluation. Only metrics that have a critical threshold contribute.
type metricReading struct {
	name  string
	value float64
}

// Machine is the closed interface over the five concrete variants. Each
// variant owns its metrics as a typed struct; the generic string-keyed view
// exists only on the snapshot boundary.
type Machine interface {
	ID() string
	Name() string
	Type() MachineType
	LineID() string
	Status() Status
	SetStatus(Status)
	FaultReason() string
	Parts() []*Part
	MaxWear() float64
	InputLen() int
	Capacity() int
	PushInput(p *Product)
	DrainOutput() []*Product

	// Update advances physics, wear, failure risk and processing by dt
	// seconds, drawing noise from rng.
	Update(dt float64, rng *rand.Rand)

	// Reset restores safe defaults: idle status, zero part wear, metrics at
	// baseline. It unconditionally re-arms the machine for failure.
	Reset()

	// SetSpeed applies an absolute control setpoint; the value is interpreted
	// per variant (RPM, belt m/s, efficiency %).
	SetSpeed(value float64)

	// AdjustSpeed applies a relative setpoint delta, clamped per variant.
	AdjustSpeed(delta float64)

	Snapshot() MachineSnapshot
}

// machineBase carries the state and behavior shared by all variants: buffers,
// the processing slot, parts, randomized thresholds and the failure model.
type machineBase struct {
	id     string
	name   string
	typ    MachineType
	lineID string

	status      Status
	faultReason string

	parts      []*Part
	thresholds map[string]Threshold

	input      []*Product
	output     []*Product
	capacity   int
	processing *Product

	processTimer    float64
	processDuration float64

	cfg *Config
}

func newMachineBase(id, name string, typ MachineType, lineID string, capacity int, processDuration float64, cfg *Config, rng *rand.Rand) machineBase {
	b := machineBase{
		id:              id,
		name:            name,
		typ:             typ,
		lineID:          lineID,
		status:          StatusIdle,
		faultReason:     "None",
		thresholds:      make(map[string]Threshold),
		capacity:        capacity,
		processDuration: processDuration,
		cfg:             cfg,
	}
	for metric, spec := range cfg.Thresholds[typ] {
		// Each machine instance gets its own +/- variance band.
		factor := 1.0 - cfg.Physics.ThresholdVariance + rng.Float64()*2*cfg.Physics.ThresholdVariance
		safe := spec.SafeMax
		if safe == 0 {
			safe = spec.Critical * 0.8
		}
		b.thresholds[metric] = Threshold{
			Critical: spec.Critical * factor,
			SafeMax:  safe * factor,
		}
	}
	return b
}

func (b *machineBase) ID() string        { return b.id }
func (b *machineBase) Name() string      { return b.name }
func (b *machineBase) Type() MachineType { return b.typ }
func (b *machineBase) LineID() string    { return b.lineID }
func (b *machineBase) Status() Status    { return b.status }
func (b *machineBase) SetStatus(s Status) {
	b.status = s
}
func (b *machineBase) FaultReason() string { return b.faultReason }
func (b *machineBase) Parts() []*Part      { return b.parts }
func (b *machineBase) InputLen() int       { return len(b.input) }
func (b *machineBase) Capacity() int       { return b.capacity }

func (b *machineBase) PushInput(p *Product) {
	b.input = append(b.input, p)
}

// DrainOutput removes and returns everything in the output buffer, in FIFO
// order.
func (b *machineBase) DrainOutput() []*Product {
	out := b.output
	b.output = nil
	return out
}

// MaxWear returns the highest part wear, 0 for machines without parts.
func (b *machineBase) MaxWear() float64 {
	max := 0.0
	for _, p := range b.parts {
		if p.Wear > max {
			max = p.Wear
		}
	}
	return max
}

// checkFailure runs the common failure-risk evaluation. For each reading with
// a critical threshold the ratio value/critical (clamped to 1) contributes
// ratio^E to accumulated risk; the single highest ratio above 0.8 is recorded
// as the primary cause. A part at full wear forces failure regardless of the
// metric risk. Skipped entirely while the machine is down or under repair.
func (b *machineBase) checkFailure(readings []metricReading, rng *rand.Rand) (bool, string) {
	switch b.status {
	case StatusWaitingRepair, StatusRepairing, StatusError:
		return false, "None"
	}

	riskAccumulated := 0.0
	primaryCause := "Unknown"
	maxRisk := 0.0

	for _, r := range readings {
		th, ok := b.thresholds[r.name]
		if !ok || th.Critical == 0 {
			continue
		}
		ratio := r.value / th.Critical
		if ratio > 0.8 && ratio > maxRisk {
			maxRisk = ratio
			primaryCause = fmt.Sprintf("%s (%.1f > %.1f)", r.name, r.value, th.Critical)
		}
		if ratio > 1.0 {
			ratio = 1.0
		}
		riskAccumulated += math.Pow(ratio, b.cfg.Physics.FailureExponent)
	}

	for _, p := range b.parts {
		if p.Broken() {
			return true, fmt.Sprintf("%s Failure (Wear 100%%)", p.Name)
		}
	}

	prob := b.cfg.Physics.FailureChanceBase * (1 + riskAccumulated*100)
	if rng.Float64() < prob {
		logrus.Debugf("machine %s failed: %s (prob=%.6f, risk=%.4f)", b.id, primaryCause, prob, riskAccumulated)
		return true, primaryCause
	}
	return false, "None"
}

// fail transitions the machine to ERROR with the recorded cause.
func (b *machineBase) fail(reason string) {
	b.status = StatusError
	b.faultReason = reason
	logrus.Infof("machine %s entered ERROR: %s", b.id, reason)
}

// advanceProcessing moves the in-flight product by dt scaled with the
// variant's control factor. When the slot frees it pulls the next product
// from the input buffer; with nothing to pull the machine starves.
// Returns the finished product (if one completed this tick) and whether a
// new product was just pulled into the slot.
func (b *machineBase) advanceProcessing(dt, speedFactor float64) (finished *Product, started bool) {
	if b.processing != nil {
		b.processTimer -= dt * speedFactor
		if b.processTimer <= 0 {
			finished = b.processing
			b.processing = nil
			b.output = append(b.output, finished)
		}
		return finished, false
	}
	if len(b.input) > 0 {
		b.processing = b.input[0]
		b.input = b.input[1:]
		b.processTimer = b.processDuration
		return nil, true
	}
	b.status = StatusStarved
	return nil, false
}

// wakeIfFed transitions an idle or starved machine back to RUNNING once work
// is waiting.
func (b *machineBase) wakeIfFed() {
	if len(b.input) > 0 {
		b.status = StatusRunning
	}
}

// resetCommon restores the shared safe defaults. Buffered products are kept
// so work in flight is not lost across a repair.
func (b *machineBase) resetCommon() {
	b.status = StatusIdle
	b.faultReason = "None"
	for _, p := range b.parts {
		p.Wear = 0.0
	}
}

// snapshotWith builds the generic wire view around the variant's metric map.
func (b *machineBase) snapshotWith(metrics map[string]float64) MachineSnapshot {
	maxWear := b.MaxWear()
	parts := make([]PartSnapshot, len(b.parts))
	for i, p := range b.parts {
		parts[i] = p.Snapshot()
	}
	inProcess := 0
	if b.processing != nil {
		inProcess = 1
	}
	return MachineSnapshot{
		ID:          b.id,
		Name:        b.name,
		Type:        string(b.typ),
		Status:      string(b.status),
		LastFault:   b.faultReason,
		HealthScore: 100.0 * (1.0 - maxWear),
		Metrics:     metrics,
		InputCount:  len(b.input),
		OutputCount: len(b.output),
		Processing:  inProcess,
		WearLevel:   maxWear,
		Parts:       parts,
	}
}
