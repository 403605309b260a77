package sim

import "math/rand"

const (
	conveyorBaseSpeed      = 0.8 // belt m/s at zero load
	conveyorMinTarget      = 0.5
	conveyorMaxTarget      = 5.0
	conveyorProcessSeconds = 5.0
)

// ConveyorMetrics is the typed metric schema of a Conveyor.
type ConveyorMetrics struct {
	TargetSpeed float64 // commanded belt speed, m/s
	Speed       float64 // actual belt speed after load friction and jitter
	Load        float64 // items queued plus the item in transit
	LoadCount   float64 // items transported since start
}

// Conveyor carries items between stations. Load slows the belt and
// accelerates belt/motor wear through a clamped load factor.
type Conveyor struct {
	machineBase
	m ConveyorMetrics
}

// NewConveyor builds a conveyor with a larger buffer than the other stations.
func NewConveyor(id, lineID string, cfg *Config, rng *rand.Rand) *Conveyor {
	c := &Conveyor{
		machineBase: newMachineBase(id, "Conveyor", MachineConveyor, lineID, 10, conveyorProcessSeconds, cfg, rng),
		m:           ConveyorMetrics{TargetSpeed: conveyorBaseSpeed},
	}
	c.parts = []*Part{
		{Name: "Belt", WearRate: 0.0001},
		{Name: "Motor", WearRate: 0.00005},
	}
	return c
}

func (c *Conveyor) Update(dt float64, rng *rand.Rand) {
	switch c.status {
	case StatusRunning:
		load := float64(len(c.input))
		if c.processing != nil {
			load++
		}
		c.m.Load = load

		jitter := -0.02 + rng.Float64()*0.04
		c.m.Speed = maxf(0.5, c.m.TargetSpeed-load*0.05+jitter)

		// Heavier belts wear faster, up to a hard cap.
		loadFactor := minf(3.0, 1.0+load*0.1)
		for _, p := range c.parts {
			p.AddWear(p.WearRate * dt * loadFactor)
		}

		if failed, reason := c.checkFailure(c.readings(), rng); failed {
			c.fail(reason)
			return
		}

		finished, _ := c.advanceProcessing(dt, maxf(0.1, c.m.Speed/conveyorBaseSpeed))
		if finished != nil {
			c.m.LoadCount++
		}

	case StatusIdle, StatusStarved:
		c.m.Speed = 0
		c.wakeIfFed()

	default:
		c.m.Speed = 0
	}
}

func (c *Conveyor) Reset() {
	c.resetCommon()
	c.m.Speed = 0
	c.m.Load = 0
}

// SetSpeed interprets the generic setpoint (nominally RPM-scaled) as a belt
// speed via the fixed 1:800 mapping the control grammar uses.
func (c *Conveyor) SetSpeed(value float64) {
	c.m.TargetSpeed = value / 800.0
}

func (c *Conveyor) AdjustSpeed(delta float64) {
	c.m.TargetSpeed = clampf(c.m.TargetSpeed+delta, conveyorMinTarget, conveyorMaxTarget)
}

func (c *Conveyor) readings() []metricReading {
	return []metricReading{{"speed", c.m.Speed}}
}

// Metrics returns the typed metric view.
func (c *Conveyor) Metrics() ConveyorMetrics { return c.m }

func (c *Conveyor) Snapshot() MachineSnapshot {
	return c.snapshotWith(map[string]float64{
		"target_speed": c.m.TargetSpeed,
		"speed":        c.m.Speed,
		"load":         c.m.Load,
		"load_count":   c.m.LoadCount,
	})
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
