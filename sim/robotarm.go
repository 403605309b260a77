package sim

import "math/rand"

const (
	robotArmProcessSeconds = 3.0
	robotArmBaseEfficiency = 80.0 // efficiency value that yields 1.0x throughput
	robotArmMinEfficiency  = 50.0
	robotArmMaxEfficiency  = 300.0
)

// RobotArmMetrics is the typed metric schema of a RobotArm.
type RobotArmMetrics struct {
	Load       float64 // mechanical load index; jumps while handling an item
	Current    float64 // servo current, amps
	Efficiency float64 // throughput setting, percent
	Cycles     float64 // completed pick-and-place cycles
}

// RobotArm handles items between stations. Load and current jump while an
// item is in the gripper, and wear accelerates under load.
type RobotArm struct {
	machineBase
	m RobotArmMetrics
}

// NewRobotArm builds a robot arm at nominal efficiency.
func NewRobotArm(id, lineID string, cfg *Config, rng *rand.Rand) *RobotArm {
	r := &RobotArm{
		machineBase: newMachineBase(id, "Robot Arm", MachineRobotArm, lineID, 5, robotArmProcessSeconds, cfg, rng),
		m:           RobotArmMetrics{Efficiency: 100.0},
	}
	r.parts = []*Part{
		{Name: "Servos", WearRate: 0.0001},
		{Name: "Gripper", WearRate: 0.0003},
	}
	return r
}

func (r *RobotArm) Update(dt float64, rng *rand.Rand) {
	switch r.status {
	case StatusRunning:
		if r.processing != nil {
			r.m.Load = 8.0
			r.m.Current = 12.5 + (rng.Float64()-0.5)
			for _, p := range r.parts {
				p.AddWear(p.WearRate * 1.5 * dt)
			}
		} else {
			r.m.Load = 2.0
			r.m.Current = 2.0 + (rng.Float64()-0.5)*0.2
		}

		if failed, reason := r.checkFailure(r.readings(), rng); failed {
			r.fail(reason)
			return
		}

		finished, started := r.advanceProcessing(dt, r.m.Efficiency/robotArmBaseEfficiency)
		if finished != nil {
			r.m.Cycles++
		}
		if started {
			// Servo tuning drifts a little with every fresh grip.
			r.m.Efficiency = 100.0 + float64(rng.Intn(11)-5)
		}

	case StatusIdle, StatusStarved:
		r.wakeIfFed()
	}
}

func (r *RobotArm) Reset() {
	r.resetCommon()
	r.m.Load = 0
	r.m.Current = 0
}

// SetSpeed maps the generic setpoint onto efficiency percent (1:10).
func (r *RobotArm) SetSpeed(value float64) {
	r.m.Efficiency = value / 10.0
}

func (r *RobotArm) AdjustSpeed(delta float64) {
	r.m.Efficiency = clampf(r.m.Efficiency+delta, robotArmMinEfficiency, robotArmMaxEfficiency)
}

func (r *RobotArm) readings() []metricReading {
	return []metricReading{{"current", r.m.Current}}
}

// Metrics returns the typed metric view.
func (r *RobotArm) Metrics() RobotArmMetrics { return r.m }

func (r *RobotArm) Snapshot() MachineSnapshot {
	return r.snapshotWith(map[string]float64{
		"load":       r.m.Load,
		"current":    r.m.Current,
		"efficiency": r.m.Efficiency,
		"cycles":     r.m.Cycles,
	})
}
