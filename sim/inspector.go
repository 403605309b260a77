package sim

import "math/rand"

const (
	inspectorProcessSeconds = 2.0
	inspectorBaseSpeed      = 100.0 // inspection speed that yields 1.0x throughput
	inspectorDefectChance   = 0.05  // probability a completed item is marked scrap
	inspectorMinSpeed       = 50.0
	inspectorMaxSpeed       = 300.0
)

// InspectorMetrics is the typed metric schema of an Inspector.
type InspectorMetrics struct {
	Speed     float64 // inspection speed setting, percent
	PassCount float64
	FailCount float64
	PassRate  float64 // pass percentage over all inspected items
}

// Inspector checks quality. On completing an item it flips a weighted coin
// to mark the item scrap or good and maintains the derived pass rate.
type Inspector struct {
	machineBase
	m InspectorMetrics
}

// NewInspector builds an inspector at nominal speed.
func NewInspector(id, lineID string, cfg *Config, rng *rand.Rand) *Inspector {
	i := &Inspector{
		machineBase: newMachineBase(id, "Inspector", MachineInspector, lineID, 5, inspectorProcessSeconds, cfg, rng),
		m:           InspectorMetrics{Speed: inspectorBaseSpeed},
	}
	i.parts = []*Part{
		{Name: "Camera", WearRate: 0.0001},
		{Name: "Light", WearRate: 0.0005},
	}
	return i
}

func (i *Inspector) Update(dt float64, rng *rand.Rand) {
	switch i.status {
	case StatusRunning:
		// Optics wear only while inspecting.
		for _, p := range i.parts {
			p.AddWear(p.WearRate * dt)
		}

		if failed, reason := i.checkFailure(nil, rng); failed {
			i.fail(reason)
			return
		}

		finished, _ := i.advanceProcessing(dt, i.m.Speed/inspectorBaseSpeed)
		if finished != nil {
			if rng.Float64() < inspectorDefectChance {
				finished.Quality = 0.0
				i.m.FailCount++
			} else {
				i.m.PassCount++
			}
			total := i.m.PassCount + i.m.FailCount
			i.m.PassRate = i.m.PassCount / total * 100.0
		}

	case StatusIdle, StatusStarved:
		i.wakeIfFed()
	}
}

func (i *Inspector) Reset() {
	i.resetCommon()
}

// SetSpeed maps the generic setpoint onto inspection speed percent (1:10).
func (i *Inspector) SetSpeed(value float64) {
	i.m.Speed = value / 10.0
}

func (i *Inspector) AdjustSpeed(delta float64) {
	i.m.Speed = clampf(i.m.Speed+delta, inspectorMinSpeed, inspectorMaxSpeed)
}

// Metrics returns the typed metric view.
func (i *Inspector) Metrics() InspectorMetrics { return i.m }

func (i *Inspector) Snapshot() MachineSnapshot {
	return i.snapshotWith(map[string]float64{
		"speed":      i.m.Speed,
		"pass_count": i.m.PassCount,
		"fail_count": i.m.FailCount,
		"pass_rate":  i.m.PassRate,
	})
}
