package sim

import "math/rand"

// Cutter base calibration. Speed is spindle RPM; 1500 RPM is the nominal
// operating point all ratios are taken against.
const (
	cutterBaseRPM        = 1500.0
	cutterMinRPM         = 500.0
	cutterMaxRPM         = 6000.0
	cutterAmbientTemp    = 25.0
	cutterCoolingCoeff   = 0.03 // Newton cooling toward ambient, per second
	cutterProcessSeconds = 2.0
)

// CutterMetrics is the typed metric schema of a Cutter.
type CutterMetrics struct {
	SpeedSetting float64 // commanded RPM
	Speed        float64 // actual RPM (setpoint + noise)
	Temperature  float64 // spindle temperature, degrees C
	Vibration    float64 // composite vibration index
	ToolWear     float64 // cumulative tool wear index
}

// Cutter shapes raw material at the head of a line. Heat gain scales with
// the square of the speed ratio; cooling follows Newton's law toward ambient.
type Cutter struct {
	machineBase
	m CutterMetrics
}

// NewCutter builds a cutter with a fresh blade and nominal setpoint.
func NewCutter(id, lineID string, cfg *Config, rng *rand.Rand) *Cutter {
	c := &Cutter{
		machineBase: newMachineBase(id, "Cutter", MachineCutter, lineID, 5, cutterProcessSeconds, cfg, rng),
		m: CutterMetrics{
			SpeedSetting: cutterBaseRPM,
			Temperature:  cutterAmbientTemp,
		},
	}
	c.parts = []*Part{{Name: "Blade", WearRate: 0.00075}}
	return c
}

func (c *Cutter) Update(dt float64, rng *rand.Rand) {
	switch c.status {
	case StatusRunning:
		// Actual speed = setpoint + bounded noise.
		c.m.Speed = c.m.SpeedSetting + float64(rng.Intn(101)-50)

		// Heat gain is proportional to (speed/base)^2.
		heatFactor := (c.m.Speed / cutterBaseRPM) * (c.m.Speed / cutterBaseRPM)
		heating := (0.8 + rng.Float64()) * heatFactor * dt
		cooling := (c.m.Temperature - cutterAmbientTemp) * cutterCoolingCoeff * dt
		c.m.Temperature = maxf(cutterAmbientTemp, c.m.Temperature+heating-cooling)

		c.m.Vibration = 0.1 + rng.Float64()*2.4 + (c.m.Temperature/100.0)*(c.m.Speed/cutterBaseRPM)
		c.m.ToolWear += 0.001 * dt * heatFactor

		speedRatio := c.m.Speed / cutterBaseRPM
		for _, p := range c.parts {
			p.AddWear(p.WearRate * speedRatio * dt)
		}

		if failed, reason := c.checkFailure(c.readings(), rng); failed {
			c.fail(reason)
			return
		}

		c.advanceProcessing(dt, maxf(0.1, c.m.Speed/cutterBaseRPM))

	case StatusIdle, StatusStarved:
		// Cool down and decelerate while waiting for work.
		c.m.Temperature = maxf(cutterAmbientTemp, c.m.Temperature-1.0*dt)
		c.m.Speed = maxf(0, c.m.Speed-500*dt)
		c.wakeIfFed()

	case StatusError:
		// Physics continue in error: friction spins the blade down and the
		// spindle cools slowly.
		c.m.Speed = maxf(0, c.m.Speed-200*dt)
		c.m.Temperature = maxf(cutterAmbientTemp, c.m.Temperature-0.5*dt)
	}
}

func (c *Cutter) Reset() {
	c.resetCommon()
	c.m.Speed = 0
	c.m.Temperature = cutterAmbientTemp
	c.m.Vibration = 0
}

func (c *Cutter) SetSpeed(value float64) {
	c.m.SpeedSetting = value
}

func (c *Cutter) AdjustSpeed(delta float64) {
	c.m.SpeedSetting = clampf(c.m.SpeedSetting+delta, cutterMinRPM, cutterMaxRPM)
}

func (c *Cutter) readings() []metricReading {
	return []metricReading{
		{"temperature", c.m.Temperature},
		{"vibration", c.m.Vibration},
	}
}

// Metrics returns the typed metric view.
func (c *Cutter) Metrics() CutterMetrics { return c.m }

func (c *Cutter) Snapshot() MachineSnapshot {
	return c.snapshotWith(map[string]float64{
		"speed_setting": c.m.SpeedSetting,
		"speed":         c.m.Speed,
		"temperature":   c.m.Temperature,
		"vibration":     c.m.Vibration,
		"tool_wear":     c.m.ToolWear,
	})
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
