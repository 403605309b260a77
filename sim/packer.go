package sim

import "math/rand"

const (
	packerProcessSeconds = 2.0
	packerBaseEfficiency = 100.0
	packerMinEfficiency  = 50.0
	packerMaxEfficiency  = 300.0
)

// PackerMetrics is the typed metric schema of a Packer.
type PackerMetrics struct {
	Efficiency  float64 // throughput setting, percent
	PackedCount float64 // finished units packed since start
	JamRate     float64 // jam incidents per packed unit
}

// Packer boxes finished items at the tail of a line. Items leaving its
// output buffer are finished goods.
type Packer struct {
	machineBase
	m PackerMetrics
}

// NewPacker builds a packer at nominal efficiency.
func NewPacker(id, lineID string, cfg *Config, rng *rand.Rand) *Packer {
	p := &Packer{
		machineBase: newMachineBase(id, "Packer", MachinePacker, lineID, 5, packerProcessSeconds, cfg, rng),
		m:           PackerMetrics{Efficiency: packerBaseEfficiency},
	}
	p.parts = []*Part{{Name: "Pneumatics", WearRate: 0.0005}}
	return p
}

func (p *Packer) Update(dt float64, rng *rand.Rand) {
	switch p.status {
	case StatusRunning:
		for _, part := range p.parts {
			part.AddWear(part.WearRate * dt)
		}

		if failed, reason := p.checkFailure(p.readings(), rng); failed {
			p.fail(reason)
			return
		}

		finished, _ := p.advanceProcessing(dt, p.m.Efficiency/packerBaseEfficiency)
		if finished != nil {
			p.m.PackedCount++
			p.m.JamRate = 0.0
		}

	case StatusIdle, StatusStarved:
		p.wakeIfFed()
	}
}

func (p *Packer) Reset() {
	p.resetCommon()
}

// SetSpeed maps the generic setpoint onto efficiency percent (1:10).
func (p *Packer) SetSpeed(value float64) {
	p.m.Efficiency = value / 10.0
}

func (p *Packer) AdjustSpeed(delta float64) {
	p.m.Efficiency = clampf(p.m.Efficiency+delta, packerMinEfficiency, packerMaxEfficiency)
}

func (p *Packer) readings() []metricReading {
	return []metricReading{{"jam_rate", p.m.JamRate}}
}

// Metrics returns the typed metric view.
func (p *Packer) Metrics() PackerMetrics { return p.m }

func (p *Packer) Snapshot() MachineSnapshot {
	return p.snapshotWith(map[string]float64{
		"efficiency":   p.m.Efficiency,
		"packed_count": p.m.PackedCount,
		"jam_rate":     p.m.JamRate,
	})
}
