package sim

// Part is a wearing component of a machine. Wear runs from 0 (new) to 1
// (broken) and only ever decreases through an explicit machine reset.
type Part struct {
	Name     string  // e.g. "Blade", "Motor", "Belt"
	Wear     float64 // 0.0 to 1.0 (1.0 = broken)
	WearRate float64 // base wear per second at nominal speed
}

// AddWear accumulates wear, clamped to [0, 1]. Negative deltas are ignored
// so wear stays monotonic between resets.
func (p *Part) AddWear(delta float64) {
	if delta <= 0 {
		return
	}
	p.Wear += delta
	if p.Wear > 1.0 {
		p.Wear = 1.0
	}
}

// Broken reports whether the part has reached full wear.
func (p *Part) Broken() bool {
	return p.Wear >= 1.0
}

// Snapshot exports the part for the wire format.
func (p *Part) Snapshot() PartSnapshot {
	status := "OK"
	if p.Wear > 0.8 {
		status = "CRITICAL"
	}
	return PartSnapshot{Name: p.Name, Wear: p.Wear, Status: status}
}
