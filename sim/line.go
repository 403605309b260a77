package sim

import (
	"fmt"
	"math/rand"
)

// ProductionLine is an ordered chain of machines plus the order currently
// assigned to it. The machine sequence is fixed after construction:
// Cutter -> Conveyor -> RobotArm -> Inspector -> Packer.
type ProductionLine struct {
	ID           string
	Name         string
	ProductType  string // retooled to the assigned order's product
	CurrentOrder *Order
	Machines     []Machine
}

// NewProductionLine builds the fixed machine chain for one line.
func NewProductionLine(id, name, productType string, cfg *Config, rng *rand.Rand) *ProductionLine {
	l := &ProductionLine{
		ID:          id,
		Name:        name,
		ProductType: productType,
	}
	l.Machines = []Machine{
		NewCutter(fmt.Sprintf("%s-CUT-01", id), id, cfg, rng),
		NewConveyor(fmt.Sprintf("%s-CON-01", id), id, cfg, rng),
		NewRobotArm(fmt.Sprintf("%s-ROB-01", id), id, cfg, rng),
		NewInspector(fmt.Sprintf("%s-INS-01", id), id, cfg, rng),
		NewPacker(fmt.Sprintf("%s-PAC-01", id), id, cfg, rng),
	}
	return l
}

// Machine returns the machine with the given id, or nil.
func (l *ProductionLine) Machine(id string) Machine {
	for _, m := range l.Machines {
		if m.ID() == id {
			return m
		}
	}
	return nil
}

// First returns the head machine (material feed point).
func (l *ProductionLine) First() Machine { return l.Machines[0] }

// Last returns the tail machine (shipment point).
func (l *ProductionLine) Last() Machine { return l.Machines[len(l.Machines)-1] }

// Update moves completed items downstream and then advances every machine.
// Transfer is unconditional: downstream input buffers accept everything the
// upstream station finished (no backpressure between stations).
func (l *ProductionLine) Update(dt float64, now float64, rng *rand.Rand) {
	for i := 0; i < len(l.Machines)-1; i++ {
		next := l.Machines[i+1]
		for _, p := range l.Machines[i].DrainOutput() {
			p.MoveTo(next.Name(), now)
			next.PushInput(p)
		}
	}
	for _, m := range l.Machines {
		m.Update(dt, rng)
	}
}

// Snapshot exports the line for the wire format.
func (l *ProductionLine) Snapshot() LineSnapshot {
	ms := make([]MachineSnapshot, len(l.Machines))
	for i, m := range l.Machines {
		ms[i] = m.Snapshot()
	}
	var order *OrderSnapshot
	if l.CurrentOrder != nil {
		o := l.CurrentOrder.Snapshot()
		order = &o
	}
	return LineSnapshot{
		ID:           l.ID,
		Name:         l.Name,
		ProductType:  l.ProductType,
		CurrentOrder: order,
		Machines:     ms,
	}
}
