package sim

import (
	"math/rand"

	"github.com/sirupsen/logrus"
)

// updateWorkers runs the per-tick worker pipeline: advance timers, start
// jobs at arrival, detect repair completion, then recompute dispatch with
// mid-transit preemption toward urgent targets.
func (f *Factory) updateWorkers(dt, now float64) {
	rng := f.rng.ForSubsystem(SubsystemWorkers)

	// 1. Movement and job timers.
	for _, w := range f.Workers {
		w.Update(now, rng, &f.cfg.Worker)
	}

	// 2. Arrivals: an idle worker standing at a machine either starts a full
	// repair (machine waiting) or a half-duration preventive service (high
	// wear, not already under repair).
	for _, w := range f.Workers {
		if w.State != WorkerIdle || w.Location == LocationHub || w.Location == "" {
			continue
		}
		m := f.Machine(w.Location)
		if m == nil {
			continue
		}
		switch {
		case m.Status() == StatusWaitingRepair:
			w.StartJob(f.cfg.Worker.RepairTime, now)
			m.SetStatus(StatusRepairing)
			f.TotalCosts += f.cfg.Economy.RepairCost
			f.CashBalance -= f.cfg.Economy.RepairCost
			logrus.Infof("worker %s repairing %s", w.ID, m.ID())
		case m.Status() != StatusRepairing && m.MaxWear() > f.cfg.Physics.HighWearThreshold:
			w.StartJob(f.cfg.Worker.RepairTime*0.5, now)
			m.SetStatus(StatusRepairing)
			f.TotalCosts += f.cfg.Economy.RepairCost * 0.5
			f.CashBalance -= f.cfg.Economy.RepairCost * 0.5
			logrus.Infof("worker %s servicing %s (preventive)", w.ID, m.ID())
		}
	}

	// 3. Repair completion is inferred, not signalled: a REPAIRING machine
	// with no worker actively WORKING at its location is done and resets.
	working := map[string]bool{}
	for _, w := range f.Workers {
		if w.State == WorkerWorking && w.Location != "" {
			working[w.Location] = true
		}
	}
	for _, m := range f.AllMachines() {
		if m.Status() == StatusRepairing && !working[m.ID()] {
			m.Reset()
			logrus.Infof("machine %s repaired", m.ID())
		}
	}

	// 4. Dispatch. Urgent targets (waiting for repair) first, preventive
	// high-wear targets next, round-robin patrol as the fallback.
	var urgent, highWear []Machine
	for _, m := range f.AllMachines() {
		switch {
		case m.Status() == StatusWaitingRepair:
			urgent = append(urgent, m)
		case m.Status() != StatusRepairing && m.MaxWear() > f.cfg.Physics.HighWearThreshold:
			highWear = append(highWear, m)
		}
	}

	claimed := map[string]bool{}
	for _, w := range f.Workers {
		if w.TargetLocation != "" {
			claimed[w.TargetLocation] = true
		}
		if w.State == WorkerWorking && w.Location != "" {
			claimed[w.Location] = true
		}
	}

	for _, w := range f.Workers {
		switch w.State {
		case WorkerIdle:
			target := firstUnclaimed(urgent, claimed)
			if target == nil {
				target = firstUnclaimed(highWear, claimed)
			}
			if target != nil {
				f.sendWorker(w, target.ID(), now, rng)
				claimed[target.ID()] = true
			} else {
				f.patrol(w, now, rng)
			}

		case WorkerMoving:
			// Preemption: a mover not already headed to an urgent machine is
			// redirected mid-transit when an unclaimed urgent target exists.
			if containsMachine(urgent, w.TargetLocation) {
				continue
			}
			if target := firstUnclaimed(urgent, claimed); target != nil {
				logrus.Debugf("redirecting %s from %s to %s", w.ID, w.TargetLocation, target.ID())
				f.sendWorker(w, target.ID(), now, rng)
				claimed[target.ID()] = true
			}
		}
	}
}

// patrol moves an idle worker to the next machine in topological order,
// wrapping around at the end of the last line.
func (f *Factory) patrol(w *Worker, now float64, rng *rand.Rand) {
	all := f.AllMachines()
	currentIdx := -1
	if w.Location != "" && w.Location != LocationHub {
		for i, m := range all {
			if m.ID() == w.Location {
				currentIdx = i
				break
			}
		}
	}
	next := all[(currentIdx+1)%len(all)]
	f.sendWorker(w, next.ID(), now, rng)
}

// sendWorker routes a worker to a target over a randomized hop count. Hop
// counts are a bounded random draw, a stand-in for a real floor topology.
func (f *Factory) sendWorker(w *Worker, targetID string, now float64, rng *rand.Rand) {
	hops := 1 + rng.Intn(4)
	if w.Location == targetID {
		hops = 1
	}
	w.MoveTo(targetID, hops, now, rng, &f.cfg.Worker)
}

func firstUnclaimed(machines []Machine, claimed map[string]bool) Machine {
	for _, m := range machines {
		if !claimed[m.ID()] {
			return m
		}
	}
	return nil
}

func containsMachine(machines []Machine, id string) bool {
	for _, m := range machines {
		if m.ID() == id {
			return true
		}
	}
	return false
}
