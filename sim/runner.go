package sim

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Runner drives a Factory at a fixed tick rate and is the only goroutine
// that touches factory state. Inbound commands queue on a channel and are
// applied at the start of the next tick; each completed tick publishes one
// snapshot. Ticks never overlap: a slow tick simply delays the next one.
type Runner struct {
	factory  *Factory
	interval time.Duration
	maxTicks int // 0 = unbounded

	commands  chan Command
	snapshots chan Snapshot
}

// NewRunner wraps a factory in a fixed-rate loop. maxTicks of 0 runs until
// the context is cancelled.
func NewRunner(factory *Factory, interval time.Duration, maxTicks int) *Runner {
	return &Runner{
		factory:   factory,
		interval:  interval,
		maxTicks:  maxTicks,
		commands:  make(chan Command, 64),
		snapshots: make(chan Snapshot, 8),
	}
}

// Commands is the inbound control channel. Sends are fire-and-forget; a full
// queue drops the command with a log line rather than blocking the sender.
func (r *Runner) Commands() chan<- Command { return r.commands }

// Snapshots is the outbound snapshot stream, one per tick.
func (r *Runner) Snapshots() <-chan Snapshot { return r.snapshots }

// Send queues a command without blocking. Returns false when the queue is
// full (the command is dropped and logged).
func (r *Runner) Send(cmd Command) bool {
	select {
	case r.commands <- cmd:
		return true
	default:
		logrus.Warnf("command queue full, dropping %s -> %s", cmd.MachineID, cmd.Command)
		return false
	}
}

// Run blocks until the context is cancelled or the tick limit is reached.
// The snapshot channel is closed on return.
func (r *Runner) Run(ctx context.Context) {
	defer close(r.snapshots)

	dt := r.interval.Seconds()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logrus.Infof("simulation loop started (tick %s)", r.interval)
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			logrus.Info("simulation loop stopped")
			return
		case <-ticker.C:
			r.drainCommands()
			r.factory.Update(dt)
			r.publish(r.factory.Snapshot())
			ticks++
			if r.maxTicks > 0 && ticks >= r.maxTicks {
				logrus.Infof("tick limit %d reached", r.maxTicks)
				return
			}
		}
	}
}

// drainCommands applies everything queued since the previous tick, in
// arrival order.
func (r *Runner) drainCommands() {
	for {
		select {
		case cmd := <-r.commands:
			r.factory.Control(cmd.MachineID, cmd.Command)
		default:
			return
		}
	}
}

// publish hands the snapshot to the subscriber without ever blocking the
// tick: when the subscriber lags, the snapshot is dropped and logged.
func (r *Runner) publish(s Snapshot) {
	select {
	case r.snapshots <- s:
	default:
		logrus.Debugf("snapshot at t=%.1f dropped, subscriber lagging", s.Timestamp)
	}
}
