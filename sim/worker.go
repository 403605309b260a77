package sim

import "math/rand"

// WorkerState is the movement/work state of a worker.
type WorkerState string

const (
	WorkerIdle    WorkerState = "IDLE"
	WorkerMoving  WorkerState = "MOVING"
	WorkerWorking WorkerState = "WORKING"
)

// LocationHub is where workers start before their first dispatch.
const LocationHub = "HUB"

// Worker is a mobile repair agent. It moves between machine locations with
// noisy hop-based travel times and performs timed repair jobs on site.
type Worker struct {
	ID             string
	Name           string
	Location       string // machine id or LocationHub
	State          WorkerState
	TargetLocation string
	TaskEndTime    float64  // sim time the current move or job completes
	Path           []string // queued intermediate stops
}

// NewWorker creates an idle worker at the hub.
func NewWorker(id, name string) *Worker {
	return &Worker{
		ID:       id,
		Name:     name,
		Location: LocationHub,
		State:    WorkerIdle,
	}
}

// Update advances the worker's movement/work timers. A mover whose arrival
// time has passed either continues along its queued path or goes idle at the
// destination; a worker whose job timer has passed goes idle in place.
func (w *Worker) Update(now float64, rng *rand.Rand, cfg *WorkerConfig) {
	switch w.State {
	case WorkerMoving:
		if now >= w.TaskEndTime {
			w.Location = w.TargetLocation
			if len(w.Path) > 0 {
				next := w.Path[0]
				w.Path = w.Path[1:]
				w.MoveTo(next, 1, now, rng, cfg)
			} else {
				w.State = WorkerIdle
				w.TargetLocation = ""
			}
		}
	case WorkerWorking:
		if now >= w.TaskEndTime {
			w.State = WorkerIdle
		}
	}
}

// MoveTo sends the worker toward a target over the given number of hops.
// Travel time is the sum of per-hop draws of base speed plus non-negative
// Gaussian noise.
func (w *Worker) MoveTo(target string, hops int, now float64, rng *rand.Rand, cfg *WorkerConfig) {
	if hops < 1 {
		hops = 1
	}
	total := 0.0
	for i := 0; i < hops; i++ {
		noise := rng.NormFloat64() * cfg.TravelNoiseStd
		if noise < 0 {
			noise = 0
		}
		total += cfg.SpeedBase + noise
	}
	w.State = WorkerMoving
	w.TargetLocation = target
	w.TaskEndTime = now + total
}

// StartJob puts the worker to work in place for the given duration.
func (w *Worker) StartJob(duration, now float64) {
	w.State = WorkerWorking
	w.TaskEndTime = now + duration
}

// Snapshot exports the worker for the wire format.
func (w *Worker) Snapshot() WorkerSnapshot {
	return WorkerSnapshot{
		ID:       w.ID,
		Name:     w.Name,
		Location: w.Location,
		State:    string(w.State),
		Target:   w.TargetLocation,
	}
}
