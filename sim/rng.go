package sim

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem names for partitioned RNG streams. Keeping the streams isolated
// means a change in how one subsystem consumes randomness (e.g. an extra
// failure draw) cannot shift the values every other subsystem sees.
const (
	SubsystemPhysics    = "physics"    // machine noise and failure draws
	SubsystemOrders     = "orders"     // order arrival and contents
	SubsystemWorkers    = "workers"    // travel time and hop counts
	SubsystemThresholds = "thresholds" // per-machine threshold randomization
)

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
// Two factories built from the same seed and configuration produce identical
// tick-by-tick state.
//
// Thread-safety: NOT thread-safe. Must be called from the simulation goroutine.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed used to create this PartitionedRNG.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
