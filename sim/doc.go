// Package sim implements a discrete time-stepped simulation of a small
// manufacturing facility: production lines of physical machines, a mobile
// worker pool for repair and maintenance, an order book, inventory with
// auto-restocking, and an economic ledger.
//
// All state advances synchronously inside Factory.Update; there is no
// intra-tick concurrency. The Runner wraps Factory in a fixed-rate loop and
// exposes the two message channels that connect the simulation to the
// outside world: outbound snapshots and inbound control commands.
package sim
