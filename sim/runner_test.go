package sim

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_TickLimitAndSnapshotStream(t *testing.T) {
	// GIVEN a runner bounded to 3 fast ticks
	f := newTestFactory()
	r := NewRunner(f, time.Millisecond, 3)

	// WHEN it runs to the limit
	done := make(chan struct{})
	go func() {
		r.Run(context.Background())
		close(done)
	}()

	// THEN exactly one snapshot per tick comes out, timestamps ascending,
	// and the stream closes when the loop exits
	var snaps []Snapshot
	for s := range r.Snapshots() {
		snaps = append(snaps, s)
	}
	<-done
	require.Len(t, snaps, 3)
	assert.Less(t, snaps[0].Timestamp, snaps[1].Timestamp)
	assert.Less(t, snaps[1].Timestamp, snaps[2].Timestamp)
}

func TestRunner_CommandsApplyAtNextTick(t *testing.T) {
	// GIVEN a queued command before the loop starts
	f := newTestFactory()
	r := NewRunner(f, time.Millisecond, 1)
	require.True(t, r.Send(Command{MachineID: "L1-CUT-01", Command: "set_speed:3000"}))

	// WHEN one tick runs
	go r.Run(context.Background())
	for range r.Snapshots() {
	}

	// THEN the command landed before the tick's update
	assert.Equal(t, 3000.0, f.Machine("L1-CUT-01").(*Cutter).Metrics().SpeedSetting)
}

func TestRunner_ContextCancelStopsLoop(t *testing.T) {
	// GIVEN an unbounded runner
	f := newTestFactory()
	r := NewRunner(f, time.Millisecond, 0)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()
	go func() {
		for range r.Snapshots() {
		}
	}()

	// WHEN the context is cancelled
	time.Sleep(10 * time.Millisecond)
	cancel()

	// THEN the loop exits promptly
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}

func TestRunner_SendNeverBlocks(t *testing.T) {
	// GIVEN a runner whose command queue is saturated
	f := newTestFactory()
	r := NewRunner(f, time.Millisecond, 0)
	for i := 0; i < 64; i++ {
		require.True(t, r.Send(Command{MachineID: "L1-CUT-01", Command: "stop"}))
	}

	// WHEN one more command arrives
	// THEN it is dropped instead of blocking the sender
	assert.False(t, r.Send(Command{MachineID: "L1-CUT-01", Command: "stop"}))
}
