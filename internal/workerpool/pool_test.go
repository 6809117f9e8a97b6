package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	p := New(Config{Workers: 4, Capacity: 64})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	var count atomic.Int64
	const n = 100
	for i := 0; i < n; i++ {
		require.True(t, p.SubmitWait(func() { count.Add(1) }))
	}

	require.Eventually(t, func() bool {
		return count.Load() == n
	}, time.Second, time.Millisecond)
}

func TestPoolStopDrainsWorkers(t *testing.T) {
	p := New(Config{Workers: 2, Capacity: 8})
	ctx := context.Background()
	p.Start(ctx)

	done := make(chan struct{})
	require.True(t, p.SubmitWait(func() { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}

	p.Stop()
	require.False(t, p.Submit(func() {}))
}

func TestPoolRecoversFromPanickingTask(t *testing.T) {
	p := New(Config{Workers: 1, Capacity: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	require.True(t, p.SubmitWait(func() { panic("boom") }))

	var ran atomic.Bool
	require.True(t, p.SubmitWait(func() { ran.Store(true) }))

	require.Eventually(t, func() bool { return ran.Load() }, time.Second, time.Millisecond)
}
