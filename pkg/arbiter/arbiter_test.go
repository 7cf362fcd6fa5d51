package arbiter

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/framegraph/pkg/lifecycle"
)

func runAsync(a *Arbiter, ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()
	return done
}

func TestArbiter_SerializesCommands(t *testing.T) {
	a := New(nil, WithPollTimeout(time.Millisecond))
	done := runAsync(a, context.Background())

	// Not safe for concurrent use; only the arbiter goroutine touches it.
	windows := map[string]int{}
	var inside, overlap atomic.Int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				err := a.Do(func() {
					if inside.Add(1) > 1 {
						overlap.Add(1)
					}
					windows["main"]++
					inside.Add(-1)
				})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	n, err := Call(a, func() int { return windows["main"] })
	require.NoError(t, err)
	assert.Equal(t, 200, n)
	assert.Zero(t, overlap.Load())

	a.Stop()
	<-done
	assert.Equal(t, 201, a.Executed())
}

func TestArbiter_ExitsWhenWorkersDone(t *testing.T) {
	workers := lifecycle.NewManager(nil, nil)
	workers.AddWorker()
	a := New(workers, WithPollTimeout(time.Millisecond))
	done := runAsync(a, context.Background())

	got := make(chan int, 1)
	go func() {
		defer workers.WorkerDone()
		v, err := Call(a, func() int { return 42 })
		assert.NoError(t, err)
		got <- v
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("arbiter did not exit after its worker finished")
	}
	assert.Equal(t, 42, <-got)

	_, err := Call(a, func() int { return 0 })
	assert.ErrorIs(t, err, ErrStopped)
}

func TestArbiter_ContextEndsRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New(nil, WithPollTimeout(time.Millisecond))
	done := runAsync(a, ctx)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("arbiter ignored context")
	}
	assert.True(t, a.Stopped())
}

func TestArbiter_CallerBlocksUntilExecuted(t *testing.T) {
	a := New(nil, WithPollTimeout(time.Millisecond))

	returned := make(chan error, 1)
	go func() { returned <- a.Do(func() {}) }()

	select {
	case <-returned:
		t.Fatal("Do returned before the arbiter ran")
	case <-time.After(20 * time.Millisecond):
	}

	done := runAsync(a, context.Background())
	select {
	case err := <-returned:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("command never executed")
	}
	a.Stop()
	<-done
}

func TestArbiter_PanickingCommand(t *testing.T) {
	a := New(nil, WithPollTimeout(time.Millisecond))
	done := runAsync(a, context.Background())

	err := a.Do(func() { panic("display gone") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "display gone")

	// The arbiter keeps serving.
	v, err := Call(a, func() string { return "ok" })
	require.NoError(t, err)
	assert.Equal(t, "ok", v)

	a.Stop()
	<-done
}
