package quark

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startLoop runs a loop for the duration of the test.
func startLoop(t *testing.T, opts ...Option) *Loop {
	t.Helper()
	l := NewLoop(opts...)
	go func() { _ = l.Run(context.Background()) }()
	t.Cleanup(func() {
		l.Stop()
		<-l.Done()
	})
	return l
}

func TestLoopCallFlushesEffects(t *testing.T) {
	l := startLoop(t)
	ctx := context.Background()

	type counter struct {
		count *Atom[int]
		seen  []int
	}

	c, err := Call(ctx, l, func(rt *Runtime) (*counter, error) {
		c := &counter{count: NewAtom(rt, 0)}
		NewEffect(rt, c.count, func(v int) { c.seen = append(c.seen, v) })
		return c, nil
	})
	require.NoError(t, err)

	seen, err := Call(ctx, l, func(rt *Runtime) ([]int, error) {
		c.count.Set(1)
		c.count.Set(2)
		return append([]int(nil), c.seen...), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0}, seen, "effects run after the task body")

	seen, err = Call(ctx, l, func(rt *Runtime) ([]int, error) {
		return append([]int(nil), c.seen...), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, seen)
}

func TestLoopCallResultVisibleAfterFlush(t *testing.T) {
	l := startLoop(t)

	var runs int
	var a *Atom[string]
	_, err := Call(context.Background(), l, func(rt *Runtime) (struct{}, error) {
		a = NewAtom(rt, "")
		NewEffect(rt, a, func(string) { runs++ })
		return struct{}{}, nil
	})
	require.NoError(t, err)

	_, err = Call(context.Background(), l, func(rt *Runtime) (struct{}, error) {
		a.Set("changed")
		return struct{}{}, nil
	})
	require.NoError(t, err)

	// The batched effect ran in the turn's microtask drain, before Call
	// returned.
	assert.Equal(t, 2, runs)
}

func TestLoopCallErrors(t *testing.T) {
	l := startLoop(t)
	ctx := context.Background()

	errBoom := errors.New("boom")
	_, err := Call(ctx, l, func(*Runtime) (int, error) { return 0, errBoom })
	assert.ErrorIs(t, err, errBoom)

	_, err = Call(ctx, l, func(*Runtime) (int, error) { panic("exploded") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exploded")

	v, err := Call(ctx, l, func(*Runtime) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v, "loop keeps running after a failed call")
}

func TestLoopConcurrentSubmit(t *testing.T) {
	l := startLoop(t)
	ctx := context.Background()

	a, err := Call(ctx, l, func(rt *Runtime) (*Atom[int], error) {
		return NewAtom(rt, 0), nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := Call(ctx, l, func(*Runtime) (int, error) {
				a.Update(func(n int) int { return n + 1 })
				return 0, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := Call(ctx, l, func(*Runtime) (int, error) { return a.Peek(), nil })
	require.NoError(t, err)
	assert.Equal(t, 20, got)
}

func TestLoopRunTwice(t *testing.T) {
	l := startLoop(t)
	_, err := Call(context.Background(), l, func(*Runtime) (int, error) { return 0, nil })
	require.NoError(t, err)

	assert.ErrorIs(t, l.Run(context.Background()), ErrLoopRunning)
}

func TestLoopStop(t *testing.T) {
	l := NewLoop()
	errc := make(chan error, 1)
	go func() { errc <- l.Run(context.Background()) }()

	l.Stop()
	l.Stop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.ErrorIs(t, l.Submit(func() {}), ErrLoopStopped)
	_, err := Call(context.Background(), l, func(*Runtime) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestLoopContextCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Run(ctx) }()

	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	<-l.Done()
	assert.ErrorIs(t, l.Submit(func() {}), ErrLoopStopped)
	_, err := Call(context.Background(), l, func(*Runtime) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrLoopStopped)
}

func TestLoopCallContextCancel(t *testing.T) {
	l := startLoop(t)
	block := make(chan struct{})
	defer close(block)

	require.NoError(t, l.Submit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Call(ctx, l, func(*Runtime) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoopResumesDeferredFlush(t *testing.T) {
	captureErrors(t)
	l := startLoop(t, WithMaxFlushTasks(2))
	ctx := context.Background()

	ran := 0
	_, err := Call(ctx, l, func(rt *Runtime) (int, error) {
		for i := 0; i < 5; i++ {
			rt.Scheduler().Enqueue(func() { ran++ })
		}
		return 0, nil
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := Call(ctx, l, func(*Runtime) (int, error) { return ran, nil })
		return err == nil && n == 5
	}, time.Second, 5*time.Millisecond)
}

func TestLoopStormDoesNotStarveSubmissions(t *testing.T) {
	captureErrors(t)
	l := startLoop(t, WithMaxFlushTasks(1))
	ctx := context.Background()

	// An effect that keeps re-triggering itself never lets a flush finish
	// within budget.
	_, err := Call(ctx, l, func(rt *Runtime) (int, error) {
		a := NewAtom(rt, 0)
		NewEffect(rt, a, func(v int) { a.Set(v + 1) })
		return 0, nil
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		callCtx, cancel := context.WithTimeout(ctx, time.Second)
		n, err := Call(callCtx, l, func(*Runtime) (int, error) { return i, nil })
		cancel()
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
}
