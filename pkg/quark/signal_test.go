package quark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalSyncDeliveryOrder(t *testing.T) {
	rt := NewRuntime()
	sig := NewSignal[int](rt, SignalSync(), Label("clicks"))

	var order []string
	sig.Subscribe(func(v int) { order = append(order, "first") })
	sig.Subscribe(func(v int) { order = append(order, "second") })

	sig.Emit(1)

	assert.Equal(t, []string{"first", "second"}, order)
	assert.True(t, sig.Sync())
	assert.Equal(t, "clicks", sig.Label())
}

func TestSignalBatchedDelivery(t *testing.T) {
	rt := NewRuntime()
	sig := NewSignal[int](rt)

	var got []int
	sig.Subscribe(func(v int) { got = append(got, v) })

	sig.Emit(1)
	sig.Emit(2)
	assert.Empty(t, got)
	assert.Equal(t, 2, rt.Scheduler().Pending())

	rt.Flush()
	assert.Equal(t, []int{1, 2}, got)
}

func TestSignalLateSubscriber(t *testing.T) {
	rt := NewRuntime()
	sig := NewSignal[string](rt, SignalSync())

	sig.Emit("missed")

	var got []string
	sig.Subscribe(func(v string) { got = append(got, v) })
	sig.Emit("seen")

	assert.Equal(t, []string{"seen"}, got)
}

func TestSignalUnsubscribe(t *testing.T) {
	rt := NewRuntime()
	sig := NewSignal[int](rt)

	var got []int
	unsubscribe := sig.Subscribe(func(v int) { got = append(got, v) })
	require.Equal(t, 1, sig.ListenerCount())

	sig.Emit(1)
	unsubscribe()
	unsubscribe()
	rt.Flush()

	assert.Empty(t, got, "queued delivery to a removed listener is dropped")
	assert.Zero(t, sig.ListenerCount())
}

func TestSignalListenerPanic(t *testing.T) {
	errs := captureErrors(t)
	rt := NewRuntime()
	sig := NewSignal[int](rt, SignalSync())

	sig.Subscribe(func(int) { panic("listener failed") })
	var got []int
	sig.Subscribe(func(v int) { got = append(got, v) })

	assert.NotPanics(t, func() { sig.Emit(7) })
	assert.Equal(t, []int{7}, got)
	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0], ErrCallback)
}

func TestSignalDestroy(t *testing.T) {
	rt := NewRuntime()
	sig := NewSignal[int](rt)

	var got []int
	sig.Subscribe(func(v int) { got = append(got, v) })
	sig.Emit(1)

	sig.Destroy()
	sig.Destroy()
	rt.Flush()

	assert.Empty(t, got)
	assert.True(t, sig.IsDestroyed())

	sig.Emit(2)
	unsubscribe := sig.Subscribe(func(v int) { got = append(got, v) })
	unsubscribe()
	rt.Flush()

	assert.Empty(t, got)
	assert.Zero(t, sig.ListenerCount())
}
