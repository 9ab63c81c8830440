package quark

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type destroyFunc func()

func (f destroyFunc) Destroy() { f() }

// recoverError runs fn and returns the error it panicked with.
func recoverError(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err, _ = r.(error)
		}
	}()
	fn()
	return nil
}

func TestScopeDestroyOrder(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewScope()

	var order []string
	s.Add(destroyFunc(func() { order = append(order, "resource-1") }))
	s.Add(destroyFunc(func() { order = append(order, "resource-2") }))
	s.OnDestroy(func() { order = append(order, "callback-1") })
	s.OnDestroy(func() { order = append(order, "callback-2") })

	s.Destroy()

	assert.Equal(t, []string{"resource-2", "resource-1", "callback-2", "callback-1"}, order)
	assert.True(t, s.IsDestroyed())
	assert.Zero(t, s.Len())
}

func TestScopeDestroyIdempotent(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewScope()

	calls := 0
	s.OnDestroy(func() {
		calls++
		s.Destroy()
	})

	s.Destroy()
	s.Destroy()

	assert.Equal(t, 1, calls)
}

func TestScopeCascadingTeardown(t *testing.T) {
	rt := NewRuntime()
	external := NewAtom(rt, 0)

	parent := rt.NewScope()
	child := parent.NewScope()
	grandchild := child.NewScope()

	doubled := ScopeCompute(child, func() int { return external.Get() * 2 })
	runs := 0
	ScopeSyncEffect(grandchild, doubled, func(int) { runs++ })
	ScopeEffect(parent, external, func(int) {})
	sig := ScopeSignal[int](child)
	ScopeEffect(grandchild, sig, func(int) {})

	require.Equal(t, 2, external.SubscriberCount())
	require.Equal(t, 1, sig.ListenerCount())

	parent.Destroy()

	assert.True(t, child.IsDestroyed())
	assert.True(t, grandchild.IsDestroyed())
	assert.Zero(t, external.SubscriberCount(), "destroyed scope must leave no registrations")
	assert.Zero(t, doubled.SubscriberCount())
	assert.Zero(t, sig.ListenerCount())

	external.Set(1)
	rt.Flush()
	assert.Equal(t, 1, runs)
}

func TestScopeChildDetachesFromParent(t *testing.T) {
	rt := NewRuntime()
	parent := rt.NewScope()
	child := parent.NewScope()
	ScopeAtom(parent, 1)

	require.Equal(t, 2, parent.Len())
	require.Same(t, parent, child.Parent())

	child.Destroy()
	assert.Equal(t, 1, parent.Len())

	parent.Destroy()
	assert.True(t, parent.IsDestroyed())
}

func TestScopeUseAfterDestroy(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewScope()
	a := NewAtom(rt, 0)
	s.Destroy()

	tests := []struct {
		name string
		fn   func()
	}{
		{"atom", func() { ScopeAtom(s, 1) }},
		{"compute", func() { ScopeCompute(s, func() int { return 1 }) }},
		{"signal", func() { ScopeSignal[int](s) }},
		{"effect", func() { ScopeEffect(s, a, func(int) {}) }},
		{"sync effect", func() { ScopeSyncEffect(s, a, func(int) {}) }},
		{"child", func() { s.NewScope() }},
		{"add", func() { s.Add(destroyFunc(func() {})) }},
		{"on destroy", func() { s.OnDestroy(func() {}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := recoverError(tt.fn)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrScopeDestroyed))

			var sde *ScopeDestroyedError
			require.ErrorAs(t, err, &sde)
			assert.Equal(t, s.ID(), sde.ScopeID)
		})
	}

	assert.Zero(t, a.SubscriberCount())
}

func TestScopeCreationDuringDestroyRejected(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewScope()

	var err error
	s.OnDestroy(func() {
		err = recoverError(func() { ScopeAtom(s, 0) })
	})
	s.Destroy()

	assert.ErrorIs(t, err, ErrScopeDestroyed)
}

func TestScopePanicDoesNotStopTeardown(t *testing.T) {
	errs := captureErrors(t)
	rt := NewRuntime()
	s := rt.NewScope()

	a := ScopeAtom(s, 0)
	s.Add(destroyFunc(func() { panic("resource failed") }))
	called := false
	s.OnDestroy(func() { called = true })

	s.Destroy()

	assert.True(t, a.IsDestroyed())
	assert.True(t, called)
	require.Len(t, *errs, 1)
	assert.ErrorIs(t, (*errs)[0], ErrCallback)
}

func TestScopeAddReturnsResource(t *testing.T) {
	rt := NewRuntime()
	s := rt.NewScope()
	a := NewAtom(rt, 0)

	got := s.Add(a)
	assert.Same(t, a, got.(*Atom[int]))
	assert.Same(t, rt, s.Runtime())

	s.Destroy()
	assert.True(t, a.IsDestroyed())
}
